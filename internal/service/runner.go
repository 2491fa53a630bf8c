package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"landmarket/internal/domain"
	"landmarket/internal/journal"
	"landmarket/internal/metrics"
	"landmarket/internal/notify"
	"landmarket/internal/repository"
	"landmarket/internal/stream"
)

// Journal receives audit entries after commit.
type Journal interface {
	Append(e journal.Entry)
}

// Runner executes business operations as serializable store transactions.
// Conflicting attempts are retried with exponential backoff; side effects
// collected in Effects are delivered only after a successful commit.
type Runner struct {
	store       repository.Store
	maxAttempts int
	baseBackoff time.Duration
	broker      stream.Broker
	notifier    notify.Notifier
	journal     Journal
	log         *slog.Logger
	now         func() time.Time
}

type RunnerOption func(*Runner)

func WithRetry(maxAttempts int, baseBackoff time.Duration) RunnerOption {
	return func(r *Runner) {
		if maxAttempts > 0 {
			r.maxAttempts = maxAttempts
		}
		if baseBackoff >= 0 {
			r.baseBackoff = baseBackoff
		}
	}
}

func WithBroker(b stream.Broker) RunnerOption { return func(r *Runner) { r.broker = b } }
func WithNotifier(n notify.Notifier) RunnerOption { return func(r *Runner) { r.notifier = n } }
func WithJournal(j Journal) RunnerOption { return func(r *Runner) { r.journal = j } }
func WithLogger(l *slog.Logger) RunnerOption { return func(r *Runner) { r.log = l } }
func WithClock(now func() time.Time) RunnerOption { return func(r *Runner) { r.now = now } }

func NewRunner(store repository.Store, opts ...RunnerOption) *Runner {
	r := &Runner{
		store:       store,
		maxAttempts: 5,
		baseBackoff: 20 * time.Millisecond,
		log:         slog.Default(),
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Now returns the runner's clock reading.
func (r *Runner) Now() time.Time { return r.now() }

// Store returns the underlying store.
func (r *Runner) Store() repository.Store { return r.store }

// Do runs fn in a transaction, retrying on serialization conflicts.
func (r *Runner) Do(ctx context.Context, op string, fn func(ctx context.Context, tx repository.Tx, fx *Effects) error) error {
	start := time.Now()
	defer func() { metrics.TxDuration.WithLabelValues(op).Observe(time.Since(start).Seconds()) }()

	backoff := r.baseBackoff
	for attempt := 1; ; attempt++ {
		metrics.TxAttempts.WithLabelValues(op).Inc()

		fx := &Effects{Now: r.now()}
		err := r.store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
			return fn(ctx, tx, fx)
		})
		if err == nil {
			r.flush(ctx, op, fx)
			return nil
		}
		if !errors.Is(err, repository.ErrConflict) {
			return err
		}

		metrics.TxConflicts.WithLabelValues(op).Inc()
		if attempt >= r.maxAttempts {
			metrics.TxContention.WithLabelValues(op).Inc()
			r.log.Warn("transaction contention", "op", op, "attempts", attempt)
			return domain.ErrContention.Withf("%s: too much contention, try again", op)
		}
		if err := sleepWithContext(ctx, backoff); err != nil {
			return err
		}
		if backoff < time.Second {
			backoff *= 2
		}
	}
}

func (r *Runner) flush(ctx context.Context, op string, fx *Effects) {
	ctx = context.WithoutCancel(ctx)

	for _, kind := range fx.movements {
		metrics.LedgerMovements.WithLabelValues(string(kind)).Inc()
	}
	for _, src := range fx.settlements {
		metrics.Settlements.WithLabelValues(src).Inc()
	}
	if r.journal != nil {
		for _, e := range fx.entries {
			r.journal.Append(e)
		}
	}
	if r.broker != nil {
		for _, c := range fx.changes {
			if err := r.broker.Publish(ctx, c); err != nil {
				r.log.Warn("publish change failed", "op", op, "topic", c.Topic, "error", err)
			}
		}
	}
	if r.notifier != nil {
		for _, e := range fx.events {
			if err := r.notifier.Notify(ctx, e); err != nil {
				r.log.Warn("notification failed", "op", op, "type", e.Type, "user_id", e.UserID, "error", err)
			}
		}
	}
}

func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Effects collects what a transaction attempt wants to tell the outside
// world. A fresh Effects is used for every attempt, so a rolled back attempt
// leaves nothing behind.
type Effects struct {
	Now time.Time

	events      []notify.Event
	changes     []stream.Change
	entries     []journal.Entry
	movements   []domain.TransactionKind
	settlements []string
}

func (fx *Effects) Notify(userID, typ string, data map[string]any) {
	if userID == "" {
		return
	}
	fx.events = append(fx.events, notify.Event{Type: typ, UserID: userID, Data: data, At: fx.Now})
}

// Publish snapshots v immediately so later mutations in the same
// transaction do not leak into the published change.
func (fx *Effects) Publish(topic, typ string, v any) {
	c, err := stream.NewChange(topic, typ, v, fx.Now)
	if err != nil {
		return
	}
	fx.changes = append(fx.changes, c)
}

func (fx *Effects) Journal(kind, subject, actor string, amount int64, payload any) {
	fx.entries = append(fx.entries, journal.NewEntry(kind, subject, actor, amount, payload, fx.Now))
}

// Events returns the notifications collected so far.
func (fx *Effects) Events() []notify.Event { return fx.events }
