package service

import (
	"context"
	"errors"
	"testing"

	"landmarket/internal/domain"
	"landmarket/internal/notify"
	"landmarket/internal/repository"
	"landmarket/internal/repository/memory"
)

// flakyStore fails the first n commits with a serialization conflict.
type flakyStore struct {
	*memory.Store
	failures int
	calls    int
}

func (s *flakyStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx repository.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.calls++
	if s.calls <= s.failures {
		_ = s.Store.WithTx(ctx, func(ctx context.Context, tx repository.Tx) error {
			return fn(ctx, tx)
		})
		return repository.ErrConflict
	}
	return s.Store.WithTx(ctx, fn)
}

func TestRunner_RetriesConflicts(t *testing.T) {
	store := &flakyStore{Store: memory.New(), failures: 2}
	rec := &notify.Recorder{}
	run := NewRunner(store, WithRetry(5, 0), WithNotifier(rec))

	err := run.Do(context.Background(), "test", func(ctx context.Context, tx repository.Tx, fx *Effects) error {
		fx.Notify("alice", "ping", nil)
		return nil
	})
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	if store.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", store.calls)
	}
	// effects of failed attempts are dropped
	if n := len(rec.Events()); n != 1 {
		t.Fatalf("expected 1 notification, got %d", n)
	}
}

func TestRunner_ContentionAfterMaxAttempts(t *testing.T) {
	store := &flakyStore{Store: memory.New(), failures: 100}
	run := NewRunner(store, WithRetry(3, 0))

	err := run.Do(context.Background(), "test", func(ctx context.Context, tx repository.Tx, fx *Effects) error {
		return nil
	})
	if !errors.Is(err, domain.ErrContention) {
		t.Fatalf("expected contention error, got %v", err)
	}
	if store.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", store.calls)
	}
}

func TestRunner_BusinessErrorsAreNotRetried(t *testing.T) {
	store := &flakyStore{Store: memory.New()}
	run := NewRunner(store, WithRetry(5, 0))

	err := run.Do(context.Background(), "test", func(ctx context.Context, tx repository.Tx, fx *Effects) error {
		return domain.ErrInsufficientFunds
	})
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("unexpected error %v", err)
	}
	if store.calls != 1 {
		t.Fatalf("expected a single attempt, got %d", store.calls)
	}
}

func TestRunner_CancelledContextStopsRetry(t *testing.T) {
	store := &flakyStore{Store: memory.New(), failures: 100}
	run := NewRunner(store, WithRetry(10, 1))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := run.Do(ctx, "test", func(ctx context.Context, tx repository.Tx, fx *Effects) error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
