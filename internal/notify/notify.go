// Package notify delivers fire-and-forget user notifications. Delivery
// failures are reported to the caller but never undo the business operation
// that produced the event.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const (
	AuctionOutbid  = "auction_outbid"
	AuctionWon     = "auction_won"
	LandSold       = "land_sold"
	OfferReceived  = "offer_received"
	OfferCountered = "offer_countered"
	OfferAccepted  = "offer_accepted"
	OfferRejected  = "offer_rejected"
	OfferCancelled = "offer_cancelled"
	OfferExpired   = "offer_expired"
)

type Event struct {
	Type   string         `json:"type"`
	UserID string         `json:"user_id"`
	Data   map[string]any `json:"data,omitempty"`
	At     time.Time      `json:"at"`
}

type Notifier interface {
	Notify(ctx context.Context, e Event) error
}

// Log writes every event to a structured logger.
type Log struct {
	log *slog.Logger
}

func NewLog(log *slog.Logger) *Log {
	if log == nil {
		log = slog.Default()
	}
	return &Log{log: log}
}

func (n *Log) Notify(ctx context.Context, e Event) error {
	n.log.Info("notification", "type", e.Type, "user_id", e.UserID, "data", e.Data)
	return nil
}

const DefaultRedisChannel = "landmarket:notify"

// Redis publishes events as JSON for an external push service.
type Redis struct {
	client  *redis.Client
	channel string
}

func NewRedis(client *redis.Client, channel string) *Redis {
	if channel == "" {
		channel = DefaultRedisChannel
	}
	return &Redis{client: client, channel: channel}
}

func (n *Redis) Notify(ctx context.Context, e Event) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return n.client.Publish(ctx, n.channel, b).Err()
}

// Fanout sends each event to every notifier and joins their errors.
type Fanout []Notifier

func (f Fanout) Notify(ctx context.Context, e Event) error {
	var errs []error
	for _, n := range f {
		if err := n.Notify(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Recorder keeps events in memory. Useful in tests and the dev server.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Notify(ctx context.Context, e Event) error {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
	return nil
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// For returns the recorded events of one type addressed to userID.
func (r *Recorder) For(userID, typ string) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.UserID == userID && e.Type == typ {
			out = append(out, e)
		}
	}
	return out
}
