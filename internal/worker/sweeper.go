// Package worker runs the periodic marketplace sweeps: ending and starting
// auctions, and expiring stale offers.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"landmarket/internal/service"

	"github.com/google/uuid"
	redis "github.com/redis/go-redis/v9"
)

const DefaultLeaseKey = "landmarket:sweep:lease"

type AuctionSweeper interface {
	ProcessAuctionEnd(ctx context.Context) (*service.AuctionSweepResult, error)
}

type OfferSweeper interface {
	CleanupExpiredOffers(ctx context.Context) (int, error)
}

// Result is what one sweep pass changed.
type Result struct {
	Auctions      *service.AuctionSweepResult `json:"auctions"`
	OffersExpired int                         `json:"offers_expired"`
	Skipped       bool                        `json:"skipped,omitempty"`
}

// Sweeper runs both sweeps on a ticker. With a Redis lease configured only
// the instance holding the lease sweeps in a given interval; the sweeps are
// idempotent, so the lease only saves work.
type Sweeper struct {
	auctions AuctionSweeper
	offers   OfferSweeper
	interval time.Duration

	redis    *redis.Client
	leaseKey string
	owner    string

	log *slog.Logger
}

type Option func(*Sweeper)

// WithLease takes a Redis SET NX lease before each tick.
func WithLease(client *redis.Client, key string) Option {
	return func(s *Sweeper) {
		s.redis = client
		if key != "" {
			s.leaseKey = key
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Sweeper) { s.log = l }
}

func New(auctions AuctionSweeper, offers OfferSweeper, interval time.Duration, opts ...Option) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	s := &Sweeper{
		auctions: auctions,
		offers:   offers,
		interval: interval,
		leaseKey: DefaultLeaseKey,
		owner:    uuid.NewString(),
		log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run sweeps once immediately and then every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) error {
	s.log.Info("sweeper started", "interval", s.interval)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		s.tick(ctx)
		select {
		case <-ctx.Done():
			s.log.Info("sweeper stopped")
			return nil
		case <-ticker.C:
		}
	}
}

func (s *Sweeper) tick(ctx context.Context) {
	ok, err := s.acquire(ctx)
	if err != nil {
		// sweeping twice is harmless, missing a sweep is not
		s.log.Warn("sweep lease unavailable, sweeping anyway", "error", err)
	} else if !ok {
		s.log.Debug("sweep lease held by another instance")
		return
	}
	res, err := s.RunOnce(ctx)
	if err != nil {
		if !errors.Is(err, context.Canceled) {
			s.log.Error("sweep failed", "error", err)
		}
		return
	}
	if res.Auctions.Activated+res.Auctions.Ended+res.Auctions.Failed+res.OffersExpired > 0 {
		s.log.Info("sweep done",
			"auctions_activated", res.Auctions.Activated,
			"auctions_ended", res.Auctions.Ended,
			"auctions_failed", res.Auctions.Failed,
			"offers_expired", res.OffersExpired,
		)
	}
}

// RunOnce runs both sweeps without taking the lease.
func (s *Sweeper) RunOnce(ctx context.Context) (*Result, error) {
	ar, err := s.auctions.ProcessAuctionEnd(ctx)
	if err != nil {
		return nil, err
	}
	n, err := s.offers.CleanupExpiredOffers(ctx)
	if err != nil {
		return nil, err
	}
	return &Result{Auctions: ar, OffersExpired: n}, nil
}

func (s *Sweeper) acquire(ctx context.Context) (bool, error) {
	if s.redis == nil {
		return true, nil
	}
	// the lease lapses on its own just before the next tick
	ttl := s.interval - s.interval/10
	return s.redis.SetNX(ctx, s.leaseKey, s.owner, ttl).Result()
}
