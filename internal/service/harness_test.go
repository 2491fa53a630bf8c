package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"landmarket/internal/config"
	"landmarket/internal/domain"
	"landmarket/internal/notify"
	"landmarket/internal/repository/memory"
	"landmarket/internal/stream"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type harness struct {
	t      *testing.T
	ctx    context.Context
	clock  *fakeClock
	store  *memory.Store
	rec    *notify.Recorder
	broker *stream.Local
	econ   config.Economy

	run      *Runner
	ledger   *LedgerService
	rewards  *RewardService
	escrow   *EscrowService
	auctions *AuctionService
	offers   *OfferService
	lands    *LandService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWith(t, config.DefaultEconomy())
}

func newHarnessWith(t *testing.T, econ config.Economy) *harness {
	t.Helper()
	h := &harness{
		t:      t,
		ctx:    context.Background(),
		clock:  &fakeClock{t: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)},
		store:  memory.New(),
		rec:    &notify.Recorder{},
		broker: stream.NewLocal(256),
		econ:   econ,
	}
	h.run = NewRunner(h.store,
		WithClock(h.clock.Now),
		WithNotifier(h.rec),
		WithBroker(h.broker),
		WithRetry(50, 0),
	)
	h.ledger = NewLedgerService(h.run)
	h.rewards = NewRewardService(h.run, econ.Rewards)
	h.escrow = NewEscrowService(h.run)
	h.auctions = NewAuctionService(h.run, econ.Auction)
	h.offers = NewOfferService(h.run, econ.Offer)
	h.lands = NewLandService(h.run, econ.Land, econ.LandPrice)
	return h
}

func (h *harness) fund(id string, amount int64) {
	h.t.Helper()
	if _, err := h.ledger.Credit(h.ctx, id, amount, "seed"); err != nil {
		h.t.Fatalf("fund %s: %v", id, err)
	}
}

func (h *harness) balance(id string) int64 {
	h.t.Helper()
	b, err := h.ledger.GetBalance(h.ctx, id)
	if err != nil {
		h.t.Fatalf("balance %s: %v", id, err)
	}
	return b
}

func (h *harness) expectBalance(id string, want int64) {
	h.t.Helper()
	if got := h.balance(id); got != want {
		h.t.Fatalf("balance of %s = %d, want %d", id, got, want)
	}
}

// giveLand funds owner with the land price and buys a base parcel at (x, y).
func (h *harness) giveLand(owner string, x, y int) *domain.LandParcel {
	h.t.Helper()
	h.fund(owner, h.econ.LandPrice)
	p, err := h.lands.PurchaseLand(h.ctx, owner, x, y)
	if err != nil {
		h.t.Fatalf("purchase land for %s: %v", owner, err)
	}
	return p
}

func (h *harness) land(id string) *domain.LandParcel {
	h.t.Helper()
	p, err := h.lands.GetLand(h.ctx, id)
	if err != nil {
		h.t.Fatalf("get land %s: %v", id, err)
	}
	return p
}

func expectErr(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("expected %v, got %v", target, err)
	}
}
