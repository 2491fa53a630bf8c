package service

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"landmarket/internal/domain"
	"landmarket/internal/notify"
)

func (h *harness) offer(buyer, landID string, amount int64) *domain.Offer {
	h.t.Helper()
	o, err := h.offers.CreateOffer(h.ctx, CreateOfferInput{BuyerID: buyer, LandID: landID, Amount: amount})
	if err != nil {
		h.t.Fatalf("create offer: %v", err)
	}
	return o
}

func (h *harness) offerStatus(id string) domain.OfferStatus {
	h.t.Helper()
	o, err := h.offers.GetOffer(h.ctx, id, "")
	if err != nil {
		h.t.Fatalf("get offer: %v", err)
	}
	return o.Status
}

func TestOffer_CreateLocksFunds(t *testing.T) {
	h := newHarness(t)
	h.giveLand("seller", 0, 0)
	h.fund("buyer", 500)

	o := h.offer("buyer", "0_0", 300)
	if o.Status != domain.OfferStatusPending || o.ToUserID != "seller" {
		t.Fatalf("unexpected offer %+v", o)
	}
	if want := h.clock.Now().Add(48 * time.Hour); !o.ExpiresAt.Equal(want) {
		t.Fatalf("expires at %v, want %v", o.ExpiresAt, want)
	}
	h.expectBalance("buyer", 200)
	if len(h.rec.For("seller", notify.OfferReceived)) != 1 {
		t.Fatal("owner was not notified")
	}
}

func TestOffer_CreateRules(t *testing.T) {
	h := newHarness(t)
	h.giveLand("seller", 0, 0)
	h.fund("buyer", 500)
	h.offer("buyer", "0_0", 100)

	tests := []struct {
		name string
		in   CreateOfferInput
		want error
	}{
		{"duplicate", CreateOfferInput{BuyerID: "buyer", LandID: "0_0", Amount: 50}, domain.ErrDuplicateOffer},
		{"own land", CreateOfferInput{BuyerID: "seller", LandID: "0_0", Amount: 50}, domain.ErrValidation},
		{"missing land", CreateOfferInput{BuyerID: "buyer", LandID: "7_7", Amount: 50}, domain.ErrNotFound},
		{"zero amount", CreateOfferInput{BuyerID: "other", LandID: "0_0"}, domain.ErrInvalidAmount},
		{"insufficient", CreateOfferInput{BuyerID: "other", LandID: "0_0", Amount: 50}, domain.ErrInsufficientFunds},
		{"long message", CreateOfferInput{BuyerID: "other", LandID: "0_0", Amount: 1, Message: strings.Repeat("x", 501)}, domain.ErrValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := h.offers.CreateOffer(h.ctx, tt.in)
			expectErr(t, err, tt.want)
		})
	}
	h.expectBalance("buyer", 400)
}

func TestOffer_AcceptSettlesAndRejectsOthers(t *testing.T) {
	h := newHarness(t)
	h.giveLand("seller", 0, 0)
	h.fund("b1", 500)
	h.fund("b2", 500)

	winner := h.offer("b1", "0_0", 300)
	loser := h.offer("b2", "0_0", 200)

	got, err := h.offers.RespondToOffer(h.ctx, winner.ID, "seller", true)
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if got.Status != domain.OfferStatusAccepted || got.RespondedAt == nil {
		t.Fatalf("unexpected offer %+v", got)
	}
	if p := h.land("0_0"); p.OwnerID != "b1" {
		t.Fatalf("owner = %s", p.OwnerID)
	}
	h.expectBalance("seller", 300)
	h.expectBalance("b1", 200)
	h.expectBalance("b2", 500)
	if s := h.offerStatus(loser.ID); s != domain.OfferStatusRejected {
		t.Fatalf("other offer is %s", s)
	}
	if len(h.rec.For("b1", notify.OfferAccepted)) != 1 || len(h.rec.For("b2", notify.OfferRejected)) != 1 {
		t.Fatalf("missing notifications: %+v", h.rec.Events())
	}

	// the rejection came from the previous owner, so b2 may bid to the new one
	if _, err := h.offers.CreateOffer(h.ctx, CreateOfferInput{BuyerID: "b2", LandID: "0_0", Amount: 350}); err != nil {
		t.Fatalf("offer to new owner: %v", err)
	}
}

func TestOffer_RejectStartsCooldown(t *testing.T) {
	h := newHarness(t)
	h.giveLand("seller", 0, 0)
	h.fund("buyer", 500)
	o := h.offer("buyer", "0_0", 300)

	if _, err := h.offers.RespondToOffer(h.ctx, o.ID, "seller", false); err != nil {
		t.Fatalf("reject: %v", err)
	}
	h.expectBalance("buyer", 500)

	_, err := h.offers.CreateOffer(h.ctx, CreateOfferInput{BuyerID: "buyer", LandID: "0_0", Amount: 350})
	expectErr(t, err, domain.ErrOfferCooldown)

	h.clock.Advance(31 * time.Minute)
	if _, err := h.offers.CreateOffer(h.ctx, CreateOfferInput{BuyerID: "buyer", LandID: "0_0", Amount: 350}); err != nil {
		t.Fatalf("offer after cooldown: %v", err)
	}
}

func TestOffer_DailyCap(t *testing.T) {
	h := newHarness(t)
	h.fund("buyer", 1000)
	for i := 0; i < 11; i++ {
		h.giveLand(fmt.Sprintf("seller%d", i), i*51, 0)
	}

	for i := 0; i < 10; i++ {
		h.offer("buyer", domain.LandID(i*51, 0), 10)
	}
	_, err := h.offers.CreateOffer(h.ctx, CreateOfferInput{BuyerID: "buyer", LandID: domain.LandID(10*51, 0), Amount: 10})
	expectErr(t, err, domain.ErrOfferDailyCap)

	h.clock.Advance(24*time.Hour + time.Minute)
	if _, err := h.offers.CreateOffer(h.ctx, CreateOfferInput{BuyerID: "buyer", LandID: domain.LandID(10*51, 0), Amount: 10}); err != nil {
		t.Fatalf("offer after window: %v", err)
	}
}

func TestOffer_OnlyAddresseeResponds(t *testing.T) {
	h := newHarness(t)
	h.giveLand("seller", 0, 0)
	h.fund("buyer", 500)
	o := h.offer("buyer", "0_0", 300)

	_, err := h.offers.RespondToOffer(h.ctx, o.ID, "buyer", true)
	expectErr(t, err, domain.ErrNotAuthorized)
	_, err = h.offers.CreateCounterOffer(h.ctx, o.ID, "stranger", 100, "")
	expectErr(t, err, domain.ErrNotAuthorized)
	_, err = h.offers.GetOffer(h.ctx, o.ID, "stranger")
	expectErr(t, err, domain.ErrNotAuthorized)
}

func TestOffer_CounterOffer(t *testing.T) {
	tests := []struct {
		name       string
		counter    int64
		wantBuyer  int64
		wantSeller int64
		// signed adjustment to the escrow posted before settling
		wantAdjust int64
	}{
		{"lower", 250, 250, 250, 50},
		{"higher", 400, 100, 400, -100},
		{"same", 300, 200, 300, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.giveLand("seller", 0, 0)
			h.fund("buyer", 500)
			o := h.offer("buyer", "0_0", 300)

			co, err := h.offers.CreateCounterOffer(h.ctx, o.ID, "seller", tt.counter, "how about this")
			if err != nil {
				t.Fatalf("counter: %v", err)
			}
			if co.CounterOffer == nil || co.CounterOffer.Amount != tt.counter || co.Status != domain.OfferStatusPending {
				t.Fatalf("unexpected offer %+v", co)
			}
			if len(h.rec.For("buyer", notify.OfferCountered)) != 1 {
				t.Fatal("buyer was not notified of the counter")
			}

			_, err = h.offers.AcceptCounterOffer(h.ctx, o.ID, "seller")
			expectErr(t, err, domain.ErrNotAuthorized)

			got, err := h.offers.AcceptCounterOffer(h.ctx, o.ID, "buyer")
			if err != nil {
				t.Fatalf("accept counter: %v", err)
			}
			if got.Status != domain.OfferStatusAccepted {
				t.Fatalf("status = %s", got.Status)
			}
			h.expectBalance("buyer", tt.wantBuyer)
			h.expectBalance("seller", tt.wantSeller)
			if p := h.land("0_0"); p.OwnerID != "buyer" {
				t.Fatalf("owner = %s", p.OwnerID)
			}

			hist, err := h.ledger.History(h.ctx, "buyer", 0)
			if err != nil {
				t.Fatal(err)
			}
			var adjust []*domain.Transaction
			for _, tx := range hist {
				if tx.Meta.OfferID == o.ID && tx.Meta.LockID == o.LockID {
					adjust = append(adjust, tx)
				}
			}
			if tt.wantAdjust == 0 {
				if len(adjust) != 0 {
					t.Fatalf("unexpected escrow adjustment %+v", adjust[0])
				}
				return
			}
			if len(adjust) != 1 || adjust[0].Amount != tt.wantAdjust {
				t.Fatalf("want one escrow adjustment of %d, got %+v", tt.wantAdjust, adjust)
			}
			if tt.wantAdjust > 0 && !strings.HasPrefix(adjust[0].Description, "refund:") {
				t.Fatalf("difference not recorded as a refund: %q", adjust[0].Description)
			}
			for _, tx := range hist {
				if tx.Meta.LockID == o.LockID && strings.HasPrefix(tx.Description, "funds released") {
					t.Fatalf("escrow was released instead of consumed: %+v", tx)
				}
			}
		})
	}
}

func TestOffer_CounterAboveBalanceFails(t *testing.T) {
	h := newHarness(t)
	h.giveLand("seller", 0, 0)
	h.fund("buyer", 500)
	o := h.offer("buyer", "0_0", 300)

	if _, err := h.offers.CreateCounterOffer(h.ctx, o.ID, "seller", 900, ""); err != nil {
		t.Fatal(err)
	}
	_, err := h.offers.AcceptCounterOffer(h.ctx, o.ID, "buyer")
	expectErr(t, err, domain.ErrInsufficientFunds)

	// the failed accept rolled back, the original escrow is still held
	h.expectBalance("buyer", 200)
	if s := h.offerStatus(o.ID); s != domain.OfferStatusPending {
		t.Fatalf("status = %s", s)
	}
}

func TestOffer_AcceptWithoutCounter(t *testing.T) {
	h := newHarness(t)
	h.giveLand("seller", 0, 0)
	h.fund("buyer", 500)
	o := h.offer("buyer", "0_0", 300)

	_, err := h.offers.AcceptCounterOffer(h.ctx, o.ID, "buyer")
	expectErr(t, err, domain.ErrValidation)
}

func TestOffer_Cancel(t *testing.T) {
	h := newHarness(t)
	h.giveLand("seller", 0, 0)
	h.fund("buyer", 500)
	o := h.offer("buyer", "0_0", 300)

	_, err := h.offers.CancelOffer(h.ctx, o.ID, "seller")
	expectErr(t, err, domain.ErrNotAuthorized)

	got, err := h.offers.CancelOffer(h.ctx, o.ID, "buyer")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got.Status != domain.OfferStatusCancelled {
		t.Fatalf("status = %s", got.Status)
	}
	h.expectBalance("buyer", 500)

	_, err = h.offers.CancelOffer(h.ctx, o.ID, "buyer")
	expectErr(t, err, domain.ErrOfferNotPending)
	_, err = h.offers.RespondToOffer(h.ctx, o.ID, "seller", true)
	expectErr(t, err, domain.ErrOfferNotPending)
}

func TestOffer_RespondAfterExpiry(t *testing.T) {
	h := newHarness(t)
	h.giveLand("seller", 0, 0)
	h.fund("buyer", 500)
	o := h.offer("buyer", "0_0", 300)

	h.clock.Advance(48 * time.Hour)
	_, err := h.offers.RespondToOffer(h.ctx, o.ID, "seller", true)
	expectErr(t, err, domain.ErrExpired)

	if s := h.offerStatus(o.ID); s != domain.OfferStatusExpired {
		t.Fatalf("status = %s, want expired", s)
	}
	h.expectBalance("buyer", 500)
	if p := h.land("0_0"); p.OwnerID != "seller" {
		t.Fatalf("expired offer transferred land to %s", p.OwnerID)
	}
}

func TestOffer_CleanupExpired(t *testing.T) {
	h := newHarness(t)
	h.giveLand("s1", 0, 0)
	h.giveLand("s2", 51, 0)
	h.fund("buyer", 500)
	h.offer("buyer", "0_0", 100)
	h.offer("buyer", "51_0", 100)

	n, err := h.offers.CleanupExpiredOffers(h.ctx)
	if err != nil || n != 0 {
		t.Fatalf("early cleanup: n=%d err=%v", n, err)
	}

	h.clock.Advance(49 * time.Hour)
	n, err = h.offers.CleanupExpiredOffers(h.ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("expired %d offers, want 2", n)
	}
	h.expectBalance("buyer", 500)
	if len(h.rec.For("buyer", notify.OfferExpired)) != 2 {
		t.Fatal("buyer was not notified")
	}

	n, err = h.offers.CleanupExpiredOffers(h.ctx)
	if err != nil || n != 0 {
		t.Fatalf("second cleanup: n=%d err=%v", n, err)
	}
}

func TestOffer_ListForUser(t *testing.T) {
	h := newHarness(t)
	h.giveLand("seller", 0, 0)
	h.giveLand("seller", 51, 0)
	h.fund("buyer", 500)
	first := h.offer("buyer", "0_0", 100)
	h.clock.Advance(time.Minute)
	second := h.offer("buyer", "51_0", 100)
	if _, err := h.offers.CancelOffer(h.ctx, first.ID, "buyer"); err != nil {
		t.Fatal(err)
	}

	sent, err := h.offers.ListOffersForUser(h.ctx, "buyer", domain.OfferDirectionSent, nil, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(sent) != 2 || sent[0].ID != second.ID {
		t.Fatalf("unexpected sent list %+v", sent)
	}

	pending, err := h.offers.ListOffersForUser(h.ctx, "seller", domain.OfferDirectionReceived,
		[]domain.OfferStatus{domain.OfferStatusPending}, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].ID != second.ID {
		t.Fatalf("unexpected received list %+v", pending)
	}

	_, err = h.offers.ListOffersForUser(h.ctx, "buyer", "sideways", nil, 0)
	expectErr(t, err, domain.ErrValidation)
}
