package service

import (
	"testing"

	"landmarket/internal/domain"
)

func TestEscrow_LockAndRelease(t *testing.T) {
	h := newHarness(t)
	h.fund("alice", 100)

	l, err := h.escrow.LockFunds(h.ctx, "alice", 40, "")
	if err != nil {
		t.Fatalf("lock: %v", err)
	}
	if l.Status != domain.LockStatusLocked || l.Purpose != domain.LockPurposeManual {
		t.Fatalf("unexpected lock %+v", l)
	}
	h.expectBalance("alice", 60)

	if _, err := h.escrow.ReleaseFunds(h.ctx, "alice", l.ID); err != nil {
		t.Fatalf("release: %v", err)
	}
	h.expectBalance("alice", 100)

	_, err = h.escrow.ReleaseFunds(h.ctx, "alice", l.ID)
	expectErr(t, err, domain.ErrLockNotHeld)
	h.expectBalance("alice", 100)
}

func TestEscrow_LockRequiresFunds(t *testing.T) {
	h := newHarness(t)
	h.fund("alice", 10)

	_, err := h.escrow.LockFunds(h.ctx, "alice", 11, "")
	expectErr(t, err, domain.ErrInsufficientFunds)
	h.expectBalance("alice", 10)
}

func TestEscrow_TransferConsumesLock(t *testing.T) {
	h := newHarness(t)
	h.fund("alice", 100)
	l, err := h.escrow.LockFunds(h.ctx, "alice", 25, "")
	if err != nil {
		t.Fatal(err)
	}

	tr, err := h.escrow.TransferFunds(h.ctx, "alice", l.ID, "bob", "payment")
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if tr.Amount != 25 || tr.Meta.CounterpartyID != "alice" || tr.Meta.LockID != l.ID {
		t.Fatalf("unexpected transaction %+v", tr)
	}
	h.expectBalance("alice", 75)
	h.expectBalance("bob", 25)

	got, err := h.escrow.GetLock(h.ctx, "alice", l.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.LockStatusUsed {
		t.Fatalf("lock status = %s, want used", got.Status)
	}

	_, err = h.escrow.TransferFunds(h.ctx, "alice", l.ID, "bob", "again")
	expectErr(t, err, domain.ErrLockNotHeld)
	h.expectBalance("bob", 25)
}

func TestEscrow_OnlyOwnerMovesLock(t *testing.T) {
	h := newHarness(t)
	h.fund("alice", 100)
	l, err := h.escrow.LockFunds(h.ctx, "alice", 50, "")
	if err != nil {
		t.Fatal(err)
	}

	_, err = h.escrow.ReleaseFunds(h.ctx, "mallory", l.ID)
	expectErr(t, err, domain.ErrNotAuthorized)
	_, err = h.escrow.TransferFunds(h.ctx, "mallory", l.ID, "mallory", "steal")
	expectErr(t, err, domain.ErrNotAuthorized)
	_, err = h.escrow.GetLock(h.ctx, "mallory", l.ID)
	expectErr(t, err, domain.ErrNotAuthorized)

	h.expectBalance("mallory", 0)
	h.expectBalance("alice", 50)
}

func TestEscrow_MarketLocksAreNotManual(t *testing.T) {
	h := newHarness(t)
	h.giveLand("seller", 0, 0)
	h.fund("buyer", 500)

	o, err := h.offers.CreateOffer(h.ctx, CreateOfferInput{BuyerID: "buyer", LandID: "0_0", Amount: 300})
	if err != nil {
		t.Fatal(err)
	}
	_, err = h.escrow.ReleaseFunds(h.ctx, "buyer", o.LockID)
	expectErr(t, err, domain.ErrNotAuthorized)
	h.expectBalance("buyer", 200)
}

func TestEscrow_UnknownLock(t *testing.T) {
	h := newHarness(t)
	_, err := h.escrow.ReleaseFunds(h.ctx, "alice", "missing")
	expectErr(t, err, domain.ErrNotFound)
}
