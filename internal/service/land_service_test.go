package service

import (
	"testing"

	"landmarket/internal/config"
	"landmarket/internal/domain"
)

func TestLand_PurchaseRejectsOverlap(t *testing.T) {
	h := newHarness(t)
	h.giveLand("alice", 0, 0)

	h.fund("bob", 3000)
	_, err := h.lands.PurchaseLand(h.ctx, "bob", 0, 0)
	expectErr(t, err, domain.ErrLandOverlap)
	_, err = h.lands.PurchaseLand(h.ctx, "bob", 50, 0)
	expectErr(t, err, domain.ErrLandOverlap)
	h.expectBalance("bob", 3000)

	p, err := h.lands.PurchaseLand(h.ctx, "bob", 51, 0)
	if err != nil {
		t.Fatalf("adjacent purchase: %v", err)
	}
	if p.ID != "51_0" || p.Size != 51 || p.OwnerID != "bob" {
		t.Fatalf("unexpected parcel %+v", p)
	}
	h.expectBalance("bob", 2000)
}

func TestLand_PurchaseRequiresFunds(t *testing.T) {
	h := newHarness(t)
	h.fund("alice", 999)
	_, err := h.lands.PurchaseLand(h.ctx, "alice", 0, 0)
	expectErr(t, err, domain.ErrInsufficientFunds)

	lands, err := h.lands.ListLands(h.ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if len(lands) != 0 {
		t.Fatalf("failed purchase left %d parcels", len(lands))
	}
}

func TestLand_ExpansionCostsInflate(t *testing.T) {
	h := newHarness(t)
	h.giveLand("alice", 0, 0)
	h.fund("alice", 1250)

	first, err := h.lands.RequestLandExpansion(h.ctx, "alice", "0_0")
	if err != nil {
		t.Fatalf("first expansion: %v", err)
	}
	if first.Cost != 500 || first.Land.Size != 61 {
		t.Fatalf("unexpected first expansion %+v", first)
	}
	second, err := h.lands.RequestLandExpansion(h.ctx, "alice", "0_0")
	if err != nil {
		t.Fatalf("second expansion: %v", err)
	}
	if second.Cost != 750 || second.Land.Size != 71 {
		t.Fatalf("unexpected second expansion cost=%d size=%d", second.Cost, second.Land.Size)
	}
	h.expectBalance("alice", 0)
}

func TestLand_ExpansionBlockedByNeighbor(t *testing.T) {
	h := newHarness(t)
	h.giveLand("alice", 0, 0)
	h.giveLand("bob", 51, 0)
	h.fund("alice", 500)

	_, err := h.lands.RequestLandExpansion(h.ctx, "alice", "0_0")
	expectErr(t, err, domain.ErrLandOverlap)
	h.expectBalance("alice", 500)
	if p := h.land("0_0"); p.Size != 51 {
		t.Fatalf("size changed to %d", p.Size)
	}
}

func TestLand_ExpansionStopsAtMaxSize(t *testing.T) {
	econ := config.DefaultEconomy()
	econ.Land.MaxSize = 61
	h := newHarnessWith(t, econ)
	h.giveLand("alice", 0, 0)
	h.fund("alice", 5000)

	if _, err := h.lands.RequestLandExpansion(h.ctx, "alice", "0_0"); err != nil {
		t.Fatalf("expansion: %v", err)
	}
	_, err := h.lands.RequestLandExpansion(h.ctx, "alice", "0_0")
	expectErr(t, err, domain.ErrValidation)
	h.expectBalance("alice", 4500)
}

func TestLand_OnlyOwnerExpands(t *testing.T) {
	h := newHarness(t)
	h.giveLand("alice", 0, 0)
	h.fund("bob", 1000)
	_, err := h.lands.RequestLandExpansion(h.ctx, "bob", "0_0")
	expectErr(t, err, domain.ErrNotAuthorized)
}

func TestLand_MergeCandidates(t *testing.T) {
	h := newHarness(t)
	h.giveLand("alice", 0, 0)
	h.giveLand("alice", 51, 0)
	h.giveLand("alice", 51, 51) // corner only
	h.giveLand("bob", 0, 51)    // adjacent but not alice's

	cands, err := h.lands.FindMergeCandidates(h.ctx, "alice", "0_0")
	if err != nil {
		t.Fatal(err)
	}
	if len(cands) != 1 {
		t.Fatalf("expected 1 candidate, got %d", len(cands))
	}
	if cands[0].Land.ID != "51_0" || cands[0].Cost != 2409 || cands[0].MergedSize != 103 {
		t.Fatalf("unexpected candidate id=%s cost=%d size=%d", cands[0].Land.ID, cands[0].Cost, cands[0].MergedSize)
	}
}

func TestLand_Merge(t *testing.T) {
	h := newHarness(t)
	h.giveLand("alice", 0, 0)
	h.giveLand("alice", 51, 0)
	h.fund("alice", 2409)

	h.fund("buyer", 300)
	o, err := h.offers.CreateOffer(h.ctx, CreateOfferInput{BuyerID: "buyer", LandID: "51_0", Amount: 300})
	if err != nil {
		t.Fatal(err)
	}

	res, err := h.lands.MergeLands(h.ctx, "alice", "0_0", "51_0")
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if res.Land.ID != "0_0" || res.AbsorbedID != "51_0" || res.Cost != 2409 {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.Land.CenterX != 25 || res.Land.CenterY != 0 || res.Land.Size != 103 {
		t.Fatalf("unexpected footprint center=(%d,%d) size=%d", res.Land.CenterX, res.Land.CenterY, res.Land.Size)
	}
	h.expectBalance("alice", 0)

	// the survivor is still addressed by its purchase id, not its new center
	if p := h.land("0_0"); p.CenterX != 25 || p.Size != 103 {
		t.Fatalf("stored parcel not updated: %+v", p)
	}
	_, err = h.lands.GetLand(h.ctx, domain.LandID(res.Land.CenterX, res.Land.CenterY))
	expectErr(t, err, domain.ErrNotFound)

	_, err = h.lands.GetLand(h.ctx, "51_0")
	expectErr(t, err, domain.ErrNotFound)

	got, err := h.offers.GetOffer(h.ctx, o.ID, "")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.OfferStatusRejected {
		t.Fatalf("offer on absorbed land is %s", got.Status)
	}
	h.expectBalance("buyer", 300)
}

func TestLand_MergeRules(t *testing.T) {
	h := newHarness(t)
	h.giveLand("alice", 0, 0)
	h.giveLand("alice", 51, 51)
	h.giveLand("alice", 51, 0)
	h.giveLand("bob", 0, 51)
	h.fund("alice", 10000)

	_, err := h.lands.MergeLands(h.ctx, "alice", "0_0", "51_51")
	expectErr(t, err, domain.ErrValidation)

	_, err = h.lands.MergeLands(h.ctx, "alice", "0_0", "0_51")
	expectErr(t, err, domain.ErrNotAuthorized)

	_, err = h.lands.MergeLands(h.ctx, "alice", "0_0", "0_0")
	expectErr(t, err, domain.ErrValidation)

	// the merged square would cover bob's parcel at (0, 51)
	_, err = h.lands.MergeLands(h.ctx, "alice", "0_0", "51_0")
	expectErr(t, err, domain.ErrLandOverlap)
	h.expectBalance("alice", 10000)
}
