package service

import (
	"context"
	"fmt"

	"landmarket/internal/domain"
	"landmarket/internal/land"
	"landmarket/internal/repository"
	"landmarket/internal/stream"
)

// LandService claims, expands and merges parcels on the shared canvas.
type LandService struct {
	run   *Runner
	costs land.Costs
	price int64
}

func NewLandService(run *Runner, costs land.Costs, price int64) *LandService {
	return &LandService{run: run, costs: costs, price: price}
}

// Costs returns the cost curves the service charges by.
func (s *LandService) Costs() land.Costs { return s.costs }

// PurchaseLand claims a base-size parcel centered on (x, y).
func (s *LandService) PurchaseLand(ctx context.Context, userID string, x, y int) (*domain.LandParcel, error) {
	if userID == "" {
		return nil, domain.ErrValidation.Withf("user is required")
	}
	var out *domain.LandParcel
	err := s.run.Do(ctx, "land.purchase", func(ctx context.Context, tx repository.Tx, fx *Effects) error {
		id := domain.LandID(x, y)
		if existing, err := tx.GetLand(ctx, id); err != nil {
			return err
		} else if existing != nil {
			return domain.ErrLandOverlap.Withf("land %s already exists", id)
		}
		all, err := tx.ListLands(ctx, "")
		if err != nil {
			return err
		}
		if c := land.FirstConflict(land.BoundsOf(x, y, s.costs.BaseSize), all); c != nil {
			return domain.ErrLandOverlap.Withf("land overlaps parcel %s", c.ID)
		}

		acct, err := ensureAccount(ctx, tx, fx, userID)
		if err != nil {
			return err
		}
		if _, err := debit(ctx, tx, fx, acct, s.price, domain.TxKindPurchase, fmt.Sprintf("land %s purchased", id),
			domain.TransactionMeta{LandID: id}); err != nil {
			return err
		}

		p := &domain.LandParcel{
			ID:        id,
			OwnerID:   userID,
			CenterX:   x,
			CenterY:   y,
			Size:      s.costs.BaseSize,
			CreatedAt: fx.Now,
			UpdatedAt: fx.Now,
		}
		if err := tx.SaveLand(ctx, p); err != nil {
			return err
		}
		fx.Publish(stream.LandTopic(p.ID), "land", p)
		fx.Journal("land.purchase", p.ID, userID, s.price, p)
		out = p
		return nil
	})
	return out, err
}

// ExpansionResult is a grown parcel and what it cost.
type ExpansionResult struct {
	Land *domain.LandParcel `json:"land"`
	Cost int64              `json:"cost"`
}

// RequestLandExpansion grows the parcel by one size increment around its
// center.
func (s *LandService) RequestLandExpansion(ctx context.Context, ownerID, landID string) (*ExpansionResult, error) {
	var out *ExpansionResult
	err := s.run.Do(ctx, "land.expand", func(ctx context.Context, tx repository.Tx, fx *Effects) error {
		p, err := ownedLand(ctx, tx, ownerID, landID)
		if err != nil {
			return err
		}
		if p.IsAuctioned {
			return domain.ErrLandAuctioned
		}
		if !s.costs.CanExpand(p.Size) {
			return domain.ErrValidation.Withf("land is already at the maximum size of %d", s.costs.MaxSize)
		}

		newSize := p.Size + s.costs.SizeIncrease
		all, err := tx.ListLands(ctx, "")
		if err != nil {
			return err
		}
		if c := land.FirstConflict(land.BoundsOf(p.CenterX, p.CenterY, newSize), all, p.ID); c != nil {
			return domain.ErrLandOverlap.Withf("expansion would overlap parcel %s", c.ID)
		}

		cost := s.costs.ExpansionCost(p.Size)
		acct, err := ensureAccount(ctx, tx, fx, ownerID)
		if err != nil {
			return err
		}
		if _, err := debit(ctx, tx, fx, acct, cost, domain.TxKindPurchase, fmt.Sprintf("land %s expanded to %d", p.ID, newSize),
			domain.TransactionMeta{LandID: p.ID}); err != nil {
			return err
		}

		p.Size = newSize
		p.UpdatedAt = fx.Now
		if err := tx.SaveLand(ctx, p); err != nil {
			return err
		}
		fx.Publish(stream.LandTopic(p.ID), "land", p)
		fx.Journal("land.expand", p.ID, ownerID, cost, map[string]int{"size": newSize})
		out = &ExpansionResult{Land: p, Cost: cost}
		return nil
	})
	return out, err
}

// MergeCandidate is a neighbor that can be merged into a parcel.
type MergeCandidate struct {
	Land       *domain.LandParcel `json:"land"`
	Cost       int64              `json:"cost"`
	MergedSize int                `json:"merged_size"`
}

// FindMergeCandidates lists the owner's parcels that can merge with landID.
func (s *LandService) FindMergeCandidates(ctx context.Context, ownerID, landID string) ([]MergeCandidate, error) {
	var out []MergeCandidate
	err := s.run.Do(ctx, "land.merge_candidates", func(ctx context.Context, tx repository.Tx, fx *Effects) error {
		out = nil
		p, err := ownedLand(ctx, tx, ownerID, landID)
		if err != nil {
			return err
		}
		if p.IsAuctioned {
			return nil
		}
		mine, err := tx.ListLands(ctx, ownerID)
		if err != nil {
			return err
		}
		for _, o := range mine {
			if o.ID == p.ID || o.IsAuctioned || o.Size != p.Size || !land.Adjacent(p, o) {
				continue
			}
			_, _, size := land.MergedFootprint(p, o, s.costs.SizeIncrease)
			out = append(out, MergeCandidate{Land: o, Cost: s.costs.MergeCost(p.Size, o.Size), MergedSize: size})
		}
		return nil
	})
	return out, err
}

// MergeResult is the surviving parcel of a merge.
type MergeResult struct {
	Land       *domain.LandParcel `json:"land"`
	AbsorbedID string             `json:"absorbed_id"`
	Cost       int64              `json:"cost"`
}

// MergeLands joins two equal, edge-adjacent parcels of the same owner. The
// first parcel keeps its id and takes the merged footprint; the second is
// removed.
func (s *LandService) MergeLands(ctx context.Context, ownerID, landA, landB string) (*MergeResult, error) {
	if landA == landB {
		return nil, domain.ErrValidation.Withf("cannot merge a parcel with itself")
	}
	var out *MergeResult
	err := s.run.Do(ctx, "land.merge", func(ctx context.Context, tx repository.Tx, fx *Effects) error {
		a, err := ownedLand(ctx, tx, ownerID, landA)
		if err != nil {
			return err
		}
		b, err := ownedLand(ctx, tx, ownerID, landB)
		if err != nil {
			return err
		}
		if a.IsAuctioned || b.IsAuctioned {
			return domain.ErrLandAuctioned
		}
		if a.Size != b.Size {
			return domain.ErrValidation.Withf("only parcels of equal size can merge")
		}
		if !land.Adjacent(a, b) {
			return domain.ErrValidation.Withf("parcels must share a full edge")
		}

		cx, cy, size := land.MergedFootprint(a, b, s.costs.SizeIncrease)
		all, err := tx.ListLands(ctx, "")
		if err != nil {
			return err
		}
		if c := land.FirstConflict(land.BoundsOf(cx, cy, size), all, a.ID, b.ID); c != nil {
			return domain.ErrLandOverlap.Withf("merged land would overlap parcel %s", c.ID)
		}

		cost := s.costs.MergeCost(a.Size, b.Size)
		acct, err := ensureAccount(ctx, tx, fx, ownerID)
		if err != nil {
			return err
		}
		if _, err := debit(ctx, tx, fx, acct, cost, domain.TxKindPurchase, fmt.Sprintf("lands %s and %s merged", a.ID, b.ID),
			domain.TransactionMeta{LandID: a.ID}); err != nil {
			return err
		}

		// offers on the absorbed parcel can no longer be honored
		if err := rejectPendingOffers(ctx, tx, fx, b.ID, ""); err != nil {
			return err
		}
		if err := tx.DeleteLand(ctx, b.ID); err != nil {
			return err
		}
		a.CenterX, a.CenterY, a.Size = cx, cy, size
		a.UpdatedAt = fx.Now
		if err := tx.SaveLand(ctx, a); err != nil {
			return err
		}

		fx.Publish(stream.LandTopic(a.ID), "land", a)
		fx.Publish(stream.LandTopic(b.ID), "land_deleted", map[string]string{"id": b.ID, "merged_into": a.ID})
		fx.Journal("land.merge", a.ID, ownerID, cost, map[string]any{"absorbed": b.ID, "size": size})
		out = &MergeResult{Land: a, AbsorbedID: b.ID, Cost: cost}
		return nil
	})
	return out, err
}

func (s *LandService) GetLand(ctx context.Context, landID string) (*domain.LandParcel, error) {
	var out *domain.LandParcel
	err := s.run.Do(ctx, "land.get", func(ctx context.Context, tx repository.Tx, fx *Effects) error {
		p, err := tx.GetLand(ctx, landID)
		if err != nil {
			return err
		}
		if p == nil {
			return repository.NotFound("land", landID)
		}
		out = p
		return nil
	})
	return out, err
}

// ListLands returns the owner's parcels, or every parcel for an empty owner.
func (s *LandService) ListLands(ctx context.Context, ownerID string) ([]*domain.LandParcel, error) {
	var out []*domain.LandParcel
	err := s.run.Do(ctx, "land.list", func(ctx context.Context, tx repository.Tx, fx *Effects) error {
		var err error
		out, err = tx.ListLands(ctx, ownerID)
		return err
	})
	return out, err
}

func ownedLand(ctx context.Context, tx repository.Tx, ownerID, landID string) (*domain.LandParcel, error) {
	p, err := tx.GetLand(ctx, landID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, repository.NotFound("land", landID)
	}
	if p.OwnerID != ownerID {
		return nil, domain.ErrNotAuthorized.Withf("you do not own land %s", landID)
	}
	return p, nil
}
