package memory

import (
	"context"
	"sort"

	"landmarket/internal/domain"
	"landmarket/internal/repository"
)

func (t *memTx) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	v, ok := t.get(tblAccounts, id)
	if !ok {
		return nil, nil
	}
	return v.(*domain.Account), nil
}

func (t *memTx) SaveAccount(ctx context.Context, a *domain.Account) error {
	a.Version++
	t.put(tblAccounts, a.ID, a)
	return nil
}

func (t *memTx) InsertTransaction(ctx context.Context, tr *domain.Transaction) error {
	t.put(tblTransactions, tr.ID, tr)
	return nil
}

func (t *memTx) ListTransactions(ctx context.Context, accountID string, limit int) ([]*domain.Transaction, error) {
	rows := t.scan(tblTransactions, func(v any) bool {
		return v.(*domain.Transaction).AccountID == accountID
	})
	out := make([]*domain.Transaction, 0, len(rows))
	// newest first
	for i := len(rows) - 1; i >= 0; i-- {
		out = append(out, rows[i].(*domain.Transaction))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (t *memTx) GetReward(ctx context.Context, key string) (*domain.Reward, error) {
	v, ok := t.get(tblRewards, key)
	if !ok {
		return nil, nil
	}
	return v.(*domain.Reward), nil
}

func (t *memTx) SaveReward(ctx context.Context, r *domain.Reward) error {
	t.put(tblRewards, r.Key, r)
	return nil
}

func (t *memTx) GetLock(ctx context.Context, id string) (*domain.Lock, error) {
	v, ok := t.get(tblLocks, id)
	if !ok {
		return nil, nil
	}
	return v.(*domain.Lock), nil
}

func (t *memTx) SaveLock(ctx context.Context, l *domain.Lock) error {
	t.put(tblLocks, l.ID, l)
	return nil
}

func (t *memTx) GetLand(ctx context.Context, id string) (*domain.LandParcel, error) {
	v, ok := t.get(tblLands, id)
	if !ok {
		return nil, nil
	}
	return v.(*domain.LandParcel), nil
}

func (t *memTx) SaveLand(ctx context.Context, p *domain.LandParcel) error {
	p.Version++
	t.put(tblLands, p.ID, p)
	return nil
}

func (t *memTx) DeleteLand(ctx context.Context, id string) error {
	// register the read so a concurrent change to the row aborts the delete
	t.get(tblLands, id)
	t.del(tblLands, id)
	return nil
}

func (t *memTx) ListLands(ctx context.Context, ownerID string) ([]*domain.LandParcel, error) {
	rows := t.scan(tblLands, func(v any) bool {
		return ownerID == "" || v.(*domain.LandParcel).OwnerID == ownerID
	})
	out := make([]*domain.LandParcel, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.(*domain.LandParcel))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (t *memTx) GetAuction(ctx context.Context, id string) (*domain.Auction, error) {
	v, ok := t.get(tblAuctions, id)
	if !ok {
		return nil, nil
	}
	return v.(*domain.Auction), nil
}

func (t *memTx) SaveAuction(ctx context.Context, a *domain.Auction) error {
	a.Version++
	t.put(tblAuctions, a.ID, a)
	return nil
}

func (t *memTx) ListAuctions(ctx context.Context, f repository.AuctionFilter) ([]*domain.Auction, error) {
	rows := t.scan(tblAuctions, func(v any) bool {
		return f.MatchAuction(v.(*domain.Auction))
	})
	out := make([]*domain.Auction, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.(*domain.Auction))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].EndTime.Before(out[j].EndTime) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (t *memTx) GetOffer(ctx context.Context, id string) (*domain.Offer, error) {
	v, ok := t.get(tblOffers, id)
	if !ok {
		return nil, nil
	}
	return v.(*domain.Offer), nil
}

func (t *memTx) SaveOffer(ctx context.Context, o *domain.Offer) error {
	o.Version++
	t.put(tblOffers, o.ID, o)
	return nil
}

func (t *memTx) ListOffers(ctx context.Context, f repository.OfferFilter) ([]*domain.Offer, error) {
	rows := t.scan(tblOffers, func(v any) bool {
		return f.MatchOffer(v.(*domain.Offer))
	})
	out := make([]*domain.Offer, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.(*domain.Offer))
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}
