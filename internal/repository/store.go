package repository

import (
	"context"
	"errors"
	"time"

	"landmarket/internal/domain"
)

// ErrConflict is returned by Store.WithTx when the transaction could not be
// committed because data it read was changed concurrently. The whole
// operation may be retried.
var ErrConflict = errors.New("repository: serialization conflict")

// Store runs serializable transactions over the marketplace records.
type Store interface {
	// WithTx runs fn inside one transaction. A nil return commits; any error
	// rolls back and is returned (ErrConflict when the commit lost a race).
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	Ping(ctx context.Context) error
	Close()
}

// Tx is the record-level view of a running transaction. Getters return
// (nil, nil) when the record does not exist. Returned values are copies;
// changes are persisted only through the matching Save method.
type Tx interface {
	GetAccount(ctx context.Context, id string) (*domain.Account, error)
	SaveAccount(ctx context.Context, a *domain.Account) error

	InsertTransaction(ctx context.Context, t *domain.Transaction) error
	ListTransactions(ctx context.Context, accountID string, limit int) ([]*domain.Transaction, error)

	GetReward(ctx context.Context, key string) (*domain.Reward, error)
	SaveReward(ctx context.Context, r *domain.Reward) error

	GetLock(ctx context.Context, id string) (*domain.Lock, error)
	SaveLock(ctx context.Context, l *domain.Lock) error

	GetLand(ctx context.Context, id string) (*domain.LandParcel, error)
	SaveLand(ctx context.Context, p *domain.LandParcel) error
	DeleteLand(ctx context.Context, id string) error
	ListLands(ctx context.Context, ownerID string) ([]*domain.LandParcel, error)

	GetAuction(ctx context.Context, id string) (*domain.Auction, error)
	SaveAuction(ctx context.Context, a *domain.Auction) error
	ListAuctions(ctx context.Context, f AuctionFilter) ([]*domain.Auction, error)

	GetOffer(ctx context.Context, id string) (*domain.Offer, error)
	SaveOffer(ctx context.Context, o *domain.Offer) error
	ListOffers(ctx context.Context, f OfferFilter) ([]*domain.Offer, error)
}

// AuctionFilter selects auctions. Zero fields do not filter.
type AuctionFilter struct {
	LandID       string
	Statuses     []domain.AuctionStatus
	EndsBefore   time.Time
	StartsBefore time.Time
	Limit        int
}

// OfferFilter selects offers. Zero fields do not filter.
type OfferFilter struct {
	FromUserID     string
	ToUserID       string
	LandID         string
	Statuses       []domain.OfferStatus
	CreatedAfter   time.Time
	ExpiresBefore  time.Time
	RespondedAfter time.Time
	Limit          int
}

// MatchAuction applies f to a single auction. Stores that filter in memory
// share it so both implementations agree on semantics.
func (f AuctionFilter) MatchAuction(a *domain.Auction) bool {
	if f.LandID != "" && a.LandID != f.LandID {
		return false
	}
	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, a.Status) {
		return false
	}
	if !f.EndsBefore.IsZero() && a.EndTime.After(f.EndsBefore) {
		return false
	}
	if !f.StartsBefore.IsZero() && a.StartTime.After(f.StartsBefore) {
		return false
	}
	return true
}

// MatchOffer applies f to a single offer.
func (f OfferFilter) MatchOffer(o *domain.Offer) bool {
	if f.FromUserID != "" && o.FromUserID != f.FromUserID {
		return false
	}
	if f.ToUserID != "" && o.ToUserID != f.ToUserID {
		return false
	}
	if f.LandID != "" && o.LandID != f.LandID {
		return false
	}
	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, o.Status) {
		return false
	}
	if !f.CreatedAfter.IsZero() && !o.CreatedAt.After(f.CreatedAfter) {
		return false
	}
	if !f.ExpiresBefore.IsZero() && o.ExpiresAt.After(f.ExpiresBefore) {
		return false
	}
	if !f.RespondedAfter.IsZero() && (o.RespondedAt == nil || !o.RespondedAt.After(f.RespondedAfter)) {
		return false
	}
	return true
}

func containsStatus[S ~string](list []S, s S) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// NotFound wraps domain.ErrNotFound with the missing entity.
func NotFound(entity, id string) error {
	return domain.ErrNotFound.Withf("%s %s not found", entity, id)
}
