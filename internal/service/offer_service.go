package service

import (
	"context"

	"landmarket/internal/config"
	"landmarket/internal/domain"
	"landmarket/internal/metrics"
	"landmarket/internal/notify"
	"landmarket/internal/repository"
	"landmarket/internal/stream"

	"github.com/google/uuid"
)

const maxOfferMessage = 500

// OfferService negotiates direct land sales. The offered amount is held in
// escrow while the offer is pending.
type OfferService struct {
	run   *Runner
	rules config.OfferRules
}

func NewOfferService(run *Runner, rules config.OfferRules) *OfferService {
	return &OfferService{run: run, rules: rules}
}

type CreateOfferInput struct {
	BuyerID string
	LandID  string
	Amount  int64
	Message string
}

func (s *OfferService) CreateOffer(ctx context.Context, in CreateOfferInput) (*domain.Offer, error) {
	if in.BuyerID == "" || in.LandID == "" {
		return nil, domain.ErrValidation.Withf("buyer and land are required")
	}
	if in.Amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if len(in.Message) > maxOfferMessage {
		return nil, domain.ErrValidation.Withf("message must be at most %d characters", maxOfferMessage)
	}

	var out *domain.Offer
	err := s.run.Do(ctx, "offer.create", func(ctx context.Context, tx repository.Tx, fx *Effects) error {
		land, err := tx.GetLand(ctx, in.LandID)
		if err != nil {
			return err
		}
		if land == nil {
			return repository.NotFound("land", in.LandID)
		}
		if land.OwnerID == in.BuyerID {
			return domain.ErrValidation.Withf("you already own this land")
		}
		if land.IsAuctioned {
			return domain.ErrLandAuctioned
		}

		pending, err := tx.ListOffers(ctx, repository.OfferFilter{
			FromUserID: in.BuyerID,
			LandID:     land.ID,
			Statuses:   []domain.OfferStatus{domain.OfferStatusPending},
			Limit:      1,
		})
		if err != nil {
			return err
		}
		if len(pending) > 0 {
			return domain.ErrDuplicateOffer
		}

		recent, err := tx.ListOffers(ctx, repository.OfferFilter{
			FromUserID:   in.BuyerID,
			CreatedAfter: fx.Now.Add(-s.rules.DailyWindow),
		})
		if err != nil {
			return err
		}
		if len(recent) >= s.rules.DailyCap {
			return domain.ErrOfferDailyCap.Withf("daily offer limit of %d reached", s.rules.DailyCap)
		}

		rejected, err := tx.ListOffers(ctx, repository.OfferFilter{
			FromUserID:     in.BuyerID,
			ToUserID:       land.OwnerID,
			LandID:         land.ID,
			Statuses:       []domain.OfferStatus{domain.OfferStatusRejected},
			RespondedAfter: fx.Now.Add(-s.rules.RejectCooldown),
			Limit:          1,
		})
		if err != nil {
			return err
		}
		if len(rejected) > 0 {
			return domain.ErrOfferCooldown
		}

		o := &domain.Offer{
			ID:         uuid.NewString(),
			FromUserID: in.BuyerID,
			ToUserID:   land.OwnerID,
			LandID:     land.ID,
			Amount:     in.Amount,
			Message:    in.Message,
			Status:     domain.OfferStatusPending,
			CreatedAt:  fx.Now,
			ExpiresAt:  fx.Now.Add(s.rules.TTL),
		}
		l, err := lockFunds(ctx, tx, fx, in.BuyerID, in.Amount, domain.LockPurposeOffer, o.ID)
		if err != nil {
			return err
		}
		o.LockID = l.ID
		if err := tx.SaveOffer(ctx, o); err != nil {
			return err
		}

		publishOffer(fx, o)
		fx.Notify(o.ToUserID, notify.OfferReceived, map[string]any{
			"offer_id": o.ID,
			"land_id":  o.LandID,
			"from":     o.FromUserID,
			"amount":   o.Amount,
		})
		fx.Journal("offer.create", o.ID, in.BuyerID, o.Amount, o)
		out = o
		return nil
	})
	return out, err
}

// RespondToOffer accepts or rejects a pending offer. Responding to an offer
// past its expiry moves it to expired, returns the buyer's escrow and fails
// with an expired error.
func (s *OfferService) RespondToOffer(ctx context.Context, offerID, ownerID string, accept bool) (*domain.Offer, error) {
	var (
		out     *domain.Offer
		expired bool
	)
	err := s.run.Do(ctx, "offer.respond", func(ctx context.Context, tx repository.Tx, fx *Effects) error {
		expired = false
		o, err := s.addressedOffer(ctx, tx, offerID, ownerID)
		if err != nil {
			return err
		}
		if !fx.Now.Before(o.ExpiresAt) {
			expired = true
			out = o
			return expireOffer(ctx, tx, fx, o)
		}

		now := fx.Now
		if accept {
			land, err := s.sellableLand(ctx, tx, o)
			if err != nil {
				return err
			}
			if err := settleLandSale(ctx, tx, fx, sale{
				land:    land,
				seller:  o.ToUserID,
				buyer:   o.FromUserID,
				price:   o.Amount,
				lockID:  o.LockID,
				source:  saleOffer,
				offerID: o.ID,
			}); err != nil {
				return err
			}
			o.Status = domain.OfferStatusAccepted
			fx.Notify(o.FromUserID, notify.OfferAccepted, map[string]any{"offer_id": o.ID, "land_id": o.LandID, "amount": o.Amount})
		} else {
			if err := releaseIfHeld(ctx, tx, fx, o.LockID); err != nil {
				return err
			}
			o.Status = domain.OfferStatusRejected
			fx.Notify(o.FromUserID, notify.OfferRejected, map[string]any{"offer_id": o.ID, "land_id": o.LandID})
		}
		o.RespondedAt = &now
		if err := tx.SaveOffer(ctx, o); err != nil {
			return err
		}
		publishOffer(fx, o)
		fx.Journal("offer."+string(o.Status), o.ID, ownerID, o.Amount, nil)
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	if expired {
		return out, domain.ErrExpired.Withf("offer has expired")
	}
	return out, nil
}

// CreateCounterOffer attaches the owner's price to a pending offer.
func (s *OfferService) CreateCounterOffer(ctx context.Context, offerID, ownerID string, amount int64, message string) (*domain.Offer, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if len(message) > maxOfferMessage {
		return nil, domain.ErrValidation.Withf("message must be at most %d characters", maxOfferMessage)
	}
	var (
		out     *domain.Offer
		expired bool
	)
	err := s.run.Do(ctx, "offer.counter", func(ctx context.Context, tx repository.Tx, fx *Effects) error {
		expired = false
		o, err := s.addressedOffer(ctx, tx, offerID, ownerID)
		if err != nil {
			return err
		}
		if !fx.Now.Before(o.ExpiresAt) {
			expired = true
			out = o
			return expireOffer(ctx, tx, fx, o)
		}
		o.CounterOffer = &domain.CounterOffer{Amount: amount, Message: message, CreatedAt: fx.Now}
		if err := tx.SaveOffer(ctx, o); err != nil {
			return err
		}
		publishOffer(fx, o)
		fx.Notify(o.FromUserID, notify.OfferCountered, map[string]any{
			"offer_id": o.ID,
			"land_id":  o.LandID,
			"amount":   amount,
			"message":  message,
		})
		fx.Journal("offer.counter", o.ID, ownerID, amount, nil)
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	if expired {
		return out, domain.ErrExpired.Withf("offer has expired")
	}
	return out, nil
}

// AcceptCounterOffer settles at the counter amount. The escrow is first
// resized to the counter: a lower counter refunds the difference to the
// buyer as a separate entry, a higher one locks the extra. The resized lock
// then pays the seller.
func (s *OfferService) AcceptCounterOffer(ctx context.Context, offerID, buyerID string) (*domain.Offer, error) {
	var (
		out     *domain.Offer
		expired bool
	)
	err := s.run.Do(ctx, "offer.accept_counter", func(ctx context.Context, tx repository.Tx, fx *Effects) error {
		expired = false
		o, err := tx.GetOffer(ctx, offerID)
		if err != nil {
			return err
		}
		if o == nil {
			return repository.NotFound("offer", offerID)
		}
		if o.FromUserID != buyerID {
			return domain.ErrNotAuthorized.Withf("only the buyer can accept this counter offer")
		}
		if o.Status != domain.OfferStatusPending {
			return domain.ErrOfferNotPending.Withf("offer is %s", o.Status)
		}
		if !fx.Now.Before(o.ExpiresAt) {
			expired = true
			out = o
			return expireOffer(ctx, tx, fx, o)
		}
		if o.CounterOffer == nil {
			return domain.ErrValidation.Withf("offer has no counter offer")
		}

		land, err := s.sellableLand(ctx, tx, o)
		if err != nil {
			return err
		}
		meta := domain.TransactionMeta{OfferID: o.ID, LandID: o.LandID}
		if _, err := resizeLock(ctx, tx, fx, o.LockID, o.CounterOffer.Amount, "counter offer "+o.ID, meta); err != nil {
			return err
		}
		if err := settleLandSale(ctx, tx, fx, sale{
			land:    land,
			seller:  o.ToUserID,
			buyer:   o.FromUserID,
			price:   o.CounterOffer.Amount,
			lockID:  o.LockID,
			source:  saleCounterOffer,
			offerID: o.ID,
		}); err != nil {
			return err
		}

		now := fx.Now
		o.Status = domain.OfferStatusAccepted
		o.RespondedAt = &now
		if err := tx.SaveOffer(ctx, o); err != nil {
			return err
		}
		publishOffer(fx, o)
		fx.Notify(o.ToUserID, notify.OfferAccepted, map[string]any{
			"offer_id": o.ID,
			"land_id":  o.LandID,
			"amount":   o.CounterOffer.Amount,
		})
		fx.Journal("offer.accept_counter", o.ID, buyerID, o.CounterOffer.Amount, nil)
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	if expired {
		return out, domain.ErrExpired.Withf("offer has expired")
	}
	return out, nil
}

// CancelOffer withdraws the buyer's pending offer and returns the escrow.
func (s *OfferService) CancelOffer(ctx context.Context, offerID, buyerID string) (*domain.Offer, error) {
	var out *domain.Offer
	err := s.run.Do(ctx, "offer.cancel", func(ctx context.Context, tx repository.Tx, fx *Effects) error {
		o, err := tx.GetOffer(ctx, offerID)
		if err != nil {
			return err
		}
		if o == nil {
			return repository.NotFound("offer", offerID)
		}
		if o.FromUserID != buyerID {
			return domain.ErrNotAuthorized.Withf("only the buyer can cancel this offer")
		}
		if o.Status != domain.OfferStatusPending {
			return domain.ErrOfferNotPending.Withf("offer is %s", o.Status)
		}
		if err := releaseIfHeld(ctx, tx, fx, o.LockID); err != nil {
			return err
		}
		now := fx.Now
		o.Status = domain.OfferStatusCancelled
		o.RespondedAt = &now
		if err := tx.SaveOffer(ctx, o); err != nil {
			return err
		}
		publishOffer(fx, o)
		fx.Notify(o.ToUserID, notify.OfferCancelled, map[string]any{"offer_id": o.ID, "land_id": o.LandID})
		fx.Journal("offer.cancel", o.ID, buyerID, o.Amount, nil)
		out = o
		return nil
	})
	return out, err
}

// CleanupExpiredOffers expires every pending offer past its deadline and
// returns how many it changed.
func (s *OfferService) CleanupExpiredOffers(ctx context.Context) (int, error) {
	var ids []string
	err := s.run.Do(ctx, "offer.sweep.scan", func(ctx context.Context, tx repository.Tx, fx *Effects) error {
		ids = nil
		offers, err := tx.ListOffers(ctx, repository.OfferFilter{
			Statuses:      []domain.OfferStatus{domain.OfferStatusPending},
			ExpiresBefore: fx.Now,
		})
		if err != nil {
			return err
		}
		for _, o := range offers {
			ids = append(ids, o.ID)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	n := 0
	for _, id := range ids {
		changed := false
		err := s.run.Do(ctx, "offer.expire", func(ctx context.Context, tx repository.Tx, fx *Effects) error {
			changed = false
			o, err := tx.GetOffer(ctx, id)
			if err != nil || o == nil {
				return err
			}
			if o.Status != domain.OfferStatusPending || fx.Now.Before(o.ExpiresAt) {
				return nil
			}
			changed = true
			return expireOffer(ctx, tx, fx, o)
		})
		if err != nil {
			metrics.SweepErrors.WithLabelValues("offer_expire").Inc()
			s.run.log.Error("expire offer failed", "offer_id", id, "error", err)
			continue
		}
		if changed {
			n++
			metrics.SweepProcessed.WithLabelValues("offer_expire").Inc()
		}
	}
	return n, nil
}

// GetOffer returns an offer visible to one of its two parties.
func (s *OfferService) GetOffer(ctx context.Context, offerID, viewerID string) (*domain.Offer, error) {
	var out *domain.Offer
	err := s.run.Do(ctx, "offer.get", func(ctx context.Context, tx repository.Tx, fx *Effects) error {
		o, err := tx.GetOffer(ctx, offerID)
		if err != nil {
			return err
		}
		if o == nil {
			return repository.NotFound("offer", offerID)
		}
		if viewerID != "" && o.FromUserID != viewerID && o.ToUserID != viewerID {
			return domain.ErrNotAuthorized.Withf("offer belongs to other users")
		}
		out = o
		return nil
	})
	return out, err
}

// ListOffersForUser returns the user's sent or received offers, newest first.
// An empty status list returns every status.
func (s *OfferService) ListOffersForUser(ctx context.Context, userID string, dir domain.OfferDirection, statuses []domain.OfferStatus, limit int) ([]*domain.Offer, error) {
	f := repository.OfferFilter{Statuses: statuses, Limit: limit}
	switch dir {
	case domain.OfferDirectionSent:
		f.FromUserID = userID
	case domain.OfferDirectionReceived:
		f.ToUserID = userID
	default:
		return nil, domain.ErrValidation.Withf("direction must be sent or received")
	}
	if f.Limit <= 0 || f.Limit > 200 {
		f.Limit = 50
	}
	var out []*domain.Offer
	err := s.run.Do(ctx, "offer.list", func(ctx context.Context, tx repository.Tx, fx *Effects) error {
		var err error
		out, err = tx.ListOffers(ctx, f)
		return err
	})
	return out, err
}

// addressedOffer loads a pending offer addressed to ownerID.
func (s *OfferService) addressedOffer(ctx context.Context, tx repository.Tx, offerID, ownerID string) (*domain.Offer, error) {
	o, err := tx.GetOffer(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, repository.NotFound("offer", offerID)
	}
	if o.ToUserID != ownerID {
		return nil, domain.ErrNotAuthorized.Withf("offer is addressed to another owner")
	}
	if o.Status != domain.OfferStatusPending {
		return nil, domain.ErrOfferNotPending.Withf("offer is %s", o.Status)
	}
	return o, nil
}

// sellableLand checks that the offer's land can still be sold by its
// addressed owner.
func (s *OfferService) sellableLand(ctx context.Context, tx repository.Tx, o *domain.Offer) (*domain.LandParcel, error) {
	land, err := tx.GetLand(ctx, o.LandID)
	if err != nil {
		return nil, err
	}
	if land == nil {
		return nil, repository.NotFound("land", o.LandID)
	}
	if land.OwnerID != o.ToUserID {
		return nil, domain.ErrConflict.Withf("land %s is no longer owned by %s", land.ID, o.ToUserID)
	}
	if land.IsAuctioned {
		return nil, domain.ErrLandAuctioned
	}
	return land, nil
}

func expireOffer(ctx context.Context, tx repository.Tx, fx *Effects, o *domain.Offer) error {
	if err := releaseIfHeld(ctx, tx, fx, o.LockID); err != nil {
		return err
	}
	o.Status = domain.OfferStatusExpired
	if err := tx.SaveOffer(ctx, o); err != nil {
		return err
	}
	publishOffer(fx, o)
	fx.Notify(o.FromUserID, notify.OfferExpired, map[string]any{"offer_id": o.ID, "land_id": o.LandID})
	fx.Journal("offer.expire", o.ID, o.FromUserID, o.Amount, nil)
	return nil
}

func publishOffer(fx *Effects, o *domain.Offer) {
	fx.Publish(stream.OffersTopic(o.FromUserID), "offer", o)
	fx.Publish(stream.OffersTopic(o.ToUserID), "offer", o)
}
