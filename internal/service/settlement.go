package service

import (
	"context"
	"fmt"

	"landmarket/internal/domain"
	"landmarket/internal/notify"
	"landmarket/internal/repository"
	"landmarket/internal/stream"
)

const (
	saleAuction      = "auction"
	saleBuyNow       = "buy_now"
	saleOffer        = "offer"
	saleCounterOffer = "counter_offer"
)

// sale describes one change of land ownership against payment.
type sale struct {
	land   *domain.LandParcel
	seller string
	buyer  string
	price  int64
	// lockID funds the sale from escrow; empty debits the buyer directly.
	lockID string
	source string

	auctionID string
	offerID   string
}

// settleLandSale moves the money and the parcel in the caller's transaction.
// Any other pending offers on the parcel are rejected because the addressed
// owner no longer holds it.
func settleLandSale(ctx context.Context, tx repository.Tx, fx *Effects, s sale) error {
	if s.seller == s.buyer {
		return domain.ErrValidation.Withf("buyer already owns the land")
	}
	if s.land.OwnerID != s.seller {
		return domain.ErrConflict.Withf("land %s is no longer owned by the seller", s.land.ID)
	}
	if s.price <= 0 {
		return domain.ErrInvalidAmount
	}

	desc := fmt.Sprintf("land %s sold (%s)", s.land.ID, s.source)
	meta := domain.TransactionMeta{LandID: s.land.ID, AuctionID: s.auctionID, OfferID: s.offerID}

	if s.lockID != "" {
		l, err := heldLock(ctx, tx, s.lockID)
		if err != nil {
			return err
		}
		if l.AccountID != s.buyer || l.Amount != s.price {
			return domain.ErrConflict.Withf("escrow does not match the sale")
		}
		if _, _, err := consumeLock(ctx, tx, fx, s.lockID, s.seller, desc, meta); err != nil {
			return err
		}
	} else {
		accts, err := ensureAccounts(ctx, tx, fx, s.buyer, s.seller)
		if err != nil {
			return err
		}
		outMeta, inMeta := meta, meta
		outMeta.CounterpartyID = s.seller
		inMeta.CounterpartyID = s.buyer
		if _, err := debit(ctx, tx, fx, accts[s.buyer], s.price, domain.TxKindTransferOut, desc, outMeta); err != nil {
			return err
		}
		if _, err := credit(ctx, tx, fx, accts[s.seller], s.price, domain.TxKindTransferIn, desc, inMeta); err != nil {
			return err
		}
	}

	land := s.land
	land.OwnerID = s.buyer
	land.IsAuctioned = false
	land.AuctionID = ""
	land.UpdatedAt = fx.Now
	if err := tx.SaveLand(ctx, land); err != nil {
		return err
	}

	if err := rejectPendingOffers(ctx, tx, fx, land.ID, s.offerID); err != nil {
		return err
	}

	fx.settlements = append(fx.settlements, s.source)
	fx.Publish(stream.LandTopic(land.ID), "land", land)
	fx.Journal("settlement."+s.source, land.ID, s.buyer, s.price, map[string]any{
		"seller":     s.seller,
		"buyer":      s.buyer,
		"auction_id": s.auctionID,
		"offer_id":   s.offerID,
	})
	fx.Notify(s.seller, notify.LandSold, map[string]any{
		"land_id": land.ID,
		"buyer":   s.buyer,
		"price":   s.price,
		"source":  s.source,
	})
	return nil
}

// rejectPendingOffers closes every pending offer on the land except keep and
// returns their escrow.
func rejectPendingOffers(ctx context.Context, tx repository.Tx, fx *Effects, landID, keep string) error {
	offers, err := tx.ListOffers(ctx, repository.OfferFilter{
		LandID:   landID,
		Statuses: []domain.OfferStatus{domain.OfferStatusPending},
	})
	if err != nil {
		return err
	}
	for _, o := range offers {
		if o.ID == keep {
			continue
		}
		if err := releaseIfHeld(ctx, tx, fx, o.LockID); err != nil {
			return err
		}
		now := fx.Now
		o.Status = domain.OfferStatusRejected
		o.RespondedAt = &now
		if err := tx.SaveOffer(ctx, o); err != nil {
			return err
		}
		publishOffer(fx, o)
		fx.Notify(o.FromUserID, notify.OfferRejected, map[string]any{
			"offer_id": o.ID,
			"land_id":  landID,
			"reason":   "land changed hands",
		})
	}
	return nil
}
