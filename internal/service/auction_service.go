package service

import (
	"context"
	"time"

	"landmarket/internal/config"
	"landmarket/internal/domain"
	"landmarket/internal/metrics"
	"landmarket/internal/notify"
	"landmarket/internal/repository"
	"landmarket/internal/stream"

	"github.com/google/uuid"
)

// AuctionService runs time-boxed auctions over single parcels. Bids are
// backed by escrow: the leading bid's funds stay locked until the bidder is
// outbid or the auction settles.
type AuctionService struct {
	run   *Runner
	rules config.AuctionRules
}

func NewAuctionService(run *Runner, rules config.AuctionRules) *AuctionService {
	return &AuctionService{run: run, rules: rules}
}

type CreateAuctionInput struct {
	OwnerID       string
	LandID        string
	StartingPrice int64
	BuyNowPrice   *int64
	Duration      time.Duration
	// StartAt schedules the auction; nil or a past time starts it now.
	StartAt *time.Time
}

func (s *AuctionService) CreateAuction(ctx context.Context, in CreateAuctionInput) (*domain.Auction, error) {
	if in.OwnerID == "" || in.LandID == "" {
		return nil, domain.ErrValidation.Withf("owner and land are required")
	}
	if in.StartingPrice <= 0 {
		return nil, domain.ErrValidation.Withf("starting price must be positive")
	}
	if in.BuyNowPrice != nil && *in.BuyNowPrice <= in.StartingPrice {
		return nil, domain.ErrValidation.Withf("buy now price must be greater than the starting price")
	}
	if in.Duration < s.rules.MinDuration || in.Duration > s.rules.MaxDuration {
		return nil, domain.ErrValidation.Withf("duration must be between %s and %s", s.rules.MinDuration, s.rules.MaxDuration)
	}

	var out *domain.Auction
	err := s.run.Do(ctx, "auction.create", func(ctx context.Context, tx repository.Tx, fx *Effects) error {
		land, err := tx.GetLand(ctx, in.LandID)
		if err != nil {
			return err
		}
		if land == nil {
			return repository.NotFound("land", in.LandID)
		}
		if land.OwnerID != in.OwnerID {
			return domain.ErrNotAuthorized.Withf("you do not own land %s", land.ID)
		}
		if land.IsAuctioned {
			return domain.ErrLandAuctioned
		}
		open, err := tx.ListAuctions(ctx, repository.AuctionFilter{
			LandID:   land.ID,
			Statuses: []domain.AuctionStatus{domain.AuctionStatusPending, domain.AuctionStatusActive},
			Limit:    1,
		})
		if err != nil {
			return err
		}
		if len(open) > 0 {
			return domain.ErrLandAuctioned
		}

		status := domain.AuctionStatusActive
		start := fx.Now
		if in.StartAt != nil && in.StartAt.After(fx.Now) {
			status = domain.AuctionStatusPending
			start = *in.StartAt
		}
		a := &domain.Auction{
			ID:            uuid.NewString(),
			LandID:        land.ID,
			OwnerID:       in.OwnerID,
			Status:        status,
			StartingPrice: in.StartingPrice,
			CurrentBid:    in.StartingPrice,
			BuyNowPrice:   in.BuyNowPrice,
			BidHistory:    []domain.Bid{},
			StartTime:     start,
			EndTime:       start.Add(in.Duration),
			CreatedAt:     fx.Now,
			UpdatedAt:     fx.Now,
		}
		if err := tx.SaveAuction(ctx, a); err != nil {
			return err
		}

		land.IsAuctioned = true
		land.AuctionID = a.ID
		land.UpdatedAt = fx.Now
		if err := tx.SaveLand(ctx, land); err != nil {
			return err
		}

		publishAuction(fx, a)
		fx.Publish(stream.LandTopic(land.ID), "land", land)
		fx.Journal("auction.create", a.ID, in.OwnerID, a.StartingPrice, a)
		out = a
		return nil
	})
	return out, err
}

// PlaceBid records a bid above the current bid, which starts at the
// starting price. Bids at or above the buy-now price are refused. The
// bidder's funds are locked and the previous leader's lock is released. A
// bid inside the anti-snipe window pushes the end time out.
func (s *AuctionService) PlaceBid(ctx context.Context, auctionID, bidderID string, amount int64) (*domain.Auction, error) {
	if bidderID == "" {
		return nil, domain.ErrValidation.Withf("bidder is required")
	}
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	var out *domain.Auction
	err := s.run.Do(ctx, "auction.bid", func(ctx context.Context, tx repository.Tx, fx *Effects) error {
		a, err := openAuction(ctx, tx, auctionID, fx.Now)
		if err != nil {
			return err
		}
		if a.OwnerID == bidderID {
			return domain.ErrNotAuthorized.Withf("you cannot bid on your own auction")
		}
		if amount <= a.CurrentBid {
			return domain.ErrBidTooLow.Withf("bid too low: current bid is %d", a.CurrentBid)
		}
		if a.BuyNowPrice != nil && amount >= *a.BuyNowPrice {
			return domain.ErrValidation.Withf("bid must stay below the buy now price of %d, use buy now instead", *a.BuyNowPrice)
		}

		prevLeader := a.HighestBidderID
		if err := releaseIfHeld(ctx, tx, fx, a.HighestBidLockID); err != nil {
			return err
		}
		l, err := lockFunds(ctx, tx, fx, bidderID, amount, domain.LockPurposeAuctionBid, a.ID)
		if err != nil {
			return err
		}

		if a.EndTime.Sub(fx.Now) < s.rules.AntiSnipeWindow {
			a.EndTime = a.EndTime.Add(s.rules.AntiSnipeExtension)
		}
		a.BidHistory = append(a.BidHistory, domain.Bid{BidderID: bidderID, Amount: amount, Timestamp: fx.Now})
		a.CurrentBid = amount
		a.HighestBidderID = bidderID
		a.HighestBidLockID = l.ID
		a.UpdatedAt = fx.Now
		if err := tx.SaveAuction(ctx, a); err != nil {
			return err
		}

		if prevLeader != "" && prevLeader != bidderID {
			fx.Notify(prevLeader, notify.AuctionOutbid, map[string]any{
				"auction_id":  a.ID,
				"land_id":     a.LandID,
				"current_bid": amount,
			})
		}
		publishAuction(fx, a)
		fx.Journal("auction.bid", a.ID, bidderID, amount, nil)
		out = a
		return nil
	})
	return out, err
}

// BuyNow ends the auction at its buy-now price and settles immediately.
func (s *AuctionService) BuyNow(ctx context.Context, auctionID, buyerID string) (*domain.Auction, error) {
	if buyerID == "" {
		return nil, domain.ErrValidation.Withf("buyer is required")
	}
	var out *domain.Auction
	err := s.run.Do(ctx, "auction.buy_now", func(ctx context.Context, tx repository.Tx, fx *Effects) error {
		a, err := openAuction(ctx, tx, auctionID, fx.Now)
		if err != nil {
			return err
		}
		if a.BuyNowPrice == nil {
			return domain.ErrValidation.Withf("auction has no buy now price")
		}
		if a.OwnerID == buyerID {
			return domain.ErrNotAuthorized.Withf("you cannot buy your own land")
		}
		if a.HighestBidderID != "" && a.CurrentBid >= *a.BuyNowPrice {
			return domain.ErrConflict.Withf("current bid %d has reached the buy now price", a.CurrentBid)
		}

		prevLeader := a.HighestBidderID
		if err := releaseIfHeld(ctx, tx, fx, a.HighestBidLockID); err != nil {
			return err
		}
		land, err := auctionLand(ctx, tx, a)
		if err != nil {
			return err
		}
		price := *a.BuyNowPrice
		if err := settleLandSale(ctx, tx, fx, sale{
			land:      land,
			seller:    a.OwnerID,
			buyer:     buyerID,
			price:     price,
			source:    saleBuyNow,
			auctionID: a.ID,
		}); err != nil {
			return err
		}

		now := fx.Now
		a.Status = domain.AuctionStatusEnded
		a.CurrentBid = price
		a.HighestBidderID = buyerID
		a.HighestBidLockID = ""
		a.EndedAt = &now
		a.UpdatedAt = now
		if err := tx.SaveAuction(ctx, a); err != nil {
			return err
		}

		if prevLeader != "" && prevLeader != buyerID {
			fx.Notify(prevLeader, notify.AuctionOutbid, map[string]any{"auction_id": a.ID, "land_id": a.LandID, "buy_now": true})
		}
		fx.Notify(buyerID, notify.AuctionWon, map[string]any{"auction_id": a.ID, "land_id": a.LandID, "price": price})
		publishAuction(fx, a)
		out = a
		return nil
	})
	return out, err
}

// CancelAuction withdraws an auction that has not received any bid.
func (s *AuctionService) CancelAuction(ctx context.Context, auctionID, ownerID string) (*domain.Auction, error) {
	var out *domain.Auction
	err := s.run.Do(ctx, "auction.cancel", func(ctx context.Context, tx repository.Tx, fx *Effects) error {
		a, err := tx.GetAuction(ctx, auctionID)
		if err != nil {
			return err
		}
		if a == nil {
			return repository.NotFound("auction", auctionID)
		}
		if a.OwnerID != ownerID {
			return domain.ErrNotAuthorized.Withf("only the owner can cancel this auction")
		}
		if a.Status.Terminal() {
			return domain.ErrAuctionNotOpen.Withf("auction is already %s", a.Status)
		}
		if len(a.BidHistory) > 0 {
			return domain.ErrAuctionHasBids
		}

		now := fx.Now
		a.Status = domain.AuctionStatusCancelled
		a.EndedAt = &now
		a.UpdatedAt = now
		if err := tx.SaveAuction(ctx, a); err != nil {
			return err
		}
		if err := releaseAuctionLand(ctx, tx, fx, a); err != nil {
			return err
		}
		publishAuction(fx, a)
		fx.Journal("auction.cancel", a.ID, ownerID, 0, nil)
		out = a
		return nil
	})
	return out, err
}

func (s *AuctionService) GetAuction(ctx context.Context, auctionID string) (*domain.Auction, error) {
	var out *domain.Auction
	err := s.run.Do(ctx, "auction.get", func(ctx context.Context, tx repository.Tx, fx *Effects) error {
		a, err := tx.GetAuction(ctx, auctionID)
		if err != nil {
			return err
		}
		if a == nil {
			return repository.NotFound("auction", auctionID)
		}
		out = a
		return nil
	})
	return out, err
}

// ListActiveAuctions returns open auctions, soonest ending first.
func (s *AuctionService) ListActiveAuctions(ctx context.Context, limit int) ([]*domain.Auction, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var out []*domain.Auction
	err := s.run.Do(ctx, "auction.list", func(ctx context.Context, tx repository.Tx, fx *Effects) error {
		var err error
		out, err = tx.ListAuctions(ctx, repository.AuctionFilter{
			Statuses: []domain.AuctionStatus{domain.AuctionStatusActive},
			Limit:    limit,
		})
		return err
	})
	return out, err
}

// AuctionSweepResult counts what one sweep changed.
type AuctionSweepResult struct {
	Activated int `json:"activated"`
	Ended     int `json:"ended"`
	Failed    int `json:"failed"`
}

// ProcessAuctionEnd activates scheduled auctions whose start time has come
// and ends active auctions past their end time. Each auction is handled in
// its own transaction; an auction that already ended is skipped.
func (s *AuctionService) ProcessAuctionEnd(ctx context.Context) (*AuctionSweepResult, error) {
	var due, starting []string
	err := s.run.Do(ctx, "auction.sweep.scan", func(ctx context.Context, tx repository.Tx, fx *Effects) error {
		due, starting = nil, nil
		ended, err := tx.ListAuctions(ctx, repository.AuctionFilter{
			Statuses:   []domain.AuctionStatus{domain.AuctionStatusActive},
			EndsBefore: fx.Now,
		})
		if err != nil {
			return err
		}
		for _, a := range ended {
			due = append(due, a.ID)
		}
		pending, err := tx.ListAuctions(ctx, repository.AuctionFilter{
			Statuses:     []domain.AuctionStatus{domain.AuctionStatusPending},
			StartsBefore: fx.Now,
		})
		if err != nil {
			return err
		}
		for _, a := range pending {
			starting = append(starting, a.ID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	res := &AuctionSweepResult{}
	for _, id := range starting {
		ok, err := s.activate(ctx, id)
		if err != nil {
			res.Failed++
			metrics.SweepErrors.WithLabelValues("auction_start").Inc()
			s.run.log.Error("activate auction failed", "auction_id", id, "error", err)
			continue
		}
		if ok {
			res.Activated++
			metrics.SweepProcessed.WithLabelValues("auction_start").Inc()
		}
	}
	for _, id := range due {
		ok, err := s.finalize(ctx, id)
		if err != nil {
			res.Failed++
			metrics.SweepErrors.WithLabelValues("auction_end").Inc()
			s.run.log.Error("end auction failed", "auction_id", id, "error", err)
			continue
		}
		if ok {
			res.Ended++
			metrics.SweepProcessed.WithLabelValues("auction_end").Inc()
		}
	}
	return res, nil
}

func (s *AuctionService) activate(ctx context.Context, auctionID string) (bool, error) {
	changed := false
	err := s.run.Do(ctx, "auction.activate", func(ctx context.Context, tx repository.Tx, fx *Effects) error {
		changed = false
		a, err := tx.GetAuction(ctx, auctionID)
		if err != nil || a == nil {
			return err
		}
		if a.Status != domain.AuctionStatusPending || a.StartTime.After(fx.Now) {
			return nil
		}
		a.Status = domain.AuctionStatusActive
		a.UpdatedAt = fx.Now
		if err := tx.SaveAuction(ctx, a); err != nil {
			return err
		}
		publishAuction(fx, a)
		changed = true
		return nil
	})
	return changed, err
}

func (s *AuctionService) finalize(ctx context.Context, auctionID string) (bool, error) {
	changed := false
	err := s.run.Do(ctx, "auction.end", func(ctx context.Context, tx repository.Tx, fx *Effects) error {
		changed = false
		a, err := tx.GetAuction(ctx, auctionID)
		if err != nil || a == nil {
			return err
		}
		if a.Status != domain.AuctionStatusActive || a.EndTime.After(fx.Now) {
			return nil
		}

		now := fx.Now
		a.Status = domain.AuctionStatusEnded
		a.EndedAt = &now
		a.UpdatedAt = now

		if a.HighestBidderID == "" {
			if err := releaseAuctionLand(ctx, tx, fx, a); err != nil {
				return err
			}
		} else {
			land, err := auctionLand(ctx, tx, a)
			if err != nil {
				return err
			}
			if err := settleLandSale(ctx, tx, fx, sale{
				land:      land,
				seller:    a.OwnerID,
				buyer:     a.HighestBidderID,
				price:     a.CurrentBid,
				lockID:    a.HighestBidLockID,
				source:    saleAuction,
				auctionID: a.ID,
			}); err != nil {
				return err
			}
			fx.Notify(a.HighestBidderID, notify.AuctionWon, map[string]any{
				"auction_id": a.ID,
				"land_id":    a.LandID,
				"price":      a.CurrentBid,
			})
		}
		if err := tx.SaveAuction(ctx, a); err != nil {
			return err
		}
		publishAuction(fx, a)
		fx.Journal("auction.end", a.ID, a.HighestBidderID, a.CurrentBid, nil)
		changed = true
		return nil
	})
	return changed, err
}

// openAuction loads an auction that is accepting bids right now.
func openAuction(ctx context.Context, tx repository.Tx, auctionID string, now time.Time) (*domain.Auction, error) {
	a, err := tx.GetAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, repository.NotFound("auction", auctionID)
	}
	if a.Status != domain.AuctionStatusActive {
		return nil, domain.ErrAuctionNotOpen.Withf("auction is %s", a.Status)
	}
	if !now.Before(a.EndTime) {
		return nil, domain.ErrAuctionNotOpen.Withf("auction has ended")
	}
	return a, nil
}

func auctionLand(ctx context.Context, tx repository.Tx, a *domain.Auction) (*domain.LandParcel, error) {
	land, err := tx.GetLand(ctx, a.LandID)
	if err != nil {
		return nil, err
	}
	if land == nil {
		return nil, repository.NotFound("land", a.LandID)
	}
	return land, nil
}

// releaseAuctionLand clears the auction flags on the auctioned parcel.
func releaseAuctionLand(ctx context.Context, tx repository.Tx, fx *Effects, a *domain.Auction) error {
	land, err := tx.GetLand(ctx, a.LandID)
	if err != nil {
		return err
	}
	if land == nil || land.AuctionID != a.ID {
		return nil
	}
	land.IsAuctioned = false
	land.AuctionID = ""
	land.UpdatedAt = fx.Now
	if err := tx.SaveLand(ctx, land); err != nil {
		return err
	}
	fx.Publish(stream.LandTopic(land.ID), "land", land)
	return nil
}

func publishAuction(fx *Effects, a *domain.Auction) {
	fx.Publish(stream.AuctionTopic(a.ID), "auction", a)
	fx.Publish(stream.TopicLobby, "auction", a)
}
