package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"landmarket/internal/domain"
	"landmarket/internal/repository"

	"github.com/jackc/pgx/v5"
)

const auctionColumns = `id, land_id, owner_id, status, starting_price, current_bid, buy_now_price, highest_bidder_id,
	highest_bid_lock_id, bid_history, start_time, end_time, ended_at, version, created_at, updated_at`

func scanAuction(row pgx.Row) (*domain.Auction, error) {
	a := &domain.Auction{}
	var status string
	var history []byte
	err := row.Scan(&a.ID, &a.LandID, &a.OwnerID, &status, &a.StartingPrice, &a.CurrentBid, &a.BuyNowPrice,
		&a.HighestBidderID, &a.HighestBidLockID, &history, &a.StartTime, &a.EndTime, &a.EndedAt, &a.Version,
		&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.Status = domain.AuctionStatus(status)
	if len(history) > 0 {
		if err := json.Unmarshal(history, &a.BidHistory); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (t *pgTx) GetAuction(ctx context.Context, id string) (*domain.Auction, error) {
	a, err := scanAuction(t.tx.QueryRow(ctx, `SELECT `+auctionColumns+` FROM auctions WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return a, err
}

func (t *pgTx) SaveAuction(ctx context.Context, a *domain.Auction) error {
	history := a.BidHistory
	if history == nil {
		history = []domain.Bid{}
	}
	historyJSON, err := json.Marshal(history)
	if err != nil {
		return err
	}
	a.Version++
	_, err = t.tx.Exec(ctx,
		`INSERT INTO auctions (`+auctionColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		 ON CONFLICT (id) DO UPDATE SET
		   status = EXCLUDED.status,
		   current_bid = EXCLUDED.current_bid,
		   highest_bidder_id = EXCLUDED.highest_bidder_id,
		   highest_bid_lock_id = EXCLUDED.highest_bid_lock_id,
		   bid_history = EXCLUDED.bid_history,
		   start_time = EXCLUDED.start_time,
		   end_time = EXCLUDED.end_time,
		   ended_at = EXCLUDED.ended_at,
		   version = EXCLUDED.version,
		   updated_at = EXCLUDED.updated_at`,
		a.ID, a.LandID, a.OwnerID, string(a.Status), a.StartingPrice, a.CurrentBid, a.BuyNowPrice, a.HighestBidderID,
		a.HighestBidLockID, historyJSON, a.StartTime, a.EndTime, a.EndedAt, a.Version, a.CreatedAt, a.UpdatedAt,
	)
	return err
}

func (t *pgTx) ListAuctions(ctx context.Context, f repository.AuctionFilter) ([]*domain.Auction, error) {
	var w where
	if f.LandID != "" {
		w.add("land_id = $%d", f.LandID)
	}
	if len(f.Statuses) > 0 {
		w.add("status = ANY($%d)", statusStrings(f.Statuses))
	}
	if !f.EndsBefore.IsZero() {
		w.add("end_time <= $%d", f.EndsBefore)
	}
	if !f.StartsBefore.IsZero() {
		w.add("start_time <= $%d", f.StartsBefore)
	}
	query := `SELECT ` + auctionColumns + ` FROM auctions` + w.String() + ` ORDER BY end_time ASC, id`
	query += w.limit(f.Limit)

	rows, err := t.tx.Query(ctx, query, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Auction
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
