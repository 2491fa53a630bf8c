package postgres

import (
	"context"
	"encoding/json"
	"errors"

	"landmarket/internal/domain"
	"landmarket/internal/repository"

	"github.com/jackc/pgx/v5"
)

const offerColumns = `id, from_user_id, to_user_id, land_id, amount, message, status, counter_offer, lock_id,
	created_at, expires_at, responded_at, version`

func scanOffer(row pgx.Row) (*domain.Offer, error) {
	o := &domain.Offer{}
	var status string
	var counter []byte
	err := row.Scan(&o.ID, &o.FromUserID, &o.ToUserID, &o.LandID, &o.Amount, &o.Message, &status, &counter,
		&o.LockID, &o.CreatedAt, &o.ExpiresAt, &o.RespondedAt, &o.Version)
	if err != nil {
		return nil, err
	}
	o.Status = domain.OfferStatus(status)
	if len(counter) > 0 && string(counter) != "null" {
		o.CounterOffer = &domain.CounterOffer{}
		if err := json.Unmarshal(counter, o.CounterOffer); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func (t *pgTx) GetOffer(ctx context.Context, id string) (*domain.Offer, error) {
	o, err := scanOffer(t.tx.QueryRow(ctx, `SELECT `+offerColumns+` FROM offers WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return o, err
}

func (t *pgTx) SaveOffer(ctx context.Context, o *domain.Offer) error {
	var counter []byte
	if o.CounterOffer != nil {
		b, err := json.Marshal(o.CounterOffer)
		if err != nil {
			return err
		}
		counter = b
	}
	o.Version++
	_, err := t.tx.Exec(ctx,
		`INSERT INTO offers (`+offerColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		 ON CONFLICT (id) DO UPDATE SET
		   status = EXCLUDED.status,
		   counter_offer = EXCLUDED.counter_offer,
		   lock_id = EXCLUDED.lock_id,
		   responded_at = EXCLUDED.responded_at,
		   version = EXCLUDED.version`,
		o.ID, o.FromUserID, o.ToUserID, o.LandID, o.Amount, o.Message, string(o.Status), counter, o.LockID,
		o.CreatedAt, o.ExpiresAt, o.RespondedAt, o.Version,
	)
	return err
}

func (t *pgTx) ListOffers(ctx context.Context, f repository.OfferFilter) ([]*domain.Offer, error) {
	var w where
	if f.FromUserID != "" {
		w.add("from_user_id = $%d", f.FromUserID)
	}
	if f.ToUserID != "" {
		w.add("to_user_id = $%d", f.ToUserID)
	}
	if f.LandID != "" {
		w.add("land_id = $%d", f.LandID)
	}
	if len(f.Statuses) > 0 {
		w.add("status = ANY($%d)", statusStrings(f.Statuses))
	}
	if !f.CreatedAfter.IsZero() {
		w.add("created_at > $%d", f.CreatedAfter)
	}
	if !f.ExpiresBefore.IsZero() {
		w.add("expires_at <= $%d", f.ExpiresBefore)
	}
	if !f.RespondedAfter.IsZero() {
		w.add("responded_at > $%d", f.RespondedAfter)
	}
	query := `SELECT ` + offerColumns + ` FROM offers` + w.String() + ` ORDER BY created_at DESC, id`
	query += w.limit(f.Limit)

	rows, err := t.tx.Query(ctx, query, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Offer
	for rows.Next() {
		o, err := scanOffer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}
