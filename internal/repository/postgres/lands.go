package postgres

import (
	"context"
	"errors"

	"landmarket/internal/domain"

	"github.com/jackc/pgx/v5"
)

const landColumns = `id, owner_id, center_x, center_y, size, is_auctioned, auction_id, version, created_at, updated_at`

func scanLand(row pgx.Row) (*domain.LandParcel, error) {
	p := &domain.LandParcel{}
	err := row.Scan(&p.ID, &p.OwnerID, &p.CenterX, &p.CenterY, &p.Size, &p.IsAuctioned, &p.AuctionID,
		&p.Version, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (t *pgTx) GetLand(ctx context.Context, id string) (*domain.LandParcel, error) {
	p, err := scanLand(t.tx.QueryRow(ctx, `SELECT `+landColumns+` FROM lands WHERE id = $1 FOR UPDATE`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return p, err
}

func (t *pgTx) SaveLand(ctx context.Context, p *domain.LandParcel) error {
	p.Version++
	_, err := t.tx.Exec(ctx,
		`INSERT INTO lands (`+landColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (id) DO UPDATE SET
		   owner_id = EXCLUDED.owner_id,
		   center_x = EXCLUDED.center_x,
		   center_y = EXCLUDED.center_y,
		   size = EXCLUDED.size,
		   is_auctioned = EXCLUDED.is_auctioned,
		   auction_id = EXCLUDED.auction_id,
		   version = EXCLUDED.version,
		   updated_at = EXCLUDED.updated_at`,
		p.ID, p.OwnerID, p.CenterX, p.CenterY, p.Size, p.IsAuctioned, p.AuctionID, p.Version, p.CreatedAt, p.UpdatedAt,
	)
	return err
}

func (t *pgTx) DeleteLand(ctx context.Context, id string) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM lands WHERE id = $1`, id)
	return err
}

// ListLands returns every parcel, or only ownerID's when it is set. Overlap
// checks scan the whole table, so this read participates in serializable
// conflict detection.
func (t *pgTx) ListLands(ctx context.Context, ownerID string) ([]*domain.LandParcel, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if ownerID == "" {
		rows, err = t.tx.Query(ctx, `SELECT `+landColumns+` FROM lands ORDER BY id`)
	} else {
		rows, err = t.tx.Query(ctx, `SELECT `+landColumns+` FROM lands WHERE owner_id = $1 ORDER BY id`, ownerID)
	}
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.LandParcel
	for rows.Next() {
		p, err := scanLand(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
