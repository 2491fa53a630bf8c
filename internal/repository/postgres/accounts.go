package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"landmarket/internal/domain"

	"github.com/jackc/pgx/v5"
)

func (t *pgTx) GetAccount(ctx context.Context, id string) (*domain.Account, error) {
	a := &domain.Account{}
	err := t.tx.QueryRow(ctx,
		`SELECT id, balance, total_earned, likes_received, comments_received, posts_shared, version, created_at, updated_at
		 FROM accounts WHERE id = $1 FOR UPDATE`,
		id,
	).Scan(&a.ID, &a.Balance, &a.TotalEarned, &a.LifetimeStats.LikesReceived, &a.LifetimeStats.CommentsReceived,
		&a.LifetimeStats.PostsShared, &a.Version, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (t *pgTx) SaveAccount(ctx context.Context, a *domain.Account) error {
	a.Version++
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = a.CreatedAt
	}
	_, err := t.tx.Exec(ctx,
		`INSERT INTO accounts (id, balance, total_earned, likes_received, comments_received, posts_shared, version, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (id) DO UPDATE SET
		   balance = EXCLUDED.balance,
		   total_earned = EXCLUDED.total_earned,
		   likes_received = EXCLUDED.likes_received,
		   comments_received = EXCLUDED.comments_received,
		   posts_shared = EXCLUDED.posts_shared,
		   version = EXCLUDED.version,
		   updated_at = EXCLUDED.updated_at`,
		a.ID, a.Balance, a.TotalEarned, a.LifetimeStats.LikesReceived, a.LifetimeStats.CommentsReceived,
		a.LifetimeStats.PostsShared, a.Version, a.CreatedAt, a.UpdatedAt,
	)
	return err
}

func (t *pgTx) InsertTransaction(ctx context.Context, tr *domain.Transaction) error {
	metaJSON, err := json.Marshal(tr.Meta)
	if err != nil {
		metaJSON = []byte("{}")
	}
	_, err = t.tx.Exec(ctx,
		`INSERT INTO transactions (id, account_id, kind, amount, description, meta, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		tr.ID, tr.AccountID, string(tr.Kind), tr.Amount, tr.Description, metaJSON, tr.CreatedAt,
	)
	return err
}

// ListTransactions returns the newest transactions of an account first.
func (t *pgTx) ListTransactions(ctx context.Context, accountID string, limit int) ([]*domain.Transaction, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := t.tx.Query(ctx,
		`SELECT id, account_id, kind, amount, description, meta, created_at
		 FROM transactions
		 WHERE account_id = $1
		 ORDER BY created_at DESC, id DESC
		 LIMIT $2`,
		accountID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Transaction
	for rows.Next() {
		tr := &domain.Transaction{}
		var kind string
		var metaJSON []byte
		if err := rows.Scan(&tr.ID, &tr.AccountID, &kind, &tr.Amount, &tr.Description, &metaJSON, &tr.CreatedAt); err != nil {
			return nil, err
		}
		tr.Kind = domain.TransactionKind(kind)
		if len(metaJSON) > 0 {
			_ = json.Unmarshal(metaJSON, &tr.Meta)
		}
		out = append(out, tr)
	}
	return out, rows.Err()
}

func (t *pgTx) GetReward(ctx context.Context, key string) (*domain.Reward, error) {
	r := &domain.Reward{}
	var kind string
	err := t.tx.QueryRow(ctx,
		`SELECT key, beneficiary_id, actor_id, post_id, kind, amount, transaction_id, reversed,
		        reversal_transaction_id, created_at, reversed_at
		 FROM rewards WHERE key = $1 FOR UPDATE`,
		key,
	).Scan(&r.Key, &r.BeneficiaryID, &r.ActorID, &r.PostID, &kind, &r.Amount, &r.TransactionID, &r.Reversed,
		&r.ReversalTransactionID, &r.CreatedAt, &r.ReversedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	r.Kind = domain.InteractionKind(kind)
	return r, nil
}

func (t *pgTx) SaveReward(ctx context.Context, r *domain.Reward) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO rewards (key, beneficiary_id, actor_id, post_id, kind, amount, transaction_id, reversed,
		                      reversal_transaction_id, created_at, reversed_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		 ON CONFLICT (key) DO UPDATE SET
		   reversed = EXCLUDED.reversed,
		   reversal_transaction_id = EXCLUDED.reversal_transaction_id,
		   reversed_at = EXCLUDED.reversed_at`,
		r.Key, r.BeneficiaryID, r.ActorID, r.PostID, string(r.Kind), r.Amount, r.TransactionID, r.Reversed,
		r.ReversalTransactionID, r.CreatedAt, r.ReversedAt,
	)
	return err
}

func (t *pgTx) GetLock(ctx context.Context, id string) (*domain.Lock, error) {
	l := &domain.Lock{}
	var status string
	err := t.tx.QueryRow(ctx,
		`SELECT id, account_id, amount, purpose, reference, status, created_at, updated_at
		 FROM locks WHERE id = $1 FOR UPDATE`,
		id,
	).Scan(&l.ID, &l.AccountID, &l.Amount, &l.Purpose, &l.Reference, &status, &l.CreatedAt, &l.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	l.Status = domain.LockStatus(status)
	return l, nil
}

func (t *pgTx) SaveLock(ctx context.Context, l *domain.Lock) error {
	_, err := t.tx.Exec(ctx,
		`INSERT INTO locks (id, account_id, amount, purpose, reference, status, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 ON CONFLICT (id) DO UPDATE SET
		   amount = EXCLUDED.amount,
		   status = EXCLUDED.status,
		   updated_at = EXCLUDED.updated_at`,
		l.ID, l.AccountID, l.Amount, l.Purpose, l.Reference, string(l.Status), l.CreatedAt, l.UpdatedAt,
	)
	return err
}
