package domain

import "time"

// LifetimeStats counts social interactions an account has been rewarded for.
type LifetimeStats struct {
	LikesReceived    int64 `db:"likes_received" json:"likes_received"`
	CommentsReceived int64 `db:"comments_received" json:"comments_received"`
	PostsShared      int64 `db:"posts_shared" json:"posts_shared"`
}

// Account holds a user's spendable coin balance. Funds held in escrow are not
// part of Balance.
type Account struct {
	ID            string        `db:"id" json:"id"`
	Balance       int64         `db:"balance" json:"balance"`
	TotalEarned   int64         `db:"total_earned" json:"total_earned"`
	LifetimeStats LifetimeStats `json:"lifetime_stats"`
	Version       int64         `db:"version" json:"-"`
	CreatedAt     time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time     `db:"updated_at" json:"updated_at"`
}

// NewAccount returns an empty account, used when an id is first referenced.
func NewAccount(id string, now time.Time) *Account {
	return &Account{ID: id, CreatedAt: now, UpdatedAt: now}
}
