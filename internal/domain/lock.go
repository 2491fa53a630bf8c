package domain

import "time"

// LockStatus is the state of an escrow lock.
type LockStatus string

const (
	LockStatusLocked   LockStatus = "locked"
	LockStatusReleased LockStatus = "released"
	LockStatusUsed     LockStatus = "used"
)

// Lock purposes used by the marketplace.
const (
	LockPurposeAuctionBid = "auction_bid"
	LockPurposeOffer      = "offer"
	LockPurposeManual     = "manual"
)

// Lock is an amount removed from an account's balance and held for a pending
// commitment until it is released back or consumed by a transfer.
type Lock struct {
	ID        string     `db:"id" json:"id"`
	AccountID string     `db:"account_id" json:"account_id"`
	Amount    int64      `db:"amount" json:"amount"`
	Purpose   string     `db:"purpose" json:"purpose"`
	Reference string     `db:"reference" json:"reference,omitempty"`
	Status    LockStatus `db:"status" json:"status"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt time.Time  `db:"updated_at" json:"updated_at"`
}
