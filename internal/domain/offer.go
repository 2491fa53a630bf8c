package domain

import "time"

// OfferStatus is the lifecycle state of a direct-sale offer.
type OfferStatus string

const (
	OfferStatusPending   OfferStatus = "pending"
	OfferStatusAccepted  OfferStatus = "accepted"
	OfferStatusRejected  OfferStatus = "rejected"
	OfferStatusExpired   OfferStatus = "expired"
	OfferStatusCancelled OfferStatus = "cancelled"
)

// CounterOffer is the owner's proposed price for a pending offer.
type CounterOffer struct {
	Amount    int64     `json:"amount"`
	Message   string    `json:"message,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Offer is a buyer's proposal to purchase a parcel directly from its owner.
type Offer struct {
	ID           string        `db:"id" json:"id"`
	FromUserID   string        `db:"from_user_id" json:"from_user_id"`
	ToUserID     string        `db:"to_user_id" json:"to_user_id"`
	LandID       string        `db:"land_id" json:"land_id"`
	Amount       int64         `db:"amount" json:"amount"`
	Message      string        `db:"message" json:"message,omitempty"`
	Status       OfferStatus   `db:"status" json:"status"`
	CounterOffer *CounterOffer `db:"counter_offer" json:"counter_offer,omitempty"`
	LockID       string        `db:"lock_id" json:"-"`
	CreatedAt    time.Time     `db:"created_at" json:"created_at"`
	ExpiresAt    time.Time     `db:"expires_at" json:"expires_at"`
	RespondedAt  *time.Time    `db:"responded_at" json:"responded_at,omitempty"`
	Version      int64         `db:"version" json:"-"`
}

// OfferDirection selects offers a user sent or received.
type OfferDirection string

const (
	OfferDirectionSent     OfferDirection = "sent"
	OfferDirectionReceived OfferDirection = "received"
)
