package domain

import "time"

// AuctionStatus is the lifecycle state of an auction.
type AuctionStatus string

const (
	AuctionStatusPending   AuctionStatus = "pending"
	AuctionStatusActive    AuctionStatus = "active"
	AuctionStatusEnded     AuctionStatus = "ended"
	AuctionStatusCancelled AuctionStatus = "cancelled"
)

// Terminal reports whether no further transitions are possible.
func (s AuctionStatus) Terminal() bool {
	return s == AuctionStatusEnded || s == AuctionStatusCancelled
}

// Bid is one entry of an auction's bid history.
type Bid struct {
	BidderID  string    `json:"bidder_id"`
	Amount    int64     `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}

// Auction lists one land parcel for competitive bidding.
type Auction struct {
	ID               string        `db:"id" json:"id"`
	LandID           string        `db:"land_id" json:"land_id"`
	OwnerID          string        `db:"owner_id" json:"owner_id"`
	Status           AuctionStatus `db:"status" json:"status"`
	StartingPrice    int64         `db:"starting_price" json:"starting_price"`
	CurrentBid       int64         `db:"current_bid" json:"current_bid"`
	BuyNowPrice      *int64        `db:"buy_now_price" json:"buy_now_price,omitempty"`
	HighestBidderID  string        `db:"highest_bidder_id" json:"highest_bidder_id,omitempty"`
	HighestBidLockID string        `db:"highest_bid_lock_id" json:"-"`
	BidHistory       []Bid         `db:"bid_history" json:"bid_history"`
	StartTime        time.Time     `db:"start_time" json:"start_time"`
	EndTime          time.Time     `db:"end_time" json:"end_time"`
	EndedAt          *time.Time    `db:"ended_at" json:"ended_at,omitempty"`
	Version          int64         `db:"version" json:"-"`
	CreatedAt        time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time     `db:"updated_at" json:"updated_at"`
}
