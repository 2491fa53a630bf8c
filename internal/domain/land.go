package domain

import (
	"fmt"
	"time"
)

// LandParcel is a square plot of canvas owned by one user. Size is odd so the
// parcel is symmetric around its integer center.
//
// ID is fixed when the parcel is bought and equals LandID of the purchase
// center. A merge moves the center of the surviving parcel but keeps its ID,
// so a merged parcel is not found by LandID(CenterX, CenterY).
type LandParcel struct {
	ID          string    `db:"id" json:"id"`
	OwnerID     string    `db:"owner_id" json:"owner_id"`
	CenterX     int       `db:"center_x" json:"center_x"`
	CenterY     int       `db:"center_y" json:"center_y"`
	Size        int       `db:"size" json:"size"`
	IsAuctioned bool      `db:"is_auctioned" json:"is_auctioned"`
	AuctionID   string    `db:"auction_id" json:"auction_id,omitempty"`
	Version     int64     `db:"version" json:"-"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// LandID builds the id of a parcel bought at the given center.
func LandID(centerX, centerY int) string {
	return fmt.Sprintf("%d_%d", centerX, centerY)
}
