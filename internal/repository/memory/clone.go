package memory

import (
	"fmt"
	"time"

	"landmarket/internal/domain"
)

func clone(v any) any {
	switch x := v.(type) {
	case *domain.Account:
		c := *x
		return &c
	case *domain.Transaction:
		c := *x
		return &c
	case *domain.Reward:
		c := *x
		c.ReversedAt = cloneTime(x.ReversedAt)
		return &c
	case *domain.Lock:
		c := *x
		return &c
	case *domain.LandParcel:
		c := *x
		return &c
	case *domain.Auction:
		c := *x
		if x.BuyNowPrice != nil {
			p := *x.BuyNowPrice
			c.BuyNowPrice = &p
		}
		c.BidHistory = append([]domain.Bid(nil), x.BidHistory...)
		c.EndedAt = cloneTime(x.EndedAt)
		return &c
	case *domain.Offer:
		c := *x
		if x.CounterOffer != nil {
			co := *x.CounterOffer
			c.CounterOffer = &co
		}
		c.RespondedAt = cloneTime(x.RespondedAt)
		return &c
	}
	panic(fmt.Sprintf("memory: unsupported record type %T", v))
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
