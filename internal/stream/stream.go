// Package stream fans record changes out to real-time observers. Every change
// carries the full record, so a subscriber that misses one simply sees the
// next: delivery is at-least-once and latest-wins.
package stream

import (
	"context"
	"encoding/json"
	"time"
)

const (
	TopicLobby = "auctions"
)

func AccountTopic(id string) string { return "account:" + id }
func AuctionTopic(id string) string { return "auction:" + id }
func LandTopic(id string) string    { return "land:" + id }
func OffersTopic(userID string) string {
	return "offers:" + userID
}

// Change is one published record state.
type Change struct {
	Topic string          `json:"topic"`
	Type  string          `json:"type"`
	Data  json.RawMessage `json:"data"`
	At    time.Time       `json:"at"`
}

// NewChange marshals v as the change payload.
func NewChange(topic, typ string, v any, at time.Time) (Change, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return Change{}, err
	}
	return Change{Topic: topic, Type: typ, Data: b, At: at}, nil
}

// Broker publishes changes and hands out subscriptions.
type Broker interface {
	Publish(ctx context.Context, c Change) error
	Subscribe(topics ...string) *Subscription
}
