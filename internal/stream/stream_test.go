package stream

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	redis "github.com/redis/go-redis/v9"
)

func mustChange(t *testing.T, topic string, v any) Change {
	t.Helper()
	c, err := NewChange(topic, "test", v, time.Unix(0, 0))
	if err != nil {
		t.Fatal(err)
	}
	return c
}

func TestLocal_DeliversToTopicSubscribers(t *testing.T) {
	b := NewLocal(4)
	acct := b.Subscribe(AccountTopic("a"))
	defer acct.Close()
	lobby := b.Subscribe(TopicLobby, AuctionTopic("x"))
	defer lobby.Close()

	_ = b.Publish(context.Background(), mustChange(t, AccountTopic("a"), map[string]int{"balance": 5}))
	_ = b.Publish(context.Background(), mustChange(t, AuctionTopic("x"), map[string]int{"current_bid": 10}))

	select {
	case c := <-acct.C:
		var got map[string]int
		_ = json.Unmarshal(c.Data, &got)
		if got["balance"] != 5 {
			t.Fatalf("unexpected payload %s", c.Data)
		}
	default:
		t.Fatal("account subscriber got nothing")
	}
	select {
	case c := <-lobby.C:
		if c.Topic != AuctionTopic("x") {
			t.Fatalf("unexpected topic %s", c.Topic)
		}
	default:
		t.Fatal("auction subscriber got nothing")
	}
	select {
	case c := <-acct.C:
		t.Fatalf("account subscriber got foreign change %s", c.Topic)
	default:
	}
}

func TestLocal_CloseStopsDelivery(t *testing.T) {
	b := NewLocal(4)
	s := b.Subscribe("t")
	s.Close()
	s.Close()

	if n := b.Subscribers("t"); n != 0 {
		t.Fatalf("expected no subscribers, got %d", n)
	}
	if err := b.Publish(context.Background(), mustChange(t, "t", 1)); err != nil {
		t.Fatal(err)
	}
	if _, ok := <-s.C; ok {
		t.Fatal("expected closed channel")
	}
}

func TestLocal_FullBufferKeepsLatest(t *testing.T) {
	b := NewLocal(2)
	s := b.Subscribe("t")
	defer s.Close()

	for i := 1; i <= 5; i++ {
		_ = b.Publish(context.Background(), mustChange(t, "t", i))
	}

	var last int
	for i := 0; i < 2; i++ {
		c := <-s.C
		_ = json.Unmarshal(c.Data, &last)
	}
	if last != 5 {
		t.Fatalf("expected latest change 5, got %d", last)
	}
}

func TestRedis_RoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set; skipping redis stream test")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	local := NewLocal(8)
	r := NewRedis(client, "landmarket:stream:test", local, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = r.Run(ctx) }()

	s := r.Subscribe(LandTopic("0_0"))
	defer s.Close()
	time.Sleep(200 * time.Millisecond)

	if err := r.Publish(ctx, mustChange(t, LandTopic("0_0"), map[string]string{"owner_id": "a"})); err != nil {
		t.Fatal(err)
	}
	select {
	case c := <-s.C:
		if c.Topic != LandTopic("0_0") {
			t.Fatalf("unexpected topic %s", c.Topic)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for change")
	}
}
