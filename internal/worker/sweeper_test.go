package worker

import (
	"context"
	"errors"
	"os"
	"sync/atomic"
	"testing"
	"time"

	"landmarket/internal/service"

	redis "github.com/redis/go-redis/v9"
)

type fakeAuctions struct {
	calls atomic.Int32
	err   error
}

func (f *fakeAuctions) ProcessAuctionEnd(ctx context.Context) (*service.AuctionSweepResult, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return &service.AuctionSweepResult{Ended: 1}, nil
}

type fakeOffers struct {
	calls atomic.Int32
}

func (f *fakeOffers) CleanupExpiredOffers(ctx context.Context) (int, error) {
	f.calls.Add(1)
	return 2, nil
}

func TestRunOnce(t *testing.T) {
	a, o := &fakeAuctions{}, &fakeOffers{}
	s := New(a, o, time.Minute)

	res, err := s.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if res.Auctions.Ended != 1 || res.OffersExpired != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestRunOnce_StopsOnAuctionError(t *testing.T) {
	a, o := &fakeAuctions{err: errors.New("boom")}, &fakeOffers{}
	s := New(a, o, time.Minute)

	if _, err := s.RunOnce(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if o.calls.Load() != 0 {
		t.Fatal("offer sweep ran after a failed auction sweep")
	}
}

func TestRun_TicksUntilCancelled(t *testing.T) {
	a, o := &fakeAuctions{}, &fakeOffers{}
	s := New(a, o, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for a.calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
	if a.calls.Load() < 3 {
		t.Fatalf("expected at least 3 ticks, got %d", a.calls.Load())
	}
}

// Integration-style test: runs only if REDIS_ADDR env is set.
func TestLease_OneInstanceSweeps(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set; skipping integration test")
	}
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	key := "landmarket:test:lease:" + time.Now().Format("150405.000000")
	defer client.Del(context.Background(), key)

	a1, a2 := &fakeAuctions{}, &fakeAuctions{}
	s1 := New(a1, &fakeOffers{}, time.Minute, WithLease(client, key))
	s2 := New(a2, &fakeOffers{}, time.Minute, WithLease(client, key))

	s1.tick(context.Background())
	s2.tick(context.Background())

	if a1.calls.Load() != 1 || a2.calls.Load() != 0 {
		t.Fatalf("expected only the first instance to sweep: %d, %d", a1.calls.Load(), a2.calls.Load())
	}
}
