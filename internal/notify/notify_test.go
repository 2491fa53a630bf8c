package notify

import (
	"context"
	"errors"
	"testing"
)

type failing struct{}

func (failing) Notify(context.Context, Event) error { return errors.New("sink down") }

func TestFanout_DeliversToAllAndJoinsErrors(t *testing.T) {
	rec := &Recorder{}
	f := Fanout{failing{}, rec, NewLog(nil)}

	err := f.Notify(context.Background(), Event{Type: OfferReceived, UserID: "owner"})
	if err == nil {
		t.Fatal("expected joined error")
	}
	if got := rec.For("owner", OfferReceived); len(got) != 1 {
		t.Fatalf("recorder missed event after failing sink: %d", len(got))
	}
}
