package service

import (
	"errors"
	"sync"
	"testing"
	"time"

	"landmarket/internal/domain"
	"landmarket/internal/stream"
)

func TestLedger_CreditDebit(t *testing.T) {
	h := newHarness(t)

	if _, err := h.ledger.Credit(h.ctx, "alice", 100, "seed"); err != nil {
		t.Fatalf("credit: %v", err)
	}
	tr, err := h.ledger.Debit(h.ctx, "alice", 30, "spend")
	if err != nil {
		t.Fatalf("debit: %v", err)
	}
	if tr.Amount != -30 || tr.Kind != domain.TxKindTransferOut {
		t.Fatalf("unexpected debit transaction %+v", tr)
	}
	h.expectBalance("alice", 70)

	_, err = h.ledger.Debit(h.ctx, "alice", 100, "too much")
	expectErr(t, err, domain.ErrInsufficientFunds)
	h.expectBalance("alice", 70)

	_, err = h.ledger.Credit(h.ctx, "alice", 0, "zero")
	expectErr(t, err, domain.ErrInvalidAmount)
	expectErr(t, err, domain.ErrValidation)
}

func TestLedger_UnknownAccountReadsZero(t *testing.T) {
	h := newHarness(t)
	h.expectBalance("nobody", 0)

	_, err := h.ledger.Debit(h.ctx, "nobody", 1, "x")
	expectErr(t, err, domain.ErrInsufficientFunds)
}

func TestLedger_Transfer(t *testing.T) {
	h := newHarness(t)
	h.fund("alice", 50)

	res, err := h.ledger.Transfer(h.ctx, "alice", "bob", 20, "gift")
	if err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if res.Out.Meta.CounterpartyID != "bob" || res.In.Meta.CounterpartyID != "alice" {
		t.Fatalf("legs not linked: %+v %+v", res.Out, res.In)
	}
	h.expectBalance("alice", 30)
	h.expectBalance("bob", 20)

	grant, err := h.ledger.Transfer(h.ctx, "", "carol", 5, "system grant")
	if err != nil {
		t.Fatalf("grant: %v", err)
	}
	if grant.Out != nil {
		t.Fatalf("grant should have no debit leg")
	}
	h.expectBalance("carol", 5)

	_, err = h.ledger.Transfer(h.ctx, "alice", "bob", 1000, "too much")
	expectErr(t, err, domain.ErrInsufficientFunds)
	h.expectBalance("alice", 30)
	h.expectBalance("bob", 20)

	_, err = h.ledger.Transfer(h.ctx, "alice", "alice", 1, "self")
	expectErr(t, err, domain.ErrValidation)
}

func TestLedger_HistoryNewestFirst(t *testing.T) {
	h := newHarness(t)
	h.fund("alice", 10)
	h.clock.Advance(time.Minute)
	if _, err := h.ledger.Debit(h.ctx, "alice", 3, "coffee"); err != nil {
		t.Fatal(err)
	}

	hist, err := h.ledger.History(h.ctx, "alice", 10)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(hist) != 2 {
		t.Fatalf("expected 2 transactions, got %d", len(hist))
	}
	if hist[0].Amount != -3 || hist[1].Amount != 10 {
		t.Fatalf("unexpected order: %d, %d", hist[0].Amount, hist[1].Amount)
	}
}

func TestLedger_PublishesAccountChanges(t *testing.T) {
	h := newHarness(t)
	sub := h.broker.Subscribe(stream.AccountTopic("alice"))
	defer sub.Close()

	h.fund("alice", 10)

	select {
	case c := <-sub.C:
		if c.Type != "account" {
			t.Fatalf("unexpected change type %q", c.Type)
		}
	default:
		t.Fatal("no account change published")
	}
}

func TestLedger_ConcurrentDebitsNeverOverdraw(t *testing.T) {
	h := newHarness(t)
	h.fund("alice", 100)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int64
	)
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := h.ledger.Debit(h.ctx, "alice", 7, "race")
			switch {
			case err == nil:
				mu.Lock()
				succeeded++
				mu.Unlock()
			case errors.Is(err, domain.ErrInsufficientFunds), errors.Is(err, domain.ErrContention):
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded > 14 {
		t.Fatalf("%d debits of 7 succeeded against a balance of 100", succeeded)
	}
	h.expectBalance("alice", 100-7*succeeded)
}
