package service

import (
	"context"

	"landmarket/internal/domain"
	"landmarket/internal/repository"
	"landmarket/internal/stream"

	"github.com/google/uuid"
)

// LedgerService handles all balance operations
type LedgerService struct {
	run *Runner
}

func NewLedgerService(run *Runner) *LedgerService {
	return &LedgerService{run: run}
}

// GetAccount returns the account, or a zero-balance view when it was never
// touched. Reads do not create accounts.
func (s *LedgerService) GetAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	if accountID == "" {
		return nil, domain.ErrValidation.Withf("account id is required")
	}
	var out *domain.Account
	err := s.run.Do(ctx, "ledger.get_account", func(ctx context.Context, tx repository.Tx, fx *Effects) error {
		a, err := tx.GetAccount(ctx, accountID)
		if err != nil {
			return err
		}
		if a == nil {
			a = domain.NewAccount(accountID, fx.Now)
		}
		out = a
		return nil
	})
	return out, err
}

// GetBalance returns the account's current balance.
func (s *LedgerService) GetBalance(ctx context.Context, accountID string) (int64, error) {
	a, err := s.GetAccount(ctx, accountID)
	if err != nil {
		return 0, err
	}
	return a.Balance, nil
}

// Credit adds amount to the account.
func (s *LedgerService) Credit(ctx context.Context, accountID string, amount int64, description string) (*domain.Transaction, error) {
	if accountID == "" {
		return nil, domain.ErrValidation.Withf("account id is required")
	}
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	var out *domain.Transaction
	err := s.run.Do(ctx, "ledger.credit", func(ctx context.Context, tx repository.Tx, fx *Effects) error {
		acct, err := ensureAccount(ctx, tx, fx, accountID)
		if err != nil {
			return err
		}
		out, err = credit(ctx, tx, fx, acct, amount, domain.TxKindTransferIn, description, domain.TransactionMeta{})
		return err
	})
	return out, err
}

// Debit removes amount from the account, failing when the balance is short.
func (s *LedgerService) Debit(ctx context.Context, accountID string, amount int64, description string) (*domain.Transaction, error) {
	if accountID == "" {
		return nil, domain.ErrValidation.Withf("account id is required")
	}
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	var out *domain.Transaction
	err := s.run.Do(ctx, "ledger.debit", func(ctx context.Context, tx repository.Tx, fx *Effects) error {
		acct, err := ensureAccount(ctx, tx, fx, accountID)
		if err != nil {
			return err
		}
		out, err = debit(ctx, tx, fx, acct, amount, domain.TxKindTransferOut, description, domain.TransactionMeta{})
		return err
	})
	return out, err
}

// TransferResult holds both legs of a transfer. Out is nil for system grants.
type TransferResult struct {
	Out *domain.Transaction `json:"out,omitempty"`
	In  *domain.Transaction `json:"in"`
}

// Transfer moves amount between accounts. An empty from grants the amount
// without a matching debit.
func (s *LedgerService) Transfer(ctx context.Context, from, to string, amount int64, description string) (*TransferResult, error) {
	if to == "" {
		return nil, domain.ErrValidation.Withf("recipient is required")
	}
	if from == to {
		return nil, domain.ErrValidation.Withf("cannot transfer to the same account")
	}
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}

	var out *TransferResult
	err := s.run.Do(ctx, "ledger.transfer", func(ctx context.Context, tx repository.Tx, fx *Effects) error {
		res := &TransferResult{}
		// load in id order to keep lock acquisition consistent
		accts, err := ensureAccounts(ctx, tx, fx, from, to)
		if err != nil {
			return err
		}
		if from != "" {
			res.Out, err = debit(ctx, tx, fx, accts[from], amount, domain.TxKindTransferOut, description,
				domain.TransactionMeta{CounterpartyID: to})
			if err != nil {
				return err
			}
		}
		res.In, err = credit(ctx, tx, fx, accts[to], amount, domain.TxKindTransferIn, description,
			domain.TransactionMeta{CounterpartyID: from})
		if err != nil {
			return err
		}
		out = res
		return nil
	})
	return out, err
}

// History returns the newest transactions of the account first.
func (s *LedgerService) History(ctx context.Context, accountID string, limit int) ([]*domain.Transaction, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	var out []*domain.Transaction
	err := s.run.Do(ctx, "ledger.history", func(ctx context.Context, tx repository.Tx, fx *Effects) error {
		var err error
		out, err = tx.ListTransactions(ctx, accountID, limit)
		return err
	})
	return out, err
}

// ensureAccount loads the account, creating it with a zero balance on first
// reference.
func ensureAccount(ctx context.Context, tx repository.Tx, fx *Effects, id string) (*domain.Account, error) {
	a, err := tx.GetAccount(ctx, id)
	if err != nil {
		return nil, err
	}
	if a != nil {
		return a, nil
	}
	a = domain.NewAccount(id, fx.Now)
	if err := tx.SaveAccount(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

// ensureAccounts loads several accounts in id order. Empty ids are skipped.
func ensureAccounts(ctx context.Context, tx repository.Tx, fx *Effects, ids ...string) (map[string]*domain.Account, error) {
	first, second := "", ""
	if len(ids) > 0 {
		first = ids[0]
	}
	if len(ids) > 1 {
		second = ids[1]
	}
	if first > second {
		first, second = second, first
	}
	out := make(map[string]*domain.Account, 2)
	for _, id := range []string{first, second} {
		if id == "" {
			continue
		}
		a, err := ensureAccount(ctx, tx, fx, id)
		if err != nil {
			return nil, err
		}
		out[id] = a
	}
	return out, nil
}

// credit adds amount to acct and records the ledger entry.
func credit(ctx context.Context, tx repository.Tx, fx *Effects, acct *domain.Account, amount int64, kind domain.TransactionKind, description string, meta domain.TransactionMeta) (*domain.Transaction, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	acct.Balance += amount
	return record(ctx, tx, fx, acct, amount, kind, description, meta)
}

// debit removes amount from acct and records the ledger entry.
func debit(ctx context.Context, tx repository.Tx, fx *Effects, acct *domain.Account, amount int64, kind domain.TransactionKind, description string, meta domain.TransactionMeta) (*domain.Transaction, error) {
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if acct.Balance < amount {
		return nil, domain.ErrInsufficientFunds.Withf("insufficient funds: balance %d, need %d", acct.Balance, amount)
	}
	acct.Balance -= amount
	return record(ctx, tx, fx, acct, -amount, kind, description, meta)
}

// record persists acct with its already applied delta and appends the
// matching transaction.
func record(ctx context.Context, tx repository.Tx, fx *Effects, acct *domain.Account, delta int64, kind domain.TransactionKind, description string, meta domain.TransactionMeta) (*domain.Transaction, error) {
	acct.UpdatedAt = fx.Now
	if err := tx.SaveAccount(ctx, acct); err != nil {
		return nil, err
	}
	t := &domain.Transaction{
		ID:          uuid.NewString(),
		AccountID:   acct.ID,
		Kind:        kind,
		Amount:      delta,
		Description: description,
		Meta:        meta,
		CreatedAt:   fx.Now,
	}
	if err := tx.InsertTransaction(ctx, t); err != nil {
		return nil, err
	}

	fx.movements = append(fx.movements, kind)
	fx.Publish(stream.AccountTopic(acct.ID), "account", acct)
	fx.Journal("ledger."+string(kind), acct.ID, meta.CounterpartyID, delta, t)
	return t, nil
}
