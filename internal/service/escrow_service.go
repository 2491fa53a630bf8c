package service

import (
	"context"

	"landmarket/internal/domain"
	"landmarket/internal/repository"

	"github.com/google/uuid"
)

// EscrowService exposes fund locks for manual holds. Auction bids and offers
// use the same primitives from inside their own transactions.
type EscrowService struct {
	run *Runner
}

func NewEscrowService(run *Runner) *EscrowService {
	return &EscrowService{run: run}
}

// LockFunds moves amount out of the spendable balance into a new lock.
func (s *EscrowService) LockFunds(ctx context.Context, accountID string, amount int64, purpose string) (*domain.Lock, error) {
	if accountID == "" {
		return nil, domain.ErrValidation.Withf("account id is required")
	}
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if purpose == "" {
		purpose = domain.LockPurposeManual
	}
	var out *domain.Lock
	err := s.run.Do(ctx, "escrow.lock", func(ctx context.Context, tx repository.Tx, fx *Effects) error {
		var err error
		out, err = lockFunds(ctx, tx, fx, accountID, amount, purpose, "")
		return err
	})
	return out, err
}

// ReleaseFunds returns a manual lock to its owner.
func (s *EscrowService) ReleaseFunds(ctx context.Context, actorID, lockID string) (*domain.Lock, error) {
	var out *domain.Lock
	err := s.run.Do(ctx, "escrow.release", func(ctx context.Context, tx repository.Tx, fx *Effects) error {
		l, err := s.ownedManualLock(ctx, tx, actorID, lockID)
		if err != nil {
			return err
		}
		out, err = releaseLock(ctx, tx, fx, l.ID)
		return err
	})
	return out, err
}

// TransferFunds pays a manual lock out to another account.
func (s *EscrowService) TransferFunds(ctx context.Context, actorID, lockID, toAccountID, description string) (*domain.Transaction, error) {
	if toAccountID == "" {
		return nil, domain.ErrValidation.Withf("recipient is required")
	}
	var out *domain.Transaction
	err := s.run.Do(ctx, "escrow.transfer", func(ctx context.Context, tx repository.Tx, fx *Effects) error {
		l, err := s.ownedManualLock(ctx, tx, actorID, lockID)
		if err != nil {
			return err
		}
		_, out, err = consumeLock(ctx, tx, fx, l.ID, toAccountID, description, domain.TransactionMeta{})
		return err
	})
	return out, err
}

// GetLock returns a lock visible to its owner.
func (s *EscrowService) GetLock(ctx context.Context, actorID, lockID string) (*domain.Lock, error) {
	var out *domain.Lock
	err := s.run.Do(ctx, "escrow.get", func(ctx context.Context, tx repository.Tx, fx *Effects) error {
		l, err := tx.GetLock(ctx, lockID)
		if err != nil {
			return err
		}
		if l == nil {
			return repository.NotFound("lock", lockID)
		}
		if l.AccountID != actorID {
			return domain.ErrNotAuthorized.Withf("lock belongs to another account")
		}
		out = l
		return nil
	})
	return out, err
}

func (s *EscrowService) ownedManualLock(ctx context.Context, tx repository.Tx, actorID, lockID string) (*domain.Lock, error) {
	l, err := tx.GetLock(ctx, lockID)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, repository.NotFound("lock", lockID)
	}
	if l.AccountID != actorID {
		return nil, domain.ErrNotAuthorized.Withf("lock belongs to another account")
	}
	if l.Purpose != domain.LockPurposeManual {
		return nil, domain.ErrNotAuthorized.Withf("lock is held by a %s and cannot be moved manually", l.Purpose)
	}
	return l, nil
}

// lockFunds debits the account and records a lock in the same transaction.
func lockFunds(ctx context.Context, tx repository.Tx, fx *Effects, accountID string, amount int64, purpose, reference string) (*domain.Lock, error) {
	acct, err := ensureAccount(ctx, tx, fx, accountID)
	if err != nil {
		return nil, err
	}
	l := &domain.Lock{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Amount:    amount,
		Purpose:   purpose,
		Reference: reference,
		Status:    domain.LockStatusLocked,
		CreatedAt: fx.Now,
		UpdatedAt: fx.Now,
	}
	if _, err := debit(ctx, tx, fx, acct, amount, domain.TxKindTransferOut, "funds locked: "+purpose,
		domain.TransactionMeta{LockID: l.ID}); err != nil {
		return nil, err
	}
	if err := tx.SaveLock(ctx, l); err != nil {
		return nil, err
	}
	fx.Journal("escrow.lock", l.ID, accountID, amount, l)
	return l, nil
}

func heldLock(ctx context.Context, tx repository.Tx, lockID string) (*domain.Lock, error) {
	l, err := tx.GetLock(ctx, lockID)
	if err != nil {
		return nil, err
	}
	if l == nil {
		return nil, repository.NotFound("lock", lockID)
	}
	if l.Status != domain.LockStatusLocked {
		return nil, domain.ErrLockNotHeld.Withf("lock %s is %s", l.ID, l.Status)
	}
	return l, nil
}

// releaseLock credits a held lock back to its owner.
func releaseLock(ctx context.Context, tx repository.Tx, fx *Effects, lockID string) (*domain.Lock, error) {
	l, err := heldLock(ctx, tx, lockID)
	if err != nil {
		return nil, err
	}
	acct, err := ensureAccount(ctx, tx, fx, l.AccountID)
	if err != nil {
		return nil, err
	}
	if _, err := credit(ctx, tx, fx, acct, l.Amount, domain.TxKindTransferIn, "funds released: "+l.Purpose,
		domain.TransactionMeta{LockID: l.ID}); err != nil {
		return nil, err
	}
	l.Status = domain.LockStatusReleased
	l.UpdatedAt = fx.Now
	if err := tx.SaveLock(ctx, l); err != nil {
		return nil, err
	}
	fx.Journal("escrow.release", l.ID, l.AccountID, l.Amount, nil)
	return l, nil
}

// releaseIfHeld releases lockID when it is still locked and ignores it
// otherwise.
func releaseIfHeld(ctx context.Context, tx repository.Tx, fx *Effects, lockID string) error {
	if lockID == "" {
		return nil
	}
	l, err := tx.GetLock(ctx, lockID)
	if err != nil {
		return err
	}
	if l == nil || l.Status != domain.LockStatusLocked {
		return nil
	}
	_, err = releaseLock(ctx, tx, fx, lockID)
	return err
}

// resizeLock moves a held lock to amount. A shrink is refunded to the owner
// as its own ledger entry and a growth is charged to the owner.
func resizeLock(ctx context.Context, tx repository.Tx, fx *Effects, lockID string, amount int64, description string, meta domain.TransactionMeta) (*domain.Lock, error) {
	l, err := heldLock(ctx, tx, lockID)
	if err != nil {
		return nil, err
	}
	if amount <= 0 {
		return nil, domain.ErrInvalidAmount
	}
	if amount == l.Amount {
		return l, nil
	}
	acct, err := ensureAccount(ctx, tx, fx, l.AccountID)
	if err != nil {
		return nil, err
	}
	meta.LockID = l.ID
	if diff := l.Amount - amount; diff > 0 {
		_, err = credit(ctx, tx, fx, acct, diff, domain.TxKindTransferIn, "refund: "+description, meta)
	} else {
		_, err = debit(ctx, tx, fx, acct, -diff, domain.TxKindTransferOut, "funds locked: "+description, meta)
	}
	if err != nil {
		return nil, err
	}
	fx.Journal("escrow.resize", l.ID, l.AccountID, amount-l.Amount, nil)
	l.Amount = amount
	l.UpdatedAt = fx.Now
	if err := tx.SaveLock(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

// consumeLock pays a held lock out to toAccountID. The owner was already
// debited when the lock was taken.
func consumeLock(ctx context.Context, tx repository.Tx, fx *Effects, lockID, toAccountID, description string, meta domain.TransactionMeta) (*domain.Lock, *domain.Transaction, error) {
	l, err := heldLock(ctx, tx, lockID)
	if err != nil {
		return nil, nil, err
	}
	to, err := ensureAccount(ctx, tx, fx, toAccountID)
	if err != nil {
		return nil, nil, err
	}
	meta.LockID = l.ID
	meta.CounterpartyID = l.AccountID
	t, err := credit(ctx, tx, fx, to, l.Amount, domain.TxKindTransferIn, description, meta)
	if err != nil {
		return nil, nil, err
	}
	l.Status = domain.LockStatusUsed
	l.UpdatedAt = fx.Now
	if err := tx.SaveLock(ctx, l); err != nil {
		return nil, nil, err
	}
	fx.Journal("escrow.consume", l.ID, toAccountID, l.Amount, nil)
	return l, t, nil
}
