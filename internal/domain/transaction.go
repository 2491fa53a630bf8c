package domain

import "time"

// TransactionKind classifies a ledger entry.
type TransactionKind string

const (
	TxKindReward          TransactionKind = "reward"
	TxKindPenaltyReversal TransactionKind = "penalty_reversal"
	TxKindPurchase        TransactionKind = "purchase"
	TxKindTransferIn      TransactionKind = "transfer_in"
	TxKindTransferOut     TransactionKind = "transfer_out"
)

// TransactionMeta links a ledger entry to the thing that caused it.
type TransactionMeta struct {
	PostID         string `json:"post_id,omitempty"`
	CounterpartyID string `json:"counterparty_id,omitempty"`
	LockID         string `json:"lock_id,omitempty"`
	AuctionID      string `json:"auction_id,omitempty"`
	OfferID        string `json:"offer_id,omitempty"`
	LandID         string `json:"land_id,omitempty"`
}

// Transaction is an immutable ledger entry. Amount is signed: credits are
// positive, debits negative.
type Transaction struct {
	ID          string          `db:"id" json:"id"`
	AccountID   string          `db:"account_id" json:"account_id"`
	Kind        TransactionKind `db:"kind" json:"kind"`
	Amount      int64           `db:"amount" json:"amount"`
	Description string          `db:"description" json:"description"`
	Meta        TransactionMeta `db:"meta" json:"meta"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
}
