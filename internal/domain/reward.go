package domain

import (
	"strings"
	"time"
)

// InteractionKind is a social action that earns coins.
type InteractionKind string

const (
	InteractionLike    InteractionKind = "like"
	InteractionComment InteractionKind = "comment"
	InteractionPost    InteractionKind = "post"
)

// Valid reports whether k is a known interaction.
func (k InteractionKind) Valid() bool {
	switch k {
	case InteractionLike, InteractionComment, InteractionPost:
		return true
	}
	return false
}

// RewardKey identifies one rewarded interaction: the idempotency key of the
// reward engine.
type RewardKey struct {
	BeneficiaryID string
	ActorID       string
	PostID        string
	Kind          InteractionKind
}

// String renders the key as a stable storage key.
func (k RewardKey) String() string {
	return strings.Join([]string{string(k.Kind), k.BeneficiaryID, k.ActorID, k.PostID}, "|")
}

// Reward records that an interaction was paid out, and whether it was taken
// back. A reward row is never deleted, so an interaction is paid at most once.
type Reward struct {
	Key                   string          `db:"key" json:"key"`
	BeneficiaryID         string          `db:"beneficiary_id" json:"beneficiary_id"`
	ActorID               string          `db:"actor_id" json:"actor_id"`
	PostID                string          `db:"post_id" json:"post_id"`
	Kind                  InteractionKind `db:"kind" json:"kind"`
	Amount                int64           `db:"amount" json:"amount"`
	TransactionID         string          `db:"transaction_id" json:"transaction_id"`
	Reversed              bool            `db:"reversed" json:"reversed"`
	ReversalTransactionID string          `db:"reversal_transaction_id" json:"reversal_transaction_id,omitempty"`
	CreatedAt             time.Time       `db:"created_at" json:"created_at"`
	ReversedAt            *time.Time      `db:"reversed_at" json:"reversed_at,omitempty"`
}
