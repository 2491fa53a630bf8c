package service

import (
	"context"
	"fmt"

	"landmarket/internal/config"
	"landmarket/internal/domain"
	"landmarket/internal/repository"
)

// RewardService grants and reverses coins for social interactions. Every
// grant leaves a Reward record keyed by (kind, beneficiary, actor, post),
// which makes grants idempotent and lets a reversal happen at most once.
type RewardService struct {
	run   *Runner
	rates config.RewardRates
}

func NewRewardService(run *Runner, rates config.RewardRates) *RewardService {
	return &RewardService{run: run, rates: rates}
}

// RewardResult reports what an award or reversal call changed.
type RewardResult struct {
	Applied     bool                `json:"applied"`
	Amount      int64               `json:"amount"`
	Balance     int64               `json:"balance"`
	Transaction *domain.Transaction `json:"transaction,omitempty"`
}

func (s *RewardService) AwardLike(ctx context.Context, authorID, likerID, postID string) (*RewardResult, error) {
	return s.AwardInteraction(ctx, authorID, likerID, postID, domain.InteractionLike)
}

func (s *RewardService) RemoveLike(ctx context.Context, authorID, likerID, postID string) (*RewardResult, error) {
	return s.ReverseInteraction(ctx, authorID, likerID, postID, domain.InteractionLike)
}

func (s *RewardService) AwardComment(ctx context.Context, authorID, commenterID, postID string) (*RewardResult, error) {
	return s.AwardInteraction(ctx, authorID, commenterID, postID, domain.InteractionComment)
}

func (s *RewardService) RemoveComment(ctx context.Context, authorID, commenterID, postID string) (*RewardResult, error) {
	return s.ReverseInteraction(ctx, authorID, commenterID, postID, domain.InteractionComment)
}

func (s *RewardService) AwardPostCreation(ctx context.Context, userID, postID string) (*RewardResult, error) {
	return s.AwardInteraction(ctx, userID, userID, postID, domain.InteractionPost)
}

func (s *RewardService) RemovePostCreation(ctx context.Context, userID, postID string) (*RewardResult, error) {
	return s.ReverseInteraction(ctx, userID, userID, postID, domain.InteractionPost)
}

func (s *RewardService) validate(beneficiary, actor, postID string, kind domain.InteractionKind) error {
	if !kind.Valid() {
		return domain.ErrValidation.Withf("unknown interaction kind %q", kind)
	}
	if beneficiary == "" || actor == "" || postID == "" {
		return domain.ErrValidation.Withf("beneficiary, actor and post id are required")
	}
	if kind != domain.InteractionPost && beneficiary == actor {
		return domain.ErrValidation.Withf("cannot %s your own post", kind)
	}
	return nil
}

// AwardInteraction credits the beneficiary once per interaction. A repeated
// call, including one after the reward was reversed, returns Applied=false.
func (s *RewardService) AwardInteraction(ctx context.Context, beneficiary, actor, postID string, kind domain.InteractionKind) (*RewardResult, error) {
	if err := s.validate(beneficiary, actor, postID, kind); err != nil {
		return nil, err
	}
	key := domain.RewardKey{BeneficiaryID: beneficiary, ActorID: actor, PostID: postID, Kind: kind}
	rate := s.rates.Rate(kind)

	var out *RewardResult
	err := s.run.Do(ctx, "reward.award", func(ctx context.Context, tx repository.Tx, fx *Effects) error {
		existing, err := tx.GetReward(ctx, key.String())
		if err != nil {
			return err
		}
		acct, err := ensureAccount(ctx, tx, fx, beneficiary)
		if err != nil {
			return err
		}
		if existing != nil {
			out = &RewardResult{Applied: false, Amount: 0, Balance: acct.Balance}
			return nil
		}

		bumpStat(&acct.LifetimeStats, kind, 1)
		acct.TotalEarned += rate
		t, err := credit(ctx, tx, fx, acct, rate, domain.TxKindReward, fmt.Sprintf("%s reward", kind),
			domain.TransactionMeta{PostID: postID, CounterpartyID: actor})
		if err != nil {
			return err
		}

		r := &domain.Reward{
			Key:           key.String(),
			BeneficiaryID: beneficiary,
			ActorID:       actor,
			PostID:        postID,
			Kind:          kind,
			Amount:        rate,
			TransactionID: t.ID,
			CreatedAt:     fx.Now,
		}
		if err := tx.SaveReward(ctx, r); err != nil {
			return err
		}
		out = &RewardResult{Applied: true, Amount: rate, Balance: acct.Balance, Transaction: t}
		return nil
	})
	return out, err
}

// ReverseInteraction takes back a granted reward. The debit is clamped so
// the balance never drops below zero. Missing or already reversed rewards
// make the call a no-op with Applied=false.
func (s *RewardService) ReverseInteraction(ctx context.Context, beneficiary, actor, postID string, kind domain.InteractionKind) (*RewardResult, error) {
	if err := s.validate(beneficiary, actor, postID, kind); err != nil {
		return nil, err
	}
	key := domain.RewardKey{BeneficiaryID: beneficiary, ActorID: actor, PostID: postID, Kind: kind}

	var out *RewardResult
	err := s.run.Do(ctx, "reward.reverse", func(ctx context.Context, tx repository.Tx, fx *Effects) error {
		r, err := tx.GetReward(ctx, key.String())
		if err != nil {
			return err
		}
		if r == nil || r.Reversed {
			var balance int64
			if acct, err := tx.GetAccount(ctx, beneficiary); err != nil {
				return err
			} else if acct != nil {
				balance = acct.Balance
			}
			out = &RewardResult{Applied: false, Balance: balance}
			return nil
		}

		acct, err := ensureAccount(ctx, tx, fx, beneficiary)
		if err != nil {
			return err
		}
		take := min(acct.Balance, r.Amount)
		bumpStat(&acct.LifetimeStats, kind, -1)
		acct.TotalEarned = max(0, acct.TotalEarned-r.Amount)
		acct.Balance -= take

		t, err := record(ctx, tx, fx, acct, -take, domain.TxKindPenaltyReversal, fmt.Sprintf("%s reward reversed", kind),
			domain.TransactionMeta{PostID: postID, CounterpartyID: actor})
		if err != nil {
			return err
		}

		now := fx.Now
		r.Reversed = true
		r.ReversalTransactionID = t.ID
		r.ReversedAt = &now
		if err := tx.SaveReward(ctx, r); err != nil {
			return err
		}
		out = &RewardResult{Applied: true, Amount: take, Balance: acct.Balance, Transaction: t}
		return nil
	})
	return out, err
}

// bumpStat adjusts the lifetime counter for kind, never below zero.
func bumpStat(st *domain.LifetimeStats, kind domain.InteractionKind, delta int64) {
	var c *int64
	switch kind {
	case domain.InteractionLike:
		c = &st.LikesReceived
	case domain.InteractionComment:
		c = &st.CommentsReceived
	case domain.InteractionPost:
		c = &st.PostsShared
	default:
		return
	}
	*c = max(0, *c+delta)
}
