package handlers

import (
	"net/http"

	"landmarket/internal/domain"
	"landmarket/internal/service"

	"github.com/gin-gonic/gin"
)

type interactionRequest struct {
	AuthorID string `json:"author_id"`
}

// RewardInteraction returns a handler that awards (or, with reverse, takes
// back) the reward for the caller's interaction with post :id.
//
// Likes and comments pay the post author named in the body; post creation
// pays the caller.
func (h *Handler) RewardInteraction(kind domain.InteractionKind, reverse bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := getUserID(c)
		if !ok {
			respondError(c, errUnauthenticated)
			return
		}

		beneficiary, actor := userID, userID
		if kind != domain.InteractionPost {
			var req interactionRequest
			if err := c.ShouldBindJSON(&req); err != nil || req.AuthorID == "" {
				respondBadRequest(c, "author_id is required")
				return
			}
			beneficiary = req.AuthorID
		}

		postID := c.Param("id")
		ctx := c.Request.Context()
		var (
			res *service.RewardResult
			err error
		)
		if reverse {
			res, err = h.Rewards.ReverseInteraction(ctx, beneficiary, actor, postID, kind)
		} else {
			res, err = h.Rewards.AwardInteraction(ctx, beneficiary, actor, postID, kind)
		}
		if err != nil {
			respondError(c, err)
			return
		}
		respondOK(c, http.StatusOK, gin.H{"reward": res})
	}
}
