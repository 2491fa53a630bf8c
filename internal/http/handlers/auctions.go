package handlers

import (
	"net/http"
	"time"

	"landmarket/internal/service"

	"github.com/gin-gonic/gin"
)

type createAuctionRequest struct {
	LandID          string     `json:"land_id"`
	StartingPrice   int64      `json:"starting_price"`
	BuyNowPrice     *int64     `json:"buy_now_price"`
	DurationMinutes int        `json:"duration_minutes"`
	StartAt         *time.Time `json:"start_at"`
}

// CreateAuction puts one of the caller's parcels up for auction.
func (h *Handler) CreateAuction(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		respondError(c, errUnauthenticated)
		return
	}

	var req createAuctionRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.LandID == "" {
		respondBadRequest(c, "land_id is required")
		return
	}

	a, err := h.Auctions.CreateAuction(c.Request.Context(), service.CreateAuctionInput{
		OwnerID:       userID,
		LandID:        req.LandID,
		StartingPrice: req.StartingPrice,
		BuyNowPrice:   req.BuyNowPrice,
		Duration:      time.Duration(req.DurationMinutes) * time.Minute,
		StartAt:       req.StartAt,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, gin.H{"auction": a})
}

// ListAuctions is the lobby list of running auctions, soonest ending first.
func (h *Handler) ListAuctions(c *gin.Context) {
	list, err := h.Auctions.ListActiveAuctions(c.Request.Context(), queryLimit(c, 50, 200))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"auctions": list})
}

func (h *Handler) GetAuction(c *gin.Context) {
	a, err := h.Auctions.GetAuction(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"auction": a})
}

type bidRequest struct {
	Amount int64 `json:"amount"`
}

func (h *Handler) PlaceBid(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		respondError(c, errUnauthenticated)
		return
	}

	var req bidRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	a, err := h.Auctions.PlaceBid(c.Request.Context(), c.Param("id"), userID, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"auction": a})
}

func (h *Handler) BuyNow(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		respondError(c, errUnauthenticated)
		return
	}

	a, err := h.Auctions.BuyNow(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"auction": a})
}

func (h *Handler) CancelAuction(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		respondError(c, errUnauthenticated)
		return
	}

	a, err := h.Auctions.CancelAuction(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"auction": a})
}
