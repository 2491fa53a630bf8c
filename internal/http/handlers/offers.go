package handlers

import (
	"net/http"
	"strings"

	"landmarket/internal/domain"
	"landmarket/internal/service"

	"github.com/gin-gonic/gin"
)

type createOfferRequest struct {
	LandID  string `json:"land_id"`
	Amount  int64  `json:"amount"`
	Message string `json:"message"`
}

// CreateOffer sends a direct purchase offer to a parcel's owner.
func (h *Handler) CreateOffer(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		respondError(c, errUnauthenticated)
		return
	}

	var req createOfferRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.LandID == "" {
		respondBadRequest(c, "land_id is required")
		return
	}

	o, err := h.Offers.CreateOffer(c.Request.Context(), service.CreateOfferInput{
		BuyerID: userID,
		LandID:  req.LandID,
		Amount:  req.Amount,
		Message: req.Message,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, gin.H{"offer": o})
}

// ListOffers lists offers the caller sent or received
// (?direction=sent|received, ?status=pending,accepted).
func (h *Handler) ListOffers(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		respondError(c, errUnauthenticated)
		return
	}

	dir := domain.OfferDirection(c.DefaultQuery("direction", string(domain.OfferDirectionReceived)))
	var statuses []domain.OfferStatus
	if raw := c.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			statuses = append(statuses, domain.OfferStatus(strings.TrimSpace(s)))
		}
	}

	list, err := h.Offers.ListOffersForUser(c.Request.Context(), userID, dir, statuses, queryLimit(c, 50, 200))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"offers": list})
}

func (h *Handler) GetOffer(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		respondError(c, errUnauthenticated)
		return
	}

	o, err := h.Offers.GetOffer(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"offer": o})
}

type respondRequest struct {
	Accept *bool `json:"accept"`
}

// RespondToOffer accepts or rejects an offer addressed to the caller.
func (h *Handler) RespondToOffer(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		respondError(c, errUnauthenticated)
		return
	}

	var req respondRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Accept == nil {
		respondBadRequest(c, "accept is required")
		return
	}

	o, err := h.Offers.RespondToOffer(c.Request.Context(), c.Param("id"), userID, *req.Accept)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"offer": o})
}

type counterRequest struct {
	Amount  int64  `json:"amount"`
	Message string `json:"message"`
}

func (h *Handler) CounterOffer(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		respondError(c, errUnauthenticated)
		return
	}

	var req counterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	o, err := h.Offers.CreateCounterOffer(c.Request.Context(), c.Param("id"), userID, req.Amount, req.Message)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"offer": o})
}

func (h *Handler) AcceptCounter(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		respondError(c, errUnauthenticated)
		return
	}

	o, err := h.Offers.AcceptCounterOffer(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"offer": o})
}

func (h *Handler) CancelOffer(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		respondError(c, errUnauthenticated)
		return
	}

	o, err := h.Offers.CancelOffer(c.Request.Context(), c.Param("id"), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"offer": o})
}
