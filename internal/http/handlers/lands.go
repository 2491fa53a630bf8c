package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type purchaseRequest struct {
	X *int `json:"x"`
	Y *int `json:"y"`
}

// PurchaseLand buys a base-size parcel centered at (x, y).
func (h *Handler) PurchaseLand(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		respondError(c, errUnauthenticated)
		return
	}

	var req purchaseRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.X == nil || req.Y == nil {
		respondBadRequest(c, "x and y are required")
		return
	}

	parcel, err := h.Lands.PurchaseLand(c.Request.Context(), userID, *req.X, *req.Y)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, gin.H{"land": parcel})
}

// ListLands lists parcels, optionally for one owner (?owner=, "me" for the
// caller).
func (h *Handler) ListLands(c *gin.Context) {
	owner := c.Query("owner")
	if owner == "me" {
		owner, _ = getUserID(c)
	}

	lands, err := h.Lands.ListLands(c.Request.Context(), owner)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"lands": lands})
}

func (h *Handler) GetLand(c *gin.Context) {
	parcel, err := h.Lands.GetLand(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"land": parcel})
}

// LandCosts exposes the pricing parameters clients need to quote costs.
func (h *Handler) LandCosts(c *gin.Context) {
	respondOK(c, http.StatusOK, gin.H{"costs": h.Lands.Costs()})
}

func (h *Handler) ExpandLand(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		respondError(c, errUnauthenticated)
		return
	}

	res, err := h.Lands.RequestLandExpansion(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"land": res.Land, "cost": res.Cost})
}

func (h *Handler) MergeCandidates(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		respondError(c, errUnauthenticated)
		return
	}

	cands, err := h.Lands.FindMergeCandidates(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"candidates": cands})
}

type mergeRequest struct {
	LandA string `json:"land_a"`
	LandB string `json:"land_b"`
}

// MergeLands joins two of the caller's parcels; land_a keeps its id.
func (h *Handler) MergeLands(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		respondError(c, errUnauthenticated)
		return
	}

	var req mergeRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.LandA == "" || req.LandB == "" {
		respondBadRequest(c, "land_a and land_b are required")
		return
	}

	res, err := h.Lands.MergeLands(c.Request.Context(), userID, req.LandA, req.LandB)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"land": res.Land, "absorbed_id": res.AbsorbedID, "cost": res.Cost})
}
