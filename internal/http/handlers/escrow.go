package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type lockRequest struct {
	Amount  int64  `json:"amount"`
	Purpose string `json:"purpose"`
}

// LockFunds reserves part of the caller's balance.
func (h *Handler) LockFunds(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		respondError(c, errUnauthenticated)
		return
	}

	var req lockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	lock, err := h.Escrow.LockFunds(c.Request.Context(), userID, req.Amount, req.Purpose)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusCreated, gin.H{"lock": lock})
}

// ReleaseLock returns a held lock to the caller's balance.
func (h *Handler) ReleaseLock(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		respondError(c, errUnauthenticated)
		return
	}

	lock, err := h.Escrow.ReleaseFunds(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"lock": lock})
}

type lockTransferRequest struct {
	To          string `json:"to"`
	Description string `json:"description"`
}

// TransferLock pays a held lock out to another account.
func (h *Handler) TransferLock(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		respondError(c, errUnauthenticated)
		return
	}

	var req lockTransferRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.To == "" {
		respondBadRequest(c, "recipient is required")
		return
	}

	tx, err := h.Escrow.TransferFunds(c.Request.Context(), userID, c.Param("id"), req.To, req.Description)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"transaction": tx})
}

// GetLock shows one of the caller's locks.
func (h *Handler) GetLock(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		respondError(c, errUnauthenticated)
		return
	}

	lock, err := h.Escrow.GetLock(c.Request.Context(), userID, c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"lock": lock})
}
