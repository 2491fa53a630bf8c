package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Balance returns the caller's account.
func (h *Handler) Balance(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		respondError(c, errUnauthenticated)
		return
	}

	acc, err := h.Ledger.GetAccount(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"balance": acc.Balance, "account": acc})
}

// Transactions returns the caller's ledger history, newest first.
func (h *Handler) Transactions(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		respondError(c, errUnauthenticated)
		return
	}

	txs, err := h.Ledger.History(c.Request.Context(), userID, queryLimit(c, 50, 200))
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"transactions": txs})
}

type transferRequest struct {
	To          string `json:"to"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
}

// Transfer moves funds from the caller to another account.
func (h *Handler) Transfer(c *gin.Context) {
	userID, ok := getUserID(c)
	if !ok {
		respondError(c, errUnauthenticated)
		return
	}

	var req transferRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}
	if req.To == "" {
		respondBadRequest(c, "recipient is required")
		return
	}

	res, err := h.Ledger.Transfer(c.Request.Context(), userID, req.To, req.Amount, req.Description)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"transfer": res})
}

type adjustRequest struct {
	AccountID   string `json:"account_id"`
	Amount      int64  `json:"amount"`
	Description string `json:"description"`
}

// AdminCredit adds funds to any account.
func (h *Handler) AdminCredit(c *gin.Context) {
	h.adjust(c, true)
}

// AdminDebit removes funds from any account; the balance never goes negative.
func (h *Handler) AdminDebit(c *gin.Context) {
	h.adjust(c, false)
}

func (h *Handler) adjust(c *gin.Context, credit bool) {
	var req adjustRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.AccountID == "" {
		respondBadRequest(c, "account_id and amount are required")
		return
	}

	adminID, _ := getUserID(c)
	desc := req.Description
	if desc == "" {
		desc = "admin adjustment by " + adminID
	}

	ctx := c.Request.Context()
	var err error
	if credit {
		_, err = h.Ledger.Credit(ctx, req.AccountID, req.Amount, desc)
	} else {
		_, err = h.Ledger.Debit(ctx, req.AccountID, req.Amount, desc)
	}
	if err != nil {
		respondError(c, err)
		return
	}

	bal, err := h.Ledger.GetBalance(ctx, req.AccountID)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"account_id": req.AccountID, "balance": bal})
}
