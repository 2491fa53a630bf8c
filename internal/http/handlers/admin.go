package handlers

import (
	"errors"
	"net/http"
	"time"

	"landmarket/internal/service"

	"github.com/gin-gonic/gin"
)

// Sweep runs the auction and offer sweeps once, outside the ticker.
func (h *Handler) Sweep(c *gin.Context) {
	if h.Sweeper == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "message": "sweeper not configured"})
		return
	}
	res, err := h.Sweeper.RunOnce(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"result": res})
}

// AuditLog returns the journal entries recorded for an account, land,
// auction or offer id.
func (h *Handler) AuditLog(c *gin.Context) {
	entries, err := h.Audit.GetSubjectLog(c.Param("subject"), queryLimit(c, 200, 1000))
	if err != nil {
		h.auditError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"entries": entries})
}

// AuditVerify walks the journal hash chain.
func (h *Handler) AuditVerify(c *gin.Context) {
	bad, err := h.Audit.VerifyChain()
	if err != nil {
		h.auditError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"intact": bad == 0, "first_broken_seq": bad})
}

func (h *Handler) auditError(c *gin.Context, err error) {
	if errors.Is(err, service.ErrJournalDisabled) {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "message": err.Error()})
		return
	}
	respondError(c, err)
}

type devTokenRequest struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

// DevToken mints a token for any user id. Registered only in dev mode.
func (h *Handler) DevToken(c *gin.Context) {
	var req devTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.UserID == "" {
		respondBadRequest(c, "user_id is required")
		return
	}

	token, err := service.GenerateJWT(req.UserID, req.Name, 24*time.Hour)
	if err != nil {
		respondError(c, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"token": token, "user_id": req.UserID})
}
