package handlers

import (
	"strconv"

	"landmarket/internal/http/middleware"
	"landmarket/internal/service"
	"landmarket/internal/worker"

	"github.com/gin-gonic/gin"
)

// Handler serves the marketplace API on top of the services built in
// cmd/app.
type Handler struct {
	Ledger   *service.LedgerService
	Rewards  *service.RewardService
	Escrow   *service.EscrowService
	Lands    *service.LandService
	Auctions *service.AuctionService
	Offers   *service.OfferService
	Audit    *service.AuditService
	Sweeper  *worker.Sweeper
}

// getUserID извлекает user_id из контекста Gin
func getUserID(c *gin.Context) (string, bool) {
	uid := c.GetString(middleware.UserIDKey)
	return uid, uid != ""
}

// queryLimit reads ?limit=, clamped to [1, max].
func queryLimit(c *gin.Context, def, max int) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
