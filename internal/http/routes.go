package http

import (
	"time"

	"landmarket/internal/domain"
	"landmarket/internal/http/handlers"
	"landmarket/internal/http/middleware"
	"landmarket/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouteConfig carries what RegisterRoutes needs besides the handlers.
type RouteConfig struct {
	IsAdmin       func(userID string) bool
	DevMode       bool
	AllowedOrigin string
	RateLimit     int
	RateWindow    time.Duration
}

func RegisterRoutes(r *gin.Engine, h *handlers.Handler, health *handlers.HealthHandler, hub *ws.Hub, cfg RouteConfig) {
	r.Use(middleware.RequestLogger(), middleware.Metrics())

	// Health checks (no rate limiting)
	r.GET("/health", health.Health)
	r.GET("/healthz", health.Liveness)
	r.GET("/readyz", health.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/ws", ws.HandleWS(hub, cfg.AllowedOrigin))

	v1 := r.Group("/api/v1")

	if cfg.DevMode {
		v1.POST("/auth/dev-token", middleware.LocalRateLimit("auth", 5, time.Minute), h.DevToken)
	}

	// Public reads, limited per IP
	public := v1.Group("")
	public.Use(middleware.RedisRateLimit("public", cfg.RateLimit*2, cfg.RateWindow))
	{
		public.GET("/lands", h.ListLands)
		public.GET("/lands/costs", h.LandCosts)
		public.GET("/lands/:id", h.GetLand)
		public.GET("/auctions", h.ListAuctions)
		public.GET("/auctions/:id", h.GetAuction)
	}

	// Authenticated routes, limited per user
	api := v1.Group("")
	api.Use(middleware.JWT(), middleware.RedisRateLimit("api", cfg.RateLimit, cfg.RateWindow))
	{
		api.GET("/me/balance", h.Balance)
		api.GET("/me/transactions", h.Transactions)
		api.POST("/transfer", h.Transfer)

		api.POST("/posts/:id/like", h.RewardInteraction(domain.InteractionLike, false))
		api.DELETE("/posts/:id/like", h.RewardInteraction(domain.InteractionLike, true))
		api.POST("/posts/:id/comment", h.RewardInteraction(domain.InteractionComment, false))
		api.DELETE("/posts/:id/comment", h.RewardInteraction(domain.InteractionComment, true))
		api.POST("/posts/:id/create", h.RewardInteraction(domain.InteractionPost, false))
		api.DELETE("/posts/:id/create", h.RewardInteraction(domain.InteractionPost, true))

		api.POST("/escrow/lock", h.LockFunds)
		api.GET("/escrow/:id", h.GetLock)
		api.POST("/escrow/:id/release", h.ReleaseLock)
		api.POST("/escrow/:id/transfer", h.TransferLock)

		api.POST("/lands", h.PurchaseLand)
		api.POST("/lands/merge", h.MergeLands)
		api.POST("/lands/:id/expand", h.ExpandLand)
		api.GET("/lands/:id/merge-candidates", h.MergeCandidates)

		api.POST("/auctions", h.CreateAuction)
		api.POST("/auctions/:id/bid", h.PlaceBid)
		api.POST("/auctions/:id/buy-now", h.BuyNow)
		api.POST("/auctions/:id/cancel", h.CancelAuction)

		api.POST("/offers", h.CreateOffer)
		api.GET("/offers", h.ListOffers)
		api.GET("/offers/:id", h.GetOffer)
		api.POST("/offers/:id/respond", h.RespondToOffer)
		api.POST("/offers/:id/counter", h.CounterOffer)
		api.POST("/offers/:id/accept-counter", h.AcceptCounter)
		api.POST("/offers/:id/cancel", h.CancelOffer)
	}

	admin := api.Group("/admin")
	admin.Use(middleware.Admin(cfg.IsAdmin))
	{
		admin.POST("/credit", h.AdminCredit)
		admin.POST("/debit", h.AdminDebit)
		admin.POST("/sweep", h.Sweep)
		admin.GET("/audit/verify", h.AuditVerify)
		admin.GET("/audit/log/:subject", h.AuditLog)
	}
}
