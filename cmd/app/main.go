package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"landmarket/internal/config"
	"landmarket/internal/db"
	httpServer "landmarket/internal/http"
	"landmarket/internal/http/handlers"
	"landmarket/internal/http/middleware"
	"landmarket/internal/journal"
	"landmarket/internal/logger"
	"landmarket/internal/notify"
	"landmarket/internal/repository"
	"landmarket/internal/repository/memory"
	"landmarket/internal/repository/postgres"
	"landmarket/internal/service"
	"landmarket/internal/stream"
	"landmarket/internal/worker"
	"landmarket/internal/ws"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

var version = "dev"

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogJSON)
	log := logger.Get()

	econ, err := config.LoadEconomy(cfg.EconomyConfig)
	if err != nil {
		logger.Fatal("load economy config", "error", err)
	}
	service.InitJWT(cfg.JWTSecret)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var store repository.Store
	if cfg.DatabaseURL != "" {
		pool, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("connect database", "error", err)
		}
		store = postgres.NewStore(pool)
	} else {
		store = memory.New()
	}
	defer store.Close()

	rdb := db.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if rdb != nil {
		defer rdb.Close()
	}

	g, gctx := errgroup.WithContext(ctx)

	local := stream.NewLocal(256)
	var broker stream.Broker = local
	notifier := notify.Fanout{notify.NewLog(log)}
	if rdb != nil {
		rb := stream.NewRedis(rdb, "", local, log)
		broker = rb
		g.Go(func() error { return rb.Run(gctx) })
		notifier = append(notifier, notify.NewRedis(rdb, ""))
	}

	opts := []service.RunnerOption{
		service.WithRetry(cfg.TxMaxAttempts, cfg.TxBaseBackoff),
		service.WithBroker(broker),
		service.WithNotifier(notifier),
		service.WithLogger(log),
	}
	var jrnl *journal.Journal
	if cfg.JournalPath != "" {
		jrnl, err = journal.Open(cfg.JournalPath, log)
		if err != nil {
			logger.Fatal("open audit journal", "error", err)
		}
		defer jrnl.Close()
		opts = append(opts, service.WithJournal(jrnl))
	}
	run := service.NewRunner(store, opts...)

	auctions := service.NewAuctionService(run, econ.Auction)
	offers := service.NewOfferService(run, econ.Offer)

	sweepOpts := []worker.Option{worker.WithLogger(log.With("component", "sweeper"))}
	if rdb != nil {
		sweepOpts = append(sweepOpts, worker.WithLease(rdb, ""))
	}
	sweeper := worker.New(auctions, offers, cfg.SweepInterval, sweepOpts...)
	g.Go(func() error { return sweeper.Run(gctx) })

	h := &handlers.Handler{
		Ledger:   service.NewLedgerService(run),
		Rewards:  service.NewRewardService(run, econ.Rewards),
		Escrow:   service.NewEscrowService(run),
		Lands:    service.NewLandService(run, econ.Land, econ.LandPrice),
		Auctions: auctions,
		Offers:   offers,
		Audit:    service.NewAuditService(jrnl),
		Sweeper:  sweeper,
	}

	checks := map[string]handlers.Check{"store": store.Ping}
	if rdb != nil {
		checks["redis"] = func(ctx context.Context) error { return rdb.Ping(ctx).Err() }
	}
	health := handlers.NewHealthHandler(version, checks)

	hub := ws.NewHub(broker, log.With("component", "ws"))
	defer hub.Close()

	middleware.InitRedisRateLimiter(rdb)

	if !cfg.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	// CORS for production (frontend on different domain)
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		}
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	httpServer.RegisterRoutes(r, h, health, hub, httpServer.RouteConfig{
		IsAdmin:       cfg.IsAdmin,
		DevMode:       cfg.DevMode,
		AllowedOrigin: cfg.AllowedOrigin,
		RateLimit:     cfg.RateLimit,
		RateWindow:    cfg.RateLimitWindow,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		logger.Info("server started", "port", cfg.AppPort, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server exited with error", "error", err)
		return
	}
	logger.Info("server exited")
}
