package config

import (
	"fmt"
	"time"

	"landmarket/internal/logger"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	AppPort     string `env:"APP_PORT" envDefault:"8080"`
	DatabaseURL string `env:"DATABASE_URL"` // empty runs on the in-memory store
	JWTSecret   string `env:"JWT_SECRET"`
	DevMode     bool   `env:"DEV_MODE" envDefault:"false"`
	// websocket Origin check; empty accepts any origin
	AllowedOrigin string `env:"ALLOWED_ORIGIN"`

	// comma separated account ids allowed to use /admin routes
	AdminUserIDs []string `env:"ADMIN_USER_IDS" envSeparator:","`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	LogJSON  bool   `env:"LOG_JSON" envDefault:"false"`

	EconomyConfig string `env:"ECONOMY_CONFIG"`
	JournalPath   string `env:"JOURNAL_PATH"`

	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"60s"`
	TxMaxAttempts int           `env:"TX_MAX_ATTEMPTS" envDefault:"5"`
	TxBaseBackoff time.Duration `env:"TX_BASE_BACKOFF" envDefault:"20ms"`

	// requests per window per user on mutating routes
	RateLimit       int           `env:"RATE_LIMIT" envDefault:"60"`
	RateLimitWindow time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
}

// Parse reads the environment into a Config without side effects.
func Parse() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.TxMaxAttempts <= 0 {
		cfg.TxMaxAttempts = 1
	}
	if cfg.SweepInterval <= 0 {
		return nil, fmt.Errorf("SWEEP_INTERVAL must be positive")
	}
	return &cfg, nil
}

// Загрузка конфига из env
func Load() *Config {
	_ = godotenv.Load()

	cfg, err := Parse()
	if err != nil {
		logger.Fatal("invalid configuration", "error", err)
	}
	if cfg.JWTSecret == "" {
		logger.Fatal("JWT_SECRET is not set")
	}
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL is not set, using in-memory store")
	}
	return cfg
}

// IsAdmin reports whether id is listed in ADMIN_USER_IDS.
func (c *Config) IsAdmin(id string) bool {
	for _, a := range c.AdminUserIDs {
		if a == id {
			return true
		}
	}
	return false
}
