package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"landmarket/internal/domain"
)

func TestDefaultEconomy(t *testing.T) {
	e := DefaultEconomy()
	if err := e.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}

	tests := []struct {
		kind domain.InteractionKind
		want int64
	}{
		{domain.InteractionLike, 2},
		{domain.InteractionComment, 5},
		{domain.InteractionPost, 10},
		{domain.InteractionKind("share"), 0},
	}
	for _, tt := range tests {
		if got := e.Rewards.Rate(tt.kind); got != tt.want {
			t.Errorf("Rate(%s) = %d, want %d", tt.kind, got, tt.want)
		}
	}
}

func TestLoadEconomy_OverlaysDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "economy.yaml")
	body := "rewards:\n  like: 3\nauction:\n  anti_snipe_extension: 15m\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	e, err := LoadEconomy(path)
	if err != nil {
		t.Fatalf("LoadEconomy: %v", err)
	}
	if e.Rewards.Like != 3 {
		t.Errorf("like rate = %d, want 3", e.Rewards.Like)
	}
	if e.Rewards.Comment != 5 {
		t.Errorf("comment rate should keep default, got %d", e.Rewards.Comment)
	}
	if e.Auction.AntiSnipeExtension != 15*time.Minute {
		t.Errorf("extension = %v", e.Auction.AntiSnipeExtension)
	}
	if e.Auction.AntiSnipeWindow != 10*time.Minute {
		t.Errorf("window should keep default, got %v", e.Auction.AntiSnipeWindow)
	}
}

func TestLoadEconomy_RejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "economy.yaml")
	if err := os.WriteFile(path, []byte("land:\n  base_size: 50\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadEconomy(path); err == nil {
		t.Fatal("expected error for even base size")
	}
}

func TestParse_Defaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("ADMIN_USER_IDS", "alice,bob")

	cfg, err := Parse()
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.AppPort != "8080" {
		t.Errorf("AppPort = %q", cfg.AppPort)
	}
	if cfg.SweepInterval != time.Minute {
		t.Errorf("SweepInterval = %v", cfg.SweepInterval)
	}
	if cfg.TxMaxAttempts != 5 {
		t.Errorf("TxMaxAttempts = %d", cfg.TxMaxAttempts)
	}
	if !cfg.IsAdmin("bob") || cfg.IsAdmin("carol") {
		t.Errorf("admin ids = %v", cfg.AdminUserIDs)
	}
}
