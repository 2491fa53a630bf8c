package config

import (
	"fmt"
	"os"
	"time"

	"landmarket/internal/domain"
	"landmarket/internal/land"

	"gopkg.in/yaml.v3"
)

// Economy holds the tunable numbers of the marketplace.
type Economy struct {
	Rewards   RewardRates  `yaml:"rewards"`
	LandPrice int64        `yaml:"land_price"`
	Land      land.Costs   `yaml:"land"`
	Auction   AuctionRules `yaml:"auction"`
	Offer     OfferRules   `yaml:"offer"`
}

type RewardRates struct {
	Like    int64 `yaml:"like"`
	Comment int64 `yaml:"comment"`
	Post    int64 `yaml:"post"`
}

// Rate returns the coin amount for an interaction kind.
func (r RewardRates) Rate(kind domain.InteractionKind) int64 {
	switch kind {
	case domain.InteractionLike:
		return r.Like
	case domain.InteractionComment:
		return r.Comment
	case domain.InteractionPost:
		return r.Post
	}
	return 0
}

type AuctionRules struct {
	MinDuration        time.Duration `yaml:"min_duration"`
	MaxDuration        time.Duration `yaml:"max_duration"`
	AntiSnipeWindow    time.Duration `yaml:"anti_snipe_window"`
	AntiSnipeExtension time.Duration `yaml:"anti_snipe_extension"`
}

type OfferRules struct {
	TTL            time.Duration `yaml:"ttl"`
	RejectCooldown time.Duration `yaml:"reject_cooldown"`
	DailyCap       int           `yaml:"daily_cap"`
	DailyWindow    time.Duration `yaml:"daily_window"`
}

func DefaultEconomy() Economy {
	return Economy{
		Rewards:   RewardRates{Like: 2, Comment: 5, Post: 10},
		LandPrice: 1000,
		Land:      land.DefaultCosts(),
		Auction: AuctionRules{
			MinDuration:        time.Hour,
			MaxDuration:        7 * 24 * time.Hour,
			AntiSnipeWindow:    10 * time.Minute,
			AntiSnipeExtension: 30 * time.Minute,
		},
		Offer: OfferRules{
			TTL:            48 * time.Hour,
			RejectCooldown: 30 * time.Minute,
			DailyCap:       10,
			DailyWindow:    24 * time.Hour,
		},
	}
}

// LoadEconomy overlays the YAML file at path on the defaults. An empty path
// returns the defaults.
func LoadEconomy(path string) (Economy, error) {
	e := DefaultEconomy()
	if path == "" {
		return e, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return e, err
	}
	if err := yaml.Unmarshal(raw, &e); err != nil {
		return e, fmt.Errorf("economy config: %w", err)
	}
	return e, e.Validate()
}

func (e Economy) Validate() error {
	switch {
	case e.Rewards.Like <= 0 || e.Rewards.Comment <= 0 || e.Rewards.Post <= 0:
		return fmt.Errorf("economy config: reward rates must be positive")
	case e.LandPrice <= 0:
		return fmt.Errorf("economy config: land_price must be positive")
	case e.Land.BaseSize <= 0 || e.Land.BaseSize%2 == 0:
		return fmt.Errorf("economy config: land.base_size must be a positive odd number")
	case e.Land.MaxSize < e.Land.BaseSize:
		return fmt.Errorf("economy config: land.max_size below base_size")
	case e.Auction.MinDuration <= 0 || e.Auction.MaxDuration < e.Auction.MinDuration:
		return fmt.Errorf("economy config: invalid auction duration bounds")
	case e.Offer.TTL <= 0 || e.Offer.DailyCap <= 0:
		return fmt.Errorf("economy config: invalid offer rules")
	}
	return nil
}
