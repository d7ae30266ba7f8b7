package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/solmirror/solmirror-backend/internal/config"
	"github.com/solmirror/solmirror-backend/internal/models"
)

// Sentinel reject reasons. Callers match with errors.Is; the wrapped
// message carries the numbers for logs and reports.
var (
	ErrStaleData      = errors.New("token data is stale")
	ErrNotWhitelisted = errors.New("token not whitelisted")
	ErrLowLiquidity   = errors.New("liquidity below minimum")
	ErrLowVolume      = errors.New("daily volume below minimum")
	ErrPriceImpact    = errors.New("estimated price impact too high")
)

// Filter gates which tokens the bot is allowed to copy into. All checks
// fail closed: missing or expired market data rejects the token.
type Filter struct {
	whitelist       map[string]config.TokenRule
	minLiquidityUSD float64
	minDailyVolume  float64
	maxPriceImpact  float64
	ttl             time.Duration

	now func() time.Time
}

func NewFilter(cfg *config.Config) *Filter {
	return &Filter{
		whitelist:       cfg.TokenWhitelist,
		minLiquidityUSD: cfg.MinLiquidityUSD,
		minDailyVolume:  cfg.MinDailyVolume,
		maxPriceImpact:  cfg.MaxPriceImpactPct,
		ttl:             cfg.TokenInfoTTL(),
		now:             time.Now,
	}
}

// Eligible reports whether a trade of tradeUSD into the token passes the
// whitelist and market-quality gates. A nil return means eligible.
//
// Per-token rules from the whitelist file override the global thresholds
// where set; zero-valued rule fields fall back to the globals.
func (f *Filter) Eligible(info models.TokenInfo, tradeUSD float64) error {
	rule, listed := f.whitelist[info.Mint]
	if !listed {
		return fmt.Errorf("%w: %s", ErrNotWhitelisted, info.Mint)
	}

	if age := info.Age(f.now()); age > f.ttl {
		return fmt.Errorf("%w: %s fetched %s ago (ttl %s)", ErrStaleData, info.Mint, age.Round(time.Second), f.ttl)
	}

	minLiquidity := f.minLiquidityUSD
	if rule.MinLiquidityUSD > 0 {
		minLiquidity = rule.MinLiquidityUSD
	}
	if info.LiquidityUSD < minLiquidity {
		return fmt.Errorf("%w: %s has $%.0f, need $%.0f", ErrLowLiquidity, info.Mint, info.LiquidityUSD, minLiquidity)
	}

	minVolume := f.minDailyVolume
	if rule.MinDailyVolumeUSD > 0 {
		minVolume = rule.MinDailyVolumeUSD
	}
	if info.DailyVolumeUSD < minVolume {
		return fmt.Errorf("%w: %s has $%.0f, need $%.0f", ErrLowVolume, info.Mint, info.DailyVolumeUSD, minVolume)
	}

	maxImpact := f.maxPriceImpact
	if rule.MaxPriceImpactPct > 0 {
		maxImpact = rule.MaxPriceImpactPct
	}
	if impact := info.EstimatePriceImpact(tradeUSD); impact > maxImpact {
		return fmt.Errorf("%w: %s %.2f%% > %.2f%% for $%.0f trade", ErrPriceImpact, info.Mint, impact, maxImpact, tradeUSD)
	}

	return nil
}
