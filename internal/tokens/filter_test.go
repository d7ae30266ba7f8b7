package tokens

import (
	"errors"
	"testing"
	"time"

	"github.com/solmirror/solmirror-backend/internal/config"
	"github.com/solmirror/solmirror-backend/internal/models"
)

const filterTestMint = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"

func newTestFilter(whitelist map[string]config.TokenRule) (*Filter, time.Time) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	f := &Filter{
		whitelist:       whitelist,
		minLiquidityUSD: 50000,
		minDailyVolume:  100000,
		maxPriceImpact:  1.0,
		ttl:             5 * time.Minute,
		now:             func() time.Time { return now },
	}
	return f, now
}

func goodInfo(now time.Time) models.TokenInfo {
	return models.TokenInfo{
		Symbol:         "USDC",
		Mint:           filterTestMint,
		LiquidityUSD:   500000,
		DailyVolumeUSD: 2000000,
		FetchedAt:      now.Add(-time.Minute),
	}
}

func TestEligible(t *testing.T) {
	f, now := newTestFilter(map[string]config.TokenRule{
		filterTestMint: {Mint: filterTestMint},
	})

	tests := []struct {
		name     string
		mutate   func(*models.TokenInfo)
		tradeUSD float64
		wantErr  error
	}{
		{
			name:     "passes all gates",
			mutate:   func(i *models.TokenInfo) {},
			tradeUSD: 1000,
			wantErr:  nil,
		},
		{
			name:     "not whitelisted",
			mutate:   func(i *models.TokenInfo) { i.Mint = "UnknownMint111" },
			tradeUSD: 1000,
			wantErr:  ErrNotWhitelisted,
		},
		{
			name: "stale data fails closed",
			mutate: func(i *models.TokenInfo) {
				i.FetchedAt = now.Add(-6 * time.Minute)
			},
			tradeUSD: 1000,
			wantErr:  ErrStaleData,
		},
		{
			name:     "liquidity below minimum",
			mutate:   func(i *models.TokenInfo) { i.LiquidityUSD = 49999 },
			tradeUSD: 100,
			wantErr:  ErrLowLiquidity,
		},
		{
			name:     "volume below minimum",
			mutate:   func(i *models.TokenInfo) { i.DailyVolumeUSD = 99999 },
			tradeUSD: 100,
			wantErr:  ErrLowVolume,
		},
		{
			name:     "price impact too high",
			mutate:   func(i *models.TokenInfo) {},
			tradeUSD: 6000, // 6000/500000*100 = 1.2% > 1.0%
			wantErr:  ErrPriceImpact,
		},
		{
			name:     "zero liquidity treated as full impact",
			mutate:   func(i *models.TokenInfo) { i.LiquidityUSD = 0 },
			tradeUSD: 1,
			wantErr:  ErrLowLiquidity,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := goodInfo(now)
			tt.mutate(&info)
			err := f.Eligible(info, tt.tradeUSD)
			if tt.wantErr == nil {
				if err != nil {
					t.Fatalf("expected eligible, got %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestEligible_PerTokenOverrides(t *testing.T) {
	f, now := newTestFilter(map[string]config.TokenRule{
		filterTestMint: {
			Mint:              filterTestMint,
			MinLiquidityUSD:   1000000,
			MaxPriceImpactPct: 0.1,
		},
	})

	info := goodInfo(now) // $500k liquidity passes the global gate
	err := f.Eligible(info, 100)
	if !errors.Is(err, ErrLowLiquidity) {
		t.Fatalf("per-token liquidity floor should override global, got %v", err)
	}

	info.LiquidityUSD = 2000000
	err = f.Eligible(info, 5000) // 0.25% impact, over the 0.1% override
	if !errors.Is(err, ErrPriceImpact) {
		t.Fatalf("per-token impact cap should override global, got %v", err)
	}

	if err := f.Eligible(info, 1000); err != nil { // 0.05% impact
		t.Fatalf("expected eligible under overrides, got %v", err)
	}
}

func TestEligible_StalenessCheckedBeforeThresholds(t *testing.T) {
	f, now := newTestFilter(map[string]config.TokenRule{
		filterTestMint: {Mint: filterTestMint},
	})

	info := goodInfo(now)
	info.FetchedAt = now.Add(-time.Hour)
	info.LiquidityUSD = 0 // would also fail liquidity

	err := f.Eligible(info, 100)
	if !errors.Is(err, ErrStaleData) {
		t.Fatalf("stale data must reject before threshold checks, got %v", err)
	}
}

func TestNewFilter_UsesConfigValues(t *testing.T) {
	cfg := &config.Config{
		MinLiquidityUSD:   75000,
		MinDailyVolume:    150000,
		MaxPriceImpactPct: 0.5,
		TokenInfoTTLSec:   120,
		TokenWhitelist:    map[string]config.TokenRule{filterTestMint: {Mint: filterTestMint}},
	}
	f := NewFilter(cfg)
	if f.minLiquidityUSD != 75000 || f.minDailyVolume != 150000 {
		t.Fatalf("thresholds not carried from config: %+v", f)
	}
	if f.ttl != 2*time.Minute {
		t.Fatalf("expected 2m ttl, got %s", f.ttl)
	}
}
