package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_DIR", t.TempDir())

	cfg, err := Load(ModeMonitor)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Mode != ModeMonitor {
		t.Fatalf("mode = %q", cfg.Mode)
	}
	if cfg.RequestsPerMinute != 6 {
		t.Fatalf("RequestsPerMinute default = %d", cfg.RequestsPerMinute)
	}
	if cfg.InitialRetryDelay != 10*time.Second {
		t.Fatalf("InitialRetryDelay default = %s", cfg.InitialRetryDelay)
	}
	if cfg.CopyRatio != 0.1 {
		t.Fatalf("CopyRatio default = %f", cfg.CopyRatio)
	}
	if cfg.MonitoringInterval() != 60*time.Second {
		t.Fatalf("MonitoringInterval = %s", cfg.MonitoringInterval())
	}
	if cfg.SignatureRetention() != 48*time.Hour {
		t.Fatalf("SignatureRetention = %s", cfg.SignatureRetention())
	}
	if len(cfg.TrackedWallets) != 0 {
		t.Fatalf("expected no tracked wallets without config file, got %d", len(cfg.TrackedWallets))
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CONFIG_DIR", t.TempDir())
	t.Setenv("REQUESTS_PER_MINUTE", "120")
	t.Setenv("COPY_RATIO", "0.25")
	t.Setenv("MAX_TRADES_PER_DAY", "3")

	cfg, err := Load(ModeTrade)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.RequestsPerMinute != 120 {
		t.Fatalf("RequestsPerMinute = %d", cfg.RequestsPerMinute)
	}
	if cfg.CopyRatio != 0.25 {
		t.Fatalf("CopyRatio = %f", cfg.CopyRatio)
	}
	if cfg.MaxTradesPerDay != 3 {
		t.Fatalf("MaxTradesPerDay = %d", cfg.MaxTradesPerDay)
	}
	if cfg.RequestInterval() != 500*time.Millisecond {
		t.Fatalf("RequestInterval = %s", cfg.RequestInterval())
	}
}

func TestLoad_ConfigFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "tracked-wallets.json", `{
		"wallets": [
			{"address": "9WzDXwBbmkg8ZTbNMqUxvQRAyrZzDsGYdLVL9zYtAWWM", "nickname": "alpha"},
			{"address": "2fmz8SuNVyxEP6QwKQs6LNaT2ATszySPEJdhUDesxktc"}
		]
	}`)
	writeFile(t, dir, "token-whitelist.json", `{
		"tokens": {
			"EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v": {"minLiquidityUsd": 100000},
			"DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263": {}
		}
	}`)
	t.Setenv("CONFIG_DIR", dir)

	cfg, err := Load(ModeMonitor)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if len(cfg.TrackedWallets) != 2 {
		t.Fatalf("tracked wallets = %d", len(cfg.TrackedWallets))
	}
	if cfg.TrackedWallets[0].Nickname != "alpha" {
		t.Fatalf("nickname not parsed: %+v", cfg.TrackedWallets[0])
	}
	rule, ok := cfg.TokenWhitelist["EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"]
	if !ok || rule.MinLiquidityUSD != 100000 {
		t.Fatalf("whitelist rule not parsed: %+v", rule)
	}
}

func TestLoad_MalformedConfigFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "tracked-wallets.json", `{"wallets": [`)
	t.Setenv("CONFIG_DIR", dir)

	if _, err := Load(ModeMonitor); err == nil {
		t.Fatal("expected parse error for malformed wallet file")
	}
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		return &Config{
			Mode:                  ModeMonitor,
			SolanaRPCURL:          "https://api.mainnet-beta.solana.com",
			RequestsPerMinute:     6,
			AnalysisPeriodDays:    7,
			MonitoringIntervalSec: 60,
		}
	}

	if err := base().Validate(); err != nil {
		t.Fatalf("valid config rejected: %v", err)
	}

	cases := []struct {
		name    string
		mutate  func(*Config)
		wantMsg string
	}{
		{"bad mode", func(c *Config) { c.Mode = "paper" }, "invalid mode"},
		{"missing rpc", func(c *Config) { c.SolanaRPCURL = "" }, "SOLANA_RPC_URL"},
		{"trade without key", func(c *Config) { c.Mode = ModeTrade }, "PRIVATE_KEY"},
		{"zero rate limit", func(c *Config) { c.RequestsPerMinute = 0 }, "REQUESTS_PER_MINUTE"},
		{"zero interval", func(c *Config) { c.MonitoringIntervalSec = 0 }, "MONITORING_INTERVAL"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantMsg) {
				t.Fatalf("error %q does not mention %q", err, tc.wantMsg)
			}
		})
	}
}

func TestTradingEnabled(t *testing.T) {
	c := &Config{Mode: ModeTrade, PrivateKey: "key"}
	if !c.TradingEnabled() {
		t.Fatal("trade mode with key should enable trading")
	}
	c.PrivateKey = ""
	if c.TradingEnabled() {
		t.Fatal("trade mode without key must not enable trading")
	}
	c = &Config{Mode: ModeMonitor, PrivateKey: "key"}
	if c.TradingEnabled() {
		t.Fatal("monitor mode must never enable trading")
	}
}
