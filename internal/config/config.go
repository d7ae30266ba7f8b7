package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Mode selects what the process does for a run.
const (
	ModeResearch = "research"
	ModeMonitor  = "monitor"
	ModeTrade    = "trade"
)

type Config struct {
	Mode string

	// Secrets (from .env)
	SolanaRPCURL    string
	PrivateKey      string
	WebhookURL      string
	BotName         string
	APIKey          string
	CORSAllowOrigin string
	RedisURL        string

	// Database
	DBHost     string
	DBPort     int
	DBName     string
	DBUser     string
	DBPassword string

	// RPC rate limiting
	RequestsPerMinute int
	MaxRetries        int
	InitialRetryDelay time.Duration
	MaxRetryDelay     time.Duration

	// Monitoring
	MonitoringIntervalSec   int
	TransactionBatchSize    int
	WalletFanout            int
	CycleTimeoutSec         int
	SignatureRetentionHours int

	// Wallet analysis
	MinSOLBalance       float64
	MinTradesDay        float64
	MinSuccessRate      float64
	MinProfitTrade      float64
	MinTrades           int
	AnalysisPeriodDays  int
	MaxPairsToAnalyze   int
	MaxWalletsToAnalyze int

	// Token eligibility
	MinLiquidityUSD   float64
	MinDailyVolume    float64
	MaxPriceImpactPct float64
	TokenInfoTTLSec   int

	// Risk management
	MaxSlippagePct  float64
	MaxPositionSize float64 // aggregate daily notional cap, SOL
	MaxTradeSizeSOL float64 // per-trade cap, SOL
	CopyRatio       float64 // fraction of the source wallet's size to mirror
	StopLossPct     float64
	TakeProfitPct   float64
	MaxTradesPerDay int

	// Static config files
	ConfigDir      string
	TrackedWallets []WalletEntry
	TokenWhitelist map[string]TokenRule
}

// WalletEntry is one manually configured wallet from tracked-wallets.json.
type WalletEntry struct {
	Address  string `json:"address"`
	Nickname string `json:"nickname"`
}

// TokenRule is one whitelist entry from token-whitelist.json. Zero-valued
// thresholds fall back to the global eligibility limits.
type TokenRule struct {
	Mint              string  `json:"mint"`
	MinLiquidityUSD   float64 `json:"minLiquidityUsd,omitempty"`
	MinDailyVolumeUSD float64 `json:"minDailyVolumeUsd,omitempty"`
	MaxPriceImpactPct float64 `json:"maxPriceImpactPct,omitempty"`
}

func Load(mode string) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Mode: mode,

		// Secrets
		SolanaRPCURL:    envStr("SOLANA_RPC_URL", "https://api.mainnet-beta.solana.com"),
		PrivateKey:      envStr("PRIVATE_KEY", ""),
		WebhookURL:      envStr("WEBHOOK_URL", ""),
		BotName:         envStr("BOT_NAME", "SolMirror"),
		APIKey:          envStr("API_KEY", ""),
		CORSAllowOrigin: envStr("CORS_ALLOW_ORIGIN", "*"),
		RedisURL:        envStr("REDIS_URL", ""),

		// Database
		DBHost:     envStr("DB_HOST", "localhost"),
		DBPort:     envInt("DB_PORT", 5432),
		DBName:     envStr("DB_NAME", "solmirror"),
		DBUser:     envStr("DB_USER", ""),
		DBPassword: envStr("DB_PASSWORD", ""),

		// RPC rate limiting (conservative defaults for public RPC)
		RequestsPerMinute: envInt("REQUESTS_PER_MINUTE", 6),
		MaxRetries:        envInt("MAX_RETRIES", 3),
		InitialRetryDelay: time.Duration(envInt("INITIAL_RETRY_DELAY_SECONDS", 10)) * time.Second,
		MaxRetryDelay:     time.Duration(envInt("MAX_RETRY_DELAY_SECONDS", 60)) * time.Second,

		// Monitoring
		MonitoringIntervalSec:   envInt("MONITORING_INTERVAL", 60),
		TransactionBatchSize:    envInt("TRANSACTION_BATCH_SIZE", 10),
		WalletFanout:            envInt("WALLET_FANOUT", 4),
		CycleTimeoutSec:         envInt("CYCLE_TIMEOUT_SECONDS", 300),
		SignatureRetentionHours: envInt("SIGNATURE_RETENTION_HOURS", 48),

		// Wallet analysis
		MinSOLBalance:       envFloat("MIN_SOL_BALANCE", 10.0),
		MinTradesDay:        envFloat("MIN_TRADES_DAY", 5),
		MinSuccessRate:      envFloat("MIN_SUCCESS_RATE", 0.7),
		MinProfitTrade:      envFloat("MIN_PROFIT_TRADE", 0.02),
		MinTrades:           envInt("MIN_TRADES", 10),
		AnalysisPeriodDays:  envInt("ANALYSIS_PERIOD_DAYS", 7),
		MaxPairsToAnalyze:   envInt("MAX_PAIRS_TO_ANALYZE", 20),
		MaxWalletsToAnalyze: envInt("MAX_WALLETS_TO_ANALYZE", 50),

		// Token eligibility
		MinLiquidityUSD:   envFloat("MIN_LIQUIDITY_USD", 50000),
		MinDailyVolume:    envFloat("MIN_DAILY_VOLUME", 100000),
		MaxPriceImpactPct: envFloat("MAX_PRICE_IMPACT", 1.0),
		TokenInfoTTLSec:   envInt("TOKEN_INFO_TTL_SECONDS", 300),

		// Risk management
		MaxSlippagePct:  envFloat("MAX_SLIPPAGE", 1.0),
		MaxPositionSize: envFloat("MAX_POSITION_SIZE", 10.0),
		MaxTradeSizeSOL: envFloat("MAX_TRADE_SIZE_SOL", 1.0),
		CopyRatio:       envFloat("COPY_RATIO", 0.1),
		StopLossPct:     envFloat("STOP_LOSS_PERCENTAGE", 2.0),
		TakeProfitPct:   envFloat("TAKE_PROFIT_PERCENTAGE", 3.0),
		MaxTradesPerDay: envInt("MAX_TRADES_PER_DAY", 10),

		ConfigDir: envStr("CONFIG_DIR", "config"),
	}

	if err := cfg.loadConfigFiles(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) loadConfigFiles() error {
	wallets, err := loadTrackedWallets(filepath.Join(c.ConfigDir, "tracked-wallets.json"))
	if err != nil {
		return err
	}
	c.TrackedWallets = wallets

	whitelist, err := loadTokenWhitelist(filepath.Join(c.ConfigDir, "token-whitelist.json"))
	if err != nil {
		return err
	}
	c.TokenWhitelist = whitelist
	return nil
}

func loadTrackedWallets(path string) ([]WalletEntry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("[CONFIG] No tracked-wallets.json found - starting with discovery only")
			return nil, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var file struct {
		Wallets []WalletEntry `json:"wallets"`
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return file.Wallets, nil
}

func loadTokenWhitelist(path string) (map[string]TokenRule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			fmt.Println("[CONFIG] No token-whitelist.json found - all tokens ineligible")
			return map[string]TokenRule{}, nil
		}
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	var file struct {
		Tokens map[string]TokenRule `json:"tokens"`
	}
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if file.Tokens == nil {
		file.Tokens = map[string]TokenRule{}
	}
	return file.Tokens, nil
}

// RequestInterval is the minimum spacing between RPC requests implied by
// the per-minute budget.
func (c *Config) RequestInterval() time.Duration {
	if c.RequestsPerMinute <= 0 {
		return 10 * time.Second
	}
	return time.Duration(float64(time.Minute) / float64(c.RequestsPerMinute))
}

func (c *Config) MonitoringInterval() time.Duration {
	return time.Duration(c.MonitoringIntervalSec) * time.Second
}

func (c *Config) CycleTimeout() time.Duration {
	return time.Duration(c.CycleTimeoutSec) * time.Second
}

func (c *Config) TokenInfoTTL() time.Duration {
	return time.Duration(c.TokenInfoTTLSec) * time.Second
}

func (c *Config) SignatureRetention() time.Duration {
	return time.Duration(c.SignatureRetentionHours) * time.Hour
}

// TradingEnabled reports whether live execution is possible for this run.
func (c *Config) TradingEnabled() bool {
	return c.Mode == ModeTrade && c.PrivateKey != ""
}

func (c *Config) Validate() error {
	var errs []string

	switch c.Mode {
	case ModeResearch, ModeMonitor, ModeTrade:
	default:
		errs = append(errs, fmt.Sprintf("invalid mode %q (expected research, monitor or trade)", c.Mode))
	}

	if c.SolanaRPCURL == "" {
		errs = append(errs, "SOLANA_RPC_URL is required")
	}
	if c.Mode == ModeTrade && c.PrivateKey == "" {
		errs = append(errs, "PRIVATE_KEY is required for trade mode")
	}
	if c.RequestsPerMinute <= 0 {
		errs = append(errs, "REQUESTS_PER_MINUTE must be positive")
	}
	if c.AnalysisPeriodDays <= 0 {
		errs = append(errs, "ANALYSIS_PERIOD_DAYS must be positive")
	}
	if c.MonitoringIntervalSec <= 0 {
		errs = append(errs, "MONITORING_INTERVAL must be positive")
	}

	if c.Mode != ModeTrade && c.PrivateKey == "" {
		fmt.Println("[CONFIG] No private key configured - running in monitoring mode only")
	}
	if len(c.TokenWhitelist) == 0 {
		fmt.Println("[WARN] Token whitelist is empty - no trade will pass eligibility")
	}
	if c.APIKey == "" {
		fmt.Println("[WARN] API_KEY not set - REST API has no authentication")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  %s", strings.Join(errs, "\n  "))
	}
	return nil
}

func (c *Config) Print() {
	fmt.Println("=== SolMirror Copy-Trading Bot Configuration ===")
	fmt.Printf("Mode: %s\n", strings.ToUpper(c.Mode))

	if c.TradingEnabled() {
		fmt.Println("════════════════════════════════════════")
		fmt.Println("  LIVE TRADING MODE ENABLED")
		fmt.Println("════════════════════════════════════════")
	} else {
		fmt.Println("  MONITOR-ONLY: trades are detected and risk-evaluated, never submitted")
	}

	fmt.Println("--------------------------------------")
	fmt.Printf("Solana RPC: %s\n", c.SolanaRPCURL)
	fmt.Printf("RPC Rate Limit: %d requests/minute (interval %s)\n", c.RequestsPerMinute, c.RequestInterval())
	fmt.Printf("Monitoring Interval: %ds\n", c.MonitoringIntervalSec)
	fmt.Printf("Wallet Fan-out: %d concurrent polls\n", c.WalletFanout)
	fmt.Println("--------------------------------------")
	fmt.Println("Wallet Analysis:")
	fmt.Printf("  Min SOL Balance: %.1f\n", c.MinSOLBalance)
	fmt.Printf("  Min Trades/Day: %.1f\n", c.MinTradesDay)
	fmt.Printf("  Min Success Rate: %.0f%%\n", c.MinSuccessRate*100)
	fmt.Printf("  Min Profit/Trade: %.1f%%\n", c.MinProfitTrade*100)
	fmt.Printf("  Analysis Period: %d days (min %d trades)\n", c.AnalysisPeriodDays, c.MinTrades)
	fmt.Println("--------------------------------------")
	fmt.Println("Risk Limits:")
	fmt.Printf("  Max Trades/Day: %d\n", c.MaxTradesPerDay)
	fmt.Printf("  Max Daily Notional: %.1f SOL\n", c.MaxPositionSize)
	fmt.Printf("  Per-Trade Cap: %.2f SOL (copy ratio %.2f)\n", c.MaxTradeSizeSOL, c.CopyRatio)
	fmt.Printf("  Stop-Loss / Take-Profit: -%.1f%% / +%.1f%%\n", c.StopLossPct, c.TakeProfitPct)
	fmt.Printf("  Max Slippage: %.1f%%\n", c.MaxSlippagePct)
	fmt.Println("--------------------------------------")
	fmt.Printf("Tracked Wallets (configured): %d\n", len(c.TrackedWallets))
	fmt.Printf("Token Whitelist: %d tokens\n", len(c.TokenWhitelist))
	fmt.Println("======================================")
}

func (c *Config) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=disable",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

// --- helpers ---

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}
