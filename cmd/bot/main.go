package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/solmirror/solmirror-backend/internal/api"
	"github.com/solmirror/solmirror-backend/internal/bot"
	"github.com/solmirror/solmirror-backend/internal/config"
	"github.com/solmirror/solmirror-backend/internal/db"
	"github.com/solmirror/solmirror-backend/internal/executor"
	"github.com/solmirror/solmirror-backend/internal/external"
	"github.com/solmirror/solmirror-backend/internal/finder"
	"github.com/solmirror/solmirror-backend/internal/httputil"
	"github.com/solmirror/solmirror-backend/internal/notifications"
	"github.com/solmirror/solmirror-backend/internal/repository"
	"github.com/solmirror/solmirror-backend/internal/risk"
	"github.com/solmirror/solmirror-backend/internal/rpc"
	"github.com/solmirror/solmirror-backend/internal/scheduler"
	"github.com/solmirror/solmirror-backend/internal/scoring"
	"github.com/solmirror/solmirror-backend/internal/sigstore"
	"github.com/solmirror/solmirror-backend/internal/tokens"
)

const banner = `
╔══════════════════════════════════════╗
║    SolMirror Copy-Trading Bot v0.1   ║
║                                      ║
╚══════════════════════════════════════╝
`

const apiPort = 3001

func main() {
	fmt.Print(banner)

	mode := config.ModeMonitor
	if len(os.Args) > 1 {
		mode = os.Args[1]
	}

	cfg, err := config.Load(mode)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}

	cfg.Print()

	// Database
	fmt.Printf("\n[DB] Connecting to %s:%d/%s ...\n", cfg.DBHost, cfg.DBPort, cfg.DBName)
	pool, err := db.Connect(cfg.DSN())
	if err != nil {
		fmt.Fprintf(os.Stderr, "[DB] Connection failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		pool.Close()
		fmt.Println("[DB] Connection pool closed")
	}()

	if err := db.EnsureSchema(context.Background(), pool); err != nil {
		fmt.Fprintf(os.Stderr, "[DB] Schema migration failed: %v\n", err)
		os.Exit(1)
	}
	if err := db.TestConnection(pool); err != nil {
		fmt.Fprintf(os.Stderr, "[DB] Test query failed: %v\n", err)
		os.Exit(1)
	}

	// Repos
	tradeRepo := repository.NewTradeRepo(pool)
	positionRepo := repository.NewPositionRepo(pool)
	walletRepo := repository.NewWalletRepo(pool)

	// Shared rate-limited RPC client (single instance for every pipeline stage)
	chain := rpc.NewClient(cfg.SolanaRPCURL, cfg.RequestsPerMinute, httputil.RetryConfig{
		MaxAttempts: cfg.MaxRetries,
		BaseDelay:   cfg.InitialRetryDelay,
		MaxDelay:    cfg.MaxRetryDelay,
		Jitter:      0.2,
	})

	// Market data clients
	screener := external.NewDexScreenerClient(external.DexScreenerOptions{
		CacheTTL: cfg.TokenInfoTTL(),
	})
	jupiter := external.NewJupiterClient(external.JupiterOptions{})

	// Pipeline stages
	scorer := scoring.NewScorer(cfg)
	eligibility := tokens.NewFilter(cfg)
	riskMgr := risk.NewManager(risk.LimitsFromConfig(cfg), tradeRepo)

	if cfg.Mode == config.ModeResearch {
		runResearch(cfg, chain, screener, scorer, walletRepo)
		return
	}

	// Signature dedup store: Redis when configured, in-memory otherwise
	var sigs sigstore.Store
	if cfg.RedisURL != "" {
		redisStore, err := sigstore.NewRedis(cfg.RedisURL)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[SIGSTORE] Redis connection failed: %v\n", err)
			os.Exit(1)
		}
		sigs = redisStore
		fmt.Println("[SIGSTORE] Using Redis-backed signature store")
	} else {
		sigs = sigstore.NewMemory()
		fmt.Println("[SIGSTORE] Using in-memory signature store (cursors reset on restart)")
	}

	// Notifications
	notify := notifications.NewSender(cfg.WebhookURL, cfg.BotName)

	// Live submitter only in trade mode
	var submitter executor.Submitter
	if cfg.TradingEnabled() {
		submitter, err = executor.NewJupiterSubmitter(jupiter, chain, cfg.PrivateKey)
		if err != nil {
			fmt.Fprintf(os.Stderr, "[EXECUTOR] Signer setup failed: %v\n", err)
			os.Exit(1)
		}
	}
	exec := executor.New(cfg, riskMgr, submitter, tradeRepo, positionRepo, notify)

	mirror := bot.New(bot.Deps{
		Config:    cfg,
		Chain:     chain,
		Sigs:      sigs,
		Filter:    eligibility,
		Scorer:    scorer,
		Risk:      riskMgr,
		Executor:  exec,
		Tokens:    screener,
		Prices:    jupiter,
		Notifier:  notify,
		Trades:    tradeRepo,
		Positions: positionRepo,
		Wallets:   walletRepo,
	})
	service := bot.NewService(mirror)

	// Graceful shutdown context
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 1. API server
	srv := api.NewServer(pool, service, apiPort, cfg.APIKey, cfg.CORSAllowOrigin)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Fprintf(os.Stderr, "[API] Server error: %v\n", err)
			os.Exit(1)
		}
	}()

	// 2. Mirror bot
	if err := service.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "[BOT] Start failed: %v\n", err)
		os.Exit(1)
	}

	// 3. Periodic status digest
	reporter := scheduler.NewReportScheduler(service, notify, scheduler.ReportSchedulerConfig{
		CronInterval: 1 * time.Hour,
	})
	reporter.Start()

	fmt.Println("\nAll services started successfully")

	// Wait for shutdown signal
	<-ctx.Done()
	fmt.Println("\nShutting down gracefully...")

	reporter.Stop()
	service.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "[API] Shutdown error: %v\n", err)
	}
	fmt.Println("[API] Server closed")
	fmt.Println("Shutdown complete")
}

// runResearch performs one discovery pass and prints the report as JSON.
func runResearch(cfg *config.Config, chain *rpc.Client, screener *external.DexScreenerClient, scorer *scoring.Scorer, walletRepo *repository.WalletRepo) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	f := finder.New(cfg, screener, chain, scorer, walletRepo)
	report, err := f.Research(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "[FINDER] Research failed: %v\n", err)
		os.Exit(1)
	}

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "[FINDER] Report marshal failed: %v\n", err)
		os.Exit(1)
	}
	fmt.Println(string(out))
}
