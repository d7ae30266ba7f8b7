package bot

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/solmirror/solmirror-backend/internal/config"
	"github.com/solmirror/solmirror-backend/internal/dex"
	"github.com/solmirror/solmirror-backend/internal/executor"
	"github.com/solmirror/solmirror-backend/internal/models"
	"github.com/solmirror/solmirror-backend/internal/repository"
	"github.com/solmirror/solmirror-backend/internal/risk"
	"github.com/solmirror/solmirror-backend/internal/scoring"
	"github.com/solmirror/solmirror-backend/internal/sigstore"
	"github.com/solmirror/solmirror-backend/internal/tokens"
)

// TokenSource provides market data for a mint.
type TokenSource interface {
	TokenInfo(ctx context.Context, mint string) (models.TokenInfo, error)
}

// TradeStore persists copy-trade records and answers exposure queries for
// day resumption.
type TradeStore interface {
	InsertCopyTrade(ctx context.Context, trade *models.CopyTrade) error
	CountToday(ctx context.Context) (int, error)
	NotionalToday(ctx context.Context) (float64, error)
}

// PositionStore loads open positions on startup.
type PositionStore interface {
	GetOpen(ctx context.Context) ([]models.Position, error)
}

// WalletStore persists the wallet roster across restarts.
type WalletStore interface {
	Upsert(ctx context.Context, w *models.TrackedWallet) error
	GetAll(ctx context.Context) ([]models.TrackedWallet, error)
}

// Notifier pushes pipeline events to the operator's webhook.
type Notifier interface {
	NotifyTradeDetected(event models.TradeEvent)
	NotifyRiskRejected(wallet string, reason error)
	NotifyPositionClosed(pos *models.Position)
}

// Deps wires the bot's collaborators. Trades, Positions, Wallets and
// Notifier are optional; the bot degrades to in-memory operation without
// them.
type Deps struct {
	Config    *config.Config
	Chain     ChainClient
	Sigs      sigstore.Store
	Filter    *tokens.Filter
	Scorer    *scoring.Scorer
	Risk      *risk.Manager
	Executor  *executor.Executor
	Tokens    TokenSource
	Prices    risk.PriceSource
	Notifier  Notifier
	Trades    TradeStore
	Positions PositionStore
	Wallets   WalletStore
}

// MirrorBot runs the monitoring loop: poll every roster wallet for new
// transactions, classify them, and push SOL-funded buys from tracked
// wallets through eligibility, risk and dispatch. Suspended wallets keep
// feeding the scorer so a recovery can reinstate them; only their copy
// path is gated. After the per-cycle fan-out barrier the bot rescores
// wallets, sweeps open positions against their stop/take thresholds and
// prunes the signature store.
type MirrorBot struct {
	cfg       *config.Config
	chain     ChainClient
	poller    *Poller
	sigs      sigstore.Store
	filter    *tokens.Filter
	scorer    *scoring.Scorer
	risk      *risk.Manager
	exec      *executor.Executor
	tokens    TokenSource
	prices    risk.PriceSource
	notifier  Notifier
	trades    TradeStore
	positions PositionStore
	wallets   WalletStore

	mu          sync.Mutex
	roster      map[string]*models.TrackedWallet
	processedTx int
	cycles      int
	running     bool
	stopCh      chan struct{}

	now func() time.Time
}

func New(d Deps) *MirrorBot {
	b := &MirrorBot{
		cfg:       d.Config,
		chain:     d.Chain,
		poller:    NewPoller(d.Chain, d.Sigs, d.Config.TransactionBatchSize),
		sigs:      d.Sigs,
		filter:    d.Filter,
		scorer:    d.Scorer,
		risk:      d.Risk,
		exec:      d.Executor,
		tokens:    d.Tokens,
		prices:    d.Prices,
		notifier:  d.Notifier,
		trades:    d.Trades,
		positions: d.Positions,
		wallets:   d.Wallets,
		roster:    map[string]*models.TrackedWallet{},
		now:       time.Now,
	}

	// manually configured wallets are trusted and start out tracked
	for _, entry := range d.Config.TrackedWallets {
		b.roster[entry.Address] = &models.TrackedWallet{
			Address:  entry.Address,
			Nickname: entry.Nickname,
			State:    models.WalletTracked,
		}
	}
	return b
}

// Init restores persisted state: the wallet roster, today's exposure ledger
// and any positions that were open when the previous run stopped.
func (b *MirrorBot) Init(ctx context.Context) error {
	if b.wallets != nil {
		persisted, err := b.wallets.GetAll(ctx)
		if err != nil {
			return fmt.Errorf("load wallets: %w", err)
		}
		for i := range persisted {
			b.AddWallet(&persisted[i])
		}
	}

	if b.trades != nil {
		count, err := b.trades.CountToday(ctx)
		if err != nil {
			return fmt.Errorf("resume trade count: %w", err)
		}
		notional, err := b.trades.NotionalToday(ctx)
		if err != nil {
			return fmt.Errorf("resume notional: %w", err)
		}
		b.risk.SeedDay(count, notional)
		fmt.Printf("[BOT] Resumed trading day %s: %d trades, %.4f SOL notional\n",
			repository.TradingDayNow(), count, notional)
	}

	if b.positions != nil {
		open, err := b.positions.GetOpen(ctx)
		if err != nil {
			return fmt.Errorf("load open positions: %w", err)
		}
		for i := range open {
			b.risk.OpenPosition(&open[i])
		}
		if len(open) > 0 {
			fmt.Printf("[BOT] Restored %d open positions\n", len(open))
		}
	}
	return nil
}

// AddWallet merges a wallet into the roster. A persisted or discovered
// record replaces the configured seed but keeps its nickname when the
// newcomer has none.
func (b *MirrorBot) AddWallet(w *models.TrackedWallet) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if existing, ok := b.roster[w.Address]; ok && w.Nickname == "" {
		w.Nickname = existing.Nickname
	}
	b.roster[w.Address] = w
}

// Run drives the monitoring loop until Stop is called or the context ends.
// The first cycle fires immediately.
func (b *MirrorBot) Run(ctx context.Context) {
	b.mu.Lock()
	if b.running {
		b.mu.Unlock()
		return
	}
	b.running = true
	b.stopCh = make(chan struct{})
	stopCh := b.stopCh
	walletCount := len(b.roster)
	b.mu.Unlock()

	fmt.Printf("[BOT] Monitoring %d wallets every %s (fan-out %d, batch %d)\n",
		walletCount, b.cfg.MonitoringInterval(), b.cfg.WalletFanout, b.cfg.TransactionBatchSize)

	ticker := time.NewTicker(b.cfg.MonitoringInterval())
	defer ticker.Stop()

	b.cycle(ctx)
	for {
		select {
		case <-stopCh:
			fmt.Println("[BOT] Stop requested, exiting monitor loop")
			return
		case <-ctx.Done():
			fmt.Println("[BOT] Context cancelled, exiting monitor loop")
			return
		case <-ticker.C:
			b.cycle(ctx)
		}
	}
}

func (b *MirrorBot) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.running {
		return
	}
	b.running = false
	close(b.stopCh)
}

func (b *MirrorBot) IsRunning() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.running
}

// cycle is one pass of the pipeline. Wallet polls run concurrently under
// the fan-out cap; everything after the barrier is sequential so scoring
// and the position sweep see a settled view of the cycle's events.
func (b *MirrorBot) cycle(ctx context.Context) {
	cctx, cancel := context.WithTimeout(ctx, b.cfg.CycleTimeout())
	defer cancel()

	// suspended wallets are polled too: their events feed the scorer so a
	// performance recovery can reinstate them, while handleEvent keeps the
	// copy path tracked-only
	targets := b.allWallets()
	sem := make(chan struct{}, b.cfg.WalletFanout)
	var wg sync.WaitGroup
	var processed atomic.Int64

	for _, w := range targets {
		wg.Add(1)
		go func(w *models.TrackedWallet) {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-cctx.Done():
				return
			}

			n, err := b.poller.Poll(cctx, w.Address, func(event models.TradeEvent) {
				b.handleEvent(cctx, event)
			})
			processed.Add(int64(n))
			if err != nil {
				fmt.Printf("[BOT] Poll %s failed, retrying next cycle: %v\n", short(w.Address), err)
			}
		}(w)
	}
	wg.Wait()

	b.rescoreWallets(cctx)
	b.sweepPositions(cctx)
	b.pruneSignatures(cctx)

	b.mu.Lock()
	b.processedTx += int(processed.Load())
	b.cycles++
	total := b.processedTx
	b.mu.Unlock()

	fmt.Printf("[BOT] Cycle done: %d wallets polled, %d transactions this pass, %d total\n",
		len(targets), processed.Load(), total)
}

// handleEvent pushes one classified swap through the copy pipeline. Every
// event feeds the scorer; only SOL-funded buys from tracked wallets can
// become copies.
func (b *MirrorBot) handleEvent(ctx context.Context, event models.TradeEvent) {
	fmt.Printf("[BOT] %s swap on %s: %.4f %s -> %.4f %s\n",
		short(event.Wallet), event.Venue,
		event.AmountInUI(), short(event.TokenIn),
		event.AmountOutUI(), short(event.TokenOut))

	if b.notifier != nil {
		b.notifier.NotifyTradeDetected(event)
	}
	b.scorer.Observe(event)

	if b.walletState(event.Wallet) != models.WalletTracked {
		return // candidates are observed, never copied
	}
	if event.TokenIn != dex.WrappedSOLMint {
		return // exits and token-to-token swaps are not mirrored
	}
	if b.exec == nil {
		return
	}

	info, err := b.tokens.TokenInfo(ctx, event.TokenOut)
	if err != nil {
		fmt.Printf("[BOT] No market data for %s, skipping copy: %v\n", short(event.TokenOut), err)
		return
	}

	// size the prospective copy up front so eligibility and impact are
	// judged on what we would actually trade, not the source's size
	copySOL := event.AmountInUI() * b.cfg.CopyRatio
	if copySOL > b.cfg.MaxTradeSizeSOL {
		copySOL = b.cfg.MaxTradeSizeSOL
	}
	copyUSD := copySOL * impliedSOLPrice(event, info)

	if err := b.filter.Eligible(info, copyUSD); err != nil {
		b.recordRejection(ctx, event, copySOL, copyUSD, err)
		return
	}

	impact := info.EstimatePriceImpact(copyUSD)
	approval, err := b.risk.Evaluate(ctx, event.TokenOut, event.AmountInUI(), impact)
	if err != nil {
		b.recordRejection(ctx, event, copySOL, copyUSD, err)
		if b.notifier != nil {
			b.notifier.NotifyRiskRejected(event.Wallet, err)
		}
		return
	}

	result := b.exec.Execute(ctx, approval, event, info)
	fmt.Printf("[BOT] Copy %s: %.4f SOL into %s\n", result.Status, approval.SizeSOL, info.Symbol)
}

// recordRejection writes an audit row for a copy that was vetoed before
// dispatch, so rejected opportunities are reviewable alongside executed ones.
func (b *MirrorBot) recordRejection(ctx context.Context, event models.TradeEvent, sizeSOL, usd float64, cause error) {
	fmt.Printf("[BOT] Copy rejected for %s: %v\n", short(event.Wallet), cause)
	if b.trades == nil {
		return
	}

	now := b.now()
	reason := cause.Error()
	record := &models.CopyTrade{
		Timestamp:       now,
		TradingDay:      repository.TradingDay(now),
		SourceWallet:    event.Wallet,
		Venue:           event.Venue,
		TokenIn:         event.TokenIn,
		TokenOut:        event.TokenOut,
		SizeSOL:         sizeSOL,
		USDValue:        usd,
		SourceSignature: event.Signature,
		Status:          models.CopyRejected,
		Reason:          &reason,
	}
	if err := b.trades.InsertCopyTrade(ctx, record); err != nil {
		fmt.Printf("[BOT] Failed to persist rejection: %v\n", err)
	}
}

// rescoreWallets refreshes every wallet's stats window and applies the
// resulting promote/demote transitions.
func (b *MirrorBot) rescoreWallets(ctx context.Context) {
	for _, w := range b.allWallets() {
		balance, err := b.chain.GetBalance(ctx, w.Address)
		if err != nil {
			fmt.Printf("[BOT] Balance fetch for %s failed, scoring on last known: %v\n", short(w.Address), err)
			balance = w.Stats.SOLBalance
		}

		// stats and state are read by Report; mutate them under the lock
		b.mu.Lock()
		decision := b.scorer.Rescore(w, balance)
		scoring.Apply(w, decision, b.now())
		b.mu.Unlock()
		if decision != scoring.Keep {
			fmt.Printf("[BOT] Wallet %s -> %s (success %.0f%%, profit %.1f%%, %.1f trades/day)\n",
				short(w.Address), w.State,
				w.Stats.SuccessRate*100, w.Stats.ProfitRate*100, w.Stats.TradesPerDay)
		}

		if b.wallets != nil {
			if err := b.wallets.Upsert(ctx, w); err != nil {
				fmt.Printf("[BOT] Failed to persist wallet %s: %v\n", short(w.Address), err)
			}
		}
	}
}

// sweepPositions checks open positions against their stop/take thresholds
// and announces any forced closes.
func (b *MirrorBot) sweepPositions(ctx context.Context) {
	if b.prices == nil || b.exec == nil {
		return
	}
	closed := b.risk.MonitorPositions(ctx, b.prices, b.exec)
	for _, pos := range closed {
		if b.notifier != nil {
			b.notifier.NotifyPositionClosed(pos)
		}
	}
}

func (b *MirrorBot) pruneSignatures(ctx context.Context) {
	cutoff := b.now().Add(-b.cfg.SignatureRetention())
	n, err := b.sigs.Prune(ctx, cutoff)
	if err != nil {
		fmt.Printf("[BOT] Signature prune failed: %v\n", err)
		return
	}
	if n > 0 {
		fmt.Printf("[BOT] Pruned %d processed signatures older than %s\n", n, b.cfg.SignatureRetention())
	}
}

// Report snapshots the bot's state for the REST API and the report
// scheduler.
func (b *MirrorBot) Report() models.MonitoringReport {
	b.mu.Lock()
	defer b.mu.Unlock()

	report := models.MonitoringReport{
		ProcessedTransactions: b.processedTx,
		TradingEnabled:        b.cfg.TradingEnabled(),
		MonitoringIntervalSec: b.cfg.MonitoringIntervalSec,
		Timestamp:             b.now(),
	}
	for _, w := range b.roster {
		report.MonitoredWallets = append(report.MonitoredWallets, models.WalletReport{
			Address:            w.Address,
			Nickname:           w.Nickname,
			State:              w.State,
			Stats:              w.Stats,
			InvolvedInTrending: w.InvolvedInTrending,
		})
	}
	sort.Slice(report.MonitoredWallets, func(i, j int) bool {
		return report.MonitoredWallets[i].Address < report.MonitoredWallets[j].Address
	})
	return report
}

func (b *MirrorBot) walletState(address string) models.WalletState {
	b.mu.Lock()
	defer b.mu.Unlock()
	if w, ok := b.roster[address]; ok {
		return w.State
	}
	return models.WalletCandidate
}

func (b *MirrorBot) allWallets() []*models.TrackedWallet {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*models.TrackedWallet, 0, len(b.roster))
	for _, w := range b.roster {
		out = append(out, w)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

// impliedSOLPrice derives USD per SOL from the source trade's own legs,
// the freshest rate observable for that pair. Returns 0 when either leg
// is unusable; the copy's USD value is then recorded as unknown.
func impliedSOLPrice(event models.TradeEvent, info models.TokenInfo) float64 {
	if event.AmountInUI() > 0 && info.PriceUSD > 0 {
		return event.AmountOutUI() * info.PriceUSD / event.AmountInUI()
	}
	return 0
}
