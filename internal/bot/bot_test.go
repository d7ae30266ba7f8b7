package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/solmirror/solmirror-backend/internal/config"
	"github.com/solmirror/solmirror-backend/internal/dex"
	"github.com/solmirror/solmirror-backend/internal/executor"
	"github.com/solmirror/solmirror-backend/internal/models"
	"github.com/solmirror/solmirror-backend/internal/risk"
	"github.com/solmirror/solmirror-backend/internal/rpc"
	"github.com/solmirror/solmirror-backend/internal/scoring"
	"github.com/solmirror/solmirror-backend/internal/sigstore"
	"github.com/solmirror/solmirror-backend/internal/tokens"
)

const (
	srcWallet = "Alpha11111111111111111111111111111111111111"
	usdcMint  = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
	bonkMint  = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"
)

// ---------- fakes ----------

type fakeChain struct {
	mu        sync.Mutex
	sigs      map[string][]rpc.SignatureInfo // newest first, like the node
	txs       map[string]*rpc.Transaction
	txErr     map[string]error
	balances  map[string]float64
	lastUntil map[string]string
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		sigs:      map[string][]rpc.SignatureInfo{},
		txs:       map[string]*rpc.Transaction{},
		txErr:     map[string]error{},
		balances:  map[string]float64{},
		lastUntil: map[string]string{},
	}
}

func (c *fakeChain) GetSignaturesForAddress(_ context.Context, address string, _ int, until string) ([]rpc.SignatureInfo, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastUntil[address] = until

	var out []rpc.SignatureInfo
	for _, s := range c.sigs[address] {
		if s.Signature == until {
			break
		}
		out = append(out, s)
	}
	return out, nil
}

func (c *fakeChain) GetTransaction(_ context.Context, signature string) (*rpc.Transaction, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.txErr[signature]; err != nil {
		return nil, err
	}
	return c.txs[signature], nil
}

func (c *fakeChain) GetBalance(_ context.Context, address string) (float64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.balances[address], nil
}

type fakeTokens struct {
	infos map[string]models.TokenInfo
	calls int
}

func (f *fakeTokens) TokenInfo(_ context.Context, mint string) (models.TokenInfo, error) {
	f.calls++
	info, ok := f.infos[mint]
	if !ok {
		return models.TokenInfo{}, fmt.Errorf("no pair for %s", mint)
	}
	return info, nil
}

// fakeStore is the in-memory stand-in for the trade, position and wallet
// repositories.
type fakeStore struct {
	mu        sync.Mutex
	trades    []*models.CopyTrade
	positions []*models.Position
	upserts   []*models.TrackedWallet
	wallets   []models.TrackedWallet
	open      []models.Position
	dayCount  int
	notional  float64
}

func (s *fakeStore) InsertCopyTrade(_ context.Context, t *models.CopyTrade) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.trades = append(s.trades, t)
	return nil
}

func (s *fakeStore) CountToday(_ context.Context) (int, error)        { return s.dayCount, nil }
func (s *fakeStore) NotionalToday(_ context.Context) (float64, error) { return s.notional, nil }

func (s *fakeStore) InsertPosition(_ context.Context, p *models.Position) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.positions = append(s.positions, p)
	return nil
}

func (s *fakeStore) UpdatePosition(_ context.Context, _ *models.Position) error { return nil }

func (s *fakeStore) GetOpen(_ context.Context) ([]models.Position, error) { return s.open, nil }

func (s *fakeStore) Upsert(_ context.Context, w *models.TrackedWallet) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts = append(s.upserts, w)
	return nil
}

func (s *fakeStore) GetAll(_ context.Context) ([]models.TrackedWallet, error) {
	return s.wallets, nil
}

func (s *fakeStore) tradeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.trades)
}

type fakeNotifier struct {
	mu       sync.Mutex
	detected int
	rejected int
	closed   int
}

func (n *fakeNotifier) NotifyTradeDetected(models.TradeEvent) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.detected++
}

func (n *fakeNotifier) NotifyRiskRejected(string, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.rejected++
}

func (n *fakeNotifier) NotifyPositionClosed(*models.Position) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed++
}

// ---------- fixtures ----------

func testConfig() *config.Config {
	return &config.Config{
		Mode:                    config.ModeMonitor,
		MonitoringIntervalSec:   1,
		TransactionBatchSize:    10,
		WalletFanout:            2,
		CycleTimeoutSec:         30,
		SignatureRetentionHours: 48,

		MinSOLBalance:      1.0,
		MinTradesDay:       0.1,
		MinSuccessRate:     0.5,
		MinProfitTrade:     0.01,
		MinTrades:          10,
		AnalysisPeriodDays: 7,

		MinLiquidityUSD:   1000,
		MinDailyVolume:    1000,
		MaxPriceImpactPct: 5.0,
		TokenInfoTTLSec:   300,

		MaxSlippagePct:  1.0,
		MaxPositionSize: 10.0,
		MaxTradeSizeSOL: 1.0,
		CopyRatio:       0.5,
		StopLossPct:     2.0,
		TakeProfitPct:   3.0,
		MaxTradesPerDay: 10,

		TrackedWallets: []config.WalletEntry{{Address: srcWallet, Nickname: "alpha"}},
		TokenWhitelist: map[string]config.TokenRule{usdcMint: {Mint: usdcMint}},
	}
}

func newTestBot(cfg *config.Config, chain *fakeChain, store *fakeStore, notifier *fakeNotifier) *MirrorBot {
	riskMgr := risk.NewManager(risk.LimitsFromConfig(cfg), store)
	exec := executor.New(cfg, riskMgr, nil, store, store, nil)
	src := &fakeTokens{infos: map[string]models.TokenInfo{
		usdcMint: {
			Symbol:         "USDC",
			Mint:           usdcMint,
			PriceUSD:       1.0,
			LiquidityUSD:   500_000,
			DailyVolumeUSD: 1_000_000,
			FetchedAt:      time.Now(),
		},
		bonkMint: {
			Symbol:         "BONK",
			Mint:           bonkMint,
			PriceUSD:       0.00002,
			LiquidityUSD:   500_000,
			DailyVolumeUSD: 1_000_000,
			FetchedAt:      time.Now(),
		},
	}}

	deps := Deps{
		Config:    cfg,
		Chain:     chain,
		Sigs:      sigstore.NewMemory(),
		Filter:    tokens.NewFilter(cfg),
		Scorer:    scoring.NewScorer(cfg),
		Risk:      riskMgr,
		Executor:  exec,
		Tokens:    src,
		Trades:    store,
		Positions: store,
		Wallets:   store,
	}
	if notifier != nil {
		deps.Notifier = notifier
	}
	return New(deps)
}

// buySwapTx builds a Jupiter route where the wallet spends SOL natively and
// receives tokens in its token account.
func buySwapTx(signature, wallet string, solLamports uint64, mint, tokensOut string, decimals int) *rpc.Transaction {
	bt := int64(1_700_000_000)
	return &rpc.Transaction{
		Slot:      100,
		BlockTime: &bt,
		Meta: &rpc.TxMeta{
			Fee:          5000,
			PreBalances:  []uint64{10_000_000_000, 0},
			PostBalances: []uint64{10_000_000_000 - solLamports - 5000, 0},
			PreTokenBalances: []rpc.TokenBalance{{
				AccountIndex:  2,
				Mint:          mint,
				Owner:         wallet,
				UITokenAmount: rpc.UITokenAmount{Amount: "0", Decimals: decimals},
			}},
			PostTokenBalances: []rpc.TokenBalance{{
				AccountIndex:  2,
				Mint:          mint,
				Owner:         wallet,
				UITokenAmount: rpc.UITokenAmount{Amount: tokensOut, Decimals: decimals},
			}},
		},
		Transaction: rpc.TxPayload{
			Signatures: []string{signature},
			Message: rpc.TxMessage{
				AccountKeys:  []string{wallet, dex.JupiterProgramID},
				Instructions: []rpc.Instruction{{ProgramIDIndex: 1}},
			},
		},
	}
}

func sigInfo(sig string) rpc.SignatureInfo {
	return rpc.SignatureInfo{Signature: sig, Slot: 100}
}

func failedSigInfo(sig string) rpc.SignatureInfo {
	return rpc.SignatureInfo{Signature: sig, Slot: 100, Err: []byte(`{"InstructionError":[0,"Custom"]}`)}
}

// ---------- poller ----------

func TestPoller_EmitsInChainOrderAndRecords(t *testing.T) {
	chain := newFakeChain()
	chain.sigs[srcWallet] = []rpc.SignatureInfo{
		sigInfo("s3"), failedSigInfo("s2"), sigInfo("s1"),
	}
	chain.txs["s1"] = buySwapTx("s1", srcWallet, 1_000_000_000, usdcMint, "100000000", 6)
	chain.txs["s3"] = buySwapTx("s3", srcWallet, 2_000_000_000, usdcMint, "200000000", 6)

	store := sigstore.NewMemory()
	p := NewPoller(chain, store, 10)

	var emitted []string
	n, err := p.Poll(context.Background(), srcWallet, func(e models.TradeEvent) {
		emitted = append(emitted, e.Signature)
	})
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if n != 3 {
		t.Fatalf("expected 3 processed, got %d", n)
	}
	if len(emitted) != 2 || emitted[0] != "s1" || emitted[1] != "s3" {
		t.Fatalf("expected oldest-first emission [s1 s3], got %v", emitted)
	}

	for _, sig := range []string{"s1", "s2", "s3"} {
		seen, err := store.Seen(context.Background(), sig)
		if err != nil || !seen {
			t.Fatalf("signature %s not recorded (seen=%v err=%v)", sig, seen, err)
		}
	}

	// next pass scans from the newest processed signature
	n, err = p.Poll(context.Background(), srcWallet, func(models.TradeEvent) {
		t.Fatal("nothing new should be emitted")
	})
	if err != nil || n != 0 {
		t.Fatalf("second poll: n=%d err=%v", n, err)
	}
	if got := chain.lastUntil[srcWallet]; got != "s3" {
		t.Fatalf("cursor not advanced, until=%q", got)
	}
}

func TestPoller_SkipsAlreadySeenSignatures(t *testing.T) {
	chain := newFakeChain()
	chain.sigs[srcWallet] = []rpc.SignatureInfo{sigInfo("s2"), sigInfo("s1")}
	chain.txs["s1"] = buySwapTx("s1", srcWallet, 1_000_000_000, usdcMint, "100000000", 6)
	chain.txs["s2"] = buySwapTx("s2", srcWallet, 1_000_000_000, usdcMint, "100000000", 6)

	store := sigstore.NewMemory()
	if err := store.Record(context.Background(), "s1", time.Now()); err != nil {
		t.Fatalf("seed store: %v", err)
	}

	p := NewPoller(chain, store, 10)
	var emitted []string
	n, err := p.Poll(context.Background(), srcWallet, func(e models.TradeEvent) {
		emitted = append(emitted, e.Signature)
	})
	if err != nil {
		t.Fatalf("Poll: %v", err)
	}
	if n != 1 {
		t.Fatalf("seen signature must not count as processed, got %d", n)
	}
	if len(emitted) != 1 || emitted[0] != "s2" {
		t.Fatalf("expected only s2, got %v", emitted)
	}
}

func TestPoller_FetchErrorResumesAtCursor(t *testing.T) {
	chain := newFakeChain()
	chain.sigs[srcWallet] = []rpc.SignatureInfo{sigInfo("s2"), sigInfo("s1")}
	chain.txs["s1"] = buySwapTx("s1", srcWallet, 1_000_000_000, usdcMint, "100000000", 6)
	chain.txErr["s2"] = errors.New("rpc timeout")

	p := NewPoller(chain, sigstore.NewMemory(), 10)
	n, err := p.Poll(context.Background(), srcWallet, func(models.TradeEvent) {})
	if err == nil {
		t.Fatal("expected an error from the failing fetch")
	}
	if n != 1 {
		t.Fatalf("expected 1 processed before the failure, got %d", n)
	}

	// the cursor stops at s1 so s2 is refetched next cycle
	delete(chain.txErr, "s2")
	chain.txs["s2"] = buySwapTx("s2", srcWallet, 1_000_000_000, usdcMint, "100000000", 6)

	var emitted []string
	n, err = p.Poll(context.Background(), srcWallet, func(e models.TradeEvent) {
		emitted = append(emitted, e.Signature)
	})
	if err != nil {
		t.Fatalf("retry poll: %v", err)
	}
	if chain.lastUntil[srcWallet] != "s1" {
		t.Fatalf("expected scan bounded at s1, got %q", chain.lastUntil[srcWallet])
	}
	if n != 1 || len(emitted) != 1 || emitted[0] != "s2" {
		t.Fatalf("expected s2 recovered on retry: n=%d emitted=%v", n, emitted)
	}
}

// ---------- cycle pipeline ----------

func TestCycle_CopiesTrackedWalletBuy(t *testing.T) {
	cfg := testConfig()
	chain := newFakeChain()
	chain.sigs[srcWallet] = []rpc.SignatureInfo{sigInfo("buy1")}
	chain.txs["buy1"] = buySwapTx("buy1", srcWallet, 1_500_000_000, usdcMint, "1500000000", 6)
	chain.balances[srcWallet] = 25.0

	store := &fakeStore{}
	notifier := &fakeNotifier{}
	b := newTestBot(cfg, chain, store, notifier)

	b.cycle(context.Background())

	if store.tradeCount() != 1 {
		t.Fatalf("expected 1 copy trade, got %d", store.tradeCount())
	}
	trade := store.trades[0]
	if trade.Status != models.CopySimulated {
		t.Fatalf("monitor mode must simulate, got %s", trade.Status)
	}
	// 1.5 SOL at copy ratio 0.5 fits under the 1.0 SOL per-trade cap
	if trade.SizeSOL != 0.75 {
		t.Fatalf("expected 0.75 SOL copy, got %f", trade.SizeSOL)
	}
	if trade.SourceSignature != "buy1" || trade.SourceWallet != srcWallet {
		t.Fatalf("source not carried through: %+v", trade)
	}

	if len(store.positions) != 1 || store.positions[0].TokenMint != usdcMint {
		t.Fatalf("expected an open USDC position, got %+v", store.positions)
	}
	if notifier.detected != 1 {
		t.Fatalf("expected 1 detection notification, got %d", notifier.detected)
	}

	report := b.Report()
	if report.ProcessedTransactions != 1 {
		t.Fatalf("expected 1 processed transaction, got %d", report.ProcessedTransactions)
	}
	if len(report.MonitoredWallets) != 1 || report.MonitoredWallets[0].Address != srcWallet {
		t.Fatalf("unexpected roster in report: %+v", report.MonitoredWallets)
	}

	// rescoring persisted the wallet with the fetched balance
	if len(store.upserts) != 1 || store.upserts[0].Stats.SOLBalance != 25.0 {
		t.Fatalf("wallet not rescored and persisted: %+v", store.upserts)
	}
}

func TestCycle_CandidateWalletObservedNotCopied(t *testing.T) {
	cfg := testConfig()
	cfg.TrackedWallets = nil

	chain := newFakeChain()
	candidate := "Cand111111111111111111111111111111111111111"
	chain.sigs[candidate] = []rpc.SignatureInfo{sigInfo("c1")}
	chain.txs["c1"] = buySwapTx("c1", candidate, 1_000_000_000, usdcMint, "1000000000", 6)

	store := &fakeStore{}
	b := newTestBot(cfg, chain, store, nil)
	b.AddWallet(&models.TrackedWallet{Address: candidate, State: models.WalletCandidate})

	b.cycle(context.Background())

	if store.tradeCount() != 0 {
		t.Fatalf("candidate trades must never be copied, got %d records", store.tradeCount())
	}
	if b.Report().ProcessedTransactions != 1 {
		t.Fatal("candidate transaction should still be processed for scoring")
	}
}

// A suspended wallet keeps getting polled and rescored so a performance
// recovery can reinstate it; only the copy path stays gated.
func TestCycle_SuspendedWalletStillObservedNotCopied(t *testing.T) {
	cfg := testConfig()
	cfg.TrackedWallets = nil

	chain := newFakeChain()
	suspended := "Sus1111111111111111111111111111111111111111"
	chain.sigs[suspended] = []rpc.SignatureInfo{sigInfo("x1")}
	chain.txs["x1"] = buySwapTx("x1", suspended, 1_000_000_000, usdcMint, "1000000000", 6)
	chain.balances[suspended] = 20.0

	store := &fakeStore{}
	b := newTestBot(cfg, chain, store, nil)
	b.AddWallet(&models.TrackedWallet{Address: suspended, State: models.WalletSuspended})

	b.cycle(context.Background())

	if _, polled := chain.lastUntil[suspended]; !polled {
		t.Fatal("suspended wallet was not polled")
	}
	if b.Report().ProcessedTransactions != 1 {
		t.Fatal("suspended wallet's transaction should feed the scorer")
	}
	if store.tradeCount() != 0 {
		t.Fatalf("suspended trades must never be copied, got %d records", store.tradeCount())
	}
	// rescored and persisted like every other roster wallet
	if len(store.upserts) != 1 || store.upserts[0].Address != suspended {
		t.Fatalf("suspended wallet not rescored: %+v", store.upserts)
	}
}

// A cycle with no new transactions changes nothing: no trades, no ledger
// movement, no roster transitions, no processed-transaction growth.
func TestCycle_IdleCycleIsIdempotent(t *testing.T) {
	cfg := testConfig()
	chain := newFakeChain()
	chain.sigs[srcWallet] = []rpc.SignatureInfo{sigInfo("buy1")}
	chain.txs["buy1"] = buySwapTx("buy1", srcWallet, 1_500_000_000, usdcMint, "1500000000", 6)
	chain.balances[srcWallet] = 25.0

	store := &fakeStore{}
	b := newTestBot(cfg, chain, store, nil)

	b.cycle(context.Background())

	trades := store.tradeCount()
	positions := len(store.positions)
	count, notional := b.risk.Exposure()
	before := b.Report()

	b.cycle(context.Background())

	if store.tradeCount() != trades || len(store.positions) != positions {
		t.Fatalf("idle cycle created records: trades %d -> %d, positions %d -> %d",
			trades, store.tradeCount(), positions, len(store.positions))
	}
	afterCount, afterNotional := b.risk.Exposure()
	if afterCount != count || afterNotional != notional {
		t.Fatalf("idle cycle moved the ledger: %d/%.2f -> %d/%.2f", count, notional, afterCount, afterNotional)
	}
	after := b.Report()
	if after.ProcessedTransactions != before.ProcessedTransactions {
		t.Fatalf("idle cycle processed transactions: %d -> %d",
			before.ProcessedTransactions, after.ProcessedTransactions)
	}
	if len(after.MonitoredWallets) != len(before.MonitoredWallets) {
		t.Fatalf("idle cycle changed the roster: %d -> %d wallets",
			len(before.MonitoredWallets), len(after.MonitoredWallets))
	}
	for i := range after.MonitoredWallets {
		if after.MonitoredWallets[i].State != before.MonitoredWallets[i].State {
			t.Fatalf("idle cycle transitioned %s: %s -> %s", after.MonitoredWallets[i].Address,
				before.MonitoredWallets[i].State, after.MonitoredWallets[i].State)
		}
	}
}

// ---------- handleEvent ----------

func buyEvent(wallet, mint string, solIn float64, tokensOut uint64, decimals int) models.TradeEvent {
	return models.TradeEvent{
		Wallet:      wallet,
		Venue:       models.VenueJupiter,
		TokenIn:     dex.WrappedSOLMint,
		TokenOut:    mint,
		AmountIn:    uint64(solIn * 1e9),
		AmountOut:   tokensOut,
		DecimalsIn:  9,
		DecimalsOut: decimals,
		BlockTime:   time.Now(),
		Signature:   "evt-sig",
	}
}

func TestHandleEvent_NonWhitelistedTokenRecordsRejection(t *testing.T) {
	cfg := testConfig()
	store := &fakeStore{}
	b := newTestBot(cfg, newFakeChain(), store, nil)

	b.handleEvent(context.Background(), buyEvent(srcWallet, bonkMint, 1.0, 1_000_000, 5))

	if store.tradeCount() != 1 {
		t.Fatalf("expected a rejection record, got %d", store.tradeCount())
	}
	trade := store.trades[0]
	if trade.Status != models.CopyRejected {
		t.Fatalf("expected rejected status, got %s", trade.Status)
	}
	if trade.Reason == nil || !strings.Contains(*trade.Reason, "whitelist") {
		t.Fatalf("expected whitelist reason, got %v", trade.Reason)
	}
}

func TestHandleEvent_RiskRejectionRecordedAndNotified(t *testing.T) {
	cfg := testConfig()
	cfg.MaxTradesPerDay = 1

	// the persisted counter already shows the day's budget spent
	store := &fakeStore{dayCount: 1}
	notifier := &fakeNotifier{}
	b := newTestBot(cfg, newFakeChain(), store, notifier)

	b.handleEvent(context.Background(), buyEvent(srcWallet, usdcMint, 1.0, 1_000_000_000, 6))

	if store.tradeCount() != 1 || store.trades[0].Status != models.CopyRejected {
		t.Fatalf("expected a rejected record, got %+v", store.trades)
	}
	if !strings.Contains(*store.trades[0].Reason, risk.ErrDailyTradeLimit.Error()) {
		t.Fatalf("expected daily limit reason, got %s", *store.trades[0].Reason)
	}
	if notifier.rejected != 1 {
		t.Fatalf("expected 1 risk rejection notification, got %d", notifier.rejected)
	}
}

func TestHandleEvent_ExitsAreObservedNotCopied(t *testing.T) {
	cfg := testConfig()
	store := &fakeStore{}
	b := newTestBot(cfg, newFakeChain(), store, nil)

	exit := models.TradeEvent{
		Wallet:      srcWallet,
		Venue:       models.VenueJupiter,
		TokenIn:     usdcMint,
		TokenOut:    dex.WrappedSOLMint,
		AmountIn:    1_000_000_000,
		AmountOut:   1_000_000_000,
		DecimalsIn:  6,
		DecimalsOut: 9,
		BlockTime:   time.Now(),
		Signature:   "exit-sig",
	}
	b.handleEvent(context.Background(), exit)

	if store.tradeCount() != 0 {
		t.Fatalf("exits must not produce copy records, got %d", store.tradeCount())
	}
}

// ---------- init / service ----------

func TestInit_RestoresPersistedState(t *testing.T) {
	cfg := testConfig()
	store := &fakeStore{
		dayCount: 3,
		notional: 2.5,
		wallets: []models.TrackedWallet{
			{Address: "Sus1111111111111111111111111111111111111111", State: models.WalletSuspended},
		},
		open: []models.Position{
			{ID: "pos-1", TokenMint: usdcMint, State: models.PositionOpen, EntryPrice: 1.0, SizeSOL: 0.5},
		},
	}
	b := newTestBot(cfg, newFakeChain(), store, nil)

	if err := b.Init(context.Background()); err != nil {
		t.Fatalf("Init: %v", err)
	}

	count, notional := b.risk.Exposure()
	if count != 3 || notional != 2.5 {
		t.Fatalf("exposure not resumed: count=%d notional=%f", count, notional)
	}
	if got := len(b.risk.OpenPositions()); got != 1 {
		t.Fatalf("expected 1 restored position, got %d", got)
	}
	if b.walletState("Sus1111111111111111111111111111111111111111") != models.WalletSuspended {
		t.Fatal("persisted wallet state not restored")
	}
}

func TestService_StartStop(t *testing.T) {
	cfg := testConfig()
	cfg.TrackedWallets = nil

	b := newTestBot(cfg, newFakeChain(), &fakeStore{}, nil)
	svc := NewService(b)

	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := svc.Start(context.Background()); err == nil {
		t.Fatal("second Start must fail while running")
	}

	deadline := time.Now().Add(2 * time.Second)
	for !svc.Running() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if !svc.Running() {
		t.Fatal("bot never reported running")
	}

	svc.Stop()
	if svc.Running() {
		t.Fatal("bot still running after Stop")
	}
}
