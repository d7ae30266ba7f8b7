package risk

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/solmirror/solmirror-backend/internal/config"
	"github.com/solmirror/solmirror-backend/internal/models"
	"github.com/solmirror/solmirror-backend/internal/repository"
)

// Typed reject reasons, matched with errors.Is. A rejection is a decision,
// not a failure: it is recorded and never retried.
var (
	ErrDailyTradeLimit   = errors.New("daily trade limit reached")
	ErrExposureCap       = errors.New("daily exposure cap reached")
	ErrDuplicatePosition = errors.New("open position exists for token")
	ErrSlippage          = errors.New("slippage estimate above maximum")
)

// DailyTradeCounter abstracts the persisted trade count so the in-memory
// ledger survives restarts mid trading day.
type DailyTradeCounter interface {
	CountToday(ctx context.Context) (int, error)
}

// Limits holds the risk thresholds from config. A zero value disables the
// corresponding check.
type Limits struct {
	MaxTradesPerDay int
	MaxPositionSize float64 // aggregate daily notional, SOL
	MaxTradeSizeSOL float64 // per-trade cap, SOL
	CopyRatio       float64 // fraction of the source trade to mirror
	MaxSlippagePct  float64
	StopLossPct     float64
	TakeProfitPct   float64
}

func LimitsFromConfig(cfg *config.Config) Limits {
	return Limits{
		MaxTradesPerDay: cfg.MaxTradesPerDay,
		MaxPositionSize: cfg.MaxPositionSize,
		MaxTradeSizeSOL: cfg.MaxTradeSizeSOL,
		CopyRatio:       cfg.CopyRatio,
		MaxSlippagePct:  cfg.MaxSlippagePct,
		StopLossPct:     cfg.StopLossPct,
		TakeProfitPct:   cfg.TakeProfitPct,
	}
}

// Approval is a reserved slot in the exposure ledger. The reservation is
// made before returning so two trades evaluated concurrently can never
// jointly exceed a cap; Rollback releases it if execution fails.
type Approval struct {
	SizeSOL   float64
	TokenMint string

	day        string // trading day the reservation was made in
	rolledBack bool
}

// Manager owns the exposure ledger and the position lifecycle. All ledger
// state lives behind one mutex; the mutex is never held across I/O.
type Manager struct {
	limits  Limits
	counter DailyTradeCounter

	mu         sync.Mutex
	day        string // repository.TradingDay anchor for the counters
	tradeCount int
	notional   float64
	positions  map[string]*models.Position // open positions by token mint

	now func() time.Time
}

func NewManager(limits Limits, counter DailyTradeCounter) *Manager {
	return &Manager{
		limits:    limits,
		counter:   counter,
		positions: map[string]*models.Position{},
		now:       time.Now,
	}
}

// Evaluate runs the risk checks for a candidate copy of the source trade,
// in order, short-circuiting on the first failure: daily trade count,
// exposure headroom (resizing down, never a blind 1:1 copy), duplicate
// position, slippage. On approval the ledger is already incremented.
//
// sourceSizeSOL is the source wallet's trade size in SOL; impactPct the
// slippage/price-impact estimate for our resized copy.
func (m *Manager) Evaluate(ctx context.Context, tokenMint string, sourceSizeSOL, impactPct float64) (*Approval, error) {
	// persisted count is read before taking the lock
	dbCount := 0
	if m.counter != nil {
		n, err := m.counter.CountToday(ctx)
		if err != nil {
			return nil, fmt.Errorf("verify daily trade count: %w", err)
		}
		dbCount = n
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.rollDayLocked()

	count := max(m.tradeCount, dbCount)
	if m.limits.MaxTradesPerDay > 0 && count >= m.limits.MaxTradesPerDay {
		return nil, fmt.Errorf("%w: %d/%d today", ErrDailyTradeLimit, count, m.limits.MaxTradesPerDay)
	}

	size := sourceSizeSOL
	if m.limits.CopyRatio > 0 {
		size = sourceSizeSOL * m.limits.CopyRatio
	}
	if m.limits.MaxTradeSizeSOL > 0 && size > m.limits.MaxTradeSizeSOL {
		size = m.limits.MaxTradeSizeSOL
	}
	if m.limits.MaxPositionSize > 0 {
		headroom := m.limits.MaxPositionSize - m.notional
		if headroom <= 0 {
			return nil, fmt.Errorf("%w: %.2f/%.2f SOL exposed", ErrExposureCap, m.notional, m.limits.MaxPositionSize)
		}
		if size > headroom {
			fmt.Printf("[RISK] Resizing copy %.2f -> %.2f SOL (%.2f/%.2f exposed)\n",
				size, headroom, m.notional, m.limits.MaxPositionSize)
			size = headroom
		}
	}

	if _, open := m.positions[tokenMint]; open {
		return nil, fmt.Errorf("%w: %s", ErrDuplicatePosition, tokenMint)
	}

	if m.limits.MaxSlippagePct > 0 && impactPct > m.limits.MaxSlippagePct {
		return nil, fmt.Errorf("%w: %.2f%% > %.2f%%", ErrSlippage, impactPct, m.limits.MaxSlippagePct)
	}

	m.tradeCount++
	m.notional += size
	return &Approval{SizeSOL: size, TokenMint: tokenMint, day: m.day}, nil
}

// Rollback releases an approval's ledger reservation after a failed
// execution. Safe to call once per approval. A reservation made before a
// day roll is already gone with the old day's counters, so releasing it
// would drive the fresh ones negative.
func (m *Manager) Rollback(a *Approval) {
	if a == nil || a.rolledBack {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	a.rolledBack = true

	m.rollDayLocked()
	if a.day != m.day {
		fmt.Printf("[RISK] Reservation of %.2f SOL for %s expired with day %s, nothing to release\n",
			a.SizeSOL, a.TokenMint, a.day)
		return
	}

	m.tradeCount--
	m.notional -= a.SizeSOL
	fmt.Printf("[RISK] Rolled back reservation of %.2f SOL for %s\n", a.SizeSOL, a.TokenMint)
}

// OpenPosition registers an executed (or simulated) position against its
// approval. Stop and take prices derive from the entry price.
func (m *Manager) OpenPosition(pos *models.Position) {
	if pos.StopLossPrice == 0 && m.limits.StopLossPct > 0 {
		pos.StopLossPrice = pos.EntryPrice * (1 - m.limits.StopLossPct/100)
	}
	if pos.TakeProfitPrice == 0 && m.limits.TakeProfitPct > 0 {
		pos.TakeProfitPrice = pos.EntryPrice * (1 + m.limits.TakeProfitPct/100)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions[pos.TokenMint] = pos
}

// OpenPositions returns a snapshot of the open positions.
func (m *Manager) OpenPositions() []*models.Position {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Position, 0, len(m.positions))
	for _, p := range m.positions {
		out = append(out, p)
	}
	return out
}

// PriceSource returns the current USD price for a mint.
type PriceSource interface {
	Price(ctx context.Context, mint string) (float64, error)
}

// ForcedCloser executes the forced exit for a triggered position.
type ForcedCloser interface {
	ClosePosition(ctx context.Context, pos *models.Position, price float64) error
}

// MonitorPositions re-prices every open position and force-closes the ones
// that crossed their stop or take threshold. A price failure skips that
// position until the next cycle. Returns the positions closed this pass.
func (m *Manager) MonitorPositions(ctx context.Context, prices PriceSource, closer ForcedCloser) []*models.Position {
	var closed []*models.Position

	for _, pos := range m.OpenPositions() {
		price, err := prices.Price(ctx, pos.TokenMint)
		if err != nil {
			fmt.Printf("[RISK] Price check failed for %s: %v\n", pos.TokenSymbol, err)
			continue
		}

		var state models.PositionState
		switch {
		case pos.StopLossPrice > 0 && price <= pos.StopLossPrice:
			state = models.PositionClosedLoss
		case pos.TakeProfitPrice > 0 && price >= pos.TakeProfitPrice:
			state = models.PositionClosedProfit
		default:
			continue
		}

		now := m.now()
		pos.State = state
		pos.ClosedAt = &now
		pos.ExitPrice = &price

		if closer != nil {
			if err := closer.ClosePosition(ctx, pos, price); err != nil {
				fmt.Printf("[RISK] Forced close failed for %s: %v\n", pos.TokenSymbol, err)
				pos.State = models.PositionOpen
				pos.ClosedAt = nil
				pos.ExitPrice = nil
				continue // stays open, retried next cycle
			}
		}

		m.mu.Lock()
		delete(m.positions, pos.TokenMint)
		m.mu.Unlock()

		fmt.Printf("[RISK] Position %s closed as %s at $%.6f (entry $%.6f, %.2f%%)\n",
			pos.TokenSymbol, state, price, pos.EntryPrice, pos.PnLPercent(price))
		closed = append(closed, pos)
	}

	return closed
}

// SeedDay primes the in-memory counters from persisted state on startup.
func (m *Manager) SeedDay(tradeCount int, notional float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rollDayLocked()
	m.tradeCount = tradeCount
	m.notional = notional
}

// Exposure reports the current ledger state for status endpoints.
func (m *Manager) Exposure() (tradeCount int, notional float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rollDayLocked()
	return m.tradeCount, m.notional
}

// rollDayLocked resets the daily counters at the trading-day boundary.
// Caller holds the lock. Open positions carry across days.
func (m *Manager) rollDayLocked() {
	today := repository.TradingDay(m.now())
	if m.day != today {
		if m.day != "" {
			fmt.Printf("[RISK] Trading day rolled %s -> %s, counters reset\n", m.day, today)
		}
		m.day = today
		m.tradeCount = 0
		m.notional = 0
	}
}
