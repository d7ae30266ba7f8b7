package executor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/solmirror/solmirror-backend/internal/config"
	"github.com/solmirror/solmirror-backend/internal/models"
	"github.com/solmirror/solmirror-backend/internal/repository"
	"github.com/solmirror/solmirror-backend/internal/risk"
)

// Swap is the outcome of a broadcast swap. OutAmount is the quoted quantity
// of the output mint acquired, in base units.
type Swap struct {
	Signature string
	OutAmount uint64
}

// Submitter is the live execution collaborator: it builds, signs and
// broadcasts the mirrored swap. Only wired in trade mode. amountIn is in
// base units of inputMint.
type Submitter interface {
	SubmitSwap(ctx context.Context, inputMint, outputMint string, amountIn uint64, slippageBps int) (*Swap, error)
}

// TradeSink persists copy-trade records.
type TradeSink interface {
	InsertCopyTrade(ctx context.Context, trade *models.CopyTrade) error
}

// PositionSink persists position lifecycle changes.
type PositionSink interface {
	InsertPosition(ctx context.Context, pos *models.Position) error
	UpdatePosition(ctx context.Context, pos *models.Position) error
}

// Notifier pushes trade events to the operator's webhook.
type Notifier interface {
	NotifyCopyExecuted(trade *models.CopyTrade)
	NotifyExecutionFailed(trade *models.CopyTrade, err error)
}

// Result is the outcome of one dispatch.
type Result struct {
	Status    string // CopyExecuted | CopySimulated | CopyFailed
	Signature string // on-chain signature of the mirrored swap, live mode only
	Position  *models.Position
}

// Executor dispatches approved copy trades. In monitor mode the submission
// is a no-op that logs the would-be trade but still opens the position and
// keeps the ledger bookkeeping, so risk state stays consistent for future
// decisions. In trade mode a failed submission rolls the reservation back
// and reports the failure rather than silently dropping it.
type Executor struct {
	mode      string
	risk      *risk.Manager
	submitter Submitter
	trades    TradeSink
	positions PositionSink
	notifier  Notifier

	slippageBps int

	now func() time.Time
}

func New(cfg *config.Config, riskMgr *risk.Manager, submitter Submitter, trades TradeSink, positions PositionSink, notifier Notifier) *Executor {
	return &Executor{
		mode:        cfg.Mode,
		risk:        riskMgr,
		submitter:   submitter,
		trades:      trades,
		positions:   positions,
		notifier:    notifier,
		slippageBps: int(cfg.MaxSlippagePct * 100),
		now:         time.Now,
	}
}

// Execute dispatches an approved copy of the source event. The approval's
// ledger reservation is either committed (position opened) or rolled back
// (submission failed); it is never left dangling.
func (e *Executor) Execute(ctx context.Context, approval *risk.Approval, event models.TradeEvent, info models.TokenInfo) *Result {
	now := e.now()
	record := &models.CopyTrade{
		Timestamp:       now,
		TradingDay:      repository.TradingDay(now),
		SourceWallet:    event.Wallet,
		Venue:           event.Venue,
		TokenIn:         event.TokenIn,
		TokenOut:        event.TokenOut,
		SizeSOL:         approval.SizeSOL,
		USDValue:        approval.SizeSOL * solPriceFrom(event, info),
		SourceSignature: event.Signature,
	}

	if e.mode != config.ModeTrade {
		return e.simulate(ctx, approval, event, info, record)
	}
	return e.submit(ctx, approval, event, info, record)
}

func (e *Executor) simulate(ctx context.Context, approval *risk.Approval, event models.TradeEvent, info models.TokenInfo, record *models.CopyTrade) *Result {
	fmt.Printf("[EXECUTOR] (monitor) Would copy %s: %.4f SOL -> %s via %s\n",
		event.Wallet, approval.SizeSOL, info.Symbol, event.Venue)

	record.Status = models.CopySimulated
	pos := e.openPosition(ctx, approval, event, info, estimateTokenAmount(approval, event))
	e.persistTrade(ctx, record)

	return &Result{Status: models.CopySimulated, Position: pos}
}

func (e *Executor) submit(ctx context.Context, approval *risk.Approval, event models.TradeEvent, info models.TokenInfo, record *models.CopyTrade) *Result {
	amountIn := uint64(approval.SizeSOL * 1e9) // lamports
	swap, err := e.submitter.SubmitSwap(ctx, event.TokenIn, event.TokenOut, amountIn, e.slippageBps)
	if err != nil {
		e.risk.Rollback(approval)
		reason := err.Error()
		record.Status = models.CopyFailed
		record.Reason = &reason
		e.persistTrade(ctx, record)
		if e.notifier != nil {
			e.notifier.NotifyExecutionFailed(record, err)
		}
		fmt.Printf("[EXECUTOR] Swap failed for %s, reservation rolled back: %v\n", info.Symbol, err)
		return &Result{Status: models.CopyFailed}
	}

	record.Status = models.CopyExecuted
	record.CopySignature = &swap.Signature
	pos := e.openPosition(ctx, approval, event, info, swap.OutAmount)
	e.persistTrade(ctx, record)
	if e.notifier != nil {
		e.notifier.NotifyCopyExecuted(record)
	}

	fmt.Printf("[EXECUTOR] Copied %.4f SOL into %s, signature %s\n", approval.SizeSOL, info.Symbol, swap.Signature)
	return &Result{Status: models.CopyExecuted, Signature: swap.Signature, Position: pos}
}

func (e *Executor) openPosition(ctx context.Context, approval *risk.Approval, event models.TradeEvent, info models.TokenInfo, tokenAmount uint64) *models.Position {
	pos := &models.Position{
		ID:           uuid.NewString(),
		TokenMint:    approval.TokenMint,
		TokenSymbol:  info.Symbol,
		SourceWallet: event.Wallet,
		EntryPrice:   info.PriceUSD,
		SizeSOL:      approval.SizeSOL,
		TokenAmount:  tokenAmount,
		State:        models.PositionOpen,
		OpenedAt:     e.now(),
	}
	e.risk.OpenPosition(pos)

	if e.positions != nil {
		if err := e.positions.InsertPosition(ctx, pos); err != nil {
			fmt.Printf("[EXECUTOR] Failed to persist position %s: %v\n", pos.ID, err)
		}
	}
	return pos
}

func (e *Executor) persistTrade(ctx context.Context, record *models.CopyTrade) {
	if e.trades == nil {
		return
	}
	if err := e.trades.InsertCopyTrade(ctx, record); err != nil {
		fmt.Printf("[EXECUTOR] Failed to persist copy trade: %v\n", err)
	}
}

// ClosePosition is the forced-exit path invoked by the position monitor
// when a stop or take threshold triggers. In monitor mode the exit is
// simulated; in trade mode the position is swapped back to SOL first.
func (e *Executor) ClosePosition(ctx context.Context, pos *models.Position, price float64) error {
	if e.mode == config.ModeTrade {
		// the exit sells the token holdings, so the amount is in base
		// units of the position's mint, never in lamports
		if pos.TokenAmount == 0 {
			return fmt.Errorf("forced close %s: no recorded token amount", pos.TokenSymbol)
		}
		swap, err := e.submitter.SubmitSwap(ctx, pos.TokenMint, solMint, pos.TokenAmount, e.slippageBps)
		if err != nil {
			return fmt.Errorf("forced close %s: %w", pos.TokenSymbol, err)
		}
		fmt.Printf("[EXECUTOR] Forced exit of %s at $%.6f, signature %s\n", pos.TokenSymbol, price, swap.Signature)
	} else {
		fmt.Printf("[EXECUTOR] (monitor) Would exit %s at $%.6f (%.2f%%)\n",
			pos.TokenSymbol, price, pos.PnLPercent(price))
	}

	if e.positions != nil {
		if err := e.positions.UpdatePosition(ctx, pos); err != nil {
			fmt.Printf("[EXECUTOR] Failed to persist position close %s: %v\n", pos.ID, err)
		}
	}
	return nil
}

const solMint = "So11111111111111111111111111111111111111112"

// solPriceFrom derives a USD value per SOL for the copy record from the
// implied rate of the source trade's own legs. Returns 0 when the rate
// cannot be derived; the record then carries an unknown USD value.
func solPriceFrom(event models.TradeEvent, info models.TokenInfo) float64 {
	if event.TokenIn == solMint && event.AmountInUI() > 0 && info.PriceUSD > 0 {
		return event.AmountOutUI() * info.PriceUSD / event.AmountInUI()
	}
	return 0
}

// estimateTokenAmount sizes the simulated holdings off the source trade's
// own fill rate, scaled to the approved copy size. Only used in monitor
// mode, where no real fill exists.
func estimateTokenAmount(approval *risk.Approval, event models.TradeEvent) uint64 {
	if event.AmountInUI() <= 0 {
		return 0
	}
	return uint64(float64(event.AmountOut) * approval.SizeSOL / event.AmountInUI())
}
