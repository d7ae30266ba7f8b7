package models

import "time"

type Venue string

const (
	VenueJupiter Venue = "Jupiter"
	VenueRaydium Venue = "Raydium"
	VenueOrca    Venue = "Orca"
	VenueUnknown Venue = "Unknown"
)

// TradeEvent is a classified swap detected in a tracked wallet's
// transaction history. Immutable once produced by the classifier.
// Amounts are in base units; use the UI helpers for display values.
type TradeEvent struct {
	Wallet      string    `json:"wallet"`
	Venue       Venue     `json:"venue"`
	TokenIn     string    `json:"tokenIn"`  // mint address of the token spent
	TokenOut    string    `json:"tokenOut"` // mint address of the token received
	AmountIn    uint64    `json:"amountIn"`
	AmountOut   uint64    `json:"amountOut"`
	DecimalsIn  int       `json:"decimalsIn"`
	DecimalsOut int       `json:"decimalsOut"`
	Slot        int64     `json:"slot"`
	BlockTime   time.Time `json:"blockTime"`
	Signature   string    `json:"signature"`
}

func (e TradeEvent) AmountInUI() float64 {
	return toUI(e.AmountIn, e.DecimalsIn)
}

func (e TradeEvent) AmountOutUI() float64 {
	return toUI(e.AmountOut, e.DecimalsOut)
}

func toUI(amount uint64, decimals int) float64 {
	v := float64(amount)
	for i := 0; i < decimals; i++ {
		v /= 10
	}
	return v
}

// CopyStatus is the lifecycle of a mirrored trade record.
const (
	CopyExecuted  = "executed"
	CopySimulated = "simulated"
	CopyRejected  = "rejected"
	CopyFailed    = "failed"
)

// CopyTrade records the outcome of one copy decision, whether it was
// executed, simulated in monitor mode, rejected by risk, or failed.
type CopyTrade struct {
	ID              int64     `json:"id"`
	Timestamp       time.Time `json:"timestamp"`
	TradingDay      string    `json:"tradingDay"`
	SourceWallet    string    `json:"sourceWallet"`
	Venue           Venue     `json:"venue"`
	TokenIn         string    `json:"tokenIn"`
	TokenOut        string    `json:"tokenOut"`
	SizeSOL         float64   `json:"sizeSol"`
	USDValue        float64   `json:"usdValue"`
	SourceSignature string    `json:"sourceSignature"`
	CopySignature   *string   `json:"copySignature,omitempty"`
	Status          string    `json:"status"`
	Reason          *string   `json:"reason,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
}

type CopyStats struct {
	TotalCopies   int64      `json:"totalCopies"`
	ExecutedCount int64      `json:"executedCount"`
	RejectedCount int64      `json:"rejectedCount"`
	FailedCount   int64      `json:"failedCount"`
	TotalNotional *float64   `json:"totalNotional"`
	FirstCopy     *time.Time `json:"firstCopy"`
	LastCopy      *time.Time `json:"lastCopy"`
}
