package models

import "time"

type PositionState string

const (
	PositionOpen         PositionState = "open"
	PositionClosedProfit PositionState = "closed_profit"
	PositionClosedLoss   PositionState = "closed_loss"
	PositionClosedManual PositionState = "closed_manual"
)

// Position is an open or closed exposure created by an approved copy.
// SizeSOL is the SOL spent at entry; TokenAmount is the quantity of
// TokenMint acquired, in base units, and is what a forced exit sells.
type Position struct {
	ID              string        `json:"id"`
	TokenMint       string        `json:"tokenMint"`
	TokenSymbol     string        `json:"tokenSymbol"`
	SourceWallet    string        `json:"sourceWallet"`
	EntryPrice      float64       `json:"entryPrice"`
	SizeSOL         float64       `json:"sizeSol"`
	TokenAmount     uint64        `json:"tokenAmount"`
	StopLossPrice   float64       `json:"stopLossPrice"`
	TakeProfitPrice float64       `json:"takeProfitPrice"`
	State           PositionState `json:"state"`
	OpenedAt        time.Time     `json:"openedAt"`
	ClosedAt        *time.Time    `json:"closedAt,omitempty"`
	ExitPrice       *float64      `json:"exitPrice,omitempty"`
}

func (p *Position) IsOpen() bool {
	return p.State == PositionOpen
}

// PnLPercent returns the mark-to-market return against the entry price.
func (p *Position) PnLPercent(currentPrice float64) float64 {
	if p.EntryPrice <= 0 {
		return 0
	}
	return (currentPrice - p.EntryPrice) / p.EntryPrice * 100
}
