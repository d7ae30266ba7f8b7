package models

import "time"

type WalletState string

const (
	WalletCandidate WalletState = "candidate"
	WalletTracked   WalletState = "tracked"
	WalletSuspended WalletState = "suspended"
)

// TrackedWallet is a wallet under observation. Wallets are never deleted,
// only suspended when their stats fall below thresholds.
type TrackedWallet struct {
	ID                 int64       `json:"id"`
	Address            string      `json:"address"`
	Nickname           string      `json:"nickname"`
	State              WalletState `json:"state"`
	Stats              WalletStats `json:"stats"`
	InvolvedInTrending bool        `json:"involvedInTrending"`
	DiscoveredAt       time.Time   `json:"discoveredAt"`
	UpdatedAt          time.Time   `json:"updatedAt"`
}

// WalletStats holds the metrics derived from a wallet's rolling
// analysis window on the last scoring pass.
type WalletStats struct {
	ObservedTrades int       `json:"observedTrades"`
	ResolvedTrades int       `json:"resolvedTrades"`
	TradesPerDay   float64   `json:"tradesPerDay"`
	SuccessRate    float64   `json:"successRate"`
	ProfitRate     float64   `json:"profitRate"`
	SOLBalance     float64   `json:"solBalance"`
	LastScoredAt   time.Time `json:"lastScoredAt"`
}
