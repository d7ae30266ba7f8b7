package models

import "time"

// MonitoringReport is the periodic snapshot exposed through the report sink.
type MonitoringReport struct {
	MonitoredWallets      []WalletReport `json:"monitoredWallets"`
	ProcessedTransactions int            `json:"processedTransactions"`
	TradingEnabled        bool           `json:"tradingEnabled"`
	MonitoringIntervalSec int            `json:"monitoringIntervalSec"`
	Timestamp             time.Time      `json:"timestamp"`
}

type WalletReport struct {
	Address            string      `json:"address"`
	Nickname           string      `json:"nickname"`
	State              WalletState `json:"state"`
	Stats              WalletStats `json:"stats"`
	InvolvedInTrending bool        `json:"involvedInTrending"`
}

// TrendingPair is one DexScreener trending entry, filtered to Solana.
type TrendingPair struct {
	TokenAddress string  `json:"tokenAddress"`
	Symbol       string  `json:"symbol"`
	DexID        string  `json:"dexId"`
	PriceUSD     float64 `json:"priceUsd"`
	Volume24h    float64 `json:"volume24h"`
	LiquidityUSD float64 `json:"liquidityUsd"`
	URL          string  `json:"url,omitempty"`
}

// ResearchReport is produced in research mode.
type ResearchReport struct {
	Timestamp          time.Time          `json:"timestamp"`
	TrendingPairs      []TrendingPair     `json:"trendingPairs"`
	ProfitableWallets  []WalletReport     `json:"profitableWallets"`
	AnalysisParameters AnalysisParameters `json:"analysisParameters"`
}

type AnalysisParameters struct {
	MinSOLBalance      float64 `json:"minSolBalance"`
	MinTradesPerDay    float64 `json:"minTradesDay"`
	MinSuccessRate     float64 `json:"minSuccessRate"`
	MinProfitPerTrade  float64 `json:"minProfitTrade"`
	AnalysisPeriodDays int     `json:"analysisPeriodDays"`
}
