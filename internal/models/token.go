package models

import "time"

// TokenInfo is a snapshot of a token's market data from the price/liquidity
// source. FetchedAt bounds staleness: consumers must reject data older than
// their configured TTL.
type TokenInfo struct {
	Symbol         string    `json:"symbol"`
	Mint           string    `json:"mint"`
	Whitelisted    bool      `json:"whitelisted"`
	PriceUSD       float64   `json:"priceUsd"`
	LiquidityUSD   float64   `json:"liquidityUsd"`
	DailyVolumeUSD float64   `json:"dailyVolumeUsd"`
	FetchedAt      time.Time `json:"fetchedAt"`
}

// EstimatePriceImpact estimates the percentage price move caused by a trade
// of the given USD size against the pool's available liquidity.
func (t TokenInfo) EstimatePriceImpact(tradeUSD float64) float64 {
	if t.LiquidityUSD <= 0 {
		return 100
	}
	return tradeUSD / t.LiquidityUSD * 100
}

func (t TokenInfo) Age(now time.Time) time.Duration {
	return now.Sub(t.FetchedAt)
}
