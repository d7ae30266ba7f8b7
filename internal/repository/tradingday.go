package repository

import "time"

// The daily risk counters (trade count, SOL notional) reset at 17:00 UTC,
// not midnight, so a trading day spans the US afternoon session it belongs
// to. Persisted trades carry this day key so limits survive restarts.
const dayBoundaryUTC = 17 * time.Hour

// TradingDay returns the YYYY-MM-DD risk-accounting day for a timestamp.
func TradingDay(ts time.Time) string {
	return ts.UTC().Add(-dayBoundaryUTC).Format("2006-01-02")
}

// TradingDayNow returns the risk-accounting day for the current moment.
func TradingDayNow() string {
	return TradingDay(time.Now())
}
