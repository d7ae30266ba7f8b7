package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/solmirror/solmirror-backend/internal/models"
)

type TradeRepo struct {
	pool *pgxpool.Pool
}

func NewTradeRepo(pool *pgxpool.Pool) *TradeRepo {
	return &TradeRepo{pool: pool}
}

func (r *TradeRepo) InsertCopyTrade(ctx context.Context, t *models.CopyTrade) error {
	ts := t.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	td := t.TradingDay
	if td == "" {
		td = TradingDay(ts)
	}

	row := r.pool.QueryRow(ctx,
		`INSERT INTO copy_trades
		 (timestamp, trading_day, source_wallet, venue, token_in, token_out,
		  size_sol, usd_value, source_signature, copy_signature, status, reason)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
		 RETURNING id, created_at`,
		ts, td, t.SourceWallet, t.Venue, t.TokenIn, t.TokenOut,
		t.SizeSOL, t.USDValue, t.SourceSignature, t.CopySignature, t.Status, t.Reason,
	)
	return row.Scan(&t.ID, &t.CreatedAt)
}

// GetByDay returns copies for a given trading day, oldest first. A non-nil
// status filters by outcome.
func (r *TradeRepo) GetByDay(ctx context.Context, tradingDay string, status *string) ([]models.CopyTrade, error) {
	query, args := buildStatusQuery(
		`SELECT * FROM copy_trades WHERE trading_day = $1`,
		[]any{tradingDay},
		status,
	)
	query += " ORDER BY timestamp ASC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCopyTrades(rows)
}

// GetAll returns the most recent copies. A non-nil status filters by outcome.
func (r *TradeRepo) GetAll(ctx context.Context, limit int, status *string) ([]models.CopyTrade, error) {
	query, args := buildStatusQuery(
		`SELECT * FROM copy_trades WHERE 1=1`,
		nil,
		status,
	)
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY timestamp DESC LIMIT $%d", len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectCopyTrades(rows)
}

func (r *TradeRepo) GetStats(ctx context.Context) (*models.CopyStats, error) {
	var s models.CopyStats
	err := r.pool.QueryRow(ctx,
		`SELECT
			COUNT(*),
			COUNT(CASE WHEN status = 'executed' THEN 1 END),
			COUNT(CASE WHEN status = 'rejected' THEN 1 END),
			COUNT(CASE WHEN status = 'failed' THEN 1 END),
			SUM(size_sol),
			MIN(timestamp),
			MAX(timestamp)
		 FROM copy_trades`,
	).Scan(
		&s.TotalCopies, &s.ExecutedCount, &s.RejectedCount, &s.FailedCount,
		&s.TotalNotional, &s.FirstCopy, &s.LastCopy,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// CountToday counts copies that consumed daily-limit budget this trading
// day: executed and simulated, not rejects or failures.
func (r *TradeRepo) CountToday(ctx context.Context) (int, error) {
	var count int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM copy_trades
		 WHERE trading_day = $1 AND status IN ('executed','simulated')`,
		TradingDayNow(),
	).Scan(&count)
	return count, err
}

// NotionalToday sums SOL notional reserved this trading day.
func (r *TradeRepo) NotionalToday(ctx context.Context) (float64, error) {
	var notional *float64
	err := r.pool.QueryRow(ctx,
		`SELECT SUM(size_sol) FROM copy_trades
		 WHERE trading_day = $1 AND status IN ('executed','simulated')`,
		TradingDayNow(),
	).Scan(&notional)
	if err != nil {
		return 0, err
	}
	if notional == nil {
		return 0, nil
	}
	return *notional, nil
}

// buildStatusQuery appends a status clause when status is non-nil.
func buildStatusQuery(baseQuery string, baseArgs []any, status *string) (string, []any) {
	if status == nil {
		return baseQuery, baseArgs
	}
	args := append(baseArgs, *status)
	return baseQuery + fmt.Sprintf(" AND status = $%d", len(args)), args
}

// --- scan helpers ---

type scannable interface {
	Scan(dest ...any) error
}

type rowsIter interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func collectCopyTrades(rows rowsIter) ([]models.CopyTrade, error) {
	var out []models.CopyTrade
	for rows.Next() {
		var t models.CopyTrade
		var td time.Time
		if err := rows.Scan(
			&t.ID, &t.Timestamp, &td, &t.SourceWallet, &t.Venue, &t.TokenIn, &t.TokenOut,
			&t.SizeSOL, &t.USDValue, &t.SourceSignature, &t.CopySignature, &t.Status, &t.Reason,
			&t.CreatedAt,
		); err != nil {
			return nil, err
		}
		t.TradingDay = td.Format("2006-01-02")
		out = append(out, t)
	}
	return out, rows.Err()
}
