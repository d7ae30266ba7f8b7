package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/solmirror/solmirror-backend/internal/models"
)

type WalletRepo struct {
	pool *pgxpool.Pool
}

func NewWalletRepo(pool *pgxpool.Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

// Upsert inserts a wallet or refreshes its mutable fields. The address is
// the natural key; discovered_at is preserved on conflict so a wallet's
// history is never reset.
func (r *WalletRepo) Upsert(ctx context.Context, w *models.TrackedWallet) error {
	now := w.UpdatedAt
	if now.IsZero() {
		now = time.Now()
	}

	row := r.pool.QueryRow(ctx,
		`INSERT INTO tracked_wallets
		 (address, nickname, state, observed_trades, resolved_trades, trades_per_day,
		  success_rate, profit_rate, sol_balance, last_scored_at, involved_in_trending,
		  discovered_at, updated_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
		 ON CONFLICT (address) DO UPDATE SET
		   nickname = EXCLUDED.nickname,
		   state = EXCLUDED.state,
		   observed_trades = EXCLUDED.observed_trades,
		   resolved_trades = EXCLUDED.resolved_trades,
		   trades_per_day = EXCLUDED.trades_per_day,
		   success_rate = EXCLUDED.success_rate,
		   profit_rate = EXCLUDED.profit_rate,
		   sol_balance = EXCLUDED.sol_balance,
		   last_scored_at = EXCLUDED.last_scored_at,
		   involved_in_trending = EXCLUDED.involved_in_trending,
		   updated_at = EXCLUDED.updated_at
		 RETURNING id, discovered_at`,
		w.Address, w.Nickname, w.State, w.Stats.ObservedTrades, w.Stats.ResolvedTrades,
		w.Stats.TradesPerDay, w.Stats.SuccessRate, w.Stats.ProfitRate, w.Stats.SOLBalance,
		w.Stats.LastScoredAt, w.InvolvedInTrending, now, now,
	)
	return row.Scan(&w.ID, &w.DiscoveredAt)
}

// SetState transitions one wallet's state without touching its stats.
func (r *WalletRepo) SetState(ctx context.Context, address string, state models.WalletState) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE tracked_wallets SET state = $2, updated_at = NOW() WHERE address = $1`,
		address, state,
	)
	return err
}

// GetByState returns wallets in a given state, most recently updated first.
func (r *WalletRepo) GetByState(ctx context.Context, state models.WalletState) ([]models.TrackedWallet, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT * FROM tracked_wallets WHERE state = $1 ORDER BY updated_at DESC`,
		state,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectWallets(rows)
}

func (r *WalletRepo) GetAll(ctx context.Context) ([]models.TrackedWallet, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT * FROM tracked_wallets ORDER BY updated_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectWallets(rows)
}

func collectWallets(rows rowsIter) ([]models.TrackedWallet, error) {
	var out []models.TrackedWallet
	for rows.Next() {
		var w models.TrackedWallet
		if err := rows.Scan(
			&w.ID, &w.Address, &w.Nickname, &w.State,
			&w.Stats.ObservedTrades, &w.Stats.ResolvedTrades, &w.Stats.TradesPerDay,
			&w.Stats.SuccessRate, &w.Stats.ProfitRate, &w.Stats.SOLBalance, &w.Stats.LastScoredAt,
			&w.InvolvedInTrending, &w.DiscoveredAt, &w.UpdatedAt,
		); err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}
