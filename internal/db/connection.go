package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

func Connect(dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}

	cfg.MaxConns = 20
	cfg.MinConns = 2
	cfg.MaxConnIdleTime = 30 * time.Second
	cfg.MaxConnLifetime = 5 * time.Minute

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	p, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := p.Ping(ctx); err != nil {
		p.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}

	return p, nil
}

// EnsureSchema creates the tables on first run. Statements are idempotent
// so startup is safe against an already-provisioned database.
func EnsureSchema(ctx context.Context, p *pgxpool.Pool) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS copy_trades (
			id               BIGSERIAL PRIMARY KEY,
			timestamp        TIMESTAMPTZ NOT NULL,
			trading_day      DATE NOT NULL,
			source_wallet    TEXT NOT NULL,
			venue            TEXT NOT NULL,
			token_in         TEXT NOT NULL,
			token_out        TEXT NOT NULL,
			size_sol         DOUBLE PRECISION NOT NULL,
			usd_value        DOUBLE PRECISION NOT NULL DEFAULT 0,
			source_signature TEXT NOT NULL,
			copy_signature   TEXT,
			status           TEXT NOT NULL,
			reason           TEXT,
			created_at       TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS idx_copy_trades_day ON copy_trades (trading_day)`,
		`CREATE TABLE IF NOT EXISTS positions (
			id                TEXT PRIMARY KEY,
			token_mint        TEXT NOT NULL,
			token_symbol      TEXT NOT NULL,
			source_wallet     TEXT NOT NULL,
			entry_price       DOUBLE PRECISION NOT NULL,
			size_sol          DOUBLE PRECISION NOT NULL,
			stop_loss_price   DOUBLE PRECISION NOT NULL DEFAULT 0,
			take_profit_price DOUBLE PRECISION NOT NULL DEFAULT 0,
			state             TEXT NOT NULL,
			opened_at         TIMESTAMPTZ NOT NULL,
			closed_at         TIMESTAMPTZ,
			exit_price        DOUBLE PRECISION,
			token_amount      BIGINT NOT NULL DEFAULT 0
		)`,
		`ALTER TABLE positions ADD COLUMN IF NOT EXISTS token_amount BIGINT NOT NULL DEFAULT 0`,
		`CREATE INDEX IF NOT EXISTS idx_positions_state ON positions (state)`,
		`CREATE TABLE IF NOT EXISTS tracked_wallets (
			id                   BIGSERIAL PRIMARY KEY,
			address              TEXT NOT NULL UNIQUE,
			nickname             TEXT NOT NULL DEFAULT '',
			state                TEXT NOT NULL,
			observed_trades      INT NOT NULL DEFAULT 0,
			resolved_trades      INT NOT NULL DEFAULT 0,
			trades_per_day       DOUBLE PRECISION NOT NULL DEFAULT 0,
			success_rate         DOUBLE PRECISION NOT NULL DEFAULT 0,
			profit_rate          DOUBLE PRECISION NOT NULL DEFAULT 0,
			sol_balance          DOUBLE PRECISION NOT NULL DEFAULT 0,
			last_scored_at       TIMESTAMPTZ,
			involved_in_trending BOOLEAN NOT NULL DEFAULT FALSE,
			discovered_at        TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at           TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
	}

	for _, stmt := range stmts {
		if _, err := p.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func TestConnection(p *pgxpool.Pool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	var now time.Time
	err := p.QueryRow(ctx, "SELECT NOW()").Scan(&now)
	if err != nil {
		return fmt.Errorf("test query: %w", err)
	}
	fmt.Printf("[DB] Connection successful at %s\n", now.Format(time.RFC3339))
	return nil
}
