package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/solmirror/solmirror-backend/internal/models"
)

type PositionRepo struct {
	pool *pgxpool.Pool
}

func NewPositionRepo(pool *pgxpool.Pool) *PositionRepo {
	return &PositionRepo{pool: pool}
}

func (r *PositionRepo) InsertPosition(ctx context.Context, p *models.Position) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO positions
		 (id, token_mint, token_symbol, source_wallet, entry_price, size_sol,
		  stop_loss_price, take_profit_price, state, opened_at, token_amount)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		p.ID, p.TokenMint, p.TokenSymbol, p.SourceWallet, p.EntryPrice, p.SizeSOL,
		p.StopLossPrice, p.TakeProfitPrice, p.State, p.OpenedAt, int64(p.TokenAmount),
	)
	return err
}

// UpdatePosition persists a state change, typically a close.
func (r *PositionRepo) UpdatePosition(ctx context.Context, p *models.Position) error {
	_, err := r.pool.Exec(ctx,
		`UPDATE positions
		 SET state = $2, closed_at = $3, exit_price = $4
		 WHERE id = $1`,
		p.ID, p.State, p.ClosedAt, p.ExitPrice,
	)
	return err
}

// GetOpen returns open positions, used to rebuild the risk manager's state
// on startup.
func (r *PositionRepo) GetOpen(ctx context.Context) ([]models.Position, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT * FROM positions WHERE state = 'open' ORDER BY opened_at ASC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPositions(rows)
}

func (r *PositionRepo) GetAll(ctx context.Context, limit int) ([]models.Position, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT * FROM positions ORDER BY opened_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectPositions(rows)
}

func collectPositions(rows rowsIter) ([]models.Position, error) {
	var out []models.Position
	for rows.Next() {
		var p models.Position
		var tokenAmount int64 // Postgres BIGINT is signed
		if err := rows.Scan(
			&p.ID, &p.TokenMint, &p.TokenSymbol, &p.SourceWallet, &p.EntryPrice, &p.SizeSOL,
			&p.StopLossPrice, &p.TakeProfitPrice, &p.State, &p.OpenedAt, &p.ClosedAt, &p.ExitPrice,
			&tokenAmount,
		); err != nil {
			return nil, err
		}
		p.TokenAmount = uint64(tokenAmount)
		out = append(out, p)
	}
	return out, rows.Err()
}
