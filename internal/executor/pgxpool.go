package executor

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// pgxPool adapts *pgxpool.Pool to the Pool interface. pgx.Tx already
// satisfies Tx; only the Begin return type needs bridging.
type pgxPool struct {
	pool *pgxpool.Pool
}

// WrapPool exposes a pgx connection pool as an executor Pool.
func WrapPool(pool *pgxpool.Pool) Pool {
	return &pgxPool{pool: pool}
}

func (p *pgxPool) Begin(ctx context.Context) (Tx, error) {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

func (p *pgxPool) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}
