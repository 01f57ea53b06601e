package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Transactor hands out database transactions to services that need to
// group ledger writes atomically. It satisfies ports.DBTransactor.
type Transactor struct {
	pool Pool
}

func NewTransactor(pool Pool) *Transactor {
	return &Transactor{pool: pool}
}

// Begin opens a transaction on the underlying pool.
func (t *Transactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return t.pool.Begin(ctx)
}
