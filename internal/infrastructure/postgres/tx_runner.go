package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	db beginner
}

// NewTxRunner construye el runner con el pool (o una tx, que abre un savepoint).
func NewTxRunner(db beginner) *TxRunner {
	return &TxRunner{db: db}
}

// Run inicia una transacción, ejecuta fn y hace Commit o Rollback.
func (r *TxRunner) Run(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// withTx ejecuta fn en una transacción si q puede abrirla; si no, directamente sobre q.
func withTx(ctx context.Context, q Querier, fn func(q Querier) error) error {
	b, ok := q.(beginner)
	if !ok {
		return fn(q)
	}
	return NewTxRunner(b).Run(ctx, func(tx pgx.Tx) error { return fn(tx) })
}
