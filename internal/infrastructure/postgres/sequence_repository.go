package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/sunat-cpe/internal/domain"
	"github.com/jhoicas/sunat-cpe/internal/domain/repository"
)

var _ repository.SequenceRepository = (*SequenceRepo)(nil)

// maxSequence límite de un correlativo de 8 dígitos.
const maxSequence = 99999999

// SequenceRepo asigna correlativos por serie sobre la tabla series_sequences.
type SequenceRepo struct {
	q Querier
}

// NewSequenceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewSequenceRepository(q Querier) *SequenceRepo {
	return &SequenceRepo{q: q}
}

// NextSequenceNumber bloquea la fila de la serie (SELECT ... FOR UPDATE), la
// incrementa y confirma. Dos llamadas concurrentes nunca obtienen el mismo número.
func (r *SequenceRepo) NextSequenceNumber(ctx context.Context, series string) (int64, error) {
	if series == "" {
		return 0, fmt.Errorf("%w: serie vacía", domain.ErrInvalidInput)
	}
	var next int64
	err := withTx(ctx, r.q, func(q Querier) error {
		// Crea la serie la primera vez; si ya existe no hace nada.
		if _, err := q.Exec(ctx, `
			INSERT INTO series_sequences (series, last_number, updated_at)
			VALUES ($1, 0, now())
			ON CONFLICT (series) DO NOTHING`, series); err != nil {
			return fmt.Errorf("init sequence: %w", err)
		}

		var last int64
		err := q.QueryRow(ctx, `
			SELECT last_number FROM series_sequences WHERE series = $1
			FOR UPDATE`, series).Scan(&last)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("sequence %s: %w", series, domain.ErrNotFound)
			}
			return fmt.Errorf("lock sequence: %w", err)
		}
		if last >= maxSequence {
			return fmt.Errorf("serie %s: %w", series, domain.ErrSequenceExhausted)
		}

		next = last + 1
		if _, err := q.Exec(ctx, `
			UPDATE series_sequences SET last_number = $2, updated_at = now()
			WHERE series = $1`, series, next); err != nil {
			return fmt.Errorf("update sequence: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return next, nil
}
