package repository

import "context"

// SequenceRepository asigna correlativos por serie. La implementación serializa
// la asignación; un número entregado nunca se vuelve a entregar, aunque el
// comprobante termine rechazado.
type SequenceRepository interface {
	NextSequenceNumber(ctx context.Context, series string) (int64, error)
}
