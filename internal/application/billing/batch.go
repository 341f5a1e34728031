package billing

import (
	"context"
	"sort"

	"github.com/sourcegraph/conc/pool"

	"github.com/jhoicas/sunat-cpe/internal/domain/entity"
)

// BatchItem resultado de un comprobante dentro de un lote.
type BatchItem struct {
	Index    int
	Invoice  *entity.Invoice
	Emission *EmissionResult
	Err      error
}

// EmitBatch emite comprobantes independientes con a lo sumo workers en paralelo.
// Los correlativos los serializa el SequenceRepository; los resultados vuelven en
// el orden de entrada.
func (s *EmissionService) EmitBatch(ctx context.Context, invoices []*entity.Invoice, workers int) []BatchItem {
	if workers < 1 {
		workers = 1
	}
	p := pool.NewWithResults[BatchItem]().WithMaxGoroutines(workers)
	for i, inv := range invoices {
		p.Go(func() BatchItem {
			if err := ctx.Err(); err != nil {
				return BatchItem{Index: i, Invoice: inv, Err: err}
			}
			res, err := s.Emit(ctx, inv)
			return BatchItem{Index: i, Invoice: inv, Emission: res, Err: err}
		})
	}
	items := p.Wait()
	sort.Slice(items, func(a, b int) bool { return items[a].Index < items[b].Index })
	return items
}
