package repository

import (
	"context"

	"github.com/jhoicas/sunat-cpe/internal/domain/entity"
	"github.com/jhoicas/sunat-cpe/internal/domain/sunat"
)

// InvoiceRepository define el puerto de persistencia de comprobantes y su resultado ante SUNAT.
type InvoiceRepository interface {
	Create(ctx context.Context, invoice *entity.Invoice) error
	GetByID(ctx context.Context, id string) (*entity.Invoice, error)
	// MarkStatus actualiza sólo el estado (y rutas de artefactos si vienen informadas).
	MarkStatus(ctx context.Context, invoice *entity.Invoice) error
	// RecordOutcome persiste el TransmissionResult: estado final, código, mensaje y CDR.
	RecordOutcome(ctx context.Context, invoiceID string, result *sunat.TransmissionResult) error
}
