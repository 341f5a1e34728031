package billing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/sunat-cpe/internal/domain"
	"github.com/jhoicas/sunat-cpe/internal/domain/entity"
	"github.com/jhoicas/sunat-cpe/internal/domain/repository"
	domsunat "github.com/jhoicas/sunat-cpe/internal/domain/sunat"
	infrasunat "github.com/jhoicas/sunat-cpe/internal/infrastructure/sunat"
	"github.com/jhoicas/sunat-cpe/internal/infrastructure/sunat/signer"
)

// EmissionResult artefactos y resultado de una emisión.
type EmissionResult struct {
	Invoice     *entity.Invoice
	XMLPath     string
	ZipPath     string
	CDRPath     string
	DigestValue string
	Result      *domsunat.TransmissionResult
	// CDRError no nulo si SUNAT devolvió CDR pero no pudo guardarse en disco.
	CDRError error
}

// EmissionService orquesta el ciclo completo de un comprobante:
//
//	correlativo → XML UBL 2.1 → firma → ZIP → sendBill (o simulado) → CDR → estado
//
// Es síncrono por comprobante; EmitBatch paraleliza comprobantes independientes.
type EmissionService struct {
	invoices    repository.InvoiceRepository
	sequences   repository.SequenceRepository
	builder     DocumentBuilder
	signer      XMLSigner
	material    *signer.SigningMaterial
	store       ArtifactStore
	transmitter Transmitter
	log         zerolog.Logger
	now         func() time.Time
}

// NewEmissionService construye el orquestador. material se carga una sola vez al
// arranque y se comparte en modo lectura.
func NewEmissionService(
	invoices repository.InvoiceRepository,
	sequences repository.SequenceRepository,
	builder DocumentBuilder,
	xmlSigner XMLSigner,
	material *signer.SigningMaterial,
	store ArtifactStore,
	transmitter Transmitter,
	log zerolog.Logger,
) *EmissionService {
	return &EmissionService{
		invoices:    invoices,
		sequences:   sequences,
		builder:     builder,
		signer:      xmlSigner,
		material:    material,
		store:       store,
		transmitter: transmitter,
		log:         log.With().Str("component", "emission").Logger(),
		now:         time.Now,
	}
}

// WithClock reemplaza el reloj (fecha de emisión por defecto).
func (s *EmissionService) WithClock(now func() time.Time) *EmissionService {
	s.now = now
	return s
}

// Emit numera, genera, firma, empaqueta y transmite inv.
// El error es nil sólo si SUNAT (o el modo simulado) aceptó el comprobante; para
// rechazos y errores de transporte también se devuelve el EmissionResult.
func (s *EmissionService) Emit(ctx context.Context, inv *entity.Invoice) (*EmissionResult, error) {
	if inv == nil {
		return nil, fmt.Errorf("%w: comprobante nulo", domain.ErrInvalidInput)
	}
	inv.ApplyDefaults()
	if inv.IssueDate.IsZero() {
		inv.IssueDate = s.now()
	}
	domsunat.ComputeTotals(inv)

	// Validar antes de consumir un correlativo.
	draft := *inv
	if draft.Number == 0 {
		draft.Number = 1
	}
	if err := domsunat.ValidateInvoice(&draft); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}

	if inv.Number == 0 {
		n, err := s.sequences.NextSequenceNumber(ctx, inv.Series)
		if err != nil {
			return nil, fmt.Errorf("emisión: asignar correlativo %s: %w", inv.Series, err)
		}
		inv.Number = n
	}
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	inv.Status = entity.StatusPending
	inv.CreatedAt = s.now()
	inv.UpdatedAt = inv.CreatedAt
	if err := s.invoices.Create(ctx, inv); err != nil {
		return nil, fmt.Errorf("emisión: registrar %s: %w", inv.DocumentID(), err)
	}

	log := s.log.With().Str("invoice", inv.DocumentID()).Str("id", inv.ID).Logger()
	out := &EmissionResult{Invoice: inv}

	// 1. XML UBL 2.1
	unsigned, err := s.builder.Build(inv)
	if err != nil {
		return out, s.fail(ctx, log, inv, "xml-build", err)
	}

	// 2. Firma
	signed, err := s.signer.Sign(unsigned, s.material)
	if err != nil {
		return out, s.fail(ctx, log, inv, "xml-sign", err)
	}
	out.DigestValue = signed.DigestValue

	// 3. ZIP
	base := inv.FileBaseName()
	pkg, err := s.store.Package(signed.XML, base)
	if err != nil {
		return out, s.fail(ctx, log, inv, "zip", err)
	}
	inv.XMLPath, inv.ZipPath = pkg.XMLPath, pkg.ZipPath
	out.XMLPath, out.ZipPath = pkg.XMLPath, pkg.ZipPath
	inv.Status = entity.StatusSigned
	inv.UpdatedAt = s.now()
	if err := s.invoices.MarkStatus(ctx, inv); err != nil {
		return out, fmt.Errorf("emisión: persistir %s: %w", entity.StatusSigned, err)
	}
	log.Info().Str("step", "zip").Str("file", pkg.ZipPath).Str("digest", signed.DigestValue).Msg("comprobante firmado")

	// 4. Envío
	return s.transmit(ctx, log, inv, pkg.Zip, out)
}

// Retransmit reenvía el ZIP de un comprobante que quedó PENDIENTE o FIRMADA
// tras un error de transporte. No genera ni firma de nuevo.
func (s *EmissionService) Retransmit(ctx context.Context, invoiceID string) (*EmissionResult, error) {
	inv, err := s.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, fmt.Errorf("reenvío: %w", err)
	}
	if inv.Status != entity.StatusPending && inv.Status != entity.StatusSigned {
		return nil, fmt.Errorf("%w: %s está en estado %s", domain.ErrConflict, inv.DocumentID(), inv.Status)
	}
	if inv.ZipPath == "" {
		return nil, fmt.Errorf("%w: %s no tiene ZIP generado", domain.ErrConflict, inv.DocumentID())
	}
	zipBytes, err := s.store.ReadFile(inv.ZipPath)
	if err != nil {
		return nil, fmt.Errorf("reenvío: leer %s: %w", inv.ZipPath, err)
	}

	log := s.log.With().Str("invoice", inv.DocumentID()).Str("id", inv.ID).Logger()
	out := &EmissionResult{Invoice: inv, XMLPath: inv.XMLPath, ZipPath: inv.ZipPath}
	return s.transmit(ctx, log, inv, zipBytes, out)
}

// Status consulta getStatus para un comprobante registrado.
func (s *EmissionService) Status(ctx context.Context, invoiceID string) (*entity.Invoice, *infrasunat.StatusResult, error) {
	inv, err := s.invoices.GetByID(ctx, invoiceID)
	if err != nil {
		return nil, nil, fmt.Errorf("estado: %w", err)
	}
	st, err := s.transmitter.GetStatus(ctx, inv.Supplier.RUC, inv.DocumentType, inv.Series, inv.Number)
	if err != nil {
		return inv, nil, err
	}
	return inv, st, nil
}

func (s *EmissionService) transmit(ctx context.Context, log zerolog.Logger, inv *entity.Invoice, zipBytes []byte, out *EmissionResult) (*EmissionResult, error) {
	base := inv.FileBaseName()
	res := s.transmitter.SendBill(ctx, zipBytes, base+".zip")
	out.Result = res

	// El CDR es el artefacto probatorio: se guarda siempre que exista. Si falla
	// el estado se persiste igual y el error vuelve al llamador.
	if len(res.CDR) > 0 {
		cdrPath, err := s.store.WriteCDR(base, res.CDR)
		if err != nil {
			log.Error().Err(err).Str("step", "cdr").Msg("no se pudo guardar el CDR")
			out.CDRError = fmt.Errorf("emisión %s: guardar CDR: %w", inv.DocumentID(), err)
		} else {
			inv.CDRPath = cdrPath
			out.CDRPath = cdrPath
		}
	}

	inv.Status = res.InvoiceStatus()
	inv.ResponseCode = res.Code()
	inv.ResponseMessage = res.Message
	inv.Simulated = res.Simulated
	inv.UpdatedAt = s.now()

	if err := s.invoices.MarkStatus(ctx, inv); err != nil {
		return out, fmt.Errorf("emisión: persistir estado %s: %w", inv.Status, err)
	}
	if err := s.invoices.RecordOutcome(ctx, inv.ID, res); err != nil {
		return out, fmt.Errorf("emisión: persistir resultado: %w", err)
	}

	ev := log.Info()
	switch res.Kind {
	case domsunat.ResultRejected:
		ev = log.Warn()
	case domsunat.ResultTransportError:
		ev = log.Error()
	}
	ev.Str("step", "send").Str("status", inv.Status).Str("code", inv.ResponseCode).
		Bool("simulated", res.Simulated).Msg(res.Message)

	return out, errors.Join(res.Err(), out.CDRError)
}

// fail marca ERROR tras un defecto de generación, firma o empaquetado.
func (s *EmissionService) fail(ctx context.Context, log zerolog.Logger, inv *entity.Invoice, step string, cause error) error {
	inv.Status = entity.StatusError
	inv.ResponseMessage = cause.Error()
	inv.UpdatedAt = s.now()
	if err := s.invoices.MarkStatus(ctx, inv); err != nil {
		log.Error().Err(err).Str("step", step).Msg("no se pudo persistir ERROR")
		cause = errors.Join(cause, err)
	}
	log.Error().Err(cause).Str("step", step).Msg("emisión abortada")
	return fmt.Errorf("emisión %s (%s): %w", inv.DocumentID(), step, cause)
}
