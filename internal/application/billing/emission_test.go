package billing_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/sunat-cpe/internal/application/billing"
	"github.com/jhoicas/sunat-cpe/internal/domain"
	"github.com/jhoicas/sunat-cpe/internal/domain/entity"
	domsunat "github.com/jhoicas/sunat-cpe/internal/domain/sunat"
	infrasunat "github.com/jhoicas/sunat-cpe/internal/infrastructure/sunat"
	"github.com/jhoicas/sunat-cpe/internal/infrastructure/sunat/signer"
	"github.com/jhoicas/sunat-cpe/internal/infrastructure/sunat/signer/signertest"
)

// ── fakes ──

type fakeSequences struct {
	mu    sync.Mutex
	next  map[string]int64
	calls int
}

func (f *fakeSequences) NextSequenceNumber(_ context.Context, series string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.next == nil {
		f.next = map[string]int64{}
	}
	f.calls++
	f.next[series]++
	return f.next[series], nil
}

type fakeInvoices struct {
	mu       sync.Mutex
	byID     map[string]entity.Invoice
	outcomes map[string]*domsunat.TransmissionResult
	history  map[string][]string
}

func newFakeInvoices() *fakeInvoices {
	return &fakeInvoices{
		byID:     map[string]entity.Invoice{},
		outcomes: map[string]*domsunat.TransmissionResult{},
		history:  map[string][]string{},
	}
}

func (f *fakeInvoices) Create(_ context.Context, inv *entity.Invoice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[inv.ID]; ok {
		return domain.ErrDuplicate
	}
	for _, other := range f.byID {
		if other.Series == inv.Series && other.Number == inv.Number {
			return domain.ErrDuplicate
		}
	}
	f.byID[inv.ID] = *inv
	f.history[inv.ID] = append(f.history[inv.ID], inv.Status)
	return nil
}

func (f *fakeInvoices) GetByID(_ context.Context, id string) (*entity.Invoice, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	inv, ok := f.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &inv, nil
}

func (f *fakeInvoices) MarkStatus(_ context.Context, inv *entity.Invoice) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.byID[inv.ID]; !ok {
		return domain.ErrNotFound
	}
	f.byID[inv.ID] = *inv
	f.history[inv.ID] = append(f.history[inv.ID], inv.Status)
	return nil
}

func (f *fakeInvoices) RecordOutcome(_ context.Context, id string, res *domsunat.TransmissionResult) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.outcomes[id] = res
	return nil
}

// scriptedTransmitter devuelve los resultados en orden; el último se repite.
type scriptedTransmitter struct {
	mu      sync.Mutex
	results []*domsunat.TransmissionResult
	files   []string
}

func (s *scriptedTransmitter) SendBill(_ context.Context, _ []byte, fileName string) *domsunat.TransmissionResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.files = append(s.files, fileName)
	res := s.results[0]
	if len(s.results) > 1 {
		s.results = s.results[1:]
	}
	return res
}

func (s *scriptedTransmitter) GetStatus(context.Context, string, string, string, int64) (*infrasunat.StatusResult, error) {
	return &infrasunat.StatusResult{StatusCode: "0001", StatusMessage: "aceptado"}, nil
}

// brokenCDRStore empaqueta con el Packager real pero falla al guardar el CDR.
type brokenCDRStore struct {
	billing.ArtifactStore
}

func (brokenCDRStore) WriteCDR(string, []byte) (string, error) {
	return "", errors.New("disco lleno")
}

// ── helpers ──

type fixture struct {
	svc       *billing.EmissionService
	fs        afero.Fs
	invoices  *fakeInvoices
	sequences *fakeSequences
}

func newFixture(t *testing.T, tx billing.Transmitter, material *signer.SigningMaterial) *fixture {
	t.Helper()
	f := &fixture{fs: afero.NewMemMapFs(), invoices: newFakeInvoices(), sequences: &fakeSequences{}}
	f.svc = billing.NewEmissionService(
		f.invoices,
		f.sequences,
		infrasunat.NewXMLBuilderService(),
		signer.NewDigitalSignatureService(),
		material,
		infrasunat.NewPackager(f.fs, "/cpe"),
		tx,
		zerolog.Nop(),
	).WithClock(func() time.Time { return time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC) })
	return f
}

func simulatedClient() billing.Transmitter {
	return infrasunat.NewSOAPClient(infrasunat.ClientConfig{Mode: infrasunat.ModeSimulated}, zerolog.Nop())
}

func newInvoice() *entity.Invoice {
	return &entity.Invoice{
		Supplier: entity.Supplier{
			RUC:       "20123456786",
			LegalName: "EMPRESA DEMO S.A.C.",
			Address:   entity.Address{Ubigeo: "150101", Street: "AV. LOS OLIVOS 123", CountryCode: "PE"},
		},
		Customer: entity.Customer{IdentityType: "6", DocumentNumber: "20000000001", Name: "CLIENTE S.A."},
		Lines: []entity.InvoiceLine{{
			Description: "Producto",
			Quantity:    decimal.NewFromInt(2),
			UnitPrice:   decimal.RequireFromString("10.00"),
		}},
	}
}

// ── tests ──

// Escenario A + D: emisión completa en modo simulado.
func TestEmit_Simulado(t *testing.T) {
	f := newFixture(t, simulatedClient(), signertest.Material(t))

	out, err := f.svc.Emit(t.Context(), newInvoice())
	require.NoError(t, err)

	inv := out.Invoice
	assert.EqualValues(t, 1, inv.Number)
	assert.Equal(t, "F001", inv.Series)
	assert.Equal(t, "20.00", inv.TaxableAmount.StringFixed(2))
	assert.Equal(t, "3.60", inv.TaxAmount.StringFixed(2))
	assert.Equal(t, "23.60", inv.PayableAmount.StringFixed(2))

	assert.Equal(t, entity.StatusAccepted, inv.Status)
	assert.True(t, inv.Simulated)
	assert.Equal(t, "0", inv.ResponseCode)
	assert.Equal(t, "/cpe/20123456786-01-F001-00000001.zip", out.ZipPath)
	assert.Equal(t, "/cpe/R-20123456786-01-F001-00000001.zip", out.CDRPath)

	signed, err := afero.ReadFile(f.fs, out.XMLPath)
	require.NoError(t, err)
	assert.NoError(t, signer.Verify(signed, nil))

	cdr, err := afero.ReadFile(f.fs, out.CDRPath)
	require.NoError(t, err)
	receipt, err := infrasunat.ParseCDR(cdr)
	require.NoError(t, err)
	assert.Equal(t, "F001-00000001", receipt.ReferenceID)

	stored, err := f.invoices.GetByID(t.Context(), inv.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusAccepted, stored.Status)
	assert.Equal(t, []string{entity.StatusPending, entity.StatusSigned, entity.StatusAccepted}, f.invoices.history[inv.ID])
	assert.True(t, f.invoices.outcomes[inv.ID].Simulated)
}

func TestEmit_CorrelativosMonotonos(t *testing.T) {
	f := newFixture(t, simulatedClient(), signertest.Material(t))

	var numbers []int64
	for range 3 {
		out, err := f.svc.Emit(t.Context(), newInvoice())
		require.NoError(t, err)
		numbers = append(numbers, out.Invoice.Number)
	}
	assert.Equal(t, []int64{1, 2, 3}, numbers)

	entries, err := afero.ReadDir(f.fs, "/cpe")
	require.NoError(t, err)
	assert.Len(t, entries, 9, "xml + zip + CDR por comprobante")
}

// Un rechazo retira el correlativo: el siguiente comprobante no lo reutiliza.
func TestEmit_RechazoRetiraCorrelativo(t *testing.T) {
	tx := &scriptedTransmitter{results: []*domsunat.TransmissionResult{
		domsunat.Rejected("soap:Client", "Invalid credentials"),
		domsunat.Accepted("0", "La Factura numero F001-00000002, ha sido aceptada", []byte("PKcdr"), nil),
	}}
	f := newFixture(t, tx, signertest.Material(t))

	rejected, err := f.svc.Emit(t.Context(), newInvoice())
	require.ErrorIs(t, err, domsunat.ErrRejected)
	assert.Equal(t, entity.StatusRejected, rejected.Invoice.Status)
	assert.Equal(t, "Invalid credentials", rejected.Invoice.ResponseMessage, "mensaje original de SUNAT")
	assert.Equal(t, "soap:Client", rejected.Invoice.ResponseCode)
	assert.Empty(t, rejected.CDRPath)

	accepted, err := f.svc.Emit(t.Context(), newInvoice())
	require.NoError(t, err)
	assert.EqualValues(t, 2, accepted.Invoice.Number)
	assert.False(t, accepted.Invoice.Simulated)
	assert.Equal(t, []string{
		"20123456786-01-F001-00000001.zip",
		"20123456786-01-F001-00000002.zip",
	}, tx.files)
}

// Un error de transporte deja PENDIENTE; el reenvío usa el mismo ZIP y correlativo.
func TestEmit_TransporteYReenvio(t *testing.T) {
	tx := &scriptedTransmitter{results: []*domsunat.TransmissionResult{
		domsunat.TransportFailure(domsunat.Timeout, "deadline exceeded"),
		domsunat.Accepted("0", "aceptada", []byte("PKcdr"), nil),
	}}
	f := newFixture(t, tx, signertest.Material(t))

	first, err := f.svc.Emit(t.Context(), newInvoice())
	require.Error(t, err)
	assert.True(t, domsunat.IsTransient(err))
	assert.Equal(t, entity.StatusPending, first.Invoice.Status)
	assert.NotEqual(t, entity.StatusAccepted, f.invoices.byID[first.Invoice.ID].Status)

	again, err := f.svc.Retransmit(t.Context(), first.Invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusAccepted, again.Invoice.Status)
	assert.EqualValues(t, 1, again.Invoice.Number)
	assert.Equal(t, "/cpe/R-20123456786-01-F001-00000001.zip", again.CDRPath)
	assert.Equal(t, 1, f.sequences.calls)

	_, err = f.svc.Retransmit(t.Context(), first.Invoice.ID)
	assert.ErrorIs(t, err, domain.ErrConflict, "un comprobante aceptado no se reenvía")
}

func TestEmit_InvalidoNoConsumeCorrelativo(t *testing.T) {
	f := newFixture(t, simulatedClient(), signertest.Material(t))
	inv := newInvoice()
	inv.Customer = entity.Customer{IdentityType: "1", DocumentNumber: "12345678", Name: "PERSONA"}

	_, err := f.svc.Emit(t.Context(), inv)
	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.ErrorIs(t, err, domsunat.ErrInvalidInvoice)
	assert.Zero(t, f.sequences.calls)
}

func TestEmit_FirmaFallidaMarcaError(t *testing.T) {
	f := newFixture(t, simulatedClient(), nil)

	out, err := f.svc.Emit(t.Context(), newInvoice())
	require.Error(t, err)
	var se *domsunat.SignatureError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, domsunat.SigningFailed, se.Kind)
	assert.Equal(t, entity.StatusError, out.Invoice.Status)
	assert.Equal(t, entity.StatusError, f.invoices.byID[out.Invoice.ID].Status)
	assert.Empty(t, f.invoices.outcomes, "sin firma no hay envío")
}

func TestEmitBatch(t *testing.T) {
	f := newFixture(t, simulatedClient(), signertest.Material(t))
	invs := make([]*entity.Invoice, 6)
	for i := range invs {
		invs[i] = newInvoice()
	}

	items := f.svc.EmitBatch(t.Context(), invs, 3)
	require.Len(t, items, len(invs))

	seen := map[int64]bool{}
	for i, item := range items {
		require.NoError(t, item.Err)
		assert.Equal(t, i, item.Index)
		assert.Same(t, invs[i], item.Invoice)
		assert.False(t, seen[item.Invoice.Number], "correlativo repetido %d", item.Invoice.Number)
		seen[item.Invoice.Number] = true
	}
	for n := int64(1); n <= int64(len(invs)); n++ {
		assert.True(t, seen[n], "falta el correlativo %d", n)
	}
}

func TestStatus(t *testing.T) {
	f := newFixture(t, &scriptedTransmitter{results: []*domsunat.TransmissionResult{
		domsunat.Accepted("0", "ok", nil, nil),
	}}, signertest.Material(t))
	out, err := f.svc.Emit(t.Context(), newInvoice())
	require.NoError(t, err)

	inv, st, err := f.svc.Status(t.Context(), out.Invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, out.Invoice.ID, inv.ID)
	assert.Equal(t, "0001", st.StatusCode)
}

// Un CDR que no se pudo guardar no pasa en silencio: el estado ACEPTADA se
// persiste igual y Emit devuelve el error.
func TestEmit_FalloAlGuardarCDR(t *testing.T) {
	fs := afero.NewMemMapFs()
	invoices := newFakeInvoices()
	svc := billing.NewEmissionService(
		invoices,
		&fakeSequences{},
		infrasunat.NewXMLBuilderService(),
		signer.NewDigitalSignatureService(),
		signertest.Material(t),
		brokenCDRStore{ArtifactStore: infrasunat.NewPackager(fs, "/cpe")},
		simulatedClient(),
		zerolog.Nop(),
	)

	out, err := svc.Emit(t.Context(), newInvoice())
	require.Error(t, err)
	assert.ErrorContains(t, err, "disco lleno")
	require.NotNil(t, out)
	assert.ErrorIs(t, err, out.CDRError)
	assert.Empty(t, out.CDRPath)
	assert.True(t, out.Result.IsAccepted())

	stored, err := invoices.GetByID(t.Context(), out.Invoice.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.StatusAccepted, stored.Status)
	assert.Empty(t, stored.CDRPath)
	assert.NotNil(t, invoices.outcomes[out.Invoice.ID])
}
