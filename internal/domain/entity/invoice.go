package entity

import (
	"time"

	"github.com/jhoicas/sunat-cpe/pkg/sunat"
	"github.com/shopspring/decimal"
)

// Estados del comprobante frente a SUNAT.
const (
	StatusPending  = "PENDIENTE" // Numerado, aún sin respuesta de SUNAT (o error de transporte)
	StatusSigned   = "FIRMADA"   // XML firmado y empaquetado, pendiente de envío
	StatusAccepted = "ACEPTADA"  // CDR de aceptación (real o simulado)
	StatusRejected = "RECHAZADA" // Rechazo de negocio; el correlativo queda retirado
	StatusError    = "ERROR"     // Falló la generación, la firma o el empaquetado
)

// Invoice representa la cabecera de un comprobante electrónico.
type Invoice struct {
	ID           string
	DocumentType string // Catálogo 01
	Series       string
	Number       int64
	IssueDate    time.Time
	Currency     string

	TaxableAmount decimal.Decimal // Total valor de venta (sin IGV)
	TaxAmount     decimal.Decimal // IGV
	PayableAmount decimal.Decimal // Importe total

	Supplier Supplier
	Customer Customer
	Lines    []InvoiceLine

	Status          string
	ResponseCode    string
	ResponseMessage string
	Simulated       bool // true si la aceptación fue sintetizada sin contactar a SUNAT
	XMLPath         string
	ZipPath         string
	CDRPath         string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// DocumentID devuelve "{serie}-{correlativo}".
func (i *Invoice) DocumentID() string {
	return sunat.DocumentID(i.Series, i.Number)
}

// FileBaseName devuelve el nombre base de los archivos XML/ZIP del comprobante.
func (i *Invoice) FileBaseName() string {
	return sunat.FileBaseName(i.Supplier.RUC, i.DocumentType, i.Series, i.Number)
}

// ApplyDefaults completa tipo de documento, serie, moneda y unidad de medida vacíos.
func (i *Invoice) ApplyDefaults() {
	if i.DocumentType == "" {
		i.DocumentType = sunat.DocumentTypeInvoice
	}
	if i.Series == "" {
		i.Series = sunat.DefaultSeries
	}
	if i.Currency == "" {
		i.Currency = sunat.CurrencyPEN
	}
	for k := range i.Lines {
		if i.Lines[k].UnitCode == "" {
			i.Lines[k].UnitCode = sunat.UnitProduct
		}
		if i.Lines[k].TaxPercent.IsZero() {
			i.Lines[k].TaxPercent = decimal.NewFromInt(sunat.IGVPercent)
		}
	}
}
