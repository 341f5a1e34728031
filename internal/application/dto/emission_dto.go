package dto

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/sunat-cpe/internal/domain/entity"
)

// EmitInvoiceRequest comprobante a emitir (archivo JSON de `cpe emitir`).
// Si Number es 0 se asigna el siguiente correlativo de la serie.
type EmitInvoiceRequest struct {
	DocumentType string               `json:"document_type,omitempty"`
	Series       string               `json:"series,omitempty"`
	Number       int64                `json:"number,omitempty"`
	IssueDate    string               `json:"issue_date,omitempty"` // RFC 3339 o YYYY-MM-DD
	Currency     string               `json:"currency,omitempty"`
	Supplier     SupplierRequest      `json:"supplier"`
	Customer     CustomerRequest      `json:"customer"`
	Items        []InvoiceLineRequest `json:"items"`
}

// AddressRequest domicilio.
type AddressRequest struct {
	Ubigeo            string `json:"ubigeo,omitempty"`
	Street            string `json:"street,omitempty"`
	District          string `json:"district,omitempty"`
	Province          string `json:"province,omitempty"`
	Department        string `json:"department,omitempty"`
	CountryCode       string `json:"country_code,omitempty"`
	EstablishmentCode string `json:"establishment_code,omitempty"`
}

// SupplierRequest emisor. RUC vacío toma SUNAT_RUC.
type SupplierRequest struct {
	RUC       string         `json:"ruc,omitempty"`
	LegalName string         `json:"legal_name"`
	TradeName string         `json:"trade_name,omitempty"`
	Address   AddressRequest `json:"address"`
}

// CustomerRequest adquirente.
type CustomerRequest struct {
	IdentityType   string          `json:"identity_type"`
	DocumentNumber string          `json:"document_number"`
	Name           string          `json:"name"`
	Address        *AddressRequest `json:"address,omitempty"`
}

// InvoiceLineRequest línea; los importes se calculan a partir de cantidad y valor unitario.
type InvoiceLineRequest struct {
	Description string          `json:"description"`
	ProductCode string          `json:"product_code,omitempty"`
	UnitCode    string          `json:"unit_code,omitempty"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TaxPercent  decimal.Decimal `json:"tax_percent,omitempty"`
}

// ToEntity convierte la petición en entidad de dominio.
func (r EmitInvoiceRequest) ToEntity() (*entity.Invoice, error) {
	inv := &entity.Invoice{
		DocumentType: r.DocumentType,
		Series:       r.Series,
		Number:       r.Number,
		Currency:     r.Currency,
		Supplier: entity.Supplier{
			RUC:       r.Supplier.RUC,
			LegalName: r.Supplier.LegalName,
			TradeName: r.Supplier.TradeName,
			Address:   r.Supplier.Address.toEntity(),
		},
		Customer: entity.Customer{
			IdentityType:   r.Customer.IdentityType,
			DocumentNumber: r.Customer.DocumentNumber,
			Name:           r.Customer.Name,
		},
	}
	if r.Customer.Address != nil {
		a := r.Customer.Address.toEntity()
		inv.Customer.Address = &a
	}
	if r.IssueDate != "" {
		t, err := parseDate(r.IssueDate)
		if err != nil {
			return nil, err
		}
		inv.IssueDate = t
	}
	for _, it := range r.Items {
		inv.Lines = append(inv.Lines, entity.InvoiceLine{
			Description: it.Description,
			ProductCode: it.ProductCode,
			UnitCode:    it.UnitCode,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			TaxPercent:  it.TaxPercent,
		})
	}
	return inv, nil
}

func (a AddressRequest) toEntity() entity.Address {
	return entity.Address{
		Ubigeo:            a.Ubigeo,
		Street:            a.Street,
		District:          a.District,
		Province:          a.Province,
		Department:        a.Department,
		CountryCode:       a.CountryCode,
		EstablishmentCode: a.EstablishmentCode,
	}
}

// Lima no usa horario de verano: UTC-5 fijo.
var lima = time.FixedZone("PET", -5*60*60)

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, lima)
	if err != nil {
		return time.Time{}, fmt.Errorf("issue_date %q: use RFC 3339 o YYYY-MM-DD", s)
	}
	return t, nil
}

// EmissionResponse resumen de una emisión (salida de `cpe emitir`).
type EmissionResponse struct {
	ID           string `json:"id"`
	DocumentID   string `json:"document_id"`
	Status       string `json:"status"`
	ResponseCode string `json:"response_code,omitempty"`
	Message      string `json:"message,omitempty"`
	Simulated    bool   `json:"simulated"`
	Digest       string `json:"digest,omitempty"`
	XMLPath      string `json:"xml_path,omitempty"`
	ZipPath      string `json:"zip_path,omitempty"`
	CDRPath      string `json:"cdr_path,omitempty"`
	Error        string `json:"error,omitempty"`
}

// StatusResponse salida de `cpe estado`.
type StatusResponse struct {
	ID            string `json:"id"`
	DocumentID    string `json:"document_id"`
	LocalStatus   string `json:"local_status"`
	StatusCode    string `json:"status_code"`
	StatusMessage string `json:"status_message"`
}
