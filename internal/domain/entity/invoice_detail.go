package entity

import "github.com/shopspring/decimal"

// InvoiceLine representa una línea de detalle del comprobante.
// Index es 1-based y consecutivo.
type InvoiceLine struct {
	Index         int
	Description   string
	ProductCode   string
	UnitCode      string // Catálogo 03, por defecto NIU
	Quantity      decimal.Decimal
	UnitPrice     decimal.Decimal // Valor unitario sin IGV
	TaxPercent    decimal.Decimal // 18 para operaciones gravadas
	TaxableAmount decimal.Decimal // Quantity × UnitPrice
	TaxAmount     decimal.Decimal
}

// PriceWithTax precio unitario con IGV (cac:PricingReference).
func (l InvoiceLine) PriceWithTax() decimal.Decimal {
	return l.UnitPrice.Add(l.UnitPrice.Mul(l.TaxPercent).Div(decimal.NewFromInt(100))).Round(2)
}
