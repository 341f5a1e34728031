package sunat

import (
	"github.com/jhoicas/sunat-cpe/internal/domain/entity"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ComputeTotals calcula importes por línea (redondeados a 2 decimales) y los totales
// de cabecera. Reasigna Index de forma consecutiva desde 1.
func ComputeTotals(inv *entity.Invoice) {
	var taxable, tax decimal.Decimal
	for k := range inv.Lines {
		l := &inv.Lines[k]
		l.Index = k + 1
		l.TaxableAmount = l.Quantity.Mul(l.UnitPrice).Round(2)
		l.TaxAmount = l.TaxableAmount.Mul(l.TaxPercent).Div(hundred).Round(2)
		taxable = taxable.Add(l.TaxableAmount)
		tax = tax.Add(l.TaxAmount)
	}
	inv.TaxableAmount = taxable.Round(2)
	inv.TaxAmount = tax.Round(2)
	inv.PayableAmount = inv.TaxableAmount.Add(inv.TaxAmount)
}
