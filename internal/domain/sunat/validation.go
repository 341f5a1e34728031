// Package sunat contiene reglas de dominio del comprobante electrónico SUNAT
// (coherencia de importes, identidad de las partes) y la taxonomía de errores y
// resultados del envío.
package sunat

import (
	"errors"
	"fmt"

	"github.com/jhoicas/sunat-cpe/internal/domain/entity"
	pkgsunat "github.com/jhoicas/sunat-cpe/pkg/sunat"
	"github.com/shopspring/decimal"
)

// ErrInvalidInvoice agrupa errores de validación del comprobante.
var ErrInvalidInvoice = errors.New("comprobante inválido para SUNAT")

// tolerancia de redondeo entre importes calculados y declarados.
var tolerance = decimal.New(1, -2)

// ValidateInvoice comprueba identidad de emisor y cliente, numeración de líneas y
// coherencia de importes: Payable == Taxable + Tax y Taxable ≈ Σ (cantidad × precio).
func ValidateInvoice(inv *entity.Invoice) error {
	if inv == nil {
		return fmt.Errorf("%w: comprobante nulo", ErrInvalidInvoice)
	}
	var errs []error

	if !pkgsunat.ValidDocumentTypes[inv.DocumentType] {
		errs = append(errs, fmt.Errorf("tipo de documento %q no soportado", inv.DocumentType))
	}
	if inv.Number <= 0 {
		errs = append(errs, fmt.Errorf("correlativo debe ser positivo, se recibió %d", inv.Number))
	}
	if err := pkgsunat.ValidateRUC(inv.Supplier.RUC); err != nil {
		errs = append(errs, fmt.Errorf("emisor: %w", err))
	}
	if err := pkgsunat.ValidateIdentity(inv.Customer.IdentityType, inv.Customer.DocumentNumber); err != nil {
		errs = append(errs, fmt.Errorf("cliente: %w", err))
	}
	// Factura (01) exige cliente con RUC.
	if inv.DocumentType == pkgsunat.DocumentTypeInvoice && inv.Customer.IdentityType != pkgsunat.IdentityTypeRUC {
		errs = append(errs, fmt.Errorf("cliente: una factura requiere RUC (tipo 6), se recibió tipo %q", inv.Customer.IdentityType))
	}

	if len(inv.Lines) == 0 {
		errs = append(errs, errors.New("el comprobante debe tener al menos una línea"))
	}
	var sumTaxable, sumTax decimal.Decimal
	for k, l := range inv.Lines {
		if l.Index != k+1 {
			errs = append(errs, fmt.Errorf("línea %d: índice %d fuera de secuencia", k+1, l.Index))
		}
		if !l.Quantity.IsPositive() {
			errs = append(errs, fmt.Errorf("línea %d: cantidad debe ser positiva", k+1))
		}
		expected := l.Quantity.Mul(l.UnitPrice)
		if l.TaxableAmount.Sub(expected).Abs().GreaterThan(tolerance) {
			errs = append(errs, fmt.Errorf("línea %d: valor de venta %s no coincide con cantidad × precio (%s)",
				k+1, l.TaxableAmount.StringFixed(2), expected.StringFixed(2)))
		}
		sumTaxable = sumTaxable.Add(l.TaxableAmount)
		sumTax = sumTax.Add(l.TaxAmount)
	}
	if len(inv.Lines) > 0 {
		if !inv.TaxableAmount.Round(2).Equal(sumTaxable.Round(2)) {
			errs = append(errs, fmt.Errorf("total gravado (%s) no coincide con la suma de líneas (%s)",
				inv.TaxableAmount.StringFixed(2), sumTaxable.StringFixed(2)))
		}
		if !inv.TaxAmount.Round(2).Equal(sumTax.Round(2)) {
			errs = append(errs, fmt.Errorf("IGV (%s) no coincide con la suma de líneas (%s)",
				inv.TaxAmount.StringFixed(2), sumTax.StringFixed(2)))
		}
	}
	if !inv.PayableAmount.Round(2).Equal(inv.TaxableAmount.Add(inv.TaxAmount).Round(2)) {
		errs = append(errs, fmt.Errorf("importe total (%s) no coincide con gravado + IGV (%s)",
			inv.PayableAmount.StringFixed(2), inv.TaxableAmount.Add(inv.TaxAmount).StringFixed(2)))
	}

	if len(errs) > 0 {
		return errors.Join(append([]error{ErrInvalidInvoice}, errs...)...)
	}
	return nil
}
