package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/sunat-cpe/internal/domain"
	"github.com/jhoicas/sunat-cpe/internal/domain/entity"
	"github.com/jhoicas/sunat-cpe/internal/domain/repository"
	domsunat "github.com/jhoicas/sunat-cpe/internal/domain/sunat"
)

var _ repository.InvoiceRepository = (*InvoiceRepo)(nil)

// InvoiceRepo implementación de InvoiceRepository (usable con pool o tx).
type InvoiceRepo struct {
	q Querier
}

// NewInvoiceRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInvoiceRepository(q Querier) *InvoiceRepo {
	return &InvoiceRepo{q: q}
}

// Create persiste cabecera y líneas en una sola transacción.
// La combinación (ruc, tipo, serie, número) es única: un correlativo no se reutiliza.
func (r *InvoiceRepo) Create(ctx context.Context, inv *entity.Invoice) error {
	if inv.ID == "" {
		inv.ID = uuid.New().String()
	}
	supplier, err := json.Marshal(inv.Supplier)
	if err != nil {
		return fmt.Errorf("encode supplier: %w", err)
	}
	customer, err := json.Marshal(inv.Customer)
	if err != nil {
		return fmt.Errorf("encode customer: %w", err)
	}

	return withTx(ctx, r.q, func(q Querier) error {
		_, err := q.Exec(ctx, `
			INSERT INTO invoices (id, document_type, series, number, issue_date, currency,
			                      supplier_ruc, supplier, customer,
			                      taxable_amount, tax_amount, payable_amount,
			                      status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
			inv.ID, inv.DocumentType, inv.Series, inv.Number, inv.IssueDate, inv.Currency,
			inv.Supplier.RUC, supplier, customer,
			inv.TaxableAmount, inv.TaxAmount, inv.PayableAmount,
			inv.Status, inv.CreatedAt, inv.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return fmt.Errorf("comprobante %s: %w", inv.DocumentID(), domain.ErrDuplicate)
			}
			return fmt.Errorf("insert invoice: %w", err)
		}

		for _, l := range inv.Lines {
			_, err := q.Exec(ctx, `
				INSERT INTO invoice_lines (invoice_id, line_index, description, product_code, unit_code,
				                           quantity, unit_price, tax_percent, taxable_amount, tax_amount)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
				inv.ID, l.Index, l.Description, nullIfEmpty(l.ProductCode), l.UnitCode,
				l.Quantity, l.UnitPrice, l.TaxPercent, l.TaxableAmount, l.TaxAmount,
			)
			if err != nil {
				return fmt.Errorf("insert invoice line %d: %w", l.Index, err)
			}
		}
		return nil
	})
}

// GetByID obtiene el comprobante con sus líneas.
func (r *InvoiceRepo) GetByID(ctx context.Context, id string) (*entity.Invoice, error) {
	var inv entity.Invoice
	var supplier, customer []byte
	var code, msg, xmlPath, zipPath, cdrPath *string
	err := r.q.QueryRow(ctx, `
		SELECT id, document_type, series, number, issue_date, currency,
		       supplier, customer, taxable_amount, tax_amount, payable_amount,
		       status, response_code, response_message, simulated,
		       xml_path, zip_path, cdr_path, created_at, updated_at
		FROM invoices WHERE id = $1`, id).Scan(
		&inv.ID, &inv.DocumentType, &inv.Series, &inv.Number, &inv.IssueDate, &inv.Currency,
		&supplier, &customer, &inv.TaxableAmount, &inv.TaxAmount, &inv.PayableAmount,
		&inv.Status, &code, &msg, &inv.Simulated,
		&xmlPath, &zipPath, &cdrPath, &inv.CreatedAt, &inv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("comprobante %s: %w", id, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("get invoice: %w", err)
	}
	inv.ResponseCode, inv.ResponseMessage = derefStr(code), derefStr(msg)
	inv.XMLPath, inv.ZipPath, inv.CDRPath = derefStr(xmlPath), derefStr(zipPath), derefStr(cdrPath)
	if err := json.Unmarshal(supplier, &inv.Supplier); err != nil {
		return nil, fmt.Errorf("decode supplier: %w", err)
	}
	if err := json.Unmarshal(customer, &inv.Customer); err != nil {
		return nil, fmt.Errorf("decode customer: %w", err)
	}

	rows, err := r.q.Query(ctx, `
		SELECT line_index, description, product_code, unit_code,
		       quantity, unit_price, tax_percent, taxable_amount, tax_amount
		FROM invoice_lines WHERE invoice_id = $1 ORDER BY line_index`, id)
	if err != nil {
		return nil, fmt.Errorf("get invoice lines: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var l entity.InvoiceLine
		var productCode *string
		if err := rows.Scan(&l.Index, &l.Description, &productCode, &l.UnitCode,
			&l.Quantity, &l.UnitPrice, &l.TaxPercent, &l.TaxableAmount, &l.TaxAmount); err != nil {
			return nil, fmt.Errorf("scan invoice line: %w", err)
		}
		l.ProductCode = derefStr(productCode)
		inv.Lines = append(inv.Lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate invoice lines: %w", err)
	}
	return &inv, nil
}

// MarkStatus actualiza estado, rutas de artefactos y resumen de respuesta.
func (r *InvoiceRepo) MarkStatus(ctx context.Context, inv *entity.Invoice) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE invoices
		SET status           = $2,
		    response_code    = COALESCE($3, response_code),
		    response_message = COALESCE($4, response_message),
		    simulated        = $5,
		    xml_path         = COALESCE($6, xml_path),
		    zip_path         = COALESCE($7, zip_path),
		    cdr_path         = COALESCE($8, cdr_path),
		    updated_at       = $9
		WHERE id = $1`,
		inv.ID, inv.Status,
		nullIfEmpty(inv.ResponseCode), nullIfEmpty(inv.ResponseMessage), inv.Simulated,
		nullIfEmpty(inv.XMLPath), nullIfEmpty(inv.ZipPath), nullIfEmpty(inv.CDRPath),
		inv.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update invoice status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("comprobante %s: %w", inv.ID, domain.ErrNotFound)
	}
	return nil
}

// RecordOutcome guarda el CDR y deja traza de cada intento en transmissions.
// Una aceptación simulada queda marcada como tal en la traza.
func (r *InvoiceRepo) RecordOutcome(ctx context.Context, invoiceID string, res *domsunat.TransmissionResult) error {
	if res == nil {
		return fmt.Errorf("%w: resultado nulo", domain.ErrInvalidInput)
	}
	return withTx(ctx, r.q, func(q Querier) error {
		tag, err := q.Exec(ctx, `
			UPDATE invoices
			SET status           = $2,
			    response_code    = $3,
			    response_message = $4,
			    simulated        = $5,
			    cdr              = COALESCE($6, cdr),
			    updated_at       = now()
			WHERE id = $1`,
			invoiceID, res.InvoiceStatus(), nullIfEmpty(res.Code()), nullIfEmpty(res.Message), res.Simulated, nilIfEmpty(res.CDR),
		)
		if err != nil {
			return fmt.Errorf("update invoice outcome: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("comprobante %s: %w", invoiceID, domain.ErrNotFound)
		}

		_, err = q.Exec(ctx, `
			INSERT INTO transmissions (id, invoice_id, kind, code, message, error_kind, simulated, created_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, now())`,
			uuid.New().String(), invoiceID, string(res.Kind), nullIfEmpty(res.Code()), res.Message,
			nullIfEmpty(string(res.ErrorKind)), res.Simulated,
		)
		if err != nil {
			return fmt.Errorf("insert transmission: %w", err)
		}
		return nil
	})
}

func nilIfEmpty(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	return b
}
