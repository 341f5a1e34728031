package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/jhoicas/sunat-cpe/internal/application/billing"
	"github.com/jhoicas/sunat-cpe/internal/application/dto"
	"github.com/jhoicas/sunat-cpe/internal/domain/entity"
	"github.com/jhoicas/sunat-cpe/internal/infrastructure/postgres"
	"github.com/jhoicas/sunat-cpe/internal/infrastructure/sunat/signer"
)

func emitAction(c *cli.Context) error {
	if c.NArg() == 0 {
		return cli.Exit("indique al menos un archivo JSON", 2)
	}
	e, err := setup(c)
	if err != nil {
		return err
	}

	var invoices []*entity.Invoice
	for _, path := range c.Args().Slice() {
		reqs, err := readRequests(path)
		if err != nil {
			return err
		}
		for i, r := range reqs {
			inv, err := r.ToEntity()
			if err != nil {
				return fmt.Errorf("%s[%d]: %w", path, i, err)
			}
			if inv.Supplier.RUC == "" {
				inv.Supplier.RUC = e.cfg.SUNAT.RUC
			}
			if inv.Series == "" {
				inv.Series = e.cfg.SUNAT.DefaultSeries
			}
			invoices = append(invoices, inv)
		}
	}

	pool, err := e.openPool(c.Context)
	if err != nil {
		return err
	}
	defer pool.Close()
	svc, err := e.emissionService(pool)
	if err != nil {
		return err
	}

	items := svc.EmitBatch(c.Context, invoices, e.cfg.SUNAT.MaxConcurrency)
	out := make([]dto.EmissionResponse, 0, len(items))
	failed := 0
	for _, it := range items {
		if it.Err != nil {
			failed++
		}
		out = append(out, emissionResponse(it.Invoice, it.Emission, it.Err))
	}
	if err := printJSON(c.App.Writer, out); err != nil {
		return err
	}
	if failed > 0 {
		return cli.Exit(fmt.Sprintf("%d de %d comprobantes no fueron aceptados", failed, len(items)), 1)
	}
	return nil
}

func statusAction(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return cli.Exit("indique el id del comprobante", 2)
	}
	e, err := setup(c)
	if err != nil {
		return err
	}
	pool, err := e.openPool(c.Context)
	if err != nil {
		return err
	}
	defer pool.Close()
	svc, err := e.emissionService(pool)
	if err != nil {
		return err
	}

	inv, st, err := svc.Status(c.Context, id)
	if err != nil {
		return err
	}
	return printJSON(c.App.Writer, dto.StatusResponse{
		ID:            inv.ID,
		DocumentID:    inv.DocumentID(),
		LocalStatus:   inv.Status,
		StatusCode:    st.StatusCode,
		StatusMessage: st.StatusMessage,
	})
}

func retransmitAction(c *cli.Context) error {
	id := c.Args().First()
	if id == "" {
		return cli.Exit("indique el id del comprobante", 2)
	}
	e, err := setup(c)
	if err != nil {
		return err
	}
	pool, err := e.openPool(c.Context)
	if err != nil {
		return err
	}
	defer pool.Close()
	svc, err := e.emissionService(pool)
	if err != nil {
		return err
	}

	res, err := svc.Retransmit(c.Context, id)
	var inv *entity.Invoice
	if res != nil {
		inv = res.Invoice
	}
	if perr := printJSON(c.App.Writer, emissionResponse(inv, res, err)); perr != nil {
		return perr
	}
	return err
}

func verifyAction(c *cli.Context) error {
	path := c.Args().First()
	if path == "" {
		return cli.Exit("indique el XML firmado", 2)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := signer.Verify(data, nil); err != nil {
		return cli.Exit(fmt.Sprintf("%s: %v", path, err), 1)
	}
	fmt.Fprintf(c.App.Writer, "%s: firma válida\n", path)
	return nil
}

func certificateAction(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	material, err := e.loadMaterial()
	if err != nil {
		return err
	}
	e.log.Info().Object("certificado", material).Msg("certificado cargado")

	left := time.Until(material.NotAfter())
	if left < 30*24*time.Hour {
		e.log.Warn().Dur("restante", left).Msg("el certificado vence en menos de 30 días")
	}
	fmt.Fprintln(c.App.Writer, material.String())
	return nil
}

func migrateAction(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	pool, err := e.openPool(c.Context)
	if err != nil {
		return err
	}
	defer pool.Close()

	n, err := postgres.Migrate(c.Context, pool, e.log.Component("migrate"))
	if err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "%d migraciones aplicadas\n", n)
	return nil
}

// readRequests acepta un objeto o un arreglo de objetos.
func readRequests(path string) ([]dto.EmitInvoiceRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var reqs []dto.EmitInvoiceRequest
		if err := json.Unmarshal(data, &reqs); err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return reqs, nil
	}
	var req dto.EmitInvoiceRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return []dto.EmitInvoiceRequest{req}, nil
}

func emissionResponse(inv *entity.Invoice, res *billing.EmissionResult, err error) dto.EmissionResponse {
	var out dto.EmissionResponse
	if res != nil && res.Invoice != nil {
		inv = res.Invoice
	}
	if inv != nil {
		out.ID = inv.ID
		out.Status = inv.Status
		out.ResponseCode = inv.ResponseCode
		out.Message = inv.ResponseMessage
		out.Simulated = inv.Simulated
		if inv.Number > 0 {
			out.DocumentID = inv.DocumentID()
		}
	}
	if res != nil {
		out.Digest = res.DigestValue
		out.XMLPath = res.XMLPath
		out.ZipPath = res.ZipPath
		out.CDRPath = res.CDRPath
	}
	if err != nil {
		out.Error = err.Error()
	}
	return out
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
