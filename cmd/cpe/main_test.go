package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	"github.com/jhoicas/sunat-cpe/internal/domain/entity"
	domsunat "github.com/jhoicas/sunat-cpe/internal/domain/sunat"
	infrasunat "github.com/jhoicas/sunat-cpe/internal/infrastructure/sunat"
	"github.com/jhoicas/sunat-cpe/internal/infrastructure/sunat/signer"
	"github.com/jhoicas/sunat-cpe/internal/infrastructure/sunat/signer/signertest"
)

const requestJSON = `{
  "series": "F001",
  "issue_date": "2024-05-10",
  "supplier": {"ruc": "20123456786", "legal_name": "EMPRESA DEMO S.A.C.",
               "address": {"ubigeo": "150101", "street": "AV. LOS OLIVOS 123", "district": "LIMA",
                           "province": "LIMA", "department": "LIMA"}},
  "customer": {"identity_type": "6", "document_number": "20000000001", "name": "CLIENTE S.A."},
  "items": [{"description": "Producto", "quantity": "2", "unit_price": "10.00", "tax_percent": "18"}]
}`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestReadRequests_ObjetoYArreglo(t *testing.T) {
	one, err := readRequests(writeFile(t, "uno.json", requestJSON))
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "F001", one[0].Series)

	many, err := readRequests(writeFile(t, "lote.json", "\n["+requestJSON+","+requestJSON+"]"))
	require.NoError(t, err)
	assert.Len(t, many, 2)

	_, err = readRequests(writeFile(t, "malo.json", "{"))
	assert.Error(t, err)
}

func TestVerificar(t *testing.T) {
	reqs, err := readRequests(writeFile(t, "uno.json", requestJSON))
	require.NoError(t, err)
	inv, err := reqs[0].ToEntity()
	require.NoError(t, err)
	inv.Number = 7
	inv.ApplyDefaults()
	domsunat.ComputeTotals(inv)

	unsigned, err := infrasunat.NewXMLBuilderService().Build(inv)
	require.NoError(t, err)
	signed, err := signer.NewDigitalSignatureService().Sign(unsigned, signertest.Material(t))
	require.NoError(t, err)
	path := writeFile(t, "firmado.xml", string(signed.XML))

	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	app.ExitErrHandler = func(*cli.Context, error) {}
	require.NoError(t, app.Run([]string{"cpe", "verificar", path}))
	assert.Contains(t, out.String(), "firma válida")

	tampered := bytes.Replace(signed.XML, []byte("CLIENTE S.A."), []byte("OTRO CLIENTE"), 1)
	bad := writeFile(t, "alterado.xml", string(tampered))
	assert.Error(t, app.Run([]string{"cpe", "verificar", bad}))
}

func TestEmissionResponse(t *testing.T) {
	inv := &entity.Invoice{ID: "abc", Series: "F001", Number: 3, Status: entity.StatusRejected, ResponseCode: "2800", ResponseMessage: "rechazado"}

	out := emissionResponse(inv, nil, errors.New("rechazo"))
	assert.Equal(t, "abc", out.ID)
	assert.Equal(t, "F001-00000003", out.DocumentID)
	assert.Equal(t, "RECHAZADA", out.Status)
	assert.Equal(t, "2800", out.ResponseCode)
	assert.Equal(t, "rechazo", out.Error)

	out = emissionResponse(&entity.Invoice{Status: entity.StatusError}, nil, nil)
	assert.Empty(t, out.DocumentID)
}
