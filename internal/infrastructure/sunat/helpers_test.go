package sunat_test

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/sunat-cpe/internal/domain/entity"
	domsunat "github.com/jhoicas/sunat-cpe/internal/domain/sunat"
	infrasunat "github.com/jhoicas/sunat-cpe/internal/infrastructure/sunat"
)

// ── helper ──

// testInvoice escenario A: 2 × 10.00 con IGV 18%, totales calculados.
func testInvoice() *entity.Invoice {
	inv := &entity.Invoice{
		DocumentType: "01",
		Series:       "F001",
		Number:       1,
		IssueDate:    time.Date(2024, 5, 10, 9, 30, 0, 0, time.UTC),
		Currency:     "PEN",
		Supplier: entity.Supplier{
			RUC:       "20123456786",
			LegalName: "EMPRESA DEMO S.A.C.",
			TradeName: "DEMO",
			Address: entity.Address{
				Ubigeo:      "150101",
				Street:      "AV. LOS OLIVOS 123",
				District:    "LIMA",
				Province:    "LIMA",
				Department:  "LIMA",
				CountryCode: "PE",
			},
		},
		Customer: entity.Customer{IdentityType: "6", DocumentNumber: "20000000001", Name: "CLIENTE S.A."},
		Lines: []entity.InvoiceLine{{
			Description: "Producto",
			ProductCode: "P001",
			Quantity:    decimal.NewFromInt(2),
			UnitPrice:   decimal.RequireFromString("10.00"),
			TaxPercent:  decimal.NewFromInt(18),
		}},
	}
	domsunat.ComputeTotals(inv)
	return inv
}

// soapOK envuelve un applicationResponse como lo devuelve el billService.
func soapOK(b64 string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>` +
		`<soap-env:Envelope xmlns:soap-env="http://schemas.xmlsoap.org/soap/envelope/">` +
		`<soap-env:Header/><soap-env:Body>` +
		`<br:sendBillResponse xmlns:br="http://service.sunat.gob.pe">` +
		`<applicationResponse>` + b64 + `</applicationResponse>` +
		`</br:sendBillResponse></soap-env:Body></soap-env:Envelope>`
}

// soapFault respuesta de error SOAP 1.1.
func soapFault(code, msg string) string {
	return `<?xml version="1.0" encoding="UTF-8"?>` +
		`<soap-env:Envelope xmlns:soap-env="http://schemas.xmlsoap.org/soap/envelope/"><soap-env:Body>` +
		`<soap-env:Fault><faultcode>` + code + `</faultcode><faultstring>` + msg + `</faultstring></soap-env:Fault>` +
		`</soap-env:Body></soap-env:Envelope>`
}

// cdrXML ApplicationResponse mínimo con la forma real del CDR.
func cdrXML(code, description string, notes ...string) string {
	var b strings.Builder
	b.WriteString(`<?xml version="1.0" encoding="UTF-8"?>`)
	b.WriteString(`<ar:ApplicationResponse xmlns:ar="urn:oasis:names:specification:ubl:schema:xsd:ApplicationResponse-2"` +
		` xmlns:cac="urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"` +
		` xmlns:cbc="urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2">`)
	b.WriteString(`<cbc:UBLVersionID>2.0</cbc:UBLVersionID><cbc:ID>1715350000000</cbc:ID>`)
	for _, n := range notes {
		b.WriteString(`<cbc:Note>` + n + `</cbc:Note>`)
	}
	b.WriteString(`<cac:DocumentResponse><cac:Response><cbc:ReferenceID>F001-00000001</cbc:ReferenceID>`)
	b.WriteString(`<cbc:ResponseCode>` + code + `</cbc:ResponseCode>`)
	b.WriteString(`<cbc:Description>` + description + `</cbc:Description>`)
	b.WriteString(`</cac:Response></cac:DocumentResponse></ar:ApplicationResponse>`)
	return b.String()
}

func zipped(t *testing.T, name string, content []byte) []byte {
	t.Helper()
	out, err := infrasunat.CompressXMLToZip(content, name)
	require.NoError(t, err)
	return out
}

func b64(data []byte) string { return base64.StdEncoding.EncodeToString(data) }
