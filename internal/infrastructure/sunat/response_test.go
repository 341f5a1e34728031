package sunat_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domsunat "github.com/jhoicas/sunat-cpe/internal/domain/sunat"
	infrasunat "github.com/jhoicas/sunat-cpe/internal/infrastructure/sunat"
)

func TestInterpretResponse_CDRAceptado(t *testing.T) {
	cdr := zipped(t, "R-20123456786-01-F001-00000001.xml",
		[]byte(cdrXML("0", "La Factura numero F001-00000001, ha sido aceptada")))

	res := infrasunat.InterpretResponse([]byte(soapOK(b64(cdr))))

	require.True(t, res.IsAccepted(), res.String())
	assert.Equal(t, "0", res.ResponseCode)
	assert.Equal(t, "La Factura numero F001-00000001, ha sido aceptada", res.Message)
	assert.Equal(t, cdr, res.CDR)
	require.NotNil(t, res.Receipt)
	assert.Equal(t, "F001-00000001", res.Receipt.ReferenceID)
	assert.False(t, res.Simulated)
}

func TestInterpretResponse_PrefijoIndiferente(t *testing.T) {
	cdr := zipped(t, "R-x.xml", []byte(cdrXML("0", "ok")))
	raw := `<S:Envelope xmlns:S="http://schemas.xmlsoap.org/soap/envelope/"><S:Body>` +
		`<ns2:sendBillResponse xmlns:ns2="http://service.sunat.gob.pe">` +
		`<ns2:applicationResponse>` + b64(cdr) + `</ns2:applicationResponse>` +
		`</ns2:sendBillResponse></S:Body></S:Envelope>`

	res := infrasunat.InterpretResponse([]byte(raw))
	require.True(t, res.IsAccepted(), res.String())
	assert.Equal(t, "ok", res.Message)
}

func TestInterpretResponse_ObservacionesLatin1(t *testing.T) {
	latin1 := `<?xml version="1.0" encoding="ISO-8859-1"?>` +
		`<ar:ApplicationResponse xmlns:ar="urn:oasis:names:specification:ubl:schema:xsd:ApplicationResponse-2"` +
		` xmlns:cac="urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"` +
		` xmlns:cbc="urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2">` +
		`<cbc:Note>4252 - El dato ingresado como atributo @listName no cumple con el formato establecido (observaci` + "\xf3" + `n)</cbc:Note>` +
		`<cac:DocumentResponse><cac:Response><cbc:ReferenceID>F001-00000001</cbc:ReferenceID>` +
		`<cbc:ResponseCode>4252</cbc:ResponseCode><cbc:Description>Aceptada con observaci` + "\xf3" + `n</cbc:Description>` +
		`</cac:Response></cac:DocumentResponse></ar:ApplicationResponse>`
	cdr := zipped(t, "R-x.xml", []byte(latin1))

	res := infrasunat.InterpretResponse([]byte(soapOK(b64(cdr))))

	require.True(t, res.IsAccepted(), "4000+ son observaciones, no rechazo")
	assert.Equal(t, "4252", res.ResponseCode)
	assert.Equal(t, "Aceptada con observación", res.Message)
	require.Len(t, res.Receipt.Notes, 1)
	assert.Contains(t, res.Receipt.Notes[0], "(observación)")
}

func TestInterpretResponse_RechazoEnCDR(t *testing.T) {
	cdr := zipped(t, "R-x.xml", []byte(cdrXML("2800", "El dato ingresado en el tipo de documento de identidad del receptor no esta permitido.")))

	res := infrasunat.InterpretResponse([]byte(soapOK(b64(cdr))))

	assert.Equal(t, domsunat.ResultRejected, res.Kind)
	assert.Equal(t, "2800", res.FaultCode)
	assert.Equal(t, "El dato ingresado en el tipo de documento de identidad del receptor no esta permitido.", res.Message)
	assert.Equal(t, cdr, res.CDR, "el CDR de rechazo también se conserva")
	assert.True(t, errors.Is(res.Err(), domsunat.ErrRejected))
}

func TestInterpretResponse_ZIPInternoIlegible(t *testing.T) {
	garbage := []byte("esto no es un zip")

	res := infrasunat.InterpretResponse([]byte(soapOK(b64(garbage))))

	require.True(t, res.IsAccepted())
	assert.Equal(t, "0", res.ResponseCode)
	assert.Equal(t, domsunat.DefaultAcceptedMessage, res.Message)
	assert.Equal(t, garbage, res.CDR)
	assert.Nil(t, res.Receipt)
}

func TestInterpretResponse_Fault(t *testing.T) {
	res := infrasunat.InterpretResponse([]byte(soapFault("soap-env:Client.0111", "No tiene el perfil para enviar comprobantes electronicos")))

	assert.Equal(t, domsunat.ResultRejected, res.Kind)
	assert.Equal(t, "soap-env:Client.0111", res.FaultCode)
	assert.Equal(t, "No tiene el perfil para enviar comprobantes electronicos", res.Message)
}

func TestInterpretResponse_FaultSinDetalle(t *testing.T) {
	raw := `<Envelope><Body><Fault></Fault></Body></Envelope>`

	res := infrasunat.InterpretResponse([]byte(raw))

	assert.Equal(t, domsunat.ResultRejected, res.Kind)
	assert.Equal(t, domsunat.DefaultFaultCode, res.FaultCode)
	assert.Equal(t, domsunat.DefaultFaultMessage, res.Message)
}

func TestInterpretResponse_NoReconocida(t *testing.T) {
	cases := map[string]string{
		"sin_cdr_ni_fault": `<Envelope><Body><otra>1</otra></Body></Envelope>`,
		"no_xml":           `<html><body>Service Unavailable`,
		"vacia":            ``,
		"base64_invalido":  soapOK("%%%no-base64%%%"),
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			res := infrasunat.InterpretResponse([]byte(raw))
			assert.Equal(t, domsunat.ResultTransportError, res.Kind)
			assert.Equal(t, domsunat.UnrecognizedResponse, res.ErrorKind)
			assert.True(t, domsunat.IsTransient(res.Err()))
		})
	}
}

func TestInterpretStatus(t *testing.T) {
	raw := `<S:Envelope xmlns:S="http://schemas.xmlsoap.org/soap/envelope/"><S:Body>` +
		`<ns2:getStatusResponse xmlns:ns2="http://service.sunat.gob.pe"><status>` +
		`<statusCode>0001</statusCode><statusMessage>El comprobante existe y está aceptado.</statusMessage>` +
		`</status></ns2:getStatusResponse></S:Body></S:Envelope>`

	st, err := infrasunat.InterpretStatus([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "0001", st.StatusCode)
	assert.Equal(t, "El comprobante existe y está aceptado.", st.StatusMessage)
	assert.Nil(t, st.CDR)
}

func TestInterpretStatus_ConCDRyFault(t *testing.T) {
	cdr := zipped(t, "R-x.xml", []byte(cdrXML("0", "aceptada")))
	raw := `<Envelope><Body><getStatusResponse><status><statusCode>0004</statusCode>` +
		`<content>` + b64(cdr) + `</content></status></getStatusResponse></Body></Envelope>`

	st, err := infrasunat.InterpretStatus([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "Sin mensaje", st.StatusMessage)
	assert.Equal(t, cdr, st.CDR)
	require.NotNil(t, st.Receipt)
	assert.Equal(t, "aceptada", st.Receipt.Description)

	_, err = infrasunat.InterpretStatus([]byte(soapFault("soap-env:Client.0102", "Usuario o contraseña incorrectos")))
	assert.ErrorIs(t, err, domsunat.ErrRejected)
	assert.Contains(t, err.Error(), "Usuario o contraseña incorrectos")

	_, err = infrasunat.InterpretStatus([]byte(`<a/>`))
	assert.True(t, domsunat.IsTransient(err))
}
