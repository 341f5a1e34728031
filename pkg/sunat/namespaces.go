package sunat

// Namespaces UBL 2.1 usados en la factura.
const (
	NsInvoice = "urn:oasis:names:specification:ubl:schema:xsd:Invoice-2"
	NsCac     = "urn:oasis:names:specification:ubl:schema:xsd:CommonAggregateComponents-2"
	NsCbc     = "urn:oasis:names:specification:ubl:schema:xsd:CommonBasicComponents-2"
	NsExt     = "urn:oasis:names:specification:ubl:schema:xsd:CommonExtensionComponents-2"
	NsDs      = "http://www.w3.org/2000/09/xmldsig#"
	NsAR      = "urn:oasis:names:specification:ubl:schema:xsd:ApplicationResponse-2"
)

// Namespaces SOAP / WS-Security del servicio billService.
const (
	NsSoapEnv = "http://schemas.xmlsoap.org/soap/envelope/"
	NsService = "http://service.sunat.gob.pe"
	NsWSSE    = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-secext-1.0.xsd"
	// PasswordTextType tipo del wsse:Password en texto plano.
	PasswordTextType = "http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-username-token-profile-1.0#PasswordText"
)

// Endpoints del servicio de emisión (billService).
const (
	EndpointBeta       = "https://e-beta.sunat.gob.pe/ol-ti-itcpfegem-beta/billService"
	EndpointProduction = "https://e-factura.sunat.gob.pe/ol-ti-itcpfegem/billService"
)

// Credenciales públicas del ambiente beta.
const (
	BetaRUC         = "20000000001"
	BetaSOLUser     = "MODDATOS"
	BetaSOLPassword = "moddatos"
)
