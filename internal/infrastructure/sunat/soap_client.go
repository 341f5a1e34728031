package sunat

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/base64"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	domsunat "github.com/jhoicas/sunat-cpe/internal/domain/sunat"
	pkgsunat "github.com/jhoicas/sunat-cpe/pkg/sunat"
)

// TransmissionMode decide si el cliente habla con SUNAT o sintetiza la respuesta.
type TransmissionMode string

const (
	ModeLive      TransmissionMode = "live"
	ModeSimulated TransmissionMode = "simulated"
)

const (
	// DefaultTimeout tiempo máximo de una llamada al billService.
	DefaultTimeout = 60 * time.Second

	soapActionSendBill  = "urn:sendBill"
	soapActionGetStatus = "urn:getStatus"
	maxResponseBytes    = 10 << 20
)

// ClientConfig configuración del cliente SOAP. Se pasa explícitamente: no hay
// estado global de "modo demo".
type ClientConfig struct {
	Endpoint       string // billService; vacío = beta
	StatusEndpoint string // getStatus; vacío = Endpoint
	RUC            string
	SOLUser        string
	SOLPassword    string
	Timeout        time.Duration
	Mode           TransmissionMode
	TLS            *tls.Config // identidad cliente para TLS mutuo (opcional)
	Clock          func() time.Time
}

// SOAPClient implementa sendBill y getStatus sobre net/http.
type SOAPClient struct {
	cfg        ClientConfig
	httpClient *http.Client
	log        zerolog.Logger
}

// NewSOAPClient construye el cliente aplicando valores por defecto.
func NewSOAPClient(cfg ClientConfig, log zerolog.Logger) *SOAPClient {
	if cfg.Endpoint == "" {
		cfg.Endpoint = pkgsunat.EndpointBeta
	}
	if cfg.StatusEndpoint == "" {
		cfg.StatusEndpoint = cfg.Endpoint
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeLive
	}
	if cfg.Clock == nil {
		cfg.Clock = time.Now
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.TLS != nil {
		transport.TLSClientConfig = cfg.TLS
	}
	return &SOAPClient{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout, Transport: transport},
		log:        log.With().Str("component", "sunat_soap").Logger(),
	}
}

// Mode modo de transmisión configurado.
func (c *SOAPClient) Mode() TransmissionMode { return c.cfg.Mode }

// ── Estructuras SOAP ──────────────────────────────────────────────────────────

type soapEnvelope struct {
	XMLName   xml.Name   `xml:"soapenv:Envelope"`
	XmlnsEnv  string     `xml:"xmlns:soapenv,attr"`
	XmlnsSer  string     `xml:"xmlns:ser,attr"`
	XmlnsWsse string     `xml:"xmlns:wsse,attr"`
	Header    soapHeader `xml:"soapenv:Header"`
	Body      soapBody   `xml:"soapenv:Body"`
}

type soapHeader struct {
	Security wsseSecurity `xml:"wsse:Security"`
}

type wsseSecurity struct {
	UsernameToken usernameToken `xml:"wsse:UsernameToken"`
}

type usernameToken struct {
	Username string       `xml:"wsse:Username"`
	Password wssePassword `xml:"wsse:Password"`
}

type wssePassword struct {
	Type  string `xml:"Type,attr"`
	Value string `xml:",chardata"`
}

type soapBody struct {
	SendBill  *sendBillRequest  `xml:"ser:sendBill,omitempty"`
	GetStatus *getStatusRequest `xml:"ser:getStatus,omitempty"`
}

type sendBillRequest struct {
	FileName    string `xml:"fileName"`
	ContentFile string `xml:"contentFile"` // ZIP en Base64
}

type getStatusRequest struct {
	RUC    string `xml:"rucComprobante"`
	Type   string `xml:"tipoComprobante"`
	Series string `xml:"serieComprobante"`
	Number string `xml:"numeroComprobante"`
}

// buildEnvelope serializa el sobre SOAP 1.1 con el UsernameToken (RUC + usuario SOL).
func (c *SOAPClient) buildEnvelope(body soapBody) ([]byte, error) {
	env := soapEnvelope{
		XmlnsEnv:  pkgsunat.NsSoapEnv,
		XmlnsSer:  pkgsunat.NsService,
		XmlnsWsse: pkgsunat.NsWSSE,
		Header: soapHeader{Security: wsseSecurity{UsernameToken: usernameToken{
			Username: c.cfg.RUC + c.cfg.SOLUser,
			Password: wssePassword{Type: pkgsunat.PasswordTextType, Value: c.cfg.SOLPassword},
		}}},
		Body: body,
	}
	out, err := xml.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("soap: serializar envelope: %w", err)
	}
	return append([]byte(xml.Header), out...), nil
}

// ── sendBill ──────────────────────────────────────────────────────────────────

// SendBill envía el ZIP firmado. fileName es el nombre base con o sin ".zip".
// Nunca reintenta: los errores de transporte vuelven tipados al llamador.
func (c *SOAPClient) SendBill(ctx context.Context, zipBytes []byte, fileName string) *domsunat.TransmissionResult {
	if !strings.HasSuffix(fileName, ".zip") {
		fileName += ".zip"
	}
	log := c.log.With().Str("file", fileName).Logger()

	if c.cfg.Mode == ModeSimulated {
		base := strings.TrimSuffix(fileName, ".zip")
		issued, ok := issuedAt(zipBytes)
		if !ok {
			log.Warn().Msg("modo simulado: ZIP sin fecha de emisión legible, se usa el reloj")
			issued = c.cfg.Clock()
		}
		res, err := SimulateAcceptance(base, docIDFromFileName(base), issued)
		if err != nil {
			return domsunat.TransportFailure(domsunat.UnrecognizedResponse, err.Error())
		}
		log.Warn().Msg("modo simulado: no se envía a SUNAT")
		return res
	}

	payload, err := c.buildEnvelope(soapBody{SendBill: &sendBillRequest{
		FileName:    fileName,
		ContentFile: base64.StdEncoding.EncodeToString(zipBytes),
	}})
	if err != nil {
		return domsunat.TransportFailure(domsunat.ConnectionFailed, err.Error())
	}

	start := time.Now()
	status, body, terr := c.post(ctx, c.cfg.Endpoint, soapActionSendBill, payload)
	if terr != nil {
		log.Error().Str("kind", string(terr.Kind)).Str("error", terr.Message).Msg("sendBill: fallo de transporte")
		return domsunat.TransportFailure(terr.Kind, terr.Message)
	}
	log.Info().Int("status", status).Dur("elapsed", time.Since(start)).Msg("sendBill: respuesta recibida")

	if status != http.StatusOK {
		if res, ok := InterpretFault(body); ok {
			return res
		}
		return domsunat.TransportFailure(domsunat.HTTPFailure,
			fmt.Sprintf("HTTP %d %s: %s", status, http.StatusText(status), snippet(body)))
	}
	return InterpretResponse(body)
}

// ── getStatus ─────────────────────────────────────────────────────────────────

// GetStatus consulta el estado de un comprobante ya enviado.
func (c *SOAPClient) GetStatus(ctx context.Context, ruc, docType, series string, number int64) (*StatusResult, error) {
	if c.cfg.Mode == ModeSimulated {
		return &StatusResult{StatusCode: "0", StatusMessage: SimulatedMessage}, nil
	}

	payload, err := c.buildEnvelope(soapBody{GetStatus: &getStatusRequest{
		RUC:    ruc,
		Type:   docType,
		Series: series,
		Number: strconv.FormatInt(number, 10),
	}})
	if err != nil {
		return nil, err
	}

	status, body, terr := c.post(ctx, c.cfg.StatusEndpoint, soapActionGetStatus, payload)
	if terr != nil {
		return nil, terr
	}
	if status != http.StatusOK {
		if res, ok := InterpretFault(body); ok {
			return nil, res.Err()
		}
		return nil, &domsunat.TransportError{Kind: domsunat.HTTPFailure,
			Message: fmt.Sprintf("HTTP %d %s", status, http.StatusText(status))}
	}
	return InterpretStatus(body)
}

// ── HTTP ──────────────────────────────────────────────────────────────────────

func (c *SOAPClient) post(ctx context.Context, url, action string, payload []byte) (int, []byte, *domsunat.TransportError) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, nil, &domsunat.TransportError{Kind: domsunat.ConnectionFailed, Message: err.Error()}
	}
	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", action)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return 0, nil, classifyTransportError(ctx, err)
	}
	return resp.StatusCode, body, nil
}

// classifyTransportError distingue DNS, timeout y conexión.
func classifyTransportError(ctx context.Context, err error) *domsunat.TransportError {
	var dnsErr *net.DNSError
	var netErr net.Error
	switch {
	case errors.As(err, &dnsErr):
		return &domsunat.TransportError{Kind: domsunat.DNSFailure, Message: err.Error()}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(ctx.Err(), context.DeadlineExceeded):
		return &domsunat.TransportError{Kind: domsunat.Timeout, Message: err.Error()}
	case errors.As(err, &netErr) && netErr.Timeout():
		return &domsunat.TransportError{Kind: domsunat.Timeout, Message: err.Error()}
	default:
		return &domsunat.TransportError{Kind: domsunat.ConnectionFailed, Message: err.Error()}
	}
}
