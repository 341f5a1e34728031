package sunat

import (
	"fmt"
	"strconv"

	"github.com/jhoicas/sunat-cpe/internal/domain/entity"
)

// ResultKind etiqueta del resultado de un envío.
type ResultKind string

const (
	ResultAccepted       ResultKind = "Accepted"
	ResultRejected       ResultKind = "Rejected"
	ResultTransportError ResultKind = "TransportError"
)

// Mensajes por defecto cuando SUNAT no informa uno.
const (
	DefaultAcceptedMessage = "Comprobante aceptado por SUNAT"
	DefaultFaultCode       = "ERROR"
	DefaultFaultMessage    = "Error desconocido de SUNAT"
)

// CdrReceipt constancia de recepción extraída del ZIP devuelto por SUNAT.
type CdrReceipt struct {
	ResponseCode string
	Description  string
	ReferenceID  string
	Notes        []string // Observaciones (códigos 4000+)
}

// TransmissionResult resultado inmutable de un envío (real o simulado).
type TransmissionResult struct {
	Kind         ResultKind
	ResponseCode string
	Message      string
	FaultCode    string
	CDR          []byte // ZIP tal como lo devolvió SUNAT
	Receipt      *CdrReceipt
	ErrorKind    TransportErrorKind
	Simulated    bool
}

// Accepted construye un resultado de aceptación.
func Accepted(code, message string, cdr []byte, receipt *CdrReceipt) *TransmissionResult {
	return &TransmissionResult{Kind: ResultAccepted, ResponseCode: code, Message: message, CDR: cdr, Receipt: receipt}
}

// Rejected construye un rechazo conservando el texto original de SUNAT.
func Rejected(faultCode, message string) *TransmissionResult {
	return &TransmissionResult{Kind: ResultRejected, FaultCode: faultCode, Message: message}
}

// TransportFailure construye un error de transporte.
func TransportFailure(kind TransportErrorKind, message string) *TransmissionResult {
	return &TransmissionResult{Kind: ResultTransportError, ErrorKind: kind, Message: message}
}

// IsAccepted true para aceptaciones reales o simuladas.
func (r *TransmissionResult) IsAccepted() bool { return r != nil && r.Kind == ResultAccepted }

// Err convierte el resultado en error; nil si fue aceptado.
func (r *TransmissionResult) Err() error {
	switch {
	case r == nil:
		return &TransportError{Kind: UnrecognizedResponse, Message: "sin resultado"}
	case r.Kind == ResultAccepted:
		return nil
	case r.Kind == ResultRejected:
		return fmt.Errorf("%w: [%s] %s", ErrRejected, r.FaultCode, r.Message)
	default:
		return &TransportError{Kind: r.ErrorKind, Message: r.Message}
	}
}

// InvoiceStatus estado que corresponde persistir para este resultado.
// Un error de transporte deja el comprobante PENDIENTE para reenvío.
func (r *TransmissionResult) InvoiceStatus() string {
	switch {
	case r == nil:
		return entity.StatusPending
	case r.Kind == ResultAccepted:
		return entity.StatusAccepted
	case r.Kind == ResultRejected:
		return entity.StatusRejected
	default:
		return entity.StatusPending
	}
}

// Code código a registrar: ResponseCode del CDR o faultcode.
func (r *TransmissionResult) Code() string {
	if r == nil {
		return ""
	}
	if r.ResponseCode != "" {
		return r.ResponseCode
	}
	if r.FaultCode != "" {
		return r.FaultCode
	}
	return string(r.ErrorKind)
}

func (r *TransmissionResult) String() string {
	if r == nil {
		return "<nil>"
	}
	switch r.Kind {
	case ResultAccepted:
		return fmt.Sprintf("Accepted{code=%s simulated=%t message=%q}", r.ResponseCode, r.Simulated, r.Message)
	case ResultRejected:
		return fmt.Sprintf("Rejected{code=%s message=%q}", r.FaultCode, r.Message)
	default:
		return fmt.Sprintf("TransportError{%s: %q}", r.ErrorKind, r.Message)
	}
}

// IsRejectionCode reporta si un ResponseCode de CDR corresponde a un rechazo (2000-3999).
// 0 es aceptado y 4000+ son observaciones sobre un comprobante aceptado.
func IsRejectionCode(code string) bool {
	n, err := strconv.Atoi(code)
	if err != nil {
		return false
	}
	return n >= 2000 && n < 4000
}
