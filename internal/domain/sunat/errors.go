package sunat

import (
	"errors"
	"fmt"
)

// CertificateErrorKind causa de un fallo al cargar el certificado.
type CertificateErrorKind string

const (
	CertNotFound    CertificateErrorKind = "NotFound"
	CertBadPassword CertificateErrorKind = "BadPassword"
	CertMalformed   CertificateErrorKind = "Malformed"
)

// CertificateError es fatal al arranque: el proceso no debe firmar sin material válido.
type CertificateError struct {
	Kind CertificateErrorKind
	Path string
	Err  error
}

func (e *CertificateError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("certificado %s (%s): %v", e.Kind, e.Path, e.Err)
	}
	return fmt.Sprintf("certificado %s (%s)", e.Kind, e.Path)
}

func (e *CertificateError) Unwrap() error { return e.Err }

// BuildErrorKind causa de un fallo al construir el XML.
type BuildErrorKind string

const MissingRequiredField BuildErrorKind = "MissingRequiredField"

// BuildError indica un defecto en los datos de entrada del comprobante.
type BuildError struct {
	Kind  BuildErrorKind
	Field string
}

func (e *BuildError) Error() string {
	return fmt.Sprintf("xml: %s: %s", e.Kind, e.Field)
}

// SignatureErrorKind causa de un fallo de firma.
type SignatureErrorKind string

const (
	PlaceholderNotFound    SignatureErrorKind = "PlaceholderNotFound"
	SigningFailed          SignatureErrorKind = "SigningFailed"
	CanonicalizationFailed SignatureErrorKind = "CanonicalizationFailed"
)

// SignatureError es un defecto interno; nunca se continúa con un documento sin firma.
type SignatureError struct {
	Kind SignatureErrorKind
	Err  error
}

func (e *SignatureError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("firma %s: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("firma %s", e.Kind)
}

func (e *SignatureError) Unwrap() error { return e.Err }

// TransportErrorKind clasifica fallos transitorios de comunicación.
type TransportErrorKind string

const (
	Timeout              TransportErrorKind = "Timeout"
	ConnectionFailed     TransportErrorKind = "ConnectionFailed"
	DNSFailure           TransportErrorKind = "DnsFailure"
	UnrecognizedResponse TransportErrorKind = "UnrecognizedResponse"
	HTTPFailure          TransportErrorKind = "HTTP"
)

// TransportError es transitorio: el llamador decide si reintenta.
type TransportError struct {
	Kind    TransportErrorKind
	Message string
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transporte %s: %s", e.Kind, e.Message)
}

// ErrRejected envuelve los rechazos de negocio de SUNAT.
var ErrRejected = errors.New("comprobante rechazado por SUNAT")

// IsTransient indica si err es un error de transporte reintentable.
func IsTransient(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
