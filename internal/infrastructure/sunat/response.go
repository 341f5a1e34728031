package sunat

import (
	"encoding/base64"
	"fmt"
	"io"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/text/encoding/charmap"

	domsunat "github.com/jhoicas/sunat-cpe/internal/domain/sunat"
)

// maxSnippet longitud máxima de la respuesta cruda citada en errores.
const maxSnippet = 300

// StatusResult respuesta de getStatus.
type StatusResult struct {
	StatusCode    string
	StatusMessage string
	CDR           []byte // presente cuando SUNAT devuelve el CDR en <content>
	Receipt       *domsunat.CdrReceipt
}

// InterpretResponse traduce el cuerpo de sendBill a un TransmissionResult.
// Los elementos se buscan por nombre local: SUNAT cambia de prefijos entre ambientes.
func InterpretResponse(raw []byte) *domsunat.TransmissionResult {
	root, err := parseXML(raw)
	if err != nil {
		return domsunat.TransportFailure(domsunat.UnrecognizedResponse,
			fmt.Sprintf("respuesta no es XML (%v): %s", err, snippet(raw)))
	}

	if ar := findLocal(root, "applicationResponse"); ar != nil {
		return interpretCDR(ar.Text(), raw)
	}
	if f := findLocal(root, "Fault"); f != nil {
		return interpretFault(f)
	}
	return domsunat.TransportFailure(domsunat.UnrecognizedResponse,
		"sin applicationResponse ni Fault: "+snippet(raw))
}

// InterpretFault extrae faultcode/faultstring de una respuesta no-200.
// ok es false cuando el cuerpo no contiene un Fault reconocible.
func InterpretFault(raw []byte) (*domsunat.TransmissionResult, bool) {
	root, err := parseXML(raw)
	if err != nil {
		return nil, false
	}
	f := findLocal(root, "Fault")
	if f == nil {
		return nil, false
	}
	return interpretFault(f), true
}

func interpretFault(f *etree.Element) *domsunat.TransmissionResult {
	code := childText(f, "faultcode")
	if code == "" {
		code = domsunat.DefaultFaultCode
	}
	msg := childText(f, "faultstring")
	if msg == "" {
		msg = domsunat.DefaultFaultMessage
	}
	return domsunat.Rejected(code, msg)
}

// interpretCDR decodifica el ZIP embebido. El CDR se conserva aunque no pueda
// leerse su XML interno; sólo un base64 inválido impide reportar aceptación.
func interpretCDR(encoded string, raw []byte) *domsunat.TransmissionResult {
	cdr, err := decodeBase64(encoded)
	if err != nil || len(cdr) == 0 {
		return domsunat.TransportFailure(domsunat.UnrecognizedResponse,
			"applicationResponse sin contenido base64 válido: "+snippet(raw))
	}

	receipt, err := ParseCDR(cdr)
	if err != nil {
		return domsunat.Accepted("0", domsunat.DefaultAcceptedMessage, cdr, nil)
	}
	return resultFromReceipt(receipt, cdr)
}

func resultFromReceipt(receipt *domsunat.CdrReceipt, cdr []byte) *domsunat.TransmissionResult {
	code := receipt.ResponseCode
	if code == "" {
		code = "0"
	}
	msg := receipt.Description
	if domsunat.IsRejectionCode(code) {
		if msg == "" {
			msg = domsunat.DefaultFaultMessage
		}
		res := domsunat.Rejected(code, msg)
		res.ResponseCode = code
		res.CDR = cdr
		res.Receipt = receipt
		return res
	}
	if msg == "" {
		msg = domsunat.DefaultAcceptedMessage
	}
	return domsunat.Accepted(code, msg, cdr, receipt)
}

// ParseCDR abre el ZIP de constancia y lee el ApplicationResponse de su primera entrada XML.
func ParseCDR(cdr []byte) (*domsunat.CdrReceipt, error) {
	_, content, err := firstXMLEntry(cdr)
	if err != nil {
		return nil, err
	}
	root, err := parseXML(content)
	if err != nil {
		return nil, fmt.Errorf("cdr: XML inválido: %w", err)
	}

	receipt := &domsunat.CdrReceipt{}
	if dr := findLocal(root, "DocumentResponse"); dr != nil {
		if resp := findLocal(dr, "Response"); resp != nil {
			receipt.ResponseCode = childText(resp, "ResponseCode")
			receipt.Description = childText(resp, "Description")
			receipt.ReferenceID = childText(resp, "ReferenceID")
		}
	}
	if receipt.ResponseCode == "" {
		if rc := findLocal(root, "ResponseCode"); rc != nil {
			receipt.ResponseCode = strings.TrimSpace(rc.Text())
		}
	}
	if receipt.Description == "" {
		if d := findLocal(root, "Description"); d != nil {
			receipt.Description = strings.TrimSpace(d.Text())
		}
	}
	if receipt.ReferenceID == "" {
		if r := findLocal(root, "ReferenceID"); r != nil {
			receipt.ReferenceID = strings.TrimSpace(r.Text())
		}
	}
	for _, child := range root.ChildElements() {
		if child.Tag == "Note" {
			receipt.Notes = append(receipt.Notes, strings.TrimSpace(child.Text()))
		}
	}
	if receipt.ResponseCode == "" && receipt.Description == "" {
		return nil, fmt.Errorf("cdr: sin ResponseCode")
	}
	return receipt, nil
}

// InterpretStatus traduce la respuesta de getStatus.
func InterpretStatus(raw []byte) (*StatusResult, error) {
	root, err := parseXML(raw)
	if err != nil {
		return nil, &domsunat.TransportError{Kind: domsunat.UnrecognizedResponse, Message: snippet(raw)}
	}
	if f := findLocal(root, "Fault"); f != nil {
		return nil, interpretFault(f).Err()
	}
	code := findLocal(root, "statusCode")
	if code == nil {
		return nil, &domsunat.TransportError{Kind: domsunat.UnrecognizedResponse,
			Message: "respuesta de estado inválida: " + snippet(raw)}
	}

	out := &StatusResult{StatusCode: strings.TrimSpace(code.Text()), StatusMessage: "Sin mensaje"}
	if msg := findLocal(root, "statusMessage"); msg != nil && strings.TrimSpace(msg.Text()) != "" {
		out.StatusMessage = strings.TrimSpace(msg.Text())
	}
	if content := findLocal(root, "content"); content != nil {
		if cdr, err := decodeBase64(content.Text()); err == nil && len(cdr) > 0 {
			out.CDR = cdr
			out.Receipt, _ = ParseCDR(cdr)
		}
	}
	return out, nil
}

// ── helpers ──

func parseXML(raw []byte) (*etree.Element, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charsetReader
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil, err
	}
	if doc.Root() == nil {
		return nil, fmt.Errorf("documento vacío")
	}
	return doc.Root(), nil
}

// charsetReader admite los CDR en ISO-8859-1 que emite SUNAT.
func charsetReader(label string, input io.Reader) (io.Reader, error) {
	switch strings.ToLower(label) {
	case "iso-8859-1", "latin1", "iso8859-1":
		return charmap.ISO8859_1.NewDecoder().Reader(input), nil
	case "windows-1252", "cp1252":
		return charmap.Windows1252.NewDecoder().Reader(input), nil
	}
	return input, nil
}

// findLocal busca en profundidad el primer elemento con ese nombre local.
func findLocal(e *etree.Element, local string) *etree.Element {
	if e.Tag == local {
		return e
	}
	for _, child := range e.ChildElements() {
		if found := findLocal(child, local); found != nil {
			return found
		}
	}
	return nil
}

func childText(e *etree.Element, local string) string {
	for _, child := range e.ChildElements() {
		if child.Tag == local {
			return strings.TrimSpace(child.Text())
		}
	}
	return ""
}

func decodeBase64(s string) ([]byte, error) {
	s = strings.Join(strings.Fields(s), "")
	return base64.StdEncoding.DecodeString(s)
}

func snippet(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > maxSnippet {
		return s[:maxSnippet] + "..."
	}
	return s
}
