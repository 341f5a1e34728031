// Servicio de firma XMLDSig enveloped para comprobantes SUNAT.
// Inyecta <ds:Signature> en el ext:ExtensionContent vacío del XML.

package signer

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"regexp"
	"strings"

	"github.com/beevik/etree"
	domsunat "github.com/jhoicas/sunat-cpe/internal/domain/sunat"
)

// SignedDocument XML firmado tal como se transmite, con su digest y valor de firma.
type SignedDocument struct {
	XML            []byte
	DigestValue    string
	SignatureValue string
}

// placeholder: ExtensionContent vacío (o sólo con espacios), con cualquier prefijo.
var placeholderRe = regexp.MustCompile(`<([A-Za-z_][\w.-]*:)?ExtensionContent\s*(?:/>|>\s*</([A-Za-z_][\w.-]*:)?ExtensionContent>)`)

// DigitalSignatureService firma el XML e inyecta el nodo ds:Signature.
type DigitalSignatureService struct{}

// NewDigitalSignatureService crea el servicio.
func NewDigitalSignatureService() *DigitalSignatureService {
	return &DigitalSignatureService{}
}

// Sign canonicaliza el documento (C14N inclusivo), calcula el digest SHA-256, firma
// el SignedInfo canonicalizado en su posición final con RSA-SHA256 y empalma la
// firma en el placeholder sin añadir espacios.
func (s *DigitalSignatureService) Sign(xmlBytes []byte, material *SigningMaterial) (*SignedDocument, error) {
	if len(bytes.TrimSpace(xmlBytes)) == 0 {
		return nil, &domsunat.SignatureError{Kind: domsunat.CanonicalizationFailed, Err: errors.New("XML vacío")}
	}
	if material == nil {
		return nil, &domsunat.SignatureError{Kind: domsunat.SigningFailed, Err: errors.New("sin material de firma")}
	}
	// Se firma y se devuelve el documento ya normalizado: lo que se transmite es lo digerido.
	xmlBytes = normalizeWhitespace(xmlBytes)
	loc := placeholderRe.FindSubmatchIndex(xmlBytes)
	if loc == nil {
		return nil, &domsunat.SignatureError{Kind: domsunat.PlaceholderNotFound}
	}
	doc, err := parseDocument(xmlBytes)
	if err != nil {
		return nil, &domsunat.SignatureError{Kind: domsunat.CanonicalizationFailed, Err: err}
	}
	placeholder := findPlaceholder(doc.Root())
	if placeholder == nil {
		return nil, &domsunat.SignatureError{Kind: domsunat.PlaceholderNotFound}
	}

	// 1) Digest del documento (URI="" + enveloped: la firma aún no existe).
	canonicalDoc, err := CanonicalizeElement(doc.Root())
	if err != nil {
		return nil, err
	}
	docDigest := sha256.Sum256(canonicalDoc)
	digestB64 := base64.StdEncoding.EncodeToString(docDigest[:])

	// 2) SignedInfo canonicalizado dentro del documento, con los namespaces en ámbito.
	signedInfo := BuildSignedInfo(digestB64)
	certB64 := material.CertificateBase64()
	sigDoc := etree.NewDocument()
	if err := sigDoc.ReadFromString(BuildSignature(signedInfo, "", certB64)); err != nil {
		return nil, &domsunat.SignatureError{Kind: domsunat.CanonicalizationFailed, Err: err}
	}
	sigEl := sigDoc.Root().Copy()
	placeholder.AddChild(sigEl)
	canonicalSignedInfo, err := CanonicalizeElement(findDSElement(sigEl, "SignedInfo"))
	if err != nil {
		return nil, err
	}
	sigValue, err := material.Sign(canonicalSignedInfo)
	if err != nil {
		return nil, &domsunat.SignatureError{Kind: domsunat.SigningFailed, Err: err}
	}
	sigB64 := base64.StdEncoding.EncodeToString(sigValue)

	// 3) Empalme en el placeholder.
	signature := BuildSignature(signedInfo, sigB64, certB64)
	prefix := ""
	if loc[2] >= 0 {
		prefix = string(xmlBytes[loc[2]:loc[3]])
	}
	var out bytes.Buffer
	out.Grow(len(xmlBytes) + len(signature) + 64)
	out.Write(xmlBytes[:loc[0]])
	out.WriteString("<" + prefix + "ExtensionContent>")
	out.WriteString(signature)
	out.WriteString("</" + prefix + "ExtensionContent>")
	out.Write(xmlBytes[loc[1]:])

	return &SignedDocument{XML: out.Bytes(), DigestValue: digestB64, SignatureValue: sigB64}, nil
}

// findPlaceholder primer ext:ExtensionContent sin hijos ni texto, en orden de documento.
func findPlaceholder(e *etree.Element) *etree.Element {
	if e.Tag == "ExtensionContent" && len(e.ChildElements()) == 0 && strings.TrimSpace(e.Text()) == "" {
		return e
	}
	for _, c := range e.ChildElements() {
		if found := findPlaceholder(c); found != nil {
			return found
		}
	}
	return nil
}

// BuildSignedInfo arma el SignedInfo: C14N, RSA-SHA256, Reference URI="" con transform enveloped.
// No declara namespaces propios; los hereda de ds:Signature y del documento.
func BuildSignedInfo(digestB64 string) string {
	var sb strings.Builder
	sb.WriteString(`<ds:SignedInfo>`)
	sb.WriteString(`<ds:CanonicalizationMethod Algorithm="` + AlgC14N + `"></ds:CanonicalizationMethod>`)
	sb.WriteString(`<ds:SignatureMethod Algorithm="` + AlgRSASHA256 + `"></ds:SignatureMethod>`)
	sb.WriteString(`<ds:Reference URI="">`)
	sb.WriteString(`<ds:Transforms><ds:Transform Algorithm="` + TransformEnveloped + `"></ds:Transform></ds:Transforms>`)
	sb.WriteString(`<ds:DigestMethod Algorithm="` + AlgSHA256 + `"></ds:DigestMethod>`)
	sb.WriteString(`<ds:DigestValue>` + digestB64 + `</ds:DigestValue>`)
	sb.WriteString(`</ds:Reference>`)
	sb.WriteString(`</ds:SignedInfo>`)
	return sb.String()
}

// BuildSignature arma el nodo ds:Signature completo.
func BuildSignature(signedInfo, signatureB64, certB64 string) string {
	var sb strings.Builder
	sb.WriteString(`<ds:Signature xmlns:ds="` + NamespaceDS + `" Id="` + SignatureID + `">`)
	sb.WriteString(signedInfo)
	sb.WriteString(`<ds:SignatureValue>` + signatureB64 + `</ds:SignatureValue>`)
	sb.WriteString(`<ds:KeyInfo><ds:X509Data><ds:X509Certificate>` + certB64 + `</ds:X509Certificate></ds:X509Data></ds:KeyInfo>`)
	sb.WriteString(`</ds:Signature>`)
	return sb.String()
}
