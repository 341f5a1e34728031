package signer

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/beevik/etree"
)

var (
	ErrSignatureMissing = errors.New("firma: el documento no contiene ds:Signature")
	ErrDigestMismatch   = errors.New("firma: DigestValue no coincide con el documento")
	ErrSignatureInvalid = errors.New("firma: SignatureValue inválido")
)

// Verify valida la firma enveloped como lo hace un verificador XMLDSig: canonicaliza
// ds:SignedInfo en su contexto, comprueba el SignatureValue y recalcula el digest
// del documento sin el nodo ds:Signature. Si cert es nil usa el X509Certificate embebido.
func Verify(signed []byte, cert *x509.Certificate) error {
	doc, err := parseDocument(signed)
	if err != nil {
		return fmt.Errorf("firma: parsear XML: %w", err)
	}
	sig := findDSElement(doc.Root(), "Signature")
	if sig == nil {
		return ErrSignatureMissing
	}
	signedInfo := findDSElement(sig, "SignedInfo")
	digestEl := findDSElement(sig, "DigestValue")
	valueEl := findDSElement(sig, "SignatureValue")
	if signedInfo == nil || digestEl == nil || valueEl == nil {
		return ErrSignatureMissing
	}
	if cert == nil {
		certEl := findDSElement(sig, "X509Certificate")
		if certEl == nil {
			return errors.New("firma: sin certificado para verificar")
		}
		der, err := base64.StdEncoding.DecodeString(compact(certEl.Text()))
		if err != nil {
			return fmt.Errorf("firma: X509Certificate: %w", err)
		}
		if cert, err = x509.ParseCertificate(der); err != nil {
			return fmt.Errorf("firma: X509Certificate: %w", err)
		}
	}
	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return fmt.Errorf("firma: llave pública %T no soportada", cert.PublicKey)
	}

	canonicalSI, err := CanonicalizeElement(signedInfo)
	if err != nil {
		return err
	}
	sigBytes, err := base64.StdEncoding.DecodeString(compact(valueEl.Text()))
	if err != nil {
		return fmt.Errorf("firma: SignatureValue: %w", err)
	}
	h := sha256.Sum256(canonicalSI)
	if err := rsa.VerifyPKCS1v15(pub, crypto.SHA256, h[:], sigBytes); err != nil {
		return fmt.Errorf("%w: %v", ErrSignatureInvalid, err)
	}

	// Transform enveloped: el documento sin el nodo Signature.
	expected := compact(digestEl.Text())
	sig.Parent().RemoveChild(sig)
	canonicalDoc, err := CanonicalizeElement(doc.Root())
	if err != nil {
		return err
	}
	digest := sha256.Sum256(canonicalDoc)
	if base64.StdEncoding.EncodeToString(digest[:]) != expected {
		return ErrDigestMismatch
	}
	return nil
}

// findDSElement busca en profundidad un elemento XMLDSig por nombre local.
func findDSElement(e *etree.Element, local string) *etree.Element {
	if e == nil {
		return nil
	}
	if e.Tag == local && e.NamespaceURI() == NamespaceDS {
		return e
	}
	for _, c := range e.ChildElements() {
		if found := findDSElement(c, local); found != nil {
			return found
		}
	}
	return nil
}

func compact(s string) string {
	return strings.Join(strings.Fields(s), "")
}
