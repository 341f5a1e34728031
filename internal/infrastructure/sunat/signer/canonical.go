package signer

import (
	"bytes"
	"errors"
	"io"
	"regexp"
	"strings"

	"github.com/beevik/etree"
	dsig "github.com/russellhaering/goxmldsig"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	domsunat "github.com/jhoicas/sunat-cpe/internal/domain/sunat"
)

var interTagWhitespace = regexp.MustCompile(`>\s+<`)

// C14N 1.0 inclusivo sin comentarios (REC-xml-c14n-20010315), el algoritmo que
// declara el SignedInfo y el que aplica el verificador a la Reference URI="".
var c14n10 = dsig.MakeC14N10RecCanonicalizer()

// Canonicalize normaliza saltos de línea, elimina espacios entre etiquetas y
// devuelve la forma C14N inclusiva del documento completo.
func Canonicalize(data []byte) ([]byte, error) {
	doc, err := parseDocument(normalizeWhitespace(data))
	if err != nil {
		return nil, &domsunat.SignatureError{Kind: domsunat.CanonicalizationFailed, Err: err}
	}
	return CanonicalizeElement(doc.Root())
}

// CanonicalizeElement aplica C14N inclusivo a el en su posición dentro del árbol:
// la forma canónica declara en el elemento todos los namespaces heredados de sus
// ancestros, como hace el verificador con ds:SignedInfo.
func CanonicalizeElement(el *etree.Element) ([]byte, error) {
	if el == nil {
		return nil, &domsunat.SignatureError{Kind: domsunat.CanonicalizationFailed, Err: errors.New("elemento nulo")}
	}
	out, err := c14n10.Canonicalize(el)
	if err != nil {
		return nil, &domsunat.SignatureError{Kind: domsunat.CanonicalizationFailed, Err: err}
	}
	return out, nil
}

func parseDocument(data []byte) (*etree.Document, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = charsetReader
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, err
	}
	if doc.Root() == nil {
		return nil, errors.New("documento sin elemento raíz")
	}
	return doc, nil
}

func normalizeWhitespace(data []byte) []byte {
	out := bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	out = bytes.ReplaceAll(out, []byte("\r"), []byte("\n"))
	out = bytes.TrimSpace(out)
	return interTagWhitespace.ReplaceAll(out, []byte("><"))
}

// charsetReader acepta documentos declarados en ISO-8859-1, habituales en SUNAT.
func charsetReader(charset string, input io.Reader) (io.Reader, error) {
	switch strings.ToUpper(charset) {
	case "ISO-8859-1", "ISO8859-1", "LATIN1":
		return transform.NewReader(input, charmap.ISO8859_1.NewDecoder()), nil
	}
	return input, nil
}
