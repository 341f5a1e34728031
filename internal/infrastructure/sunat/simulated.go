package sunat

import (
	"fmt"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/google/uuid"

	domsunat "github.com/jhoicas/sunat-cpe/internal/domain/sunat"
	pkgsunat "github.com/jhoicas/sunat-cpe/pkg/sunat"
)

// SimulatedMessage descripción del CDR simulado; deja claro que no es una constancia real.
const SimulatedMessage = "Comprobante aceptado (modo simulado, sin envío a SUNAT)"

// SimulateAcceptance sintetiza una aceptación con un CDR mínimo (ResponseCode 0)
// que referencia docID. Mismos argumentos producen los mismos bytes.
func SimulateAcceptance(baseName, docID string, issued time.Time) (*domsunat.TransmissionResult, error) {
	xmlBytes, err := simulatedCDRXML(docID, issued)
	if err != nil {
		return nil, err
	}
	cdr, err := CompressXMLToZip(xmlBytes, pkgsunat.CDRBaseName(baseName)+".xml")
	if err != nil {
		return nil, fmt.Errorf("simulado: empaquetar CDR: %w", err)
	}

	receipt := &domsunat.CdrReceipt{ResponseCode: "0", Description: SimulatedMessage, ReferenceID: docID}
	res := domsunat.Accepted("0", SimulatedMessage, cdr, receipt)
	res.Simulated = true
	return res, nil
}

func simulatedCDRXML(docID string, issued time.Time) ([]byte, error) {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)

	ar := doc.CreateElement("ar:ApplicationResponse")
	ar.CreateAttr("xmlns:ar", pkgsunat.NsAR)
	ar.CreateAttr("xmlns:cac", pkgsunat.NsCac)
	ar.CreateAttr("xmlns:cbc", pkgsunat.NsCbc)

	ar.CreateElement("cbc:UBLVersionID").SetText(pkgsunat.UBLVersion)
	ar.CreateElement("cbc:CustomizationID").SetText("1.0")
	ar.CreateElement("cbc:ID").SetText(uuid.NewSHA1(uuid.NameSpaceURL, []byte("cpe:"+docID)).String())
	ar.CreateElement("cbc:IssueDate").SetText(issued.Format("2006-01-02"))
	ar.CreateElement("cbc:IssueTime").SetText(issued.Format("15:04:05"))
	ar.CreateElement("cbc:Note").SetText("SIMULADO")

	dr := ar.CreateElement("cac:DocumentResponse")
	resp := dr.CreateElement("cac:Response")
	resp.CreateElement("cbc:ReferenceID").SetText(docID)
	resp.CreateElement("cbc:ResponseCode").SetText("0")
	resp.CreateElement("cbc:Description").SetText(SimulatedMessage)
	dr.CreateElement("cac:DocumentReference").CreateElement("cbc:ID").SetText(docID)

	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("simulado: serializar CDR: %w", err)
	}
	return out, nil
}

// issuedAt lee IssueDate/IssueTime del XML dentro del ZIP. El CDR simulado
// toma esa fecha para que reenviar el mismo ZIP produzca los mismos bytes.
func issuedAt(zipBytes []byte) (time.Time, bool) {
	_, xmlBytes, err := firstXMLEntry(zipBytes)
	if err != nil {
		return time.Time{}, false
	}
	root, err := parseXML(xmlBytes)
	if err != nil {
		return time.Time{}, false
	}
	date := childText(root, "IssueDate")
	if date == "" {
		return time.Time{}, false
	}
	clock := childText(root, "IssueTime")
	if clock == "" {
		clock = "00:00:00"
	}
	t, err := time.Parse("2006-01-02 15:04:05", date+" "+clock)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// docIDFromFileName recupera "{serie}-{correlativo}" de "{ruc}-{tipo}-{serie}-{correlativo}[.zip]".
func docIDFromFileName(fileName string) string {
	base := strings.TrimSuffix(fileName, ".zip")
	parts := strings.Split(base, "-")
	if len(parts) != 4 {
		return base
	}
	return parts[2] + "-" + parts[3]
}
