package sunat

import (
	"bytes"
	"encoding/xml"
	"strconv"

	"github.com/jhoicas/sunat-cpe/internal/domain/entity"
	domsunat "github.com/jhoicas/sunat-cpe/internal/domain/sunat"
	"github.com/jhoicas/sunat-cpe/internal/infrastructure/sunat/signer"
	"github.com/jhoicas/sunat-cpe/pkg/sunat"
	"github.com/shopspring/decimal"
)

const xmlDeclaration = `<?xml version="1.0" encoding="UTF-8"?>`

// XMLBuilderService construye el XML UBL 2.1 del comprobante (sin firma).
type XMLBuilderService struct{}

// NewXMLBuilderService crea el servicio.
func NewXMLBuilderService() *XMLBuilderService {
	return &XMLBuilderService{}
}

// Build genera el documento Invoice sin indentación ni espacios entre etiquetas.
// El primer hijo es ext:UBLExtensions con un ExtensionContent vacío donde el firmador
// inyecta ds:Signature. Es una función pura del comprobante.
func (s *XMLBuilderService) Build(inv *entity.Invoice) ([]byte, error) {
	if err := checkRequired(inv); err != nil {
		return nil, err
	}
	currency := orDefault(inv.Currency, sunat.CurrencyPEN)
	docType := orDefault(inv.DocumentType, sunat.DocumentTypeInvoice)

	var buf bytes.Buffer
	buf.WriteString(xmlDeclaration)
	w := &ublWriter{enc: xml.NewEncoder(&buf)}

	w.open("Invoice",
		attr("xmlns", sunat.NsInvoice),
		attr("xmlns:cac", sunat.NsCac),
		attr("xmlns:cbc", sunat.NsCbc),
		attr("xmlns:ds", sunat.NsDs),
		attr("xmlns:ext", sunat.NsExt),
	)

	// ---- CRÍTICO: ext:UBLExtensions primer hijo, ExtensionContent vacío (placeholder de la firma)
	w.open("ext:UBLExtensions")
	w.open("ext:UBLExtension")
	w.open("ext:ExtensionContent")
	w.close("ext:ExtensionContent")
	w.close("ext:UBLExtension")
	w.close("ext:UBLExtensions")

	w.cbc("UBLVersionID", sunat.UBLVersion)
	w.cbc("CustomizationID", sunat.CustomizationID, attr("schemeAgencyName", sunat.AgencyPE))
	w.cbc("ID", sunat.DocumentID(inv.Series, inv.Number))
	w.cbc("IssueDate", inv.IssueDate.Format("2006-01-02"))
	w.cbc("IssueTime", inv.IssueDate.Format("15:04:05"))
	w.cbc("InvoiceTypeCode", docType, attr("listID", sunat.OperationTypeInternalSale))
	w.cbc("DocumentCurrencyCode", currency)
	w.cbc("LineCountNumeric", strconv.Itoa(len(inv.Lines)))

	s.writeSignatureReference(w, inv)
	s.writeSupplierParty(w, inv)
	s.writeCustomerParty(w, inv)
	s.writeTaxTotal(w, inv.TaxableAmount, inv.TaxAmount, decimal.Decimal{}, currency)

	w.open("cac:LegalMonetaryTotal")
	w.amount("LineExtensionAmount", inv.TaxableAmount, currency)
	w.amount("TaxInclusiveAmount", inv.PayableAmount, currency)
	w.amount("PayableAmount", inv.PayableAmount, currency)
	w.close("cac:LegalMonetaryTotal")

	for i, line := range inv.Lines {
		s.writeInvoiceLine(w, i+1, line, currency)
	}

	w.close("Invoice")
	if w.err == nil {
		w.err = w.enc.Flush()
	}
	if w.err != nil {
		return nil, w.err
	}
	return buf.Bytes(), nil
}

func checkRequired(inv *entity.Invoice) error {
	switch {
	case inv == nil:
		return &domsunat.BuildError{Kind: domsunat.MissingRequiredField, Field: "Invoice"}
	case inv.Supplier.RUC == "":
		return &domsunat.BuildError{Kind: domsunat.MissingRequiredField, Field: "Supplier.RUC"}
	case inv.Customer.IdentityType == "":
		return &domsunat.BuildError{Kind: domsunat.MissingRequiredField, Field: "Customer.IdentityType"}
	case inv.Customer.DocumentNumber == "":
		return &domsunat.BuildError{Kind: domsunat.MissingRequiredField, Field: "Customer.DocumentNumber"}
	case len(inv.Lines) == 0:
		return &domsunat.BuildError{Kind: domsunat.MissingRequiredField, Field: "Lines"}
	case inv.Series == "":
		return &domsunat.BuildError{Kind: domsunat.MissingRequiredField, Field: "Series"}
	}
	return nil
}

// writeSignatureReference cac:Signature: referencia UBL al nodo ds:Signature.
func (s *XMLBuilderService) writeSignatureReference(w *ublWriter, inv *entity.Invoice) {
	w.open("cac:Signature")
	w.cbc("ID", signer.SignatureID)
	w.open("cac:SignatoryParty")
	w.open("cac:PartyIdentification")
	w.cbc("ID", inv.Supplier.RUC)
	w.close("cac:PartyIdentification")
	w.open("cac:PartyName")
	w.cbc("Name", inv.Supplier.LegalName)
	w.close("cac:PartyName")
	w.close("cac:SignatoryParty")
	w.open("cac:DigitalSignatureAttachment")
	w.open("cac:ExternalReference")
	w.cbc("URI", "#"+signer.SignatureID)
	w.close("cac:ExternalReference")
	w.close("cac:DigitalSignatureAttachment")
	w.close("cac:Signature")
}

func (s *XMLBuilderService) writeSupplierParty(w *ublWriter, inv *entity.Invoice) {
	sup := inv.Supplier
	w.open("cac:AccountingSupplierParty")
	w.open("cac:Party")
	w.open("cac:PartyIdentification")
	w.cbc("ID", sup.RUC, attr("schemeID", sunat.IdentityTypeRUC))
	w.close("cac:PartyIdentification")
	if sup.TradeName != "" {
		w.open("cac:PartyName")
		w.cbc("Name", sup.TradeName)
		w.close("cac:PartyName")
	}
	w.open("cac:PartyLegalEntity")
	w.cbc("RegistrationName", sup.LegalName)
	addr := sup.Address
	if addr.EstablishmentCode == "" {
		addr.EstablishmentCode = "0000"
	}
	writeAddress(w, addr)
	w.close("cac:PartyLegalEntity")
	w.close("cac:Party")
	w.close("cac:AccountingSupplierParty")
}

func (s *XMLBuilderService) writeCustomerParty(w *ublWriter, inv *entity.Invoice) {
	cus := inv.Customer
	w.open("cac:AccountingCustomerParty")
	w.open("cac:Party")
	w.open("cac:PartyIdentification")
	w.cbc("ID", cus.DocumentNumber, attr("schemeID", cus.IdentityType))
	w.close("cac:PartyIdentification")
	w.open("cac:PartyLegalEntity")
	w.cbc("RegistrationName", cus.Name)
	if cus.Address != nil {
		writeAddress(w, *cus.Address)
	}
	w.close("cac:PartyLegalEntity")
	w.close("cac:Party")
	w.close("cac:AccountingCustomerParty")
}

// writeAddress cac:RegistrationAddress; omite los campos vacíos.
func writeAddress(w *ublWriter, a entity.Address) {
	w.open("cac:RegistrationAddress")
	if a.Ubigeo != "" {
		w.cbc("ID", a.Ubigeo)
	}
	if a.EstablishmentCode != "" {
		w.cbc("AddressTypeCode", a.EstablishmentCode)
	}
	if a.Province != "" {
		w.cbc("CityName", a.Province)
	}
	if a.Department != "" {
		w.cbc("CountrySubentity", a.Department)
	}
	if a.District != "" {
		w.cbc("District", a.District)
	}
	if a.Street != "" {
		w.open("cac:AddressLine")
		w.cbc("Line", a.Street)
		w.close("cac:AddressLine")
	}
	w.open("cac:Country")
	w.cbc("IdentificationCode", orDefault(a.CountryCode, "PE"))
	w.close("cac:Country")
	w.close("cac:RegistrationAddress")
}

// writeTaxTotal cac:TaxTotal con un único subtotal IGV. percent cero omite
// categoría y porcentaje (nivel cabecera).
func (s *XMLBuilderService) writeTaxTotal(w *ublWriter, taxable, tax, percent decimal.Decimal, currency string) {
	w.open("cac:TaxTotal")
	w.amount("TaxAmount", tax, currency)
	w.open("cac:TaxSubtotal")
	w.amount("TaxableAmount", taxable, currency)
	w.amount("TaxAmount", tax, currency)
	w.open("cac:TaxCategory")
	if !percent.IsZero() {
		w.cbc("ID", sunat.TaxCategoryStandard)
		w.cbc("Percent", formatDecimal(percent))
		w.cbc("TaxExemptionReasonCode", sunat.AffectationTaxed)
	}
	w.open("cac:TaxScheme")
	w.cbc("ID", sunat.TaxSchemeIGVID)
	w.cbc("Name", sunat.TaxSchemeIGVName)
	w.cbc("TaxTypeCode", sunat.TaxSchemeIGVTypeCode)
	w.close("cac:TaxScheme")
	w.close("cac:TaxCategory")
	w.close("cac:TaxSubtotal")
	w.close("cac:TaxTotal")
}

func (s *XMLBuilderService) writeInvoiceLine(w *ublWriter, lineNum int, line entity.InvoiceLine, currency string) {
	unitCode := orDefault(line.UnitCode, sunat.UnitProduct)
	percent := line.TaxPercent
	if percent.IsZero() {
		percent = decimal.NewFromInt(sunat.IGVPercent)
	}
	line.TaxPercent = percent

	w.open("cac:InvoiceLine")
	w.cbc("ID", strconv.Itoa(lineNum))
	w.cbc("InvoicedQuantity", formatDecimal(line.Quantity), attr("unitCode", unitCode))
	w.amount("LineExtensionAmount", line.TaxableAmount, currency)

	w.open("cac:PricingReference")
	w.open("cac:AlternativeConditionPrice")
	w.amount("PriceAmount", line.PriceWithTax(), currency)
	w.cbc("PriceTypeCode", sunat.PriceTypeUnitIncludingTax)
	w.close("cac:AlternativeConditionPrice")
	w.close("cac:PricingReference")

	s.writeTaxTotal(w, line.TaxableAmount, line.TaxAmount, percent, currency)

	w.open("cac:Item")
	desc := line.Description
	if desc == "" {
		desc = "Item " + strconv.Itoa(lineNum)
	}
	w.cbc("Description", desc)
	if line.ProductCode != "" {
		w.open("cac:SellersItemIdentification")
		w.cbc("ID", line.ProductCode)
		w.close("cac:SellersItemIdentification")
	}
	w.close("cac:Item")

	w.open("cac:Price")
	w.amount("PriceAmount", line.UnitPrice, currency)
	w.close("cac:Price")
	w.close("cac:InvoiceLine")
}

// ublWriter emite elementos con prefijo literal y conserva el primer error del encoder.
type ublWriter struct {
	enc *xml.Encoder
	err error
}

func (w *ublWriter) token(t xml.Token) {
	if w.err == nil {
		w.err = w.enc.EncodeToken(t)
	}
}

func (w *ublWriter) open(name string, attrs ...xml.Attr) {
	w.token(xml.StartElement{Name: xml.Name{Local: name}, Attr: attrs})
}

func (w *ublWriter) close(name string) {
	w.token(xml.EndElement{Name: xml.Name{Local: name}})
}

func (w *ublWriter) cbc(local, value string, attrs ...xml.Attr) {
	name := "cbc:" + local
	w.open(name, attrs...)
	w.token(xml.CharData(value))
	w.close(name)
}

func (w *ublWriter) amount(local string, d decimal.Decimal, currency string) {
	w.cbc(local, formatDecimal(d), attr("currencyID", currency))
}

func attr(name, value string) xml.Attr {
	return xml.Attr{Name: xml.Name{Local: name}, Value: value}
}

func formatDecimal(d decimal.Decimal) string {
	return d.Round(2).StringFixed(2)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
