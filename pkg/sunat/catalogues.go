// Package sunat contiene catálogos y validaciones alineados a la guía de
// elaboración de comprobantes electrónicos UBL 2.1 de SUNAT (Perú).
package sunat

// =============================================================================
// Catálogo 01 - Tipo de documento
// =============================================================================

const (
	DocumentTypeInvoice = "01" // Factura
	DocumentTypeReceipt = "03" // Boleta de venta
	DocumentTypeCredit  = "07" // Nota de crédito
	DocumentTypeDebit   = "08" // Nota de débito
)

// ValidDocumentTypes tipos de comprobante soportados por sendBill.
var ValidDocumentTypes = map[string]bool{
	DocumentTypeInvoice: true,
	DocumentTypeReceipt: true,
	DocumentTypeCredit:  true,
	DocumentTypeDebit:   true,
}

// =============================================================================
// Catálogo 06 - Tipo de documento de identidad (@schemeID)
// =============================================================================

const (
	IdentityTypeNoDomiciled = "0" // Doc. trib. no dom. sin RUC
	IdentityTypeDNI         = "1"
	IdentityTypeForeignCard = "4" // Carnet de extranjería
	IdentityTypeRUC         = "6"
	IdentityTypePassport    = "7"
)

// =============================================================================
// Catálogo 05 - Tributos
// =============================================================================

const (
	TaxSchemeIGVID       = "1000"
	TaxSchemeIGVName     = "IGV"
	TaxSchemeIGVTypeCode = "VAT"
)

// IGVPercent tasa general del IGV (incluye IPM).
const IGVPercent = 18

// Catálogo 07 - Tipo de afectación del IGV.
const (
	AffectationTaxed  = "10" // Gravado - Operación onerosa
	AffectationExempt = "20"
	AffectationFree   = "30" // Inafecto
)

// TaxCategoryStandard categoría UN/ECE 5305 para operaciones gravadas.
const TaxCategoryStandard = "S"

// Catálogo 51 - Tipo de operación.
const OperationTypeInternalSale = "0101"

// Catálogo 16 - Tipo de precio de venta unitario.
const PriceTypeUnitIncludingTax = "01"

// =============================================================================
// Catálogo 03 - Unidades de medida (UN/ECE rec 20)
// =============================================================================

const (
	UnitProduct  = "NIU" // Unidad (bienes)
	UnitService  = "ZZ"  // Unidad (servicios)
	UnitKilogram = "KGM"
	UnitLitre    = "LTR"
	UnitBox      = "BX"
)

// Catálogo 02 - Monedas.
const (
	CurrencyPEN = "PEN"
	CurrencyUSD = "USD"
)

// Versiones UBL exigidas para factura 2.1.
const (
	UBLVersion      = "2.1"
	CustomizationID = "2.0"
)

// Agencia de catálogos referida en los listAgencyName / schemeAgencyName.
const (
	AgencyPE    = "PE:SUNAT"
	AgencyUNECE = "United Nations Economic Commission for Europe"
)

// NumberPadWidth ancho del correlativo en el ID del comprobante y en los nombres de archivo.
const NumberPadWidth = 8

// DefaultSeries serie por defecto para facturas.
const DefaultSeries = "F001"
