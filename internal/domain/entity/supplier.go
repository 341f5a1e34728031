package entity

// Address domicilio fiscal o de entrega.
type Address struct {
	Ubigeo      string // Código de 6 dígitos (INEI)
	Street      string
	District    string
	Province    string
	Department  string
	CountryCode string // ISO 3166-1, "PE"
	// EstablishmentCode código de establecimiento anexo; "0000" para el domicilio fiscal.
	EstablishmentCode string
}

// Supplier emisor del comprobante.
type Supplier struct {
	RUC       string
	LegalName string
	TradeName string
	Address   Address
}
