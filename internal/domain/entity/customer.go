package entity

// Customer adquirente o usuario del comprobante.
type Customer struct {
	IdentityType   string // Catálogo 06: "6" RUC, "1" DNI...
	DocumentNumber string
	Name           string
	Address        *Address
}
