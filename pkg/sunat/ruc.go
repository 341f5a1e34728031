package sunat

import (
	"fmt"
	"unicode"
)

// pesos del módulo 11 para los 10 primeros dígitos del RUC.
var rucWeights = [10]int{5, 4, 3, 2, 7, 6, 5, 4, 3, 2}

// prefijos válidos: persona natural (10), no domiciliado (15, 17), jurídica (20).
var rucPrefixes = map[string]bool{"10": true, "15": true, "16": true, "17": true, "20": true}

// ValidateRUC valida longitud, prefijo y dígito verificador del RUC.
func ValidateRUC(ruc string) error {
	if len(ruc) != 11 || !allDigits(ruc) {
		return fmt.Errorf("sunat: RUC debe tener 11 dígitos numéricos, se recibió %q", ruc)
	}
	if !rucPrefixes[ruc[:2]] {
		return fmt.Errorf("sunat: prefijo de RUC inválido %q", ruc[:2])
	}
	expected, err := ComputeRUCCheckDigit(ruc[:10])
	if err != nil {
		return err
	}
	if ruc[10] != expected {
		return fmt.Errorf("sunat: dígito verificador del RUC inválido: esperado %c, recibido %c", expected, ruc[10])
	}
	return nil
}

// ComputeRUCCheckDigit calcula el dígito verificador para los 10 primeros dígitos.
func ComputeRUCCheckDigit(base string) (byte, error) {
	if len(base) < 10 || !allDigits(base[:10]) {
		return 0, fmt.Errorf("sunat: se requieren 10 dígitos para calcular el verificador, se recibió %q", base)
	}
	var sum int
	for i := 0; i < 10; i++ {
		sum += int(base[i]-'0') * rucWeights[i]
	}
	dv := 11 - sum%11
	switch dv {
	case 10:
		dv = 0
	case 11:
		dv = 1
	}
	return byte('0' + dv), nil
}

// ValidateDNI exige 8 dígitos.
func ValidateDNI(dni string) error {
	if len(dni) != 8 || !allDigits(dni) {
		return fmt.Errorf("sunat: DNI debe tener 8 dígitos numéricos, se recibió %q", dni)
	}
	return nil
}

// ValidateIdentity valida el número según el tipo de documento (catálogo 06).
// Los tipos sin regla conocida sólo exigen un valor no vacío.
func ValidateIdentity(typeCode, number string) error {
	switch typeCode {
	case IdentityTypeRUC:
		return ValidateRUC(number)
	case IdentityTypeDNI:
		return ValidateDNI(number)
	default:
		if number == "" {
			return fmt.Errorf("sunat: número de documento vacío para tipo %q", typeCode)
		}
		return nil
	}
}

func allDigits(s string) bool {
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return s != ""
}
