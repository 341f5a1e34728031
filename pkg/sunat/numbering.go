package sunat

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatNumber rellena el correlativo con ceros a la izquierda hasta NumberPadWidth.
func FormatNumber(n int64) string {
	s := strconv.FormatInt(n, 10)
	if len(s) >= NumberPadWidth {
		return s
	}
	return strings.Repeat("0", NumberPadWidth-len(s)) + s
}

// DocumentID arma el identificador "{serie}-{correlativo}" usado en cbc:ID.
func DocumentID(series string, number int64) string {
	return series + "-" + FormatNumber(number)
}

// FileBaseName arma "{ruc}-{tipo}-{serie}-{correlativo}" (sin extensión).
func FileBaseName(ruc, docType, series string, number int64) string {
	return fmt.Sprintf("%s-%s-%s", ruc, docType, DocumentID(series, number))
}

// CDRBaseName nombre del CDR devuelto por SUNAT para el archivo base.
func CDRBaseName(base string) string {
	return "R-" + base
}
