package dataprocessing

import (
	"strings"

	"stocktake/pkg/contracts/domain"
)

// CanonicalizeCode turns a scanned value into its comparable form.
// Text keeps only the part after the last '/', since scanners often return a URL;
// numbers and booleans use their textual form. The result is uppercased.
// ok is false only for absent values; text ending in '/' yields the empty code.
func CanonicalizeCode(raw domain.Cell) (code string, ok bool) {
	if raw.IsEmpty() {
		return "", false
	}

	value := raw.String()
	if raw.Kind == domain.CellText {
		value = value[strings.LastIndex(value, "/")+1:]
	}

	return strings.ToUpper(value), true
}
