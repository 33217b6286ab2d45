package tabular

import (
	"encoding/csv"
	"regexp"
	"strings"
)

// currencyRe matches a numeric value with thousands separators and an
// optional leading currency symbol, e.g. "$1,250.00" or "12,345".
var currencyRe = regexp.MustCompile(`^([$€£]?)(\d{1,3}(?:,\d{3})+(?:\.\d+)?)$`)

// normalizeCell strips thousands separators from numeric values so the
// output parses cleanly as CSV. Non-numeric cells pass through untouched.
func normalizeCell(s string) string {
	m := currencyRe.FindStringSubmatch(s)
	if m == nil {
		return s
	}
	return m[1] + strings.ReplaceAll(m[2], ",", "")
}

// renderCSV writes a header plus data rows as RFC 4180 CSV with no trailing
// newline. Every row is already fitted to the header width by the caller.
func renderCSV(header []string, rows [][]string) string {
	var b strings.Builder
	w := csv.NewWriter(&b)
	w.Write(header)
	for _, row := range rows {
		out := make([]string, len(row))
		for i, cell := range row {
			out[i] = normalizeCell(cell)
		}
		w.Write(out)
	}
	w.Flush()
	return strings.TrimRight(b.String(), "\n")
}
