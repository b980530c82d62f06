// Package export serializes a month's movements to downloadable statements:
// CSV for spreadsheets and a formatted PDF.
package export

import (
	"strings"

	"gastos/internal/core"
)

// csvHeader matches the column layout of the original report download.
var csvHeader = []string{"Fecha", "Concepto", "Categoria", "Monto", "Quien"}

// EscapeCSV makes a field safe for spreadsheet consumption. Values starting
// with a formula trigger character are neutralized with a leading quote, and
// any field containing separators, quotes or newlines is wrapped with
// internal quotes doubled.
func EscapeCSV(value string) string {
	if strings.HasPrefix(value, "=") || strings.HasPrefix(value, "+") ||
		strings.HasPrefix(value, "-") || strings.HasPrefix(value, "@") {
		value = "'" + value
	}
	if strings.ContainsAny(value, ",\"\n") {
		value = `"` + strings.ReplaceAll(value, `"`, `""`) + `"`
	}
	return value
}

// CSV renders the given movements as CSV text. Rows keep the input order
// (the store lists newest first). The owner column reads "Yo" for records
// owned by selfID and "Pareja" otherwise.
func CSV(expenses []core.Record, selfID string) string {
	var b strings.Builder
	b.WriteString(strings.Join(csvHeader, ","))
	b.WriteByte('\n')

	for _, e := range expenses {
		who := "Pareja"
		if e.OwnerID == selfID {
			who = "Yo"
		}
		row := []string{
			EscapeCSV(string(e.Date)),
			EscapeCSV(e.Name),
			EscapeCSV(e.Category),
			EscapeCSV(e.Amount.String()),
			who,
		}
		b.WriteString(strings.Join(row, ","))
		b.WriteByte('\n')
	}
	return b.String()
}
