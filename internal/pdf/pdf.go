// Package pdf renders invoice and contract documents. Callers map their
// models into the data structs here; the package has no knowledge of the
// store.
package pdf

import (
	"fmt"
	"strings"
)

// PartyData identifies one side of a document.
type PartyData struct {
	Name    string
	Company string
	Address string
	Email   string
}

// FormatMoney renders minor currency units for display, e.g. 12345 usd ->
// "USD 123.45".
func FormatMoney(amount int64, currency string) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s%s %d.%02d", sign, strings.ToUpper(currency), amount/100, amount%100)
}

// Filename builds a deterministic document filename from the entity number
// and the client name, e.g. invoice-INV-2026-0001-acme-corp.pdf.
func Filename(kind, number, clientName string) string {
	slug := strings.ToLower(clientName)
	var b strings.Builder
	lastDash := true
	for _, r := range slug {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	cleaned := strings.Trim(b.String(), "-")
	if cleaned == "" {
		cleaned = "client"
	}
	return fmt.Sprintf("%s-%s-%s.pdf", kind, number, cleaned)
}
