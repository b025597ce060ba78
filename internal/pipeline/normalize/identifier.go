package normalize

import "strings"

// CleanInvoiceNumber strips everything but digits, folding full-width and
// Chinese numeral glyphs first.
func (n *Normalizer) CleanInvoiceNumber(value string) string {
	s := foldDigits(value)
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsValidInvoiceNumber reports whether the cleaned value matches the
// configured digit-count pattern.
func (n *Normalizer) IsValidInvoiceNumber(value string) bool {
	return value != "" && n.invoiceNum.MatchString(value)
}

// CleanTaxNumber strips the value to uppercase alphanumerics. Chinese
// unified social credit codes are 18 characters of digits and uppercase
// letters; OCR output frequently inserts spaces or lowercases them.
func (n *Normalizer) CleanTaxNumber(value string) string {
	s := strings.ToUpper(foldDigits(value))
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || (r >= 'A' && r <= 'Z') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// IsValidTaxNumber reports whether the cleaned value matches the configured
// tax-number pattern.
func (n *Normalizer) IsValidTaxNumber(value string) bool {
	return value != "" && n.taxNum.MatchString(value)
}
