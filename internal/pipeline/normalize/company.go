package normalize

import "strings"

// CleanCompanyName trims the name, collapses internal whitespace (including
// full-width spaces) and rewrites configured legal-suffix variants to their
// canonical form.
func (n *Normalizer) CleanCompanyName(value string) string {
	fields := strings.FieldsFunc(value, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '　'
	})
	s := strings.Join(fields, " ")
	for _, rule := range n.cfg.CompanySuffixRules {
		s = strings.ReplaceAll(s, rule.Variant, rule.Canonical)
	}
	return s
}

// StandardizeCurrency maps symbols, language names and ISO codes to a
// 3-letter currency code, falling back to the configured default when the
// value is unrecognized or empty.
func (n *Normalizer) StandardizeCurrency(value string) string {
	s := strings.TrimSpace(value)
	if s == "" {
		return n.cfg.DefaultCurrency
	}
	if code, ok := n.cfg.CurrencyAliases[s]; ok {
		return code
	}
	upper := strings.ToUpper(s)
	if code, ok := n.cfg.CurrencyAliases[upper]; ok {
		return code
	}
	return n.cfg.DefaultCurrency
}
