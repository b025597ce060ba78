package normalize

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Digit glyph variants seen in OCR output: full-width digits and the plain
// Chinese numerals used on printed amounts.
var digitGlyphs = map[rune]rune{
	'０': '0', '１': '1', '２': '2', '３': '3', '４': '4',
	'５': '5', '６': '6', '７': '7', '８': '8', '９': '9',
	'〇': '0', '零': '0', '一': '1', '二': '2', '三': '3',
	'四': '4', '五': '5', '六': '6', '七': '7', '八': '8', '九': '9',
}

// foldDigits maps full-width and Chinese numeral glyphs to ASCII digits.
func foldDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if d, ok := digitGlyphs[r]; ok {
			return d
		}
		return r
	}, s)
}

// ParseAmount parses a monetary value from raw OCR output. Currency symbols
// and thousands separators are stripped, decimal separators unified, digit
// glyph variants folded, and the result rounded to 2 decimal places. Returns
// 0 when nothing parseable remains; amounts are frequently optional or
// derivable, so callers record the warning instead of receiving an error.
func (n *Normalizer) ParseAmount(value any) float64 {
	switch v := value.(type) {
	case float64:
		return Round2(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		return n.parseAmountString(v)
	case nil:
		return 0
	default:
		return 0
	}
}

func (n *Normalizer) parseAmountString(s string) float64 {
	s = foldDigits(strings.TrimSpace(s))
	for _, sym := range n.cfg.CurrencySymbols {
		s = strings.ReplaceAll(s, sym, "")
	}
	for _, sep := range n.cfg.ThousandsSeparators {
		s = strings.ReplaceAll(s, sep, "")
	}
	for _, sep := range n.cfg.DecimalSeparators {
		s = strings.ReplaceAll(s, sep, ".")
	}

	// Keep only the characters a plain decimal number can contain.
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return 0
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0
	}
	return d.Round(2).InexactFloat64()
}

// Round2 rounds a monetary value to 2 decimal places using decimal
// arithmetic, avoiding float drift on half-cent boundaries.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// IsValidAmount reports whether the amount falls in the configured plausible
// range.
func (n *Normalizer) IsValidAmount(v float64) bool {
	return v >= n.cfg.AmountMin && v <= n.cfg.AmountMax
}

// FormatAmount renders an amount in the canonical 2-decimal string form.
func FormatAmount(v float64) string {
	return decimal.NewFromFloat(v).Round(2).StringFixed(2)
}
