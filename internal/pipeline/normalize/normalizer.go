// Package normalize holds the deterministic scalar parsing and validation
// used by the transformation pipeline: amounts, dates, invoice and tax
// numbers, company names, and currency codes. All functions are total —
// unparsable input degrades to a safe default (zero amount, current date,
// empty string) and callers are responsible for recording a warning when a
// default was used.
package normalize

import (
	"fmt"
	"regexp"
	"time"
)

// SuffixRule rewrites one legal-suffix variant in a company name to its
// canonical form.
type SuffixRule struct {
	Variant   string
	Canonical string
}

// Config is the full table-driven configuration of a Normalizer. It is
// supplied explicitly by the hosting application; the package keeps no
// module-level defaults.
type Config struct {
	// Amount parsing.
	CurrencySymbols     []string
	ThousandsSeparators []string
	DecimalSeparators   []string
	AmountMin           float64
	AmountMax           float64

	// Date plausibility window.
	DateMin time.Time
	DateMax time.Time

	// Identifier patterns, applied after cleaning.
	InvoiceNumberPattern string
	TaxNumberPattern     string

	// Company name legal-suffix normalization, applied in order.
	CompanySuffixRules []SuffixRule

	// Currency alias table (symbols, language names, ISO codes) and the
	// default used when a value is unrecognized or absent.
	CurrencyAliases map[string]string
	DefaultCurrency string

	// Now is the clock used for current-date fallbacks. Nil means time.Now.
	Now func() time.Time
}

// Normalizer parses and validates single scalar values. It is stateless and
// safe for concurrent use.
type Normalizer struct {
	cfg        Config
	invoiceNum *regexp.Regexp
	taxNum     *regexp.Regexp
	now        func() time.Time
}

// New compiles the configured patterns and returns a ready Normalizer.
func New(cfg Config) (*Normalizer, error) {
	invoiceNum, err := regexp.Compile(cfg.InvoiceNumberPattern)
	if err != nil {
		return nil, fmt.Errorf("compiling invoice number pattern: %w", err)
	}
	taxNum, err := regexp.Compile(cfg.TaxNumberPattern)
	if err != nil {
		return nil, fmt.Errorf("compiling tax number pattern: %w", err)
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Normalizer{
		cfg:        cfg,
		invoiceNum: invoiceNum,
		taxNum:     taxNum,
		now:        now,
	}, nil
}
