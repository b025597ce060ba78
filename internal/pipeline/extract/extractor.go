package extract

import (
	"fmt"
	"regexp"
	"strings"

	"piaoju/internal/domain"
	"piaoju/internal/pipeline/normalize"
)

// Config drives field resolution. Synonym lists are ordered: earlier keys are
// more trusted vendor labels for the canonical field.
type Config struct {
	// Synonyms maps each canonical field name to its ordered candidate keys.
	Synonyms map[string][]string

	// FuzzyNumberPattern matches a bare numeric token that may be a lost
	// invoice number (typically ^\d{8,12}$).
	FuzzyNumberPattern string

	// MaxDepth caps every traversal of the raw payload tree.
	MaxDepth int
}

// Extractor resolves the canonical field set from one raw vendor payload.
// Construct a fresh one per document or share freely; it holds no per-call
// state.
type Extractor struct {
	cfg   Config
	fuzzy *regexp.Regexp
	norm  *normalize.Normalizer
}

// New compiles the fuzzy-match pattern and returns a ready Extractor.
func New(cfg Config, norm *normalize.Normalizer) (*Extractor, error) {
	fuzzy, err := regexp.Compile(cfg.FuzzyNumberPattern)
	if err != nil {
		return nil, fmt.Errorf("compiling fuzzy number pattern: %w", err)
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = 8
	}
	return &Extractor{cfg: cfg, fuzzy: fuzzy, norm: norm}, nil
}

// MaxDepth exposes the configured traversal cap for callers that decode the
// raw payload themselves.
func (e *Extractor) MaxDepth() int { return e.cfg.MaxDepth }

// ExtractAll resolves every canonical field from the raw payload, returning
// the field set and the warnings generated along the way. The returned error
// is non-nil only when a required field could not be resolved by any
// strategy; it is always a *domain.FieldError.
func (e *Extractor) ExtractAll(root Value) (*domain.InvoiceFields, []domain.Warning, error) {
	f := &domain.InvoiceFields{}
	var warnings []domain.Warning

	// Invoice number: synonym lookup, then the bounded fuzzy scan.
	if raw, ok := e.lookupText(root, domain.FieldInvoiceNumber); ok {
		f.InvoiceNumber = e.norm.CleanInvoiceNumber(raw)
	}
	if f.InvoiceNumber == "" {
		if token, ok := e.fuzzyInvoiceNumber(root); ok {
			f.InvoiceNumber = token
			warnings = append(warnings, domain.Warning{
				Field:          domain.FieldInvoiceNumber,
				Message:        "invoice number recovered by fuzzy match on a bare numeric token",
				CorrectedValue: token,
				Severity:       domain.SeverityMedium,
			})
		}
	}
	if f.InvoiceNumber == "" {
		return nil, warnings, domain.NewFieldError(
			domain.FieldInvoiceNumber, domain.ErrCodeRequiredFieldMissing,
			"invoice number could not be resolved by any strategy", "")
	}

	// Seller name is the second hard requirement.
	if raw, ok := e.lookupText(root, domain.FieldSellerName); ok {
		f.SellerName = e.norm.CleanCompanyName(raw)
	}
	if f.SellerName == "" {
		return nil, warnings, domain.NewFieldError(
			domain.FieldSellerName, domain.ErrCodeRequiredFieldMissing,
			"seller name could not be resolved by any strategy", "")
	}

	// Amounts. A missing subtotal is derivable once total and tax are known.
	f.TotalAmount = e.lookupAmount(root, domain.FieldTotalAmount)
	f.TaxAmount = e.lookupAmount(root, domain.FieldTaxAmount)
	f.AmountWithoutTax = e.lookupAmount(root, domain.FieldAmountWithoutTax)
	if f.AmountWithoutTax == 0 && f.TotalAmount > 0 && f.TaxAmount > 0 {
		f.AmountWithoutTax = normalize.Round2(f.TotalAmount - f.TaxAmount)
		warnings = append(warnings, domain.Warning{
			Field:          domain.FieldAmountWithoutTax,
			Message:        "amount without tax derived from total minus tax",
			CorrectedValue: normalize.FormatAmount(f.AmountWithoutTax),
			Severity:       domain.SeverityLow,
		})
	}

	// Invoice date: standardize when present, default to today when wholly
	// absent or unparsable.
	if raw, ok := e.lookupText(root, domain.FieldInvoiceDate); ok {
		if iso, parsed := e.norm.ParseDate(raw); parsed {
			f.InvoiceDate = iso
		} else {
			f.InvoiceDate = e.norm.Today()
			warnings = append(warnings, domain.Warning{
				Field:          domain.FieldInvoiceDate,
				Message:        "invoice date not parseable, defaulted to current date",
				OriginalValue:  raw,
				CorrectedValue: f.InvoiceDate,
				Severity:       domain.SeverityMedium,
			})
		}
	} else {
		f.InvoiceDate = e.norm.Today()
		warnings = append(warnings, domain.Warning{
			Field:          domain.FieldInvoiceDate,
			Message:        "invoice date absent, defaulted to current date",
			CorrectedValue: f.InvoiceDate,
			Severity:       domain.SeverityMedium,
		})
	}

	// Consumption date is optional; unparsable values are dropped.
	if raw, ok := e.lookupText(root, domain.FieldConsumptionDate); ok {
		if iso, parsed := e.norm.ParseDate(raw); parsed {
			f.ConsumptionDate = iso
		} else {
			warnings = append(warnings, domain.Warning{
				Field:         domain.FieldConsumptionDate,
				Message:       "consumption date not parseable, omitted",
				OriginalValue: raw,
				Severity:      domain.SeverityLow,
			})
		}
	}

	// Currency defaults to the configured local currency.
	raw, _ := e.lookupText(root, domain.FieldCurrency)
	f.Currency = e.norm.StandardizeCurrency(raw)

	// Remaining optional fields default to empty and are silently omitted.
	if raw, ok := e.lookupText(root, domain.FieldInvoiceCode); ok {
		f.InvoiceCode = e.norm.CleanInvoiceNumber(raw)
	}
	if raw, ok := e.lookupText(root, domain.FieldSellerTaxNumber); ok {
		f.SellerTaxNumber = e.norm.CleanTaxNumber(raw)
	}
	if raw, ok := e.lookupText(root, domain.FieldBuyerName); ok {
		f.BuyerName = e.norm.CleanCompanyName(raw)
	}
	if raw, ok := e.lookupText(root, domain.FieldBuyerTaxNumber); ok {
		f.BuyerTaxNumber = e.norm.CleanTaxNumber(raw)
	}
	if raw, ok := e.lookupText(root, domain.FieldInvoiceType); ok {
		f.InvoiceType = domain.InvoiceType(strings.TrimSpace(raw))
	}
	if raw, ok := e.lookupText(root, domain.FieldRemarks); ok {
		f.Remarks = raw
	}

	return f, warnings, nil
}

// lookupText tries the canonical field's synonym keys in order and returns
// the first non-empty scalar text.
func (e *Extractor) lookupText(root Value, field string) (string, bool) {
	for _, key := range e.cfg.Synonyms[field] {
		v, ok := root.Lookup(key, e.cfg.MaxDepth)
		if !ok {
			continue
		}
		if text := v.Text(); text != "" {
			return text, true
		}
	}
	return "", false
}

// lookupAmount resolves a monetary field, keeping numeric scalars numeric so
// vendor-typed numbers bypass string cleaning.
func (e *Extractor) lookupAmount(root Value, field string) float64 {
	for _, key := range e.cfg.Synonyms[field] {
		v, ok := root.Lookup(key, e.cfg.MaxDepth)
		if !ok {
			continue
		}
		if amount := e.norm.ParseAmount(v.Scalar()); amount != 0 {
			return amount
		}
	}
	return 0
}

// fuzzyInvoiceNumber scans the whole payload for the first bare numeric
// token matching the fuzzy pattern. The walk order is stable, so repeated
// runs recover the same token.
func (e *Extractor) fuzzyInvoiceNumber(root Value) (string, bool) {
	var found string
	root.Walk(e.cfg.MaxDepth, func(v Value) bool {
		if !v.IsScalar() {
			return true
		}
		token := strings.TrimSpace(v.Text())
		if e.fuzzy.MatchString(token) {
			found = token
			return false
		}
		return true
	})
	return found, found != ""
}
