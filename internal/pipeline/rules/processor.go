// Package rules enforces cross-field invariants on an already-extracted
// canonical field set. It never sees the raw vendor payload; every check
// reads and (where the policy permits) corrects the canonical fields only.
package rules

import (
	"log"

	"piaoju/internal/domain"
	"piaoju/internal/pipeline/normalize"
)

// Config carries the business-rule tables: which fields are required, the
// reconciliation tolerance, per-type reference tax rates, and whether amount
// mismatches are auto-corrected or surfaced as errors.
type Config struct {
	RequiredFields []string
	OptionalFields []string

	// Tolerance is the maximum acceptable |subtotal+tax-total| discrepancy.
	Tolerance float64

	// AutoCorrect recomputes subtotal and tax from the total on mismatch;
	// when false the mismatch becomes a blocking error instead.
	AutoCorrect bool

	// ReferenceTaxRates maps invoice types to their expected tax rate
	// (fractions, e.g. 0.13). DefaultTaxRate applies to unknown types.
	ReferenceTaxRates map[domain.InvoiceType]float64
	DefaultTaxRate    float64

	// RateDelta is the tolerated |actual-reference| tax-rate gap before a
	// plausibility warning fires (fraction, e.g. 0.01 for one point).
	RateDelta float64
}

// Processor runs the ordered business-rule checks over one field set. It
// holds no per-call state; point-in-time diagnostics are returned, never
// accumulated.
type Processor struct {
	cfg  Config
	norm *normalize.Normalizer
}

// New creates a Processor from an explicit configuration.
func New(cfg Config, norm *normalize.Normalizer) *Processor {
	return &Processor{cfg: cfg, norm: norm}
}

// check is one named business rule. Checks are independent and idempotent;
// the only ordering constraint is that amount reconciliation runs before the
// tax-rate plausibility check, which reads the corrected values.
type check struct {
	key string
	run func(p *Processor, f *domain.InvoiceFields) ([]domain.Warning, []*domain.FieldError)
}

func checks() []check {
	return []check{
		{key: "rules.required", run: (*Processor).checkRequired},
		{key: "rules.amounts", run: (*Processor).reconcileAmounts},
		{key: "rules.tax_rate", run: (*Processor).checkTaxRate},
		{key: "rules.invoice_type", run: (*Processor).inferInvoiceType},
		{key: "rules.cross_field", run: (*Processor).checkCrossField},
		{key: "rules.final", run: (*Processor).applyFinalCorrections},
	}
}

// Process runs every check in order, correcting fields in place where a safe
// correction exists, and returns all diagnostics.
func (p *Processor) Process(f *domain.InvoiceFields) ([]domain.Warning, []*domain.FieldError) {
	var warnings []domain.Warning
	var errs []*domain.FieldError
	for _, c := range checks() {
		w, e := c.run(p, f)
		warnings = append(warnings, w...)
		errs = append(errs, e...)
	}
	if len(errs) > 0 {
		log.Printf("rules.Processor: invoice %s processed with %d warnings, %d errors", f.InvoiceNumber, len(warnings), len(errs))
	}
	return warnings, errs
}

// referenceRate returns the expected tax rate for an invoice type.
func (p *Processor) referenceRate(t domain.InvoiceType) float64 {
	if rate, ok := p.cfg.ReferenceTaxRates[t]; ok {
		return rate
	}
	return p.cfg.DefaultTaxRate
}

// checkRequired records a blocking error for every required slot that is
// still empty after extraction.
func (p *Processor) checkRequired(f *domain.InvoiceFields) ([]domain.Warning, []*domain.FieldError) {
	var errs []*domain.FieldError
	for _, field := range p.cfg.RequiredFields {
		if f.IsEmpty(field) {
			errs = append(errs, domain.NewFieldError(
				field, domain.ErrCodeRequiredFieldMissing,
				"required field is missing after extraction", ""))
		}
	}
	return nil, errs
}
