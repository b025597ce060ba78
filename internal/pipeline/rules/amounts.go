package rules

import (
	"fmt"
	"math"

	"piaoju/internal/domain"
	"piaoju/internal/pipeline/normalize"
)

// reconcileAmounts enforces total = subtotal + tax within tolerance. The
// total is treated as ground truth when correcting: a mismatch recomputes
// subtotal and tax from the total using the invoice type's reference rate.
func (p *Processor) reconcileAmounts(f *domain.InvoiceFields) ([]domain.Warning, []*domain.FieldError) {
	total, subtotal, tax := f.TotalAmount, f.AmountWithoutTax, f.TaxAmount

	switch {
	case total > 0 && subtotal > 0 && tax > 0:
		if math.Abs(subtotal+tax-total) <= p.cfg.Tolerance {
			return nil, nil
		}
		return p.resolveMismatch(f)

	case total > 0 && tax > 0 && subtotal == 0:
		derived := normalize.Round2(total - tax)
		if derived < 0 {
			return p.resolveMismatch(f)
		}
		f.AmountWithoutTax = derived
		return []domain.Warning{{
			Field:          domain.FieldAmountWithoutTax,
			Message:        "amount without tax derived from total minus tax",
			CorrectedValue: normalize.FormatAmount(derived),
			Severity:       domain.SeverityLow,
		}}, nil

	case total > 0 && subtotal > 0 && tax == 0:
		derived := normalize.Round2(total - subtotal)
		if derived < 0 {
			return p.resolveMismatch(f)
		}
		if derived == 0 {
			// A genuinely zero tax stays zero; the tax-rate plausibility
			// check decides whether that is believable for the type.
			return nil, nil
		}
		f.TaxAmount = derived
		return []domain.Warning{{
			Field:          domain.FieldTaxAmount,
			Message:        "tax amount derived from total minus amount without tax",
			CorrectedValue: normalize.FormatAmount(derived),
			Severity:       domain.SeverityLow,
		}}, nil

	default:
		// Not enough known amounts to reconcile; leave as-is.
		return nil, nil
	}
}

// resolveMismatch either recomputes subtotal and tax from the total using
// the reference rate, or surfaces the inconsistency as a blocking error when
// auto-correction is disabled.
func (p *Processor) resolveMismatch(f *domain.InvoiceFields) ([]domain.Warning, []*domain.FieldError) {
	original := fmt.Sprintf("subtotal=%s tax=%s total=%s",
		normalize.FormatAmount(f.AmountWithoutTax),
		normalize.FormatAmount(f.TaxAmount),
		normalize.FormatAmount(f.TotalAmount))

	if !p.cfg.AutoCorrect {
		return nil, []*domain.FieldError{domain.NewFieldError(
			domain.FieldTotalAmount, domain.ErrCodeAmountInconsistent,
			"subtotal plus tax does not match total within tolerance", original)}
	}

	rate := p.referenceRate(f.InvoiceType)
	subtotal := normalize.Round2(f.TotalAmount / (1 + rate))
	tax := normalize.Round2(f.TotalAmount - subtotal)
	f.AmountWithoutTax = subtotal
	f.TaxAmount = tax

	return []domain.Warning{{
		Field:          domain.FieldTotalAmount,
		Message:        fmt.Sprintf("amounts inconsistent, subtotal and tax recomputed from total at reference rate %.2f", rate),
		OriginalValue:  original,
		CorrectedValue: fmt.Sprintf("subtotal=%s tax=%s", normalize.FormatAmount(subtotal), normalize.FormatAmount(tax)),
		Severity:       domain.SeverityMedium,
	}}, nil
}

// checkTaxRate compares the actual tax rate against the invoice type's
// reference rate. It runs after reconciliation so it reads corrected values.
func (p *Processor) checkTaxRate(f *domain.InvoiceFields) ([]domain.Warning, []*domain.FieldError) {
	if f.AmountWithoutTax <= 0 {
		return nil, nil
	}
	actual := f.TaxAmount / f.AmountWithoutTax
	reference := p.referenceRate(f.InvoiceType)
	if math.Abs(actual-reference) <= p.cfg.RateDelta {
		return nil, nil
	}
	return []domain.Warning{{
		Field:         domain.FieldTaxAmount,
		Message:       fmt.Sprintf("actual tax rate %.4f deviates from reference rate %.2f", actual, reference),
		OriginalValue: normalize.FormatAmount(f.TaxAmount),
		Severity:      domain.SeverityHigh,
	}}, nil
}
