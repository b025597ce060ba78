package rules

import (
	"piaoju/internal/domain"
	"piaoju/internal/pipeline/normalize"
)

// inferInvoiceType fills an empty invoice type from the invoice-number
// length, refined by the invoice-code prefix. 8-digit numbers belong to
// general VAT invoices, 12-digit numbers to special VAT invoices; a 12-digit
// code starting with 0 marks the electronic form.
func (p *Processor) inferInvoiceType(f *domain.InvoiceFields) ([]domain.Warning, []*domain.FieldError) {
	if f.InvoiceType != "" {
		return nil, nil
	}

	var inferred domain.InvoiceType
	switch {
	case len(f.InvoiceCode) == 12 && f.InvoiceCode[0] == '0':
		inferred = domain.InvoiceTypeElectronic
	case len(f.InvoiceNumber) == 8:
		inferred = domain.InvoiceTypeGeneral
	case len(f.InvoiceNumber) == 12:
		inferred = domain.InvoiceTypeSpecial
	default:
		return nil, nil
	}

	f.InvoiceType = inferred
	return []domain.Warning{{
		Field:          domain.FieldInvoiceType,
		Message:        "invoice type inferred from invoice number and code, not observed",
		CorrectedValue: string(inferred),
		Severity:       domain.SeverityLow,
	}}, nil
}

// checkCrossField runs the date-ordering and party-identity sanity checks.
func (p *Processor) checkCrossField(f *domain.InvoiceFields) ([]domain.Warning, []*domain.FieldError) {
	var warnings []domain.Warning
	var errs []*domain.FieldError

	if f.InvoiceDate != "" && f.ConsumptionDate != "" {
		if days, err := normalize.DaysBetween(f.InvoiceDate, f.ConsumptionDate); err == nil && days > 0 {
			warnings = append(warnings, domain.Warning{
				Field:         domain.FieldConsumptionDate,
				Message:       "consumption date is after the invoice date",
				OriginalValue: f.ConsumptionDate,
				Severity:      domain.SeverityMedium,
			})
		}
	}

	if f.SellerName != "" && f.SellerName == f.BuyerName {
		warnings = append(warnings, domain.Warning{
			Field:         domain.FieldBuyerName,
			Message:       "seller and buyer have the same name",
			OriginalValue: f.BuyerName,
			Severity:      domain.SeverityHigh,
		})
	}

	if f.SellerTaxNumber != "" && f.SellerTaxNumber == f.BuyerTaxNumber {
		errs = append(errs, domain.NewRecoverableFieldError(
			domain.FieldBuyerTaxNumber, domain.ErrCodeDuplicateTaxNumber,
			"seller and buyer share the same tax number", f.BuyerTaxNumber))
	}

	return warnings, errs
}

// applyFinalCorrections rounds every monetary field, re-normalizes the
// company names in case a derived value needs it, and strips the invoice
// number down to digits one more time.
func (p *Processor) applyFinalCorrections(f *domain.InvoiceFields) ([]domain.Warning, []*domain.FieldError) {
	f.TotalAmount = normalize.Round2(f.TotalAmount)
	f.AmountWithoutTax = normalize.Round2(f.AmountWithoutTax)
	f.TaxAmount = normalize.Round2(f.TaxAmount)
	f.SellerName = p.norm.CleanCompanyName(f.SellerName)
	f.BuyerName = p.norm.CleanCompanyName(f.BuyerName)
	f.InvoiceNumber = p.norm.CleanInvoiceNumber(f.InvoiceNumber)
	return nil, nil
}

// QualityScore summarizes field completeness and diagnostic weight as a
// 0-100 score: minus 20 per missing required field, 5 per missing optional
// field, 2 per warning and 10 per error.
func (p *Processor) QualityScore(f *domain.InvoiceFields, warningCount, errorCount int) float64 {
	score := 100.0
	for _, field := range p.cfg.RequiredFields {
		if f.IsEmpty(field) {
			score -= 20
		}
	}
	for _, field := range p.cfg.OptionalFields {
		if f.IsEmpty(field) {
			score -= 5
		}
	}
	score -= 2 * float64(warningCount)
	score -= 10 * float64(errorCount)

	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
