package pipeline

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"

	"piaoju/internal/domain"
	"piaoju/internal/pipeline/extract"
	"piaoju/internal/pipeline/normalize"
	"piaoju/internal/pipeline/rules"
)

// Config aggregates the explicit configuration of all three pipeline stages.
type Config struct {
	Normalize normalize.Config
	Extract   extract.Config
	Rules     rules.Config
}

// Transformer is the single entry point of the pipeline. It is safe for
// concurrent use: every Transform call is a pure function of its inputs and
// the read-only configuration, and diagnostics are returned per call rather
// than accumulated on the instance.
type Transformer struct {
	norm      *normalize.Normalizer
	extractor *extract.Extractor
	processor *rules.Processor
}

// New builds a Transformer from an explicit configuration.
func New(cfg Config) (*Transformer, error) {
	norm, err := normalize.New(cfg.Normalize)
	if err != nil {
		return nil, fmt.Errorf("building normalizer: %w", err)
	}
	extractor, err := extract.New(cfg.Extract, norm)
	if err != nil {
		return nil, fmt.Errorf("building extractor: %w", err)
	}
	return &Transformer{
		norm:      norm,
		extractor: extractor,
		processor: rules.New(cfg.Rules, norm),
	}, nil
}

// Transform converts one recognition result into a persistable invoice
// record plus diagnostics. It never returns an error; failures are reported
// inside the result so batch callers stay uniform.
func (t *Transformer) Transform(rec *RecognitionResult, meta domain.FileMetadata) *TransformationResult {
	start := time.Now()
	res := &TransformationResult{
		Warnings: []domain.Warning{},
		Errors:   []*domain.FieldError{},
	}

	root, fatal := t.validateInput(rec)
	if fatal != nil {
		res.Errors = append(res.Errors, fatal)
		res.ProcessingInfo.ProcessingTime = time.Since(start).Seconds()
		return res
	}

	steps := append([]string(nil), rec.ProcessingSteps...)

	fields, warnings, err := t.extractor.ExtractAll(root)
	res.Warnings = append(res.Warnings, warnings...)
	if err != nil {
		var fe *domain.FieldError
		if !errors.As(err, &fe) {
			fe = domain.NewFieldError("", domain.ErrCodeTransformation, err.Error(), "")
		}
		res.Errors = append(res.Errors, fe)
		res.ProcessingInfo.ProcessingTime = time.Since(start).Seconds()
		log.Printf("pipeline.Transformer: extraction failed for %s: %v", meta.FileName, err)
		return res
	}
	steps = append(steps, fmt.Sprintf("extracted %d canonical fields", fields.PopulatedCount()))

	ruleWarnings, ruleErrors := t.processor.Process(fields)
	res.Warnings = append(res.Warnings, ruleWarnings...)
	res.Errors = append(res.Errors, ruleErrors...)
	steps = append(steps, fmt.Sprintf("business rules recorded %d warnings, %d errors", len(ruleWarnings), len(ruleErrors)))

	finalWarnings, finalErrors := t.validateFinal(fields)
	res.Warnings = append(res.Warnings, finalWarnings...)
	res.Errors = append(res.Errors, finalErrors...)
	steps = append(steps, "final field validation completed")

	score := t.processor.QualityScore(fields, len(res.Warnings), len(res.Errors))
	res.Success = len(res.Errors) == 0
	res.ProcessingInfo = ProcessingInfo{
		FieldsExtracted: fields.PopulatedCount(),
		Confidence:      math.Min(rec.Confidence.Overall, score/100),
		ProcessingTime:  time.Since(start).Seconds(),
	}
	res.Data = t.buildRecord(rec, meta, fields, res, score, steps)
	return res
}

// validateInput checks the minimally expected shape of the recognition
// result. Any failure here is fatal and short-circuits the transformation.
func (t *Transformer) validateInput(rec *RecognitionResult) (extract.Value, *domain.FieldError) {
	if rec == nil {
		return extract.Value{}, domain.NewFieldError("", domain.ErrCodeTransformation,
			"recognition result is missing", "")
	}
	if !rec.Success {
		msg := "recognition service reported failure"
		if len(rec.ValidationErrors) > 0 {
			msg = fmt.Sprintf("%s: %s", msg, strings.Join(rec.ValidationErrors, "; "))
		}
		return extract.Value{}, domain.NewFieldError("", domain.ErrCodeTransformation, msg, "")
	}
	if math.IsNaN(rec.Confidence.Overall) || rec.Confidence.Overall < 0 || rec.Confidence.Overall > 1 {
		return extract.Value{}, domain.NewFieldError("", domain.ErrCodeTransformation,
			"overall confidence is not a probability in [0,1]",
			fmt.Sprintf("%v", rec.Confidence.Overall))
	}
	if len(rec.Fields) == 0 {
		return extract.Value{}, domain.NewFieldError("", domain.ErrCodeTransformation,
			"recognition result has no field map", "")
	}

	root, err := extract.FromJSON(rec.Fields, t.extractor.MaxDepth())
	if err != nil {
		return extract.Value{}, domain.NewFieldError("", domain.ErrCodeTransformation,
			fmt.Sprintf("raw field map is not decodable: %v", err), "")
	}
	if root.Kind != extract.KindObject || len(root.Obj) == 0 {
		return extract.Value{}, domain.NewFieldError("", domain.ErrCodeTransformation,
			"raw field map is empty", "")
	}
	return root, nil
}

// validateFinal runs the full-field format and range pass over the corrected
// fields. Values that were found but fail a rule are kept in the record with
// a warning; negative amounts have no safe default and become recoverable
// errors.
func (t *Transformer) validateFinal(f *domain.InvoiceFields) ([]domain.Warning, []*domain.FieldError) {
	var warnings []domain.Warning
	var errs []*domain.FieldError

	if !t.norm.IsValidInvoiceNumber(f.InvoiceNumber) {
		warnings = append(warnings, domain.Warning{
			Field:         domain.FieldInvoiceNumber,
			Message:       "invoice number does not match the expected digit-count pattern",
			OriginalValue: f.InvoiceNumber,
			Severity:      domain.SeverityHigh,
		})
	}
	if f.SellerTaxNumber != "" && !t.norm.IsValidTaxNumber(f.SellerTaxNumber) {
		warnings = append(warnings, domain.Warning{
			Field:         domain.FieldSellerTaxNumber,
			Message:       "seller tax number does not match the expected pattern",
			OriginalValue: f.SellerTaxNumber,
			Severity:      domain.SeverityMedium,
		})
	}
	if f.BuyerTaxNumber != "" && !t.norm.IsValidTaxNumber(f.BuyerTaxNumber) {
		warnings = append(warnings, domain.Warning{
			Field:         domain.FieldBuyerTaxNumber,
			Message:       "buyer tax number does not match the expected pattern",
			OriginalValue: f.BuyerTaxNumber,
			Severity:      domain.SeverityMedium,
		})
	}
	if f.InvoiceDate != "" && !t.norm.IsValidDate(f.InvoiceDate) {
		warnings = append(warnings, domain.Warning{
			Field:         domain.FieldInvoiceDate,
			Message:       "invoice date is outside the plausible range",
			OriginalValue: f.InvoiceDate,
			Severity:      domain.SeverityMedium,
		})
	}
	if f.ConsumptionDate != "" && !t.norm.IsValidDate(f.ConsumptionDate) {
		warnings = append(warnings, domain.Warning{
			Field:         domain.FieldConsumptionDate,
			Message:       "consumption date is outside the plausible range",
			OriginalValue: f.ConsumptionDate,
			Severity:      domain.SeverityMedium,
		})
	}

	amounts := []struct {
		field string
		value float64
	}{
		{domain.FieldTotalAmount, f.TotalAmount},
		{domain.FieldAmountWithoutTax, f.AmountWithoutTax},
		{domain.FieldTaxAmount, f.TaxAmount},
	}
	for _, a := range amounts {
		if a.value < 0 {
			errs = append(errs, domain.NewRecoverableFieldError(
				a.field, domain.ErrCodeInvalidFormat,
				"monetary field is negative", normalize.FormatAmount(a.value)))
			continue
		}
		if a.value > 0 && !t.norm.IsValidAmount(a.value) {
			warnings = append(warnings, domain.Warning{
				Field:         a.field,
				Message:       "amount is outside the plausible range",
				OriginalValue: normalize.FormatAmount(a.value),
				Severity:      domain.SeverityHigh,
			})
		}
	}

	return warnings, errs
}

// buildRecord assembles the persistable record: canonical fields, the
// pass-through file metadata, and the OCR provenance kept for audit.
func (t *Transformer) buildRecord(
	rec *RecognitionResult,
	meta domain.FileMetadata,
	fields *domain.InvoiceFields,
	res *TransformationResult,
	score float64,
	steps []string,
) *domain.InvoiceRecord {
	now := time.Now().UTC()

	fieldConfidence, _ := json.Marshal(rec.Confidence.Fields)
	diagnostics, _ := json.Marshal(struct {
		Warnings []domain.Warning     `json:"warnings"`
		Errors   []*domain.FieldError `json:"errors"`
	}{res.Warnings, res.Errors})

	rawPayload := rec.RawPayload
	if len(rawPayload) == 0 {
		rawPayload = rec.Fields
	}

	return &domain.InvoiceRecord{
		ID:                uuid.New(),
		InvoiceFields:     *fields,
		FileMetadata:      meta,
		OverallConfidence: rec.Confidence.Overall,
		FieldConfidence:   fieldConfidence,
		RawPayload:        rawPayload,
		ProcessingSteps:   domain.StringList(steps),
		QualityScore:      score,
		Diagnostics:       diagnostics,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// TransformMultiple applies Transform to a list of items, isolating per-item
// failures: a panic in one item becomes one failed result and never aborts
// the batch.
func (t *Transformer) TransformMultiple(items []BatchItem) []*TransformationResult {
	results := make([]*TransformationResult, 0, len(items))
	for i := range items {
		results = append(results, t.transformIsolated(items[i]))
	}
	return results
}

func (t *Transformer) transformIsolated(item BatchItem) (res *TransformationResult) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("pipeline.Transformer: recovered panic for %s: %v", item.FileMetadata.FileName, r)
			res = &TransformationResult{
				Errors: []*domain.FieldError{domain.NewFieldError(
					"", domain.ErrCodeTransformation,
					fmt.Sprintf("transformation panicked: %v", r), "")},
			}
		}
	}()
	return t.Transform(item.Recognition, item.FileMetadata)
}
