// Package pipeline turns one raw recognition result into a validated,
// internally consistent invoice record plus calibrated diagnostics. It
// composes the extract, rules and normalize packages behind a single
// Transform call; every invocation is stateless with respect to any other.
package pipeline

import (
	"encoding/json"

	"piaoju/internal/domain"
)

// ConfidenceInfo carries the vendor-reported recognition confidence.
type ConfidenceInfo struct {
	Overall float64            `json:"overall"`
	Fields  map[string]float64 `json:"fields,omitempty"`
}

// RecognitionResult is the input contract with the document-recognition
// collaborator. Fields is the untyped vendor field map; RawPayload is the
// opaque original response retained for audit.
type RecognitionResult struct {
	Success          bool            `json:"success"`
	Fields           json.RawMessage `json:"fields"`
	Confidence       ConfidenceInfo  `json:"confidence"`
	RawPayload       json.RawMessage `json:"raw_payload,omitempty"`
	ProcessingSteps  []string        `json:"processing_steps,omitempty"`
	ValidationErrors []string        `json:"validation_errors,omitempty"`
	Metadata         map[string]any  `json:"metadata,omitempty"`
}

// ProcessingInfo summarizes one transformation run.
type ProcessingInfo struct {
	FieldsExtracted int     `json:"fields_extracted"`
	Confidence      float64 `json:"confidence"`
	ProcessingTime  float64 `json:"processing_time"`
}

// TransformationResult is the self-describing output of one transformation:
// a success flag, the best-effort record when extraction succeeded, and the
// full diagnostic bundle for manual review.
type TransformationResult struct {
	Success        bool                  `json:"success"`
	Data           *domain.InvoiceRecord `json:"data,omitempty"`
	Warnings       []domain.Warning      `json:"warnings"`
	Errors         []*domain.FieldError  `json:"errors"`
	ProcessingInfo ProcessingInfo        `json:"processing_info"`
}

// Recoverable reports whether every recorded error permits persisting the
// best-effort record.
func (r *TransformationResult) Recoverable() bool {
	for _, e := range r.Errors {
		if !e.Recoverable {
			return false
		}
	}
	return true
}

// BatchItem pairs one recognition result with its file metadata.
type BatchItem struct {
	Recognition  *RecognitionResult  `json:"recognition"`
	FileMetadata domain.FileMetadata `json:"file_metadata"`
}

// Stats aggregates a batch of transformation results.
type Stats struct {
	Processed         int     `json:"processed"`
	Succeeded         int     `json:"succeeded"`
	Failed            int     `json:"failed"`
	AvgConfidence     float64 `json:"avg_confidence"`
	AvgProcessingTime float64 `json:"avg_processing_time"`
	TotalWarnings     int     `json:"total_warnings"`
	TotalErrors       int     `json:"total_errors"`
}

// Summarize computes aggregate statistics over a batch of results.
func Summarize(results []*TransformationResult) Stats {
	s := Stats{Processed: len(results)}
	for _, r := range results {
		if r.Success {
			s.Succeeded++
		} else {
			s.Failed++
		}
		s.AvgConfidence += r.ProcessingInfo.Confidence
		s.AvgProcessingTime += r.ProcessingInfo.ProcessingTime
		s.TotalWarnings += len(r.Warnings)
		s.TotalErrors += len(r.Errors)
	}
	if s.Processed > 0 {
		s.AvgConfidence /= float64(s.Processed)
		s.AvgProcessingTime /= float64(s.Processed)
	}
	return s
}
