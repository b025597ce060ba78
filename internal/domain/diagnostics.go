package domain

import "fmt"

// Warning is a non-blocking diagnostic recorded for manual review. When the
// pipeline auto-corrected a value, OriginalValue and CorrectedValue carry the
// before/after forms.
type Warning struct {
	Field          string   `json:"field"`
	Message        string   `json:"message"`
	OriginalValue  string   `json:"original_value,omitempty"`
	CorrectedValue string   `json:"corrected_value,omitempty"`
	Severity       Severity `json:"severity"`
}

// FieldError is a blocking diagnostic. Recoverable errors still allow the
// pipeline to return a best-effort record; non-recoverable ones do not.
type FieldError struct {
	Field       string    `json:"field"`
	Message     string    `json:"message"`
	Code        ErrorCode `json:"code"`
	Value       string    `json:"value,omitempty"`
	Recoverable bool      `json:"recoverable"`
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s: %s (%s)", e.Field, e.Message, e.Code)
}

// NewFieldError creates a non-recoverable FieldError.
func NewFieldError(field string, code ErrorCode, message, value string) *FieldError {
	return &FieldError{Field: field, Message: message, Code: code, Value: value}
}

// NewRecoverableFieldError creates a FieldError that does not suppress the
// best-effort record.
func NewRecoverableFieldError(field string, code ErrorCode, message, value string) *FieldError {
	return &FieldError{Field: field, Message: message, Code: code, Value: value, Recoverable: true}
}
