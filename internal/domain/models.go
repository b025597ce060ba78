package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// StringList is a []string persisted as a JSONB array.
type StringList []string

// Value implements driver.Valuer.
func (s StringList) Value() (driver.Value, error) {
	if s == nil {
		s = StringList{}
	}
	return json.Marshal(s)
}

// Scan implements sql.Scanner.
func (s *StringList) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*s = nil
		return nil
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("StringList.Scan: unsupported source type %T", src)
	}
}

// InvoiceFields is the canonical, normalized field set recovered from one
// recognized document. Monetary fields are rounded to 2 decimals and dates
// are ISO "2006-01-02" strings once the pipeline has finalized the record.
type InvoiceFields struct {
	InvoiceNumber    string      `db:"invoice_number" json:"invoice_number"`
	InvoiceCode      string      `db:"invoice_code" json:"invoice_code,omitempty"`
	SellerName       string      `db:"seller_name" json:"seller_name"`
	SellerTaxNumber  string      `db:"seller_tax_number" json:"seller_tax_number,omitempty"`
	BuyerName        string      `db:"buyer_name" json:"buyer_name,omitempty"`
	BuyerTaxNumber   string      `db:"buyer_tax_number" json:"buyer_tax_number,omitempty"`
	TotalAmount      float64     `db:"total_amount" json:"total_amount"`
	AmountWithoutTax float64     `db:"amount_without_tax" json:"amount_without_tax"`
	TaxAmount        float64     `db:"tax_amount" json:"tax_amount"`
	Currency         string      `db:"currency" json:"currency"`
	InvoiceDate      string      `db:"invoice_date" json:"invoice_date"`
	ConsumptionDate  string      `db:"consumption_date" json:"consumption_date,omitempty"`
	InvoiceType      InvoiceType `db:"invoice_type" json:"invoice_type,omitempty"`
	Remarks          string      `db:"remarks" json:"remarks,omitempty"`
}

// FileMetadata describes the stored source file of a recognized document.
// It is supplied by the upload/storage collaborator and passed through
// verbatim into the persisted record.
type FileMetadata struct {
	UserID   uuid.UUID `db:"user_id" json:"user_id"`
	FilePath string    `db:"file_path" json:"file_path"`
	FileName string    `db:"file_name" json:"file_name"`
	FileSize int64     `db:"file_size" json:"file_size"`
	FileHash string    `db:"file_hash" json:"file_hash"`
	FileURL  string    `db:"file_url" json:"file_url"`
}

// InvoiceRecord is the persisted shape of one transformed invoice: the
// canonical fields plus file metadata and OCR provenance.
type InvoiceRecord struct {
	ID uuid.UUID `db:"id" json:"id"`

	InvoiceFields
	FileMetadata

	// OCR provenance, retained for audit and manual review.
	OverallConfidence float64         `db:"overall_confidence" json:"overall_confidence"`
	FieldConfidence   json.RawMessage `db:"field_confidence" json:"field_confidence,omitempty"`
	RawPayload        json.RawMessage `db:"raw_payload" json:"raw_payload,omitempty"`
	ProcessingSteps   StringList      `db:"processing_steps" json:"processing_steps,omitempty"`
	QualityScore      float64         `db:"quality_score" json:"quality_score"`
	Diagnostics       json.RawMessage `db:"diagnostics" json:"diagnostics,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
