package domain

// Severity grades a non-blocking warning for manual review.
type Severity string

const (
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

// ErrorCode identifies a blocking transformation error.
type ErrorCode string

const (
	ErrCodeRequiredFieldMissing ErrorCode = "REQUIRED_FIELD_MISSING"
	ErrCodeAmountInconsistent   ErrorCode = "AMOUNT_INCONSISTENT"
	ErrCodeDuplicateTaxNumber   ErrorCode = "DUPLICATE_TAX_NUMBER"
	ErrCodeInvalidFormat        ErrorCode = "INVALID_FORMAT"
	ErrCodeTransformation       ErrorCode = "TRANSFORMATION_ERROR"
)

// InvoiceType classifies a Chinese VAT invoice.
type InvoiceType string

const (
	InvoiceTypeGeneral    InvoiceType = "增值税普通发票"
	InvoiceTypeSpecial    InvoiceType = "增值税专用发票"
	InvoiceTypeElectronic InvoiceType = "电子发票"
)

// FileType represents the allowed file types for upload.
type FileType string

const (
	FileTypePDF FileType = "pdf"
	FileTypeJPG FileType = "jpg"
	FileTypePNG FileType = "png"
)

// AllowedFileTypes maps FileType to its MIME content type.
var AllowedFileTypes = map[FileType]string{
	FileTypePDF: "application/pdf",
	FileTypeJPG: "image/jpeg",
	FileTypePNG: "image/png",
}

// AllowedContentTypes is the set of MIME types accepted after magic-byte
// detection.
var AllowedContentTypes = map[string]FileType{
	"application/pdf": FileTypePDF,
	"image/jpeg":      FileTypeJPG,
	"image/png":       FileTypePNG,
}

// AllowedExtensions maps file extensions (without dot) to FileType.
var AllowedExtensions = map[string]FileType{
	"pdf":  FileTypePDF,
	"jpg":  FileTypeJPG,
	"jpeg": FileTypeJPG,
	"png":  FileTypePNG,
}
