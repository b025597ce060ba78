// Package export renders persisted invoice records as CSV or XLSX files
// for download.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"piaoju/internal/domain"
)

// UTF-8 BOM bytes for Excel compatibility on Windows.
var BOM = []byte{0xEF, 0xBB, 0xBF}

// columns defines the export header row.
var columns = []string{
	"Invoice Number",
	"Invoice Code",
	"Invoice Type",
	"Invoice Date",
	"Consumption Date",
	"Seller Name",
	"Seller Tax Number",
	"Buyer Name",
	"Buyer Tax Number",
	"Amount Without Tax",
	"Tax Amount",
	"Total Amount",
	"Currency",
	"Remarks",
	"Confidence",
	"Quality Score",
	"File Name",
	"Created At",
}

// CSVWriter wraps csv.Writer for exporting invoice records.
type CSVWriter struct {
	csv *csv.Writer
}

// NewCSVWriter creates a CSVWriter that writes to w.
func NewCSVWriter(w io.Writer) *CSVWriter {
	return &CSVWriter{csv: csv.NewWriter(w)}
}

// WriteHeader writes the header row.
func (w *CSVWriter) WriteHeader() error {
	return w.csv.Write(columns)
}

// WriteRecords converts a batch of invoice records to CSV rows and writes them.
func (w *CSVWriter) WriteRecords(recs []domain.InvoiceRecord) error {
	for i := range recs {
		if err := w.csv.Write(recordToRow(&recs[i])); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes the underlying csv.Writer buffer.
func (w *CSVWriter) Flush() {
	w.csv.Flush()
}

// Error returns any error from the underlying csv.Writer.
func (w *CSVWriter) Error() error {
	return w.csv.Error()
}

// recordToRow converts a single record to a string slice matching columns.
func recordToRow(rec *domain.InvoiceRecord) []string {
	return []string{
		rec.InvoiceNumber,
		rec.InvoiceCode,
		string(rec.InvoiceType),
		rec.InvoiceDate,
		rec.ConsumptionDate,
		rec.SellerName,
		rec.SellerTaxNumber,
		rec.BuyerName,
		rec.BuyerTaxNumber,
		formatMoney(rec.AmountWithoutTax),
		formatMoney(rec.TaxAmount),
		formatMoney(rec.TotalAmount),
		rec.Currency,
		rec.Remarks,
		strconv.FormatFloat(rec.OverallConfidence, 'f', 2, 64),
		strconv.FormatFloat(rec.QualityScore, 'f', 1, 64),
		rec.FileName,
		rec.CreatedAt.Format(time.RFC3339),
	}
}

func formatMoney(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// nonAlphanumeric matches characters that are not alphanumeric, hyphen, or underscore.
var nonAlphanumeric = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// multiUnderscore matches consecutive underscores.
var multiUnderscore = regexp.MustCompile(`_{2,}`)

// SanitizeFilename cleans a name for use in Content-Disposition.
// Replaces non-alphanumeric chars (except - _) with _, collapses consecutive
// underscores, and truncates to 100 chars.
func SanitizeFilename(name string) string {
	s := nonAlphanumeric.ReplaceAllString(name, "_")
	s = multiUnderscore.ReplaceAllString(s, "_")
	s = strings.Trim(s, "_")
	if len(s) > 100 {
		s = s[:100]
	}
	return s
}

// BuildFilename returns a sanitized filename for the Content-Disposition
// header. Format: {sanitized_name}_{YYYY-MM-DD}.{ext}
func BuildFilename(name, ext string) string {
	return fmt.Sprintf("%s_%s.%s", SanitizeFilename(name), time.Now().Format("2006-01-02"), ext)
}
