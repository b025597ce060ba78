package handler

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"piaoju/internal/domain"
	"piaoju/internal/export"
	"piaoju/internal/pipeline"
	"piaoju/internal/port"
	"piaoju/internal/service"
)

// InvoiceHandler handles transformation and invoice retrieval endpoints.
type InvoiceHandler struct {
	invoiceService service.InvoiceService
}

// NewInvoiceHandler creates a new InvoiceHandler.
func NewInvoiceHandler(invoiceService service.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{invoiceService: invoiceService}
}

// TransformRequest is the body of POST /api/v1/transform.
type TransformRequest struct {
	Recognition  *pipeline.RecognitionResult `json:"recognition" binding:"required"`
	FileMetadata domain.FileMetadata         `json:"file_metadata"`
}

// Transform handles POST /api/v1/transform.
func (h *InvoiceHandler) Transform(c *gin.Context) {
	var req TransformRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "recognition is required")
		return
	}

	result, err := h.invoiceService.Transform(c.Request.Context(), req.Recognition, req.FileMetadata)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, result)
}

// TransformBatchRequest is the body of POST /api/v1/transform/batch.
type TransformBatchRequest struct {
	Items []pipeline.BatchItem `json:"items" binding:"required"`
}

// BatchResponse pairs the per-item results with aggregate statistics.
type BatchResponse struct {
	Results []*pipeline.TransformationResult `json:"results"`
	Stats   pipeline.Stats                   `json:"stats"`
}

// TransformBatch handles POST /api/v1/transform/batch.
func (h *InvoiceHandler) TransformBatch(c *gin.Context) {
	var req TransformBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_REQUEST", "items is required")
		return
	}

	results, stats, err := h.invoiceService.TransformBatch(c.Request.Context(), req.Items)
	if err != nil {
		RespondError(c, http.StatusBadRequest, "BATCH_TOO_LARGE", err.Error())
		return
	}

	RespondOK(c, BatchResponse{Results: results, Stats: stats})
}

// GetByID handles GET /api/v1/invoices/:id.
func (h *InvoiceHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid invoice ID")
		return
	}

	rec, err := h.invoiceService.GetByID(c.Request.Context(), id)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, rec)
}

// List handles GET /api/v1/invoices.
func (h *InvoiceHandler) List(c *gin.Context) {
	offset, limit := pagination(c)
	filter := listFilter(c)

	recs, total, err := h.invoiceService.List(c.Request.Context(), filter, offset, limit)
	if err != nil {
		HandleError(c, err)
		return
	}

	RespondPaginated(c, recs, PagMeta{Total: total, Offset: offset, Limit: limit})
}

// Delete handles DELETE /api/v1/invoices/:id.
func (h *InvoiceHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "INVALID_ID", "invalid invoice ID")
		return
	}

	if err := h.invoiceService.Delete(c.Request.Context(), id); err != nil {
		HandleError(c, err)
		return
	}

	RespondOK(c, gin.H{"deleted": id})
}

// exportLimit caps the number of records in one export.
const exportLimit = 10000

// Export handles GET /api/v1/invoices/export?format=csv|xlsx.
func (h *InvoiceHandler) Export(c *gin.Context) {
	format := c.DefaultQuery("format", "csv")
	if format != "csv" && format != "xlsx" {
		RespondError(c, http.StatusBadRequest, "INVALID_FORMAT", "format must be 'csv' or 'xlsx'")
		return
	}

	recs, _, err := h.invoiceService.List(c.Request.Context(), listFilter(c), 0, exportLimit)
	if err != nil {
		HandleError(c, err)
		return
	}

	filename := export.BuildFilename("invoices", format)
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)

	if format == "xlsx" {
		c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		var buf bytes.Buffer
		if err := export.WriteXLSX(&buf, recs); err != nil {
			HandleError(c, err)
			return
		}
		c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", buf.Bytes())
		return
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Status(http.StatusOK)
	_, _ = c.Writer.Write(export.BOM)

	w := export.NewCSVWriter(c.Writer)
	if err := w.WriteHeader(); err != nil {
		return
	}
	if err := w.WriteRecords(recs); err != nil {
		return
	}
	w.Flush()
}

// pagination parses offset/limit query parameters with sane bounds.
func pagination(c *gin.Context) (offset, limit int) {
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return offset, limit
}

func listFilter(c *gin.Context) port.InvoiceFilter {
	minQuality, _ := strconv.ParseFloat(c.Query("min_quality"), 64)
	return port.InvoiceFilter{
		SellerName:  c.Query("seller"),
		InvoiceType: c.Query("type"),
		DateFrom:    c.Query("from"),
		DateTo:      c.Query("to"),
		MinQuality:  minQuality,
	}
}
