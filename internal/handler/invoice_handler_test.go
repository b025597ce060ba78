package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"piaoju/internal/domain"
	"piaoju/internal/handler"
	"piaoju/internal/pipeline"
	"piaoju/internal/port"
	"piaoju/mocks"
)

func setupRouter(svc *mocks.MockInvoiceService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := handler.NewInvoiceHandler(svc)

	r := gin.New()
	r.POST("/api/v1/transform", h.Transform)
	r.POST("/api/v1/transform/batch", h.TransformBatch)
	r.GET("/api/v1/invoices", h.List)
	r.GET("/api/v1/invoices/export", h.Export)
	r.GET("/api/v1/invoices/:id", h.GetByID)
	r.DELETE("/api/v1/invoices/:id", h.Delete)
	return r
}

func TestTransform_OK(t *testing.T) {
	svc := new(mocks.MockInvoiceService)
	r := setupRouter(svc)

	svc.On("Transform", mock.Anything, mock.AnythingOfType("*pipeline.RecognitionResult"), mock.AnythingOfType("domain.FileMetadata")).
		Return(&pipeline.TransformationResult{Success: true}, nil)

	body := `{"recognition": {"success": true, "fields": {"invoice_number": "12345678"}, "confidence": {"overall": 0.9}}}`
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/transform", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp handler.APIResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
}

func TestTransform_MissingRecognition(t *testing.T) {
	svc := new(mocks.MockInvoiceService)
	r := setupRouter(svc)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/transform", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	svc.AssertNotCalled(t, "Transform", mock.Anything, mock.Anything, mock.Anything)
}

func TestTransformBatch_OK(t *testing.T) {
	svc := new(mocks.MockInvoiceService)
	r := setupRouter(svc)

	svc.On("TransformBatch", mock.Anything, mock.AnythingOfType("[]pipeline.BatchItem")).
		Return([]*pipeline.TransformationResult{{Success: true}}, pipeline.Stats{Processed: 1, Succeeded: 1}, nil)

	body := `{"items": [{"recognition": {"success": true, "fields": {"a": 1}, "confidence": {"overall": 0.9}}}]}`
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/transform/batch", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetByID(t *testing.T) {
	svc := new(mocks.MockInvoiceService)
	r := setupRouter(svc)

	id := uuid.New()
	svc.On("GetByID", mock.Anything, id).
		Return(&domain.InvoiceRecord{ID: id}, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/invoices/"+id.String(), nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestGetByID_NotFound(t *testing.T) {
	svc := new(mocks.MockInvoiceService)
	r := setupRouter(svc)

	id := uuid.New()
	svc.On("GetByID", mock.Anything, id).Return(nil, domain.ErrNotFound)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/invoices/"+id.String(), nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetByID_InvalidID(t *testing.T) {
	svc := new(mocks.MockInvoiceService)
	r := setupRouter(svc)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/invoices/not-a-uuid", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestList_PassesFilterAndPagination(t *testing.T) {
	svc := new(mocks.MockInvoiceService)
	r := setupRouter(svc)

	expected := port.InvoiceFilter{SellerName: "北京", InvoiceType: "增值税普通发票", DateFrom: "2024-01-01"}
	svc.On("List", mock.Anything, expected, 10, 20).
		Return([]domain.InvoiceRecord{}, 0, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet,
		"/api/v1/invoices?seller=北京&type=增值税普通发票&from=2024-01-01&offset=10&limit=20", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestExport_CSV(t *testing.T) {
	svc := new(mocks.MockInvoiceService)
	r := setupRouter(svc)

	svc.On("List", mock.Anything, mock.Anything, 0, mock.Anything).
		Return([]domain.InvoiceRecord{
			{InvoiceFields: domain.InvoiceFields{InvoiceNumber: "12345678", SellerName: "北京公司", TotalAmount: 113}},
		}, 1, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/invoices/export?format=csv", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/csv")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, w.Body.String(), "12345678")
}

func TestExport_XLSX(t *testing.T) {
	svc := new(mocks.MockInvoiceService)
	r := setupRouter(svc)

	svc.On("List", mock.Anything, mock.Anything, 0, mock.Anything).
		Return([]domain.InvoiceRecord{}, 0, nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/invoices/export?format=xlsx", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "spreadsheetml")
	assert.NotEmpty(t, w.Body.Bytes())
}

func TestExport_InvalidFormat(t *testing.T) {
	svc := new(mocks.MockInvoiceService)
	r := setupRouter(svc)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/api/v1/invoices/export?format=pdf", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDelete(t *testing.T) {
	svc := new(mocks.MockInvoiceService)
	r := setupRouter(svc)

	id := uuid.New()
	svc.On("Delete", mock.Anything, id).Return(nil)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodDelete, "/api/v1/invoices/"+id.String(), nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
}
