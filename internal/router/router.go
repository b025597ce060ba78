package router

import (
	"github.com/gin-gonic/gin"

	"piaoju/internal/handler"
	"piaoju/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	invoiceH *handler.InvoiceHandler,
	uploadH *handler.UploadHandler,
	healthH *handler.HealthHandler,
	corsOrigins []string,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(corsOrigins))

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	v1 := r.Group("/api/v1")

	// Transformation routes
	v1.POST("/transform", invoiceH.Transform)
	v1.POST("/transform/batch", invoiceH.TransformBatch)

	// Invoice routes
	invoices := v1.Group("/invoices")
	invoices.GET("", invoiceH.List)
	invoices.GET("/export", invoiceH.Export)
	invoices.GET("/:id", invoiceH.GetByID)
	invoices.DELETE("/:id", invoiceH.Delete)

	// File routes
	files := v1.Group("/files")
	files.POST("/upload", uploadH.Upload)
	files.GET("/url", uploadH.DownloadURL)

	return r
}
