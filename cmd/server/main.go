package main

import (
	"fmt"
	"log"

	"piaoju/internal/config"
	"piaoju/internal/handler"
	"piaoju/internal/pipeline"
	"piaoju/internal/repository/postgres"
	"piaoju/internal/router"
	"piaoju/internal/service"
	s3storage "piaoju/internal/storage/s3"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	db, err := postgres.NewDB(&cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Initialize repositories
	invoiceRepo := postgres.NewInvoiceRepo(db)

	// Initialize storage
	s3Client, err := s3storage.NewS3Client(&cfg.S3)
	if err != nil {
		return fmt.Errorf("failed to initialize S3 client: %w", err)
	}

	// Build the transformation pipeline from configuration
	pipeCfg, err := cfg.Pipeline.Build()
	if err != nil {
		return fmt.Errorf("failed to build pipeline config: %w", err)
	}
	transformer, err := pipeline.New(pipeCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize pipeline: %w", err)
	}

	// Initialize services
	invoiceSvc := service.NewInvoiceService(transformer, invoiceRepo, &cfg.Batch)
	uploadSvc := service.NewUploadService(s3Client, &cfg.S3)

	// Initialize handlers
	invoiceH := handler.NewInvoiceHandler(invoiceSvc)
	uploadH := handler.NewUploadHandler(uploadSvc)
	healthH := handler.NewHealthHandler(db)

	// Setup router
	r := router.Setup(invoiceH, uploadH, healthH, cfg.CORS.AllowedOrigins)

	log.Printf("Server starting on %s", cfg.Server.Port)
	if err := r.Run(cfg.Server.Port); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	return nil
}
