package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"piaoju/internal/config"
	"piaoju/internal/domain"
	"piaoju/internal/pipeline"
	"piaoju/internal/port"
)

// InvoiceService defines the transformation and retrieval contract.
type InvoiceService interface {
	Transform(ctx context.Context, rec *pipeline.RecognitionResult, meta domain.FileMetadata) (*pipeline.TransformationResult, error)
	TransformBatch(ctx context.Context, items []pipeline.BatchItem) ([]*pipeline.TransformationResult, pipeline.Stats, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.InvoiceRecord, error)
	List(ctx context.Context, filter port.InvoiceFilter, offset, limit int) ([]domain.InvoiceRecord, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type invoiceService struct {
	transformer *pipeline.Transformer
	repo        port.InvoiceRepository
	cfg         *config.BatchConfig
}

// NewInvoiceService creates a new InvoiceService implementation.
func NewInvoiceService(
	transformer *pipeline.Transformer,
	repo port.InvoiceRepository,
	cfg *config.BatchConfig,
) InvoiceService {
	return &invoiceService{
		transformer: transformer,
		repo:        repo,
		cfg:         cfg,
	}
}

// Transform runs the pipeline on one recognition result and persists the
// record when every recorded error is recoverable. The diagnostic bundle is
// returned to the caller either way.
func (s *invoiceService) Transform(ctx context.Context, rec *pipeline.RecognitionResult, meta domain.FileMetadata) (*pipeline.TransformationResult, error) {
	result := s.transformer.Transform(rec, meta)

	if result.Data == nil || !result.Recoverable() {
		log.Printf("invoiceService.Transform: record not persisted (%d errors)", len(result.Errors))
		return result, nil
	}

	if err := s.repo.Create(ctx, result.Data); err != nil {
		if errors.Is(err, domain.ErrInvoiceAlreadyExists) {
			log.Printf("invoiceService.Transform: duplicate invoice number %s", result.Data.InvoiceNumber)
			result.Warnings = append(result.Warnings, domain.Warning{
				Field:         domain.FieldInvoiceNumber,
				Message:       "invoice number already persisted, record not stored again",
				OriginalValue: result.Data.InvoiceNumber,
				Severity:      domain.SeverityHigh,
			})
			return result, nil
		}
		return result, fmt.Errorf("persisting invoice record: %w", err)
	}

	return result, nil
}

// TransformBatch runs the pipeline over a batch of recognition results with
// bounded concurrency. Results are positionally aligned with the input and a
// failure of one item never affects the others.
func (s *invoiceService) TransformBatch(ctx context.Context, items []pipeline.BatchItem) ([]*pipeline.TransformationResult, pipeline.Stats, error) {
	if len(items) == 0 {
		return nil, pipeline.Stats{}, nil
	}
	if len(items) > s.cfg.MaxItems {
		return nil, pipeline.Stats{}, fmt.Errorf("batch of %d exceeds the maximum of %d items", len(items), s.cfg.MaxItems)
	}

	log.Printf("invoiceService.TransformBatch: processing %d items (concurrency=%d)",
		len(items), s.cfg.Concurrency)

	results := make([]*pipeline.TransformationResult, len(items))
	sem := make(chan struct{}, s.cfg.Concurrency)
	var wg sync.WaitGroup

	for i := range items {
		sem <- struct{}{} // acquire
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			defer func() { <-sem }() // release

			res, err := s.Transform(ctx, items[i].Recognition, items[i].FileMetadata)
			if err != nil {
				log.Printf("invoiceService.TransformBatch: item %d: %v", i, err)
			}
			results[i] = res
		}(i)
	}
	wg.Wait()

	return results, pipeline.Summarize(results), nil
}

func (s *invoiceService) GetByID(ctx context.Context, id uuid.UUID) (*domain.InvoiceRecord, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *invoiceService) List(ctx context.Context, filter port.InvoiceFilter, offset, limit int) ([]domain.InvoiceRecord, int, error) {
	return s.repo.List(ctx, filter, offset, limit)
}

func (s *invoiceService) Delete(ctx context.Context, id uuid.UUID) error {
	return s.repo.Delete(ctx, id)
}
