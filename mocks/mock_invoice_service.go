package mocks

import (
	"context"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"piaoju/internal/domain"
	"piaoju/internal/pipeline"
	"piaoju/internal/port"
)

// MockInvoiceService is a mock implementation of service.InvoiceService.
type MockInvoiceService struct {
	mock.Mock
}

func (m *MockInvoiceService) Transform(ctx context.Context, rec *pipeline.RecognitionResult, meta domain.FileMetadata) (*pipeline.TransformationResult, error) {
	args := m.Called(ctx, rec, meta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*pipeline.TransformationResult), args.Error(1)
}

func (m *MockInvoiceService) TransformBatch(ctx context.Context, items []pipeline.BatchItem) ([]*pipeline.TransformationResult, pipeline.Stats, error) {
	args := m.Called(ctx, items)
	if args.Get(0) == nil {
		return nil, args.Get(1).(pipeline.Stats), args.Error(2)
	}
	return args.Get(0).([]*pipeline.TransformationResult), args.Get(1).(pipeline.Stats), args.Error(2)
}

func (m *MockInvoiceService) GetByID(ctx context.Context, id uuid.UUID) (*domain.InvoiceRecord, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.InvoiceRecord), args.Error(1)
}

func (m *MockInvoiceService) List(ctx context.Context, filter port.InvoiceFilter, offset, limit int) ([]domain.InvoiceRecord, int, error) {
	args := m.Called(ctx, filter, offset, limit)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.InvoiceRecord), args.Int(1), args.Error(2)
}

func (m *MockInvoiceService) Delete(ctx context.Context, id uuid.UUID) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}
