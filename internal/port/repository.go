package port

import (
	"context"

	"github.com/google/uuid"

	"piaoju/internal/domain"
)

// InvoiceFilter narrows List results.
type InvoiceFilter struct {
	SellerName  string
	InvoiceType string
	DateFrom    string
	DateTo      string
	MinQuality  float64
}

// InvoiceRepository persists transformed invoice records.
type InvoiceRepository interface {
	Create(ctx context.Context, rec *domain.InvoiceRecord) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.InvoiceRecord, error)
	GetByInvoiceNumber(ctx context.Context, number string) (*domain.InvoiceRecord, error)
	List(ctx context.Context, filter InvoiceFilter, offset, limit int) ([]domain.InvoiceRecord, int, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
