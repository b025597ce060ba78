package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"piaoju/internal/domain"
	"piaoju/internal/port"
)

type invoiceRepo struct {
	db *sqlx.DB
}

// NewInvoiceRepo creates a new PostgreSQL-backed InvoiceRepository.
func NewInvoiceRepo(db *sqlx.DB) port.InvoiceRepository {
	return &invoiceRepo{db: db}
}

func (r *invoiceRepo) Create(ctx context.Context, rec *domain.InvoiceRecord) error {
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	query := `INSERT INTO invoices (
		id, invoice_number, invoice_code, seller_name, seller_tax_number,
		buyer_name, buyer_tax_number, total_amount, amount_without_tax, tax_amount,
		currency, invoice_date, consumption_date, invoice_type, remarks,
		user_id, file_path, file_name, file_size, file_hash, file_url,
		overall_confidence, field_confidence, raw_payload, processing_steps, quality_score, diagnostics,
		created_at, updated_at
	) VALUES (
		:id, :invoice_number, :invoice_code, :seller_name, :seller_tax_number,
		:buyer_name, :buyer_tax_number, :total_amount, :amount_without_tax, :tax_amount,
		:currency, :invoice_date, :consumption_date, :invoice_type, :remarks,
		:user_id, :file_path, :file_name, :file_size, :file_hash, :file_url,
		:overall_confidence, :field_confidence, :raw_payload, :processing_steps, :quality_score, :diagnostics,
		:created_at, :updated_at
	)`

	_, err := r.db.NamedExecContext(ctx, query, rec)
	if err != nil {
		if strings.Contains(err.Error(), "duplicate key") && strings.Contains(err.Error(), "invoice_number") {
			return domain.ErrInvoiceAlreadyExists
		}
		return fmt.Errorf("invoiceRepo.Create: %w", err)
	}
	return nil
}

func (r *invoiceRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.InvoiceRecord, error) {
	var rec domain.InvoiceRecord
	err := r.db.GetContext(ctx, &rec, "SELECT * FROM invoices WHERE id = $1", id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("invoiceRepo.GetByID: %w", err)
	}
	return &rec, nil
}

func (r *invoiceRepo) GetByInvoiceNumber(ctx context.Context, number string) (*domain.InvoiceRecord, error) {
	var rec domain.InvoiceRecord
	err := r.db.GetContext(ctx, &rec,
		"SELECT * FROM invoices WHERE invoice_number = $1 ORDER BY created_at DESC LIMIT 1", number)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("invoiceRepo.GetByInvoiceNumber: %w", err)
	}
	return &rec, nil
}

func (r *invoiceRepo) List(ctx context.Context, filter port.InvoiceFilter, offset, limit int) ([]domain.InvoiceRecord, int, error) {
	where, args := buildFilter(filter)

	var total int
	err := r.db.GetContext(ctx, &total,
		r.db.Rebind("SELECT COUNT(*) FROM invoices"+where), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("invoiceRepo.List count: %w", err)
	}

	var recs []domain.InvoiceRecord
	query := r.db.Rebind(fmt.Sprintf(
		"SELECT * FROM invoices%s ORDER BY created_at DESC LIMIT %d OFFSET %d",
		where, limit, offset))
	err = r.db.SelectContext(ctx, &recs, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("invoiceRepo.List: %w", err)
	}
	return recs, total, nil
}

func (r *invoiceRepo) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM invoices WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("invoiceRepo.Delete: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func buildFilter(filter port.InvoiceFilter) (string, []any) {
	var clauses []string
	var args []any

	if filter.SellerName != "" {
		clauses = append(clauses, "seller_name ILIKE ?")
		args = append(args, "%"+filter.SellerName+"%")
	}
	if filter.InvoiceType != "" {
		clauses = append(clauses, "invoice_type = ?")
		args = append(args, filter.InvoiceType)
	}
	if filter.DateFrom != "" {
		clauses = append(clauses, "invoice_date >= ?")
		args = append(args, filter.DateFrom)
	}
	if filter.DateTo != "" {
		clauses = append(clauses, "invoice_date <= ?")
		args = append(args, filter.DateTo)
	}
	if filter.MinQuality > 0 {
		clauses = append(clauses, "quality_score >= ?")
		args = append(args, filter.MinQuality)
	}

	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
