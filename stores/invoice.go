package stores

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bizsuite/billing/models"
	"github.com/bizsuite/billing/utils"
)

type InvoiceStore struct {
	BaseStore
}

func CreateInvoiceStore(db *gorm.DB) *InvoiceStore {
	return &InvoiceStore{BaseStore: BaseStore{db: db}}
}

func (s *InvoiceStore) Create(ctx context.Context, invoice *models.Invoice) error {
	return s.GetDB(ctx).Create(invoice).Error
}

func (s *InvoiceStore) GetByID(ctx context.Context, id string) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := s.GetDB(ctx).First(&invoice, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrInvoiceNotFound
		}
		return nil, err
	}
	return &invoice, nil
}

// GetByIDForUpdate locks the invoice row for the duration of the enclosing
// transaction. Callers must be inside WithTransaction.
func (s *InvoiceStore) GetByIDForUpdate(ctx context.Context, id string) (*models.Invoice, error) {
	var invoice models.Invoice
	err := s.GetDB(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&invoice, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrInvoiceNotFound
		}
		return nil, err
	}
	return &invoice, nil
}

func (s *InvoiceStore) Update(ctx context.Context, invoice *models.Invoice) error {
	return s.GetDB(ctx).Save(invoice).Error
}

func (s *InvoiceStore) GetOpenByTenantAndPlan(ctx context.Context, tenantID, planCode string) (*models.Invoice, error) {
	var invoice models.Invoice
	err := s.GetDB(ctx).
		Where("tenant_id = ? AND plan_code = ? AND status IN ?",
			tenantID, planCode,
			[]string{string(models.InvoiceStatusPending), string(models.InvoiceStatusOverdue)}).
		Order("created_at DESC").
		First(&invoice).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrInvoiceNotFound
		}
		return nil, err
	}
	return &invoice, nil
}

// ListPendingPastDue returns pending invoices whose due date has passed, for
// the overdue sweep.
func (s *InvoiceStore) ListPendingPastDue(ctx context.Context, asOf time.Time, limit int) ([]*models.Invoice, error) {
	var invoices []*models.Invoice
	query := s.GetDB(ctx).
		Where("status = ? AND due_date < ?", models.InvoiceStatusPending, asOf).
		Order("due_date ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

// MarkOverdue flips a pending invoice to overdue. The status guard in the
// WHERE clause makes the transition race-safe: a payment that lands between
// the sweep's read and this write leaves RowsAffected at zero.
func (s *InvoiceStore) MarkOverdue(ctx context.Context, id string) (bool, error) {
	result := s.GetDB(ctx).Model(&models.Invoice{}).
		Where("id = ? AND status = ?", id, models.InvoiceStatusPending).
		Updates(map[string]interface{}{
			"status":     models.InvoiceStatusOverdue,
			"updated_at": time.Now(),
		})
	return result.RowsAffected == 1, result.Error
}

func (s *InvoiceStore) CountByStatus(ctx context.Context, status models.InvoiceStatus) (int64, error) {
	var count int64
	err := s.GetDB(ctx).Model(&models.Invoice{}).
		Where("status = ?", status).
		Count(&count).Error
	return count, err
}
