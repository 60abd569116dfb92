package stores

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/bizsuite/billing/models"
)

type PaymentStore struct {
	BaseStore
}

func CreatePaymentStore(db *gorm.DB) *PaymentStore {
	return &PaymentStore{BaseStore: BaseStore{db: db}}
}

func (s *PaymentStore) CreateIntent(ctx context.Context, intent *models.PaymentIntent) error {
	return s.GetDB(ctx).Create(intent).Error
}

func (s *PaymentStore) GetIntentByID(ctx context.Context, id string) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	if err := s.GetDB(ctx).First(&intent, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &intent, nil
}

func (s *PaymentStore) GetIntentByExternalID(ctx context.Context, provider, externalID string) (*models.PaymentIntent, error) {
	var intent models.PaymentIntent
	err := s.GetDB(ctx).
		Where("provider = ? AND external_id = ?", provider, externalID).
		Order("created_at DESC").
		First(&intent).Error
	if err != nil {
		return nil, err
	}
	return &intent, nil
}

// AppendTransaction writes one immutable row to the financial history.
func (s *PaymentStore) AppendTransaction(ctx context.Context, txn *models.TransactionLog) error {
	return s.GetDB(ctx).Create(txn).Error
}

func (s *PaymentStore) CreateAttempt(ctx context.Context, attempt *models.PaymentAttempt) error {
	return s.GetDB(ctx).Create(attempt).Error
}

func (s *PaymentStore) NextAttemptNumber(ctx context.Context, invoiceID string) (int, error) {
	var max int
	err := s.GetDB(ctx).Model(&models.PaymentAttempt{}).
		Where("invoice_id = ?", invoiceID).
		Select("COALESCE(MAX(attempt_number), 0)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	return max + 1, nil
}

func (s *PaymentStore) ListAttempts(ctx context.Context, invoiceID string) ([]*models.PaymentAttempt, error) {
	var attempts []*models.PaymentAttempt
	err := s.GetDB(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("attempt_number ASC").
		Find(&attempts).Error
	if err != nil {
		return nil, err
	}
	return attempts, nil
}

// RevenueTotal sums settled charges minus settled refunds over a window.
// Zero times mean an unbounded side.
func (s *PaymentStore) RevenueTotal(ctx context.Context, from, to time.Time) (int64, error) {
	query := s.GetDB(ctx).Model(&models.TransactionLog{}).
		Where("status = ?", models.PaymentStatusSucceeded)
	if !from.IsZero() {
		query = query.Where("created_at >= ?", from)
	}
	if !to.IsZero() {
		query = query.Where("created_at < ?", to)
	}

	var total int64
	err := query.
		Select("COALESCE(SUM(CASE WHEN type = 'refund' THEN -amount_cents ELSE amount_cents END), 0)").
		Scan(&total).Error
	return total, err
}

var revenueDimensions = map[string]string{
	"country":  "country",
	"provider": "provider",
	"vertical": "vertical",
}

// RevenueBreakdown groups settled revenue by one of the denormalized
// dimensions on TransactionLog. The dimension is whitelisted, never
// interpolated from caller input.
func (s *PaymentStore) RevenueBreakdown(ctx context.Context, dimension string, from time.Time) ([]models.RevenueBucket, error) {
	column, ok := revenueDimensions[dimension]
	if !ok {
		return nil, fmt.Errorf("unknown revenue dimension: %s", dimension)
	}

	query := s.GetDB(ctx).Model(&models.TransactionLog{}).
		Where("status = ?", models.PaymentStatusSucceeded)
	if !from.IsZero() {
		query = query.Where("created_at >= ?", from)
	}

	var buckets []models.RevenueBucket
	err := query.
		Select(column + " AS key, COALESCE(SUM(CASE WHEN type = 'refund' THEN -amount_cents ELSE amount_cents END), 0) AS amount_cents, COUNT(*) AS count").
		Group(column).
		Order("amount_cents DESC").
		Scan(&buckets).Error
	if err != nil {
		return nil, err
	}
	return buckets, nil
}

func (s *PaymentStore) ListTransactionsByInvoice(ctx context.Context, invoiceID string) ([]*models.TransactionLog, error) {
	var txns []*models.TransactionLog
	err := s.GetDB(ctx).
		Where("invoice_id = ?", invoiceID).
		Order("created_at ASC").
		Find(&txns).Error
	if err != nil {
		return nil, err
	}
	return txns, nil
}
