package stores

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bizsuite/billing/models"
	"github.com/bizsuite/billing/utils"
)

type SubscriptionStore struct {
	BaseStore
}

func CreateSubscriptionStore(db *gorm.DB) *SubscriptionStore {
	return &SubscriptionStore{BaseStore: BaseStore{db: db}}
}

func (s *SubscriptionStore) GetByTenantID(ctx context.Context, tenantID string) (*models.TenantSubscription, error) {
	var sub models.TenantSubscription
	if err := s.GetDB(ctx).First(&sub, "tenant_id = ?", tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &sub, nil
}

func (s *SubscriptionStore) GetByExternalID(ctx context.Context, externalID string) (*models.TenantSubscription, error) {
	var sub models.TenantSubscription
	if err := s.GetDB(ctx).First(&sub, "external_subscription_id = ?", externalID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrSubscriptionNotFound
		}
		return nil, err
	}
	return &sub, nil
}

// Upsert keeps the one-subscription-per-tenant invariant at the storage
// layer via the unique index on tenant_id.
func (s *SubscriptionStore) Upsert(ctx context.Context, sub *models.TenantSubscription) error {
	return s.GetDB(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "tenant_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"plan_code", "status", "payment_failure_count", "last_payment_at",
			"suspended_at", "suspension_reason", "provider",
			"external_subscription_id", "updated_at",
		}),
	}).Create(sub).Error
}

func (s *SubscriptionStore) Update(ctx context.Context, sub *models.TenantSubscription) error {
	return s.GetDB(ctx).Save(sub).Error
}

func (s *SubscriptionStore) CountByStatus(ctx context.Context, status models.SubscriptionStatus) (int64, error) {
	var count int64
	err := s.GetDB(ctx).Model(&models.TenantSubscription{}).
		Where("status = ?", status).
		Count(&count).Error
	return count, err
}

func (s *SubscriptionStore) ListByStatus(ctx context.Context, status models.SubscriptionStatus, limit int) ([]*models.TenantSubscription, error) {
	var subs []*models.TenantSubscription
	query := s.GetDB(ctx).Where("status = ?", status).Order("updated_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&subs).Error; err != nil {
		return nil, err
	}
	return subs, nil
}
