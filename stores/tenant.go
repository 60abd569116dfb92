package stores

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/bizsuite/billing/models"
	"github.com/bizsuite/billing/utils"
)

type TenantStore struct {
	BaseStore
}

func CreateTenantStore(db *gorm.DB) *TenantStore {
	return &TenantStore{BaseStore: BaseStore{db: db}}
}

func (s *TenantStore) Create(ctx context.Context, tenant *models.Tenant) error {
	return s.GetDB(ctx).Create(tenant).Error
}

func (s *TenantStore) GetByID(ctx context.Context, id string) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := s.GetDB(ctx).First(&tenant, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrTenantNotFound
		}
		return nil, err
	}
	return &tenant, nil
}

func (s *TenantStore) Update(ctx context.Context, tenant *models.Tenant) error {
	return s.GetDB(ctx).Save(tenant).Error
}

func (s *TenantStore) Suspend(ctx context.Context, id, reason string) error {
	return s.GetDB(ctx).Model(&models.Tenant{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":            models.TenantStatusSuspended,
			"suspension_reason": reason,
			"updated_at":        time.Now(),
		}).Error
}

func (s *TenantStore) Activate(ctx context.Context, id string) error {
	return s.GetDB(ctx).Model(&models.Tenant{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":            models.TenantStatusActive,
			"suspension_reason": "",
			"updated_at":        time.Now(),
		}).Error
}
