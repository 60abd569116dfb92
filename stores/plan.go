package stores

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/bizsuite/billing/models"
	"github.com/bizsuite/billing/utils"
)

type PlanStore struct {
	BaseStore
}

func CreatePlanStore(db *gorm.DB) *PlanStore {
	return &PlanStore{BaseStore: BaseStore{db: db}}
}

func (s *PlanStore) Create(ctx context.Context, plan *models.Plan) error {
	return s.GetDB(ctx).Create(plan).Error
}

func (s *PlanStore) GetByCode(ctx context.Context, code string) (*models.Plan, error) {
	var plan models.Plan
	if err := s.GetDB(ctx).First(&plan, "code = ?", code).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, utils.ErrPlanNotFound
		}
		return nil, err
	}
	return &plan, nil
}

func (s *PlanStore) ListActive(ctx context.Context) ([]*models.Plan, error) {
	var plans []*models.Plan
	if err := s.GetDB(ctx).Where("active = ?", true).Order("code ASC").Find(&plans).Error; err != nil {
		return nil, err
	}
	return plans, nil
}
