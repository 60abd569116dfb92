package stores

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/bizsuite/billing/models"
)

type CountryStore struct {
	BaseStore
}

func CreateCountryStore(db *gorm.DB) *CountryStore {
	return &CountryStore{BaseStore: BaseStore{db: db}}
}

func (s *CountryStore) LoadAll(ctx context.Context) ([]models.CountryGatewayMapping, error) {
	var mappings []models.CountryGatewayMapping
	if err := s.GetDB(ctx).Order("country ASC").Find(&mappings).Error; err != nil {
		return nil, err
	}
	return mappings, nil
}

func (s *CountryStore) Upsert(ctx context.Context, mapping *models.CountryGatewayMapping) error {
	return s.GetDB(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "country"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"primary_provider", "fallback_provider", "currency", "tax_name", "tax_rate", "updated_at",
		}),
	}).Create(mapping).Error
}
