package models

import (
	"time"
)

type Plan struct {
	ID              string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Code            string    `json:"code" gorm:"uniqueIndex;not null"`
	Name            string    `json:"name" gorm:"not null"`
	Interval        string    `json:"interval" gorm:"not null;default:'month'"`
	BasePriceCents  int64     `json:"base_price_cents" gorm:"not null"`
	BaseCurrency    string    `json:"base_currency" gorm:"not null"`
	CountryPrices   JSON      `json:"country_prices" gorm:"type:jsonb"`
	ProviderPlanIDs JSON      `json:"provider_plan_ids" gorm:"type:jsonb"`
	TrialDays       int       `json:"trial_days" gorm:"default:0"`
	Active          bool      `json:"active" gorm:"default:true"`
	CreatedAt       time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

// PriceCentsForCountry returns the localized price for a billing country,
// falling back to the plan's base price when no override exists.
func (p *Plan) PriceCentsForCountry(country string) int64 {
	if p.CountryPrices != nil {
		if v, ok := p.CountryPrices[country]; ok {
			switch n := v.(type) {
			case float64:
				return int64(n)
			case int64:
				return n
			case int:
				return int64(n)
			}
		}
	}
	return p.BasePriceCents
}

// ProviderPlanID returns the plan's id on the given provider's side, empty
// when the plan is not mapped there.
func (p *Plan) ProviderPlanID(provider string) string {
	if p.ProviderPlanIDs == nil {
		return ""
	}
	if v, ok := p.ProviderPlanIDs[provider].(string); ok {
		return v
	}
	return ""
}
