package models

import (
	"time"
)

// CountryGatewayMapping routes a billing country to a primary gateway and an
// optional fallback, and carries the localized currency and tax parameters.
// Loaded once at startup and treated as immutable afterwards.
type CountryGatewayMapping struct {
	ID               string    `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Country          string    `json:"country" gorm:"uniqueIndex;not null"`
	PrimaryProvider  string    `json:"primary_provider" gorm:"not null"`
	FallbackProvider string    `json:"fallback_provider"`
	Currency         string    `json:"currency" gorm:"not null"`
	TaxName          string    `json:"tax_name"`
	TaxRate          float64   `json:"tax_rate" gorm:"default:0"`
	CreatedAt        time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt        time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}
