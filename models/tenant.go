package models

import (
	"time"
)

type TenantStatus string

const (
	TenantStatusActive    TenantStatus = "active"
	TenantStatusSuspended TenantStatus = "suspended"
	TenantStatusCancelled TenantStatus = "cancelled"
)

// Tenant is the slice of the platform tenant record the billing engine
// needs: who to charge, where they are billed, and whether service is on.
// The vertical CRUD modules own the rest of the tenant profile.
type Tenant struct {
	ID               string       `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Name             string       `json:"name" gorm:"not null"`
	BillingCountry   string       `json:"billing_country" gorm:"not null;index"`
	Vertical         string       `json:"vertical" gorm:"index"`
	Status           TenantStatus `json:"status" gorm:"not null;default:'active'"`
	SuspensionReason string       `json:"suspension_reason"`
	BillingEmail     string       `json:"billing_email"`
	CreatedAt        time.Time    `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt        time.Time    `json:"updated_at" gorm:"autoUpdateTime"`
}
