package models

import (
	"time"
)

type SubscriptionStatus string

const (
	SubscriptionStatusTrialing  SubscriptionStatus = "trialing"
	SubscriptionStatusActive    SubscriptionStatus = "active"
	SubscriptionStatusPastDue   SubscriptionStatus = "past_due"
	SubscriptionStatusSuspended SubscriptionStatus = "suspended"
	SubscriptionStatusCancelled SubscriptionStatus = "cancelled"
)

// TenantSubscription is the only billing entity with cross-invoice state.
// It is owned by the dunning state machine; everything else reads it and
// mutates it only through the orchestrator.
type TenantSubscription struct {
	ID                     string             `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	TenantID               string             `json:"tenant_id" gorm:"uniqueIndex;not null"`
	PlanCode               string             `json:"plan_code" gorm:"not null"`
	Status                 SubscriptionStatus `json:"status" gorm:"not null;default:'active';index"`
	PaymentFailureCount    int                `json:"payment_failure_count" gorm:"not null;default:0"`
	LastPaymentAt          *time.Time         `json:"last_payment_at"`
	SuspendedAt            *time.Time         `json:"suspended_at"`
	SuspensionReason       string             `json:"suspension_reason"`
	Provider               string             `json:"provider"`
	ExternalSubscriptionID string             `json:"external_subscription_id" gorm:"index"`
	CreatedAt              time.Time          `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt              time.Time          `json:"updated_at" gorm:"autoUpdateTime"`
}

type CreateGatewaySubscriptionParams struct {
	TenantID       string
	PlanCode       string
	CustomerRef    string
	ExternalPlanID string
	Metadata       map[string]string
}

type GatewaySubscription struct {
	ExternalID string `json:"external_id"`
	Provider   string `json:"provider"`
	Status     string `json:"status"`
}
