package models

import (
	"encoding/json"
	"time"
)

type WebhookEventType string

const (
	EventPaymentSucceeded      WebhookEventType = "payment.succeeded"
	EventPaymentFailed         WebhookEventType = "payment.failed"
	EventSubscriptionCancelled WebhookEventType = "subscription.cancelled"
	EventRefundCompleted       WebhookEventType = "refund.completed"
	EventInvoicePaid           WebhookEventType = "invoice.paid"
	EventUnknown               WebhookEventType = "unknown"
)

type WebhookEventStatus string

const (
	WebhookEventStatusPending   WebhookEventStatus = "pending"
	WebhookEventStatusProcessed WebhookEventStatus = "processed"
	WebhookEventStatusFailed    WebhookEventStatus = "failed"
)

// WebhookEventRecord is the idempotency ledger. The unique index on
// (provider, event_id) is the atomic test-and-set that makes at-least-once
// delivery safe.
type WebhookEventRecord struct {
	ID           string             `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	Provider     string             `json:"provider" gorm:"not null;uniqueIndex:idx_webhook_provider_event"`
	EventID      string             `json:"event_id" gorm:"not null;uniqueIndex:idx_webhook_provider_event"`
	Type         WebhookEventType   `json:"type" gorm:"not null"`
	Status       WebhookEventStatus `json:"status" gorm:"not null;default:'pending'"`
	ErrorMessage string             `json:"error_message"`
	Payload      JSON               `json:"payload" gorm:"type:jsonb"`
	ProcessedAt  *time.Time         `json:"processed_at"`
	CreatedAt    time.Time          `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time          `json:"updated_at" gorm:"autoUpdateTime"`
}

// NormalizedWebhookEvent is the canonical event shape every adapter maps its
// raw payload into. Transient; never persisted as such.
type NormalizedWebhookEvent struct {
	Type              WebhookEventType
	EventID           string
	ExternalPaymentID string
	AmountCents       int64
	Currency          string
	TenantID          string
	RawPayload        json.RawMessage
}
