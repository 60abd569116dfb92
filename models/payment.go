package models

import (
	"time"
)

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusProcessing PaymentStatus = "processing"
	PaymentStatusSucceeded  PaymentStatus = "succeeded"
	PaymentStatusFailed     PaymentStatus = "failed"
	PaymentStatusCancelled  PaymentStatus = "cancelled"
	PaymentStatusRefunded   PaymentStatus = "refunded"
)

// PaymentIntent is created once per attempted charge and never mutated
// afterwards; later status changes are recorded as TransactionLog facts.
type PaymentIntent struct {
	ID           string        `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	TenantID     string        `json:"tenant_id" gorm:"not null;index"`
	InvoiceID    string        `json:"invoice_id" gorm:"not null;index"`
	Provider     string        `json:"provider" gorm:"not null;index"`
	ExternalID   string        `json:"external_id" gorm:"index:idx_intent_provider_external"`
	AmountCents  int64         `json:"amount_cents" gorm:"not null"`
	Currency     string        `json:"currency" gorm:"not null"`
	Status       PaymentStatus `json:"status" gorm:"not null;default:'pending'"`
	PaymentURL   string        `json:"payment_url"`
	ClientSecret string        `json:"client_secret,omitempty"`
	Metadata     JSON          `json:"metadata" gorm:"type:jsonb"`
	CreatedAt    time.Time     `json:"created_at" gorm:"autoCreateTime"`
}

type TransactionType string

const (
	TransactionTypeCharge  TransactionType = "charge"
	TransactionTypeRefund  TransactionType = "refund"
	TransactionTypeWebhook TransactionType = "webhook"
)

// TransactionLog is the append-only financial history. Rows are never
// updated or deleted; provider, country and vertical are denormalized so
// the revenue projection needs no joins.
type TransactionLog struct {
	ID          string          `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	TenantID    string          `json:"tenant_id" gorm:"not null;index"`
	InvoiceID   string          `json:"invoice_id" gorm:"index"`
	IntentID    string          `json:"intent_id" gorm:"index"`
	Provider    string          `json:"provider" gorm:"not null;index"`
	Type        TransactionType `json:"type" gorm:"not null"`
	AmountCents int64           `json:"amount_cents" gorm:"not null"`
	Currency    string          `json:"currency" gorm:"not null"`
	Status      PaymentStatus   `json:"status" gorm:"not null"`
	Country     string          `json:"country" gorm:"index"`
	Vertical    string          `json:"vertical" gorm:"index"`
	RawResponse JSON            `json:"raw_response" gorm:"type:jsonb"`
	CreatedAt   time.Time       `json:"created_at" gorm:"autoCreateTime;index"`
}

// PaymentAttempt numbers the physical attempts to pay one invoice. Distinct
// from TransactionLog, which records provider-level facts.
type PaymentAttempt struct {
	ID            string        `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	InvoiceID     string        `json:"invoice_id" gorm:"not null;index"`
	TenantID      string        `json:"tenant_id" gorm:"not null;index"`
	AttemptNumber int           `json:"attempt_number" gorm:"not null"`
	Provider      string        `json:"provider" gorm:"not null"`
	IntentID      string        `json:"intent_id"`
	Status        PaymentStatus `json:"status" gorm:"not null"`
	ErrorMessage  string        `json:"error_message"`
	CreatedAt     time.Time     `json:"created_at" gorm:"autoCreateTime"`
}

type CreatePaymentParams struct {
	TenantID      string
	InvoiceID     string
	AmountCents   int64
	Currency      string
	Description   string
	CustomerEmail string
	ReturnURL     string
	CallbackURL   string
	Metadata      map[string]string
}

type RefundParams struct {
	ExternalPaymentID string
	AmountCents       int64 // zero means full refund
	Reason            string
}

type RefundStatus string

const (
	RefundStatusPending   RefundStatus = "pending"
	RefundStatusSucceeded RefundStatus = "succeeded"
	RefundStatusFailed    RefundStatus = "failed"
)

type RefundResult struct {
	ExternalRefundID string       `json:"external_refund_id"`
	Status           RefundStatus `json:"status"`
	AmountCents      int64        `json:"amount_cents"`
	Provider         string       `json:"provider"`
}

// PaymentResult is what payment creation hands back to the caller.
type PaymentResult struct {
	Success    bool   `json:"success"`
	InvoiceID  string `json:"invoice_id,omitempty"`
	IntentID   string `json:"intent_id,omitempty"`
	PaymentURL string `json:"payment_url,omitempty"`
	Provider   string `json:"provider,omitempty"`
	Error      string `json:"error,omitempty"`
}
