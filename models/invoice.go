package models

import (
	"time"
)

type InvoiceStatus string

const (
	InvoiceStatusPending   InvoiceStatus = "pending"
	InvoiceStatusPaid      InvoiceStatus = "paid"
	InvoiceStatusOverdue   InvoiceStatus = "overdue"
	InvoiceStatusCancelled InvoiceStatus = "cancelled"
)

// Invoice invariant: AmountDueCents == TotalCents - AmountPaidCents, never
// negative, and Status == paid exactly when AmountDueCents == 0.
type Invoice struct {
	ID              string        `json:"id" gorm:"primaryKey;type:uuid;default:gen_random_uuid()"`
	TenantID        string        `json:"tenant_id" gorm:"not null;index"`
	PlanCode        string        `json:"plan_code" gorm:"index"`
	Status          InvoiceStatus `json:"status" gorm:"not null;default:'pending';index"`
	Currency        string        `json:"currency" gorm:"not null"`
	SubtotalCents   int64         `json:"subtotal_cents" gorm:"not null"`
	TaxCents        int64         `json:"tax_cents" gorm:"not null;default:0"`
	TotalCents      int64         `json:"total_cents" gorm:"not null"`
	AmountPaidCents int64         `json:"amount_paid_cents" gorm:"not null;default:0"`
	AmountDueCents  int64         `json:"amount_due_cents" gorm:"not null"`
	TaxName         string        `json:"tax_name"`
	TaxRate         float64       `json:"tax_rate" gorm:"default:0"`
	DueDate         time.Time     `json:"due_date" gorm:"index"`
	PaidAt          *time.Time    `json:"paid_at"`
	Description     string        `json:"description"`
	CreatedAt       time.Time     `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt       time.Time     `json:"updated_at" gorm:"autoUpdateTime"`
}

// MarkPaid settles the invoice in full, keeping the amount invariant intact.
func (i *Invoice) MarkPaid(now time.Time) {
	i.AmountPaidCents = i.TotalCents
	i.AmountDueCents = 0
	i.Status = InvoiceStatusPaid
	i.PaidAt = &now
}

func (i *Invoice) IsPaid() bool {
	return i.Status == InvoiceStatusPaid
}
