package models

import (
	"time"
)

// RevenueBucket is one row of an aggregate breakdown.
type RevenueBucket struct {
	Key         string `json:"key"`
	AmountCents int64  `json:"amount_cents"`
	Count       int64  `json:"count"`
}

// RevenueReport is a read-only projection over TransactionLog and
// TenantSubscription. It is never part of the write path.
type RevenueReport struct {
	GeneratedAt         time.Time       `json:"generated_at"`
	TotalRevenueCents   int64           `json:"total_revenue_cents"`
	MonthRevenueCents   int64           `json:"month_revenue_cents"`
	PrevMonthCents      int64           `json:"prev_month_revenue_cents"`
	MonthOverMonthPct   float64         `json:"month_over_month_pct"`
	ByCountry           []RevenueBucket `json:"by_country"`
	ByProvider          []RevenueBucket `json:"by_provider"`
	ByVertical          []RevenueBucket `json:"by_vertical"`
	ActiveSubscriptions int64           `json:"active_subscriptions"`
	PendingInvoices     int64           `json:"pending_invoices"`
}
