package services

import (
	"context"
	"time"

	"github.com/bizsuite/billing/models"
	"github.com/bizsuite/billing/utils"
)

const (
	revenueCacheKey = "billing:revenue:report"
	revenueCacheTTL = 5 * time.Minute
)

type RevenueRepo interface {
	RevenueTotal(ctx context.Context, from, to time.Time) (int64, error)
	RevenueBreakdown(ctx context.Context, dimension string, from time.Time) ([]models.RevenueBucket, error)
}

type SubscriptionCounter interface {
	CountByStatus(ctx context.Context, status models.SubscriptionStatus) (int64, error)
}

type InvoiceCounter interface {
	CountByStatus(ctx context.Context, status models.InvoiceStatus) (int64, error)
}

type ReportCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// RevenueService builds the read-only revenue projection over the
// transaction log. Reports are cached; a cache miss or a cache error falls
// through to the database.
type RevenueService struct {
	payments RevenueRepo
	subs     SubscriptionCounter
	invoices InvoiceCounter
	cache    ReportCache
	logger   *utils.Logger
}

func NewRevenueService(payments RevenueRepo, subs SubscriptionCounter, invoices InvoiceCounter, cache ReportCache) *RevenueService {
	return &RevenueService{
		payments: payments,
		subs:     subs,
		invoices: invoices,
		cache:    cache,
		logger:   utils.NewLogger("revenue"),
	}
}

func (s *RevenueService) Report(ctx context.Context) (*models.RevenueReport, error) {
	if s.cache != nil {
		var cached models.RevenueReport
		hit, err := s.cache.Get(ctx, revenueCacheKey, &cached)
		if err != nil {
			utils.LogError(ctx, err, "revenue cache read failed", nil)
		} else if hit {
			return &cached, nil
		}
	}

	report, err := s.build(ctx)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, revenueCacheKey, report, revenueCacheTTL); err != nil {
			utils.LogError(ctx, err, "revenue cache write failed", nil)
		}
	}
	return report, nil
}

func (s *RevenueService) build(ctx context.Context) (*models.RevenueReport, error) {
	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	prevMonthStart := monthStart.AddDate(0, -1, 0)

	total, err := s.payments.RevenueTotal(ctx, time.Time{}, time.Time{})
	if err != nil {
		return nil, err
	}
	month, err := s.payments.RevenueTotal(ctx, monthStart, time.Time{})
	if err != nil {
		return nil, err
	}
	prevMonth, err := s.payments.RevenueTotal(ctx, prevMonthStart, monthStart)
	if err != nil {
		return nil, err
	}

	report := &models.RevenueReport{
		GeneratedAt:       now,
		TotalRevenueCents: total,
		MonthRevenueCents: month,
		PrevMonthCents:    prevMonth,
	}
	if prevMonth > 0 {
		report.MonthOverMonthPct = float64(month-prevMonth) / float64(prevMonth) * 100
	}

	for dim, target := range map[string]*[]models.RevenueBucket{
		"country":  &report.ByCountry,
		"provider": &report.ByProvider,
		"vertical": &report.ByVertical,
	} {
		buckets, err := s.payments.RevenueBreakdown(ctx, dim, time.Time{})
		if err != nil {
			return nil, err
		}
		*target = buckets
	}

	if report.ActiveSubscriptions, err = s.subs.CountByStatus(ctx, models.SubscriptionStatusActive); err != nil {
		return nil, err
	}
	if report.PendingInvoices, err = s.invoices.CountByStatus(ctx, models.InvoiceStatusPending); err != nil {
		return nil, err
	}

	return report, nil
}
