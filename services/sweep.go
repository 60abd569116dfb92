package services

import (
	"context"
	"time"

	"github.com/bizsuite/billing/models"
	"github.com/bizsuite/billing/utils"
)

// sweepLockKey identifies the overdue sweep's Postgres advisory lock. Stable
// across releases so replicas on different versions still exclude each other.
const sweepLockKey int64 = 744202201

const sweepBatchSize = 100

type SweepInvoiceRepo interface {
	ListPendingPastDue(ctx context.Context, asOf time.Time, limit int) ([]*models.Invoice, error)
	MarkOverdue(ctx context.Context, id string) (bool, error)
}

type AdvisoryLocker interface {
	TryAdvisoryLock(ctx context.Context, key int64) (bool, error)
	AdvisoryUnlock(ctx context.Context, key int64) error
}

type FailureRegistrar interface {
	RegisterPaymentFailure(ctx context.Context, tenantID, invoiceID, reason string) error
}

// Sweep periodically flips pending invoices past their due date to overdue
// and feeds each one into the dunning state machine as a payment failure.
// The advisory lock keeps concurrent replicas from double-counting failures.
type Sweep struct {
	invoices  SweepInvoiceRepo
	locker    AdvisoryLocker
	registrar FailureRegistrar
	tx        Transactor
	interval  time.Duration
	logger    *utils.Logger
}

func NewSweep(invoices SweepInvoiceRepo, locker AdvisoryLocker, registrar FailureRegistrar, tx Transactor, interval time.Duration) *Sweep {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Sweep{
		invoices:  invoices,
		locker:    locker,
		registrar: registrar,
		tx:        tx,
		interval:  interval,
		logger:    utils.NewLogger("overdue-sweep"),
	}
}

// Start runs the sweep loop until the context is cancelled. Intended to be
// launched as a goroutine from main.
func (s *Sweep) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info(ctx, "overdue sweep started", map[string]interface{}{
		"interval": s.interval.String(),
	})

	for {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "overdue sweep stopped")
			return
		case <-ticker.C:
			if _, err := s.RunOnce(ctx); err != nil {
				utils.LogError(ctx, err, "overdue sweep run failed", nil)
			}
		}
	}
}

// RunOnce performs one sweep pass and returns how many invoices it moved to
// overdue. When another replica holds the lock it returns (0, nil).
func (s *Sweep) RunOnce(ctx context.Context) (int, error) {
	locked, err := s.locker.TryAdvisoryLock(ctx, sweepLockKey)
	if err != nil {
		return 0, err
	}
	if !locked {
		s.logger.Debug(ctx, "sweep lock held elsewhere, skipping pass")
		return 0, nil
	}
	defer func() {
		if err := s.locker.AdvisoryUnlock(ctx, sweepLockKey); err != nil {
			utils.LogError(ctx, err, "failed to release sweep lock", nil)
		}
	}()

	invoices, err := s.invoices.ListPendingPastDue(ctx, time.Now(), sweepBatchSize)
	if err != nil {
		return 0, err
	}

	swept := 0
	for _, invoice := range invoices {
		// The flip and the dunning registration commit together. A failed
		// registration rolls the invoice back to pending, so the next pass
		// picks it up again instead of losing the failure signal forever.
		var flipped bool
		err := s.tx.WithTransaction(ctx, func(txCtx context.Context) error {
			var err error
			// The guarded update loses the race against a concurrent
			// payment; an invoice paid mid-sweep is skipped, not failed.
			flipped, err = s.invoices.MarkOverdue(txCtx, invoice.ID)
			if err != nil || !flipped {
				return err
			}
			return s.registrar.RegisterPaymentFailure(txCtx, invoice.TenantID, invoice.ID, "invoice overdue")
		})
		if err != nil {
			utils.LogError(ctx, err, "overdue flip rolled back, invoice left pending", map[string]interface{}{
				"invoice_id": invoice.ID,
				"tenant_id":  invoice.TenantID,
			})
			continue
		}
		if !flipped {
			continue
		}
		swept++
	}

	if swept > 0 {
		s.logger.Info(ctx, "sweep pass complete", map[string]interface{}{
			"overdue": swept,
		})
	}
	return swept, nil
}
