package stores

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/bizsuite/billing/models"
)

type WebhookLedgerStore struct {
	BaseStore
}

func CreateWebhookLedgerStore(db *gorm.DB) *WebhookLedgerStore {
	return &WebhookLedgerStore{BaseStore: BaseStore{db: db}}
}

// Claim attempts to register (provider, event_id) in the idempotency ledger.
// The insert against the unique index is the atomic test-and-set: exactly one
// concurrent delivery gets claimed == true. A record left in failed status by
// an earlier delivery is claimable once more, flipped back to pending by a
// guarded update so two retries cannot both win.
func (s *WebhookLedgerStore) Claim(ctx context.Context, record *models.WebhookEventRecord) (bool, error) {
	record.Status = models.WebhookEventStatusPending

	err := s.GetDB(ctx).Create(record).Error
	if err == nil {
		return true, nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return false, err
	}

	result := s.GetDB(ctx).Model(&models.WebhookEventRecord{}).
		Where("provider = ? AND event_id = ? AND status = ?",
			record.Provider, record.EventID, models.WebhookEventStatusFailed).
		Updates(map[string]interface{}{
			"status":     models.WebhookEventStatusPending,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected != 1 {
		return false, nil
	}

	var existing models.WebhookEventRecord
	if err := s.GetDB(ctx).
		Where("provider = ? AND event_id = ?", record.Provider, record.EventID).
		First(&existing).Error; err != nil {
		return false, err
	}
	*record = existing
	return true, nil
}

func (s *WebhookLedgerStore) MarkProcessed(ctx context.Context, id string) error {
	now := time.Now()
	return s.GetDB(ctx).Model(&models.WebhookEventRecord{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":       models.WebhookEventStatusProcessed,
			"processed_at": now,
		}).Error
}

func (s *WebhookLedgerStore) MarkFailed(ctx context.Context, id string, errMsg string) error {
	return s.GetDB(ctx).Model(&models.WebhookEventRecord{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":        models.WebhookEventStatusFailed,
			"error_message": errMsg,
		}).Error
}

func (s *WebhookLedgerStore) GetByEventID(ctx context.Context, provider, eventID string) (*models.WebhookEventRecord, error) {
	var record models.WebhookEventRecord
	if err := s.GetDB(ctx).
		Where("provider = ? AND event_id = ?", provider, eventID).
		First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}

func (s *WebhookLedgerStore) CleanupOld(ctx context.Context, olderThan time.Duration) (int64, error) {
	cutoff := time.Now().Add(-olderThan)
	result := s.GetDB(ctx).
		Where("created_at < ? AND status = ?", cutoff, models.WebhookEventStatusProcessed).
		Delete(&models.WebhookEventRecord{})
	return result.RowsAffected, result.Error
}
