package stores

import (
	"context"

	"gorm.io/gorm"
)

type contextKey string

const TxKey contextKey = "tx"

type BaseStore struct {
	db *gorm.DB
}

func (s *BaseStore) GetDB(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(TxKey).(*gorm.DB); ok {
		return tx
	}
	return s.db.WithContext(ctx)
}

func (s *BaseStore) WithTransaction(ctx context.Context, fn func(context.Context) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		txCtx := context.WithValue(ctx, TxKey, tx)
		return fn(txCtx)
	})
}

// TryAdvisoryLock takes a session-level Postgres advisory lock without
// blocking. Used by the sweep so only one replica scans overdue invoices.
func (s *BaseStore) TryAdvisoryLock(ctx context.Context, key int64) (bool, error) {
	var locked bool
	err := s.GetDB(ctx).Raw("SELECT pg_try_advisory_lock(?)", key).Scan(&locked).Error
	return locked, err
}

func (s *BaseStore) AdvisoryUnlock(ctx context.Context, key int64) error {
	return s.GetDB(ctx).Exec("SELECT pg_advisory_unlock(?)", key).Error
}
