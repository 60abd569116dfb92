package db

import (
	"context"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/bizsuite/billing/config"
	"github.com/bizsuite/billing/models"
	"github.com/bizsuite/billing/utils"
)

// Open connects to Postgres and configures the pool. TranslateError is
// required: the webhook ledger's idempotency claim relies on
// gorm.ErrDuplicatedKey coming back from unique-index violations.
// Connection attempts are retried with backoff so the engine survives a
// database that is still coming up.
func Open(cfg *config.Config) (*gorm.DB, error) {
	logMode := logger.Warn
	if cfg.IsDevelopment() {
		logMode = logger.Info
	}

	// Dial failures are retryable by message; auth and DSN errors abort
	// the retry loop immediately.
	var gormDB *gorm.DB
	err := utils.Retry(context.Background(), utils.DefaultRetryConfig(), func() error {
		var openErr error
		gormDB, openErr = gorm.Open(postgres.Open(cfg.GetDatabaseURL()), &gorm.Config{
			Logger:         logger.Default.LogMode(logMode),
			TranslateError: true,
		})
		return openErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %v", err)
	}

	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	if cfg.Database.MaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.Database.MaxLifetime)
	} else {
		sqlDB.SetConnMaxLifetime(time.Hour)
	}

	return gormDB, nil
}

func AutoMigrate(gormDB *gorm.DB) error {
	return gormDB.AutoMigrate(
		&models.Tenant{},
		&models.Plan{},
		&models.CountryGatewayMapping{},
		&models.TenantSubscription{},
		&models.Invoice{},
		&models.PaymentIntent{},
		&models.TransactionLog{},
		&models.PaymentAttempt{},
		&models.WebhookEventRecord{},
	)
}
