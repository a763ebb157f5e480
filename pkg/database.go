package pkg

import (
	"fmt"
	"log/slog"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/campushub/schedule-service/internal/config"
	"github.com/campushub/schedule-service/internal/models"
)

const (
	connectAttempts     = 3
	connectInitialDelay = 200 * time.Millisecond
)

// InitDatabase opens the single shared store connection and ensures the
// schema and secondary indexes exist. Connection failures are retried with
// exponential backoff (3 attempts from 200ms) before giving up.
func InitDatabase(cfg *config.Config) (*gorm.DB, error) {
	gormConfig := &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	}
	if cfg.Environment != "production" {
		gormConfig.Logger = logger.Default.LogMode(logger.Warn)
	}

	var db *gorm.DB
	var err error

	delay := connectInitialDelay
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		db, err = gorm.Open(postgres.Open(cfg.DatabaseURL), gormConfig)
		if err == nil {
			break
		}

		if attempt < connectAttempts {
			slog.Warn("Database connection failed, retrying",
				"attempt", attempt,
				"retry_in", delay)
			time.Sleep(delay)
			delay *= 2
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", connectAttempts, err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	// AutoMigrate is idempotent, safe to run on every process start. It
	// creates the unique email index and all secondary indexes declared on
	// the models.
	if err := db.AutoMigrate(
		&models.User{},
		&models.Schedule{},
		&models.Notification{},
		&models.DispatchOutbox{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}
