package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/campushub/schedule-service/internal/models"
	"github.com/campushub/schedule-service/internal/repositories"
)

type OutboxPostgreSQL struct {
	db *gorm.DB
}

func NewOutboxPostgreSQL(db *gorm.DB) repositories.OutboxRepository {
	return &OutboxPostgreSQL{db: db}
}

func (o *OutboxPostgreSQL) Create(ctx context.Context, entry *models.DispatchOutbox) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Status == "" {
		entry.Status = models.OutboxPending
	}

	if err := o.db.WithContext(ctx).Create(entry).Error; err != nil {
		return fmt.Errorf("failed to record pending dispatch: %w", repositories.TranslateError(err))
	}

	return nil
}

// ListPending returns pending entries still under the attempt bound, oldest
// first so retries preserve rough event order.
func (o *OutboxPostgreSQL) ListPending(ctx context.Context, maxAttempts, limit int) ([]*models.DispatchOutbox, error) {
	if limit <= 0 {
		limit = 50
	}

	var entries []*models.DispatchOutbox
	err := o.db.WithContext(ctx).
		Where("status = ? AND attempts < ?", models.OutboxPending, maxAttempts).
		Order("created_at ASC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, repositories.TranslateError(err)
	}

	return entries, nil
}

func (o *OutboxPostgreSQL) MarkDispatched(ctx context.Context, id string) error {
	result := o.db.WithContext(ctx).
		Model(&models.DispatchOutbox{}).
		Where("id = ?", id).
		Update("status", models.OutboxDispatched)
	if result.Error != nil {
		return repositories.TranslateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}

	return nil
}

// MarkAttemptFailed increments the attempt counter and records the error.
// Once the bound is reached the entry flips to failed and the sweep stops
// retrying it; the failure stays durably visible for operators.
func (o *OutboxPostgreSQL) MarkAttemptFailed(ctx context.Context, id string, attemptErr string, maxAttempts int) error {
	return o.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entry models.DispatchOutbox
		if err := tx.First(&entry, "id = ?", id).Error; err != nil {
			return repositories.TranslateError(err)
		}

		entry.Attempts++
		entry.LastError = &attemptErr
		status := models.OutboxPending
		if entry.Attempts >= maxAttempts {
			status = models.OutboxFailed
		}

		err := tx.Model(&models.DispatchOutbox{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"attempts":   entry.Attempts,
				"last_error": entry.LastError,
				"status":     status,
			}).Error
		return repositories.TranslateError(err)
	})
}
