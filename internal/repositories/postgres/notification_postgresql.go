package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/campushub/schedule-service/internal/models"
	"github.com/campushub/schedule-service/internal/repositories"
)

type NotificationPostgreSQL struct {
	db *gorm.DB
}

func NewNotificationPostgreSQL(db *gorm.DB) repositories.NotificationRepository {
	return &NotificationPostgreSQL{db: db}
}

func (n *NotificationPostgreSQL) Create(ctx context.Context, notification *models.Notification) error {
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}

	if err := n.db.WithContext(ctx).Create(notification).Error; err != nil {
		return fmt.Errorf("failed to create notification: %w", repositories.TranslateError(err))
	}

	return nil
}

// CreateBatch inserts one notification per recipient in a single statement.
func (n *NotificationPostgreSQL) CreateBatch(ctx context.Context, notifications []*models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}

	for _, notification := range notifications {
		if notification.ID == "" {
			notification.ID = uuid.NewString()
		}
	}

	if err := n.db.WithContext(ctx).CreateInBatches(notifications, 100).Error; err != nil {
		return fmt.Errorf("failed to create notifications: %w", repositories.TranslateError(err))
	}

	return nil
}

func (n *NotificationPostgreSQL) GetByID(ctx context.Context, id string) (*models.Notification, error) {
	var notification models.Notification
	err := n.db.WithContext(ctx).First(&notification, "id = ?", id).Error
	if err != nil {
		return nil, repositories.TranslateError(err)
	}

	return &notification, nil
}

func (n *NotificationPostgreSQL) ListByUser(ctx context.Context, userID string, filters repositories.NotificationFilters) ([]*models.Notification, int64, error) {
	query := n.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ?", userID)

	if filters.Read != nil {
		query = query.Where("read = ?", *filters.Read)
	}
	if filters.DateFrom != nil {
		query = query.Where("created_at >= ?", *filters.DateFrom)
	}
	if filters.DateTo != nil {
		query = query.Where("created_at < ?", *filters.DateTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, repositories.TranslateError(err)
	}

	order := "created_at DESC"
	if filters.SortOrder == "asc" {
		order = "created_at ASC"
	}

	limit := filters.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	var notifications []*models.Notification
	err := query.Order(order).Limit(limit).Offset(filters.Offset).Find(&notifications).Error
	if err != nil {
		return nil, 0, repositories.TranslateError(err)
	}

	return notifications, total, nil
}

func (n *NotificationPostgreSQL) CountUnread(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := n.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Count(&count).Error
	if err != nil {
		return 0, repositories.TranslateError(err)
	}

	return count, nil
}

func (n *NotificationPostgreSQL) MarkRead(ctx context.Context, id string) error {
	result := n.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("id = ?", id).
		Update("read", true)
	if result.Error != nil {
		return repositories.TranslateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}

	return nil
}

func (n *NotificationPostgreSQL) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	result := n.db.WithContext(ctx).
		Model(&models.Notification{}).
		Where("user_id = ? AND read = ?", userID, false).
		Update("read", true)
	if result.Error != nil {
		return 0, repositories.TranslateError(result.Error)
	}

	return result.RowsAffected, nil
}
