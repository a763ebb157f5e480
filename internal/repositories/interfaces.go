package repositories

import (
	"context"
	"time"

	"github.com/campushub/schedule-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type ScheduleFilters struct {
	Type       *models.ScheduleType `json:"type"`
	CourseCode *string              `json:"course_code"`
	CreatedBy  *string              `json:"created_by"`
	DateFrom   *time.Time           `json:"date_from"`
	DateTo     *time.Time           `json:"date_to"`
	Limit      int                  `json:"limit"`
	Offset     int                  `json:"offset"`
	SortBy     string               `json:"sort_by"`    // "start_date", "created_at", "course_code"
	SortOrder  string               `json:"sort_order"` // "asc", "desc"
}

type NotificationFilters struct {
	Read      *bool      `json:"read"`
	DateFrom  *time.Time `json:"date_from"`
	DateTo    *time.Time `json:"date_to"`
	Limit     int        `json:"limit"`
	Offset    int        `json:"offset"`
	SortOrder string     `json:"sort_order"` // default "desc" by created_at
}

type UserFilters struct {
	Role   *models.UserRole `json:"role"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

// ===== REPOSITORY INTERFACES =====

type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	List(ctx context.Context, filters UserFilters) ([]*models.User, int64, error)

	// ListIDs returns every user id, used for broadcast notification fanout.
	ListIDs(ctx context.Context) ([]string, error)
}

type ScheduleRepository interface {
	Create(ctx context.Context, schedule *models.Schedule) error
	GetByID(ctx context.Context, id string) (*models.Schedule, error)

	// Update applies the full field set with last-write-wins semantics:
	// concurrent updates to the same id may interleave and the later commit
	// determines final state.
	Update(ctx context.Context, schedule *models.Schedule) error
	UpdateStatus(ctx context.Context, id string, status models.ScheduleStatus) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, filters ScheduleFilters) ([]*models.Schedule, int64, error)
	GetByCreator(ctx context.Context, creatorID string, filters ScheduleFilters) ([]*models.Schedule, int64, error)
}

type NotificationRepository interface {
	Create(ctx context.Context, notification *models.Notification) error
	CreateBatch(ctx context.Context, notifications []*models.Notification) error
	GetByID(ctx context.Context, id string) (*models.Notification, error)
	ListByUser(ctx context.Context, userID string, filters NotificationFilters) ([]*models.Notification, int64, error)
	CountUnread(ctx context.Context, userID string) (int64, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}

type OutboxRepository interface {
	Create(ctx context.Context, entry *models.DispatchOutbox) error
	ListPending(ctx context.Context, maxAttempts, limit int) ([]*models.DispatchOutbox, error)
	MarkDispatched(ctx context.Context, id string) error
	MarkAttemptFailed(ctx context.Context, id string, attemptErr string, maxAttempts int) error
}

// Repository aggregates all sub-repositories over the single shared store
// connection. It is constructed once at process start and injected into
// every component that needs it.
type Repository interface {
	User() UserRepository
	Schedule() ScheduleRepository
	Notification() NotificationRepository
	Outbox() OutboxRepository

	WithTransaction(ctx context.Context, fn func(Repository) error) error
	Ping(ctx context.Context) error
	Close() error
}
