package services

import (
	"context"

	"github.com/campushub/schedule-service/internal/models"
	"github.com/campushub/schedule-service/internal/repositories"
	"github.com/campushub/schedule-service/internal/validator"
)

// ===== REQUEST/RESPONSE DTOs =====

// Use business validator types
type CreateScheduleRequest = validator.ScheduleCreateRequest
type UpdateScheduleRequest = validator.ScheduleUpdateRequest
type RegisterUserRequest = validator.RegisterUserRequest
type UpdateProfileRequest = validator.UpdateProfileRequest

type ScheduleResponse struct {
	*models.Schedule
	CanEdit   bool `json:"can_edit"`
	CanDelete bool `json:"can_delete"`
}

type ScheduleListResponse struct {
	Schedules []*ScheduleResponse `json:"schedules"`
	Total     int64               `json:"total"`
}

type NotificationListResponse struct {
	Notifications []*models.Notification `json:"notifications"`
	Total         int64                  `json:"total"`
	Unread        int64                  `json:"unread"`
}

// ===== SCHEDULE MUTATION EVENTS =====

type ScheduleEventKind string

const (
	EventKindCreated ScheduleEventKind = "created"
	EventKindUpdated ScheduleEventKind = "updated"
	EventKindDeleted ScheduleEventKind = "deleted"
)

// ScheduleEvent describes a committed schedule mutation. Before is only set
// for updated events.
type ScheduleEvent struct {
	Kind     ScheduleEventKind `json:"kind"`
	Schedule *models.Schedule  `json:"schedule"`
	Before   *models.Schedule  `json:"before,omitempty"`
}

// ===== SERVICE INTERFACES =====

type ScheduleService interface {
	Create(ctx context.Context, req *CreateScheduleRequest, actorID string) (*ScheduleResponse, error)
	GetByID(ctx context.Context, id string, actorID string) (*ScheduleResponse, error)
	Update(ctx context.Context, id string, req *UpdateScheduleRequest, actorID string) (*ScheduleResponse, error)
	Delete(ctx context.Context, id string, actorID string) error

	List(ctx context.Context, filters repositories.ScheduleFilters, actorID string) (*ScheduleListResponse, error)
	GetByCreator(ctx context.Context, creatorID string, filters repositories.ScheduleFilters, actorID string) (*ScheduleListResponse, error)

	// RefreshStatuses recomputes and persists the status projection for
	// schedules whose derived status drifted since the last write. Returns
	// the number of rows refreshed.
	RefreshStatuses(ctx context.Context) (int, error)
}

// NotificationDispatcher turns schedule mutation events into persisted
// Notification records. Invocation is synchronous with the mutation: the
// mutation is complete once dispatch succeeded or was durably recorded as
// pending for the background sweep.
type NotificationDispatcher interface {
	OnScheduleEvent(ctx context.Context, event *ScheduleEvent) error

	// RetryPending re-dispatches outbox entries left pending by earlier
	// failures, bounded per entry. Returns the number dispatched.
	RetryPending(ctx context.Context) (int, error)
}

type NotificationService interface {
	ListByUser(ctx context.Context, userID string, filters repositories.NotificationFilters, actorID string) (*NotificationListResponse, error)
	CountUnread(ctx context.Context, actorID string) (int64, error)
	MarkRead(ctx context.Context, id string, actorID string) error
	MarkAllRead(ctx context.Context, actorID string) (int64, error)
}

type UserService interface {
	Register(ctx context.Context, req *RegisterUserRequest) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	UpdateProfile(ctx context.Context, id string, req *UpdateProfileRequest, actorID string) (*models.User, error)
}

type ExportService interface {
	// ExportSchedules renders the filtered schedules as an xlsx workbook,
	// statuses recomputed at export time. Coordinator only.
	ExportSchedules(ctx context.Context, filters repositories.ScheduleFilters, actorID string) ([]byte, error)
}

// ===== SERVICE MANAGER =====

type ServiceManager interface {
	Schedule() ScheduleService
	Notification() NotificationService
	Dispatcher() NotificationDispatcher
	User() UserService
	Export() ExportService

	Initialize(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Shutdown(ctx context.Context) error
}
