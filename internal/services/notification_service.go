package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/campushub/schedule-service/internal/cache"
	"github.com/campushub/schedule-service/internal/events"
	"github.com/campushub/schedule-service/internal/models"
	"github.com/campushub/schedule-service/internal/repositories"
)

// maxDispatchAttempts bounds outbox retries before an entry is marked failed
// and left for operators.
const maxDispatchAttempts = 5

type notificationDispatcher struct {
	repo      repositories.Repository
	cache     *cache.CacheHelper
	publisher events.EventPublisher
	logger    *slog.Logger

	now func() time.Time
}

func NewNotificationDispatcher(repo repositories.Repository, cacheHelper *cache.CacheHelper, publisher events.EventPublisher, logger *slog.Logger) NotificationDispatcher {
	return &notificationDispatcher{
		repo:      repo,
		cache:     cacheHelper,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

// OnScheduleEvent durably records a pending-dispatch marker, then attempts
// the fanout. A fanout failure leaves the marker pending for the background
// sweep, so notifications are never silently dropped; the originating
// mutation is complete once the marker is committed. Only a marker write
// failure is returned to the caller.
func (d *notificationDispatcher) OnScheduleEvent(ctx context.Context, event *ScheduleEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to encode schedule event: %w", err)
	}

	entry := &models.DispatchOutbox{
		EventKind: string(event.Kind),
		Payload:   payload,
		Status:    models.OutboxPending,
	}
	if err := d.repo.Outbox().Create(ctx, entry); err != nil {
		return err
	}

	if err := d.dispatch(ctx, event); err != nil {
		d.logger.Error("Notification dispatch failed, left pending for sweep",
			"error", err,
			"outbox_id", entry.ID,
			"event_kind", event.Kind,
			"schedule_id", event.Schedule.ID)
		if markErr := d.repo.Outbox().MarkAttemptFailed(ctx, entry.ID, err.Error(), maxDispatchAttempts); markErr != nil {
			d.logger.Error("Failed to record dispatch attempt", "error", markErr, "outbox_id", entry.ID)
		}
		return nil
	}

	if err := d.repo.Outbox().MarkDispatched(ctx, entry.ID); err != nil {
		d.logger.Error("Failed to mark outbox entry dispatched", "error", err, "outbox_id", entry.ID)
	}

	return nil
}

// RetryPending re-dispatches outbox entries left pending by earlier
// failures. Retries are at-least-once: a duplicate notification is preferred
// over a lost one.
func (d *notificationDispatcher) RetryPending(ctx context.Context) (int, error) {
	entries, err := d.repo.Outbox().ListPending(ctx, maxDispatchAttempts, 50)
	if err != nil {
		return 0, fmt.Errorf("failed to list pending dispatches: %w", err)
	}

	dispatched := 0
	for _, entry := range entries {
		var event ScheduleEvent
		if err := json.Unmarshal(entry.Payload, &event); err != nil {
			d.logger.Error("Undecodable outbox payload", "error", err, "outbox_id", entry.ID)
			if markErr := d.repo.Outbox().MarkAttemptFailed(ctx, entry.ID, "undecodable payload: "+err.Error(), maxDispatchAttempts); markErr != nil {
				d.logger.Error("Failed to record dispatch attempt", "error", markErr, "outbox_id", entry.ID)
			}
			continue
		}

		if err := d.dispatch(ctx, &event); err != nil {
			d.logger.Warn("Retry dispatch failed",
				"error", err,
				"outbox_id", entry.ID,
				"attempts", entry.Attempts+1)
			if markErr := d.repo.Outbox().MarkAttemptFailed(ctx, entry.ID, err.Error(), maxDispatchAttempts); markErr != nil {
				d.logger.Error("Failed to record dispatch attempt", "error", markErr, "outbox_id", entry.ID)
			}
			continue
		}

		if err := d.repo.Outbox().MarkDispatched(ctx, entry.ID); err != nil {
			d.logger.Error("Failed to mark outbox entry dispatched", "error", err, "outbox_id", entry.ID)
			continue
		}
		dispatched++
	}

	return dispatched, nil
}

// dispatch fans out one notification per recipient and publishes the change
// event. Coordinator-authored schedules notify every user; student-authored
// ones notify the owner only.
func (d *notificationDispatcher) dispatch(ctx context.Context, event *ScheduleEvent) error {
	recipients, err := d.resolveRecipients(ctx, event.Schedule)
	if err != nil {
		return err
	}

	now := d.now()
	scheduleID := event.Schedule.ID
	title, message := notificationContent(event)

	notifications := make([]*models.Notification, 0, len(recipients))
	for _, recipient := range recipients {
		notifications = append(notifications, &models.Notification{
			Title:      title,
			Message:    message,
			Type:       event.Schedule.Type,
			Kind:       notificationKind(event.Kind),
			ScheduleID: &scheduleID,
			UserID:     recipient,
			CreatedAt:  now,
		})
	}

	if err := d.repo.Notification().CreateBatch(ctx, notifications); err != nil {
		return err
	}

	for _, recipient := range recipients {
		cache.InvalidateUserNotifications(ctx, d.cache, recipient)
	}

	return d.publisher.Publish(ctx, &events.Event{
		Type:      eventType(event.Kind),
		Source:    events.EventSource,
		Version:   events.EventVersion,
		Timestamp: now,
		Data:      event,
	})
}

func (d *notificationDispatcher) resolveRecipients(ctx context.Context, schedule *models.Schedule) ([]string, error) {
	author, err := d.repo.User().GetByID(ctx, schedule.CreatedBy)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			// Author may have been removed upstream; notify nobody else.
			return []string{schedule.CreatedBy}, nil
		}
		return nil, err
	}

	if author.Role != models.RoleCoordinator {
		return []string{author.ID}, nil
	}

	ids, err := d.repo.User().ListIDs(ctx)
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func notificationKind(kind ScheduleEventKind) models.NotificationKind {
	switch kind {
	case EventKindUpdated:
		return models.NotificationScheduleUpdated
	case EventKindDeleted:
		return models.NotificationScheduleDeleted
	default:
		return models.NotificationScheduleCreated
	}
}

func eventType(kind ScheduleEventKind) string {
	switch kind {
	case EventKindUpdated:
		return events.EventScheduleUpdated
	case EventKindDeleted:
		return events.EventScheduleDeleted
	default:
		return events.EventScheduleCreated
	}
}

// notificationContent derives the per-recipient title and message from the
// schedule type and course identifiers.
func notificationContent(event *ScheduleEvent) (string, string) {
	s := event.Schedule
	when := s.StartDate.Format("Mon, 02 Jan 2006")
	if s.TimeOfDay != "" {
		when += " at " + s.TimeOfDay
	}

	switch event.Kind {
	case EventKindUpdated:
		return fmt.Sprintf("Updated %s: %s", s.Type, s.CourseCode),
			fmt.Sprintf("The %s for %s (%s) has been updated. It is scheduled for %s.", s.Type, s.CourseName, s.CourseCode, when)
	case EventKindDeleted:
		return fmt.Sprintf("Cancelled %s: %s", s.Type, s.CourseCode),
			fmt.Sprintf("The %s for %s (%s) scheduled for %s has been cancelled.", s.Type, s.CourseName, s.CourseCode, when)
	default:
		return fmt.Sprintf("New %s: %s", s.Type, s.CourseCode),
			fmt.Sprintf("A %s for %s (%s) has been scheduled for %s.", s.Type, s.CourseName, s.CourseCode, when)
	}
}

// ===== NOTIFICATION READS =====

type notificationService struct {
	repo   repositories.Repository
	cache  *cache.CacheHelper
	logger *slog.Logger
}

func NewNotificationService(repo repositories.Repository, cacheHelper *cache.CacheHelper, logger *slog.Logger) NotificationService {
	return &notificationService{
		repo:   repo,
		cache:  cacheHelper,
		logger: logger,
	}
}

// cachedNotificationList is the cache entry shape for a user's default
// notification listing. The unread count lives inside the entry so a cache
// hit costs no store round trip; every unread-changing path invalidates the
// key.
type cachedNotificationList struct {
	Notifications []*models.Notification `json:"notifications"`
	Total         int64                  `json:"total"`
	Unread        int64                  `json:"unread"`
}

func (n *notificationService) ListByUser(ctx context.Context, userID string, filters repositories.NotificationFilters, actorID string) (*NotificationListResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, storeOpTimeout)
	defer cancel()

	if actorID != userID {
		return nil, NewPermissionError(actorID, userID, "notifications", "read", "notifications are private to their owner")
	}

	// Only the default listing has a stable key in the grammar; pagination
	// and sort variants change the result shape and must bypass the cache.
	if filters.Read == nil && filters.DateFrom == nil && filters.DateTo == nil &&
		filters.Limit == 0 && filters.Offset == 0 && filters.SortOrder == "" {
		var cached cachedNotificationList
		err := n.cache.CacheOrExecute(ctx, cache.UserNotificationsKey(userID), &cached, cache.DefaultTTL, func() (interface{}, error) {
			notifications, total, err := n.repo.Notification().ListByUser(ctx, userID, filters)
			if err != nil {
				return nil, err
			}
			unread, err := n.repo.Notification().CountUnread(ctx, userID)
			if err != nil {
				return nil, err
			}
			return &cachedNotificationList{Notifications: notifications, Total: total, Unread: unread}, nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to list notifications: %w", err)
		}
		return &NotificationListResponse{
			Notifications: cached.Notifications,
			Total:         cached.Total,
			Unread:        cached.Unread,
		}, nil
	}

	notifications, total, err := n.repo.Notification().ListByUser(ctx, userID, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}

	unread, err := n.repo.Notification().CountUnread(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count unread notifications: %w", err)
	}

	return &NotificationListResponse{Notifications: notifications, Total: total, Unread: unread}, nil
}

func (n *notificationService) CountUnread(ctx context.Context, actorID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, storeOpTimeout)
	defer cancel()

	return n.repo.Notification().CountUnread(ctx, actorID)
}

// MarkRead flips the read flag; only the owning user may do so.
func (n *notificationService) MarkRead(ctx context.Context, id string, actorID string) error {
	ctx, cancel := context.WithTimeout(ctx, storeOpTimeout)
	defer cancel()

	notification, err := n.repo.Notification().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrNotificationNotFound
		}
		return fmt.Errorf("failed to get notification: %w", err)
	}

	if notification.UserID != actorID {
		return NewPermissionError(actorID, id, "notification", "mark_read", "notifications are private to their owner")
	}

	if err := n.repo.Notification().MarkRead(ctx, id); err != nil {
		return fmt.Errorf("failed to mark notification read: %w", err)
	}

	cache.InvalidateUserNotifications(ctx, n.cache, actorID)
	return nil
}

func (n *notificationService) MarkAllRead(ctx context.Context, actorID string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, storeOpTimeout)
	defer cancel()

	count, err := n.repo.Notification().MarkAllRead(ctx, actorID)
	if err != nil {
		return 0, fmt.Errorf("failed to mark notifications read: %w", err)
	}

	cache.InvalidateUserNotifications(ctx, n.cache, actorID)
	return count, nil
}
