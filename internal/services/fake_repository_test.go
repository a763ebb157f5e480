package services

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/campushub/schedule-service/internal/models"
	"github.com/campushub/schedule-service/internal/repositories"
)

// fakeRepository is an in-memory Repository for service tests. Failure modes
// are injected per sub-repository via the fail* flags.
type fakeRepository struct {
	mu sync.Mutex

	users         map[string]*models.User
	schedules     map[string]*models.Schedule
	notifications map[string]*models.Notification
	outbox        map[string]*models.DispatchOutbox

	failScheduleCreate    bool
	failNotificationBatch bool

	// venues of committed schedule updates, in commit order
	venueWriteLog []string
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		users:         make(map[string]*models.User),
		schedules:     make(map[string]*models.Schedule),
		notifications: make(map[string]*models.Notification),
		outbox:        make(map[string]*models.DispatchOutbox),
	}
}

func (f *fakeRepository) addUser(user *models.User) *models.User {
	f.mu.Lock()
	defer f.mu.Unlock()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	f.users[user.ID] = user
	return user
}

func (f *fakeRepository) User() repositories.UserRepository                 { return (*fakeUserRepo)(f) }
func (f *fakeRepository) Schedule() repositories.ScheduleRepository         { return (*fakeScheduleRepo)(f) }
func (f *fakeRepository) Notification() repositories.NotificationRepository { return (*fakeNotifRepo)(f) }
func (f *fakeRepository) Outbox() repositories.OutboxRepository             { return (*fakeOutboxRepo)(f) }

func (f *fakeRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return fn(f)
}
func (f *fakeRepository) Ping(ctx context.Context) error { return nil }
func (f *fakeRepository) Close() error                   { return nil }

// ===== USERS =====

type fakeUserRepo fakeRepository

func (f *fakeUserRepo) Create(ctx context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, existing := range f.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return repositories.ErrDuplicateKey
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	user, ok := f.users[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	clone := *user
	return &clone, nil
}

func (f *fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, user := range f.users {
		if strings.EqualFold(user.Email, email) {
			clone := *user
			return &clone, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeUserRepo) Update(ctx context.Context, user *models.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.users[user.ID]; !ok {
		return repositories.ErrNotFound
	}
	clone := *user
	f.users[user.ID] = &clone
	return nil
}

func (f *fakeUserRepo) List(ctx context.Context, filters repositories.UserFilters) ([]*models.User, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.User
	for _, user := range f.users {
		if filters.Role != nil && user.Role != *filters.Role {
			continue
		}
		clone := *user
		out = append(out, &clone)
	}
	return out, int64(len(out)), nil
}

func (f *fakeUserRepo) ListIDs(ctx context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ids := make([]string, 0, len(f.users))
	for id := range f.users {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// ===== SCHEDULES =====

type fakeScheduleRepo fakeRepository

func (f *fakeScheduleRepo) Create(ctx context.Context, schedule *models.Schedule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failScheduleCreate {
		return repositories.ErrStoreUnavailable
	}
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}
	clone := *schedule
	f.schedules[schedule.ID] = &clone
	return nil
}

func (f *fakeScheduleRepo) GetByID(ctx context.Context, id string) (*models.Schedule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	schedule, ok := f.schedules[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	clone := *schedule
	return &clone, nil
}

func (f *fakeScheduleRepo) Update(ctx context.Context, schedule *models.Schedule) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.schedules[schedule.ID]; !ok {
		return repositories.ErrNotFound
	}
	clone := *schedule
	f.schedules[schedule.ID] = &clone
	f.venueWriteLog = append(f.venueWriteLog, schedule.Venue)
	return nil
}

func (f *fakeScheduleRepo) UpdateStatus(ctx context.Context, id string, status models.ScheduleStatus) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	schedule, ok := f.schedules[id]
	if !ok {
		return repositories.ErrNotFound
	}
	schedule.Status = status
	return nil
}

func (f *fakeScheduleRepo) Delete(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.schedules[id]; !ok {
		return repositories.ErrNotFound
	}
	delete(f.schedules, id)
	return nil
}

func (f *fakeScheduleRepo) List(ctx context.Context, filters repositories.ScheduleFilters) ([]*models.Schedule, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*models.Schedule
	for _, schedule := range f.schedules {
		if filters.Type != nil && schedule.Type != *filters.Type {
			continue
		}
		if filters.CourseCode != nil && schedule.CourseCode != *filters.CourseCode {
			continue
		}
		if filters.CreatedBy != nil && schedule.CreatedBy != *filters.CreatedBy {
			continue
		}
		if filters.DateFrom != nil && schedule.StartDate.Before(*filters.DateFrom) {
			continue
		}
		if filters.DateTo != nil && !schedule.StartDate.Before(*filters.DateTo) {
			continue
		}
		clone := *schedule
		out = append(out, &clone)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].StartDate.Before(out[j].StartDate)
	})

	total := int64(len(out))
	if filters.Offset > 0 {
		if filters.Offset >= len(out) {
			out = nil
		} else {
			out = out[filters.Offset:]
		}
	}
	if filters.Limit > 0 && len(out) > filters.Limit {
		out = out[:filters.Limit]
	}

	return out, total, nil
}

func (f *fakeScheduleRepo) GetByCreator(ctx context.Context, creatorID string, filters repositories.ScheduleFilters) ([]*models.Schedule, int64, error) {
	filters.CreatedBy = &creatorID
	return f.List(ctx, filters)
}

// ===== NOTIFICATIONS =====

type fakeNotifRepo fakeRepository

func (f *fakeNotifRepo) Create(ctx context.Context, notification *models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}
	clone := *notification
	f.notifications[notification.ID] = &clone
	return nil
}

func (f *fakeNotifRepo) CreateBatch(ctx context.Context, notifications []*models.Notification) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNotificationBatch {
		return repositories.ErrStoreUnavailable
	}
	for _, notification := range notifications {
		if notification.ID == "" {
			notification.ID = uuid.NewString()
		}
		clone := *notification
		f.notifications[notification.ID] = &clone
	}
	return nil
}

func (f *fakeNotifRepo) GetByID(ctx context.Context, id string) (*models.Notification, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	notification, ok := f.notifications[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	clone := *notification
	return &clone, nil
}

func (f *fakeNotifRepo) ListByUser(ctx context.Context, userID string, filters repositories.NotificationFilters) ([]*models.Notification, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*models.Notification
	for _, notification := range f.notifications {
		if notification.UserID != userID {
			continue
		}
		if filters.Read != nil && notification.Read != *filters.Read {
			continue
		}
		clone := *notification
		out = append(out, &clone)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	total := int64(len(out))
	if filters.Limit > 0 && len(out) > filters.Limit {
		out = out[:filters.Limit]
	}

	return out, total, nil
}

func (f *fakeNotifRepo) CountUnread(ctx context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, notification := range f.notifications {
		if notification.UserID == userID && !notification.Read {
			count++
		}
	}
	return count, nil
}

func (f *fakeNotifRepo) MarkRead(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	notification, ok := f.notifications[id]
	if !ok {
		return repositories.ErrNotFound
	}
	notification.Read = true
	return nil
}

func (f *fakeNotifRepo) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var count int64
	for _, notification := range f.notifications {
		if notification.UserID == userID && !notification.Read {
			notification.Read = true
			count++
		}
	}
	return count, nil
}

// ===== OUTBOX =====

type fakeOutboxRepo fakeRepository

func (f *fakeOutboxRepo) Create(ctx context.Context, entry *models.DispatchOutbox) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Status == "" {
		entry.Status = models.OutboxPending
	}
	clone := *entry
	f.outbox[entry.ID] = &clone
	return nil
}

func (f *fakeOutboxRepo) ListPending(ctx context.Context, maxAttempts, limit int) ([]*models.DispatchOutbox, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.DispatchOutbox
	for _, entry := range f.outbox {
		if entry.Status != models.OutboxPending || entry.Attempts >= maxAttempts {
			continue
		}
		clone := *entry
		out = append(out, &clone)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeOutboxRepo) MarkDispatched(ctx context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.outbox[id]
	if !ok {
		return repositories.ErrNotFound
	}
	entry.Status = models.OutboxDispatched
	return nil
}

func (f *fakeOutboxRepo) MarkAttemptFailed(ctx context.Context, id string, attemptErr string, maxAttempts int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry, ok := f.outbox[id]
	if !ok {
		return repositories.ErrNotFound
	}
	entry.Attempts++
	entry.LastError = &attemptErr
	if entry.Attempts >= maxAttempts {
		entry.Status = models.OutboxFailed
	}
	return nil
}

func (f *fakeRepository) venueWrites() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.venueWriteLog...)
}

func (f *fakeRepository) outboxEntries() []*models.DispatchOutbox {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.DispatchOutbox
	for _, entry := range f.outbox {
		clone := *entry
		out = append(out, &clone)
	}
	return out
}

func (f *fakeRepository) notificationsFor(userID string) []*models.Notification {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*models.Notification
	for _, notification := range f.notifications {
		if notification.UserID == userID {
			clone := *notification
			out = append(out, &clone)
		}
	}
	return out
}
