package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/campushub/schedule-service/internal/cache"
	"github.com/campushub/schedule-service/internal/events"
	"github.com/campushub/schedule-service/internal/models"
	"github.com/campushub/schedule-service/internal/repositories"
	"github.com/campushub/schedule-service/internal/validator"
)

type scheduleTestEnv struct {
	repo      *fakeRepository
	mini      *miniredis.Miniredis
	cache     *cache.CacheHelper
	publisher *events.MockEventPublisher
	service   *scheduleService
	now       time.Time

	coordinator *models.User
	student     *models.User
}

func newScheduleTestEnv(t *testing.T) *scheduleTestEnv {
	t.Helper()

	mini := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { client.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := newFakeRepository()
	cacheHelper := cache.NewCacheHelper(client)
	publisher := events.NewMockEventPublisher(logger)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	dispatcher := &notificationDispatcher{
		repo:      repo,
		cache:     cacheHelper,
		publisher: publisher,
		logger:    logger,
		now:       func() time.Time { return now },
	}

	service := &scheduleService{
		repo:       repo,
		cache:      cacheHelper,
		dispatcher: dispatcher,
		logger:     logger,
		validator:  validator.New(),
		now:        func() time.Time { return now },
	}

	env := &scheduleTestEnv{
		repo:      repo,
		mini:      mini,
		cache:     cacheHelper,
		publisher: publisher,
		service:   service,
		now:       now,
	}

	env.coordinator = repo.addUser(&models.User{
		Email:    "coordinator@campus.edu",
		FullName: "Course Coordinator",
		Role:     models.RoleCoordinator,
	})
	env.student = repo.addUser(&models.User{
		Email:    "student@campus.edu",
		FullName: "A Student",
		Role:     models.RoleStudent,
	})

	return env
}

func examRequest(start time.Time) *CreateScheduleRequest {
	return &CreateScheduleRequest{
		Type:       models.TypeExam,
		CourseName: "Organic Chemistry",
		CourseCode: "CHM107",
		StartDate:  start,
		TimeOfDay:  "09:00",
		Venue:      "Hall B",
	}
}

func TestScheduleCreate(t *testing.T) {
	t.Run("coordinator creates exam and all users are notified", func(t *testing.T) {
		env := newScheduleTestEnv(t)

		resp, err := env.service.Create(context.Background(), examRequest(env.now.AddDate(0, 0, 9)), env.coordinator.ID)
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		if resp.Schedule.ID == "" {
			t.Error("Expected schedule to receive an id")
		}
		if resp.Status != models.StatusUpcoming {
			t.Errorf("Expected upcoming status, got %s", resp.Status)
		}
		if !resp.CanEdit || !resp.CanDelete {
			t.Error("Creator should be able to edit and delete")
		}

		// Broadcast fanout: one notification per registered user.
		for _, userID := range []string{env.coordinator.ID, env.student.ID} {
			notifications := env.repo.notificationsFor(userID)
			if len(notifications) != 1 {
				t.Fatalf("Expected 1 notification for %s, got %d", userID, len(notifications))
			}
			if notifications[0].Kind != models.NotificationScheduleCreated {
				t.Errorf("Expected schedule_created kind, got %s", notifications[0].Kind)
			}
		}

		published := env.publisher.GetPublishedEvents()
		if len(published) != 1 {
			t.Fatalf("Expected 1 published event, got %d", len(published))
		}
		if published[0].Type != events.EventScheduleCreated {
			t.Errorf("Expected %s event, got %s", events.EventScheduleCreated, published[0].Type)
		}
		if published[0].Source != events.EventSource {
			t.Errorf("Expected source %s, got %s", events.EventSource, published[0].Source)
		}
		if published[0].Version != events.EventVersion {
			t.Errorf("Expected version %s, got %s", events.EventVersion, published[0].Version)
		}
	})

	t.Run("student may only create class reminders", func(t *testing.T) {
		env := newScheduleTestEnv(t)

		_, err := env.service.Create(context.Background(), examRequest(env.now.AddDate(0, 0, 9)), env.student.ID)

		var permissionError *PermissionError
		if !errors.As(err, &permissionError) {
			t.Fatalf("Expected PermissionError, got %v", err)
		}
	})

	t.Run("student class notifies only the owner", func(t *testing.T) {
		env := newScheduleTestEnv(t)

		req := examRequest(env.now.AddDate(0, 0, 2))
		req.Type = models.TypeClass

		if _, err := env.service.Create(context.Background(), req, env.student.ID); err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		if got := len(env.repo.notificationsFor(env.student.ID)); got != 1 {
			t.Errorf("Expected 1 notification for owner, got %d", got)
		}
		if got := len(env.repo.notificationsFor(env.coordinator.ID)); got != 0 {
			t.Errorf("Expected no notification for coordinator, got %d", got)
		}
	})

	t.Run("end date before start date is rejected", func(t *testing.T) {
		env := newScheduleTestEnv(t)

		req := examRequest(env.now.AddDate(0, 0, 9))
		end := req.StartDate.Add(-time.Hour)
		req.EndDate = &end

		_, err := env.service.Create(context.Background(), req, env.coordinator.ID)

		var validationErrors validator.ValidationErrors
		if !errors.As(err, &validationErrors) {
			t.Fatalf("Expected ValidationErrors, got %v", err)
		}
	})

	t.Run("deadline only valid for assignments", func(t *testing.T) {
		env := newScheduleTestEnv(t)

		req := examRequest(env.now.AddDate(0, 0, 9))
		deadline := req.StartDate.Add(24 * time.Hour)
		req.Deadline = &deadline

		if _, err := env.service.Create(context.Background(), req, env.coordinator.ID); err == nil {
			t.Fatal("Expected validation error for deadline on exam")
		}
	})

	t.Run("store failure triggers no fanout", func(t *testing.T) {
		env := newScheduleTestEnv(t)
		env.repo.failScheduleCreate = true

		_, err := env.service.Create(context.Background(), examRequest(env.now.AddDate(0, 0, 9)), env.coordinator.ID)
		if err == nil {
			t.Fatal("Expected error from failed store write")
		}

		if got := len(env.repo.outboxEntries()); got != 0 {
			t.Errorf("Expected no outbox entries after failed create, got %d", got)
		}
		if got := len(env.publisher.GetPublishedEvents()); got != 0 {
			t.Errorf("Expected no published events after failed create, got %d", got)
		}
	})
}

func TestScheduleList(t *testing.T) {
	t.Run("creator scoped list is cached and second call hits", func(t *testing.T) {
		env := newScheduleTestEnv(t)
		ctx := context.Background()

		if _, err := env.service.Create(ctx, examRequest(env.now.AddDate(0, 0, 9)), env.coordinator.ID); err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		filters := repositories.ScheduleFilters{CreatedBy: &env.coordinator.ID}

		first, err := env.service.List(ctx, filters, env.coordinator.ID)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(first.Schedules) != 1 {
			t.Fatalf("Expected 1 schedule, got %d", len(first.Schedules))
		}

		key := cache.UserSchedulesKey(env.coordinator.ID)
		if !env.mini.Exists(key) {
			t.Fatalf("Expected cache key %s after miss-and-repopulate", key)
		}

		// Remove from the store; a cache hit still serves the entry.
		env.repo.mu.Lock()
		for id := range env.repo.schedules {
			delete(env.repo.schedules, id)
		}
		env.repo.mu.Unlock()

		second, err := env.service.List(ctx, filters, env.coordinator.ID)
		if err != nil {
			t.Fatalf("Second List failed: %v", err)
		}
		if len(second.Schedules) != 1 {
			t.Errorf("Expected cached schedule on second call, got %d", len(second.Schedules))
		}
	})

	t.Run("cached entries get status recomputed on read", func(t *testing.T) {
		env := newScheduleTestEnv(t)
		ctx := context.Background()

		if _, err := env.service.Create(ctx, examRequest(env.now.Add(time.Hour)), env.coordinator.ID); err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		filters := repositories.ScheduleFilters{CreatedBy: &env.coordinator.ID}
		first, err := env.service.List(ctx, filters, env.coordinator.ID)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if first.Schedules[0].Status != models.StatusUpcoming {
			t.Fatalf("Expected upcoming, got %s", first.Schedules[0].Status)
		}

		// Clock passes the start; the cached entry must not pin the old status.
		env.service.now = func() time.Time { return env.now.Add(2 * time.Hour) }

		second, err := env.service.List(ctx, filters, env.coordinator.ID)
		if err != nil {
			t.Fatalf("Second List failed: %v", err)
		}
		if second.Schedules[0].Status != models.StatusCompleted {
			t.Errorf("Expected completed after start passed, got %s", second.Schedules[0].Status)
		}
	})

	t.Run("limited lists bypass the cache and do not shadow the full list", func(t *testing.T) {
		env := newScheduleTestEnv(t)
		ctx := context.Background()

		if _, err := env.service.Create(ctx, examRequest(env.now.AddDate(0, 0, 9)), env.coordinator.ID); err != nil {
			t.Fatalf("Create failed: %v", err)
		}
		if _, err := env.service.Create(ctx, examRequest(env.now.AddDate(0, 0, 10)), env.coordinator.ID); err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		key := cache.UserSchedulesKey(env.coordinator.ID)

		limited, err := env.service.List(ctx, repositories.ScheduleFilters{CreatedBy: &env.coordinator.ID, Limit: 1}, env.coordinator.ID)
		if err != nil {
			t.Fatalf("Limited List failed: %v", err)
		}
		if len(limited.Schedules) != 1 || limited.Total != 2 {
			t.Fatalf("Expected 1 of 2 schedules, got len=%d total=%d", len(limited.Schedules), limited.Total)
		}
		if env.mini.Exists(key) {
			t.Fatal("Limited list must not populate the creator list entry")
		}

		sorted, err := env.service.List(ctx, repositories.ScheduleFilters{CreatedBy: &env.coordinator.ID, SortBy: "course_code", SortOrder: "desc"}, env.coordinator.ID)
		if err != nil {
			t.Fatalf("Sorted List failed: %v", err)
		}
		if len(sorted.Schedules) != 2 {
			t.Fatalf("Expected 2 schedules, got %d", len(sorted.Schedules))
		}
		if env.mini.Exists(key) {
			t.Fatal("Sorted list must not populate the creator list entry")
		}

		full, err := env.service.List(ctx, repositories.ScheduleFilters{CreatedBy: &env.coordinator.ID}, env.coordinator.ID)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(full.Schedules) != 2 || full.Total != 2 {
			t.Errorf("Expected the full list, got len=%d total=%d", len(full.Schedules), full.Total)
		}
		if !env.mini.Exists(key) {
			t.Error("Expected the default listing to populate the creator list entry")
		}
	})

	t.Run("cache outage falls open to the store", func(t *testing.T) {
		env := newScheduleTestEnv(t)
		ctx := context.Background()

		if _, err := env.service.Create(ctx, examRequest(env.now.AddDate(0, 0, 9)), env.coordinator.ID); err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		env.mini.SetError("cache down")

		filters := repositories.ScheduleFilters{CreatedBy: &env.coordinator.ID}
		resp, err := env.service.List(ctx, filters, env.coordinator.ID)
		if err != nil {
			t.Fatalf("List should survive cache outage: %v", err)
		}
		if len(resp.Schedules) != 1 {
			t.Errorf("Expected 1 schedule from store, got %d", len(resp.Schedules))
		}
	})

	t.Run("single day window uses the date bucket key", func(t *testing.T) {
		env := newScheduleTestEnv(t)
		ctx := context.Background()

		start := env.now.AddDate(0, 0, 9)
		if _, err := env.service.Create(ctx, examRequest(start), env.coordinator.ID); err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		dayStart := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
		dayEnd := dayStart.AddDate(0, 0, 1)
		filters := repositories.ScheduleFilters{DateFrom: &dayStart, DateTo: &dayEnd}

		if _, err := env.service.List(ctx, filters, env.student.ID); err != nil {
			t.Fatalf("List failed: %v", err)
		}

		key := cache.ScheduleBucketKey(cache.DateBucket(dayStart))
		if !env.mini.Exists(key) {
			t.Errorf("Expected date bucket key %s to be populated", key)
		}
	})
}

func TestScheduleUpdate(t *testing.T) {
	t.Run("other students cannot update", func(t *testing.T) {
		env := newScheduleTestEnv(t)
		ctx := context.Background()

		req := examRequest(env.now.AddDate(0, 0, 2))
		req.Type = models.TypeClass
		created, err := env.service.Create(ctx, req, env.student.ID)
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		other := env.repo.addUser(&models.User{
			Email:    "other@campus.edu",
			FullName: "Other Student",
			Role:     models.RoleStudent,
		})

		venue := "Moved"
		_, err = env.service.Update(ctx, created.Schedule.ID, &UpdateScheduleRequest{Venue: &venue}, other.ID)

		var permissionError *PermissionError
		if !errors.As(err, &permissionError) {
			t.Fatalf("Expected PermissionError, got %v", err)
		}
	})

	t.Run("coordinator can update any schedule and caches invalidate", func(t *testing.T) {
		env := newScheduleTestEnv(t)
		ctx := context.Background()

		req := examRequest(env.now.AddDate(0, 0, 2))
		req.Type = models.TypeClass
		created, err := env.service.Create(ctx, req, env.student.ID)
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		// Warm the creator-scoped list entry.
		filters := repositories.ScheduleFilters{CreatedBy: &env.student.ID}
		if _, err := env.service.List(ctx, filters, env.student.ID); err != nil {
			t.Fatalf("List failed: %v", err)
		}
		key := cache.UserSchedulesKey(env.student.ID)
		if !env.mini.Exists(key) {
			t.Fatal("Expected warmed cache entry before update")
		}

		venue := "Hall C"
		updated, err := env.service.Update(ctx, created.Schedule.ID, &UpdateScheduleRequest{Venue: &venue}, env.coordinator.ID)
		if err != nil {
			t.Fatalf("Update failed: %v", err)
		}
		if updated.Venue != "Hall C" {
			t.Errorf("Expected venue update, got %s", updated.Venue)
		}

		if env.mini.Exists(key) {
			t.Error("Expected creator list entry to be invalidated after update")
		}
	})

	t.Run("concurrent venue updates both succeed and the later commit wins", func(t *testing.T) {
		env := newScheduleTestEnv(t)
		ctx := context.Background()

		created, err := env.service.Create(ctx, examRequest(env.now.AddDate(0, 0, 9)), env.coordinator.ID)
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		venues := []string{"Hall C", "Hall D"}
		updateErrs := make([]error, len(venues))

		var wg sync.WaitGroup
		for i, venue := range venues {
			wg.Add(1)
			go func(i int, venue string) {
				defer wg.Done()
				_, updateErrs[i] = env.service.Update(ctx, created.Schedule.ID, &UpdateScheduleRequest{Venue: &venue}, env.coordinator.ID)
			}(i, venue)
		}
		wg.Wait()

		for i, err := range updateErrs {
			if err != nil {
				t.Fatalf("Update %d failed: %v", i, err)
			}
		}

		stored, err := env.repo.Schedule().GetByID(ctx, created.Schedule.ID)
		if err != nil {
			t.Fatalf("GetByID failed: %v", err)
		}
		if stored.Venue != "Hall C" && stored.Venue != "Hall D" {
			t.Fatalf("Expected one of the written venues, got %q", stored.Venue)
		}

		writes := env.repo.venueWrites()
		if len(writes) != 2 {
			t.Fatalf("Expected 2 committed writes, got %d", len(writes))
		}
		if stored.Venue != writes[len(writes)-1] {
			t.Errorf("Expected venue of the later commit %q, got %q", writes[len(writes)-1], stored.Venue)
		}
	})

	t.Run("moving the date drops both buckets", func(t *testing.T) {
		env := newScheduleTestEnv(t)
		ctx := context.Background()

		start := env.now.AddDate(0, 0, 9)
		created, err := env.service.Create(ctx, examRequest(start), env.coordinator.ID)
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		oldKey := cache.ScheduleBucketKey(cache.DateBucket(start))
		newStart := start.AddDate(0, 0, 1)
		newKey := cache.ScheduleBucketKey(cache.DateBucket(newStart))
		env.mini.Set(oldKey, "[]")
		env.mini.Set(newKey, "[]")

		if _, err := env.service.Update(ctx, created.Schedule.ID, &UpdateScheduleRequest{StartDate: &newStart}, env.coordinator.ID); err != nil {
			t.Fatalf("Update failed: %v", err)
		}

		if env.mini.Exists(oldKey) {
			t.Error("Expected old date bucket to be invalidated")
		}
		if env.mini.Exists(newKey) {
			t.Error("Expected new date bucket to be invalidated")
		}
	})
}

func TestScheduleDelete(t *testing.T) {
	t.Run("prior notifications survive and a deletion notice is added", func(t *testing.T) {
		env := newScheduleTestEnv(t)
		ctx := context.Background()

		created, err := env.service.Create(ctx, examRequest(env.now.AddDate(0, 0, 9)), env.coordinator.ID)
		if err != nil {
			t.Fatalf("Create failed: %v", err)
		}

		before := len(env.repo.notificationsFor(env.student.ID))
		if before != 1 {
			t.Fatalf("Expected 1 prior notification, got %d", before)
		}

		if err := env.service.Delete(ctx, created.Schedule.ID, env.coordinator.ID); err != nil {
			t.Fatalf("Delete failed: %v", err)
		}

		notifications := env.repo.notificationsFor(env.student.ID)
		if len(notifications) != 2 {
			t.Fatalf("Expected prior notification plus deletion notice, got %d", len(notifications))
		}

		var sawDeleted bool
		for _, notification := range notifications {
			if notification.Kind == models.NotificationScheduleDeleted {
				sawDeleted = true
			}
		}
		if !sawDeleted {
			t.Error("Expected a schedule_deleted notification")
		}

		if _, err := env.service.GetByID(ctx, created.Schedule.ID, env.coordinator.ID); !errors.Is(err, ErrScheduleNotFound) {
			t.Errorf("Expected ErrScheduleNotFound after delete, got %v", err)
		}
	})
}

func TestScheduleDispatchFailure(t *testing.T) {
	t.Run("publish failure leaves the mutation committed and outbox pending", func(t *testing.T) {
		env := newScheduleTestEnv(t)
		env.publisher.SetFailing(true)

		resp, err := env.service.Create(context.Background(), examRequest(env.now.AddDate(0, 0, 9)), env.coordinator.ID)
		if err != nil {
			t.Fatalf("Create should succeed despite publish failure: %v", err)
		}

		if _, getErr := env.repo.Schedule().GetByID(context.Background(), resp.Schedule.ID); getErr != nil {
			t.Fatalf("Expected schedule committed, got %v", getErr)
		}

		entries := env.repo.outboxEntries()
		if len(entries) != 1 {
			t.Fatalf("Expected 1 outbox entry, got %d", len(entries))
		}
		if entries[0].Status != models.OutboxPending {
			t.Errorf("Expected pending outbox entry, got %s", entries[0].Status)
		}
		if entries[0].Attempts != 1 {
			t.Errorf("Expected 1 recorded attempt, got %d", entries[0].Attempts)
		}
	})
}

func TestRefreshStatuses(t *testing.T) {
	env := newScheduleTestEnv(t)
	ctx := context.Background()

	// One upcoming, one already past at creation time.
	if _, err := env.service.Create(ctx, examRequest(env.now.AddDate(0, 0, 9)), env.coordinator.ID); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := env.service.Create(ctx, examRequest(env.now.Add(time.Hour)), env.coordinator.ID); err != nil {
		t.Fatalf("Create failed: %v", err)
	}

	// Clock advances past the second schedule's start only.
	env.service.now = func() time.Time { return env.now.Add(2 * time.Hour) }

	refreshed, err := env.service.RefreshStatuses(ctx)
	if err != nil {
		t.Fatalf("RefreshStatuses failed: %v", err)
	}
	if refreshed != 1 {
		t.Errorf("Expected 1 refreshed projection, got %d", refreshed)
	}
}
