package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/campushub/schedule-service/internal/cache"
	"github.com/campushub/schedule-service/internal/models"
	"github.com/campushub/schedule-service/internal/repositories"
	"github.com/campushub/schedule-service/internal/validator"
)

// storeOpTimeout bounds every store round-trip made by a single service
// operation. Cache calls fail open on their own timeouts.
const storeOpTimeout = 10 * time.Second

type scheduleService struct {
	repo       repositories.Repository
	cache      *cache.CacheHelper
	dispatcher NotificationDispatcher
	logger     *slog.Logger
	validator  *validator.Validator

	now func() time.Time
}

func NewScheduleService(repo repositories.Repository, cacheHelper *cache.CacheHelper, dispatcher NotificationDispatcher, logger *slog.Logger, v *validator.Validator) ScheduleService {
	return &scheduleService{
		repo:       repo,
		cache:      cacheHelper,
		dispatcher: dispatcher,
		logger:     logger,
		validator:  v,
		now:        time.Now,
	}
}

// ===== CORE CRUD OPERATIONS =====

func (s *scheduleService) Create(ctx context.Context, req *CreateScheduleRequest, actorID string) (*ScheduleResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, storeOpTimeout)
	defer cancel()

	s.logger.Info("Creating schedule", "actor_id", actorID, "course_code", req.CourseCode, "type", req.Type)

	if errs := s.validator.GetBusinessValidator().ValidateScheduleCreate(req); len(errs) > 0 {
		return nil, errs
	}

	actor, err := s.getActor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	// Coordinators create any schedule type; students are limited to
	// personal reminder classes visible only to themselves.
	if actor.Role != models.RoleCoordinator && req.Type != models.TypeClass {
		return nil, NewPermissionError(actorID, "", "schedule", "create", "only coordinators may create this schedule type")
	}

	now := s.now()
	schedule := &models.Schedule{
		Type:        req.Type,
		CourseName:  req.CourseName,
		CourseCode:  req.CourseCode,
		Description: req.Description,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Deadline:    req.Deadline,
		TimeOfDay:   req.TimeOfDay,
		Venue:       req.Venue,
		IsOnline:    req.IsOnline,
		MeetingLink: req.MeetingLink,
		Attachments: req.Attachments,
		CreatedBy:   actorID,
		CreatedAt:   now,
		UpdatedAt:   now,
		Status:      ComputeStatus(now, req.StartDate, req.EndDate, req.Deadline),
	}

	// A failed store write must not trigger invalidation or dispatch.
	if err := s.repo.Schedule().Create(ctx, schedule); err != nil {
		return nil, fmt.Errorf("failed to create schedule: %w", err)
	}

	cache.InvalidateScheduleCache(ctx, s.cache, actorID, cache.DateBucket(schedule.StartDate))

	if err := s.dispatcher.OnScheduleEvent(ctx, &ScheduleEvent{Kind: EventKindCreated, Schedule: schedule}); err != nil {
		return nil, fmt.Errorf("schedule created but notification dispatch could not be recorded: %w", err)
	}

	s.logger.Info("Schedule created", "schedule_id", schedule.ID, "status", schedule.Status)

	return s.buildResponse(schedule, actor), nil
}

func (s *scheduleService) GetByID(ctx context.Context, id string, actorID string) (*ScheduleResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, storeOpTimeout)
	defer cancel()

	actor, err := s.getActor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	schedule, err := s.repo.Schedule().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrScheduleNotFound
		}
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}

	refreshStatus(schedule, s.now())

	return s.buildResponse(schedule, actor), nil
}

func (s *scheduleService) Update(ctx context.Context, id string, req *UpdateScheduleRequest, actorID string) (*ScheduleResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, storeOpTimeout)
	defer cancel()

	s.logger.Info("Updating schedule", "schedule_id", id, "actor_id", actorID)

	actor, err := s.getActor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	schedule, err := s.repo.Schedule().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrScheduleNotFound
		}
		return nil, fmt.Errorf("failed to get schedule: %w", err)
	}

	if !s.canMutate(actor, schedule) {
		return nil, NewPermissionError(actorID, id, "schedule", "update", "not creator or coordinator")
	}

	if errs := s.validator.GetBusinessValidator().ValidateScheduleUpdate(req, schedule); len(errs) > 0 {
		return nil, errs
	}

	before := *schedule
	oldBucket := cache.DateBucket(schedule.StartDate)

	applyScheduleUpdates(schedule, req)
	now := s.now()
	schedule.UpdatedAt = now
	schedule.Status = ComputeStatus(now, schedule.StartDate, schedule.EndDate, schedule.Deadline)

	// Last-write-wins: no version token is compared, the later commit
	// determines final state.
	if err := s.repo.Schedule().Update(ctx, schedule); err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrScheduleNotFound
		}
		return nil, fmt.Errorf("failed to update schedule: %w", err)
	}

	// Date changes move the schedule between buckets: drop both.
	newBucket := cache.DateBucket(schedule.StartDate)
	if newBucket != oldBucket {
		cache.InvalidateScheduleCache(ctx, s.cache, schedule.CreatedBy, oldBucket, newBucket)
	} else {
		cache.InvalidateScheduleCache(ctx, s.cache, schedule.CreatedBy, oldBucket)
	}

	if err := s.dispatcher.OnScheduleEvent(ctx, &ScheduleEvent{Kind: EventKindUpdated, Schedule: schedule, Before: &before}); err != nil {
		return nil, fmt.Errorf("schedule updated but notification dispatch could not be recorded: %w", err)
	}

	s.logger.Info("Schedule updated", "schedule_id", id)

	return s.buildResponse(schedule, actor), nil
}

func (s *scheduleService) Delete(ctx context.Context, id string, actorID string) error {
	ctx, cancel := context.WithTimeout(ctx, storeOpTimeout)
	defer cancel()

	s.logger.Info("Deleting schedule", "schedule_id", id, "actor_id", actorID)

	actor, err := s.getActor(ctx, actorID)
	if err != nil {
		return err
	}

	schedule, err := s.repo.Schedule().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrScheduleNotFound
		}
		return fmt.Errorf("failed to get schedule: %w", err)
	}

	if !s.canMutate(actor, schedule) {
		return NewPermissionError(actorID, id, "schedule", "delete", "not creator or coordinator")
	}

	if err := s.repo.Schedule().Delete(ctx, id); err != nil {
		if repositories.IsNotFoundError(err) {
			return ErrScheduleNotFound
		}
		return fmt.Errorf("failed to delete schedule: %w", err)
	}

	cache.InvalidateScheduleCache(ctx, s.cache, schedule.CreatedBy, cache.DateBucket(schedule.StartDate))

	// Prior notifications referencing this schedule are kept as historical
	// records; only an informational deletion notice is emitted.
	if err := s.dispatcher.OnScheduleEvent(ctx, &ScheduleEvent{Kind: EventKindDeleted, Schedule: schedule}); err != nil {
		return fmt.Errorf("schedule deleted but notification dispatch could not be recorded: %w", err)
	}

	s.logger.Info("Schedule deleted", "schedule_id", id)
	return nil
}

// ===== LIST OPERATIONS =====

// List is a cache-aside read: the cache is consulted first, the store on a
// miss, and the entry repopulated. Status is recomputed before returning in
// both cases; the cached status field is never trusted.
func (s *scheduleService) List(ctx context.Context, filters repositories.ScheduleFilters, actorID string) (*ScheduleListResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, storeOpTimeout)
	defer cancel()

	actor, err := s.getActor(ctx, actorID)
	if err != nil {
		return nil, err
	}

	key, cacheable := listCacheKey(filters)

	if cacheable {
		var cached []*models.Schedule
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			now := s.now()
			for _, schedule := range cached {
				refreshStatus(schedule, now)
			}
			return s.buildListResponse(cached, int64(len(cached)), actor), nil
		}
		// Errors and misses alike fall through to the store (fail-open).
	}

	schedules, total, err := s.repo.Schedule().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules: %w", err)
	}

	s.refreshProjections(ctx, schedules)

	if cacheable {
		cache.SafeSet(ctx, s.cache, key, schedules, cache.DefaultTTL)
	}

	return s.buildListResponse(schedules, total, actor), nil
}

func (s *scheduleService) GetByCreator(ctx context.Context, creatorID string, filters repositories.ScheduleFilters, actorID string) (*ScheduleListResponse, error) {
	filters.CreatedBy = &creatorID
	return s.List(ctx, filters, actorID)
}

// RefreshStatuses pages through the stored schedules and persists any status
// projection that drifted since the last write.
func (s *scheduleService) RefreshStatuses(ctx context.Context) (int, error) {
	const pageSize = 200

	now := s.now()
	refreshed := 0

	for offset := 0; ; offset += pageSize {
		schedules, _, err := s.repo.Schedule().List(ctx, repositories.ScheduleFilters{
			Limit:  pageSize,
			Offset: offset,
		})
		if err != nil {
			return refreshed, fmt.Errorf("failed to list schedules for refresh: %w", err)
		}

		for _, schedule := range schedules {
			if !refreshStatus(schedule, now) {
				continue
			}
			if err := s.repo.Schedule().UpdateStatus(ctx, schedule.ID, schedule.Status); err != nil {
				s.logger.Error("Failed to refresh schedule status",
					"error", err,
					"schedule_id", schedule.ID)
				continue
			}
			refreshed++
		}

		if len(schedules) < pageSize {
			break
		}
	}

	if refreshed > 0 {
		s.logger.Info("Refreshed schedule status projections", "count", refreshed)
	}

	return refreshed, nil
}
