package services

import (
	"context"
	"time"

	"github.com/campushub/schedule-service/internal/cache"
	"github.com/campushub/schedule-service/internal/models"
	"github.com/campushub/schedule-service/internal/repositories"
)

func (s *scheduleService) getActor(ctx context.Context, actorID string) (*models.User, error) {
	actor, err := s.repo.User().GetByID(ctx, actorID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return actor, nil
}

func (s *scheduleService) canMutate(actor *models.User, schedule *models.Schedule) bool {
	return actor.Role == models.RoleCoordinator || schedule.CreatedBy == actor.ID
}

func (s *scheduleService) buildResponse(schedule *models.Schedule, actor *models.User) *ScheduleResponse {
	canMutate := s.canMutate(actor, schedule)
	return &ScheduleResponse{
		Schedule:  schedule,
		CanEdit:   canMutate,
		CanDelete: canMutate,
	}
}

func (s *scheduleService) buildListResponse(schedules []*models.Schedule, total int64, actor *models.User) *ScheduleListResponse {
	responses := make([]*ScheduleResponse, len(schedules))
	for i, schedule := range schedules {
		responses[i] = s.buildResponse(schedule, actor)
	}
	return &ScheduleListResponse{Schedules: responses, Total: total}
}

// refreshProjections recomputes statuses after a store read and persists the
// ones that drifted, best-effort, so the stored projection stays useful for
// status-filtered queries.
func (s *scheduleService) refreshProjections(ctx context.Context, schedules []*models.Schedule) {
	now := s.now()
	for _, schedule := range schedules {
		if !refreshStatus(schedule, now) {
			continue
		}
		if err := s.repo.Schedule().UpdateStatus(ctx, schedule.ID, schedule.Status); err != nil {
			s.logger.Warn("Failed to persist status projection",
				"error", err,
				"schedule_id", schedule.ID)
		}
	}
}

// applyScheduleUpdates merges a patch into the stored schedule. Nil fields
// leave the current value unchanged.
func applyScheduleUpdates(schedule *models.Schedule, req *UpdateScheduleRequest) {
	if req.CourseName != nil {
		schedule.CourseName = *req.CourseName
	}
	if req.CourseCode != nil {
		schedule.CourseCode = *req.CourseCode
	}
	if req.Description != nil {
		schedule.Description = req.Description
	}
	if req.StartDate != nil {
		schedule.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		schedule.EndDate = req.EndDate
	}
	if req.Deadline != nil {
		schedule.Deadline = req.Deadline
	}
	if req.TimeOfDay != nil {
		schedule.TimeOfDay = *req.TimeOfDay
	}
	if req.Venue != nil {
		schedule.Venue = *req.Venue
	}
	if req.IsOnline != nil {
		schedule.IsOnline = *req.IsOnline
	}
	if req.MeetingLink != nil {
		schedule.MeetingLink = req.MeetingLink
	}
	if req.Attachments != nil {
		schedule.Attachments = req.Attachments
	}
}

// listCacheKey derives the cache key for a list query from its normalized
// date range. Only queries with a stable key in the grammar are cached:
// creator-scoped lists (user:<id>:schedules) and single-day windows
// (schedules:<YYYY-MM-DD>). Everything else goes straight to the store,
// since no grammar key could be invalidated soundly for it.
func listCacheKey(filters repositories.ScheduleFilters) (string, bool) {
	// Field filters, pagination and sort all change the result shape; the
	// grammar key only describes the default listing, so anything else must
	// bypass the cache or a limited page would be served as the full list.
	if filters.Type != nil || filters.CourseCode != nil ||
		filters.Limit != 0 || filters.Offset != 0 ||
		filters.SortBy != "" || filters.SortOrder != "" {
		return "", false
	}

	if filters.CreatedBy != nil && filters.DateFrom == nil && filters.DateTo == nil {
		return cache.UserSchedulesKey(*filters.CreatedBy), true
	}

	if filters.CreatedBy == nil && filters.DateFrom != nil && filters.DateTo != nil {
		bucket := cache.DateBucket(*filters.DateFrom)
		// The window must stay inside one calendar day for the bucket key
		// to cover it.
		if cache.DateBucket(filters.DateTo.Add(-time.Nanosecond)) == bucket && filters.DateTo.After(*filters.DateFrom) {
			return cache.ScheduleBucketKey(bucket), true
		}
	}

	return "", false
}
