package services

import (
	"time"

	"github.com/campushub/schedule-service/internal/models"
)

// ComputeStatus derives a schedule's lifecycle status from wall-clock time.
// It is deterministic and side-effect free, and is re-evaluated on every
// read: the persisted status column is a query-efficiency projection only
// and is never trusted across a cache boundary.
//
// Rules, in order:
//  1. a passed deadline completes the schedule regardless of start/end
//  2. with an end date, the schedule is upcoming before the start, ongoing
//     within [start, end], completed after
//  3. without an end date the event is single-instant: upcoming before the
//     start, completed from the start onwards (never ongoing)
func ComputeStatus(now, startDate time.Time, endDate, deadline *time.Time) models.ScheduleStatus {
	if deadline != nil && now.After(*deadline) {
		return models.StatusCompleted
	}

	if endDate != nil {
		switch {
		case now.Before(startDate):
			return models.StatusUpcoming
		case now.After(*endDate):
			return models.StatusCompleted
		default:
			return models.StatusOngoing
		}
	}

	if now.Before(startDate) {
		return models.StatusUpcoming
	}
	return models.StatusCompleted
}

// refreshStatus recomputes and applies the status projection in place,
// reporting whether it changed.
func refreshStatus(schedule *models.Schedule, now time.Time) bool {
	status := ComputeStatus(now, schedule.StartDate, schedule.EndDate, schedule.Deadline)
	if schedule.Status == status {
		return false
	}
	schedule.Status = status
	return true
}
