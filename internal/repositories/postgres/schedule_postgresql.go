package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/campushub/schedule-service/internal/models"
	"github.com/campushub/schedule-service/internal/repositories"
)

type SchedulePostgreSQL struct {
	db *gorm.DB
}

func NewSchedulePostgreSQL(db *gorm.DB) repositories.ScheduleRepository {
	return &SchedulePostgreSQL{db: db}
}

func (s *SchedulePostgreSQL) Create(ctx context.Context, schedule *models.Schedule) error {
	if schedule.ID == "" {
		schedule.ID = uuid.NewString()
	}

	if err := s.db.WithContext(ctx).Create(schedule).Error; err != nil {
		return fmt.Errorf("failed to create schedule: %w", repositories.TranslateError(err))
	}

	return nil
}

func (s *SchedulePostgreSQL) GetByID(ctx context.Context, id string) (*models.Schedule, error) {
	var schedule models.Schedule
	err := s.db.WithContext(ctx).First(&schedule, "id = ?", id).Error
	if err != nil {
		return nil, repositories.TranslateError(err)
	}

	return &schedule, nil
}

// Update writes the full field set. No concurrency token is compared:
// concurrent updates to the same id interleave and the later commit wins.
func (s *SchedulePostgreSQL) Update(ctx context.Context, schedule *models.Schedule) error {
	result := s.db.WithContext(ctx).
		Model(&models.Schedule{}).
		Where("id = ?", schedule.ID).
		Updates(map[string]interface{}{
			"type":         schedule.Type,
			"course_name":  schedule.CourseName,
			"course_code":  schedule.CourseCode,
			"description":  schedule.Description,
			"start_date":   schedule.StartDate,
			"end_date":     schedule.EndDate,
			"deadline":     schedule.Deadline,
			"time_of_day":  schedule.TimeOfDay,
			"venue":        schedule.Venue,
			"is_online":    schedule.IsOnline,
			"meeting_link": schedule.MeetingLink,
			"status":       schedule.Status,
			"attachments":  schedule.Attachments,
			"updated_at":   schedule.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update schedule: %w", repositories.TranslateError(result.Error))
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}

	return nil
}

// UpdateStatus refreshes the persisted status projection without touching
// any user-supplied field.
func (s *SchedulePostgreSQL) UpdateStatus(ctx context.Context, id string, status models.ScheduleStatus) error {
	result := s.db.WithContext(ctx).
		Model(&models.Schedule{}).
		Where("id = ?", id).
		Update("status", status)
	if result.Error != nil {
		return repositories.TranslateError(result.Error)
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}

	return nil
}

func (s *SchedulePostgreSQL) Delete(ctx context.Context, id string) error {
	result := s.db.WithContext(ctx).Delete(&models.Schedule{}, "id = ?", id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete schedule: %w", repositories.TranslateError(result.Error))
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}

	return nil
}

func (s *SchedulePostgreSQL) List(ctx context.Context, filters repositories.ScheduleFilters) ([]*models.Schedule, int64, error) {
	query := s.db.WithContext(ctx).Model(&models.Schedule{})
	query = applyScheduleFilters(query, filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, repositories.TranslateError(err)
	}

	query = applyPaginationAndSort(query, filters.SortBy, filters.SortOrder, filters.Limit, filters.Offset)

	var schedules []*models.Schedule
	if err := query.Find(&schedules).Error; err != nil {
		return nil, 0, repositories.TranslateError(err)
	}

	return schedules, total, nil
}

func (s *SchedulePostgreSQL) GetByCreator(ctx context.Context, creatorID string, filters repositories.ScheduleFilters) ([]*models.Schedule, int64, error) {
	filters.CreatedBy = &creatorID
	return s.List(ctx, filters)
}
