package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/campushub/schedule-service/internal/models"
	"github.com/campushub/schedule-service/internal/repositories"
)

type exportService struct {
	repo   repositories.Repository
	logger *slog.Logger

	now func() time.Time
}

func NewExportService(repo repositories.Repository, logger *slog.Logger) ExportService {
	return &exportService{
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// ExportSchedules renders the filtered schedules as an xlsx workbook.
// Statuses are recomputed at export time so the sheet never carries a stale
// projection. Coordinator only.
func (e *exportService) ExportSchedules(ctx context.Context, filters repositories.ScheduleFilters, actorID string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, storeOpTimeout)
	defer cancel()

	actor, err := e.repo.User().GetByID(ctx, actorID)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if actor.Role != models.RoleCoordinator {
		return nil, NewPermissionError(actorID, "", "schedule", "export", "only coordinators may export schedules")
	}

	schedules, _, err := e.repo.Schedule().List(ctx, filters)
	if err != nil {
		return nil, fmt.Errorf("failed to list schedules for export: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheetName = "Schedules"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, fmt.Errorf("failed to create export sheet: %w", err)
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headers := []string{"Course Code", "Course Name", "Type", "Status", "Start Date", "End Date", "Deadline", "Time", "Venue", "Online", "Created By"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, header)
	}

	now := e.now()
	for i, s := range schedules {
		refreshStatus(s, now)
		row := i + 2
		f.SetCellValue(sheetName, fmt.Sprintf("A%d", row), s.CourseCode)
		f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), s.CourseName)
		f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), string(s.Type))
		f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), string(s.Status))
		f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), s.StartDate.Format("2006-01-02"))
		if s.EndDate != nil {
			f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), s.EndDate.Format("2006-01-02"))
		}
		if s.Deadline != nil {
			f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), s.Deadline.Format("2006-01-02 15:04"))
		}
		f.SetCellValue(sheetName, fmt.Sprintf("H%d", row), s.TimeOfDay)
		venue := s.Venue
		if s.IsOnline && s.MeetingLink != nil {
			venue = *s.MeetingLink
		}
		f.SetCellValue(sheetName, fmt.Sprintf("I%d", row), venue)
		f.SetCellValue(sheetName, fmt.Sprintf("J%d", row), s.IsOnline)
		f.SetCellValue(sheetName, fmt.Sprintf("K%d", row), s.CreatedBy)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to render export workbook: %w", err)
	}

	e.logger.Info("Exported schedules", "actor_id", actorID, "count", len(schedules))

	return buf.Bytes(), nil
}
