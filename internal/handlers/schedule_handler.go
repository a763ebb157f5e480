package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campushub/schedule-service/internal/models"
	"github.com/campushub/schedule-service/internal/repositories"
	"github.com/campushub/schedule-service/internal/services"
)

type ScheduleHandler struct {
	BaseHandler
	scheduleService services.ScheduleService
	exportService   services.ExportService
}

func NewScheduleHandler(scheduleService services.ScheduleService, exportService services.ExportService, logger *slog.Logger) *ScheduleHandler {
	return &ScheduleHandler{
		BaseHandler:     NewBaseHandler(logger),
		scheduleService: scheduleService,
		exportService:   exportService,
	}
}

// CreateSchedule creates a new schedule
// @Summary Create schedule
// @Tags schedules
// @Accept json
// @Produce json
// @Param schedule body services.CreateScheduleRequest true "Schedule data"
// @Success 201 {object} services.ScheduleResponse
// @Failure 400 {object} ErrorResponse
// @Router /schedules [post]
func (h *ScheduleHandler) CreateSchedule(c *gin.Context) {
	var req services.CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	actorID, ok := h.actorID(c)
	if !ok {
		return
	}

	schedule, err := h.scheduleService.Create(c.Request.Context(), &req, actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, schedule)
}

// GetSchedule retrieves a schedule by ID
// @Summary Get schedule
// @Tags schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} services.ScheduleResponse
// @Failure 404 {object} ErrorResponse
// @Router /schedules/{id} [get]
func (h *ScheduleHandler) GetSchedule(c *gin.Context) {
	id, ok := h.requireIDParam(c, "id")
	if !ok {
		return
	}

	actorID, ok := h.actorID(c)
	if !ok {
		return
	}

	schedule, err := h.scheduleService.GetByID(c.Request.Context(), id, actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, schedule)
}

// UpdateSchedule applies a partial update to a schedule
// @Summary Update schedule
// @Tags schedules
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param schedule body services.UpdateScheduleRequest true "Fields to update"
// @Success 200 {object} services.ScheduleResponse
// @Failure 403 {object} ErrorResponse
// @Router /schedules/{id} [patch]
func (h *ScheduleHandler) UpdateSchedule(c *gin.Context) {
	id, ok := h.requireIDParam(c, "id")
	if !ok {
		return
	}

	h.LogRequest(c, "Updating schedule", "schedule_id", id)

	var req services.UpdateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	actorID, ok := h.actorID(c)
	if !ok {
		return
	}

	schedule, err := h.scheduleService.Update(c.Request.Context(), id, &req, actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, schedule)
}

// DeleteSchedule deletes a schedule
// @Summary Delete schedule
// @Tags schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} SuccessResponse
// @Failure 403 {object} ErrorResponse
// @Router /schedules/{id} [delete]
func (h *ScheduleHandler) DeleteSchedule(c *gin.Context) {
	id, ok := h.requireIDParam(c, "id")
	if !ok {
		return
	}

	h.LogRequest(c, "Deleting schedule", "schedule_id", id)

	actorID, ok := h.actorID(c)
	if !ok {
		return
	}

	if err := h.scheduleService.Delete(c.Request.Context(), id, actorID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Schedule deleted"})
}

// ListSchedules lists schedules with optional filters
// @Summary List schedules
// @Tags schedules
// @Produce json
// @Success 200 {object} services.ScheduleListResponse
// @Router /schedules [get]
func (h *ScheduleHandler) ListSchedules(c *gin.Context) {
	actorID, ok := h.actorID(c)
	if !ok {
		return
	}

	filters, err := h.parseScheduleFilters(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid filter parameters",
			Details: err.Error(),
		})
		return
	}

	schedules, err := h.scheduleService.List(c.Request.Context(), filters, actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, schedules)
}

// GetSchedulesByCreator lists schedules created by a specific user
// @Summary List schedules by creator
// @Tags schedules
// @Produce json
// @Param creator_id path string true "Creator ID"
// @Success 200 {object} services.ScheduleListResponse
// @Router /schedules/creator/{creator_id} [get]
func (h *ScheduleHandler) GetSchedulesByCreator(c *gin.Context) {
	creatorID, ok := h.requireIDParam(c, "creator_id")
	if !ok {
		return
	}

	actorID, ok := h.actorID(c)
	if !ok {
		return
	}

	filters, err := h.parseScheduleFilters(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid filter parameters",
			Details: err.Error(),
		})
		return
	}

	schedules, err := h.scheduleService.GetByCreator(c.Request.Context(), creatorID, filters, actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, schedules)
}

// ExportSchedules downloads the filtered schedules as an xlsx workbook
// @Summary Export schedules
// @Tags schedules
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Success 200 {file} binary
// @Failure 403 {object} ErrorResponse
// @Router /schedules/export [get]
func (h *ScheduleHandler) ExportSchedules(c *gin.Context) {
	actorID, ok := h.actorID(c)
	if !ok {
		return
	}

	filters, err := h.parseScheduleFilters(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid filter parameters",
			Details: err.Error(),
		})
		return
	}

	data, err := h.exportService.ExportSchedules(c.Request.Context(), filters, actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	fileName := fmt.Sprintf("schedules_%s.xlsx", time.Now().Format("20060102_150405"))
	c.Header("Content-Disposition", "attachment; filename="+fileName)
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

func (h *ScheduleHandler) parseScheduleFilters(c *gin.Context) (repositories.ScheduleFilters, error) {
	var filters repositories.ScheduleFilters

	if typeStr := strings.TrimSpace(c.Query("type")); typeStr != "" {
		scheduleType := models.ScheduleType(typeStr)
		if !scheduleType.IsValid() {
			return filters, fmt.Errorf("unknown schedule type %q", typeStr)
		}
		filters.Type = &scheduleType
	}

	if courseCode := strings.TrimSpace(c.Query("course_code")); courseCode != "" {
		filters.CourseCode = &courseCode
	}

	if createdBy := strings.TrimSpace(c.Query("created_by")); createdBy != "" {
		filters.CreatedBy = &createdBy
	}

	if dateFrom := c.Query("date_from"); dateFrom != "" {
		t, err := time.Parse(time.RFC3339, dateFrom)
		if err != nil {
			return filters, fmt.Errorf("date_from must be RFC3339: %w", err)
		}
		filters.DateFrom = &t
	}

	if dateTo := c.Query("date_to"); dateTo != "" {
		t, err := time.Parse(time.RFC3339, dateTo)
		if err != nil {
			return filters, fmt.Errorf("date_to must be RFC3339: %w", err)
		}
		filters.DateTo = &t
	}

	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 0 {
			return filters, fmt.Errorf("limit must be a non-negative integer")
		}
		filters.Limit = limit
	}

	if offsetStr := c.Query("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			return filters, fmt.Errorf("offset must be a non-negative integer")
		}
		filters.Offset = offset
	}

	filters.SortBy = c.Query("sort_by")
	filters.SortOrder = c.Query("sort_order")

	return filters, nil
}
