package handlers

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/campushub/schedule-service/internal/repositories"
	"github.com/campushub/schedule-service/internal/services"
)

type NotificationHandler struct {
	BaseHandler
	notificationService services.NotificationService
}

func NewNotificationHandler(notificationService services.NotificationService, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{
		BaseHandler:         NewBaseHandler(logger),
		notificationService: notificationService,
	}
}

// ListNotifications lists the authenticated user's notifications
// @Summary List notifications
// @Tags notifications
// @Produce json
// @Success 200 {object} services.NotificationListResponse
// @Router /notifications [get]
func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	actorID, ok := h.actorID(c)
	if !ok {
		return
	}

	filters, err := h.parseNotificationFilters(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid filter parameters",
			Details: err.Error(),
		})
		return
	}

	notifications, err := h.notificationService.ListByUser(c.Request.Context(), actorID, filters, actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, notifications)
}

// CountUnread returns the authenticated user's unread notification count
// @Summary Count unread notifications
// @Tags notifications
// @Produce json
// @Success 200 {object} SuccessResponse
// @Router /notifications/unread-count [get]
func (h *NotificationHandler) CountUnread(c *gin.Context) {
	actorID, ok := h.actorID(c)
	if !ok {
		return
	}

	count, err := h.notificationService.CountUnread(c.Request.Context(), actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"unread": count})
}

// MarkRead marks a single notification as read
// @Summary Mark notification read
// @Tags notifications
// @Produce json
// @Param id path string true "Notification ID"
// @Success 200 {object} SuccessResponse
// @Failure 404 {object} ErrorResponse
// @Router /notifications/{id}/read [post]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	id, ok := h.requireIDParam(c, "id")
	if !ok {
		return
	}

	actorID, ok := h.actorID(c)
	if !ok {
		return
	}

	if err := h.notificationService.MarkRead(c.Request.Context(), id, actorID); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Notification marked read"})
}

// MarkAllRead marks every unread notification of the user as read
// @Summary Mark all notifications read
// @Tags notifications
// @Produce json
// @Success 200 {object} SuccessResponse
// @Router /notifications/read-all [post]
func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	actorID, ok := h.actorID(c)
	if !ok {
		return
	}

	count, err := h.notificationService.MarkAllRead(c.Request.Context(), actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"marked": count})
}

func (h *NotificationHandler) parseNotificationFilters(c *gin.Context) (repositories.NotificationFilters, error) {
	var filters repositories.NotificationFilters

	if readStr := c.Query("read"); readStr != "" {
		read, err := strconv.ParseBool(readStr)
		if err != nil {
			return filters, fmt.Errorf("read must be a boolean")
		}
		filters.Read = &read
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

	filters.SortOrder = c.Query("sort_order")

	return filters, nil
}
