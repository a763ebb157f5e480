package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campushub/schedule-service/internal/repositories"
	"github.com/campushub/schedule-service/internal/services"
	"github.com/campushub/schedule-service/internal/validator"
)

type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

type SuccessResponse struct {
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

type BaseHandler struct {
	logger *slog.Logger
}

func NewBaseHandler(logger *slog.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...interface{}) {
	args = append(args, "request_id", c.GetString("request_id"), "path", c.FullPath())
	h.logger.Info(msg, args...)
}

// requireIDParam extracts a non-empty path parameter or writes a 400.
func (h *BaseHandler) requireIDParam(c *gin.Context, name string) (string, bool) {
	id := strings.TrimSpace(c.Param(name))
	if id == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Missing " + name + " parameter",
		})
		return "", false
	}
	return id, true
}

// actorID returns the authenticated user id set by the identity middleware.
func (h *BaseHandler) actorID(c *gin.Context) (string, bool) {
	userID, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return "", false
	}
	return userID.(string), true
}

// handleServiceError maps the service error taxonomy onto HTTP statuses.
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationErrors,
		})
		return
	}

	var permissionError *services.PermissionError
	if errors.As(err, &permissionError) {
		c.JSON(http.StatusForbidden, ErrorResponse{
			Message: "Access denied",
			Details: map[string]interface{}{
				"resource": permissionError.Resource,
				"action":   permissionError.Action,
				"reason":   permissionError.Reason,
			},
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrScheduleNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Schedule not found",
		})
	case errors.Is(err, services.ErrUserNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "User not found",
		})
	case errors.Is(err, services.ErrNotificationNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Notification not found",
		})
	case errors.Is(err, services.ErrEmailTaken):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Email address already registered",
		})
	case repositories.IsUnavailableError(err):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Message: "Store temporarily unavailable",
		})
	default:
		h.logger.Error("Unhandled service error", "error", err, "path", c.FullPath())
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}
