package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campushub/schedule-service/internal/services"
)

type UserHandler struct {
	BaseHandler
	userService services.UserService
}

func NewUserHandler(userService services.UserService, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		BaseHandler: NewBaseHandler(logger),
		userService: userService,
	}
}

// RegisterUser registers a new user profile
// @Summary Register user
// @Tags users
// @Accept json
// @Produce json
// @Param user body services.RegisterUserRequest true "User data"
// @Success 201 {object} models.User
// @Failure 409 {object} ErrorResponse
// @Router /users [post]
func (h *UserHandler) RegisterUser(c *gin.Context) {
	var req services.RegisterUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	user, err := h.userService.Register(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, user)
}

// GetUser retrieves a user profile by ID
// @Summary Get user
// @Tags users
// @Produce json
// @Param id path string true "User ID"
// @Success 200 {object} models.User
// @Failure 404 {object} ErrorResponse
// @Router /users/{id} [get]
func (h *UserHandler) GetUser(c *gin.Context) {
	id, ok := h.requireIDParam(c, "id")
	if !ok {
		return
	}

	user, err := h.userService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// GetMe retrieves the authenticated user's profile
// @Summary Get own profile
// @Tags users
// @Produce json
// @Success 200 {object} models.User
// @Router /users/me [get]
func (h *UserHandler) GetMe(c *gin.Context) {
	actorID, ok := h.actorID(c)
	if !ok {
		return
	}

	user, err := h.userService.GetByID(c.Request.Context(), actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}

// UpdateProfile patches the authenticated user's profile
// @Summary Update own profile
// @Tags users
// @Accept json
// @Produce json
// @Param user body services.UpdateProfileRequest true "Profile fields"
// @Success 200 {object} models.User
// @Router /users/me [patch]
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	actorID, ok := h.actorID(c)
	if !ok {
		return
	}

	var req services.UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	user, err := h.userService.UpdateProfile(c.Request.Context(), actorID, &req, actorID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, user)
}
