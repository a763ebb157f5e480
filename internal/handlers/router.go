package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campushub/schedule-service/internal/services"
)

type HandlerManager struct {
	scheduleHandler     *ScheduleHandler
	notificationHandler *NotificationHandler
	userHandler         *UserHandler

	serviceManager services.ServiceManager
}

func NewHandlerManager(serviceManager services.ServiceManager, logger *slog.Logger) *HandlerManager {
	return &HandlerManager{
		scheduleHandler:     NewScheduleHandler(serviceManager.Schedule(), serviceManager.Export(), logger),
		notificationHandler: NewNotificationHandler(serviceManager.Notification(), logger),
		userHandler:         NewUserHandler(serviceManager.User(), logger),
		serviceManager:      serviceManager,
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	v1 := router.Group("/api/v1")
	{
		// Registration happens before the caller has an identity.
		v1.POST("/users", hm.userHandler.RegisterUser)

		authed := v1.Group("")
		authed.Use(IdentityMiddleware())
		{
			schedules := authed.Group("/schedules")
			{
				schedules.POST("", hm.scheduleHandler.CreateSchedule)
				schedules.GET("", hm.scheduleHandler.ListSchedules)
				schedules.GET("/export", hm.scheduleHandler.ExportSchedules)
				schedules.GET("/:id", hm.scheduleHandler.GetSchedule)
				schedules.PATCH("/:id", hm.scheduleHandler.UpdateSchedule)
				schedules.DELETE("/:id", hm.scheduleHandler.DeleteSchedule)
				schedules.GET("/creator/:creator_id", hm.scheduleHandler.GetSchedulesByCreator)
			}

			notifications := authed.Group("/notifications")
			{
				notifications.GET("", hm.notificationHandler.ListNotifications)
				notifications.GET("/unread-count", hm.notificationHandler.CountUnread)
				notifications.POST("/read-all", hm.notificationHandler.MarkAllRead)
				notifications.POST("/:id/read", hm.notificationHandler.MarkRead)
			}

			users := authed.Group("/users")
			{
				users.GET("/me", hm.userHandler.GetMe)
				users.PATCH("/me", hm.userHandler.UpdateProfile)
				users.GET("/:id", hm.userHandler.GetUser)
			}
		}
	}

	router.GET("/health", func(c *gin.Context) {
		if err := hm.serviceManager.HealthCheck(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unhealthy",
				"service": "schedule-service",
				"error":   err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "schedule-service",
		})
	})
}
