package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/robfig/cron/v3"

	"github.com/campushub/schedule-service/internal/cache"
	"github.com/campushub/schedule-service/internal/events"
	"github.com/campushub/schedule-service/internal/repositories"
	"github.com/campushub/schedule-service/internal/validator"
)

// Cron schedules for the background jobs. The outbox sweep runs often so a
// transient fanout failure is retried quickly; status refresh is cheap and
// hourly granularity matches the coarsest status transition a TTL'd cache
// entry can hide.
const (
	outboxSweepSpec   = "@every 1m"
	statusRefreshSpec = "@hourly"
)

// serviceManager wires the services over their shared dependencies and owns
// the background job lifecycle.
type serviceManager struct {
	repo      repositories.Repository
	cache     *cache.CacheHelper
	publisher events.EventPublisher
	logger    *slog.Logger
	validator *validator.Validator

	scheduleService     ScheduleService
	notificationService NotificationService
	dispatcher          NotificationDispatcher
	userService         UserService
	exportService       ExportService

	cron *cron.Cron

	initialized bool
	shutdown    bool
	mu          sync.RWMutex
}

// NewServiceManager creates a service manager with all dependencies.
func NewServiceManager(repo repositories.Repository, cacheHelper *cache.CacheHelper, publisher events.EventPublisher, logger *slog.Logger, v *validator.Validator) ServiceManager {
	return &serviceManager{
		repo:      repo,
		cache:     cacheHelper,
		publisher: publisher,
		logger:    logger,
		validator: v,
	}
}

// Initialize constructs the services and starts the background jobs.
func (sm *serviceManager) Initialize(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.initialized {
		return nil
	}

	sm.logger.Info("Initializing service manager")

	sm.dispatcher = NewNotificationDispatcher(sm.repo, sm.cache, sm.publisher, sm.logger)
	sm.scheduleService = NewScheduleService(sm.repo, sm.cache, sm.dispatcher, sm.logger, sm.validator)
	sm.notificationService = NewNotificationService(sm.repo, sm.cache, sm.logger)
	sm.userService = NewUserService(sm.repo, sm.cache, sm.logger, sm.validator)
	sm.exportService = NewExportService(sm.repo, sm.logger)

	if err := sm.startBackgroundJobs(); err != nil {
		return fmt.Errorf("failed to start background jobs: %w", err)
	}

	sm.initialized = true
	sm.logger.Info("Service manager initialized")

	return nil
}

func (sm *serviceManager) startBackgroundJobs() error {
	c := cron.New()

	if _, err := c.AddFunc(outboxSweepSpec, func() {
		count, err := sm.dispatcher.RetryPending(context.Background())
		if err != nil {
			sm.logger.Error("Outbox sweep failed", "error", err)
			return
		}
		if count > 0 {
			sm.logger.Info("Outbox sweep dispatched pending notifications", "count", count)
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule outbox sweep: %w", err)
	}

	if _, err := c.AddFunc(statusRefreshSpec, func() {
		if _, err := sm.scheduleService.RefreshStatuses(context.Background()); err != nil {
			sm.logger.Error("Status refresh failed", "error", err)
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule status refresh: %w", err)
	}

	c.Start()
	sm.cron = c

	return nil
}

// Service getters

func (sm *serviceManager) Schedule() ScheduleService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.scheduleService
}

func (sm *serviceManager) Notification() NotificationService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.notificationService
}

func (sm *serviceManager) Dispatcher() NotificationDispatcher {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.dispatcher
}

func (sm *serviceManager) User() UserService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.userService
}

func (sm *serviceManager) Export() ExportService {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		panic("service manager not initialized")
	}
	return sm.exportService
}

// HealthCheck verifies the durable store is reachable. Cache availability is
// reported but never fails the check; the system runs degraded without it.
func (sm *serviceManager) HealthCheck(ctx context.Context) error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if !sm.initialized {
		return fmt.Errorf("service manager not initialized")
	}
	if sm.shutdown {
		return fmt.Errorf("service manager is shut down")
	}

	if err := sm.repo.Ping(ctx); err != nil {
		return fmt.Errorf("store health check failed: %w", err)
	}

	if sm.cache.Available() {
		if err := sm.cache.Ping(ctx); err != nil {
			sm.logger.Warn("Cache unavailable, running degraded", "error", err)
		}
	}

	return nil
}

func (sm *serviceManager) Shutdown(ctx context.Context) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if sm.shutdown {
		return nil
	}

	sm.logger.Info("Shutting down service manager")

	if sm.cron != nil {
		stopped := sm.cron.Stop()
		select {
		case <-stopped.Done():
		case <-ctx.Done():
			sm.logger.Warn("Timed out waiting for background jobs to finish")
		}
	}

	if err := sm.publisher.Close(); err != nil {
		sm.logger.Error("Failed to close event publisher", "error", err)
	}

	if err := sm.repo.Close(); err != nil {
		sm.logger.Error("Failed to close repository", "error", err)
	}

	sm.shutdown = true
	sm.logger.Info("Service manager shut down")

	return nil
}
