package postgres

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/campushub/schedule-service/internal/repositories"
)

// PostgreSQLRepository implements the main Repository interface over the
// single shared gorm connection.
type PostgreSQLRepository struct {
	db *gorm.DB

	user         repositories.UserRepository
	schedule     repositories.ScheduleRepository
	notification repositories.NotificationRepository
	outbox       repositories.OutboxRepository
}

// NewPostgreSQLRepository creates the repository aggregate with all
// sub-repositories bound to the given connection.
func NewPostgreSQLRepository(db *gorm.DB) repositories.Repository {
	return &PostgreSQLRepository{
		db:           db,
		user:         NewUserPostgreSQL(db),
		schedule:     NewSchedulePostgreSQL(db),
		notification: NewNotificationPostgreSQL(db),
		outbox:       NewOutboxPostgreSQL(db),
	}
}

func (r *PostgreSQLRepository) User() repositories.UserRepository {
	return r.user
}

func (r *PostgreSQLRepository) Schedule() repositories.ScheduleRepository {
	return r.schedule
}

func (r *PostgreSQLRepository) Notification() repositories.NotificationRepository {
	return r.notification
}

func (r *PostgreSQLRepository) Outbox() repositories.OutboxRepository {
	return r.outbox
}

// WithTransaction executes fn within a database transaction, handing it a
// repository bound to the transaction connection.
func (r *PostgreSQLRepository) WithTransaction(ctx context.Context, fn func(repositories.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewPostgreSQLRepository(tx))
	})
}

// Ping checks the health of the database connection.
func (r *PostgreSQLRepository) Ping(ctx context.Context) error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", repositories.ErrStoreUnavailable)
	}

	return nil
}

// Close closes the underlying connection.
func (r *PostgreSQLRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("failed to get database instance: %w", err)
	}

	return sqlDB.Close()
}
