package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/campushub/schedule-service/internal/models"
	"github.com/campushub/schedule-service/internal/repositories"
)

type UserPostgreSQL struct {
	db *gorm.DB
}

func NewUserPostgreSQL(db *gorm.DB) repositories.UserRepository {
	return &UserPostgreSQL{db: db}
}

// Create persists a new user. Email uniqueness is delegated entirely to the
// store's unique index; a violation surfaces as ErrDuplicateKey.
func (u *UserPostgreSQL) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}

	if err := u.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", repositories.TranslateError(err))
	}

	return nil
}

func (u *UserPostgreSQL) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := u.db.WithContext(ctx).First(&user, "id = ?", id).Error
	if err != nil {
		return nil, repositories.TranslateError(err)
	}

	return &user, nil
}

func (u *UserPostgreSQL) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := u.db.WithContext(ctx).First(&user, "email = ?", email).Error
	if err != nil {
		return nil, repositories.TranslateError(err)
	}

	return &user, nil
}

func (u *UserPostgreSQL) Update(ctx context.Context, user *models.User) error {
	result := u.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", user.ID).
		Updates(map[string]interface{}{
			"full_name":  user.FullName,
			"department": user.Department,
			"level":      user.Level,
			"updated_at": user.UpdatedAt,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to update user: %w", repositories.TranslateError(result.Error))
	}
	if result.RowsAffected == 0 {
		return repositories.ErrNotFound
	}

	return nil
}

func (u *UserPostgreSQL) List(ctx context.Context, filters repositories.UserFilters) ([]*models.User, int64, error) {
	query := u.db.WithContext(ctx).Model(&models.User{})

	if filters.Role != nil {
		query = query.Where("role = ?", *filters.Role)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, repositories.TranslateError(err)
	}

	limit := filters.Limit
	if limit <= 0 || limit > 500 {
		limit = 100
	}

	var users []*models.User
	err := query.Order("created_at ASC").Limit(limit).Offset(filters.Offset).Find(&users).Error
	if err != nil {
		return nil, 0, repositories.TranslateError(err)
	}

	return users, total, nil
}

// ListIDs returns every user id for broadcast fanout.
func (u *UserPostgreSQL) ListIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := u.db.WithContext(ctx).
		Model(&models.User{}).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, repositories.TranslateError(err)
	}

	return ids, nil
}
