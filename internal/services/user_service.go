package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/campushub/schedule-service/internal/cache"
	"github.com/campushub/schedule-service/internal/models"
	"github.com/campushub/schedule-service/internal/repositories"
	"github.com/campushub/schedule-service/internal/validator"
)

type userService struct {
	repo      repositories.Repository
	cache     *cache.CacheHelper
	logger    *slog.Logger
	validator *validator.Validator

	now func() time.Time
}

func NewUserService(repo repositories.Repository, cacheHelper *cache.CacheHelper, logger *slog.Logger, v *validator.Validator) UserService {
	return &userService{
		repo:      repo,
		cache:     cacheHelper,
		logger:    logger,
		validator: v,
		now:       time.Now,
	}
}

func (u *userService) Register(ctx context.Context, req *RegisterUserRequest) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, storeOpTimeout)
	defer cancel()

	if errs := u.validator.Struct(req); len(errs) > 0 {
		return nil, errs
	}

	now := u.now()
	user := &models.User{
		Email:      req.Email,
		FullName:   req.FullName,
		Role:       req.Role,
		Department: req.Department,
		Level:      req.Level,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := u.repo.User().Create(ctx, user); err != nil {
		if repositories.IsDuplicateKeyError(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	u.logger.Info("User registered", "user_id", user.ID, "role", user.Role)

	return user, nil
}

func (u *userService) GetByID(ctx context.Context, id string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, storeOpTimeout)
	defer cancel()

	var user models.User
	err := u.cache.CacheOrExecute(ctx, cache.UserKey(id), &user, cache.DefaultTTL, func() (interface{}, error) {
		return u.repo.User().GetByID(ctx, id)
	})
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

// UpdateProfile patches mutable profile fields. Users may only edit their own
// profile; email and role never change here.
func (u *userService) UpdateProfile(ctx context.Context, id string, req *UpdateProfileRequest, actorID string) (*models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, storeOpTimeout)
	defer cancel()

	if actorID != id {
		return nil, NewPermissionError(actorID, id, "user", "update", "profiles are editable by their owner only")
	}

	if errs := u.validator.Struct(req); len(errs) > 0 {
		return nil, errs
	}

	user, err := u.repo.User().GetByID(ctx, id)
	if err != nil {
		if repositories.IsNotFoundError(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	if req.FullName != nil {
		user.FullName = *req.FullName
	}
	if req.Department != nil {
		user.Department = req.Department
	}
	if req.Level != nil {
		user.Level = req.Level
	}
	user.UpdatedAt = u.now()

	if err := u.repo.User().Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	cache.InvalidateUser(ctx, u.cache, id)

	u.logger.Info("User profile updated", "user_id", id)

	return user, nil
}
