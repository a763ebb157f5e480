package services

import (
	"errors"
	"fmt"
)

// Service-level errors surfaced to callers. Store connectivity failures pass
// through as repositories.ErrStoreUnavailable; cache failures never surface.
var (
	ErrScheduleNotFound     = errors.New("schedule not found")
	ErrUserNotFound         = errors.New("user not found")
	ErrNotificationNotFound = errors.New("notification not found")
	ErrEmailTaken           = errors.New("email address already registered")
)

// PermissionError reports an authorization failure. Never retried.
type PermissionError struct {
	UserID     string
	ResourceID string
	Resource   string
	Action     string
	Reason     string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("permission denied: user %s cannot %s %s %s: %s",
		e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
}

func NewPermissionError(userID, resourceID, resource, action, reason string) *PermissionError {
	return &PermissionError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}
