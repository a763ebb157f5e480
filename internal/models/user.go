package models

import (
	"time"
)

type UserRole string

const (
	RoleStudent     UserRole = "student"
	RoleCoordinator UserRole = "coordinator"
)

// User is the identity record for a student or coordinator. Authentication
// happens outside this service; the store only owns the durable profile and
// enforces email uniqueness.
type User struct {
	ID       string   `json:"id" gorm:"primaryKey;size:255"`
	Email    string   `json:"email" gorm:"uniqueIndex;not null;size:255" validate:"required,email"`
	FullName string   `json:"full_name" gorm:"not null;size:100" validate:"required,min=1,max=100"`
	Role     UserRole `json:"role" gorm:"not null;index;size:20" validate:"required,oneof=student coordinator"`

	// Profile info
	Department *string `json:"department" gorm:"size:100"`
	Level      *string `json:"level" gorm:"size:20"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (User) TableName() string {
	return "users"
}

func (r UserRole) IsValid() bool {
	return r == RoleStudent || r == RoleCoordinator
}
