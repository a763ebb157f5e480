package validator

import (
	"time"

	"github.com/campushub/schedule-service/internal/models"
)

// Request DTOs shared by the services and the HTTP facade.

type ScheduleCreateRequest struct {
	Type        models.ScheduleType `json:"type" validate:"required,oneof=class assignment test exam activity"`
	CourseName  string              `json:"course_name" validate:"required,min=1,max=200"`
	CourseCode  string              `json:"course_code" validate:"required,min=2,max=20"`
	Description *string             `json:"description" validate:"omitempty,max=2000"`

	StartDate time.Time  `json:"start_date" validate:"required"`
	EndDate   *time.Time `json:"end_date"`
	Deadline  *time.Time `json:"deadline"`
	TimeOfDay string     `json:"time_of_day" validate:"omitempty,max=20"`

	Venue       string  `json:"venue" validate:"omitempty,max=200"`
	IsOnline    bool    `json:"is_online"`
	MeetingLink *string `json:"meeting_link" validate:"omitempty,url"`

	Attachments []models.Attachment `json:"attachments"`
}

// ScheduleUpdateRequest is a patch: nil fields are left unchanged.
type ScheduleUpdateRequest struct {
	CourseName  *string `json:"course_name" validate:"omitempty,min=1,max=200"`
	CourseCode  *string `json:"course_code" validate:"omitempty,min=2,max=20"`
	Description *string `json:"description" validate:"omitempty,max=2000"`

	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
	Deadline  *time.Time `json:"deadline"`
	TimeOfDay *string    `json:"time_of_day" validate:"omitempty,max=20"`

	Venue       *string `json:"venue" validate:"omitempty,max=200"`
	IsOnline    *bool   `json:"is_online"`
	MeetingLink *string `json:"meeting_link" validate:"omitempty,url"`

	Attachments []models.Attachment `json:"attachments"`
}

type RegisterUserRequest struct {
	Email      string          `json:"email" validate:"required,email"`
	FullName   string          `json:"full_name" validate:"required,min=1,max=100"`
	Role       models.UserRole `json:"role" validate:"required,oneof=student coordinator"`
	Department *string         `json:"department" validate:"omitempty,max=100"`
	Level      *string         `json:"level" validate:"omitempty,max=20"`
}

// UpdateProfileRequest patches mutable profile fields only; identity fields
// (email, role) are immutable after registration.
type UpdateProfileRequest struct {
	FullName   *string `json:"full_name" validate:"omitempty,min=1,max=100"`
	Department *string `json:"department" validate:"omitempty,max=100"`
	Level      *string `json:"level" validate:"omitempty,max=20"`
}
