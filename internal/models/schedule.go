package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ScheduleType string

const (
	TypeClass      ScheduleType = "class"
	TypeAssignment ScheduleType = "assignment"
	TypeTest       ScheduleType = "test"
	TypeExam       ScheduleType = "exam"
	TypeActivity   ScheduleType = "activity"
)

type ScheduleStatus string

const (
	StatusUpcoming  ScheduleStatus = "upcoming"
	StatusOngoing   ScheduleStatus = "ongoing"
	StatusCompleted ScheduleStatus = "completed"
)

// Attachment is an opaque file reference produced by the attachment service.
// The core stores and returns the list but never interprets the URI.
type Attachment struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	URI         string    `json:"uri"`
	ContentType string    `json:"content_type"`
	Size        int64     `json:"size"`
	UploadedAt  time.Time `json:"uploaded_at"`
}

// Schedule is a registered event (class, assignment, test, exam, activity).
//
// Status is a cached projection only: it is recomputed from wall-clock time
// on every read and refreshed here for query efficiency, never trusted as
// the source of truth.
type Schedule struct {
	ID          string       `json:"id" gorm:"primaryKey;size:36"`
	Type        ScheduleType `json:"type" gorm:"not null;index;size:20" validate:"required,oneof=class assignment test exam activity"`
	CourseName  string       `json:"course_name" gorm:"not null;size:200" validate:"required,min=1,max=200"`
	CourseCode  string       `json:"course_code" gorm:"not null;index;size:20" validate:"required,min=2,max=20"`
	Description *string      `json:"description" gorm:"type:text" validate:"omitempty,max=2000"`

	StartDate time.Time  `json:"start_date" gorm:"not null;index" validate:"required"`
	EndDate   *time.Time `json:"end_date"`
	Deadline  *time.Time `json:"deadline"`
	TimeOfDay string     `json:"time_of_day" gorm:"size:20"`

	Venue       string  `json:"venue" gorm:"size:200"`
	IsOnline    bool    `json:"is_online" gorm:"default:false"`
	MeetingLink *string `json:"meeting_link" gorm:"size:500" validate:"omitempty,url"`

	Status      ScheduleStatus                  `json:"status" gorm:"size:20;index"`
	Attachments datatypes.JSONSlice[Attachment] `json:"attachments" gorm:"type:jsonb"`

	CreatedBy string         `json:"created_by" gorm:"not null;index;size:255"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Schedule) TableName() string {
	return "schedules"
}

func (t ScheduleType) IsValid() bool {
	switch t {
	case TypeClass, TypeAssignment, TypeTest, TypeExam, TypeActivity:
		return true
	}
	return false
}
