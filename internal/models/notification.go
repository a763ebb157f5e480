package models

import (
	"time"

	"gorm.io/datatypes"
)

type NotificationKind string

const (
	NotificationScheduleCreated NotificationKind = "schedule_created"
	NotificationScheduleUpdated NotificationKind = "schedule_updated"
	NotificationScheduleDeleted NotificationKind = "schedule_deleted"
)

// Notification is a per-recipient record produced when a schedule changes.
// ScheduleID is a weak reference: the schedule may be deleted later, leaving
// a dangling but harmless pointer used only for lookups.
type Notification struct {
	ID      string           `json:"id" gorm:"primaryKey;size:36"`
	Title   string           `json:"title" gorm:"not null;size:200"`
	Message string           `json:"message" gorm:"not null;type:text"`
	Type    ScheduleType     `json:"type" gorm:"not null;size:20"`
	Kind    NotificationKind `json:"kind" gorm:"not null;size:30"`

	ScheduleID *string `json:"schedule_id" gorm:"size:36"`
	UserID     string  `json:"user_id" gorm:"not null;size:255;index:idx_notifications_user_read,priority:1"`
	Read       bool    `json:"read" gorm:"default:false;index:idx_notifications_user_read,priority:2"`

	CreatedAt time.Time `json:"created_at" gorm:"index:,sort:desc"`
}

func (Notification) TableName() string {
	return "notifications"
}

type OutboxStatus string

const (
	OutboxPending    OutboxStatus = "pending"
	OutboxDispatched OutboxStatus = "dispatched"
	OutboxFailed     OutboxStatus = "failed"
)

// DispatchOutbox is the durable pending-dispatch marker written before
// notification fanout. A mutation is complete once its marker is committed;
// the background sweep retries entries left pending by fanout failures.
type DispatchOutbox struct {
	ID        string         `json:"id" gorm:"primaryKey;size:36"`
	EventKind string         `json:"event_kind" gorm:"not null;size:20"`
	Payload   datatypes.JSON `json:"payload" gorm:"type:jsonb"`
	Status    OutboxStatus   `json:"status" gorm:"not null;default:pending;index;size:20"`
	Attempts  int            `json:"attempts" gorm:"default:0"`
	LastError *string        `json:"last_error" gorm:"type:text"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (DispatchOutbox) TableName() string {
	return "dispatch_outbox"
}
