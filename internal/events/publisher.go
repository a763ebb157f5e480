package events

import (
	"context"
	"time"
)

// Event is the envelope for every change event emitted by the service. It is
// the authoritative "something changed" signal; cache contents never are.
type Event struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

const (
	EventSource  = "schedule-service"
	EventVersion = "1.0"

	EventScheduleCreated = "schedule.created"
	EventScheduleUpdated = "schedule.updated"
	EventScheduleDeleted = "schedule.deleted"
)

// EventPublisher emits events to whatever transport is configured. The core
// only produces records; delivery is a downstream concern.
type EventPublisher interface {
	Publish(ctx context.Context, event *Event) error
	Close() error
}
