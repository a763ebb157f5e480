package events

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MockEventPublisher records published events in memory for tests. It can be
// forced to fail to exercise dispatch retry paths.
type MockEventPublisher struct {
	mu     sync.Mutex
	events []Event
	logger *slog.Logger

	failNext bool
}

func NewMockEventPublisher(logger *slog.Logger) *MockEventPublisher {
	return &MockEventPublisher{logger: logger}
}

func (m *MockEventPublisher) Publish(_ context.Context, event *Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failNext {
		return errors.New("mock publisher: forced failure")
	}

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	m.events = append(m.events, *event)
	m.logger.Debug("Mock event published", "type", event.Type, "id", event.ID)
	return nil
}

func (m *MockEventPublisher) Close() error {
	return nil
}

// GetPublishedEvents returns a copy of everything published so far.
func (m *MockEventPublisher) GetPublishedEvents() []Event {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]Event, len(m.events))
	copy(out, m.events)
	return out
}

// ClearEvents resets the recorded events.
func (m *MockEventPublisher) ClearEvents() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = nil
}

// SetFailing makes every subsequent Publish return an error.
func (m *MockEventPublisher) SetFailing(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failNext = fail
}
