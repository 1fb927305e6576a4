package mqtt

import (
	"sync"

	"github.com/medrota/dispatch/core/events"
	"github.com/medrota/dispatch/core/model"
)

// MockPublisher records published orders and alerts for tests.
type MockPublisher struct {
	mu     sync.Mutex
	Orders []events.AssignmentEvent
	Alerts []model.Alert
	Fail   error
}

// NewMockPublisher creates a new MockPublisher.
func NewMockPublisher() *MockPublisher { return &MockPublisher{} }

// PublishAssignment records the order or returns the configured error.
func (m *MockPublisher) PublishAssignment(ev events.AssignmentEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	m.Orders = append(m.Orders, ev)
	return nil
}

// PublishAlert records the alert or returns the configured error.
func (m *MockPublisher) PublishAlert(a model.Alert, cleared bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Fail != nil {
		return m.Fail
	}
	m.Alerts = append(m.Alerts, a)
	return nil
}

// OrderCount returns the number of recorded orders.
func (m *MockPublisher) OrderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Orders)
}
