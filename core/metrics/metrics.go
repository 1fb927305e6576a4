package metrics

import (
	"time"

	"github.com/medrota/dispatch/core/model"
)

// AssignmentResult records one committed matcher assignment.
type AssignmentResult struct {
	RequestID string
	VehicleID string
	DriverID  string
	Priority  model.Priority
	Category  model.Category
	// Waited is the time the request spent pending before assignment.
	Waited time.Duration
	At     time.Time
}

// MatchMiss records a matcher pass that found no eligible pair for a
// pending request. Absence of resources is normal, not an error, but
// it is worth counting.
type MatchMiss struct {
	RequestID string
	Category  model.Category
	At        time.Time
}

// AlertTransition records an alert being raised or cleared.
type AlertTransition struct {
	Type     model.AlertType
	Severity model.AlertSeverity
	Cleared  bool
	At       time.Time
}

// Sink records dispatch events for observability purposes.
type Sink interface {
	RecordAssignment(res AssignmentResult) error
	RecordMatchMiss(miss MatchMiss) error
	RecordAlert(tr AlertTransition) error
	// RecordOpenAlerts sets the current number of open alerts per type.
	RecordOpenAlerts(counts map[model.AlertType]int) error
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) RecordAssignment(AssignmentResult) error        { return nil }
func (NopSink) RecordMatchMiss(MatchMiss) error                { return nil }
func (NopSink) RecordAlert(AlertTransition) error              { return nil }
func (NopSink) RecordOpenAlerts(map[model.AlertType]int) error { return nil }
