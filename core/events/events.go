package events

import (
	"time"

	"github.com/medrota/dispatch/core/model"
)

// ResourceKind tags which registry entity an event refers to.
type ResourceKind string

const (
	ResourceVehicle ResourceKind = "vehicle"
	ResourceDriver  ResourceKind = "driver"
)

// ResourceEvent is published by the resource registry on every status
// change. Transitions into available wake the matcher; transitions
// into maintenance or suspended wake the alert engine.
type ResourceEvent struct {
	Kind       ResourceKind
	ResourceID string
	Status     string
	Category   model.Category
	At         time.Time
}

// RequestEvent is published by the request ledger on creation and on
// every status change.
type RequestEvent struct {
	RequestID string
	Status    model.RequestStatus
	Priority  model.Priority
	Category  model.Category
	At        time.Time
}

// AssignmentEvent is published by the matcher after a committed
// assignment.
type AssignmentEvent struct {
	RequestID string
	VehicleID string
	DriverID  string
	Waited    time.Duration
	At        time.Time
}

// AlertEvent is published by the alert engine when an alert is raised
// or cleared.
type AlertEvent struct {
	Alert   model.Alert
	Cleared bool
}
