package model

import (
	"time"

	"github.com/medrota/dispatch/core/fault"
)

// RequestKind distinguishes immediate attendances from pre-booked
// appointments.
type RequestKind string

const (
	// KindAttendance is an unscheduled transport raised by a call
	// operator.
	KindAttendance RequestKind = "attendance"
	// KindAppointment is a pre-scheduled transport with a required
	// future date.
	KindAppointment RequestKind = "appointment"
)

// RequestStatus is the lifecycle state of a transport request.
type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestAssigned  RequestStatus = "assigned"
	RequestEnRoute   RequestStatus = "en_route"
	RequestCompleted RequestStatus = "completed"
	RequestCancelled RequestStatus = "cancelled"
)

// Terminal reports whether s admits no further transitions.
func (s RequestStatus) Terminal() bool {
	return s == RequestCompleted || s == RequestCancelled
}

// Priority orders competing pending requests.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

var priorityRank = map[Priority]int{
	PriorityLow:    1,
	PriorityMedium: 2,
	PriorityHigh:   3,
}

// Rank returns a numeric weight, higher is more urgent. Unknown
// priorities rank below low.
func (p Priority) Rank() int { return priorityRank[p] }

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	_, ok := priorityRank[p]
	return ok
}

// Contact identifies the caller who raised a request.
type Contact struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// Patient identifies the person being transported.
type Patient struct {
	Name  string `json:"name"`
	Age   int    `json:"age,omitempty"`
	Notes string `json:"notes,omitempty"`
}

// Request is a transport request, either an attendance or an
// appointment, tracked by the request ledger.
type Request struct {
	ID           string        `json:"id"`
	Kind         RequestKind   `json:"kind"`
	Requester    Contact       `json:"requester"`
	Patient      Patient       `json:"patient"`
	Priority     Priority      `json:"priority"`
	Category     Category      `json:"category"`
	ScheduledAt  *time.Time    `json:"scheduled_at,omitempty"`
	Status       RequestStatus `json:"status"`
	VehicleID    string        `json:"vehicle_id,omitempty"`
	DriverID     string        `json:"driver_id,omitempty"`
	CancelReason string        `json:"cancel_reason,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// Validate checks the creation input fields. now is used to reject
// appointments scheduled in the past.
func (r Request) Validate(now time.Time) error {
	if r.Requester.Name == "" || r.Requester.Phone == "" {
		return fault.Validationf("requester name and phone are required")
	}
	if r.Patient.Name == "" {
		return fault.Validationf("patient name is required")
	}
	if !r.Priority.Valid() {
		return fault.Validationf("unknown priority %q", r.Priority)
	}
	if !r.Category.Valid() {
		return fault.Validationf("unknown request category %q", r.Category)
	}
	switch r.Kind {
	case KindAttendance:
		if r.ScheduledAt != nil {
			return fault.Validationf("attendance must not carry a scheduled time")
		}
	case KindAppointment:
		if r.ScheduledAt == nil {
			return fault.Validationf("appointment requires a scheduled time")
		}
		if !r.ScheduledAt.After(now) {
			return fault.Validationf("appointment time %s is not in the future", r.ScheduledAt.Format(time.RFC3339))
		}
	default:
		return fault.Validationf("unknown request kind %q", r.Kind)
	}
	return nil
}

// CanTransition reports whether the request status machine permits
// moving from the current status to target.
func (r Request) CanTransition(target RequestStatus) bool {
	switch r.Status {
	case RequestPending:
		return target == RequestAssigned || target == RequestCancelled
	case RequestAssigned:
		// Back to pending happens when a claimed resource is
		// withdrawn mid-assignment.
		return target == RequestEnRoute || target == RequestCancelled || target == RequestPending
	case RequestEnRoute:
		return target == RequestCompleted || target == RequestCancelled
	}
	return false
}

// Assigned reports whether the request currently claims resources.
func (r Request) Assigned() bool {
	return r.Status == RequestAssigned || r.Status == RequestEnRoute
}
