package model

import "time"

// AlertType names the operational condition an alert reports.
type AlertType string

const (
	// AlertDriverLicense fires when a driver license is close to or
	// past its expiry date.
	AlertDriverLicense AlertType = "driver_license"
	// AlertVehicleUnavailable fires when no vehicle of a category is
	// available while requests of that category are pending.
	AlertVehicleUnavailable AlertType = "vehicle_unavailable"
	// AlertRequestStale fires when a request stays pending longer
	// than the configured threshold.
	AlertRequestStale AlertType = "request_unassigned_too_long"
)

// AlertSeverity grades an alert.
type AlertSeverity string

const (
	SeverityWarning AlertSeverity = "warning"
	SeverityHigh    AlertSeverity = "high"
)

// Alert is a derived notice of a threshold breach. It is open while
// ClearedAt is nil. The alert engine owns creation and clearing.
type Alert struct {
	ID        string        `json:"id"`
	Type      AlertType     `json:"type"`
	SubjectID string        `json:"subject_id"`
	Severity  AlertSeverity `json:"severity"`
	Message   string        `json:"message"`
	RaisedAt  time.Time     `json:"raised_at"`
	ClearedAt *time.Time    `json:"cleared_at,omitempty"`
}

// Open reports whether the alert has not been cleared.
func (a Alert) Open() bool { return a.ClearedAt == nil }
