package model

import (
	"regexp"
	"time"

	"github.com/medrota/dispatch/core/fault"
)

// VehicleStatus is the operational state of a vehicle.
type VehicleStatus string

const (
	VehicleAvailable    VehicleStatus = "available"
	VehicleInUse        VehicleStatus = "in_use"
	VehicleMaintenance  VehicleStatus = "maintenance"
	VehicleOutOfService VehicleStatus = "out_of_service"
)

// Category classifies vehicles and transport requests by the level of
// onboard support. A basic unit carries attendants, an advanced unit
// carries an intensive care team.
type Category string

const (
	CategoryBasic    Category = "basic"
	CategoryAdvanced Category = "advanced"
)

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	return c == CategoryBasic || c == CategoryAdvanced
}

// Accepts both the older ABC-1234 and the Mercosur ABC1D23 formats.
var plateRe = regexp.MustCompile(`^[A-Z]{3}-?[0-9][A-Z0-9][0-9]{2}$`)

// Vehicle is a transport unit tracked by the resource registry.
type Vehicle struct {
	ID        string        `json:"id"`
	Plate     string        `json:"plate"`
	Model     string        `json:"model"`
	Category  Category      `json:"category"`
	Status    VehicleStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Validate checks the registration input fields.
func (v Vehicle) Validate() error {
	if v.Plate == "" {
		return fault.Validationf("vehicle plate is required")
	}
	if !plateRe.MatchString(v.Plate) {
		return fault.Validationf("invalid vehicle plate %q", v.Plate)
	}
	if v.Model == "" {
		return fault.Validationf("vehicle model is required")
	}
	if !v.Category.Valid() {
		return fault.Validationf("unknown vehicle category %q", v.Category)
	}
	return nil
}

// CanTransition reports whether the vehicle status machine permits
// moving from the current status to target.
func (v Vehicle) CanTransition(target VehicleStatus) bool {
	if target == v.Status {
		return false
	}
	switch v.Status {
	case VehicleAvailable:
		return target == VehicleInUse || target == VehicleMaintenance || target == VehicleOutOfService
	case VehicleInUse:
		return target == VehicleAvailable || target == VehicleMaintenance || target == VehicleOutOfService
	case VehicleMaintenance:
		return target == VehicleAvailable || target == VehicleOutOfService
	}
	// out_of_service is terminal
	return false
}
