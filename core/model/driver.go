package model

import (
	"regexp"
	"time"

	"github.com/medrota/dispatch/core/fault"
)

// DriverStatus is the operational state of a driver.
type DriverStatus string

const (
	DriverAvailable DriverStatus = "available"
	DriverInUse     DriverStatus = "in_use"
	DriverSuspended DriverStatus = "suspended"
)

// LicenseCategory is the national driving license class. Category D
// covers passenger transport, category E heavy combinations.
type LicenseCategory string

const (
	LicenseB LicenseCategory = "B"
	LicenseC LicenseCategory = "C"
	LicenseD LicenseCategory = "D"
	LicenseE LicenseCategory = "E"
)

var licenseCategoryRank = map[LicenseCategory]int{
	LicenseB: 1,
	LicenseC: 2,
	LicenseD: 3,
	LicenseE: 4,
}

// Valid reports whether c is a known license category.
func (c LicenseCategory) Valid() bool {
	_, ok := licenseCategoryRank[c]
	return ok
}

// Covers reports whether a license of category c also authorizes
// driving vehicles that require category req.
func (c LicenseCategory) Covers(req LicenseCategory) bool {
	cr, ok := licenseCategoryRank[c]
	rr, ok2 := licenseCategoryRank[req]
	return ok && ok2 && cr >= rr
}

var licenseNumberRe = regexp.MustCompile(`^[0-9]{11}$`)

// Driver is a licensed operator tracked by the resource registry.
type Driver struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	LicenseNumber   string          `json:"license_number"`
	LicenseCategory LicenseCategory `json:"license_category"`
	LicenseExpiry   time.Time       `json:"license_expiry"`
	Status          DriverStatus    `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Validate checks the registration input fields.
func (d Driver) Validate() error {
	if d.Name == "" {
		return fault.Validationf("driver name is required")
	}
	if d.LicenseNumber == "" {
		return fault.Validationf("driver license number is required")
	}
	if !licenseNumberRe.MatchString(d.LicenseNumber) {
		return fault.Validationf("invalid license number %q", d.LicenseNumber)
	}
	if _, ok := licenseCategoryRank[d.LicenseCategory]; !ok {
		return fault.Validationf("unknown license category %q", d.LicenseCategory)
	}
	if d.LicenseExpiry.IsZero() {
		return fault.Validationf("license expiry date is required")
	}
	return nil
}

// LicenseExpired reports whether the license has expired at time now.
func (d Driver) LicenseExpired(now time.Time) bool {
	return !d.LicenseExpiry.After(now)
}

// CanTransition reports whether the driver status machine permits
// moving from the current status to target. License expiry is checked
// by the registry, not here.
func (d Driver) CanTransition(target DriverStatus) bool {
	if target == d.Status {
		return false
	}
	switch d.Status {
	case DriverAvailable:
		return target == DriverInUse || target == DriverSuspended
	case DriverInUse:
		return target == DriverAvailable || target == DriverSuspended
	case DriverSuspended:
		return target == DriverAvailable
	}
	return false
}
