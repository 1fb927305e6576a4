// Package registry holds the authoritative state of vehicles and
// drivers. Status changes go through the transition tables in
// core/model; every committed change is published on the resource bus
// so the matcher wakes on freed capacity and the alert engine on
// sidelined resources.
package registry

import (
	"time"

	"github.com/google/uuid"

	"github.com/medrota/dispatch/core/clock"
	"github.com/medrota/dispatch/core/events"
	"github.com/medrota/dispatch/core/fault"
	"github.com/medrota/dispatch/core/logger"
	"github.com/medrota/dispatch/core/model"
	"github.com/medrota/dispatch/core/store"
	"github.com/medrota/dispatch/internal/eventbus"
)

// Registry is the resource registry.
type Registry struct {
	store *store.Store
	bus   *eventbus.Bus[events.ResourceEvent]
	clock clock.Clock
	log   logger.Logger
}

// New creates a registry over the given store. The bus may be shared
// with the matcher and the alert engine.
func New(st *store.Store, bus *eventbus.Bus[events.ResourceEvent], clk clock.Clock, log logger.Logger) *Registry {
	return &Registry{store: st, bus: bus, clock: clk, log: log}
}

// RegisterVehicle validates and stores a new vehicle. The initial
// status is always available, regardless of the input.
func (r *Registry) RegisterVehicle(v model.Vehicle) (model.Vehicle, error) {
	if err := v.Validate(); err != nil {
		return model.Vehicle{}, err
	}
	now := r.clock.Now()
	v.ID = uuid.NewString()
	v.Status = model.VehicleAvailable
	v.CreatedAt = now
	v.UpdatedAt = now
	err := r.store.Update(func(tx *store.Tx) error {
		for _, other := range tx.Vehicles() {
			if other.Plate == v.Plate {
				return fault.Conflictf("plate %s already registered", v.Plate)
			}
		}
		tx.PutVehicle(v)
		return nil
	})
	if err != nil {
		return model.Vehicle{}, err
	}
	r.log.Infof("vehicle %s registered (plate %s, category %s)", v.ID, v.Plate, v.Category)
	r.publish(events.ResourceVehicle, v.ID, string(v.Status), v.Category)
	return v, nil
}

// RegisterDriver validates and stores a new driver. The initial
// status is always available; a driver whose license is already
// expired is still registered, but the alert engine will flag it and
// the registry refuses to mark it available again once sidelined.
func (r *Registry) RegisterDriver(d model.Driver) (model.Driver, error) {
	if err := d.Validate(); err != nil {
		return model.Driver{}, err
	}
	now := r.clock.Now()
	d.ID = uuid.NewString()
	d.Status = model.DriverAvailable
	d.CreatedAt = now
	d.UpdatedAt = now
	err := r.store.Update(func(tx *store.Tx) error {
		for _, other := range tx.Drivers() {
			if other.LicenseNumber == d.LicenseNumber {
				return fault.Conflictf("license %s already registered", d.LicenseNumber)
			}
		}
		tx.PutDriver(d)
		return nil
	})
	if err != nil {
		return model.Driver{}, err
	}
	r.log.Infof("driver %s registered (license %s, category %s)", d.ID, d.LicenseNumber, d.LicenseCategory)
	r.publish(events.ResourceDriver, d.ID, string(d.Status), "")
	return d, nil
}

// SetVehicleStatus moves a vehicle through its status machine. Pulling
// an in_use vehicle out of service drops the claiming request back to
// pending and frees its driver in the same transaction.
func (r *Registry) SetVehicleStatus(id string, target model.VehicleStatus) error {
	var cat model.Category
	var freedDriver string
	err := r.store.Update(func(tx *store.Tx) error {
		v, ok := tx.Vehicle(id)
		if !ok {
			return fault.NotFoundf("vehicle %s", id)
		}
		if !v.CanTransition(target) {
			return fault.Transitionf("vehicle %s cannot go from %s to %s", id, v.Status, target)
		}
		now := r.clock.Now()
		if v.Status == model.VehicleInUse {
			freedDriver = r.requeueVehicleClaims(tx, id, now)
		}
		v.Status = target
		v.UpdatedAt = now
		tx.PutVehicle(v)
		cat = v.Category
		return nil
	})
	if err != nil {
		return err
	}
	r.log.Infof("vehicle %s -> %s", id, target)
	r.publish(events.ResourceVehicle, id, string(target), cat)
	if freedDriver != "" {
		r.publish(events.ResourceDriver, freedDriver, string(model.DriverAvailable), "")
	}
	return nil
}

// requeueVehicleClaims returns any request claiming the vehicle to
// pending and releases its driver. Returns the freed driver id, if
// any. A vehicle that leaves in_use outside the ledger's release path
// cannot keep serving an assignment.
func (r *Registry) requeueVehicleClaims(tx *store.Tx, vehicleID string, now time.Time) string {
	var freedDriver string
	for _, req := range tx.Requests() {
		if req.VehicleID != vehicleID || req.Status.Terminal() {
			continue
		}
		if d, ok := tx.Driver(req.DriverID); ok && d.Status == model.DriverInUse {
			d.Status = model.DriverAvailable
			d.UpdatedAt = now
			tx.PutDriver(d)
			freedDriver = d.ID
		}
		req.VehicleID = ""
		req.DriverID = ""
		req.Status = model.RequestPending
		req.UpdatedAt = now
		tx.PutRequest(req)
		r.log.Warnf("request %s back to pending: vehicle %s withdrawn", req.ID, vehicleID)
	}
	return freedDriver
}

// SetDriverStatus moves a driver through its status machine. A driver
// with an expired license can never become available again; the
// condition surfaces through the alert engine instead. Suspending an
// in_use driver drops the claiming request back to pending and frees
// its vehicle in the same transaction.
func (r *Registry) SetDriverStatus(id string, target model.DriverStatus) error {
	var freedVehicle string
	var freedCat model.Category
	err := r.store.Update(func(tx *store.Tx) error {
		d, ok := tx.Driver(id)
		if !ok {
			return fault.NotFoundf("driver %s", id)
		}
		if !d.CanTransition(target) {
			return fault.Transitionf("driver %s cannot go from %s to %s", id, d.Status, target)
		}
		now := r.clock.Now()
		if target == model.DriverAvailable && d.LicenseExpired(now) {
			return fault.Transitionf("driver %s license expired on %s", id, d.LicenseExpiry.Format("2006-01-02"))
		}
		if d.Status == model.DriverInUse {
			freedVehicle, freedCat = r.requeueDriverClaims(tx, id, now)
		}
		d.Status = target
		d.UpdatedAt = now
		tx.PutDriver(d)
		return nil
	})
	if err != nil {
		return err
	}
	r.log.Infof("driver %s -> %s", id, target)
	r.publish(events.ResourceDriver, id, string(target), "")
	if freedVehicle != "" {
		r.publish(events.ResourceVehicle, freedVehicle, string(model.VehicleAvailable), freedCat)
	}
	return nil
}

// requeueDriverClaims returns any request claiming the driver to
// pending and releases its vehicle. Returns the freed vehicle id and
// category, if any.
func (r *Registry) requeueDriverClaims(tx *store.Tx, driverID string, now time.Time) (string, model.Category) {
	var freedVehicle string
	var freedCat model.Category
	for _, req := range tx.Requests() {
		if req.DriverID != driverID || req.Status.Terminal() {
			continue
		}
		if v, ok := tx.Vehicle(req.VehicleID); ok && v.Status == model.VehicleInUse {
			v.Status = model.VehicleAvailable
			v.UpdatedAt = now
			tx.PutVehicle(v)
			freedVehicle, freedCat = v.ID, v.Category
		}
		req.VehicleID = ""
		req.DriverID = ""
		req.Status = model.RequestPending
		req.UpdatedAt = now
		tx.PutRequest(req)
		r.log.Warnf("request %s back to pending: driver %s withdrawn", req.ID, driverID)
	}
	return freedVehicle, freedCat
}

// RenewDriverLicense sets a new category and expiry on a driver. The
// alert engine clears any open license alert on its next evaluation.
func (r *Registry) RenewDriverLicense(id string, cat model.LicenseCategory, expiry time.Time) error {
	err := r.store.Update(func(tx *store.Tx) error {
		d, ok := tx.Driver(id)
		if !ok {
			return fault.NotFoundf("driver %s", id)
		}
		if !cat.Valid() {
			return fault.Validationf("unknown license category %q", cat)
		}
		if expiry.IsZero() {
			return fault.Validationf("license expiry date is required")
		}
		d.LicenseCategory = cat
		d.LicenseExpiry = expiry
		d.UpdatedAt = r.clock.Now()
		tx.PutDriver(d)
		return nil
	})
	if err != nil {
		return err
	}
	r.log.Infof("driver %s license renewed until %s", id, expiry.Format("2006-01-02"))
	r.publish(events.ResourceDriver, id, "license_renewed", "")
	return nil
}

// RemoveDriver deletes a driver record. Fails while the driver is
// assigned to a request.
func (r *Registry) RemoveDriver(id string) error {
	err := r.store.Update(func(tx *store.Tx) error {
		d, ok := tx.Driver(id)
		if !ok {
			return fault.NotFoundf("driver %s", id)
		}
		if d.Status == model.DriverInUse {
			return fault.Conflictf("driver %s is assigned to a request", id)
		}
		tx.DeleteDriver(id)
		return nil
	})
	if err != nil {
		return err
	}
	r.log.Infof("driver %s removed", id)
	r.publish(events.ResourceDriver, id, "removed", "")
	return nil
}

// RemoveVehicle deletes a vehicle record. Fails while the vehicle is
// assigned to a request.
func (r *Registry) RemoveVehicle(id string) error {
	var cat model.Category
	err := r.store.Update(func(tx *store.Tx) error {
		v, ok := tx.Vehicle(id)
		if !ok {
			return fault.NotFoundf("vehicle %s", id)
		}
		if v.Status == model.VehicleInUse {
			return fault.Conflictf("vehicle %s is assigned to a request", id)
		}
		cat = v.Category
		tx.DeleteVehicle(id)
		return nil
	})
	if err != nil {
		return err
	}
	r.log.Infof("vehicle %s removed", id)
	r.publish(events.ResourceVehicle, id, "removed", cat)
	return nil
}

// Vehicle returns a vehicle by id.
func (r *Registry) Vehicle(id string) (model.Vehicle, error) {
	var v model.Vehicle
	var ok bool
	r.store.View(func(tx *store.Tx) { v, ok = tx.Vehicle(id) })
	if !ok {
		return model.Vehicle{}, fault.NotFoundf("vehicle %s", id)
	}
	return v, nil
}

// Driver returns a driver by id.
func (r *Registry) Driver(id string) (model.Driver, error) {
	var d model.Driver
	var ok bool
	r.store.View(func(tx *store.Tx) { d, ok = tx.Driver(id) })
	if !ok {
		return model.Driver{}, fault.NotFoundf("driver %s", id)
	}
	return d, nil
}

func (r *Registry) publish(kind events.ResourceKind, id, status string, cat model.Category) {
	if r.bus == nil {
		return
	}
	r.bus.Publish(events.ResourceEvent{
		Kind:       kind,
		ResourceID: id,
		Status:     status,
		Category:   cat,
		At:         r.clock.Now(),
	})
}
