package registry

import (
	"iter"

	"github.com/medrota/dispatch/core/model"
	"github.com/medrota/dispatch/core/store"
)

// VehicleFilter narrows a vehicle query. Zero fields match everything.
type VehicleFilter struct {
	Status   model.VehicleStatus
	Category model.Category
}

func (f VehicleFilter) match(v model.Vehicle) bool {
	if f.Status != "" && v.Status != f.Status {
		return false
	}
	if f.Category != "" && v.Category != f.Category {
		return false
	}
	return true
}

// DriverFilter narrows a driver query. Zero fields match everything.
type DriverFilter struct {
	Status   model.DriverStatus
	Category model.LicenseCategory
}

func (f DriverFilter) match(d model.Driver) bool {
	if f.Status != "" && d.Status != f.Status {
		return false
	}
	if f.Category != "" && d.LicenseCategory != f.Category {
		return false
	}
	return true
}

// Vehicles returns a restartable sequence of vehicles matching f in
// registration order. Each ranging over the sequence reads a fresh
// snapshot; iteration never holds the store lock.
func (r *Registry) Vehicles(f VehicleFilter) iter.Seq[model.Vehicle] {
	return func(yield func(model.Vehicle) bool) {
		var snap []model.Vehicle
		r.store.View(func(tx *store.Tx) { snap = tx.Vehicles() })
		for _, v := range snap {
			if !f.match(v) {
				continue
			}
			if !yield(v) {
				return
			}
		}
	}
}

// Drivers returns a restartable sequence of drivers matching f in
// registration order.
func (r *Registry) Drivers(f DriverFilter) iter.Seq[model.Driver] {
	return func(yield func(model.Driver) bool) {
		var snap []model.Driver
		r.store.View(func(tx *store.Tx) { snap = tx.Drivers() })
		for _, d := range snap {
			if !f.match(d) {
				continue
			}
			if !yield(d) {
				return
			}
		}
	}
}
