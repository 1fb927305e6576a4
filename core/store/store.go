// Package store holds all dispatch core records in a single
// transactional arena. Vehicles, drivers, requests and alerts are
// addressed by id; a mutation runs inside Update, which stages writes
// and applies them only when the whole transaction succeeds. The
// matcher's three-record assignment is one Update call, so no reader
// ever observes a request claiming a resource the resource does not
// reflect.
package store

import (
	"sort"
	"sync"

	"github.com/medrota/dispatch/core/model"
)

// Store is the in-memory record arena. The zero value is not usable;
// call New.
type Store struct {
	mu       sync.RWMutex
	vehicles map[string]model.Vehicle
	drivers  map[string]model.Driver
	requests map[string]model.Request
	alerts   map[string]model.Alert
}

// New creates an empty store.
func New() *Store {
	return &Store{
		vehicles: make(map[string]model.Vehicle),
		drivers:  make(map[string]model.Driver),
		requests: make(map[string]model.Request),
		alerts:   make(map[string]model.Alert),
	}
}

// Tx is a transaction over the store. Reads see staged writes of the
// same transaction. Writes become visible to other callers only when
// the Update callback returns nil.
type Tx struct {
	s *Store

	vehicles map[string]model.Vehicle
	drivers  map[string]model.Driver
	requests map[string]model.Request
	alerts   map[string]model.Alert

	delVehicles map[string]struct{}
	delDrivers  map[string]struct{}
}

// Update runs fn in a write transaction. If fn returns an error the
// staged writes are discarded and the error is returned unchanged.
func (s *Store) Update(fn func(tx *Tx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx := &Tx{
		s:           s,
		vehicles:    make(map[string]model.Vehicle),
		drivers:     make(map[string]model.Driver),
		requests:    make(map[string]model.Request),
		alerts:      make(map[string]model.Alert),
		delVehicles: make(map[string]struct{}),
		delDrivers:  make(map[string]struct{}),
	}
	if err := fn(tx); err != nil {
		return err
	}
	for id := range tx.delVehicles {
		delete(s.vehicles, id)
	}
	for id := range tx.delDrivers {
		delete(s.drivers, id)
	}
	for id, v := range tx.vehicles {
		s.vehicles[id] = v
	}
	for id, d := range tx.drivers {
		s.drivers[id] = d
	}
	for id, r := range tx.requests {
		s.requests[id] = r
	}
	for id, a := range tx.alerts {
		s.alerts[id] = a
	}
	return nil
}

// View runs fn in a read-only transaction over a consistent snapshot.
// Staging maps stay empty; writes made through the Tx are discarded.
func (s *Store) View(fn func(tx *Tx)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(&Tx{s: s})
}

// Vehicle returns the vehicle with the given id.
func (tx *Tx) Vehicle(id string) (model.Vehicle, bool) {
	if _, gone := tx.delVehicles[id]; gone {
		return model.Vehicle{}, false
	}
	if v, ok := tx.vehicles[id]; ok {
		return v, true
	}
	v, ok := tx.s.vehicles[id]
	return v, ok
}

// PutVehicle stages a vehicle write.
func (tx *Tx) PutVehicle(v model.Vehicle) {
	if tx.vehicles == nil {
		return
	}
	delete(tx.delVehicles, v.ID)
	tx.vehicles[v.ID] = v
}

// DeleteVehicle stages a vehicle removal.
func (tx *Tx) DeleteVehicle(id string) {
	if tx.delVehicles == nil {
		return
	}
	delete(tx.vehicles, id)
	tx.delVehicles[id] = struct{}{}
}

// Driver returns the driver with the given id.
func (tx *Tx) Driver(id string) (model.Driver, bool) {
	if _, gone := tx.delDrivers[id]; gone {
		return model.Driver{}, false
	}
	if d, ok := tx.drivers[id]; ok {
		return d, true
	}
	d, ok := tx.s.drivers[id]
	return d, ok
}

// PutDriver stages a driver write.
func (tx *Tx) PutDriver(d model.Driver) {
	if tx.drivers == nil {
		return
	}
	delete(tx.delDrivers, d.ID)
	tx.drivers[d.ID] = d
}

// DeleteDriver stages a driver removal.
func (tx *Tx) DeleteDriver(id string) {
	if tx.delDrivers == nil {
		return
	}
	delete(tx.drivers, id)
	tx.delDrivers[id] = struct{}{}
}

// Request returns the request with the given id.
func (tx *Tx) Request(id string) (model.Request, bool) {
	if r, ok := tx.requests[id]; ok {
		return r, true
	}
	r, ok := tx.s.requests[id]
	return r, ok
}

// PutRequest stages a request write.
func (tx *Tx) PutRequest(r model.Request) {
	if tx.requests == nil {
		return
	}
	tx.requests[r.ID] = r
}

// Alert returns the alert with the given id.
func (tx *Tx) Alert(id string) (model.Alert, bool) {
	if a, ok := tx.alerts[id]; ok {
		return a, true
	}
	a, ok := tx.s.alerts[id]
	return a, ok
}

// PutAlert stages an alert write.
func (tx *Tx) PutAlert(a model.Alert) {
	if tx.alerts == nil {
		return
	}
	tx.alerts[a.ID] = a
}

// Vehicles returns all vehicles, staged writes included, ordered by
// creation time then id so selection policies are deterministic.
func (tx *Tx) Vehicles() []model.Vehicle {
	out := make([]model.Vehicle, 0, len(tx.s.vehicles))
	for id, v := range tx.s.vehicles {
		if _, gone := tx.delVehicles[id]; gone {
			continue
		}
		if staged, ok := tx.vehicles[id]; ok {
			v = staged
		}
		out = append(out, v)
	}
	for id, v := range tx.vehicles {
		if _, ok := tx.s.vehicles[id]; !ok {
			out = append(out, v)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Drivers returns all drivers, ordered by creation time then id.
func (tx *Tx) Drivers() []model.Driver {
	out := make([]model.Driver, 0, len(tx.s.drivers))
	for id, d := range tx.s.drivers {
		if _, gone := tx.delDrivers[id]; gone {
			continue
		}
		if staged, ok := tx.drivers[id]; ok {
			d = staged
		}
		out = append(out, d)
	}
	for id, d := range tx.drivers {
		if _, ok := tx.s.drivers[id]; !ok {
			out = append(out, d)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Requests returns all requests, ordered by creation time then id.
func (tx *Tx) Requests() []model.Request {
	out := make([]model.Request, 0, len(tx.s.requests))
	for id, r := range tx.s.requests {
		if staged, ok := tx.requests[id]; ok {
			r = staged
		}
		out = append(out, r)
	}
	for id, r := range tx.requests {
		if _, ok := tx.s.requests[id]; !ok {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Alerts returns all alerts ordered by raise time then id.
func (tx *Tx) Alerts() []model.Alert {
	out := make([]model.Alert, 0, len(tx.s.alerts))
	for id, a := range tx.s.alerts {
		if staged, ok := tx.alerts[id]; ok {
			a = staged
		}
		out = append(out, a)
	}
	for id, a := range tx.alerts {
		if _, ok := tx.s.alerts[id]; !ok {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].RaisedAt.Equal(out[j].RaisedAt) {
			return out[i].RaisedAt.Before(out[j].RaisedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
