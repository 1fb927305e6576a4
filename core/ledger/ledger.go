// Package ledger holds the authoritative lifecycle state of transport
// requests. Attendances are immediate, appointments pre-booked; both
// share one state machine. Creation triggers the matcher synchronously
// and every committed change is published on the request bus.
package ledger

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

// Matcher is the assignment trigger the ledger calls after inserting a
// pending request. Wired after construction to break the cycle between
// ledger and matcher.
type Matcher interface {
	MatchRequest(requestID string)
}

// Ledger is the request ledger.
type Ledger struct {
	store   *store.Store
	reqBus  *eventbus.Bus[events.RequestEvent]
	resBus  *eventbus.Bus[events.ResourceEvent]
	clock   clock.Clock
	log     logger.Logger
	matcher Matcher
}

// New creates a ledger over the given store. The resource bus is the
// registry's bus; the ledger publishes on it when a cancellation or
// completion frees resources.
func New(st *store.Store, reqBus *eventbus.Bus[events.RequestEvent], resBus *eventbus.Bus[events.ResourceEvent], clk clock.Clock, log logger.Logger) *Ledger {
	return &Ledger{store: st, reqBus: reqBus, resBus: resBus, clock: clk, log: log}
}

// SetMatcher wires the matcher trigger. Must be called before the
// first creation; a nil matcher leaves requests pending until the next
// availability event.
func (l *Ledger) SetMatcher(m Matcher) { l.matcher = m }

// CreateAttendance validates and stores an immediate transport
// request, then triggers the matcher.
func (l *Ledger) CreateAttendance(r model.Request) (model.Request, error) {
	r.Kind = model.KindAttendance
	return l.create(r)
}

// CreateAppointment validates and stores a pre-booked transport
// request, then triggers the matcher.
func (l *Ledger) CreateAppointment(r model.Request) (model.Request, error) {
	r.Kind = model.KindAppointment
	return l.create(r)
}

func (l *Ledger) create(r model.Request) (model.Request, error) {
	now := l.clock.Now()
	if err := r.Validate(now); err != nil {
		return model.Request{}, err
	}
	r.ID = uuid.NewString()
	r.Status = model.RequestPending
	r.VehicleID = ""
	r.DriverID = ""
	r.CreatedAt = now
	r.UpdatedAt = now
	if err := l.store.Update(func(tx *store.Tx) error {
		tx.PutRequest(r)
		return nil
	}); err != nil {
		return model.Request{}, err
	}
	l.log.Infof("%s %s created (priority %s, category %s)", r.Kind, r.ID, r.Priority, r.Category)
	l.publishRequest(r)
	if l.matcher != nil {
		l.matcher.MatchRequest(r.ID)
	}
	return l.Get(r.ID)
}

// Get returns a request by id.
func (l *Ledger) Get(id string) (model.Request, error) {
	var r model.Request
	var ok bool
	l.store.View(func(tx *store.Tx) { r, ok = tx.Request(id) })
	if !ok {
		return model.Request{}, fault.NotFoundf("request %s", id)
	}
	return r, nil
}

// Acting names the resources for a manual pending -> assigned
// transition. All other transitions leave it nil.
type Acting struct {
	VehicleID string
	DriverID  string
}

// Transition moves a request through its state machine. Assignment
// requires acting resources and performs the same atomic three-record
// claim the matcher does; completion and a return to pending release
// both resources back to available in the same transaction.
func (l *Ledger) Transition(id string, target model.RequestStatus, acting *Acting) error {
	var freed []freedResource
	err := l.store.Update(func(tx *store.Tx) error {
		r, ok := tx.Request(id)
		if !ok {
			return fault.NotFoundf("request %s", id)
		}
		if r.Status.Terminal() {
			return fault.Conflictf("request %s is %s", id, r.Status)
		}
		if !r.CanTransition(target) {
			return fault.Transitionf("request %s cannot go from %s to %s", id, r.Status, target)
		}
		now := l.clock.Now()
		switch target {
		case model.RequestAssigned:
			if acting == nil {
				return fault.Validationf("assignment requires acting vehicle and driver ids")
			}
			return AssignInTx(tx, id, acting.VehicleID, acting.DriverID, now)
		case model.RequestCancelled:
			return fault.Transitionf("use Cancel to cancel request %s", id)
		case model.RequestCompleted, model.RequestPending:
			freed = releaseInTx(tx, &r, now)
		}
		r.Status = target
		r.UpdatedAt = now
		tx.PutRequest(r)
		return nil
	})
	if err != nil {
		return err
	}
	l.log.Infof("request %s -> %s", id, target)
	r, _ := l.Get(id)
	l.publishRequest(r)
	l.publishFreed(freed)
	return nil
}

// Cancel marks a request cancelled and releases any assigned resources
// back to available. Legal from any non-terminal state; repeating the
// cancel is a conflict, not a second state change.
func (l *Ledger) Cancel(id, reason string) error {
	var freed []freedResource
	err := l.store.Update(func(tx *store.Tx) error {
		r, ok := tx.Request(id)
		if !ok {
			return fault.NotFoundf("request %s", id)
		}
		if r.Status.Terminal() {
			return fault.Conflictf("request %s is %s", id, r.Status)
		}
		now := l.clock.Now()
		freed = releaseInTx(tx, &r, now)
		r.Status = model.RequestCancelled
		r.CancelReason = reason
		r.UpdatedAt = now
		tx.PutRequest(r)
		return nil
	})
	if err != nil {
		return err
	}
	l.log.Infof("request %s cancelled: %s", id, reason)
	r, _ := l.Get(id)
	l.publishRequest(r)
	l.publishFreed(freed)
	return nil
}

type freedResource struct {
	kind     events.ResourceKind
	id       string
	category model.Category
}

// releaseInTx returns the request's resources to available inside the
// running transaction. A resource that left in_use through a
// maintenance or suspension transition keeps its current status. The
// request's claim fields are cleared either way.
func releaseInTx(tx *store.Tx, r *model.Request, now time.Time) []freedResource {
	var freed []freedResource
	if r.VehicleID != "" {
		if v, ok := tx.Vehicle(r.VehicleID); ok && v.Status == model.VehicleInUse {
			v.Status = model.VehicleAvailable
			v.UpdatedAt = now
			tx.PutVehicle(v)
			freed = append(freed, freedResource{events.ResourceVehicle, v.ID, v.Category})
		}
	}
	if r.DriverID != "" {
		if d, ok := tx.Driver(r.DriverID); ok && d.Status == model.DriverInUse {
			d.Status = model.DriverAvailable
			d.UpdatedAt = now
			tx.PutDriver(d)
			freed = append(freed, freedResource{events.ResourceDriver, d.ID, ""})
		}
	}
	r.VehicleID = ""
	r.DriverID = ""
	return freed
}

// AssignInTx claims the vehicle and driver for the request inside the
// running transaction: both resources move to in_use and the request
// to assigned, or the transaction fails with no state change. State is
// re-checked here so concurrent matcher invocations cannot
// double-assign.
func AssignInTx(tx *store.Tx, requestID, vehicleID, driverID string, now time.Time) error {
	r, ok := tx.Request(requestID)
	if !ok {
		return fault.NotFoundf("request %s", requestID)
	}
	if r.Status != model.RequestPending {
		return fault.Abortf(nil, "request %s is %s, not pending", requestID, r.Status)
	}
	v, ok := tx.Vehicle(vehicleID)
	if !ok {
		return fault.NotFoundf("vehicle %s", vehicleID)
	}
	if v.Status != model.VehicleAvailable {
		return fault.Abortf(nil, "vehicle %s is %s", vehicleID, v.Status)
	}
	d, ok := tx.Driver(driverID)
	if !ok {
		return fault.NotFoundf("driver %s", driverID)
	}
	if d.Status != model.DriverAvailable {
		return fault.Abortf(nil, "driver %s is %s", driverID, d.Status)
	}
	if d.LicenseExpired(now) {
		return fault.Abortf(nil, "driver %s license expired", driverID)
	}

	v.Status = model.VehicleInUse
	v.UpdatedAt = now
	tx.PutVehicle(v)
	d.Status = model.DriverInUse
	d.UpdatedAt = now
	tx.PutDriver(d)
	r.Status = model.RequestAssigned
	r.VehicleID = vehicleID
	r.DriverID = driverID
	r.UpdatedAt = now
	tx.PutRequest(r)
	return nil
}

func (l *Ledger) publishRequest(r model.Request) {
	if l.reqBus == nil {
		return
	}
	l.reqBus.Publish(events.RequestEvent{
		RequestID: r.ID,
		Status:    r.Status,
		Priority:  r.Priority,
		Category:  r.Category,
		At:        l.clock.Now(),
	})
}

func (l *Ledger) publishFreed(freed []freedResource) {
	if l.resBus == nil {
		return
	}
	for _, f := range freed {
		l.resBus.Publish(events.ResourceEvent{
			Kind:       f.kind,
			ResourceID: f.id,
			Status:     "available",
			Category:   f.category,
			At:         l.clock.Now(),
		})
	}
}
