// Package match pairs pending transport requests with available
// vehicle/driver pairs. Selection happens on a snapshot; the claim is
// re-validated inside a single store transaction, so concurrent
// invocations for the same request or resource can never double-assign.
package match

import (
	"context"
	"sort"

	"github.com/medrota/dispatch/core/clock"
	"github.com/medrota/dispatch/core/events"
	"github.com/medrota/dispatch/core/fault"
	"github.com/medrota/dispatch/core/ledger"
	"github.com/medrota/dispatch/core/logger"
	"github.com/medrota/dispatch/core/metrics"
	"github.com/medrota/dispatch/core/model"
	"github.com/medrota/dispatch/core/monitoring"
	"github.com/medrota/dispatch/core/store"
	"github.com/medrota/dispatch/internal/eventbus"
)

// Config defines matcher settings.
type Config struct {
	// MaxAttempts bounds the automatic retries after an aborted
	// assignment transaction.
	MaxAttempts int `json:"max_attempts"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
}

// OrderPublisher notifies the fleet of a committed assignment. The
// MQTT adapter implements it; a nil publisher disables notification.
type OrderPublisher interface {
	PublishAssignment(ev events.AssignmentEvent) error
}

// Matcher selects eligible pairs and performs the assignment
// transaction.
type Matcher struct {
	cfg    Config
	store  *store.Store
	resBus *eventbus.Bus[events.ResourceEvent]
	asnBus *eventbus.Bus[events.AssignmentEvent]
	clock  clock.Clock
	log    logger.Logger
	sink   metrics.Sink
	orders OrderPublisher
}

// New creates a matcher over the given store. The resource bus is the
// registry's; the matcher wakes on every transition into available.
func New(cfg Config, st *store.Store, resBus *eventbus.Bus[events.ResourceEvent], asnBus *eventbus.Bus[events.AssignmentEvent], clk clock.Clock, log logger.Logger, sink metrics.Sink, orders OrderPublisher) *Matcher {
	cfg.SetDefaults()
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Matcher{cfg: cfg, store: st, resBus: resBus, asnBus: asnBus, clock: clk, log: log, sink: sink, orders: orders}
}

// MatchRequest attempts to assign the given pending request. Absence
// of an eligible pair is not an error; failures past the retry budget
// are logged. Satisfies ledger.Matcher.
func (m *Matcher) MatchRequest(requestID string) {
	if _, err := m.Force(requestID); err != nil {
		m.log.Errorf("match request %s: %v", requestID, err)
		monitoring.CaptureError(err, "match")
	}
}

// Force runs one matching attempt for a specific request. It reports
// whether an assignment was committed. Used by the administrative
// manual trigger when automatic matching has stalled.
func (m *Matcher) Force(requestID string) (bool, error) {
	var req model.Request
	var ok bool
	m.store.View(func(tx *store.Tx) { req, ok = tx.Request(requestID) })
	if !ok {
		return false, fault.NotFoundf("request %s", requestID)
	}
	if req.Status != model.RequestPending {
		return false, nil
	}
	return m.tryAssign(req)
}

// Run drains the pending queue whenever a resource becomes available,
// until the context is cancelled.
func (m *Matcher) Run(ctx context.Context) {
	sub := m.resBus.Subscribe()
	defer m.resBus.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}
			if ev.Status != string(model.VehicleAvailable) {
				continue
			}
			m.DrainPending()
		}
	}
}

// DrainPending walks the pending queue in priority order (high before
// medium before low, FIFO within a priority) and attempts each
// request once. A request without an eligible pair stays pending.
func (m *Matcher) DrainPending() {
	var pending []model.Request
	m.store.View(func(tx *store.Tx) {
		for _, r := range tx.Requests() {
			if r.Status == model.RequestPending {
				pending = append(pending, r)
			}
		}
	})
	sort.SliceStable(pending, func(i, j int) bool {
		if pending[i].Priority.Rank() != pending[j].Priority.Rank() {
			return pending[i].Priority.Rank() > pending[j].Priority.Rank()
		}
		return pending[i].CreatedAt.Before(pending[j].CreatedAt)
	})
	for _, r := range pending {
		if _, err := m.tryAssign(r); err != nil {
			m.log.Errorf("drain: request %s: %v", r.ID, err)
		}
	}
}

// tryAssign selects a pair and commits the claim, retrying a bounded
// number of times when the transaction aborts under contention.
func (m *Matcher) tryAssign(req model.Request) (bool, error) {
	var lastErr error
	for attempt := 0; attempt < m.cfg.MaxAttempts; attempt++ {
		vehicleID, driverID, found := m.selectPair(req)
		if !found {
			m.recordMiss(req)
			return false, nil
		}
		now := m.clock.Now()
		err := m.store.Update(func(tx *store.Tx) error {
			return ledger.AssignInTx(tx, req.ID, vehicleID, driverID, now)
		})
		if err == nil {
			m.committed(req, vehicleID, driverID)
			return true, nil
		}
		if !fault.IsAbort(err) {
			return false, err
		}
		// Someone raced us to the request or a resource. Re-select.
		m.log.Debugf("assignment of %s aborted (attempt %d): %v", req.ID, attempt+1, err)
		lastErr = err

		var r model.Request
		var ok bool
		m.store.View(func(tx *store.Tx) { r, ok = tx.Request(req.ID) })
		if !ok || r.Status != model.RequestPending {
			// Resolved by a competing invocation or a cancellation.
			return false, nil
		}
	}
	return false, lastErr
}

// selectPair applies the selection policy on a snapshot: among
// available vehicles prefer a category match, then earliest
// registered; the driver must hold a license covering the vehicle and
// not expired, earliest registered wins.
func (m *Matcher) selectPair(req model.Request) (vehicleID, driverID string, found bool) {
	now := m.clock.Now()
	var vehicles []model.Vehicle
	var drivers []model.Driver
	m.store.View(func(tx *store.Tx) {
		for _, v := range tx.Vehicles() {
			if v.Status == model.VehicleAvailable {
				vehicles = append(vehicles, v)
			}
		}
		for _, d := range tx.Drivers() {
			if d.Status == model.DriverAvailable && !d.LicenseExpired(now) {
				drivers = append(drivers, d)
			}
		}
	})
	// Store listings are in registration order already; a stable sort
	// on category match keeps that order within each group.
	sort.SliceStable(vehicles, func(i, j int) bool {
		return (vehicles[i].Category == req.Category) && (vehicles[j].Category != req.Category)
	})
	for _, v := range vehicles {
		need := RequiredLicense(v.Category)
		for _, d := range drivers {
			if d.LicenseCategory.Covers(need) {
				return v.ID, d.ID, true
			}
		}
	}
	return "", "", false
}

// RequiredLicense maps a vehicle category to the minimum license class
// a driver needs to operate it. Advanced units are heavier mobile ICU
// rigs.
func RequiredLicense(c model.Category) model.LicenseCategory {
	if c == model.CategoryAdvanced {
		return model.LicenseD
	}
	return model.LicenseC
}

func (m *Matcher) committed(req model.Request, vehicleID, driverID string) {
	now := m.clock.Now()
	ev := events.AssignmentEvent{
		RequestID: req.ID,
		VehicleID: vehicleID,
		DriverID:  driverID,
		Waited:    now.Sub(req.CreatedAt),
		At:        now,
	}
	m.log.Infof("request %s assigned to vehicle %s, driver %s", req.ID, vehicleID, driverID)
	if m.asnBus != nil {
		m.asnBus.Publish(ev)
	}
	if err := m.sink.RecordAssignment(metrics.AssignmentResult{
		RequestID: req.ID,
		VehicleID: vehicleID,
		DriverID:  driverID,
		Priority:  req.Priority,
		Category:  req.Category,
		Waited:    ev.Waited,
		At:        now,
	}); err != nil {
		m.log.Warnf("record assignment: %v", err)
	}
	if m.orders != nil {
		if err := m.orders.PublishAssignment(ev); err != nil {
			m.log.Warnf("publish assignment order: %v", err)
		}
	}
}

func (m *Matcher) recordMiss(req model.Request) {
	if err := m.sink.RecordMatchMiss(metrics.MatchMiss{
		RequestID: req.ID,
		Category:  req.Category,
		At:        m.clock.Now(),
	}); err != nil {
		m.log.Warnf("record match miss: %v", err)
	}
}
