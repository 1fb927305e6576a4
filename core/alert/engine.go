// Package alert derives operational alerts from registry and ledger
// state: expiring driver licenses, categories with no available
// vehicle, and requests stuck in pending. The engine never mutates
// vehicles, drivers or requests; it owns the alert records alone.
// Every rule is idempotent: re-evaluation with unchanged state neither
// duplicates nor drops alerts.
package alert

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/medrota/dispatch/core/clock"
	"github.com/medrota/dispatch/core/events"
	"github.com/medrota/dispatch/core/logger"
	"github.com/medrota/dispatch/core/metrics"
	"github.com/medrota/dispatch/core/model"
	"github.com/medrota/dispatch/core/monitoring"
	"github.com/medrota/dispatch/core/store"
	"github.com/medrota/dispatch/internal/eventbus"
)

// Publisher pushes raised and cleared alerts to an external channel.
// The MQTT adapter implements it; nil disables publication.
type Publisher interface {
	PublishAlert(a model.Alert, cleared bool) error
}

// Engine evaluates the alert rules.
type Engine struct {
	cfg    Config
	store  *store.Store
	resBus *eventbus.Bus[events.ResourceEvent]
	reqBus *eventbus.Bus[events.RequestEvent]
	clock  clock.Clock
	log    logger.Logger
	sink   metrics.Sink
	pub    Publisher
}

// New creates an alert engine over the given store. The buses trigger
// an evaluation between scan ticks; either may be nil.
func New(cfg Config, st *store.Store, resBus *eventbus.Bus[events.ResourceEvent], reqBus *eventbus.Bus[events.RequestEvent], clk clock.Clock, log logger.Logger, sink metrics.Sink, pub Publisher) *Engine {
	cfg.SetDefaults()
	if sink == nil {
		sink = metrics.NopSink{}
	}
	return &Engine{cfg: cfg, store: st, resBus: resBus, reqBus: reqBus, clock: clk, log: log, sink: sink, pub: pub}
}

// Run evaluates on a fixed interval and on registry/ledger events
// until the context is cancelled.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(e.cfg.ScanInterval())
	defer ticker.Stop()

	var resSub <-chan events.ResourceEvent
	if e.resBus != nil {
		resSub = e.resBus.Subscribe()
		defer e.resBus.Unsubscribe(resSub)
	}
	var reqSub <-chan events.RequestEvent
	if e.reqBus != nil {
		reqSub = e.reqBus.Subscribe()
		defer e.reqBus.Unsubscribe(reqSub)
	}

	e.Evaluate()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Evaluate()
		case _, ok := <-resSub:
			if !ok {
				resSub = nil
				continue
			}
			e.Evaluate()
		case _, ok := <-reqSub:
			if !ok {
				reqSub = nil
				continue
			}
			e.Evaluate()
		}
	}
}

// condition is the desired open alert for one subject.
type condition struct {
	severity model.AlertSeverity
	message  string
}

type rule struct {
	typ  model.AlertType
	eval func(now time.Time, tx *store.Tx) map[string]condition
}

// Evaluate runs all rules once. A rule that fails is logged and
// skipped for this cycle; the others still run.
func (e *Engine) Evaluate() {
	rules := []rule{
		{model.AlertDriverLicense, e.driverLicense},
		{model.AlertVehicleUnavailable, e.vehicleUnavailable},
		{model.AlertRequestStale, e.requestStale},
	}
	for _, r := range rules {
		if err := e.apply(r); err != nil {
			e.log.Errorf("alert rule %s: %v", r.typ, err)
			monitoring.CaptureError(err, "alert")
		}
	}
	e.exportOpenCounts()
}

// apply reconciles the open alerts of one type against the rule's
// desired conditions in a single transaction.
func (e *Engine) apply(r rule) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("rule panicked: %v", rec)
		}
	}()

	now := e.clock.Now()
	var raised, cleared []model.Alert
	err = e.store.Update(func(tx *store.Tx) error {
		desired := r.eval(now, tx)

		open := make(map[string]model.Alert)
		for _, a := range tx.Alerts() {
			if a.Type == r.typ && a.Open() {
				open[a.SubjectID] = a
			}
		}

		for subject, cond := range desired {
			if a, ok := open[subject]; ok {
				if a.Severity != cond.severity || a.Message != cond.message {
					a.Severity = cond.severity
					a.Message = cond.message
					tx.PutAlert(a)
				}
				continue
			}
			a := model.Alert{
				ID:        uuid.NewString(),
				Type:      r.typ,
				SubjectID: subject,
				Severity:  cond.severity,
				Message:   cond.message,
				RaisedAt:  now,
			}
			tx.PutAlert(a)
			raised = append(raised, a)
		}
		for subject, a := range open {
			if _, still := desired[subject]; still {
				continue
			}
			t := now
			a.ClearedAt = &t
			tx.PutAlert(a)
			cleared = append(cleared, a)
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, a := range raised {
		e.log.Warnf("alert raised: %s %s (%s) %s", a.Type, a.SubjectID, a.Severity, a.Message)
		e.notify(a, false)
	}
	for _, a := range cleared {
		e.log.Infof("alert cleared: %s %s", a.Type, a.SubjectID)
		e.notify(a, true)
	}
	return nil
}

func (e *Engine) notify(a model.Alert, clearedFlag bool) {
	if err := e.sink.RecordAlert(metrics.AlertTransition{
		Type:     a.Type,
		Severity: a.Severity,
		Cleared:  clearedFlag,
		At:       e.clock.Now(),
	}); err != nil {
		e.log.Warnf("record alert: %v", err)
	}
	if e.pub != nil {
		if err := e.pub.PublishAlert(a, clearedFlag); err != nil {
			e.log.Warnf("publish alert: %v", err)
		}
	}
}

// driverLicense flags drivers whose license expires inside the
// lookahead window, escalating to high once expired. The alert clears
// when the expiry moves past the window or the driver is removed.
func (e *Engine) driverLicense(now time.Time, tx *store.Tx) map[string]condition {
	window := time.Duration(e.cfg.LicenseLookaheadDays) * 24 * time.Hour
	desired := make(map[string]condition)
	for _, d := range tx.Drivers() {
		switch {
		case d.LicenseExpired(now):
			desired[d.ID] = condition{
				severity: model.SeverityHigh,
				message:  fmt.Sprintf("license %s expired on %s", d.LicenseNumber, d.LicenseExpiry.Format("2006-01-02")),
			}
		case d.LicenseExpiry.Sub(now) <= window:
			desired[d.ID] = condition{
				severity: model.SeverityWarning,
				message:  fmt.Sprintf("license %s expires on %s", d.LicenseNumber, d.LicenseExpiry.Format("2006-01-02")),
			}
		}
	}
	return desired
}

// vehicleUnavailable flags a category with pending demand and zero
// available vehicles. The subject is the category itself.
func (e *Engine) vehicleUnavailable(now time.Time, tx *store.Tx) map[string]condition {
	availByCat := make(map[model.Category]int)
	for _, v := range tx.Vehicles() {
		if v.Status == model.VehicleAvailable {
			availByCat[v.Category]++
		}
	}
	pendingByCat := make(map[model.Category]int)
	for _, r := range tx.Requests() {
		if r.Status == model.RequestPending {
			pendingByCat[r.Category]++
		}
	}
	desired := make(map[string]condition)
	for cat, pending := range pendingByCat {
		if pending > 0 && availByCat[cat] == 0 {
			desired[string(cat)] = condition{
				severity: model.SeverityWarning,
				message:  fmt.Sprintf("no %s vehicle available for %d pending request(s)", cat, pending),
			}
		}
	}
	return desired
}

// requestStale flags requests pending past the warn threshold and
// escalates past the high threshold.
func (e *Engine) requestStale(now time.Time, tx *store.Tx) map[string]condition {
	warn := time.Duration(e.cfg.PendingWarnMinutes) * time.Minute
	high := time.Duration(e.cfg.PendingHighMinutes) * time.Minute
	desired := make(map[string]condition)
	for _, r := range tx.Requests() {
		if r.Status != model.RequestPending {
			continue
		}
		age := now.Sub(r.CreatedAt)
		switch {
		case age > high:
			desired[r.ID] = condition{
				severity: model.SeverityHigh,
				message:  fmt.Sprintf("request unassigned for %s", age.Round(time.Minute)),
			}
		case age > warn:
			desired[r.ID] = condition{
				severity: model.SeverityWarning,
				message:  fmt.Sprintf("request unassigned for %s", age.Round(time.Minute)),
			}
		}
	}
	return desired
}

func (e *Engine) exportOpenCounts() {
	counts := map[model.AlertType]int{
		model.AlertDriverLicense:      0,
		model.AlertVehicleUnavailable: 0,
		model.AlertRequestStale:       0,
	}
	e.store.View(func(tx *store.Tx) {
		for _, a := range tx.Alerts() {
			if a.Open() {
				counts[a.Type]++
			}
		}
	})
	if err := e.sink.RecordOpenAlerts(counts); err != nil {
		e.log.Warnf("record open alerts: %v", err)
	}
}

// List returns alerts ordered by raise time. With openOnly set,
// cleared alerts are skipped.
func (e *Engine) List(openOnly bool) []model.Alert {
	var out []model.Alert
	e.store.View(func(tx *store.Tx) {
		for _, a := range tx.Alerts() {
			if openOnly && !a.Open() {
				continue
			}
			out = append(out, a)
		}
	})
	return out
}
