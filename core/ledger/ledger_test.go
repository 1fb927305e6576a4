package ledger

import (
	"testing"
	"time"

	"github.com/medrota/dispatch/core/clock"
	"github.com/medrota/dispatch/core/events"
	"github.com/medrota/dispatch/core/fault"
	"github.com/medrota/dispatch/core/model"
	"github.com/medrota/dispatch/core/registry"
	"github.com/medrota/dispatch/core/store"
	"github.com/medrota/dispatch/infra/logger"
	"github.com/medrota/dispatch/internal/eventbus"
)

var testNow = time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)

type fixture struct {
	store  *store.Store
	clock  *clock.Fake
	reg    *registry.Registry
	led    *Ledger
	resBus *eventbus.Bus[events.ResourceEvent]
	reqBus *eventbus.Bus[events.RequestEvent]
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	st := store.New()
	clk := clock.NewFake(testNow)
	resBus := eventbus.New[events.ResourceEvent]()
	reqBus := eventbus.New[events.RequestEvent]()
	log := logger.NopLogger{}
	return &fixture{
		store:  st,
		clock:  clk,
		reg:    registry.New(st, resBus, clk, log),
		led:    New(st, reqBus, resBus, clk, log),
		resBus: resBus,
		reqBus: reqBus,
	}
}

func (f *fixture) pair(t *testing.T) (model.Vehicle, model.Driver) {
	t.Helper()
	v, err := f.reg.RegisterVehicle(model.Vehicle{Plate: "ABC-1234", Model: "Sprinter 416", Category: model.CategoryBasic})
	if err != nil {
		t.Fatalf("register vehicle: %v", err)
	}
	d, err := f.reg.RegisterDriver(model.Driver{
		Name:            "Ana Souza",
		LicenseNumber:   "12345678901",
		LicenseCategory: model.LicenseC,
		LicenseExpiry:   testNow.AddDate(2, 0, 0),
	})
	if err != nil {
		t.Fatalf("register driver: %v", err)
	}
	return v, d
}

func (f *fixture) attendance(t *testing.T) model.Request {
	t.Helper()
	r, err := f.led.CreateAttendance(model.Request{
		Requester: model.Contact{Name: "Central", Phone: "5531999990000"},
		Patient:   model.Patient{Name: "J. Pereira"},
		Priority:  model.PriorityMedium,
		Category:  model.CategoryBasic,
	})
	if err != nil {
		t.Fatalf("create attendance: %v", err)
	}
	return r
}

func TestCreateAttendanceStartsPending(t *testing.T) {
	f := newFixture(t)
	r := f.attendance(t)
	if r.Status != model.RequestPending {
		t.Fatalf("status = %s, want pending", r.Status)
	}
	if r.ID == "" || r.CreatedAt.IsZero() {
		t.Fatalf("missing id or created_at: %+v", r)
	}
}

func TestCreateAppointmentRequiresFutureTime(t *testing.T) {
	f := newFixture(t)
	past := testNow.Add(-time.Hour)
	_, err := f.led.CreateAppointment(model.Request{
		Requester:   model.Contact{Name: "Central", Phone: "5531999990000"},
		Patient:     model.Patient{Name: "J. Pereira"},
		Priority:    model.PriorityLow,
		Category:    model.CategoryBasic,
		ScheduledAt: &past,
	})
	if !fault.IsValidation(err) {
		t.Fatalf("err = %v, want validation", err)
	}
}

func TestManualAssignClaimsResources(t *testing.T) {
	f := newFixture(t)
	v, d := f.pair(t)
	r := f.attendance(t)

	if err := f.led.Transition(r.ID, model.RequestAssigned, &Acting{VehicleID: v.ID, DriverID: d.ID}); err != nil {
		t.Fatalf("assign: %v", err)
	}
	got, _ := f.led.Get(r.ID)
	if got.Status != model.RequestAssigned || got.VehicleID != v.ID || got.DriverID != d.ID {
		t.Fatalf("after assign: %+v", got)
	}
	gv, _ := f.reg.Vehicle(v.ID)
	gd, _ := f.reg.Driver(d.ID)
	if gv.Status != model.VehicleInUse || gd.Status != model.DriverInUse {
		t.Fatalf("resources = %s/%s, want in_use", gv.Status, gd.Status)
	}
}

func TestAssignWithoutActingFails(t *testing.T) {
	f := newFixture(t)
	r := f.attendance(t)
	err := f.led.Transition(r.ID, model.RequestAssigned, nil)
	if !fault.IsValidation(err) {
		t.Fatalf("err = %v, want validation", err)
	}
}

func TestCompletionReleasesResources(t *testing.T) {
	f := newFixture(t)
	v, d := f.pair(t)
	r := f.attendance(t)
	if err := f.led.Transition(r.ID, model.RequestAssigned, &Acting{VehicleID: v.ID, DriverID: d.ID}); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if err := f.led.Transition(r.ID, model.RequestEnRoute, nil); err != nil {
		t.Fatalf("en_route: %v", err)
	}
	if err := f.led.Transition(r.ID, model.RequestCompleted, nil); err != nil {
		t.Fatalf("complete: %v", err)
	}
	gv, _ := f.reg.Vehicle(v.ID)
	gd, _ := f.reg.Driver(d.ID)
	if gv.Status != model.VehicleAvailable || gd.Status != model.DriverAvailable {
		t.Fatalf("resources = %s/%s, want available", gv.Status, gd.Status)
	}
	got, _ := f.led.Get(r.ID)
	if got.Status != model.RequestCompleted {
		t.Fatalf("status = %s, want completed", got.Status)
	}
}

func TestTerminalRequestsRejectChanges(t *testing.T) {
	f := newFixture(t)
	r := f.attendance(t)
	if err := f.led.Cancel(r.ID, "caller gave up"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := f.led.Cancel(r.ID, "again"); !fault.IsConflict(err) {
		t.Fatalf("second cancel err = %v, want conflict", err)
	}
	if err := f.led.Transition(r.ID, model.RequestEnRoute, nil); !fault.IsConflict(err) {
		t.Fatalf("transition after cancel err = %v, want conflict", err)
	}
}

func TestAssignedBackToPendingReleasesResources(t *testing.T) {
	f := newFixture(t)
	v, d := f.pair(t)
	r := f.attendance(t)
	if err := f.led.Transition(r.ID, model.RequestAssigned, &Acting{VehicleID: v.ID, DriverID: d.ID}); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if err := f.led.Transition(r.ID, model.RequestPending, nil); err != nil {
		t.Fatalf("back to pending: %v", err)
	}
	got, _ := f.led.Get(r.ID)
	if got.Status != model.RequestPending {
		t.Fatalf("status = %s, want pending", got.Status)
	}
	if got.VehicleID != "" || got.DriverID != "" {
		t.Fatalf("pending request still claims vehicle=%q driver=%q", got.VehicleID, got.DriverID)
	}
	gv, _ := f.reg.Vehicle(v.ID)
	gd, _ := f.reg.Driver(d.ID)
	if gv.Status != model.VehicleAvailable || gd.Status != model.DriverAvailable {
		t.Fatalf("resources = %s/%s, want available", gv.Status, gd.Status)
	}
}

func TestVehicleSidelineRequeuesRequest(t *testing.T) {
	f := newFixture(t)
	v, d := f.pair(t)
	r := f.attendance(t)
	if err := f.led.Transition(r.ID, model.RequestAssigned, &Acting{VehicleID: v.ID, DriverID: d.ID}); err != nil {
		t.Fatalf("assign: %v", err)
	}
	// The vehicle breaks down mid-run; the request goes back in the
	// queue and the driver is freed for the next match.
	if err := f.reg.SetVehicleStatus(v.ID, model.VehicleMaintenance); err != nil {
		t.Fatalf("maintenance: %v", err)
	}
	got, _ := f.led.Get(r.ID)
	if got.Status != model.RequestPending || got.VehicleID != "" || got.DriverID != "" {
		t.Fatalf("after sideline: %+v", got)
	}
	gv, _ := f.reg.Vehicle(v.ID)
	gd, _ := f.reg.Driver(d.ID)
	if gv.Status != model.VehicleMaintenance {
		t.Fatalf("vehicle = %s, want maintenance", gv.Status)
	}
	if gd.Status != model.DriverAvailable {
		t.Fatalf("driver = %s, want available", gd.Status)
	}
}

func TestDriverSuspensionRequeuesRequest(t *testing.T) {
	f := newFixture(t)
	v, d := f.pair(t)
	r := f.attendance(t)
	if err := f.led.Transition(r.ID, model.RequestAssigned, &Acting{VehicleID: v.ID, DriverID: d.ID}); err != nil {
		t.Fatalf("assign: %v", err)
	}
	if err := f.reg.SetDriverStatus(d.ID, model.DriverSuspended); err != nil {
		t.Fatalf("suspend: %v", err)
	}
	got, _ := f.led.Get(r.ID)
	if got.Status != model.RequestPending || got.VehicleID != "" || got.DriverID != "" {
		t.Fatalf("after suspension: %+v", got)
	}
	gv, _ := f.reg.Vehicle(v.ID)
	gd, _ := f.reg.Driver(d.ID)
	if gv.Status != model.VehicleAvailable {
		t.Fatalf("vehicle = %s, want available", gv.Status)
	}
	if gd.Status != model.DriverSuspended {
		t.Fatalf("driver = %s, want suspended", gd.Status)
	}
}

func TestCancelReleasesOnlyInUseResources(t *testing.T) {
	f := newFixture(t)
	v, d := f.pair(t)
	r := f.attendance(t)
	if err := f.led.Transition(r.ID, model.RequestAssigned, &Acting{VehicleID: v.ID, DriverID: d.ID}); err != nil {
		t.Fatalf("assign: %v", err)
	}
	// Force the claimed vehicle into maintenance behind the registry's
	// back, as a crash recovery would see it. Cancelling must not yank
	// it out of maintenance.
	if err := f.store.Update(func(tx *store.Tx) error {
		gv, _ := tx.Vehicle(v.ID)
		gv.Status = model.VehicleMaintenance
		tx.PutVehicle(gv)
		return nil
	}); err != nil {
		t.Fatalf("seed: %v", err)
	}
	if err := f.led.Cancel(r.ID, "vehicle breakdown"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	gv, _ := f.reg.Vehicle(v.ID)
	gd, _ := f.reg.Driver(d.ID)
	if gv.Status != model.VehicleMaintenance {
		t.Fatalf("vehicle = %s, want maintenance kept", gv.Status)
	}
	if gd.Status != model.DriverAvailable {
		t.Fatalf("driver = %s, want available", gd.Status)
	}
}

func TestSkipStatesRejected(t *testing.T) {
	f := newFixture(t)
	r := f.attendance(t)
	if err := f.led.Transition(r.ID, model.RequestCompleted, nil); !fault.IsInvalidTransition(err) {
		t.Fatalf("pending->completed err = %v, want transition fault", err)
	}
	if err := f.led.Transition(r.ID, model.RequestEnRoute, nil); !fault.IsInvalidTransition(err) {
		t.Fatalf("pending->en_route err = %v, want transition fault", err)
	}
}

func TestUnknownRequest(t *testing.T) {
	f := newFixture(t)
	if _, err := f.led.Get("nope"); !fault.IsNotFound(err) {
		t.Fatalf("get err = %v, want not found", err)
	}
	if err := f.led.Cancel("nope", "x"); !fault.IsNotFound(err) {
		t.Fatalf("cancel err = %v, want not found", err)
	}
}

func TestRequestQueryFilters(t *testing.T) {
	f := newFixture(t)
	f.attendance(t)
	at := testNow.Add(4 * time.Hour)
	if _, err := f.led.CreateAppointment(model.Request{
		Requester:   model.Contact{Name: "Clinic", Phone: "5531988887777"},
		Patient:     model.Patient{Name: "M. Costa"},
		Priority:    model.PriorityHigh,
		Category:    model.CategoryAdvanced,
		ScheduledAt: &at,
	}); err != nil {
		t.Fatalf("create appointment: %v", err)
	}

	n := 0
	for range f.led.Requests(Filter{Kind: model.KindAppointment}) {
		n++
	}
	if n != 1 {
		t.Fatalf("appointment count = %d, want 1", n)
	}
	seq := f.led.Requests(Filter{Status: model.RequestPending})
	first, second := 0, 0
	for range seq {
		first++
	}
	for range seq {
		second++
	}
	if first != 2 || second != 2 {
		t.Fatalf("restartable query counts = %d/%d, want 2/2", first, second)
	}
}
