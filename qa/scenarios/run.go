package scenarios

import (
	"testing"
	"time"

	"github.com/medrota/dispatch/core/clock"
	"github.com/medrota/dispatch/core/events"
	"github.com/medrota/dispatch/core/ledger"
	"github.com/medrota/dispatch/core/match"
	"github.com/medrota/dispatch/core/model"
	"github.com/medrota/dispatch/core/registry"
	"github.com/medrota/dispatch/core/store"
	"github.com/medrota/dispatch/infra/logger"
	"github.com/medrota/dispatch/infra/mqtt"
	"github.com/medrota/dispatch/internal/eventbus"
)

// RunScenario replays the scenario over a fresh stack and checks the
// expected outcome.
func RunScenario(t *testing.T, sc *Scenario) {
	st := store.New()
	clk := clock.NewFake(time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC))
	resBus := eventbus.New[events.ResourceEvent]()
	reqBus := eventbus.New[events.RequestEvent]()
	asnBus := eventbus.New[events.AssignmentEvent]()
	log := logger.NopLogger{}

	pub := mqtt.NewMockPublisher()
	reg := registry.New(st, resBus, clk, log)
	led := ledger.New(st, reqBus, resBus, clk, log)
	m := match.New(match.Config{}, st, resBus, asnBus, clk, log, nil, pub)
	led.SetMatcher(m)

	byPlate := make(map[string]string)
	for _, vd := range sc.Vehicles {
		v, err := reg.RegisterVehicle(vd.ToModel())
		if err != nil {
			t.Fatalf("scenario %s: register vehicle %s: %v", sc.Name, vd.Plate, err)
		}
		byPlate[v.Plate] = v.ID
	}
	for _, dd := range sc.Drivers {
		if _, err := reg.RegisterDriver(dd.ToModel(clk.Now())); err != nil {
			t.Fatalf("scenario %s: register driver %s: %v", sc.Name, dd.Name, err)
		}
	}
	for _, plate := range sc.SidelineVehicles {
		id, ok := byPlate[plate]
		if !ok {
			t.Fatalf("scenario %s: sideline unknown plate %s", sc.Name, plate)
		}
		if err := reg.SetVehicleStatus(id, model.VehicleMaintenance); err != nil {
			t.Fatalf("scenario %s: sideline %s: %v", sc.Name, plate, err)
		}
	}

	for _, rd := range sc.Requests {
		req := rd.ToModel(clk.Now())
		var err error
		if req.Kind == model.KindAppointment {
			_, err = led.CreateAppointment(req)
		} else {
			_, err = led.CreateAttendance(req)
		}
		if err != nil {
			t.Fatalf("scenario %s: create request: %v", sc.Name, err)
		}
	}

	assigned := countByStatus(led, model.RequestAssigned)
	pending := countByStatus(led, model.RequestPending)
	if assigned != sc.Expected.Assigned {
		t.Errorf("scenario %s: assigned = %d, want %d", sc.Name, assigned, sc.Expected.Assigned)
	}
	if pending != sc.Expected.Pending {
		t.Errorf("scenario %s: pending = %d, want %d", sc.Name, pending, sc.Expected.Pending)
	}
	if len(pub.Orders) != sc.Expected.Orders {
		t.Errorf("scenario %s: orders = %d, want %d", sc.Name, len(pub.Orders), sc.Expected.Orders)
	}
}

func countByStatus(led *ledger.Ledger, status model.RequestStatus) int {
	n := 0
	for range led.Requests(ledger.Filter{Status: status}) {
		n++
	}
	return n
}
