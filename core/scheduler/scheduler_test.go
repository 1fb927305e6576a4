package scheduler

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/medrota/dispatch/core/model"
	"github.com/medrota/dispatch/core/store"
)

var day = time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)

func seed(t *testing.T, st *store.Store, vehicles []model.Vehicle, drivers []model.Driver, reqs []model.Request) {
	t.Helper()
	err := st.Update(func(tx *store.Tx) error {
		for _, v := range vehicles {
			tx.PutVehicle(v)
		}
		for _, d := range drivers {
			tx.PutDriver(d)
		}
		for _, r := range reqs {
			tx.PutRequest(r)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
}

func appointment(id string, at time.Time, cat model.Category, prio model.Priority) model.Request {
	return model.Request{
		ID:          id,
		Kind:        model.KindAppointment,
		Priority:    prio,
		Category:    cat,
		ScheduledAt: &at,
		Status:      model.RequestPending,
		CreatedAt:   at.Add(-24 * time.Hour),
	}
}

func vehicle(id string, cat model.Category) model.Vehicle {
	return model.Vehicle{ID: id, Category: cat, Status: model.VehicleAvailable}
}

func driver(id string, lic model.LicenseCategory) model.Driver {
	return model.Driver{
		ID:              id,
		Status:          model.DriverAvailable,
		LicenseCategory: lic,
		LicenseExpiry:   day.AddDate(1, 0, 0),
	}
}

func TestDayPlanBucketsAndOrders(t *testing.T) {
	st := store.New()
	seed(t, st,
		[]model.Vehicle{vehicle("v1", model.CategoryBasic), vehicle("v2", model.CategoryAdvanced)},
		[]model.Driver{driver("d1", model.LicenseD), driver("d2", model.LicenseC)},
		[]model.Request{
			appointment("r-late", day.Add(14*time.Hour), model.CategoryBasic, model.PriorityLow),
			appointment("r-morning-low", day.Add(9*time.Hour+40*time.Minute), model.CategoryBasic, model.PriorityLow),
			appointment("r-morning-high", day.Add(9*time.Hour+10*time.Minute), model.CategoryAdvanced, model.PriorityHigh),
		},
	)

	p := New(Config{SlotDurationMinutes: 60}, st)
	entries, err := p.DayPlan(day)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	got := make([]string, len(entries))
	for i, e := range entries {
		got[i] = fmt.Sprintf("%s@%s", e.RequestID, e.Slot.Format("15:04"))
	}
	want := []string{"r-morning-high@09:00", "r-morning-low@09:00", "r-late@14:00"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("plan entries = %v, want %v", got, want)
	}
}

func TestDayPlanSkipsOtherDaysAndTerminal(t *testing.T) {
	st := store.New()
	cancelled := appointment("r-cancelled", day.Add(10*time.Hour), model.CategoryBasic, model.PriorityLow)
	cancelled.Status = model.RequestCancelled
	seed(t, st,
		[]model.Vehicle{vehicle("v1", model.CategoryBasic)},
		[]model.Driver{driver("d1", model.LicenseC)},
		[]model.Request{
			cancelled,
			appointment("r-tomorrow", day.Add(30*time.Hour), model.CategoryBasic, model.PriorityLow),
			appointment("r-today", day.Add(10*time.Hour), model.CategoryBasic, model.PriorityLow),
		},
	)

	entries, err := New(Config{}, st).DayPlan(day)
	if err != nil {
		t.Fatalf("plan: %v", err)
	}
	if len(entries) != 1 || entries[0].RequestID != "r-today" {
		t.Fatalf("entries = %+v, want only r-today", entries)
	}
}

func TestDayPlanReportsVehicleShortfall(t *testing.T) {
	st := store.New()
	seed(t, st,
		[]model.Vehicle{vehicle("v1", model.CategoryBasic)},
		[]model.Driver{driver("d1", model.LicenseD), driver("d2", model.LicenseD)},
		[]model.Request{
			appointment("r1", day.Add(10*time.Hour), model.CategoryAdvanced, model.PriorityHigh),
		},
	)
	if _, err := New(Config{}, st).DayPlan(day); err == nil {
		t.Fatal("want capacity error for advanced appointment without advanced vehicle")
	}
}

func TestDayPlanBasicRidesInAdvancedVehicle(t *testing.T) {
	st := store.New()
	seed(t, st,
		[]model.Vehicle{vehicle("v1", model.CategoryAdvanced)},
		[]model.Driver{driver("d1", model.LicenseD)},
		[]model.Request{
			appointment("r1", day.Add(10*time.Hour), model.CategoryBasic, model.PriorityLow),
		},
	)
	if _, err := New(Config{}, st).DayPlan(day); err != nil {
		t.Fatalf("basic appointment should fit an advanced vehicle: %v", err)
	}
}

func TestDayPlanReportsDriverShortfall(t *testing.T) {
	st := store.New()
	expired := driver("d1", model.LicenseD)
	expired.LicenseExpiry = day.Add(-time.Hour)
	seed(t, st,
		[]model.Vehicle{vehicle("v1", model.CategoryAdvanced)},
		[]model.Driver{expired},
		[]model.Request{
			appointment("r1", day.Add(10*time.Hour), model.CategoryAdvanced, model.PriorityHigh),
		},
	)
	if _, err := New(Config{}, st).DayPlan(day); err == nil {
		t.Fatal("want capacity error when the only licensed driver is expired")
	}
}
