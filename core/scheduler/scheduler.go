// Package scheduler builds day plans for pre-booked appointments: a
// per-slot listing of scheduled transports together with a fleet
// capacity check. The plan is advisory; it never mutates requests or
// resources.
package scheduler

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/medrota/dispatch/core/model"
	"github.com/medrota/dispatch/core/store"
)

// Config defines planning parameters.
type Config struct {
	// SlotDurationMinutes is the width of a planning slot.
	SlotDurationMinutes int `json:"slot_duration_minutes"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.SlotDurationMinutes <= 0 {
		c.SlotDurationMinutes = 60
	}
}

// Entry is one appointment placed in its planning slot.
type Entry struct {
	Slot      time.Time      `json:"slot"`
	RequestID string         `json:"request_id"`
	Category  model.Category `json:"category"`
	Priority  model.Priority `json:"priority"`
}

// Planner generates appointment day plans over the shared store.
type Planner struct {
	cfg   Config
	store *store.Store
}

// New creates a planner.
func New(cfg Config, st *store.Store) *Planner {
	cfg.SetDefaults()
	return &Planner{cfg: cfg, store: st}
}

// DayPlan lists the non-terminal appointments scheduled on the given
// date, one entry per appointment, bucketed into slots. It fails when
// the current fleet cannot cover the demand of some slot: a slot is
// short when its advanced appointments exceed the advanced vehicles,
// when its total appointments exceed the usable vehicles, or when the
// drivers licensed for the demanded categories are too few. Vehicles
// out of service and suspended drivers are never counted; licenses are
// checked against the slot time.
func (p *Planner) DayPlan(date time.Time) ([]Entry, error) {
	if p.cfg.SlotDurationMinutes <= 0 {
		return nil, errors.New("slot duration must be positive")
	}
	slotDur := time.Duration(p.cfg.SlotDurationMinutes) * time.Minute
	dayStart := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)

	var entries []Entry
	var vehicles []model.Vehicle
	var drivers []model.Driver
	p.store.View(func(tx *store.Tx) {
		for _, r := range tx.Requests() {
			if r.Kind != model.KindAppointment || r.Status.Terminal() || r.ScheduledAt == nil {
				continue
			}
			at := r.ScheduledAt.UTC()
			if at.Before(dayStart) || !at.Before(dayEnd) {
				continue
			}
			slot := dayStart.Add(at.Sub(dayStart).Truncate(slotDur))
			entries = append(entries, Entry{Slot: slot, RequestID: r.ID, Category: r.Category, Priority: r.Priority})
		}
		vehicles = tx.Vehicles()
		drivers = tx.Drivers()
	})

	sort.SliceStable(entries, func(i, j int) bool {
		if !entries[i].Slot.Equal(entries[j].Slot) {
			return entries[i].Slot.Before(entries[j].Slot)
		}
		return entries[i].Priority.Rank() > entries[j].Priority.Rank()
	})

	if err := p.checkCapacity(entries, vehicles, drivers); err != nil {
		return entries, err
	}
	return entries, nil
}

func (p *Planner) checkCapacity(entries []Entry, vehicles []model.Vehicle, drivers []model.Driver) error {
	basicVehicles, advVehicles := 0, 0
	for _, v := range vehicles {
		if v.Status == model.VehicleOutOfService || v.Status == model.VehicleMaintenance {
			continue
		}
		if v.Category == model.CategoryAdvanced {
			advVehicles++
		} else {
			basicVehicles++
		}
	}

	bySlot := map[time.Time][]Entry{}
	for _, e := range entries {
		bySlot[e.Slot] = append(bySlot[e.Slot], e)
	}
	for slot, es := range bySlot {
		basic, adv := 0, 0
		for _, e := range es {
			if e.Category == model.CategoryAdvanced {
				adv++
			} else {
				basic++
			}
		}
		if adv > advVehicles {
			return fmt.Errorf("slot %s: %d advanced appointments, %d advanced vehicles", slot.Format("15:04"), adv, advVehicles)
		}
		// Basic transports may ride in advanced vehicles once the
		// advanced demand is covered.
		if basic+adv > basicVehicles+advVehicles {
			return fmt.Errorf("slot %s: %d appointments, %d vehicles", slot.Format("15:04"), basic+adv, basicVehicles+advVehicles)
		}
		basicDrivers, advDrivers := p.countDrivers(drivers, slot.Add(time.Duration(p.cfg.SlotDurationMinutes)*time.Minute))
		if adv > advDrivers {
			return fmt.Errorf("slot %s: %d advanced appointments, %d drivers licensed for advanced", slot.Format("15:04"), adv, advDrivers)
		}
		if basic+adv > basicDrivers {
			return fmt.Errorf("slot %s: %d appointments, %d drivers", slot.Format("15:04"), basic+adv, basicDrivers)
		}
	}
	return nil
}

// countDrivers returns how many drivers can legally drive at t: all
// qualifying drivers, and the subset licensed for advanced vehicles.
func (p *Planner) countDrivers(drivers []model.Driver, t time.Time) (total, advanced int) {
	for _, d := range drivers {
		if d.Status == model.DriverSuspended || d.LicenseExpired(t) {
			continue
		}
		if !d.LicenseCategory.Covers(model.LicenseC) {
			continue
		}
		total++
		if d.LicenseCategory.Covers(model.LicenseD) {
			advanced++
		}
	}
	return total, advanced
}
