// Package scenarios loads YAML-described dispatch scenarios (fleet,
// staff, incoming requests, expected outcome) and replays them against
// a real registry/ledger/matcher stack.
package scenarios

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/medrota/dispatch/core/model"
)

type VehicleDef struct {
	Plate    string `yaml:"plate"`
	Model    string `yaml:"model"`
	Category string `yaml:"category"`
}

func (v VehicleDef) ToModel() model.Vehicle {
	m := v.Model
	if m == "" {
		m = "Sprinter 416"
	}
	return model.Vehicle{
		Plate:    v.Plate,
		Model:    m,
		Category: model.Category(v.Category),
	}
}

type DriverDef struct {
	Name              string `yaml:"name"`
	LicenseNumber     string `yaml:"license_number"`
	LicenseCategory   string `yaml:"license_category"`
	LicenseExpiryDays int    `yaml:"license_expiry_days"`
}

func (d DriverDef) ToModel(now time.Time) model.Driver {
	days := d.LicenseExpiryDays
	if days == 0 {
		days = 365
	}
	return model.Driver{
		Name:            d.Name,
		LicenseNumber:   d.LicenseNumber,
		LicenseCategory: model.LicenseCategory(d.LicenseCategory),
		LicenseExpiry:   now.Add(time.Duration(days) * 24 * time.Hour),
	}
}

type RequestDef struct {
	Kind             string `yaml:"kind"`
	Priority         string `yaml:"priority"`
	Category         string `yaml:"category"`
	ScheduledInHours int    `yaml:"scheduled_in_hours,omitempty"`
}

func (r RequestDef) ToModel(now time.Time) model.Request {
	req := model.Request{
		Kind:      model.RequestKind(r.Kind),
		Requester: model.Contact{Name: "Central", Phone: "5531999990000"},
		Patient:   model.Patient{Name: "Scenario Patient"},
		Priority:  model.Priority(r.Priority),
		Category:  model.Category(r.Category),
	}
	if req.Kind == model.KindAppointment {
		at := now.Add(time.Duration(r.ScheduledInHours) * time.Hour)
		req.ScheduledAt = &at
	}
	return req
}

type Expected struct {
	Assigned int `yaml:"assigned"`
	Pending  int `yaml:"pending"`
	Orders   int `yaml:"orders"`
}

type Scenario struct {
	Name        string       `yaml:"name"`
	Description string       `yaml:"description,omitempty"`
	Vehicles    []VehicleDef `yaml:"vehicles"`
	Drivers     []DriverDef  `yaml:"drivers"`
	// SidelineVehicles are moved to maintenance before any request
	// arrives.
	SidelineVehicles []string     `yaml:"sideline_vehicles,omitempty"`
	Requests         []RequestDef `yaml:"requests"`
	Expected         Expected     `yaml:"expected"`
}

func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var sc Scenario
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, err
	}
	return &sc, nil
}
