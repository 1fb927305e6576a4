package model

import "testing"

func TestVehiclePlateFormats(t *testing.T) {
	cases := map[string]bool{
		"ABC-1234": true,
		"ABC1234":  true,
		"BRA2E19":  true,
		"ab-1234":  false,
		"ABCD123":  false,
		"":         false,
	}
	for plate, want := range cases {
		v := Vehicle{Plate: plate, Model: "Sprinter 416", Category: CategoryBasic}
		err := v.Validate()
		if (err == nil) != want {
			t.Errorf("plate %q: err = %v, want valid=%v", plate, err, want)
		}
	}
}

func TestVehicleTransitions(t *testing.T) {
	v := Vehicle{Status: VehicleOutOfService}
	for _, target := range []VehicleStatus{VehicleAvailable, VehicleInUse, VehicleMaintenance} {
		if v.CanTransition(target) {
			t.Errorf("out_of_service must not reach %s", target)
		}
	}
	m := Vehicle{Status: VehicleMaintenance}
	if m.CanTransition(VehicleInUse) {
		t.Error("maintenance must not go straight to in_use")
	}
	if !m.CanTransition(VehicleAvailable) {
		t.Error("maintenance must be able to return to available")
	}
}
