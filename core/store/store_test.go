package store

import (
	"errors"
	"testing"
	"time"

	"github.com/medrota/dispatch/core/model"
)

func TestUpdateCommitsOnSuccess(t *testing.T) {
	s := New()
	err := s.Update(func(tx *Tx) error {
		tx.PutVehicle(model.Vehicle{ID: "v1", Plate: "ABC1D23", Status: model.VehicleAvailable})
		return nil
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	s.View(func(tx *Tx) {
		if _, ok := tx.Vehicle("v1"); !ok {
			t.Fatal("vehicle not committed")
		}
	})
}

func TestUpdateRollsBackOnError(t *testing.T) {
	s := New()
	boom := errors.New("boom")
	err := s.Update(func(tx *Tx) error {
		tx.PutVehicle(model.Vehicle{ID: "v1"})
		tx.PutDriver(model.Driver{ID: "d1"})
		tx.PutRequest(model.Request{ID: "r1"})
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	s.View(func(tx *Tx) {
		if _, ok := tx.Vehicle("v1"); ok {
			t.Fatal("vehicle leaked out of aborted transaction")
		}
		if _, ok := tx.Driver("d1"); ok {
			t.Fatal("driver leaked out of aborted transaction")
		}
		if _, ok := tx.Request("r1"); ok {
			t.Fatal("request leaked out of aborted transaction")
		}
	})
}

func TestTxReadsSeeStagedWrites(t *testing.T) {
	s := New()
	if err := s.Update(func(tx *Tx) error {
		tx.PutDriver(model.Driver{ID: "d1", Status: model.DriverAvailable})
		d, ok := tx.Driver("d1")
		if !ok {
			t.Fatal("staged driver invisible inside transaction")
		}
		d.Status = model.DriverInUse
		tx.PutDriver(d)
		return nil
	}); err != nil {
		t.Fatalf("update: %v", err)
	}
	s.View(func(tx *Tx) {
		d, _ := tx.Driver("d1")
		if d.Status != model.DriverInUse {
			t.Fatalf("status = %s", d.Status)
		}
	})
}

func TestListingsAreOrderedByCreation(t *testing.T) {
	s := New()
	base := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	if err := s.Update(func(tx *Tx) error {
		tx.PutVehicle(model.Vehicle{ID: "b", CreatedAt: base.Add(time.Minute)})
		tx.PutVehicle(model.Vehicle{ID: "a", CreatedAt: base})
		tx.PutVehicle(model.Vehicle{ID: "c", CreatedAt: base})
		return nil
	}); err != nil {
		t.Fatalf("update: %v", err)
	}
	s.View(func(tx *Tx) {
		vs := tx.Vehicles()
		got := []string{vs[0].ID, vs[1].ID, vs[2].ID}
		want := []string{"a", "c", "b"}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("order = %v, want %v", got, want)
			}
		}
	})
}

func TestViewWritesAreDiscarded(t *testing.T) {
	s := New()
	s.View(func(tx *Tx) {
		tx.PutVehicle(model.Vehicle{ID: "v1"})
	})
	s.View(func(tx *Tx) {
		if _, ok := tx.Vehicle("v1"); ok {
			t.Fatal("write escaped a read-only transaction")
		}
	})
}
