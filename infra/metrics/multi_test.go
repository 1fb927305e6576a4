package metrics

import (
	"errors"
	"testing"

	coremetrics "github.com/medrota/dispatch/core/metrics"
	"github.com/medrota/dispatch/core/model"
)

type recordingSink struct {
	coremetrics.NopSink
	assignments int
	fail        bool
}

func (r *recordingSink) RecordAssignment(coremetrics.AssignmentResult) error {
	r.assignments++
	if r.fail {
		return errors.New("sink down")
	}
	return nil
}

func TestMultiSinkFanOut(t *testing.T) {
	a := &recordingSink{}
	b := &recordingSink{}
	m := NewMultiSink(a, b)
	if err := m.RecordAssignment(coremetrics.AssignmentResult{}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if a.assignments != 1 || b.assignments != 1 {
		t.Fatalf("fan out = %d, %d", a.assignments, b.assignments)
	}
}

func TestMultiSinkKeepsGoingOnError(t *testing.T) {
	a := &recordingSink{fail: true}
	b := &recordingSink{}
	m := NewMultiSink(a, b)
	if err := m.RecordAssignment(coremetrics.AssignmentResult{}); err == nil {
		t.Fatal("want joined error")
	}
	if b.assignments != 1 {
		t.Fatal("second sink skipped after first failed")
	}
	if err := m.RecordOpenAlerts(map[model.AlertType]int{}); err != nil {
		t.Fatalf("open alerts: %v", err)
	}
}
