package metrics

import (
	"errors"

	coremetrics "github.com/medrota/dispatch/core/metrics"
	"github.com/medrota/dispatch/core/model"
)

// MultiSink fans events out to several sinks. Every sink is attempted;
// errors are joined.
type MultiSink struct {
	sinks []coremetrics.Sink
}

// NewMultiSink creates a MultiSink.
func NewMultiSink(sinks ...coremetrics.Sink) *MultiSink {
	return &MultiSink{sinks: sinks}
}

func (m *MultiSink) RecordAssignment(res coremetrics.AssignmentResult) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.RecordAssignment(res); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordMatchMiss(miss coremetrics.MatchMiss) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.RecordMatchMiss(miss); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordAlert(tr coremetrics.AlertTransition) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.RecordAlert(tr); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *MultiSink) RecordOpenAlerts(counts map[model.AlertType]int) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.RecordOpenAlerts(counts); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
