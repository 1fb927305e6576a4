package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/medrota/dispatch/core/metrics"
	"github.com/medrota/dispatch/core/model"
)

// PromSink records dispatch events in Prometheus metrics.
type PromSink struct {
	assignments *prometheus.CounterVec
	misses      *prometheus.CounterVec
	alerts      *prometheus.CounterVec
	openAlerts  *prometheus.GaugeVec
	waits       *prometheus.HistogramVec
}

// NewPromSink registers dispatch metrics on the default Prometheus
// registerer. The Prometheus server should be started separately using
// cfg.PrometheusPort.
func NewPromSink(cfg coremetrics.Config) (coremetrics.Sink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(_ coremetrics.Config, reg prometheus.Registerer) (coremetrics.Sink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	assignments := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_assignments_total",
		Help: "Total number of committed request assignments",
	}, []string{"priority", "category"})
	misses := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_match_misses_total",
		Help: "Matcher passes that found no eligible vehicle/driver pair",
	}, []string{"category"})
	alerts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_alert_transitions_total",
		Help: "Alerts raised and cleared",
	}, []string{"type", "severity", "cleared"})
	openAlerts := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "dispatch_open_alerts",
		Help: "Currently open alerts per type",
	}, []string{"type"})
	waits := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "dispatch_pending_wait_seconds",
		Help:    "Time a request spent pending before assignment",
		Buckets: []float64{30, 60, 120, 300, 600, 900, 1800, 3600},
	}, []string{"priority"})

	s := &PromSink{assignments: assignments, misses: misses, alerts: alerts, openAlerts: openAlerts, waits: waits}
	collectors := []prometheus.Collector{assignments, misses, alerts, openAlerts, waits}
	for i, c := range collectors {
		if err := reg.Register(c); err != nil {
			are, ok := err.(prometheus.AlreadyRegisteredError)
			if !ok {
				return nil, err
			}
			switch i {
			case 0:
				s.assignments = are.ExistingCollector.(*prometheus.CounterVec)
			case 1:
				s.misses = are.ExistingCollector.(*prometheus.CounterVec)
			case 2:
				s.alerts = are.ExistingCollector.(*prometheus.CounterVec)
			case 3:
				s.openAlerts = are.ExistingCollector.(*prometheus.GaugeVec)
			case 4:
				s.waits = are.ExistingCollector.(*prometheus.HistogramVec)
			}
		}
	}
	return s, nil
}

// RecordAssignment increments the assignment counter and observes the
// pending wait.
func (s *PromSink) RecordAssignment(res coremetrics.AssignmentResult) error {
	s.assignments.WithLabelValues(string(res.Priority), string(res.Category)).Inc()
	s.waits.WithLabelValues(string(res.Priority)).Observe(res.Waited.Seconds())
	return nil
}

// RecordMatchMiss increments the miss counter.
func (s *PromSink) RecordMatchMiss(miss coremetrics.MatchMiss) error {
	s.misses.WithLabelValues(string(miss.Category)).Inc()
	return nil
}

// RecordAlert increments the alert transition counter.
func (s *PromSink) RecordAlert(tr coremetrics.AlertTransition) error {
	s.alerts.WithLabelValues(string(tr.Type), string(tr.Severity), strconv.FormatBool(tr.Cleared)).Inc()
	return nil
}

// RecordOpenAlerts sets the open alert gauges.
func (s *PromSink) RecordOpenAlerts(counts map[model.AlertType]int) error {
	for typ, n := range counts {
		s.openAlerts.WithLabelValues(string(typ)).Set(float64(n))
	}
	return nil
}
