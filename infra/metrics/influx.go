package metrics

import (
	"context"
	"strconv"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/medrota/dispatch/core/logger"
	coremetrics "github.com/medrota/dispatch/core/metrics"
	"github.com/medrota/dispatch/core/model"
	infralogger "github.com/medrota/dispatch/infra/logger"
)

// InfluxSink writes dispatch events to an InfluxDB instance using the
// official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB
// endpoint.
func NewInfluxSink(cfg coremetrics.Config) *InfluxSink {
	client := influxdb2.NewClientWithOptions(cfg.InfluxURL, cfg.InfluxToken, influxdb2.DefaultOptions())
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.InfluxOrg, cfg.InfluxBucket),
		log:      infralogger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg coremetrics.Config) coremetrics.Sink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Close releases the underlying client.
func (s *InfluxSink) Close() { s.client.Close() }

// RecordAssignment writes the assignment as a point.
func (s *InfluxSink) RecordAssignment(res coremetrics.AssignmentResult) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("assignment").
		AddTag("request_id", res.RequestID).
		AddTag("vehicle_id", res.VehicleID).
		AddTag("driver_id", res.DriverID).
		AddTag("priority", string(res.Priority)).
		AddTag("category", string(res.Category)).
		AddField("waited_seconds", res.Waited.Seconds()).
		SetTime(res.At)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordMatchMiss writes the miss as a point.
func (s *InfluxSink) RecordMatchMiss(miss coremetrics.MatchMiss) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("match_miss").
		AddTag("request_id", miss.RequestID).
		AddTag("category", string(miss.Category)).
		AddField("count", 1).
		SetTime(miss.At)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordAlert writes the alert transition as a point.
func (s *InfluxSink) RecordAlert(tr coremetrics.AlertTransition) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("alert_transition").
		AddTag("type", string(tr.Type)).
		AddTag("severity", string(tr.Severity)).
		AddTag("cleared", strconv.FormatBool(tr.Cleared)).
		AddField("count", 1).
		SetTime(tr.At)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordOpenAlerts writes one gauge point per alert type.
func (s *InfluxSink) RecordOpenAlerts(counts map[model.AlertType]int) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	now := time.Now()
	for typ, n := range counts {
		p := write.NewPointWithMeasurement("open_alerts").
			AddTag("type", string(typ)).
			AddField("count", n).
			SetTime(now)
		if err := s.writeAPI.WritePoint(ctx, p); err != nil {
			return err
		}
	}
	return nil
}
