package app

import (
	"context"
	"fmt"
	"time"

	"github.com/medrota/dispatch/config"
	"github.com/medrota/dispatch/core/access"
	"github.com/medrota/dispatch/core/alert"
	"github.com/medrota/dispatch/core/clock"
	"github.com/medrota/dispatch/core/events"
	"github.com/medrota/dispatch/core/ledger"
	"github.com/medrota/dispatch/core/match"
	coremetrics "github.com/medrota/dispatch/core/metrics"
	coremon "github.com/medrota/dispatch/core/monitoring"
	"github.com/medrota/dispatch/core/registry"
	"github.com/medrota/dispatch/core/report"
	"github.com/medrota/dispatch/core/scheduler"
	"github.com/medrota/dispatch/core/store"
	"github.com/medrota/dispatch/infra/logger"
	"github.com/medrota/dispatch/infra/metrics"
	"github.com/medrota/dispatch/infra/monitoring"
	"github.com/medrota/dispatch/infra/mqtt"
	"github.com/medrota/dispatch/internal/eventbus"
)

// Service orchestrates the registry, ledger, matcher and alert engine
// over a shared store.
type Service struct {
	Registry *registry.Registry
	Ledger   *ledger.Ledger
	Matcher  *match.Matcher
	Alerts   *alert.Engine
	Gate     *access.Gate
	Reporter *report.Reporter
	Planner  *scheduler.Planner

	resBus *eventbus.Bus[events.ResourceEvent]
	reqBus *eventbus.Bus[events.RequestEvent]
	asnBus *eventbus.Bus[events.AssignmentEvent]

	pub         *mqtt.PahoPublisher
	log         logger.Logger
	promEnabled bool
	promPort    string
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")
	clk := clock.Real{}

	mon, err := monitoring.NewSentryMonitor(cfg.Sentry)
	if err != nil {
		return nil, fmt.Errorf("sentry: %w", err)
	}
	coremon.Init(mon)

	var sinks []coremetrics.Sink
	if cfg.Metrics.PrometheusEnabled {
		sink, err := metrics.NewPromSink(cfg.Metrics)
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Metrics.InfluxEnabled {
		sinks = append(sinks, metrics.NewInfluxSinkWithFallback(cfg.Metrics))
	}
	var sink coremetrics.Sink = coremetrics.NopSink{}
	if len(sinks) == 1 {
		sink = sinks[0]
	} else if len(sinks) > 1 {
		sink = metrics.NewMultiSink(sinks...)
	}

	var pub *mqtt.PahoPublisher
	if cfg.MQTT.Enabled {
		var err error
		pub, err = mqtt.NewPahoPublisher(cfg.MQTT)
		if err != nil {
			return nil, fmt.Errorf("mqtt publisher: %w", err)
		}
	}

	st := store.New()
	resBus := eventbus.New[events.ResourceEvent]()
	reqBus := eventbus.New[events.RequestEvent]()
	asnBus := eventbus.New[events.AssignmentEvent]()

	reg := registry.New(st, resBus, clk, logger.New("registry"))
	led := ledger.New(st, reqBus, resBus, clk, logger.New("ledger"))

	var orders match.OrderPublisher
	var alertPub alert.Publisher
	if pub != nil {
		orders = pub
		alertPub = pub
	}
	m := match.New(cfg.Match, st, resBus, asnBus, clk, logger.New("match"), sink, orders)
	led.SetMatcher(m)

	eng := alert.New(cfg.Alerts, st, resBus, reqBus, clk, logger.New("alert"), sink, alertPub)

	svc := &Service{
		Registry:    reg,
		Ledger:      led,
		Matcher:     m,
		Alerts:      eng,
		Gate:        access.New(),
		Reporter:    report.New(st, clk),
		Planner:     scheduler.New(cfg.Scheduler, st),
		resBus:      resBus,
		reqBus:      reqBus,
		asnBus:      asnBus,
		pub:         pub,
		log:         logg,
		promEnabled: cfg.Metrics.PrometheusEnabled,
		promPort:    cfg.Metrics.PrometheusPort,
	}
	return svc, nil
}

// Run starts the background loops and blocks until the context is
// cancelled.
func (s *Service) Run(ctx context.Context) error {
	go s.Matcher.Run(ctx)
	go s.Alerts.Run(ctx)
	if s.promEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.promPort); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	s.log.Infof("service started")
	<-ctx.Done()
	return nil
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.resBus.Close()
	s.reqBus.Close()
	s.asnBus.Close()
	if s.pub != nil {
		s.pub.Close()
	}
	coremon.Flush(2 * time.Second)
	return nil
}
