package service

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kpouget/wunderground2prom/config"
	"github.com/kpouget/wunderground2prom/errors"
	"github.com/kpouget/wunderground2prom/fetcher"
	"github.com/kpouget/wunderground2prom/health"
	"github.com/kpouget/wunderground2prom/metric"
	"github.com/kpouget/wunderground2prom/poller"
	"github.com/kpouget/wunderground2prom/station"
)

// Exporter is one fully wired exporter instance: a poller feeding a
// health store, rendered by a metrics server. The same type backs both
// the weather and the river binaries; only the wiring differs.
type Exporter struct {
	name   string
	logger *slog.Logger

	store  *health.Store
	poller *poller.Poller
	server *metric.Server

	mu          sync.Mutex
	initialized bool
	started     bool
}

// NewWeather wires a weather exporter from its validated configuration.
func NewWeather(cfg config.WeatherConfig, logger *slog.Logger) (*Exporter, error) {
	if logger == nil {
		logger = slog.Default()
	}

	stations, err := station.NewWeatherRegistry(cfg.Stations)
	if err != nil {
		return nil, errors.WrapFatal(err, "service", "NewWeather", "station registry construction")
	}

	store := health.NewStore(station.Keys(stations), []string{health.SubTemperature})
	f := fetcher.NewWeatherFetcher(cfg.Upstream.Endpoint, cfg.Upstream.APIKey, cfg.Upstream.Timeout.Duration, logger)

	tasks := make([]poller.Task, 0, len(stations))
	for _, st := range stations {
		tasks = append(tasks, poller.NewWeatherTask(st, f, store, logger))
	}

	registry := metric.NewRegistry()
	if err := registry.Register("weather", metric.NewWeatherCollector(stations, store)); err != nil {
		return nil, err
	}

	return newExporter("weather-exporter", cfg.Listen.Address(), cfg.Interval.Duration,
		store, tasks, registry, logger)
}

// NewRiver wires a river exporter from its validated configuration.
func NewRiver(cfg config.RiverConfig, logger *slog.Logger) (*Exporter, error) {
	if logger == nil {
		logger = slog.Default()
	}

	stations, err := station.NewRiverRegistry(cfg.Stations)
	if err != nil {
		return nil, errors.WrapFatal(err, "service", "NewRiver", "station registry construction")
	}

	store := health.NewStore(station.Keys(stations), []string{health.SubFlow, health.SubHeight})
	f := fetcher.NewRiverFetcher(cfg.Upstream.Endpoint, cfg.Upstream.Timeout.Duration, logger)

	tasks := make([]poller.Task, 0, len(stations))
	for _, st := range stations {
		tasks = append(tasks, poller.NewRiverTask(st, f, store, logger))
	}

	registry := metric.NewRegistry()
	if err := registry.Register("river", metric.NewRiverCollector(stations, store)); err != nil {
		return nil, err
	}

	return newExporter("river-exporter", cfg.Listen.Address(), cfg.Interval.Duration,
		store, tasks, registry, logger)
}

func newExporter(name, addr string, interval time.Duration, store *health.Store,
	tasks []poller.Task, registry *metric.Registry, logger *slog.Logger) (*Exporter, error) {

	logger = logger.With("service", name)
	p := poller.New(tasks, interval, logger)

	// Readiness tracks the poller: a pod whose polling loop died should
	// fall out of rotation even while the HTTP server still answers.
	ready := func() error {
		if !p.Running() {
			return fmt.Errorf("poller not running")
		}
		return nil
	}

	return &Exporter{
		name:   name,
		logger: logger,
		store:  store,
		poller: p,
		server: metric.NewServer(addr, registry, ready, logger),
	}, nil
}

// Name returns the exporter's service name.
func (e *Exporter) Name() string { return e.name }

// Store exposes the health store, mainly for tests and diagnostics.
func (e *Exporter) Store() *health.Store { return e.store }

// Address returns the metrics listen address, resolved once Start has
// bound the listener.
func (e *Exporter) Address() string { return e.server.Address() }

// Initialize validates the wiring. It performs no network activity.
func (e *Exporter) Initialize() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.initialized {
		return nil
	}
	if err := e.poller.Initialize(); err != nil {
		return err
	}
	e.initialized = true
	return nil
}

// Start binds the metrics listener and starts polling. The listener
// comes up first so a scrape arriving during the initial poll burst
// gets an empty exposition rather than a refused connection.
func (e *Exporter) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.initialized {
		return errors.WrapInvalid(
			fmt.Errorf("exporter not initialized"),
			"Exporter", "Start", "lifecycle ordering")
	}
	if e.started {
		return nil
	}

	if err := e.server.Start(); err != nil {
		return err
	}
	if err := e.poller.Start(ctx); err != nil {
		_ = e.server.Stop(5 * time.Second)
		return err
	}

	e.started = true
	e.logger.Info("exporter started", "address", e.server.Address())
	return nil
}

// Stop stops polling, then the HTTP server, splitting the timeout
// between the two phases. Errors from both phases are joined so a slow
// drain does not mask a shutdown failure.
func (e *Exporter) Stop(timeout time.Duration) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.started {
		return nil
	}
	e.started = false

	half := timeout / 2
	var errs []error
	if err := e.poller.Stop(half); err != nil {
		errs = append(errs, err)
	}
	if err := e.server.Stop(half); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return errors.WrapTransient(
			stderrors.Join(errs...), "Exporter", "Stop", "graceful shutdown")
	}
	e.logger.Info("exporter stopped")
	return nil
}
