// Package service assembles the exporter from its parts: configuration
// becomes station registries, a health store, fetchers, per-station
// poll tasks, a poller and a metrics server.
//
// An Exporter follows the standard lifecycle:
//
//	exp, err := service.NewWeather(cfg, logger)
//	if err != nil { ... }
//	if err := exp.Initialize(); err != nil { ... }
//	if err := exp.Start(ctx); err != nil { ... }
//	defer exp.Stop(10 * time.Second)
//
// Initialize validates wiring without side effects, Start begins
// polling and serving, Stop drains polls and shuts the HTTP server
// down. The /ready probe reports unready until Start has run.
package service
