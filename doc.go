// Package wunderground2prom provides Prometheus exporters for personal
// weather stations and river gauging stations.
//
// # Architecture
//
// Two binaries share one pipeline shape:
//
//	┌─────────────────────────────────────┐
//	│              Poller                 │  one repeating job per
//	│     (cron-scheduled, per station)   │  station, overlap guarded
//	└─────────────────────────────────────┘
//	           ↓ fetch + classify
//	┌─────────────────────────────────────┐
//	│          Health Store               │  per-station fetch health
//	│  (fine-grained locks, change track) │  and current readings
//	└─────────────────────────────────────┘
//	           ↓ snapshot at scrape
//	┌─────────────────────────────────────┐
//	│         Metrics Server              │  /metrics, /live, /ready
//	│   (custom collectors, const metrics)│
//	└─────────────────────────────────────┘
//
// The weather exporter (cmd/weather-exporter) polls the PWS
// observations API every minute per configured station and exports the
// current temperature. The river exporter (cmd/river-exporter) polls
// the hydrology observations API every five minutes per station,
// fetching the flow and height series independently.
//
// Both export the same health contract per station: the Unix time and
// duration of the last successful fetch, a counter of successful
// requests, and the Unix time the observed values last changed. A
// station that has never fetched successfully is absent from the
// exposition rather than reported as zero.
//
// Package layout:
//
//   - station: station descriptors and validated registries
//   - config: YAML configuration with defaults and validation
//   - errors: error classification shared by all packages
//   - fetcher: upstream HTTP clients
//   - health: the health state store
//   - poller: per-station scheduling
//   - metric: Prometheus rendering and the HTTP server
//   - service: wiring and lifecycle
package wunderground2prom
