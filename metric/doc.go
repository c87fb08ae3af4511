// Package metric exposes the health state store in Prometheus text
// exposition format.
//
// The package deliberately uses a private prometheus.Registry with no
// Go runtime or process collectors: the scrape surface is exactly the
// station health series plus the current-value gauges, nothing else.
//
// Rendering is pull-based. The collectors hold no metric state of their
// own; every scrape takes a fresh snapshot of the health store and
// emits const metrics from it. Stations that have never fetched
// successfully emit no health lines at all - a zero timestamp would be
// indistinguishable from the epoch and would break staleness alerting
// downstream, so absence is the correct representation.
//
// The HTTP server serves:
//
//	/metrics  Prometheus exposition
//	/live     liveness probe
//	/ready    readiness probe (unready until polling runs)
//	/         HTML index
package metric
