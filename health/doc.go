// Package health implements the per-station health state store shared
// by the pollers (writers) and the metrics exporter (reader).
//
// The store holds one record per configured station, created at startup
// and never removed. Each record tracks:
//
//   - the Unix timestamp of the last successful fetch
//   - the wall-clock duration of the last successful fetch (for river
//     stations, the mean of the latest flow and height sub-fetch
//     durations)
//   - a monotonically non-decreasing count of successful sub-fetches
//   - the timestamp at which the observed value last changed
//
// Writes and reads are serialized per record, not globally: every
// record carries its own mutex, so a poll tick updating one station
// never blocks a scrape or another station's tick. RecordSuccess
// applies all of its field updates under a single lock acquisition,
// which is what guarantees a Snapshot never observes a half-applied
// success (for example a bumped request counter without the matching
// fetch timestamp).
//
// A failed fetch changes nothing a scrape can see. The only externally
// visible symptom of sustained failure is staleness: last_fetch_time
// stops advancing and the success counter stops incrementing.
// Per-record failure counters are kept for debug logging only.
package health
