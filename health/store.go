package health

import (
	"fmt"
	"sync"
	"time"

	"github.com/kpouget/wunderground2prom/errors"
)

// Sub-metric names. A weather station has a single temperature
// sub-metric; a river station has flow and height, fetched separately
// within the same tick.
const (
	SubTemperature = "temperature"
	SubFlow        = "flow"
	SubHeight      = "height"
)

// SubState is the per-sub-metric portion of a record.
type SubState struct {
	// Value is the last observed reading.
	Value float64
	// Duration is the latest sub-fetch duration in seconds.
	Duration float64
	// Observed reports whether the sub-metric has ever been fetched
	// successfully.
	Observed bool
}

// Snapshot is a consistent point-in-time copy of one station's record.
type Snapshot struct {
	Key string

	// LastFetchTime is the Unix timestamp of the last successful fetch;
	// zero until the first success.
	LastFetchTime int64
	// LastFetchDuration is the duration in seconds of the last
	// successful fetch, averaged over the station's sub-metrics.
	LastFetchDuration float64
	// SuccessfulRequests counts successful sub-fetches since process
	// start.
	SuccessfulRequests uint64
	// LastChangeTime is the Unix timestamp when any sub-metric value
	// last changed; the first observed value counts as a change.
	LastChangeTime int64

	// Subs holds the per-sub-metric state, keyed by sub-metric name.
	Subs map[string]SubState

	// FailedRequests and LastFailureReason are diagnostics only; they
	// are never rendered as metrics.
	FailedRequests    uint64
	LastFailureReason string
}

// record is the mutable per-station state. All fields are guarded by mu.
type record struct {
	mu sync.Mutex

	lastFetchTime      int64
	successfulRequests uint64
	lastChangeTime     int64
	subs               map[string]*SubState

	failedRequests    uint64
	lastFailureReason string
}

// Store maps station keys to health records. The key set is fixed at
// construction; only record contents change afterwards, so the maps
// themselves are read concurrently without locking.
type Store struct {
	keys    []string
	records map[string]*record
	subs    map[string][]string
}

// NewStore creates a store with one empty record per station key. The
// subs argument lists the sub-metric names every station of this
// service fetches (e.g. temperature, or flow+height).
func NewStore(keys []string, subs []string) *Store {
	s := &Store{
		keys:    append([]string(nil), keys...),
		records: make(map[string]*record, len(keys)),
		subs:    make(map[string][]string, len(keys)),
	}
	for _, key := range keys {
		subStates := make(map[string]*SubState, len(subs))
		for _, sub := range subs {
			subStates[sub] = &SubState{}
		}
		s.records[key] = &record{subs: subStates}
		s.subs[key] = append([]string(nil), subs...)
	}
	return s
}

// RecordSuccess applies a successful sub-fetch to the station's record
// as one atomic unit: fetch timestamp, sub-fetch duration (and the
// derived per-fetch mean), request counter and change detection all
// move together under the record lock.
//
// Change detection uses exact equality on the fetched value; the first
// observed value counts as a change.
func (s *Store) RecordSuccess(key, sub string, value float64, duration time.Duration, observedAt time.Time) error {
	rec, ok := s.records[key]
	if !ok {
		return errors.WrapInvalid(
			fmt.Errorf("%q: %w", key, errors.ErrUnknownStation),
			"Store", "RecordSuccess", "station lookup")
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	st, ok := rec.subs[sub]
	if !ok {
		return errors.WrapInvalid(
			fmt.Errorf("%q/%q: %w", key, sub, errors.ErrUnknownSeries),
			"Store", "RecordSuccess", "sub-metric lookup")
	}

	now := observedAt.Unix()
	changed := !st.Observed || st.Value != value

	st.Duration = duration.Seconds()
	if changed {
		st.Value = value
		rec.lastChangeTime = now
	}
	st.Observed = true

	rec.lastFetchTime = now
	rec.successfulRequests++

	return nil
}

// RecordFailure notes a failed sub-fetch. No exported field of the
// record changes; the failure counter and reason exist for debugging.
func (s *Store) RecordFailure(key, sub, reason string) error {
	rec, ok := s.records[key]
	if !ok {
		return errors.WrapInvalid(
			fmt.Errorf("%q: %w", key, errors.ErrUnknownStation),
			"Store", "RecordFailure", "station lookup")
	}

	rec.mu.Lock()
	defer rec.mu.Unlock()

	if _, ok := rec.subs[sub]; !ok {
		return errors.WrapInvalid(
			fmt.Errorf("%q/%q: %w", key, sub, errors.ErrUnknownSeries),
			"Store", "RecordFailure", "sub-metric lookup")
	}

	rec.failedRequests++
	rec.lastFailureReason = reason
	return nil
}

// Snapshot returns consistent copies of all records in registry order.
// Consistency is per record: a snapshot never contains a half-applied
// success, though records for different stations may reflect different
// moments.
func (s *Store) Snapshot() []Snapshot {
	out := make([]Snapshot, 0, len(s.keys))
	for _, key := range s.keys {
		out = append(out, s.snapshotOne(key))
	}
	return out
}

// Get returns a consistent copy of one station's record.
func (s *Store) Get(key string) (Snapshot, bool) {
	if _, ok := s.records[key]; !ok {
		return Snapshot{}, false
	}
	return s.snapshotOne(key), true
}

func (s *Store) snapshotOne(key string) Snapshot {
	rec := s.records[key]

	rec.mu.Lock()
	defer rec.mu.Unlock()

	snap := Snapshot{
		Key:                key,
		LastFetchTime:      rec.lastFetchTime,
		LastFetchDuration:  meanDuration(rec.subs),
		SuccessfulRequests: rec.successfulRequests,
		LastChangeTime:     rec.lastChangeTime,
		Subs:               make(map[string]SubState, len(rec.subs)),
		FailedRequests:     rec.failedRequests,
		LastFailureReason:  rec.lastFailureReason,
	}
	for name, st := range rec.subs {
		snap.Subs[name] = *st
	}
	return snap
}

// meanDuration averages the latest durations of the sub-metrics that
// have reported at least once. Caller holds the record lock.
func meanDuration(subs map[string]*SubState) float64 {
	var sum float64
	var n int
	for _, st := range subs {
		if st.Observed {
			sum += st.Duration
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

// Keys returns the station keys in registry order.
func (s *Store) Keys() []string {
	return append([]string(nil), s.keys...)
}
