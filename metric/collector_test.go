package metric

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kpouget/wunderground2prom/health"
	"github.com/kpouget/wunderground2prom/station"
)

func TestWeatherCollectorEndToEnd(t *testing.T) {
	stations := []station.Weather{{ID: "X", Name: "Home"}}
	store := health.NewStore([]string{"X"}, []string{health.SubTemperature})
	c := NewWeatherCollector(stations, store)

	// First fetch: 20.0 at t=100, 1.2s.
	require.NoError(t, store.RecordSuccess("X", health.SubTemperature, 20.0, 1200*time.Millisecond, time.Unix(100, 0)))

	expected := `
# HELP last_fetch_duration Duration of last successful API request (seconds)
# TYPE last_fetch_duration gauge
last_fetch_duration{station_id="X"} 1.2
# HELP last_fetch_time Unix timestamp of last successful data fetch
# TYPE last_fetch_time gauge
last_fetch_time{station_id="X"} 100
# HELP successful_requests_total Total number of successful API requests
# TYPE successful_requests_total counter
successful_requests_total{station_id="X"} 1
# HELP temperature Temperature (in C)
# TYPE temperature gauge
temperature{station_id="X"} 20
# HELP temperature_last_change Unix timestamp when temperature last changed
# TYPE temperature_last_change gauge
temperature_last_change{station_id="X"} 100
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected)))

	// Second fetch at t=160 returns the same temperature: the counter
	// and fetch time advance, the change timestamp does not.
	require.NoError(t, store.RecordSuccess("X", health.SubTemperature, 20.0, 800*time.Millisecond, time.Unix(160, 0)))

	expected = `
# HELP last_fetch_time Unix timestamp of last successful data fetch
# TYPE last_fetch_time gauge
last_fetch_time{station_id="X"} 160
# HELP successful_requests_total Total number of successful API requests
# TYPE successful_requests_total counter
successful_requests_total{station_id="X"} 2
# HELP temperature_last_change Unix timestamp when temperature last changed
# TYPE temperature_last_change gauge
temperature_last_change{station_id="X"} 100
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected),
		"last_fetch_time", "successful_requests_total", "temperature_last_change"))
}

func TestWeatherCollectorOmitsNeverFetchedStations(t *testing.T) {
	stations := []station.Weather{{ID: "X"}, {ID: "Y"}}
	store := health.NewStore([]string{"X", "Y"}, []string{health.SubTemperature})
	c := NewWeatherCollector(stations, store)

	require.NoError(t, store.RecordSuccess("X", health.SubTemperature, 15.0, time.Second, time.Unix(100, 0)))
	// Y has failures only: no lines at all, not zero-valued lines.
	require.NoError(t, store.RecordFailure("Y", health.SubTemperature, "timeout"))

	expected := `
# HELP last_fetch_time Unix timestamp of last successful data fetch
# TYPE last_fetch_time gauge
last_fetch_time{station_id="X"} 100
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected), "last_fetch_time"))

	count := testutil.CollectAndCount(c)
	assert.Equal(t, 5, count, "only station X emits its five series")
}

func TestWeatherCollectorEmptyStoreEmitsNothing(t *testing.T) {
	stations := []station.Weather{{ID: "X"}}
	store := health.NewStore([]string{"X"}, []string{health.SubTemperature})
	c := NewWeatherCollector(stations, store)

	assert.Zero(t, testutil.CollectAndCount(c))
}

func TestRiverCollector(t *testing.T) {
	stations := []station.River{
		{River: "Dordogne", Station: "Argentat", ID: "P207002002"},
		{River: "Lot", Station: "Cahors", ID: "O823153002"},
	}
	store := health.NewStore(station.Keys(stations), []string{health.SubFlow, health.SubHeight})
	c := NewRiverCollector(stations, store)

	require.NoError(t, store.RecordSuccess("P207002002", health.SubFlow, 85.5, time.Second, time.Unix(200, 0)))
	require.NoError(t, store.RecordSuccess("P207002002", health.SubHeight, 1.4, 3*time.Second, time.Unix(200, 0)))

	expected := `
# HELP river_data_last_change Unix timestamp when river data last changed
# TYPE river_data_last_change gauge
river_data_last_change{river="Dordogne",station="Argentat",station_id="P207002002"} 200
# HELP river_flow Flow of the river (m3/s)
# TYPE river_flow gauge
river_flow{river="Dordogne",station="Argentat",station_id="P207002002"} 85.5
# HELP river_height Height of the river (m)
# TYPE river_height gauge
river_height{river="Dordogne",station="Argentat",station_id="P207002002"} 1.4
# HELP river_last_fetch_duration Duration of last successful river API request (seconds)
# TYPE river_last_fetch_duration gauge
river_last_fetch_duration{river="Dordogne",station="Argentat",station_id="P207002002"} 2
# HELP river_last_fetch_time Unix timestamp of last successful river data fetch
# TYPE river_last_fetch_time gauge
river_last_fetch_time{river="Dordogne",station="Argentat",station_id="P207002002"} 200
# HELP river_successful_requests_total Total number of successful river API requests
# TYPE river_successful_requests_total counter
river_successful_requests_total{river="Dordogne",station="Argentat",station_id="P207002002"} 2
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected)))
}

func TestRiverCollectorPartialCycleOmitsMissingGauge(t *testing.T) {
	stations := []station.River{{River: "Lot", Station: "Cahors", ID: "O823153002"}}
	store := health.NewStore([]string{"O823153002"}, []string{health.SubFlow, health.SubHeight})
	c := NewRiverCollector(stations, store)

	// Height succeeded, flow never has: river_flow must be absent while
	// the health series are present.
	require.NoError(t, store.RecordSuccess("O823153002", health.SubHeight, 1.2, time.Second, time.Unix(300, 0)))

	expected := `
# HELP river_height Height of the river (m)
# TYPE river_height gauge
river_height{river="Lot",station="Cahors",station_id="O823153002"} 1.2
`
	require.NoError(t, testutil.CollectAndCompare(c, strings.NewReader(expected),
		"river_height", "river_flow"))

	// 4 health series + river_height, no river_flow.
	assert.Equal(t, 5, testutil.CollectAndCount(c))
}

func TestCollectDoesNotMutateState(t *testing.T) {
	stations := []station.Weather{{ID: "X"}}
	store := health.NewStore([]string{"X"}, []string{health.SubTemperature})
	c := NewWeatherCollector(stations, store)

	require.NoError(t, store.RecordSuccess("X", health.SubTemperature, 20.0, time.Second, time.Unix(100, 0)))

	before, _ := store.Get("X")
	for i := 0; i < 3; i++ {
		_ = testutil.CollectAndCount(c)
	}
	after, _ := store.Get("X")
	assert.Equal(t, before, after)
}
