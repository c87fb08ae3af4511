package metric

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/kpouget/wunderground2prom/health"
	"github.com/kpouget/wunderground2prom/station"
)

// WeatherCollector renders the weather stations' health records. Metric
// names and label sets are part of the external contract consumed by
// alerting rules and dashboards; do not rename them.
type WeatherCollector struct {
	stations []station.Weather
	store    *health.Store

	lastFetchTime         *prometheus.Desc
	lastFetchDuration     *prometheus.Desc
	successfulRequests    *prometheus.Desc
	temperatureLastChange *prometheus.Desc
	temperature           *prometheus.Desc
}

// NewWeatherCollector creates a collector over the given stations and
// store.
func NewWeatherCollector(stations []station.Weather, store *health.Store) *WeatherCollector {
	labels := []string{"station_id"}
	return &WeatherCollector{
		stations: stations,
		store:    store,
		lastFetchTime: prometheus.NewDesc("last_fetch_time",
			"Unix timestamp of last successful data fetch", labels, nil),
		lastFetchDuration: prometheus.NewDesc("last_fetch_duration",
			"Duration of last successful API request (seconds)", labels, nil),
		successfulRequests: prometheus.NewDesc("successful_requests_total",
			"Total number of successful API requests", labels, nil),
		temperatureLastChange: prometheus.NewDesc("temperature_last_change",
			"Unix timestamp when temperature last changed", labels, nil),
		temperature: prometheus.NewDesc("temperature",
			"Temperature (in C)", labels, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *WeatherCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.lastFetchTime
	ch <- c.lastFetchDuration
	ch <- c.successfulRequests
	ch <- c.temperatureLastChange
	ch <- c.temperature
}

// Collect implements prometheus.Collector. Each scrape snapshots the
// store; a station with no successful fetch yet contributes no lines,
// and a malformed record only loses its own lines.
func (c *WeatherCollector) Collect(ch chan<- prometheus.Metric) {
	for _, st := range c.stations {
		snap, ok := c.store.Get(st.ID)
		if !ok || snap.SuccessfulRequests == 0 {
			continue
		}

		emit(ch, c.lastFetchTime, prometheus.GaugeValue, float64(snap.LastFetchTime), st.ID)
		emit(ch, c.lastFetchDuration, prometheus.GaugeValue, snap.LastFetchDuration, st.ID)
		emit(ch, c.successfulRequests, prometheus.CounterValue, float64(snap.SuccessfulRequests), st.ID)
		emit(ch, c.temperatureLastChange, prometheus.GaugeValue, float64(snap.LastChangeTime), st.ID)

		if sub, ok := snap.Subs[health.SubTemperature]; ok && sub.Observed {
			emit(ch, c.temperature, prometheus.GaugeValue, sub.Value, st.ID)
		}
	}
}

// RiverCollector renders the river stations' health records and the
// current flow/height readings.
type RiverCollector struct {
	stations []station.River
	store    *health.Store

	lastFetchTime      *prometheus.Desc
	lastFetchDuration  *prometheus.Desc
	successfulRequests *prometheus.Desc
	dataLastChange     *prometheus.Desc
	flow               *prometheus.Desc
	height             *prometheus.Desc
}

// NewRiverCollector creates a collector over the given stations and
// store.
func NewRiverCollector(stations []station.River, store *health.Store) *RiverCollector {
	labels := []string{"river", "station", "station_id"}
	return &RiverCollector{
		stations: stations,
		store:    store,
		lastFetchTime: prometheus.NewDesc("river_last_fetch_time",
			"Unix timestamp of last successful river data fetch", labels, nil),
		lastFetchDuration: prometheus.NewDesc("river_last_fetch_duration",
			"Duration of last successful river API request (seconds)", labels, nil),
		successfulRequests: prometheus.NewDesc("river_successful_requests_total",
			"Total number of successful river API requests", labels, nil),
		dataLastChange: prometheus.NewDesc("river_data_last_change",
			"Unix timestamp when river data last changed", labels, nil),
		flow: prometheus.NewDesc("river_flow",
			"Flow of the river (m3/s)", labels, nil),
		height: prometheus.NewDesc("river_height",
			"Height of the river (m)", labels, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *RiverCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.lastFetchTime
	ch <- c.lastFetchDuration
	ch <- c.successfulRequests
	ch <- c.dataLastChange
	ch <- c.flow
	ch <- c.height
}

// Collect implements prometheus.Collector.
func (c *RiverCollector) Collect(ch chan<- prometheus.Metric) {
	for _, st := range c.stations {
		snap, ok := c.store.Get(st.ID)
		if !ok || snap.SuccessfulRequests == 0 {
			continue
		}
		labels := []string{st.River, st.Station, st.ID}

		emit(ch, c.lastFetchTime, prometheus.GaugeValue, float64(snap.LastFetchTime), labels...)
		emit(ch, c.lastFetchDuration, prometheus.GaugeValue, snap.LastFetchDuration, labels...)
		emit(ch, c.successfulRequests, prometheus.CounterValue, float64(snap.SuccessfulRequests), labels...)
		emit(ch, c.dataLastChange, prometheus.GaugeValue, float64(snap.LastChangeTime), labels...)

		if sub, ok := snap.Subs[health.SubFlow]; ok && sub.Observed {
			emit(ch, c.flow, prometheus.GaugeValue, sub.Value, labels...)
		}
		if sub, ok := snap.Subs[health.SubHeight]; ok && sub.Observed {
			emit(ch, c.height, prometheus.GaugeValue, sub.Value, labels...)
		}
	}
}

// emit sends one const metric, dropping it silently if construction
// fails. One bad record must not abort the whole scrape.
func emit(ch chan<- prometheus.Metric, desc *prometheus.Desc, valueType prometheus.ValueType, value float64, labels ...string) {
	m, err := prometheus.NewConstMetric(desc, valueType, value, labels...)
	if err != nil {
		return
	}
	ch <- m
}
