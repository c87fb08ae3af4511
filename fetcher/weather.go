package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/kpouget/wunderground2prom/errors"
	"github.com/kpouget/wunderground2prom/station"
)

// WeatherFetcher fetches the current temperature for a personal weather
// station from the PWS observations API.
type WeatherFetcher struct {
	endpoint string
	apiKey   string
	client   *http.Client
	logger   *slog.Logger
}

// weatherPayload is the subset of the observations response the
// exporter consumes. Metric readings arrive nested under "metric" when
// metric units are requested.
type weatherPayload struct {
	Observations []struct {
		Epoch  int64 `json:"epoch"`
		Metric struct {
			Temp *float64 `json:"temp"`
		} `json:"metric"`
	} `json:"observations"`
}

// NewWeatherFetcher creates a fetcher against the given API endpoint.
// The timeout bounds each request; an exceeded timeout surfaces as a
// transient upstream-timeout error.
func NewWeatherFetcher(endpoint, apiKey string, timeout time.Duration, logger *slog.Logger) *WeatherFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &WeatherFetcher{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With("component", "weather-fetcher"),
	}
}

// Fetch performs one timed observation request for the station and
// returns the current temperature. Every failure mode, including
// transport panics the net/http stack surfaces as errors, comes back as
// a classified error; the caller decides what a failure means.
func (f *WeatherFetcher) Fetch(ctx context.Context, st station.Weather) (Observation, error) {
	query := url.Values{}
	query.Set("apiKey", f.apiKey)
	query.Set("stationId", st.ID)
	query.Set("numericPrecision", "decimal")
	query.Set("format", "json")
	query.Set("units", "m")
	reqURL := fmt.Sprintf("%s/observations/current?%s", f.endpoint, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Observation{}, errors.WrapInvalid(err, "WeatherFetcher", "Fetch", "request construction")
	}
	req.Header.Set("User-Agent", userAgent)

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Debug("observation request failed",
			"station_id", st.ID, "elapsed", time.Since(start), "error", err)
		return Observation{}, classifyTransport(err, "WeatherFetcher")
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkStatus(resp, "WeatherFetcher"); err != nil {
		return Observation{}, err
	}

	var payload weatherPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Observation{}, errors.WrapInvalid(
			fmt.Errorf("%w: %w", errors.ErrMalformedPayload, err),
			"WeatherFetcher", "Fetch", "payload decoding")
	}
	elapsed := time.Since(start)

	if len(payload.Observations) == 0 {
		return Observation{}, errors.WrapInvalid(
			fmt.Errorf("%w: no observations", errors.ErrMalformedPayload),
			"WeatherFetcher", "Fetch", "payload validation")
	}
	obs := payload.Observations[0]
	if obs.Metric.Temp == nil {
		return Observation{}, errors.WrapInvalid(
			fmt.Errorf("%w: missing metric.temp", errors.ErrMalformedPayload),
			"WeatherFetcher", "Fetch", "payload validation")
	}

	f.logger.Debug("observation request completed",
		"station_id", st.ID, "temperature", *obs.Metric.Temp, "elapsed", elapsed)

	return Observation{Value: *obs.Metric.Temp, Duration: elapsed}, nil
}
