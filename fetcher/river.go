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

// Series selects which observation series to fetch for a river station.
type Series string

const (
	// SeriesFlow is the discharge series ("Q", m3/s).
	SeriesFlow Series = "Q"
	// SeriesHeight is the water height series ("H", m).
	SeriesHeight Series = "H"
)

// RiverFetcher fetches flow and height observations for river gauging
// stations from the hydrology observations API.
type RiverFetcher struct {
	endpoint string
	client   *http.Client
	logger   *slog.Logger
}

// riverPayload mirrors the simple output format: ObssHydro rows are
// [timestamp, value] pairs, oldest first.
type riverPayload struct {
	Serie struct {
		ObssHydro [][]float64 `json:"ObssHydro"`
	} `json:"Serie"`
}

// NewRiverFetcher creates a fetcher against the given API endpoint.
func NewRiverFetcher(endpoint string, timeout time.Duration, logger *slog.Logger) *RiverFetcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &RiverFetcher{
		endpoint: endpoint,
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With("component", "river-fetcher"),
	}
}

// Fetch performs one timed observation request for the station and
// series, returning the most recent reading. Flow and height are
// independent requests; one failing says nothing about the other.
func (f *RiverFetcher) Fetch(ctx context.Context, st station.River, series Series) (Observation, error) {
	query := url.Values{}
	query.Set("CdStationHydro", st.ID)
	query.Set("GrdSerie", string(series))
	query.Set("FormatSortie", "simple")
	reqURL := fmt.Sprintf("%s?%s", f.endpoint, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Observation{}, errors.WrapInvalid(err, "RiverFetcher", "Fetch", "request construction")
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		f.logger.Debug("observation request failed",
			"station_id", st.ID, "series", series, "elapsed", time.Since(start), "error", err)
		return Observation{}, classifyTransport(err, "RiverFetcher")
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkStatus(resp, "RiverFetcher"); err != nil {
		return Observation{}, err
	}

	var payload riverPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Observation{}, errors.WrapInvalid(
			fmt.Errorf("%w: %w", errors.ErrMalformedPayload, err),
			"RiverFetcher", "Fetch", "payload decoding")
	}
	elapsed := time.Since(start)

	rows := payload.Serie.ObssHydro
	if len(rows) == 0 {
		return Observation{}, errors.WrapInvalid(
			fmt.Errorf("%w: empty observation series", errors.ErrMalformedPayload),
			"RiverFetcher", "Fetch", "payload validation")
	}
	last := rows[len(rows)-1]
	if len(last) < 2 {
		return Observation{}, errors.WrapInvalid(
			fmt.Errorf("%w: truncated observation row", errors.ErrMalformedPayload),
			"RiverFetcher", "Fetch", "payload validation")
	}

	f.logger.Debug("observation request completed",
		"station_id", st.ID, "series", series, "value", last[1], "elapsed", elapsed)

	return Observation{Value: last[1], Duration: elapsed}, nil
}
