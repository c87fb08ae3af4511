package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kpouget/wunderground2prom/errors"
	"github.com/kpouget/wunderground2prom/station"
)

const riverBody = `{
  "Serie": {
    "CdStationHydro": "P207002002",
    "GrdSerie": "Q",
    "ObssHydro": [[1700000000, 82.5], [1700000600, 84.0], [1700001200, 85.5]]
  }
}`

var argentat = station.River{River: "Dordogne", Station: "Argentat", ID: "P207002002"}

func TestRiverFetchFlow(t *testing.T) {
	var gotURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL.String()
		_, _ = w.Write([]byte(riverBody))
	}))
	defer srv.Close()

	f := NewRiverFetcher(srv.URL, time.Second, nil)
	obs, err := f.Fetch(context.Background(), argentat, SeriesFlow)
	require.NoError(t, err)

	// Most recent reading wins.
	assert.Equal(t, 85.5, obs.Value)
	assert.Greater(t, obs.Duration, time.Duration(0))

	assert.Contains(t, gotURL, "CdStationHydro=P207002002")
	assert.Contains(t, gotURL, "GrdSerie=Q")
	assert.Contains(t, gotURL, "FormatSortie=simple")
}

func TestRiverFetchHeightSeries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "H", r.URL.Query().Get("GrdSerie"))
		_, _ = w.Write([]byte(`{"Serie": {"ObssHydro": [[1700000000, 1.42]]}}`))
	}))
	defer srv.Close()

	f := NewRiverFetcher(srv.URL, time.Second, nil)
	obs, err := f.Fetch(context.Background(), argentat, SeriesHeight)
	require.NoError(t, err)
	assert.Equal(t, 1.42, obs.Value)
}

func TestRiverFetchTimeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	f := NewRiverFetcher(srv.URL, 50*time.Millisecond, nil)
	_, err := f.Fetch(context.Background(), argentat, SeriesFlow)

	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUpstreamTimeout)
	assert.Equal(t, "timeout", errors.Reason(err))
}

func TestRiverFetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone fishing", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := NewRiverFetcher(srv.URL, time.Second, nil)
	_, err := f.Fetch(context.Background(), argentat, SeriesHeight)

	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUpstreamStatus)
	assert.True(t, errors.IsTransient(err))
}

func TestRiverFetchMalformedPayload(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `oops`},
		{"empty series", `{"Serie": {"ObssHydro": []}}`},
		{"missing series", `{}`},
		{"truncated row", `{"Serie": {"ObssHydro": [[1700000000]]}}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			f := NewRiverFetcher(srv.URL, time.Second, nil)
			_, err := f.Fetch(context.Background(), argentat, SeriesFlow)

			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrMalformedPayload)
		})
	}
}
