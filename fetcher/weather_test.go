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

const weatherBody = `{
  "observations": [
    {"stationID": "ISSAGE12", "epoch": 1700000000,
     "metric": {"temp": 20.4, "dewpt": 12.1, "pressure": 1015.2}}
  ]
}`

func TestWeatherFetch(t *testing.T) {
	var gotURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL.String()
		assert.Equal(t, "Mozilla/5.0", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(weatherBody))
	}))
	defer srv.Close()

	f := NewWeatherFetcher(srv.URL, "secret123", 5*time.Second, nil)
	obs, err := f.Fetch(context.Background(), station.Weather{ID: "ISSAGE12", Name: "Home"})
	require.NoError(t, err)

	assert.Equal(t, 20.4, obs.Value)
	assert.Greater(t, obs.Duration, time.Duration(0))

	assert.Contains(t, gotURL, "/observations/current")
	assert.Contains(t, gotURL, "apiKey=secret123")
	assert.Contains(t, gotURL, "stationId=ISSAGE12")
	assert.Contains(t, gotURL, "units=m")
	assert.Contains(t, gotURL, "numericPrecision=decimal")
}

func TestWeatherFetchTimeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	f := NewWeatherFetcher(srv.URL, "k", 50*time.Millisecond, nil)
	_, err := f.Fetch(context.Background(), station.Weather{ID: "ISSAGE12"})

	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUpstreamTimeout)
	assert.True(t, errors.IsTransient(err))
	assert.Equal(t, "timeout", errors.Reason(err))
}

func TestWeatherFetchNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close() // connection refused from here on

	f := NewWeatherFetcher(srv.URL, "k", time.Second, nil)
	_, err := f.Fetch(context.Background(), station.Weather{ID: "ISSAGE12"})

	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
	assert.Equal(t, "network", errors.Reason(err))
}

func TestWeatherFetchHTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	f := NewWeatherFetcher(srv.URL, "k", time.Second, nil)
	_, err := f.Fetch(context.Background(), station.Weather{ID: "ISSAGE12"})

	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrUpstreamStatus)
	assert.Equal(t, "http_status", errors.Reason(err))
}

func TestWeatherFetchMalformedPayload(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"not json", `<html>maintenance</html>`},
		{"no observations", `{"observations": []}`},
		{"missing temp", `{"observations": [{"epoch": 1700000000, "metric": {"dewpt": 3.0}}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			f := NewWeatherFetcher(srv.URL, "k", time.Second, nil)
			_, err := f.Fetch(context.Background(), station.Weather{ID: "ISSAGE12"})

			require.Error(t, err)
			assert.ErrorIs(t, err, errors.ErrMalformedPayload)
			assert.Equal(t, "malformed", errors.Reason(err))
		})
	}
}

func TestWeatherFetchContextCancellation(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-block
	}))
	defer srv.Close()
	defer close(block)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	f := NewWeatherFetcher(srv.URL, "k", time.Minute, nil)
	_, err := f.Fetch(ctx, station.Weather{ID: "ISSAGE12"})

	require.Error(t, err)
	assert.True(t, errors.IsTransient(err))
	assert.Equal(t, "timeout", errors.Reason(err))
}
