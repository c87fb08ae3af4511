// Package fetcher performs the timed upstream API calls for both
// exporters. Fetchers are a pure request/response boundary: they hold
// no shared state, never retry (the poll cadence owns retries) and
// convert every transport or payload problem into a classified error
// instead of propagating it raw.
package fetcher

import (
	"context"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/kpouget/wunderground2prom/errors"
)

// Observation is the typed result of one successful sub-fetch.
type Observation struct {
	// Value is the parsed primary reading (temperature, flow or height).
	Value float64
	// Duration is the wall-clock latency of the upstream request.
	Duration time.Duration
}

// userAgent matches what the upstream weather API expects from browser
// clients; requests without it get rejected intermittently.
const userAgent = "Mozilla/5.0"

// classifyTransport maps an http.Client error to the fetch error
// taxonomy: timeout, cancellation or plain network failure.
func classifyTransport(err error, component string) error {
	var ue *url.Error
	if stderrors.As(err, &ue) && ue.Timeout() {
		return errors.WrapTransient(
			fmt.Errorf("%w: %w", errors.ErrUpstreamTimeout, err),
			component, "Fetch", "upstream request")
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return errors.WrapTransient(
			fmt.Errorf("%w: %w", errors.ErrUpstreamTimeout, err),
			component, "Fetch", "upstream request")
	}
	return errors.WrapTransient(err, component, "Fetch", "upstream request")
}

// checkStatus converts a non-2xx response into an upstream status error.
func checkStatus(resp *http.Response, component string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	return errors.WrapTransient(
		fmt.Errorf("%w: %s", errors.ErrUpstreamStatus, resp.Status),
		component, "Fetch", "status check")
}
