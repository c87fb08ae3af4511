package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapFormat(t *testing.T) {
	base := stderrors.New("connection refused")
	err := Wrap(base, "WeatherFetcher", "Fetch", "observation request")

	require.Error(t, err)
	assert.Equal(t, "WeatherFetcher.Fetch: observation request failed: connection refused", err.Error())
	assert.True(t, stderrors.Is(err, base))
}

func TestWrapNilReturnsNil(t *testing.T) {
	assert.NoError(t, Wrap(nil, "c", "m", "a"))
	assert.NoError(t, WrapTransient(nil, "c", "m", "a"))
	assert.NoError(t, WrapInvalid(nil, "c", "m", "a"))
	assert.NoError(t, WrapFatal(nil, "c", "m", "a"))
}

func TestClassification(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorClass
	}{
		{"invalid config is fatal", ErrInvalidConfig, ErrorFatal},
		{"missing config is fatal", ErrMissingConfig, ErrorFatal},
		{"empty registry is invalid", ErrNoStations, ErrorInvalid},
		{"duplicate key is invalid", ErrDuplicateStation, ErrorInvalid},
		{"malformed payload is invalid", ErrMalformedPayload, ErrorInvalid},
		{"timeout is transient", ErrUpstreamTimeout, ErrorTransient},
		{"upstream status is transient", ErrUpstreamStatus, ErrorTransient},
		{"deadline exceeded is transient", context.DeadlineExceeded, ErrorTransient},
		{"unknown error defaults to transient", stderrors.New("boom"), ErrorTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}

func TestClassifiedWrappersOverrideSentinels(t *testing.T) {
	// Explicit classification wins over whatever the wrapped error would classify as.
	err := WrapFatal(stderrors.New("boom"), "Server", "Start", "listen")
	assert.True(t, IsFatal(err))
	assert.False(t, IsTransient(err))

	err = WrapInvalid(fmt.Errorf("field: %w", ErrUpstreamTimeout), "RiverFetcher", "Fetch", "decode")
	assert.True(t, IsInvalid(err))
}

func TestClassifiedErrorUnwrap(t *testing.T) {
	err := WrapTransient(ErrUpstreamStatus, "WeatherFetcher", "Fetch", "status check")

	var ce *ClassifiedError
	require.True(t, stderrors.As(err, &ce))
	assert.Equal(t, "WeatherFetcher", ce.Component)
	assert.Equal(t, "Fetch", ce.Operation)
	assert.True(t, stderrors.Is(err, ErrUpstreamStatus))
}

type timeoutErr struct{ timeout bool }

func (e *timeoutErr) Error() string   { return "net failure" }
func (e *timeoutErr) Timeout() bool   { return e.timeout }
func (e *timeoutErr) Temporary() bool { return false }

var _ net.Error = (*timeoutErr)(nil)

func TestReason(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"timeout sentinel", ErrUpstreamTimeout, "timeout"},
		{"context deadline", context.DeadlineExceeded, "timeout"},
		{"http status", fmt.Errorf("GET: %w", ErrUpstreamStatus), "http_status"},
		{"malformed", ErrMalformedPayload, "malformed"},
		{"net timeout", &timeoutErr{timeout: true}, "timeout"},
		{"net other", &timeoutErr{timeout: false}, "network"},
		{"generic", stderrors.New("boom"), "error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Reason(tt.err))
		})
	}
}
