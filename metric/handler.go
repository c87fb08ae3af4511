package metric

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/heptiolabs/healthcheck"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kpouget/wunderground2prom/errors"
)

// Server serves the metrics endpoint plus liveness/readiness probes.
type Server struct {
	addr     string
	path     string
	registry *Registry
	health   healthcheck.Handler
	logger   *slog.Logger

	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
}

// NewServer creates a metrics server bound to addr. The ready check
// gates the /ready probe; typically it reports whether polling is
// running.
func NewServer(addr string, registry *Registry, ready healthcheck.Check, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	h := healthcheck.NewHandler()
	h.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(200))
	if ready != nil {
		h.AddReadinessCheck("poller", ready)
	}

	return &Server{
		addr:     addr,
		path:     "/metrics",
		registry: registry,
		health:   h,
		logger:   logger.With("component", "metric-server"),
	}
}

// Handler returns the HTTP handler serving all endpoints. Exposed
// separately from Start so tests can drive it without a listener.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle(s.path, promhttp.HandlerFor(
		s.registry.PrometheusRegistry(),
		promhttp.HandlerOpts{},
	))

	mux.HandleFunc("/live", s.health.LiveEndpoint)
	mux.HandleFunc("/ready", s.health.ReadyEndpoint)

	mux.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = fmt.Fprintf(w, `<html>
<head><title>Station Exporter</title></head>
<body>
<h1>Station Exporter</h1>
<p><a href="%s">Metrics</a></p>
<p><a href="/ready">Readiness</a></p>
</body>
</html>`, s.path)
	})

	return mux
}

// Start binds the listener and begins serving in the background. A
// bind failure is fatal; serve errors after that are only logged.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server != nil {
		return errors.WrapInvalid(
			fmt.Errorf("server already running"),
			"Server", "Start", "cannot start server that is already running")
	}
	if s.registry == nil {
		return errors.WrapFatal(
			fmt.Errorf("nil registry"),
			"Server", "Start", "metrics registry not provided")
	}

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return errors.WrapFatal(err, "Server", "Start",
			fmt.Sprintf("failed to bind %s", s.addr))
	}

	s.listener = listener
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		if err := s.server.Serve(listener); err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			s.logger.Error("metrics server stopped unexpectedly", "error", err)
		}
	}()

	s.logger.Info("metrics server listening", "address", s.Address())
	return nil
}

// Stop shuts the server down, waiting for in-flight scrapes up to the
// timeout.
func (s *Server) Stop(timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	err := s.server.Shutdown(ctx)
	s.server = nil
	s.listener = nil
	if err != nil {
		return errors.WrapTransient(err, "Server", "Stop", "graceful shutdown")
	}
	return nil
}

// Address returns the bound listen address, useful when the configured
// port is 0.
func (s *Server) Address() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.addr
}
