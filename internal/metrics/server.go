package metrics

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// PrometheusServer exposes a Prometheus registry's metrics over HTTP at
// a configured path, implementing the Server interface.
type PrometheusServer struct {
	srv *http.Server
}

// NewPrometheusServer builds a PrometheusServer bound to addr, serving
// the gatherer's metrics at path.
func NewPrometheusServer(addr, path string, gatherer prometheus.Gatherer) *PrometheusServer {
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	return &PrometheusServer{srv: &http.Server{Addr: addr, Handler: mux}}
}

// Start blocks serving HTTP until the context is cancelled or
// ListenAndServe returns a non-shutdown error.
func (s *PrometheusServer) Start(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() { errCh <- s.srv.ListenAndServe() }()

	select {
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// Shutdown gracefully stops the metrics HTTP server.
func (s *PrometheusServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
