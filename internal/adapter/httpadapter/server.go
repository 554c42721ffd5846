package httpadapter

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/emwin-ingest/internal/pipeline"
)

// Monitor is what the server reports on: readiness once existing bulletin
// keys are loaded, and a snapshot of the running ingestion.
type Monitor interface {
	sharedobs.ReadinessChecker
	Progress() pipeline.Report
}

// Server exposes health, readiness, progress, and metrics endpoints while an
// ingestion run is in flight.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /status, and /metrics routes.
func NewServer(addr string, m Monitor, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(m))
	mux.HandleFunc("GET /status", handleStatus(m))
	mux.Handle("GET /metrics", promhttp.Handler())

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

type statusResponse struct {
	pipeline.Report
	Pending  int     `json:"pending"`
	Duration float64 `json:"duration_seconds"`
}

func handleStatus(m Monitor) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		r := m.Progress()
		sharedobs.WriteJSON(w, http.StatusOK, statusResponse{
			Report:   r,
			Pending:  r.Pending(),
			Duration: r.Duration.Seconds(),
		})
	}
}
