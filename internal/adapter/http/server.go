package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/localized-events-etl/internal/domain"
	"github.com/couchcryptid/localized-events-etl/internal/pipeline"
	"github.com/couchcryptid/localized-events-etl/internal/tabular"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxDocumentBytes caps the size of a document posted to /normalize.
const maxDocumentBytes = 32 << 20

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Server exposes health, readiness, metrics, and on-demand normalization
// endpoints.
type Server struct {
	httpServer *http.Server
	normalizer pipeline.BatchNormalizer
	prefix     string
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, and
// POST /normalize routes. prefix is the id prefix used when a request does
// not supply one.
func NewServer(addr string, ready ReadinessChecker, n pipeline.BatchNormalizer, prefix string, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		normalizer: n,
		prefix:     prefix,
		logger:     logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("POST /normalize", s.handleNormalize)

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

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

// handleNormalize converts a posted localization document. The response is
// the CSV table, or the events as JSON when the client accepts only JSON.
// The prefix query parameter overrides the server's default prefix.
func (s *Server) handleNormalize(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxDocumentBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, err)
			return
		}
		writeError(w, http.StatusBadRequest, err)
		return
	}

	prefix := s.prefix
	if r.URL.Query().Has("prefix") {
		prefix = r.URL.Query().Get("prefix")
	}

	res, err := s.normalizer.Normalize(data, prefix)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, domain.ErrInputParse) || errors.Is(err, domain.ErrInputSchema) {
			status = http.StatusBadRequest
		}
		writeError(w, status, err)
		return
	}

	if r.Header.Get("Accept") == "application/json" {
		writeJSON(w, http.StatusOK, map[string]any{
			"events":   nonNil(res.Events),
			"filtered": res.Filtered,
		})
		return
	}

	table, err := tabular.Encode(res.Events)
	if err != nil {
		s.logger.Error("encode table failed", "error", err)
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.WriteHeader(http.StatusOK)
	w.Write(table) //nolint:errcheck // client may have gone away
}

func nonNil(events []domain.NormalizedEvent) []domain.NormalizedEvent {
	if events == nil {
		return []domain.NormalizedEvent{}
	}
	return events
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
