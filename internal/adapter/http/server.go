package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/couchcryptid/hiv-forecast-service/internal/adapter/store"
	"github.com/couchcryptid/hiv-forecast-service/internal/domain"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const errUnknownSex = "sex must be Masculino or Femenino"

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Querier answers the read API from the latest forecast run.
type Querier interface {
	Run() (store.RunInfo, error)
	Projections(f store.ProjectionFilter) ([]domain.Projection, error)
	History(key domain.GroupKey) ([]domain.HistoricalRecord, error)
	Groups() ([]domain.GroupSummary, error)
	Options() (store.Options, error)
}

// Server exposes health, readiness, metrics, and the projection query API.
type Server struct {
	httpServer *http.Server
	query      Querier
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics, and
// the /api/* query routes.
func NewServer(addr string, ready ReadinessChecker, query Querier, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		query:  query,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/run", s.handleRun)
	mux.HandleFunc("GET /api/projections", s.handleProjections)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("GET /api/groups", s.handleGroups)
	mux.HandleFunc("GET /api/options", s.handleOptions)

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

func (s *Server) handleRun(w http.ResponseWriter, _ *http.Request) {
	info, err := s.query.Run()
	if err != nil {
		s.writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleProjections(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var filter store.ProjectionFilter

	if v := q.Get("year"); v != "" {
		year, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "year must be an integer")
			return
		}
		filter.Year = year
	}
	filter.Department = q.Get("department")
	if v := q.Get("sex"); v != "" {
		sex, err := domain.ParseSex(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, errUnknownSex)
			return
		}
		filter.Sex = sex
	}

	projections, err := s.query.Projections(filter)
	if err != nil {
		s.writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":       len(projections),
		"projections": projections,
	})
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	dept := q.Get("department")
	if dept == "" || q.Get("sex") == "" {
		writeError(w, http.StatusBadRequest, "department and sex are required")
		return
	}
	sex, err := domain.ParseSex(q.Get("sex"))
	if err != nil {
		writeError(w, http.StatusBadRequest, errUnknownSex)
		return
	}

	records, err := s.query.History(domain.GroupKey{Department: dept, Sex: sex})
	if err != nil {
		s.writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"department": dept,
		"sex":        sex,
		"records":    records,
	})
}

func (s *Server) handleGroups(w http.ResponseWriter, _ *http.Request) {
	groups, err := s.query.Groups()
	if err != nil {
		s.writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"count":  len(groups),
		"groups": groups,
	})
}

func (s *Server) handleOptions(w http.ResponseWriter, _ *http.Request) {
	opts, err := s.query.Options()
	if err != nil {
		s.writeQueryError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, opts)
}

func (s *Server) writeQueryError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrNoRun) {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	s.logger.Error("query failed", "error", err)
	writeError(w, http.StatusInternalServerError, "internal error")
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
