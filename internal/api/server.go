// Package api serves the latest forecast, the ledger export and run
// triggers over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/newthinker/augur/internal/api/handler"
	"github.com/newthinker/augur/internal/api/job"
	"github.com/newthinker/augur/internal/api/middleware"
	"go.uber.org/zap"
)

// Config holds server configuration
type Config struct {
	// APIKey guards every /api/v1 route; empty disables auth.
	APIKey string
	// MaxJobs and JobTTL bound the run history.
	MaxJobs int
	JobTTL  time.Duration
}

// Server routes API requests.
type Server struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

// NewServer creates the API router.
func NewServer(cfg Config, svc handler.Service, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxJobs <= 0 {
		cfg.MaxJobs = 100
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = 24 * time.Hour
	}

	s := &Server{mux: http.NewServeMux(), logger: logger}
	h := handler.New(svc, job.NewStore(cfg.MaxJobs, cfg.JobTTL), logger)
	auth := middleware.APIKeyAuth(cfg.APIKey)

	s.mux.HandleFunc("GET /api/health", s.handleHealth)

	routes := map[string]http.HandlerFunc{
		"GET /api/v1/forecast":    h.Forecast,
		"GET /api/v1/forecasts":   h.History,
		"GET /api/v1/predictions": h.Predictions,
		"GET /api/v1/statistics":  h.Statistics,
		"POST /api/v1/runs":       h.CreateRun,
		"GET /api/v1/runs":        h.ListRuns,
		"GET /api/v1/runs/{id}":   h.GetRun,
	}
	for pattern, fn := range routes {
		s.mux.Handle(pattern, auth(fn))
	}

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
