// Package handler implements the forecast API routes.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/newthinker/augur/internal/api/job"
	"github.com/newthinker/augur/internal/api/response"
	"github.com/newthinker/augur/internal/core"
	"github.com/newthinker/augur/internal/ledger"
	"github.com/newthinker/augur/internal/storage/journal"
	"go.uber.org/zap"
)

const (
	defaultHistoryLimit = 30
	maxHistoryLimit     = 365
	runTimeout          = 5 * time.Minute
)

// Run types accepted by CreateRun.
const (
	RunForecast = "forecast"
	RunEvaluate = "evaluate"
)

// Service is what the routes read from and trigger.
type Service interface {
	LatestForecast(ctx context.Context) (core.Forecast, error)
	LatestExport(ctx context.Context) (ledger.Export, error)
	Statistics(ctx context.Context) (core.Statistics, error)
	RecentForecasts(ctx context.Context, limit int) ([]journal.ForecastEntry, error)

	GenerateForecast(ctx context.Context) (core.Forecast, error)
	RecordCurrentForecast(ctx context.Context) (core.Prediction, error)
	ResolvePendingPredictions(ctx context.Context) (ledger.ResolveReport, error)
	ExportForDisplay(ctx context.Context) (ledger.Export, error)
}

// Handler serves forecast, ledger and run routes.
type Handler struct {
	svc    Service
	jobs   *job.Store
	logger *zap.Logger
}

// New creates a handler.
func New(svc Service, jobs *job.Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, jobs: jobs, logger: logger}
}

// Forecast returns the latest forecast.
func (h *Handler) Forecast(w http.ResponseWriter, r *http.Request) {
	f, err := h.svc.LatestForecast(r.Context())
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, f)
}

// Predictions returns the last written export. ?limit=N trims the recent
// predictions.
func (h *Handler) Predictions(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r, 0)
	if err != nil {
		response.Fail(w, err)
		return
	}
	e, err := h.svc.LatestExport(r.Context())
	if err != nil {
		response.Fail(w, err)
		return
	}
	if limit > 0 && len(e.RecentPredictions) > limit {
		e.RecentPredictions = e.RecentPredictions[len(e.RecentPredictions)-limit:]
	}
	response.JSON(w, http.StatusOK, e)
}

// Statistics recomputes accuracy over the stored ledger.
func (h *Handler) Statistics(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Statistics(r.Context())
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, st)
}

// History returns journaled forecasts, newest first.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r, defaultHistoryLimit)
	if err != nil {
		response.Fail(w, err)
		return
	}
	entries, err := h.svc.RecentForecasts(r.Context(), limit)
	if err != nil {
		response.Fail(w, err)
		return
	}
	if entries == nil {
		entries = []journal.ForecastEntry{}
	}
	response.JSON(w, http.StatusOK, map[string]any{
		"forecasts": entries,
		"limit":     limit,
	})
}

func queryLimit(r *http.Request, def int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 || n > maxHistoryLimit {
		return 0, core.WrapError(core.ErrBadRequest, fmt.Errorf("limit must be between 1 and %d", maxHistoryLimit))
	}
	return n, nil
}

// RunRequest is the request body for starting a run.
type RunRequest struct {
	Type string `json:"type"`
}

// CreateRun starts a forecast or evaluate run in the background and
// returns the pending job.
func (h *Handler) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req RunRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		response.Fail(w, core.WrapError(core.ErrBadRequest, err))
		return
	}

	var run func(ctx context.Context) (any, error)
	switch req.Type {
	case RunForecast:
		run = h.runForecast
	case RunEvaluate:
		run = h.runEvaluate
	default:
		response.Fail(w, core.WrapError(core.ErrBadRequest,
			fmt.Errorf("type must be %q or %q", RunForecast, RunEvaluate)))
		return
	}

	j := h.jobs.Create(req.Type)
	go h.execute(j.ID, run)

	response.JSON(w, http.StatusAccepted, j)
}

// GetRun returns one run by id.
func (h *Handler) GetRun(w http.ResponseWriter, r *http.Request) {
	j, err := h.jobs.Get(r.PathValue("id"))
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, j)
}

// ListRuns returns known runs, newest first.
func (h *Handler) ListRuns(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, h.jobs.List())
}

func (h *Handler) execute(id string, run func(ctx context.Context) (any, error)) {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()

	h.jobs.Update(id, func(j *job.Job) { j.Status = job.StatusRunning })

	result, err := run(ctx)
	h.jobs.Update(id, func(j *job.Job) {
		j.Result = result
		if err != nil {
			j.Fail(err)
			return
		}
		j.Status = job.StatusComplete
	})
	if err != nil {
		h.logger.Error("run failed", zap.String("job_id", id), zap.Error(err))
	}
}

func (h *Handler) runForecast(ctx context.Context) (any, error) {
	f, err := h.svc.GenerateForecast(ctx)
	if err != nil {
		return nil, err
	}
	p, err := h.svc.RecordCurrentForecast(ctx)
	if err != nil {
		return map[string]any{"forecast": f}, err
	}
	return map[string]any{"forecast": f, "prediction": p}, nil
}

func (h *Handler) runEvaluate(ctx context.Context) (any, error) {
	report, err := h.svc.ResolvePendingPredictions(ctx)
	if err != nil {
		return nil, err
	}
	e, err := h.svc.ExportForDisplay(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"resolved":   len(report.Resolved),
		"waiting":    report.Waiting,
		"failed":     report.Failed,
		"statistics": e.Statistics,
	}, nil
}
