// Package router configures HTTP routes for the forecaster's HTTP API.
//
// Routes configured:
//   - GET /forecast/current?student=<name> - Latest stored forecast snapshot
//   - POST /forecast/simulate - Ad-hoc forecast for a posted course list
//   - GET /healthz - Health check endpoint
//   - GET /metrics - Prometheus metrics endpoint
//
// Snapshots older than the stale threshold are still served, with an
// X-Gradecast-Stale: true header.
package router

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/HatiCode/gradecast/pkg/forecast"
	"github.com/HatiCode/gradecast/pkg/httpx"
	"github.com/HatiCode/gradecast/pkg/storage"
)

// StaleHeader marks a snapshot older than the stale threshold.
const StaleHeader = "X-Gradecast-Stale"

const (
	// DefaultMaxSimulations caps the trial count of one ad-hoc request.
	DefaultMaxSimulations = 200_000

	// DefaultMaxTotalUnits caps the degree size of one ad-hoc request.
	DefaultMaxTotalUnits = 1000
)

// Config holds the HTTP API settings.
type Config struct {
	// StaleAfter is the snapshot age after which StaleHeader is set.
	StaleAfter time.Duration

	// MaxBodyBytes limits the POST /forecast/simulate body.
	MaxBodyBytes int64

	// Defaults fill the options a simulate request leaves out.
	Defaults forecast.Options

	// MaxSimulations caps the trial count of a simulate request.
	MaxSimulations int

	// MaxTotalUnits caps the total units of a simulate request.
	MaxTotalUnits int
}

// SimulateRequest is the body of POST /forecast/simulate. Zero-valued
// options fall back to the service defaults.
type SimulateRequest struct {
	Courses     []forecast.Course    `json:"courses"`
	TotalUnits  int                  `json:"totalUnits,omitempty"`
	Simulations int                  `json:"simulations,omitempty"`
	Trend       *bool                `json:"trend,omitempty"`
	Percentiles []string             `json:"percentiles,omitempty"`
	Seed        *uint64              `json:"seed,omitempty"`
	Scale       *forecast.GradeScale `json:"scale,omitempty"`
}

// SimulateResponse is the reply of POST /forecast/simulate.
type SimulateResponse struct {
	Forecast  forecast.Result          `json:"forecast"`
	Summary   forecast.Summary         `json:"summary"`
	Grades    []forecast.GradeCount    `json:"grades"`
	Semesters []forecast.SemesterPoint `json:"semesters"`
}

type pinger interface {
	Ping(ctx context.Context) error
}

// SetupRoutes configures HTTP endpoints for the forecaster.
func SetupRoutes(store storage.Store, cfg Config, logger *slog.Logger) *http.ServeMux {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.MaxSimulations <= 0 {
		cfg.MaxSimulations = DefaultMaxSimulations
	}
	if cfg.MaxTotalUnits <= 0 {
		cfg.MaxTotalUnits = DefaultMaxTotalUnits
	}
	if cfg.MaxBodyBytes <= 0 {
		cfg.MaxBodyBytes = 1 << 20
	}

	mux := http.NewServeMux()

	if p, ok := store.(pinger); ok {
		mux.Handle("GET /healthz", httpx.HealthHandlerWithCheck(p.Ping))
	} else {
		mux.Handle("GET /healthz", httpx.HealthHandler())
	}

	mux.HandleFunc("GET /forecast/current", handleGetSnapshot(store, cfg.StaleAfter, logger))
	mux.HandleFunc("POST /forecast/simulate", handleSimulate(cfg, logger))

	mux.Handle("GET /metrics", promhttp.Handler())

	return mux
}

// handleGetSnapshot returns a handler for GET /forecast/current?student=<name>.
func handleGetSnapshot(store storage.Store, staleAfter time.Duration, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		student := r.URL.Query().Get("student")
		if student == "" {
			httpx.WriteErrorMessage(w, http.StatusBadRequest, "student parameter required")
			return
		}

		if err := storage.ValidateStudent(student); err != nil {
			httpx.WriteErrorMessage(w, http.StatusBadRequest, "invalid student name format")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		snapshot, found, err := store.GetLatest(ctx, student)
		if err != nil {
			logger.Error("failed to get snapshot", "student", student, "error", err)
			httpx.WriteErrorMessage(w, http.StatusInternalServerError, "internal server error")
			return
		}

		if !found {
			httpx.WriteErrorMessage(w, http.StatusNotFound, fmt.Sprintf("snapshot not found for student %q", student))
			return
		}

		if staleAfter > 0 && time.Since(snapshot.GeneratedAt) > staleAfter {
			w.Header().Set(StaleHeader, "true")
		}

		if err := httpx.WriteJSON(w, http.StatusOK, snapshot); err != nil {
			logger.Error("failed to write JSON response", "error", err)
		}
	}
}

// handleSimulate returns a handler for POST /forecast/simulate.
func handleSimulate(cfg Config, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SimulateRequest
		if err := httpx.DecodeJSON(w, r, cfg.MaxBodyBytes, &req); err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, httpx.ErrBodyTooLarge) {
				status = http.StatusRequestEntityTooLarge
			}
			httpx.WriteError(w, status, err)
			return
		}

		opts, err := req.options(cfg)
		if err != nil {
			httpx.WriteError(w, http.StatusBadRequest, err)
			return
		}

		start := time.Now()
		res, err := forecast.Simulate(req.Courses, opts)
		if err != nil {
			status := http.StatusBadRequest
			if errors.Is(err, forecast.ErrGradeOutOfScale) {
				status = http.StatusUnprocessableEntity
			}
			httpx.WriteError(w, status, err)
			return
		}

		logger.Debug("ad-hoc forecast",
			"courses", len(req.Courses),
			"simulations", opts.Simulations,
			"available", res.Available,
			"duration_ms", time.Since(start).Milliseconds(),
		)

		resp := SimulateResponse{
			Forecast:  res,
			Summary:   forecast.Summarize(req.Courses, opts.Scale, opts.TotalUnits, forecast.DefaultPassGrade),
			Grades:    forecast.GradeCounts(req.Courses),
			Semesters: forecast.SemesterTrend(req.Courses),
		}
		if err := httpx.WriteJSON(w, http.StatusOK, resp); err != nil {
			logger.Error("failed to write JSON response", "error", err)
		}
	}
}

// options merges the request overrides into the service defaults.
func (req SimulateRequest) options(cfg Config) (forecast.Options, error) {
	opts := cfg.Defaults
	if req.TotalUnits != 0 {
		opts.TotalUnits = req.TotalUnits
	}
	if req.Simulations != 0 {
		opts.Simulations = req.Simulations
	}
	if req.Trend != nil {
		opts.Trend = *req.Trend
	}
	if req.Scale != nil {
		opts.Scale = *req.Scale
	}
	if len(req.Percentiles) > 0 {
		levels := make([]float64, 0, len(req.Percentiles))
		for _, p := range req.Percentiles {
			q, err := forecast.ParsePercentile(p)
			if err != nil {
				return forecast.Options{}, err
			}
			levels = append(levels, q)
		}
		opts.Percentiles = levels
	}
	if req.Seed != nil {
		opts.Rand = forecast.NewSeededSource(*req.Seed)
	} else {
		opts.Rand = nil
	}

	limit := cfg.MaxSimulations
	if limit <= 0 {
		limit = DefaultMaxSimulations
	}
	if opts.Simulations > limit {
		return forecast.Options{}, fmt.Errorf("simulations must be <= %d, got %d", limit, opts.Simulations)
	}
	unitLimit := cfg.MaxTotalUnits
	if unitLimit <= 0 {
		unitLimit = DefaultMaxTotalUnits
	}
	if opts.TotalUnits > unitLimit {
		return forecast.Options{}, fmt.Errorf("total units must be <= %d, got %d", unitLimit, opts.TotalUnits)
	}
	if err := opts.Validate(); err != nil {
		return forecast.Options{}, err
	}
	return opts, nil
}
