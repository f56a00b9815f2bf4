// The forecast loop. Every interval the Forecaster re-reads one student's
// courses, reruns the Monte Carlo forecast and replaces the snapshot served
// at /forecast/current:
//
//	collect → simulate → summarize → store
package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/HatiCode/gradecast/cmd/forecaster/metrics"
	"github.com/HatiCode/gradecast/pkg/adapters"
	"github.com/HatiCode/gradecast/pkg/forecast"
	"github.com/HatiCode/gradecast/pkg/storage"
)

// Forecaster keeps one student's stored forecast current.
type Forecaster struct {
	student   string
	source    adapters.Source
	store     storage.Store
	opts      forecast.Options
	passGrade int
	logger    *slog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

// New returns a Forecaster for student. A nil logger uses slog.Default and
// nil metrics disables instrumentation.
func New(
	student string,
	source adapters.Source,
	store storage.Store,
	opts forecast.Options,
	logger *slog.Logger,
	metrics *metrics.Metrics,
) *Forecaster {
	if logger == nil {
		logger = slog.Default()
	}

	return &Forecaster{
		student:   student,
		source:    source,
		store:     store,
		opts:      opts,
		passGrade: forecast.DefaultPassGrade,
		logger:    logger.With("student", student),
		metrics:   metrics,
		now:       time.Now,
	}
}

// Run ticks once immediately and then every interval until ctx is done.
// Failed ticks are logged and the loop carries on with the last good
// snapshot still stored.
func (f *Forecaster) Run(ctx context.Context, interval time.Duration) error {
	f.logger.Info("starting forecast loop", "interval", interval, "source", f.source.Name())

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	if err := f.Tick(ctx); err != nil {
		f.logger.Error("first forecast failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			f.logger.Info("forecast loop exiting", "reason", ctx.Err())
			return ctx.Err()
		case <-ticker.C:
			if err := f.Tick(ctx); err != nil {
				f.logger.Error("forecast tick failed", "error", err)
			}
		}
	}
}

// Tick runs a single collect, simulate and store cycle.
func (f *Forecaster) Tick(ctx context.Context) error {
	start := time.Now()
	f.logger.Debug("forecast tick")

	list, collectDuration, err := f.collect(ctx)
	if err != nil {
		f.recordError("source", "collect_failed")
		return fmt.Errorf("collect: %w", err)
	}

	res, simulateDuration, err := f.simulate(list.Courses)
	if err != nil {
		f.recordError("forecast", "simulate_failed")
		return fmt.Errorf("simulate: %w", err)
	}

	snapshot := f.buildSnapshot(list, res)
	if err := f.store.Put(ctx, snapshot); err != nil {
		f.recordError("store", "put_failed")
		return fmt.Errorf("store: %w", err)
	}

	if f.metrics != nil {
		f.metrics.SetResult(res)
	}

	if !res.Available {
		f.logger.Info("forecast unavailable", "reason", res.Reason, "graded", res.CompletedUnits)
	}

	f.logger.Info("forecast tick complete",
		"courses", len(list.Courses),
		"remaining_units", res.RemainingUnits,
		"average_gpa", res.AverageGPA,
		"optimistic_average_gpa", res.OptimisticAverageGPA,
		"collect_ms", collectDuration.Milliseconds(),
		"simulate_ms", simulateDuration.Milliseconds(),
		"total_ms", time.Since(start).Milliseconds(),
	)

	return nil
}

// collect retrieves the course list from the source.
func (f *Forecaster) collect(ctx context.Context) (*adapters.CourseList, time.Duration, error) {
	start := time.Now()

	list, err := f.source.Collect(ctx)
	if err != nil {
		return nil, 0, err
	}

	duration := time.Since(start)
	if f.metrics != nil {
		f.metrics.RecordCollect(duration.Seconds())
	}

	f.logger.Debug("collected courses",
		"source", f.source.Name(),
		"courses", len(list.Courses),
		"graded", list.Graded(),
		"duration_ms", duration.Milliseconds(),
	)

	return list, duration, nil
}

// simulate runs the Monte Carlo forecast.
func (f *Forecaster) simulate(courses []forecast.Course) (forecast.Result, time.Duration, error) {
	start := time.Now()

	res, err := forecast.Simulate(courses, f.opts)
	if err != nil {
		return forecast.Result{}, 0, err
	}

	duration := time.Since(start)
	if f.metrics != nil {
		f.metrics.RecordSimulate(duration.Seconds())
	}

	return res, duration, nil
}

// buildSnapshot assembles the stored view of one tick. Raw samples are
// dropped; the histogram and percentiles already summarize them.
func (f *Forecaster) buildSnapshot(list *adapters.CourseList, res forecast.Result) storage.Snapshot {
	res.Baseline = nil
	res.Optimistic = nil

	return storage.Snapshot{
		Student:     f.student,
		Source:      f.source.Name(),
		GeneratedAt: f.now(),
		TotalUnits:  f.opts.TotalUnits,
		Simulations: f.opts.Simulations,
		Trend:       f.opts.Trend,
		Forecast:    res,
		Summary:     forecast.Summarize(list.Courses, f.opts.Scale, f.opts.TotalUnits, f.passGrade),
		Semesters:   forecast.SemesterTrend(list.Courses),
	}
}

func (f *Forecaster) recordError(component, reason string) {
	if f.metrics != nil {
		f.metrics.RecordError(component, reason)
	}
}
