// Package metrics provides Prometheus metrics instrumentation for the forecaster.
//
// It exposes the duration of each pipeline stage (collect, simulate), the
// latest forecast figures and error counts. All metrics are exposed via the
// /metrics HTTP endpoint for Prometheus scraping.
//
// Metrics exposed:
//   - gradecast_source_collect_seconds: Histogram of course collection duration
//   - gradecast_simulate_seconds: Histogram of Monte Carlo run duration
//   - gradecast_average_gpa: Gauge of the latest baseline mean GPA
//   - gradecast_optimistic_average_gpa: Gauge of the latest trend-adjusted mean GPA
//   - gradecast_max_possible_gpa: Gauge of the latest best-case GPA
//   - gradecast_remaining_units: Gauge of units still to be graded
//   - gradecast_forecast_available: 1 when the latest run produced a forecast
//   - gradecast_discarded_samples_total: Counter of samples outside the histogram range
//   - gradecast_errors_total: Counter of errors by component and reason
//
// All metrics carry a student label.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/HatiCode/gradecast/pkg/forecast"
)

// Metrics holds all Prometheus metrics for the forecaster.
type Metrics struct {
	SourceCollectSeconds prometheus.Histogram
	SimulateSeconds      prometheus.Histogram
	AverageGPA           prometheus.Gauge
	OptimisticAverageGPA prometheus.Gauge
	MaxPossibleGPA       prometheus.Gauge
	RemainingUnits       prometheus.Gauge
	ForecastAvailable    prometheus.Gauge
	DiscardedSamples     prometheus.Counter
	ErrorsTotal          *prometheus.CounterVec
}

// New creates and registers all metrics with the default registry.
func New(student string) *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer, student)
}

// NewWithRegistry creates the metrics and registers them with reg.
func NewWithRegistry(reg prometheus.Registerer, student string) *Metrics {
	factory := promauto.With(reg)
	labels := prometheus.Labels{"student": student}

	return &Metrics{
		SourceCollectSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:        "gradecast_source_collect_seconds",
			Help:        "Time spent collecting courses from the source",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}),

		SimulateSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:        "gradecast_simulate_seconds",
			Help:        "Time spent running the Monte Carlo forecast",
			ConstLabels: labels,
			Buckets:     prometheus.DefBuckets,
		}),

		AverageGPA: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "gradecast_average_gpa",
			Help:        "Mean simulated final GPA of the latest forecast",
			ConstLabels: labels,
		}),

		OptimisticAverageGPA: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "gradecast_optimistic_average_gpa",
			Help:        "Mean trend-adjusted final GPA of the latest forecast",
			ConstLabels: labels,
		}),

		MaxPossibleGPA: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "gradecast_max_possible_gpa",
			Help:        "Final GPA if every remaining unit scores the top grade",
			ConstLabels: labels,
		}),

		RemainingUnits: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "gradecast_remaining_units",
			Help:        "Units of the degree not yet graded",
			ConstLabels: labels,
		}),

		ForecastAvailable: factory.NewGauge(prometheus.GaugeOpts{
			Name:        "gradecast_forecast_available",
			Help:        "1 if the latest run produced a forecast, 0 otherwise",
			ConstLabels: labels,
		}),

		DiscardedSamples: factory.NewCounter(prometheus.CounterOpts{
			Name:        "gradecast_discarded_samples_total",
			Help:        "Simulated samples that fell outside the histogram range",
			ConstLabels: labels,
		}),

		ErrorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name:        "gradecast_errors_total",
			Help:        "Total number of errors by component and reason",
			ConstLabels: labels,
		}, []string{"component", "reason"}),
	}
}

// RecordCollect records the time spent collecting courses.
func (m *Metrics) RecordCollect(seconds float64) {
	m.SourceCollectSeconds.Observe(seconds)
}

// RecordSimulate records the time spent simulating.
func (m *Metrics) RecordSimulate(seconds float64) {
	m.SimulateSeconds.Observe(seconds)
}

// SetResult publishes the figures of a forecast result.
func (m *Metrics) SetResult(res forecast.Result) {
	m.RemainingUnits.Set(float64(res.RemainingUnits))

	if !res.Available {
		m.ForecastAvailable.Set(0)
		return
	}

	m.ForecastAvailable.Set(1)
	m.AverageGPA.Set(res.AverageGPA)
	m.OptimisticAverageGPA.Set(res.OptimisticAverageGPA)
	m.MaxPossibleGPA.Set(res.MaxPossibleGPA)
	m.DiscardedSamples.Add(float64(res.Histogram.DiscardedBaseline + res.Histogram.DiscardedOptimistic))
}

// RecordError increments the error counter.
func (m *Metrics) RecordError(component, reason string) {
	m.ErrorsTotal.WithLabelValues(component, reason).Inc()
}
