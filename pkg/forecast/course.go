// Package forecast implements the Monte Carlo GPA forecast used by gradecast.
//
// Given the courses a student has already been graded on and the number of
// graded units the degree requires, Simulate estimates the distribution of
// final GPAs by repeatedly sampling the remaining units from the student's own
// grade history:
//
//  1. Build the empirical grade distribution (grade -> observed frequency)
//  2. Turn it into a cumulative distribution ordered by ascending grade
//  3. For every trial, draw one grade per remaining unit and compute the
//     resulting final GPA
//  4. Optionally run a second, trend-adjusted ("optimistic") draw per unit
//     that adds a log-dampened improvement extrapolated from the per-semester
//     GPA trend, capped at the top of the grade scale
//  5. Bin both sample sets into a fixed 13-bucket histogram
//
// The package is pure: nothing is cached between calls and inputs are never
// modified. Randomness comes from an injectable Source so that tests (and the
// CLI's --seed flag) can reproduce a forecast exactly.
package forecast

import (
	"errors"
	"fmt"
)

const (
	// DefaultTotalUnits is the number of graded units a degree requires.
	DefaultTotalUnits = 32

	// DefaultSimulations is the trial count used by the analytics view.
	DefaultSimulations = 32000

	// DefaultMinGrade and DefaultMaxGrade bound the 7-point grade scale.
	DefaultMinGrade = 1
	DefaultMaxGrade = 7

	// DefaultPassGrade is the lowest grade that counts as a passed unit.
	DefaultPassGrade = 4

	// MaxTotalUnits bounds Options.TotalUnits; Simulate allocates and draws
	// per remaining unit.
	MaxTotalUnits = 10_000
)

// ErrGradeOutOfScale is returned when a graded course lies outside the
// configured grade scale.
var ErrGradeOutOfScale = errors.New("grade outside of grade scale")

// Course is one course record as returned by the backend.
// Grade is nil for courses that have not been graded yet.
type Course struct {
	ID       int    `json:"id" yaml:"id"`
	Code     string `json:"code,omitempty" yaml:"code,omitempty"`
	Name     string `json:"name,omitempty" yaml:"name,omitempty"`
	Grade    *int   `json:"grade" yaml:"grade"`
	Year     int    `json:"year,omitempty" yaml:"year,omitempty"`
	Semester string `json:"semester,omitempty" yaml:"semester,omitempty"`
}

// Graded reports whether the course carries a grade.
func (c Course) Graded() bool {
	return c.Grade != nil
}

// GradeOf returns a pointer to g, for building Course literals.
func GradeOf(g int) *int {
	return &g
}

// GradeScale is the closed integer range grades are drawn from.
type GradeScale struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// DefaultScale returns the 1-7 scale.
func DefaultScale() GradeScale {
	return GradeScale{Min: DefaultMinGrade, Max: DefaultMaxGrade}
}

// Contains reports whether grade lies within the scale.
func (s GradeScale) Contains(grade int) bool {
	return grade >= s.Min && grade <= s.Max
}

// Validate checks the scale bounds.
func (s GradeScale) Validate() error {
	if s.Min < 0 {
		return fmt.Errorf("grade scale min must be >= 0, got %d", s.Min)
	}
	if s.Max <= s.Min {
		return fmt.Errorf("grade scale max (%d) must be > min (%d)", s.Max, s.Min)
	}
	return nil
}

// Options controls a single Simulate call.
type Options struct {
	// TotalUnits is the number of graded units required for the degree.
	TotalUnits int

	// Simulations is the number of independent trials.
	Simulations int

	// Trend enables the optimistic, trend-adjusted second forecast.
	Trend bool

	// Scale bounds the grades. Simulate rejects graded courses outside it.
	Scale GradeScale

	// Percentiles lists the levels (0 < q < 1) reported in Result.Percentiles.
	Percentiles []float64

	// Rand supplies uniform draws in [0, 1). Nil uses a non-deterministic source.
	Rand Source
}

// DefaultOptions returns the options matching the analytics view: 32 units,
// 32000 trials, trend adjustment on, 1-7 scale, p10/p50/p90.
func DefaultOptions() Options {
	return Options{
		TotalUnits:  DefaultTotalUnits,
		Simulations: DefaultSimulations,
		Trend:       true,
		Scale:       DefaultScale(),
		Percentiles: []float64{0.10, 0.50, 0.90},
	}
}

// Validate checks the options. Degenerate course lists are not validation
// errors; Simulate reports them as an unavailable forecast instead.
func (o Options) Validate() error {
	if o.TotalUnits <= 0 || o.TotalUnits > MaxTotalUnits {
		return fmt.Errorf("total units must be in 1..%d, got %d", MaxTotalUnits, o.TotalUnits)
	}
	if o.Simulations <= 0 {
		return fmt.Errorf("simulations must be > 0, got %d", o.Simulations)
	}
	if err := o.Scale.Validate(); err != nil {
		return err
	}
	for _, q := range o.Percentiles {
		if !(q > 0 && q < 1) {
			return fmt.Errorf("percentile %v out of range (0, 1)", q)
		}
	}
	return nil
}

// gradedCourses drops ungraded courses and rejects grades outside scale.
func gradedCourses(courses []Course, scale GradeScale) ([]Course, error) {
	graded := make([]Course, 0, len(courses))
	for _, c := range courses {
		if !c.Graded() {
			continue
		}
		if !scale.Contains(*c.Grade) {
			return nil, fmt.Errorf("course %d (%s): grade %d: %w", c.ID, c.Code, *c.Grade, ErrGradeOutOfScale)
		}
		graded = append(graded, c)
	}
	return graded, nil
}

func gradeSum(courses []Course) int {
	sum := 0
	for _, c := range courses {
		if c.Grade != nil {
			sum += *c.Grade
		}
	}
	return sum
}
