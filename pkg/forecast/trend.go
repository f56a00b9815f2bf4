package forecast

import (
	"fmt"
	"math"
	"sort"
)

// trendDamping scales the log-tempered improvement added to optimistic draws.
const trendDamping = 0.5

// SemesterAggregate holds the mean grade of the courses taken in one
// (year, semester) teaching period.
type SemesterAggregate struct {
	Year     int     `json:"year"`
	Semester string  `json:"semester"`
	Courses  int     `json:"courses"`
	Mean     float64 `json:"mean"`
}

// Key returns the sortable "<year>-<semester>" label.
func (s SemesterAggregate) Key() string {
	return fmt.Sprintf("%d-%s", s.Year, s.Semester)
}

// AggregateSemesters groups graded courses by (year, semester) and averages
// their grades. Courses missing a year or semester label are left out of the
// trend; they still count toward the grade distribution. The result is
// ordered chronologically: by year, then by semester label.
func AggregateSemesters(courses []Course) []SemesterAggregate {
	type key struct {
		year     int
		semester string
	}
	sums := make(map[key]int)
	counts := make(map[key]int)
	for _, c := range courses {
		// Unlabelled courses do not form a semester of their own, so they
		// never shift the index the trend is extrapolated from.
		if c.Grade == nil || c.Year == 0 || c.Semester == "" {
			continue
		}
		k := key{year: c.Year, semester: c.Semester}
		sums[k] += *c.Grade
		counts[k]++
	}

	aggs := make([]SemesterAggregate, 0, len(counts))
	for k, n := range counts {
		aggs = append(aggs, SemesterAggregate{
			Year:     k.year,
			Semester: k.semester,
			Courses:  n,
			Mean:     float64(sums[k]) / float64(n),
		})
	}
	sort.Slice(aggs, func(i, j int) bool {
		if aggs[i].Year != aggs[j].Year {
			return aggs[i].Year < aggs[j].Year
		}
		return aggs[i].Semester < aggs[j].Semester
	})
	return aggs
}

// TrendLine is y = Slope*x + Intercept.
type TrendLine struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
}

// At evaluates the line at x.
func (l TrendLine) At(x float64) float64 {
	return l.Slope*x + l.Intercept
}

// FitTrend fits an ordinary least squares line through (i, values[i]).
//
// A single point yields a flat line through it and an empty series yields
// the zero line.
func FitTrend(values []float64) TrendLine {
	switch len(values) {
	case 0:
		return TrendLine{}
	case 1:
		return TrendLine{Intercept: values[0]}
	}

	n := float64(len(values))
	sumX := 0.0
	sumY := 0.0
	sumXY := 0.0
	sumX2 := 0.0

	for i, y := range values {
		x := float64(i)
		sumX += x
		sumY += y
		sumXY += x * y
		sumX2 += x * x
	}

	denominator := n*sumX2 - sumX*sumX
	if denominator == 0 {
		return TrendLine{Intercept: sumY / n}
	}

	slope := (n*sumXY - sumX*sumY) / denominator
	return TrendLine{
		Slope:     slope,
		Intercept: (sumY - slope*sumX) / n,
	}
}

// semesterMeans extracts the per-semester means in order.
func semesterMeans(semesters []SemesterAggregate) []float64 {
	means := make([]float64, len(semesters))
	for i, s := range semesters {
		means[i] = s.Mean
	}
	return means
}

// Improvements returns, for each of the next units future units, the
// improvement the optimistic forecast adds to a drawn grade:
//
//	predicted   = line(len(semesters) + j)
//	improvement = log1p(predicted - mean(semester means)) * 0.5
//
// Arguments at or below -1 make the logarithm non-finite; those units get
// zero improvement. Negative finite values are returned as is and ignored by
// Simulate, which only applies positive improvements.
func Improvements(semesters []SemesterAggregate, line TrendLine, units int) []float64 {
	out := make([]float64, units)
	if len(semesters) == 0 || units <= 0 {
		return out
	}

	historical := mean(semesterMeans(semesters))
	for j := range out {
		predicted := line.At(float64(len(semesters) + j))
		improvement := math.Log1p(predicted-historical) * trendDamping
		if math.IsNaN(improvement) || math.IsInf(improvement, 0) {
			improvement = 0
		}
		out[j] = improvement
	}
	return out
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
