package forecast

import "math"

// Reason explains why a forecast is unavailable.
type Reason string

const (
	// ReasonNoGradedCourses means there is no grade history to sample from.
	ReasonNoGradedCourses Reason = "no_graded_courses"

	// ReasonDegreeComplete means every unit of the degree is already graded.
	ReasonDegreeComplete Reason = "degree_complete"
)

// Result is the outcome of one Simulate call.
//
// When Available is false only the unit counts and Reason are meaningful;
// callers should treat it as a normal "nothing to show" state.
type Result struct {
	Available bool   `json:"available"`
	Reason    Reason `json:"reason,omitempty"`

	TotalUnits     int  `json:"totalUnits"`
	CompletedUnits int  `json:"completedUnits"`
	RemainingUnits int  `json:"remainingUnits"`
	Simulations    int  `json:"simulations"`
	Trend          bool `json:"trend"`

	// CompletedGradeSum is the sum of grades over graded courses.
	CompletedGradeSum int `json:"completedGradeSum"`

	// AverageGPA is the mean of the baseline samples.
	AverageGPA float64 `json:"averageGpa"`

	// OptimisticAverageGPA is the mean of the optimistic samples (Trend only).
	OptimisticAverageGPA float64 `json:"optimisticAverageGpa,omitempty"`

	// MaxPossibleGPA assumes every remaining unit scores the top grade.
	MaxPossibleGPA float64 `json:"maxPossibleGpa"`

	Distribution Distribution      `json:"distribution,omitempty"`
	TrendLine    *TrendLine        `json:"trendLine,omitempty"`
	Percentiles  []PercentileValue `json:"percentiles,omitempty"`
	Histogram    Histogram         `json:"histogram"`

	// Baseline and Optimistic hold the raw final-GPA samples, one per trial.
	Baseline   []float64 `json:"-"`
	Optimistic []float64 `json:"-"`
}

// Simulate runs the Monte Carlo forecast over courses.
//
// Ungraded courses are ignored. The forecast is unavailable (Available=false,
// nil error) when no course is graded or when the graded courses already
// cover opts.TotalUnits. An error is returned only for invalid options or a
// grade outside opts.Scale.
//
// Each trial draws opts.Simulations × remaining-units values from opts.Rand in
// a fixed order (baseline draw, then optimistic draw, per unit), so a seeded
// source reproduces the result exactly.
func Simulate(courses []Course, opts Options) (Result, error) {
	if err := opts.Validate(); err != nil {
		return Result{}, err
	}

	graded, err := gradedCourses(courses, opts.Scale)
	if err != nil {
		return Result{}, err
	}

	res := Result{
		TotalUnits:     opts.TotalUnits,
		CompletedUnits: len(graded),
		Simulations:    opts.Simulations,
		Trend:          opts.Trend,
	}

	if len(graded) == 0 {
		res.RemainingUnits = opts.TotalUnits
		res.Reason = ReasonNoGradedCourses
		return res, nil
	}

	remaining := opts.TotalUnits - len(graded)
	if remaining <= 0 {
		res.Reason = ReasonDegreeComplete
		return res, nil
	}
	res.RemainingUnits = remaining

	completedSum := gradeSum(graded)
	res.CompletedGradeSum = completedSum

	dist := BuildDistribution(graded)
	cdf := dist.Cumulative()
	res.Distribution = dist

	var improvements []float64
	if opts.Trend {
		semesters := AggregateSemesters(graded)
		line := FitTrend(semesterMeans(semesters))
		improvements = Improvements(semesters, line, remaining)
		res.TrendLine = &line
	}

	rng := opts.Rand
	if rng == nil {
		rng = globalSource{}
	}

	total := float64(opts.TotalUnits)
	maxGrade := float64(opts.Scale.Max)

	baseline := make([]float64, opts.Simulations)
	var optimistic []float64
	if opts.Trend {
		optimistic = make([]float64, opts.Simulations)
	}

	for i := range baseline {
		futureSum := 0
		optimisticSum := 0.0

		for j := 0; j < remaining; j++ {
			futureSum += cdf.Sample(rng.Float64())

			if opts.Trend {
				grade := float64(cdf.Sample(rng.Float64()))
				if improvement := improvements[j]; improvement > 0 {
					grade = math.Min(grade+improvement, maxGrade)
				}
				optimisticSum += grade
			}
		}

		baseline[i] = float64(completedSum+futureSum) / total
		if opts.Trend {
			optimistic[i] = (float64(completedSum) + optimisticSum) / total
		}
	}

	res.Available = true
	res.Baseline = baseline
	res.Optimistic = optimistic
	res.AverageGPA = mean(baseline)
	if opts.Trend {
		res.OptimisticAverageGPA = mean(optimistic)
	}
	res.MaxPossibleGPA = MaxPossibleGPA(completedSum, remaining, opts.Scale.Max, opts.TotalUnits)
	res.Histogram = BuildHistogram(baseline, optimistic)
	res.Percentiles = percentiles(opts.Percentiles, baseline, optimistic)

	return res, nil
}

// MaxPossibleGPA is the final GPA if every remaining unit scores maxGrade.
func MaxPossibleGPA(completedSum, remaining, maxGrade, totalUnits int) float64 {
	if totalUnits <= 0 {
		return 0
	}
	return float64(completedSum+remaining*maxGrade) / float64(totalUnits)
}
