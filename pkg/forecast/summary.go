package forecast

// Summary mirrors the backend's GPA summary: progress counted in passed
// units rather than attempted ones.
type Summary struct {
	CurrentGPA     float64 `json:"currentGpa"`
	MaxPossibleGPA float64 `json:"maxPossibleGpa"`
	AttemptedUnits int     `json:"attemptedUnits"`
	PassedUnits    int     `json:"passedUnits"`
	RemainingUnits int     `json:"remainingUnits"`
	TotalUnits     int     `json:"totalUnits"`
}

// Summarize computes the GPA summary over graded courses.
//
// RemainingUnits counts units still to be passed (grade >= passGrade).
// MaxPossibleGPA spreads the remaining units at the top grade over
// attempted + remaining units, so failed attempts keep counting.
func Summarize(courses []Course, scale GradeScale, totalUnits, passGrade int) Summary {
	s := Summary{TotalUnits: totalUnits}

	sum := 0
	for _, c := range courses {
		if c.Grade == nil {
			continue
		}
		s.AttemptedUnits++
		sum += *c.Grade
		if *c.Grade >= passGrade {
			s.PassedUnits++
		}
	}

	if s.AttemptedUnits > 0 {
		s.CurrentGPA = float64(sum) / float64(s.AttemptedUnits)
	}

	s.RemainingUnits = totalUnits - s.PassedUnits
	if s.RemainingUnits < 0 {
		s.RemainingUnits = 0
	}

	if denom := s.AttemptedUnits + s.RemainingUnits; denom > 0 {
		s.MaxPossibleGPA = float64(sum+s.RemainingUnits*scale.Max) / float64(denom)
	}
	return s
}

var gradeDescriptions = map[int]string{
	7: "High Distinction",
	6: "Distinction",
	5: "Credit",
	4: "Pass",
	3: "Fail",
	2: "Fail",
	1: "Fail",
}

// DescribeGrade returns the band name of a 7-point grade, or "N/A".
func DescribeGrade(grade int) string {
	if d, ok := gradeDescriptions[grade]; ok {
		return d
	}
	return "N/A"
}

// GradeCount is one row of the grade distribution table.
type GradeCount struct {
	Grade       int    `json:"grade"`
	Description string `json:"description"`
	Count       int    `json:"count"`
}

// GradeCounts tallies graded courses per grade, highest grade first.
func GradeCounts(courses []Course) []GradeCount {
	dist := BuildDistribution(courses)
	out := make([]GradeCount, 0, len(dist))
	for i := len(dist) - 1; i >= 0; i-- {
		out = append(out, GradeCount{
			Grade:       dist[i].Grade,
			Description: DescribeGrade(dist[i].Grade),
			Count:       dist[i].Count,
		})
	}
	return out
}

// SemesterPoint is one point of the GPA-over-time chart.
type SemesterPoint struct {
	Key      string   `json:"key"`
	Year     int      `json:"year"`
	Semester string   `json:"semester"`
	GPA      float64  `json:"gpa"`
	Trend    *float64 `json:"trend,omitempty"`
}

// SemesterTrend returns the per-semester GPA in chronological order. When
// there are at least two semesters each point also carries the fitted
// trendline value at its index.
func SemesterTrend(courses []Course) []SemesterPoint {
	semesters := AggregateSemesters(courses)
	points := make([]SemesterPoint, len(semesters))
	for i, s := range semesters {
		points[i] = SemesterPoint{
			Key:      s.Key(),
			Year:     s.Year,
			Semester: s.Semester,
			GPA:      s.Mean,
		}
	}

	if len(semesters) > 1 {
		line := FitTrend(semesterMeans(semesters))
		for i := range points {
			v := line.At(float64(i))
			points[i].Trend = &v
		}
	}
	return points
}
