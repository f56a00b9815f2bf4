package forecast

import "sort"

// GradeProbability is one entry of the empirical grade distribution.
type GradeProbability struct {
	Grade       int     `json:"grade"`
	Count       int     `json:"count"`
	Probability float64 `json:"probability"`
}

// Distribution is the empirical grade distribution of a set of graded
// courses, ordered by ascending grade. Only grades that were observed at
// least once appear.
type Distribution []GradeProbability

// BuildDistribution counts each grade among the graded courses and divides
// by the number of graded courses. Ungraded courses are ignored; if none are
// graded the distribution is empty.
func BuildDistribution(courses []Course) Distribution {
	counts := make(map[int]int)
	total := 0
	for _, c := range courses {
		if c.Grade == nil {
			continue
		}
		counts[*c.Grade]++
		total++
	}
	if total == 0 {
		return Distribution{}
	}

	dist := make(Distribution, 0, len(counts))
	for grade, count := range counts {
		dist = append(dist, GradeProbability{
			Grade:       grade,
			Count:       count,
			Probability: float64(count) / float64(total),
		})
	}
	sort.Slice(dist, func(i, j int) bool {
		return dist[i].Grade < dist[j].Grade
	})
	return dist
}

// Total returns the sum of probabilities (1.0 up to rounding for non-empty
// distributions).
func (d Distribution) Total() float64 {
	sum := 0.0
	for _, p := range d {
		sum += p.Probability
	}
	return sum
}

// CumulativeEntry is a distribution entry with its running probability.
type CumulativeEntry struct {
	Grade       int     `json:"grade"`
	Probability float64 `json:"probability"`
	Cumulative  float64 `json:"cumulative"`
}

// CumulativeDistribution is ordered by ascending grade; Cumulative is
// non-decreasing and the last value is 1.0 up to rounding.
type CumulativeDistribution []CumulativeEntry

// Cumulative accumulates the distribution in grade order.
func (d Distribution) Cumulative() CumulativeDistribution {
	cdf := make(CumulativeDistribution, len(d))
	running := 0.0
	for i, p := range d {
		running += p.Probability
		cdf[i] = CumulativeEntry{
			Grade:       p.Grade,
			Probability: p.Probability,
			Cumulative:  running,
		}
	}
	return cdf
}

// Sample maps a uniform draw u in [0, 1) to a grade: the first entry whose
// cumulative probability is >= u. When rounding leaves the final cumulative
// value just under u, the highest grade is returned. Sample returns 0 for an
// empty distribution.
func (c CumulativeDistribution) Sample(u float64) int {
	if len(c) == 0 {
		return 0
	}
	for _, e := range c {
		if u <= e.Cumulative {
			return e.Grade
		}
	}
	return c[len(c)-1].Grade
}

// Grades returns the observed grades in ascending order.
func (c CumulativeDistribution) Grades() []int {
	grades := make([]int, len(c))
	for i, e := range c {
		grades[i] = e.Grade
	}
	return grades
}
