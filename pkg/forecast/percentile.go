package forecast

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// PercentileValue is one reported percentile of the simulated final GPAs.
type PercentileValue struct {
	Level      float64  `json:"level"`
	Label      string   `json:"label"`
	Baseline   float64  `json:"baseline"`
	Optimistic *float64 `json:"optimistic,omitempty"`
}

// ParsePercentile parses a percentile level from either p-notation (p10, p90)
// or decimal notation (0.10, 0.90).
//
// Examples:
//   - "p10" → 0.10
//   - "p50" → 0.50
//   - "0.9" → 0.90
//
// Levels must lie strictly between 0 and 1.
func ParsePercentile(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty percentile")
	}

	var q float64
	if strings.HasPrefix(strings.ToLower(s), "p") {
		percentile, err := strconv.ParseFloat(s[1:], 64)
		if err != nil {
			return 0, fmt.Errorf("invalid p-notation %q: %w", s, err)
		}
		q = percentile / 100.0
	} else {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid percentile %q: %w", s, err)
		}
		q = v
	}

	if !(q > 0 && q < 1) {
		return 0, fmt.Errorf("percentile %q out of range (0, 1)", s)
	}
	return q, nil
}

// ParsePercentiles parses a comma separated list such as "p10,p50,p90".
func ParsePercentiles(s string) ([]float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	levels := make([]float64, 0, len(parts))
	for _, part := range parts {
		q, err := ParsePercentile(part)
		if err != nil {
			return nil, err
		}
		levels = append(levels, q)
	}
	return levels, nil
}

// FormatPercentile formats a level as p-notation for display.
//
// Examples:
//   - 0.10 → "p10"
//   - 0.975 → "p97.5"
func FormatPercentile(q float64) string {
	percentile := q * 100
	rounded := math.Round(percentile)
	if math.Abs(percentile-rounded) < 1e-9 {
		return fmt.Sprintf("p%d", int(rounded))
	}
	return fmt.Sprintf("p%.1f", percentile)
}

// Percentile returns the q-th percentile of samples using linear
// interpolation between closest ranks. samples is not modified.
func Percentile(samples []float64, q float64) float64 {
	if len(samples) == 0 {
		return 0
	}
	sorted := make([]float64, len(samples))
	copy(sorted, samples)
	sort.Float64s(sorted)
	return percentileSorted(sorted, q)
}

func percentileSorted(sorted []float64, q float64) float64 {
	if len(sorted) == 1 {
		return sorted[0]
	}
	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo < 0 {
		lo = 0
	}
	if hi >= len(sorted) {
		hi = len(sorted) - 1
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// percentiles computes every requested level over both sample sets.
func percentiles(levels []float64, baseline, optimistic []float64) []PercentileValue {
	if len(levels) == 0 || len(baseline) == 0 {
		return nil
	}

	sortedBase := make([]float64, len(baseline))
	copy(sortedBase, baseline)
	sort.Float64s(sortedBase)

	var sortedOpt []float64
	if len(optimistic) > 0 {
		sortedOpt = make([]float64, len(optimistic))
		copy(sortedOpt, optimistic)
		sort.Float64s(sortedOpt)
	}

	out := make([]PercentileValue, 0, len(levels))
	for _, q := range levels {
		pv := PercentileValue{
			Level:    q,
			Label:    FormatPercentile(q),
			Baseline: percentileSorted(sortedBase, q),
		}
		if sortedOpt != nil {
			v := percentileSorted(sortedOpt, q)
			pv.Optimistic = &v
		}
		out = append(out, pv)
	}
	return out
}
