package forecast

import (
	"fmt"
	"math"
)

const (
	// NumBins is the fixed number of histogram buckets.
	NumBins = 13

	// binSpan is the number of bins the observed min..max range is spread
	// over; the two extra bins leave headroom above the largest sample.
	binSpan = 11

	// MinBinWidth keeps a near-constant sample set from collapsing into
	// zero-width bins.
	MinBinWidth = 0.02
)

// Histogram is the binned view of the simulated final GPAs. Baseline and
// Optimistic share the same bins so they can be plotted together.
type Histogram struct {
	Min        float64  `json:"min"`
	Max        float64  `json:"max"`
	BinWidth   float64  `json:"binWidth"`
	Labels     []string `json:"labels"`
	Baseline   []int    `json:"baseline"`
	Optimistic []int    `json:"optimistic,omitempty"`

	// DiscardedBaseline and DiscardedOptimistic count samples whose bin
	// index fell outside [0, NumBins). Samples are dropped, never clamped.
	DiscardedBaseline   int `json:"discardedBaseline"`
	DiscardedOptimistic int `json:"discardedOptimistic"`
}

// BuildHistogram bins the baseline and optimistic samples.
//
// The range is the global min and max over both sets and
// binWidth = max((max-min)/11, 0.02); NumBins bins cover
// [min, min+NumBins*binWidth). A sample goes to floor((x-min)/binWidth).
// optimistic may be nil, in which case only the baseline is binned.
func BuildHistogram(baseline, optimistic []float64) Histogram {
	if len(baseline) == 0 && len(optimistic) == 0 {
		return Histogram{}
	}

	lo := math.Inf(1)
	hi := math.Inf(-1)
	for _, set := range [][]float64{baseline, optimistic} {
		for _, x := range set {
			lo = math.Min(lo, x)
			hi = math.Max(hi, x)
		}
	}

	width := math.Max((hi-lo)/binSpan, MinBinWidth)

	h := Histogram{
		Min:      lo,
		Max:      hi,
		BinWidth: width,
		Labels:   make([]string, NumBins),
		Baseline: make([]int, NumBins),
	}
	for i := range h.Labels {
		start := lo + float64(i)*width
		end := start + width
		h.Labels[i] = fmt.Sprintf("%.2f-%.2f", start, end-0.01)
	}

	h.DiscardedBaseline = fill(h.Baseline, baseline, lo, width)
	if optimistic != nil {
		h.Optimistic = make([]int, NumBins)
		h.DiscardedOptimistic = fill(h.Optimistic, optimistic, lo, width)
	}
	return h
}

// fill counts samples into bins and returns how many were discarded.
func fill(bins []int, samples []float64, lo, width float64) int {
	discarded := 0
	for _, x := range samples {
		idx := int(math.Floor((x - lo) / width))
		if idx < 0 || idx >= len(bins) {
			discarded++
			continue
		}
		bins[idx]++
	}
	return discarded
}

// Total returns the number of binned baseline and optimistic samples.
func (h Histogram) Total() (baseline, optimistic int) {
	for _, n := range h.Baseline {
		baseline += n
	}
	for _, n := range h.Optimistic {
		optimistic += n
	}
	return baseline, optimistic
}
