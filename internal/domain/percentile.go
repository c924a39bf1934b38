package domain

import (
	"math"
	"sort"
)

// percentile computes the p-th percentile (0..100) of values by linear
// interpolation between order statistics, h = (n-1)*p/100 (the numpy
// default): p95 of [1,2,3,4] is 3.85. Neither gonum's Quantile modes nor
// montanaflynn's Percentile implement this definition.
// values must be non-empty; the input slice is not modified.
func percentile(values []float64, p float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	h := (float64(len(sorted)) - 1) * p / 100
	lo := int(math.Floor(h))
	hi := int(math.Ceil(h))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[hi]-sorted[lo])
}
