package calib

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// softWeights returns a weight in [0, 1] for every singular value: values
// are soft-thresholded at the median singular value, which serves as the
// noise level, and the weight is the ratio of the shrunk value to the
// unshrunk one.
func softWeights(vals []float64) []float64 {
	sorted := append([]float64(nil), vals...)
	sort.Float64s(sorted)
	lambda := stat.Quantile(0.5, stat.Empirical, sorted, nil)

	w := make([]float64, len(vals))
	for i, s := range vals {
		if s > lambda {
			w[i] = (s - lambda) / s
		}
	}
	return w
}
