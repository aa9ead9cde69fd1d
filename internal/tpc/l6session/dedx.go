package l6session

import (
	"sort"

	"gonum.org/v1/gonum/stat"
)

// TrimmedMean sorts samples, drops the lowest low and highest high
// fractions and averages the rest. It returns 0 for no samples.
func TrimmedMean(samples []float64, low, high float64) float64 {
	n := len(samples)
	if n == 0 {
		return 0
	}
	s := append([]float64(nil), samples...)
	sort.Float64s(s)
	lo := int(low * float64(n))
	hi := n - int(high*float64(n))
	if hi <= lo {
		lo, hi = 0, n
	}
	return stat.Mean(s[lo:hi], nil)
}
