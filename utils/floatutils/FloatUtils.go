// Package floatutils provides utilities for working with floats
package floatutils

import (
	"math"

	"gonum.org/v1/gonum/spatial/r1"
)

// Clip clips a floating point to within a minimum and maximum value.
// If the floating point exceeds max, then the function returns the max
// If min exceeds the floating point, then the function returns the min
func Clip(value, min, max float64) float64 {
	clipped := math.Min(value, max)
	return math.Max(clipped, min)
}

// ClipSlice returns a copy of values with each value clipped to the
// interval. NaN values are clipped to the lower bound.
func ClipSlice(values []float64, interval r1.Interval) []float64 {
	out := make([]float64, len(values))
	for i, v := range values {
		if math.IsNaN(v) {
			out[i] = interval.Min
			continue
		}
		out[i] = Clip(v, interval.Min, interval.Max)
	}
	return out
}
