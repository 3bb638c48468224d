// Package floatutils provides utilities for working with floats
package floatutils

import (
	"gonum.org/v1/gonum/spatial/r1"
)

// WithinInterval returns whether value falls within interval,
// inclusive of the interval's endpoints
func WithinInterval(value float64, interval r1.Interval) bool {
	return value >= interval.Min && value <= interval.Max
}

// Min calculates and returns the minimum float64 in a list
func Min(floats ...float64) float64 {
	min := floats[0]
	for _, val := range floats {
		if val < min {
			min = val
		}
	}
	return min
}

// Max calculates and returns the maximum float64 in a list
func Max(floats ...float64) float64 {
	max := floats[0]
	for _, val := range floats {
		if val > max {
			max = val
		}
	}
	return max
}
