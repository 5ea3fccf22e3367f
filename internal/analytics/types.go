// Package analytics provides the series type and descriptive statistics shared by the
// anomaly detectors, the trend fitter and the analysis engine.
package analytics

import (
	"math"
)

// Series is an ordered sequence of observations addressed by position.
// A missing observation is stored as NaN and is distinct from zero.
type Series []float64

// Missing returns the value used to mark a position without an observation
func Missing() float64 {
	return math.NaN()
}

// IsMissing reports whether v marks a missing observation
func IsMissing(v float64) bool {
	return math.IsNaN(v)
}

// FromNullable converts optional values into a Series, nil becoming missing.
func FromNullable(values []*float64) Series {
	s := make(Series, len(values))
	for i, v := range values {
		if v == nil {
			s[i] = Missing()
			continue
		}
		s[i] = *v
	}
	return s
}

// Len returns the number of positions, missing ones included
func (s Series) Len() int {
	return len(s)
}

// Count returns the number of present observations
func (s Series) Count() int {
	n := 0
	for _, v := range s {
		if !IsMissing(v) {
			n++
		}
	}
	return n
}

// Present returns the present observations in position order
func (s Series) Present() []float64 {
	values := make([]float64, 0, len(s))
	for _, v := range s {
		if !IsMissing(v) {
			values = append(values, v)
		}
	}
	return values
}

// Filled returns a copy of the series with missing positions replaced by fill
func (s Series) Filled(fill float64) []float64 {
	values := make([]float64, len(s))
	for i, v := range s {
		if IsMissing(v) {
			values[i] = fill
			continue
		}
		values[i] = v
	}
	return values
}

// Positions returns 0..n-1 as float64, the x-axis used for trend fitting
func (s Series) Positions() []float64 {
	xs := make([]float64, len(s))
	for i := range s {
		xs[i] = float64(i)
	}
	return xs
}

// Sum adds the series position-wise, treating missing values as zero.
// The result has the length of the longest input.
func Sum(series ...Series) Series {
	n := 0
	for _, s := range series {
		if len(s) > n {
			n = len(s)
		}
	}

	total := make(Series, n)
	for _, s := range series {
		for i, v := range s {
			if !IsMissing(v) {
				total[i] += v
			}
		}
	}
	return total
}
