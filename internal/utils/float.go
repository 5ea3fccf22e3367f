package utils

import "math"

// NullableFloat returns nil for NaN and ±Inf, which JSON cannot carry, and a pointer
// to v otherwise.
func NullableFloat(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// NullableFloats converts every element with NullableFloat
func NullableFloats(values []float64) []*float64 {
	if values == nil {
		return nil
	}
	result := make([]*float64, len(values))
	for i, v := range values {
		result[i] = NullableFloat(v)
	}
	return result
}

// FiniteOr returns v when it is finite and fallback otherwise.
func FiniteOr(v, fallback float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return fallback
	}
	return v
}
