package analytics

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// StatSummary holds descriptive statistics of one series.
// Location fields are NaN when the series has no present observations; StdDev is 0
// whenever fewer than two observations are present.
type StatSummary struct {
	Mean   float64 `json:"mean"`
	StdDev float64 `json:"std"`
	Median float64 `json:"median"`
	Q1     float64 `json:"q1"`
	Q3     float64 `json:"q3"`
	IQR    float64 `json:"iqr"`
	Count  int     `json:"count"`
}

// Summarize computes the statistics of s, ignoring missing positions
func Summarize(s Series) StatSummary {
	values := s.Present()
	summary := StatSummary{Count: len(values)}

	if len(values) == 0 {
		nan := math.NaN()
		summary.Mean, summary.Median = nan, nan
		summary.Q1, summary.Q3, summary.IQR = nan, nan, nan
		return summary
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	summary.Mean, summary.StdDev = MeanStdDev(values)
	summary.Median = Percentile(sorted, 50)
	summary.Q1 = Percentile(sorted, 25)
	summary.Q3 = Percentile(sorted, 75)
	summary.IQR = summary.Q3 - summary.Q1

	return summary
}

// MeanStdDev returns the mean and the sample standard deviation (n-1 denominator) of
// values. The deviation is 0, not NaN, for fewer than two values so callers may divide
// by it after a zero check.
func MeanStdDev(values []float64) (mean, stdDev float64) {
	switch len(values) {
	case 0:
		return math.NaN(), 0
	case 1:
		return values[0], 0
	}
	return stat.MeanStdDev(values, nil)
}

// Percentile returns the p-th percentile (0-100) of sorted data using linear
// interpolation between the closest order statistics.
// sortedData must be sorted ascending and contain no missing values.
func Percentile(sortedData []float64, p float64) float64 {
	if len(sortedData) == 0 {
		return math.NaN()
	}
	if len(sortedData) == 1 {
		return sortedData[0]
	}

	index := (p / 100) * float64(len(sortedData)-1)
	lower := int(index)
	upper := lower + 1

	if upper >= len(sortedData) {
		return sortedData[len(sortedData)-1]
	}

	weight := index - float64(lower)
	return sortedData[lower]*(1-weight) + sortedData[upper]*weight
}

// Quartiles returns Q1, Q3 and their difference over the present values of s
func Quartiles(s Series) (q1, q3, iqr float64) {
	sorted := s.Present()
	if len(sorted) == 0 {
		nan := math.NaN()
		return nan, nan, nan
	}
	sort.Float64s(sorted)

	q1 = Percentile(sorted, 25)
	q3 = Percentile(sorted, 75)
	return q1, q3, q3 - q1
}
