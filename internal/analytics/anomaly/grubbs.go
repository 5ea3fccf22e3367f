package anomaly

import (
	"math"

	"github.com/soltixdb/trendscope/internal/analytics"
	"gonum.org/v1/gonum/stat/distuv"
)

// GrubbsDetector finds multiple outliers by repeating the two-sided Grubbs test,
// removing the most extreme point while the test rejects it.
// Outliers are returned in removal order, most extreme first.
type GrubbsDetector struct{}

func init() {
	RegisterDetector(MethodGrubbs, &GrubbsDetector{})
}

// Name returns the algorithm name
func (g *GrubbsDetector) Name() string {
	return MethodGrubbs
}

type indexedValue struct {
	index int
	value float64
}

// Detect runs the iterative Grubbs test over the present values of s.
// The loop is bounded by the number of present values and stops as soon as the
// remaining set has two points, a zero deviation, or no significant extreme.
func (g *GrubbsDetector) Detect(s analytics.Series, config DetectorConfig) []Anomaly {
	alpha := config.Alpha
	if alpha <= 0 || alpha >= 1 {
		alpha = DefaultConfig().Alpha
	}

	working := make([]indexedValue, 0, len(s))
	for i, v := range s {
		if !analytics.IsMissing(v) {
			working = append(working, indexedValue{index: i, value: v})
		}
	}

	var results []Anomaly
	values := make([]float64, 0, len(working))

	for len(working) > 2 {
		values = values[:0]
		for _, p := range working {
			values = append(values, p.value)
		}

		mean, stdDev := analytics.MeanStdDev(values)
		if stdDev == 0 {
			break
		}

		maxIdx := 0
		maxDev := -1.0
		for i, v := range values {
			if dev := math.Abs(v - mean); dev > maxDev {
				maxDev = dev
				maxIdx = i
			}
		}

		n := len(values)
		stat := maxDev / stdDev
		critical := GrubbsCritical(n, alpha)
		if !(stat > critical) {
			break
		}

		p := working[maxIdx]
		results = append(results, Anomaly{
			Index: p.index,
			Value: p.value,
			G:     stat,
			Score: stat,
			Type:  directionOf(p.value, mean),
			Expected: &Range{
				Min: mean - critical*stdDev,
				Max: mean + critical*stdDev,
			},
		})

		working = append(working[:maxIdx], working[maxIdx+1:]...)
	}

	return results
}

// GrubbsCritical returns the two-sided Grubbs critical value for a sample of n points
// at significance alpha:
//
//	t = T⁻¹(1 - alpha/(2n); n-2)
//	G = ((n-1)/√n) · √(t² / (n-2+t²))
//
// It returns NaN for n < 3, where the test is undefined.
func GrubbsCritical(n int, alpha float64) float64 {
	if n < 3 {
		return math.NaN()
	}

	nf := float64(n)
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: nf - 2}
	t := dist.Quantile(1 - alpha/(2*nf))
	t2 := t * t

	return ((nf - 1) / math.Sqrt(nf)) * math.Sqrt(t2/(nf-2+t2))
}
