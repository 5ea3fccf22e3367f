package anomaly

import (
	"math"

	"github.com/soltixdb/trendscope/internal/analytics"
)

// MovingAverageDetector detects anomalies by comparing each point to the mean of the
// trailing window ending at it, flagging relative deviations above DeviationPct.
// Good for detecting sudden changes in trending data.
type MovingAverageDetector struct{}

func init() {
	RegisterDetector(MethodMovingAverage, &MovingAverageDetector{})
}

// Name returns the algorithm name
func (ma *MovingAverageDetector) Name() string {
	return MethodMovingAverage
}

// Detect finds anomalies using moving average method.
// Positions whose moving average is undefined or exactly zero are skipped.
func (ma *MovingAverageDetector) Detect(s analytics.Series, config DetectorConfig) []Anomaly {
	if len(s) == 0 {
		return nil
	}

	defaults := DefaultConfig()
	windowSize := config.WindowSize
	if windowSize <= 0 {
		windowSize = defaults.WindowSize
	}
	pct := config.DeviationPct
	if pct <= 0 {
		pct = defaults.DeviationPct
	}

	movingAvgs := TrailingMovingAverage(s, windowSize)

	var results []Anomaly

	for i, v := range s {
		localMean := movingAvgs[i]
		if math.IsNaN(localMean) || localMean == 0 {
			continue
		}

		deviation := math.Abs(v-localMean) / math.Abs(localMean)
		if !(deviation > pct) {
			continue
		}

		band := pct * math.Abs(localMean)
		results = append(results, Anomaly{
			Index:         i,
			Value:         v,
			MovingAverage: localMean,
			Score:         deviation,
			Type:          directionOf(v, localMean),
			Expected: &Range{
				Min: localMean - band,
				Max: localMean + band,
			},
		})
	}

	return results
}

// TrailingMovingAverage returns, for every position i, the mean of the present values
// among positions max(0, i-w+1)..i. The window truncates at the series start and the
// divisor is the number of present contributors; a window without any present value
// yields NaN. The output always has the length of the input.
func TrailingMovingAverage(values analytics.Series, windowSize int) []float64 {
	result := make([]float64, len(values))
	if windowSize < 1 {
		windowSize = 1
	}

	for i := range values {
		start := i - windowSize + 1
		if start < 0 {
			start = 0
		}

		var sum float64
		count := 0
		for j := start; j <= i; j++ {
			if !analytics.IsMissing(values[j]) {
				sum += values[j]
				count++
			}
		}

		if count == 0 {
			result[i] = math.NaN()
			continue
		}
		result[i] = sum / float64(count)
	}

	return result
}
