package anomaly

import (
	"math"

	"github.com/soltixdb/trendscope/internal/analytics"
)

// ZScoreDetector detects anomalies using Z-Score (standard score)
// Z-Score measures how many standard deviations a point is from the mean
// Points with |Z| > threshold are considered anomalies
type ZScoreDetector struct{}

func init() {
	RegisterDetector(MethodZScore, &ZScoreDetector{})
}

// Name returns the algorithm name
func (z *ZScoreDetector) Name() string {
	return MethodZScore
}

// Detect finds anomalies using Z-Score method.
// With a zero standard deviation every score is non-finite and nothing is flagged.
func (z *ZScoreDetector) Detect(s analytics.Series, config DetectorConfig) []Anomaly {
	values := s.Present()
	if len(values) < 2 {
		return nil
	}

	threshold := config.ZThreshold
	if threshold <= 0 {
		threshold = DefaultConfig().ZThreshold
	}

	mean, stdDev := analytics.MeanStdDev(values)

	expectedRange := &Range{
		Min: mean - threshold*stdDev,
		Max: mean + threshold*stdDev,
	}

	var results []Anomaly

	for i, v := range s {
		zScore := (v - mean) / stdDev
		if math.IsNaN(zScore) || math.IsInf(zScore, 0) {
			continue
		}

		if math.Abs(zScore) > threshold {
			results = append(results, Anomaly{
				Index:    i,
				Value:    v,
				Z:        zScore,
				Score:    math.Abs(zScore),
				Type:     directionOf(zScore, 0),
				Expected: expectedRange,
			})
		}
	}

	return results
}
