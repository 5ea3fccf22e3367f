package anomaly

import (
	"github.com/soltixdb/trendscope/internal/analytics"
)

// IQRDetector detects anomalies using Interquartile Range (IQR) method
// IQR is robust to outliers compared to Z-Score
// Anomalies are points outside [Q1 - k*IQR, Q3 + k*IQR] where k is typically 1.5
type IQRDetector struct{}

func init() {
	RegisterDetector(MethodIQR, &IQRDetector{})
}

// Name returns the algorithm name
func (iqr *IQRDetector) Name() string {
	return MethodIQR
}

// Detect finds anomalies using IQR method.
// Missing positions compare false against both bounds and are never flagged.
func (iqr *IQRDetector) Detect(s analytics.Series, config DetectorConfig) []Anomaly {
	if s.Count() == 0 {
		return nil
	}

	multiplier := config.IQRMultiplier
	if multiplier <= 0 {
		multiplier = DefaultConfig().IQRMultiplier
	}

	q1, q3, iqrValue := analytics.Quartiles(s)
	lowerBound := q1 - multiplier*iqrValue
	upperBound := q3 + multiplier*iqrValue

	expectedRange := &Range{
		Min: lowerBound,
		Max: upperBound,
	}

	var results []Anomaly

	for i, v := range s {
		if !(v < lowerBound || v > upperBound) {
			continue
		}

		// Distance outside the fence in IQR units
		score := 1.0
		if iqrValue > 0 {
			if v < lowerBound {
				score = (lowerBound - v) / iqrValue
			} else {
				score = (v - upperBound) / iqrValue
			}
		}

		anomalyType := AnomalyTypeSpike
		if v < lowerBound {
			anomalyType = AnomalyTypeDrop
		}

		results = append(results, Anomaly{
			Index:    i,
			Value:    v,
			Score:    score,
			Type:     anomalyType,
			Expected: expectedRange,
		})
	}

	return results
}
