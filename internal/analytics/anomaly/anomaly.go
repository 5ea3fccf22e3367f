package anomaly

import (
	"fmt"
	"sort"

	"github.com/soltixdb/trendscope/internal/analytics"
)

// AnomalyType represents the direction of a detected anomaly
type AnomalyType string

const (
	AnomalyTypeSpike AnomalyType = "spike" // Above the expected range
	AnomalyTypeDrop  AnomalyType = "drop"  // Below the expected range
)

// Detector names
const (
	MethodIQR           = "iqr"
	MethodZScore        = "zscore"
	MethodMovingAverage = "moving_avg"
	MethodGrubbs        = "grubbs"
)

// Anomaly is a point flagged by a detector.
// Index always refers to the position in the source series, missing positions included.
type Anomaly struct {
	Index int     `json:"i"`
	Value float64 `json:"v"`

	// Method-specific fields, set only by the detector that produces them
	Z             float64 `json:"z,omitempty"`
	MovingAverage float64 `json:"ma,omitempty"`
	G             float64 `json:"G,omitempty"`

	Score    float64     `json:"score"` // How anomalous (higher = more abnormal)
	Type     AnomalyType `json:"type"`
	Expected *Range      `json:"expected,omitempty"`
}

// Range represents expected value range
type Range struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// DetectorConfig holds the tuning of every detector. Non-positive values fall back to
// DefaultConfig; range checking belongs to the caller building the config.
type DetectorConfig struct {
	// IQRMultiplier is the fence multiplier k in [Q1 - k*IQR, Q3 + k*IQR]
	IQRMultiplier float64

	// ZThreshold is the |z| above which a point is flagged
	ZThreshold float64

	// WindowSize is the trailing moving-average width
	WindowSize int

	// DeviationPct is the relative deviation from the moving average that is flagged
	DeviationPct float64

	// Alpha is the significance level of the Grubbs test
	Alpha float64
}

// DefaultConfig returns default detector configuration
func DefaultConfig() DetectorConfig {
	return DetectorConfig{
		IQRMultiplier: 1.5,
		ZThreshold:    3.0,
		WindowSize:    7,
		DeviationPct:  0.3,
		Alpha:         0.05,
	}
}

// AnomalyDetector interface for all anomaly detection algorithms
type AnomalyDetector interface {
	// Name returns the algorithm name
	Name() string

	// Detect finds anomalies in the series
	Detect(s analytics.Series, config DetectorConfig) []Anomaly
}

// Registry holds available anomaly detectors
var detectorRegistry = make(map[string]AnomalyDetector)

// RegisterDetector adds a detector to the registry
func RegisterDetector(name string, detector AnomalyDetector) {
	detectorRegistry[name] = detector
}

// GetDetector returns a detector by name
func GetDetector(name string) (AnomalyDetector, error) {
	if detector, ok := detectorRegistry[name]; ok {
		return detector, nil
	}
	return nil, fmt.Errorf("unknown anomaly detector: %s", name)
}

// ListDetectors returns the sorted list of available detector names
func ListDetectors() []string {
	names := make([]string, 0, len(detectorRegistry))
	for name := range detectorRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// DetectAnomalies is a helper function to detect anomalies using specified algorithm
func DetectAnomalies(algorithm string, s analytics.Series, config DetectorConfig) ([]Anomaly, error) {
	detector, err := GetDetector(algorithm)
	if err != nil {
		return nil, err
	}
	return detector.Detect(s, config), nil
}

func directionOf(value, center float64) AnomalyType {
	if value > center {
		return AnomalyTypeSpike
	}
	return AnomalyTypeDrop
}
