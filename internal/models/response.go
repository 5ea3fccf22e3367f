package models

import "github.com/soltixdb/trendscope/internal/analytics/engine"

// Numbers that can be undefined (statistics of empty series, NaN trend values) are
// pointers and serialise as null.

// HealthResponse represents health check response
type HealthResponse struct {
	Status        string   `json:"status"`
	Timestamp     string   `json:"timestamp"`
	Version       string   `json:"version"`
	UptimeSeconds int64    `json:"uptime_seconds"`
	Detectors     []string `json:"detectors"`
}

// StatsView is the JSON form of analytics.StatSummary
type StatsView struct {
	Mean   *float64 `json:"mean"`
	StdDev *float64 `json:"std"`
	Median *float64 `json:"median"`
	Q1     *float64 `json:"q1"`
	Q3     *float64 `json:"q3"`
	IQR    *float64 `json:"iqr"`
	Count  int      `json:"count"`
}

// RangeView is the expected value range of an anomaly
type RangeView struct {
	Min *float64 `json:"min"`
	Max *float64 `json:"max"`
}

// AnomalyView is one flagged point. z, ma and G are present only for the detector
// that produces them.
type AnomalyView struct {
	Index         int        `json:"i"`
	Value         float64    `json:"v"`
	Z             *float64   `json:"z,omitempty"`
	MovingAverage *float64   `json:"ma,omitempty"`
	G             *float64   `json:"G,omitempty"`
	Score         float64    `json:"score"`
	Type          string     `json:"type"`
	Expected      *RangeView `json:"expected,omitempty"`
}

// TrendView is the JSON form of trend.Model
type TrendView struct {
	Degree       int        `json:"degree"`
	Coefficients []*float64 `json:"coeffs"`
	Values       []*float64 `json:"values"`
	RSquared     *float64   `json:"r_squared"`
	RMSE         *float64   `json:"rmse"`
}

// SeriesView is the analysis of one series
type SeriesView struct {
	Stats         StatsView     `json:"stats"`
	IQR           []AnomalyView `json:"iqr"`
	ZScore        []AnomalyView `json:"zscore"`
	MovingAverage []AnomalyView `json:"moving_avg"`
	Grubbs        []AnomalyView `json:"grubbs"`
	Trend         *TrendView    `json:"trend"`
	Error         string        `json:"error,omitempty"`
}

// AnalyzeResponse is the body returned by POST /v1/analyze
type AnalyzeResponse struct {
	Dates  []string               `json:"dates,omitempty"`
	Length int                    `json:"length"`
	Params engine.Params          `json:"params"`
	Series map[string]*SeriesView `json:"series"`
	Total  *SeriesView            `json:"total"`
	Cached bool                   `json:"cached"`
}

// DetectResponse is the body returned by POST /v1/detect/:method
type DetectResponse struct {
	Method    string        `json:"method"`
	Length    int           `json:"length"`
	Params    engine.Params `json:"params"`
	Anomalies []AnomalyView `json:"anomalies"`
}

// TrendResponse is the body returned by POST /v1/trend
type TrendResponse struct {
	Length      int        `json:"length"`
	Trend       TrendView  `json:"trend"`
	Predict     []float64  `json:"predict,omitempty"`
	Predictions []*float64 `json:"predictions,omitempty"`
}

// DetectorsResponse lists the registered detectors
type DetectorsResponse struct {
	Detectors []string `json:"detectors"`
}

// ErrorResponse represents error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail represents error details
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Path    string                 `json:"path,omitempty"`
	Details map[string]interface{} `json:"details,omitempty"`
}
