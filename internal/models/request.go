package models

import "github.com/soltixdb/trendscope/internal/analytics"

// AnalyzeRequest is the body of POST /v1/analyze. Series values may be null for
// missing positions; dates, when present, label the positions.
type AnalyzeRequest struct {
	Dates  []string               `json:"dates,omitempty"`
	Series map[string][]*float64  `json:"series"`
	Params map[string]interface{} `json:"params,omitempty"`
}

// DetectRequest is the body of POST /v1/detect/:method
type DetectRequest struct {
	Values []*float64             `json:"values"`
	Params map[string]interface{} `json:"params,omitempty"`
}

// TrendRequest is the body of POST /v1/trend. Degree defaults to the configured
// trend degree; Predict lists extra positions to evaluate the fitted polynomial at.
type TrendRequest struct {
	Values  []*float64 `json:"values"`
	Degree  *int       `json:"degree,omitempty"`
	Predict []float64  `json:"predict,omitempty"`
}

// SeriesMap converts the nullable request values into analytics series
func (r *AnalyzeRequest) SeriesMap() map[string]analytics.Series {
	series := make(map[string]analytics.Series, len(r.Series))
	for name, values := range r.Series {
		series[name] = analytics.FromNullable(values)
	}
	return series
}
