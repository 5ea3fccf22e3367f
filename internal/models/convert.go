package models

import (
	"github.com/soltixdb/trendscope/internal/analytics"
	"github.com/soltixdb/trendscope/internal/analytics/anomaly"
	"github.com/soltixdb/trendscope/internal/analytics/engine"
	"github.com/soltixdb/trendscope/internal/analytics/trend"
	"github.com/soltixdb/trendscope/internal/utils"
)

// NewAnalyzeResponse converts an engine result into its JSON form
func NewAnalyzeResponse(result *engine.Result, dates []string) *AnalyzeResponse {
	resp := &AnalyzeResponse{
		Dates:  dates,
		Length: result.Length,
		Params: result.Params,
		Series: make(map[string]*SeriesView, len(result.Series)),
		Total:  NewSeriesView(result.Total),
	}
	for name, analysis := range result.Series {
		resp.Series[name] = NewSeriesView(analysis)
	}
	return resp
}

// NewSeriesView converts the analysis of one series
func NewSeriesView(a *engine.SeriesAnalysis) *SeriesView {
	if a == nil {
		return nil
	}
	return &SeriesView{
		Stats:         NewStatsView(a.Stats),
		IQR:           NewAnomalyViews(anomaly.MethodIQR, a.IQR),
		ZScore:        NewAnomalyViews(anomaly.MethodZScore, a.ZScore),
		MovingAverage: NewAnomalyViews(anomaly.MethodMovingAverage, a.MovingAverage),
		Grubbs:        NewAnomalyViews(anomaly.MethodGrubbs, a.Grubbs),
		Trend:         NewTrendView(a.Trend),
		Error:         a.Error,
	}
}

// NewStatsView converts a statistics summary, undefined values becoming null
func NewStatsView(s analytics.StatSummary) StatsView {
	return StatsView{
		Mean:   utils.NullableFloat(s.Mean),
		StdDev: utils.NullableFloat(s.StdDev),
		Median: utils.NullableFloat(s.Median),
		Q1:     utils.NullableFloat(s.Q1),
		Q3:     utils.NullableFloat(s.Q3),
		IQR:    utils.NullableFloat(s.IQR),
		Count:  s.Count,
	}
}

// NewAnomalyViews converts the anomalies found by method. The result is never nil.
func NewAnomalyViews(method string, anomalies []anomaly.Anomaly) []AnomalyView {
	views := make([]AnomalyView, len(anomalies))
	for i, a := range anomalies {
		view := AnomalyView{
			Index: a.Index,
			Value: a.Value,
			Score: utils.FiniteOr(a.Score, 0),
			Type:  string(a.Type),
		}
		switch method {
		case anomaly.MethodZScore:
			view.Z = utils.NullableFloat(a.Z)
		case anomaly.MethodMovingAverage:
			view.MovingAverage = utils.NullableFloat(a.MovingAverage)
		case anomaly.MethodGrubbs:
			view.G = utils.NullableFloat(a.G)
		}
		if a.Expected != nil {
			view.Expected = &RangeView{
				Min: utils.NullableFloat(a.Expected.Min),
				Max: utils.NullableFloat(a.Expected.Max),
			}
		}
		views[i] = view
	}
	return views
}

// NewTrendView converts a fitted model
func NewTrendView(m *trend.Model) *TrendView {
	if m == nil {
		return nil
	}
	return &TrendView{
		Degree:       m.Degree,
		Coefficients: utils.NullableFloats(m.Coefficients),
		Values:       utils.NullableFloats(m.Values),
		RSquared:     utils.NullableFloat(m.RSquared),
		RMSE:         utils.NullableFloat(m.RMSE),
	}
}
