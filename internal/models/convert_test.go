package models

import (
	"encoding/json"
	"math"
	"strings"
	"testing"

	"github.com/soltixdb/trendscope/internal/analytics"
	"github.com/soltixdb/trendscope/internal/analytics/anomaly"
	"github.com/soltixdb/trendscope/internal/analytics/engine"
)

func float(v float64) *float64 { return &v }

func TestAnalyzeRequest_SeriesMap(t *testing.T) {
	req := AnalyzeRequest{
		Series: map[string][]*float64{
			"mine_a": {float(1), nil, float(3)},
		},
	}

	series := req.SeriesMap()["mine_a"]
	if len(series) != 3 {
		t.Fatalf("expected 3 positions, got %d", len(series))
	}
	if !analytics.IsMissing(series[1]) {
		t.Errorf("null should become missing, got %v", series[1])
	}
	if series[2] != 3 {
		t.Errorf("expected 3, got %v", series[2])
	}
}

func TestNewAnalyzeResponse_NullsUndefinedValues(t *testing.T) {
	series := map[string]analytics.Series{
		"empty": {analytics.Missing(), analytics.Missing(), analytics.Missing()},
	}
	result, err := engine.Analyze(series, engine.DefaultParams())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	resp := NewAnalyzeResponse(result, []string{"d1", "d2", "d3"})
	data, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("marshal failed (NaN leaked?): %v", err)
	}

	body := string(data)
	for _, want := range []string{`"mean":null`, `"std":null`, `"median":null`, `"iqr":[]`, `"grubbs":[]`, `"cached":false`} {
		if !strings.Contains(body, want) {
			t.Errorf("expected %s in %s", want, body)
		}
	}
	if resp.Series["empty"].Stats.Count != 0 {
		t.Errorf("expected count 0, got %d", resp.Series["empty"].Stats.Count)
	}
}

func TestNewAnomalyViews_MethodSpecificFields(t *testing.T) {
	anomalies := []anomaly.Anomaly{{
		Index:         4,
		Value:         10,
		Z:             3.2,
		MovingAverage: 5,
		G:             2.1,
		Score:         3.2,
		Type:          anomaly.AnomalyTypeSpike,
		Expected:      &anomaly.Range{Min: 1, Max: 2},
	}}

	z := NewAnomalyViews(anomaly.MethodZScore, anomalies)[0]
	if z.Z == nil || *z.Z != 3.2 || z.MovingAverage != nil || z.G != nil {
		t.Errorf("zscore view should carry only z: %+v", z)
	}

	ma := NewAnomalyViews(anomaly.MethodMovingAverage, anomalies)[0]
	if ma.MovingAverage == nil || *ma.MovingAverage != 5 || ma.Z != nil {
		t.Errorf("moving average view should carry only ma: %+v", ma)
	}

	g := NewAnomalyViews(anomaly.MethodGrubbs, anomalies)[0]
	if g.G == nil || *g.G != 2.1 || g.Z != nil {
		t.Errorf("grubbs view should carry only G: %+v", g)
	}

	iqr := NewAnomalyViews(anomaly.MethodIQR, anomalies)[0]
	if iqr.Z != nil || iqr.MovingAverage != nil || iqr.G != nil {
		t.Errorf("iqr view should carry no method fields: %+v", iqr)
	}
	if iqr.Index != 4 || iqr.Value != 10 || iqr.Type != "spike" {
		t.Errorf("unexpected view %+v", iqr)
	}
	if iqr.Expected == nil || *iqr.Expected.Min != 1 || *iqr.Expected.Max != 2 {
		t.Errorf("unexpected expected range %+v", iqr.Expected)
	}

	data, _ := json.Marshal(z)
	if !strings.Contains(string(data), `"z":3.2`) || strings.Contains(string(data), `"G"`) {
		t.Errorf("unexpected json %s", data)
	}

	if views := NewAnomalyViews(anomaly.MethodIQR, nil); views == nil || len(views) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", views)
	}
}

func TestNewTrendView(t *testing.T) {
	if NewTrendView(nil) != nil {
		t.Error("nil model should give nil view")
	}

	series := map[string]analytics.Series{"flat": {2, 2, 2, 2}}
	result, err := engine.Analyze(series, engine.DefaultParams())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	view := NewSeriesView(result.Series["flat"]).Trend
	if view == nil {
		t.Fatal("expected trend view")
	}
	if view.Degree != 1 || len(view.Coefficients) != 2 || len(view.Values) != 4 {
		t.Errorf("unexpected trend view %+v", view)
	}
	// R² of a constant series is undefined
	if view.RSquared != nil {
		t.Errorf("expected null r_squared, got %v", view.RSquared)
	}
	if view.RMSE == nil || math.Abs(*view.RMSE) > 1e-9 {
		t.Errorf("expected zero rmse, got %v", view.RMSE)
	}
}
