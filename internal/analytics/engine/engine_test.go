package engine

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/soltixdb/trendscope/internal/analytics"
)

var nan = math.NaN()

func TestParamsFromMap_Defaults(t *testing.T) {
	for _, values := range []map[string]interface{}{nil, {}} {
		params, err := ParamsFromMap(values)
		if err != nil {
			t.Fatalf("ParamsFromMap failed: %v", err)
		}
		if params != DefaultParams() {
			t.Errorf("Expected defaults, got %+v", params)
		}
	}

	defaults := DefaultParams()
	if defaults.IQRK != 1.5 || defaults.ZThresh != 3.0 || defaults.MAWindow != 7 ||
		defaults.MAPct != 0.3 || defaults.GrubbsAlpha != 0.05 || defaults.TrendDegree != 1 {
		t.Errorf("Unexpected defaults: %+v", defaults)
	}
}

func TestParamsFromMap_Overrides(t *testing.T) {
	params, err := ParamsFromMap(map[string]interface{}{
		"iqr_k":        2.0,
		"z_thresh":     "2.5",
		"ma_window":    float64(5), // JSON numbers decode as float64
		"ma_pct":       0.5,
		"grubbs_alpha": "0.01",
		"trend_degree": "3",
		"unknown_key":  "ignored",
	})
	if err != nil {
		t.Fatalf("ParamsFromMap failed: %v", err)
	}

	want := Params{IQRK: 2, ZThresh: 2.5, MAWindow: 5, MAPct: 0.5, GrubbsAlpha: 0.01, TrendDegree: 3}
	if params != want {
		t.Errorf("Expected %+v, got %+v", want, params)
	}
}

func TestParamsFromMap_Invalid(t *testing.T) {
	tests := []map[string]interface{}{
		{"iqr_k": 0},
		{"iqr_k": -1.5},
		{"z_thresh": 0},
		{"ma_window": 0},
		{"ma_pct": -0.1},
		{"grubbs_alpha": 0},
		{"grubbs_alpha": 1},
		{"trend_degree": -1},
		{"trend_degree": 11},
		{"ma_window": "seven"},
		{"iqr_k": "Inf"},
		{"iqr_k": "+Inf"},
		{"z_thresh": math.Inf(1)},
		{"ma_pct": "NaN"},
		{"grubbs_alpha": nan},
		{"ma_window": 7.9},
		{"trend_degree": 2.7},
		{"ma_window": math.Inf(1)},
	}

	for _, values := range tests {
		if _, err := ParamsFromMap(values); !errors.Is(err, ErrInvalidParams) {
			t.Errorf("%v: expected ErrInvalidParams, got %v", values, err)
		}
	}
}

func TestParams_ValidateRejectsNonFinite(t *testing.T) {
	params := DefaultParams()
	params.IQRK = math.Inf(1)

	err := params.Validate()
	if !errors.Is(err, ErrInvalidParams) {
		t.Fatalf("Expected ErrInvalidParams, got %v", err)
	}
	if !strings.Contains(err.Error(), "iqr_k must be a finite number") {
		t.Errorf("Expected message naming iqr_k, got %q", err.Error())
	}
}

func TestParams_MergeKeepsBase(t *testing.T) {
	base := DefaultParams()
	base.ZThresh = 2

	merged, err := base.Merge(map[string]interface{}{"iqr_k": 3})
	if err != nil {
		t.Fatalf("Merge failed: %v", err)
	}
	if merged.ZThresh != 2 || merged.IQRK != 3 {
		t.Errorf("Expected base z_thresh and overridden iqr_k, got %+v", merged)
	}
	if base.IQRK != 1.5 {
		t.Errorf("Merge must not modify the receiver, got %+v", base)
	}
}

func TestParams_DetectorConfig(t *testing.T) {
	params := Params{IQRK: 2, ZThresh: 4, MAWindow: 3, MAPct: 0.1, GrubbsAlpha: 0.01, TrendDegree: 2}
	config := params.DetectorConfig()

	if config.IQRMultiplier != 2 || config.ZThreshold != 4 || config.WindowSize != 3 ||
		config.DeviationPct != 0.1 || config.Alpha != 0.01 {
		t.Errorf("Unexpected detector config: %+v", config)
	}
}

func TestAnalyze_MisalignedSeries(t *testing.T) {
	series := map[string]analytics.Series{
		"mine_a": {1, 2, 3},
		"mine_b": {1, 2},
	}

	if _, err := Analyze(series, DefaultParams()); !errors.Is(err, ErrMisalignedSeries) {
		t.Errorf("Expected ErrMisalignedSeries, got %v", err)
	}
}

func TestAnalyze_InvalidParams(t *testing.T) {
	params := DefaultParams()
	params.GrubbsAlpha = 2

	if _, err := Analyze(map[string]analytics.Series{"a": {1, 2, 3}}, params); !errors.Is(err, ErrInvalidParams) {
		t.Errorf("Expected ErrInvalidParams, got %v", err)
	}
}

func TestAnalyze_TotalAggregation(t *testing.T) {
	series := map[string]analytics.Series{
		"a": {1, nan, 3},
		"b": {4, 5, nan},
	}

	result, err := Analyze(series, DefaultParams())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	total := TotalSeries(series)
	want := []float64{5, 5, 3}
	for i := range want {
		if total[i] != want[i] {
			t.Errorf("total[%d] = %f, want %f", i, total[i], want[i])
		}
	}

	if result.Length != 3 {
		t.Errorf("Expected length 3, got %d", result.Length)
	}
	if math.Abs(result.Total.Stats.Mean-13.0/3.0) > 1e-9 {
		t.Errorf("Expected total mean %f, got %f", 13.0/3.0, result.Total.Stats.Mean)
	}
	if result.Total.Stats.Count != 3 {
		t.Errorf("Expected every total position present, got %d", result.Total.Stats.Count)
	}
	if result.Series["a"].Stats.Count != 2 {
		t.Errorf("Expected 2 present values in a, got %d", result.Series["a"].Stats.Count)
	}
}

func TestAnalyze_DetectsPerSeries(t *testing.T) {
	series := map[string]analytics.Series{
		"spiky":  {10, 10, 10, 10, 10, 100},
		"steady": {5, 5, 5, 5, 5, 5},
	}

	result, err := Analyze(series, DefaultParams())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	spiky := result.Series["spiky"]
	if len(spiky.IQR) != 1 || spiky.IQR[0].Index != 5 {
		t.Errorf("Expected IQR anomaly at 5, got %+v", spiky.IQR)
	}
	if len(spiky.Grubbs) != 1 || spiky.Grubbs[0].Index != 5 {
		t.Errorf("Expected Grubbs outlier at 5, got %+v", spiky.Grubbs)
	}

	steady := result.Series["steady"]
	for _, method := range Methods {
		set := steady.Anomalies(method)
		if set == nil {
			t.Errorf("%s: expected an empty non-nil set", method)
		}
		if len(set) != 0 {
			t.Errorf("%s: expected no anomalies in a constant series, got %+v", method, set)
		}
	}

	if spiky.Trend == nil || len(spiky.Trend.Coefficients) != 2 {
		t.Errorf("Expected a linear trend, got %+v", spiky.Trend)
	}
	if len(spiky.Trend.Values) != 6 {
		t.Errorf("Expected 6 trend values, got %d", len(spiky.Trend.Values))
	}
}

func TestAnalyze_TrendFailureIsPartial(t *testing.T) {
	series := map[string]analytics.Series{
		"a": {1, 2, 3},
		"b": {3, 2, 1},
	}
	params := DefaultParams()
	params.TrendDegree = 5

	result, err := Analyze(series, params)
	if err != nil {
		t.Fatalf("Trend failure must not fail the call: %v", err)
	}

	for name, analysis := range result.Series {
		if analysis.Error == "" {
			t.Errorf("%s: expected a trend error", name)
		}
		if analysis.Trend != nil {
			t.Errorf("%s: expected no trend model", name)
		}
		if analysis.Stats.Count != 3 {
			t.Errorf("%s: expected stats despite trend failure", name)
		}
	}
	if result.Total.Error == "" {
		t.Error("Expected a trend error on the total")
	}
}

func TestAnalyze_EmptyInput(t *testing.T) {
	result, err := Analyze(map[string]analytics.Series{}, DefaultParams())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if result.Length != 0 || len(result.Series) != 0 {
		t.Errorf("Expected empty result, got %+v", result)
	}
	if result.Total == nil || result.Total.Stats.Count != 0 {
		t.Errorf("Expected an empty total analysis, got %+v", result.Total)
	}
}

func TestAnalyze_AllMissingSeries(t *testing.T) {
	result, err := Analyze(map[string]analytics.Series{"a": {nan, nan, nan, nan}}, DefaultParams())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	a := result.Series["a"]
	if !math.IsNaN(a.Stats.Mean) || a.Stats.StdDev != 0 {
		t.Errorf("Expected NaN mean and zero std, got %+v", a.Stats)
	}
	if a.Trend == nil || a.Trend.Coefficients[0] != 0 || a.Trend.Coefficients[1] != 0 {
		t.Errorf("Expected a zero trend over zero-imputed values, got %+v", a.Trend)
	}
}

func TestAnalyzer_ManySeries(t *testing.T) {
	series := make(map[string]analytics.Series)
	for i := 0; i < 40; i++ {
		s := make(analytics.Series, 30)
		for j := range s {
			s[j] = float64(i + j)
		}
		series[fmt.Sprintf("series_%02d", i)] = s
	}

	result, err := NewAnalyzer(3).Analyze(series, DefaultParams())
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}

	if len(result.Series) != 40 {
		t.Fatalf("Expected 40 analyses, got %d", len(result.Series))
	}
	for name, analysis := range result.Series {
		if analysis == nil || analysis.Trend == nil {
			t.Fatalf("%s: missing analysis", name)
		}
		if math.Abs(analysis.Trend.Coefficients[1]-1) > 1e-6 {
			t.Errorf("%s: expected slope 1, got %f", name, analysis.Trend.Coefficients[1])
		}
	}

	// total[j] = sum_i (i + j) = 780 + 40j
	if math.Abs(result.Total.Trend.Coefficients[1]-40) > 1e-6 {
		t.Errorf("Expected total slope 40, got %f", result.Total.Trend.Coefficients[1])
	}
}
