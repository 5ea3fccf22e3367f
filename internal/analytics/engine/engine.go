// Package engine runs the full analysis pipeline over a set of aligned series:
// descriptive statistics, the four anomaly detectors and a polynomial trend, for every
// named series and for their position-wise total.
package engine

import (
	"errors"
	"fmt"
	"runtime"
	"sort"

	"github.com/soltixdb/trendscope/internal/analytics"
	"github.com/soltixdb/trendscope/internal/analytics/anomaly"
	"github.com/soltixdb/trendscope/internal/analytics/trend"
	"golang.org/x/sync/errgroup"
)

// ErrMisalignedSeries is returned when the series of one call differ in length
var ErrMisalignedSeries = errors.New("series lengths differ")

// Methods lists the detectors every series is run through, in report order
var Methods = []string{
	anomaly.MethodIQR,
	anomaly.MethodZScore,
	anomaly.MethodMovingAverage,
	anomaly.MethodGrubbs,
}

// SeriesAnalysis is the outcome of the pipeline for one series
type SeriesAnalysis struct {
	Stats         analytics.StatSummary `json:"stats"`
	IQR           []anomaly.Anomaly     `json:"iqr"`
	ZScore        []anomaly.Anomaly     `json:"zscore"`
	MovingAverage []anomaly.Anomaly     `json:"moving_avg"`
	Grubbs        []anomaly.Anomaly     `json:"grubbs"`
	Trend         *trend.Model          `json:"trend,omitempty"`

	// Error describes a trend failure; the other fields stay valid
	Error string `json:"error,omitempty"`
}

// Anomalies returns the anomaly set produced by method
func (a *SeriesAnalysis) Anomalies(method string) []anomaly.Anomaly {
	switch method {
	case anomaly.MethodIQR:
		return a.IQR
	case anomaly.MethodZScore:
		return a.ZScore
	case anomaly.MethodMovingAverage:
		return a.MovingAverage
	case anomaly.MethodGrubbs:
		return a.Grubbs
	}
	return nil
}

func (a *SeriesAnalysis) setAnomalies(method string, results []anomaly.Anomaly) {
	switch method {
	case anomaly.MethodIQR:
		a.IQR = results
	case anomaly.MethodZScore:
		a.ZScore = results
	case anomaly.MethodMovingAverage:
		a.MovingAverage = results
	case anomaly.MethodGrubbs:
		a.Grubbs = results
	}
}

// Result is the outcome of one Analyze call
type Result struct {
	Length int                        `json:"length"`
	Params Params                     `json:"params"`
	Series map[string]*SeriesAnalysis `json:"series"`
	Total  *SeriesAnalysis            `json:"total"`
}

// Analyzer runs series pipelines concurrently, at most Workers at a time
type Analyzer struct {
	workers int
}

// NewAnalyzer creates an Analyzer. A non-positive workers value uses GOMAXPROCS.
func NewAnalyzer(workers int) *Analyzer {
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Analyzer{workers: workers}
}

var defaultAnalyzer = NewAnalyzer(0)

// Analyze runs the pipeline with the default Analyzer
func Analyze(series map[string]analytics.Series, params Params) (*Result, error) {
	return defaultAnalyzer.Analyze(series, params)
}

// Analyze validates params and alignment up front, then analyzes every series and the
// total. A trend failure is recorded on the affected SeriesAnalysis and does not fail
// the call.
func (a *Analyzer) Analyze(series map[string]analytics.Series, params Params) (*Result, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	names := sortedNames(series)
	length, err := commonLength(series, names)
	if err != nil {
		return nil, err
	}

	total := TotalSeries(series)

	analyses := make([]*SeriesAnalysis, len(names))
	var totalAnalysis *SeriesAnalysis

	g := new(errgroup.Group)
	g.SetLimit(a.workers)

	for i, name := range names {
		s := series[name]
		g.Go(func() error {
			analyses[i] = AnalyzeSeries(s, params)
			return nil
		})
	}
	g.Go(func() error {
		totalAnalysis = AnalyzeSeries(total, params)
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}

	result := &Result{
		Length: length,
		Params: params,
		Series: make(map[string]*SeriesAnalysis, len(names)),
		Total:  totalAnalysis,
	}
	for i, name := range names {
		result.Series[name] = analyses[i]
	}
	return result, nil
}

// AnalyzeSeries runs statistics, every detector in Methods and the trend fit on s.
// Params are assumed valid.
func AnalyzeSeries(s analytics.Series, params Params) *SeriesAnalysis {
	config := params.DetectorConfig()
	analysis := &SeriesAnalysis{
		Stats: analytics.Summarize(s),
	}

	for _, method := range Methods {
		results, err := anomaly.DetectAnomalies(method, s, config)
		if err != nil || results == nil {
			results = []anomaly.Anomaly{}
		}
		analysis.setAnomalies(method, results)
	}

	model, err := trend.FitSeries(s, params.TrendDegree)
	if err != nil {
		analysis.Error = fmt.Sprintf("trend fit failed: %v", err)
	} else {
		analysis.Trend = model
	}

	return analysis
}

// TotalSeries returns the position-wise sum of all series with missing values counted
// as zero. Its length is that of the longest series.
func TotalSeries(series map[string]analytics.Series) analytics.Series {
	names := sortedNames(series)
	ordered := make([]analytics.Series, len(names))
	for i, name := range names {
		ordered[i] = series[name]
	}
	return analytics.Sum(ordered...)
}

func sortedNames(series map[string]analytics.Series) []string {
	names := make([]string, 0, len(series))
	for name := range series {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func commonLength(series map[string]analytics.Series, names []string) (int, error) {
	if len(names) == 0 {
		return 0, nil
	}

	first := names[0]
	length := len(series[first])
	for _, name := range names[1:] {
		if n := len(series[name]); n != length {
			return 0, fmt.Errorf("%w: %q has %d points, %q has %d", ErrMisalignedSeries, first, length, name, n)
		}
	}
	return length, nil
}
