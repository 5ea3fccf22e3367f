package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/soltixdb/trendscope/internal/analytics"
	"github.com/soltixdb/trendscope/internal/analytics/anomaly"
	"github.com/soltixdb/trendscope/internal/analytics/engine"
	"github.com/soltixdb/trendscope/internal/analytics/trend"
	"github.com/soltixdb/trendscope/internal/cache"
	"github.com/soltixdb/trendscope/internal/config"
	"github.com/soltixdb/trendscope/internal/logging"
	"github.com/soltixdb/trendscope/internal/metrics"
	"github.com/soltixdb/trendscope/internal/models"
	"github.com/soltixdb/trendscope/internal/queue"
	"github.com/soltixdb/trendscope/internal/utils"
)

// cacheKeyVersion is bumped whenever the cached response layout changes
const cacheKeyVersion = "v1"

// AnalysisService validates analysis requests, runs the engine and caches responses
type AnalysisService struct {
	logger   *logging.Logger
	limits   config.AnalysisConfig
	defaults engine.Params
	analyzer *engine.Analyzer
	cache    cache.ResultCache
	metrics  *metrics.Metrics
	events   *eventPublisher
}

// NewAnalysisService creates a new AnalysisService. Request params are layered over
// the analysis defaults of cfg. resultCache and m may be nil.
func NewAnalysisService(
	logger *logging.Logger,
	cfg config.AnalysisConfig,
	resultCache cache.ResultCache,
	m *metrics.Metrics,
) *AnalysisService {
	defaults, err := engine.DefaultParams().Merge(cfg.ParamDefaults())
	if err != nil {
		logger.Warn("Invalid analysis defaults, using built-in defaults", "error", err)
		defaults = engine.DefaultParams()
	}

	if resultCache == nil {
		resultCache = cache.NoopCache{}
	}

	return &AnalysisService{
		logger:   logger,
		limits:   cfg,
		defaults: defaults,
		analyzer: engine.NewAnalyzer(cfg.Workers),
		cache:    resultCache,
		metrics:  m,
	}
}

// SetEventPublisher enables completion events on subject
func (s *AnalysisService) SetEventPublisher(publisher queue.Publisher, subject string) {
	s.events = &eventPublisher{publisher: publisher, subject: subject}
}

// Defaults returns the params requests are layered over
func (s *AnalysisService) Defaults() engine.Params {
	return s.defaults
}

// Execute runs the full analysis of req, serving repeated requests from the cache
func (s *AnalysisService) Execute(ctx context.Context, req *models.AnalyzeRequest) (*models.AnalyzeResponse, error) {
	startExec := time.Now()

	length, err := s.validateAnalyzeRequest(req)
	if err != nil {
		s.metrics.ObserveAnalysis(metrics.StatusError, 0, 0)
		return nil, err
	}

	params, err := s.resolveParams(req.Params)
	if err != nil {
		s.metrics.ObserveAnalysis(metrics.StatusError, 0, 0)
		return nil, err
	}

	key, err := requestKey(req, params)
	if err != nil {
		return nil, NewServiceError(CodeInvalidRequest, err.Error())
	}

	if cached := s.lookup(ctx, key); cached != nil {
		s.metrics.ObserveAnalysis(metrics.StatusCached, len(req.Series), 0)
		s.finish(ctx, key, cached, startExec)
		return cached, nil
	}

	engineStart := time.Now()
	result, err := s.analyzer.Analyze(req.SeriesMap(), params)
	if err != nil {
		s.metrics.ObserveAnalysis(metrics.StatusError, 0, 0)
		return nil, engineError(err)
	}
	s.metrics.ObserveAnalysis(metrics.StatusOK, len(req.Series), time.Since(engineStart))

	resp := models.NewAnalyzeResponse(result, req.Dates)
	for method, n := range anomalyCounts(resp) {
		s.metrics.AddAnomalies(method, n)
	}

	s.store(ctx, key, resp)
	s.finish(ctx, key, resp, startExec)

	logging.FromContext(ctx).WithContext(ctx).Debug("Analysis computed",
		"length", length,
		"series_count", len(req.Series),
		"params", params)

	return resp, nil
}

// Detect runs a single detector over one series
func (s *AnalysisService) Detect(ctx context.Context, method string, req *models.DetectRequest) (*models.DetectResponse, error) {
	startExec := time.Now()

	if _, err := anomaly.GetDetector(method); err != nil {
		return nil, NewServiceErrorWithDetails(CodeInvalidMethod, err.Error(), map[string]interface{}{
			"available_methods": anomaly.ListDetectors(),
		})
	}

	if len(req.Values) > s.limits.MaxPoints {
		return nil, NewServiceError(CodeInvalidRequest,
			fmt.Sprintf("values exceed max_points: %d > %d", len(req.Values), s.limits.MaxPoints))
	}

	params, err := s.resolveParams(req.Params)
	if err != nil {
		return nil, err
	}

	series := analytics.FromNullable(req.Values)
	found, err := anomaly.DetectAnomalies(method, series, params.DetectorConfig())
	if err != nil {
		return nil, NewServiceError(CodeAnalysisFailed, err.Error())
	}
	s.metrics.AddAnomalies(method, len(found))

	s.logger.Info("Detection completed",
		"method", method,
		"length", len(series),
		"anomalies", len(found),
		"latency_ms", time.Since(startExec).Milliseconds())

	return &models.DetectResponse{
		Method:    method,
		Length:    len(series),
		Params:    params,
		Anomalies: models.NewAnomalyViews(method, found),
	}, nil
}

// Trend fits a polynomial to one series and evaluates it at the requested positions
func (s *AnalysisService) Trend(ctx context.Context, req *models.TrendRequest) (*models.TrendResponse, error) {
	startExec := time.Now()

	if len(req.Values) > s.limits.MaxPoints {
		return nil, NewServiceError(CodeInvalidRequest,
			fmt.Sprintf("values exceed max_points: %d > %d", len(req.Values), s.limits.MaxPoints))
	}

	degree := s.defaults.TrendDegree
	if req.Degree != nil {
		degree = *req.Degree
	}
	if degree < 0 || degree > trend.MaxDegree {
		return nil, NewServiceError(CodeInvalidParams,
			fmt.Sprintf("degree must be between 0 and %d", trend.MaxDegree))
	}

	model, err := trend.FitSeries(analytics.FromNullable(req.Values), degree)
	if err != nil {
		return nil, NewServiceErrorWithDetails(CodeTrendFailed, err.Error(), map[string]interface{}{
			"degree": degree,
			"length": len(req.Values),
		})
	}

	resp := &models.TrendResponse{
		Length: len(req.Values),
		Trend:  *models.NewTrendView(model),
	}
	if len(req.Predict) > 0 {
		resp.Predict = req.Predict
		resp.Predictions = utils.NullableFloats(trend.Predict(model.Coefficients, req.Predict))
	}

	s.logger.Info("Trend fit completed",
		"degree", degree,
		"length", len(req.Values),
		"latency_ms", time.Since(startExec).Milliseconds())

	return resp, nil
}

// Detectors returns the registered detector names
func (s *AnalysisService) Detectors() []string {
	return anomaly.ListDetectors()
}

// validateAnalyzeRequest checks shape and limits and returns the common series length
func (s *AnalysisService) validateAnalyzeRequest(req *models.AnalyzeRequest) (int, error) {
	if len(req.Series) == 0 {
		return 0, NewServiceError(CodeInvalidRequest, "series is required")
	}

	if len(req.Series) > s.limits.MaxSeries {
		return 0, NewServiceError(CodeInvalidRequest,
			fmt.Sprintf("too many series: %d > max_series %d", len(req.Series), s.limits.MaxSeries))
	}

	lengths := make(map[string]int, len(req.Series))
	length := -1
	aligned := true
	for name, values := range req.Series {
		if name == "" {
			return 0, NewServiceError(CodeInvalidRequest, "series names cannot be empty")
		}
		if len(values) > s.limits.MaxPoints {
			return 0, NewServiceError(CodeInvalidRequest,
				fmt.Sprintf("series %s exceeds max_points: %d > %d", name, len(values), s.limits.MaxPoints))
		}
		lengths[name] = len(values)
		if length >= 0 && len(values) != length {
			aligned = false
		}
		length = len(values)
	}

	if !aligned {
		return 0, NewServiceErrorWithDetails(CodeMisalignedSeries, engine.ErrMisalignedSeries.Error(),
			map[string]interface{}{"lengths": lengths})
	}

	if len(req.Dates) > 0 && len(req.Dates) != length {
		return 0, NewServiceError(CodeInvalidRequest,
			fmt.Sprintf("dates has %d entries but series have %d positions", len(req.Dates), length))
	}

	return length, nil
}

// resolveParams layers request params over the service defaults
func (s *AnalysisService) resolveParams(values map[string]interface{}) (engine.Params, error) {
	params, err := s.defaults.Merge(values)
	if err != nil {
		return engine.Params{}, NewServiceError(CodeInvalidParams, err.Error())
	}
	return params, nil
}

// lookup returns the cached response of key or nil. Cache failures count as misses.
func (s *AnalysisService) lookup(ctx context.Context, key string) *models.AnalyzeResponse {
	ctx, cancel := context.WithTimeout(ctx, utils.CacheOperationTimeout)
	defer cancel()

	data, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		s.logger.Warn("Result cache lookup failed", "key", key, "error", err)
	}
	if !ok {
		s.metrics.CacheLookup(false)
		return nil
	}

	var resp models.AnalyzeResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		s.logger.Warn("Dropping undecodable cache entry", "key", key, "error", err)
		s.metrics.CacheLookup(false)
		return nil
	}

	s.metrics.CacheLookup(true)
	resp.Cached = true
	return &resp
}

func (s *AnalysisService) store(ctx context.Context, key string, resp *models.AnalyzeResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		s.logger.Error("Failed to encode analysis for cache", "key", key, "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(ctx, utils.CacheOperationTimeout)
	defer cancel()

	if err := s.cache.Set(ctx, key, data); err != nil {
		s.logger.Warn("Result cache store failed", "key", key, "error", err)
	}
}

// finish publishes the completion event and logs the request latency
func (s *AnalysisService) finish(ctx context.Context, key string, resp *models.AnalyzeResponse, startExec time.Time) {
	latency := time.Since(startExec)

	if err := s.events.publish(ctx, newAnalysisEvent(key, resp, latency)); err != nil {
		s.logger.Warn("Failed to publish analysis event", "key", key, "error", err)
	}

	s.logger.Info("Analysis completed",
		"series_count", len(resp.Series),
		"length", resp.Length,
		"cached", resp.Cached,
		"latency_ms", latency.Milliseconds())
}

// requestKey derives the cache key from the request content and resolved params.
// encoding/json writes map keys sorted, so equal requests encode identically.
func requestKey(req *models.AnalyzeRequest, params engine.Params) (string, error) {
	canonical, err := json.Marshal(struct {
		Version string                `json:"v"`
		Dates   []string              `json:"dates"`
		Series  map[string][]*float64 `json:"series"`
		Params  engine.Params         `json:"params"`
	}{cacheKeyVersion, req.Dates, req.Series, params})
	if err != nil {
		return "", fmt.Errorf("failed to encode request: %w", err)
	}
	return "analysis:" + cache.Key(canonical), nil
}

// engineError maps engine failures to service errors
func engineError(err error) *ServiceError {
	switch {
	case errors.Is(err, engine.ErrMisalignedSeries):
		return NewServiceError(CodeMisalignedSeries, err.Error())
	case errors.Is(err, engine.ErrInvalidParams):
		return NewServiceError(CodeInvalidParams, err.Error())
	default:
		return NewServiceError(CodeAnalysisFailed, err.Error())
	}
}

// anomalyCounts counts anomalies per method over the named series
func anomalyCounts(resp *models.AnalyzeResponse) map[string]int {
	counts := make(map[string]int, len(engine.Methods))
	for _, method := range engine.Methods {
		counts[method] = 0
	}
	for _, view := range resp.Series {
		counts[anomaly.MethodIQR] += len(view.IQR)
		counts[anomaly.MethodZScore] += len(view.ZScore)
		counts[anomaly.MethodMovingAverage] += len(view.MovingAverage)
		counts[anomaly.MethodGrubbs] += len(view.Grubbs)
	}
	return counts
}

func sortedKeys(series map[string]*models.SeriesView) []string {
	names := make([]string, 0, len(series))
	for name := range series {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
