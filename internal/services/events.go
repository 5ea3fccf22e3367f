package services

import (
	"context"
	"encoding/json"
	"time"

	"github.com/soltixdb/trendscope/internal/models"
	"github.com/soltixdb/trendscope/internal/queue"
	"github.com/soltixdb/trendscope/internal/utils"
)

// AnalysisEvent announces a completed analysis on the event subject
type AnalysisEvent struct {
	Key       string         `json:"key"`
	Length    int            `json:"length"`
	Series    []string       `json:"series"`
	Anomalies map[string]int `json:"anomalies"` // Anomaly count per method over the named series
	Cached    bool           `json:"cached"`
	LatencyMs int64          `json:"latency_ms"`
	Timestamp string         `json:"timestamp"`
}

// eventPublisher publishes AnalysisEvents. A nil publisher drops them.
type eventPublisher struct {
	publisher queue.Publisher
	subject   string
}

func newAnalysisEvent(key string, resp *models.AnalyzeResponse, latency time.Duration) *AnalysisEvent {
	return &AnalysisEvent{
		Key:       key,
		Length:    resp.Length,
		Series:    sortedKeys(resp.Series),
		Anomalies: anomalyCounts(resp),
		Cached:    resp.Cached,
		LatencyMs: latency.Milliseconds(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// publish sends event with a bounded timeout. Failures are returned for logging only.
func (p *eventPublisher) publish(ctx context.Context, event *AnalysisEvent) error {
	if p == nil || p.publisher == nil || p.subject == "" {
		return nil
	}

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, utils.PublishTimeout)
	defer cancel()
	return p.publisher.Publish(ctx, p.subject, data)
}
