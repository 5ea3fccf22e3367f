// Package worker consumes analysis jobs from the queue and publishes their results.
package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/soltixdb/trendscope/internal/logging"
	"github.com/soltixdb/trendscope/internal/metrics"
	"github.com/soltixdb/trendscope/internal/models"
	"github.com/soltixdb/trendscope/internal/queue"
	"github.com/soltixdb/trendscope/internal/services"
	"github.com/soltixdb/trendscope/internal/utils"
)

// Job result statuses
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// AnalysisJob is a queued analysis request
type AnalysisJob struct {
	ID      string                `json:"id,omitempty"`
	Request models.AnalyzeRequest `json:"request"`
}

// AnalysisJobResult is published on the result subject for every consumed job
type AnalysisJobResult struct {
	ID          string                  `json:"id"`
	Status      string                  `json:"status"`
	Result      *models.AnalyzeResponse `json:"result,omitempty"`
	Error       *models.ErrorDetail     `json:"error,omitempty"`
	CompletedAt string                  `json:"completed_at"`
}

// Executor runs one analysis
type Executor interface {
	Execute(ctx context.Context, req *models.AnalyzeRequest) (*models.AnalyzeResponse, error)
}

// Config names the subjects a Worker uses
type Config struct {
	RequestSubject string
	ResultSubject  string
}

// Worker runs queued analysis jobs
type Worker struct {
	logger   *logging.Logger
	queue    queue.Queue
	executor Executor
	metrics  *metrics.Metrics
	cfg      Config

	mu      sync.Mutex
	running bool
}

// New creates a Worker. m may be nil.
func New(logger *logging.Logger, q queue.Queue, executor Executor, m *metrics.Metrics, cfg Config) (*Worker, error) {
	if q == nil {
		return nil, fmt.Errorf("queue is nil")
	}
	if executor == nil {
		return nil, fmt.Errorf("executor is nil")
	}
	if cfg.RequestSubject == "" || cfg.ResultSubject == "" {
		return nil, fmt.Errorf("request and result subjects are required")
	}

	return &Worker{
		logger:   logger,
		queue:    q,
		executor: executor,
		metrics:  m,
		cfg:      cfg,
	}, nil
}

// Start subscribes to the request subject
func (w *Worker) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return nil
	}

	if err := w.queue.Subscribe(w.cfg.RequestSubject, w.handleJob); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", w.cfg.RequestSubject, err)
	}
	w.running = true

	w.logger.Info("Analysis worker started",
		"request_subject", w.cfg.RequestSubject,
		"result_subject", w.cfg.ResultSubject)
	return nil
}

// Stop unsubscribes from the request subject. The queue itself stays open.
func (w *Worker) Stop() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return nil
	}
	w.running = false

	if err := w.queue.Unsubscribe(w.cfg.RequestSubject); err != nil && !errors.Is(err, queue.ErrNotSubscribed) {
		return err
	}

	w.logger.Info("Analysis worker stopped")
	return nil
}

// handleJob runs one job. Only a failed result publish is returned, so that the job is
// redelivered; malformed and rejected jobs are answered with a failed result.
func (w *Worker) handleJob(ctx context.Context, msg *queue.Message) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}

	var job AnalysisJob
	if err := json.Unmarshal(msg.Data, &job); err != nil {
		w.logger.Error("Failed to parse analysis job",
			"error", err,
			"data_preview", string(msg.Data[:min(200, len(msg.Data))]))
		w.metrics.JobProcessed(StatusFailed)
		return w.publish(ctx, failedResult(uuid.New().String(), services.NewServiceError(
			services.CodeInvalidRequest, fmt.Sprintf("malformed job: %v", err))))
	}

	if job.ID == "" {
		job.ID = uuid.New().String()
	}

	ctx = logging.WithJobID(ctx, job.ID)
	log := w.logger.WithContext(ctx)
	start := time.Now()

	resp, err := w.executor.Execute(ctx, &job.Request)
	if err != nil {
		log.Warn("Analysis job failed", "error", err, "attempt", msg.Attempt)
		w.metrics.JobProcessed(StatusFailed)
		return w.publish(ctx, failedResult(job.ID, err))
	}

	log.Info("Analysis job completed",
		"series_count", len(resp.Series),
		"cached", resp.Cached,
		"latency_ms", time.Since(start).Milliseconds())
	w.metrics.JobProcessed(StatusCompleted)

	return w.publish(ctx, &AnalysisJobResult{
		ID:          job.ID,
		Status:      StatusCompleted,
		Result:      resp,
		CompletedAt: time.Now().UTC().Format(time.RFC3339),
	})
}

func (w *Worker) publish(ctx context.Context, result *AnalysisJobResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		w.logger.Error("Failed to encode job result", "job_id", result.ID, "error", err)
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, utils.PublishTimeout)
	defer cancel()

	if err := w.queue.Publish(ctx, w.cfg.ResultSubject, data); err != nil {
		w.logger.Error("Failed to publish job result", "job_id", result.ID, "error", err)
		return err
	}
	return nil
}

func failedResult(id string, err error) *AnalysisJobResult {
	detail := &models.ErrorDetail{Code: services.CodeAnalysisFailed, Message: err.Error()}

	var svcErr *services.ServiceError
	if errors.As(err, &svcErr) {
		detail.Code = svcErr.Code
		detail.Message = svcErr.Message
		detail.Details = svcErr.Details
	}

	return &AnalysisJobResult{
		ID:          id,
		Status:      StatusFailed,
		Error:       detail,
		CompletedAt: time.Now().UTC().Format(time.RFC3339),
	}
}
