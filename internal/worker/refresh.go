package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/bikenavi/bikenavi/internal/provider/resilience"
)

// ErrNoOperators is returned when there is nothing to refresh.
var ErrNoOperators = errors.New("no operators to refresh")

// FeedRefresher refetches the station feeds of one operator.
// *gbfs.Client satisfies it.
type FeedRefresher interface {
	Refresh(ctx context.Context, operator string) error
	Operators() []string
}

// RefreshJob refreshes GBFS station status per operator.
type RefreshJob struct {
	config    RefreshConfig
	refresher FeedRefresher
	observer  resilience.CallObserver
	logger    zerolog.Logger

	metrics *RefreshMetrics
}

// RefreshMetrics tracks refresh job statistics.
type RefreshMetrics struct {
	mu sync.RWMutex

	TotalRuns          int64
	OperatorsRefreshed int64
	OperatorsFailed    int64

	LastRunAt       time.Time
	LastRunDuration time.Duration
	LastError       string
}

// RefreshJobConfig holds configuration for creating a RefreshJob.
type RefreshJobConfig struct {
	Config    RefreshConfig
	Refresher FeedRefresher
	// Observer records per-operator call latency and outcome. Optional.
	Observer resilience.CallObserver
	Logger   zerolog.Logger
}

// NewRefreshJob creates a new refresh job.
func NewRefreshJob(cfg RefreshJobConfig) *RefreshJob {
	return &RefreshJob{
		config:    cfg.Config.withDefaults(),
		refresher: cfg.Refresher,
		observer:  cfg.Observer,
		logger:    cfg.Logger,
		metrics:   &RefreshMetrics{},
	}
}

// Interval is the ticker period for RunEvery.
func (j *RefreshJob) Interval() time.Duration {
	return j.config.Interval
}

// RefreshResult contains the result of one run.
type RefreshResult struct {
	StartTime      time.Time
	EndTime        time.Time
	Duration       time.Duration
	TotalOperators int
	Successful     int
	Failed         int
	Errors         []RefreshError
}

// RefreshError is the failure of one operator.
type RefreshError struct {
	Operator string
	Error    string
}

// Err summarizes the run: nil when every operator succeeded.
func (r *RefreshResult) Err() error {
	switch {
	case r.TotalOperators == 0:
		return ErrNoOperators
	case r.Failed == 0:
		return nil
	default:
		return fmt.Errorf("refresh failed for %d/%d operators: %s", r.Failed, r.TotalOperators, r.Errors[0].Error)
	}
}

// Run refreshes the configured operators.
func (j *RefreshJob) Run(ctx context.Context) *RefreshResult {
	return j.RunOperators(ctx, nil)
}

// RunOperators refreshes operators, or the configured set when empty.
func (j *RefreshJob) RunOperators(ctx context.Context, operators []string) *RefreshResult {
	start := time.Now()
	operators = j.operators(operators)
	result := &RefreshResult{StartTime: start, TotalOperators: len(operators)}

	j.logger.Info().
		Strs("operators", operators).
		Int("concurrency", j.config.Concurrency).
		Msg("starting gbfs refresh job")

	jobs := make(chan string, len(operators))
	results := make(chan operatorResult, len(operators))

	var wg sync.WaitGroup
	for i := 0; i < min(j.config.Concurrency, len(operators)); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			j.refreshWorker(ctx, jobs, results)
		}()
	}

	for _, op := range operators {
		jobs <- op
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	for or := range results {
		if or.err == nil {
			result.Successful++
			continue
		}
		result.Failed++
		result.Errors = append(result.Errors, RefreshError{Operator: or.operator, Error: or.err.Error()})
	}
	// Operators skipped after cancellation count as failed.
	if skipped := result.TotalOperators - result.Successful - result.Failed; skipped > 0 {
		result.Failed += skipped
		result.Errors = append(result.Errors, RefreshError{Operator: "*", Error: context.Cause(ctx).Error()})
	}

	result.EndTime = time.Now()
	result.Duration = result.EndTime.Sub(start)
	j.updateMetrics(result)

	j.logger.Info().
		Dur("duration", result.Duration).
		Int("successful", result.Successful).
		Int("failed", result.Failed).
		Msg("gbfs refresh job completed")

	return result
}

// HealthCheck refreshes a single operator to verify feed connectivity.
func (j *RefreshJob) HealthCheck(ctx context.Context) error {
	operators := j.operators(nil)
	if len(operators) == 0 {
		return ErrNoOperators
	}
	or := j.refreshOperator(ctx, operators[0])
	if or.err != nil {
		return fmt.Errorf("health check %s: %w", or.operator, or.err)
	}
	return nil
}

// RunEvery runs the job immediately and then every Interval until ctx is done.
func (j *RefreshJob) RunEvery(ctx context.Context) {
	ticker := time.NewTicker(j.config.Interval)
	defer ticker.Stop()

	for {
		if err := j.Run(ctx).Err(); err != nil {
			j.logger.Warn().Err(err).Msg("scheduled gbfs refresh incomplete")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (j *RefreshJob) operators(requested []string) []string {
	if len(requested) > 0 {
		return requested
	}
	if len(j.config.Operators) > 0 {
		return j.config.Operators
	}
	if j.refresher == nil {
		return nil
	}
	return j.refresher.Operators()
}

type operatorResult struct {
	operator string
	err      error
}

func (j *RefreshJob) refreshWorker(ctx context.Context, operators <-chan string, results chan<- operatorResult) {
	for op := range operators {
		select {
		case <-ctx.Done():
			return
		default:
			results <- j.refreshOperator(ctx, op)
		}
	}
}

func (j *RefreshJob) refreshOperator(ctx context.Context, op string) operatorResult {
	if j.refresher == nil {
		return operatorResult{operator: op, err: errors.New("no feed refresher configured")}
	}

	opCtx, cancel := context.WithTimeout(ctx, j.config.Timeout)
	defer cancel()

	start := time.Now()
	err := j.refresher.Refresh(opCtx, op)
	if j.observer != nil {
		j.observer.ObserveCall("gbfs."+op, time.Since(start), err)
	}
	if err != nil {
		j.logger.Warn().Err(err).Str("operator", op).Msg("gbfs refresh failed")
	}
	return operatorResult{operator: op, err: err}
}

func (j *RefreshJob) updateMetrics(result *RefreshResult) {
	j.metrics.mu.Lock()
	defer j.metrics.mu.Unlock()

	j.metrics.TotalRuns++
	j.metrics.OperatorsRefreshed += int64(result.Successful)
	j.metrics.OperatorsFailed += int64(result.Failed)
	j.metrics.LastRunAt = result.EndTime
	j.metrics.LastRunDuration = result.Duration
	j.metrics.LastError = ""
	if err := result.Err(); err != nil {
		j.metrics.LastError = err.Error()
	}
}

// GetMetrics returns a copy of the current metrics.
func (j *RefreshJob) GetMetrics() RefreshMetrics {
	j.metrics.mu.RLock()
	defer j.metrics.mu.RUnlock()

	return RefreshMetrics{
		TotalRuns:          j.metrics.TotalRuns,
		OperatorsRefreshed: j.metrics.OperatorsRefreshed,
		OperatorsFailed:    j.metrics.OperatorsFailed,
		LastRunAt:          j.metrics.LastRunAt,
		LastRunDuration:    j.metrics.LastRunDuration,
		LastError:          j.metrics.LastError,
	}
}

// MetricsSnapshot returns the current metrics as a map, for the health endpoint.
func (j *RefreshJob) MetricsSnapshot() map[string]interface{} {
	m := j.GetMetrics()
	return map[string]interface{}{
		"total_runs":          m.TotalRuns,
		"operators_refreshed": m.OperatorsRefreshed,
		"operators_failed":    m.OperatorsFailed,
		"last_run_at":         m.LastRunAt,
		"last_run_duration":   m.LastRunDuration.String(),
		"last_error":          m.LastError,
	}
}
