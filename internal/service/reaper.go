package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/UPI05/InsecMed/config"
	"github.com/UPI05/InsecMed/internal/core"
	"github.com/UPI05/InsecMed/internal/domain/model"
	obserrors "github.com/UPI05/InsecMed/internal/observability/errors"
	"github.com/UPI05/InsecMed/internal/observability/metrics"
	"github.com/UPI05/InsecMed/internal/observability/statsd"
)

// ReaperServiceOptions groups dependencies for ReaperService.
type ReaperServiceOptions struct {
	Repo    core.ReaperRepository // Required: reaper repository
	Config  config.ReaperConfig   // Required: reaper configuration
	Logger  *slog.Logger          // Optional: structured logger
	Metrics statsd.Sink           // Optional: metrics sink (StatsD-compatible)
}

// ReaperService keeps the job queue bounded.
//
// Each sweep fails pending jobs nobody reserved in time, then deletes
// completed and failed queue rows past the retention window. Diagnosis and
// Q&A result rows live in their own tables and are left alone.
type ReaperService struct {
	repo    core.ReaperRepository
	config  config.ReaperConfig
	logger  *slog.Logger
	metrics statsd.Sink
	now     func() time.Time
}

// NewReaperService constructs a new ReaperService.
func NewReaperService(opts ReaperServiceOptions) (*ReaperService, error) {
	if opts.Repo == nil {
		return nil, errors.New("ReaperRepository is required")
	}
	if opts.Config.BatchSize < 1 {
		return nil, errors.New("reaper batch size must be positive")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "reaper_service")
	logger.Debug("ReaperService initialized",
		"schedule", opts.Config.Schedule,
		"pending_max_age", opts.Config.PendingMaxAge,
		"job_retention", opts.Config.JobRetention,
		"batch_size", opts.Config.BatchSize,
	)

	return &ReaperService{
		repo:    opts.Repo,
		config:  opts.Config,
		logger:  logger,
		metrics: opts.Metrics,
		now:     time.Now,
	}, nil
}

// Run sweeps once immediately and then on every tick of the configured cron
// schedule until ctx is cancelled. Overlapping sweeps are skipped.
// Returns nil on graceful shutdown.
func (s *ReaperService) Run(ctx context.Context) error {
	sched := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := sched.AddFunc(s.config.Schedule, func() {
		s.sweep(ctx, "cleanup")
	}); err != nil {
		return fmt.Errorf("parse reaper schedule %q: %w", s.config.Schedule, err)
	}

	s.logger.InfoContext(ctx, "starting reaper service", "schedule", s.config.Schedule)
	s.sweep(ctx, "initial cleanup")

	sched.Start()
	<-ctx.Done()
	stopped := sched.Stop()
	<-stopped.Done()

	s.logger.InfoContext(ctx, "reaper service stopping", "reason", ctx.Err())
	if errors.Is(ctx.Err(), context.Canceled) {
		return nil
	}
	return ctx.Err()
}

func (s *ReaperService) sweep(ctx context.Context, label string) {
	if ctx.Err() != nil {
		return
	}
	if err := s.RunOnce(ctx); err != nil {
		s.logCleanupError(err, label)
	}
}

// RunOnce performs a single sweep.
func (s *ReaperService) RunOnce(ctx context.Context) error {
	start := s.now()
	var (
		errs               []error
		allContextCanceled = true
		m                  cleanupMetrics
	)

	steps := []cleanupStep{
		{
			fn:        s.failStalePendingJobs,
			label:     "fail stale pending jobs",
			count:     &m.PendingCount,
			metricErr: &m.PendingErr,
		},
		{
			fn:        s.deleteOldJobs(model.JobStatusCompleted),
			label:     "delete old completed jobs",
			count:     &m.CompletedCount,
			metricErr: &m.CompletedErr,
		},
		{
			fn:        s.deleteOldJobs(model.JobStatusFailed),
			label:     "delete old failed jobs",
			count:     &m.FailedCount,
			metricErr: &m.FailedErr,
		},
	}

	for _, step := range steps {
		outcome := s.executeCleanupStep(ctx, step.fn, step.label)
		*step.count = outcome.count
		*step.metricErr = outcome.metricErr
		if outcome.aggregateErr != nil {
			errs = append(errs, outcome.aggregateErr)
			allContextCanceled = allContextCanceled && outcome.canceled
		}
	}

	m.Elapsed = s.now().Sub(start)
	s.emitCleanupMetrics(m)

	if len(errs) > 0 {
		joined := errors.Join(errs...)
		if allContextCanceled && isContextCancellation(joined) {
			return context.Canceled
		}
		return fmt.Errorf("cleanup failed: %w", joined)
	}
	return nil
}

type cleanupFunc func(context.Context) (int64, error)

type cleanupStep struct {
	fn        cleanupFunc
	label     string
	count     *int64
	metricErr *error
}

type cleanupStepOutcome struct {
	count        int64
	metricErr    error
	aggregateErr error
	canceled     bool
}

func (s *ReaperService) executeCleanupStep(ctx context.Context, fn cleanupFunc, label string) cleanupStepOutcome {
	count, err := fn(ctx)
	outcome := cleanupStepOutcome{
		count:     count,
		metricErr: suppressContextCancellation(err),
		canceled:  isContextCancellation(err),
	}
	if err != nil {
		outcome.aggregateErr = fmt.Errorf("%s: %w", label, err)
	}
	return outcome
}

// drain calls batch until it affects no rows, checking ctx between batches.
func drain(ctx context.Context, batch func() (int64, error)) (int64, error) {
	var total int64
	for {
		n, err := batch()
		if err != nil {
			return total, err
		}
		total += n
		if n == 0 {
			return total, nil
		}
		if ctx.Err() != nil {
			return total, ctx.Err()
		}
	}
}

func (s *ReaperService) failStalePendingJobs(ctx context.Context) (int64, error) {
	total, err := drain(ctx, func() (int64, error) {
		return s.repo.FailStalePendingJobs(ctx, s.config.PendingMaxAge, s.config.BatchSize)
	})
	if total > 0 {
		s.logger.InfoContext(ctx, "failed stale pending jobs",
			"count", total,
			"max_age", s.config.PendingMaxAge,
		)
	}
	return total, err
}

func (s *ReaperService) deleteOldJobs(status model.JobStatus) cleanupFunc {
	return func(ctx context.Context) (int64, error) {
		total, err := drain(ctx, func() (int64, error) {
			return s.repo.DeleteOldJobs(ctx, core.DeleteOldJobsParams{
				Status:    status,
				MaxAge:    s.config.JobRetention,
				BatchSize: s.config.BatchSize,
			})
		})
		if total > 0 {
			s.logger.InfoContext(ctx, "deleted old jobs",
				"status", status,
				"count", total,
				"max_age", s.config.JobRetention,
			)
		}
		return total, err
	}
}

type cleanupMetrics struct {
	PendingCount   int64
	PendingErr     error
	CompletedCount int64
	CompletedErr   error
	FailedCount    int64
	FailedErr      error
	Elapsed        time.Duration
}

func (s *ReaperService) emitCleanupMetrics(m cleanupMetrics) {
	if s.metrics == nil {
		return
	}

	total := m.PendingCount + m.CompletedCount + m.FailedCount
	firstErr := firstError(m.PendingErr, m.CompletedErr, m.FailedErr)

	result := metrics.ResultSuccess
	if firstErr != nil {
		result = metrics.ResultError
	} else if total == 0 {
		result = metrics.ResultNoop
	}

	tags := map[string]string{"result": result}
	if firstErr != nil {
		if class := obserrors.Classify(firstErr); class != "" {
			tags["error_class"] = class
		}
	}

	s.metrics.Count("reaper.cleanup", 1, tags)
	if m.Elapsed > 0 {
		s.metrics.Timing("reaper.cleanup_duration", m.Elapsed, metrics.CloneTags(tags))
	}

	metrics.EmitReaperSweep(s.metrics, "fail_pending", m.PendingCount)
	metrics.EmitReaperSweep(s.metrics, "delete_completed", m.CompletedCount)
	metrics.EmitReaperSweep(s.metrics, "delete_failed", m.FailedCount)

	if firstErr == nil {
		s.metrics.Gauge("reaper.last_success_epoch", float64(s.now().Unix()), nil)
	}
}

func (s *ReaperService) logCleanupError(err error, label string) {
	if err == nil {
		return
	}
	if isContextCancellation(err) {
		s.logger.Debug(label+" cancelled by context", "error", err)
		return
	}
	s.logger.Error(label+" failed", "error", err)
}

func firstError(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func isContextCancellation(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}

func suppressContextCancellation(err error) error {
	if isContextCancellation(err) {
		return nil
	}
	return err
}
