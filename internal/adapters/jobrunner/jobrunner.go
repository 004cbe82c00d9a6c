// Package jobrunner runs diagnosis and Q&A pipelines against the Postgres job queue.
package jobrunner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/UPI05/InsecMed/internal/core"
	"github.com/UPI05/InsecMed/internal/data"
	"github.com/UPI05/InsecMed/internal/domain/model"
	obserrors "github.com/UPI05/InsecMed/internal/observability/errors"
	"github.com/UPI05/InsecMed/internal/observability/metrics"
	"github.com/UPI05/InsecMed/internal/observability/statsd"
	"github.com/UPI05/InsecMed/internal/service"
	"github.com/UPI05/InsecMed/internal/service/failurenotifier"
)

// Pipeline processes one reserved job and returns the record it appended.
type Pipeline interface {
	Run(ctx context.Context, job *model.Job) (*model.Record, error)
}

// RunnerOptions configures the job runner adapter.
type RunnerOptions struct {
	DB     *sql.DB
	Logger *slog.Logger

	// Job processing settings
	JobType     model.JobType // which job type to process; required
	Lease       time.Duration // per-job lease duration; defaults to 30s
	Concurrency int           // number of worker goroutines; defaults to 1
	Pipeline    Pipeline      // required

	// Optional dependency injections (useful for tests/decoupling)
	JobsRepo        core.JobRepository
	Metrics         statsd.Sink
	FailureNotifier *failurenotifier.Service
}

// Runner pulls jobs of one type and hands them to its pipeline.
type Runner struct {
	jobs     *service.JobService
	pipeline Pipeline
	logger   *slog.Logger
	lease    time.Duration
	jobType  model.JobType
	workers  int
	metrics  statsd.Sink
}

// NewRunner wires the queue and constructs a job runner for a single job type.
func NewRunner(opts RunnerOptions) (*Runner, error) {
	if opts.DB == nil && opts.JobsRepo == nil {
		return nil, errors.New("either DB or JobsRepo must be provided")
	}
	if !opts.JobType.Valid() {
		return nil, fmt.Errorf("invalid job type %q", opts.JobType)
	}
	if opts.Pipeline == nil {
		return nil, errors.New("pipeline is required")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	lease := opts.Lease
	if lease <= 0 {
		lease = 30 * time.Second
	}
	workers := opts.Concurrency
	if workers <= 0 {
		workers = 1
	}

	repo := opts.JobsRepo
	if repo == nil {
		repo = data.NewJobRepo(opts.DB, data.RepoConfig{Logger: logger})
	}
	jobs, err := service.NewJobService(service.JobServiceOptions{
		Repo:            repo,
		DefaultLease:    lease,
		Logger:          logger,
		FailureNotifier: opts.FailureNotifier,
	})
	if err != nil {
		return nil, fmt.Errorf("wire job service: %w", err)
	}

	return &Runner{
		jobs:     jobs,
		pipeline: opts.Pipeline,
		logger:   logger.With("component", componentLabel(opts.JobType)),
		lease:    lease,
		jobType:  opts.JobType,
		workers:  workers,
		metrics:  opts.Metrics,
	}, nil
}

// Run starts worker goroutines and processes jobs until the context is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.InfoContext(ctx, "starting job runner", "type", r.jobType, "workers", r.workers, "lease", r.lease)
	defer r.jobs.StopAllListeners()

	// Derive a cancellable context that we can signal on first fatal error
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	unsub, ch := r.jobs.Subscribe(r.jobType)
	defer unsub()

	var wg sync.WaitGroup
	errCh := make(chan error, 1)

	for range r.workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := r.workerLoop(ctx, ch); err != nil {
				// first error wins, cancels all workers
				select {
				case errCh <- err:
					cancel()
				default:
				}
			}
		}()
	}

	wg.Wait()

	select {
	case err := <-errCh:
		return err
	default:
		return ctx.Err()
	}
}

func (r *Runner) workerLoop(ctx context.Context, notify <-chan struct{}) error {
	for ctx.Err() == nil {
		job, err := r.jobs.ReserveNext(ctx, r.jobType)
		switch {
		case err == nil:
			if job != nil {
				r.emit(job, metrics.TransitionReserve, metrics.ResultSuccess, 0, nil)
				r.processJob(ctx, job)
			}
		case errors.Is(err, model.ErrNoJobsAvailable):
			if !waitForNotify(ctx, notify) {
				return nil
			}
		case ctx.Err() != nil:
			return nil
		default:
			return fmt.Errorf("reserve next: %w", err)
		}
	}
	return nil
}

// waitForNotify reports false once ctx is done or the subscription was closed.
func waitForNotify(ctx context.Context, notify <-chan struct{}) bool {
	select {
	case <-ctx.Done():
		return false
	case _, ok := <-notify:
		return ok
	}
}

// processJob runs the pipeline detached from shutdown so an in-flight job
// reaches a terminal state; a lost lease still aborts it.
func (r *Runner) processJob(parent context.Context, job *model.Job) {
	start := time.Now()
	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	defer cancel()

	var lost atomic.Bool
	stopHeartbeat := r.startHeartbeat(ctx, job, func() {
		lost.Store(true)
		cancel()
	})
	rec, err := r.pipeline.Run(ctx, job)
	stopHeartbeat()

	if lost.Load() {
		// Another worker or the reaper owns the row now.
		r.logger.WarnContext(parent, "abandoned job after lease loss", "job_id", job.ID)
		r.emit(job, metrics.TransitionFail, metrics.ResultNoop, time.Since(start), nil)
		return
	}
	if err != nil {
		reason := service.FailureReason(err)
		r.logger.WarnContext(ctx, "job failed", "job_id", job.ID, "error", reason)
		if _, ferr := r.jobs.FailWithDetails(ctx, job.ID, reason, service.JobFailureDetails{
			ErrorClass: obserrors.Classify(err),
			Metadata: map[string]string{
				"component": componentLabel(r.jobType),
			},
		}); ferr != nil {
			r.logger.ErrorContext(ctx, "fail job error", "job_id", job.ID, "error", ferr, "original_error", err)
		}
		r.emit(job, metrics.TransitionFail, metrics.ResultError, time.Since(start), err)
		return
	}

	completed, err := r.jobs.Complete(ctx, job.ID)
	if err != nil {
		r.logger.ErrorContext(ctx, "complete job error", "job_id", job.ID, "error", err)
		r.emit(job, metrics.TransitionComplete, metrics.ResultError, time.Since(start), err)
		return
	}
	result := metrics.ResultNoop
	if completed {
		result = metrics.ResultSuccess
	}
	r.logger.InfoContext(ctx, "job finished", "job_id", job.ID, "record_id", rec.ID, "duration", time.Since(start))
	r.emit(job, metrics.TransitionComplete, result, time.Since(start), nil)
}

// startHeartbeat renews the lease until the returned func is called.
// onLost runs once if the lease can no longer be renewed.
func (r *Runner) startHeartbeat(ctx context.Context, job *model.Job, onLost func()) func() {
	interval := r.jobs.LeasePolicy(job.Type).HeartbeatInterval()
	done := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				ok, err := r.jobs.Heartbeat(ctx, job)
				if err != nil {
					r.logger.WarnContext(ctx, "heartbeat failed", "job_id", job.ID, "error", err)
					continue
				}
				if !ok {
					r.logger.WarnContext(ctx, "job lease lost", "job_id", job.ID)
					onLost()
					return
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(done)
			wg.Wait()
		})
	}
}

func (r *Runner) emit(job *model.Job, transition, result string, d time.Duration, err error) {
	metrics.EmitJobLifecycle(r.metrics, metrics.JobMetric{
		JobType:    string(job.Type),
		Transition: transition,
		Result:     result,
		Duration:   d,
		Err:        err,
	})
}

func componentLabel(jobType model.JobType) string {
	switch jobType {
	case model.JobTypeDiagnosis:
		return "diagnosis_runner"
	case model.JobTypeQA:
		return "qa_runner"
	default:
		return "job_runner"
	}
}
