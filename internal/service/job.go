package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/UPI05/InsecMed/internal/core"
	domainjob "github.com/UPI05/InsecMed/internal/domain/job"
	"github.com/UPI05/InsecMed/internal/domain/model"
	"github.com/UPI05/InsecMed/internal/observability/notify"
	"github.com/UPI05/InsecMed/internal/service/failurenotifier"
)

// JobServiceOptions groups dependencies for JobService.
type JobServiceOptions struct {
	Repo            core.JobRepository              // Required: job repository
	DefaultLease    time.Duration                   // Required: lease for job types without an override
	Leases          map[model.JobType]time.Duration // Optional: per-type lease overrides
	Logger          *slog.Logger                    // Optional: structured logger
	FailureNotifier *failurenotifier.Service        // Optional: failure notification fan-out
	Notifier        domainjob.Notifier              // Optional: custom job availability notifier
	NotifierOptions domainjob.NotifierOptions       // Optional: configure default notifier behaviour
}

// JobService wraps the queue with lease handling, job-available
// notifications and failure fan-out.
type JobService struct {
	repo            core.JobRepository
	defaultLease    *domainjob.LeasePolicy
	leases          map[model.JobType]*domainjob.LeasePolicy
	notifier        domainjob.Notifier
	logger          *slog.Logger
	failureNotifier *failurenotifier.Service
}

// NewJobService constructs a new JobService.
func NewJobService(opts JobServiceOptions) (*JobService, error) {
	if opts.Repo == nil {
		return nil, errors.New("JobRepository is required")
	}

	defaultLease, err := domainjob.NewLeasePolicy(opts.DefaultLease)
	if err != nil {
		return nil, fmt.Errorf("create lease policy: %w", err)
	}
	leases := make(map[model.JobType]*domainjob.LeasePolicy, len(opts.Leases))
	for jobType, lease := range opts.Leases {
		policy, policyErr := domainjob.NewLeasePolicy(lease)
		if policyErr != nil {
			return nil, fmt.Errorf("create %s lease policy: %w", jobType, policyErr)
		}
		leases[jobType] = policy
	}

	notifier := opts.Notifier
	if notifier == nil {
		options := opts.NotifierOptions
		if options.Waiter == nil {
			options.Waiter = opts.Repo
		}
		notifier, err = domainjob.NewNotifier(options)
		if err != nil {
			return nil, fmt.Errorf("create job notifier: %w", err)
		}
	}

	var logger *slog.Logger
	if opts.Logger != nil {
		logger = opts.Logger.With("component", "job_service")
		logger.Debug("JobService initialized",
			"default_lease", defaultLease.Lease(),
			"lease_overrides", len(leases),
		)
	}

	return &JobService{
		repo:            opts.Repo,
		defaultLease:    defaultLease,
		leases:          leases,
		notifier:        notifier,
		logger:          logger,
		failureNotifier: opts.FailureNotifier,
	}, nil
}

// MustNewJobService constructs a new JobService and panics on error.
// Use this when you're certain the options are valid (e.g., in main.go).
func MustNewJobService(opts JobServiceOptions) *JobService {
	svc, err := NewJobService(opts)
	if err != nil {
		//nolint:forbidigo // Must constructor fails fast when dependencies are invalid during startup
		panic(fmt.Sprintf("failed to create JobService: %v", err))
	}
	return svc
}

// LeasePolicy returns the lease policy applied to jobs of jobType.
func (s *JobService) LeasePolicy(jobType model.JobType) *domainjob.LeasePolicy {
	if p, ok := s.leases[jobType]; ok {
		return p
	}
	return s.defaultLease
}

// Create enqueues a new job.
func (s *JobService) Create(ctx context.Context, req *model.CreateJobRequest) (*model.Job, error) {
	job, err := s.repo.Create(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}

	if s.logger != nil {
		s.logger.DebugContext(ctx, "job created",
			"id", job.ID,
			"type", job.Type,
			"owner", job.OwnerID,
		)
	}

	return job, nil
}

// ReserveNext reserves the next available job of the given type for processing.
// It returns model.ErrNoJobsAvailable when the queue is empty.
func (s *JobService) ReserveNext(ctx context.Context, jobType model.JobType) (*model.Job, error) {
	seconds := s.LeasePolicy(jobType).Seconds()
	job, err := s.repo.ReserveNext(ctx, jobType, seconds)
	if err != nil {
		return nil, fmt.Errorf("reserve next job: %w", err)
	}

	if s.logger != nil && job != nil {
		s.logger.DebugContext(ctx, "job reserved",
			"id", job.ID,
			"type", jobType,
			"lease_seconds", seconds,
		)
	}

	return job, nil
}

// Subscribe creates a subscription for job notifications of the given type.
// Returns an unsubscribe function and a channel that receives notifications.
func (s *JobService) Subscribe(jobType model.JobType) (func(), <-chan struct{}) {
	if s.notifier == nil {
		ch := make(chan struct{})
		close(ch)
		return func() {}, ch
	}
	return s.notifier.Subscribe(jobType)
}

// WaitForNotification waits for a notification indicating new jobs are available.
func (s *JobService) WaitForNotification(ctx context.Context, jobType model.JobType) error {
	return s.repo.WaitForNotification(ctx, jobType)
}

// Heartbeat renews the lease on a running job. It returns false once the
// job is no longer running.
func (s *JobService) Heartbeat(ctx context.Context, job *model.Job) (bool, error) {
	if job == nil {
		return false, errors.New("job is required")
	}
	seconds := s.LeasePolicy(job.Type).Seconds()
	updated, err := s.repo.Heartbeat(ctx, job.ID, seconds)
	if err != nil {
		return false, fmt.Errorf("heartbeat job %s: %w", job.ID, err)
	}

	if s.logger != nil && updated {
		s.logger.DebugContext(ctx, "job heartbeat updated", "id", job.ID, "extend_seconds", seconds)
	}

	return updated, nil
}

// Complete marks a job as completed successfully.
func (s *JobService) Complete(ctx context.Context, id string) (bool, error) {
	completed, err := s.repo.Complete(ctx, id)
	if err != nil {
		return false, fmt.Errorf("complete job %s: %w", id, err)
	}

	if s.logger != nil && completed {
		s.logger.DebugContext(ctx, "job completed", "id", id)
	}

	return completed, nil
}

// Fail marks a job as failed with the given error message.
func (s *JobService) Fail(ctx context.Context, id, errMsg string) (bool, error) {
	return s.FailWithDetails(ctx, id, errMsg, JobFailureDetails{})
}

// JobFailureDetails captures optional context for failure notifications.
type JobFailureDetails struct {
	ErrorClass string
	Metadata   map[string]string
	Severity   string
	OccurredAt time.Time
}

// FailWithDetails marks a job as failed and propagates optional metadata to the notifier.
func (s *JobService) FailWithDetails(
	ctx context.Context,
	id, errMsg string,
	details JobFailureDetails,
) (bool, error) {
	if errMsg == "" {
		return false, errors.New("error message required")
	}

	var job *model.Job
	if s.failureNotifier != nil && s.failureNotifier.Enabled() {
		var err error
		job, err = s.repo.GetByID(ctx, id)
		if err != nil && s.logger != nil {
			s.logger.WarnContext(ctx, "failed to load job for failure notification", "job_id", id, "error", err)
		}
	}

	failed, err := s.repo.Fail(ctx, id, errMsg)
	if err != nil {
		return false, fmt.Errorf("fail job %s: %w", id, err)
	}

	if s.logger != nil && failed {
		s.logger.DebugContext(ctx, "job failed", "id", id, "error", errMsg)
	}

	if failed && s.failureNotifier != nil && s.failureNotifier.Enabled() {
		s.failureNotifier.NotifyJobFailure(ctx, buildJobFailurePayload(id, job, errMsg, details))
	}

	return failed, nil
}

func buildJobFailurePayload(id string, job *model.Job, errMsg string, details JobFailureDetails) notify.JobFailurePayload {
	payload := notify.JobFailurePayload{
		JobID:      id,
		Error:      errMsg,
		ErrorClass: details.ErrorClass,
		Severity:   details.Severity,
		OccurredAt: details.OccurredAt,
		Metadata:   copyMetadata(details.Metadata),
	}
	if payload.Severity == "" {
		payload.Severity = notify.SeverityCritical
	}
	if payload.OccurredAt.IsZero() {
		payload.OccurredAt = time.Now()
	}

	if job != nil {
		applyJobContext(&payload, job)
	}
	if payload.ErrorClass != "" {
		payload.Metadata = mergeMetadata(payload.Metadata, map[string]string{
			"error_class": payload.ErrorClass,
		})
	}
	if len(payload.Metadata) == 0 {
		payload.Metadata = nil
	}
	return payload
}

func applyJobContext(payload *notify.JobFailurePayload, job *model.Job) {
	payload.JobType = string(job.Type)
	payload.OwnerID = job.OwnerID
	payload.Models = modelsFromPayload(job)

	payload.Metadata = mergeMetadata(payload.Metadata, map[string]string{
		"retry_count": strconv.Itoa(job.RetryCount),
		"max_retries": strconv.Itoa(job.MaxRetries),
		"priority":    strconv.Itoa(job.Priority),
	})
}

// modelsFromPayload extracts the requested model names from a job payload.
func modelsFromPayload(job *model.Job) []string {
	if len(job.Payload) == 0 {
		return nil
	}
	switch job.Type {
	case model.JobTypeDiagnosis:
		var p model.DiagnosisJobPayload
		if err := json.Unmarshal(job.Payload, &p); err == nil {
			return p.Models
		}
	case model.JobTypeQA:
		var p model.QAJobPayload
		if err := json.Unmarshal(job.Payload, &p); err == nil && p.Model != "" {
			return []string{p.Model}
		}
	}
	return nil
}

func copyMetadata(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	dst := make(map[string]string, len(src))
	for k, v := range src {
		if strings.TrimSpace(k) == "" || strings.TrimSpace(v) == "" {
			continue
		}
		dst[k] = v
	}
	return dst
}

func mergeMetadata(base, extra map[string]string) map[string]string {
	out := copyMetadata(base)
	if out == nil && len(extra) == 0 {
		return nil
	}
	if out == nil {
		out = make(map[string]string, len(extra))
	}
	for k, v := range extra {
		key := strings.TrimSpace(k)
		val := strings.TrimSpace(v)
		if key == "" || val == "" {
			continue
		}
		out[key] = val
	}
	return out
}

// Stats returns statistics about jobs of the given type in different states.
func (s *JobService) Stats(ctx context.Context, jobType model.JobType) (*model.JobStats, error) {
	stats, err := s.repo.Stats(ctx, jobType)
	if err != nil {
		return nil, fmt.Errorf("get job stats for type %s: %w", jobType, err)
	}
	return stats, nil
}

// GetByID returns a job by its ID.
func (s *JobService) GetByID(ctx context.Context, id string) (*model.Job, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get job by id %s: %w", id, err)
	}
	return job, nil
}

// StopAllListeners stops all active job notification listeners.
// This should be called during graceful shutdown to clean up goroutines.
func (s *JobService) StopAllListeners() {
	if s.logger != nil {
		s.logger.Info("stopping all job listeners")
	}

	if s.notifier != nil {
		s.notifier.StopAll()
	}
}
