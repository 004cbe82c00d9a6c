package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/UPI05/InsecMed/config"
	"github.com/UPI05/InsecMed/internal/adapters/storage"
	"github.com/UPI05/InsecMed/internal/core"
	"github.com/UPI05/InsecMed/internal/data"
	"github.com/UPI05/InsecMed/internal/domain/model"
	apperrors "github.com/UPI05/InsecMed/internal/errors"
	"github.com/UPI05/InsecMed/internal/observability/metrics"
	"github.com/UPI05/InsecMed/internal/observability/statsd"
)

// maxQuestionLen bounds the free-text Q&A question.
const maxQuestionLen = 2000

// DispatchServiceOptions groups dependencies for DispatchService.
type DispatchServiceOptions struct {
	Jobs      core.JobRepository      // Required: queue
	Diagnoses core.RecordRepository   // Required: diagnosis result store
	QA        core.RecordRepository   // Required: Q&A result store
	Store     core.ArtifactStore      // Required: upload storage
	Subjects  *SubjectResolver        // Optional: defaults to self/none subjects only
	Limiter   *core.SubmitRateLimiter // Optional: per-principal submit limit
	Cache     *core.StatusCache       // Optional: terminal status cache
	Status    config.StatusConfig     // Failure redaction settings
	Logger    *slog.Logger            // Optional: structured logger
	Metrics   statsd.Sink             // Optional: metrics sink
}

// DispatchService validates and enqueues diagnosis and Q&A work and derives
// the polling state of a handle.
type DispatchService struct {
	jobs     core.JobRepository
	records  map[model.RecordKind]core.RecordRepository
	store    core.ArtifactStore
	subjects *SubjectResolver
	limiter  *core.SubmitRateLimiter
	cache    *core.StatusCache
	status   config.StatusConfig
	logger   *slog.Logger
	metrics  statsd.Sink
}

// NewDispatchService constructs a DispatchService.
func NewDispatchService(opts DispatchServiceOptions) (*DispatchService, error) {
	if opts.Jobs == nil {
		return nil, errors.New("JobRepository is required")
	}
	if opts.Diagnoses == nil || opts.QA == nil {
		return nil, errors.New("diagnosis and qa record repositories are required")
	}
	if opts.Store == nil {
		return nil, errors.New("ArtifactStore is required")
	}
	subjects := opts.Subjects
	if subjects == nil {
		subjects = NewSubjectResolver(nil)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &DispatchService{
		jobs: opts.Jobs,
		records: map[model.RecordKind]core.RecordRepository{
			model.RecordKindDiagnosis: opts.Diagnoses,
			model.RecordKindQA:        opts.QA,
		},
		store:    opts.Store,
		subjects: subjects,
		limiter:  opts.Limiter,
		cache:    opts.Cache,
		status:   opts.Status,
		logger:   logger.With("component", "dispatch_service"),
		metrics:  opts.Metrics,
	}, nil
}

// Upload is an uploaded image as received from the client.
type Upload struct {
	Filename string
	Body     io.Reader
}

// DiagnosisSubmission is a request to run one or more models on an image.
type DiagnosisSubmission struct {
	Principal string
	Models    string // comma-separated selector
	SubjectID string
	Upload    Upload
}

// QASubmission is a request to ask one model a question about an image.
type QASubmission struct {
	Principal string
	Model     string
	Question  string
	SubjectID string
	Upload    Upload
}

// SubmitDiagnosis stores the upload and enqueues a diagnosis job.
func (s *DispatchService) SubmitDiagnosis(ctx context.Context, in DiagnosisSubmission) (*model.SubmitResponse, error) {
	models := model.ParseModelSelector(in.Models)
	if len(models) == 0 {
		return nil, apperrors.ValidationField("model", "at least one model is required")
	}

	subject, err := s.admit(ctx, in.Principal, in.SubjectID, in.Upload)
	if err != nil {
		return nil, err
	}

	name, err := s.saveUpload(ctx, "", in.Upload)
	if err != nil {
		return nil, err
	}

	return s.enqueue(ctx, model.JobTypeDiagnosis, in.Principal, model.DiagnosisJobPayload{
		Models:        models,
		InputArtifact: name,
		SubjectID:     subject,
	})
}

// SubmitQA stores the upload and enqueues a Q&A job.
func (s *DispatchService) SubmitQA(ctx context.Context, in QASubmission) (*model.SubmitResponse, error) {
	question := strings.TrimSpace(in.Question)
	if question == "" {
		return nil, apperrors.ValidationField("question", "question is required")
	}
	if len(question) > maxQuestionLen {
		return nil, apperrors.ValidationField("question", "question is too long")
	}
	models := model.ParseModelSelector(in.Model)
	if len(models) != 1 {
		return nil, apperrors.ValidationField("model", "exactly one model is required")
	}

	subject, err := s.admit(ctx, in.Principal, in.SubjectID, in.Upload)
	if err != nil {
		return nil, err
	}

	name, err := s.saveUpload(ctx, storage.QAPrefix, in.Upload)
	if err != nil {
		return nil, err
	}

	return s.enqueue(ctx, model.JobTypeQA, in.Principal, model.QAJobPayload{
		Model:         models[0],
		Question:      question,
		InputArtifact: name,
		SubjectID:     subject,
	})
}

// admit runs the checks shared by both submissions before anything is written.
func (s *DispatchService) admit(ctx context.Context, principal, subjectID string, up Upload) (*string, error) {
	if principal == "" {
		return nil, apperrors.Unauthorized("authentication required")
	}
	if up.Body == nil || strings.TrimSpace(up.Filename) == "" {
		return nil, apperrors.ValidationField("file", "an image file is required")
	}

	subject, err := s.subjects.Resolve(ctx, principal, subjectID)
	if err != nil {
		return nil, err
	}

	allowed, err := s.limiter.Allow(ctx, principal)
	if err != nil {
		// Fail open.
		s.logger.WarnContext(ctx, "submit rate limiter unavailable", "error", err)
		allowed = true
	}
	if !allowed {
		return nil, apperrors.RateLimited("too many submissions, try again in a minute")
	}
	return subject, nil
}

func (s *DispatchService) saveUpload(ctx context.Context, prefix string, up Upload) (string, error) {
	name, err := s.store.SaveUpload(ctx, prefix, up.Filename, up.Body)
	if err != nil {
		return "", toAppError(err, "store upload")
	}
	return name, nil
}

func (s *DispatchService) enqueue(ctx context.Context, jobType model.JobType, owner string, payload any) (*model.SubmitResponse, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "encode job payload")
	}

	job, err := s.jobs.Create(ctx, &model.CreateJobRequest{
		Type:       jobType,
		Payload:    raw,
		OwnerID:    owner,
		MaxRetries: 0,
	})
	metrics.EmitJobLifecycle(s.metrics, metrics.JobMetric{
		JobType:    string(jobType),
		Transition: metrics.TransitionSubmit,
		Result:     resultFor(err),
		Err:        err,
	})
	if err != nil {
		return nil, toAppError(err, "enqueue job")
	}

	s.logger.InfoContext(ctx, "job submitted", "handle", job.ID, "type", jobType, "owner", owner)
	return &model.SubmitResponse{Handle: job.ID, Status: model.HandleStateQueued}, nil
}

// Status derives the polling state of handle from the queue row and the
// result row. It writes nothing except the terminal status cache.
func (s *DispatchService) Status(ctx context.Context, handle string) (*model.HandleStatus, error) {
	handle = strings.TrimSpace(handle)
	if _, err := uuid.Parse(handle); err != nil {
		return nil, apperrors.NotFound("job not found")
	}

	if cached, err := s.cache.Get(ctx, handle); err != nil {
		s.logger.WarnContext(ctx, "status cache read failed", "handle", handle, "error", err)
	} else if cached != nil {
		return cached, nil
	}

	job, err := s.jobs.GetByID(ctx, handle)
	if err != nil && !errors.Is(err, data.ErrJobNotFound) {
		return nil, toAppError(err, "load job")
	}
	if errors.Is(err, data.ErrJobNotFound) {
		job = nil
	}

	st, err := s.derive(ctx, handle, job)
	if err != nil {
		return nil, err
	}

	if err := s.cache.Put(ctx, st); err != nil {
		s.logger.WarnContext(ctx, "status cache write failed", "handle", handle, "error", err)
	}
	return st, nil
}

func (s *DispatchService) derive(ctx context.Context, handle string, job *model.Job) (*model.HandleStatus, error) {
	kinds := []model.RecordKind{model.RecordKindDiagnosis, model.RecordKindQA}
	if job != nil {
		kinds = []model.RecordKind{job.Type.RecordKind()}
	}

	for _, kind := range kinds {
		rec, err := s.records[kind].GetByHandle(ctx, handle)
		if errors.Is(err, data.ErrRecordNotFound) {
			continue
		}
		if err != nil {
			return nil, toAppError(err, "load result")
		}
		return finishedStatus(rec)
	}

	if job == nil {
		return nil, apperrors.NotFound("job not found")
	}

	kind := job.Type.RecordKind()
	st := &model.HandleStatus{Handle: handle, Kind: kind}
	switch job.Status {
	case model.JobStatusPending:
		st.Status = model.HandleStateQueued
	case model.JobStatusRunning:
		st.Status = model.HandleStateRunning
	case model.JobStatusFailed:
		st.Status = model.HandleStateFailed
		reason := "job failed"
		if job.LastError != nil && *job.LastError != "" {
			reason = *job.LastError
		}
		st.Error = s.redact(kind, reason)
	case model.JobStatusCompleted:
		// Complete always follows Append.
		s.logger.ErrorContext(ctx, "completed job has no result row", "handle", handle, "type", job.Type)
		st.Status = model.HandleStateFailed
		st.Error = s.redact(kind, "result missing")
	default:
		return nil, apperrors.Internalf("unknown job status %q", job.Status)
	}
	return st, nil
}

func (s *DispatchService) redact(kind model.RecordKind, reason string) string {
	switch kind {
	case model.RecordKindDiagnosis:
		if s.status.RedactDiagnosisFailures {
			return model.RedactedReason
		}
	case model.RecordKindQA:
		if s.status.RedactQAFailures {
			return model.RedactedReason
		}
	}
	return reason
}

func finishedStatus(rec *model.Record) (*model.HandleStatus, error) {
	raw, err := json.Marshal(rec)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "encode result")
	}
	return &model.HandleStatus{
		Handle:   rec.Handle,
		Kind:     rec.Kind,
		Status:   model.HandleStateFinished,
		RecordID: rec.ID,
		Summary:  rec.Summary,
		Result:   raw,
	}, nil
}

func resultFor(err error) string {
	if err != nil {
		return metrics.ResultError
	}
	return metrics.ResultSuccess
}
