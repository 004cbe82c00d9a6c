package service

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	domainjob "github.com/UPI05/InsecMed/internal/domain/job"
	"github.com/UPI05/InsecMed/internal/domain/model"
	"github.com/UPI05/InsecMed/internal/mocks"
	"github.com/UPI05/InsecMed/internal/observability/notify"
	"github.com/UPI05/InsecMed/internal/service/failurenotifier"
)

type stubJobNotifier struct {
	mu             sync.Mutex
	subscribeCalls []model.JobType
	kicks          []model.JobType
	stopCalled     bool
	subscribeFn    func(model.JobType) (func(), <-chan struct{})
}

func (s *stubJobNotifier) Subscribe(jobType model.JobType) (func(), <-chan struct{}) {
	s.mu.Lock()
	s.subscribeCalls = append(s.subscribeCalls, jobType)
	s.mu.Unlock()
	if s.subscribeFn != nil {
		return s.subscribeFn(jobType)
	}
	ch := make(chan struct{})
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }, ch
}

func (s *stubJobNotifier) Kick(jobType model.JobType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kicks = append(s.kicks, jobType)
}

func (s *stubJobNotifier) StopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopCalled = true
}

var _ domainjob.Notifier = (*stubJobNotifier)(nil)

func newTestJobService(t *testing.T, repo *mocks.MockJobRepository) (*JobService, *stubJobNotifier) {
	t.Helper()
	notifier := &stubJobNotifier{}
	svc := MustNewJobService(JobServiceOptions{
		Repo:         repo,
		DefaultLease: 30 * time.Second,
		Leases:       map[model.JobType]time.Duration{model.JobTypeQA: 90 * time.Second},
		Notifier:     notifier,
	})
	return svc, notifier
}

func captureFailures() (*failurenotifier.Service, func() []notify.JobFailurePayload) {
	var (
		mu       sync.Mutex
		captured []notify.JobFailurePayload
	)
	svc := failurenotifier.NewService(failurenotifier.Options{
		Sinks: []failurenotifier.SinkRegistration{{
			Name: "test",
			Sink: notify.SinkFunc(func(_ context.Context, p notify.JobFailurePayload) error {
				mu.Lock()
				defer mu.Unlock()
				captured = append(captured, p)
				return nil
			}),
		}},
	})
	return svc, func() []notify.JobFailurePayload {
		mu.Lock()
		defer mu.Unlock()
		return append([]notify.JobFailurePayload(nil), captured...)
	}
}

func TestNewJobService(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockJobRepository(ctrl)

	t.Run("success", func(t *testing.T) {
		notifier := &stubJobNotifier{}
		svc, err := NewJobService(JobServiceOptions{
			Repo:         repo,
			DefaultLease: 30 * time.Second,
			Notifier:     notifier,
			Logger:       slog.Default(),
		})
		require.NoError(t, err)
		assert.Equal(t, 30*time.Second, svc.LeasePolicy(model.JobTypeDiagnosis).Lease())
		assert.Equal(t, notifier, svc.notifier)
		assert.NotNil(t, svc.logger)
	})

	t.Run("builds default notifier from repo", func(t *testing.T) {
		svc, err := NewJobService(JobServiceOptions{Repo: repo, DefaultLease: time.Minute})
		require.NoError(t, err)
		assert.NotNil(t, svc.notifier)
	})

	t.Run("missing repo", func(t *testing.T) {
		svc, err := NewJobService(JobServiceOptions{DefaultLease: 30 * time.Second})
		require.Error(t, err)
		assert.Nil(t, svc)
		assert.Contains(t, err.Error(), "JobRepository is required")
	})

	t.Run("invalid default lease", func(t *testing.T) {
		_, err := NewJobService(JobServiceOptions{Repo: repo, Notifier: &stubJobNotifier{}})
		require.ErrorIs(t, err, domainjob.ErrInvalidDefaultLease)
	})

	t.Run("invalid override lease", func(t *testing.T) {
		_, err := NewJobService(JobServiceOptions{
			Repo:         repo,
			DefaultLease: time.Minute,
			Leases:       map[model.JobType]time.Duration{model.JobTypeQA: -time.Second},
			Notifier:     &stubJobNotifier{},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "qa lease policy")
	})
}

func TestMustNewJobService_Panics(t *testing.T) {
	assert.Panics(t, func() {
		MustNewJobService(JobServiceOptions{DefaultLease: 30 * time.Second})
	})
}

func TestJobService_Create(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockJobRepository(ctrl)
	svc, _ := newTestJobService(t, repo)

	req := &model.CreateJobRequest{
		Type:    model.JobTypeDiagnosis,
		Payload: json.RawMessage(`{"models":["Skin Cancer"],"input_artifact":"a.png"}`),
		OwnerID: "doc@example.com",
	}
	expected := &model.Job{ID: "job-123", Type: model.JobTypeDiagnosis, Status: model.JobStatusPending}

	repo.EXPECT().Create(gomock.Any(), req).Return(expected, nil)

	job, err := svc.Create(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, expected, job)

	repo.EXPECT().Create(gomock.Any(), req).Return(nil, errors.New("db down"))
	_, err = svc.Create(context.Background(), req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create job")
}

func TestJobService_ReserveNext_UsesPerTypeLease(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockJobRepository(ctrl)
	svc, _ := newTestJobService(t, repo)

	diag := &model.Job{ID: "d-1", Type: model.JobTypeDiagnosis}
	qa := &model.Job{ID: "q-1", Type: model.JobTypeQA}

	repo.EXPECT().ReserveNext(gomock.Any(), model.JobTypeDiagnosis, 30).Return(diag, nil)
	repo.EXPECT().ReserveNext(gomock.Any(), model.JobTypeQA, 90).Return(qa, nil)

	got, err := svc.ReserveNext(context.Background(), model.JobTypeDiagnosis)
	require.NoError(t, err)
	assert.Equal(t, diag, got)

	got, err = svc.ReserveNext(context.Background(), model.JobTypeQA)
	require.NoError(t, err)
	assert.Equal(t, qa, got)
}

func TestJobService_ReserveNext_Empty(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockJobRepository(ctrl)
	svc, _ := newTestJobService(t, repo)

	repo.EXPECT().ReserveNext(gomock.Any(), model.JobTypeDiagnosis, 30).Return(nil, model.ErrNoJobsAvailable)

	_, err := svc.ReserveNext(context.Background(), model.JobTypeDiagnosis)
	require.ErrorIs(t, err, model.ErrNoJobsAvailable)
}

func TestJobService_Heartbeat(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockJobRepository(ctrl)
	svc, _ := newTestJobService(t, repo)

	repo.EXPECT().Heartbeat(gomock.Any(), "q-1", 90).Return(true, nil)
	updated, err := svc.Heartbeat(context.Background(), &model.Job{ID: "q-1", Type: model.JobTypeQA})
	require.NoError(t, err)
	assert.True(t, updated)

	repo.EXPECT().Heartbeat(gomock.Any(), "d-1", 30).Return(false, nil)
	updated, err = svc.Heartbeat(context.Background(), &model.Job{ID: "d-1", Type: model.JobTypeDiagnosis})
	require.NoError(t, err)
	assert.False(t, updated)

	_, err = svc.Heartbeat(context.Background(), nil)
	require.Error(t, err)
}

func TestJobService_Complete(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockJobRepository(ctrl)
	svc, _ := newTestJobService(t, repo)

	repo.EXPECT().Complete(gomock.Any(), "job-123").Return(true, nil)

	completed, err := svc.Complete(context.Background(), "job-123")
	require.NoError(t, err)
	assert.True(t, completed)
}

func TestJobService_Fail(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockJobRepository(ctrl)
	svc, _ := newTestJobService(t, repo)

	t.Run("success", func(t *testing.T) {
		repo.EXPECT().Fail(gomock.Any(), "job-123", "test error").Return(true, nil)

		failed, err := svc.Fail(context.Background(), "job-123", "test error")
		require.NoError(t, err)
		assert.True(t, failed)
	})

	t.Run("empty error message", func(t *testing.T) {
		failed, err := svc.Fail(context.Background(), "job-123", "")
		require.Error(t, err)
		assert.False(t, failed)
		assert.Contains(t, err.Error(), "error message required")
	})
}

func TestJobService_FailWithDetails_NotifiesDiagnosis(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockJobRepository(ctrl)

	payload, err := json.Marshal(model.DiagnosisJobPayload{
		Models:        []string{"Skin Cancer", "Brain Tumor"},
		InputArtifact: "scan.png",
	})
	require.NoError(t, err)

	job := &model.Job{
		ID:       "job-123",
		Type:     model.JobTypeDiagnosis,
		Status:   model.JobStatusRunning,
		Payload:  payload,
		OwnerID:  "doc@example.com",
		Priority: 10,
	}

	repo.EXPECT().GetByID(gomock.Any(), job.ID).Return(job, nil)
	repo.EXPECT().Fail(gomock.Any(), job.ID, "boom").Return(true, nil)

	failureSvc, captured := captureFailures()
	svc := MustNewJobService(JobServiceOptions{
		Repo:            repo,
		DefaultLease:    30 * time.Second,
		FailureNotifier: failureSvc,
		Notifier:        &stubJobNotifier{},
	})

	failed, err := svc.FailWithDetails(context.Background(), job.ID, "boom", JobFailureDetails{
		ErrorClass: "upstream_unavailable",
		Metadata:   map[string]string{"component": "diagnosis_runner", "blank": " "},
	})
	require.NoError(t, err)
	require.True(t, failed)

	events := captured()
	require.Len(t, events, 1)
	evt := events[0]
	assert.Equal(t, job.ID, evt.JobID)
	assert.Equal(t, "diagnosis", evt.JobType)
	assert.Equal(t, "doc@example.com", evt.OwnerID)
	assert.Equal(t, []string{"Skin Cancer", "Brain Tumor"}, evt.Models)
	assert.Equal(t, "boom", evt.Error)
	assert.Equal(t, notify.SeverityCritical, evt.Severity)
	assert.False(t, evt.OccurredAt.IsZero())
	assert.Equal(t, "diagnosis_runner", evt.Metadata["component"])
	assert.Equal(t, "upstream_unavailable", evt.Metadata["error_class"])
	assert.Equal(t, "10", evt.Metadata["priority"])
	assert.NotContains(t, evt.Metadata, "blank")
}

func TestJobService_FailWithDetails_QAModel(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockJobRepository(ctrl)

	payload, err := json.Marshal(model.QAJobPayload{Model: "Skin Cancer VQA", Question: "what?"})
	require.NoError(t, err)
	job := &model.Job{ID: "q-1", Type: model.JobTypeQA, Payload: payload, OwnerID: "guest-1"}

	repo.EXPECT().GetByID(gomock.Any(), job.ID).Return(job, nil)
	repo.EXPECT().Fail(gomock.Any(), job.ID, "bad").Return(true, nil)

	failureSvc, captured := captureFailures()
	svc := MustNewJobService(JobServiceOptions{
		Repo:            repo,
		DefaultLease:    30 * time.Second,
		FailureNotifier: failureSvc,
		Notifier:        &stubJobNotifier{},
	})

	_, err = svc.Fail(context.Background(), job.ID, "bad")
	require.NoError(t, err)

	events := captured()
	require.Len(t, events, 1)
	assert.Equal(t, []string{"Skin Cancer VQA"}, events[0].Models)
	assert.Equal(t, "guest-1", events[0].OwnerID)
}

func TestJobService_FailWithDetails_NoNotificationWhenNotFailed(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockJobRepository(ctrl)

	repo.EXPECT().GetByID(gomock.Any(), "job-1").Return(nil, errors.New("gone"))
	repo.EXPECT().Fail(gomock.Any(), "job-1", "late").Return(false, nil)

	failureSvc, captured := captureFailures()
	svc := MustNewJobService(JobServiceOptions{
		Repo:            repo,
		DefaultLease:    30 * time.Second,
		FailureNotifier: failureSvc,
		Notifier:        &stubJobNotifier{},
		Logger:          slog.Default(),
	})

	failed, err := svc.Fail(context.Background(), "job-1", "late")
	require.NoError(t, err)
	assert.False(t, failed)
	assert.Empty(t, captured())
}

func TestJobService_GetByID(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockJobRepository(ctrl)
	svc, _ := newTestJobService(t, repo)

	expected := &model.Job{ID: "job-123", Type: model.JobTypeQA}
	repo.EXPECT().GetByID(gomock.Any(), "job-123").Return(expected, nil)

	job, err := svc.GetByID(context.Background(), "job-123")
	require.NoError(t, err)
	assert.Equal(t, expected, job)
}

func TestJobService_Stats(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockJobRepository(ctrl)
	svc, _ := newTestJobService(t, repo)

	expected := &model.JobStats{Pending: 5, Running: 2, Completed: 10, Failed: 1}
	repo.EXPECT().Stats(gomock.Any(), model.JobTypeDiagnosis).Return(expected, nil)

	stats, err := svc.Stats(context.Background(), model.JobTypeDiagnosis)
	require.NoError(t, err)
	assert.Equal(t, expected, stats)
}

func TestJobService_Subscribe(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockJobRepository(ctrl)
	svc, n := newTestJobService(t, repo)

	unsub, ch := svc.Subscribe(model.JobTypeQA)
	require.NotNil(t, ch)
	require.Len(t, n.subscribeCalls, 1)
	assert.Equal(t, model.JobTypeQA, n.subscribeCalls[0])

	unsub()

	select {
	case _, ok := <-ch:
		assert.False(t, ok, "channel should be closed on unsubscribe")
	case <-time.After(100 * time.Millisecond):
		t.Fatal("expected channel to close after unsubscribe")
	}
}

func TestJobService_StopAllListeners(t *testing.T) {
	ctrl := gomock.NewController(t)
	repo := mocks.NewMockJobRepository(ctrl)
	svc, n := newTestJobService(t, repo)

	svc.StopAllListeners()
	assert.True(t, n.stopCalled)
}
