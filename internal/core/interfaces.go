// Package core defines the repository and cache ports the service layer depends on.
package core

import (
	"context"
	"time"

	"github.com/UPI05/InsecMed/internal/domain/model"
)

// This file contains repository interface definitions (ports in hexagonal architecture).
// These interfaces define the contracts between the service layer and data layer.
// Service implementations should depend on these interfaces, not concrete implementations.

// JobRepository defines the interface for queue operations.
type JobRepository interface {
	Create(ctx context.Context, req *model.CreateJobRequest) (*model.Job, error)
	GetByID(ctx context.Context, id string) (*model.Job, error)
	ReserveNext(ctx context.Context, jobType model.JobType, leaseSeconds int) (*model.Job, error)
	WaitForNotification(ctx context.Context, jobType model.JobType) error
	Heartbeat(ctx context.Context, jobID string, leaseSeconds int) (bool, error)
	Complete(ctx context.Context, id string) (bool, error)
	Fail(ctx context.Context, id, errMsg string) (bool, error)
	Stats(ctx context.Context, jobType model.JobType) (*model.JobStats, error)
}

// UpdateShareStateParams groups parameters for a compare-and-swap share update.
type UpdateShareStateParams struct {
	ID       string
	Expected model.ShareState
	Next     model.ShareState
}

// UpdateSubjectParams groups parameters for an owner-guarded subject update.
type UpdateSubjectParams struct {
	ID        string
	OwnerID   string
	SubjectID *string
}

// RecordRepository is the result store for one record kind. Diagnoses and
// Q&A interactions expose the same surface over separate tables.
type RecordRepository interface {
	Kind() model.RecordKind

	// Append writes the record for a handle once. A repeated append for the
	// same handle returns the row that was stored first.
	Append(ctx context.Context, req *model.AppendRecordRequest) (*model.Record, error)

	Get(ctx context.Context, id string) (*model.Record, error)
	GetByHandle(ctx context.Context, handle string) (*model.Record, error)

	// ListByOwner returns the owner's records, newest first.
	ListByOwner(ctx context.Context, ownerID string, opts model.RecordListOptions) ([]*model.Record, error)

	// ListSharedTo returns records offered or shared to identity, newest first.
	ListSharedTo(ctx context.Context, identity string, filter model.SharedFilter) ([]*model.Record, error)

	// ListByArtifact returns records whose input or derived artifacts include name.
	ListByArtifact(ctx context.Context, name string) ([]*model.Record, error)

	// UpdateShareState swaps Expected for Next, failing with a conflict when
	// the stored state no longer equals Expected.
	UpdateShareState(ctx context.Context, params UpdateShareStateParams) error

	UpdateSubject(ctx context.Context, params UpdateSubjectParams) error

	// OwnerStats counts the owner's records per model.
	OwnerStats(ctx context.Context, ownerID string) (*model.RecordStats, error)
}

// PatientRepository defines the interface for the creator-scoped patient registry.
type PatientRepository interface {
	Create(ctx context.Context, req *model.CreatePatientRequest) (*model.Patient, error)
	GetByID(ctx context.Context, id, creatorID string) (*model.Patient, error)
	List(ctx context.Context, creatorID string, limit, offset int) ([]*model.Patient, error)
	Update(ctx context.Context, id, creatorID string, req model.UpdatePatientRequest) (*model.Patient, error)
	Delete(ctx context.Context, id, creatorID string) (bool, error)
}

// DeleteOldJobsParams groups parameters for DeleteOldJobs to keep param count ≤3.
type DeleteOldJobsParams struct {
	Status    model.JobStatus
	MaxAge    time.Duration
	BatchSize int
}

// ReaperRepository defines the interface for queue cleanup operations.
// Result tables are never touched by the reaper.
type ReaperRepository interface {
	// FailStalePendingJobs marks pending jobs older than maxAge as failed.
	// Processes up to batchSize jobs per call to prevent long locks.
	// Returns the number of jobs marked as failed.
	FailStalePendingJobs(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error)

	// DeleteOldJobs deletes jobs with the given status older than maxAge.
	// Processes up to batchSize jobs per call to prevent long locks.
	// Returns the number of jobs deleted.
	DeleteOldJobs(ctx context.Context, params DeleteOldJobsParams) (int64, error)
}
