package service

import (
	"context"
	"errors"
	"io"
	"io/fs"
	"log/slog"

	"github.com/UPI05/InsecMed/internal/core"
	"github.com/UPI05/InsecMed/internal/domain/model"
	"github.com/UPI05/InsecMed/internal/domain/share"
	apperrors "github.com/UPI05/InsecMed/internal/errors"
)

// RecordServiceOptions groups dependencies for RecordService.
type RecordServiceOptions struct {
	Diagnoses core.RecordRepository // Required: diagnosis result store
	QA        core.RecordRepository // Required: Q&A result store
	Store     core.ArtifactStore    // Required: artifact storage
	Subjects  *SubjectResolver      // Optional: defaults to self/none subjects only
	Logger    *slog.Logger          // Optional: structured logger
}

// RecordService serves the caller's history, visibility-checked record
// detail, subject updates and artifact downloads.
type RecordService struct {
	records  map[model.RecordKind]core.RecordRepository
	store    core.ArtifactStore
	subjects *SubjectResolver
	logger   *slog.Logger
}

// NewRecordService constructs a RecordService.
func NewRecordService(opts RecordServiceOptions) (*RecordService, error) {
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
	return &RecordService{
		records: map[model.RecordKind]core.RecordRepository{
			model.RecordKindDiagnosis: opts.Diagnoses,
			model.RecordKindQA:        opts.QA,
		},
		store:    opts.Store,
		subjects: subjects,
		logger:   logger.With("component", "record_service"),
	}, nil
}

func (s *RecordService) repo(kind model.RecordKind) (core.RecordRepository, error) {
	repo, ok := s.records[kind]
	if !ok {
		return nil, apperrors.ValidationField("kind", "unknown record kind")
	}
	return repo, nil
}

// History is one page of the caller's records. Stats is set for diagnoses.
type History struct {
	Kind    model.RecordKind   `json:"kind"`
	Records []*model.Record    `json:"records"`
	Stats   *model.RecordStats `json:"stats,omitempty"`
}

// History returns the owner's records of kind, newest first.
func (s *RecordService) History(
	ctx context.Context,
	kind model.RecordKind,
	owner string,
	opts model.RecordListOptions,
) (*History, error) {
	repo, err := s.repo(kind)
	if err != nil {
		return nil, err
	}
	if owner == "" {
		return nil, apperrors.Unauthorized("authentication required")
	}

	recs, err := repo.ListByOwner(ctx, owner, opts)
	if err != nil {
		return nil, toAppError(err, "list records")
	}
	out := &History{Kind: kind, Records: recs}
	if kind == model.RecordKindDiagnosis {
		stats, statsErr := repo.OwnerStats(ctx, owner)
		if statsErr != nil {
			return nil, toAppError(statsErr, "count records")
		}
		out.Stats = stats
	}
	return out, nil
}

// Get returns a record the caller may see. Records the caller may not see
// read as not found.
func (s *RecordService) Get(ctx context.Context, kind model.RecordKind, id, caller string) (*model.Record, error) {
	repo, err := s.repo(kind)
	if err != nil {
		return nil, err
	}
	rec, err := repo.Get(ctx, id)
	if err != nil {
		return nil, toAppError(err, "record not found")
	}
	if !share.Visible(rec.OwnerID, rec.Share, caller) {
		return nil, apperrors.NotFound("record not found")
	}
	return rec, nil
}

// UpdateSubject lets the owner attach, change or clear the record's subject.
// Anyone else, including a share recipient, gets PermissionDenied.
func (s *RecordService) UpdateSubject(ctx context.Context, kind model.RecordKind, id, caller, raw string) (*model.Record, error) {
	repo, err := s.repo(kind)
	if err != nil {
		return nil, err
	}
	rec, err := repo.Get(ctx, id)
	if err != nil {
		return nil, toAppError(err, "record not found")
	}
	if rec.OwnerID != caller {
		return nil, apperrors.PermissionDenied("only the owner can change the subject")
	}
	subject, err := s.subjects.Resolve(ctx, caller, raw)
	if err != nil {
		return nil, err
	}
	if err := repo.UpdateSubject(ctx, core.UpdateSubjectParams{ID: id, OwnerID: caller, SubjectID: subject}); err != nil {
		return nil, toAppError(err, "record not found")
	}
	updated := *rec
	updated.SubjectID = subject
	return &updated, nil
}

// OpenArtifact opens an upload or explanation for download. The caller must
// be able to see at least one record referencing it.
func (s *RecordService) OpenArtifact(ctx context.Context, name, caller string) (io.ReadSeekCloser, fs.FileInfo, error) {
	ok, err := s.canSeeArtifact(ctx, name, caller)
	if err != nil {
		return nil, nil, err
	}
	if !ok {
		return nil, nil, apperrors.NotFound("artifact not found")
	}
	f, info, err := s.store.Open(ctx, name)
	if err != nil {
		return nil, nil, toAppError(err, "artifact not found")
	}
	return f, info, nil
}

func (s *RecordService) canSeeArtifact(ctx context.Context, name, caller string) (bool, error) {
	for _, kind := range []model.RecordKind{model.RecordKindDiagnosis, model.RecordKindQA} {
		recs, err := s.records[kind].ListByArtifact(ctx, name)
		if err != nil {
			return false, toAppError(err, "look up artifact")
		}
		for _, rec := range recs {
			if rec.References(name) && share.Visible(rec.OwnerID, rec.Share, caller) {
				return true, nil
			}
		}
	}
	return false, nil
}
