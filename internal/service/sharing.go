package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/UPI05/InsecMed/internal/core"
	"github.com/UPI05/InsecMed/internal/domain/model"
	"github.com/UPI05/InsecMed/internal/domain/share"
	apperrors "github.com/UPI05/InsecMed/internal/errors"
)

// SharingServiceOptions groups dependencies for SharingService.
type SharingServiceOptions struct {
	Diagnoses core.RecordRepository // Required: diagnosis result store
	QA        core.RecordRepository // Required: Q&A result store
	Logger    *slog.Logger          // Optional: structured logger
}

// SharingService applies the share state machine to stored records with
// compare-and-swap updates.
type SharingService struct {
	records map[model.RecordKind]core.RecordRepository
	logger  *slog.Logger
}

// NewSharingService constructs a SharingService.
func NewSharingService(opts SharingServiceOptions) (*SharingService, error) {
	if opts.Diagnoses == nil || opts.QA == nil {
		return nil, errors.New("diagnosis and qa record repositories are required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &SharingService{
		records: map[model.RecordKind]core.RecordRepository{
			model.RecordKindDiagnosis: opts.Diagnoses,
			model.RecordKindQA:        opts.QA,
		},
		logger: logger.With("component", "sharing_service"),
	}, nil
}

func (s *SharingService) repo(kind model.RecordKind) (core.RecordRepository, error) {
	repo, ok := s.records[kind]
	if !ok {
		return nil, apperrors.ValidationField("kind", "unknown record kind")
	}
	return repo, nil
}

// Initiate offers the record to another principal. The caller must be the
// owner or, when the record is Shared, its current recipient.
func (s *SharingService) Initiate(ctx context.Context, kind model.RecordKind, id, caller, to string) (*model.Record, error) {
	repo, err := s.repo(kind)
	if err != nil {
		return nil, err
	}
	rec, err := repo.Get(ctx, id)
	if err != nil {
		return nil, toAppError(err, "record not found")
	}
	next, err := share.Initiate(rec.OwnerID, rec.Share, caller, to)
	if err != nil {
		return nil, toAppError(err, shareMessage(err))
	}
	return s.swap(ctx, repo, rec, next)
}

// Respond lets the recipient of a pending share accept or reject it.
func (s *SharingService) Respond(ctx context.Context, kind model.RecordKind, id, caller string, accept bool) (*model.Record, error) {
	repo, err := s.repo(kind)
	if err != nil {
		return nil, err
	}
	rec, err := repo.Get(ctx, id)
	if err != nil {
		return nil, toAppError(err, "record not found")
	}
	next, err := share.Respond(rec.Share, caller, accept)
	if err != nil {
		return nil, toAppError(err, shareMessage(err))
	}
	return s.swap(ctx, repo, rec, next)
}

func (s *SharingService) swap(ctx context.Context, repo core.RecordRepository, rec *model.Record, next model.ShareState) (*model.Record, error) {
	err := repo.UpdateShareState(ctx, core.UpdateShareStateParams{
		ID:       rec.ID,
		Expected: rec.Share,
		Next:     next,
	})
	if err != nil {
		return nil, toAppError(err, "share state changed, reload and try again")
	}

	s.logger.InfoContext(ctx, "share state updated",
		"kind", rec.Kind,
		"record_id", rec.ID,
		"from", rec.Share.Status,
		"to", next.Status,
		"recipient", next.To,
	)
	updated := *rec
	updated.Share = next
	return &updated, nil
}

func shareMessage(err error) string {
	switch {
	case errors.Is(err, share.ErrSelfShare):
		return "cannot share a record with yourself"
	case errors.Is(err, share.ErrRecipientRequired):
		return "recipient is required"
	default:
		return "not allowed to change this share"
	}
}

// Notification is a pending share offered to the caller.
type Notification struct {
	Kind   model.RecordKind `json:"kind"`
	Record *model.Record    `json:"record"`
}

// Notifications lists records pending the caller's response across both
// kinds, newest first.
func (s *SharingService) Notifications(ctx context.Context, identity string) ([]Notification, error) {
	recs, err := s.sharedTo(ctx, identity, model.SharedFilterPending)
	if err != nil {
		return nil, err
	}
	out := make([]Notification, 0, len(recs))
	for _, rec := range recs {
		if share.IsNotification(rec.Share, identity) {
			out = append(out, Notification{Kind: rec.Kind, Record: rec})
		}
	}
	return out, nil
}

// SharedWithMe lists records offered or shared to identity across both
// kinds, newest first.
func (s *SharingService) SharedWithMe(ctx context.Context, identity string, filter model.SharedFilter) ([]*model.Record, error) {
	return s.sharedTo(ctx, identity, filter)
}

func (s *SharingService) sharedTo(ctx context.Context, identity string, filter model.SharedFilter) ([]*model.Record, error) {
	identity = share.NormalizeIdentity(identity)
	if identity == "" {
		return nil, apperrors.Unauthorized("authentication required")
	}
	var all []*model.Record
	for _, kind := range []model.RecordKind{model.RecordKindDiagnosis, model.RecordKindQA} {
		recs, err := s.records[kind].ListSharedTo(ctx, identity, filter)
		if err != nil {
			return nil, toAppError(err, "list shared records")
		}
		all = append(all, recs...)
	}
	sort.SliceStable(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return all, nil
}
