package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/UPI05/InsecMed/internal/core"
	"github.com/UPI05/InsecMed/internal/data"
	"github.com/UPI05/InsecMed/internal/domain/model"
	apperrors "github.com/UPI05/InsecMed/internal/errors"
	"github.com/UPI05/InsecMed/internal/mocks"
)

func newSharingFixture(t *testing.T) (*SharingService, *mocks.MockRecordRepository, *mocks.MockRecordRepository) {
	t.Helper()
	ctrl := gomock.NewController(t)
	diag := mocks.NewMockRecordRepository(ctrl)
	qa := mocks.NewMockRecordRepository(ctrl)
	svc, err := NewSharingService(SharingServiceOptions{Diagnoses: diag, QA: qa})
	require.NoError(t, err)
	return svc, diag, qa
}

func ownedRecord(kind model.RecordKind, state model.ShareState) *model.Record {
	return &model.Record{ID: "rec-1", Kind: kind, OwnerID: "alice@example.com", Share: state}
}

func TestSharingService_InitiateThenAccept(t *testing.T) {
	svc, diag, _ := newSharingFixture(t)
	ctx := context.Background()

	diag.EXPECT().Get(gomock.Any(), "rec-1").Return(ownedRecord(model.RecordKindDiagnosis, model.Private()), nil)
	diag.EXPECT().UpdateShareState(gomock.Any(), core.UpdateShareStateParams{
		ID:       "rec-1",
		Expected: model.Private(),
		Next:     model.PendingShare("bob@example.com", "alice@example.com"),
	}).Return(nil)

	rec, err := svc.Initiate(ctx, model.RecordKindDiagnosis, "rec-1", "alice@example.com", " Bob@Example.com ")
	require.NoError(t, err)
	assert.Equal(t, model.ShareStatusPending, rec.Share.Status)
	assert.Equal(t, "bob@example.com", rec.Share.To)

	pending := model.PendingShare("bob@example.com", "alice@example.com")
	diag.EXPECT().Get(gomock.Any(), "rec-1").Return(ownedRecord(model.RecordKindDiagnosis, pending), nil)
	diag.EXPECT().UpdateShareState(gomock.Any(), core.UpdateShareStateParams{
		ID:       "rec-1",
		Expected: pending,
		Next:     model.Shared("bob@example.com", "alice@example.com"),
	}).Return(nil)

	rec, err = svc.Respond(ctx, model.RecordKindDiagnosis, "rec-1", "bob@example.com", true)
	require.NoError(t, err)
	assert.Equal(t, model.ShareStatusShared, rec.Share.Status)
}

func TestSharingService_Reject(t *testing.T) {
	svc, _, qa := newSharingFixture(t)
	pending := model.PendingShare("bob@example.com", "alice@example.com")

	qa.EXPECT().Get(gomock.Any(), "rec-1").Return(ownedRecord(model.RecordKindQA, pending), nil)
	qa.EXPECT().UpdateShareState(gomock.Any(), gomock.Any()).Return(nil)

	rec, err := svc.Respond(context.Background(), model.RecordKindQA, "rec-1", "bob@example.com", false)
	require.NoError(t, err)
	assert.Equal(t, model.ShareStatusRejected, rec.Share.Status)
}

func TestSharingService_Denials(t *testing.T) {
	tests := []struct {
		name  string
		state model.ShareState
		run   func(*SharingService) error
		code  apperrors.ErrorCode
	}{
		{
			name:  "stranger initiates",
			state: model.Private(),
			run: func(s *SharingService) error {
				_, err := s.Initiate(context.Background(), model.RecordKindDiagnosis, "rec-1", "mallory@example.com", "bob@example.com")
				return err
			},
			code: apperrors.ErrCodePermissionDenied,
		},
		{
			name:  "pending recipient reshares",
			state: model.PendingShare("bob@example.com", "alice@example.com"),
			run: func(s *SharingService) error {
				_, err := s.Initiate(context.Background(), model.RecordKindDiagnosis, "rec-1", "bob@example.com", "carol@example.com")
				return err
			},
			code: apperrors.ErrCodePermissionDenied,
		},
		{
			name:  "non-recipient responds",
			state: model.PendingShare("bob@example.com", "alice@example.com"),
			run: func(s *SharingService) error {
				_, err := s.Respond(context.Background(), model.RecordKindDiagnosis, "rec-1", "carol@example.com", true)
				return err
			},
			code: apperrors.ErrCodePermissionDenied,
		},
		{
			name:  "self share",
			state: model.Private(),
			run: func(s *SharingService) error {
				_, err := s.Initiate(context.Background(), model.RecordKindDiagnosis, "rec-1", "alice@example.com", "ALICE@example.com")
				return err
			},
			code: apperrors.ErrCodeValidation,
		},
		{
			name:  "missing recipient",
			state: model.Private(),
			run: func(s *SharingService) error {
				_, err := s.Initiate(context.Background(), model.RecordKindDiagnosis, "rec-1", "alice@example.com", "  ")
				return err
			},
			code: apperrors.ErrCodeValidation,
		},
		{
			name:  "respond to accepted share",
			state: model.Shared("bob@example.com", "alice@example.com"),
			run: func(s *SharingService) error {
				_, err := s.Respond(context.Background(), model.RecordKindDiagnosis, "rec-1", "bob@example.com", false)
				return err
			},
			code: apperrors.ErrCodePermissionDenied,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, diag, _ := newSharingFixture(t)
			diag.EXPECT().Get(gomock.Any(), "rec-1").Return(ownedRecord(model.RecordKindDiagnosis, tt.state), nil)

			err := tt.run(svc)
			require.Error(t, err)
			assert.Equal(t, tt.code, apperrors.GetCode(err))
		})
	}
}

func TestSharingService_RecipientReshares(t *testing.T) {
	svc, diag, _ := newSharingFixture(t)
	shared := model.Shared("bob@example.com", "alice@example.com")

	diag.EXPECT().Get(gomock.Any(), "rec-1").Return(ownedRecord(model.RecordKindDiagnosis, shared), nil)
	diag.EXPECT().UpdateShareState(gomock.Any(), core.UpdateShareStateParams{
		ID:       "rec-1",
		Expected: shared,
		Next:     model.PendingShare("carol@example.com", "bob@example.com"),
	}).Return(nil)

	rec, err := svc.Initiate(context.Background(), model.RecordKindDiagnosis, "rec-1", "bob@example.com", "carol@example.com")
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", rec.Share.By)
}

func TestSharingService_LostRace(t *testing.T) {
	svc, diag, _ := newSharingFixture(t)
	pending := model.PendingShare("bob@example.com", "alice@example.com")

	diag.EXPECT().Get(gomock.Any(), "rec-1").Return(ownedRecord(model.RecordKindDiagnosis, pending), nil)
	diag.EXPECT().UpdateShareState(gomock.Any(), gomock.Any()).
		Return(fmt.Errorf("update share: %w", data.ErrShareConflict))

	_, err := svc.Respond(context.Background(), model.RecordKindDiagnosis, "rec-1", "bob@example.com", true)
	assert.True(t, apperrors.IsConflict(err))
}

func TestSharingService_MissingRecord(t *testing.T) {
	svc, diag, _ := newSharingFixture(t)
	diag.EXPECT().Get(gomock.Any(), "nope").Return(nil, data.ErrRecordNotFound)

	_, err := svc.Initiate(context.Background(), model.RecordKindDiagnosis, "nope", "alice@example.com", "bob@example.com")
	assert.True(t, apperrors.IsNotFound(err))

	_, err = svc.Initiate(context.Background(), model.RecordKind("x"), "rec-1", "alice@example.com", "bob@example.com")
	assert.True(t, apperrors.IsValidation(err))
}

func TestSharingService_Notifications(t *testing.T) {
	svc, diag, qa := newSharingFixture(t)
	now := time.Now()
	pending := model.PendingShare("bob@example.com", "alice@example.com")

	older := &model.Record{ID: "d-1", Kind: model.RecordKindDiagnosis, Share: pending, CreatedAt: now.Add(-time.Hour)}
	newer := &model.Record{ID: "q-1", Kind: model.RecordKindQA, Share: pending, CreatedAt: now}
	stale := &model.Record{
		ID:        "d-2",
		Kind:      model.RecordKindDiagnosis,
		Share:     model.Shared("bob@example.com", "alice@example.com"),
		CreatedAt: now.Add(time.Hour),
	}

	diag.EXPECT().ListSharedTo(gomock.Any(), "bob@example.com", model.SharedFilterPending).
		Return([]*model.Record{older, stale}, nil)
	qa.EXPECT().ListSharedTo(gomock.Any(), "bob@example.com", model.SharedFilterPending).
		Return([]*model.Record{newer}, nil)

	got, err := svc.Notifications(context.Background(), "Bob@example.com")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, model.RecordKindQA, got[0].Kind)
	assert.Equal(t, "q-1", got[0].Record.ID)
	assert.Equal(t, model.RecordKindDiagnosis, got[1].Kind)
}

func TestSharingService_SharedWithMe(t *testing.T) {
	svc, diag, qa := newSharingFixture(t)

	_, err := svc.SharedWithMe(context.Background(), "", model.SharedFilterAll)
	assert.Equal(t, apperrors.ErrCodeUnauthorized, apperrors.GetCode(err))

	diag.EXPECT().ListSharedTo(gomock.Any(), "bob@example.com", model.SharedFilterAccepted).Return(nil, nil)
	qa.EXPECT().ListSharedTo(gomock.Any(), "bob@example.com", model.SharedFilterAccepted).
		Return([]*model.Record{{ID: "q-1"}}, nil)

	recs, err := svc.SharedWithMe(context.Background(), "bob@example.com", model.SharedFilterAccepted)
	require.NoError(t, err)
	require.Len(t, recs, 1)
}
