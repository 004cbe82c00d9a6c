package service

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"

	"github.com/UPI05/InsecMed/internal/core"
	"github.com/UPI05/InsecMed/internal/data"
	apperrors "github.com/UPI05/InsecMed/internal/errors"
)

// SelfSubjectPrefix marks a subject id that names the caller as the patient.
const SelfSubjectPrefix = "BN_"

// SubjectResolver validates the subject_id given on submission and on
// record updates.
type SubjectResolver struct {
	patients core.PatientRepository
}

// NewSubjectResolver creates a SubjectResolver. Without a patient repository
// only the empty and self forms are accepted.
func NewSubjectResolver(patients core.PatientRepository) *SubjectResolver {
	return &SubjectResolver{patients: patients}
}

// Resolve returns the subject to store for raw, or nil when none was given.
// Accepted forms are "" or "0" (none), "BN_<principal>" naming the caller,
// and the id of a patient the caller created.
func (r *SubjectResolver) Resolve(ctx context.Context, principal, raw string) (*string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || raw == "0" {
		return nil, nil
	}

	if suffix, ok := strings.CutPrefix(raw, SelfSubjectPrefix); ok {
		if principal == "" || !strings.EqualFold(suffix, principal) {
			return nil, apperrors.ValidationField("subject_id", "subject does not name the caller")
		}
		self := SelfSubjectPrefix + principal
		return &self, nil
	}

	if r == nil || r.patients == nil {
		return nil, apperrors.ValidationField("subject_id", "unknown subject")
	}
	if _, err := uuid.Parse(raw); err != nil {
		return nil, apperrors.ValidationField("subject_id", "unknown subject")
	}
	p, err := r.patients.GetByID(ctx, raw, principal)
	if err != nil {
		if errors.Is(err, data.ErrPatientNotFound) {
			return nil, apperrors.ValidationField("subject_id", "unknown subject")
		}
		return nil, toAppError(err, "look up subject")
	}
	id := p.ID
	return &id, nil
}
