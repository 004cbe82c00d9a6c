package data

import (
	"errors"

	apperrors "github.com/UPI05/InsecMed/internal/errors"
)

// Shared sentinel errors for data-layer repositories.
var (
	// ErrRecordNotFound is returned when no diagnosis or Q&A row matches.
	ErrRecordNotFound = errors.New("record not found")
	// ErrShareConflict is returned when a share compare-and-swap finds a different stored state.
	ErrShareConflict = errors.New("share state changed concurrently")
	// ErrPatientNotFound is returned when no patient matches for the creator.
	ErrPatientNotFound = errors.New("patient not found")
	// ErrPatientExists is returned when a patient id is already taken.
	ErrPatientExists = errors.New("patient already exists")
)

// isInvalidUUID reports whether err came from a malformed uuid literal, which
// callers treat as a miss rather than a failure.
func isInvalidUUID(err error) bool {
	return err != nil && apperrors.IsInvalidText(err)
}
