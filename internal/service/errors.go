package service

import (
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/UPI05/InsecMed/internal/adapters/inference"
	"github.com/UPI05/InsecMed/internal/adapters/storage"
	"github.com/UPI05/InsecMed/internal/data"
	"github.com/UPI05/InsecMed/internal/domain/share"
	apperrors "github.com/UPI05/InsecMed/internal/errors"
)

// failureReasonMaxLen caps the reason stored in jobs.last_error.
const failureReasonMaxLen = 500

// toAppError translates repository, storage, inference and sharing sentinels
// into AppErrors. Errors that already carry a code pass through unchanged.
func toAppError(err error, message string) error {
	if err == nil {
		return nil
	}
	if apperrors.GetCode(err) != "" {
		return err
	}

	switch {
	case errors.Is(err, data.ErrRecordNotFound),
		errors.Is(err, data.ErrJobNotFound),
		errors.Is(err, data.ErrPatientNotFound),
		errors.Is(err, storage.ErrArtifactNotFound):
		return apperrors.NotFound(message)
	case errors.Is(err, data.ErrShareConflict),
		errors.Is(err, data.ErrPatientExists):
		return apperrors.Wrap(err, apperrors.ErrCodeConflict, message)
	case errors.Is(err, share.ErrPermissionDenied):
		return apperrors.Wrap(err, apperrors.ErrCodePermissionDenied, message)
	case errors.Is(err, share.ErrSelfShare),
		errors.Is(err, share.ErrRecipientRequired),
		errors.Is(err, storage.ErrExtensionNotAllowed),
		errors.Is(err, storage.ErrInvalidName),
		errors.Is(err, inference.ErrInvalidModel):
		return apperrors.Wrap(err, apperrors.ErrCodeValidation, message)
	case errors.Is(err, inference.ErrUpstreamUnavailable):
		return apperrors.Wrap(err, apperrors.ErrCodeUpstreamUnavailable, message)
	}

	if mapped := apperrors.MapDBError(err); apperrors.GetCode(mapped) != "" {
		return mapped
	}
	return apperrors.Wrap(err, apperrors.ErrCodeInternal, message)
}

// FailureReason renders err as a single-line reason suitable for jobs.last_error.
func FailureReason(err error) string {
	if err == nil {
		return ""
	}
	normalized := strings.Join(strings.Fields(err.Error()), " ")
	if normalized == "" {
		return "job failed"
	}
	return truncate(normalized, failureReasonMaxLen)
}

func truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	trimmed := strings.Builder{}
	count := 0
	for _, r := range s {
		if count >= limit {
			break
		}
		trimmed.WriteRune(r)
		count++
	}
	trimmed.WriteString("…")
	return trimmed.String()
}
