package httpx

import (
	"net/http"
	"strconv"

	"github.com/UPI05/InsecMed/internal/domain/model"
	apperrors "github.com/UPI05/InsecMed/internal/errors"
)

const (
	defaultPageSize = 50
	maxPageSize     = 200
)

// parseIntQuery returns the integer value of a query param or a default.
// It is tolerant of missing/invalid values.
func parseIntQuery(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

// ParseLimitOffset parses common pagination params and clamps to sane bounds.
// - defLimit: default limit when not specified
// - maxLimit: maximum allowed limit (values > maxLimit are clamped to maxLimit).
func ParseLimitOffset(r *http.Request, defLimit, maxLimit int) (int, int) {
	if maxLimit < 1 {
		maxLimit = 1
	}

	lim := parseIntQuery(r, "limit", defLimit)
	off := parseIntQuery(r, "offset", 0)
	if lim < 1 {
		lim = 1
	}
	if lim > maxLimit {
		lim = maxLimit
	}
	if off < 0 {
		off = 0
	}
	return lim, off
}

// kindFromPath reads the {kind} path segment. Unknown kinds read as not found.
func kindFromPath(r *http.Request) (model.RecordKind, error) {
	kind, err := model.ParseRecordKind(r.PathValue("kind"))
	if err != nil {
		return "", apperrors.Wrap(err, apperrors.ErrCodeNotFound, "unknown record kind")
	}
	return kind, nil
}
