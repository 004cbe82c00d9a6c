package httpx

import (
	"context"
	"io"
	"io/fs"
	"net/http"

	"github.com/UPI05/InsecMed/internal/domain/model"
	"github.com/UPI05/InsecMed/internal/service"
)

// RecordReader is the history and artifact surface of service.RecordService.
type RecordReader interface {
	History(ctx context.Context, kind model.RecordKind, owner string, opts model.RecordListOptions) (*service.History, error)
	Get(ctx context.Context, kind model.RecordKind, id, caller string) (*model.Record, error)
	UpdateSubject(ctx context.Context, kind model.RecordKind, id, caller, raw string) (*model.Record, error)
	OpenArtifact(ctx context.Context, name, caller string) (io.ReadSeekCloser, fs.FileInfo, error)
}

// RecordHandlers serves result history, detail and artifacts.
type RecordHandlers struct {
	Svc RecordReader
}

// List handles GET /api/records/{kind}.
func (h *RecordHandlers) List(w http.ResponseWriter, r *http.Request) {
	kind, err := kindFromPath(r)
	if err != nil {
		WriteError(w, err)
		return
	}
	limit, offset := ParseLimitOffset(r, defaultPageSize, maxPageSize)

	hist, err := h.Svc.History(r.Context(), kind, PrincipalFromContext(r.Context()), model.RecordListOptions{
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, hist)
}

// Get handles GET /api/records/{kind}/{id}.
func (h *RecordHandlers) Get(w http.ResponseWriter, r *http.Request) {
	kind, err := kindFromPath(r)
	if err != nil {
		WriteError(w, err)
		return
	}
	rec, err := h.Svc.Get(r.Context(), kind, r.PathValue("id"), PrincipalFromContext(r.Context()))
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, rec)
}

type updateSubjectRequest struct {
	SubjectID string `json:"subject_id"`
}

// UpdateSubject handles PATCH /api/records/{kind}/{id}/subject.
func (h *RecordHandlers) UpdateSubject(w http.ResponseWriter, r *http.Request) {
	kind, err := kindFromPath(r)
	if err != nil {
		WriteError(w, err)
		return
	}
	var req updateSubjectRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	rec, err := h.Svc.UpdateSubject(r.Context(), kind, r.PathValue("id"), PrincipalFromContext(r.Context()), req.SubjectID)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, rec)
}

// Artifact handles GET /api/artifacts/{name}.
func (h *RecordHandlers) Artifact(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	f, info, err := h.Svc.OpenArtifact(r.Context(), name, PrincipalFromContext(r.Context()))
	if err != nil {
		WriteError(w, err)
		return
	}
	defer closeQuietly(f)

	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "private, max-age=300")
	http.ServeContent(w, r, name, info.ModTime(), f)
}
