package httpx

import (
	"context"
	"net/http"
	"strings"

	"github.com/UPI05/InsecMed/internal/domain/model"
	apperrors "github.com/UPI05/InsecMed/internal/errors"
	"github.com/UPI05/InsecMed/internal/service"
)

// Sharer is the surface of service.SharingService.
type Sharer interface {
	Initiate(ctx context.Context, kind model.RecordKind, id, caller, to string) (*model.Record, error)
	Respond(ctx context.Context, kind model.RecordKind, id, caller string, accept bool) (*model.Record, error)
	Notifications(ctx context.Context, identity string) ([]service.Notification, error)
	SharedWithMe(ctx context.Context, identity string, filter model.SharedFilter) ([]*model.Record, error)
}

// ShareHandlers serves record sharing.
type ShareHandlers struct {
	Svc Sharer
}

type initiateShareRequest struct {
	To string `json:"to"`
}

type respondShareRequest struct {
	Decision string `json:"decision"`
}

// Initiate handles POST /api/records/{kind}/{id}/share.
func (h *ShareHandlers) Initiate(w http.ResponseWriter, r *http.Request) {
	kind, err := kindFromPath(r)
	if err != nil {
		WriteError(w, err)
		return
	}
	var req initiateShareRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	rec, err := h.Svc.Initiate(r.Context(), kind, r.PathValue("id"), PrincipalFromContext(r.Context()), req.To)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, rec)
}

// Respond handles POST /api/records/{kind}/{id}/share/respond.
func (h *ShareHandlers) Respond(w http.ResponseWriter, r *http.Request) {
	kind, err := kindFromPath(r)
	if err != nil {
		WriteError(w, err)
		return
	}
	var req respondShareRequest
	if !DecodeJSON(w, r, &req) {
		return
	}

	var accept bool
	switch strings.ToLower(strings.TrimSpace(req.Decision)) {
	case "accept":
		accept = true
	case "reject":
	default:
		WriteError(w, apperrors.ValidationField("decision", `decision must be "accept" or "reject"`))
		return
	}

	rec, err := h.Svc.Respond(r.Context(), kind, r.PathValue("id"), PrincipalFromContext(r.Context()), accept)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, rec)
}

// Shared handles GET /api/shared?state=pending|accepted|all.
func (h *ShareHandlers) Shared(w http.ResponseWriter, r *http.Request) {
	filter, err := model.ParseSharedFilter(r.URL.Query().Get("state"))
	if err != nil {
		WriteError(w, apperrors.Wrap(err, apperrors.ErrCodeValidation, "invalid state filter"))
		return
	}
	recs, err := h.Svc.SharedWithMe(r.Context(), PrincipalFromContext(r.Context()), filter)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"state": filter, "records": nonNil(recs)})
}

// Notifications handles GET /api/notifications.
func (h *ShareHandlers) Notifications(w http.ResponseWriter, r *http.Request) {
	ns, err := h.Svc.Notifications(r.Context(), PrincipalFromContext(r.Context()))
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"notifications": nonNil(ns)})
}

// nonNil keeps empty lists encoding as [] rather than null.
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
