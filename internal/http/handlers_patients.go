package httpx

import (
	"context"
	"net/http"

	"github.com/UPI05/InsecMed/internal/domain/model"
)

// PatientRegistry is the surface of service.PatientService.
type PatientRegistry interface {
	Create(ctx context.Context, creator string, req model.CreatePatientRequest) (*model.Patient, error)
	Get(ctx context.Context, creator, id string) (*model.Patient, error)
	List(ctx context.Context, creator string, limit, offset int) ([]*model.Patient, error)
	Update(ctx context.Context, creator, id string, req model.UpdatePatientRequest) (*model.Patient, error)
	Delete(ctx context.Context, creator, id string) error
}

// PatientHandlers serves the caller's patient registry.
type PatientHandlers struct {
	Svc PatientRegistry
}

// List handles GET /api/patients.
func (h *PatientHandlers) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := ParseLimitOffset(r, defaultPageSize, maxPageSize)
	ps, err := h.Svc.List(r.Context(), PrincipalFromContext(r.Context()), limit, offset)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, nonNil(ps))
}

// Create handles POST /api/patients.
func (h *PatientHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req model.CreatePatientRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	p, err := h.Svc.Create(r.Context(), PrincipalFromContext(r.Context()), req)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, p)
}

// Get handles GET /api/patients/{id}.
func (h *PatientHandlers) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.Svc.Get(r.Context(), PrincipalFromContext(r.Context()), r.PathValue("id"))
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, p)
}

// Update handles PUT /api/patients/{id}.
func (h *PatientHandlers) Update(w http.ResponseWriter, r *http.Request) {
	var req model.UpdatePatientRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	p, err := h.Svc.Update(r.Context(), PrincipalFromContext(r.Context()), r.PathValue("id"), req)
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, p)
}

// Delete handles DELETE /api/patients/{id}.
func (h *PatientHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.Delete(r.Context(), PrincipalFromContext(r.Context()), r.PathValue("id")); err != nil {
		WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
