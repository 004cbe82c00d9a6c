package httpx

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/UPI05/InsecMed/internal/domain/model"
	apperrors "github.com/UPI05/InsecMed/internal/errors"
	"github.com/UPI05/InsecMed/internal/service"
)

// multipartMemory is how much of an upload is buffered in memory before
// spilling to a temp file.
const multipartMemory = 8 << 20

// Dispatcher is the submission and polling surface of service.DispatchService.
type Dispatcher interface {
	SubmitDiagnosis(ctx context.Context, in service.DiagnosisSubmission) (*model.SubmitResponse, error)
	SubmitQA(ctx context.Context, in service.QASubmission) (*model.SubmitResponse, error)
	Status(ctx context.Context, handle string) (*model.HandleStatus, error)
}

// SubmitHandlers serves job submission and status polling.
type SubmitHandlers struct {
	Svc Dispatcher
}

// SubmitDiagnosis handles POST /api/diagnoses.
func (h *SubmitHandlers) SubmitDiagnosis(w http.ResponseWriter, r *http.Request) {
	up, cleanup, err := readUpload(r)
	if err != nil {
		WriteError(w, err)
		return
	}
	defer cleanup()

	resp, err := h.Svc.SubmitDiagnosis(r.Context(), service.DiagnosisSubmission{
		Principal: PrincipalFromContext(r.Context()),
		Models:    r.FormValue("model"),
		SubjectID: r.FormValue("subject_id"),
		Upload:    up,
	})
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusAccepted, resp)
}

// SubmitQA handles POST /api/qa.
func (h *SubmitHandlers) SubmitQA(w http.ResponseWriter, r *http.Request) {
	up, cleanup, err := readUpload(r)
	if err != nil {
		WriteError(w, err)
		return
	}
	defer cleanup()

	resp, err := h.Svc.SubmitQA(r.Context(), service.QASubmission{
		Principal: PrincipalFromContext(r.Context()),
		Model:     r.FormValue("model"),
		Question:  r.FormValue("question"),
		SubjectID: r.FormValue("subject_id"),
		Upload:    up,
	})
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusAccepted, resp)
}

// Status handles GET /api/jobs/{handle}/status.
func (h *SubmitHandlers) Status(w http.ResponseWriter, r *http.Request) {
	st, err := h.Svc.Status(r.Context(), r.PathValue("handle"))
	if err != nil {
		WriteError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, st)
}

// readUpload parses the multipart form and opens its "file" part. A missing
// part yields an empty Upload so the service can report the field.
func readUpload(r *http.Request) (service.Upload, func(), error) {
	noop := func() {}
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		if requestTooLarge(err) {
			return service.Upload{}, noop, apperrors.ValidationField("file", "upload is too large")
		}
		return service.Upload{}, noop, apperrors.Wrap(err, apperrors.ErrCodeValidation, "expected a multipart form")
	}
	removeAll := func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}

	f, hdr, err := r.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return service.Upload{}, removeAll, nil
	case err != nil:
		removeAll()
		return service.Upload{}, noop, apperrors.Wrap(err, apperrors.ErrCodeValidation, "read upload")
	}

	return service.Upload{Filename: hdr.Filename, Body: f}, func() {
		closeQuietly(f)
		removeAll()
	}, nil
}

func closeQuietly(c io.Closer) {
	_ = c.Close()
}
