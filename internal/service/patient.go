package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/UPI05/InsecMed/internal/core"
	"github.com/UPI05/InsecMed/internal/domain/model"
	apperrors "github.com/UPI05/InsecMed/internal/errors"
)

// PatientServiceOptions groups dependencies for PatientService.
type PatientServiceOptions struct {
	Repo core.PatientRepository
}

// PatientService manages a doctor's patient registry. Every operation is
// scoped to the creator.
type PatientService struct {
	repo core.PatientRepository
}

// NewPatientService constructs a PatientService.
func NewPatientService(opts PatientServiceOptions) (*PatientService, error) {
	if opts.Repo == nil {
		return nil, errors.New("PatientRepository is required")
	}
	return &PatientService{repo: opts.Repo}, nil
}

// Create registers a patient owned by creator.
func (s *PatientService) Create(ctx context.Context, creator string, req model.CreatePatientRequest) (*model.Patient, error) {
	req.CreatorID = creator
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	p, err := s.repo.Create(ctx, &req)
	if err != nil {
		return nil, toAppError(err, "create patient")
	}
	return p, nil
}

// Get returns the creator's patient.
func (s *PatientService) Get(ctx context.Context, creator, id string) (*model.Patient, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.NotFound("patient not found")
	}
	p, err := s.repo.GetByID(ctx, id, creator)
	if err != nil {
		return nil, toAppError(err, "patient not found")
	}
	return p, nil
}

// List returns the creator's patients, newest first.
func (s *PatientService) List(ctx context.Context, creator string, limit, offset int) ([]*model.Patient, error) {
	ps, err := s.repo.List(ctx, creator, limit, offset)
	if err != nil {
		return nil, toAppError(err, "list patients")
	}
	return ps, nil
}

// Update applies the set fields of req to the creator's patient.
func (s *PatientService) Update(
	ctx context.Context,
	creator, id string,
	req model.UpdatePatientRequest,
) (*model.Patient, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperrors.NotFound("patient not found")
	}
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	p, err := s.repo.Update(ctx, id, creator, req)
	if err != nil {
		return nil, toAppError(err, "patient not found")
	}
	return p, nil
}

// Delete removes the creator's patient. Records referencing it keep their subject_id.
func (s *PatientService) Delete(ctx context.Context, creator, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return apperrors.NotFound("patient not found")
	}
	ok, err := s.repo.Delete(ctx, id, creator)
	if err != nil {
		return toAppError(err, "delete patient")
	}
	if !ok {
		return apperrors.NotFound("patient not found")
	}
	return nil
}
