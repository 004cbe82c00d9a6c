package model

import (
	"errors"
	"strings"
	"time"
)

// Patient is a registry entry owned by the doctor who created it.
type Patient struct {
	ID        string    `json:"id"               db:"id"`
	Name      string    `json:"name"             db:"name"`
	Age       *int      `json:"age,omitempty"    db:"age"`
	Gender    string    `json:"gender"           db:"gender"`
	Phone     string    `json:"phone"            db:"phone"`
	Email     string    `json:"email"            db:"email"`
	Address   string    `json:"address"          db:"address"`
	CreatorID string    `json:"creator_id"       db:"creator_id"`
	CreatedAt time.Time `json:"created_at"       db:"created_at"`
	UpdatedAt time.Time `json:"updated_at"       db:"updated_at"`
}

// CreatePatientRequest represents a request to register a patient.
type CreatePatientRequest struct {
	Name      string `json:"name"`
	Age       *int   `json:"age,omitempty"`
	Gender    string `json:"gender"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	Address   string `json:"address"`
	CreatorID string `json:"-"`
}

// Normalize trims whitespace from all text fields.
func (r *CreatePatientRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Gender = strings.TrimSpace(r.Gender)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Email = strings.TrimSpace(r.Email)
	r.Address = strings.TrimSpace(r.Address)
}

// Validate validates the CreatePatientRequest fields.
func (r *CreatePatientRequest) Validate() error {
	if r.Name == "" {
		return errors.New("name is required")
	}
	if len(r.Name) > 255 {
		return errors.New("name must be 255 characters or fewer")
	}
	if r.Age != nil && (*r.Age < 0 || *r.Age > 150) {
		return errors.New("age must be between 0 and 150")
	}
	if r.CreatorID == "" {
		return errors.New("creator is required")
	}
	return nil
}

// UpdatePatientRequest carries optional patient field updates.
type UpdatePatientRequest struct {
	Name    *string `json:"name,omitempty"`
	Age     *int    `json:"age,omitempty"`
	Gender  *string `json:"gender,omitempty"`
	Phone   *string `json:"phone,omitempty"`
	Email   *string `json:"email,omitempty"`
	Address *string `json:"address,omitempty"`
}

// HasUpdates reports whether any field is set.
func (r *UpdatePatientRequest) HasUpdates() bool {
	return r.Name != nil || r.Age != nil || r.Gender != nil || r.Phone != nil ||
		r.Email != nil || r.Address != nil
}

// Validate validates the UpdatePatientRequest fields.
func (r *UpdatePatientRequest) Validate() error {
	if !r.HasUpdates() {
		return errors.New("no fields to update")
	}
	if r.Name != nil && strings.TrimSpace(*r.Name) == "" {
		return errors.New("name cannot be empty")
	}
	if r.Age != nil && (*r.Age < 0 || *r.Age > 150) {
		return errors.New("age must be between 0 and 150")
	}
	return nil
}
