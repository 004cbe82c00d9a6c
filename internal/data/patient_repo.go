package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/UPI05/InsecMed/internal/data/pgxutil"
	"github.com/UPI05/InsecMed/internal/domain/model"
	apperrors "github.com/UPI05/InsecMed/internal/errors"
	"github.com/jackc/pgx/v5"
)

// PatientRepo provides database operations for the patient registry. Every
// query is scoped to the creator.
type PatientRepo struct {
	DB           *sql.DB
	timeProvider TimeProvider
}

// NewPatientRepo creates a new PatientRepo with real time provider.
func NewPatientRepo(db *sql.DB) *PatientRepo {
	return &PatientRepo{DB: db, timeProvider: &RealTimeProvider{}}
}

// NewPatientRepoWithTimeProvider creates a new PatientRepo with a custom time provider (useful for tests).
func NewPatientRepoWithTimeProvider(db *sql.DB, tp TimeProvider) *PatientRepo {
	return &PatientRepo{DB: db, timeProvider: tp}
}

const patientColumns = `id, name, age, gender, phone, email, address, creator_id, created_at, updated_at`

const (
	patientGetQuery = `
		SELECT ` + patientColumns + `
		FROM patients
		WHERE id = $1 AND creator_id = $2`

	patientListQuery = `
		SELECT ` + patientColumns + `
		FROM patients
		WHERE creator_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`
)

// Create inserts a new patient.
func (r *PatientRepo) Create(ctx context.Context, req *model.CreatePatientRequest) (*model.Patient, error) {
	if req == nil {
		return nil, errors.New("create patient request is required")
	}
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	now := r.timeProvider.Now().UTC()
	var out model.Patient
	if err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, `
			INSERT INTO patients (name, age, gender, phone, email, address, creator_id, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8)
			RETURNING `+patientColumns,
			req.Name, req.Age, req.Gender, req.Phone, req.Email, req.Address, req.CreatorID, now,
		)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Patient])
		return err
	}); err != nil {
		return nil, mapPatientErr(err)
	}
	return &out, nil
}

// GetByID returns the creator's patient. Another creator's patient reads as not found.
func (r *PatientRepo) GetByID(ctx context.Context, id, creatorID string) (*model.Patient, error) {
	var out model.Patient
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, patientGetQuery, id, creatorID)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Patient])
		return err
	})
	if err != nil {
		return nil, mapPatientErr(err)
	}
	return &out, nil
}

// List returns the creator's patients, newest first.
func (r *PatientRepo) List(ctx context.Context, creatorID string, limit, offset int) ([]*model.Patient, error) {
	limit, offset = clampPage(limit, offset)

	var out []*model.Patient
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, patientListQuery, creatorID, limit, offset)
		if err != nil {
			return fmt.Errorf("query patients: %w", err)
		}
		defer rows.Close()
		out, err = pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[model.Patient])
		if err != nil {
			return fmt.Errorf("collect patients: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Update applies the set fields of req to the creator's patient.
func (r *PatientRepo) Update(
	ctx context.Context,
	id, creatorID string,
	req model.UpdatePatientRequest,
) (*model.Patient, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	setClause, args := r.buildUpdateClause(req)
	args = append(args, id, creatorID)
	query := "UPDATE patients SET " + setClause +
		" WHERE id = $" + strconv.Itoa(len(args)-1) +
		" AND creator_id = $" + strconv.Itoa(len(args)) +
		" RETURNING " + patientColumns

	var out model.Patient
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		out, err = pgx.CollectOneRow(rows, pgx.RowToStructByName[model.Patient])
		return err
	})
	if err != nil {
		return nil, mapPatientErr(err)
	}
	return &out, nil
}

func (r *PatientRepo) buildUpdateClause(req model.UpdatePatientRequest) (string, []any) {
	setParts := make([]string, 0, 7)
	args := make([]any, 0, 9)
	set := func(column string, value any) {
		args = append(args, value)
		setParts = append(setParts, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if req.Name != nil {
		set("name", strings.TrimSpace(*req.Name))
	}
	if req.Age != nil {
		set("age", *req.Age)
	}
	if req.Gender != nil {
		set("gender", strings.TrimSpace(*req.Gender))
	}
	if req.Phone != nil {
		set("phone", strings.TrimSpace(*req.Phone))
	}
	if req.Email != nil {
		set("email", strings.TrimSpace(*req.Email))
	}
	if req.Address != nil {
		set("address", strings.TrimSpace(*req.Address))
	}
	set("updated_at", r.timeProvider.Now().UTC())

	return strings.Join(setParts, ", "), args
}

// Delete removes the creator's patient and reports whether a row was deleted.
func (r *PatientRepo) Delete(ctx context.Context, id, creatorID string) (bool, error) {
	var affected int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		ct, err := conn.Exec(ctx, `DELETE FROM patients WHERE id = $1 AND creator_id = $2`, id, creatorID)
		if err != nil {
			return err
		}
		affected = ct.RowsAffected()
		return nil
	})
	if isInvalidUUID(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to delete patient: %w", err)
	}
	return affected > 0, nil
}

func mapPatientErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows), isInvalidUUID(err):
		return ErrPatientNotFound
	case apperrors.IsUniqueViolation(err):
		return ErrPatientExists
	default:
		return err
	}
}

// clampPage applies the default and maximum page size shared by list queries.
func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = 50
	}
	if limit > 1000 {
		limit = 1000
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
