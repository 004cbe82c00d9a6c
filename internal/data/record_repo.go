package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/UPI05/InsecMed/internal/core"
	"github.com/UPI05/InsecMed/internal/data/pgxutil"
	"github.com/UPI05/InsecMed/internal/domain/model"
	"github.com/jackc/pgx/v5"
)

// recordTable describes how one result table maps onto model.Record.
// Both tables share the common columns; selectExtra yields confidence,
// question and answer in that order.
type recordTable struct {
	kind        model.RecordKind
	name        string
	selectExtra string
	insert      func(req *model.AppendRecordRequest, details []byte, now time.Time) (string, []any)
}

var diagnosisTable = recordTable{
	kind:        model.RecordKindDiagnosis,
	name:        "diagnoses",
	selectExtra: "confidence, NULL::text AS question, NULL::text AS answer",
	insert: func(req *model.AppendRecordRequest, details []byte, now time.Time) (string, []any) {
		return `
			INSERT INTO diagnoses (handle, owner_id, subject_id, models, input_artifact, derived_artifacts, summary, details, created_at, confidence)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (handle) DO NOTHING`,
			[]any{req.Handle, req.OwnerID, req.SubjectID, req.Models, req.InputArtifact,
				nonNilStrings(req.DerivedArtifacts), req.Summary, details, now, req.Confidence}
	},
}

var qaTable = recordTable{
	kind:        model.RecordKindQA,
	name:        "qa_interactions",
	selectExtra: "NULL::double precision AS confidence, question, answer",
	insert: func(req *model.AppendRecordRequest, details []byte, now time.Time) (string, []any) {
		return `
			INSERT INTO qa_interactions (handle, owner_id, subject_id, models, input_artifact, derived_artifacts, summary, details, created_at, question, answer)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			ON CONFLICT (handle) DO NOTHING`,
			[]any{req.Handle, req.OwnerID, req.SubjectID, req.Models, req.InputArtifact,
				nonNilStrings(req.DerivedArtifacts), req.Summary, details, now, req.Question, req.Answer}
	},
}

func (t recordTable) selectSQL(where string) string {
	return `
		SELECT id, handle, owner_id, subject_id, models, input_artifact, derived_artifacts,
		       summary, details, accept_share, share_to, sharer, created_at, ` + t.selectExtra + `
		FROM ` + t.name + `
		WHERE ` + where
}

// recordRow is the scan target shared by both result tables.
type recordRow struct {
	ID               string    `db:"id"`
	Handle           string    `db:"handle"`
	OwnerID          string    `db:"owner_id"`
	SubjectID        *string   `db:"subject_id"`
	Models           []string  `db:"models"`
	InputArtifact    string    `db:"input_artifact"`
	DerivedArtifacts []string  `db:"derived_artifacts"`
	Summary          string    `db:"summary"`
	Details          []byte    `db:"details"`
	AcceptShare      *int16    `db:"accept_share"`
	ShareTo          *string   `db:"share_to"`
	Sharer           *string   `db:"sharer"`
	CreatedAt        time.Time `db:"created_at"`
	Confidence       *float64  `db:"confidence"`
	Question         *string   `db:"question"`
	Answer           *string   `db:"answer"`
}

func (row *recordRow) toRecord(kind model.RecordKind) (*model.Record, error) {
	rec := &model.Record{
		ID:               row.ID,
		Kind:             kind,
		Handle:           row.Handle,
		OwnerID:          row.OwnerID,
		SubjectID:        row.SubjectID,
		Models:           nonNilStrings(row.Models),
		InputArtifact:    row.InputArtifact,
		DerivedArtifacts: nonNilStrings(row.DerivedArtifacts),
		Summary:          row.Summary,
		Confidence:       row.Confidence,
		Details:          []model.ModelDetail{},
		CreatedAt:        row.CreatedAt.UTC(),
	}
	if row.Question != nil {
		rec.Question = *row.Question
	}
	if row.Answer != nil {
		rec.Answer = *row.Answer
	}
	if len(row.Details) > 0 {
		if err := json.Unmarshal(row.Details, &rec.Details); err != nil {
			return nil, fmt.Errorf("decode details: %w", err)
		}
	}
	var accept *int
	if row.AcceptShare != nil {
		v := int(*row.AcceptShare)
		accept = &v
	}
	rec.Share = model.ShareStateFromColumns(accept, row.ShareTo, row.Sharer)
	return rec, nil
}

func nonNilStrings(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

// RecordRepoConfig holds configuration options for a result repository.
type RecordRepoConfig struct {
	TimeProvider TimeProvider
}

// RecordRepo provides database operations for one result table.
type RecordRepo struct {
	DB           *sql.DB
	table        recordTable
	timeProvider TimeProvider
}

// NewDiagnosisRepo creates a RecordRepo over the diagnoses table.
func NewDiagnosisRepo(db *sql.DB, cfg RecordRepoConfig) *RecordRepo {
	return newRecordRepo(db, diagnosisTable, cfg)
}

// NewQARepo creates a RecordRepo over the qa_interactions table.
func NewQARepo(db *sql.DB, cfg RecordRepoConfig) *RecordRepo {
	return newRecordRepo(db, qaTable, cfg)
}

func newRecordRepo(db *sql.DB, table recordTable, cfg RecordRepoConfig) *RecordRepo {
	tp := cfg.TimeProvider
	if tp == nil {
		tp = &RealTimeProvider{}
	}
	return &RecordRepo{DB: db, table: table, timeProvider: tp}
}

// Kind returns the record kind stored by this repository.
func (r *RecordRepo) Kind() model.RecordKind { return r.table.kind }

// Append inserts the record for a handle. When a row for the handle already
// exists the insert is skipped and the stored row is returned unchanged.
func (r *RecordRepo) Append(ctx context.Context, req *model.AppendRecordRequest) (*model.Record, error) {
	if req == nil {
		return nil, errors.New("append record request is required")
	}
	if err := req.Validate(r.table.kind); err != nil {
		return nil, err
	}

	details, err := json.Marshal(req.Details)
	if err != nil {
		return nil, fmt.Errorf("encode details: %w", err)
	}

	var out *model.Record
	err = pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		query, args := r.table.insert(req, details, r.timeProvider.Now().UTC())
		if _, execErr := conn.Exec(ctx, query, args...); execErr != nil {
			return fmt.Errorf("insert %s: %w", r.table.name, execErr)
		}
		var getErr error
		out, getErr = r.queryOne(ctx, conn, r.table.selectSQL("handle = $1"), req.Handle)
		return getErr
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns the record with the given id.
func (r *RecordRepo) Get(ctx context.Context, id string) (*model.Record, error) {
	return r.getOne(ctx, r.table.selectSQL("id = $1"), id)
}

// GetByHandle returns the record produced by the job handle.
func (r *RecordRepo) GetByHandle(ctx context.Context, handle string) (*model.Record, error) {
	return r.getOne(ctx, r.table.selectSQL("handle = $1"), handle)
}

// ListByOwner returns the owner's records, newest first.
func (r *RecordRepo) ListByOwner(
	ctx context.Context,
	ownerID string,
	opts model.RecordListOptions,
) ([]*model.Record, error) {
	limit, offset := clampPage(opts.Limit, opts.Offset)
	query := r.table.selectSQL("owner_id = $1") + `
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3`
	return r.list(ctx, query, ownerID, limit, offset)
}

// ListSharedTo returns records offered or shared to identity, newest first.
func (r *RecordRepo) ListSharedTo(
	ctx context.Context,
	identity string,
	filter model.SharedFilter,
) ([]*model.Record, error) {
	var states string
	switch filter {
	case model.SharedFilterPending:
		states = "accept_share = 0"
	case model.SharedFilterAccepted:
		states = "accept_share = 1"
	default:
		states = "accept_share IN (0, 1)"
	}
	query := r.table.selectSQL("share_to = $1 AND "+states) + `
		ORDER BY created_at DESC, id DESC`
	return r.list(ctx, query, identity)
}

// ListByArtifact returns records whose input or derived artifacts include name.
func (r *RecordRepo) ListByArtifact(ctx context.Context, name string) ([]*model.Record, error) {
	if strings.TrimSpace(name) == "" {
		return []*model.Record{}, nil
	}
	query := r.table.selectSQL("input_artifact = $1 OR $1 = ANY(derived_artifacts)") + `
		ORDER BY created_at DESC`
	return r.list(ctx, query, name)
}

// UpdateShareState swaps the share columns when the stored accept_share and
// share_to still equal params.Expected.
func (r *RecordRepo) UpdateShareState(ctx context.Context, params core.UpdateShareStateParams) error {
	expAccept, expTo, _ := params.Expected.Columns()
	nextAccept, nextTo, nextBy := params.Next.Columns()

	query := `
		UPDATE ` + r.table.name + `
		SET accept_share = $2, share_to = $3, sharer = $4
		WHERE id = $1
		  AND accept_share IS NOT DISTINCT FROM $5
		  AND share_to IS NOT DISTINCT FROM $6`

	var affected int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		ct, err := conn.Exec(ctx, query, params.ID, nextAccept, nextTo, nextBy, expAccept, expTo)
		if err != nil {
			return err
		}
		affected = ct.RowsAffected()
		return nil
	})
	if isInvalidUUID(err) {
		return ErrRecordNotFound
	}
	if err != nil {
		return fmt.Errorf("update share state: %w", err)
	}
	if affected > 0 {
		return nil
	}
	return r.missOrConflict(ctx, params.ID, ErrShareConflict)
}

// UpdateSubject sets subject_id on a record owned by params.OwnerID.
func (r *RecordRepo) UpdateSubject(ctx context.Context, params core.UpdateSubjectParams) error {
	query := `UPDATE ` + r.table.name + ` SET subject_id = $3 WHERE id = $1 AND owner_id = $2`

	var affected int64
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		ct, err := conn.Exec(ctx, query, params.ID, params.OwnerID, params.SubjectID)
		if err != nil {
			return err
		}
		affected = ct.RowsAffected()
		return nil
	})
	if isInvalidUUID(err) {
		return ErrRecordNotFound
	}
	if err != nil {
		return fmt.Errorf("update subject: %w", err)
	}
	if affected == 0 {
		return ErrRecordNotFound
	}
	return nil
}

// OwnerStats counts the owner's records in total and per model.
func (r *RecordRepo) OwnerStats(ctx context.Context, ownerID string) (*model.RecordStats, error) {
	stats := &model.RecordStats{ByModel: map[string]int{}}
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		if err := conn.QueryRow(ctx,
			`SELECT count(*) FROM `+r.table.name+` WHERE owner_id = $1`, ownerID,
		).Scan(&stats.Total); err != nil {
			return fmt.Errorf("count records: %w", err)
		}

		rows, err := conn.Query(ctx, `
			SELECT m.model, count(*)
			FROM `+r.table.name+` t, unnest(t.models) AS m(model)
			WHERE t.owner_id = $1
			GROUP BY m.model`, ownerID)
		if err != nil {
			return fmt.Errorf("count records by model: %w", err)
		}
		defer rows.Close()
		for rows.Next() {
			var name string
			var n int
			if scanErr := rows.Scan(&name, &n); scanErr != nil {
				return fmt.Errorf("scan model count: %w", scanErr)
			}
			stats.ByModel[name] = n
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return stats, nil
}

func (r *RecordRepo) missOrConflict(ctx context.Context, id string, conflict error) error {
	if _, err := r.Get(ctx, id); err != nil {
		return err
	}
	return conflict
}

func (r *RecordRepo) getOne(ctx context.Context, query string, args ...any) (*model.Record, error) {
	var out *model.Record
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		var qerr error
		out, qerr = r.queryOne(ctx, conn, query, args...)
		return qerr
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *RecordRepo) queryOne(ctx context.Context, conn *pgx.Conn, query string, args ...any) (*model.Record, error) {
	rows, err := conn.Query(ctx, query, args...)
	if err != nil {
		if isInvalidUUID(err) {
			return nil, ErrRecordNotFound
		}
		return nil, fmt.Errorf("query %s: %w", r.table.name, err)
	}
	defer rows.Close()

	row, err := pgx.CollectOneRow(rows, pgx.RowToStructByName[recordRow])
	if errors.Is(err, pgx.ErrNoRows) || isInvalidUUID(err) {
		return nil, ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("collect %s: %w", r.table.name, err)
	}
	return row.toRecord(r.table.kind)
}

func (r *RecordRepo) list(ctx context.Context, query string, args ...any) ([]*model.Record, error) {
	out := []*model.Record{}
	err := pgxutil.WithPgxConn(ctx, r.DB, func(conn *pgx.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("query %s: %w", r.table.name, err)
		}
		defer rows.Close()

		vals, err := pgx.CollectRows(rows, pgx.RowToAddrOfStructByName[recordRow])
		if err != nil {
			return fmt.Errorf("collect %s: %w", r.table.name, err)
		}
		for _, v := range vals {
			rec, convErr := v.toRecord(r.table.kind)
			if convErr != nil {
				return convErr
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
