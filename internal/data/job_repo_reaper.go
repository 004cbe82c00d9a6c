package data

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/UPI05/InsecMed/internal/core"
	"github.com/UPI05/InsecMed/internal/data/pgxutil"
)

// Advisory lock namespace for reaper operations, taken with the two-arg
// pg_try_advisory_xact_lock(major, minor).
const (
	advisoryLockReaperMajor       = 1000
	advisoryLockReaperFailPending = 1 // FailStalePendingJobs
	advisoryLockReaperDelete      = 2 // DeleteOldJobs
)

// staleJobReason is stored in last_error for pending jobs nobody picked up.
const staleJobReason = "job timed out in pending status"

// withReaperLock runs fn in a transaction holding the reaper advisory lock
// for minor. When another reaper instance holds the lock it returns 0.
func (r *JobRepo) withReaperLock(
	ctx context.Context,
	minor int,
	fn func(tx *sql.Tx) (sql.Result, error),
) (int64, error) {
	var rowsAffected int64
	err := pgxutil.WithSQLTx(ctx, r.DB, pgxutil.SQLTxConfig{
		Fn: func(tx *sql.Tx) error {
			var locked bool
			if err := tx.QueryRowContext(ctx, "SELECT pg_try_advisory_xact_lock($1, $2)", advisoryLockReaperMajor, minor).Scan(&locked); err != nil {
				return fmt.Errorf("acquire advisory lock: %w", err)
			}
			if !locked {
				return nil
			}

			res, err := fn(tx)
			if err != nil {
				return err
			}
			ra, err := res.RowsAffected()
			if err != nil {
				return fmt.Errorf("rows affected: %w", err)
			}
			rowsAffected = ra
			return nil
		},
	})
	if err != nil {
		return 0, err
	}
	return rowsAffected, nil
}

// FailStalePendingJobs marks pending jobs older than maxAge as failed, at
// most batchSize per call. Returns the number of jobs marked as failed.
func (r *JobRepo) FailStalePendingJobs(ctx context.Context, maxAge time.Duration, batchSize int) (int64, error) {
	if batchSize <= 0 {
		return 0, errors.New("batch size must be greater than zero")
	}

	return r.withReaperLock(ctx, advisoryLockReaperFailPending, func(tx *sql.Tx) (sql.Result, error) {
		now := r.timeProvider.Now().UTC()
		res, err := tx.ExecContext(ctx, `
			UPDATE jobs
			SET status = 'failed',
				last_error = $4,
				completed_at = $1,
				updated_at = $1
			WHERE id IN (
				SELECT id FROM jobs
				WHERE status = 'pending'
				  AND created_at < $2
				ORDER BY created_at
				LIMIT $3
			)
		`, now, now.Add(-maxAge), batchSize, staleJobReason)
		if err != nil {
			return nil, fmt.Errorf("fail stale pending jobs: %w", err)
		}
		return res, nil
	})
}

// DeleteOldJobs deletes queue rows with the given status older than MaxAge,
// at most BatchSize per call. Result rows are untouched.
func (r *JobRepo) DeleteOldJobs(ctx context.Context, params core.DeleteOldJobsParams) (int64, error) {
	if !params.Status.Terminal() {
		return 0, fmt.Errorf("invalid job status for deletion: %s", params.Status)
	}
	if params.BatchSize <= 0 {
		return 0, errors.New("batch size must be greater than zero")
	}

	return r.withReaperLock(ctx, advisoryLockReaperDelete, func(tx *sql.Tx) (sql.Result, error) {
		cutoff := r.timeProvider.Now().Add(-params.MaxAge).UTC()
		res, err := tx.ExecContext(ctx, `
			DELETE FROM jobs
			WHERE id IN (
				SELECT id FROM jobs
				WHERE status = $1
				  AND (completed_at < $2 OR (completed_at IS NULL AND updated_at < $2))
				ORDER BY COALESCE(completed_at, updated_at)
				LIMIT $3
			)
		`, params.Status, cutoff, params.BatchSize)
		if err != nil {
			return nil, fmt.Errorf("delete old jobs: %w", err)
		}
		return res, nil
	})
}
