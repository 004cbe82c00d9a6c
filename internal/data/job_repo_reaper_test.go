package data

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/UPI05/InsecMed/internal/core"
	"github.com/UPI05/InsecMed/internal/domain/model"
	"github.com/UPI05/InsecMed/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobRepo_FailStalePendingJobs(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	t.Run("fails stale pending jobs", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			repo := NewJobRepo(db, RepoConfig{})
			ctx := context.Background()

			oldJob, err := repo.Create(ctx, testutil.NewJobRequest().Build())
			require.NoError(t, err)
			_, err = db.ExecContext(ctx, `UPDATE jobs SET created_at = $1 WHERE id = $2`, time.Now().Add(-2*time.Hour), oldJob.ID)
			require.NoError(t, err)

			recentJob, err := repo.Create(ctx, testutil.NewJobRequest().Build())
			require.NoError(t, err)

			count, err := repo.FailStalePendingJobs(ctx, time.Hour, 1000)
			require.NoError(t, err)
			assert.Equal(t, int64(1), count)

			oldJobAfter, err := repo.GetByID(ctx, oldJob.ID)
			require.NoError(t, err)
			assert.Equal(t, model.JobStatusFailed, oldJobAfter.Status)
			require.NotNil(t, oldJobAfter.LastError)
			assert.Equal(t, staleJobReason, *oldJobAfter.LastError)
			assert.NotNil(t, oldJobAfter.CompletedAt)

			recentJobAfter, err := repo.GetByID(ctx, recentJob.ID)
			require.NoError(t, err)
			assert.Equal(t, model.JobStatusPending, recentJobAfter.Status)
		})
	})

	t.Run("does not fail running jobs", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			repo := NewJobRepo(db, RepoConfig{})
			ctx := context.Background()

			job, err := repo.Create(ctx, testutil.NewJobRequest().Build())
			require.NoError(t, err)
			_, err = repo.ReserveNext(ctx, model.JobTypeDiagnosis, 300)
			require.NoError(t, err)
			_, err = db.ExecContext(ctx, `UPDATE jobs SET created_at = $1 WHERE id = $2`, time.Now().Add(-2*time.Hour), job.ID)
			require.NoError(t, err)

			count, err := repo.FailStalePendingJobs(ctx, time.Hour, 1000)
			require.NoError(t, err)
			assert.Zero(t, count)
		})
	})

	t.Run("respects batch size", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			repo := NewJobRepo(db, RepoConfig{})
			ctx := context.Background()

			for range 3 {
				_, err := repo.Create(ctx, testutil.NewJobRequest().Build())
				require.NoError(t, err)
			}
			_, err := db.ExecContext(ctx, `UPDATE jobs SET created_at = $1`, time.Now().Add(-2*time.Hour))
			require.NoError(t, err)

			count, err := repo.FailStalePendingJobs(ctx, time.Hour, 2)
			require.NoError(t, err)
			assert.Equal(t, int64(2), count)

			_, err = repo.FailStalePendingJobs(ctx, time.Hour, 0)
			require.Error(t, err)
		})
	})
}

func TestJobRepo_DeleteOldJobs(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	finish := func(t *testing.T, repo *JobRepo, fail bool) *model.Job {
		t.Helper()
		ctx := context.Background()
		job, err := repo.Create(ctx, testutil.NewJobRequest().Build())
		require.NoError(t, err)
		_, err = repo.ReserveNext(ctx, model.JobTypeDiagnosis, 30)
		require.NoError(t, err)
		if fail {
			_, err = repo.Fail(ctx, job.ID, "boom")
		} else {
			_, err = repo.Complete(ctx, job.ID)
		}
		require.NoError(t, err)
		return job
	}

	t.Run("deletes only old rows with the given status", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			repo := NewJobRepo(db, RepoConfig{})
			ctx := context.Background()

			oldCompleted := finish(t, repo, false)
			oldFailed := finish(t, repo, true)
			recentCompleted := finish(t, repo, false)
			_, err := db.ExecContext(ctx, `UPDATE jobs SET completed_at = $1 WHERE id IN ($2, $3)`,
				time.Now().Add(-48*time.Hour), oldCompleted.ID, oldFailed.ID)
			require.NoError(t, err)

			count, err := repo.DeleteOldJobs(ctx, core.DeleteOldJobsParams{
				Status:    model.JobStatusCompleted,
				MaxAge:    24 * time.Hour,
				BatchSize: 100,
			})
			require.NoError(t, err)
			assert.Equal(t, int64(1), count)

			_, err = repo.GetByID(ctx, oldCompleted.ID)
			require.ErrorIs(t, err, ErrJobNotFound)
			_, err = repo.GetByID(ctx, oldFailed.ID)
			require.NoError(t, err)
			_, err = repo.GetByID(ctx, recentCompleted.ID)
			require.NoError(t, err)

			count, err = repo.DeleteOldJobs(ctx, core.DeleteOldJobsParams{
				Status:    model.JobStatusFailed,
				MaxAge:    24 * time.Hour,
				BatchSize: 100,
			})
			require.NoError(t, err)
			assert.Equal(t, int64(1), count)
		})
	})

	t.Run("does not touch result rows", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			repo := NewJobRepo(db, RepoConfig{})
			records := NewDiagnosisRepo(db, RecordRepoConfig{})
			ctx := context.Background()

			job := finish(t, repo, false)
			_, err := records.Append(ctx, testutil.NewDiagnosisRecord(job.ID).Build())
			require.NoError(t, err)
			_, err = db.ExecContext(ctx, `UPDATE jobs SET completed_at = $1`, time.Now().Add(-48*time.Hour))
			require.NoError(t, err)

			count, err := repo.DeleteOldJobs(ctx, core.DeleteOldJobsParams{
				Status:    model.JobStatusCompleted,
				MaxAge:    24 * time.Hour,
				BatchSize: 100,
			})
			require.NoError(t, err)
			assert.Equal(t, int64(1), count)

			_, err = records.GetByHandle(ctx, job.ID)
			require.NoError(t, err)
		})
	})

	t.Run("non-terminal status returns error", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			repo := NewJobRepo(db, RepoConfig{})

			_, err := repo.DeleteOldJobs(context.Background(), core.DeleteOldJobsParams{
				Status:    model.JobStatusPending,
				MaxAge:    time.Hour,
				BatchSize: 10,
			})
			require.Error(t, err)
		})
	})
}
