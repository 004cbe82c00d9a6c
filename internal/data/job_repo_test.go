package data

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/UPI05/InsecMed/internal/data/pgxutil"
	"github.com/UPI05/InsecMed/internal/domain/model"
	"github.com/UPI05/InsecMed/internal/testutil"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobRepo_Create(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	tests := []struct {
		name    string
		req     *model.CreateJobRequest
		wantErr string
	}{
		{
			name: "diagnosis job",
			req:  testutil.NewJobRequest().Build(),
		},
		{
			name: "qa job with metadata",
			req: &model.CreateJobRequest{
				Type:     model.JobTypeQA,
				Payload:  json.RawMessage(`{"model":"llava-med","question":"Is there a fracture?","input_artifact":"vqa_x.png"}`),
				Metadata: json.RawMessage(`{"source":"api"}`),
				OwnerID:  "doc@clinic.test",
				Priority: 75,
			},
		},
		{
			name: "scheduled job",
			req: testutil.NewJobRequest().
				WithScheduledAt(time.Now().Add(time.Hour)).
				WithMaxRetries(2).
				Build(),
		},
		{
			name:    "invalid job type",
			req:     testutil.NewJobRequest().WithType("browser").Build(),
			wantErr: "invalid job type",
		},
		{
			name:    "missing owner",
			req:     testutil.NewJobRequest().WithOwner(" ").Build(),
			wantErr: "owner is required",
		},
		{
			name:    "invalid priority",
			req:     testutil.NewJobRequest().WithPriority(150).Build(),
			wantErr: "priority must be between 0 and 100",
		},
		{
			name:    "malformed payload",
			req:     testutil.NewJobRequest().WithPayloadString(`{"models":`).Build(),
			wantErr: "payload must be valid JSON",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testutil.WithAutoDB(t, func(db *sql.DB) {
				repo := NewJobRepo(db, RepoConfig{})

				job, err := repo.Create(context.Background(), tt.req)

				if tt.wantErr != "" {
					require.Error(t, err)
					assert.Contains(t, err.Error(), tt.wantErr)
					assert.Nil(t, job)
					return
				}

				require.NoError(t, err)
				require.NotNil(t, job)

				assert.NotEmpty(t, job.ID)
				assert.Equal(t, tt.req.Type, job.Type)
				assert.Equal(t, model.JobStatusPending, job.Status)
				assert.Equal(t, tt.req.Priority, job.Priority)
				assert.Equal(t, tt.req.OwnerID, job.OwnerID)
				assert.Equal(t, tt.req.MaxRetries, job.MaxRetries)
				assert.JSONEq(t, string(tt.req.Payload), string(job.Payload))
				assert.Equal(t, 0, job.RetryCount)
				assert.NotZero(t, job.CreatedAt)
				if tt.req.Metadata != nil {
					assert.JSONEq(t, string(tt.req.Metadata), string(job.Metadata))
				} else {
					assert.JSONEq(t, `{}`, string(job.Metadata))
				}
				if tt.req.ScheduledAt != nil {
					assert.WithinDuration(t, *tt.req.ScheduledAt, job.ScheduledAt, time.Second)
				}
			})
		})
	}
}

func TestJobRepo_ReserveNext(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	t.Run("reserves highest priority job of the requested type", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			repo := NewJobRepo(db, RepoConfig{})
			ctx := context.Background()

			_, err := repo.Create(ctx, testutil.NewJobRequest().WithPriority(25).Build())
			require.NoError(t, err)
			high, err := repo.Create(ctx, testutil.NewJobRequest().WithPriority(75).Build())
			require.NoError(t, err)
			_, err = repo.Create(ctx, testutil.NewJobRequest().WithType(model.JobTypeQA).WithPriority(100).Build())
			require.NoError(t, err)

			job, err := repo.ReserveNext(ctx, model.JobTypeDiagnosis, 30)
			require.NoError(t, err)

			assert.Equal(t, high.ID, job.ID)
			assert.Equal(t, model.JobStatusRunning, job.Status)
			require.NotNil(t, job.StartedAt)
			require.NotNil(t, job.LeaseExpiresAt)
			assert.InDelta(t, 30.0, job.LeaseExpiresAt.Sub(*job.StartedAt).Seconds(), 1.0)
		})
	})

	t.Run("no jobs available", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			repo := NewJobRepo(db, RepoConfig{})

			job, err := repo.ReserveNext(context.Background(), model.JobTypeDiagnosis, 30)
			require.ErrorIs(t, err, model.ErrNoJobsAvailable)
			assert.Nil(t, job)
		})
	})

	t.Run("future scheduled job is not reserved", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			repo := NewJobRepo(db, RepoConfig{})
			ctx := context.Background()

			_, err := repo.Create(ctx, testutil.NewJobRequest().WithScheduledAt(time.Now().Add(time.Hour)).Build())
			require.NoError(t, err)

			_, err = repo.ReserveNext(ctx, model.JobTypeDiagnosis, 30)
			require.ErrorIs(t, err, model.ErrNoJobsAvailable)
		})
	})

	t.Run("invalid arguments", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			repo := NewJobRepo(db, RepoConfig{})

			_, err := repo.ReserveNext(context.Background(), "browser", 30)
			require.Error(t, err)
			_, err = repo.ReserveNext(context.Background(), model.JobTypeQA, 0)
			require.Error(t, err)
		})
	})
}

func TestJobRepo_ConcurrentReservation(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewJobRepo(db, RepoConfig{})
		job, err := repo.Create(context.Background(), testutil.NewJobRequest().Build())
		require.NoError(t, err)

		results := make(chan *model.Job, 2)
		errs := make(chan error, 2)
		for range 2 {
			go func() {
				reserved, err := repo.ReserveNext(context.Background(), model.JobTypeDiagnosis, 30)
				if err != nil {
					errs <- err
					return
				}
				results <- reserved
			}()
		}

		var successCount, errorCount int
		for range 2 {
			select {
			case reserved := <-results:
				successCount++
				assert.Equal(t, job.ID, reserved.ID)
			case err := <-errs:
				errorCount++
				require.ErrorIs(t, err, model.ErrNoJobsAvailable)
			case <-time.After(5 * time.Second):
				t.Fatal("Test timed out")
			}
		}

		assert.Equal(t, 1, successCount)
		assert.Equal(t, 1, errorCount)
	})
}

func TestJobRepo_Complete(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewJobRepo(db, RepoConfig{})
		ctx := context.Background()

		job, err := repo.Create(ctx, testutil.NewJobRequest().Build())
		require.NoError(t, err)

		ok, err := repo.Complete(ctx, job.ID)
		require.NoError(t, err)
		assert.False(t, ok, "pending job cannot be completed")

		_, err = repo.ReserveNext(ctx, model.JobTypeDiagnosis, 30)
		require.NoError(t, err)

		ok, err = repo.Complete(ctx, job.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := repo.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, model.JobStatusCompleted, got.Status)
		assert.NotNil(t, got.CompletedAt)
		assert.Nil(t, got.LeaseExpiresAt)

		ok, err = repo.Complete(ctx, job.ID)
		require.NoError(t, err)
		assert.False(t, ok, "completing twice is a no-op")
	})
}

func TestJobRepo_Fail(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	t.Run("zero retries fails terminally on first failure", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			repo := NewJobRepo(db, RepoConfig{})
			ctx := context.Background()

			job, err := repo.Create(ctx, testutil.NewJobRequest().WithMaxRetries(0).Build())
			require.NoError(t, err)
			_, err = repo.ReserveNext(ctx, model.JobTypeDiagnosis, 30)
			require.NoError(t, err)

			ok, err := repo.Fail(ctx, job.ID, "inference service unavailable")
			require.NoError(t, err)
			assert.True(t, ok)

			got, err := repo.GetByID(ctx, job.ID)
			require.NoError(t, err)
			assert.Equal(t, model.JobStatusFailed, got.Status)
			require.NotNil(t, got.LastError)
			assert.Equal(t, "inference service unavailable", *got.LastError)
			assert.Equal(t, 1, got.RetryCount)
		})
	})

	t.Run("remaining retries return job to pending", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			repo := NewJobRepo(db, RepoConfig{RetryDelaySeconds: 60})
			ctx := context.Background()

			job, err := repo.Create(ctx, testutil.NewJobRequest().WithMaxRetries(3).Build())
			require.NoError(t, err)
			_, err = repo.ReserveNext(ctx, model.JobTypeDiagnosis, 30)
			require.NoError(t, err)

			ok, err := repo.Fail(ctx, job.ID, "transient")
			require.NoError(t, err)
			assert.True(t, ok)

			got, err := repo.GetByID(ctx, job.ID)
			require.NoError(t, err)
			assert.Equal(t, model.JobStatusPending, got.Status)
			assert.True(t, got.ScheduledAt.After(time.Now().Add(30*time.Second)))
		})
	})

	t.Run("not running", func(t *testing.T) {
		testutil.WithAutoDB(t, func(db *sql.DB) {
			repo := NewJobRepo(db, RepoConfig{})

			job, err := repo.Create(context.Background(), testutil.NewJobRequest().Build())
			require.NoError(t, err)

			ok, err := repo.Fail(context.Background(), job.ID, "boom")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	})
}

func TestJobRepo_Heartbeat(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		tp := NewFixedTimeProvider(testutil.TestTime())
		repo := NewJobRepo(db, RepoConfig{TimeProvider: tp})
		ctx := context.Background()

		job, err := repo.Create(ctx, testutil.NewJobRequest().Build())
		require.NoError(t, err)

		ok, err := repo.Heartbeat(ctx, job.ID, 30)
		require.NoError(t, err)
		assert.False(t, ok, "pending job has no lease")

		_, err = repo.ReserveNext(ctx, model.JobTypeDiagnosis, 30)
		require.NoError(t, err)

		tp.AddTime(20 * time.Second)
		ok, err = repo.Heartbeat(ctx, job.ID, 30)
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := repo.GetByID(ctx, job.ID)
		require.NoError(t, err)
		require.NotNil(t, got.LeaseExpiresAt)
		assert.True(t, got.LeaseExpiresAt.Equal(testutil.TestTime().Add(50*time.Second)))

		_, err = repo.Heartbeat(ctx, job.ID, 0)
		require.Error(t, err)
	})
}

func TestJobRepo_RequeueExpired(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		tp := NewFixedTimeProvider(testutil.TestTime())
		repo := NewJobRepo(db, RepoConfig{TimeProvider: tp})
		ctx := context.Background()

		job, err := repo.Create(ctx, testutil.NewJobRequest().Build())
		require.NoError(t, err)

		reserved, err := repo.ReserveNext(ctx, model.JobTypeDiagnosis, 1)
		require.NoError(t, err)
		assert.Equal(t, job.ID, reserved.ID)

		tp.AddTime(2 * time.Second)

		count, err := repo.requeueExpired(ctx, model.JobTypeDiagnosis)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)

		requeued, err := repo.ReserveNext(ctx, model.JobTypeDiagnosis, 30)
		require.NoError(t, err)
		assert.Equal(t, job.ID, requeued.ID)
		assert.Equal(t, model.JobStatusRunning, requeued.Status)
	})
}

func TestJobRepo_Stats(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewJobRepo(db, RepoConfig{})
		ctx := context.Background()

		for range 3 {
			_, err := repo.Create(ctx, testutil.NewJobRequest().Build())
			require.NoError(t, err)
		}
		_, err := repo.Create(ctx, testutil.NewJobRequest().WithType(model.JobTypeQA).Build())
		require.NoError(t, err)

		running, err := repo.ReserveNext(ctx, model.JobTypeDiagnosis, 30)
		require.NoError(t, err)
		done, err := repo.ReserveNext(ctx, model.JobTypeDiagnosis, 30)
		require.NoError(t, err)
		_, err = repo.Complete(ctx, done.ID)
		require.NoError(t, err)
		assert.NotEqual(t, running.ID, done.ID)

		stats, err := repo.Stats(ctx, model.JobTypeDiagnosis)
		require.NoError(t, err)
		assert.Equal(t, model.JobStats{Pending: 1, Running: 1, Completed: 1}, *stats)
	})
}

func TestJobRepo_GetByID_NotFound(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewJobRepo(db, RepoConfig{})

		_, err := repo.GetByID(context.Background(), "6f1c1f3e-0000-4000-8000-000000000000")
		require.ErrorIs(t, err, ErrJobNotFound)

		_, err = repo.GetByID(context.Background(), "not-a-uuid")
		require.ErrorIs(t, err, ErrJobNotFound)
	})
}

func TestJobRepo_WaitForNotification(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewJobRepo(db, RepoConfig{})
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		done := make(chan error, 1)
		go func() { done <- repo.WaitForNotification(ctx, model.JobTypeQA) }()

		// LISTEN happens asynchronously; keep enqueuing until the waiter wakes.
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case err := <-done:
				require.NoError(t, err)
				return
			case <-ticker.C:
				_, err := repo.Create(ctx, testutil.NewJobRequest().WithType(model.JobTypeQA).Build())
				require.NoError(t, err)
			case <-ctx.Done():
				t.Fatal("notification not received")
			}
		}
	})
}

func TestAdvisoryLockRequeueMinor(t *testing.T) {
	a := advisoryLockRequeueMinor(model.JobTypeDiagnosis)
	b := advisoryLockRequeueMinor(model.JobTypeQA)

	assert.NotEqual(t, a, b)
	assert.GreaterOrEqual(t, a, int64(0))
	assert.Equal(t, a, advisoryLockRequeueMinor(model.JobTypeDiagnosis))
}

// TestPgxConversionFunctions tests the pgx transaction option conversion utilities.
func TestPgxConversionFunctions(t *testing.T) {
	t.Run("toPgxTxOptions", func(t *testing.T) {
		tests := []struct {
			name     string
			input    *sql.TxOptions
			expected pgx.TxOptions
		}{
			{name: "nil options", input: nil, expected: pgx.TxOptions{}},
			{
				name:     "read committed, read-write",
				input:    &sql.TxOptions{Isolation: sql.LevelReadCommitted},
				expected: pgx.TxOptions{IsoLevel: pgx.ReadCommitted, AccessMode: pgx.ReadWrite},
			},
			{
				name:     "serializable, read-only",
				input:    &sql.TxOptions{Isolation: sql.LevelSerializable, ReadOnly: true},
				expected: pgx.TxOptions{IsoLevel: pgx.Serializable, AccessMode: pgx.ReadOnly},
			},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				result := pgxutil.ToPgxTxOptions(tt.input)
				assert.Equal(t, tt.expected.IsoLevel, result.IsoLevel)
				assert.Equal(t, tt.expected.AccessMode, result.AccessMode)
			})
		}
	})

	t.Run("toPgxIsoLevel", func(t *testing.T) {
		assert.Equal(t, pgx.TxIsoLevel(""), pgxutil.ToPgxIsoLevel(sql.LevelDefault))
		assert.Equal(t, pgx.Serializable, pgxutil.ToPgxIsoLevel(sql.LevelLinearizable))
		assert.Equal(t, pgx.RepeatableRead, pgxutil.ToPgxIsoLevel(sql.LevelSnapshot))
		assert.Equal(t, pgx.ReadCommitted, pgxutil.ToPgxIsoLevel(sql.LevelWriteCommitted))
		assert.Equal(t, pgx.ReadUncommitted, pgxutil.ToPgxIsoLevel(sql.LevelReadUncommitted))
	})
}
