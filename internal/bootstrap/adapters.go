package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/UPI05/InsecMed/config"
	"github.com/UPI05/InsecMed/internal/adapters/jobrunner"
	"github.com/UPI05/InsecMed/internal/adapters/reaper"
	"github.com/UPI05/InsecMed/internal/domain/model"
	"github.com/UPI05/InsecMed/internal/observability/statsd"
	"github.com/UPI05/InsecMed/internal/service/failurenotifier"
)

// JobRunnerConfig contains configuration for one job type's runner.
type JobRunnerConfig struct {
	DB              *sql.DB
	Logger          *slog.Logger
	JobType         model.JobType
	Runner          config.RunnerConfig
	Pipeline        jobrunner.Pipeline
	Metrics         statsd.Sink
	FailureNotifier *failurenotifier.Service
}

// RunJobRunner drains jobs of cfg.JobType until ctx is cancelled.
func RunJobRunner(ctx context.Context, cfg JobRunnerConfig) error {
	runner, err := jobrunner.NewRunner(jobrunner.RunnerOptions{
		DB:              cfg.DB,
		Logger:          cfg.Logger,
		JobType:         cfg.JobType,
		Lease:           cfg.Runner.JobLease,
		Concurrency:     cfg.Runner.Concurrency,
		Pipeline:        cfg.Pipeline,
		Metrics:         cfg.Metrics,
		FailureNotifier: cfg.FailureNotifier,
	})
	if err != nil {
		return fmt.Errorf("create %s runner: %w", cfg.JobType, err)
	}

	return runner.Run(ctx)
}

// ReaperConfig contains configuration for reaper.
type ReaperConfig struct {
	DB      *sql.DB
	Logger  *slog.Logger
	Config  config.ReaperConfig
	Metrics statsd.Sink
}

// RunReaper starts the reaper service.
func RunReaper(ctx context.Context, cfg ReaperConfig) error {
	runner, err := reaper.NewRunner(reaper.RunnerOptions{
		DB:      cfg.DB,
		Config:  cfg.Config,
		Logger:  cfg.Logger,
		Metrics: cfg.Metrics,
	})
	if err != nil {
		return fmt.Errorf("create reaper runner: %w", err)
	}

	return runner.Run(ctx)
}
