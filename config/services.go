package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// ServiceMode represents the available service modes.
type ServiceMode string

const (
	// ServiceModeHTTP runs the HTTP server.
	ServiceModeHTTP ServiceMode = "http"
	// ServiceModeDiagnosisRunner runs the diagnosis job runner.
	ServiceModeDiagnosisRunner ServiceMode = "diagnosis-runner"
	// ServiceModeQARunner runs the visual Q&A job runner.
	ServiceModeQARunner ServiceMode = "qa-runner"
	// ServiceModeReaper runs the job reaper for cleanup.
	ServiceModeReaper ServiceMode = "reaper"
)

// ValidServiceModes returns all valid service mode names.
func ValidServiceModes() []ServiceMode {
	return []ServiceMode{
		ServiceModeHTTP,
		ServiceModeDiagnosisRunner,
		ServiceModeQARunner,
		ServiceModeReaper,
	}
}

// ParseServices parses a comma-delimited string of service names and returns the enabled services.
// It validates that all service names are valid and returns an error if any are invalid.
func ParseServices(servicesStr string) (map[ServiceMode]bool, error) {
	services := make(map[ServiceMode]bool)

	if servicesStr == "" {
		return services, errors.New("at least one service must be specified")
	}

	for _, part := range strings.Split(servicesStr, ",") {
		serviceName := strings.TrimSpace(part)
		if serviceName == "" {
			continue
		}

		mode := ServiceMode(serviceName)
		switch mode {
		case ServiceModeHTTP, ServiceModeDiagnosisRunner, ServiceModeQARunner, ServiceModeReaper:
			services[mode] = true
		default:
			return nil, fmt.Errorf(
				"invalid service name: %q (valid options: http, diagnosis-runner, qa-runner, reaper)",
				serviceName,
			)
		}
	}

	if len(services) == 0 {
		return nil, errors.New("at least one valid service must be specified")
	}

	return services, nil
}

// RunnerConfig contains job runner configuration. It is embedded once per
// job type with a distinct env prefix.
type RunnerConfig struct {
	// Concurrency is the number of worker goroutines.
	Concurrency int `env:"CONCURRENCY" envDefault:"2"`

	// JobLease is the duration to lease a job before it may be requeued.
	JobLease time.Duration `env:"JOB_LEASE" envDefault:"2m"`
}

// Sanitize applies guardrails to runner configuration values.
func (r *RunnerConfig) Sanitize() {
	if r.Concurrency < 1 {
		r.Concurrency = 1
	}
	if r.JobLease < 5*time.Second {
		r.JobLease = 5 * time.Second
	}
}

// ReaperConfig contains job reaper service configuration.
type ReaperConfig struct {
	// Schedule is a cron expression (robfig/cron syntax, descriptors allowed).
	Schedule string `env:"REAPER_SCHEDULE" envDefault:"@every 5m"`

	// PendingMaxAge is the maximum age for pending jobs before they are marked as failed.
	PendingMaxAge time.Duration `env:"REAPER_PENDING_MAX_AGE" envDefault:"1h"`

	// JobRetention is how long completed and failed queue rows are kept.
	// Result rows in diagnoses/qa_interactions are never reaped.
	JobRetention time.Duration `env:"REAPER_JOB_RETENTION" envDefault:"168h"`

	// BatchSize is the maximum number of rows to process per operation.
	BatchSize int `env:"REAPER_BATCH_SIZE" envDefault:"1000"`
}

const defaultReaperSchedule = "@every 5m"

// Sanitize applies guardrails to reaper configuration values.
func (r *ReaperConfig) Sanitize() {
	if _, err := cron.ParseStandard(strings.TrimSpace(r.Schedule)); err != nil {
		r.Schedule = defaultReaperSchedule
	}
	r.Schedule = strings.TrimSpace(r.Schedule)
	if r.PendingMaxAge < 5*time.Minute {
		r.PendingMaxAge = 5 * time.Minute
	}
	if r.JobRetention < time.Hour {
		r.JobRetention = time.Hour
	}
	if r.BatchSize < 1 {
		r.BatchSize = 1
	}
	if r.BatchSize > 10000 {
		r.BatchSize = 10000
	}
}
