package config

import (
	"os"
	"strings"
)

// AppConfig is the main application configuration struct that composes
// domain-specific configuration from separate files.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config
// files for details on available environment variables:
//   - auth.go: Authentication configuration
//   - database.go: Database and Redis configuration
//   - http.go: HTTP server configuration
//   - services.go: Service mode and runner configuration
//   - inference.go: Inference, explainability, storage and status configuration
type AppConfig struct {
	// IsDev controls development mode behavior.
	// Set DEV=true or NODE_ENV=development for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	// Authentication configuration
	Auth AuthConfig

	// Database configuration
	Postgres DBConfig    `envPrefix:"DB_"`
	Redis    RedisConfig `envPrefix:"REDIS_"`

	// HTTP server configuration
	HTTP HTTPConfig

	// Service mode configuration
	Services string `env:"SERVICES" envDefault:"http"`

	// Runner configuration, one per job type.
	DiagnosisRunner RunnerConfig `envPrefix:"DIAGNOSIS_RUNNER_"`
	QARunner        RunnerConfig `envPrefix:"QA_RUNNER_"`

	// Reaper configuration
	Reaper ReaperConfig

	// Remote model services
	Inference InferenceConfig
	Explain   ExplainConfig

	// Upload and artifact storage
	Storage StorageConfig

	// Status polling behavior
	Status StatusConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// This should be called after loading configuration from environment variables.
func (c *AppConfig) Sanitize() {
	c.HTTP.Sanitize()

	c.DiagnosisRunner.Sanitize()
	c.QARunner.Sanitize()
	c.Reaper.Sanitize()
	c.Inference.Sanitize()
	c.Explain.Sanitize()
	c.Storage.Sanitize()
	c.Status.Sanitize()
	c.Observability.Sanitize()

	c.detectDevMode()
}

// detectDevMode checks both DEV and NODE_ENV environment variables.
// NODE_ENV is checked as a fallback.
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		nodeEnv := strings.ToLower(os.Getenv("NODE_ENV"))
		c.IsDev = nodeEnv == "development" || nodeEnv == "dev"
	}
}

// GetEnabledServices returns the enabled services based on the Services field.
func (c *AppConfig) GetEnabledServices() (map[ServiceMode]bool, error) {
	return ParseServices(c.Services)
}

// IsHTTPServerEnabled returns true if the HTTP server service is enabled.
func (c *AppConfig) IsHTTPServerEnabled() bool {
	return c.serviceEnabled(ServiceModeHTTP)
}

// IsDiagnosisRunnerEnabled returns true if the diagnosis runner is enabled.
func (c *AppConfig) IsDiagnosisRunnerEnabled() bool {
	return c.serviceEnabled(ServiceModeDiagnosisRunner)
}

// IsQARunnerEnabled returns true if the visual Q&A runner is enabled.
func (c *AppConfig) IsQARunnerEnabled() bool {
	return c.serviceEnabled(ServiceModeQARunner)
}

// IsReaperEnabled returns true if the reaper service is enabled.
func (c *AppConfig) IsReaperEnabled() bool {
	return c.serviceEnabled(ServiceModeReaper)
}

func (c *AppConfig) serviceEnabled(mode ServiceMode) bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[mode]
}

// RunnersEnabled reports whether any job runner is enabled in this process.
func (c *AppConfig) RunnersEnabled() bool {
	return c.IsDiagnosisRunnerEnabled() || c.IsQARunnerEnabled()
}
