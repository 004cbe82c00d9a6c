package config

import (
	"path/filepath"
	"strings"
	"time"
)

// DefaultPredictionsExpr maps both the per-label and the legacy top-label
// response shapes of the inference service onto a list of
// {label, origin, score} objects.
const DefaultPredictionsExpr = `results[0].predictions[*].{label: label, origin: origin || label, score: score}` +
	` || [results[0].{label: top_label, origin: top_label_origin || top_label, score: top_score}]`

// InferenceConfig describes how to reach the remote inference service.
type InferenceConfig struct {
	// BaseURL is the inference service root, e.g. http://10.0.0.5:8080.
	BaseURL string `env:"INFERENCE_BASE_URL"`

	// Timeout bounds a single Classify or Answer call.
	Timeout time.Duration `env:"INFERENCE_TIMEOUT" envDefault:"60s"`

	// PredictionsExpr is a JMESPath expression evaluated against the /diagnose response.
	PredictionsExpr string `env:"INFERENCE_PREDICTIONS_EXPR"`

	// AnswerExpr is a JMESPath expression evaluated against the /vqa-diagnose response.
	AnswerExpr string `env:"INFERENCE_ANSWER_EXPR" envDefault:"answer"`
}

// Sanitize applies defaults to inference configuration values.
func (c *InferenceConfig) Sanitize() {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if strings.TrimSpace(c.PredictionsExpr) == "" {
		c.PredictionsExpr = DefaultPredictionsExpr
	}
	if strings.TrimSpace(c.AnswerExpr) == "" {
		c.AnswerExpr = "answer"
	}
}

// ExplainConfig describes the explainability side-service.
type ExplainConfig struct {
	Enabled bool          `env:"EXPLAIN_ENABLED" envDefault:"true"`
	URL     string        `env:"EXPLAIN_URL"`
	Timeout time.Duration `env:"EXPLAIN_TIMEOUT" envDefault:"60s"`
}

// Sanitize disables explainability when no endpoint is configured.
func (c *ExplainConfig) Sanitize() {
	c.URL = strings.TrimSpace(c.URL)
	if c.URL == "" {
		c.Enabled = false
	}
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
}

// StorageConfig controls where uploads and explainability artifacts live.
type StorageConfig struct {
	UploadDir         string   `env:"STORAGE_UPLOAD_DIR"         envDefault:"./data/uploads"`
	AllowedExtensions []string `env:"STORAGE_ALLOWED_EXTENSIONS" envDefault:"png,jpg,jpeg,nrrd,hdr,img,nii,gz,dcm"`
}

// Sanitize normalises the upload directory and extension list.
func (c *StorageConfig) Sanitize() {
	if strings.TrimSpace(c.UploadDir) == "" {
		c.UploadDir = "./data/uploads"
	}
	c.UploadDir = filepath.Clean(c.UploadDir)

	exts := make([]string, 0, len(c.AllowedExtensions))
	for _, e := range c.AllowedExtensions {
		e = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(e), "."))
		if e != "" {
			exts = append(exts, e)
		}
	}
	c.AllowedExtensions = exts
}

// StatusConfig controls how job status is reported to pollers.
type StatusConfig struct {
	// RedactDiagnosisFailures replaces diagnosis failure reasons with "private".
	RedactDiagnosisFailures bool `env:"STATUS_REDACT_DIAGNOSIS_FAILURES" envDefault:"true"`

	// RedactQAFailures replaces Q&A failure reasons with "private".
	RedactQAFailures bool `env:"STATUS_REDACT_QA_FAILURES" envDefault:"false"`

	// CacheTTL is how long terminal statuses are cached in Redis. Zero disables the cache.
	CacheTTL time.Duration `env:"STATUS_CACHE_TTL" envDefault:"10m"`
}

// Sanitize clamps negative TTLs to zero.
func (c *StatusConfig) Sanitize() {
	if c.CacheTTL < 0 {
		c.CacheTTL = 0
	}
}
