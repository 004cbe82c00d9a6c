package config

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// BaseURL is the base URL of the application (e.g., "https://insecmed.example.com").
	// Used for login redirects and links in failure notifications.
	BaseURL string `env:"APP_BASE_URL" envDefault:"http://localhost:8080"`

	// CookieDomain is the domain for session cookies.
	// Leave empty to use the request domain.
	CookieDomain string `env:"APP_COOKIE_DOMAIN" envDefault:""`

	// MaxUploadBytes bounds the multipart body accepted by submission endpoints.
	MaxUploadBytes int64 `env:"HTTP_MAX_UPLOAD_BYTES" envDefault:"67108864"`

	// SubmitRateLimitPerMinute caps submissions per principal per minute. Zero disables the limit.
	SubmitRateLimitPerMinute int `env:"SUBMIT_RATE_LIMIT_PER_MINUTE" envDefault:"0"`
}

const minUploadBytes = 1 << 20

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	if h.MaxUploadBytes < minUploadBytes {
		h.MaxUploadBytes = minUploadBytes
	}
	if h.SubmitRateLimitPerMinute < 0 {
		h.SubmitRateLimitPerMinute = 0
	}
}
