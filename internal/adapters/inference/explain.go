package inference

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
)

const opExplain = "explain"

// ExplainOptions configures an ExplainClient.
type ExplainOptions struct {
	URL        string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// ExplainClient calls the explainability side-service, which returns an image.
type ExplainClient struct {
	url  string
	http *http.Client
}

// NewExplainClient creates an ExplainClient for the given endpoint.
func NewExplainClient(opts ExplainOptions) (*ExplainClient, error) {
	url := strings.TrimSpace(opts.URL)
	if url == "" {
		return nil, errors.New("explain url is required")
	}
	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	return &ExplainClient{url: url, http: hc}, nil
}

// Explain requests an explanation of prediction for the target model and
// returns the artifact bytes.
func (c *ExplainClient) Explain(ctx context.Context, img Image, target, prediction string) ([]byte, error) {
	fields := []formField{{name: "model_kind", value: target}, {name: "prediction", value: prediction}}
	body, ct, err := buildForm(fields, "image", img)
	if err != nil {
		return nil, err
	}
	out, err := postForm(ctx, c.http, c.url, opExplain, target, body, ct)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, upstream(opExplain, target, http.StatusOK, errors.New("empty explanation"))
	}
	return out, nil
}
