// Package inference talks to the remote model services: the classification
// and visual Q&A endpoints, and the explainability side-service.
package inference

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	jmespath "github.com/jmespath-community/go-jmespath"

	"github.com/UPI05/InsecMed/internal/domain/model"
)

const (
	opClassify = "classify"
	opAnswer   = "answer"

	defaultAnswerExpr = "answer"
)

// ClientOptions configures a Client.
type ClientOptions struct {
	BaseURL string
	Timeout time.Duration
	// PredictionsExpr maps a /diagnose response onto [{label, origin, score}].
	PredictionsExpr string
	// AnswerExpr selects the answer string from a /vqa-diagnose response.
	AnswerExpr string
	HTTPClient *http.Client
}

// Client is a stateless adapter over the inference service. It is safe for concurrent use.
type Client struct {
	baseURL         string
	predictionsExpr string
	answerExpr      string
	http            *http.Client
}

// NewClient validates the options and both JMESPath expressions.
func NewClient(opts ClientOptions) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if base == "" {
		return nil, errors.New("inference base url is required")
	}
	if strings.TrimSpace(opts.PredictionsExpr) == "" {
		return nil, errors.New("predictions expression is required")
	}
	if _, err := jmespath.Compile(opts.PredictionsExpr); err != nil {
		return nil, fmt.Errorf("compile predictions expression: %w", err)
	}
	answerExpr := strings.TrimSpace(opts.AnswerExpr)
	if answerExpr == "" {
		answerExpr = defaultAnswerExpr
	}
	if _, err := jmespath.Compile(answerExpr); err != nil {
		return nil, fmt.Errorf("compile answer expression: %w", err)
	}

	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}

	return &Client{
		baseURL:         base,
		predictionsExpr: opts.PredictionsExpr,
		answerExpr:      answerExpr,
		http:            hc,
	}, nil
}

// Classify runs one diagnosis model on the image.
func (c *Client) Classify(ctx context.Context, img Image, modelName string) ([]model.Prediction, error) {
	body, ct, err := buildForm([]formField{{name: "model", value: modelName}}, "file", img)
	if err != nil {
		return nil, err
	}
	raw, err := postForm(ctx, c.http, c.baseURL+"/diagnose", opClassify, modelName, body, ct)
	if err != nil {
		return nil, err
	}

	doc, err := decodeJSON(raw)
	if err != nil {
		return nil, upstream(opClassify, modelName, http.StatusOK, err)
	}
	found, err := jmespath.Search(c.predictionsExpr, doc)
	if err != nil {
		return nil, invalidModel(opClassify, modelName, http.StatusOK, fmt.Errorf("evaluate predictions: %w", err))
	}

	preds := toPredictions(found)
	if len(preds) == 0 {
		return nil, invalidModel(opClassify, modelName, http.StatusOK, errors.New("no predictions in response"))
	}
	return preds, nil
}

// Answer asks a visual Q&A model a free-text question about the image.
func (c *Client) Answer(ctx context.Context, img Image, question, modelName string) (string, error) {
	fields := []formField{{name: "question", value: question}, {name: "model", value: modelName}}
	body, ct, err := buildForm(fields, "file", img)
	if err != nil {
		return "", err
	}
	raw, err := postForm(ctx, c.http, c.baseURL+"/vqa-diagnose", opAnswer, modelName, body, ct)
	if err != nil {
		return "", err
	}

	doc, err := decodeJSON(raw)
	if err != nil {
		return "", upstream(opAnswer, modelName, http.StatusOK, err)
	}
	found, err := jmespath.Search(c.answerExpr, doc)
	if err != nil {
		return "", invalidModel(opAnswer, modelName, http.StatusOK, fmt.Errorf("evaluate answer: %w", err))
	}
	answer, ok := found.(string)
	if !ok || strings.TrimSpace(answer) == "" {
		return "", invalidModel(opAnswer, modelName, http.StatusOK, errors.New("no answer in response"))
	}
	return strings.TrimSpace(answer), nil
}

func decodeJSON(raw []byte) (any, error) {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return doc, nil
}

// toPredictions keeps entries with a label and a finite score, clamping scores into [0,1].
func toPredictions(found any) []model.Prediction {
	items, ok := found.([]any)
	if !ok {
		return nil
	}
	out := make([]model.Prediction, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		label, _ := m["label"].(string)
		score, ok := m["score"].(float64)
		if label == "" || !ok || math.IsNaN(score) {
			continue
		}
		origin, _ := m["origin"].(string)
		if origin == "" {
			origin = label
		}
		out = append(out, model.Prediction{Label: label, Origin: origin, Score: min(max(score, 0), 1)})
	}
	return out
}
