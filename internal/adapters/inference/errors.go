package inference

import (
	"errors"
	"fmt"
)

var (
	// ErrUpstreamUnavailable covers transport errors, timeouts and 5xx responses.
	ErrUpstreamUnavailable = errors.New("inference: upstream unavailable")
	// ErrInvalidModel covers 400/404/422 responses and responses without a usable result.
	ErrInvalidModel = errors.New("inference: invalid model")
)

// CallError describes a failed call to a model service. It matches
// ErrUpstreamUnavailable or ErrInvalidModel through errors.Is.
type CallError struct {
	Kind       error
	Op         string
	Model      string
	StatusCode int
	Err        error
}

func (e *CallError) Error() string {
	msg := fmt.Sprintf("%s %s", e.Op, e.Model)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": status %d", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg + " (" + e.Kind.Error() + ")"
}

// Unwrap exposes both the kind sentinel and the underlying cause.
func (e *CallError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// ErrorClass implements the metrics Classer contract.
func (e *CallError) ErrorClass() string {
	if errors.Is(e.Kind, ErrInvalidModel) {
		return "invalid_model"
	}
	return "upstream_unavailable"
}

func upstream(op, modelName string, status int, err error) error {
	return &CallError{Kind: ErrUpstreamUnavailable, Op: op, Model: modelName, StatusCode: status, Err: err}
}

func invalidModel(op, modelName string, status int, err error) error {
	return &CallError{Kind: ErrInvalidModel, Op: op, Model: modelName, StatusCode: status, Err: err}
}

// classifyStatus maps a non-2xx HTTP status onto a CallError.
func classifyStatus(op, modelName string, status int, body string) error {
	var cause error
	if body != "" {
		cause = errors.New(body)
	}
	switch status {
	case 400, 404, 422:
		return invalidModel(op, modelName, status, cause)
	default:
		return upstream(op, modelName, status, cause)
	}
}
