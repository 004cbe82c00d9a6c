package errors

import (
	"context"
	"errors"
	"fmt"
	"net"
	"testing"

	apperrors "github.com/UPI05/InsecMed/internal/errors"
	"github.com/stretchr/testify/assert"
)

type classed struct{}

func (classed) Error() string      { return "classed" }
func (classed) ErrorClass() string { return "invalid_model" }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "nil", err: nil, want: ""},
		{name: "app error", err: fmt.Errorf("wrap: %w", apperrors.UpstreamUnavailable("down")), want: "upstream_unavailable"},
		{name: "classer", err: fmt.Errorf("wrap: %w", classed{}), want: "invalid_model"},
		{name: "deadline", err: fmt.Errorf("call: %w", context.DeadlineExceeded), want: "timeout"},
		{name: "canceled", err: context.Canceled, want: "canceled"},
		{name: "concrete type", err: fmt.Errorf("dial: %w", &net.OpError{Op: "dial", Err: errors.New("refused")}), want: "errors_errorstring"},
		{name: "plain", err: errors.New("boom"), want: "errors_errorstring"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}
