package metrics

import (
	"errors"
	"sync"
	"testing"
	"time"

	apperrors "github.com/UPI05/InsecMed/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedMetric struct {
	kind  string
	name  string
	value float64
	tags  map[string]string
}

type recordingSink struct {
	mu      sync.Mutex
	metrics []recordedMetric
}

func (s *recordingSink) Count(name string, value int64, tags map[string]string) {
	s.add(recordedMetric{kind: "count", name: name, value: float64(value), tags: tags})
}

func (s *recordingSink) Gauge(name string, value float64, tags map[string]string) {
	s.add(recordedMetric{kind: "gauge", name: name, value: value, tags: tags})
}

func (s *recordingSink) Timing(name string, value time.Duration, tags map[string]string) {
	s.add(recordedMetric{kind: "timing", name: name, value: float64(value), tags: tags})
}

func (s *recordingSink) add(m recordedMetric) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.metrics = append(s.metrics, m)
}

func TestEmitJobLifecycle(t *testing.T) {
	sink := &recordingSink{}
	EmitJobLifecycle(sink, JobMetric{
		JobType:    "diagnosis",
		Transition: TransitionFail,
		Result:     ResultError,
		Duration:   2 * time.Second,
		Err:        apperrors.UpstreamUnavailable("down"),
	})

	require.Len(t, sink.metrics, 2)
	assert.Equal(t, "job.transition", sink.metrics[0].name)
	assert.Equal(t, "upstream_unavailable", sink.metrics[0].tags["error_class"])
	assert.Equal(t, "job.duration", sink.metrics[1].name)

	EmitJobLifecycle(nil, JobMetric{})
}

func TestEmitInferenceCall(t *testing.T) {
	sink := &recordingSink{}
	EmitInferenceCall(sink, InferenceMetric{Operation: "classify", Model: "skin"})
	EmitInferenceCall(sink, InferenceMetric{Operation: "answer", Model: "llava", Err: errors.New("x")})

	require.Len(t, sink.metrics, 2)
	assert.Equal(t, ResultSuccess, sink.metrics[0].tags["result"])
	assert.Equal(t, ResultError, sink.metrics[1].tags["result"])
}

func TestEmitExplainFailure(t *testing.T) {
	sink := &recordingSink{}
	EmitExplainFailure(sink, "skin", errors.New("x"))

	require.Len(t, sink.metrics, 1)
	assert.Equal(t, "explain.failure", sink.metrics[0].name)
	assert.Equal(t, "skin", sink.metrics[0].tags["model"])
	assert.InDelta(t, 1, sink.metrics[0].value, 0)
}

func TestEmitReaperSweep(t *testing.T) {
	sink := &recordingSink{}
	EmitReaperSweep(sink, "delete_completed", 12)
	require.Len(t, sink.metrics, 1)
	assert.InDelta(t, 12, sink.metrics[0].value, 0)
}
