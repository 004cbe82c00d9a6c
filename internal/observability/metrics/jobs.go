// Package metrics holds the named metrics emitted by the job pipeline.
package metrics

import (
	"time"

	obserrors "github.com/UPI05/InsecMed/internal/observability/errors"
	"github.com/UPI05/InsecMed/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// Job lifecycle transitions.
const (
	TransitionReserve  = "reserve"
	TransitionComplete = "complete"
	TransitionFail     = "fail"
	TransitionSubmit   = "submit"
)

// JobMetric captures details about a job lifecycle event for metric emission.
type JobMetric struct {
	JobType    string
	Transition string
	Result     string
	Duration   time.Duration
	Err        error
}

// EmitJobLifecycle emits job.transition and, when a duration is known, job.duration.
func EmitJobLifecycle(sink statsd.Sink, in JobMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{
		"job_type":   in.JobType,
		"transition": in.Transition,
		"result":     in.Result,
	}
	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count("job.transition", 1, tags)
	if in.Duration > 0 {
		sink.Timing("job.duration", in.Duration, CloneTags(tags))
	}
}

// InferenceMetric describes one call to the inference or explainability service.
type InferenceMetric struct {
	Operation string // classify, answer or explain
	Model     string
	Duration  time.Duration
	Err       error
}

// EmitInferenceCall emits inference.call with the outcome and inference.duration.
func EmitInferenceCall(sink statsd.Sink, in InferenceMetric) {
	if sink == nil {
		return
	}
	tags := map[string]string{
		"operation": in.Operation,
		"model":     in.Model,
		"result":    ResultSuccess,
	}
	if in.Err != nil {
		tags["result"] = ResultError
		tags["error_class"] = obserrors.Classify(in.Err)
	}
	sink.Count("inference.call", 1, tags)
	if in.Duration > 0 {
		sink.Timing("inference.duration", in.Duration, CloneTags(tags))
	}
}

// EmitExplainFailure counts one explainability slot left empty.
func EmitExplainFailure(sink statsd.Sink, modelName string, err error) {
	if sink == nil {
		return
	}
	tags := map[string]string{"model": modelName}
	if class := obserrors.Classify(err); class != "" {
		tags["error_class"] = class
	}
	sink.Count("explain.failure", 1, tags)
}

// EmitReaperSweep records rows touched by one reaper operation.
func EmitReaperSweep(sink statsd.Sink, operation string, rows int64) {
	if sink == nil {
		return
	}
	sink.Count("reaper.rows", rows, map[string]string{"operation": operation})
}

// CloneTags creates a shallow copy of a tag map.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}
