// Package testutil provides database, Redis and fixture helpers for InsecMed tests.
package testutil

import (
	"encoding/json"
	"time"

	"github.com/UPI05/InsecMed/internal/domain/model"
)

// JobRequestBuilder provides a fluent interface for building CreateJobRequest objects for testing.
type JobRequestBuilder struct {
	req *model.CreateJobRequest
}

// NewJobRequest creates a diagnosis job request owned by doc@clinic.test.
func NewJobRequest() *JobRequestBuilder {
	return &JobRequestBuilder{
		req: &model.CreateJobRequest{
			Type:     model.JobTypeDiagnosis,
			Priority: 50,
			Payload:  json.RawMessage(`{"models":["skin"],"input_artifact":"a_scan.png"}`),
			OwnerID:  "doc@clinic.test",
		},
	}
}

// WithType sets the job type.
func (b *JobRequestBuilder) WithType(jobType model.JobType) *JobRequestBuilder {
	b.req.Type = jobType
	return b
}

// WithPriority sets the job priority.
func (b *JobRequestBuilder) WithPriority(priority int) *JobRequestBuilder {
	b.req.Priority = priority
	return b
}

// WithPayloadString sets the job payload from a string.
func (b *JobRequestBuilder) WithPayloadString(payload string) *JobRequestBuilder {
	b.req.Payload = json.RawMessage(payload)
	return b
}

// WithOwner sets the submitting principal.
func (b *JobRequestBuilder) WithOwner(owner string) *JobRequestBuilder {
	b.req.OwnerID = owner
	return b
}

// WithScheduledAt sets the scheduled time.
func (b *JobRequestBuilder) WithScheduledAt(scheduledAt time.Time) *JobRequestBuilder {
	b.req.ScheduledAt = &scheduledAt
	return b
}

// WithMaxRetries sets the maximum number of retries.
func (b *JobRequestBuilder) WithMaxRetries(maxRetries int) *JobRequestBuilder {
	b.req.MaxRetries = maxRetries
	return b
}

// Build returns the constructed CreateJobRequest.
func (b *JobRequestBuilder) Build() *model.CreateJobRequest {
	return b.req
}

// AppendRecordBuilder builds AppendRecordRequest fixtures.
type AppendRecordBuilder struct {
	req *model.AppendRecordRequest
}

// NewDiagnosisRecord creates a two-model diagnosis fixture for handle.
func NewDiagnosisRecord(handle string) *AppendRecordBuilder {
	confidence := 0.81
	return &AppendRecordBuilder{req: &model.AppendRecordRequest{
		Handle:           handle,
		OwnerID:          "doc@clinic.test",
		Models:           []string{"skin", "pneumonia"},
		InputArtifact:    handle + "_scan.png",
		DerivedArtifacts: []string{"explain_0_" + handle + "_scan.png", ""},
		Summary:          "melanoma/normal/",
		Confidence:       &confidence,
		Details: []model.ModelDetail{
			{Model: "skin", Label: "melanoma", Confidence: 0.81},
			{Model: "pneumonia", Label: "normal", Confidence: 0.60},
		},
	}}
}

// NewQARecord creates a single-model Q&A fixture for handle.
func NewQARecord(handle string) *AppendRecordBuilder {
	return &AppendRecordBuilder{req: &model.AppendRecordRequest{
		Handle:           handle,
		OwnerID:          "doc@clinic.test",
		Models:           []string{"llava-med"},
		InputArtifact:    "vqa_" + handle + "_scan.png",
		DerivedArtifacts: []string{},
		Summary:          "Is there a fracture? No fracture is visible.",
		Details:          []model.ModelDetail{{Model: "llava-med", Label: "No fracture is visible."}},
		Question:         "Is there a fracture?",
		Answer:           "No fracture is visible.",
	}}
}

// WithOwner sets the record owner.
func (b *AppendRecordBuilder) WithOwner(owner string) *AppendRecordBuilder {
	b.req.OwnerID = owner
	return b
}

// WithSubject sets the subject reference.
func (b *AppendRecordBuilder) WithSubject(subject string) *AppendRecordBuilder {
	b.req.SubjectID = &subject
	return b
}

// WithSummary overrides the result summary.
func (b *AppendRecordBuilder) WithSummary(summary string) *AppendRecordBuilder {
	b.req.Summary = summary
	return b
}

// Build returns the constructed AppendRecordRequest.
func (b *AppendRecordBuilder) Build() *model.AppendRecordRequest {
	return b.req
}
