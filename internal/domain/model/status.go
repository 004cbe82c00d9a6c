package model

import "encoding/json"

// HandleState is the polling state reported for a job handle.
type HandleState string

const (
	// HandleStateQueued means no worker has picked the job up yet.
	HandleStateQueued HandleState = "queued"
	// HandleStateRunning means a worker holds the job lease.
	HandleStateRunning HandleState = "running"
	// HandleStateFinished means the result row was appended.
	HandleStateFinished HandleState = "finished"
	// HandleStateFailed means the job failed terminally.
	HandleStateFailed HandleState = "failed"
)

// RedactedReason replaces failure reasons when redaction is enabled.
const RedactedReason = "private"

// HandleStatus is the response of a status poll.
type HandleStatus struct {
	Handle   string          `json:"handle"`
	Kind     RecordKind      `json:"kind,omitempty"`
	Status   HandleState     `json:"status"`
	RecordID string          `json:"record_id,omitempty"`
	Summary  string          `json:"summary,omitempty"`
	Result   json.RawMessage `json:"result,omitempty"`
	Error    string          `json:"error,omitempty"`
}

// Terminal reports whether the state can no longer change.
func (s *HandleStatus) Terminal() bool {
	return s.Status == HandleStateFinished || s.Status == HandleStateFailed
}

// SubmitResponse is returned by the submit endpoints.
type SubmitResponse struct {
	Handle string      `json:"handle"`
	Status HandleState `json:"status"`
}
