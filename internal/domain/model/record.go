package model

import (
	"fmt"
	"strings"
	"time"
)

// RecordKind identifies which result table a record lives in.
type RecordKind string

const (
	// RecordKindDiagnosis is a multi-model classification result.
	RecordKindDiagnosis RecordKind = "diagnosis"
	// RecordKindQA is a visual question-answering interaction.
	RecordKindQA RecordKind = "qa"
)

// Valid returns true if the RecordKind is known.
func (k RecordKind) Valid() bool {
	return k == RecordKindDiagnosis || k == RecordKindQA
}

// ParseRecordKind accepts the kind names used in URLs, including the plural
// forms "diagnoses" and "qa_interactions".
func ParseRecordKind(s string) (RecordKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "diagnosis", "diagnoses":
		return RecordKindDiagnosis, nil
	case "qa", "qa_interactions", "qa-interactions":
		return RecordKindQA, nil
	default:
		return "", fmt.Errorf("invalid record kind: %q", s)
	}
}

// Prediction is a single label scored by a classification model.
type Prediction struct {
	Label  string  `json:"label"`
	Origin string  `json:"origin"`
	Score  float64 `json:"score"`
}

// ModelDetail is the top result of one model within a record.
type ModelDetail struct {
	Model      string  `json:"model"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Record is a persisted, terminal result of a diagnosis or Q&A job.
// Both kinds share this shape; Question and Answer are only set for Q&A and
// Confidence only for diagnoses.
type Record struct {
	ID               string        `json:"id"`
	Kind             RecordKind    `json:"kind"`
	Handle           string        `json:"handle"`
	OwnerID          string        `json:"owner_id"`
	SubjectID        *string       `json:"subject_id,omitempty"`
	Models           []string      `json:"models"`
	InputArtifact    string        `json:"input_artifact"`
	DerivedArtifacts []string      `json:"derived_artifacts"`
	Summary          string        `json:"summary"`
	Confidence       *float64      `json:"confidence,omitempty"`
	Details          []ModelDetail `json:"details"`
	Question         string        `json:"question,omitempty"`
	Answer           string        `json:"answer,omitempty"`
	Share            ShareState    `json:"share"`
	CreatedAt        time.Time     `json:"created_at"`
}

// References reports whether name is the record's input or one of its derived artifacts.
func (r *Record) References(name string) bool {
	if name == "" {
		return false
	}
	if r.InputArtifact == name {
		return true
	}
	for _, a := range r.DerivedArtifacts {
		if a == name {
			return true
		}
	}
	return false
}

// AppendRecordRequest carries everything a worker writes exactly once for a handle.
type AppendRecordRequest struct {
	Handle           string
	OwnerID          string
	SubjectID        *string
	Models           []string
	InputArtifact    string
	DerivedArtifacts []string
	Summary          string
	Confidence       *float64
	Details          []ModelDetail
	Question         string
	Answer           string
}

// Validate checks the append request is complete.
func (r *AppendRecordRequest) Validate(kind RecordKind) error {
	if strings.TrimSpace(r.Handle) == "" {
		return fmt.Errorf("handle is required")
	}
	if strings.TrimSpace(r.OwnerID) == "" {
		return fmt.Errorf("owner is required")
	}
	if len(r.Models) == 0 {
		return fmt.Errorf("at least one model is required")
	}
	if len(r.Details) != len(r.Models) {
		return fmt.Errorf("details length %d does not match model count %d", len(r.Details), len(r.Models))
	}
	if kind == RecordKindQA && len(r.Models) != 1 {
		return fmt.Errorf("qa records take exactly one model")
	}
	return nil
}

// RecordListOptions paginates owner history queries.
type RecordListOptions struct {
	Limit  int
	Offset int
}

// SharedFilter narrows ListSharedTo results.
type SharedFilter string

const (
	// SharedFilterAll returns pending and accepted shares.
	SharedFilterAll SharedFilter = "all"
	// SharedFilterPending returns shares awaiting a response.
	SharedFilterPending SharedFilter = "pending"
	// SharedFilterAccepted returns accepted shares.
	SharedFilterAccepted SharedFilter = "accepted"
)

// ParseSharedFilter maps a query parameter onto a SharedFilter, defaulting to all.
func ParseSharedFilter(s string) (SharedFilter, error) {
	switch SharedFilter(strings.ToLower(strings.TrimSpace(s))) {
	case "", SharedFilterAll:
		return SharedFilterAll, nil
	case SharedFilterPending:
		return SharedFilterPending, nil
	case SharedFilterAccepted:
		return SharedFilterAccepted, nil
	default:
		return "", fmt.Errorf("invalid shared filter: %q", s)
	}
}

// RecordStats counts an owner's diagnoses per model.
type RecordStats struct {
	Total   int            `json:"total"`
	ByModel map[string]int `json:"by_model"`
}
