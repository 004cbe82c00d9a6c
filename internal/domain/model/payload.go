package model

// DiagnosisJobPayload is the queue payload of a diagnosis job.
type DiagnosisJobPayload struct {
	Models        []string `json:"models"`
	InputArtifact string   `json:"input_artifact"`
	SubjectID     *string  `json:"subject_id,omitempty"`
}

// QAJobPayload is the queue payload of a visual Q&A job.
type QAJobPayload struct {
	Model         string  `json:"model"`
	Question      string  `json:"question"`
	InputArtifact string  `json:"input_artifact"`
	SubjectID     *string `json:"subject_id,omitempty"`
}
