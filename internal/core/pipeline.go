package core

import (
	"context"
	"io"
	"io/fs"

	"github.com/UPI05/InsecMed/internal/domain/model"
)

// InferenceClient calls the remote model service.
type InferenceClient interface {
	// Classify returns every prediction the model produced for img.
	Classify(ctx context.Context, img model.Image, modelName string) ([]model.Prediction, error)

	// Answer returns the model's free-text answer to question about img.
	Answer(ctx context.Context, img model.Image, question, modelName string) (string, error)
}

// ExplainClient calls the explainability side-service.
type ExplainClient interface {
	// Explain returns the rendered explanation artifact for prediction.
	Explain(ctx context.Context, img model.Image, target, prediction string) ([]byte, error)
}

// ArtifactStore holds uploads and derived artifacts by flat name.
type ArtifactStore interface {
	// SaveUpload validates and stores an upload, returning the stored name.
	SaveUpload(ctx context.Context, prefix, originalName string, r io.Reader) (string, error)
	Put(ctx context.Context, name string, data []byte) error
	Read(ctx context.Context, name string) ([]byte, error)
	Open(ctx context.Context, name string) (io.ReadSeekCloser, fs.FileInfo, error)
}
