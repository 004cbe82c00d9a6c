// Package diagnosis holds the pure parts of the diagnosis pipeline: picking
// each model's top prediction, aggregating them into a record, and mapping
// model names onto explainability targets.
package diagnosis

import (
	"errors"
	"fmt"
	"strings"

	"github.com/UPI05/InsecMed/internal/domain/model"
)

// SummaryDelimiter follows every label in a diagnosis summary.
const SummaryDelimiter = "/"

var (
	// ErrNoPredictions is returned when a model produced an empty result.
	ErrNoPredictions = errors.New("diagnosis: no predictions")
	// ErrIncompleteResults is returned when a model in the selector has no result.
	ErrIncompleteResults = errors.New("diagnosis: incomplete results")
)

// TopPrediction returns the prediction with the maximum score. Ties go to the
// first occurrence.
func TopPrediction(preds []model.Prediction) (model.Prediction, error) {
	if len(preds) == 0 {
		return model.Prediction{}, ErrNoPredictions
	}
	top := preds[0]
	for _, p := range preds[1:] {
		if p.Score > top.Score {
			top = p
		}
	}
	return top, nil
}

// Result is the aggregated view written to a diagnosis record.
type Result struct {
	Summary    string
	Confidence float64
	Details    []model.ModelDetail
}

// Aggregate joins the per-model top predictions, given in selector order.
// The scalar confidence is the first model's top score.
func Aggregate(models []string, tops []*model.Prediction) (Result, error) {
	if len(models) == 0 {
		return Result{}, fmt.Errorf("%w: empty selector", ErrIncompleteResults)
	}
	if len(tops) != len(models) {
		return Result{}, fmt.Errorf("%w: %d results for %d models", ErrIncompleteResults, len(tops), len(models))
	}

	var sb strings.Builder
	details := make([]model.ModelDetail, len(models))
	for i, name := range models {
		top := tops[i]
		if top == nil {
			return Result{}, fmt.Errorf("%w: model %q", ErrIncompleteResults, name)
		}
		sb.WriteString(top.Label)
		sb.WriteString(SummaryDelimiter)
		details[i] = model.ModelDetail{Model: name, Label: top.Label, Confidence: top.Score}
	}

	return Result{
		Summary:    sb.String(),
		Confidence: tops[0].Score,
		Details:    details,
	}, nil
}
