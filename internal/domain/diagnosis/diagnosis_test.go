package diagnosis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UPI05/InsecMed/internal/domain/model"
)

func TestTopPrediction(t *testing.T) {
	top, err := TopPrediction([]model.Prediction{
		{Label: "benign", Score: 0.4},
		{Label: "melanoma", Score: 0.81},
		{Label: "nevus", Score: 0.81},
	})
	require.NoError(t, err)
	assert.Equal(t, "melanoma", top.Label, "ties go to the first occurrence")

	_, err = TopPrediction(nil)
	assert.ErrorIs(t, err, ErrNoPredictions)
}

func TestAggregate_SkinPneumonia(t *testing.T) {
	res, err := Aggregate(
		[]string{"skin", "pneumonia"},
		[]*model.Prediction{
			{Label: "melanoma", Score: 0.81},
			{Label: "normal", Score: 0.60},
		},
	)
	require.NoError(t, err)

	assert.Equal(t, "melanoma/normal/", res.Summary)
	assert.InDelta(t, 0.81, res.Confidence, 1e-9)
	assert.Equal(t, []model.ModelDetail{
		{Model: "skin", Label: "melanoma", Confidence: 0.81},
		{Model: "pneumonia", Label: "normal", Confidence: 0.60},
	}, res.Details)
}

func TestAggregate_ConfidenceIsFirstModel(t *testing.T) {
	res, err := Aggregate(
		[]string{"brain", "skin"},
		[]*model.Prediction{{Label: "glioma", Score: 0.2}, {Label: "melanoma", Score: 0.99}},
	)
	require.NoError(t, err)
	assert.InDelta(t, 0.2, res.Confidence, 1e-9)
}

func TestAggregate_Incomplete(t *testing.T) {
	_, err := Aggregate([]string{"a", "b"}, []*model.Prediction{{Label: "x"}})
	assert.ErrorIs(t, err, ErrIncompleteResults)

	_, err = Aggregate([]string{"a", "b"}, []*model.Prediction{{Label: "x"}, nil})
	assert.ErrorIs(t, err, ErrIncompleteResults)

	_, err = Aggregate(nil, nil)
	assert.ErrorIs(t, err, ErrIncompleteResults)
}

func TestExplainTargetFor(t *testing.T) {
	tests := []struct {
		model string
		want  string
	}{
		{"skin", "Anwarkh1/Skin_Cancer-Image_Classification"},
		{"Skin-Lesion-v2", "Anwarkh1/Skin_Cancer-Image_Classification"},
		{"breast_ultrasound", "Falah/vit-base-breast-cancer"},
		{"brain_mri", "DunnBC22/vit-base-patch16-224-in21k_brain_tumor_diagnosis"},
		{"pneumonia", "xyuan/vit-xray-pneumonia-classification"},
		{"covid", DefaultExplainTarget},
		{"", DefaultExplainTarget},
		{"skin_brain", "Anwarkh1/Skin_Cancer-Image_Classification"},
	}

	for _, tt := range tests {
		t.Run(tt.model, func(t *testing.T) {
			assert.Equal(t, tt.want, ExplainTargetFor(tt.model))
		})
	}
}

func TestExplainTargets_ReturnsCopy(t *testing.T) {
	targets := ExplainTargets()
	targets[0].Target = "mutated"
	assert.Equal(t, "Anwarkh1/Skin_Cancer-Image_Classification", ExplainTargetFor("skin"))
}

func TestExplainArtifactName(t *testing.T) {
	assert.Equal(t, "explain_1_h-123_abc_scan.png", ExplainArtifactName(1, "h-123", "abc_scan.png"))
}
