package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/UPI05/InsecMed/internal/domain/diagnosis"
	"github.com/UPI05/InsecMed/internal/domain/model"
	"github.com/UPI05/InsecMed/internal/mocks"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n0000")

type pipelineFixture struct {
	records   *mocks.MockRecordRepository
	store     *mocks.MockArtifactStore
	inference *mocks.MockInferenceClient
	explain   *mocks.MockExplainClient
}

func newPipelineFixture(t *testing.T, kind model.RecordKind) *pipelineFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	f := &pipelineFixture{
		records:   mocks.NewMockRecordRepository(ctrl),
		store:     mocks.NewMockArtifactStore(ctrl),
		inference: mocks.NewMockInferenceClient(ctrl),
		explain:   mocks.NewMockExplainClient(ctrl),
	}
	f.records.EXPECT().Kind().Return(kind).AnyTimes()
	return f
}

func (f *pipelineFixture) options(withExplain bool) PipelineOptions {
	opts := PipelineOptions{Records: f.records, Store: f.store, Inference: f.inference}
	if withExplain {
		opts.Explain = f.explain
	}
	return opts
}

func diagnosisJob(t *testing.T, models ...string) *model.Job {
	t.Helper()
	raw, err := json.Marshal(model.DiagnosisJobPayload{Models: models, InputArtifact: "ab12_scan.png"})
	require.NoError(t, err)
	return &model.Job{ID: testHandle, Type: model.JobTypeDiagnosis, OwnerID: "doc@example.com", Payload: raw}
}

func appendEcho(_ context.Context, req *model.AppendRecordRequest) (*model.Record, error) {
	return &model.Record{
		ID:               "rec-1",
		Handle:           req.Handle,
		OwnerID:          req.OwnerID,
		Models:           req.Models,
		InputArtifact:    req.InputArtifact,
		DerivedArtifacts: req.DerivedArtifacts,
		Summary:          req.Summary,
		Confidence:       req.Confidence,
		Details:          req.Details,
		Question:         req.Question,
		Answer:           req.Answer,
	}, nil
}

func TestNewDiagnosisPipeline_RejectsWrongKind(t *testing.T) {
	f := newPipelineFixture(t, model.RecordKindQA)
	_, err := NewDiagnosisPipeline(f.options(false))
	require.Error(t, err)

	_, err = NewQAPipeline(PipelineOptions{})
	require.Error(t, err)
}

func TestDiagnosisPipeline_Run(t *testing.T) {
	f := newPipelineFixture(t, model.RecordKindDiagnosis)
	p, err := NewDiagnosisPipeline(f.options(true))
	require.NoError(t, err)

	f.store.EXPECT().Read(gomock.Any(), "ab12_scan.png").Return(pngHeader, nil)
	f.inference.EXPECT().Classify(gomock.Any(), gomock.Any(), "skin").DoAndReturn(
		func(_ context.Context, img model.Image, _ string) ([]model.Prediction, error) {
			assert.Equal(t, "image/png", img.ContentType)
			return []model.Prediction{
				{Label: "benign", Origin: "benign", Score: 0.19},
				{Label: "melanoma", Origin: "mel", Score: 0.81},
			}, nil
		},
	)
	f.inference.EXPECT().Classify(gomock.Any(), gomock.Any(), "pneumonia").
		Return([]model.Prediction{{Label: "normal", Origin: "NORMAL", Score: 0.60}}, nil)

	skinArtifact := diagnosis.ExplainArtifactName(0, testHandle, "ab12_scan.png")
	f.explain.EXPECT().Explain(gomock.Any(), gomock.Any(), diagnosis.ExplainTargetFor("skin"), "mel").
		Return([]byte("heatmap"), nil)
	f.explain.EXPECT().Explain(gomock.Any(), gomock.Any(), diagnosis.ExplainTargetFor("pneumonia"), "NORMAL").
		Return(nil, errors.New("explain service down"))
	f.store.EXPECT().Put(gomock.Any(), skinArtifact, []byte("heatmap")).Return(nil)

	f.records.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(appendEcho)

	rec, err := p.Run(context.Background(), diagnosisJob(t, "skin", "pneumonia"))
	require.NoError(t, err)

	assert.Equal(t, "melanoma/normal/", rec.Summary)
	require.NotNil(t, rec.Confidence)
	assert.InDelta(t, 0.81, *rec.Confidence, 1e-9)
	assert.Equal(t, []model.ModelDetail{
		{Model: "skin", Label: "melanoma", Confidence: 0.81},
		{Model: "pneumonia", Label: "normal", Confidence: 0.60},
	}, rec.Details)
	assert.Equal(t, []string{skinArtifact, ""}, rec.DerivedArtifacts)
	assert.Equal(t, "doc@example.com", rec.OwnerID)
}

func TestDiagnosisPipeline_RunWithoutExplain(t *testing.T) {
	f := newPipelineFixture(t, model.RecordKindDiagnosis)
	p, err := NewDiagnosisPipeline(f.options(false))
	require.NoError(t, err)

	f.store.EXPECT().Read(gomock.Any(), "ab12_scan.png").Return(pngHeader, nil)
	f.inference.EXPECT().Classify(gomock.Any(), gomock.Any(), "brain").
		Return([]model.Prediction{{Label: "glioma", Origin: "glioma", Score: 0.7}}, nil)
	f.records.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(appendEcho)

	rec, err := p.Run(context.Background(), diagnosisJob(t, "brain"))
	require.NoError(t, err)
	assert.Equal(t, []string{""}, rec.DerivedArtifacts)
	assert.Equal(t, "glioma/", rec.Summary)
}

func TestDiagnosisPipeline_DetailsFollowSelectorOrder(t *testing.T) {
	f := newPipelineFixture(t, model.RecordKindDiagnosis)
	p, err := NewDiagnosisPipeline(f.options(false))
	require.NoError(t, err)

	const n = 5
	models := make([]string, n)
	released := make([]chan struct{}, n)
	for i := range models {
		models[i] = fmt.Sprintf("model-%d", i)
		released[i] = make(chan struct{})
	}

	// model-i returns only after model-(i+1) has, so completion runs last to first.
	var mu sync.Mutex
	var finished []string
	f.store.EXPECT().Read(gomock.Any(), "ab12_scan.png").Return(pngHeader, nil)
	for i, name := range models {
		f.inference.EXPECT().Classify(gomock.Any(), gomock.Any(), name).DoAndReturn(
			func(_ context.Context, _ model.Image, _ string) ([]model.Prediction, error) {
				if i+1 < n {
					select {
					case <-released[i+1]:
					case <-time.After(5 * time.Second):
						return nil, fmt.Errorf("%s: timed out waiting for model-%d", name, i+1)
					}
				}
				time.Sleep(time.Duration(n-i) * 2 * time.Millisecond)
				mu.Lock()
				finished = append(finished, name)
				mu.Unlock()
				close(released[i])
				label := fmt.Sprintf("L%d", i)
				return []model.Prediction{{Label: label, Origin: label, Score: float64(i+1) / 10}}, nil
			},
		)
	}
	f.records.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(appendEcho)

	rec, err := p.Run(context.Background(), diagnosisJob(t, models...))
	require.NoError(t, err)

	assert.Equal(t, []string{"model-4", "model-3", "model-2", "model-1", "model-0"}, finished)
	assert.Equal(t, "L0/L1/L2/L3/L4/", rec.Summary)
	require.NotNil(t, rec.Confidence)
	assert.InDelta(t, 0.1, *rec.Confidence, 1e-9)
	require.Len(t, rec.Details, n)
	for i, d := range rec.Details {
		assert.Equal(t, models[i], d.Model)
		assert.Equal(t, fmt.Sprintf("L%d", i), d.Label)
	}
	assert.Len(t, rec.DerivedArtifacts, n)
}

func TestDiagnosisPipeline_ClassifyFailureWritesNothing(t *testing.T) {
	f := newPipelineFixture(t, model.RecordKindDiagnosis)
	p, err := NewDiagnosisPipeline(f.options(true))
	require.NoError(t, err)

	f.store.EXPECT().Read(gomock.Any(), "ab12_scan.png").Return(pngHeader, nil)
	f.inference.EXPECT().Classify(gomock.Any(), gomock.Any(), "skin").
		Return([]model.Prediction{{Label: "melanoma", Score: 0.9}}, nil).AnyTimes()
	f.inference.EXPECT().Classify(gomock.Any(), gomock.Any(), "pneumonia").
		Return(nil, errors.New("upstream unavailable"))

	_, err = p.Run(context.Background(), diagnosisJob(t, "skin", "pneumonia"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `classify with "pneumonia"`)
}

func TestDiagnosisPipeline_EmptyPredictions(t *testing.T) {
	f := newPipelineFixture(t, model.RecordKindDiagnosis)
	p, err := NewDiagnosisPipeline(f.options(false))
	require.NoError(t, err)

	f.store.EXPECT().Read(gomock.Any(), "ab12_scan.png").Return(pngHeader, nil)
	f.inference.EXPECT().Classify(gomock.Any(), gomock.Any(), "skin").Return(nil, nil)

	_, err = p.Run(context.Background(), diagnosisJob(t, "skin"))
	require.ErrorIs(t, err, diagnosis.ErrNoPredictions)
}

func TestDiagnosisPipeline_BadPayload(t *testing.T) {
	f := newPipelineFixture(t, model.RecordKindDiagnosis)
	p, err := NewDiagnosisPipeline(f.options(false))
	require.NoError(t, err)

	_, err = p.Run(context.Background(), &model.Job{ID: testHandle, Payload: json.RawMessage(`{"models":[]}`)})
	require.Error(t, err)

	_, err = p.Run(context.Background(), &model.Job{ID: testHandle, Payload: json.RawMessage(`not json`)})
	require.Error(t, err)
}

func TestQAPipeline_Run(t *testing.T) {
	f := newPipelineFixture(t, model.RecordKindQA)
	p, err := NewQAPipeline(f.options(false))
	require.NoError(t, err)

	raw, err := json.Marshal(model.QAJobPayload{
		Model:         "Skin VQA",
		Question:      "Is this benign?",
		InputArtifact: "vqa_ab12_scan.png",
	})
	require.NoError(t, err)
	job := &model.Job{ID: testHandle, Type: model.JobTypeQA, OwnerID: "guest-1", Payload: raw}

	f.store.EXPECT().Read(gomock.Any(), "vqa_ab12_scan.png").Return(pngHeader, nil)
	f.inference.EXPECT().Answer(gomock.Any(), gomock.Any(), "Is this benign?", "Skin VQA").Return("Likely benign.", nil)
	f.records.EXPECT().Append(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, req *model.AppendRecordRequest) (*model.Record, error) {
			require.NoError(t, req.Validate(model.RecordKindQA))
			return appendEcho(ctx, req)
		},
	)

	rec, err := p.Run(context.Background(), job)
	require.NoError(t, err)
	assert.Equal(t, "Q: Is this benign?\nA: Likely benign.", rec.Summary)
	assert.Equal(t, "Likely benign.", rec.Answer)
	assert.Equal(t, []string{"Skin VQA"}, rec.Models)
	assert.Empty(t, rec.DerivedArtifacts)
	assert.Nil(t, rec.Confidence)
}

func TestQAPipeline_AnswerFailure(t *testing.T) {
	f := newPipelineFixture(t, model.RecordKindQA)
	p, err := NewQAPipeline(f.options(false))
	require.NoError(t, err)

	raw, _ := json.Marshal(model.QAJobPayload{Model: "m", Question: "q", InputArtifact: "vqa_x.png"})
	f.store.EXPECT().Read(gomock.Any(), "vqa_x.png").Return(pngHeader, nil)
	f.inference.EXPECT().Answer(gomock.Any(), gomock.Any(), "q", "m").Return("", errors.New("timeout"))

	_, err = p.Run(context.Background(), &model.Job{ID: testHandle, Payload: raw})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `answer with "m"`)
}
