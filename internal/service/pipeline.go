package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/UPI05/InsecMed/internal/core"
	"github.com/UPI05/InsecMed/internal/domain/diagnosis"
	"github.com/UPI05/InsecMed/internal/domain/model"
	"github.com/UPI05/InsecMed/internal/observability/metrics"
	"github.com/UPI05/InsecMed/internal/observability/statsd"
)

// PipelineOptions groups dependencies shared by the diagnosis and Q&A pipelines.
type PipelineOptions struct {
	Records   core.RecordRepository // Required: result store for the pipeline's kind
	Store     core.ArtifactStore    // Required: upload and artifact storage
	Inference core.InferenceClient  // Required: model service
	Explain   core.ExplainClient    // Optional: nil disables explainability
	Logger    *slog.Logger          // Optional: structured logger
	Metrics   statsd.Sink           // Optional: metrics sink
}

type pipelineBase struct {
	records   core.RecordRepository
	store     core.ArtifactStore
	inference core.InferenceClient
	logger    *slog.Logger
	metrics   statsd.Sink
}

func newPipelineBase(opts PipelineOptions, kind model.RecordKind, component string) (pipelineBase, error) {
	if opts.Records == nil {
		return pipelineBase{}, errors.New("RecordRepository is required")
	}
	if opts.Records.Kind() != kind {
		return pipelineBase{}, fmt.Errorf("record repository stores %s, want %s", opts.Records.Kind(), kind)
	}
	if opts.Store == nil {
		return pipelineBase{}, errors.New("ArtifactStore is required")
	}
	if opts.Inference == nil {
		return pipelineBase{}, errors.New("InferenceClient is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return pipelineBase{
		records:   opts.Records,
		store:     opts.Store,
		inference: opts.Inference,
		logger:    logger.With("component", component),
		metrics:   opts.Metrics,
	}, nil
}

func (p *pipelineBase) loadImage(ctx context.Context, name string) (model.Image, error) {
	data, err := p.store.Read(ctx, name)
	if err != nil {
		return model.Image{}, fmt.Errorf("read input artifact: %w", err)
	}
	return model.Image{Name: name, ContentType: http.DetectContentType(data), Data: data}, nil
}

func (p *pipelineBase) observe(op, modelName string, start time.Time, err error) {
	metrics.EmitInferenceCall(p.metrics, metrics.InferenceMetric{
		Operation: op,
		Model:     modelName,
		Duration:  time.Since(start),
		Err:       err,
	})
}

func (p *pipelineBase) appendRecord(ctx context.Context, req *model.AppendRecordRequest) (*model.Record, error) {
	rec, err := p.records.Append(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("append %s record: %w", p.records.Kind(), err)
	}
	return rec, nil
}

// DiagnosisPipeline runs every selected model on an image, explains each
// top prediction and writes the aggregated record.
type DiagnosisPipeline struct {
	pipelineBase
	explain core.ExplainClient
}

// NewDiagnosisPipeline constructs a DiagnosisPipeline.
func NewDiagnosisPipeline(opts PipelineOptions) (*DiagnosisPipeline, error) {
	base, err := newPipelineBase(opts, model.RecordKindDiagnosis, "diagnosis_pipeline")
	if err != nil {
		return nil, err
	}
	return &DiagnosisPipeline{pipelineBase: base, explain: opts.Explain}, nil
}

// Run processes a reserved diagnosis job. Every model must classify the image
// before anything is aggregated; explainability is best effort.
func (p *DiagnosisPipeline) Run(ctx context.Context, job *model.Job) (*model.Record, error) {
	var payload model.DiagnosisJobPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return nil, fmt.Errorf("decode diagnosis payload: %w", err)
	}
	if len(payload.Models) == 0 {
		return nil, errors.New("diagnosis payload has no models")
	}

	img, err := p.loadImage(ctx, payload.InputArtifact)
	if err != nil {
		return nil, err
	}

	tops, err := p.classifyAll(ctx, img, payload.Models)
	if err != nil {
		return nil, err
	}

	result, err := diagnosis.Aggregate(payload.Models, tops)
	if err != nil {
		return nil, err
	}

	derived := p.explainAll(ctx, job.ID, img, payload, tops)

	confidence := result.Confidence
	return p.appendRecord(ctx, &model.AppendRecordRequest{
		Handle:           job.ID,
		OwnerID:          job.OwnerID,
		SubjectID:        payload.SubjectID,
		Models:           payload.Models,
		InputArtifact:    payload.InputArtifact,
		DerivedArtifacts: derived,
		Summary:          result.Summary,
		Confidence:       &confidence,
		Details:          result.Details,
	})
}

// classifyAll runs Classify for each model concurrently. Results are indexed
// by selector position so completion order does not matter.
func (p *DiagnosisPipeline) classifyAll(
	ctx context.Context,
	img model.Image,
	models []string,
) ([]*model.Prediction, error) {
	tops := make([]*model.Prediction, len(models))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range models {
		g.Go(func() error {
			start := time.Now()
			preds, err := p.inference.Classify(gctx, img, name)
			if err == nil {
				var top model.Prediction
				top, err = diagnosis.TopPrediction(preds)
				if err == nil {
					tops[i] = &top
				}
			}
			p.observe("classify", name, start, err)
			if err != nil {
				return fmt.Errorf("classify with %q: %w", name, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return tops, nil
}

// explainAll fills one derived-artifact slot per model. A failed call or
// write leaves its slot empty.
func (p *DiagnosisPipeline) explainAll(
	ctx context.Context,
	handle string,
	img model.Image,
	payload model.DiagnosisJobPayload,
	tops []*model.Prediction,
) []string {
	slots := make([]string, len(payload.Models))
	if p.explain == nil {
		return slots
	}

	var g errgroup.Group
	for i, name := range payload.Models {
		g.Go(func() error {
			target := diagnosis.ExplainTargetFor(name)
			artifact := diagnosis.ExplainArtifactName(i, handle, payload.InputArtifact)
			if err := p.explainOne(ctx, img, target, tops[i].Origin, artifact); err != nil {
				p.logger.WarnContext(ctx, "explainability failed",
					"handle", handle,
					"index", i,
					"model", name,
					"target", target,
					"error", err,
				)
				metrics.EmitExplainFailure(p.metrics, name, err)
				return nil
			}
			slots[i] = artifact
			return nil
		})
	}
	_ = g.Wait()
	return slots
}

func (p *DiagnosisPipeline) explainOne(ctx context.Context, img model.Image, target, prediction, artifact string) error {
	start := time.Now()
	data, err := p.explain.Explain(ctx, img, target, prediction)
	p.observe("explain", target, start, err)
	if err != nil {
		return err
	}
	if err := p.store.Put(ctx, artifact, data); err != nil {
		return fmt.Errorf("write explanation: %w", err)
	}
	return nil
}

// QAPipeline answers a question about an image and writes the interaction.
type QAPipeline struct {
	pipelineBase
}

// NewQAPipeline constructs a QAPipeline.
func NewQAPipeline(opts PipelineOptions) (*QAPipeline, error) {
	base, err := newPipelineBase(opts, model.RecordKindQA, "qa_pipeline")
	if err != nil {
		return nil, err
	}
	return &QAPipeline{pipelineBase: base}, nil
}

// Run processes a reserved Q&A job.
func (p *QAPipeline) Run(ctx context.Context, job *model.Job) (*model.Record, error) {
	var payload model.QAJobPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return nil, fmt.Errorf("decode qa payload: %w", err)
	}
	if payload.Model == "" || payload.Question == "" {
		return nil, errors.New("qa payload needs a model and a question")
	}

	img, err := p.loadImage(ctx, payload.InputArtifact)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	answer, err := p.inference.Answer(ctx, img, payload.Question, payload.Model)
	p.observe("answer", payload.Model, start, err)
	if err != nil {
		return nil, fmt.Errorf("answer with %q: %w", payload.Model, err)
	}

	return p.appendRecord(ctx, &model.AppendRecordRequest{
		Handle:           job.ID,
		OwnerID:          job.OwnerID,
		SubjectID:        payload.SubjectID,
		Models:           []string{payload.Model},
		InputArtifact:    payload.InputArtifact,
		DerivedArtifacts: []string{},
		Summary:          qaSummary(payload.Question, answer),
		Details:          []model.ModelDetail{{Model: payload.Model, Label: answer}},
		Question:         payload.Question,
		Answer:           answer,
	})
}

func qaSummary(question, answer string) string {
	return "Q: " + question + "\nA: " + answer
}
