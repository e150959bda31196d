package extract

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ppiankov/patrace/internal/guardrail"
	"github.com/ppiankov/patrace/internal/lexicon"
	"github.com/ppiankov/patrace/internal/llm"
	"github.com/ppiankov/patrace/internal/model"
)

// BaselineExtractor produces a record without a model.
// The extractor overwrites ExtractionMode on whatever it returns.
type BaselineExtractor interface {
	Extract(note string, policy []model.PolicyChunk) model.ExtractionRecord
}

// stage names the step of an extraction attempt, for logs
type stage string

const (
	stageGuardrail stage = "guardrail"
	stageInfer     stage = "infer"
	stageParse     stage = "parse"
	stageValidate  stage = "validate"
)

// Extractor sequences guardrail, inference, parsing and evidence
// validation for one note. Every failure after the guardrail ends in the
// baseline. It never retries the model.
type Extractor struct {
	provider  llm.Provider
	baseline  BaselineExtractor
	guard     *guardrail.Guardrail
	validator *EvidenceValidator
	lex       *lexicon.Lexicon
	logger    *zap.Logger

	model        string
	maxTokens    int
	temperature  float32
	checkOnStart bool
}

// Option configures an Extractor
type Option func(*Extractor)

// WithLogger sets the logger (default: no-op)
func WithLogger(logger *zap.Logger) Option {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithBaseline replaces the keyword baseline
func WithBaseline(b BaselineExtractor) Option {
	return func(e *Extractor) {
		if b != nil {
			e.baseline = b
		}
	}
}

// WithInference sets the model name and sampling limits sent on every call
func WithInference(model string, maxTokens int, temperature float32) Option {
	return func(e *Extractor) {
		e.model = model
		if maxTokens > 0 {
			e.maxTokens = maxTokens
		}
		e.temperature = temperature
	}
}

// WithAvailabilityCheck makes every attempt ask the provider whether it is
// reachable before inferring
func WithAvailabilityCheck(enabled bool) Option {
	return func(e *Extractor) {
		e.checkOnStart = enabled
	}
}

// NewExtractor creates an extractor. A nil provider gives a baseline-only
// extractor whose records are tagged "baseline".
func NewExtractor(provider llm.Provider, lex *lexicon.Lexicon, opts ...Option) *Extractor {
	e := &Extractor{
		provider:    provider,
		baseline:    NewBaseline(lex),
		guard:       guardrail.New(lex),
		validator:   NewEvidenceValidator(lex),
		lex:         lex,
		logger:      zap.NewNop(),
		maxTokens:   1024,
		temperature: 0.1,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract produces the record for one note
func (e *Extractor) Extract(ctx context.Context, note string, policy []model.PolicyChunk) model.ExtractionRecord {
	if refusal := e.guard.Check(note); refusal != nil {
		e.logger.Info("refused clinical decision request",
			zap.String("stage", string(stageGuardrail)),
			zap.String("trigger", refusal.Trigger))
		rec := model.NewRecord()
		rec.ExtractionMode = model.ModeRefused
		rec.Refusal = true
		rec.Message = refusal.Message
		return rec
	}

	if e.provider == nil {
		rec := e.runBaseline(note, policy)
		rec.ExtractionMode = model.ModeBaseline
		return rec
	}

	raw, err := e.infer(ctx, note, policy)
	if err != nil {
		return e.fallback(note, policy, stageInfer, err)
	}

	obj, err := ParseResponse(raw)
	if err != nil {
		return e.fallback(note, policy, stageParse, err)
	}

	rec := decodeRecord(obj, e.lex)
	e.validator.Validate(&rec, note)
	rec.ExtractionMode = model.ModeLLM

	e.logger.Debug("extracted with model",
		zap.String("stage", string(stageValidate)),
		zap.String("provider", e.provider.Name()),
		zap.Any("missing_evidence", rec.MissingEvidence))
	return rec
}

func (e *Extractor) infer(ctx context.Context, note string, policy []model.PolicyChunk) (string, error) {
	if e.checkOnStart && !e.provider.IsAvailable(ctx) {
		return "", fmt.Errorf("%w: %s", llm.ErrUnavailable, e.provider.Name())
	}

	prompt, err := llm.BuildExtractionPrompt(note, policy, e.lex.Treatments(), e.lex.RedFlags())
	if err != nil {
		return "", err
	}

	resp, err := e.provider.Infer(ctx, llm.InferRequest{
		System:      llm.SystemPrompt,
		Prompt:      prompt,
		Model:       e.model,
		MaxTokens:   e.maxTokens,
		Temperature: e.temperature,
	})
	if err != nil {
		return "", err
	}
	if resp.Cached {
		e.logger.Debug("model response served from cache", zap.String("provider", e.provider.Name()))
	}
	return resp.Text, nil
}

func (e *Extractor) fallback(note string, policy []model.PolicyChunk, at stage, cause error) model.ExtractionRecord {
	e.logger.Warn("falling back to baseline",
		zap.String("stage", string(at)),
		zap.String("provider", e.provider.Name()),
		zap.Error(cause))
	rec := e.runBaseline(note, policy)
	rec.ExtractionMode = model.ModeFallbackBaseline
	return rec
}

func (e *Extractor) runBaseline(note string, policy []model.PolicyChunk) model.ExtractionRecord {
	rec := e.baseline.Extract(note, policy)
	rec.Normalize()
	rec.Refusal = false
	rec.Message = ""
	return rec
}
