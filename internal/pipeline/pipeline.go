package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/patrace/internal/cache"
	"github.com/ppiankov/patrace/internal/extract"
	"github.com/ppiankov/patrace/internal/lexicon"
	"github.com/ppiankov/patrace/internal/llm"
	"github.com/ppiankov/patrace/internal/logging"
	"github.com/ppiankov/patrace/internal/model"
	"github.com/ppiankov/patrace/internal/packet"
	"github.com/ppiankov/patrace/internal/policy"
)

// Pipeline orchestrates the per-case flow: retrieve policy, extract, assemble, write
type Pipeline struct {
	extractor *extract.Extractor
	retriever *policy.Retriever
	lex       *lexicon.Lexicon
	provider  llm.Provider // nil when inference is disabled
	cache     cache.Cache  // nil when responses are not cached
	config    *model.Config
	logger    *zap.Logger
}

type options struct {
	provider    llm.Provider
	providerSet bool
	waiter      llm.Waiter
	cache       cache.Cache
	logger      *zap.Logger
}

// Option configures a Pipeline
type Option func(*options)

// WithProvider uses p instead of building a provider from the config.
// A nil p disables inference.
func WithProvider(p llm.Provider) Option {
	return func(o *options) {
		o.provider = p
		o.providerSet = true
	}
}

// WithWaiter throttles every model call through w
func WithWaiter(w llm.Waiter) Option {
	return func(o *options) {
		o.waiter = w
	}
}

// WithCache uses c for model responses instead of the configured layered cache
func WithCache(c cache.Cache) Option {
	return func(o *options) {
		o.cache = c
	}
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// NewPipeline creates a new pipeline with the given configuration.
// A provider that cannot be constructed is logged and replaced by one
// that always reports unavailable, so every case falls back to the baseline.
func NewPipeline(ctx context.Context, cfg *model.Config, opts ...Option) (*Pipeline, error) {
	o := &options{}
	for _, opt := range opts {
		opt(o)
	}
	logger := logging.OrNop(o.logger)

	lex := lexicon.Default()
	if cfg.LexiconPath != "" {
		loaded, err := lexicon.LoadFile(cfg.LexiconPath)
		if err != nil {
			return nil, fmt.Errorf("load lexicon: %w", err)
		}
		lex = loaded
	}

	chunks, err := loadPolicy(cfg.Retrieval.PolicyPath)
	if err != nil {
		return nil, err
	}

	provider := o.provider
	if !o.providerSet {
		provider = buildProvider(ctx, cfg.LLM, logger)
	}

	var c cache.Cache
	if provider != nil {
		// Cache outside the limiter so hits are never throttled
		if o.waiter != nil {
			provider = llm.NewRateLimitedProvider(provider, o.waiter)
		}
		c = o.cache
		if c == nil && cfg.Cache.Enabled {
			c = cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL)
		}
		if c != nil {
			provider = llm.NewCachingProvider(provider, c, logger)
		}
	}

	extractor := extract.NewExtractor(provider, lex,
		extract.WithLogger(logger),
		extract.WithInference(cfg.LLM.Model, cfg.LLM.MaxTokens, float32(cfg.LLM.Temperature)),
		extract.WithAvailabilityCheck(cfg.LLM.CheckAvailability),
	)

	return &Pipeline{
		extractor: extractor,
		retriever: policy.NewRetriever(chunks),
		lex:       lex,
		provider:  provider,
		cache:     c,
		config:    cfg,
		logger:    logger,
	}, nil
}

func buildProvider(ctx context.Context, mc model.LLMConfig, logger *zap.Logger) llm.Provider {
	provider, err := llm.NewProvider(ctx, llm.ConfigFromModel(mc))
	if err != nil {
		logger.Warn("model provider unavailable, using baseline extraction",
			zap.String("provider", mc.Provider),
			zap.Error(err))
		return &llm.Unavailable{ProviderName: mc.Provider, Reason: err}
	}
	return provider
}

func loadPolicy(path string) ([]model.PolicyChunk, error) {
	if path == "" {
		chunks, err := policy.DefaultLibrary()
		if err != nil {
			return nil, fmt.Errorf("load embedded policy library: %w", err)
		}
		return chunks, nil
	}
	chunks, err := policy.LoadLibrary(path)
	if err != nil {
		return nil, fmt.Errorf("load policy library: %w", err)
	}
	return chunks, nil
}

// ProviderName returns the active provider's name, or "" when inference is disabled
func (p *Pipeline) ProviderName() string {
	if p.provider == nil {
		return ""
	}
	return p.provider.Name()
}

// CacheStats reports response cache lookups. ok is false when no
// cache is in use or the cache does not count lookups.
func (p *Pipeline) CacheStats() (cache.Stats, bool) {
	reporter, ok := p.cache.(cache.StatsReporter)
	if !ok {
		return cache.Stats{}, false
	}
	return reporter.Stats(), true
}

// CaseResult contains the outcome for one case
type CaseResult struct {
	CaseID string
	Record model.ExtractionRecord
	Policy []model.PolicyChunk
	Bundle *packet.Bundle
	OutDir string // empty when the bundle was not written
}

// ProcessFile loads a case file and processes it
func (p *Pipeline) ProcessFile(ctx context.Context, path string) (*CaseResult, error) {
	c, err := LoadCase(path)
	if err != nil {
		return nil, err
	}
	return p.ProcessCase(ctx, c)
}

// ProcessCase runs one case through extraction and writes its bundle
// when an output directory is configured
func (p *Pipeline) ProcessCase(ctx context.Context, c *model.Case) (*CaseResult, error) {
	logger := p.logger.With(zap.String("case_id", c.CaseID))

	// 1. Policy: the case's own chunks win over the library
	chunks := c.RetrievedPolicy
	if len(chunks) == 0 {
		chunks = p.retriever.Retrieve(caseQuery(c), p.config.Retrieval.TopK)
		logger.Debug("retrieved policy chunks", zap.Int("count", len(chunks)))
	}

	// 2. Extract
	rec := p.extractor.Extract(ctx, c.NoteText, chunks)

	// 3. Assemble
	bundle := packet.Assemble(c, rec, chunks, p.lex)

	result := &CaseResult{
		CaseID: c.CaseID,
		Record: bundle.Record,
		Policy: chunks,
		Bundle: bundle,
	}

	// 4. Write
	if p.config.Output.Dir != "" {
		dir, err := packet.Write(bundle, p.config.Output.Dir)
		if err != nil {
			return nil, fmt.Errorf("write bundle: %w", err)
		}
		result.OutDir = dir
		logger.Debug("wrote bundle", zap.String("dir", dir))
	}

	logger.Info("case processed",
		zap.String("run_id", bundle.RunID),
		zap.String("mode", string(rec.ExtractionMode)),
		zap.String("status", string(bundle.Checklist.OverallStatus)))

	return result, nil
}

func caseQuery(c *model.Case) string {
	return strings.TrimSpace(c.Procedure() + " " + c.NoteText)
}
