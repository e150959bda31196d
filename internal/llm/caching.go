package llm

import (
	"context"
	"encoding/json"
	"strconv"

	"go.uber.org/zap"

	"github.com/ppiankov/patrace/internal/cache"
)

// CachingProvider serves repeated identical requests from a cache.
// Extraction runs at near-zero temperature, so a re-run of the same case
// would otherwise pay for the same completion twice. Failed calls are
// never cached.
type CachingProvider struct {
	next   Provider
	cache  cache.Cache
	logger *zap.Logger
}

// NewCachingProvider wraps next with a response cache
func NewCachingProvider(next Provider, c cache.Cache, logger *zap.Logger) *CachingProvider {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CachingProvider{next: next, cache: c, logger: logger}
}

// Name returns the wrapped provider's name
func (p *CachingProvider) Name() string {
	return p.next.Name()
}

// IsAvailable delegates to the wrapped provider
func (p *CachingProvider) IsAvailable(ctx context.Context) bool {
	return p.next.IsAvailable(ctx)
}

// Infer returns a cached response when one exists, otherwise calls through
func (p *CachingProvider) Infer(ctx context.Context, req InferRequest) (*InferResponse, error) {
	key := requestKey(p.next.Name(), req)

	if data, ok := p.cache.Get(key); ok {
		var resp InferResponse
		if err := json.Unmarshal(data, &resp); err == nil {
			resp.Cached = true
			return &resp, nil
		}
		// Corrupt entry: drop it and call through
		_ = p.cache.Delete(key)
	}

	resp, err := p.next.Infer(ctx, req)
	if err != nil {
		return nil, err
	}

	data, err := json.Marshal(resp)
	if err == nil {
		err = p.cache.Set(key, data, 0)
	}
	if err != nil {
		p.logger.Warn("cache write failed", zap.String("provider", p.next.Name()), zap.Error(err))
	}
	return resp, nil
}

func requestKey(provider string, req InferRequest) string {
	return cache.Key(
		provider,
		req.Model,
		strconv.Itoa(req.MaxTokens),
		strconv.FormatFloat(float64(req.Temperature), 'f', -1, 32),
		req.System,
		req.Prompt,
	)
}
