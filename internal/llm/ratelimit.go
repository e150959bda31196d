package llm

import "context"

// Waiter blocks until a call for key may proceed
type Waiter interface {
	Wait(ctx context.Context, key string) error
}

// RateLimitedProvider throttles calls into a provider. All wrappers sharing
// a Waiter and provider name share one budget.
type RateLimitedProvider struct {
	next   Provider
	waiter Waiter
}

// NewRateLimitedProvider wraps next so that every Infer first waits on w
func NewRateLimitedProvider(next Provider, w Waiter) *RateLimitedProvider {
	return &RateLimitedProvider{next: next, waiter: w}
}

// Name returns the wrapped provider's name
func (p *RateLimitedProvider) Name() string {
	return p.next.Name()
}

// IsAvailable delegates to the wrapped provider without consuming budget
func (p *RateLimitedProvider) IsAvailable(ctx context.Context) bool {
	return p.next.IsAvailable(ctx)
}

// Infer waits for a slot, then calls through. A cancelled wait is an
// inference failure like any other.
func (p *RateLimitedProvider) Infer(ctx context.Context, req InferRequest) (*InferResponse, error) {
	if err := p.waiter.Wait(ctx, p.next.Name()); err != nil {
		return nil, err
	}
	return p.next.Infer(ctx, req)
}
