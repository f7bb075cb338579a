package ratelimit

import (
	"context"
	"sync"

	"golang.org/x/time/rate"
)

// RateLimitConfig is a token bucket: a sustained rate and the burst allowed
// on top of it.
type RateLimitConfig struct {
	RequestsPerSecond float64
	BurstSize         int
}

func DefaultConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 10,
		BurstSize:         20,
	}
}

func (c RateLimitConfig) normalized() RateLimitConfig {
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = DefaultConfig().RequestsPerSecond
	}
	if c.BurstSize <= 0 {
		c.BurstSize = DefaultConfig().BurstSize
	}
	return c
}

// ProviderLimiter smooths dispatch per upstream provider so that a burst of
// strategy sub-queries does not trip the provider's own 429s. It paces calls;
// counting them against the billing period is the Budget's job.
type ProviderLimiter struct {
	mu       sync.RWMutex
	buckets  map[string]*rate.Limiter
	defaults RateLimitConfig
}

func NewProviderLimiter(config RateLimitConfig) *ProviderLimiter {
	return &ProviderLimiter{
		buckets:  make(map[string]*rate.Limiter),
		defaults: config.normalized(),
	}
}

func NewProviderLimiterWithDefaults() *ProviderLimiter {
	return NewProviderLimiter(DefaultConfig())
}

// GetLimiter returns the bucket for provider, creating it with the default
// limits on first use.
func (p *ProviderLimiter) GetLimiter(provider string) *rate.Limiter {
	p.mu.RLock()
	bucket, ok := p.buckets[provider]
	p.mu.RUnlock()
	if ok {
		return bucket
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if bucket, ok = p.buckets[provider]; ok {
		return bucket
	}
	bucket = rate.NewLimiter(rate.Limit(p.defaults.RequestsPerSecond), p.defaults.BurstSize)
	p.buckets[provider] = bucket
	return bucket
}

// SetProviderLimit retunes provider's bucket in place, so callers already
// waiting on it pick up the new rate.
func (p *ProviderLimiter) SetProviderLimit(provider string, rps float64, burst int) {
	cfg := RateLimitConfig{RequestsPerSecond: rps, BurstSize: burst}.normalized()
	bucket := p.GetLimiter(provider)
	bucket.SetLimit(rate.Limit(cfg.RequestsPerSecond))
	bucket.SetBurst(cfg.BurstSize)
}

// Wait blocks until the provider's bucket has a token or ctx is done. A nil
// limiter never blocks.
func (p *ProviderLimiter) Wait(ctx context.Context, provider string) error {
	if p == nil {
		return ctx.Err()
	}
	return p.GetLimiter(provider).Wait(ctx)
}
