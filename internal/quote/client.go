package quote

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dharmasatrya/farearbitrage/internal/cache"
	"github.com/dharmasatrya/farearbitrage/internal/metrics"
	"github.com/dharmasatrya/farearbitrage/internal/models"
	"github.com/dharmasatrya/farearbitrage/internal/providers"
	"github.com/dharmasatrya/farearbitrage/internal/ratelimit"
)

// ErrBudgetExhausted is returned when a cache miss cannot be paid for.
var ErrBudgetExhausted = fmt.Errorf("%w: rate budget exhausted", providers.ErrRateLimited)

const DefaultTimeout = 10 * time.Second

type Config struct {
	Timeout time.Duration
}

// Result is one answered quote. Offers may be empty.
type Result struct {
	Offers   []models.Offer
	CacheHit bool
	Called   bool
}

// Client fronts the upstream provider with the quote cache, the billing
// budget and the provider throttle.
type Client struct {
	provider providers.Provider
	cache    cache.Cache
	limiter  *ratelimit.ProviderLimiter
	budget   *ratelimit.Budget
	timeout  time.Duration
	group    singleflight.Group
}

func NewClient(provider providers.Provider, c cache.Cache, limiter *ratelimit.ProviderLimiter, budget *ratelimit.Budget, cfg Config) *Client {
	if c == nil {
		c = cache.NewNoOpCache()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		provider: provider,
		cache:    c,
		limiter:  limiter,
		budget:   budget,
		timeout:  timeout,
	}
}

// Quote answers q from the cache or, on a miss, spends one call from res.
// A nil reservation can only be served from the cache. Concurrent misses for
// the same key share one upstream call; that call outlives any single
// caller's cancellation, and each caller stops waiting when its own ctx ends.
func (c *Client) Quote(ctx context.Context, strategy models.Strategy, q models.QuoteRequest, res *ratelimit.Reservation) (Result, error) {
	key := cache.QuoteKey(strategy, q)
	if offers, ok := c.cache.Get(ctx, key); ok {
		metrics.IncCacheHit(string(strategy))
		return Result{Offers: offers, CacheHit: true}, nil
	}
	metrics.IncCacheMiss(string(strategy))

	var called atomic.Bool
	ch := c.group.DoChan(key, func() (interface{}, error) {
		shared := context.WithoutCancel(ctx)
		offers, err := c.dispatch(shared, strategy, q, res.Take, &called)
		if err != nil {
			return nil, err
		}
		if len(offers) > 0 {
			if err := c.cache.Set(shared, key, offers); err != nil {
				log.Printf("Quote cache write failed for %s: %v", strategy, err)
			}
		}
		return offers, nil
	})

	select {
	case <-ctx.Done():
		return Result{Called: called.Load()}, c.unavailable(ctx.Err())
	case r := <-ch:
		if r.Err != nil {
			return Result{Called: called.Load()}, r.Err
		}
		return Result{Offers: models.CloneOffers(r.Val.([]models.Offer)), Called: called.Load()}, nil
	}
}

// Fresh re-quotes q upstream, bypassing the cache, and pays for the call
// directly from the budget.
func (c *Client) Fresh(ctx context.Context, q models.QuoteRequest) ([]models.Offer, error) {
	var called atomic.Bool
	admit := func() bool {
		return c.budget != nil && c.budget.Admit(1)
	}
	return c.dispatch(ctx, "revalidation", q, admit, &called)
}

// dispatch makes one upstream call. The per-call timeout covers the wait for
// the provider throttle as well as the call itself.
func (c *Client) dispatch(ctx context.Context, strategy models.Strategy, q models.QuoteRequest, take func() bool, called *atomic.Bool) ([]models.Offer, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.limiter.Wait(callCtx, c.provider.Name()); err != nil {
		return nil, c.unavailable(err)
	}
	if !take() {
		metrics.IncStrategySkipped(string(strategy), models.SkipReasonBudget)
		return nil, ErrBudgetExhausted
	}
	called.Store(true)
	c.publishBudget()

	start := time.Now()
	offers, err := c.provider.Search(callCtx, q)
	if err != nil && callCtx.Err() != nil && !errors.Is(err, providers.ErrProviderUnavailable) {
		err = c.unavailable(err)
	}
	metrics.ObserveUpstreamCall(string(strategy), outcome(offers, err), time.Since(start))
	if err != nil {
		log.Printf("Provider %s failed for %s %s-%s %s: %v", c.provider.Name(), strategy, q.Origin, q.Destination, q.DepartureDate, err)
		return nil, err
	}
	return offers, nil
}

// unavailable classifies a cancelled or timed-out call as a provider outage.
func (c *Client) unavailable(err error) error {
	return providers.NewProviderError(c.provider.Name(), fmt.Errorf("%w: %v", providers.ErrProviderUnavailable, err))
}

func (c *Client) publishBudget() {
	if c.budget == nil {
		return
	}
	snap := c.budget.Snapshot()
	metrics.SetBudget(snap.Used, snap.Remaining)
}

func outcome(offers []models.Offer, err error) string {
	switch {
	case err == nil && len(offers) == 0:
		return "empty"
	case err == nil:
		return "ok"
	case errors.Is(err, providers.ErrRateLimited):
		return "rate_limited"
	case errors.Is(err, providers.ErrProviderUnavailable):
		return "unavailable"
	default:
		return "error"
	}
}
