package arbitrage

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/dharmasatrya/farearbitrage/internal/filter"
	"github.com/dharmasatrya/farearbitrage/internal/metrics"
	"github.com/dharmasatrya/farearbitrage/internal/models"
	"github.com/dharmasatrya/farearbitrage/internal/ranking"
	"github.com/dharmasatrya/farearbitrage/internal/ratelimit"
	"github.com/dharmasatrya/farearbitrage/internal/strategy"
)

type Config struct {
	// Timeout bounds a whole search. Calls still running when it fires are
	// reported as provider errors for their sub-query.
	Timeout    time.Duration
	Strategies strategy.Options
}

func DefaultConfig() Config {
	return Config{
		Timeout: 20 * time.Second,
		Strategies: strategy.Options{
			Concurrency: strategy.DefaultConcurrency,
			MaxResults:  strategy.DefaultMaxResults,
		},
	}
}

// Engine runs the strategies against one quote source and budget and merges
// what they find.
type Engine struct {
	quoter   strategy.Quoter
	budget   *ratelimit.Budget
	standard strategy.Runner
	others   []strategy.Runner
	config   Config
}

func NewEngine(quoter strategy.Quoter, budget *ratelimit.Budget, config Config) *Engine {
	if config.Timeout <= 0 {
		config.Timeout = DefaultConfig().Timeout
	}
	e := &Engine{
		quoter: quoter,
		budget: budget,
		config: config,
	}
	for _, r := range strategy.All(config.Strategies) {
		if r.Kind() == models.StrategyStandard {
			e.standard = r
			continue
		}
		e.others = append(e.others, r)
	}
	return e
}

// Search validates req and prices it under every strategy the budget allows.
// Upstream failures degrade the result; only an invalid request is an error.
func (e *Engine) Search(ctx context.Context, req models.SearchRequest) (*models.SearchResult, error) {
	start := time.Now()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := filter.Validate(req.Filters); err != nil {
		return nil, err
	}

	searchCtx, cancel := context.WithTimeout(ctx, e.config.Timeout)
	defer cancel()

	result := &models.SearchResult{
		SearchCriteria: models.NewSearchCriteria(req),
		AllOptions:     []models.Offer{},
	}
	meta := &result.Metadata

	std := e.runStandard(searchCtx, req)
	e.record(meta, std)

	baseline, ok := ranking.Cheapest(std.Offers)
	var outcomes []strategy.Outcome
	if ok {
		outcomes = e.runOthers(searchCtx, req, &baseline, meta)
		result.Standard = &baseline
	} else {
		for _, r := range e.others {
			reason := models.SkipReasonNoBaseline
			if r.Kind() == models.StrategySplitTicket && !req.IsRoundTrip() {
				reason = models.SkipReasonOneWay
			}
			e.skip(meta, r.Kind(), reason)
		}
	}

	candidates := models.CloneOffers(std.Offers)
	for _, out := range outcomes {
		e.record(meta, out)
		for _, o := range out.Offers {
			if o.SavingsVsStandard > 0 {
				candidates = append(candidates, o)
			}
		}
	}

	options := filter.Apply(ranking.Sort(ranking.Dedupe(candidates)), req.Filters)
	result.AllOptions = options
	if len(options) > 0 {
		best := options[0].Clone()
		result.Best = &best
		metrics.ObserveBestSavings(best.SavingsVsStandard)
	}
	result.PriceRange = ranking.PriceRange(options)

	meta.TotalResults = len(options)
	if e.budget != nil {
		snap := e.budget.Snapshot()
		meta.BudgetRemaining = snap.Remaining
		metrics.SetBudget(snap.Used, snap.Remaining)
	}
	meta.SearchTimeMs = time.Since(start).Milliseconds()
	metrics.ObserveSearch(time.Since(start))

	log.Printf("Search %s-%s %s: %d options, strategies %v, %d upstream calls, %d cache hits",
		req.Origin, req.Destination, req.DepartureDate, len(options), meta.StrategiesExecuted, meta.UpstreamCalls, meta.CacheHits)
	return result, nil
}

// runStandard always runs. Without budget it can still answer from the cache.
func (e *Engine) runStandard(ctx context.Context, req models.SearchRequest) strategy.Outcome {
	res, _ := e.reserve(e.standard.MaxCalls(req))
	defer res.Release()
	return e.standard.Run(ctx, req, nil, e.quoter, res)
}

// runOthers reserves each remaining strategy's worst case in priority order
// and runs the reserved ones in parallel. Outcomes come back in priority
// order.
func (e *Engine) runOthers(ctx context.Context, req models.SearchRequest, baseline *models.Offer, meta *models.SearchMetadata) []strategy.Outcome {
	type started struct {
		index  int
		runner strategy.Runner
		res    *ratelimit.Reservation
	}

	var runs []started
	for _, r := range e.others {
		if r.Kind() == models.StrategySplitTicket && !req.IsRoundTrip() {
			e.skip(meta, r.Kind(), models.SkipReasonOneWay)
			continue
		}
		res, ok := e.reserve(r.MaxCalls(req))
		if !ok {
			e.skip(meta, r.Kind(), models.SkipReasonBudget)
			continue
		}
		runs = append(runs, started{index: len(runs), runner: r, res: res})
	}

	type runResult struct {
		index   int
		outcome strategy.Outcome
	}

	resultCh := make(chan runResult, len(runs))
	var wg sync.WaitGroup

	for _, s := range runs {
		wg.Add(1)
		go func(s started) {
			defer wg.Done()
			defer s.res.Release()

			resultCh <- runResult{
				index:   s.index,
				outcome: s.runner.Run(ctx, req, baseline, e.quoter, s.res),
			}
		}(s)
	}

	go func() {
		wg.Wait()
		close(resultCh)
	}()

	outcomes := make([]strategy.Outcome, len(runs))
	for rr := range resultCh {
		outcomes[rr.index] = rr.outcome
	}
	return outcomes
}

func (e *Engine) reserve(n int) (*ratelimit.Reservation, bool) {
	if e.budget == nil {
		return nil, false
	}
	return e.budget.Reserve(n)
}

func (e *Engine) record(meta *models.SearchMetadata, out strategy.Outcome) {
	meta.StrategiesExecuted = append(meta.StrategiesExecuted, out.Strategy)
	meta.UpstreamCalls += out.Calls
	meta.CacheHits += out.CacheHits
	meta.Errors = append(meta.Errors, out.Errors...)
	metrics.IncStrategyRun(string(out.Strategy))
}

func (e *Engine) skip(meta *models.SearchMetadata, s models.Strategy, reason string) {
	meta.StrategiesSkipped = append(meta.StrategiesSkipped, models.SkippedStrategy{Strategy: s, Reason: reason})
	metrics.IncStrategySkipped(string(s), reason)
}
