package arbitrage

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharmasatrya/farearbitrage/internal/cache"
	"github.com/dharmasatrya/farearbitrage/internal/models"
	"github.com/dharmasatrya/farearbitrage/internal/providers"
	"github.com/dharmasatrya/farearbitrage/internal/quote"
	"github.com/dharmasatrya/farearbitrage/internal/ratelimit"
)

// tableProvider prices queries from a table keyed by origin-destination/dep/ret.
type tableProvider struct {
	prices map[string][]float64
	down   bool
	calls  atomic.Int64
}

func (p *tableProvider) Name() string { return "table" }

func (p *tableProvider) Search(ctx context.Context, q models.QuoteRequest) ([]models.Offer, error) {
	p.calls.Add(1)
	if p.down {
		return nil, providers.NewProviderError(p.Name(), providers.ErrProviderUnavailable)
	}
	key := q.Origin + "-" + q.Destination + "/" + q.DepartureDate + "/" + q.ReturnDateValue()
	var offers []models.Offer
	for i, price := range p.prices[key] {
		seg := models.Segment{
			Origin:        q.Origin,
			Destination:   q.Destination,
			DepartureTime: time.Date(2024, 6, 15, 7+i, 0, 0, 0, time.UTC),
			Carrier:       "BA",
			FlightNumber:  fmt.Sprintf("%d", 300+i),
			Leg:           models.LegOutbound,
		}
		offers = append(offers, providers.NewOffer(fmt.Sprintf("table-%s-%d", key, i), []models.Segment{seg}, price, "GBP", q))
	}
	return offers, nil
}

func newEngine(p providers.Provider, ceiling int) (*Engine, *ratelimit.Budget) {
	budget := ratelimit.NewBudget(ceiling)
	limiter := ratelimit.NewProviderLimiter(ratelimit.RateLimitConfig{RequestsPerSecond: 10000, BurstSize: 1000})
	client := quote.NewClient(p, cache.NewMemoryCache(cache.MemoryConfig{}), limiter, budget, quote.Config{Timeout: time.Second})
	return NewEngine(client, budget, DefaultConfig()), budget
}

func londonParis(ret string) models.SearchRequest {
	req := models.SearchRequest{Origin: "LHR", Destination: "CDG", DepartureDate: "2024-06-15", Adults: 1, Currency: "GBP"}
	if ret != "" {
		req.ReturnDate = &ret
	}
	return req
}

func arbitrageTable() map[string][]float64 {
	return map[string][]float64{
		"LHR-CDG/2024-06-15/2024-06-20": {300, 320},
		"LHR-CDG/2024-06-15/":           {120},
		"CDG-LHR/2024-06-20/":           {100},
		"STN-CDG/2024-06-15/2024-06-20": {220},
		"LGW-CDG/2024-06-15/2024-06-20": {350},
		"LHR-CDG/2024-06-14/2024-06-20": {220},
		"LHR-CDG/2024-06-15/2024-06-22": {299.99},
	}
}

func skipped(meta models.SearchMetadata) map[models.Strategy]string {
	out := map[models.Strategy]string{}
	for _, s := range meta.StrategiesSkipped {
		out[s.Strategy] = s.Reason
	}
	return out
}

func TestSearchRunsEveryStrategyAndRanks(t *testing.T) {
	p := &tableProvider{prices: arbitrageTable()}
	e, budget := newEngine(p, 100)

	result, err := e.Search(context.Background(), londonParis("2024-06-20"))
	require.NoError(t, err)

	assert.Equal(t, models.Strategies, result.Metadata.StrategiesExecuted)
	require.NotNil(t, result.Standard)
	assert.Equal(t, 300.0, result.Standard.TotalPrice)
	require.NotNil(t, result.Best)
	assert.Equal(t, 220.0, result.Best.TotalPrice)
	assert.Equal(t, models.StrategySplitTicket, result.Best.Strategy, "split ticket wins a three-way price tie")

	var prev *models.Offer
	for i := range result.AllOptions {
		o := result.AllOptions[i]
		if prev != nil {
			require.LessOrEqual(t, prev.TotalPrice, o.TotalPrice)
			if prev.TotalPrice == o.TotalPrice {
				assert.LessOrEqual(t, prev.Strategy.Priority(), o.Strategy.Priority())
			}
		}
		if o.Strategy != models.StrategyStandard {
			assert.Greater(t, o.SavingsVsStandard, 0.0, o.ID)
		}
		prev = &result.AllOptions[i]
	}

	strategies := map[models.Strategy]int{}
	for _, o := range result.AllOptions {
		strategies[o.Strategy]++
	}
	assert.Equal(t, 2, strategies[models.StrategyStandard])
	assert.Equal(t, 1, strategies[models.StrategySplitTicket])
	assert.Equal(t, 1, strategies[models.StrategyNearbyAirport])
	assert.Equal(t, 2, strategies[models.StrategyFlexibleDate])

	require.NotNil(t, result.PriceRange)
	assert.Equal(t, 220.0, result.PriceRange.Min)
	assert.Equal(t, 320.0, result.PriceRange.Max)

	// 1 standard + 2 split + 5 nearby + 10 flexible
	assert.Equal(t, 18, result.Metadata.UpstreamCalls)
	assert.Equal(t, int64(18), p.calls.Load())
	assert.Equal(t, 18, budget.Used())
	assert.Equal(t, 82, result.Metadata.BudgetRemaining)
	assert.Equal(t, len(result.AllOptions), result.Metadata.TotalResults)
}

func TestSearchRepeatIsServedFromCache(t *testing.T) {
	p := &tableProvider{prices: arbitrageTable()}
	e, _ := newEngine(p, 100)

	first, err := e.Search(context.Background(), londonParis("2024-06-20"))
	require.NoError(t, err)
	before := p.calls.Load()

	second, err := e.Search(context.Background(), londonParis("2024-06-20"))
	require.NoError(t, err)

	assert.Positive(t, second.Metadata.CacheHits)
	assert.Equal(t, first.Best.ID, second.Best.ID)
	// only sub-queries that came back empty are asked again
	assert.Equal(t, before+int64(second.Metadata.UpstreamCalls), p.calls.Load())
	assert.Less(t, second.Metadata.UpstreamCalls, first.Metadata.UpstreamCalls)
}

func TestSearchOneWayNeverRunsSplitTicket(t *testing.T) {
	p := &tableProvider{prices: arbitrageTable()}
	e, _ := newEngine(p, 100)

	result, err := e.Search(context.Background(), londonParis(""))
	require.NoError(t, err)

	assert.True(t, result.Metadata.Ran(models.StrategyStandard))
	assert.False(t, result.Metadata.Ran(models.StrategySplitTicket))
	assert.Equal(t, models.SkipReasonOneWay, skipped(result.Metadata)[models.StrategySplitTicket])
	for _, o := range result.AllOptions {
		assert.NotEqual(t, models.StrategySplitTicket, o.Strategy)
	}
}

func TestSearchSkipsStrategiesThatDoNotFit(t *testing.T) {
	p := &tableProvider{prices: arbitrageTable()}
	e, budget := newEngine(p, 8)

	result, err := e.Search(context.Background(), londonParis("2024-06-20"))
	require.NoError(t, err)

	assert.Equal(t, []models.Strategy{models.StrategyStandard, models.StrategySplitTicket, models.StrategyNearbyAirport}, result.Metadata.StrategiesExecuted)
	assert.Equal(t, models.SkipReasonBudget, skipped(result.Metadata)[models.StrategyFlexibleDate])
	assert.Equal(t, 8, budget.Used())
	assert.Zero(t, result.Metadata.BudgetRemaining)
}

func TestSearchStandardRunsWithoutBudget(t *testing.T) {
	p := &tableProvider{prices: arbitrageTable()}
	e, budget := newEngine(p, 1)
	require.True(t, budget.Admit(1))

	result, err := e.Search(context.Background(), londonParis("2024-06-20"))
	require.NoError(t, err)

	assert.Equal(t, []models.Strategy{models.StrategyStandard}, result.Metadata.StrategiesExecuted)
	assert.Nil(t, result.Standard)
	assert.Empty(t, result.AllOptions)
	assert.NotEmpty(t, result.Metadata.Errors)
	assert.Zero(t, p.calls.Load())
	for _, s := range result.Metadata.StrategiesSkipped {
		assert.Equal(t, models.SkipReasonNoBaseline, s.Reason)
	}
}

func TestSearchTotalOutageDegrades(t *testing.T) {
	p := &tableProvider{down: true}
	e, _ := newEngine(p, 100)

	result, err := e.Search(context.Background(), londonParis(""))
	require.NoError(t, err)

	assert.Nil(t, result.Best)
	assert.Nil(t, result.Standard)
	assert.Nil(t, result.PriceRange)
	assert.Empty(t, result.AllOptions)
	assert.Len(t, result.Metadata.Errors, 1)
	assert.Equal(t, 1, result.Metadata.UpstreamCalls)
	s := skipped(result.Metadata)
	assert.Equal(t, models.SkipReasonOneWay, s[models.StrategySplitTicket])
	assert.Equal(t, models.SkipReasonNoBaseline, s[models.StrategyNearbyAirport])
	assert.Equal(t, models.SkipReasonNoBaseline, s[models.StrategyFlexibleDate])
}

func TestSearchRejectsInvalidRequest(t *testing.T) {
	e, _ := newEngine(&tableProvider{}, 10)

	_, err := e.Search(context.Background(), models.SearchRequest{Origin: "LHR", Destination: "LHR", DepartureDate: "2024-06-15"})
	var ve models.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, models.ErrSameOriginDestination, ve)

	neg := -1.0
	req := londonParis("")
	req.Filters = &models.SearchFilters{PriceMax: &neg}
	_, err = e.Search(context.Background(), req)
	assert.ErrorAs(t, err, &ve)
}

func TestSearchAppliesFilters(t *testing.T) {
	p := &tableProvider{prices: arbitrageTable()}
	e, _ := newEngine(p, 100)

	priceMax := 250.0
	req := londonParis("2024-06-20")
	req.Filters = &models.SearchFilters{PriceMax: &priceMax}
	result, err := e.Search(context.Background(), req)
	require.NoError(t, err)

	require.NotNil(t, result.Standard, "standard fare stays visible for comparison")
	assert.Equal(t, 300.0, result.Standard.TotalPrice)
	for _, o := range result.AllOptions {
		assert.LessOrEqual(t, o.TotalPrice, priceMax)
	}
}

func TestBudgetHoldsAcrossConcurrentSearches(t *testing.T) {
	p := &tableProvider{prices: map[string][]float64{}}
	for d := 1; d <= 28; d++ {
		p.prices[fmt.Sprintf("LHR-CDG/2024-06-%02d/", d)] = []float64{float64(100 + d)}
	}
	const ceiling = 25
	e, budget := newEngine(p, ceiling)

	var wg sync.WaitGroup
	for d := 4; d <= 24; d++ {
		wg.Add(1)
		go func(d int) {
			defer wg.Done()
			req := models.SearchRequest{Origin: "LHR", Destination: "CDG", DepartureDate: fmt.Sprintf("2024-06-%02d", d), Currency: "GBP"}
			_, err := e.Search(context.Background(), req)
			assert.NoError(t, err)
		}(d)
	}
	wg.Wait()

	assert.LessOrEqual(t, budget.Used(), ceiling)
	assert.LessOrEqual(t, p.calls.Load(), int64(budget.Used()))
	assert.Zero(t, budget.Snapshot().Reserved)
}
