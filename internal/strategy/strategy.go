package strategy

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/dharmasatrya/farearbitrage/internal/models"
	"github.com/dharmasatrya/farearbitrage/internal/quote"
	"github.com/dharmasatrya/farearbitrage/internal/ratelimit"
	"github.com/dharmasatrya/farearbitrage/pkg/currency"
)

// Quoter is the quote source runners price their sub-queries against.
type Quoter interface {
	Quote(ctx context.Context, strategy models.Strategy, q models.QuoteRequest, res *ratelimit.Reservation) (quote.Result, error)
}

// Outcome is what one runner produced and what it cost.
type Outcome struct {
	Strategy  models.Strategy
	Offers    []models.Offer
	Calls     int
	CacheHits int
	Errors    []string
}

// Runner is implemented by exactly the four strategies in this package.
type Runner interface {
	Kind() models.Strategy
	// MaxCalls is the worst-case number of upstream calls Run can make.
	MaxCalls(req models.SearchRequest) int
	// Run prices req. Baseline is the cheapest standard offer, nil for the
	// standard runner itself.
	Run(ctx context.Context, req models.SearchRequest, baseline *models.Offer, q Quoter, res *ratelimit.Reservation) Outcome
	isRunner()
}

type Options struct {
	// Concurrency bounds in-flight sub-queries per runner.
	Concurrency int
	// MaxResults is forwarded to every upstream query.
	MaxResults int
}

const (
	DefaultConcurrency = 4
	DefaultMaxResults  = 20
)

func (o Options) withDefaults() Options {
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	if o.MaxResults <= 0 {
		o.MaxResults = DefaultMaxResults
	}
	return o
}

// All returns one runner per strategy in priority order.
func All(opts Options) []Runner {
	opts = opts.withDefaults()
	return []Runner{
		&Standard{opts: opts},
		&SplitTicket{opts: opts},
		&NearbyAirport{opts: opts},
		&FlexibleDate{opts: opts},
	}
}

type subQuery struct {
	query models.QuoteRequest
	tag   string
}

type subResult struct {
	offers []models.Offer
	err    error
}

// runQueries prices every sub-query concurrently. Results line up with
// queries by index; a failed sub-query never stops the others.
func runQueries(ctx context.Context, kind models.Strategy, queries []subQuery, q Quoter, res *ratelimit.Reservation, limit int, out *Outcome) []subResult {
	results := make([]subResult, len(queries))
	hits := make([]bool, len(queries))
	called := make([]bool, len(queries))

	var g errgroup.Group
	g.SetLimit(limit)
	for i, sq := range queries {
		i, sq := i, sq
		g.Go(func() error {
			r, err := q.Quote(ctx, kind, sq.query, res)
			results[i] = subResult{offers: r.Offers, err: err}
			hits[i] = r.CacheHit
			called[i] = r.Called
			return nil
		})
	}
	_ = g.Wait()

	for i, r := range results {
		if hits[i] {
			out.CacheHits++
		}
		if called[i] {
			out.Calls++
		}
		if r.err != nil {
			out.Errors = append(out.Errors, fmt.Sprintf("%s %s: %v", kind, queries[i].tag, r.err))
		}
	}
	return results
}

// Savings is baseline minus price, rounded to cents.
func Savings(baseline, price float64) float64 {
	return float64(currency.Cents(baseline)-currency.Cents(price)) / 100
}

func beats(baseline *models.Offer, o models.Offer) bool {
	return baseline != nil && currency.Cents(o.TotalPrice) < currency.Cents(baseline.TotalPrice)
}

func label(o models.Offer, kind models.Strategy, id, description string, risks []string, baseline *models.Offer) models.Offer {
	o = o.Clone()
	o.ID = id
	o.Strategy = kind
	o.Description = description
	o.Risks = append([]string{}, risks...)
	o.FormattedPrice = currency.Format(o.TotalPrice, o.Currency)
	if baseline != nil {
		o.SavingsVsStandard = Savings(baseline.TotalPrice, o.TotalPrice)
	}
	return o
}
