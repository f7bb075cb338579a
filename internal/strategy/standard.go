package strategy

import (
	"context"

	"github.com/dharmasatrya/farearbitrage/internal/models"
	"github.com/dharmasatrya/farearbitrage/internal/ranking"
	"github.com/dharmasatrya/farearbitrage/internal/ratelimit"
)

// Standard prices the trip exactly as requested. Its cheapest offer is the
// baseline every other strategy is measured against.
type Standard struct {
	opts Options
}

func (s *Standard) Kind() models.Strategy { return models.StrategyStandard }

func (s *Standard) MaxCalls(models.SearchRequest) int { return 1 }

func (s *Standard) Run(ctx context.Context, req models.SearchRequest, _ *models.Offer, q Quoter, res *ratelimit.Reservation) Outcome {
	out := Outcome{Strategy: s.Kind()}
	queries := []subQuery{{query: req.Quote(s.opts.MaxResults), tag: req.Origin + "-" + req.Destination}}
	results := runQueries(ctx, s.Kind(), queries, q, res, 1, &out)

	description := "One-way fare as requested"
	if req.IsRoundTrip() {
		description = "Round-trip fare as requested"
	}
	for _, o := range results[0].offers {
		out.Offers = append(out.Offers, label(o, s.Kind(), o.ID, description, nil, nil))
	}
	ranking.Sort(out.Offers)
	return out
}

func (*Standard) isRunner() {}
