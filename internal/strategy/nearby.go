package strategy

import (
	"context"
	"fmt"

	"github.com/dharmasatrya/farearbitrage/internal/airports"
	"github.com/dharmasatrya/farearbitrage/internal/models"
	"github.com/dharmasatrya/farearbitrage/internal/ranking"
	"github.com/dharmasatrya/farearbitrage/internal/ratelimit"
)

// NearbyAirport swaps the origin or the destination for an airport close to
// it, one side at a time.
type NearbyAirport struct {
	opts Options
}

type substitution struct {
	side      string
	requested string
	alternate string
}

func (n *NearbyAirport) Kind() models.Strategy { return models.StrategyNearbyAirport }

func (n *NearbyAirport) MaxCalls(req models.SearchRequest) int {
	return len(substitutions(req))
}

func (n *NearbyAirport) Run(ctx context.Context, req models.SearchRequest, baseline *models.Offer, q Quoter, res *ratelimit.Reservation) Outcome {
	out := Outcome{Strategy: n.Kind()}
	subs := substitutions(req)
	if len(subs) == 0 {
		return out
	}

	base := req.Quote(n.opts.MaxResults)
	queries := make([]subQuery, len(subs))
	for i, sub := range subs {
		qr := base
		if sub.side == "origin" {
			qr.Origin = sub.alternate
		} else {
			qr.Destination = sub.alternate
		}
		queries[i] = subQuery{query: qr, tag: qr.Origin + "-" + qr.Destination}
	}
	results := runQueries(ctx, n.Kind(), queries, q, res, n.opts.Concurrency, &out)

	for i, r := range results {
		best, ok := ranking.Cheapest(r.offers)
		if !ok || !beats(baseline, best) {
			continue
		}
		sub := subs[i]
		description, risks := describeSubstitution(sub, req.IsRoundTrip())
		id := fmt.Sprintf("%s:%s:%s", n.Kind(), sub.alternate, best.ID)
		out.Offers = append(out.Offers, label(best, n.Kind(), id, description, risks, baseline))
	}
	ranking.Sort(out.Offers)
	return out
}

func substitutions(req models.SearchRequest) []substitution {
	var subs []substitution
	for _, alt := range airports.Nearby(req.Origin) {
		if alt == req.Destination {
			continue
		}
		subs = append(subs, substitution{side: "origin", requested: req.Origin, alternate: alt})
	}
	for _, alt := range airports.Nearby(req.Destination) {
		if alt == req.Origin {
			continue
		}
		subs = append(subs, substitution{side: "destination", requested: req.Destination, alternate: alt})
	}
	return subs
}

func describeSubstitution(sub substitution, roundTrip bool) (string, []string) {
	city := airports.City(sub.alternate)
	var description, leg string
	if sub.side == "origin" {
		description = fmt.Sprintf("Depart from %s (%s) instead of %s", sub.alternate, city, sub.requested)
		leg = fmt.Sprintf("Origin changed from %s to %s", sub.requested, sub.alternate)
	} else {
		description = fmt.Sprintf("Arrive at %s (%s) instead of %s", sub.alternate, city, sub.requested)
		leg = fmt.Sprintf("Destination changed from %s to %s", sub.requested, sub.alternate)
	}
	if roundTrip {
		leg += " for both directions"
	}
	return description, []string{
		leg,
		fmt.Sprintf("Ground transport to and from %s is not included in the price", sub.alternate),
	}
}

func (*NearbyAirport) isRunner() {}
