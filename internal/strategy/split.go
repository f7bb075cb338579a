package strategy

import (
	"context"
	"fmt"

	"github.com/dharmasatrya/farearbitrage/internal/models"
	"github.com/dharmasatrya/farearbitrage/internal/ranking"
	"github.com/dharmasatrya/farearbitrage/internal/ratelimit"
	"github.com/dharmasatrya/farearbitrage/pkg/currency"
)

// SplitTicket books each direction of a round trip as its own one-way ticket.
type SplitTicket struct {
	opts Options
}

func (s *SplitTicket) Kind() models.Strategy { return models.StrategySplitTicket }

func (s *SplitTicket) MaxCalls(req models.SearchRequest) int {
	if !req.IsRoundTrip() {
		return 0
	}
	return 2
}

func (s *SplitTicket) Run(ctx context.Context, req models.SearchRequest, baseline *models.Offer, q Quoter, res *ratelimit.Reservation) Outcome {
	out := Outcome{Strategy: s.Kind()}
	if !req.IsRoundTrip() {
		return out
	}

	outbound := req.Quote(s.opts.MaxResults).OneWay()
	inbound := outbound
	inbound.Origin, inbound.Destination = outbound.Destination, outbound.Origin
	inbound.DepartureDate = *req.ReturnDate

	results := runQueries(ctx, s.Kind(), []subQuery{
		{query: outbound, tag: outbound.Origin + "-" + outbound.Destination},
		{query: inbound, tag: inbound.Origin + "-" + inbound.Destination},
	}, q, res, s.opts.Concurrency, &out)

	there, ok := ranking.Cheapest(results[0].offers)
	if !ok {
		return out
	}
	back, ok := ranking.Cheapest(results[1].offers)
	if !ok {
		return out
	}

	combined := combine(there, back)
	if !beats(baseline, combined) {
		return out
	}

	description := fmt.Sprintf("Two one-way tickets: %s-%s on %s and %s-%s on %s",
		outbound.Origin, outbound.Destination, outbound.DepartureDate,
		inbound.Origin, inbound.Destination, inbound.DepartureDate)
	risks := []string{
		"Two separate tickets: if the outbound flight is delayed or cancelled the return ticket is not protected",
		"Changes and refunds are handled separately by each airline",
	}
	id := fmt.Sprintf("%s:%s+%s", s.Kind(), there.ID, back.ID)
	out.Offers = append(out.Offers, label(combined, s.Kind(), id, description, risks, baseline))
	return out
}

func combine(there, back models.Offer) models.Offer {
	c := there.Clone()
	for i := range c.Segments {
		c.Segments[i].Leg = models.LegOutbound
	}
	for _, seg := range back.Segments {
		seg.Leg = models.LegReturn
		c.Segments = append(c.Segments, seg)
	}
	c.TotalPrice = float64(currency.Cents(there.TotalPrice)+currency.Cents(back.TotalPrice)) / 100
	c.PricePerPerson = float64(currency.Cents(there.PricePerPerson)+currency.Cents(back.PricePerPerson)) / 100
	c.Fares = append(c.Fares, back.Clone().Fares...)
	return c
}

func (*SplitTicket) isRunner() {}
