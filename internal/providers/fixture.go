package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/dharmasatrya/farearbitrage/internal/airports"
	"github.com/dharmasatrya/farearbitrage/internal/models"
	"github.com/dharmasatrya/farearbitrage/internal/providers/data"
)

type fixtureFile struct {
	Currency string             `json:"currency"`
	Rates    map[string]float64 `json:"rates"`
	Routes   []fixtureRoute     `json:"routes"`
}

type fixtureRoute struct {
	Origin      string          `json:"origin"`
	Destination string          `json:"destination"`
	Flights     []fixtureFlight `json:"flights"`
}

type fixtureFlight struct {
	Carrier  string  `json:"carrier"`
	Number   string  `json:"number"`
	Departs  string  `json:"departs"`
	Duration int     `json:"duration"`
	Fare     float64 `json:"fare"`
}

const roundTripDiscount = 0.9

// FixtureProvider prices a static route table deterministically. It stands in
// for the upstream API in local runs.
type FixtureProvider struct {
	base    string
	rates   map[string]float64
	routes  map[string][]fixtureFlight
	latency time.Duration
}

func NewFixtureProvider(latency time.Duration) (*FixtureProvider, error) {
	var file fixtureFile
	if err := json.Unmarshal(data.RoutesData, &file); err != nil {
		return nil, err
	}

	routes := make(map[string][]fixtureFlight, len(file.Routes))
	for _, r := range file.Routes {
		routes[routeKey(r.Origin, r.Destination)] = r.Flights
	}
	return &FixtureProvider{
		base:    file.Currency,
		rates:   file.Rates,
		routes:  routes,
		latency: latency,
	}, nil
}

func (p *FixtureProvider) Name() string {
	return "fixture"
}

func (p *FixtureProvider) Search(ctx context.Context, req models.QuoteRequest) ([]models.Offer, error) {
	if p.latency > 0 {
		select {
		case <-time.After(p.latency):
		case <-ctx.Done():
			return nil, NewProviderError(p.Name(), fmt.Errorf("%w: %v", ErrProviderUnavailable, ctx.Err()))
		}
	}

	rate, ok := p.rates[strings.ToUpper(req.CurrencyCode)]
	if !ok {
		return nil, NewProviderError(p.Name(), fmt.Errorf("unsupported currency %q", req.CurrencyCode))
	}

	outbound := p.routes[routeKey(req.Origin, req.Destination)]
	if len(outbound) == 0 {
		return nil, nil
	}

	var inbound []fixtureFlight
	if req.ReturnDate != nil {
		inbound = p.routes[routeKey(req.Destination, req.Origin)]
		if len(inbound) == 0 {
			return nil, nil
		}
	}

	var offers []models.Offer
	for i, out := range outbound {
		outSeg, err := fixtureSegment(out, req.Origin, req.Destination, req.DepartureDate, models.LegOutbound)
		if err != nil {
			return nil, NewProviderError(p.Name(), err)
		}
		outFare := p.legFare(out, req, req.Origin, req.Destination, req.DepartureDate)

		if req.ReturnDate == nil {
			total := roundMoney(outFare * rate)
			id := fmt.Sprintf("%s-%s%s-%s", p.Name(), out.Carrier, out.Number, req.DepartureDate)
			offers = append(offers, NewOffer(id, []models.Segment{outSeg}, total, req.CurrencyCode, req))
			continue
		}

		for j, in := range inbound {
			inSeg, err := fixtureSegment(in, req.Destination, req.Origin, *req.ReturnDate, models.LegReturn)
			if err != nil {
				return nil, NewProviderError(p.Name(), err)
			}
			inFare := p.legFare(in, req, req.Destination, req.Origin, *req.ReturnDate)
			total := roundMoney((outFare + inFare) * roundTripDiscount * rate)
			id := fmt.Sprintf("%s-%d%d-%s%s-%s%s-%s-%s", p.Name(), i, j, out.Carrier, out.Number, in.Carrier, in.Number, req.DepartureDate, *req.ReturnDate)
			offers = append(offers, NewOffer(id, []models.Segment{outSeg, inSeg}, total, req.CurrencyCode, req))
		}
	}

	sort.SliceStable(offers, func(i, j int) bool {
		return offers[i].TotalPrice < offers[j].TotalPrice
	})
	if req.MaxResults > 0 && len(offers) > req.MaxResults {
		offers = offers[:req.MaxResults]
	}
	return offers, nil
}

// legFare is the base fare in the fixture currency for every traveler on one
// leg, scaled by a stable per-date demand factor.
func (p *FixtureProvider) legFare(f fixtureFlight, req models.QuoteRequest, origin, destination, date string) float64 {
	seated := float64(req.Adults + req.Children)
	infants := float64(req.Infants) * 0.1
	return f.Fare * demandFactor(origin, destination, f.Carrier+f.Number, date) * (seated + infants)
}

func demandFactor(origin, destination, flight, date string) float64 {
	h := fnv.New32a()
	h.Write([]byte(origin + destination + flight + date))
	factor := 0.85 + float64(h.Sum32()%41)/100

	if d, err := time.Parse(models.DateLayout, date); err == nil {
		switch d.Weekday() {
		case time.Friday, time.Sunday:
			factor += 0.1
		case time.Tuesday, time.Wednesday:
			factor -= 0.05
		}
	}
	return factor
}

func fixtureSegment(f fixtureFlight, origin, destination, date string, leg models.Leg) (models.Segment, error) {
	dep, err := airports.ParseTimeWithOffset(date+"T"+f.Departs, origin)
	if err != nil {
		return models.Segment{}, fmt.Errorf("fixture flight %s%s: %w", f.Carrier, f.Number, err)
	}
	arr := dep.Add(time.Duration(f.Duration) * time.Minute)
	return models.Segment{
		Origin:          origin,
		Destination:     destination,
		DepartureTime:   dep,
		ArrivalTime:     airports.ConvertToTimezone(arr, destination),
		Carrier:         f.Carrier,
		FlightNumber:    f.Number,
		DurationMinutes: f.Duration,
		Leg:             leg,
	}, nil
}

func routeKey(origin, destination string) string {
	return strings.ToUpper(origin) + "-" + strings.ToUpper(destination)
}

func roundMoney(v float64) float64 {
	return math.Round(v*100) / 100
}
