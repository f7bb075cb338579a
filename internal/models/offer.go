package models

import (
	"strings"
	"time"
)

type Strategy string

const (
	StrategyStandard      Strategy = "standard"
	StrategySplitTicket   Strategy = "split_ticket"
	StrategyNearbyAirport Strategy = "nearby_airport"
	StrategyFlexibleDate  Strategy = "flexible_date"
)

// Strategies lists every strategy in priority order.
var Strategies = []Strategy{
	StrategyStandard,
	StrategySplitTicket,
	StrategyNearbyAirport,
	StrategyFlexibleDate,
}

// Priority is the secondary ranking key on exact price ties. Lower wins.
func (s Strategy) Priority() int {
	switch s {
	case StrategyStandard:
		return 0
	case StrategySplitTicket:
		return 1
	case StrategyNearbyAirport:
		return 2
	case StrategyFlexibleDate:
		return 3
	default:
		return len(Strategies)
	}
}

type Leg string

const (
	LegOutbound Leg = "OUTBOUND"
	LegReturn   Leg = "RETURN"
)

type Segment struct {
	Origin          string    `json:"origin"`
	Destination     string    `json:"destination"`
	DepartureTime   time.Time `json:"departure_time"`
	ArrivalTime     time.Time `json:"arrival_time"`
	Carrier         string    `json:"carrier"`
	FlightNumber    string    `json:"flight_number"`
	DurationMinutes int       `json:"duration_minutes"`
	Leg             Leg       `json:"leg"`
}

// Fare is one upstream quote an offer is priced from, kept so the offer can
// be re-quoted during booking.
type Fare struct {
	Query     QuoteRequest `json:"query"`
	FlightKey string       `json:"flight_key"`
	Price     float64      `json:"price"`
}

type Offer struct {
	ID                string    `json:"id"`
	Segments          []Segment `json:"segments"`
	TotalPrice        float64   `json:"total_price"`
	Currency          string    `json:"currency"`
	PricePerPerson    float64   `json:"price_per_person"`
	FormattedPrice    string    `json:"formatted_price"`
	Strategy          Strategy  `json:"strategy"`
	Description       string    `json:"description"`
	Risks             []string  `json:"risks"`
	SavingsVsStandard float64   `json:"savings_vs_standard"`
	Fares             []Fare    `json:"fares"`
}

// Stops counts connections on the outbound leg.
func (o Offer) Stops() int {
	n := 0
	for _, s := range o.Segments {
		if s.Leg == LegOutbound {
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return n - 1
}

// FlightKey identifies the flights an offer is made of, independent of price.
func (o Offer) FlightKey() string {
	return FlightKey(o.Segments)
}

func FlightKey(segments []Segment) string {
	parts := make([]string, len(segments))
	for i, s := range segments {
		parts[i] = s.Carrier + s.FlightNumber + "@" + s.DepartureTime.UTC().Format("200601021504")
	}
	return strings.Join(parts, "|")
}

// Clone returns a deep copy so callers may mutate the result freely. Nil and
// empty slices stay as they were.
func (o Offer) Clone() Offer {
	c := o
	if o.Segments != nil {
		c.Segments = append(make([]Segment, 0, len(o.Segments)), o.Segments...)
	}
	if o.Risks != nil {
		c.Risks = append(make([]string, 0, len(o.Risks)), o.Risks...)
	}
	if o.Fares != nil {
		c.Fares = make([]Fare, len(o.Fares))
		for i, f := range o.Fares {
			c.Fares[i] = f
			if f.Query.ReturnDate != nil {
				rd := *f.Query.ReturnDate
				c.Fares[i].Query.ReturnDate = &rd
			}
		}
	}
	return c
}

func CloneOffers(offers []Offer) []Offer {
	if offers == nil {
		return nil
	}
	out := make([]Offer, len(offers))
	for i, o := range offers {
		out[i] = o.Clone()
	}
	return out
}
