package models

import (
	"strings"
	"time"
)

const DateLayout = "2006-01-02"

const MaxSeatedTravelers = 9

type SearchFilters struct {
	PriceMax         *float64 `json:"price_max,omitempty"`
	MaxStops         *int     `json:"max_stops,omitempty"`
	Airlines         []string `json:"airlines,omitempty"`
	DepartureTimeMin *string  `json:"departure_time_min,omitempty"`
	DepartureTimeMax *string  `json:"departure_time_max,omitempty"`
}

func (f *SearchFilters) Clone() *SearchFilters {
	if f == nil {
		return nil
	}
	c := *f
	if f.PriceMax != nil {
		v := *f.PriceMax
		c.PriceMax = &v
	}
	if f.MaxStops != nil {
		v := *f.MaxStops
		c.MaxStops = &v
	}
	if f.Airlines != nil {
		c.Airlines = append(make([]string, 0, len(f.Airlines)), f.Airlines...)
	}
	if f.DepartureTimeMin != nil {
		v := *f.DepartureTimeMin
		c.DepartureTimeMin = &v
	}
	if f.DepartureTimeMax != nil {
		v := *f.DepartureTimeMax
		c.DepartureTimeMax = &v
	}
	return &c
}

type SearchRequest struct {
	Origin        string         `json:"origin"`
	Destination   string         `json:"destination"`
	DepartureDate string         `json:"departure_date"`
	ReturnDate    *string        `json:"return_date,omitempty"`
	Adults        int            `json:"adults"`
	Children      int            `json:"children,omitempty"`
	Infants       int            `json:"infants,omitempty"`
	CabinClass    string         `json:"cabin_class"`
	Currency      string         `json:"currency"`
	Filters       *SearchFilters `json:"filters,omitempty"`
}

// Validate normalizes codes, fills defaults and rejects requests that cannot
// be priced.
func (r *SearchRequest) Validate() error {
	r.Origin = strings.ToUpper(strings.TrimSpace(r.Origin))
	r.Destination = strings.ToUpper(strings.TrimSpace(r.Destination))
	r.Currency = strings.ToUpper(strings.TrimSpace(r.Currency))
	r.CabinClass = strings.ToLower(strings.TrimSpace(r.CabinClass))

	if r.Origin == "" {
		return ErrMissingOrigin
	}
	if r.Destination == "" {
		return ErrMissingDestination
	}
	if r.Origin == r.Destination {
		return ErrSameOriginDestination
	}
	if r.DepartureDate == "" {
		return ErrMissingDepartureDate
	}
	dep, err := time.Parse(DateLayout, r.DepartureDate)
	if err != nil {
		return ErrInvalidDepartureDate
	}
	if r.ReturnDate != nil && *r.ReturnDate == "" {
		r.ReturnDate = nil
	}
	if r.ReturnDate != nil {
		ret, err := time.Parse(DateLayout, *r.ReturnDate)
		if err != nil {
			return ErrInvalidReturnDate
		}
		if ret.Before(dep) {
			return ErrReturnBeforeDeparture
		}
	}

	if r.Adults == 0 {
		r.Adults = 1
	}
	if r.Adults < 0 || r.Children < 0 || r.Infants < 0 {
		return ErrInvalidPassengerCount
	}
	if r.Infants > r.Adults {
		return ErrTooManyInfants
	}
	if r.Adults+r.Children > MaxSeatedTravelers {
		return ErrTooManyTravelers
	}
	if r.CabinClass == "" {
		r.CabinClass = "economy"
	}
	if r.Currency == "" {
		r.Currency = "USD"
	}
	return nil
}

// Clone returns a copy that shares no pointers or slices with r.
func (r SearchRequest) Clone() SearchRequest {
	if r.ReturnDate != nil {
		rd := *r.ReturnDate
		r.ReturnDate = &rd
	}
	r.Filters = r.Filters.Clone()
	return r
}

func (r SearchRequest) IsRoundTrip() bool {
	return r.ReturnDate != nil && *r.ReturnDate != ""
}

func (r SearchRequest) Travelers() int {
	return r.Adults + r.Children + r.Infants
}

// Quote builds the upstream query for the request as given.
func (r SearchRequest) Quote(maxResults int) QuoteRequest {
	q := QuoteRequest{
		Origin:        r.Origin,
		Destination:   r.Destination,
		DepartureDate: r.DepartureDate,
		Adults:        r.Adults,
		Children:      r.Children,
		Infants:       r.Infants,
		TravelClass:   r.CabinClass,
		CurrencyCode:  r.Currency,
		MaxResults:    maxResults,
	}
	if r.IsRoundTrip() {
		ret := *r.ReturnDate
		q.ReturnDate = &ret
	}
	return q
}

// QuoteRequest is a single upstream flight-offer query.
type QuoteRequest struct {
	Origin        string  `json:"origin"`
	Destination   string  `json:"destination"`
	DepartureDate string  `json:"departureDate"`
	ReturnDate    *string `json:"returnDate,omitempty"`
	Adults        int     `json:"adults"`
	Children      int     `json:"children,omitempty"`
	Infants       int     `json:"infants,omitempty"`
	TravelClass   string  `json:"travelClass,omitempty"`
	CurrencyCode  string  `json:"currencyCode"`
	MaxResults    int     `json:"maxResults"`
}

// OneWay returns a copy of q without a return date.
func (q QuoteRequest) OneWay() QuoteRequest {
	q.ReturnDate = nil
	return q
}

func (q QuoteRequest) ReturnDateValue() string {
	if q.ReturnDate == nil {
		return ""
	}
	return *q.ReturnDate
}

type ValidationError string

func (e ValidationError) Error() string {
	return string(e)
}

const (
	ErrMissingOrigin         ValidationError = "origin is required"
	ErrMissingDestination    ValidationError = "destination is required"
	ErrSameOriginDestination ValidationError = "origin and destination must differ"
	ErrMissingDepartureDate  ValidationError = "departure_date is required"
	ErrInvalidDepartureDate  ValidationError = "departure_date must be YYYY-MM-DD"
	ErrInvalidReturnDate     ValidationError = "return_date must be YYYY-MM-DD"
	ErrReturnBeforeDeparture ValidationError = "return_date must not be before departure_date"
	ErrInvalidPassengerCount ValidationError = "passenger counts must not be negative"
	ErrTooManyInfants        ValidationError = "each infant must travel with an adult"
	ErrTooManyTravelers      ValidationError = "at most 9 seated travelers per search"
)
