package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOfferCloneKeepsNilAndEmptySlices(t *testing.T) {
	o := Offer{ID: "a", Risks: []string{}, Fares: nil, Segments: nil}
	c := o.Clone()
	assert.Equal(t, o, c)
	assert.NotNil(t, c.Risks)
	assert.Nil(t, c.Fares)
	assert.Nil(t, c.Segments)
}

func TestOfferCloneIsDeep(t *testing.T) {
	ret := "2024-06-20"
	o := Offer{
		Segments: []Segment{{FlightNumber: "304"}},
		Risks:    []string{"two tickets"},
		Fares:    []Fare{{Query: QuoteRequest{ReturnDate: &ret}, Price: 10}},
	}
	c := o.Clone()
	c.Segments[0].FlightNumber = "999"
	c.Risks[0] = "changed"
	*c.Fares[0].Query.ReturnDate = "2030-01-01"

	assert.Equal(t, "304", o.Segments[0].FlightNumber)
	assert.Equal(t, "two tickets", o.Risks[0])
	assert.Equal(t, "2024-06-20", *o.Fares[0].Query.ReturnDate)
}

func TestSearchRequestCloneCopiesFilters(t *testing.T) {
	priceMax, stops, from := 300.0, 1, "06:00"
	ret := "2024-06-20"
	r := SearchRequest{
		ReturnDate: &ret,
		Filters:    &SearchFilters{PriceMax: &priceMax, MaxStops: &stops, Airlines: []string{"BA"}, DepartureTimeMin: &from},
	}
	c := r.Clone()
	assert.Equal(t, r, c)

	*c.ReturnDate = "2030-01-01"
	*c.Filters.PriceMax = 1
	*c.Filters.MaxStops = 4
	*c.Filters.DepartureTimeMin = "23:00"
	c.Filters.Airlines[0] = "XX"

	assert.Equal(t, "2024-06-20", ret)
	assert.Equal(t, 300.0, priceMax)
	assert.Equal(t, 1, stops)
	assert.Equal(t, "06:00", from)
	assert.Equal(t, []string{"BA"}, r.Filters.Airlines)
	assert.Nil(t, SearchRequest{}.Clone().Filters)
}
