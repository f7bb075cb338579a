package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dharmasatrya/farearbitrage/internal/models"
)

const sampleResponse = `{
  "data": [
    {
      "id": "1",
      "itineraries": [
        {"duration": "PT1H15M", "segments": [
          {"departure": {"iataCode": "LHR", "at": "2024-06-15T07:40:00"},
           "arrival": {"iataCode": "CDG", "at": "2024-06-15T09:55:00"},
           "carrierCode": "BA", "number": "304", "duration": "PT1H15M"}
        ]}
      ],
      "price": {"total": "299.00", "currency": "GBP"}
    },
    {
      "id": "2",
      "itineraries": [],
      "price": {"total": "1.00", "currency": "GBP"}
    }
  ]
}`

func quoteRequest() models.QuoteRequest {
	return models.QuoteRequest{
		Origin:        "LHR",
		Destination:   "CDG",
		DepartureDate: "2024-06-15",
		Adults:        2,
		CurrencyCode:  "GBP",
		MaxResults:    10,
	}
}

func TestHTTPProviderNormalizesOffers(t *testing.T) {
	var received models.QuoteRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/flight-offers", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	p := NewHTTPProvider(HTTPConfig{Name: "amadeus", BaseURL: srv.URL, APIKey: "secret"})
	offers, err := p.Search(context.Background(), quoteRequest())
	require.NoError(t, err)
	require.Len(t, offers, 1, "offers without itineraries are dropped")

	o := offers[0]
	assert.Equal(t, "amadeus-1", o.ID)
	assert.Equal(t, 299.0, o.TotalPrice)
	assert.Equal(t, 149.5, o.PricePerPerson)
	assert.Equal(t, "£299.00", o.FormattedPrice)
	require.Len(t, o.Segments, 1)
	assert.Equal(t, 75, o.Segments[0].DurationMinutes)
	assert.Equal(t, models.LegOutbound, o.Segments[0].Leg)
	require.Len(t, o.Fares, 1)
	assert.Equal(t, o.FlightKey(), o.Fares[0].FlightKey)
	assert.Equal(t, "LHR", received.Origin)
	assert.Equal(t, 2, received.Adults)
}

func TestHTTPProviderErrorMapping(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusTooManyRequests, ErrRateLimited},
		{http.StatusServiceUnavailable, ErrProviderUnavailable},
		{http.StatusInternalServerError, ErrProviderUnavailable},
	}
	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tt.status)
		}))
		p := NewHTTPProvider(HTTPConfig{BaseURL: srv.URL})
		_, err := p.Search(context.Background(), quoteRequest())
		srv.Close()

		require.Error(t, err)
		assert.True(t, errors.Is(err, tt.want), "status %d: %v", tt.status, err)
		var perr *ProviderError
		assert.True(t, errors.As(err, &perr))
	}
}

func TestHTTPProviderEmptyResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data": []}`))
	}))
	defer srv.Close()

	offers, err := NewHTTPProvider(HTTPConfig{BaseURL: srv.URL}).Search(context.Background(), quoteRequest())
	require.NoError(t, err)
	assert.Empty(t, offers)
}

func TestHTTPProviderTimeoutIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	p := NewHTTPProvider(HTTPConfig{BaseURL: srv.URL, Timeout: 20 * time.Millisecond})
	_, err := p.Search(context.Background(), quoteRequest())
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestParseISODuration(t *testing.T) {
	assert.Equal(t, 135, parseISODuration("PT2H15M"))
	assert.Equal(t, 45, parseISODuration("pt45m"))
	assert.Equal(t, 0, parseISODuration("2h"))
}

func TestHTTPProviderLogsSkippedOffers(t *testing.T) {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	defer log.SetOutput(os.Stderr)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(sampleResponse))
	}))
	defer srv.Close()

	offers, err := NewHTTPProvider(HTTPConfig{Name: "amadeus", BaseURL: srv.URL}).Search(context.Background(), quoteRequest())
	require.NoError(t, err)
	assert.Len(t, offers, 1)
	assert.Contains(t, buf.String(), "Provider amadeus: skipping offer 2")
}
