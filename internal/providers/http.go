package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/dharmasatrya/farearbitrage/internal/airports"
	"github.com/dharmasatrya/farearbitrage/internal/models"
	"github.com/dharmasatrya/farearbitrage/pkg/currency"
)

type offersResponse struct {
	Data []httpOffer `json:"data"`
}

type httpOffer struct {
	ID          string          `json:"id"`
	Itineraries []httpItinerary `json:"itineraries"`
	Price       httpPrice       `json:"price"`
}

type httpItinerary struct {
	Duration string        `json:"duration"`
	Segments []httpSegment `json:"segments"`
}

type httpSegment struct {
	Departure   httpEndpoint `json:"departure"`
	Arrival     httpEndpoint `json:"arrival"`
	CarrierCode string       `json:"carrierCode"`
	Number      string       `json:"number"`
	Duration    string       `json:"duration"`
}

type httpEndpoint struct {
	IataCode string `json:"iataCode"`
	At       string `json:"at"`
}

type httpPrice struct {
	Total    json.Number `json:"total"`
	Currency string      `json:"currency"`
}

type HTTPConfig struct {
	Name    string
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// HTTPProvider talks to a flight-offer API over JSON.
type HTTPProvider struct {
	name    string
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPProvider(cfg HTTPConfig) *HTTPProvider {
	name := cfg.Name
	if name == "" {
		name = "upstream"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPProvider{
		name:    name,
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: timeout},
	}
}

func (p *HTTPProvider) Name() string {
	return p.name
}

func (p *HTTPProvider) Search(ctx context.Context, req models.QuoteRequest) ([]models.Offer, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, NewProviderError(p.name, fmt.Errorf("marshal quote request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/flight-offers", bytes.NewReader(body))
	if err != nil {
		return nil, NewProviderError(p.name, fmt.Errorf("create request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if p.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)
	}

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, NewProviderError(p.name, fmt.Errorf("%w: %v", ErrProviderUnavailable, err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, NewProviderError(p.name, fmt.Errorf("%w: status %d", ErrRateLimited, resp.StatusCode))
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode >= 500:
		return nil, NewProviderError(p.name, fmt.Errorf("%w: status %d", ErrProviderUnavailable, resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, NewProviderError(p.name, fmt.Errorf("request rejected with status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg))))
	}

	var decoded offersResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, NewProviderError(p.name, fmt.Errorf("%w: decode response: %v", ErrProviderUnavailable, err))
	}

	offers := make([]models.Offer, 0, len(decoded.Data))
	for _, o := range decoded.Data {
		offer, err := p.normalize(o, req)
		if err != nil {
			log.Printf("Provider %s: skipping offer %s: %v", p.name, o.ID, err)
			continue
		}
		offers = append(offers, offer)
	}
	return offers, nil
}

func (p *HTTPProvider) normalize(o httpOffer, req models.QuoteRequest) (models.Offer, error) {
	total, err := o.Price.Total.Float64()
	if err != nil {
		return models.Offer{}, fmt.Errorf("invalid price %q: %w", o.Price.Total, err)
	}
	if len(o.Itineraries) == 0 {
		return models.Offer{}, fmt.Errorf("offer %s has no itineraries", o.ID)
	}

	var segments []models.Segment
	for i, it := range o.Itineraries {
		leg := models.LegOutbound
		if i > 0 {
			leg = models.LegReturn
		}
		for _, s := range it.Segments {
			dep, err := airports.ParseTimeWithOffset(s.Departure.At, s.Departure.IataCode)
			if err != nil {
				return models.Offer{}, err
			}
			arr, err := airports.ParseTimeWithOffset(s.Arrival.At, s.Arrival.IataCode)
			if err != nil {
				return models.Offer{}, err
			}
			minutes := parseISODuration(s.Duration)
			if minutes == 0 {
				minutes = int(arr.Sub(dep).Minutes())
			}
			segments = append(segments, models.Segment{
				Origin:          strings.ToUpper(s.Departure.IataCode),
				Destination:     strings.ToUpper(s.Arrival.IataCode),
				DepartureTime:   airports.ConvertToTimezone(dep, s.Departure.IataCode),
				ArrivalTime:     airports.ConvertToTimezone(arr, s.Arrival.IataCode),
				Carrier:         s.CarrierCode,
				FlightNumber:    s.Number,
				DurationMinutes: minutes,
				Leg:             leg,
			})
		}
	}
	if len(segments) == 0 {
		return models.Offer{}, fmt.Errorf("offer %s has no segments", o.ID)
	}

	code := o.Price.Currency
	if code == "" {
		code = req.CurrencyCode
	}
	return NewOffer(p.name+"-"+o.ID, segments, total, code, req), nil
}

// NewOffer builds a single-fare offer as returned by one upstream query.
func NewOffer(id string, segments []models.Segment, total float64, code string, req models.QuoteRequest) models.Offer {
	travelers := req.Adults + req.Children + req.Infants
	if travelers < 1 {
		travelers = 1
	}
	key := models.FlightKey(segments)
	return models.Offer{
		ID:             id,
		Segments:       segments,
		TotalPrice:     total,
		Currency:       code,
		PricePerPerson: float64(currency.Cents(total/float64(travelers))) / 100,
		FormattedPrice: currency.Format(total, code),
		Risks:          []string{},
		Fares: []models.Fare{{
			Query:     req,
			FlightKey: key,
			Price:     total,
		}},
	}
}

var isoDurationRe = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?$`)

func parseISODuration(s string) int {
	matches := isoDurationRe.FindStringSubmatch(strings.ToUpper(strings.TrimSpace(s)))
	if matches == nil {
		return 0
	}

	var hours, mins int
	if matches[1] != "" {
		hours, _ = strconv.Atoi(matches[1])
	}
	if matches[2] != "" {
		mins, _ = strconv.Atoi(matches[2])
	}
	return hours*60 + mins
}
