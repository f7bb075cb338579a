package booking

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dharmasatrya/farearbitrage/internal/metrics"
	"github.com/dharmasatrya/farearbitrage/internal/models"
	"github.com/dharmasatrya/farearbitrage/internal/providers"
	"github.com/dharmasatrya/farearbitrage/pkg/currency"
)

const (
	DefaultSessionTTL = 30 * time.Minute
	MaxExtendMinutes  = 120
)

// Searcher prices a search request for the searching step.
type Searcher interface {
	Search(ctx context.Context, req models.SearchRequest) (*models.SearchResult, error)
}

// Requoter fetches a fresh upstream price for one fare, bypassing caches.
type Requoter interface {
	Fresh(ctx context.Context, q models.QuoteRequest) ([]models.Offer, error)
}

type Config struct {
	SessionTTL      time.Duration
	DefaultTimezone string
	Now             func() time.Time
}

type Stats struct {
	Total    int                          `json:"total"`
	ByStatus map[models.BookingStatus]int `json:"by_status"`
}

// Engine drives booking sessions through search, selection, validation,
// passenger details, payment and confirmation.
type Engine struct {
	store    *Store
	searcher Searcher
	quotes   Requoter
	ttl      time.Duration
	timezone string
	now      func() time.Time
}

func NewEngine(store *Store, searcher Searcher, quotes Requoter, cfg Config) *Engine {
	ttl := cfg.SessionTTL
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	tz := cfg.DefaultTimezone
	if tz == "" {
		tz = "UTC"
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		store:    store,
		searcher: searcher,
		quotes:   quotes,
		ttl:      ttl,
		timezone: tz,
		now:      now,
	}
}

func (e *Engine) CreateBooking(timezone string) (*models.BookingSession, error) {
	if timezone == "" {
		timezone = e.timezone
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		return nil, &ValidationError{Errors: []FieldError{{Field: "timezone", Message: "unknown time zone"}}}
	}

	session := e.newSession(timezone, nil)
	e.store.Put(session)
	metrics.IncBookingTransition("create", "ok")
	log.Printf("Booking %s created (timezone %s, expires %s)", session.ID, timezone, session.ExpiresAt.Format(time.RFC3339))
	return session.Clone(), nil
}

func (e *Engine) GetBooking(id string) (*models.BookingSession, error) {
	return e.store.Get(id)
}

// SearchFlights prices req and offers the results as candidates. A search
// that finds nothing leaves the session in searching.
func (e *Engine) SearchFlights(ctx context.Context, id string, req models.SearchRequest) (*models.BookingSession, *models.SearchResult, error) {
	var result *models.SearchResult
	session, err := e.store.Update(id, func(s *models.BookingSession) error {
		if err := requireState(s, "search flights", models.BookingStatusSearching); err != nil {
			return err
		}
		if err := req.Validate(); err != nil {
			return err
		}
		r, err := e.searcher.Search(ctx, req)
		if err != nil {
			return err
		}
		if len(r.AllOptions) == 0 {
			if len(r.Metadata.Errors) > 0 {
				return fmt.Errorf("%w: %s", providers.ErrProviderUnavailable, strings.Join(r.Metadata.Errors, "; "))
			}
			return fmt.Errorf("%w for %s-%s on %s", providers.ErrNoResults, req.Origin, req.Destination, req.DepartureDate)
		}

		stored := req.Clone()
		s.SearchRequest = &stored
		s.Candidates = models.CloneOffers(r.AllOptions)
		s.SelectedOffer = nil
		s.Validation = nil
		s.Status = models.BookingStatusSelecting
		result = r
		return nil
	})
	if err != nil {
		return nil, nil, e.observe("search", err)
	}
	e.observe("search", nil)
	return session, result, nil
}

// SelectFlight picks one of the last search's candidates. It is also the
// way back after a failed validation.
func (e *Engine) SelectFlight(id, offerID string) (*models.BookingSession, error) {
	session, err := e.store.Update(id, func(s *models.BookingSession) error {
		if err := requireState(s, "select a flight", models.BookingStatusSelecting, models.BookingStatusValidating); err != nil {
			return err
		}
		for _, c := range s.Candidates {
			if c.ID == offerID {
				selected := c.Clone()
				s.SelectedOffer = &selected
				s.Validation = nil
				s.Status = models.BookingStatusValidating
				return nil
			}
		}
		return &NotFoundError{Code: CodeFlightNotFound, ID: offerID}
	})
	return session, e.observe("select", err)
}

// ValidateFlight re-quotes every fare of the selected offer. A price change
// is reported, never applied to the selection.
func (e *Engine) ValidateFlight(ctx context.Context, id string) (*models.BookingSession, *models.ValidationReport, error) {
	var report *models.ValidationReport
	session, err := e.store.Update(id, func(s *models.BookingSession) error {
		if err := requireState(s, "validate the flight", models.BookingStatusValidating); err != nil {
			return err
		}
		if s.SelectedOffer == nil {
			return &StateError{Operation: "validate the flight", State: s.Status, Reason: "no flight selected"}
		}

		r, err := e.requote(ctx, *s.SelectedOffer)
		if err != nil {
			return err
		}
		s.Validation = r
		report = r
		return nil
	})
	if err != nil {
		return nil, nil, e.observe("validate", err)
	}
	e.observe("validate", nil)
	return session, report, nil
}

func (e *Engine) requote(ctx context.Context, offer models.Offer) (*models.ValidationReport, error) {
	report := &models.ValidationReport{
		SeatsAvailable: len(offer.Fares) > 0,
		QuotedPrice:    offer.TotalPrice,
		Currency:       offer.Currency,
	}

	var current int64
	for _, fare := range offer.Fares {
		offers, err := e.quotes.Fresh(ctx, fare.Query)
		if err != nil {
			return nil, err
		}
		found := false
		for _, o := range offers {
			if o.FlightKey() == fare.FlightKey {
				current += currency.Cents(o.TotalPrice)
				found = true
				break
			}
		}
		if !found {
			report.SeatsAvailable = false
			break
		}
	}

	report.CheckedAt = e.now()
	if !report.SeatsAvailable {
		report.Message = "The selected flight is no longer available. Please select another option."
		return report, nil
	}

	report.CurrentPrice = float64(current) / 100
	delta := current - currency.Cents(offer.TotalPrice)
	report.PriceDelta = float64(delta) / 100
	report.PriceChanged = delta != 0
	switch {
	case delta > 0:
		report.Message = fmt.Sprintf("Price increased by %s", currency.Format(report.PriceDelta, offer.Currency))
	case delta < 0:
		report.Message = fmt.Sprintf("Price decreased by %s", currency.Format(-report.PriceDelta, offer.Currency))
	default:
		report.Message = "Price confirmed"
	}
	return report, nil
}

func (e *Engine) SubmitPassengerDetails(id string, passengers []models.PassengerDetails) (*models.BookingSession, error) {
	session, err := e.store.Update(id, func(s *models.BookingSession) error {
		if err := requireState(s, "submit passenger details", models.BookingStatusValidating); err != nil {
			return err
		}
		if s.SelectedOffer == nil || s.SearchRequest == nil {
			return &StateError{Operation: "submit passenger details", State: s.Status, Reason: "no flight selected"}
		}
		if err := validatePassengers(passengers, *s.SearchRequest, *s.SelectedOffer, e.now()); err != nil {
			return err
		}

		s.Passengers = append([]models.PassengerDetails(nil), passengers...)
		for i := range s.Passengers {
			if s.Passengers[i].Type == "" {
				s.Passengers[i].Type = models.PassengerAdult
			}
			s.Passengers[i].Nationality = strings.ToUpper(strings.TrimSpace(s.Passengers[i].Nationality))
			s.Passengers[i].PassportCountry = strings.ToUpper(strings.TrimSpace(s.Passengers[i].PassportCountry))
		}
		s.Status = models.BookingStatusBooking
		return nil
	})
	return session, e.observe("passengers", err)
}

// ProcessPayment records an authorized payment. The amount must equal the
// selected fare total to the cent.
func (e *Engine) ProcessPayment(id string, payment models.PaymentDetails) (*models.BookingSession, error) {
	session, err := e.store.Update(id, func(s *models.BookingSession) error {
		if err := requireState(s, "process payment", models.BookingStatusBooking); err != nil {
			return err
		}
		if s.Payment != nil && s.Payment.Status == models.PaymentStatusAuthorized {
			return &StateError{Operation: "process payment", State: s.Status, Reason: "payment already authorized"}
		}
		if err := validatePayment(payment, *s.SelectedOffer); err != nil {
			return err
		}

		processed := e.now()
		s.Payment = &models.PaymentDetails{
			Method:      payment.Method,
			Currency:    s.SelectedOffer.Currency,
			Amount:      payment.Amount,
			Status:      models.PaymentStatusAuthorized,
			PaymentID:   "pay_" + uuid.NewString(),
			ProcessedAt: &processed,
		}
		return nil
	})
	return session, e.observe("payment", err)
}

func (e *Engine) ConfirmBooking(id string) (*models.BookingSession, error) {
	session, err := e.store.Update(id, func(s *models.BookingSession) error {
		if err := requireState(s, "confirm", models.BookingStatusBooking); err != nil {
			return err
		}
		if s.Payment == nil || s.Payment.Status != models.PaymentStatusAuthorized {
			return &StateError{Operation: "confirm", State: s.Status, Reason: "payment not authorized"}
		}

		s.Confirmation = &models.Confirmation{
			BookingReference: bookingReference(),
			ConfirmedAt:      e.now(),
			Offer:            s.SelectedOffer.Clone(),
			Passengers:       append([]models.PassengerDetails(nil), s.Passengers...),
			PaymentID:        s.Payment.PaymentID,
			TotalPaid:        s.Payment.Amount,
			Currency:         s.Payment.Currency,
		}
		s.Status = models.BookingStatusConfirmed
		return nil
	})
	if err == nil {
		log.Printf("Booking %s confirmed with reference %s", id, session.Confirmation.BookingReference)
	}
	return session, e.observe("confirm", err)
}

// CancelBooking marks the session cancelled. It stays visible until the next
// sweep so later operations see a terminal state.
func (e *Engine) CancelBooking(id string) (*models.BookingSession, error) {
	session, err := e.store.Update(id, func(s *models.BookingSession) error {
		if s.Status.IsTerminal() {
			return &StateError{Operation: "cancel", State: s.Status}
		}
		s.Status = models.BookingStatusCancelled
		return nil
	})
	return session, e.observe("cancel", err)
}

func (e *Engine) ExtendSession(id string, minutes int) (*models.BookingSession, error) {
	session, err := e.store.Update(id, func(s *models.BookingSession) error {
		if s.Status.IsTerminal() {
			return &StateError{Operation: "extend the session", State: s.Status}
		}
		if minutes < 1 || minutes > MaxExtendMinutes {
			return &ValidationError{Errors: []FieldError{{Field: "minutes", Message: fmt.Sprintf("must be between 1 and %d", MaxExtendMinutes)}}}
		}
		s.ExpiresAt = s.ExpiresAt.Add(time.Duration(minutes) * time.Minute)
		return nil
	})
	return session, e.observe("extend", err)
}

// RestartBooking opens a fresh session seeded with the old search request.
// The old session is left untouched and may be in any state.
func (e *Engine) RestartBooking(id string) (*models.BookingSession, error) {
	old, err := e.store.Peek(id)
	if err != nil {
		return nil, e.observe("restart", err)
	}

	session := e.newSession(old.Timezone, old.SearchRequest)
	e.store.Put(session)
	e.observe("restart", nil)
	log.Printf("Booking %s restarted as %s", id, session.ID)
	return session.Clone(), nil
}

func (e *Engine) GetStats() Stats {
	counts := e.store.Counts()
	total := 0
	for status, n := range counts {
		total += n
		metrics.SetBookingSessions(string(status), n)
	}
	return Stats{Total: total, ByStatus: counts}
}

func (e *Engine) CleanupExpiredSessions() int {
	n := e.store.Sweep()
	if n > 0 {
		log.Printf("Removed %d expired or cancelled booking sessions", n)
	}
	return n
}

func (e *Engine) newSession(timezone string, req *models.SearchRequest) *models.BookingSession {
	now := e.now()
	s := &models.BookingSession{
		ID:        uuid.NewString(),
		Timezone:  timezone,
		CreatedAt: now,
		ExpiresAt: now.Add(e.ttl),
		Status:    models.BookingStatusSearching,
	}
	if req != nil {
		seeded := req.Clone()
		s.SearchRequest = &seeded
	}
	return s
}

func (e *Engine) observe(op string, err error) error {
	outcome := "ok"
	if err != nil {
		outcome = strings.ToLower(Code(err))
		if outcome == "" {
			outcome = "error"
			if errors.Is(err, providers.ErrRateLimited) {
				outcome = "rate_limited"
			}
		}
	}
	metrics.IncBookingTransition(op, outcome)
	return err
}

func requireState(s *models.BookingSession, op string, allowed ...models.BookingStatus) error {
	for _, st := range allowed {
		if s.Status == st {
			return nil
		}
	}
	return &StateError{Operation: op, State: s.Status}
}

// bookingReference is six upper-case alphanumerics.
func bookingReference() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
}
