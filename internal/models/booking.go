package models

import "time"

type BookingStatus string

const (
	BookingStatusSearching  BookingStatus = "searching"
	BookingStatusSelecting  BookingStatus = "selecting"
	BookingStatusValidating BookingStatus = "validating"
	BookingStatusBooking    BookingStatus = "booking"
	BookingStatusConfirmed  BookingStatus = "confirmed"
	BookingStatusCancelled  BookingStatus = "cancelled"
	BookingStatusExpired    BookingStatus = "expired"
)

var BookingStatuses = []BookingStatus{
	BookingStatusSearching,
	BookingStatusSelecting,
	BookingStatusValidating,
	BookingStatusBooking,
	BookingStatusConfirmed,
	BookingStatusCancelled,
	BookingStatusExpired,
}

func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusConfirmed || s == BookingStatusCancelled || s == BookingStatusExpired
}

// Progress is the display percentage for a status.
func (s BookingStatus) Progress() int {
	switch s {
	case BookingStatusSearching:
		return 10
	case BookingStatusSelecting:
		return 30
	case BookingStatusValidating:
		return 50
	case BookingStatusBooking:
		return 70
	case BookingStatusConfirmed:
		return 100
	default:
		return 0
	}
}

type PassengerType string

const (
	PassengerAdult  PassengerType = "adult"
	PassengerChild  PassengerType = "child"
	PassengerInfant PassengerType = "infant"
)

type PassengerDetails struct {
	Type            PassengerType `json:"type"`
	Title           string        `json:"title,omitempty"`
	FirstName       string        `json:"first_name"`
	LastName        string        `json:"last_name"`
	DateOfBirth     string        `json:"date_of_birth"`
	Nationality     string        `json:"nationality"`
	PassportNumber  string        `json:"passport_number,omitempty"`
	PassportExpiry  string        `json:"passport_expiry,omitempty"`
	PassportCountry string        `json:"passport_country,omitempty"`
	Email           string        `json:"email,omitempty"`
	Phone           string        `json:"phone,omitempty"`
}

type PaymentStatus string

const (
	PaymentStatusPending    PaymentStatus = "pending"
	PaymentStatusAuthorized PaymentStatus = "authorized"
	PaymentStatusFailed     PaymentStatus = "failed"
)

type PaymentMethod string

const (
	PaymentMethodCreditCard   PaymentMethod = "credit_card"
	PaymentMethodDebitCard    PaymentMethod = "debit_card"
	PaymentMethodPayPal       PaymentMethod = "paypal"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
)

func IsValidPaymentMethod(m PaymentMethod) bool {
	switch m {
	case PaymentMethodCreditCard, PaymentMethodDebitCard, PaymentMethodPayPal, PaymentMethodBankTransfer:
		return true
	}
	return false
}

type PaymentDetails struct {
	Method      PaymentMethod `json:"method"`
	Currency    string        `json:"currency"`
	Amount      float64       `json:"amount"`
	Status      PaymentStatus `json:"status"`
	PaymentID   string        `json:"payment_id,omitempty"`
	ProcessedAt *time.Time    `json:"processed_at,omitempty"`
}

type Confirmation struct {
	BookingReference string             `json:"booking_reference"`
	ConfirmedAt      time.Time          `json:"confirmed_at"`
	Offer            Offer              `json:"offer"`
	Passengers       []PassengerDetails `json:"passengers"`
	PaymentID        string             `json:"payment_id"`
	TotalPaid        float64            `json:"total_paid"`
	Currency         string             `json:"currency"`
}

// ValidationReport is the outcome of re-quoting a selected offer.
type ValidationReport struct {
	SeatsAvailable bool      `json:"seats_available"`
	QuotedPrice    float64   `json:"quoted_price"`
	CurrentPrice   float64   `json:"current_price"`
	PriceChanged   bool      `json:"price_changed"`
	PriceDelta     float64   `json:"price_delta"`
	Currency       string    `json:"currency"`
	Message        string    `json:"message,omitempty"`
	CheckedAt      time.Time `json:"checked_at"`
}

type BookingSession struct {
	ID            string             `json:"id"`
	Timezone      string             `json:"timezone"`
	CreatedAt     time.Time          `json:"created_at"`
	ExpiresAt     time.Time          `json:"expires_at"`
	Status        BookingStatus      `json:"status"`
	SearchRequest *SearchRequest     `json:"search_request,omitempty"`
	Candidates    []Offer            `json:"candidates,omitempty"`
	SelectedOffer *Offer             `json:"selected_offer,omitempty"`
	Validation    *ValidationReport  `json:"validation,omitempty"`
	Passengers    []PassengerDetails `json:"passengers,omitempty"`
	Payment       *PaymentDetails    `json:"payment,omitempty"`
	Confirmation  *Confirmation      `json:"confirmation,omitempty"`
}

func (s *BookingSession) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// EffectiveStatus folds TTL expiry into the stored status.
func (s *BookingSession) EffectiveStatus(now time.Time) BookingStatus {
	if !s.Status.IsTerminal() && s.IsExpired(now) {
		return BookingStatusExpired
	}
	return s.Status
}

func (s *BookingSession) CanModify(now time.Time) bool {
	return !s.Status.IsTerminal() && !s.IsExpired(now)
}

func (s *BookingSession) Progress(now time.Time) int {
	return s.EffectiveStatus(now).Progress()
}

// Clone returns a deep copy of the session.
func (s *BookingSession) Clone() *BookingSession {
	c := *s
	if s.SearchRequest != nil {
		req := s.SearchRequest.Clone()
		c.SearchRequest = &req
	}
	c.Candidates = CloneOffers(s.Candidates)
	if s.SelectedOffer != nil {
		o := s.SelectedOffer.Clone()
		c.SelectedOffer = &o
	}
	if s.Validation != nil {
		v := *s.Validation
		c.Validation = &v
	}
	c.Passengers = append([]PassengerDetails(nil), s.Passengers...)
	if s.Payment != nil {
		p := *s.Payment
		c.Payment = &p
	}
	if s.Confirmation != nil {
		conf := *s.Confirmation
		conf.Offer = s.Confirmation.Offer.Clone()
		conf.Passengers = append([]PassengerDetails(nil), s.Confirmation.Passengers...)
		c.Confirmation = &conf
	}
	return &c
}
