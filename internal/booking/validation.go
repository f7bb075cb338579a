package booking

import (
	"fmt"
	"net/mail"
	"regexp"
	"strings"
	"time"

	"github.com/dharmasatrya/farearbitrage/internal/airports"
	"github.com/dharmasatrya/farearbitrage/internal/models"
	"github.com/dharmasatrya/farearbitrage/pkg/currency"
)

var (
	phoneRe    = regexp.MustCompile(`^\+?[0-9][0-9 ()-]{5,18}[0-9]$`)
	countryRe  = regexp.MustCompile(`^[A-Za-z]{2,3}$`)
	passportRe = regexp.MustCompile(`^[A-Za-z0-9]{5,20}$`)
)

// validatePassengers checks every passenger against the trip and returns all
// problems found.
func validatePassengers(passengers []models.PassengerDetails, req models.SearchRequest, offer models.Offer, now time.Time) error {
	errs := &ValidationError{}

	if len(passengers) != req.Travelers() {
		errs.add("passengers", "expected %d passengers, got %d", req.Travelers(), len(passengers))
	}
	counts := map[models.PassengerType]int{}

	international := isInternational(offer, req)
	lastTravel := lastTravelDate(offer, req)

	for i, p := range passengers {
		field := func(name string) string { return fmt.Sprintf("passengers[%d].%s", i, name) }

		switch p.Type {
		case models.PassengerAdult, models.PassengerChild, models.PassengerInfant:
			counts[p.Type]++
		case "":
			counts[models.PassengerAdult]++
		default:
			errs.add(field("type"), "must be adult, child or infant")
		}

		if strings.TrimSpace(p.FirstName) == "" {
			errs.add(field("first_name"), "is required")
		}
		if strings.TrimSpace(p.LastName) == "" {
			errs.add(field("last_name"), "is required")
		}

		if p.DateOfBirth == "" {
			errs.add(field("date_of_birth"), "is required")
		} else if dob, err := time.Parse(models.DateLayout, p.DateOfBirth); err != nil {
			errs.add(field("date_of_birth"), "must be YYYY-MM-DD")
		} else if dob.After(now) {
			errs.add(field("date_of_birth"), "must not be in the future")
		}

		if !countryRe.MatchString(strings.TrimSpace(p.Nationality)) {
			errs.add(field("nationality"), "must be a 2 or 3 letter country code")
		}

		if international {
			if !passportRe.MatchString(strings.TrimSpace(p.PassportNumber)) {
				errs.add(field("passport_number"), "is required for international travel")
			}
			if p.PassportExpiry == "" {
				errs.add(field("passport_expiry"), "is required for international travel")
			} else if exp, err := time.Parse(models.DateLayout, p.PassportExpiry); err != nil {
				errs.add(field("passport_expiry"), "must be YYYY-MM-DD")
			} else if !exp.After(lastTravel) {
				errs.add(field("passport_expiry"), "must be after %s", lastTravel.Format(models.DateLayout))
			}
			if !countryRe.MatchString(strings.TrimSpace(p.PassportCountry)) {
				errs.add(field("passport_country"), "is required for international travel")
			}
		}

		if i == 0 {
			if p.Email == "" {
				errs.add(field("email"), "is required for the lead passenger")
			} else if _, err := mail.ParseAddress(p.Email); err != nil {
				errs.add(field("email"), "is not a valid address")
			}
			if p.Phone == "" {
				errs.add(field("phone"), "is required for the lead passenger")
			} else if !phoneRe.MatchString(p.Phone) {
				errs.add(field("phone"), "is not a valid phone number")
			}
		}
	}

	if len(passengers) == req.Travelers() {
		if counts[models.PassengerAdult] != req.Adults || counts[models.PassengerChild] != req.Children || counts[models.PassengerInfant] != req.Infants {
			errs.add("passengers", "expected %d adults, %d children and %d infants", req.Adults, req.Children, req.Infants)
		}
	}
	if len(passengers) > 0 && passengers[0].Type == models.PassengerInfant {
		errs.add("passengers[0].type", "lead passenger cannot be an infant")
	}

	return errs.orNil()
}

// validatePayment compares the amount first so a wrong amount is always
// reported as a mismatch. An amount with a fraction of a cent never matches.
func validatePayment(p models.PaymentDetails, offer models.Offer) error {
	if !currency.IsWholeCents(p.Amount) || currency.Cents(p.Amount) != currency.Cents(offer.TotalPrice) {
		return &AmountMismatchError{Expected: offer.TotalPrice, Got: p.Amount, Currency: offer.Currency}
	}

	errs := &ValidationError{}
	if !models.IsValidPaymentMethod(p.Method) {
		errs.add("method", "must be one of credit_card, debit_card, paypal, bank_transfer")
	}
	if p.Currency != "" && !strings.EqualFold(p.Currency, offer.Currency) {
		errs.add("currency", "must be %s", offer.Currency)
	}
	return errs.orNil()
}

func isInternational(offer models.Offer, req models.SearchRequest) bool {
	if len(offer.Segments) == 0 {
		return airports.IsInternational(req.Origin, req.Destination)
	}
	for _, s := range offer.Segments {
		if airports.IsInternational(s.Origin, s.Destination) {
			return true
		}
	}
	return false
}

func lastTravelDate(offer models.Offer, req models.SearchRequest) time.Time {
	var last time.Time
	for _, s := range offer.Segments {
		if s.DepartureTime.After(last) {
			last = s.DepartureTime
		}
	}
	if !last.IsZero() {
		return time.Date(last.Year(), last.Month(), last.Day(), 0, 0, 0, 0, time.UTC)
	}
	date := req.DepartureDate
	if req.IsRoundTrip() {
		date = *req.ReturnDate
	}
	t, _ := time.Parse(models.DateLayout, date)
	return t
}
