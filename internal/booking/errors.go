package booking

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dharmasatrya/farearbitrage/internal/models"
)

const (
	CodeSessionNotFound = "SESSION_NOT_FOUND"
	CodeFlightNotFound  = "FLIGHT_NOT_FOUND"
	CodeAmountMismatch  = "PAYMENT_AMOUNT_MISMATCH"
	CodeInvalidState    = "INVALID_STATE"
	CodeValidation      = "VALIDATION_ERROR"
)

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ValidationError carries every offending field, not just the first.
type ValidationError struct {
	Errors []FieldError
}

func (e *ValidationError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, fe := range e.Errors {
		msgs[i] = fe.Field + ": " + fe.Message
	}
	return "validation failed: " + strings.Join(msgs, "; ")
}

func (e *ValidationError) add(field, format string, args ...any) {
	e.Errors = append(e.Errors, FieldError{Field: field, Message: fmt.Sprintf(format, args...)})
}

func (e *ValidationError) orNil() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e
}

// StateError rejects an operation attempted from the wrong booking state.
type StateError struct {
	Operation string
	State     models.BookingStatus
	Reason    string
}

func (e *StateError) Error() string {
	msg := fmt.Sprintf("cannot %s while booking is %s", e.Operation, e.State)
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	return msg
}

type NotFoundError struct {
	Code string
	ID   string
}

func (e *NotFoundError) Error() string {
	switch e.Code {
	case CodeFlightNotFound:
		return fmt.Sprintf("flight %q is not among the search results", e.ID)
	default:
		return fmt.Sprintf("booking session %q not found", e.ID)
	}
}

type AmountMismatchError struct {
	Expected float64
	Got      float64
	Currency string
}

func (e *AmountMismatchError) Error() string {
	return fmt.Sprintf("payment amount %.2f does not match the fare total %.2f %s", e.Got, e.Expected, e.Currency)
}

func sessionNotFound(id string) error {
	return &NotFoundError{Code: CodeSessionNotFound, ID: id}
}

// Code maps err to its wire code, or "" for errors outside the booking
// taxonomy.
func Code(err error) string {
	var (
		ve *ValidationError
		se *StateError
		nf *NotFoundError
		am *AmountMismatchError
		mv models.ValidationError
	)
	switch {
	case errors.As(err, &am):
		return CodeAmountMismatch
	case errors.As(err, &nf):
		return nf.Code
	case errors.As(err, &se):
		return CodeInvalidState
	case errors.As(err, &ve), errors.As(err, &mv):
		return CodeValidation
	}
	return ""
}
