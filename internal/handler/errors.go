package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/dharmasatrya/farearbitrage/internal/booking"
	"github.com/dharmasatrya/farearbitrage/internal/models"
	"github.com/dharmasatrya/farearbitrage/internal/providers"
)

// statusFor maps an engine error to its HTTP status and wire code.
func statusFor(err error) (int, string) {
	var (
		bve *booking.ValidationError
		mve models.ValidationError
		nf  *booking.NotFoundError
		se  *booking.StateError
		am  *booking.AmountMismatchError
	)
	switch {
	case errors.As(err, &bve), errors.As(err, &mve):
		return http.StatusBadRequest, booking.CodeValidation
	case errors.As(err, &nf):
		return http.StatusNotFound, nf.Code
	case errors.As(err, &se):
		return http.StatusConflict, booking.CodeInvalidState
	case errors.As(err, &am):
		return http.StatusUnprocessableEntity, booking.CodeAmountMismatch
	case providers.IsRateLimited(err):
		return http.StatusTooManyRequests, "RATE_LIMITED"
	case errors.Is(err, providers.ErrNoResults):
		return http.StatusNotFound, "NO_RESULTS"
	case errors.Is(err, providers.ErrProviderUnavailable):
		return http.StatusBadGateway, "PROVIDER_UNAVAILABLE"
	default:
		return http.StatusInternalServerError, "INTERNAL_ERROR"
	}
}

type failure struct {
	Success bool                 `json:"success"`
	Error   string               `json:"error"`
	Message string               `json:"message"`
	Code    int                  `json:"code"`
	Errors  []booking.FieldError `json:"errors,omitempty"`
	State   string               `json:"state,omitempty"`
}

func writeError(c echo.Context, err error) error {
	status, code := statusFor(err)
	body := failure{
		Error:   code,
		Message: err.Error(),
		Code:    status,
	}

	var bve *booking.ValidationError
	var se *booking.StateError
	switch {
	case errors.As(err, &bve):
		body.Errors = bve.Errors
	case errors.As(err, &se):
		body.State = string(se.State)
	}
	return c.JSON(status, body)
}

func badRequest(c echo.Context, err error) error {
	return c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error:   "invalid_request",
		Message: "Failed to parse request body: " + err.Error(),
		Code:    http.StatusBadRequest,
	})
}
