package providers

import (
	"context"
	"errors"

	"github.com/dharmasatrya/farearbitrage/internal/models"
)

// Provider is an upstream flight-offer source. A nil error with no offers is
// an empty result, not a failure.
type Provider interface {
	Name() string
	Search(ctx context.Context, req models.QuoteRequest) ([]models.Offer, error)
}

var (
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrRateLimited         = errors.New("rate limited")
	ErrNoResults           = errors.New("no results")
)

type ProviderError struct {
	Provider string
	Err      error
}

func (e *ProviderError) Error() string {
	return e.Provider + ": " + e.Err.Error()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func NewProviderError(provider string, err error) *ProviderError {
	return &ProviderError{
		Provider: provider,
		Err:      err,
	}
}

// IsRateLimited reports whether err came from a client-side budget refusal or
// a provider 429.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}
