package filter

import (
	"strings"
	"time"

	"github.com/dharmasatrya/farearbitrage/internal/models"
)

// Apply keeps the offers matching every set filter, preserving order.
func Apply(offers []models.Offer, filters *models.SearchFilters) []models.Offer {
	if filters == nil {
		return offers
	}

	result := make([]models.Offer, 0, len(offers))
	for _, o := range offers {
		if Matches(o, filters) {
			result = append(result, o)
		}
	}
	return result
}

func Matches(o models.Offer, filters *models.SearchFilters) bool {
	if filters == nil {
		return true
	}
	if filters.PriceMax != nil && o.TotalPrice > *filters.PriceMax {
		return false
	}

	if filters.MaxStops != nil && o.Stops() > *filters.MaxStops {
		return false
	}

	if len(filters.Airlines) > 0 {
		for _, s := range o.Segments {
			if !containsFold(filters.Airlines, s.Carrier) {
				return false
			}
		}
	}

	first, ok := firstOutbound(o)
	if !ok {
		return true
	}
	depTime := first.DepartureTime.Hour()*60 + first.DepartureTime.Minute()

	if filters.DepartureTimeMin != nil {
		minTime, err := parseTimeOfDay(*filters.DepartureTimeMin)
		if err == nil && depTime < minTime {
			return false
		}
	}
	if filters.DepartureTimeMax != nil {
		maxTime, err := parseTimeOfDay(*filters.DepartureTimeMax)
		if err == nil && depTime > maxTime {
			return false
		}
	}

	return true
}

// Validate rejects filter values that can never match.
func Validate(filters *models.SearchFilters) error {
	if filters == nil {
		return nil
	}
	if filters.PriceMax != nil && *filters.PriceMax < 0 {
		return models.ValidationError("filters.price_max must not be negative")
	}
	if filters.MaxStops != nil && *filters.MaxStops < 0 {
		return models.ValidationError("filters.max_stops must not be negative")
	}
	for _, v := range []*string{filters.DepartureTimeMin, filters.DepartureTimeMax} {
		if v == nil {
			continue
		}
		if _, err := parseTimeOfDay(*v); err != nil {
			return models.ValidationError("filters departure times must be HH:MM")
		}
	}
	return nil
}

func firstOutbound(o models.Offer) (models.Segment, bool) {
	for _, s := range o.Segments {
		if s.Leg == models.LegOutbound {
			return s, true
		}
	}
	if len(o.Segments) > 0 {
		return o.Segments[0], true
	}
	return models.Segment{}, false
}

func containsFold(list []string, v string) bool {
	for _, item := range list {
		if strings.EqualFold(strings.TrimSpace(item), v) {
			return true
		}
	}
	return false
}

func parseTimeOfDay(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}
