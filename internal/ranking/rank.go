package ranking

import (
	"sort"

	"github.com/dharmasatrya/farearbitrage/internal/models"
)

// Less orders offers by total price, then strategy priority, then id.
func Less(a, b models.Offer) bool {
	if a.TotalPrice != b.TotalPrice {
		return a.TotalPrice < b.TotalPrice
	}
	if pa, pb := a.Strategy.Priority(), b.Strategy.Priority(); pa != pb {
		return pa < pb
	}
	return a.ID < b.ID
}

// Sort orders offers in place and returns them.
func Sort(offers []models.Offer) []models.Offer {
	sort.SliceStable(offers, func(i, j int) bool {
		return Less(offers[i], offers[j])
	})
	return offers
}

// Cheapest returns the best-ranked offer without reordering the input.
func Cheapest(offers []models.Offer) (models.Offer, bool) {
	if len(offers) == 0 {
		return models.Offer{}, false
	}
	best := offers[0]
	for _, o := range offers[1:] {
		if Less(o, best) {
			best = o
		}
	}
	return best, true
}

func PriceRange(offers []models.Offer) *models.PriceRange {
	if len(offers) == 0 {
		return nil
	}
	pr := &models.PriceRange{
		Min:      offers[0].TotalPrice,
		Max:      offers[0].TotalPrice,
		Currency: offers[0].Currency,
	}
	for _, o := range offers[1:] {
		if o.TotalPrice < pr.Min {
			pr.Min = o.TotalPrice
		}
		if o.TotalPrice > pr.Max {
			pr.Max = o.TotalPrice
		}
	}
	return pr
}

// Dedupe drops offers whose id was already seen, keeping the first.
func Dedupe(offers []models.Offer) []models.Offer {
	seen := make(map[string]struct{}, len(offers))
	out := offers[:0]
	for _, o := range offers {
		if _, ok := seen[o.ID]; ok {
			continue
		}
		seen[o.ID] = struct{}{}
		out = append(out, o)
	}
	return out
}
