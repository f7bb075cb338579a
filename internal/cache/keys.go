package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"strings"

	"github.com/dharmasatrya/farearbitrage/internal/models"
)

// QuoteKey derives the cache key for one upstream query issued under a
// strategy label. The same query under two labels yields two keys.
func QuoteKey(strategy models.Strategy, q models.QuoteRequest) string {
	keyData := struct {
		Strategy      string
		Origin        string
		Destination   string
		DepartureDate string
		ReturnDate    string
		Adults        int
		Children      int
		Infants       int
		TravelClass   string
		Currency      string
		MaxResults    int
	}{
		Strategy:      string(strategy),
		Origin:        strings.ToUpper(q.Origin),
		Destination:   strings.ToUpper(q.Destination),
		DepartureDate: q.DepartureDate,
		ReturnDate:    q.ReturnDateValue(),
		Adults:        q.Adults,
		Children:      q.Children,
		Infants:       q.Infants,
		TravelClass:   strings.ToLower(q.TravelClass),
		Currency:      strings.ToUpper(q.CurrencyCode),
		MaxResults:    q.MaxResults,
	}

	data, _ := json.Marshal(keyData)
	hash := sha256.Sum256(data)
	return "quote:" + string(strategy) + ":" + hex.EncodeToString(hash[:])
}
