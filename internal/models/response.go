package models

type SkippedStrategy struct {
	Strategy Strategy `json:"strategy"`
	Reason   string   `json:"reason"`
}

const (
	SkipReasonBudget     = "rate_budget_exhausted"
	SkipReasonNoBaseline = "no_standard_baseline"
	SkipReasonOneWay     = "one_way_search"
)

type SearchMetadata struct {
	TotalResults       int               `json:"total_results"`
	StrategiesExecuted []Strategy        `json:"strategies_executed"`
	StrategiesSkipped  []SkippedStrategy `json:"strategies_skipped,omitempty"`
	UpstreamCalls      int               `json:"upstream_calls"`
	CacheHits          int               `json:"cache_hits"`
	Errors             []string          `json:"errors,omitempty"`
	BudgetRemaining    int               `json:"budget_remaining"`
	SearchTimeMs       int64             `json:"search_time_ms"`
}

type PriceRange struct {
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Currency string  `json:"currency"`
}

type SearchCriteria struct {
	Origin        string         `json:"origin"`
	Destination   string         `json:"destination"`
	DepartureDate string         `json:"departure_date"`
	ReturnDate    *string        `json:"return_date,omitempty"`
	Adults        int            `json:"adults"`
	Children      int            `json:"children"`
	Infants       int            `json:"infants"`
	CabinClass    string         `json:"cabin_class"`
	Currency      string         `json:"currency"`
	Filters       *SearchFilters `json:"filters,omitempty"`
}

type SearchResult struct {
	SearchCriteria SearchCriteria `json:"search_criteria"`
	Standard       *Offer         `json:"standard"`
	Best           *Offer         `json:"best"`
	AllOptions     []Offer        `json:"all_options"`
	PriceRange     *PriceRange    `json:"price_range"`
	Metadata       SearchMetadata `json:"metadata"`
}

// Ran reports whether the strategy executed for this result.
func (m SearchMetadata) Ran(s Strategy) bool {
	for _, e := range m.StrategiesExecuted {
		if e == s {
			return true
		}
	}
	return false
}

func NewSearchCriteria(req SearchRequest) SearchCriteria {
	return SearchCriteria{
		Origin:        req.Origin,
		Destination:   req.Destination,
		DepartureDate: req.DepartureDate,
		ReturnDate:    req.ReturnDate,
		Adults:        req.Adults,
		Children:      req.Children,
		Infants:       req.Infants,
		CabinClass:    req.CabinClass,
		Currency:      req.Currency,
		Filters:       req.Filters,
	}
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
	Details any    `json:"details,omitempty"`
}
