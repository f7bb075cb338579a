package airports

import (
	"strings"
	"time"
	_ "time/tzdata"
)

type Airport struct {
	Code     string
	City     string
	Country  string
	Timezone string
}

var airports = map[string]Airport{
	// United Kingdom
	"LHR": {"LHR", "London", "GB", "Europe/London"},
	"LGW": {"LGW", "London", "GB", "Europe/London"},
	"STN": {"STN", "London", "GB", "Europe/London"},
	"LTN": {"LTN", "London", "GB", "Europe/London"},
	"LCY": {"LCY", "London", "GB", "Europe/London"},
	"MAN": {"MAN", "Manchester", "GB", "Europe/London"},
	"LPL": {"LPL", "Liverpool", "GB", "Europe/London"},
	"EDI": {"EDI", "Edinburgh", "GB", "Europe/London"},
	"GLA": {"GLA", "Glasgow", "GB", "Europe/London"},

	// France
	"CDG": {"CDG", "Paris", "FR", "Europe/Paris"},
	"ORY": {"ORY", "Paris", "FR", "Europe/Paris"},
	"BVA": {"BVA", "Paris", "FR", "Europe/Paris"},
	"NCE": {"NCE", "Nice", "FR", "Europe/Paris"},

	// Benelux / Germany / Spain / Italy
	"AMS": {"AMS", "Amsterdam", "NL", "Europe/Amsterdam"},
	"EIN": {"EIN", "Eindhoven", "NL", "Europe/Amsterdam"},
	"RTM": {"RTM", "Rotterdam", "NL", "Europe/Amsterdam"},
	"BRU": {"BRU", "Brussels", "BE", "Europe/Brussels"},
	"CRL": {"CRL", "Brussels", "BE", "Europe/Brussels"},
	"FRA": {"FRA", "Frankfurt", "DE", "Europe/Berlin"},
	"HHN": {"HHN", "Frankfurt", "DE", "Europe/Berlin"},
	"BER": {"BER", "Berlin", "DE", "Europe/Berlin"},
	"MAD": {"MAD", "Madrid", "ES", "Europe/Madrid"},
	"BCN": {"BCN", "Barcelona", "ES", "Europe/Madrid"},
	"GRO": {"GRO", "Barcelona", "ES", "Europe/Madrid"},
	"FCO": {"FCO", "Rome", "IT", "Europe/Rome"},
	"CIA": {"CIA", "Rome", "IT", "Europe/Rome"},
	"MXP": {"MXP", "Milan", "IT", "Europe/Rome"},
	"LIN": {"LIN", "Milan", "IT", "Europe/Rome"},
	"BGY": {"BGY", "Milan", "IT", "Europe/Rome"},

	// United States
	"JFK": {"JFK", "New York", "US", "America/New_York"},
	"LGA": {"LGA", "New York", "US", "America/New_York"},
	"EWR": {"EWR", "Newark", "US", "America/New_York"},
	"BOS": {"BOS", "Boston", "US", "America/New_York"},
	"LAX": {"LAX", "Los Angeles", "US", "America/Los_Angeles"},
	"BUR": {"BUR", "Burbank", "US", "America/Los_Angeles"},
	"LGB": {"LGB", "Long Beach", "US", "America/Los_Angeles"},
	"SNA": {"SNA", "Santa Ana", "US", "America/Los_Angeles"},
	"SFO": {"SFO", "San Francisco", "US", "America/Los_Angeles"},
	"OAK": {"OAK", "Oakland", "US", "America/Los_Angeles"},
	"SJC": {"SJC", "San Jose", "US", "America/Los_Angeles"},
	"ORD": {"ORD", "Chicago", "US", "America/Chicago"},
	"MDW": {"MDW", "Chicago", "US", "America/Chicago"},
	"MIA": {"MIA", "Miami", "US", "America/New_York"},
	"FLL": {"FLL", "Fort Lauderdale", "US", "America/New_York"},
	"IAD": {"IAD", "Washington", "US", "America/New_York"},
	"DCA": {"DCA", "Washington", "US", "America/New_York"},
	"BWI": {"BWI", "Baltimore", "US", "America/New_York"},

	// Asia
	"NRT": {"NRT", "Tokyo", "JP", "Asia/Tokyo"},
	"HND": {"HND", "Tokyo", "JP", "Asia/Tokyo"},
	"CGK": {"CGK", "Jakarta", "ID", "Asia/Jakarta"},
	"HLP": {"HLP", "Jakarta", "ID", "Asia/Jakarta"},
	"DPS": {"DPS", "Bali", "ID", "Asia/Makassar"},
	"SIN": {"SIN", "Singapore", "SG", "Asia/Singapore"},
	"KUL": {"KUL", "Kuala Lumpur", "MY", "Asia/Kuala_Lumpur"},
}

// nearby is a static proximity table: alternates within reasonable ground
// transport of the key airport, closest first.
var nearby = map[string][]string{
	"LHR": {"LGW", "STN", "LTN"},
	"LGW": {"LHR", "STN", "LCY"},
	"STN": {"LHR", "LGW", "LTN"},
	"LTN": {"LHR", "STN", "LGW"},
	"LCY": {"LHR", "LGW", "STN"},
	"MAN": {"LPL"},
	"LPL": {"MAN"},
	"EDI": {"GLA"},
	"GLA": {"EDI"},
	"CDG": {"ORY", "BVA"},
	"ORY": {"CDG", "BVA"},
	"BVA": {"CDG", "ORY"},
	"AMS": {"RTM", "EIN"},
	"BRU": {"CRL"},
	"CRL": {"BRU"},
	"FRA": {"HHN"},
	"BCN": {"GRO"},
	"FCO": {"CIA"},
	"CIA": {"FCO"},
	"MXP": {"LIN", "BGY"},
	"LIN": {"MXP", "BGY"},
	"JFK": {"EWR", "LGA"},
	"LGA": {"JFK", "EWR"},
	"EWR": {"JFK", "LGA"},
	"LAX": {"BUR", "LGB", "SNA"},
	"SFO": {"OAK", "SJC"},
	"OAK": {"SFO", "SJC"},
	"SJC": {"SFO", "OAK"},
	"ORD": {"MDW"},
	"MDW": {"ORD"},
	"MIA": {"FLL"},
	"FLL": {"MIA"},
	"IAD": {"DCA", "BWI"},
	"DCA": {"IAD", "BWI"},
	"BWI": {"DCA", "IAD"},
	"NRT": {"HND"},
	"HND": {"NRT"},
	"CGK": {"HLP"},
	"HLP": {"CGK"},
}

// MaxAlternates caps how many nearby airports are considered per side.
const MaxAlternates = 3

func Lookup(code string) (Airport, bool) {
	a, ok := airports[strings.ToUpper(code)]
	return a, ok
}

// Nearby returns up to MaxAlternates alternate airports for code.
func Nearby(code string) []string {
	alts := nearby[strings.ToUpper(code)]
	if len(alts) > MaxAlternates {
		alts = alts[:MaxAlternates]
	}
	return append([]string(nil), alts...)
}

func Country(code string) string {
	if a, ok := Lookup(code); ok {
		return a.Country
	}
	return ""
}

// IsInternational reports whether a trip crosses a border. Unknown airports
// are treated as international so that document checks are never skipped.
func IsInternational(origin, destination string) bool {
	o, d := Country(origin), Country(destination)
	if o == "" || d == "" {
		return true
	}
	return o != d
}

func City(code string) string {
	if a, ok := Lookup(code); ok {
		return a.City
	}
	return strings.ToUpper(code)
}

func LocationByAirport(code string) *time.Location {
	a, ok := Lookup(code)
	if !ok {
		return time.UTC
	}
	loc, err := time.LoadLocation(a.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func ParseTimeWithOffset(timeStr string, airportCode string) (time.Time, error) {
	formats := []string{
		time.RFC3339,
		"2006-01-02T15:04:05-0700",
		"2006-01-02T15:04:05Z",
	}

	for _, format := range formats {
		if t, err := time.Parse(format, timeStr); err == nil {
			return t, nil
		}
	}

	// Provider local times carry no offset; they are in the airport's zone.
	loc := LocationByAirport(airportCode)
	localFormats := []string{
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04",
	}
	for _, format := range localFormats {
		if t, err := time.ParseInLocation(format, timeStr, loc); err == nil {
			return t, nil
		}
	}

	return time.Time{}, &time.ParseError{
		Value:   timeStr,
		Message: "unable to parse time string",
	}
}

func ConvertToTimezone(t time.Time, airportCode string) time.Time {
	return t.In(LocationByAirport(airportCode))
}
