package eligibility

import (
	"strings"

	"outreach-crm/internal/contacts"
)

// TimezoneGroup is the coarse calling window a contact falls into.
type TimezoneGroup string

const (
	TimezoneEastern  TimezoneGroup = "eastern"
	TimezoneCentral  TimezoneGroup = "central"
	TimezoneMountain TimezoneGroup = "mountain"
	TimezonePacific  TimezoneGroup = "pacific"
	TimezoneAlaska   TimezoneGroup = "alaska"
	TimezoneHawaii   TimezoneGroup = "hawaii"
	TimezoneIntl     TimezoneGroup = "international"
	TimezoneUnknown  TimezoneGroup = "unknown"
)

var timezoneGroups = []TimezoneGroup{
	TimezoneEastern, TimezoneCentral, TimezoneMountain, TimezonePacific,
	TimezoneAlaska, TimezoneHawaii, TimezoneIntl, TimezoneUnknown,
}

func (g TimezoneGroup) Valid() bool {
	for _, v := range timezoneGroups {
		if g == v {
			return true
		}
	}
	return false
}

// US states by postal code. Split states are placed by population majority.
var stateGroups = map[string]TimezoneGroup{
	"CT": TimezoneEastern, "DE": TimezoneEastern, "DC": TimezoneEastern, "FL": TimezoneEastern,
	"GA": TimezoneEastern, "IN": TimezoneEastern, "KY": TimezoneEastern, "ME": TimezoneEastern,
	"MD": TimezoneEastern, "MA": TimezoneEastern, "MI": TimezoneEastern, "NH": TimezoneEastern,
	"NJ": TimezoneEastern, "NY": TimezoneEastern, "NC": TimezoneEastern, "OH": TimezoneEastern,
	"PA": TimezoneEastern, "RI": TimezoneEastern, "SC": TimezoneEastern, "VT": TimezoneEastern,
	"VA": TimezoneEastern, "WV": TimezoneEastern,

	"AL": TimezoneCentral, "AR": TimezoneCentral, "IL": TimezoneCentral, "IA": TimezoneCentral,
	"KS": TimezoneCentral, "LA": TimezoneCentral, "MN": TimezoneCentral, "MS": TimezoneCentral,
	"MO": TimezoneCentral, "NE": TimezoneCentral, "ND": TimezoneCentral, "OK": TimezoneCentral,
	"SD": TimezoneCentral, "TN": TimezoneCentral, "TX": TimezoneCentral, "WI": TimezoneCentral,

	"AZ": TimezoneMountain, "CO": TimezoneMountain, "ID": TimezoneMountain, "MT": TimezoneMountain,
	"NM": TimezoneMountain, "UT": TimezoneMountain, "WY": TimezoneMountain,

	"CA": TimezonePacific, "NV": TimezonePacific, "OR": TimezonePacific, "WA": TimezonePacific,

	"AK": TimezoneAlaska,
	"HI": TimezoneHawaii,
}

var stateNames = map[string]string{
	"alabama": "AL", "alaska": "AK", "arizona": "AZ", "arkansas": "AR", "california": "CA",
	"colorado": "CO", "connecticut": "CT", "delaware": "DE", "district of columbia": "DC",
	"florida": "FL", "georgia": "GA", "hawaii": "HI", "idaho": "ID", "illinois": "IL",
	"indiana": "IN", "iowa": "IA", "kansas": "KS", "kentucky": "KY", "louisiana": "LA",
	"maine": "ME", "maryland": "MD", "massachusetts": "MA", "michigan": "MI", "minnesota": "MN",
	"mississippi": "MS", "missouri": "MO", "montana": "MT", "nebraska": "NE", "nevada": "NV",
	"new hampshire": "NH", "new jersey": "NJ", "new mexico": "NM", "new york": "NY",
	"north carolina": "NC", "north dakota": "ND", "ohio": "OH", "oklahoma": "OK", "oregon": "OR",
	"pennsylvania": "PA", "rhode island": "RI", "south carolina": "SC", "south dakota": "SD",
	"tennessee": "TN", "texas": "TX", "utah": "UT", "vermont": "VT", "virginia": "VA",
	"washington": "WA", "west virginia": "WV", "wisconsin": "WI", "wyoming": "WY",
}

// IANA zone prefixes used by company timezones.
var ianaGroups = map[string]TimezoneGroup{
	"America/New_York":     TimezoneEastern,
	"America/Detroit":      TimezoneEastern,
	"America/Indiana":      TimezoneEastern,
	"America/Kentucky":     TimezoneEastern,
	"America/Chicago":      TimezoneCentral,
	"America/Menominee":    TimezoneCentral,
	"America/North_Dakota": TimezoneCentral,
	"America/Denver":       TimezoneMountain,
	"America/Boise":        TimezoneMountain,
	"America/Phoenix":      TimezoneMountain,
	"America/Los_Angeles":  TimezonePacific,
	"America/Anchorage":    TimezoneAlaska,
	"America/Juneau":       TimezoneAlaska,
	"America/Sitka":        TimezoneAlaska,
	"America/Nome":         TimezoneAlaska,
	"Pacific/Honolulu":     TimezoneHawaii,
	"US/Eastern":           TimezoneEastern,
	"US/Central":           TimezoneCentral,
	"US/Mountain":          TimezoneMountain,
	"US/Pacific":           TimezonePacific,
	"US/Alaska":            TimezoneAlaska,
	"US/Hawaii":            TimezoneHawaii,
}

// ResolveTimezone derives a contact's group from its state/country, falling
// back to the company timezone when the contact has no state.
func ResolveTimezone(c contacts.Contact, companyTimezone string) TimezoneGroup {
	if !isUS(c.Country) {
		return TimezoneIntl
	}
	if c.State != "" {
		if g, ok := stateGroup(c.State); ok {
			return g
		}
		return TimezoneUnknown
	}
	if companyTimezone != "" {
		return ZoneGroup(companyTimezone)
	}
	return TimezoneUnknown
}

// ZoneGroup maps an IANA name (or a group name) to a group.
func ZoneGroup(zone string) TimezoneGroup {
	zone = strings.TrimSpace(zone)
	if g := TimezoneGroup(strings.ToLower(zone)); g.Valid() {
		return g
	}
	for prefix, g := range ianaGroups {
		if zone == prefix || strings.HasPrefix(zone, prefix+"/") {
			return g
		}
	}
	if zone != "" && !strings.HasPrefix(zone, "America/") && !strings.HasPrefix(zone, "US/") {
		return TimezoneIntl
	}
	return TimezoneUnknown
}

func stateGroup(state string) (TimezoneGroup, bool) {
	s := strings.TrimSpace(state)
	code := strings.ToUpper(s)
	if len(code) != 2 {
		code = stateNames[strings.ToLower(s)]
	}
	g, ok := stateGroups[code]
	return g, ok
}

func isUS(country string) bool {
	switch strings.ToLower(strings.TrimSpace(country)) {
	case "", "us", "usa", "u.s.", "u.s.a.", "united states", "united states of america":
		return true
	default:
		return false
	}
}
