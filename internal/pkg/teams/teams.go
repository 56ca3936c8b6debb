// Package teams maps between roster-file club abbreviations, feed team
// names, and the canonical full names used for matching.
package teams

import "strings"

// abbreviations maps roster abbreviations to canonical full names.
var abbreviations = map[string]string{
	"ARS": "Arsenal",
	"AVL": "Aston Villa",
	"BOU": "Bournemouth",
	"BRF": "Brentford",
	"BHA": "Brighton",
	"CHE": "Chelsea",
	"CRY": "Crystal Palace",
	"EVE": "Everton",
	"FUL": "Fulham",
	"IPS": "Ipswich Town",
	"LEE": "Leeds United",
	"LEI": "Leicester City",
	"LIV": "Liverpool",
	"MCI": "Manchester City",
	"MUN": "Manchester United",
	"NEW": "Newcastle United",
	"NOT": "Nottingham Forest",
	"SOU": "Southampton",
	"SUN": "Sunderland",
	"TOT": "Tottenham",
	"WHU": "West Ham United",
	"WOL": "Wolverhampton Wanderers",
}

// variants maps names seen in other data sources to canonical full names.
var variants = map[string]string{
	"Brighton & Hove Albion":   "Brighton",
	"Brighton and Hove Albion": "Brighton",
	"Tottenham Hotspur":        "Tottenham",
	"Spurs":                    "Tottenham",
	"Man United":               "Manchester United",
	"Man City":                 "Manchester City",
	"Newcastle":                "Newcastle United",
	"West Ham":                 "West Ham United",
	"Wolves":                   "Wolverhampton Wanderers",
	"Nottm Forest":             "Nottingham Forest",
}

// FullName resolves a roster abbreviation to the canonical full name. Unknown
// abbreviations pass through unchanged.
func FullName(abbreviation string) string {
	if abbreviation == "" {
		return abbreviation
	}
	if name, ok := abbreviations[strings.ToUpper(abbreviation)]; ok {
		return name
	}
	return abbreviation
}

// Abbreviation resolves a full or variant team name back to the roster
// abbreviation. Unknown names pass through unchanged.
func Abbreviation(fullName string) string {
	if fullName == "" {
		return fullName
	}
	canonical := Normalize(fullName)
	for abbr, name := range abbreviations {
		if strings.EqualFold(name, canonical) {
			return abbr
		}
	}
	return fullName
}

// Normalize maps any known variant or abbreviation to the canonical full
// name; anything unrecognized passes through unchanged.
func Normalize(name string) string {
	if name == "" {
		return name
	}
	if canonical, ok := variants[name]; ok {
		return canonical
	}
	if full := FullName(name); full != name {
		return full
	}
	return name
}
