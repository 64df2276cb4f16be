// Package slug builds URL-safe identifiers from Turkish place names.
package slug

import (
	"regexp"
	"strings"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
)

var turkish = map[rune]rune{
	'ç': 'c', 'ğ': 'g', 'ı': 'i', 'ö': 'o', 'ş': 's', 'ü': 'u',
	'Ç': 'c', 'Ğ': 'g', 'İ': 'i', 'I': 'i', 'Ö': 'o', 'Ş': 's', 'Ü': 'u',
}

var (
	foldTurkish = runes.Map(func(r rune) rune {
		if m, ok := turkish[r]; ok {
			return m
		}
		return r
	})
	nonAlnum = regexp.MustCompile(`[^a-z0-9]+`)
)

// Make converts input into a lowercase, hyphen separated slug. The result is
// empty or matches ^[a-z0-9]+(-[a-z0-9]+)*$, and Make(Make(x)) == Make(x).
func Make(input string) string {
	s, _, err := transform.String(foldTurkish, input)
	if err != nil {
		s = input
	}
	s = strings.ToLower(s)
	s = nonAlnum.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// CityID is the catalog id of a city imported by name.
func CityID(cityName string) string {
	return "city-" + Make(cityName)
}

// DistrictID is the catalog id of a district imported by name.
func DistrictID(cityName, districtName string) string {
	return "district-" + Make(cityName) + "-" + Make(districtName)
}
