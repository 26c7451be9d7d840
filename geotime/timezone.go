// Package geotime holds the place and time value types that arrive from
// geographic sources: UTC offsets, coordinates and IANA zone names.
package geotime

import (
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/teranos/facts/errors"
)

// placeZones maps place names that show up in infobox "timezone" fields to
// IANA zones. Ordered: longer names first so "mexico city" wins over "mexico".
var placeZones = []struct {
	keyword string
	zone    string
}{
	{"buenos aires", "America/Argentina/Buenos_Aires"},
	{"mexico city", "America/Mexico_City"},
	{"new york", "America/New_York"},
	{"los angeles", "America/Los_Angeles"},
	{"san francisco", "America/Los_Angeles"},
	{"sao paulo", "America/Sao_Paulo"},
	{"hong kong", "Asia/Hong_Kong"},
	{"united kingdom", "Europe/London"},
	{"united states", "America/New_York"},
	{"amsterdam", "Europe/Amsterdam"},
	{"netherlands", "Europe/Amsterdam"},
	{"berlin", "Europe/Berlin"},
	{"germany", "Europe/Berlin"},
	{"london", "Europe/London"},
	{"england", "Europe/London"},
	{"paris", "Europe/Paris"},
	{"france", "Europe/Paris"},
	{"madrid", "Europe/Madrid"},
	{"spain", "Europe/Madrid"},
	{"rome", "Europe/Rome"},
	{"italy", "Europe/Rome"},
	{"kyiv", "Europe/Kyiv"},
	{"kiev", "Europe/Kyiv"},
	{"ukraine", "Europe/Kyiv"},
	{"warsaw", "Europe/Warsaw"},
	{"poland", "Europe/Warsaw"},
	{"moscow", "Europe/Moscow"},
	{"istanbul", "Europe/Istanbul"},
	{"dubai", "Asia/Dubai"},
	{"delhi", "Asia/Kolkata"},
	{"mumbai", "Asia/Kolkata"},
	{"india", "Asia/Kolkata"},
	{"kathmandu", "Asia/Kathmandu"},
	{"nepal", "Asia/Kathmandu"},
	{"singapore", "Asia/Singapore"},
	{"tokyo", "Asia/Tokyo"},
	{"japan", "Asia/Tokyo"},
	{"sydney", "Australia/Sydney"},
	{"australia", "Australia/Sydney"},
	{"toronto", "America/Toronto"},
	{"canada", "America/Toronto"},
	{"mexico", "America/Mexico_City"},
	{"brazil", "America/Sao_Paulo"},
}

var countryCodeZones = map[string]string{
	"nl": "Europe/Amsterdam",
	"de": "Europe/Berlin",
	"fr": "Europe/Paris",
	"it": "Europe/Rome",
	"es": "Europe/Madrid",
	"gb": "Europe/London",
	"uk": "Europe/London",
	"ua": "Europe/Kyiv",
	"pl": "Europe/Warsaw",
	"ru": "Europe/Moscow",
	"tr": "Europe/Istanbul",
	"us": "America/New_York",
	"ca": "America/Toronto",
	"mx": "America/Mexico_City",
	"br": "America/Sao_Paulo",
	"ar": "America/Argentina/Buenos_Aires",
	"au": "Australia/Sydney",
	"np": "Asia/Kathmandu",
	"in": "Asia/Kolkata",
	"jp": "Asia/Tokyo",
	"sg": "Asia/Singapore",
	"ae": "Asia/Dubai",
}

var abbreviationZones = map[string]string{
	"pst":  "America/Los_Angeles",
	"pdt":  "America/Los_Angeles",
	"est":  "America/New_York",
	"edt":  "America/New_York",
	"cst":  "America/Chicago",
	"cdt":  "America/Chicago",
	"mst":  "America/Denver",
	"mdt":  "America/Denver",
	"gmt":  "Europe/London",
	"bst":  "Europe/London",
	"cet":  "Europe/Berlin",
	"cest": "Europe/Berlin",
	"eet":  "Europe/Kyiv",
	"eest": "Europe/Kyiv",
	"msk":  "Europe/Moscow",
	"ist":  "Asia/Kolkata",
	"npt":  "Asia/Kathmandu",
	"jst":  "Asia/Tokyo",
	"aest": "Australia/Sydney",
}

// NormalizeTimezone resolves free-form input ("europe/berlin", "CET",
// "Kyiv") into a valid IANA zone name.
func NormalizeTimezone(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	if trimmed == "" {
		return "", errors.New("timezone cannot be empty")
	}

	if isValidTimezone(trimmed) {
		if needsRecasing(trimmed) {
			if candidate := sanitizeTimezone(trimmed); isValidTimezone(candidate) {
				return candidate, nil
			}
		}
		return trimmed, nil
	}

	if candidate := sanitizeTimezone(trimmed); isValidTimezone(candidate) {
		return candidate, nil
	}

	lower := strings.ToLower(trimmed)
	if tz, ok := abbreviationZones[lower]; ok {
		return tz, nil
	}
	if tz := GuessTimezoneFromPlace(lower); tz != "" {
		return tz, nil
	}
	if tz := GuessTimezoneFromCountryCode(lower); tz != "" {
		return tz, nil
	}

	return "", errors.Newf("unknown timezone: %s", input)
}

// GuessTimezoneFromPlace finds the first known place name contained in text.
func GuessTimezoneFromPlace(text string) string {
	lower := strings.ToLower(strings.TrimSpace(text))
	for _, p := range placeZones {
		if strings.Contains(lower, p.keyword) {
			return p.zone
		}
	}
	return ""
}

// GuessTimezoneFromCountryCode maps two-letter country codes to a zone.
func GuessTimezoneFromCountryCode(code string) string {
	return countryCodeZones[strings.ToLower(strings.TrimSpace(code))]
}

func sanitizeTimezone(tz string) string {
	trimmed := strings.Trim(strings.TrimSpace(tz), "\"'")
	trimmed = strings.ReplaceAll(trimmed, " ", "_")
	parts := strings.Split(trimmed, "/")
	for i, part := range parts {
		parts[i] = title(part)
	}
	return strings.Join(parts, "/")
}

// title upper-cases the first letter of every "_"-separated word, leaving
// short lowercase connectives ("of") alone.
func title(s string) string {
	words := strings.Split(strings.ToLower(s), "_")
	for i, w := range words {
		if w == "" || (i > 0 && (w == "of" || w == "de" || w == "es")) {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, "_")
}

// needsRecasing reports whether a loadable zone name is not in canonical
// case, e.g. "america/new_york".
func needsRecasing(tz string) bool {
	for _, part := range strings.Split(tz, "/") {
		if part != "" && part[0] >= 'a' && part[0] <= 'z' {
			return true
		}
	}
	return false
}

func isValidTimezone(tz string) bool {
	if tz == "" {
		return false
	}
	_, err := time.LoadLocation(tz)
	return err == nil
}
