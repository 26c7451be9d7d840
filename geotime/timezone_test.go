package geotime

import "testing"

func TestNormalizeTimezone(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"Europe/Amsterdam", "Europe/Amsterdam"},
		{"europe/berlin", "Europe/Berlin"},
		{"america/new_york", "America/New_York"},
		{"NPT", "Asia/Kathmandu"},
		{"PST", "America/Los_Angeles"},
		{"Kyiv", "Europe/Kyiv"},
		{"Mexico City", "America/Mexico_City"},
		{"NP", "Asia/Kathmandu"},
		// valid IANA names with lowercase connectives stay as they are
		{"America/Port_of_Spain", "America/Port_of_Spain"},
		{"Europe/Isle_of_Man", "Europe/Isle_of_Man"},
		{"america/port_of_spain", "America/Port_of_Spain"},
	}

	for _, tc := range tests {
		actual, err := NormalizeTimezone(tc.input)
		if err != nil {
			t.Fatalf("expected timezone for %q, got error: %v", tc.input, err)
		}
		if actual != tc.expected {
			t.Fatalf("expected %s for input %q, got %s", tc.expected, tc.input, actual)
		}
	}
}

func TestNormalizeTimezoneRejects(t *testing.T) {
	for _, input := range []string{"", "   ", "Atlantis"} {
		if tz, err := NormalizeTimezone(input); err == nil {
			t.Fatalf("expected error for %q, got %s", input, tz)
		}
	}
}

func TestGuessTimezoneHelpers(t *testing.T) {
	if tz := GuessTimezoneFromPlace("Capital of Ukraine, Kyiv"); tz != "Europe/Kyiv" {
		t.Fatalf("expected Kyiv to map to Europe/Kyiv, got %s", tz)
	}

	if tz := GuessTimezoneFromPlace("Mexico City metropolitan area"); tz != "America/Mexico_City" {
		t.Fatalf("expected Mexico City to map to America/Mexico_City, got %s", tz)
	}

	if tz := GuessTimezoneFromCountryCode(" UA "); tz != "Europe/Kyiv" {
		t.Fatalf("expected UA to map to Europe/Kyiv, got %s", tz)
	}

	if tz := GuessTimezoneFromCountryCode("zz"); tz != "" {
		t.Fatalf("expected unknown country code to map to nothing, got %s", tz)
	}
}
