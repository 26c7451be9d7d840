package geotime

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/teranos/facts/errors"
)

// Offset is a signed distance from UTC in minutes.
type Offset int

// UTC is the zero offset.
const UTC Offset = 0

// ParseOffset reads offsets as written in infoboxes and APIs: "+05:45",
// "UTC+2", "GMT−3:30", "-0100", "UTC". The Unicode minus sign is accepted.
// The boolean is false when text is not an offset.
func ParseOffset(text string) (Offset, bool) {
	s := strings.TrimSpace(text)
	s = strings.ReplaceAll(s, "−", "-")
	s = strings.ReplaceAll(s, "±", "+")
	upper := strings.ToUpper(s)
	for _, prefix := range []string{"UTC", "GMT"} {
		if strings.HasPrefix(upper, prefix) {
			s = strings.TrimSpace(s[len(prefix):])
			if s == "" {
				return UTC, true
			}
			break
		}
	}
	if s == "" {
		return 0, false
	}

	sign := 1
	switch s[0] {
	case '+':
	case '-':
		sign = -1
	default:
		return 0, false
	}
	s = s[1:]

	var hours, minutes string
	switch {
	case strings.Contains(s, ":"):
		hours, minutes, _ = strings.Cut(s, ":")
	case len(s) == 4:
		hours, minutes = s[:2], s[2:]
	default:
		hours, minutes = s, "0"
	}

	h, err := strconv.Atoi(hours)
	if err != nil || h < 0 || h > 14 || len(hours) > 2 {
		return 0, false
	}
	m, err := strconv.Atoi(minutes)
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	return Offset(sign * (h*60 + m)), true
}

// OffsetFromZone returns the offset a zone ("Europe/Kyiv", "CET", "Kyiv")
// observes at instant t.
func OffsetFromZone(zone string, t time.Time) (Offset, error) {
	name, err := NormalizeTimezone(zone)
	if err != nil {
		return 0, err
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		return 0, errors.Wrapf(err, "loading zone %s", name)
	}
	_, seconds := t.In(loc).Zone()
	return Offset(seconds / 60), nil
}

// Minutes returns the offset as a plain number of minutes.
func (o Offset) Minutes() int {
	return int(o)
}

// Duration returns the offset as a time.Duration.
func (o Offset) Duration() time.Duration {
	return time.Duration(o) * time.Minute
}

// String renders "UTC", "UTC+05:45" or "UTC-03:00".
func (o Offset) String() string {
	if o == 0 {
		return "UTC"
	}
	sign := '+'
	m := int(o)
	if m < 0 {
		sign = '-'
		m = -m
	}
	return fmt.Sprintf("UTC%c%02d:%02d", sign, m/60, m%60)
}

// Location returns a fixed zone for the offset.
func (o Offset) Location() *time.Location {
	return time.FixedZone(o.String(), int(o)*60)
}

// Convert returns t as observed at the offset.
func (o Offset) Convert(t time.Time) time.Time {
	return t.In(o.Location())
}

// Now returns clock() at the offset. A nil clock means time.Now.
func (o Offset) Now(clock func() time.Time) time.Time {
	if clock == nil {
		clock = time.Now
	}
	return o.Convert(clock())
}

// Compare returns -1, 0 or +1 as o is west of, equal to or east of p.
func (o Offset) Compare(p Offset) int {
	switch {
	case o < p:
		return -1
	case o > p:
		return 1
	default:
		return 0
	}
}
