// Package scalar turns free-form text from infoboxes and APIs into typed
// scalars: int64, float64, time.Time dates, measure.Measure and
// geotime.Offset. Text nothing recognises is returned unchanged.
package scalar

import (
	"strconv"
	"strings"
	"time"

	"github.com/teranos/facts/errors"
	"github.com/teranos/facts/geotime"
	"github.com/teranos/facts/measure"
)

var (
	dollar  = measure.MustParseUnit("$")
	minute  = measure.MustParseUnit("min")
	percent = measure.MustParseUnit("%")
)

// Parser holds the label tables. It has no mutable state and is safe for
// concurrent use.
type Parser struct {
	rules  []LabelRule
	hints  []UnitHint
	scales map[string]int
}

// NewParser builds a parser over the given ordered tables.
func NewParser(rules []LabelRule, hints []UnitHint) *Parser {
	return &Parser{rules: rules, hints: hints, scales: scaleExponents}
}

// Default uses DefaultLabelRules and DefaultUnitHints.
var Default = NewParser(DefaultLabelRules, DefaultUnitHints)

// Parse runs Default.Parse.
func Parse(text, label string) (any, error) {
	return Default.Parse(text, label)
}

// Parse converts text to a typed value. label is the field name the text
// was found under and may be empty.
//
// A matching label rule takes precedence over the generic patterns. For
// offsets that can mean a nil result. Numbers parsed for a label matching a
// unit hint come back as a Measure in that unit. Unrecognised text is
// returned as the original string.
//
// The only error is an assertion failure for internal table drift.
func (p *Parser) Parse(text, label string) (any, error) {
	if label != "" {
		for _, r := range p.rules {
			if !r.Pattern.MatchString(label) {
				continue
			}
			if v, ok := parseLabelled(r.Kind, text); ok {
				return v, nil
			}
			break
		}
	}

	v, err := p.parseGeneric(text)
	if err != nil {
		return nil, err
	}

	if label != "" {
		if amount, ok := asFloat(v); ok {
			for _, h := range p.hints {
				if h.Matches(label) {
					return measure.New(amount, h.Unit), nil
				}
			}
		}
	}
	return v, nil
}

func parseLabelled(kind LabelKind, text string) (any, bool) {
	switch kind {
	case LabelOffset:
		return parseOffsets(text), true
	case LabelRank:
		m := ordinal.FindStringSubmatch(strings.TrimSpace(text))
		if m == nil {
			return nil, false
		}
		n, err := strconv.ParseInt(m[1], 10, 64)
		if err != nil {
			return nil, false
		}
		return n, true
	default:
		return nil, false
	}
}

// parseOffsets returns one Offset, a slice for "/"-separated zones, or nil
// when any part fails.
func parseOffsets(text string) any {
	parts := strings.Split(text, "/")
	out := make([]geotime.Offset, 0, len(parts))
	for _, part := range parts {
		o, ok := geotime.ParseOffset(part)
		if !ok {
			return nil
		}
		out = append(out, o)
	}
	if len(out) == 1 {
		return out[0]
	}
	return out
}

func (p *Parser) parseGeneric(raw string) (any, error) {
	s := strings.ReplaceAll(strings.TrimSpace(raw), "−", "-")

	if d, ok := parseDate(s); ok {
		return d, nil
	}

	if plainInteger.MatchString(s) {
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return n, nil
		}
	}

	if plainDecimal.MatchString(s) {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return f, nil
		}
	}

	if groupedInt.MatchString(s) {
		if n, err := strconv.ParseInt(strings.ReplaceAll(s, ",", ""), 10, 64); err == nil {
			return n, nil
		}
	}

	if m := dollars.FindStringSubmatch(s); m != nil {
		if f, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64); err == nil {
			return measure.New(f, dollar), nil
		}
	}

	if m := scaledDollars.FindStringSubmatch(s); m != nil {
		exp, ok := p.scales[strings.ToLower(m[2])]
		if !ok {
			return nil, errors.AssertionFailedf("scale word %q matched but has no exponent", m[2])
		}
		// Parsing "964.279e9" keeps the decimal amount exact.
		f, err := strconv.ParseFloat(m[1]+"e"+strconv.Itoa(exp), 64)
		if err == nil {
			return measure.New(f, dollar), nil
		}
	}

	if m := minutes.FindStringSubmatch(s); m != nil {
		if f, err := strconv.ParseFloat(m[1], 64); err == nil {
			return measure.New(f, minute), nil
		}
	}

	if m := percentage.FindStringSubmatch(s); m != nil {
		if f, err := strconv.ParseFloat(m[1], 64); err == nil {
			return measure.New(f, percent), nil
		}
	}

	return raw, nil
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func parseDate(s string) (time.Time, bool) {
	if m := dayMonthYear.FindStringSubmatch(s); m != nil {
		return buildDate(m[3], m[2], m[1], m[4])
	}
	if m := monthDayYear.FindStringSubmatch(s); m != nil {
		return buildDate(m[3], m[1], m[2], m[4])
	}
	if m := isoDate.FindStringSubmatch(s); m != nil {
		y, _ := strconv.Atoi(m[1])
		mo, _ := strconv.Atoi(m[2])
		d, _ := strconv.Atoi(m[3])
		return validDate(y, time.Month(mo), d)
	}
	return time.Time{}, false
}

// buildDate assembles a date from regexp captures. Years before the common
// era use astronomical numbering: 1 BCE is year 0, 44 BCE is year -43.
func buildDate(year, month, day, era string) (time.Time, bool) {
	y, err := strconv.Atoi(year)
	if err != nil {
		return time.Time{}, false
	}
	if era != "" {
		y = 1 - y
	}
	d, err := strconv.Atoi(day)
	if err != nil {
		return time.Time{}, false
	}
	mo, ok := monthNumbers[strings.ToLower(month)[:3]]
	if !ok {
		return time.Time{}, false
	}
	return validDate(y, mo, d)
}

// validDate rejects days time.Date would silently roll over, like 30 February.
func validDate(y int, mo time.Month, d int) (time.Time, bool) {
	if mo < time.January || mo > time.December || d < 1 {
		return time.Time{}, false
	}
	t := time.Date(y, mo, d, 0, 0, 0, 0, time.UTC)
	if t.Day() != d || t.Month() != mo {
		return time.Time{}, false
	}
	return t, true
}

var monthNumbers = map[string]time.Month{
	"jan": time.January,
	"feb": time.February,
	"mar": time.March,
	"apr": time.April,
	"may": time.May,
	"jun": time.June,
	"jul": time.July,
	"aug": time.August,
	"sep": time.September,
	"oct": time.October,
	"nov": time.November,
	"dec": time.December,
}
