package scalar

import (
	"regexp"

	"github.com/teranos/facts/measure"
)

// LabelKind selects the special parse applied to fields whose name matches
// a LabelRule.
type LabelKind int

const (
	// LabelOffset parses one or more "/"-separated UTC offsets.
	LabelOffset LabelKind = iota + 1
	// LabelRank parses an ordinal such as "115th".
	LabelRank
)

func (k LabelKind) String() string {
	switch k {
	case LabelOffset:
		return "utc_offset"
	case LabelRank:
		return "rank"
	default:
		return "unknown"
	}
}

// LabelRule routes fields whose name matches Pattern to a label-specific
// parse that runs before any generic pattern.
type LabelRule struct {
	Pattern *regexp.Regexp
	Kind    LabelKind
}

// DefaultLabelRules are consulted in order; the first match wins.
var DefaultLabelRules = []LabelRule{
	{regexp.MustCompile(`^utc_offset`), LabelOffset},
	{regexp.MustCompile(`_rank$`), LabelRank},
}

// UnitHint wraps a bare number parsed for a field whose name matches
// Pattern (and not Exclude) into a Measure of Unit.
type UnitHint struct {
	Pattern *regexp.Regexp
	Exclude *regexp.Regexp
	Unit    measure.Unit
}

// Matches reports whether the hint applies to label.
func (h UnitHint) Matches(label string) bool {
	if !h.Pattern.MatchString(label) {
		return false
	}
	return h.Exclude == nil || !h.Exclude.MatchString(label)
}

// DefaultUnitHints are consulted in order; the first match wins.
var DefaultUnitHints = []UnitHint{
	{Pattern: regexp.MustCompile(`^population_density_.*km2$`), Unit: measure.MustParseUnit("people/km²")},
	{Pattern: regexp.MustCompile(`^population_`), Exclude: regexp.MustCompile(`density|as_of`), Unit: measure.MustParseUnit("people")},
	{Pattern: regexp.MustCompile(`_km2$`), Exclude: regexp.MustCompile(`density`), Unit: measure.MustParseUnit("km²")},
	{Pattern: regexp.MustCompile(`_m$`), Unit: measure.MustParseUnit("m")},
}

// scaleExponents lists the short-scale words accepted after a dollar amount.
// scaledDollars must match exactly these words.
var scaleExponents = map[string]int{
	"million":     6,
	"billion":     9,
	"trillion":    12,
	"quadrillion": 15,
	"quintillion": 18,
	"sextillion":  21,
	"septillion":  24,
}

const (
	monthNames = `January|February|March|April|May|June|July|August|September|October|November|December|` +
		`Jan|Feb|Mar|Apr|Jun|Jul|Aug|Sep|Sept|Oct|Nov|Dec`
	era = `(?:\s+(BCE|BC))?`
)

var (
	dayMonthYear  = regexp.MustCompile(`(?i)^(\d{1,2})\s+(` + monthNames + `)\.?\s+(\d{1,4})` + era + `$`)
	monthDayYear  = regexp.MustCompile(`(?i)^(` + monthNames + `)\.?\s+(\d{1,2}),?\s+(\d{1,4})` + era + `$`)
	isoDate       = regexp.MustCompile(`^(\d{4})-(\d{2})-(\d{2})$`)
	plainInteger  = regexp.MustCompile(`^-?\d+$`)
	plainDecimal  = regexp.MustCompile(`^-?\d*\.\d+$`)
	groupedInt    = regexp.MustCompile(`^-?\d{1,3}(?:,\d{3})+$`)
	dollars       = regexp.MustCompile(`^\$(\d{1,3}(?:,\d{3})+|\d+)$`)
	scaledDollars = regexp.MustCompile(`(?i)^\$(\d+(?:\.\d+)?)\s+(million|billion|trillion|quadrillion|quintillion|sextillion|septillion)$`)
	minutes       = regexp.MustCompile(`(?i)^(\d+(?:\.\d+)?)\s*min(?:ute)?s?$`)
	percentage    = regexp.MustCompile(`^(-?\d+(?:\.\d+)?)\s*%$`)
	ordinal       = regexp.MustCompile(`^(\d+)(?:st|nd|rd|th)\b`)
)
