package measure

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Currency symbols rendered in front of the amount rather than after it.
var prefixUnits = map[string]bool{
	"$": true,
	"€": true,
	"£": true,
	"¥": true,
}

// String renders the measure for English readers: "1,234 km²", "$104,000,000,000".
func (m Measure) String() string {
	return m.Format(language.English, false)
}

// Format renders the measure with the digit grouping and decimal mark of
// the given locale. ASCII mode is passed through to the unit.
func (m Measure) Format(tag language.Tag, ascii bool) string {
	amount := FormatAmount(m.Amount, tag)
	if m.Unit.IsScalar() {
		return amount
	}
	unit := m.Unit.Format(ascii)
	switch {
	case prefixUnits[unit]:
		if strings.HasPrefix(amount, "-") {
			return "-" + unit + amount[1:]
		}
		return unit + amount
	case unit == "%":
		return amount + unit
	default:
		return amount + " " + unit
	}
}

// FormatAmount renders a number for humans:
//   - integral values have no fractional part; 1000 and above are grouped
//   - values in [1, 4) keep two decimals, trailing zeros trimmed
//   - values in [4, 1000) keep one decimal, trailing zeros trimmed
//   - values in (0, 1) show digits up to the first significant one
//   - non-integral values of 1000 and above are rounded to integers
func FormatAmount(amount float64, tag language.Tag) string {
	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return strconv.FormatFloat(amount, 'f', -1, 64)
	}

	p := message.NewPrinter(tag)
	abs := math.Abs(amount)

	if abs >= math.MaxInt64 {
		return groupLarge(p, amount)
	}
	if isIntegral(amount) || abs >= 1000 {
		return p.Sprintf("%d", int64(math.Round(amount)))
	}

	var decimals int
	switch {
	case abs >= 4:
		decimals = 1
	case abs >= 1:
		decimals = 2
	default:
		decimals = int(-math.Floor(math.Log10(abs)))
	}
	decimals = trimmedDecimals(amount, decimals)
	if decimals == 0 {
		return p.Sprintf("%d", int64(math.Round(amount)))
	}
	return p.Sprintf(fmt.Sprintf("%%.%df", decimals), amount)
}

// groupLarge renders amounts outside the int64 range ("$5 sextillion")
// using the shortest decimal digits of the float and the locale's group
// separator.
func groupLarge(p *message.Printer, amount float64) string {
	digits := strconv.FormatFloat(math.Abs(math.Round(amount)), 'f', -1, 64)
	sep := strings.TrimSuffix(strings.TrimPrefix(p.Sprintf("%d", 1000), "1"), "000")

	var b strings.Builder
	if amount < 0 {
		b.WriteByte('-')
	}
	lead := len(digits) % 3
	if lead == 0 {
		lead = 3
	}
	b.WriteString(digits[:lead])
	for i := lead; i < len(digits); i += 3 {
		b.WriteString(sep)
		b.WriteString(digits[i : i+3])
	}
	return b.String()
}

// isIntegral treats values within floating point noise of an integer as
// integers, so 3.0000000000000004 renders as "3".
func isIntegral(v float64) bool {
	r := math.Round(v)
	return math.Abs(v-r) <= 1e-9*math.Max(1, math.Abs(v))
}

// trimmedDecimals returns how many of the first n decimals survive once
// trailing zeros are dropped.
func trimmedDecimals(v float64, n int) int {
	s := strconv.FormatFloat(v, 'f', n, 64)
	dot := strings.IndexByte(s, '.')
	if dot < 0 {
		return 0
	}
	s = strings.TrimRight(s, "0")
	return len(s) - dot - 1
}
