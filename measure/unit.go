// Package measure implements compound physical and counting units and the
// amounts tagged with them.
//
// A Unit is a multiset of (symbol, exponent) pairs: "km²" is {km: 2},
// "people/km²" is {people: 1, km: -2}. Units are immutable; every operation
// returns a new value. Two units are equal when their component sets are
// equal regardless of order.
package measure

import (
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/teranos/facts/errors"
)

// Component is one symbol of a unit raised to a non-zero power.
type Component struct {
	Symbol string
	Power  int
}

// Unit is a normalized product of components. The zero value is the scalar
// (dimensionless) unit.
type Unit struct {
	components []Component
}

// Scalar is the dimensionless unit.
var Scalar = Unit{}

// NewUnit builds a unit from components, summing the powers of repeated
// symbols and dropping symbols whose powers cancel out. First-appearance
// order is preserved for rendering.
func NewUnit(components ...Component) Unit {
	index := make(map[string]int, len(components))
	merged := make([]Component, 0, len(components))
	for _, c := range components {
		if c.Symbol == "" {
			continue
		}
		if i, ok := index[c.Symbol]; ok {
			merged[i].Power += c.Power
			continue
		}
		index[c.Symbol] = len(merged)
		merged = append(merged, c)
	}

	out := merged[:0]
	for _, c := range merged {
		if c.Power != 0 {
			out = append(out, c)
		}
	}
	if len(out) == 0 {
		return Scalar
	}
	return Unit{components: out}
}

// Components returns a copy of the unit's components in rendering order.
func (u Unit) Components() []Component {
	out := make([]Component, len(u.components))
	copy(out, u.components)
	return out
}

// IsScalar reports whether the unit has no components.
func (u Unit) IsScalar() bool {
	return len(u.components) == 0
}

// Mul returns u·o.
func (u Unit) Mul(o Unit) Unit {
	all := make([]Component, 0, len(u.components)+len(o.components))
	all = append(all, u.components...)
	all = append(all, o.components...)
	return NewUnit(all...)
}

// Div returns u/o.
func (u Unit) Div(o Unit) Unit {
	return u.Mul(o.Inverse())
}

// Inverse negates every exponent, so that u.Mul(u.Inverse()) is Scalar.
func (u Unit) Inverse() Unit {
	out := make([]Component, len(u.components))
	for i, c := range u.components {
		out[i] = Component{Symbol: c.Symbol, Power: -c.Power}
	}
	return NewUnit(out...)
}

// Pow multiplies every exponent by n. Pow(0) is Scalar.
func (u Unit) Pow(n int) Unit {
	out := make([]Component, len(u.components))
	for i, c := range u.components {
		out[i] = Component{Symbol: c.Symbol, Power: c.Power * n}
	}
	return NewUnit(out...)
}

// Equal reports whether both units have the same components, ignoring order.
func (u Unit) Equal(o Unit) bool {
	if len(u.components) != len(o.components) {
		return false
	}
	powers := make(map[string]int, len(u.components))
	for _, c := range u.components {
		powers[c.Symbol] = c.Power
	}
	for _, c := range o.components {
		if p, ok := powers[c.Symbol]; !ok || p != c.Power {
			return false
		}
	}
	return true
}

// Key returns an order-independent identity string, usable as a map key.
func (u Unit) Key() string {
	sorted := u.Components()
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Symbol < sorted[j].Symbol })
	var b strings.Builder
	for i, c := range sorted {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(c.Symbol)
		b.WriteByte('^')
		b.WriteString(strconv.Itoa(c.Power))
	}
	return b.String()
}

// String renders the unit with Unicode glyphs: "km²", "people/km²", "1/s".
func (u Unit) String() string {
	return u.Format(false)
}

// Format renders the unit. ASCII mode uses "*" and "^2" instead of "·" and "²".
func (u Unit) Format(ascii bool) string {
	var num, den []string
	for _, c := range u.components {
		switch {
		case c.Power > 0:
			num = append(num, c.Symbol+renderPower(c.Power, ascii))
		case c.Power < 0:
			den = append(den, c.Symbol+renderPower(-c.Power, ascii))
		default:
			panic(errors.AssertionFailedf("unit component %q has zero power", c.Symbol))
		}
	}

	glyph := "·"
	if ascii {
		glyph = "*"
	}
	switch {
	case len(den) == 0:
		return strings.Join(num, glyph)
	case len(num) == 0:
		return "1/" + strings.Join(den, glyph)
	default:
		return strings.Join(num, glyph) + "/" + strings.Join(den, glyph)
	}
}

func renderPower(p int, ascii bool) string {
	switch {
	case p == 1:
		return ""
	case p == 2 && !ascii:
		return "²"
	case p == 3 && !ascii:
		return "³"
	default:
		return "^" + strconv.Itoa(p)
	}
}

// MustParseUnit is ParseUnit for hard-coded unit strings; it panics on error.
func MustParseUnit(text string) Unit {
	u, err := ParseUnit(text)
	if err != nil {
		panic(err)
	}
	return u
}

// ParseUnit reads the grammar
//
//	unit      = component { operator component }
//	component = symbol [ "²" | "³" | "^" digits ]
//	operator  = "*" | "·" | "/"
//
// where a symbol is any run of characters other than whitespace and
// "+*/^²³·". Only one "/" is allowed; every component after it goes to the
// denominator. A bare "1" numerator ("1/s") is accepted. Blank input is the
// scalar unit.
func ParseUnit(text string) (Unit, error) {
	p := &unitParser{src: text, runes: []rune(text)}
	return p.parse()
}

type unitParser struct {
	src   string
	runes []rune
	pos   int
}

func (p *unitParser) parse() (Unit, error) {
	p.skipSpace()
	if p.done() {
		return Scalar, nil
	}

	var comps []Component
	sign := 1
	divided := false
	for {
		c, err := p.component()
		if err != nil {
			return Unit{}, err
		}
		switch {
		case c.Symbol != "1":
			c.Power *= sign
			comps = append(comps, c)
		case divided || c.Power != 1 || len(comps) > 0:
			return Unit{}, p.fail("unexpected \"1\"")
		}

		p.skipSpace()
		if p.done() {
			break
		}
		switch p.runes[p.pos] {
		case '*', '·':
			p.pos++
		case '/':
			if divided {
				return Unit{}, p.fail("second division")
			}
			divided = true
			sign = -1
			p.pos++
		default:
			return Unit{}, p.fail("operator expected")
		}
		p.skipSpace()
	}
	return NewUnit(comps...), nil
}

func (p *unitParser) component() (Component, error) {
	start := p.pos
	for !p.done() && isSymbolRune(p.runes[p.pos]) {
		p.pos++
	}
	if p.pos == start {
		return Component{}, p.fail("unit symbol expected")
	}
	c := Component{Symbol: string(p.runes[start:p.pos]), Power: 1}

	if p.done() {
		return c, nil
	}
	switch p.runes[p.pos] {
	case '²':
		c.Power = 2
		p.pos++
	case '³':
		c.Power = 3
		p.pos++
	case '^':
		p.pos++
		digits := p.pos
		for !p.done() && p.runes[p.pos] >= '0' && p.runes[p.pos] <= '9' {
			p.pos++
		}
		if p.pos == digits {
			return Component{}, p.fail("power digits expected")
		}
		n, err := strconv.Atoi(string(p.runes[digits:p.pos]))
		if err != nil {
			return Component{}, errors.Wrapf(errors.ErrParse, "unit %q: %v", p.src, err)
		}
		c.Power = n
	}
	return c, nil
}

func (p *unitParser) skipSpace() {
	for !p.done() && unicode.IsSpace(p.runes[p.pos]) {
		p.pos++
	}
}

func (p *unitParser) done() bool {
	return p.pos >= len(p.runes)
}

func (p *unitParser) fail(reason string) error {
	return errors.Wrapf(errors.ErrParse, "unit %q at position %d: %s", p.src, p.pos, reason)
}

func isSymbolRune(r rune) bool {
	if unicode.IsSpace(r) {
		return false
	}
	switch r {
	case '+', '*', '/', '^', '²', '³', '·':
		return false
	}
	return true
}
