package measure

import (
	"math"

	"github.com/teranos/facts/errors"
)

// Measure is an amount tagged with a unit. Addition, subtraction and
// comparison require equal units; multiplication and division combine them.
type Measure struct {
	Amount float64
	Unit   Unit
}

// New returns a measure of amount in unit.
func New(amount float64, unit Unit) Measure {
	return Measure{Amount: amount, Unit: unit}
}

// Of builds a measure from a unit expression such as "km²" or "m/s".
func Of(amount float64, unit string) (Measure, error) {
	u, err := ParseUnit(unit)
	if err != nil {
		return Measure{}, err
	}
	return Measure{Amount: amount, Unit: u}, nil
}

// MustOf is Of for hard-coded unit strings; it panics on a malformed unit.
func MustOf(amount float64, unit string) Measure {
	m, err := Of(amount, unit)
	if err != nil {
		panic(err)
	}
	return m
}

// Add returns m+o. Units must be equal.
func (m Measure) Add(o Measure) (Measure, error) {
	if err := m.sameUnit(o, "add"); err != nil {
		return Measure{}, err
	}
	return Measure{Amount: m.Amount + o.Amount, Unit: m.Unit}, nil
}

// Sub returns m-o. Units must be equal.
func (m Measure) Sub(o Measure) (Measure, error) {
	if err := m.sameUnit(o, "subtract"); err != nil {
		return Measure{}, err
	}
	return Measure{Amount: m.Amount - o.Amount, Unit: m.Unit}, nil
}

// Scale multiplies the amount by k, keeping the unit.
func (m Measure) Scale(k float64) Measure {
	return Measure{Amount: m.Amount * k, Unit: m.Unit}
}

// Mul returns m·o with the product of both units.
func (m Measure) Mul(o Measure) Measure {
	return Measure{Amount: m.Amount * o.Amount, Unit: m.Unit.Mul(o.Unit)}
}

// DivMeasure returns m/o as a measure, even when the units cancel out.
func (m Measure) DivMeasure(o Measure) Measure {
	return Measure{Amount: m.Amount / o.Amount, Unit: m.Unit.Div(o.Unit)}
}

// Div returns m/o. When the resulting unit is scalar the result collapses to
// a plain number (see Collapse); otherwise it is a Measure.
func (m Measure) Div(o Measure) any {
	return m.DivMeasure(o).Collapse()
}

// DivScalar divides the amount by k, keeping the unit.
func (m Measure) DivScalar(k float64) Measure {
	return Measure{Amount: m.Amount / k, Unit: m.Unit}
}

// Pow raises the amount to n and multiplies every unit exponent by n.
func (m Measure) Pow(n int) Measure {
	return Measure{Amount: math.Pow(m.Amount, float64(n)), Unit: m.Unit.Pow(n)}
}

// Neg returns -m.
func (m Measure) Neg() Measure {
	return Measure{Amount: -m.Amount, Unit: m.Unit}
}

// Abs returns |m|.
func (m Measure) Abs() Measure {
	return Measure{Amount: math.Abs(m.Amount), Unit: m.Unit}
}

// Collapse returns the measure itself, or its bare amount when the unit is
// scalar: an int64 for integral amounts, a float64 otherwise.
func (m Measure) Collapse() any {
	if !m.Unit.IsScalar() {
		return m
	}
	if m.Amount == math.Trunc(m.Amount) && math.Abs(m.Amount) < 1<<53 {
		return int64(m.Amount)
	}
	return m.Amount
}

// Cmp compares m with o: -1, 0 or +1. Units must be equal.
func (m Measure) Cmp(o Measure) (int, error) {
	if err := m.sameUnit(o, "compare"); err != nil {
		return 0, err
	}
	switch {
	case m.Amount < o.Amount:
		return -1, nil
	case m.Amount > o.Amount:
		return 1, nil
	default:
		return 0, nil
	}
}

// Less reports whether m < o. Units must be equal.
func (m Measure) Less(o Measure) (bool, error) {
	c, err := m.Cmp(o)
	return c < 0, err
}

// Equal reports whether both amount and unit are equal. Unlike Cmp it never
// fails: measures in different units are simply unequal.
func (m Measure) Equal(o Measure) bool {
	return m.Amount == o.Amount && m.Unit.Equal(o.Unit)
}

func (m Measure) sameUnit(o Measure, op string) error {
	if m.Unit.Equal(o.Unit) {
		return nil
	}
	return errors.Wrapf(errors.ErrTypeMismatch, "cannot %s %q and %q", op, m.Unit.String(), o.Unit.String())
}
