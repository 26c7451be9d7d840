package coerce

import (
	"strconv"
	"strings"

	"github.com/teranos/facts/errors"
	"github.com/teranos/facts/measure"
	"github.com/teranos/facts/value"
)

// Kind is the canonical type a field's values are coerced to.
type Kind int

const (
	KindString Kind = iota + 1
	KindEntity
	KindMeasure
	KindCoord
	KindOffset
	KindDatetime
	KindDate
	KindInteger
	KindFloat
)

var kindNames = map[Kind]string{
	KindString:   "string",
	KindEntity:   "entity",
	KindMeasure:  "measure",
	KindCoord:    "coord",
	KindOffset:   "utc_offset",
	KindDatetime: "datetime",
	KindDate:     "date",
	KindInteger:  "integer",
	KindFloat:    "float",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "kind(" + strconv.Itoa(int(k)) + ")"
}

// ParseKind maps a rule-table name ("measure", "utc_offset") to a Kind.
func ParseKind(name string) (Kind, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for k, s := range kindNames {
		if s == n {
			return k, nil
		}
	}
	return 0, errors.Wrapf(errors.ErrUnsupportedKind, "kind %q", name)
}

// ParseFunc is a per-field override that replaces built-in coercion.
// Returning (nil, nil) means "no value".
type ParseFunc func(raw value.Raw) (any, error)

// Descriptor declares how one field is coerced.
type Descriptor struct {
	Kind Kind
	// List coerces every element of a list input and collects the non-nil
	// results.
	List bool
	// Unit is required by KindMeasure when the input carries no unit.
	Unit string
	// Namespace is the link source for KindEntity values given as plain text.
	Namespace string
	// Label is the field name, passed to the scalar parser for its label rules.
	Label string
	// Parse, when set, takes precedence over built-in coercion.
	Parse ParseFunc
}

// Validate reports configuration errors: an unknown kind or a malformed unit.
func (d Descriptor) Validate() error {
	if _, ok := kindNames[d.Kind]; !ok {
		return errors.Wrapf(errors.ErrUnsupportedKind, "field %q: %s", d.Label, d.Kind)
	}
	if d.Unit != "" {
		if _, err := measure.ParseUnit(d.Unit); err != nil {
			return errors.Wrapf(err, "field %q", d.Label)
		}
	}
	return nil
}

// String renders the descriptor as it would appear in a rule table:
// "measure(km²)", "[entity]".
func (d Descriptor) String() string {
	s := d.Kind.String()
	if d.Unit != "" {
		s += "(" + d.Unit + ")"
	}
	if d.List {
		s = "[" + s + "]"
	}
	return s
}
