package value

import (
	"fmt"
	"strings"
)

// Raw is a field value as a connector delivered it. The set of
// implementations is closed: Text, List, Structured and Markup.
type Raw interface {
	isRaw()
	fmt.Stringer
}

// Text is an unstructured string such as "42,418,235" or "$104 billion".
type Text string

// List holds several raw values for one field.
type List []Raw

// Structured wraps an already-typed value: a number, a Link, a
// geotime.Coordinate, a measure.Measure, a time.Time.
type Structured struct {
	Value any
}

// Markup is an opaque node of a source's markup tree. Only a
// MarkupExtractor supplied by the connector knows how to read it.
type Markup struct {
	Node any
}

func (Text) isRaw()       {}
func (List) isRaw()       {}
func (Structured) isRaw() {}
func (Markup) isRaw()     {}

func (t Text) String() string { return string(t) }

func (l List) String() string {
	parts := make([]string, len(l))
	for i, r := range l {
		if r == nil {
			parts[i] = "<nil>"
			continue
		}
		parts[i] = r.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (s Structured) String() string { return fmt.Sprint(s.Value) }

func (m Markup) String() string { return fmt.Sprintf("markup(%v)", m.Node) }

// FromAny lifts a decoded JSON or YAML value into Raw. Strings become Text,
// slices become List, nil stays nil and everything else is Structured.
func FromAny(v any) Raw {
	switch t := v.(type) {
	case nil:
		return nil
	case Raw:
		return t
	case string:
		return Text(t)
	case []string:
		out := make(List, len(t))
		for i, s := range t {
			out[i] = Text(s)
		}
		return out
	case []any:
		out := make(List, 0, len(t))
		for _, e := range t {
			if r := FromAny(e); r != nil {
				out = append(out, r)
			}
		}
		return out
	default:
		return Structured{Value: v}
	}
}

// Strings flattens a list of Text and numeric Structured values into their
// textual forms. The boolean is false when any element is something else.
func (l List) Strings() ([]string, bool) {
	out := make([]string, len(l))
	for i, r := range l {
		switch t := r.(type) {
		case Text:
			out[i] = string(t)
		case Structured:
			switch n := t.Value.(type) {
			case int, int64, float64:
				out[i] = fmt.Sprint(n)
			default:
				return nil, false
			}
		default:
			return nil, false
		}
	}
	return out, true
}
