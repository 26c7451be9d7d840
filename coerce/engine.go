// Package coerce converts raw field values into canonical typed values.
//
// Bad external data is never an error: a value that cannot be coerced
// comes back as (nil, nil). Errors are reserved for configuration mistakes
// (an unknown kind, a measure field without a unit, markup input without an
// extractor) and for internal assertion failures.
package coerce

import (
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/teranos/facts/errors"
	"github.com/teranos/facts/geotime"
	"github.com/teranos/facts/logger"
	"github.com/teranos/facts/measure"
	"github.com/teranos/facts/scalar"
	"github.com/teranos/facts/value"
)

// MarkupExtractor reads the opaque markup nodes a connector produces.
type MarkupExtractor interface {
	// Link returns the target of a hyperlink-like node.
	Link(node any) (value.Link, bool)
	// Flatten returns the node's content as plain raw input.
	Flatten(node any) value.Raw
}

// Engine applies descriptors to raw input. It holds no mutable state.
type Engine struct {
	parser *scalar.Parser
	markup MarkupExtractor
	logger *zap.SugaredLogger
	clock  func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithParser replaces scalar.Default.
func WithParser(p *scalar.Parser) Option {
	return func(e *Engine) { e.parser = p }
}

// WithMarkup installs the extractor for value.Markup input.
func WithMarkup(m MarkupExtractor) Option {
	return func(e *Engine) { e.markup = m }
}

// WithLogger sets the logger used for debug notes on dropped values.
func WithLogger(l *zap.SugaredLogger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithClock replaces time.Now as the instant zone names are resolved at.
func WithClock(clock func() time.Time) Option {
	return func(e *Engine) { e.clock = clock }
}

// New returns an engine using the default scalar parser and a no-op logger.
func New(opts ...Option) *Engine {
	e := &Engine{
		parser: scalar.Default,
		logger: zap.NewNop().Sugar(),
		clock:  time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Coerce converts raw according to d.
//
// List descriptors always produce a non-nil []any, empty when nothing
// coerced. For scalar descriptors a list input yields its first element
// (entity: first wins) except for coordinates, whose parts are the list.
func (e *Engine) Coerce(raw value.Raw, d Descriptor) (any, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	if d.Parse != nil {
		return d.Parse(raw)
	}
	if d.List {
		return e.coerceList(raw, d)
	}

	v, err := e.coerceOne(raw, d)
	if err != nil {
		return nil, err
	}
	if v == nil && raw != nil {
		e.logger.Debugw("value not coercible",
			logger.FieldField, d.Label,
			logger.FieldKind, d.Kind.String(),
			logger.FieldRaw, raw.String())
	}
	return v, nil
}

func (e *Engine) coerceList(raw value.Raw, d Descriptor) ([]any, error) {
	out := []any{}
	if raw == nil {
		return out, nil
	}

	raw, err := e.flatten(raw)
	if err != nil {
		return nil, err
	}
	items, ok := raw.(value.List)
	if !ok {
		items = value.List{raw}
	}

	for _, item := range items {
		v, err := e.coerceOne(item, d)
		if err != nil {
			return nil, err
		}
		if v != nil {
			out = append(out, v)
		}
	}
	return out, nil
}

func (e *Engine) coerceOne(raw value.Raw, d Descriptor) (any, error) {
	switch r := raw.(type) {
	case nil:
		return nil, nil
	case value.Markup:
		if d.Kind == KindEntity && e.markup != nil {
			if l, ok := e.markup.Link(r.Node); ok {
				return l, nil
			}
		}
		flat, err := e.flatten(r)
		if err != nil {
			return nil, err
		}
		if _, still := flat.(value.Markup); still {
			return nil, nil
		}
		return e.coerceOne(flat, d)
	case value.List:
		if d.Kind == KindCoord {
			return coordFromList(r), nil
		}
		if len(r) == 0 {
			return nil, nil
		}
		return e.coerceOne(r[0], d)
	}

	switch d.Kind {
	case KindString:
		return e.toString(raw), nil
	case KindEntity:
		return e.toEntity(raw, d), nil
	case KindMeasure:
		return e.toMeasure(raw, d)
	case KindCoord:
		return toCoord(raw), nil
	case KindOffset:
		return e.toOffset(raw), nil
	case KindDatetime:
		return e.toTime(raw), nil
	case KindDate:
		t, ok := e.toTime(raw).(time.Time)
		if !ok {
			return nil, nil
		}
		return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()), nil
	case KindInteger:
		f, ok, err := e.toNumber(raw, d)
		if err != nil || !ok || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
			return nil, err
		}
		return int64(f), nil
	case KindFloat:
		f, ok, err := e.toNumber(raw, d)
		if err != nil || !ok {
			return nil, err
		}
		return f, nil
	default:
		return nil, errors.AssertionFailedf("validated kind %s has no coercion", d.Kind)
	}
}

// flatten resolves Markup through the extractor.
func (e *Engine) flatten(raw value.Raw) (value.Raw, error) {
	m, ok := raw.(value.Markup)
	if !ok {
		return raw, nil
	}
	if e.markup == nil {
		return nil, errors.Wrap(errors.ErrMissingOption, "markup input but no markup extractor configured")
	}
	return e.markup.Flatten(m.Node), nil
}

func (e *Engine) toString(raw value.Raw) any {
	switch r := raw.(type) {
	case value.Text:
		s := strings.TrimSpace(string(r))
		if s == "" {
			return nil
		}
		return s
	case value.Structured:
		switch v := r.Value.(type) {
		case string:
			return v
		case value.Link:
			return v.Display()
		case nil:
			return nil
		default:
			return r.String()
		}
	}
	return nil
}

func (e *Engine) toEntity(raw value.Raw, d Descriptor) any {
	switch r := raw.(type) {
	case value.Structured:
		switch v := r.Value.(type) {
		case value.Link:
			return v
		case *value.Link:
			if v != nil {
				return *v
			}
		}
	case value.Text:
		s := strings.TrimSpace(string(r))
		if s == "" {
			return nil
		}
		if l, err := value.ParseLink(s); err == nil {
			return l
		}
		if d.Namespace != "" {
			return value.Link{Source: d.Namespace, ID: s, Label: s}
		}
	}
	return nil
}

func (e *Engine) toMeasure(raw value.Raw, d Descriptor) (any, error) {
	var v any
	switch r := raw.(type) {
	case value.Structured:
		v = r.Value
	case value.Text:
		parsed, err := e.parser.Parse(string(r), d.Label)
		if err != nil {
			return nil, err
		}
		v = parsed
	}

	switch n := v.(type) {
	case measure.Measure:
		return n, nil
	case *measure.Measure:
		if n != nil {
			return *n, nil
		}
		return nil, nil
	}

	amount, ok := number(v)
	if !ok {
		return nil, nil
	}
	if d.Unit == "" {
		return nil, errors.Wrapf(errors.ErrMissingOption, "measure field %q has no unit", d.Label)
	}
	return measure.Of(amount, d.Unit)
}

func toCoord(raw value.Raw) any {
	switch r := raw.(type) {
	case value.Structured:
		switch c := r.Value.(type) {
		case geotime.Coordinate:
			return c
		case *geotime.Coordinate:
			if c != nil {
				return *c
			}
		case []float64:
			parts := make(value.List, len(c))
			for i, f := range c {
				parts[i] = value.Structured{Value: f}
			}
			return coordFromList(parts)
		}
	case value.Text:
		if c, ok := geotime.ParseCoordinate(string(r)); ok {
			return c
		}
	}
	return nil
}

func coordFromList(l value.List) any {
	parts, ok := l.Strings()
	if !ok {
		return nil
	}
	c, ok := geotime.FromParts(parts)
	if !ok {
		return nil
	}
	return c
}

// toOffset accepts explicit offsets first; zone names ("Europe/Kyiv",
// "CET") resolve to the offset they observe at the engine's now.
func (e *Engine) toOffset(raw value.Raw) any {
	switch r := raw.(type) {
	case value.Structured:
		if o, ok := r.Value.(geotime.Offset); ok {
			return o
		}
	case value.Text:
		if o, ok := geotime.ParseOffset(string(r)); ok {
			return o
		}
		if o, err := geotime.OffsetFromZone(string(r), e.clock()); err == nil {
			return o
		}
	}
	return nil
}

// Accepted datetime layouts, tried in order after the scalar date patterns.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01",
}

func (e *Engine) toTime(raw value.Raw) any {
	switch r := raw.(type) {
	case value.Structured:
		switch t := r.Value.(type) {
		case time.Time:
			return t
		case *time.Time:
			if t != nil {
				return *t
			}
		}
	case value.Text:
		s := strings.TrimSpace(string(r))
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t
			}
		}
		if v, err := e.parser.Parse(s, ""); err == nil {
			if t, ok := v.(time.Time); ok {
				return t
			}
		}
	}
	return nil
}

// toNumber accepts numbers, numeric text and measures (by amount).
func (e *Engine) toNumber(raw value.Raw, d Descriptor) (float64, bool, error) {
	var v any
	switch r := raw.(type) {
	case value.Structured:
		v = r.Value
	case value.Text:
		parsed, err := e.parser.Parse(string(r), d.Label)
		if err != nil {
			return 0, false, err
		}
		v = parsed
	}
	if m, ok := v.(measure.Measure); ok {
		return m.Amount, true, nil
	}
	f, ok := number(v)
	return f, ok, nil
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
