package coerce

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/teranos/facts/errors"
	"github.com/teranos/facts/geotime"
	"github.com/teranos/facts/measure"
	"github.com/teranos/facts/value"
)

// wikiNode stands in for a connector's markup node: "[[Target|Label]]" is a
// link, anything else is text split on "|".
type wikiNode string

type wikiExtractor struct{}

func (wikiExtractor) Link(node any) (value.Link, bool) {
	s := string(node.(wikiNode))
	if !strings.HasPrefix(s, "[[") || !strings.HasSuffix(s, "]]") {
		return value.Link{}, false
	}
	target, label, _ := strings.Cut(strings.Trim(s, "[]"), "|")
	return value.Link{Source: "wikipedia", ID: target, Label: label}, true
}

func (wikiExtractor) Flatten(node any) value.Raw {
	s := string(node.(wikiNode))
	if !strings.Contains(s, "|") {
		return value.Text(s)
	}
	var out value.List
	for _, part := range strings.Split(s, "|") {
		out = append(out, value.Text(part))
	}
	return out
}

func newEngine(t *testing.T) *Engine {
	return New(WithMarkup(wikiExtractor{}), WithLogger(zaptest.NewLogger(t).Sugar()))
}

func TestCoerceMeasure(t *testing.T) {
	e := newEngine(t)
	area := Descriptor{Kind: KindMeasure, Unit: "km²", Label: "area"}

	tests := []struct {
		name string
		raw  value.Raw
		d    Descriptor
		want any
	}{
		{"text rewrapped in unit", value.Text("603,628"), area, measure.MustOf(603628, "km²")},
		{"number wrapped in unit", value.Structured{Value: 839.0}, area, measure.MustOf(839, "km²")},
		{"int wrapped in unit", value.Structured{Value: 839}, area, measure.MustOf(839, "km²")},
		{"label hint supplies unit", value.Text("10"), Descriptor{Kind: KindMeasure, Label: "area_km2"}, measure.MustOf(10, "km²")},
		{"text carries unit", value.Text("$104 billion"), Descriptor{Kind: KindMeasure, Label: "gdp"}, measure.MustOf(104e9, "$")},
		{"existing measure unchanged", value.Structured{Value: measure.MustOf(3, "m/s")}, area, measure.MustOf(3, "m/s")},
		{"unparseable text", value.Text("about a lot"), area, nil},
		{"markup flattened", value.Markup{Node: wikiNode("839")}, area, measure.MustOf(839, "km²")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Coerce(tt.raw, tt.d)
			require.NoError(t, err)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			m, ok := got.(measure.Measure)
			require.True(t, ok, "got %T", got)
			assert.True(t, tt.want.(measure.Measure).Equal(m), "got %v", m)
		})
	}
}

func TestCoerceMeasureMissingUnit(t *testing.T) {
	_, err := newEngine(t).Coerce(value.Text("42"), Descriptor{Kind: KindMeasure, Label: "length"})
	require.Error(t, err)
	assert.True(t, errors.IsConfigurationError(err))
	assert.Contains(t, err.Error(), "length")
}

func TestCoerceConfigurationErrors(t *testing.T) {
	e := newEngine(t)

	_, err := e.Coerce(value.Text("x"), Descriptor{Kind: Kind(99)})
	assert.True(t, errors.Is(err, errors.ErrUnsupportedKind))

	_, err = e.Coerce(value.Text("x"), Descriptor{})
	assert.True(t, errors.Is(err, errors.ErrUnsupportedKind))

	_, err = e.Coerce(value.Text("1"), Descriptor{Kind: KindMeasure, Unit: "km//h"})
	assert.True(t, errors.IsParseError(err))

	_, err = New().Coerce(value.Markup{Node: wikiNode("x")}, Descriptor{Kind: KindString})
	assert.True(t, errors.Is(err, errors.ErrMissingOption))
}

func TestCoerceEntity(t *testing.T) {
	e := newEngine(t)
	d := Descriptor{Kind: KindEntity, Label: "capital"}
	kyiv := value.Link{Source: "wikipedia", ID: "Kyiv", Label: "Kyiv city"}

	got, err := e.Coerce(value.Structured{Value: kyiv}, d)
	require.NoError(t, err)
	assert.Equal(t, kyiv, got)

	got, err = e.Coerce(value.Markup{Node: wikiNode("[[Kyiv|Kyiv city]]")}, d)
	require.NoError(t, err)
	assert.Equal(t, kyiv, got)

	got, err = e.Coerce(value.Text("wikidata://Q1899"), d)
	require.NoError(t, err)
	assert.Equal(t, value.NewLink("wikidata", "Q1899"), got)

	// first wins
	got, err = e.Coerce(value.List{
		value.Markup{Node: wikiNode("[[Kyiv]]")},
		value.Markup{Node: wikiNode("[[Lviv]]")},
	}, d)
	require.NoError(t, err)
	assert.Equal(t, "Kyiv", got.(value.Link).ID)

	got, err = e.Coerce(value.Text("Kyiv"), d)
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = e.Coerce(value.Text("Kyiv"), Descriptor{Kind: KindEntity, Namespace: "osm"})
	require.NoError(t, err)
	assert.Equal(t, value.Link{Source: "osm", ID: "Kyiv", Label: "Kyiv"}, got)
}

func TestCoerceList(t *testing.T) {
	e := newEngine(t)
	d := Descriptor{Kind: KindEntity, List: true, Label: "neighbours"}

	got, err := e.Coerce(value.List{}, d)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, []any{}, got)

	got, err = e.Coerce(nil, d)
	require.NoError(t, err)
	assert.Equal(t, []any{}, got)

	got, err = e.Coerce(value.List{
		value.Markup{Node: wikiNode("[[Poland]]")},
		value.Text("not a link"),
		value.Markup{Node: wikiNode("[[Moldova]]")},
	}, d)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Poland", got.([]any)[0].(value.Link).ID)
	assert.Equal(t, "Moldova", got.([]any)[1].(value.Link).ID)

	got, err = e.Coerce(value.Text("+02:00"), Descriptor{Kind: KindOffset, List: true})
	require.NoError(t, err)
	assert.Equal(t, []any{geotime.Offset(120)}, got)

	got, err = e.Coerce(value.Markup{Node: wikiNode("Kyiv|Lviv")}, Descriptor{Kind: KindString, List: true})
	require.NoError(t, err)
	assert.Equal(t, []any{"Kyiv", "Lviv"}, got)
}

func TestCoerceCoord(t *testing.T) {
	e := newEngine(t)
	d := Descriptor{Kind: KindCoord, Label: "coordinates"}
	kyiv := geotime.Coordinate{Lat: 50.45, Lng: 30.5}

	tests := []struct {
		name string
		raw  value.Raw
		want any
	}{
		{"unparseable shape", value.Text("49 32"), nil},
		{"existing coordinate", value.Structured{Value: kyiv}, kyiv},
		{"decimal text", value.Text("50.45, 30.5"), kyiv},
		{"parts with hemispheres", value.List{value.Text("50"), value.Text("27"), value.Text("N"), value.Text("30"), value.Text("30"), value.Text("E")}, kyiv},
		{"numeric parts", value.List{value.Structured{Value: 50.45}, value.Structured{Value: 30.5}}, kyiv},
		{"float slice", value.Structured{Value: []float64{50.45, 30.5}}, kyiv},
		{"markup template", value.Markup{Node: wikiNode("50|27|N|30|30|E")}, kyiv},
		{"three parts", value.List{value.Text("50"), value.Text("27"), value.Text("N")}, nil},
		{"garbage parts", value.List{value.Text("a"), value.Text("b")}, nil},
		{"number", value.Structured{Value: 42}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := e.Coerce(tt.raw, d)
			require.NoError(t, err)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			c, ok := got.(geotime.Coordinate)
			require.True(t, ok, "got %T", got)
			assert.InDelta(t, tt.want.(geotime.Coordinate).Lat, c.Lat, 1e-9)
			assert.InDelta(t, tt.want.(geotime.Coordinate).Lng, c.Lng, 1e-9)
		})
	}
}

func TestCoerceOffsetAndTime(t *testing.T) {
	e := newEngine(t)

	got, err := e.Coerce(value.Text("UTC+05:45"), Descriptor{Kind: KindOffset})
	require.NoError(t, err)
	assert.Equal(t, geotime.Offset(345), got)

	got, err = e.Coerce(value.Text("Eastern"), Descriptor{Kind: KindOffset})
	require.NoError(t, err)
	assert.Nil(t, got)

	winter := New(WithClock(func() time.Time { return time.Date(2016, time.January, 15, 12, 0, 0, 0, time.UTC) }))
	summer := New(WithClock(func() time.Time { return time.Date(2016, time.July, 15, 12, 0, 0, 0, time.UTC) }))
	zones := []struct {
		zone           string
		winter, summer geotime.Offset
	}{
		{"CET", 60, 120},
		{"Europe/Kyiv", 120, 180},
		{"europe/kyiv", 120, 180},
		{"Kathmandu", 345, 345},
	}
	for _, z := range zones {
		got, err := winter.Coerce(value.Text(z.zone), Descriptor{Kind: KindOffset})
		require.NoError(t, err)
		assert.Equal(t, z.winter, got, z.zone)

		got, err = summer.Coerce(value.Text(z.zone), Descriptor{Kind: KindOffset})
		require.NoError(t, err)
		assert.Equal(t, z.summer, got, z.zone)
	}

	founded := time.Date(482, time.May, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		raw  value.Raw
		kind Kind
		want any
	}{
		{value.Text("2016-04-01T10:30:00Z"), KindDatetime, time.Date(2016, 4, 1, 10, 30, 0, 0, time.UTC)},
		{value.Text("2016-04-01 10:30:00"), KindDatetime, time.Date(2016, 4, 1, 10, 30, 0, 0, time.UTC)},
		{value.Text("1 May 482"), KindDatetime, founded},
		{value.Structured{Value: founded}, KindDatetime, founded},
		{value.Text("sometime in spring"), KindDatetime, nil},
		{value.Text("2016-04-01T10:30:00Z"), KindDate, time.Date(2016, 4, 1, 0, 0, 0, 0, time.UTC)},
		{value.Text("never"), KindDate, nil},
	}
	for _, tt := range tests {
		got, err := e.Coerce(tt.raw, Descriptor{Kind: tt.kind})
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, tt.raw.String())
	}
}

func TestCoerceNumbersAndStrings(t *testing.T) {
	e := newEngine(t)

	tests := []struct {
		raw  value.Raw
		d    Descriptor
		want any
	}{
		{value.Text("42,418,235"), Descriptor{Kind: KindInteger}, int64(42418235)},
		{value.Text("115th"), Descriptor{Kind: KindInteger, Label: "gdp_rank"}, int64(115)},
		{value.Text("2,952,301"), Descriptor{Kind: KindInteger, Label: "population_total"}, int64(2952301)},
		{value.Text("3.5"), Descriptor{Kind: KindInteger}, nil},
		{value.Structured{Value: 7.0}, Descriptor{Kind: KindInteger}, int64(7)},
		{value.Text("3.5"), Descriptor{Kind: KindFloat}, 3.5},
		{value.Text("12"), Descriptor{Kind: KindFloat}, 12.0},
		{value.Text("many"), Descriptor{Kind: KindFloat}, nil},
		{value.Text("  Kyiv  "), Descriptor{Kind: KindString}, "Kyiv"},
		{value.Text("   "), Descriptor{Kind: KindString}, nil},
		{value.Structured{Value: value.Link{ID: "Q1", Label: "Kyiv"}}, Descriptor{Kind: KindString}, "Kyiv"},
		{value.Structured{Value: 12}, Descriptor{Kind: KindString}, "12"},
		{value.Markup{Node: wikiNode("Kyiv")}, Descriptor{Kind: KindString}, "Kyiv"},
	}

	for _, tt := range tests {
		got, err := e.Coerce(tt.raw, tt.d)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "%s as %s", tt.raw, tt.d)
	}
}

func TestCoerceParseOverride(t *testing.T) {
	called := false
	d := Descriptor{
		Kind: KindMeasure,
		Parse: func(raw value.Raw) (any, error) {
			called = true
			return "custom:" + raw.String(), nil
		},
	}

	got, err := newEngine(t).Coerce(value.Text("42"), d)
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "custom:42", got)
}

func TestCoerceIdempotent(t *testing.T) {
	e := newEngine(t)
	values := []struct {
		v    any
		kind Kind
	}{
		{measure.MustOf(64, "m²"), KindMeasure},
		{value.NewLink("osm", "r421866"), KindEntity},
		{geotime.Coordinate{Lat: 1, Lng: 2}, KindCoord},
		{geotime.Offset(-210), KindOffset},
		{time.Date(2016, 4, 1, 0, 0, 0, 0, time.UTC), KindDatetime},
		{"Kyiv", KindString},
	}

	for _, tt := range values {
		d := Descriptor{Kind: tt.kind, Unit: "km²"}
		once, err := e.Coerce(value.Structured{Value: tt.v}, d)
		require.NoError(t, err)
		twice, err := e.Coerce(value.Structured{Value: once}, d)
		require.NoError(t, err)
		assert.Equal(t, tt.v, once, tt.kind.String())
		assert.Equal(t, once, twice, tt.kind.String())
	}
}

func TestCoerceLogsDroppedValues(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	e := New(WithLogger(zap.New(core).Sugar()))

	got, err := e.Coerce(value.Text("49 32"), Descriptor{Kind: KindCoord, Label: "coordinates"})
	require.NoError(t, err)
	assert.Nil(t, got)

	entries := logs.FilterMessage("value not coercible").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "coordinates", entries[0].ContextMap()["field"])
	assert.Equal(t, "coord", entries[0].ContextMap()["kind"])
}

func TestParseKind(t *testing.T) {
	for k, name := range kindNames {
		got, err := ParseKind(name)
		require.NoError(t, err)
		assert.Equal(t, k, got)
	}

	got, err := ParseKind(" UTC_Offset ")
	require.NoError(t, err)
	assert.Equal(t, KindOffset, got)

	_, err = ParseKind("colour")
	assert.True(t, errors.Is(err, errors.ErrUnsupportedKind))
}

func TestDescriptorString(t *testing.T) {
	assert.Equal(t, "measure(km²)", Descriptor{Kind: KindMeasure, Unit: "km²"}.String())
	assert.Equal(t, "[entity]", Descriptor{Kind: KindEntity, List: true}.String())
	assert.Equal(t, "kind(42)", Kind(42).String())
}
