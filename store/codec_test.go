package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teranos/facts/errors"
	"github.com/teranos/facts/geotime"
	"github.com/teranos/facts/measure"
	"github.com/teranos/facts/value"
)

func TestValueRoundTrip(t *testing.T) {
	kyiv, err := geotime.NewCoordinate(50.45, 30.5233)
	require.NoError(t, err)

	tests := []struct {
		name string
		in   any
		want any
	}{
		{"measure", measure.MustOf(603628, "km²"), measure.MustOf(603628, "km²")},
		{"compound unit", measure.MustOf(9.81, "m/s²"), measure.MustOf(9.81, "m/s²")},
		{"large integer", int64(1<<62 + 1), int64(1<<62 + 1)},
		{"int widens", 42, int64(42)},
		{"before year one", time.Date(-499, time.March, 15, 0, 0, 0, 0, time.UTC), time.Date(-499, time.March, 15, 0, 0, 0, 0, time.UTC)},
		{"offset", geotime.Offset(345), geotime.Offset(345)},
		{"offset list", []geotime.Offset{120, 180}, []any{geotime.Offset(120), geotime.Offset(180)}},
		{"coordinate", kyiv, kyiv},
		{"link", value.Link{Source: "wikipedia", ID: "Kyiv", Label: "Kyiv"}, value.Link{Source: "wikipedia", ID: "Kyiv", Label: "Kyiv"}},
		{"mixed list", []any{"a", 1.5, true}, []any{"a", 1.5, true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := EncodeValue(tt.in)
			require.NoError(t, err)
			got, err := DecodeValue(s)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEncodeValueShape(t *testing.T) {
	s, err := EncodeValue(measure.MustOf(603628, "km²"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"measure","value":{"amount":603628,"unit":"km²"}}`, s)

	s, err = EncodeValue(time.Date(2016, 4, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"time","value":{"unix":1459468800}}`, s)
}

func TestEncodeValueRejects(t *testing.T) {
	_, err := EncodeValue(nil)
	assert.Error(t, err)

	_, err = EncodeValue(struct{}{})
	assert.True(t, errors.Is(err, errors.ErrUnsupportedKind))

	_, err = EncodeValue([]any{"ok", map[string]int{}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "list item 1")
}

func TestDecodeValueRejects(t *testing.T) {
	_, err := DecodeValue(`not json`)
	assert.Error(t, err)

	_, err = DecodeValue(`{"type":"colour","value":"red"}`)
	assert.True(t, errors.Is(err, errors.ErrUnsupportedKind))

	_, err = DecodeValue(`{"type":"integer","value":1.5}`)
	assert.Error(t, err)

	_, err = DecodeValue(`{"type":"measure","value":{"amount":1,"unit":"km//h"}}`)
	assert.True(t, errors.IsParseError(err))
}

func TestTypeOf(t *testing.T) {
	typ, err := TypeOf(measure.MustOf(1, "km"))
	require.NoError(t, err)
	assert.Equal(t, TypeMeasure, typ)

	typ, err = TypeOf([]any{"a", int64(1)})
	require.NoError(t, err)
	assert.Equal(t, TypeList, typ)

	_, err = TypeOf(struct{}{})
	assert.True(t, errors.Is(err, errors.ErrUnsupportedKind))
}
