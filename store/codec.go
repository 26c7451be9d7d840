package store

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/teranos/facts/errors"
	"github.com/teranos/facts/geotime"
	"github.com/teranos/facts/measure"
	"github.com/teranos/facts/value"
)

// Value type tags written to the value column.
const (
	TypeString  = "string"
	TypeBool    = "bool"
	TypeInteger = "integer"
	TypeFloat   = "float"
	TypeTime    = "time"
	TypeMeasure = "measure"
	TypeCoord   = "coord"
	TypeOffset  = "utc_offset"
	TypeLink    = "link"
	TypeList    = "list"
)

type envelope struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

type measureJSON struct {
	Amount float64 `json:"amount"`
	Unit   string  `json:"unit"`
}

// timeJSON keeps dates outside years 0-9999, which RFC 3339 cannot carry.
type timeJSON struct {
	Unix  int64 `json:"unix"`
	Nanos int   `json:"nanos,omitempty"`
}

// EncodeValue renders a coerced value as a tagged JSON document:
//
//	{"type": "measure", "value": {"amount": 603628, "unit": "km²"}}
//
// Times lose their location and come back in UTC. Lists of offsets come
// back as []any.
func EncodeValue(v any) (string, error) {
	env, err := encode(v)
	if err != nil {
		return "", err
	}
	b, err := json.Marshal(env)
	if err != nil {
		return "", errors.Wrap(err, "marshal value")
	}
	return string(b), nil
}

// TypeOf returns the type tag v is stored under.
func TypeOf(v any) (string, error) {
	env, err := encode(v)
	if err != nil {
		return "", err
	}
	return env.Type, nil
}

func encode(v any) (envelope, error) {
	switch t := v.(type) {
	case string:
		return wrap(TypeString, t)
	case bool:
		return wrap(TypeBool, t)
	case int:
		return wrap(TypeInteger, int64(t))
	case int32:
		return wrap(TypeInteger, int64(t))
	case int64:
		return wrap(TypeInteger, t)
	case float64:
		return wrap(TypeFloat, t)
	case time.Time:
		return wrap(TypeTime, timeJSON{Unix: t.Unix(), Nanos: t.Nanosecond()})
	case measure.Measure:
		return wrap(TypeMeasure, measureJSON{Amount: t.Amount, Unit: t.Unit.String()})
	case geotime.Coordinate:
		return wrap(TypeCoord, t)
	case geotime.Offset:
		return wrap(TypeOffset, t.Minutes())
	case value.Link:
		return wrap(TypeLink, t)
	case []geotime.Offset:
		items := make([]any, len(t))
		for i, o := range t {
			items[i] = o
		}
		return encodeList(items)
	case []any:
		return encodeList(t)
	case nil:
		return envelope{}, errors.New("cannot store an empty value")
	default:
		return envelope{}, errors.Wrapf(errors.ErrUnsupportedKind, "cannot store %T", v)
	}
}

func encodeList(items []any) (envelope, error) {
	out := make([]envelope, len(items))
	for i, item := range items {
		env, err := encode(item)
		if err != nil {
			return envelope{}, errors.Wrapf(err, "list item %d", i)
		}
		out[i] = env
	}
	return wrap(TypeList, out)
}

func wrap(typ string, v any) (envelope, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return envelope{}, errors.Wrapf(err, "marshal %s", typ)
	}
	return envelope{Type: typ, Value: b}, nil
}

// DecodeValue reverses EncodeValue.
func DecodeValue(s string) (any, error) {
	var env envelope
	if err := json.Unmarshal([]byte(s), &env); err != nil {
		return nil, errors.Wrap(err, "unmarshal value")
	}
	return decode(env)
}

func decode(env envelope) (any, error) {
	switch env.Type {
	case TypeString:
		var s string
		if err := unmarshal(env, &s); err != nil {
			return nil, err
		}
		return s, nil
	case TypeBool:
		var b bool
		if err := unmarshal(env, &b); err != nil {
			return nil, err
		}
		return b, nil
	case TypeInteger:
		var n json.Number
		dec := json.NewDecoder(bytes.NewReader(env.Value))
		dec.UseNumber()
		if err := dec.Decode(&n); err != nil {
			return nil, errors.Wrap(err, "unmarshal integer")
		}
		i, err := n.Int64()
		if err != nil {
			return nil, errors.Wrap(err, "unmarshal integer")
		}
		return i, nil
	case TypeFloat:
		var f float64
		if err := unmarshal(env, &f); err != nil {
			return nil, err
		}
		return f, nil
	case TypeTime:
		var t timeJSON
		if err := unmarshal(env, &t); err != nil {
			return nil, err
		}
		return time.Unix(t.Unix, int64(t.Nanos)).UTC(), nil
	case TypeMeasure:
		var m measureJSON
		if err := unmarshal(env, &m); err != nil {
			return nil, err
		}
		return measure.Of(m.Amount, m.Unit)
	case TypeCoord:
		var c geotime.Coordinate
		if err := unmarshal(env, &c); err != nil {
			return nil, err
		}
		return c, nil
	case TypeOffset:
		var minutes int
		if err := unmarshal(env, &minutes); err != nil {
			return nil, err
		}
		return geotime.Offset(minutes), nil
	case TypeLink:
		var l value.Link
		if err := unmarshal(env, &l); err != nil {
			return nil, err
		}
		return l, nil
	case TypeList:
		var items []envelope
		if err := unmarshal(env, &items); err != nil {
			return nil, err
		}
		out := make([]any, len(items))
		for i, item := range items {
			v, err := decode(item)
			if err != nil {
				return nil, errors.Wrapf(err, "list item %d", i)
			}
			out[i] = v
		}
		return out, nil
	default:
		return nil, errors.Wrapf(errors.ErrUnsupportedKind, "stored value type %q", env.Type)
	}
}

func unmarshal(env envelope, v any) error {
	return errors.Wrapf(json.Unmarshal(env.Value, v), "unmarshal %s", env.Type)
}
