package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"github.com/teranos/facts/am"
	"github.com/teranos/facts/errors"
	"github.com/teranos/facts/geotime"
	"github.com/teranos/facts/measure"
)

// formatter renders coerced values for people, in the configured locale.
type formatter struct {
	tag   language.Tag
	ascii bool
}

func newFormatter(cfg *am.Config) formatter {
	return formatter{tag: cfg.Tag(), ascii: cfg.Format.ASCIIUnits}
}

func (f formatter) value(v any) string {
	switch t := v.(type) {
	case nil:
		return "-"
	case measure.Measure:
		return t.Format(f.tag, f.ascii)
	case int64:
		return f.integer(t)
	case int:
		return f.integer(int64(t))
	case float64:
		return measure.FormatAmount(t, f.tag)
	case time.Time:
		return formatTime(t)
	case geotime.Coordinate:
		return t.DMS()
	case []any:
		parts := make([]string, len(t))
		for i, item := range t {
			parts[i] = f.value(item)
		}
		return strings.Join(parts, ", ")
	case []geotime.Offset:
		parts := make([]string, len(t))
		for i, o := range t {
			parts[i] = o.String()
		}
		return strings.Join(parts, ", ")
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// integer groups digits while the value is exact as a float64.
func (f formatter) integer(n int64) string {
	const exact = 1 << 53
	if n > -exact && n < exact {
		return measure.FormatAmount(float64(n), f.tag)
	}
	return fmt.Sprint(n)
}

// formatTime prints dates without a clock and uses BCE for years before 1.
func formatTime(t time.Time) string {
	t = t.UTC()
	if t.Hour() != 0 || t.Minute() != 0 || t.Second() != 0 || t.Nanosecond() != 0 {
		return t.Format(time.RFC3339)
	}
	if t.Year() < 1 {
		return fmt.Sprintf("%s %d BCE", t.Format("January 2"), 1-t.Year())
	}
	return t.Format("2006-01-02")
}

// writeStructured encodes v as json or yaml.
func writeStructured(w io.Writer, v any, format string) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return errors.Wrap(enc.Encode(v), "encode json")
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return errors.Wrap(err, "encode yaml")
		}
		return errors.Wrap(enc.Close(), "encode yaml")
	default:
		return errors.WithHint(errors.Newf("unknown output format %q", format), "use table, json or yaml")
	}
}
