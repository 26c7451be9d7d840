package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teranos/facts/am"
	"github.com/teranos/facts/coerce"
	"github.com/teranos/facts/errors"
	"github.com/teranos/facts/logger"
	"github.com/teranos/facts/scalar"
	"github.com/teranos/facts/store"
	"github.com/teranos/facts/value"
)

// ParseCmd parses one scalar text value
var ParseCmd = &cobra.Command{
	Use:   "parse <text>",
	Short: "Parse a scalar text value",
	Long: `Parse a scalar text value the way connectors' text is parsed, and print
the typed result.

Examples:
  facts parse "603,628 km²"
  facts parse "$104 billion"
  facts parse "15 March 44 BC"
  facts parse 1999 --label area_km2`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := am.Load()
		if err != nil {
			return err
		}
		return runParse(cmd.OutOrStdout(), newFormatter(cfg), strings.Join(args, " "), parseLabel, parseFormat)
	},
}

// CoerceCmd coerces a value to a declared kind
var CoerceCmd = &cobra.Command{
	Use:   "coerce <text>...",
	Short: "Coerce a value to a declared kind",
	Long: `Coerce a value to a declared kind, as a field rule would.

With --list every argument is one element of a list value; without it the
arguments are joined into one text.

Kinds: string, entity, measure, coord, utc_offset, datetime, date, integer, float

Examples:
  facts coerce "603,628" --kind measure --unit km²
  facts coerce "UTC+2" "UTC+3" --kind utc_offset --list
  facts coerce "[[Kyiv]]" --kind entity --namespace wikipedia`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := am.Load()
		if err != nil {
			return err
		}
		kind, err := coerce.ParseKind(coerceKind)
		if err != nil {
			return err
		}
		d := coerce.Descriptor{
			Kind:      kind,
			List:      coerceList,
			Unit:      coerceUnit,
			Namespace: coerceNamespace,
			Label:     parseLabel,
		}
		var raw value.Raw = value.Text(strings.Join(args, " "))
		if coerceList {
			raw = value.FromAny(args)
		}
		engine := coerce.New(coerce.WithLogger(logger.ComponentLogger("coerce")))
		return runCoerce(cmd.OutOrStdout(), newFormatter(cfg), engine, raw, d, parseFormat)
	},
}

var (
	parseLabel      string
	parseFormat     string
	coerceKind      string
	coerceUnit      string
	coerceNamespace string
	coerceList      bool
)

func init() {
	ParseCmd.Flags().StringVarP(&parseLabel, "label", "l", "", "Field label selecting label-specific rules")
	ParseCmd.Flags().StringVarP(&parseFormat, "format", "f", "text", "Output format (text/json)")

	CoerceCmd.Flags().StringVarP(&coerceKind, "kind", "k", "string", "Target kind")
	CoerceCmd.Flags().StringVarP(&coerceUnit, "unit", "u", "", "Unit for bare numbers (measure kind)")
	CoerceCmd.Flags().StringVar(&coerceNamespace, "namespace", "", "Link source for plain entity names")
	CoerceCmd.Flags().BoolVar(&coerceList, "list", false, "Treat each argument as one list element")
	CoerceCmd.Flags().StringVarP(&parseLabel, "label", "l", "", "Field label selecting label-specific rules")
	CoerceCmd.Flags().StringVarP(&parseFormat, "format", "f", "text", "Output format (text/json)")
}

// parsed is the json form of a parse or coerce result.
type parsed struct {
	Input   string          `json:"input"`
	Type    string          `json:"type,omitempty"`
	Display string          `json:"display,omitempty"`
	Stored  json.RawMessage `json:"stored,omitempty"`
}

func runParse(w io.Writer, f formatter, text, label, format string) error {
	v, err := scalar.Parse(text, label)
	if err != nil {
		return errors.Wrapf(err, "parse %q", text)
	}
	return printParsed(w, f, text, v, format)
}

func runCoerce(w io.Writer, f formatter, engine *coerce.Engine, raw value.Raw, d coerce.Descriptor, format string) error {
	v, err := engine.Coerce(raw, d)
	if err != nil {
		return errors.Wrapf(err, "coerce %s", raw)
	}
	if list, ok := v.([]any); ok && len(list) == 0 {
		v = nil
	}
	return printParsed(w, f, raw.String(), v, format)
}

func printParsed(w io.Writer, f formatter, input string, v any, format string) error {
	out := parsed{Input: input}
	if v != nil {
		typ, err := store.TypeOf(v)
		if err != nil {
			return err
		}
		encoded, err := store.EncodeValue(v)
		if err != nil {
			return err
		}
		out.Type = typ
		out.Display = f.value(v)
		out.Stored = json.RawMessage(encoded)
	}

	if format == "json" {
		return writeStructured(w, out, "json")
	}
	if v == nil {
		fmt.Fprintln(w, "no value")
		return nil
	}
	fmt.Fprintf(w, "%s (%s)\n", out.Display, out.Type)
	return nil
}
