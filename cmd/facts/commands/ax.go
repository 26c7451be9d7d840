package commands

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/teranos/facts/am"
	"github.com/teranos/facts/entity"
	"github.com/teranos/facts/errors"
	"github.com/teranos/facts/store"
	"github.com/teranos/facts/variable"
)

var (
	axAt     string
	axSource string
	axFormat string
)

// AxCmd represents the ax command
var AxCmd = &cobra.Command{
	Use:   "ax <entity> [field]",
	Short: glyphAX + " Query stored observations",
	Long: glyphAX + ` ax - Query stored observations

With only an entity, lists its fields and their current values. With a
field, lists every observation of it and marks the current one; --at picks
the best known value as of a date.

Examples:
  facts ax Ukraine                         # Current value of every field
  facts ax Ukraine population              # Full history
  facts ax Ukraine population --at 2016-05-01
  facts ax Ukraine population --source census --format json`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := am.Load()
		if err != nil {
			return err
		}
		conn, st, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer conn.Close()

		q := axQuery{entity: args[0], source: axSource, format: axFormat, now: time.Now()}
		if len(args) == 2 {
			q.field = args[1]
		}
		if axAt != "" {
			at, err := parseAt(axAt)
			if err != nil {
				return err
			}
			q.at = &at
		}
		return runAx(cmd.Context(), cmd.OutOrStdout(), st, newFormatter(cfg), q)
	},
}

func init() {
	AxCmd.Flags().StringVar(&axAt, "at", "", "Best known value as of this date (2016-05-01, 2016, RFC 3339)")
	AxCmd.Flags().StringVarP(&axSource, "source", "s", "", "Only observations from this source")
	AxCmd.Flags().StringVarP(&axFormat, "format", "f", "table", "Output format (table/json/yaml)")
}

type axQuery struct {
	entity string
	field  string
	source string
	format string
	at     *time.Time
	now    time.Time
}

// axRow is one observation as printed.
type axRow struct {
	Field   string `json:"field,omitempty" yaml:"field,omitempty"`
	Time    string `json:"time" yaml:"time"`
	Value   string `json:"value" yaml:"value"`
	Type    string `json:"type" yaml:"type"`
	Source  string `json:"source,omitempty" yaml:"source,omitempty"`
	Current bool   `json:"current,omitempty" yaml:"current,omitempty"`

	observed time.Time
}

func runAx(ctx context.Context, w io.Writer, st *store.SQLStore, f formatter, q axQuery) error {
	key := entity.Key(q.entity)
	clock := variable.WithClock(func() time.Time { return q.now })

	var rows []axRow
	if q.field == "" {
		e, err := st.LoadEntity(ctx, key)
		if err != nil {
			return err
		}
		e.WithClock(func() time.Time { return q.now })
		for _, field := range e.Fields() {
			v, _ := e.Get(field)
			if o, ok := pick(v, q); ok {
				rows = append(rows, newRow(f, field, o, true))
			}
		}
	} else {
		v, err := st.LoadVariable(ctx, key, q.field, clock)
		if err != nil {
			return err
		}
		if q.source != "" {
			v = v.From(q.source)
		}
		if q.at != nil {
			if o, ok := v.At(*q.at); ok {
				rows = append(rows, newRow(f, "", o, true))
			}
		} else {
			cur, hasCurrent := v.Current()
			for _, o := range v.Observations() {
				isCurrent := hasCurrent && o.ID == cur.ID && o.Time.Equal(cur.Time)
				rows = append(rows, newRow(f, "", o, isCurrent))
			}
		}
	}

	if len(rows) == 0 {
		return errors.NewNotFoundError("no observations of %s", describe(q))
	}
	if q.format == "table" {
		return renderAxTable(w, rows, q)
	}
	return writeStructured(w, rows, q.format)
}

// pick applies --source and --at to one field of an entity listing.
func pick(v *variable.Variable, q axQuery) (variable.Observation, bool) {
	if q.source != "" {
		v = v.From(q.source)
	}
	if q.at != nil {
		return v.At(*q.at)
	}
	return v.Current()
}

func newRow(f formatter, field string, o variable.Observation, current bool) axRow {
	typ, err := store.TypeOf(o.Value)
	if err != nil {
		typ = fmt.Sprintf("%T", o.Value)
	}
	return axRow{
		Field:    field,
		Time:     formatTime(o.Time),
		Value:    f.value(o.Value),
		Type:     typ,
		Source:   o.Source,
		Current:  current,
		observed: o.Time,
	}
}

func renderAxTable(w io.Writer, rows []axRow, q axQuery) error {
	first := "Field"
	if q.field != "" {
		first = ""
	}
	data := pterm.TableData{{first, "Time", "Value", "Source", "Age"}}
	for _, r := range rows {
		lead := r.Field
		if q.field != "" && r.Current {
			lead = "●"
		}
		data = append(data, []string{lead, r.Time, r.Value, r.Source, humanize.RelTime(r.observed, q.now, "ago", "from now")})
	}

	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return errors.Wrap(err, "render table")
	}
	fmt.Fprintf(w, "%s %s\n\n%s\n", glyphAX, describe(q), out)
	return nil
}

func describe(q axQuery) string {
	parts := []string{q.entity}
	if q.field != "" {
		parts = append(parts, q.field)
	}
	if q.source != "" {
		parts = append(parts, "from "+q.source)
	}
	if q.at != nil {
		parts = append(parts, "at "+formatTime(*q.at))
	}
	return strings.Join(parts, " ")
}

var atLayouts = []string{time.RFC3339, "2006-01-02", "2006-01", "2006"}

func parseAt(s string) (time.Time, error) {
	for _, layout := range atLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.WithHint(
		errors.Newf("cannot read date %q", s),
		"use 2016-05-01, 2016-05, 2016 or an RFC 3339 timestamp")
}
