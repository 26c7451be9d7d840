package commands

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/teranos/facts/am"
	"github.com/teranos/facts/coerce"
	"github.com/teranos/facts/errors"
	"github.com/teranos/facts/geotime"
	"github.com/teranos/facts/ix"
	"github.com/teranos/facts/measure"
	"github.com/teranos/facts/store"
	"github.com/teranos/facts/value"
)

const rulesTOML = `
[[rule]]
field = "population"
kind = "integer"

[[rule]]
field = "area_km2"
target = "area"
kind = "measure"
unit = "km²"

[[rule]]
field = "capital"
kind = "entity"
namespace = "wikipedia"
`

const fragmentsYAML = `
- entity: Ukraine
  field: population
  value: "42,418,235"
  source: wikipedia
  time: "2015-01-01"
- entity: Ukraine
  field: population
  value: 42760516
  source: census
  time: "2016-01-01"
- entity: Ukraine
  field: area_km2
  value: "603,628"
  source: wikipedia
  time: "2015-01-01"
- entity: Poland
  field: capital
  value: Warsaw
  source: wikidata
  time: "2016-01-01"
- entity: Poland
  field: anthem
  value: Mazurek Dąbrowskiego
  source: wikidata
`

var english = formatter{tag: language.English}

// workspace writes a rule table and a fragment file and returns a config
// whose database lives in the same temp dir.
func workspace(t *testing.T) (*am.Config, ixOptions) {
	t.Helper()
	dir := t.TempDir()
	rules := filepath.Join(dir, "rules.toml")
	frags := filepath.Join(dir, "fragments.yaml")
	require.NoError(t, os.WriteFile(rules, []byte(rulesTOML), am.DefaultFilePermissions))
	require.NoError(t, os.WriteFile(frags, []byte(fragmentsYAML), am.DefaultFilePermissions))

	cfg := &am.Config{
		Database: am.DatabaseConfig{Path: filepath.Join(dir, "facts.db")},
		Ingest:   am.IngestConfig{Workers: 2, RulesPath: rules, TimeoutSeconds: 30},
		Format:   am.FormatConfig{Locale: "en"},
	}
	return cfg, ixOptions{files: []string{frags}, rulesPath: rules}
}

type event struct {
	Type string                 `json:"type"`
	Data map[string]interface{} `json:"data"`
}

func events(t *testing.T, buf *bytes.Buffer) []event {
	t.Helper()
	var out []event
	sc := bufio.NewScanner(buf)
	for sc.Scan() {
		var e event
		require.NoError(t, json.Unmarshal(sc.Bytes(), &e))
		out = append(out, e)
	}
	return out
}

func infoMessages(evs []event) []string {
	var out []string
	for _, e := range evs {
		if e.Type == "info" {
			out = append(out, e.Data["message"].(string))
		}
	}
	return out
}

func TestFormatterValue(t *testing.T) {
	kyiv, err := geotime.NewCoordinate(50.45, 30.5233)
	require.NoError(t, err)

	tests := []struct {
		name string
		in   any
		want string
	}{
		{"nil", nil, "-"},
		{"measure", measure.MustOf(603628, "km²"), "603,628 km²"},
		{"integer", int64(42418235), "42,418,235"},
		{"huge integer", int64(1<<62 + 1), "4611686018427387905"},
		{"float", 3.25, "3.25"},
		{"date", time.Date(2016, 4, 1, 0, 0, 0, 0, time.UTC), "2016-04-01"},
		{"instant", time.Date(2016, 4, 1, 10, 30, 0, 0, time.UTC), "2016-04-01T10:30:00Z"},
		{"bce", time.Date(-43, time.March, 15, 0, 0, 0, 0, time.UTC), "March 15 44 BCE"},
		{"coordinate", kyiv, "50°27′0″N, 30°31′24″E"},
		{"offset", geotime.Offset(345), "UTC+05:45"},
		{"link", value.NewLink("wikipedia", "Kyiv"), value.NewLink("wikipedia", "Kyiv").String()},
		{"list", []any{geotime.Offset(120), geotime.Offset(180)}, "UTC+02:00, UTC+03:00"},
		{"string", "Kyiv", "Kyiv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, english.value(tt.in))
		})
	}

	assert.Equal(t, "603.628 km^2", formatter{tag: language.German, ascii: true}.value(measure.MustOf(603628, "km²")))
}

func TestRunParse(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, runParse(&buf, english, "603,628", "area_km2", "text"))
	assert.Equal(t, "603,628 km² (measure)\n", buf.String())

	buf.Reset()
	require.NoError(t, runParse(&buf, english, "$104 billion", "", "json"))
	var out map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &out))
	assert.Equal(t, "$104 billion", out["input"])
	assert.Equal(t, store.TypeMeasure, out["type"])
	assert.Equal(t, "$104,000,000,000", out["display"])
	assert.Equal(t, map[string]any{"amount": 104e9, "unit": "$"}, out["stored"].(map[string]any)["value"])

	buf.Reset()
	require.NoError(t, runParse(&buf, english, "111 times", "", "text"))
	assert.Equal(t, "111 times (string)\n", buf.String())
}

func TestRunCoerce(t *testing.T) {
	engine := coerce.New()

	var buf bytes.Buffer
	raw := value.FromAny([]string{"UTC+2", "UTC+3"})
	require.NoError(t, runCoerce(&buf, english, engine, raw, coerce.Descriptor{Kind: coerce.KindOffset, List: true}, "text"))
	assert.Equal(t, "UTC+02:00, UTC+03:00 (list)\n", buf.String())

	buf.Reset()
	require.NoError(t, runCoerce(&buf, english, engine, value.Text("Eastern"), coerce.Descriptor{Kind: coerce.KindOffset}, "text"))
	assert.Equal(t, "no value\n", buf.String())

	err := runCoerce(&buf, english, engine, value.Text("42"), coerce.Descriptor{Kind: coerce.KindMeasure, Label: "length"}, "text")
	require.Error(t, err)
	assert.True(t, errors.IsConfigurationError(err))
}

func TestIxAxAndStats(t *testing.T) {
	cfg, opts := workspace(t)
	ctx := context.Background()

	var progress bytes.Buffer
	result, err := runIx(ctx, cfg, opts, ix.NewJSONEmitter(&progress))
	require.NoError(t, err)
	assert.Equal(t, ix.Stats{Fetched: 5, Coerced: 4, Skipped: 1}, ix.Stats{
		Fetched: result.Stats.Fetched, Coerced: result.Stats.Coerced,
		Skipped: result.Stats.Skipped, Failed: result.Stats.Failed,
	})
	msgs := infoMessages(events(t, &progress))
	require.NotEmpty(t, msgs)
	assert.Contains(t, msgs[0], "NO_RULE Poland/anthem")
	assert.Contains(t, msgs[len(msgs)-1], "stored 4 new observations")

	// re-ingesting the same fragments stores nothing new
	progress.Reset()
	_, err = runIx(ctx, cfg, opts, ix.NewJSONEmitter(&progress))
	require.NoError(t, err)
	msgs = infoMessages(events(t, &progress))
	assert.Contains(t, msgs[len(msgs)-1], "stored 0 new observations")

	conn, st, err := openStore(cfg)
	require.NoError(t, err)
	defer conn.Close()
	now := time.Date(2017, 1, 1, 0, 0, 0, 0, time.UTC)

	t.Run("history", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, runAx(ctx, &buf, st, english, axQuery{entity: "Ukraine", field: "population", format: "json", now: now}))
		var rows []map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
		require.Len(t, rows, 2)
		assert.Equal(t, "42,418,235", rows[0]["value"])
		assert.Nil(t, rows[0]["current"])
		assert.Equal(t, "42,760,516", rows[1]["value"])
		assert.Equal(t, "census", rows[1]["source"])
		assert.Equal(t, true, rows[1]["current"])
		assert.Equal(t, store.TypeInteger, rows[1]["type"])
	})

	t.Run("at", func(t *testing.T) {
		at := time.Date(2015, 6, 1, 0, 0, 0, 0, time.UTC)
		var buf bytes.Buffer
		require.NoError(t, runAx(ctx, &buf, st, english, axQuery{entity: "Ukraine", field: "population", format: "json", at: &at, now: now}))
		var rows []map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
		require.Len(t, rows, 1)
		assert.Equal(t, "42,418,235", rows[0]["value"])
	})

	t.Run("source", func(t *testing.T) {
		var buf bytes.Buffer
		err := runAx(ctx, &buf, st, english, axQuery{entity: "Ukraine", field: "population", source: "osm", format: "json", now: now})
		assert.True(t, errors.IsNotFoundError(err))
	})

	t.Run("entity listing", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, runAx(ctx, &buf, st, english, axQuery{entity: "Ukraine", format: "yaml", now: now}))
		assert.Contains(t, buf.String(), "field: area")
		assert.Contains(t, buf.String(), "603,628 km²")
		assert.Contains(t, buf.String(), "field: population")
	})

	t.Run("table", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, runAx(ctx, &buf, st, english, axQuery{entity: "Ukraine", field: "population", format: "table", now: now}))
		out := buf.String()
		assert.Contains(t, out, "Ukraine population")
		assert.Contains(t, out, "42,760,516")
		assert.Contains(t, out, "●")
		assert.Contains(t, out, "1 year ago")
	})

	t.Run("unknown entity", func(t *testing.T) {
		err := runAx(ctx, &bytes.Buffer{}, st, english, axQuery{entity: "Atlantis", format: "json", now: now})
		assert.True(t, errors.IsNotFoundError(err))
	})

	t.Run("stats", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, runDbStats(ctx, &buf, st, dbReport{path: cfg.Database.Path, migrations: []string{"000", "001"}, entities: true, now: now}))
		out := buf.String()
		assert.Contains(t, out, "Entities:       2")
		assert.Contains(t, out, "Observations:   4")
		assert.Contains(t, out, "Migrations:     000, 001")
		assert.Contains(t, out, "Observed:       2015-01-01 to 2016-01-01")
		assert.Contains(t, out, "ukraine")
	})
}

func TestIxDryRun(t *testing.T) {
	cfg, opts := workspace(t)
	opts.dryRun = true
	opts.entities = []string{"Ukraine"}

	var progress bytes.Buffer
	result, err := runIx(context.Background(), cfg, opts, ix.NewJSONEmitter(&progress))
	require.NoError(t, err)
	require.Len(t, result.Entities, 1)
	assert.Equal(t, 3, result.Stats.Coerced)

	_, err = os.Stat(cfg.Database.Path)
	assert.True(t, os.IsNotExist(err))
}

func TestIxRejects(t *testing.T) {
	cfg, opts := workspace(t)
	ctx := context.Background()

	bad := opts
	bad.rulesPath = filepath.Join(t.TempDir(), "missing.toml")
	_, err := runIx(ctx, cfg, bad, ix.NopEmitter{})
	require.Error(t, err)
	assert.Contains(t, strings.Join(errors.GetAllHints(err), " "), "ingest.rules_path")

	bad = opts
	bad.files = nil
	_, err = runIx(ctx, cfg, bad, ix.NopEmitter{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no sources")

	bad = opts
	bad.apis = []string{"worldbank"}
	_, err = runIx(ctx, cfg, bad, ix.NopEmitter{})
	assert.True(t, errors.IsNotFoundError(err))
}

func TestJSONSourceConfig(t *testing.T) {
	cfg := &am.Config{Ingest: am.IngestConfig{RateLimitPerSec: 5, Burst: 3, TimeoutSeconds: 10, UserAgent: "facts-test"}}
	sc := am.SourceConfig{BaseURL: "https://api.example.com", Fields: map[string][]string{"population": {"value"}}}

	jc := jsonSourceConfig(cfg, "wb", sc)
	assert.Equal(t, "wb", jc.Name)
	assert.Equal(t, 5.0, jc.RateLimitPerSec)
	assert.Equal(t, 3, jc.Burst)
	assert.Equal(t, 10*time.Second, jc.Timeout)
	assert.Equal(t, "facts-test", jc.UserAgent)
	assert.Equal(t, sc.Fields, jc.Fields)
}

func TestParseAt(t *testing.T) {
	for in, want := range map[string]time.Time{
		"2016-05-01":           time.Date(2016, 5, 1, 0, 0, 0, 0, time.UTC),
		"2016-05":              time.Date(2016, 5, 1, 0, 0, 0, 0, time.UTC),
		"2016":                 time.Date(2016, 1, 1, 0, 0, 0, 0, time.UTC),
		"2016-05-01T12:00:00Z": time.Date(2016, 5, 1, 12, 0, 0, 0, time.UTC),
	} {
		got, err := parseAt(in)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), in)
	}

	_, err := parseAt("last tuesday")
	require.Error(t, err)
	assert.NotEmpty(t, errors.GetAllHints(err))
}

func TestWriteStructuredRejects(t *testing.T) {
	err := writeStructured(&bytes.Buffer{}, 1, "xml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "xml")
}
