// Package filesource serves fragments recorded in a local JSON or YAML file.
//
//	- entity: Ukraine
//	  field: area_km2
//	  value: "603,628 km²"
//	  source: wikipedia
//	  time: 2016-04-01
package filesource

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/teranos/facts/entity"
	"github.com/teranos/facts/errors"
	"github.com/teranos/facts/ix"
	"github.com/teranos/facts/value"
)

// Record is one line of a fragment file.
type Record struct {
	Entity string `json:"entity" yaml:"entity"`
	Field  string `json:"field" yaml:"field"`
	Value  any    `json:"value" yaml:"value"`
	Source string `json:"source,omitempty" yaml:"source,omitempty"`
	Time   string `json:"time,omitempty" yaml:"time,omitempty"`
}

// Source holds the fragments of one file, grouped by entity key.
type Source struct {
	name     string
	titles   []string
	byEntity map[string][]ix.Fragment
}

var _ ix.Source = (*Source)(nil)

// Load reads path, choosing the decoder by extension (.json, .yaml, .yml).
func Load(path string) (*Source, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read fragments from %s", path)
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	var records []Record
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		err = json.Unmarshal(data, &records)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &records)
	default:
		return nil, errors.WithHint(
			errors.Newf("unsupported fragment file %s", path),
			"use a .json, .yaml or .yml file")
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s", path)
	}

	src, err := New(name, records)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid fragments in %s", path)
	}
	return src, nil
}

// New builds a source from records. Records without a source are
// attributed to name.
func New(name string, records []Record) (*Source, error) {
	s := &Source{name: name, byEntity: make(map[string][]ix.Fragment)}
	for i, r := range records {
		if strings.TrimSpace(r.Entity) == "" || strings.TrimSpace(r.Field) == "" {
			return nil, errors.Newf("record %d needs entity and field", i+1)
		}
		t, err := parseTime(r.Time)
		if err != nil {
			return nil, errors.Wrapf(err, "record %d (%s.%s)", i+1, r.Entity, r.Field)
		}

		key := entity.Key(r.Entity)
		if _, seen := s.byEntity[key]; !seen {
			s.titles = append(s.titles, r.Entity)
		}
		s.byEntity[key] = append(s.byEntity[key], ix.Fragment{
			Entity: r.Entity,
			Field:  r.Field,
			Raw:    value.FromAny(r.Value),
			Source: r.Source,
			Time:   t,
		})
	}
	return s, nil
}

func (s *Source) Name() string { return s.name }

// Entities lists entity titles in order of first appearance.
func (s *Source) Entities() []string {
	out := make([]string, len(s.titles))
	copy(out, s.titles)
	return out
}

// Fetch returns the fragments recorded for the entity.
func (s *Source) Fetch(ctx context.Context, title string) ([]ix.Fragment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	frags := s.byEntity[entity.Key(title)]
	out := make([]ix.Fragment, len(frags))
	copy(out, frags)
	return out, nil
}

var timeLayouts = []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02", "2006-01", "2006"}

func parseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, errors.Newf("unrecognised time %q", s)
}
