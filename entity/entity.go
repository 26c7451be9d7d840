// Package entity assembles the variables of one real-world thing (a
// country, a city) from observations, and holds the declarative rule
// tables that say how each source field is coerced.
package entity

import (
	"sort"
	"time"

	"github.com/gosimple/slug"

	"github.com/teranos/facts/variable"
)

// Entity owns one Variable per field name. Variables are created on the
// first observation and never merged across names.
type Entity struct {
	Key   string
	Title string

	variables map[string]*variable.Variable
	clock     func() time.Time
}

// Key derives the canonical key of a title: "Kyiv (city)" → "kyiv-city".
func Key(title string) string {
	return slug.Make(title)
}

// New returns an empty entity keyed by its title.
func New(title string) *Entity {
	return &Entity{
		Key:       Key(title),
		Title:     title,
		variables: make(map[string]*variable.Variable),
	}
}

// WithClock freezes "now" for every variable of the entity, existing or
// created later.
func (e *Entity) WithClock(clock func() time.Time) *Entity {
	e.clock = clock
	for _, v := range e.variables {
		v.SetClock(clock)
	}
	return e
}

// Observe appends o to the variable named field, creating it if needed.
func (e *Entity) Observe(field string, o variable.Observation) {
	v, ok := e.variables[field]
	if !ok {
		var opts []variable.Option
		if e.clock != nil {
			opts = append(opts, variable.WithClock(e.clock))
		}
		v = variable.New(field, opts...)
		e.variables[field] = v
	}
	v.Add(o)
}

// Get returns the variable for field.
func (e *Entity) Get(field string) (*variable.Variable, bool) {
	v, ok := e.variables[field]
	return v, ok
}

// Fields lists the entity's variable names in sorted order.
func (e *Entity) Fields() []string {
	out := make([]string, 0, len(e.variables))
	for name := range e.variables {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Current returns the current value of every variable that has one.
func (e *Entity) Current() map[string]any {
	out := make(map[string]any, len(e.variables))
	for name, v := range e.variables {
		if o, ok := v.Current(); ok {
			out[name] = o.Value
		}
	}
	return out
}
