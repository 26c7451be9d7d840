// Package variable models the history of one field of one entity: every
// timestamped, sourced observation of it, queried by time and source.
//
// A Variable is append-only and not safe for concurrent writers. Callers
// with several producers for one entity must serialise Add.
package variable

import (
	"sort"
	"time"
)

// Observation is one sourced assertion of a field's value at a time.
// Date-only observations use midnight UTC so that every observation in a
// Variable is indexed by the same kind of timestamp.
type Observation struct {
	ID     string    `json:"id,omitempty"`
	Time   time.Time `json:"time"`
	Value  any       `json:"value"`
	Source string    `json:"source,omitempty"`
}

// Variable is the ordered collection of observations for one field.
//
// Ordering is by Time; observations with equal timestamps keep insertion
// order, and At resolves such ties to the one added last.
type Variable struct {
	Name string

	obs    []Observation
	sorted []Observation
	clock  func() time.Time
}

// Option configures a Variable.
type Option func(*Variable)

// WithClock replaces time.Now as the source of "now" for Current.
func WithClock(clock func() time.Time) Option {
	return func(v *Variable) { v.clock = clock }
}

// New returns an empty variable.
func New(name string, opts ...Option) *Variable {
	v := &Variable{Name: name, clock: time.Now}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// SetClock replaces the source of "now" after construction.
func (v *Variable) SetClock(clock func() time.Time) {
	v.clock = clock
}

// Add appends an observation.
func (v *Variable) Add(o Observation) {
	v.obs = append(v.obs, o)
	v.sorted = nil
}

// Len is the number of observations.
func (v *Variable) Len() int {
	return len(v.obs)
}

// Observations returns a copy of the observations ordered by time.
func (v *Variable) Observations() []Observation {
	s := v.ordered()
	out := make([]Observation, len(s))
	copy(out, s)
	return out
}

// Values returns the observed values ordered by time.
func (v *Variable) Values() []any {
	s := v.ordered()
	out := make([]any, len(s))
	for i, o := range s {
		out[i] = o.Value
	}
	return out
}

// Sources lists distinct sources in order of first appearance by time.
func (v *Variable) Sources() []string {
	seen := make(map[string]bool)
	var out []string
	for _, o := range v.ordered() {
		if !seen[o.Source] {
			seen[o.Source] = true
			out = append(out, o.Source)
		}
	}
	return out
}

// Before returns the observations strictly before t.
func (v *Variable) Before(t time.Time) *Variable {
	return v.filter(func(o Observation) bool { return o.Time.Before(t) })
}

// After returns the observations at or after t.
func (v *Variable) After(t time.Time) *Variable {
	return v.filter(func(o Observation) bool { return !o.Time.Before(t) })
}

// Between returns the observations in [from, to).
func (v *Variable) Between(from, to time.Time) *Variable {
	return v.filter(func(o Observation) bool { return !o.Time.Before(from) && o.Time.Before(to) })
}

// From returns the observations reported by source.
func (v *Variable) From(source string) *Variable {
	return v.filter(func(o Observation) bool { return o.Source == source })
}

// At returns the best known observation as of t: the latest one whose time
// is not after t. It is not an exact-match lookup.
func (v *Variable) At(t time.Time) (Observation, bool) {
	s := v.ordered()
	i := sort.Search(len(s), func(i int) bool { return s[i].Time.After(t) })
	if i == 0 {
		return Observation{}, false
	}
	return s[i-1], true
}

// Current is At(now). A zero Variable uses time.Now.
func (v *Variable) Current() (Observation, bool) {
	clock := v.clock
	if clock == nil {
		clock = time.Now
	}
	return v.At(clock())
}

// Latest returns the most recent observation, even one dated in the future.
func (v *Variable) Latest() (Observation, bool) {
	s := v.ordered()
	if len(s) == 0 {
		return Observation{}, false
	}
	return s[len(s)-1], true
}

// filter builds a sub-view sharing name and clock. Sub-views are
// independent variables; adding to one does not affect the other.
func (v *Variable) filter(keep func(Observation) bool) *Variable {
	sub := &Variable{Name: v.Name, clock: v.clock}
	for _, o := range v.ordered() {
		if keep(o) {
			sub.obs = append(sub.obs, o)
		}
	}
	sub.sorted = sub.obs
	return sub
}

func (v *Variable) ordered() []Observation {
	if v.sorted == nil && len(v.obs) > 0 {
		s := make([]Observation, len(v.obs))
		copy(s, v.obs)
		sort.SliceStable(s, func(i, j int) bool { return s[i].Time.Before(s[j].Time) })
		v.sorted = s
	}
	return v.sorted
}
