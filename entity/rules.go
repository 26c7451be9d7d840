package entity

import (
	"sort"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/teranos/facts/coerce"
	"github.com/teranos/facts/errors"
)

// Rule maps one source field to a variable and says how to coerce it.
type Rule struct {
	// Field is the name the source uses.
	Field string
	// Target is the variable name; empty means Field.
	Target    string
	Kind      coerce.Kind
	List      bool
	Unit      string
	Namespace string
	// Parse names a ParseFuncs entry that replaces built-in coercion.
	Parse string
}

// Variable returns the name observations of this rule are stored under.
func (r Rule) Variable() string {
	if r.Target != "" {
		return r.Target
	}
	return r.Field
}

// ParseFuncs holds the custom parsers rule tables can refer to by name.
type ParseFuncs map[string]coerce.ParseFunc

// Descriptor resolves the rule into a coercion descriptor.
func (r Rule) Descriptor(funcs ParseFuncs) (coerce.Descriptor, error) {
	d := coerce.Descriptor{
		Kind:      r.Kind,
		List:      r.List,
		Unit:      r.Unit,
		Namespace: r.Namespace,
		Label:     r.Field,
	}
	if r.Parse != "" {
		fn, ok := funcs[r.Parse]
		if !ok {
			return coerce.Descriptor{}, errors.Wrapf(errors.ErrMissingOption, "field %q: parse func %q is not registered", r.Field, r.Parse)
		}
		d.Parse = fn
	}
	return d, d.Validate()
}

// Rules is an ordered rule table. When several rules name the same field
// the first one wins.
type Rules struct {
	rules   []Rule
	byField map[string]int
}

// NewRules indexes rules by field.
func NewRules(rules ...Rule) *Rules {
	rs := &Rules{rules: rules, byField: make(map[string]int, len(rules))}
	for i, r := range rules {
		if _, dup := rs.byField[r.Field]; !dup {
			rs.byField[r.Field] = i
		}
	}
	return rs
}

// Lookup returns the rule for a source field.
func (rs *Rules) Lookup(field string) (Rule, bool) {
	i, ok := rs.byField[field]
	if !ok {
		return Rule{}, false
	}
	return rs.rules[i], true
}

// All returns the rules in table order.
func (rs *Rules) All() []Rule {
	out := make([]Rule, len(rs.rules))
	copy(out, rs.rules)
	return out
}

// Len is the number of rules.
func (rs *Rules) Len() int {
	return len(rs.rules)
}

// Validate resolves every rule against funcs and reports the first
// configuration error.
func (rs *Rules) Validate(funcs ParseFuncs) error {
	for _, r := range rs.rules {
		if _, err := r.Descriptor(funcs); err != nil {
			return err
		}
	}
	return nil
}

type ruleFile struct {
	Rule []ruleEntry `toml:"rule"`
}

type ruleEntry struct {
	Field     string `toml:"field"`
	Target    string `toml:"target"`
	Kind      string `toml:"kind"`
	List      bool   `toml:"list"`
	Unit      string `toml:"unit"`
	Namespace string `toml:"namespace"`
	Parse     string `toml:"parse"`
}

// LoadRules reads a TOML rule table:
//
//	[[rule]]
//	field = "area_km2"
//	target = "area"
//	kind = "measure"
//	unit = "km²"
func LoadRules(path string) (*Rules, error) {
	var f ruleFile
	md, err := toml.DecodeFile(path, &f)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read rules from %s", path)
	}
	rs, err := buildRules(f, md)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid rules in %s", path)
	}
	return rs, nil
}

// ParseRules decodes a TOML rule table from a string.
func ParseRules(data string) (*Rules, error) {
	var f ruleFile
	md, err := toml.Decode(data, &f)
	if err != nil {
		return nil, errors.Wrap(err, "failed to decode rules")
	}
	return buildRules(f, md)
}

func buildRules(f ruleFile, md toml.MetaData) (*Rules, error) {
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		sort.Strings(keys)
		return nil, errors.WithHint(
			errors.Newf("unknown keys: %s", strings.Join(keys, ", ")),
			"rule keys are field, target, kind, list, unit, namespace and parse")
	}

	rules := make([]Rule, 0, len(f.Rule))
	for i, e := range f.Rule {
		if strings.TrimSpace(e.Field) == "" {
			return nil, errors.Newf("rule %d has no field", i+1)
		}
		kind, err := coerce.ParseKind(e.Kind)
		if err != nil {
			return nil, errors.Wrapf(err, "rule %d (%s)", i+1, e.Field)
		}
		rules = append(rules, Rule{
			Field:     e.Field,
			Target:    e.Target,
			Kind:      kind,
			List:      e.List,
			Unit:      e.Unit,
			Namespace: e.Namespace,
			Parse:     e.Parse,
		})
	}
	return NewRules(rules...), nil
}
