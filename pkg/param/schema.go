package param

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// Descriptor declares one parameter of a schema.
type Descriptor struct {
	Kind      Kind
	Mandatory bool
	Default   Value
	Doc       string
}

// Mandatory declares a parameter that must be supplied.
func Mandatory(kind Kind) Descriptor {
	return Descriptor{Kind: kind, Mandatory: true}
}

// Optional declares a parameter that falls back to def when absent.
func Optional(kind Kind, def Value) Descriptor {
	return Descriptor{Kind: kind, Default: def}
}

// Describe attaches a one-line description shown by introspection tools.
func (d Descriptor) Describe(doc string) Descriptor {
	d.Doc = doc
	return d
}

func (d Descriptor) String() string {
	if d.Mandatory {
		return fmt.Sprintf("%s (mandatory)", d.Kind)
	}
	return fmt.Sprintf("%s (default %s)", d.Kind, d.Default)
}

// Entry is a named descriptor.
type Entry struct {
	Name string
	Descriptor
}

// Schema is the ordered set of parameters a node accepts.
type Schema struct {
	entries []Entry
}

func NewSchema() Schema { return Schema{} }

// With returns a copy of the schema with the parameter added (or replaced).
func (s Schema) With(name string, d Descriptor) Schema {
	entries := slices.Clone(s.entries)
	for i := range entries {
		if entries[i].Name == name {
			entries[i].Descriptor = d
			return Schema{entries: entries}
		}
	}
	return Schema{entries: append(entries, Entry{Name: name, Descriptor: d})}
}

// Entries returns the parameters in declaration order.
func (s Schema) Entries() []Entry { return slices.Clone(s.entries) }

func (s Schema) Len() int { return len(s.entries) }

func (s Schema) Lookup(name string) (Descriptor, bool) {
	for _, e := range s.entries {
		if e.Name == name {
			return e.Descriptor, true
		}
	}
	return Descriptor{}, false
}

// Validate checks a bag against the schema and fills in defaults.
func (s Schema) Validate(values Values) (Resolved, error) {
	unknown := make([]string, 0)
	for name := range values {
		if _, ok := s.Lookup(name); !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return Resolved{}, &ConfigError{Param: strings.Join(unknown, ","), Err: ErrUnknownParameter}
	}

	resolved := make(Values, len(s.entries))
	for _, e := range s.entries {
		v, ok := values[e.Name]
		if !ok || !v.IsSet() {
			if e.Mandatory {
				return Resolved{}, &ConfigError{Param: e.Name, Err: ErrMissing}
			}
			resolved[e.Name] = e.Default
			continue
		}
		if err := e.Kind.Check(v); err != nil {
			return Resolved{}, &ConfigError{Param: e.Name, Err: err}
		}
		if _, isFloat := e.Kind.(FloatRange); isFloat && v.typ == typeInt {
			v = Float(float64(v.i))
		}
		resolved[e.Name] = v
	}
	return Resolved{values: resolved}, nil
}

func (s Schema) String() string {
	var b strings.Builder
	for i, e := range s.entries {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %s", e.Name, e.Descriptor)
	}
	return b.String()
}

// Resolved is a validated bag with defaults applied.
type Resolved struct {
	values Values
}

func (r Resolved) Int(name string) int64     { return r.values[name].i }
func (r Resolved) Float(name string) float64 { return r.values[name].f }
func (r Resolved) String(name string) string { return r.values[name].s }
func (r Resolved) Bool(name string) bool     { return r.values[name].b }

// Values returns a copy of the resolved bag.
func (r Resolved) Values() Values {
	out := make(Values, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}
