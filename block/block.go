package block

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"strings"

	"github.com/ardnew/blockcss/theme"
	"github.com/ardnew/blockcss/tmpl"
)

// Predefined errors (sentinel values).
var (
	ErrInvalidOption     = tmpl.NewError("invalid option")
	ErrInvalidDefinition = tmpl.NewError("invalid block definition")
	ErrUnknownBlock      = tmpl.NewError("unknown block")
	ErrReadDefinition    = tmpl.NewError("failed to read block definition")
)

// Kind is the value type of a field.
type Kind string

const (
	KindString Kind = "string"
	KindNumber Kind = "number"
	KindBool   Kind = "bool"
)

// FieldSpec declares one field of a block.
type FieldSpec struct {
	Name    string         `yaml:"name"              json:"name"`
	Label   string         `yaml:"label,omitempty"   json:"label,omitempty"`
	Kind    Kind           `yaml:"kind,omitempty"    json:"kind,omitempty"`
	Default any            `yaml:"default,omitempty" json:"default,omitempty"`
	Options []string       `yaml:"options,omitempty" json:"options,omitempty"`
	Tokens  theme.Category `yaml:"tokens,omitempty"  json:"tokens,omitempty"`
}

// DeriveFunc computes derived values from bound fields before rendering.
type DeriveFunc func(fields tmpl.Fields, table *theme.Table) map[string]tmpl.Value

// Definition describes a block type.
type Definition struct {
	Name     string      `yaml:"name"              json:"name"`
	Title    string      `yaml:"title,omitempty"   json:"title,omitempty"`
	Fields   []FieldSpec `yaml:"fields"            json:"fields"`
	Template string      `yaml:"template"          json:"template"`
	// Derived maps derived value names to templates evaluated, in name
	// order, before the block template. Each sees the values derived
	// before it.
	Derived map[string]string `yaml:"derived,omitempty" json:"derived,omitempty"`
	// Derive runs after Derived and may override its values.
	Derive DeriveFunc `yaml:"-" json:"-"`
}

// Clone returns a deep copy of d. Field options and default values are not
// shared with d.
func (d *Definition) Clone() *Definition {
	c := *d
	c.Derived = maps.Clone(d.Derived)
	c.Fields = make([]FieldSpec, len(d.Fields))

	for i, f := range d.Fields {
		f.Options = slices.Clone(f.Options)
		f.Default = cloneValue(f.Default)
		c.Fields[i] = f
	}

	return &c
}

func cloneValue(v any) any {
	switch v := v.(type) {
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = cloneValue(e)
		}

		return out

	case map[string]any:
		out := make(map[string]any, len(v))
		for k, e := range v {
			out[k] = cloneValue(e)
		}

		return out
	}

	return v
}

// Schema returns the enumerated field names of the block.
func (d *Definition) Schema() tmpl.Schema {
	names := make([]string, len(d.Fields))
	for i, f := range d.Fields {
		names[i] = f.Name
	}

	return tmpl.NewSchema(names...)
}

// Field returns the spec of field name.
func (d *Definition) Field(name string) (FieldSpec, bool) {
	i := slices.IndexFunc(d.Fields, func(f FieldSpec) bool { return f.Name == name })
	if i < 0 {
		return FieldSpec{}, false
	}

	return d.Fields[i], true
}

// Validate checks field names, kinds and defaults.
func (d *Definition) Validate(table *theme.Table) error {
	if strings.TrimSpace(d.Name) == "" {
		return ErrInvalidDefinition.Wrapf("missing name")
	}

	seen := map[string]bool{}

	for _, f := range d.Fields {
		if f.Name == "" {
			return ErrInvalidDefinition.Wrapf("%s: field without name", d.Name)
		}

		if seen[f.Name] {
			return ErrInvalidDefinition.Wrapf("%s: duplicate field %q", d.Name, f.Name)
		}

		seen[f.Name] = true

		switch f.Kind {
		case "", KindString, KindNumber, KindBool:
		default:
			return ErrInvalidDefinition.Wrapf("%s.%s: unknown kind %q", d.Name, f.Name, f.Kind)
		}

		if f.Default != nil {
			if _, err := f.Coerce(table, f.Default); err != nil {
				return ErrInvalidDefinition.Wrapf("%s.%s: default: %w", d.Name, f.Name, err)
			}
		}
	}

	for name := range d.Derived {
		if name == tmpl.RootBlockID || name == tmpl.RootFields ||
			name == "" || strings.ContainsAny(name, ". ") {
			return ErrInvalidDefinition.Wrapf("%s: invalid derived name %q", d.Name, name)
		}
	}

	return nil
}

// Bind applies defaults to values, validates them against the field specs
// and returns the typed fields.
func (d *Definition) Bind(table *theme.Table, values map[string]any) (tmpl.Fields, error) {
	schema := d.Schema()
	bound := make(map[string]any, len(d.Fields))

	for name := range values {
		if !schema.Has(name) {
			return tmpl.Fields{}, tmpl.ErrUnknownField.With(
				slog.String("block", d.Name),
				slog.String("field", name))
		}
	}

	for _, f := range d.Fields {
		raw, ok := values[f.Name]
		if !ok || raw == nil {
			raw = f.Default
		}

		if raw == nil {
			continue
		}

		v, err := f.Coerce(table, raw)
		if err != nil {
			return tmpl.Fields{}, err
		}

		bound[f.Name] = v
	}

	return schema.Bind(bound)
}

// Coerce converts raw to the kind of the field and checks it against the
// option set and token category.
func (f FieldSpec) Coerce(table *theme.Table, raw any) (tmpl.Value, error) {
	v, ok := tmpl.ValueOf(raw)
	if !ok {
		return tmpl.Absent, tmpl.ErrInvalidValue.With(
			slog.String("field", f.Name),
			slog.String("type", fmt.Sprintf("%T", raw)))
	}

	switch f.Kind {
	case KindNumber:
		n, ok := v.Float()
		if !ok {
			return tmpl.Absent, tmpl.ErrInvalidValue.Wrapf("%s: %q is not a number", f.Name, v.Text())
		}

		v = tmpl.NumberValue(n)

	case KindBool:
		if v.Kind() != tmpl.KindBool {
			b, err := strconv.ParseBool(strings.TrimSpace(v.Text()))
			if err != nil {
				return tmpl.Absent, tmpl.ErrInvalidValue.Wrapf("%s: %q is not a boolean", f.Name, v.Text())
			}

			v = tmpl.BoolValue(b)
		}

	default:
		v = tmpl.StringValue(v.Text())
	}

	if len(f.Options) > 0 && !slices.Contains(f.Options, v.Text()) {
		return tmpl.Absent, ErrInvalidOption.Wrapf("%s: %q not in %v", f.Name, v.Text(), f.Options)
	}

	if f.Tokens != "" && table != nil && v.Text() != "" {
		if _, ok := table.Lookup(f.Tokens, v.Text()); !ok {
			return tmpl.Absent, ErrInvalidOption.Wrapf("%s: no %s token %q", f.Name, f.Tokens, v.Text())
		}
	}

	return v, nil
}
