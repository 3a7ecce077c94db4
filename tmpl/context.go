package tmpl

import (
	"log/slog"
	"maps"
	"slices"
)

// Path roots with fixed meaning. Any other single-segment path names a
// derived value.
const (
	RootBlockID = "block_id"
	RootFields  = "fields"
)

// Schema is the enumerated set of field names a block accepts.
// The zero Schema accepts no fields.
type Schema struct {
	names []string
}

// NewSchema returns a Schema permitting the given names.
func NewSchema(names ...string) Schema {
	s := slices.Clone(names)
	slices.Sort(s)

	return Schema{names: slices.Compact(s)}
}

// SchemaOf returns a Schema permitting exactly the keys of values.
func SchemaOf[V any](values map[string]V) Schema {
	return Schema{names: slices.Sorted(maps.Keys(values))}
}

// Has reports whether name is a permitted field.
func (s Schema) Has(name string) bool {
	_, ok := slices.BinarySearch(s.names, name)

	return ok
}

// Names returns the sorted permitted field names.
func (s Schema) Names() []string { return slices.Clone(s.names) }

// Len returns the number of permitted fields.
func (s Schema) Len() int { return len(s.names) }

// Bind validates values against the schema and returns the typed fields.
// Names outside the schema yield [ErrUnknownField]; values that are not
// scalars yield [ErrInvalidValue].
func (s Schema) Bind(values map[string]any) (Fields, error) {
	f := Fields{schema: s, values: make(map[string]Value, len(values))}

	keys := slices.Sorted(maps.Keys(values))

	for _, name := range keys {
		if !s.Has(name) {
			return Fields{}, ErrUnknownField.With(slog.String("field", name))
		}

		v, ok := ValueOf(values[name])
		if !ok {
			return Fields{}, ErrInvalidValue.With(
				slog.String("field", name),
				slog.Any("value", values[name]))
		}

		if !v.IsAbsent() {
			f.values[name] = v
		}
	}

	return f, nil
}

// MustBind is like Bind but panics on error.
func (s Schema) MustBind(values map[string]any) Fields {
	f, err := s.Bind(values)
	if err != nil {
		panic(err)
	}

	return f
}

// Fields holds typed field values bound through a [Schema].
// The zero Fields is empty.
type Fields struct {
	schema Schema
	values map[string]Value
}

// Get returns the value of field name, or [Absent] if it is unset or not
// permitted by the schema.
func (f Fields) Get(name string) Value {
	if v, ok := f.values[name]; ok {
		return v
	}

	return Absent
}

// Schema returns the schema the fields were bound through.
func (f Fields) Schema() Schema { return f.schema }

// Names returns the sorted names of the fields holding a value.
func (f Fields) Names() []string {
	return slices.Sorted(maps.Keys(f.values))
}

// Context is the per-render data a template is evaluated against.
type Context struct {
	BlockID string
	Fields  Fields
	Derived map[string]Value
}

// NewContext returns a Context for the block instance id.
func NewContext(id string, fields Fields) Context {
	return Context{BlockID: id, Fields: fields}
}

// WithDerived returns a copy of c carrying derived value name.
func (c Context) WithDerived(name string, v Value) Context {
	derived := make(map[string]Value, len(c.Derived)+1)
	maps.Copy(derived, c.Derived)
	derived[name] = v
	c.Derived = derived

	return c
}

// Lookup resolves a path. It reports false when the path does not exist.
func (c Context) Lookup(path []string) (Value, bool) {
	switch {
	case len(path) == 1 && path[0] == RootBlockID:
		return StringValue(c.BlockID), true

	case len(path) == 2 && path[0] == RootFields:
		v := c.Fields.Get(path[1])

		return v, !v.IsAbsent()

	case len(path) == 1 && path[0] != RootFields:
		v, ok := c.Derived[path[0]]

		return v, ok && !v.IsAbsent()

	default:
		return Absent, false
	}
}

// candidates returns the names a path could have meant, for suggestions.
func (c Context) candidates(path []string) []string {
	if len(path) > 1 && path[0] == RootFields {
		return c.Fields.schema.Names()
	}

	names := slices.Sorted(maps.Keys(c.Derived))

	return append(names, RootBlockID)
}
