package theme

import (
	"maps"
	"slices"
	"strings"
)

// Category names a group of design tokens.
type Category string

const (
	Color    Category = "color"
	FontSize Category = "font-size"
	Spacing  Category = "spacing"
)

// resolvers maps template function names to the category they look up.
var resolvers = map[string]Category{
	"color_var":     Color,
	"font_size_var": FontSize,
	"spacing_var":   Spacing,
}

// Resolver returns the category looked up by the template function fn.
func Resolver(fn string) (Category, bool) {
	c, ok := resolvers[fn]

	return c, ok
}

// Resolvers returns the sorted names of the template resolver functions.
func Resolvers() []string {
	return slices.Sorted(maps.Keys(resolvers))
}

// ParseCategory normalizes a category name. Common spellings such as
// "colors", "fontSize" and "font_sizes" map to the canonical categories;
// other names are lowercased and returned as-is.
func ParseCategory(s string) Category {
	key := strings.ToLower(strings.NewReplacer("-", "", "_", "", " ", "").Replace(s))

	switch key {
	case "color", "colors", "palette":
		return Color
	case "fontsize", "fontsizes":
		return FontSize
	case "spacing", "spacings", "spacingsize", "spacingsizes":
		return Spacing
	default:
		return Category(strings.ToLower(strings.TrimSpace(s)))
	}
}

// Table is an immutable mapping from category to token name to CSS value.
// A nil *Table is empty.
type Table struct {
	tokens map[Category]map[string]string
}

// NewTable returns a Table holding a copy of tokens.
func NewTable(tokens map[Category]map[string]string) *Table {
	t := &Table{tokens: make(map[Category]map[string]string, len(tokens))}

	for c, names := range tokens {
		if len(names) > 0 {
			t.tokens[c] = maps.Clone(names)
		}
	}

	return t
}

// Lookup returns the CSS value of token name in category c.
func (t *Table) Lookup(c Category, name string) (string, bool) {
	if t == nil {
		return "", false
	}

	v, ok := t.tokens[c][name]

	return v, ok
}

// Resolve looks up name in the category of resolver function fn.
// It reports false when fn is not a resolver or the token is undefined.
func (t *Table) Resolve(fn, name string) (string, bool) {
	c, ok := Resolver(fn)
	if !ok {
		return "", false
	}

	return t.Lookup(c, name)
}

// ColorVar returns the CSS value of color token name, or "" if undefined.
func (t *Table) ColorVar(name string) string {
	v, _ := t.Lookup(Color, name)

	return v
}

// FontSizeVar returns the CSS value of font-size token name, or "".
func (t *Table) FontSizeVar(name string) string {
	v, _ := t.Lookup(FontSize, name)

	return v
}

// SpacingVar returns the CSS value of spacing token name, or "".
func (t *Table) SpacingVar(name string) string {
	v, _ := t.Lookup(Spacing, name)

	return v
}

// Names returns the sorted token names defined in category c.
func (t *Table) Names(c Category) []string {
	if t == nil {
		return nil
	}

	return slices.Sorted(maps.Keys(t.tokens[c]))
}

// Categories returns the sorted categories that define at least one token.
func (t *Table) Categories() []Category {
	if t == nil {
		return nil
	}

	return slices.Sorted(maps.Keys(t.tokens))
}

// Len returns the total number of tokens.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}

	n := 0
	for _, names := range t.tokens {
		n += len(names)
	}

	return n
}

// Map returns a copy of the table contents.
func (t *Table) Map() map[Category]map[string]string {
	out := map[Category]map[string]string{}

	if t == nil {
		return out
	}

	for c, names := range t.tokens {
		out[c] = maps.Clone(names)
	}

	return out
}

// Merge returns a new Table with the tokens of t overlaid by those of
// other.
func (t *Table) Merge(other *Table) *Table {
	merged := t.Map()

	for c, names := range other.Map() {
		if merged[c] == nil {
			merged[c] = map[string]string{}
		}

		maps.Copy(merged[c], names)
	}

	return NewTable(merged)
}
