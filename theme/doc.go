// Package theme holds the design-token table consulted by the template
// resolver functions.
//
// A [Table] maps a [Category] (color, font-size, spacing) to semantic token
// names and their CSS values:
//
//	table := theme.NewTable(map[theme.Category]map[string]string{
//		theme.Color: {"primary": "var(--color-primary)"},
//	})
//	table.ColorVar("primary") // "var(--color-primary)"
//	table.ColorVar("nope")    // ""
//
// Tables are immutable after construction and safe for concurrent use.
// [Load] reads either a flat YAML/JSON document or a WordPress theme.json.
package theme
