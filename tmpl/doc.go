// Package tmpl compiles token-aware CSS templates.
//
// A template is literal CSS text with two kinds of directives:
//
//	{{ expr }}                 interpolation
//	{% if cond %}              conditional block, optionally followed by
//	{% elseif cond %}          any number of elseif branches,
//	{% else %}                 at most one else branch,
//	{% endif %}                and closed by endif
//
// An interpolation expression is one of
//
//	fields.button_color                 dotted path
//	color_var(fields.text_color)        token resolver call
//	font_size_var("large")              resolver call with a literal name
//	fields.overlay_opacity / 100        path divided by a number
//	height * 0.8                        path multiplied by a number
//
// A condition is an equality test against a literal (== or !=), a bare path
// tested for truthiness, or a conjunction of conditions joined by "and".
//
// Paths are rooted at block_id, fields.<name>, or the name of a derived
// value supplied by the calling block. Hyphenated names such as
// fields.text-color are accepted.
//
// A hyphen just inside a delimiter ({{- -}} and {%- -%}) trims the
// whitespace on that side of the directive.
//
// # Evaluation
//
// Text outside directives is copied verbatim. Exactly one branch of a
// conditional block is emitted; the others are never evaluated. Missing
// fields, unknown derived values and unresolved tokens evaluate to empty
// text and never fail. Only malformed syntax fails, with a [*SyntaxError]
// identifying the directive and its position.
//
// Numbers are written in their shortest decimal form, so 40 / 100 yields
// "0.4".
//
// # Usage
//
//	table := theme.NewTable(map[theme.Category]map[string]string{
//		theme.Color: {"primary": "var(--color-primary)"},
//	})
//	fields := tmpl.NewSchema("text_color").MustBind(map[string]any{
//		"text_color": "primary",
//	})
//	css, err := tmpl.New(table).Compile(ctx, "hero",
//		"#{{ block_id }} { color: {{ color_var(fields.text_color) }}; }",
//		tmpl.NewContext("hero-1", fields))
//	// css == "#hero-1 { color: var(--color-primary); }"
//
// A [Compiler] in strict mode (see [WithStrict]) logs a warning, with a
// suggested correction where one is close, for every value that degraded
// to empty text. [Compiler.Render] returns the same warnings to the caller.
package tmpl
