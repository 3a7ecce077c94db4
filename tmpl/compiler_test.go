package tmpl

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ardnew/blockcss/log"
	"github.com/ardnew/blockcss/theme"
)

func testTable() *theme.Table {
	return theme.NewTable(map[theme.Category]map[string]string{
		theme.Color:    {"primary": "var(--color-primary)", "accent": "#f60"},
		theme.FontSize: {"large": "2rem"},
		theme.Spacing:  {"md": "1.5rem", "lg": "3rem"},
	})
}

func testContext(t *testing.T, values map[string]any) Context {
	t.Helper()

	fields, err := SchemaOf(values).Bind(values)
	if err != nil {
		t.Fatal(err)
	}

	return NewContext("hero-1", fields)
}

func compile(t *testing.T, source string, rc Context) string {
	t.Helper()

	out, err := New(testTable()).Compile(context.Background(), t.Name(), source, rc)
	if err != nil {
		t.Fatalf("Compile(%q): %v", source, err)
	}

	return out
}

func TestCompile_EndToEnd(t *testing.T) {
	rc := testContext(t, map[string]any{"text_color": "primary"})

	got := compile(t, "#{{ block_id }} { color: {{ color_var(fields.text_color) }}; }", rc)

	if want := "#hero-1 { color: var(--color-primary); }"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCompile_HyphenatedFields(t *testing.T) {
	rc := testContext(t, map[string]any{
		"col-2":          "accent",
		"heading-1-size": "large",
		"is-in":          true,
	})

	got := compile(t, "{% if fields.is-in %}{{ color_var(fields.col-2) }} "+
		"{{ font_size_var(fields.heading-1-size) }}{% endif %}", rc)

	if want := "#f60 2rem"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestCompile_PassThrough(t *testing.T) {
	for _, src := range []string{
		"",
		"a { color: red; }",
		"@media (max-width: 600px) {\n  .x { margin: 0 }\n}\n",
		"{ } {{ alone",
		"% } { %",
		"#{#id} { }",
		"trailing {",
	} {
		if strings.Contains(src, "{{") {
			continue
		}

		if got := compile(t, src, Context{}); got != src {
			t.Errorf("compile(%q) = %q", src, got)
		}
	}
}

func TestCompile_Interpolation(t *testing.T) {
	rc := testContext(t, map[string]any{
		"overlay_opacity": 40,
		"text_color":      "accent",
		"text-color":      "primary",
		"size":            "large",
		"gap":             "lg",
		"height":          "480",
		"label":           "px",
		"enabled":         true,
	}).WithDerived("height", NumberValue(600))

	tests := []struct {
		src  string
		want string
	}{
		{"{{ fields.overlay_opacity / 100 }}", "0.4"},
		{"calc({{ height }}px * 0.8)", "calc(600px * 0.8)"},
		{"calc({{ height * 0.8 }}px)", "calc(480px)"},
		{"{{ fields.height / 2 }}", "240"},
		{"{{ color_var(fields.text_color) }}", "#f60"},
		{"{{ color_var(fields.text-color) }}", "var(--color-primary)"},
		{"{{ font_size_var(fields.size) }}", "2rem"},
		{"{{ spacing_var(fields.gap) }}", "3rem"},
		{"{{ spacing_var(\"md\") }}", "1.5rem"},
		{"{{ color_var(\"nonexistent-color\") }}", ""},
		{"{{ fields.missing }}", ""},
		{"{{ fields.label / 100 }}", ""},
		{"{{ fields.overlay_opacity / 0 }}", ""},
		{"{{ fields.enabled }}", "true"},
		{"{{ block_id }}", "hero-1"},
		{"{{ 'lit' }}", "lit"},
		{"{{fields.label}}|{{   fields.label   }}", "px|px"},
	}

	for _, tt := range tests {
		t.Run(tt.src, func(t *testing.T) {
			if got := compile(t, tt.src, rc); got != tt.want {
				t.Errorf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestCompile_BranchExclusivity(t *testing.T) {
	const src = "{% if fields.a %}X{% elseif fields.b %}Y{% else %}Z{% endif %}"

	for _, tt := range []struct {
		a, b any
		want string
	}{
		{true, true, "X"},
		{true, false, "X"},
		{false, true, "Y"},
		{false, false, "Z"},
		{"0", "yes", "Y"},
		{"", 0, "Z"},
		{1, nil, "X"},
	} {
		rc := testContext(t, map[string]any{"a": tt.a, "b": tt.b})

		if got := compile(t, src, rc); got != tt.want {
			t.Errorf("a=%v b=%v: got %q, want %q", tt.a, tt.b, got, tt.want)
		}
	}
}

func TestCompile_Conditions(t *testing.T) {
	rc := testContext(t, map[string]any{
		"button_style": "outline",
		"columns":      3,
		"full_height":  true,
		"overlay":      false,
	})

	tests := []struct {
		cond string
		want bool
	}{
		{`fields.button_style == "outline"`, true},
		{`fields.button_style != "outline"`, false},
		{`"outline" == fields.button_style`, true},
		{`fields.columns == 3`, true},
		{`fields.columns == "3"`, true},
		{`fields.columns != 4`, true},
		{`fields.full_height == true`, true},
		{`fields.full_height`, true},
		{`fields.overlay`, false},
		{`fields.missing`, false},
		{`fields.missing == ""`, true},
		{`fields.full_height and fields.button_style == "outline"`, true},
		{`fields.full_height and fields.overlay`, false},
		{`fields.full_height && fields.columns == 3 and block_id`, true},
		{`block_id == "hero-1"`, true},
		{`false_field`, false},
	}

	for _, tt := range tests {
		t.Run(tt.cond, func(t *testing.T) {
			want := "no"
			if tt.want {
				want = "yes"
			}

			src := "{% if " + tt.cond + " %}yes{% else %}no{% endif %}"

			if got := compile(t, src, rc); got != want {
				t.Errorf("got %q, want %q", got, want)
			}
		})
	}
}

func TestCompile_Nested(t *testing.T) {
	const src = `{% if fields.a %}A{% if fields.b %}B{% if fields.c %}C{% else %}c{% endif %}{% endif %}{% else %}-{% endif %}`

	tests := []struct {
		a, b, c bool
		want    string
	}{
		{true, true, true, "ABC"},
		{true, true, false, "ABc"},
		{true, false, true, "A"},
		{false, true, true, "-"},
	}

	for _, tt := range tests {
		rc := testContext(t, map[string]any{"a": tt.a, "b": tt.b, "c": tt.c})

		if got := compile(t, src, rc); got != tt.want {
			t.Errorf("%+v: got %q, want %q", tt, got, tt.want)
		}
	}
}

func TestCompile_FalseBranchNotEvaluated(t *testing.T) {
	const src = "{% if false_field %}{{ fields.undefined_field }}{{ color_var(fields.nope) }}{% endif %}ok"

	var buf bytes.Buffer

	c := New(testTable(), WithStrict(true), WithLogger(log.Make(&buf, log.WithLevel(log.LevelWarn))))

	tp := MustParse("t", src)

	out, warnings := c.Render(context.Background(), tp, Context{})
	if out != "ok" {
		t.Errorf("got %q, want %q", out, "ok")
	}

	if len(warnings) != 0 {
		t.Errorf("false branch raised warnings: %v", warnings)
	}

	if buf.Len() != 0 {
		t.Errorf("false branch logged: %q", buf.String())
	}
}

func TestCompile_Deterministic(t *testing.T) {
	const src = "#{{ block_id }} .x { padding: {{ spacing_var(fields.gap) }}; opacity: {{ fields.o / 100 }}; }"

	rc := testContext(t, map[string]any{"gap": "md", "o": 35})
	c := New(testTable())

	first, err := c.Compile(context.Background(), "d", src, rc)
	if err != nil {
		t.Fatal(err)
	}

	for range 10 {
		again, err := c.Compile(context.Background(), "d", src, rc)
		if err != nil {
			t.Fatal(err)
		}

		if again != first {
			t.Fatalf("output changed: %q != %q", again, first)
		}
	}
}

func TestCompile_WhitespaceControl(t *testing.T) {
	rc := testContext(t, map[string]any{"on": true, "v": "x"})

	tests := []struct {
		src, want string
	}{
		{"a  {{- fields.v -}}  b", "axb"},
		{"a  {{ fields.v -}}  b", "a  xb"},
		{"a\n{%- if fields.on -%}\n  b\n{%- endif %}\nc", "ab\nc"},
		{"  {{- fields.v }}", "x"},
	}

	for _, tt := range tests {
		if got := compile(t, tt.src, rc); got != tt.want {
			t.Errorf("compile(%q) = %q, want %q", tt.src, got, tt.want)
		}
	}
}

func TestCompile_SyntaxErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want error
		line int
		col  int
	}{
		{"unterminated interp", "a {\n  color: {{ fields.x;\n}", ErrUnterminated, 2, 10},
		{"unterminated block", "{% if fields.x", ErrUnterminated, 1, 1},
		{"unclosed if", "x\n{% if fields.x %}y", ErrUnclosedBlock, 2, 1},
		{"unclosed nested", "{% if a %}{% if b %}{% endif %}", ErrUnclosedBlock, 1, 1},
		{"unknown directive", "{% for x in y %}", ErrUnknownDirective, 1, 1},
		{"empty directive", "ab{% %}", ErrUnknownDirective, 1, 3},
		{"endif without if", "{% endif %}", ErrUnexpectedDirective, 1, 1},
		{"else without if", "{% else %}", ErrUnexpectedDirective, 1, 1},
		{"elseif after else", "{% if a %}{% else %}{% elseif b %}{% endif %}", ErrUnexpectedDirective, 1, 21},
		{"duplicate else", "{% if a %}{% else %}{% else %}{% endif %}", ErrUnexpectedDirective, 1, 21},
		{"unknown function", "{{ url_var(fields.x) }}", ErrUnknownFunction, 1, 1},
		{"too many args", "{{ color_var(fields.x, fields.y) }}", ErrExpression, 1, 1},
		{"empty interp", "{{ }}", ErrExpression, 1, 1},
		{"addition", "{{ fields.x + 1 }}", ErrExpression, 1, 1},
		{"number on left", "{{ 100 / fields.x }}", ErrExpression, 1, 1},
		{"or condition", "{% if a or b %}{% endif %}", ErrExpression, 1, 1},
		{"missing condition", "{% if %}{% endif %}", ErrExpression, 1, 1},
		{"bad syntax", "{{ fields. }}", ErrExpression, 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(testTable()).Compile(context.Background(), "t.css", tt.src, Context{})
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}

			var se *SyntaxError
			if !errors.As(err, &se) {
				t.Fatalf("err %T is not a *SyntaxError", err)
			}

			if se.Pos.Line != tt.line || se.Pos.Column != tt.col {
				t.Errorf("position = %s, want %d:%d", se.Pos, tt.line, tt.col)
			}

			if !strings.HasPrefix(err.Error(), "t.css:") {
				t.Errorf("message lacks template name: %q", err.Error())
			}
		})
	}
}

func TestSyntaxError_Snippet(t *testing.T) {
	_, err := Parse("hero", "a {}\nb { {% bogus %} }")

	var se *SyntaxError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v", err)
	}

	want := "  2 | b { {% bogus %} }\n          ^"
	if got := se.Snippet(); got != want {
		t.Errorf("Snippet() =\n%s\nwant\n%s", got, want)
	}

	if se.Directive != "{% bogus %}" {
		t.Errorf("Directive = %q", se.Directive)
	}
}

func TestRender_Warnings(t *testing.T) {
	values := map[string]any{"text_color": "primry", "opacity": "abc"}
	rc := testContext(t, values)

	src := "{{ color_var(fields.text_color) }}{{ fields.text_colr }}{{ fields.opacity / 100 }}" +
		"{% if fields.ful_height %}{% endif %}"

	var buf bytes.Buffer

	c := New(testTable(), WithStrict(true), WithLogger(log.Make(&buf)))

	out, warnings := c.Render(context.Background(), MustParse("w", src), rc)
	if out != "" {
		t.Errorf("out = %q, want empty", out)
	}

	want := []struct {
		kind       WarningKind
		suggestion string
	}{
		{UnresolvedToken, "primary"},
		{MissingValue, "text_color"},
		{NonNumeric, ""},
		{UnknownField, ""},
	}

	if len(warnings) != len(want) {
		t.Fatalf("warnings = %v", warnings)
	}

	for i, w := range want {
		if warnings[i].Kind != w.kind {
			t.Errorf("warning %d kind = %v, want %v", i, warnings[i].Kind, w.kind)
		}

		if w.suggestion != "" && warnings[i].Suggestion != w.suggestion {
			t.Errorf("warning %d suggestion = %q, want %q", i, warnings[i].Suggestion, w.suggestion)
		}
	}

	if !strings.Contains(buf.String(), "unresolved color token") {
		t.Errorf("strict mode did not log: %q", buf.String())
	}
}

func TestExecute_LenientDoesNotLog(t *testing.T) {
	var buf bytes.Buffer

	c := New(testTable(), WithLogger(log.Make(&buf, log.WithLevel(log.LevelTrace))))
	out := c.Execute(context.Background(), MustParse("l", "{{ fields.x }}"), Context{})

	if out != "" {
		t.Errorf("out = %q", out)
	}

	if strings.Contains(buf.String(), "missing value") {
		t.Errorf("lenient compiler logged a warning: %q", buf.String())
	}
}

func TestCompiler_WithCache(t *testing.T) {
	cache := NewCache(log.Logger{})
	c := New(testTable(), WithCache(cache))
	rc := testContext(t, map[string]any{"x": "y"})

	for range 3 {
		out, err := c.Compile(context.Background(), "c", "{{ fields.x }}", rc)
		if err != nil || out != "y" {
			t.Fatalf("Compile() = %q, %v", out, err)
		}
	}

	if cache.Len() != 1 {
		t.Errorf("cache.Len() = %d, want 1", cache.Len())
	}
}
