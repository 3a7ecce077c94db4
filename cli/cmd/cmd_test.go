package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/ardnew/blockcss/pkg"
)

type runner interface {
	Run(ctx context.Context) error
}

// run executes c with stdin as standard input and returns what it wrote.
func run(t *testing.T, c runner, stdin string, env Env) (string, error) {
	t.Helper()

	var out bytes.Buffer

	env.Stdin = strings.NewReader(stdin)
	env.Stdout = &out

	err := c.Run(WithEnv(context.Background(), env))

	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	return path
}

func TestParseAssignments(t *testing.T) {
	got, err := parseAssignments([]string{
		"a=1", "b=true", "c=primary", "d=1.5", " e =x=y", "f=",
	})
	if err != nil {
		t.Fatal(err)
	}

	want := map[string]any{
		"b": true, "c": "primary", "d": 1.5, "e": "x=y", "f": "",
	}

	// Integers decode as int64 or uint64 depending on sign.
	if _, isText := got["a"].(string); isText || fmt.Sprint(got["a"]) != "1" {
		t.Errorf("a = %#v, want integer 1", got["a"])
	}

	for k, v := range want {
		if got[k] != v {
			t.Errorf("%s = %#v, want %#v", k, got[k], v)
		}
	}

	for _, bad := range []string{"novalue", "=1"} {
		if _, err := parseAssignments([]string{bad}); !errors.Is(err, pkg.ErrInvalidAssignment) {
			t.Errorf("parseAssignments(%q) err = %v", bad, err)
		}
	}
}

func TestValueFlags(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "fields.yaml", "color: primary\nsize: 3\n")

	f := valueFlags{Fields: path, Set: []string{"fields.size=4", "extra=on"}}

	got, err := f.values(context.Background(), envFrom(context.Background()))
	if err != nil {
		t.Fatal(err)
	}

	if got["color"] != "primary" || fmt.Sprint(got["size"]) != "4" || got["extra"] != "on" {
		t.Errorf("values = %v", got)
	}

	bad := valueFlags{Fields: writeFile(t, dir, "bad.yaml", "- a\n- b\n")}
	if _, err := bad.values(context.Background(), envFrom(context.Background())); !errors.Is(err, pkg.ErrParse) {
		t.Errorf("list fields file err = %v", err)
	}
}

func TestUniqueSources(t *testing.T) {
	dir := t.TempDir()
	a := writeFile(t, dir, "a.css", "a")
	b := writeFile(t, dir, "b.css", "b")

	link := filepath.Join(dir, "link.css")
	if err := os.Symlink(a, link); err != nil {
		t.Skip("symlinks unsupported:", err)
	}

	missing := filepath.Join(dir, "missing.css")

	got := uniqueSources([]string{a, "-", link, b, "-", a, missing})
	want := []string{a, "-", b, missing}

	if !slices.Equal(got, want) {
		t.Errorf("uniqueSources = %v, want %v", got, want)
	}
}

func TestEnv_ReadSource(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "t.css", "from include")

	env := Env{Include: []string{dir}, Stdin: strings.NewReader("from stdin")}

	if got, err := env.readSource("-"); err != nil || got != "from stdin" {
		t.Errorf("stdin = %q, %v", got, err)
	}

	if got, err := env.readSource("t.css"); err != nil || got != "from include" {
		t.Errorf("include = %q, %v", got, err)
	}

	if _, err := env.readSource("nope.css"); !errors.Is(err, pkg.ErrNotFound) {
		t.Errorf("missing err = %v", err)
	}
}

func TestCompile(t *testing.T) {
	c := &Compile{
		valueFlags: valueFlags{Set: []string{"c=primary", "show=false"}},
		Derive:     []string{"gap=2rem"},
		BlockID:    "x",
		Template:   "-",
	}

	src := `#{{ block_id }} { color: {{ color_var(fields.c) }}; gap: {{ gap }};` +
		`{% if fields.show %} display: none;{% endif %} }`

	got, err := run(t, c, src, Env{})
	if err != nil {
		t.Fatal(err)
	}

	if want := "#x { color: var(--wp--preset--color--primary); gap: 2rem; }"; got != want {
		t.Errorf("compile = %q, want %q", got, want)
	}

	c.BlockID = ""

	got, err = run(t, c, "{{ block_id }}", Env{})
	if err != nil || !strings.HasPrefix(got, "b") || len(got) != 13 {
		t.Errorf("generated id = %q, %v", got, err)
	}

	if _, err := run(t, c, "{% if fields.c %}", Env{}); err == nil {
		t.Error("unclosed block compiled")
	}
}

func TestCompile_Tokens(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "tokens.yaml", "color:\n  primary: \"#123456\"\n")

	c := &Compile{
		valueFlags: valueFlags{Set: []string{"c=primary"}},
		BlockID:    "x",
		Template:   "-",
	}

	got, err := run(t, c, "{{ color_var(fields.c) }}", Env{Include: []string{dir}, Tokens: "tokens.yaml"})
	if err != nil || got != "#123456" {
		t.Errorf("compile = %q, %v", got, err)
	}

	_, err = run(t, c, "", Env{Tokens: filepath.Join(dir, "missing.yaml")})
	if !errors.Is(err, pkg.ErrNotFound) {
		t.Errorf("missing token table err = %v", err)
	}
}

func TestRender(t *testing.T) {
	r := &Render{
		valueFlags: valueFlags{Set: []string{"button_style=outline"}},
		BlockID:    "c1",
		Style:      true,
		Block:      "cta",
	}

	got, err := run(t, r, "", Env{})
	if err != nil {
		t.Fatal(err)
	}

	if !strings.HasPrefix(got, "<style id=\"c1-css\">\n#c1 {") || !strings.HasSuffix(got, "</style>\n") {
		t.Errorf("render = %q", got)
	}

	if !strings.Contains(got, "background-color: transparent;") {
		t.Errorf("outline branch missing:\n%s", got)
	}

	if _, err := run(t, &Render{}, "", Env{}); !errors.Is(err, ErrMissingBlock) {
		t.Errorf("no block err = %v", err)
	}

	if _, err := run(t, &Render{Block: "nope"}, "", Env{}); !errors.Is(err, ErrRenderFailed) {
		t.Errorf("unknown block err = %v", err)
	}
}

func TestRender_Batch(t *testing.T) {
	batch := `
- block: cta
  id: first
- block: hero
  id: second
  fields:
    full_height: true
`

	got, err := run(t, &Render{Batch: "-"}, batch, Env{})
	if err != nil {
		t.Fatal(err)
	}

	first, second := strings.Index(got, "#first "), strings.Index(got, "#second ")
	if first < 0 || second < first {
		t.Errorf("batch output out of order:\n%s", got)
	}

	if !strings.Contains(got, "min-height: 100vh;") {
		t.Errorf("hero field not applied:\n%s", got)
	}

	if _, err := run(t, &Render{Batch: "-"}, "- blok: cta\n", Env{}); !errors.Is(err, pkg.ErrParse) {
		t.Errorf("unknown batch key err = %v", err)
	}
}

func TestTokens(t *testing.T) {
	got, err := run(t, &Tokens{Format: "json", Indent: 2}, "", Env{})
	if err != nil {
		t.Fatal(err)
	}

	var v map[string]map[string]string
	if err := json.Unmarshal([]byte(got), &v); err != nil {
		t.Fatalf("invalid JSON %q: %v", got, err)
	}

	if v["color"]["white"] != "#ffffff" {
		t.Errorf("color.white = %q", v["color"]["white"])
	}

	if _, err := run(t, &Tokens{Format: "toml"}, "", Env{}); !errors.Is(err, ErrInvalidFormat) {
		t.Errorf("bad format err = %v", err)
	}
}

func TestFmt(t *testing.T) {
	got, err := run(t, &Fmt{Template: "-"}, "{%if fields.a%}{{fields.a}}{%endif%}", Env{})
	if err != nil {
		t.Fatal(err)
	}

	if want := "{% if fields.a %}{{ fields.a }}{% endif %}"; got != want {
		t.Errorf("fmt = %q, want %q", got, want)
	}

	path := writeFile(t, t.TempDir(), "t.css", "a {{fields.b}}")

	if _, err := run(t, &Fmt{Template: path, Write: true}, "", Env{}); err != nil {
		t.Fatal(err)
	}

	if data, _ := os.ReadFile(path); string(data) != "a {{ fields.b }}" {
		t.Errorf("rewritten file = %q", data)
	}

	got, err = run(t, &Fmt{Template: "-", AST: true}, "{{ fields.b }}", Env{})
	if err != nil || !strings.HasPrefix(got, `template "<stdin>"`) {
		t.Errorf("ast = %q, %v", got, err)
	}
}

func TestCheck(t *testing.T) {
	dir := t.TempDir()
	good := writeFile(t, dir, "good.css", "{{ fields.a }}")
	bad := writeFile(t, dir, "bad.css", "{% if fields.a %}")

	got, err := run(t, &Check{Templates: []string{good}}, "", Env{})
	if err != nil || got != "" {
		t.Errorf("good = %q, %v", got, err)
	}

	got, err = run(t, &Check{Jobs: 1, Templates: []string{good, bad, good}}, "", Env{})
	if !errors.Is(err, pkg.ErrCheckFailed) {
		t.Errorf("bad err = %v", err)
	}

	if !strings.HasPrefix(got, bad+":") || strings.Contains(got, good) {
		t.Errorf("bad output = %q", got)
	}

	got, err = run(t, &Check{}, "", Env{})
	if err != nil || got != "ok: 3 blocks\n" {
		t.Errorf("blocks = %q, %v", got, err)
	}
}

func TestBlocks(t *testing.T) {
	got, err := run(t, &Blocks{Format: "table"}, "", Env{})
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{"BLOCK", "hero", "listing-grid", "button_style"} {
		if !strings.Contains(got, want) {
			t.Errorf("table missing %q:\n%s", want, got)
		}
	}

	got, err = run(t, &Blocks{Format: "json", Names: []string{"cta"}}, "", Env{})
	if err != nil {
		t.Fatal(err)
	}

	var defs []struct {
		Name   string `json:"name"`
		Fields []struct {
			Name string `json:"name"`
		} `json:"fields"`
	}

	if err := json.Unmarshal([]byte(got), &defs); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}

	if len(defs) != 1 || defs[0].Name != "cta" || len(defs[0].Fields) != 7 {
		t.Errorf("defs = %+v", defs)
	}

	if _, err := run(t, &Blocks{Names: []string{"nope"}}, "", Env{}); err == nil {
		t.Error("unknown block listed")
	}
}

func TestBlocks_BlockDirs(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "banner.yaml", `
name: banner
fields:
  - name: color
    tokens: color
    default: accent
template: "#{{ block_id }} { color: {{ color_var(fields.color) }}; }"
`)

	got, err := run(t, &Render{BlockID: "b", Block: "banner"}, "", Env{BlockDirs: []string{dir}})
	if err != nil {
		t.Fatal(err)
	}

	if want := "#b { color: var(--wp--preset--color--accent); }"; got != want {
		t.Errorf("render = %q, want %q", got, want)
	}
}
