package block

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/ardnew/blockcss/theme"
	"github.com/ardnew/blockcss/tmpl"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()

	reg := NewRegistry(tmpl.New(theme.Default()))
	if err := reg.Register(context.Background(), Builtins()...); err != nil {
		t.Fatalf("Register(builtins): %v", err)
	}

	return reg
}

func TestBuiltins(t *testing.T) {
	reg := testRegistry(t)

	want := []string{"cta", "hero", "listing-grid"}
	if got := reg.Names(); strings.Join(got, ",") != strings.Join(want, ",") {
		t.Errorf("Names() = %v, want %v", got, want)
	}

	a, b := Builtins(), Builtins()
	a[0].Fields[0].Name = "changed"

	if b[0].Fields[0].Name == "changed" {
		t.Error("Builtins() returned shared field slices")
	}
}

func TestDefinition_Clone(t *testing.T) {
	d := &Definition{
		Name: "x",
		Fields: []FieldSpec{
			{Name: "align", Options: []string{"left", "right"}, Default: "left"},
			{Name: "pair", Default: []any{"a", map[string]any{"k": "v"}}},
		},
		Derived: map[string]string{"d": "{{ fields.align }}"},
	}

	c := d.Clone()
	c.Fields[0].Options[0] = "center"
	c.Fields[1].Default.([]any)[1].(map[string]any)["k"] = "w"
	c.Derived["d"] = ""

	if got := d.Fields[0].Options[0]; got != "left" {
		t.Errorf("original options changed to %q", got)
	}

	if got := d.Fields[1].Default.([]any)[1].(map[string]any)["k"]; got != "v" {
		t.Errorf("original default changed to %v", got)
	}

	if d.Derived["d"] == "" {
		t.Error("original derived templates changed")
	}

	a, b := Builtins(), Builtins()
	shared := 0

	for j, def := range a {
		for i, f := range def.Fields {
			if len(f.Options) == 0 {
				continue
			}

			shared++
			f.Options[0] = "changed"

			if b[j].Fields[i].Options[0] == "changed" {
				t.Errorf("Builtins() shares options of %s.%s", def.Name, f.Name)
			}
		}
	}

	if shared == 0 {
		t.Fatal("no built-in field has options")
	}
}

func TestDefinition_Bind(t *testing.T) {
	hero, _ := testRegistry(t).Lookup("hero")
	table := theme.Default()

	tests := []struct {
		name    string
		values  map[string]any
		wantErr error
		check   func(t *testing.T, f tmpl.Fields)
	}{
		{
			name:   "defaults",
			values: nil,
			check: func(t *testing.T, f tmpl.Fields) {
				if got := f.Get("text_color").Text(); got != "white" {
					t.Errorf("text_color = %q, want white", got)
				}

				if got := f.Get("min_height"); got.Kind() != tmpl.KindNumber || got.Text() != "480" {
					t.Errorf("min_height = %v (%v), want number 480", got, got.Kind())
				}
			},
		},
		{
			name:   "coerce number and bool",
			values: map[string]any{"min_height": "600", "full_height": "true"},
			check: func(t *testing.T, f tmpl.Fields) {
				if got, _ := f.Get("min_height").Float(); got != 600 {
					t.Errorf("min_height = %v, want 600", got)
				}

				if !f.Get("full_height").Truthy() {
					t.Error("full_height not truthy")
				}
			},
		},
		{
			name:    "unknown field",
			values:  map[string]any{"colour": "primary"},
			wantErr: tmpl.ErrUnknownField,
		},
		{
			name:    "option outside set",
			values:  map[string]any{"alignment": "justify"},
			wantErr: ErrInvalidOption,
		},
		{
			name:    "unknown token",
			values:  map[string]any{"text_color": "chartreuse"},
			wantErr: ErrInvalidOption,
		},
		{
			name:    "not a number",
			values:  map[string]any{"min_height": "tall"},
			wantErr: tmpl.ErrInvalidValue,
		},
		{
			name:    "not a boolean",
			values:  map[string]any{"full_height": "maybe"},
			wantErr: tmpl.ErrInvalidValue,
		},
		{
			name:    "not a scalar",
			values:  map[string]any{"padding": []string{"md"}},
			wantErr: tmpl.ErrInvalidValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := hero.Bind(table, tt.values)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Bind() err = %v, want %v", err, tt.wantErr)
				}

				return
			}

			if err != nil {
				t.Fatalf("Bind(): %v", err)
			}

			tt.check(t, f)
		})
	}
}

func TestDefinition_Validate(t *testing.T) {
	tests := []struct {
		name string
		def  Definition
	}{
		{"missing name", Definition{}},
		{"unnamed field", Definition{Name: "x", Fields: []FieldSpec{{}}}},
		{"duplicate field", Definition{Name: "x", Fields: []FieldSpec{{Name: "a"}, {Name: "a"}}}},
		{"unknown kind", Definition{Name: "x", Fields: []FieldSpec{{Name: "a", Kind: "list"}}}},
		{"bad default", Definition{Name: "x", Fields: []FieldSpec{
			{Name: "a", Options: []string{"b"}, Default: "c"},
		}}},
		{"reserved derived name", Definition{Name: "x", Derived: map[string]string{"fields": ""}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.def.Validate(nil); !errors.Is(err, ErrInvalidDefinition) {
				t.Errorf("Validate() = %v, want %v", err, ErrInvalidDefinition)
			}
		})
	}
}

func TestRegistry_RenderCTA(t *testing.T) {
	out, err := testRegistry(t).Render(context.Background(), "cta", "cta-1", nil)
	if err != nil {
		t.Fatal(err)
	}

	want := `#cta-1 {
  background-color: var(--wp--preset--color--base);
  padding: var(--wp--preset--spacing--40);
}
#cta-1 .cta__button {
  font-size: var(--wp--preset--font-size--medium);
  background-color: var(--wp--preset--color--primary);
  border: 2px solid transparent;
  color: #ffffff;
  border-radius: 999px;
}
`
	if out.CSS != want {
		t.Errorf("CSS =\n%s\nwant\n%s", out.CSS, want)
	}

	if len(out.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", out.Warnings)
	}
}

func TestRegistry_RenderBranches(t *testing.T) {
	reg := testRegistry(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		block   string
		values  map[string]any
		want    []string
		wantNot []string
	}{
		{
			name:    "hero fixed height",
			block:   "hero",
			want:    []string{"min-height: 480px;", "opacity: 0.4;", "text-align: center;"},
			wantNot: []string{"@media", "100vh"},
		},
		{
			name:   "hero full height",
			block:  "hero",
			values: map[string]any{"full_height": true, "overlay_opacity": 25},
			want:   []string{"min-height: 100vh;", "calc(100vh * 0.8)", "opacity: 0.25;"},
		},
		{
			name:    "cta outline",
			block:   "cta",
			values:  map[string]any{"button_style": "outline", "rounded": false},
			want:    []string{"background-color: transparent;", "color: var(--wp--preset--color--primary);"},
			wantNot: []string{"border-radius", "solid transparent"},
		},
		{
			name:   "listing grid",
			block:  "listing-grid",
			values: map[string]any{"columns": 4},
			want:   []string{"repeat(4, minmax(0, 1fr))", ".listing-card__price"},
		},
		{
			name:    "listing list hides price",
			block:   "listing-grid",
			values:  map[string]any{"layout": "list"},
			want:    []string{"flex-direction: column;"},
			wantNot: []string{"grid-template-columns", "__price"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := reg.Render(ctx, tt.block, "b-1", tt.values)
			if err != nil {
				t.Fatal(err)
			}

			for _, s := range tt.want {
				if !strings.Contains(out.CSS, s) {
					t.Errorf("missing %q in\n%s", s, out.CSS)
				}
			}

			for _, s := range tt.wantNot {
				if strings.Contains(out.CSS, s) {
					t.Errorf("unexpected %q in\n%s", s, out.CSS)
				}
			}
		})
	}
}

func TestRegistry_RenderErrors(t *testing.T) {
	reg := testRegistry(t)
	ctx := context.Background()

	if _, err := reg.Render(ctx, "carousel", "", nil); !errors.Is(err, ErrUnknownBlock) {
		t.Errorf("unknown block err = %v", err)
	}

	if _, err := reg.Render(ctx, "cta", "", map[string]any{"button_style": "ghost"}); !errors.Is(err, ErrInvalidOption) {
		t.Errorf("invalid option err = %v", err)
	}
}

func TestRegistry_RegisterSyntaxError(t *testing.T) {
	reg := NewRegistry(tmpl.New(theme.Default()))

	err := reg.Register(context.Background(),
		&Definition{Name: "ok", Template: "a {}"},
		&Definition{Name: "bad", Template: "{% if fields.x %}"},
	)

	var syn *tmpl.SyntaxError
	if !errors.As(err, &syn) {
		t.Fatalf("Register() err = %v, want *tmpl.SyntaxError", err)
	}

	if reg.Len() != 0 {
		t.Errorf("Len() = %d after failed Register, want 0", reg.Len())
	}
}

func TestRegistry_Derive(t *testing.T) {
	reg := NewRegistry(tmpl.New(theme.Default()))

	def := &Definition{
		Name:     "box",
		Fields:   []FieldSpec{{Name: "size", Kind: KindNumber, Default: 10}},
		Template: "#{{ block_id }} { width: {{ half }}px; }",
		Derive: func(f tmpl.Fields, _ *theme.Table) map[string]tmpl.Value {
			n, _ := f.Get("size").Float()

			return map[string]tmpl.Value{"half": tmpl.NumberValue(n / 2)}
		},
	}

	if err := reg.Register(context.Background(), def); err != nil {
		t.Fatal(err)
	}

	out, err := reg.Render(context.Background(), "box", "box-1", map[string]any{"size": 5})
	if err != nil {
		t.Fatal(err)
	}

	if want := "#box-1 { width: 2.5px; }"; out.CSS != want {
		t.Errorf("CSS = %q, want %q", out.CSS, want)
	}
}

func TestRegistry_GeneratedID(t *testing.T) {
	out, err := testRegistry(t).Render(context.Background(), "cta", "", nil)
	if err != nil {
		t.Fatal(err)
	}

	if !strings.HasPrefix(out.BlockID, "cta-") || !strings.HasPrefix(out.CSS, "#"+out.BlockID+" {") {
		t.Errorf("BlockID = %q, CSS = %q", out.BlockID, out.CSS)
	}
}

func TestRegistry_RenderAll(t *testing.T) {
	reg := testRegistry(t)

	reqs := []Request{
		{Block: "hero", ID: "hero-1"},
		{Block: "cta", ID: "cta-1"},
		{Block: "listing-grid", ID: "grid-1"},
		{Block: "cta", ID: "cta-2", Values: map[string]any{"button_style": "outline"}},
	}

	out, err := reg.RenderAll(context.Background(), reqs)
	if err != nil {
		t.Fatal(err)
	}

	for i, req := range reqs {
		if out[i].BlockID != req.ID || out[i].Block != req.Block {
			t.Errorf("out[%d] = %s/%s, want %s/%s", i, out[i].Block, out[i].BlockID, req.Block, req.ID)
		}
	}

	reqs = append(reqs, Request{Block: "missing"})
	if _, err := reg.RenderAll(context.Background(), reqs); !errors.Is(err, ErrUnknownBlock) {
		t.Errorf("RenderAll() err = %v, want %v", err, ErrUnknownBlock)
	}
}

func TestRegistry_ConcurrentRegisterRender(t *testing.T) {
	reg := testRegistry(t)
	ctx := context.Background()

	var wg sync.WaitGroup

	for range 8 {
		wg.Go(func() {
			_ = reg.Register(ctx, Builtins()...)
		})
		wg.Go(func() {
			if _, err := reg.Render(ctx, "hero", "", nil); err != nil {
				t.Error(err)
			}
		})
	}

	wg.Wait()
}

func TestRendered_StyleElement(t *testing.T) {
	r := Rendered{BlockID: "hero-1", CSS: "#hero-1 {}\n"}

	want := "<style id=\"hero-1-css\">\n#hero-1 {}\n</style>\n"
	if got := r.StyleElement(); got != want {
		t.Errorf("StyleElement() = %q, want %q", got, want)
	}
}

func TestNewID(t *testing.T) {
	seen := map[string]bool{}

	for range 100 {
		id := NewID("hero")

		if !strings.HasPrefix(id, "hero-") || len(id) != len("hero-")+12 {
			t.Fatalf("NewID() = %q", id)
		}

		if seen[id] {
			t.Fatalf("duplicate id %q", id)
		}

		seen[id] = true
	}

	if id := NewID(""); !strings.HasPrefix(id, "b") || len(id) != 13 {
		t.Errorf("NewID(\"\") = %q", id)
	}
}

func TestLoadDir(t *testing.T) {
	dir := t.TempDir()

	write := func(name, content string) {
		t.Helper()

		if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0o600); err != nil {
			t.Fatal(err)
		}
	}

	write("b.yml", "name: badge\nfields:\n  - name: tone\n    options: [info, warn]\n    default: info\ntemplate: '.{{ fields.tone }} {}'\n")
	write("a.yaml", "name: alert\ntemplate: '#{{ block_id }} {}'\n")
	write("notes.txt", "ignored")

	defs, err := LoadDir(context.Background(), dir)
	if err != nil {
		t.Fatal(err)
	}

	if len(defs) != 2 || defs[0].Name != "alert" || defs[1].Name != "badge" {
		t.Fatalf("LoadDir() = %v", defs)
	}

	if f, ok := defs[1].Field("tone"); !ok || f.Default != "info" {
		t.Errorf("Field(tone) = %+v, %v", f, ok)
	}

	write("c.yaml", "name: c\ntemplate: x\ncolour: red\n")

	if _, err := LoadDir(context.Background(), dir); !errors.Is(err, ErrInvalidDefinition) {
		t.Errorf("unknown key err = %v, want %v", err, ErrInvalidDefinition)
	}
}
