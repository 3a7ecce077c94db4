package block

import (
	"context"
	"html"
	"log/slog"
	"maps"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ardnew/blockcss/log"
	"github.com/ardnew/blockcss/tmpl"
)

// Registry holds block definitions with their parsed templates.
// It is safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	entries  map[string]*entry
	compiler *tmpl.Compiler
	logger   log.Logger
}

type entry struct {
	def     *Definition
	tmpl    *tmpl.Template
	derived []derivedTemplate
}

type derivedTemplate struct {
	name string
	tmpl *tmpl.Template
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryLogger sets the logger of the registry.
func WithRegistryLogger(logger log.Logger) RegistryOption {
	return func(r *Registry) { r.logger = logger }
}

// NewRegistry returns an empty registry rendering through c.
func NewRegistry(c *tmpl.Compiler, opts ...RegistryOption) *Registry {
	r := &Registry{entries: map[string]*entry{}, compiler: c}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Register validates and parses each definition and adds it to the
// registry, replacing any definition with the same name. Nothing is
// registered if any definition fails.
func (r *Registry) Register(ctx context.Context, defs ...*Definition) error {
	parsed := make([]*entry, 0, len(defs))

	for _, d := range defs {
		e, err := r.prepare(ctx, d)
		if err != nil {
			return err
		}

		parsed = append(parsed, e)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range parsed {
		if _, ok := r.entries[e.def.Name]; ok {
			r.logger.DebugContext(ctx, "replacing block definition",
				slog.String("block", e.def.Name))
		}

		r.entries[e.def.Name] = e
	}

	return nil
}

func (r *Registry) prepare(ctx context.Context, d *Definition) (*entry, error) {
	if err := d.Validate(r.compiler.Table()); err != nil {
		return nil, err
	}

	t, err := r.compiler.Parse(ctx, d.Name, d.Template)
	if err != nil {
		return nil, err
	}

	e := &entry{def: d, tmpl: t}

	for _, name := range slices.Sorted(maps.Keys(d.Derived)) {
		dt, err := r.compiler.Parse(ctx, d.Name+"."+name, d.Derived[name])
		if err != nil {
			return nil, err
		}

		e.derived = append(e.derived, derivedTemplate{name: name, tmpl: dt})
	}

	r.logger.TraceContext(ctx, "registered block",
		slog.String("block", d.Name),
		slog.Int("fields", len(d.Fields)),
		slog.Int("derived", len(e.derived)))

	return e, nil
}

// Compiler returns the compiler the registry renders through.
func (r *Registry) Compiler() *tmpl.Compiler { return r.compiler }

// Lookup returns the definition registered as name.
func (r *Registry) Lookup(name string) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	if !ok {
		return nil, false
	}

	return e.def, true
}

// Template returns the parsed template of block name.
func (r *Registry) Template(name string) (*tmpl.Template, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[name]
	if !ok {
		return nil, false
	}

	return e.tmpl, true
}

// Names returns the sorted names of the registered blocks.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return slices.Sorted(maps.Keys(r.entries))
}

// Len returns the number of registered blocks.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.entries)
}

// Rendered is the CSS produced for one block instance.
type Rendered struct {
	Block    string
	BlockID  string
	CSS      string
	Warnings []tmpl.Warning
}

// StyleElement wraps the CSS in a style element identified by the block id.
func (r Rendered) StyleElement() string {
	return `<style id="` + html.EscapeString(r.BlockID) + `-css">` + "\n" +
		r.CSS + "</style>\n"
}

// Context binds values to block name and returns the render context with
// derived values computed. An empty id is replaced by [NewID].
func (r *Registry) Context(ctx context.Context, name, id string, values map[string]any) (tmpl.Context, error) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()

	if !ok {
		return tmpl.Context{}, ErrUnknownBlock.Wrapf("%q", name)
	}

	rc, _, err := r.context(ctx, e, id, values)

	return rc, err
}

func (r *Registry) context(
	ctx context.Context,
	e *entry,
	id string,
	values map[string]any,
) (tmpl.Context, []tmpl.Warning, error) {
	table := r.compiler.Table()

	fields, err := e.def.Bind(table, values)
	if err != nil {
		return tmpl.Context{}, nil, err
	}

	if id == "" {
		id = NewID(e.def.Name)
	}

	rc := tmpl.NewContext(id, fields)

	var warnings []tmpl.Warning

	for _, d := range e.derived {
		out, ws := r.compiler.Render(ctx, d.tmpl, rc)
		warnings = append(warnings, ws...)
		rc = rc.WithDerived(d.name, tmpl.StringValue(out))
	}

	if e.def.Derive != nil {
		for name, v := range e.def.Derive(fields, table) {
			rc = rc.WithDerived(name, v)
		}
	}

	return rc, warnings, nil
}

// Render binds values to block name and compiles its template. An empty id
// is replaced by [NewID].
func (r *Registry) Render(ctx context.Context, name, id string, values map[string]any) (Rendered, error) {
	r.mu.RLock()
	e, ok := r.entries[name]
	r.mu.RUnlock()

	if !ok {
		return Rendered{}, ErrUnknownBlock.Wrapf("%q", name)
	}

	rc, warnings, err := r.context(ctx, e, id, values)
	if err != nil {
		return Rendered{}, err
	}

	css, ws := r.compiler.Render(ctx, e.tmpl, rc)

	r.logger.DebugContext(ctx, "rendered block",
		slog.String("block", name),
		slog.String("id", rc.BlockID),
		slog.Int("bytes", len(css)),
		slog.Int("warnings", len(warnings)+len(ws)))

	return Rendered{
		Block:    name,
		BlockID:  rc.BlockID,
		CSS:      css,
		Warnings: append(warnings, ws...),
	}, nil
}

// Request names one block instance to render.
type Request struct {
	Block  string         `yaml:"block"            json:"block"`
	ID     string         `yaml:"id,omitempty"     json:"id,omitempty"`
	Values map[string]any `yaml:"fields,omitempty" json:"fields,omitempty"`
}

// RenderAll renders reqs concurrently. The results are in request order.
// The first error cancels the remaining renders.
func (r *Registry) RenderAll(ctx context.Context, reqs []Request) ([]Rendered, error) {
	out := make([]Rendered, len(reqs))

	g, ctx := errgroup.WithContext(ctx)

	for i, req := range reqs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}

			res, err := r.Render(ctx, req.Block, req.ID, req.Values)
			if err != nil {
				return err
			}

			out[i] = res

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return out, nil
}
