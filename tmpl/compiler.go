package tmpl

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/sahilm/fuzzy"

	"github.com/ardnew/blockcss/log"
	"github.com/ardnew/blockcss/theme"
)

// Compiler evaluates templates against a token table. It holds no mutable
// state besides its optional cache and is safe for concurrent use.
type Compiler struct {
	table  *theme.Table
	logger log.Logger
	strict bool
	cache  *Cache
}

// Option configures a Compiler.
type Option func(*Compiler)

// WithLogger sets the logger receiving trace events and, in strict mode,
// warnings.
func WithLogger(logger log.Logger) Option {
	return func(c *Compiler) { c.logger = logger }
}

// WithStrict logs every evaluation warning at warn level. Output is the
// same as in lenient mode.
func WithStrict(enable bool) Option {
	return func(c *Compiler) { c.strict = enable }
}

// WithCache parses templates through cache.
func WithCache(cache *Cache) Option {
	return func(c *Compiler) { c.cache = cache }
}

// New returns a Compiler resolving tokens in table.
func New(table *theme.Table, opts ...Option) *Compiler {
	c := &Compiler{table: table}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Table returns the token table of the compiler.
func (c *Compiler) Table() *theme.Table { return c.table }

// Strict reports whether strict mode is enabled.
func (c *Compiler) Strict() bool { return c.strict }

// Parse parses source, through the cache if one is configured.
func (c *Compiler) Parse(ctx context.Context, name, source string) (*Template, error) {
	if c.cache != nil {
		return c.cache.Parse(ctx, name, source)
	}

	t, err := Parse(name, source)
	if err != nil {
		return nil, err
	}

	c.logger.TraceContext(ctx, "parsed template",
		slog.String("name", name),
		slog.Int("nodes", len(t.Nodes)))

	return t, nil
}

// Compile parses source and evaluates it against rc. It fails only on
// malformed template syntax, returning a [*SyntaxError].
func (c *Compiler) Compile(ctx context.Context, name, source string, rc Context) (string, error) {
	t, err := c.Parse(ctx, name, source)
	if err != nil {
		return "", err
	}

	return c.Execute(ctx, t, rc), nil
}

// Execute evaluates t against rc. Missing fields and unresolved tokens
// produce empty text.
func (c *Compiler) Execute(ctx context.Context, t *Template, rc Context) string {
	out, warnings := c.render(t, rc, c.strict)

	c.report(ctx, t, warnings)

	return out
}

// Render is like Execute but also returns the warnings raised while
// evaluating, regardless of strict mode.
func (c *Compiler) Render(ctx context.Context, t *Template, rc Context) (string, []Warning) {
	out, warnings := c.render(t, rc, true)

	c.report(ctx, t, warnings)

	return out, warnings
}

func (c *Compiler) render(t *Template, rc Context, collect bool) (string, []Warning) {
	e := &evaluator{table: c.table, rc: rc, collect: collect}

	var sb strings.Builder

	sb.Grow(len(t.Source))
	e.nodes(&sb, t.Nodes)

	return sb.String(), e.warnings
}

func (c *Compiler) report(ctx context.Context, t *Template, warnings []Warning) {
	if !c.strict {
		return
	}

	for _, w := range warnings {
		c.logger.WarnContext(ctx, w.Message,
			slog.String("template", t.Name),
			slog.String("position", w.Pos.String()),
			slog.String("path", w.Path),
			slog.String("suggestion", w.Suggestion))
	}
}

// WarningKind classifies a [Warning].
type WarningKind uint8

const (
	MissingValue WarningKind = iota
	UnknownField
	UnresolvedToken
	NonNumeric
	DivideByZero
)

func (k WarningKind) String() string {
	switch k {
	case MissingValue:
		return "missing value"
	case UnknownField:
		return "unknown field"
	case UnresolvedToken:
		return "unresolved token"
	case NonNumeric:
		return "non-numeric operand"
	case DivideByZero:
		return "division by zero"
	default:
		return "warning"
	}
}

// Warning describes a value that degraded to empty text during evaluation.
type Warning struct {
	Kind       WarningKind
	Pos        Position
	Path       string
	Message    string
	Suggestion string
}

// String returns "line:col: message (did you mean "suggestion"?)".
func (w Warning) String() string {
	s := w.Pos.String() + ": " + w.Message
	if w.Suggestion != "" {
		s += fmt.Sprintf(" (did you mean %q?)", w.Suggestion)
	}

	return s
}

// evaluator walks a template for one render.
type evaluator struct {
	table    *theme.Table
	rc       Context
	collect  bool
	warnings []Warning
	pos      Position
}

func (e *evaluator) nodes(sb *strings.Builder, nodes []Node) {
	for _, n := range nodes {
		switch n := n.(type) {
		case *TextNode:
			sb.WriteString(n.Text)

		case *InterpNode:
			e.pos = n.Position
			sb.WriteString(e.eval(n.Expr).Text())

		case *IfNode:
			for _, b := range n.Branches {
				e.pos = b.Position
				if b.Cond == nil || e.test(b.Cond) {
					e.nodes(sb, b.Body)

					break
				}
			}
		}
	}
}

func (e *evaluator) eval(x Expr) Value {
	switch x := x.(type) {
	case *LiteralExpr:
		return x.Value

	case *PathExpr:
		v, ok := e.rc.Lookup(x.Segments)
		if !ok {
			e.missing(x, MissingValue)
		}

		return v

	case *CallExpr:
		name := e.eval(x.Arg).Text()

		v, ok := e.table.Lookup(x.Category, name)
		if !ok {
			if name != "" {
				e.warn(Warning{
					Kind:    UnresolvedToken,
					Path:    x.String(),
					Message: fmt.Sprintf("unresolved %s token %q", x.Category, name),
				}, func() []string { return e.table.Names(x.Category) }, name)
			}

			return Absent
		}

		return StringValue(v)

	case *ArithExpr:
		return e.arith(x)

	default:
		return Absent
	}
}

func (e *evaluator) arith(x *ArithExpr) Value {
	left := e.eval(x.Left)
	if left.IsAbsent() {
		return Absent
	}

	f, ok := left.Float()
	if !ok {
		e.warn(Warning{
			Kind:    NonNumeric,
			Path:    x.Left.String(),
			Message: fmt.Sprintf("%s is not numeric: %q", x.Left, left.Text()),
		}, nil, "")

		return Absent
	}

	switch x.Op {
	case "/":
		if x.Right == 0 {
			e.warn(Warning{Kind: DivideByZero, Path: x.Left.String(), Message: x.String()}, nil, "")

			return Absent
		}

		return NumberValue(f / x.Right)

	case "*":
		return NumberValue(f * x.Right)
	}

	return Absent
}

func (e *evaluator) test(c Cond) bool {
	switch c := c.(type) {
	case *AndCond:
		return e.test(c.Left) && e.test(c.Right)

	case *CompareCond:
		eq := e.operand(c.Left).Equal(e.operand(c.Right))
		if c.Op == "!=" {
			return !eq
		}

		return eq

	case *TruthyCond:
		return e.operand(c.Operand).Truthy()

	default:
		return false
	}
}

// operand evaluates a condition operand. Unset fields are an ordinary
// condition input, so only names outside the schema are reported.
func (e *evaluator) operand(x Expr) Value {
	path, ok := x.(*PathExpr)
	if !ok {
		return e.eval(x)
	}

	v, _ := e.rc.Lookup(path.Segments)

	if len(path.Segments) == 2 && path.Segments[0] == RootFields &&
		!e.rc.Fields.Schema().Has(path.Segments[1]) {
		e.missing(path, UnknownField)
	}

	return v
}

func (e *evaluator) missing(path *PathExpr, kind WarningKind) {
	name := path.Segments[len(path.Segments)-1]

	e.warn(Warning{
		Kind:    kind,
		Path:    path.String(),
		Message: fmt.Sprintf("%s %q", kind, path.String()),
	}, func() []string { return e.rc.candidates(path.Segments) }, name)
}

func (e *evaluator) warn(w Warning, candidates func() []string, pattern string) {
	if !e.collect {
		return
	}

	w.Pos = e.pos

	if candidates != nil && pattern != "" {
		w.Suggestion = suggest(pattern, candidates())
	}

	e.warnings = append(e.warnings, w)
}

// suggest returns the candidate closest to pattern other than pattern
// itself, or "".
func suggest(pattern string, candidates []string) string {
	for _, c := range candidates {
		if c != pattern && strings.EqualFold(c, pattern) {
			return c
		}
	}

	for _, m := range fuzzy.Find(pattern, candidates) {
		if m.Str != pattern {
			return m.Str
		}
	}

	return ""
}
