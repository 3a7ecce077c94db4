package cmd

import (
	"context"
	"io"
	"log/slog"

	"github.com/ardnew/blockcss/block"
	"github.com/ardnew/blockcss/pkg"
	"github.com/ardnew/blockcss/tmpl"
)

// Compile evaluates a template file against field values given on the
// command line.
type Compile struct {
	valueFlags `embed:""`

	Derive  []string `help:"Set a derived value." placeholder:"NAME=VALUE" short:"d" sep:"none"`
	BlockID string   `help:"Block instance id. Generated when empty." short:"b"`

	Template string `arg:"" default:"-" help:"Template file or '-' for stdin." name:"template"`
}

// Run executes the compile command.
func (c *Compile) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	env := envFrom(ctx)

	src, err := env.readSource(c.Template)
	if err != nil {
		return err
	}

	values, err := c.values(ctx, env)
	if err != nil {
		return err
	}

	fields, err := tmpl.SchemaOf(values).Bind(values)
	if err != nil {
		return err
	}

	derived, err := derivedValues(c.Derive)
	if err != nil {
		return err
	}

	id := c.BlockID
	if id == "" {
		id = block.NewID("")
	}

	rc := tmpl.NewContext(id, fields)
	for name, v := range derived {
		rc = rc.WithDerived(name, v)
	}

	compiler, err := env.compiler(ctx)
	if err != nil {
		return err
	}

	t, err := compiler.Parse(ctx, sourceName(c.Template), src)
	if err != nil {
		return err
	}

	out, warnings := compiler.Render(ctx, t, rc)

	env.Logger.DebugContext(ctx, "compiled template",
		slog.String("template", t.Name),
		slog.String("block_id", id),
		slog.Int("warnings", len(warnings)))

	if _, err := io.WriteString(env.Stdout, out); err != nil {
		return pkg.ErrWriteOutput.Wrap(err)
	}

	return nil
}
