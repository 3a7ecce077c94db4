package cmd

import (
	"context"
	"log/slog"
	"os"

	"github.com/ardnew/blockcss/pkg"
	"github.com/ardnew/blockcss/tmpl"
)

// Fmt prints a template in canonical form, or its syntax tree.
type Fmt struct {
	AST   bool `help:"Print the syntax tree instead of the formatted source."`
	Write bool `help:"Rewrite the template file in place."                    short:"w"`

	Template string `arg:"" default:"-" help:"Template file or '-' for stdin." name:"template"`
}

// Run executes the fmt command.
func (f *Fmt) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	env := envFrom(ctx)

	src, err := env.readSource(f.Template)
	if err != nil {
		return err
	}

	t, err := tmpl.Parse(sourceName(f.Template), src)
	if err != nil {
		return err
	}

	if f.AST {
		if err := t.Print(env.Stdout); err != nil {
			return pkg.ErrWriteOutput.Wrap(err)
		}

		return nil
	}

	out := t.String()

	if !f.Write || f.Template == stdinSource {
		return write(env.Stdout, out)
	}

	path, _ := pkg.Find(f.Template, env.Include...)

	info, err := os.Stat(path)
	if err != nil {
		return pkg.ErrWriteOutput.Wrap(err)
	}

	if err := os.WriteFile(path, []byte(out), info.Mode().Perm()); err != nil {
		return pkg.ErrWriteOutput.Wrap(err)
	}

	env.Logger.DebugContext(ctx, "formatted template", slog.String("path", path))

	return nil
}
