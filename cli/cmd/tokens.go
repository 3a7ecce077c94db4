package cmd

import (
	"context"
	"log/slog"

	"github.com/ardnew/blockcss/pkg"
)

// Tokens prints the loaded token table.
type Tokens struct {
	Format string `default:"yaml" enum:"yaml,json,css" help:"Output format (${enum})." short:"o"`
	Indent int    `default:"2"                         help:"Indent width."             short:"i"`
}

// Run executes the tokens command.
func (t *Tokens) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	env := envFrom(ctx)

	table, err := env.table(ctx)
	if err != nil {
		return err
	}

	env.Logger.DebugContext(ctx, "printing token table",
		slog.String("format", t.Format),
		slog.Int("tokens", table.Len()))

	switch t.Format {
	case "yaml":
		err = table.FormatYAML(ctx, env.Stdout, t.Indent)
	case "json":
		err = table.FormatJSON(ctx, env.Stdout, t.Indent)
	case "css":
		err = table.FormatCSS(ctx, env.Stdout, t.Indent)
	default:
		return ErrInvalidFormat.With(slog.String("format", t.Format))
	}

	if err != nil {
		return pkg.ErrWriteOutput.Wrap(err)
	}

	return nil
}
