package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ardnew/blockcss/pkg"
	"github.com/ardnew/blockcss/tmpl"
)

// Check parses templates and reports syntax errors. With no templates it
// checks the configured block definitions.
type Check struct {
	Jobs int `default:"0" help:"Parallel parses. 0 uses GOMAXPROCS." short:"j"`

	Templates []string `arg:"" help:"Template files or '-' for stdin." name:"template" optional:""`
}

// Run executes the check command.
func (c *Check) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	env := envFrom(ctx)

	if len(c.Templates) == 0 {
		reg, err := env.registry(ctx)
		if err != nil {
			return pkg.ErrCheckFailed.Wrap(err)
		}

		return write(env.Stdout, fmt.Sprintf("ok: %d blocks\n", reg.Len()))
	}

	names := uniqueSources(c.Templates)
	errs := make([]error, len(names))
	cache := tmpl.NewCache(env.Logger)

	jobs := c.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}

	var g errgroup.Group

	g.SetLimit(jobs)

	for i, name := range names {
		g.Go(func() error {
			src, err := env.readSource(name)
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", sourceName(name), err)

				return nil
			}

			_, errs[i] = cache.Parse(ctx, sourceName(name), src)

			return nil
		})
	}

	_ = g.Wait()

	var (
		sb     strings.Builder
		failed int
	)

	for i, err := range errs {
		if err == nil {
			env.Logger.DebugContext(ctx, "template ok", slog.String("template", names[i]))

			continue
		}

		failed++

		sb.WriteString(err.Error())
		sb.WriteByte('\n')
	}

	if err := write(env.Stdout, sb.String()); err != nil {
		return err
	}

	if failed > 0 {
		return pkg.ErrCheckFailed.Wrap(fmt.Errorf("%d of %d templates", failed, len(names)))
	}

	return nil
}
