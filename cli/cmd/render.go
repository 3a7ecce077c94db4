package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/goccy/go-yaml"

	"github.com/ardnew/blockcss/block"
	"github.com/ardnew/blockcss/pkg"
)

// Render renders a block definition to CSS.
type Render struct {
	valueFlags `embed:""`

	BlockID string `help:"Block instance id. Generated when empty."                  short:"b"`
	Batch   string `help:"YAML file listing block instances (block, id, fields)." placeholder:"FILE"`
	Style   bool   `help:"Wrap each block's CSS in a <style> element."`

	Block string `arg:"" help:"Block name (see 'blocks')." name:"block" optional:""`
}

// Run executes the render command.
func (r *Render) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	env := envFrom(ctx)

	reqs, err := r.requests(ctx, env)
	if err != nil {
		return err
	}

	reg, err := env.registry(ctx)
	if err != nil {
		return err
	}

	out, err := reg.RenderAll(ctx, reqs)
	if err != nil {
		return ErrRenderFailed.Wrap(err)
	}

	for _, res := range out {
		for _, w := range res.Warnings {
			env.Logger.DebugContext(ctx, "render warning",
				slog.String("block", res.Block),
				slog.String("warning", w.String()))
		}

		text := res.CSS
		if r.Style {
			text = res.StyleElement()
		}

		if _, err := io.WriteString(env.Stdout, text); err != nil {
			return pkg.ErrWriteOutput.Wrap(err)
		}
	}

	return nil
}

func (r *Render) requests(ctx context.Context, env Env) ([]block.Request, error) {
	if r.Batch != "" {
		src, err := env.readSource(r.Batch)
		if err != nil {
			return nil, err
		}

		var reqs []block.Request
		if err := yaml.UnmarshalContext(ctx, []byte(src), &reqs, yaml.Strict()); err != nil {
			return nil, pkg.ErrParse.Wrap(fmt.Errorf("%s: %w", r.Batch, err))
		}

		return reqs, nil
	}

	if r.Block == "" {
		return nil, ErrMissingBlock
	}

	values, err := r.values(ctx, env)
	if err != nil {
		return nil, err
	}

	return []block.Request{{Block: r.Block, ID: r.BlockID, Values: values}}, nil
}
