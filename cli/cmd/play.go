package cmd

import (
	"context"

	"github.com/ardnew/blockcss/cli/cmd/play"
)

// Play starts the interactive template playground.
type Play struct {
	BlockID string `default:"block-1" help:"Block instance id." short:"b"`

	Block string `arg:"" default:"hero" help:"Block whose fields and template are loaded." name:"block"`
}

// Run executes the play command.
func (p *Play) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	env := envFrom(ctx)

	reg, err := env.registry(ctx)
	if err != nil {
		return err
	}

	return play.Run(ctx, play.Config{
		Registry: reg,
		Block:    p.Block,
		BlockID:  p.BlockID,
		CacheDir: env.CacheDir,
		Logger:   env.Logger,
	})
}
