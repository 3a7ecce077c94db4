package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/goccy/go-yaml"

	"github.com/ardnew/blockcss/block"
	"github.com/ardnew/blockcss/pkg"
)

// Blocks lists the available block definitions and their fields.
type Blocks struct {
	Format string `default:"table" enum:"table,yaml,json" help:"Output format (${enum})." short:"o"`

	Names []string `arg:"" help:"Block names to show. All when empty." name:"name" optional:""`
}

// Run executes the blocks command.
func (b *Blocks) Run(ctx context.Context) (err error) {
	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	env := envFrom(ctx)

	reg, err := env.registry(ctx)
	if err != nil {
		return err
	}

	names := b.Names
	if len(names) == 0 {
		names = reg.Names()
	}

	defs := make([]*block.Definition, 0, len(names))

	for _, name := range names {
		d, ok := reg.Lookup(name)
		if !ok {
			return block.ErrUnknownBlock.Wrapf("%q", name)
		}

		defs = append(defs, d)
	}

	switch b.Format {
	case "yaml":
		data, err := yaml.MarshalContext(ctx, defs, yaml.Indent(2), yaml.IndentSequence(true))
		if err != nil {
			return ErrEncodeOutput.Wrap(err)
		}

		return write(env.Stdout, string(data))

	case "json":
		data, err := json.MarshalIndent(defs, "", "  ")
		if err != nil {
			return ErrEncodeOutput.Wrap(err)
		}

		return write(env.Stdout, string(data)+"\n")

	default:
		return write(env.Stdout, blockTable(defs))
	}
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)

var cellStyle = lipgloss.NewStyle().Padding(0, 1)

// blockTable renders one row per field.
func blockTable(defs []*block.Definition) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("BLOCK", "FIELD", "KIND", "DEFAULT", "VALUES").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}

			return cellStyle
		})

	for _, d := range defs {
		if len(d.Fields) == 0 {
			t.Row(d.Name, "", "", "", "")
		}

		for i, f := range d.Fields {
			name := ""
			if i == 0 {
				name = d.Name
			}

			kind := string(f.Kind)
			if kind == "" {
				kind = string(block.KindString)
			}

			choices := strings.Join(f.Options, " | ")
			if f.Tokens != "" {
				choices = string(f.Tokens) + " tokens"
			}

			def := ""
			if f.Default != nil {
				def = fmt.Sprint(f.Default)
			}

			t.Row(name, f.Name, kind, def, choices)
		}
	}

	return t.Render() + "\n"
}

func write(w io.Writer, s string) error {
	if _, err := io.WriteString(w, s); err != nil {
		return pkg.ErrWriteOutput.Wrap(err)
	}

	return nil
}
