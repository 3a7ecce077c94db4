package play

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strings"

	"github.com/ardnew/blockcss/block"
	"github.com/ardnew/blockcss/log"
	"github.com/ardnew/blockcss/theme"
	"github.com/ardnew/blockcss/tmpl"
)

// session holds the render state edited by control commands.
type session struct {
	reg    *block.Registry
	block  string
	id     string
	values map[string]any
	logger log.Logger
}

func newSession(cfg Config) (*session, error) {
	if _, ok := cfg.Registry.Lookup(cfg.Block); !ok {
		return nil, block.ErrUnknownBlock.Wrapf("%q", cfg.Block)
	}

	id := cfg.BlockID
	if id == "" {
		id = block.NewID(cfg.Block)
	}

	return &session{
		reg:    cfg.Registry,
		block:  cfg.Block,
		id:     id,
		values: map[string]any{},
		logger: cfg.Logger,
	}, nil
}

func (s *session) definition() *block.Definition {
	d, _ := s.reg.Lookup(s.block)

	return d
}

func (s *session) context(ctx context.Context) (tmpl.Context, error) {
	return s.reg.Context(ctx, s.block, s.id, s.values)
}

// eval compiles line against the current render context.
func (s *session) eval(ctx context.Context, line string) (string, []tmpl.Warning, error) {
	rc, err := s.context(ctx)
	if err != nil {
		return "", nil, err
	}

	c := s.reg.Compiler()

	t, err := c.Parse(ctx, "play", line)
	if err != nil {
		return "", nil, err
	}

	out, warnings := c.Render(ctx, t, rc)

	return out, warnings, nil
}

// result is the outcome of a control command.
type result struct {
	text  string
	quit  bool
	clear bool
}

var ctrlCommands = []string{
	"block", "blocks", "clear", "css", "fields", "help", "id", "quit", "set",
	"tokens", "unset",
}

func helpMessage() string {
	return `
: Commands (press Esc to toggle mode):

  fields              List the fields of the current block and their values
  set NAME=VALUE      Set a field value (YAML scalar)
  unset NAME          Restore a field to its default
  block NAME          Switch to another block (clears field values)
  blocks              List the available blocks
  id ID               Set the block instance id
  tokens [CATEGORY]   List token names
  css                 Render the whole block
  clear               Clear screen
  quit                Exit

Usage:
  Type template text to compile it, e.g. {{ color_var(fields.text_color) }}
  Completions appear as you type; Tab / Shift-Tab cycles candidates
  Up/Down browse history; Ctrl+C on an empty line or Ctrl+D exits
`
}

// exec runs a control command.
func (s *session) exec(ctx context.Context, input string) (result, error) {
	name, arg, _ := strings.Cut(strings.TrimSpace(input), " ")
	arg = strings.TrimSpace(arg)

	s.logger.TraceContext(ctx, "play command",
		slog.String("command", name),
		slog.String("arg", arg))

	switch name {
	case "q", "quit", "exit":
		return result{quit: true}, nil

	case "h", "help":
		return result{text: helpMessage()}, nil

	case "c", "clear":
		return result{clear: true}, nil

	case "fields":
		return result{text: s.fieldList(ctx)}, nil

	case "set":
		key, raw, ok := strings.Cut(arg, "=")
		key = strings.TrimPrefix(strings.TrimSpace(key), tmpl.RootFields+".")

		if !ok || key == "" {
			return result{}, ErrUsage.Wrapf("set NAME=VALUE")
		}

		v := tmpl.ParseScalar(strings.TrimSpace(raw))

		prev, had := s.values[key]
		s.values[key] = v

		if _, err := s.context(ctx); err != nil {
			if had {
				s.values[key] = prev
			} else {
				delete(s.values, key)
			}

			return result{}, err
		}

		return result{text: fmt.Sprintf("%s = %v", key, v)}, nil

	case "unset":
		if arg == "" {
			return result{}, ErrUsage.Wrapf("unset NAME")
		}

		delete(s.values, strings.TrimPrefix(arg, tmpl.RootFields+"."))

		return result{}, nil

	case "block":
		if _, ok := s.reg.Lookup(arg); !ok {
			return result{}, block.ErrUnknownBlock.Wrapf("%q", arg)
		}

		s.block = arg
		s.values = map[string]any{}

		return result{text: "block " + arg}, nil

	case "blocks":
		return result{text: strings.Join(s.reg.Names(), "\n")}, nil

	case "id":
		if arg == "" {
			return result{text: s.id}, nil
		}

		s.id = arg

		return result{}, nil

	case "tokens":
		return result{text: s.tokenList(arg)}, nil

	case "css":
		out, err := s.reg.Render(ctx, s.block, s.id, s.values)
		if err != nil {
			return result{}, err
		}

		return result{text: strings.TrimRight(out.CSS, "\n")}, nil

	default:
		return result{}, ErrUnknownCommand.Wrapf("%s (try 'help')", name)
	}
}

func (s *session) fieldList(ctx context.Context) string {
	d := s.definition()
	rc, _ := s.context(ctx)

	var sb strings.Builder

	for _, f := range d.Fields {
		v := rc.Fields.Get(f.Name)

		mark := " "
		if _, ok := s.values[f.Name]; ok {
			mark = "*"
		}

		fmt.Fprintf(&sb, "%s %-18s %s\n", mark, f.Name, v.Text())
	}

	for _, name := range slices.Sorted(maps.Keys(rc.Derived)) {
		fmt.Fprintf(&sb, "= %-18s %s\n", name, rc.Derived[name].Text())
	}

	return strings.TrimRight(sb.String(), "\n")
}

func (s *session) tokenList(category string) string {
	table := s.reg.Compiler().Table()

	cats := table.Categories()
	if category != "" {
		cats = []theme.Category{theme.ParseCategory(category)}
	}

	var sb strings.Builder

	for _, c := range cats {
		fmt.Fprintf(&sb, "%s: %s\n", c, strings.Join(table.Names(c), " "))
	}

	return strings.TrimRight(sb.String(), "\n")
}

