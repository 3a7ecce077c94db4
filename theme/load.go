package theme

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"unicode"

	"github.com/goccy/go-yaml"
	"github.com/klauspost/readahead"

	"github.com/ardnew/blockcss/log"
	"github.com/ardnew/blockcss/pkg"
)

// Sentinel errors returned by the loaders.
var (
	ErrReadTokens   = pkg.MakeErrorf("failed to read token table")
	ErrDecodeTokens = pkg.MakeErrorf("failed to decode token table")
	ErrInvalidToken = pkg.MakeErrorf("invalid token")
)

//go:embed default.yaml
var defaultTokens []byte

// Default returns the built-in token table. It references the WordPress
// preset custom properties of a block theme.
//
//nolint:gochecknoglobals
var Default = sync.OnceValue(func() *Table {
	t, err := Load(context.Background(), bytes.NewReader(defaultTokens))
	if err != nil {
		panic(err)
	}

	return t
})

type loader struct {
	logger  log.Logger
	literal bool
}

// Option configures [Load].
type Option func(*loader)

// WithLogger sets the logger receiving trace events.
func WithLogger(logger log.Logger) Option {
	return func(l *loader) { l.logger = logger }
}

// WithLiteralValues makes theme.json tokens resolve to their literal values
// (e.g. "#1e3a5f") instead of the preset custom property reference
// (e.g. "var(--wp--preset--color--primary)").
func WithLiteralValues(enable bool) Option {
	return func(l *loader) { l.literal = enable }
}

// themeJSON is the subset of a WordPress theme.json carrying design tokens.
type themeJSON struct {
	Settings struct {
		Color struct {
			Palette []preset `yaml:"palette"`
		} `yaml:"color"`
		Typography struct {
			FontSizes []preset `yaml:"fontSizes"`
		} `yaml:"typography"`
		Spacing struct {
			SpacingSizes []preset `yaml:"spacingSizes"`
		} `yaml:"spacing"`
	} `yaml:"settings"`
}

type preset struct {
	Slug  string `yaml:"slug"`
	Name  string `yaml:"name"`
	Color string `yaml:"color"`
	Size  any    `yaml:"size"`
}

// Load decodes a token table from r. The input is YAML or JSON in one of
// two shapes:
//
//	# flat
//	color:
//	  primary: "var(--color-primary)"
//	spacing:
//	  md: 1.5rem
//
//	# WordPress theme.json
//	{"version": 3, "settings": {"color": {"palette": [{"slug": "primary", "color": "#123"}]}}}
func Load(ctx context.Context, r io.Reader, opts ...Option) (*Table, error) {
	var l loader

	for _, opt := range opts {
		opt(&l)
	}

	ra := readahead.NewReader(r)
	defer ra.Close()

	data, err := io.ReadAll(ra)
	if err != nil {
		return nil, ErrReadTokens.Wrap(err)
	}

	var doc map[string]any
	if err := yaml.UnmarshalContext(ctx, data, &doc); err != nil {
		return nil, ErrDecodeTokens.Wrap(err)
	}

	var table *Table

	if _, ok := doc["settings"]; ok {
		table, err = l.loadThemeJSON(ctx, data)
	} else {
		table, err = l.loadFlat(doc)
	}

	if err != nil {
		return nil, err
	}

	l.logger.TraceContext(ctx, "loaded token table",
		slog.Int("tokens", table.Len()),
		slog.Int("categories", len(table.Categories())))

	return table, nil
}

// LoadFile decodes the token table stored in the named file.
func LoadFile(ctx context.Context, path string, opts ...Option) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ErrReadTokens.Wrap(err)
	}
	defer f.Close()

	t, err := Load(ctx, f, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return t, nil
}

func (l loader) loadFlat(doc map[string]any) (*Table, error) {
	tokens := map[Category]map[string]string{}

	for key, val := range doc {
		names, ok := val.(map[string]any)
		if !ok {
			return nil, ErrDecodeTokens.Wrapf("category %q: expected mapping, got %T", key, val)
		}

		c := ParseCategory(key)
		if tokens[c] == nil {
			tokens[c] = map[string]string{}
		}

		for name, v := range names {
			s, err := scalar(v)
			if err != nil {
				return nil, ErrInvalidToken.Wrapf("%s.%s: %w", key, name, err)
			}

			tokens[c][name] = s
		}
	}

	return NewTable(tokens), nil
}

func (l loader) loadThemeJSON(ctx context.Context, data []byte) (*Table, error) {
	var doc themeJSON
	if err := yaml.UnmarshalContext(ctx, data, &doc); err != nil {
		return nil, ErrDecodeTokens.Wrap(err)
	}

	tokens := map[Category]map[string]string{}

	add := func(c Category, presets []preset, literal func(preset) any) error {
		for _, p := range presets {
			if p.Slug == "" {
				return ErrInvalidToken.Wrapf("%s preset %q has no slug", c, p.Name)
			}

			if tokens[c] == nil {
				tokens[c] = map[string]string{}
			}

			if !l.literal {
				tokens[c][p.Slug] = PresetVar(c, p.Slug)

				continue
			}

			s, err := scalar(literal(p))
			if err != nil {
				return ErrInvalidToken.Wrapf("%s.%s: %w", c, p.Slug, err)
			}

			tokens[c][p.Slug] = s
		}

		return nil
	}

	size := func(p preset) any { return p.Size }

	if err := add(Color, doc.Settings.Color.Palette, func(p preset) any { return p.Color }); err != nil {
		return nil, err
	}

	if err := add(FontSize, doc.Settings.Typography.FontSizes, size); err != nil {
		return nil, err
	}

	if err := add(Spacing, doc.Settings.Spacing.SpacingSizes, size); err != nil {
		return nil, err
	}

	return NewTable(tokens), nil
}

// PresetVar returns the custom property reference WordPress generates for
// a theme.json preset, e.g. "var(--wp--preset--font-size--large)". The slug
// is kebab-cased the way WordPress does: "primaryDark" yields
// "--wp--preset--color--primary-dark".
func PresetVar(c Category, slug string) string {
	return "var(--wp--preset--" + string(c) + "--" + kebabCase(slug) + ")"
}

// kebabCase splits s into lower-cased words joined by hyphens. A word ends
// at any rune that is neither letter nor digit, between letters and
// digits, before an upper-case letter that follows a lower-case one, and
// before the last upper-case letter of a run followed by a lower-case one.
func kebabCase(s string) string {
	rs := []rune(s)

	var (
		words []string
		word  []rune
	)

	flush := func() {
		if len(word) > 0 {
			words = append(words, strings.ToLower(string(word)))
			word = word[:0]
		}
	}

	for i, r := range rs {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			flush()

			continue
		}

		if len(word) > 0 {
			prev := word[len(word)-1]

			switch {
			case unicode.IsDigit(prev) != unicode.IsDigit(r):
				flush()
			case unicode.IsUpper(r) && !unicode.IsUpper(prev):
				flush()
			case unicode.IsUpper(r) && unicode.IsUpper(prev) &&
				i+1 < len(rs) && unicode.IsLower(rs[i+1]):
				flush()
			}
		}

		word = append(word, r)
	}

	flush()

	return strings.Join(words, "-")
}

func scalar(v any) (string, error) {
	switch v := v.(type) {
	case string:
		return v, nil
	case bool, int, int64, uint64, float64:
		return fmt.Sprint(v), nil
	case nil:
		return "", fmt.Errorf("missing value")
	default:
		return "", fmt.Errorf("unsupported value type %T", v)
	}
}
