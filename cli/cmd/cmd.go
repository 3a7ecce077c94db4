package cmd

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/goccy/go-yaml"
	"github.com/klauspost/readahead"

	"github.com/ardnew/blockcss/block"
	"github.com/ardnew/blockcss/log"
	"github.com/ardnew/blockcss/pkg"
	"github.com/ardnew/blockcss/theme"
	"github.com/ardnew/blockcss/tmpl"
)

// contextKey is used to store a [kong.Context] value in [context.Context].
type contextKey struct{}

// WithContext returns a new context.Context containing the given kong.Context.
func WithContext(ctx context.Context, ktx *kong.Context) context.Context {
	return context.WithValue(ctx, contextKey{}, ktx)
}

func kongContextFrom(ctx context.Context) *kong.Context {
	ktx, ok := ctx.Value(contextKey{}).(*kong.Context)
	if !ok || ktx == nil {
		return nil
	}

	return ktx
}

// Env carries the global options shared by every command.
type Env struct {
	// Include lists directories searched for templates, token tables and
	// field files before the <PREFIX>_PATH entries.
	Include []string
	// Tokens names the token table file. Empty uses the built-in table.
	Tokens string
	// Literal resolves theme.json tokens to literal values.
	Literal bool
	// BlockDirs lists directories of additional block definitions.
	BlockDirs []string
	// Strict logs evaluation warnings.
	Strict bool
	// CacheDir holds transient files such as the playground history.
	CacheDir string

	Stdin  io.Reader
	Stdout io.Writer
	Logger log.Logger
}

type envKey struct{}

// WithEnv returns a new context.Context carrying env.
func WithEnv(ctx context.Context, env Env) context.Context {
	return context.WithValue(ctx, envKey{}, env)
}

// envFrom returns the Env stored in ctx, with unset streams defaulting to
// the process streams and an unset logger to the default logger.
func envFrom(ctx context.Context) Env {
	env, _ := ctx.Value(envKey{}).(Env)

	if env.Stdin == nil {
		env.Stdin = os.Stdin
	}

	if env.Stdout == nil {
		env.Stdout = os.Stdout
	}

	if env.Logger.Logger == nil {
		env.Logger = log.Default()
	}

	return env
}

// table loads the configured token table.
func (e Env) table(ctx context.Context) (*theme.Table, error) {
	if e.Tokens == "" {
		return theme.Default(), nil
	}

	path, ok := pkg.Find(e.Tokens, e.Include...)
	if !ok {
		return nil, pkg.ErrNotFound.Wrap(fmt.Errorf("token table %q", e.Tokens))
	}

	return theme.LoadFile(ctx, path,
		theme.WithLogger(e.Logger),
		theme.WithLiteralValues(e.Literal))
}

// compiler returns a compiler over the configured token table.
func (e Env) compiler(ctx context.Context) (*tmpl.Compiler, error) {
	table, err := e.table(ctx)
	if err != nil {
		return nil, err
	}

	return tmpl.New(table,
		tmpl.WithLogger(e.Logger),
		tmpl.WithStrict(e.Strict),
		tmpl.WithCache(tmpl.NewCache(e.Logger)),
	), nil
}

// registry returns a registry holding the built-in blocks followed by the
// definitions found in BlockDirs.
func (e Env) registry(ctx context.Context) (*block.Registry, error) {
	c, err := e.compiler(ctx)
	if err != nil {
		return nil, err
	}

	reg := block.NewRegistry(c, block.WithRegistryLogger(e.Logger))

	if err := reg.Register(ctx, block.Builtins()...); err != nil {
		return nil, err
	}

	for _, dir := range e.BlockDirs {
		defs, err := block.LoadDir(ctx, dir)
		if err != nil {
			return nil, err
		}

		if err := reg.Register(ctx, defs...); err != nil {
			return nil, err
		}

		e.Logger.DebugContext(ctx, "loaded block definitions",
			slog.String("dir", dir),
			slog.Int("count", len(defs)))
	}

	return reg, nil
}

// stdinSource is the special source indicator for reading from stdin.
const stdinSource = "-"

// readSource returns the content of the named file, located through the
// search path, or of stdin for "-".
func (e Env) readSource(name string) (string, error) {
	var r io.Reader

	if name == stdinSource || name == "" {
		r = e.Stdin
	} else {
		path, ok := pkg.Find(name, e.Include...)
		if !ok {
			return "", pkg.ErrNotFound.Wrap(fmt.Errorf("%q", name))
		}

		f, err := os.Open(path)
		if err != nil {
			return "", pkg.ErrReadInput.Wrap(err)
		}
		defer f.Close()

		r = f
	}

	ra := readahead.NewReader(r)
	defer ra.Close()

	data, err := io.ReadAll(ra)
	if err != nil {
		return "", pkg.ErrReadInput.Wrap(err)
	}

	return string(data), nil
}

// sourceName returns the template name reported in diagnostics.
func sourceName(name string) string {
	if name == stdinSource || name == "" {
		return "<stdin>"
	}

	return name
}

// valueFlags are the field assignment flags of compile and render.
type valueFlags struct {
	Fields string   `help:"YAML or JSON file of field values."          placeholder:"FILE"       short:"f"`
	Set    []string `help:"Set a field value. Values are YAML scalars." placeholder:"NAME=VALUE" short:"s" sep:"none"`
}

// values merges the fields file with the --set assignments. Assignments
// win.
func (f valueFlags) values(ctx context.Context, env Env) (map[string]any, error) {
	values := map[string]any{}

	if f.Fields != "" {
		src, err := env.readSource(f.Fields)
		if err != nil {
			return nil, err
		}

		if err := yaml.UnmarshalContext(ctx, []byte(src), &values); err != nil {
			return nil, pkg.ErrParse.Wrap(fmt.Errorf("%s: %w", f.Fields, err))
		}
	}

	assigned, err := parseAssignments(f.Set)
	if err != nil {
		return nil, err
	}

	for k, v := range assigned {
		values[strings.TrimPrefix(k, tmpl.RootFields+".")] = v
	}

	return values, nil
}

// derivedValues parses NAME=VALUE pairs into derived values.
func derivedValues(pairs []string) (map[string]tmpl.Value, error) {
	assigned, err := parseAssignments(pairs)
	if err != nil {
		return nil, err
	}

	out := make(map[string]tmpl.Value, len(assigned))

	for k, v := range assigned {
		out[k], _ = tmpl.ValueOf(v)
	}

	return out, nil
}

// parseAssignments parses NAME=VALUE pairs. Values are decoded as YAML
// scalars so numbers and booleans keep their type; anything else is kept
// as the literal text.
func parseAssignments(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))

	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)

		if !ok || name == "" {
			return nil, pkg.ErrInvalidAssignment.Wrap(fmt.Errorf("%q", pair))
		}

		out[name] = tmpl.ParseScalar(raw)
	}

	return out, nil
}


// fileKey uniquely identifies a file by its device and inode numbers.
// This handles deduplication across symlinks, absolute/relative paths, and
// special device files.
type fileKey struct {
	dev uint64
	ino uint64
}

// uniqueSources drops names that refer to a file already listed, comparing
// device and inode after resolving symlinks. Names that cannot be resolved
// are kept so that reading them reports the error. Stdin is kept once.
func uniqueSources(names []string) []string {
	seen := make(map[fileKey]struct{}, len(names))
	out := make([]string, 0, len(names))
	stdin := false

	for _, name := range names {
		if name == stdinSource {
			if !stdin {
				out = append(out, name)
			}

			stdin = true

			continue
		}

		key, ok := resolveFileKey(name)
		if ok {
			if _, dup := seen[key]; dup {
				continue
			}

			seen[key] = struct{}{}
		}

		out = append(out, name)
	}

	return out
}

func resolveFileKey(path string) (fileKey, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fileKey{}, false
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		return fileKey{}, false
	}

	info, err := os.Stat(resolved)
	if err != nil {
		return fileKey{}, false
	}

	return makeFileKey(info)
}

// makeFileKey creates a fileKey from os.FileInfo.
// Returns false if the underlying Sys() data is not of type *syscall.Stat_t.
func makeFileKey(info os.FileInfo) (key fileKey, ok bool) {
	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return key, false
	}

	return fileKey{dev: uint64(stat.Dev), ino: stat.Ino}, true //nolint:unconvert
}
