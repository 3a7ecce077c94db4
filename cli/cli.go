package cli

import (
	"context"
	"os"
	"strings"

	"github.com/alecthomas/kong"

	"github.com/ardnew/blockcss/cli/cmd"
	"github.com/ardnew/blockcss/log"
	"github.com/ardnew/blockcss/pkg"
)

// defaultDirMode is the permission mode of created runtime directories.
const defaultDirMode os.FileMode = 0o700

// CLI is the top-level command-line interface for blockcss.
type CLI struct {
	Log   logConfig   `embed:"" group:"log"   prefix:"log-"`
	Pprof pprofConfig `embed:"" group:"pprof" prefix:"pprof-"`

	Include   []string `help:"Directory searched for templates, token tables and field files" placeholder:"DIR"  short:"I" type:"path"`
	TokenFile string   `help:"Token table file (flat YAML/JSON or theme.json)"               placeholder:"FILE" short:"t" name:"tokens"`
	Literal   bool     `help:"Resolve theme.json tokens to their literal values"`
	BlockDirs []string `help:"Directory of additional block definitions"                     placeholder:"DIR"  name:"block-dir" type:"existingdir"`
	Strict    bool     `help:"Log evaluation warnings with suggestions"`

	Version kong.VersionFlag `help:"Print version and exit"`

	Compile cmd.Compile `cmd:"" default:"withargs" help:"Compile a template against field values"`
	Render  cmd.Render  `cmd:""                    help:"Render block instances"`
	Blocks  cmd.Blocks  `cmd:""                    help:"List block definitions"`
	Tokens  cmd.Tokens  `cmd:""                    help:"Print the token table"`
	Fmt     cmd.Fmt     `cmd:""                    help:"Format templates"`
	Check   cmd.Check   `cmd:""                    help:"Check templates for syntax errors"`
	Init    cmd.Init    `cmd:""                    help:"Initialize configuration file"`
	Play    cmd.Play    `cmd:""                    help:"Interactive template playground"`
}

// env returns the options shared by every command.
func (c *CLI) env() cmd.Env {
	return cmd.Env{
		Include:   c.Include,
		Tokens:    c.TokenFile,
		Literal:   c.Literal,
		BlockDirs: c.BlockDirs,
		Strict:    c.Strict,
		CacheDir:  pkg.CacheDir(),
		Logger:    log.Default(),
	}
}

// Run executes the blockcss CLI with the given context and arguments.
// The exit function is called with the appropriate exit code upon completion.
func Run(
	ctx context.Context,
	exit func(code int),
	args ...string,
) (err error) {
	var cli CLI

	if err := mkdirAllRequired(); err != nil {
		return err
	}

	configFile := pkg.ConfigFile()

	vars := kong.Vars{
		cmd.ConfigIdentifier: configFile,
		cmd.CacheIdentifier:  pkg.CacheDir(),
		"version":            pkg.Name + " " + pkg.Version(),
	}.
		CloneWith(cli.Log.vars()).
		CloneWith(cli.Pprof.vars())

	ctx, cancel := context.WithCancelCause(ctx)

	defer func(err *error) { cancel(*err) }(&err)

	// Logger flags are applied before parsing so that parse errors are
	// reported in the requested format.
	cli.Log.scan(args)

	parser, err := kong.New(&cli,
		kong.Name(pkg.Name),
		kong.Description(pkg.Description),
		kong.UsageOnError(),
		kong.Exit(exit),
		kong.ExplicitGroups(
			[]kong.Group{cli.Log.group(), cli.Pprof.group()},
		),
		kong.DefaultEnvars(strings.TrimSuffix(pkg.EnvPrefix(), "_")),
		kong.BindSingletonProvider(func() context.Context {
			return ctx
		}),
		kong.ConfigureHelp(
			kong.HelpOptions{
				Compact:             true,
				Summary:             true,
				Tree:                true,
				NoExpandSubcommands: true,
			}),
		kong.Configuration(kong.JSON, strings.TrimSuffix(configFile, ".yaml")+".json"),
		kong.Configuration(resolve(ctx), configFile),
		vars,
	)
	if err != nil {
		return err
	}

	ktx, err := parser.Parse(args)
	if err != nil {
		return err
	}

	cli.Log.start(ctx)

	// No-op unless built with tag pprof and a mode is selected.
	defer cli.Pprof.start(ctx)()

	ctx = cmd.WithContext(ctx, ktx)
	ctx = cmd.WithEnv(ctx, cli.env())

	return ktx.Run(&cli)
}

// mkdirAllRequired creates the configuration and cache directories.
func mkdirAllRequired() error {
	for _, dir := range []string{pkg.ConfigDir(), pkg.CacheDir()} {
		if err := os.MkdirAll(dir, defaultDirMode); err != nil {
			return err
		}
	}

	return nil
}
