// Package cmd implements the blockcss subcommands.
//
// Each command is a kong command struct with a Run(context.Context) error
// method. Global options reach commands through the [Env] stored in the
// context by [WithEnv]; the parsed kong context is stored by
// [WithContext].
package cmd

var (
	// CacheIdentifier is the kong variable identifier containing the path to
	// the runtime cache directory.
	CacheIdentifier = "cache"

	// ConfigIdentifier is the kong variable identifier containing the path of
	// the YAML configuration file.
	ConfigIdentifier = "config"
)
