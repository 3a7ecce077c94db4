package pkg

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"sync"

	"github.com/ardnew/mung"
)

// Prefix returns the base name used to construct the configuration directory
// and the prefix of environment variable identifiers.
//
// It is the base name of the executable file with these substitutions:
//   - "__debug_bin" (default output of the dlv debugger): replaced with [Name]
//   - "^\.+" (dot-prefixed names): remove the dot prefix
//
//nolint:gochecknoglobals
var Prefix = sync.OnceValue(
	func() string {
		id := os.Args[0]
		if exe, err := os.Executable(); err == nil {
			id = exe
		}

		id = strings.TrimSuffix(filepath.Base(id), filepath.Ext(id))

		for rex, rep := range map[*regexp.Regexp]string{
			regexp.MustCompile(`^__debug_bin\d*$`): Name,
			regexp.MustCompile(`^\.+`):             "",
		} {
			id = rex.ReplaceAllString(id, rep)
		}

		if id == "" {
			id = Name
		}

		return id
	},
)

// EnvPrefix returns the prefix of environment variables read by the CLI,
// e.g. "BLOCKCSS_".
func EnvPrefix() string {
	return strings.ToUpper(strings.NewReplacer("-", "_", ".", "_").Replace(Prefix())) + "_"
}

// ConfigDir returns the configuration directory path.
//
//nolint:gochecknoglobals
var ConfigDir = sync.OnceValue(
	func() string {
		return filepath.Join(userDir(os.UserConfigDir, ".config"), Prefix())
	},
)

// CacheDir returns the cache directory path used for transient files.
//
//nolint:gochecknoglobals
var CacheDir = sync.OnceValue(
	func() string {
		return filepath.Join(userDir(os.UserCacheDir, ".cache"), Prefix())
	},
)

// ConfigFile returns the path of the YAML configuration file.
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

func userDir(lookup func() (string, error), fallback string) string {
	if dir, err := lookup(); err == nil {
		return dir
	}

	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, fallback)
	}

	if wd, err := os.Getwd(); err == nil {
		return wd
	}

	return "."
}

// SearchPath returns the directories searched for templates, token tables
// and block definitions: dirs first, followed by the entries of the
// <PREFIX>_PATH environment variable. Empty entries are dropped.
func SearchPath(dirs ...string) []string {
	return splitPathList(mung.Make(
		mung.WithSubjectItems(os.Getenv(EnvPrefix()+"PATH")),
		mung.WithDelim(string(os.PathListSeparator)),
		mung.WithPrefixItems(dirs...),
		mung.WithFilter(func(s string) bool { return strings.TrimSpace(s) != "" }),
	).String())
}

// Find returns the first existing file named name in the search path.
// Absolute names and names that exist relative to the working directory are
// returned unchanged.
func Find(name string, dirs ...string) (string, bool) {
	if filepath.IsAbs(name) || fileExists(name) {
		return name, fileExists(name)
	}

	for _, dir := range SearchPath(dirs...) {
		if p := filepath.Join(dir, name); fileExists(p) {
			return p, true
		}
	}

	return name, false
}

func splitPathList(s string) []string {
	var out []string

	for _, p := range filepath.SplitList(s) {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}

	return out
}

func fileExists(path string) bool {
	info, err := os.Stat(path)

	return err == nil && info.Mode().IsRegular()
}
