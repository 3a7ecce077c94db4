// Package cli contains the command line interface for blockcss.
//
// # Usage
//
//	blockcss [flags] compile TEMPLATE --set text_color=primary
//	blockcss render hero --block-id hero-1 --style
//	blockcss blocks
//	blockcss tokens --format css
//	blockcss check templates/*.css
//	blockcss play cta
//
// compile is the default command, so "blockcss TEMPLATE" compiles.
//
// # Configuration
//
// Flag values are read, in increasing precedence, from the configuration
// file (~/.config/blockcss/config.yaml, written by "blockcss init"),
// BLOCKCSS_* environment variables and the command line. Nested mappings
// in the file are joined with "-":
//
//	log:
//	  level: debug
//	include:
//	  - ./templates
//	tokens: theme.json
//
// Templates, token tables and field files named by relative path are
// searched in the working directory, the --include directories and the
// BLOCKCSS_PATH list.
//
// # Logging Options
//
//   - --log-level: Set minimum log level (trace, debug, info, warn, error)
//   - --log-format: Set log output format (json, text)
//   - --log-time-layout: Set timestamp format (RFC3339, Kitchen, none, ...)
//   - --log-caller: Include caller information in log output
//   - --log-pretty: Colorize log output
//
// # Profiling Options
//
// Profiling is only available when built with the pprof build tag:
//
//	go build -tags pprof -o blockcss .
//
//   - --pprof-mode: Enable profiling (allocs, block, clock, cpu, goroutine,
//     heap, mem, mutex, thread, trace)
//   - --pprof-dir: Set profile output directory (default:
//     ~/.cache/blockcss/pprof)
package cli
