// Package log provides a small structured logging layer over [log/slog].
//
// A [Logger] is a value type. Its configuration (level, format, time layout,
// caller info, pretty printing) is fixed when the logger is created with
// [Make] or derived with [Logger.Wrap]:
//
//	logger := log.Make(os.Stderr,
//		log.WithLevel(log.LevelDebug),
//		log.WithFormat(log.FormatText))
//	logger.Info("compiled template", slog.String("name", "hero"))
//
// The zero Logger discards everything, so packages can embed one without
// checking whether a caller configured logging.
//
// The package also keeps a process-wide default logger used by the
// package-level functions ([Info], [WarnContext], ...). [Config] replaces
// it with a copy carrying the given options.
package log
