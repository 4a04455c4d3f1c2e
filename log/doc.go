// Package log provides a simplified structured logging interface based on
// [log/slog], with a trace level below debug, configurable time layouts,
// and a colorized single-line text format for terminals.
//
// Loggers are immutable values: configuration is applied at creation with
// functional options, and [Logger.Wrap] layers new options over an
// existing logger.
//
//	logger := log.New(os.Stderr,
//		log.WithLevel(log.LevelDebug),
//		log.WithFormat(log.FormatText))
//
//	logger.Info("task complete", slog.String("task", "train"))
//
// A process-wide default logger writes to standard error at [DefaultLevel];
// the package-level [Trace], [Debug], [Info], [Warn], and [Error] functions
// use it, and [Configure] adjusts it.
package log
