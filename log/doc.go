// Package log provides a simplified structured logging interface based on
// [log/slog].
//
// Loggers are configured at creation time with functional options:
//
//	logger := log.Make(os.Stderr,
//		log.WithLevel(log.LevelDebug),
//		log.WithFormat(log.FormatJSON),
//		log.WithTimeLayout("StampMilli"),
//		log.WithCaller(true))
//
// Five levels are supported: trace, debug, info, warn, and error. Text
// output is colorized by default ([WithColor] disables it); JSON output is
// plain.
//
// The package-level functions ([Debug], [Info], [Warn], [Error], [Trace])
// write through a default logger on stderr, reconfigurable with [Config].
package log
