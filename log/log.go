package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"runtime"
	"sync/atomic"
	"time"
)

// Logger provides a simplified structured logging interface based on
// [log/slog]. The zero value discards everything.
type Logger struct {
	*slog.Logger
	config
}

// New creates a [Logger] that writes to w, configured by the given
// functional options ([WithLevel], [WithFormat], [WithTimeLayout],
// [WithCaller], [WithPretty]).
func New(w io.Writer, opts ...Option) Logger {
	cfg := makeConfig(w, opts...)

	return Logger{
		config: cfg,
		Logger: slog.New(cfg.handler()),
	}
}

// Wrap returns a new [Logger] using the receiver's configuration as the
// base, with the given options overriding specific values.
func (l Logger) Wrap(opts ...Option) Logger {
	cfg := apply(l.config, opts...)

	return Logger{
		config: cfg,
		Logger: slog.New(cfg.handler()),
	}
}

// With returns a new [Logger] that includes the given attributes in every
// log message.
func (l Logger) With(attrs ...slog.Attr) Logger {
	if l.Logger == nil {
		return l
	}

	return Logger{
		config: l.config,
		Logger: slog.New(l.Handler().WithAttrs(attrs)),
	}
}

// Level returns the minimum log level.
func (l Logger) Level() Level {
	if l.Logger == nil {
		return DefaultLevel
	}

	return l.level
}

// Format returns the log output format.
func (l Logger) Format() Format {
	if l.Logger == nil {
		return DefaultFormat
	}

	return l.format
}

// TraceContext logs a message at trace level with the provided context.
func (l Logger) TraceContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.logAt(ctx, LevelTrace, msg, attrs...)
}

// Trace logs a message at trace level.
func (l Logger) Trace(msg string, attrs ...slog.Attr) {
	l.logAt(context.Background(), LevelTrace, msg, attrs...)
}

// DebugContext logs a message at debug level with the provided context.
func (l Logger) DebugContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.logAt(ctx, LevelDebug, msg, attrs...)
}

// Debug logs a message at debug level.
func (l Logger) Debug(msg string, attrs ...slog.Attr) {
	l.logAt(context.Background(), LevelDebug, msg, attrs...)
}

// InfoContext logs a message at info level with the provided context.
func (l Logger) InfoContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.logAt(ctx, LevelInfo, msg, attrs...)
}

// Info logs a message at info level.
func (l Logger) Info(msg string, attrs ...slog.Attr) {
	l.logAt(context.Background(), LevelInfo, msg, attrs...)
}

// WarnContext logs a message at warn level with the provided context.
func (l Logger) WarnContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.logAt(ctx, LevelWarn, msg, attrs...)
}

// Warn logs a message at warn level.
func (l Logger) Warn(msg string, attrs ...slog.Attr) {
	l.logAt(context.Background(), LevelWarn, msg, attrs...)
}

// ErrorContext logs a message at error level with the provided context.
func (l Logger) ErrorContext(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.logAt(ctx, LevelError, msg, attrs...)
}

// Error logs a message at error level.
func (l Logger) Error(msg string, attrs ...slog.Attr) {
	l.logAt(context.Background(), LevelError, msg, attrs...)
}

// logAt writes a log record at the given level, recording the program
// counter of the caller's caller so AddSource reports user code instead of
// this package.
func (l Logger) logAt(
	ctx context.Context,
	level Level,
	msg string,
	attrs ...slog.Attr,
) {
	if l.Logger == nil || !l.Enabled(ctx, slog.Level(level)) {
		return
	}

	var pcs [1]uintptr

	// 0=Callers, 1=logAt, 2=level method, 3=caller
	runtime.Callers(3, pcs[:])

	r := slog.NewRecord(time.Now(), slog.Level(level), msg, pcs[0])
	r.AddAttrs(attrs...)

	_ = l.Handler().Handle(ctx, r)
}

// std is the process-wide default logger, replaced atomically so logging
// from any goroutine races safely with [Configure].
var std atomic.Pointer[Logger]

func init() {
	l := New(os.Stderr)

	std.Store(&l)
}

// Default returns the process-wide default logger.
func Default() Logger {
	return *std.Load()
}

// Configure rebuilds the default logger with the given options layered on
// its current configuration.
func Configure(opts ...Option) {
	l := std.Load().Wrap(opts...)

	std.Store(&l)
}

// Trace logs a message at trace level to the default logger.
func Trace(msg string, attrs ...slog.Attr) {
	Default().logAt(context.Background(), LevelTrace, msg, attrs...)
}

// Debug logs a message at debug level to the default logger.
func Debug(msg string, attrs ...slog.Attr) {
	Default().logAt(context.Background(), LevelDebug, msg, attrs...)
}

// Info logs a message at info level to the default logger.
func Info(msg string, attrs ...slog.Attr) {
	Default().logAt(context.Background(), LevelInfo, msg, attrs...)
}

// Warn logs a message at warn level to the default logger.
func Warn(msg string, attrs ...slog.Attr) {
	Default().logAt(context.Background(), LevelWarn, msg, attrs...)
}

// Error logs a message at error level to the default logger.
func Error(msg string, attrs ...slog.Attr) {
	Default().logAt(context.Background(), LevelError, msg, attrs...)
}
