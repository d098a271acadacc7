package logger_i

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/akolanti/irbench/internal/config"
)

type Logger struct {
	inner *slog.Logger
}

type Options struct {
	Level string
	JSON  bool
	Dir   string //when set, lines are also appended to a daily file
	// Stderr keeps stdout free for protocol output (mcp over stdio).
	Stderr bool
}

// Init installs the process-wide handler. The returned closer releases the
// daily log file, if one was opened.
func Init(opts Options) (io.Closer, error) {
	options := &slog.HandlerOptions{
		Level: parseLevel(opts.Level),
	}

	var console io.Writer = os.Stdout
	if opts.Stderr {
		console = os.Stderr
	}
	out := console
	var file *os.File
	if opts.Dir != "" {
		if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("create log dir: %w", err)
		}
		name := filepath.Join(opts.Dir, fmt.Sprintf("irbench_%s.log", time.Now().Format("2006-01-02")))
		f, err := os.OpenFile(name, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		file = f
		out = io.MultiWriter(console, f)
	}

	var handler slog.Handler
	if config.IS_PROD || opts.JSON {
		handler = slog.NewJSONHandler(out, options)
	} else {
		handler = slog.NewTextHandler(out, options)
	}
	slog.SetDefault(slog.New(handler))

	if file == nil {
		return io.NopCloser(nil), nil
	}
	return file, nil
}

func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "":
		if config.IS_PROD {
			return config.LOG_LEVEL_PROD
		}
		return slog.LevelDebug
	default:
		return slog.LevelInfo
	}
}

func NewLogger(section string) *Logger {
	return &Logger{
		inner: slog.Default().With("component", section),
	}
}

func (l *Logger) Info(msg string, args ...any) {
	l.inner.Info(msg, args...)
}

func (l *Logger) Error(msg string, args ...any) {
	l.logWithSource(slog.LevelError, msg, args...)
}

func (l *Logger) Warn(msg string, args ...any) {
	l.logWithSource(slog.LevelWarn, msg, args...)
}

func (l *Logger) Debug(msg string, args ...any) {
	l.logWithSource(slog.LevelDebug, msg, args...)
}

func (l *Logger) logWithSource(level slog.Level, msg string, args ...any) {
	if !l.inner.Enabled(context.Background(), level) {
		return
	}
	var pcs [1]uintptr
	// Skip 3 levels: runtime.Callers, logWithSource, and Err/Dbg wrapper
	runtime.Callers(3, pcs[:])
	r := slog.NewRecord(time.Now(), level, msg, pcs[0])
	r.Add(args...)
	_ = l.inner.Handler().Handle(context.Background(), r)
}

func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		inner: l.inner.With(args...),
	}
}

// WithTrace attaches the trace id carried by ctx, if any.
func (l *Logger) WithTrace(ctx context.Context) *Logger {
	if trace, ok := ctx.Value(config.TRACE_ID_KEY).(string); ok && trace != "" {
		return l.With("traceId", trace)
	}
	return l
}
