package monitoring

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"
)

// LogLevel represents the severity level of a log message
type LogLevel int

const (
	LevelDebug LogLevel = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l LogLevel) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

func (l LogLevel) slog() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelWarn:
		return slog.LevelWarn
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// ParseLogLevel maps "debug", "info", "warn" and "error" to a level, defaulting to info.
func ParseLogLevel(s string) LogLevel {
	switch s {
	case "debug":
		return LevelDebug
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// LogFormat represents the output format for logs
type LogFormat int

const (
	FormatJSON LogFormat = iota
	FormatText
	FormatConsole
)

// ParseLogFormat maps "json", "text" and "console" to a format, defaulting to JSON.
func ParseLogFormat(s string) LogFormat {
	switch s {
	case "text":
		return FormatText
	case "console":
		return FormatConsole
	default:
		return FormatJSON
	}
}

type contextKey string

// CallIDKey carries the id of the current top-level serializer call.
const CallIDKey contextKey = KeyCallID

// ContextWithCallID returns ctx carrying id under CallIDKey.
func ContextWithCallID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CallIDKey, id)
}

// CallID returns the call id carried by ctx, if any.
func CallID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(CallIDKey).(string)
	return id, ok
}

// StructuredLogger wraps a slog.Logger with a level gate and a set of default fields.
type StructuredLogger struct {
	logger    *slog.Logger
	level     LogLevel
	fields    map[string]any
	component string
}

// LoggerConfig configures the structured logger
type LoggerConfig struct {
	Level     LogLevel
	Format    LogFormat
	Output    io.Writer
	Component string
	Fields    map[string]any
}

func NewStructuredLogger(config LoggerConfig) *StructuredLogger {
	if config.Output == nil {
		config.Output = os.Stdout
	}

	opts := &slog.HandlerOptions{
		Level: config.Level.slog(),
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				a.Value = slog.StringValue(a.Value.Time().Format(time.RFC3339Nano))
			}
			return a
		},
	}

	var handler slog.Handler
	switch config.Format {
	case FormatText:
		handler = slog.NewTextHandler(config.Output, opts)
	case FormatConsole:
		handler = NewConsoleHandler(config.Output, opts)
	default:
		handler = slog.NewJSONHandler(config.Output, opts)
	}

	fields := make(map[string]any, len(config.Fields)+2)
	for k, v := range config.Fields {
		fields[k] = v
	}
	if config.Component != "" {
		fields["component"] = config.Component
	}
	fields["service"] = "serx"

	return &StructuredLogger{
		logger:    slog.New(handler),
		level:     config.Level,
		fields:    fields,
		component: config.Component,
	}
}

// WithFields returns a new logger with additional fields
func (l *StructuredLogger) WithFields(fields map[string]any) *StructuredLogger {
	merged := make(map[string]any, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &StructuredLogger{
		logger:    l.logger,
		level:     l.level,
		fields:    merged,
		component: l.component,
	}
}

// WithContext returns a new logger carrying the call id found in ctx.
func (l *StructuredLogger) WithContext(ctx context.Context) *StructuredLogger {
	if id, ok := CallID(ctx); ok {
		return l.WithFields(map[string]any{KeyCallID: id})
	}
	return l
}

// Slog returns a *slog.Logger that carries the default fields.
func (l *StructuredLogger) Slog() *slog.Logger {
	return l.logger.With(l.attrs()...)
}

func (l *StructuredLogger) Debug(msg string, args ...any) {
	l.log(context.Background(), LevelDebug, msg, args...)
}

func (l *StructuredLogger) Info(msg string, args ...any) {
	l.log(context.Background(), LevelInfo, msg, args...)
}

func (l *StructuredLogger) Warn(msg string, args ...any) {
	l.log(context.Background(), LevelWarn, msg, args...)
}

func (l *StructuredLogger) Error(msg string, args ...any) {
	l.log(context.Background(), LevelError, msg, args...)
}

func (l *StructuredLogger) log(ctx context.Context, level LogLevel, msg string, args ...any) {
	if level < l.level {
		return
	}
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	l.logger.Log(ctx, level.slog(), msg, l.attrs()...)
}

func (l *StructuredLogger) attrs() []any {
	attrs := make([]any, 0, len(l.fields))
	for k, v := range l.fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	return attrs
}

// LogProcess logs the outcome of a serializer call with standard fields.
func (l *StructuredLogger) LogProcess(ctx context.Context, operation string, duration time.Duration, err error, metadata map[string]any) {
	fields := map[string]any{
		"operation":   operation,
		"duration":    duration.String(),
		"duration_ms": duration.Milliseconds(),
	}
	for k, v := range metadata {
		fields[k] = v
	}
	if err != nil {
		fields["error"] = err.Error()
		fields["error_type"] = fmt.Sprintf("%T", err)
		l.WithContext(ctx).WithFields(fields).Error("%s failed", operation)
		return
	}
	l.WithContext(ctx).WithFields(fields).Info("%s completed", operation)
}

// ConsoleHandler provides colorized console output
type ConsoleHandler struct {
	handler slog.Handler
	output  io.Writer
}

func NewConsoleHandler(output io.Writer, opts *slog.HandlerOptions) *ConsoleHandler {
	return &ConsoleHandler{
		handler: slog.NewTextHandler(output, opts),
		output:  output,
	}
}

func (h *ConsoleHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.handler.Enabled(ctx, level)
}

func (h *ConsoleHandler) Handle(ctx context.Context, record slog.Record) error {
	var level string
	switch {
	case record.Level >= slog.LevelError:
		level = "\033[31mERROR\033[0m"
	case record.Level >= slog.LevelWarn:
		level = "\033[33mWARN\033[0m"
	case record.Level >= slog.LevelInfo:
		level = "\033[32mINFO\033[0m"
	default:
		level = "\033[36mDEBUG\033[0m"
	}

	fmt.Fprintf(h.output, "%s [%s] %s", record.Time.Format("15:04:05.000"), level, record.Message)
	record.Attrs(func(a slog.Attr) bool {
		fmt.Fprintf(h.output, " %s=%s", a.Key, a.Value)
		return true
	})
	_, err := fmt.Fprintln(h.output)
	return err
}

func (h *ConsoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ConsoleHandler{handler: h.handler.WithAttrs(attrs), output: h.output}
}

func (h *ConsoleHandler) WithGroup(name string) slog.Handler {
	return &ConsoleHandler{handler: h.handler.WithGroup(name), output: h.output}
}

// NewProductionLogger reads SERX_LOG_LEVEL and SERX_LOG_FORMAT from the environment.
func NewProductionLogger(component string) *StructuredLogger {
	return NewStructuredLogger(LoggerConfig{
		Level:     ParseLogLevel(os.Getenv("SERX_LOG_LEVEL")),
		Format:    ParseLogFormat(os.Getenv("SERX_LOG_FORMAT")),
		Output:    os.Stderr,
		Component: component,
		Fields:    map[string]any{"pid": os.Getpid()},
	})
}

// NewDevelopmentLogger logs everything to out in console format, stderr when out is nil.
func NewDevelopmentLogger(component string, out io.Writer) *StructuredLogger {
	if out == nil {
		out = os.Stderr
	}
	return NewStructuredLogger(LoggerConfig{
		Level:     LevelDebug,
		Format:    FormatConsole,
		Output:    out,
		Component: component,
	})
}
