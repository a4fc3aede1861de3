// Package observability provides logging, metrics, and tracing.
package observability

import (
	"context"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel/trace"
)

// Logger wraps slog.Logger for the repository and background-work helpers.
type Logger struct {
	*slog.Logger
}

// GlobalLogger is used by packages that sit below the HTTP middleware.
// cmd/server points it at the request-aware logger on startup.
var GlobalLogger = &Logger{Logger: slog.New(slog.NewJSONHandler(os.Stdout, nil))}

// SetLogger replaces GlobalLogger. nil is ignored.
func SetLogger(l *slog.Logger) {
	if l != nil {
		GlobalLogger = &Logger{Logger: l}
	}
}

// LoggingConfig switches the optional log streams.
type LoggingConfig struct {
	// EnableRepoLogging logs every repository write.
	EnableRepoLogging bool
	// EnableAsyncLogging logs start and end of background work (mail,
	// audit, events). Failures are logged regardless.
	EnableAsyncLogging bool
}

var Config = LoggingConfig{EnableAsyncLogging: true}

// traceAttr returns the active trace id so log lines join up with spans.
func traceAttr(ctx context.Context) slog.Attr {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return slog.Attr{}
	}
	return slog.String("trace_id", sc.TraceID().String())
}

func withFields(attrs []slog.Attr, fields map[string]any) []slog.Attr {
	for k, v := range fields {
		attrs = append(attrs, slog.Any(k, v))
	}
	return attrs
}

// RepoLogger logs writes against one table.
type RepoLogger struct {
	table string
}

func NewRepoLogger(table string) *RepoLogger {
	return &RepoLogger{table: table}
}

func (l *RepoLogger) write(ctx context.Context, op string, fields map[string]any) {
	if !Config.EnableRepoLogging {
		return
	}
	attrs := withFields([]slog.Attr{slog.String("table", l.table), slog.String("operation", op), traceAttr(ctx)}, fields)
	GlobalLogger.LogAttrs(ctx, slog.LevelInfo, "repository "+op, attrs...)
}

func (l *RepoLogger) LogCreate(ctx context.Context, fields map[string]any) { l.write(ctx, "create", fields) }
func (l *RepoLogger) LogUpdate(ctx context.Context, fields map[string]any) { l.write(ctx, "update", fields) }
func (l *RepoLogger) LogDelete(ctx context.Context, fields map[string]any) { l.write(ctx, "delete", fields) }

// LogError is always written.
func (l *RepoLogger) LogError(ctx context.Context, err error, op string) {
	GlobalLogger.LogAttrs(ctx, slog.LevelError, "repository error",
		slog.String("table", l.table),
		slog.String("operation", op),
		slog.String("error", err.Error()),
		traceAttr(ctx),
	)
}

func logAsync(ctx context.Context, level slog.Level, msg, op, phase string, fields map[string]any) {
	attrs := withFields([]slog.Attr{slog.String("operation", op), slog.String("phase", phase), traceAttr(ctx)}, fields)
	GlobalLogger.LogAttrs(ctx, level, msg, attrs...)
}

// LogAsyncOperationStart logs that background work was handed off.
func LogAsyncOperationStart(ctx context.Context, op string, fields map[string]any) {
	if Config.EnableAsyncLogging {
		logAsync(ctx, slog.LevelDebug, "async operation started", op, "start", fields)
	}
}

// LogAsyncOperationEnd logs that background work finished.
func LogAsyncOperationEnd(ctx context.Context, op string, fields map[string]any) {
	if Config.EnableAsyncLogging {
		logAsync(ctx, slog.LevelInfo, "async operation completed", op, "end", fields)
	}
}

// LogAsyncOperationError logs a failed background operation.
func LogAsyncOperationError(ctx context.Context, op string, err error, fields map[string]any) {
	fields = withErr(fields, err)
	logAsync(ctx, slog.LevelError, "async operation failed", op, "error", fields)
}

func withErr(fields map[string]any, err error) map[string]any {
	out := make(map[string]any, len(fields)+1)
	for k, v := range fields {
		out[k] = v
	}
	out["error"] = err.Error()
	return out
}
