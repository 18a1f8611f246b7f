package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// convertToZapFields converts error and additional field maps into Zap's structured logging fields.
// If multiple fields maps contain the same key, the later maps will override earlier ones.
func (l *LoggerClient) convertToZapFields(err error, fields ...map[string]interface{}) []zap.Field {
	var zapFields []zap.Field
	if err != nil {
		zapFields = append(zapFields, zap.Error(err))
	}

	// Iterate through optional field maps and convert them into Zap fields.
	for _, fieldMap := range fields {
		for key, value := range fieldMap {
			zapFields = append(zapFields, zap.Any(key, value))
		}
	}
	return zapFields
}

// traceFields returns the trace_id and span_id fields of the span carried by ctx.
func (l *LoggerClient) traceFields(ctx context.Context) []zap.Field {
	if !l.tracingEnabled || ctx == nil {
		return nil
	}
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return nil
	}
	return []zap.Field{
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	}
}

func (l *LoggerClient) contextFields(ctx context.Context, err error, fields ...map[string]interface{}) []zap.Field {
	return append(l.traceFields(ctx), l.convertToZapFields(err, fields...)...)
}

// Info logs an informational message, along with an optional error and structured fields.
// Use Info for general application progress and successful operations.
//
// Example:
//
//	logger.Info("User logged in successfully", nil, map[string]interface{}{
//	    "user_id": 12345,
//	    "login_method": "oauth",
//	})
func (l *LoggerClient) Info(msg string, err error, fields ...map[string]interface{}) {
	l.Zap.Info(msg, l.convertToZapFields(err, fields...)...)
}

// Debug logs a debug-level message, useful for development and troubleshooting.
func (l *LoggerClient) Debug(msg string, err error, fields ...map[string]interface{}) {
	l.Zap.Debug(msg, l.convertToZapFields(err, fields...)...)
}

// Warn logs a warning message, indicating potential issues that aren't necessarily errors.
//
// Warn carries no context, so it never reaches the level hooks. Internal
// diagnostics that must not be attributed to the current request use it.
func (l *LoggerClient) Warn(msg string, err error, fields ...map[string]interface{}) {
	l.Zap.Warn(msg, l.convertToZapFields(err, fields...)...)
}

// Error logs an error message, including details of the error and additional context fields.
//
// Example:
//
//	err := database.Connect()
//	if err != nil {
//	    logger.Error("Failed to connect to database", err, map[string]interface{}{
//	        "retry_count": 3,
//	    })
//	}
func (l *LoggerClient) Error(msg string, err error, fields ...map[string]interface{}) {
	l.Zap.Error(msg, l.convertToZapFields(err, fields...)...)
}

// Fatal logs a critical error message and terminates the application.
//
// Note: This function does not return as it terminates the application.
func (l *LoggerClient) Fatal(msg string, err error, fields ...map[string]interface{}) {
	l.Zap.Fatal(msg, l.convertToZapFields(err, fields...)...)
}

// InfoWithContext logs at info level and adds trace_id/span_id from ctx.
func (l *LoggerClient) InfoWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{}) {
	l.fire(ctx, zapcore.InfoLevel)
	l.Zap.Info(msg, l.contextFields(ctx, err, fields...)...)
}

// DebugWithContext logs at debug level and adds trace_id/span_id from ctx.
func (l *LoggerClient) DebugWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{}) {
	l.fire(ctx, zapcore.DebugLevel)
	l.Zap.Debug(msg, l.contextFields(ctx, err, fields...)...)
}

// WarnWithContext logs at warn level and adds trace_id/span_id from ctx.
func (l *LoggerClient) WarnWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{}) {
	l.fire(ctx, zapcore.WarnLevel)
	l.Zap.Warn(msg, l.contextFields(ctx, err, fields...)...)
}

// ErrorWithContext logs at error level and adds trace_id/span_id from ctx.
func (l *LoggerClient) ErrorWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{}) {
	l.fire(ctx, zapcore.ErrorLevel)
	l.Zap.Error(msg, l.contextFields(ctx, err, fields...)...)
}

// AddLevelHook registers fn for every entry written through a context-aware
// entry point. Hooks fire whether or not the level is enabled.
func (l *LoggerClient) AddLevelHook(fn LevelHook) {
	if fn == nil {
		return
	}
	l.hooks.mu.Lock()
	defer l.hooks.mu.Unlock()
	l.hooks.fns = append(l.hooks.fns, fn)
}

func (l *LoggerClient) fire(ctx context.Context, level zapcore.Level) {
	if ctx == nil {
		return
	}
	l.hooks.mu.RLock()
	fns := l.hooks.fns
	l.hooks.mu.RUnlock()
	for _, fn := range fns {
		fn(ctx, level)
	}
}

// ForContext returns a *zap.Logger bound to ctx, for code that wants the
// plain zap API (including DPanic, Panic and sugared variants). Entries it
// writes carry the trace fields of ctx and fire the level hooks.
func (l *LoggerClient) ForContext(ctx context.Context) *zap.Logger {
	return l.Zap.WithOptions(
		zap.AddCallerSkip(-1),
		zap.Hooks(func(e zapcore.Entry) error {
			l.fire(ctx, e.Level)
			return nil
		}),
	).With(l.traceFields(ctx)...)
}
