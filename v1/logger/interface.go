package logger

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the contract implemented by *LoggerClient.
//
// Consumers should prefer declaring the narrow subset they need in their own
// package; this interface exists for wiring through fx.
type Logger interface {
	Info(msg string, err error, fields ...map[string]interface{})
	Debug(msg string, err error, fields ...map[string]interface{})
	Warn(msg string, err error, fields ...map[string]interface{})
	Error(msg string, err error, fields ...map[string]interface{})
	Fatal(msg string, err error, fields ...map[string]interface{})

	InfoWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	DebugWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	WarnWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	ErrorWithContext(ctx context.Context, msg string, err error, fields ...map[string]interface{})

	// ForContext returns a zap logger bound to ctx. Entries written through it
	// carry trace fields and fire the registered level hooks.
	ForContext(ctx context.Context) *zap.Logger

	// AddLevelHook registers fn to be called for every entry written through
	// a context-aware entry point.
	AddLevelHook(fn LevelHook)
}

// LevelHook observes the level of an entry written on behalf of ctx.
type LevelHook = func(ctx context.Context, level zapcore.Level)
