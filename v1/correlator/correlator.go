// Package correlator remembers whether a warning or an error was logged while
// a unit of work was being processed.
//
// The flag lives in the unit's context (WithFlag), so concurrently processed
// requests and messages never see each other's state, and a new unit always
// starts with a fresh, unset flag. Register wires the flag to a logger:
//
//	correlator.Register(log)
//
//	ctx = correlator.WithFlag(ctx)
//	log.ErrorWithContext(ctx, "payment declined", err)
//	correlator.Get(ctx) // true
//
// Only log calls that carry the unit's context can set the flag: the
// *WithContext methods and ForContext of the logger package, and loggers
// built on Core. Plain Warn, Error and Fatal have no unit to mark and are
// never counted.
package correlator

import (
	"context"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap/zapcore"
)

// Attribute is the span attribute carrying the flag.
const Attribute = attribute.Key("app.haslog")

// Threshold is the lowest level that sets the flag.
const Threshold = zapcore.WarnLevel

type flagKey struct{}

// Flag is the per-unit cell. Log calls may come from goroutines spawned by
// the unit, hence the atomic.
type Flag struct {
	set atomic.Bool
}

// WithFlag returns a child of ctx carrying a new, unset flag.
func WithFlag(ctx context.Context) context.Context {
	return context.WithValue(ctx, flagKey{}, &Flag{})
}

// FromContext returns the flag of the unit ctx belongs to, or nil.
func FromContext(ctx context.Context) *Flag {
	if ctx == nil {
		return nil
	}
	f, _ := ctx.Value(flagKey{}).(*Flag)
	return f
}

// Mark sets the flag of ctx's unit. It is a no-op without a flag.
func Mark(ctx context.Context) {
	if f := FromContext(ctx); f != nil {
		f.set.Store(true)
	}
}

// Get returns the flag of ctx's unit, false when there is none.
func Get(ctx context.Context) bool {
	f := FromContext(ctx)
	return f != nil && f.set.Load()
}

// Reset clears the flag of ctx's unit.
func Reset(ctx context.Context) {
	if f := FromContext(ctx); f != nil {
		f.set.Store(false)
	}
}

// Take returns the flag and clears it.
func Take(ctx context.Context) bool {
	f := FromContext(ctx)
	return f != nil && f.set.Swap(false)
}

// LevelHooker is implemented by loggers that report the level of every entry
// written through their context-aware entry points.
type LevelHooker interface {
	AddLevelHook(fn func(ctx context.Context, level zapcore.Level))
}

// Register makes every context-aware entry of l at Threshold or above mark
// the flag of the entry's unit.
func Register(l LevelHooker) {
	l.AddLevelHook(Observe)
}

// Observe marks ctx's unit when level reaches Threshold.
func Observe(ctx context.Context, level zapcore.Level) {
	if level >= Threshold {
		Mark(ctx)
	}
}

// Core wraps core so that entries at Threshold or above mark ctx's unit.
// Use it for zap loggers built outside the logger package.
func Core(ctx context.Context, core zapcore.Core) zapcore.Core {
	return zapcore.RegisterHooks(core, func(e zapcore.Entry) error {
		Observe(ctx, e.Level)
		return nil
	})
}
