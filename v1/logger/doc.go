// Package logger provides structured logging on top of zap.
//
// # Architecture
//
// This package follows the "accept interfaces, return structs" design pattern:
//   - Logger interface: Defines the contract for logging operations
//   - LoggerClient struct: Concrete implementation of the Logger interface
//   - NewLoggerClient constructor: Returns *LoggerClient (concrete type)
//   - FX module: Provides both *LoggerClient and Logger interface for dependency injection
//
// # Direct Usage (Without FX)
//
//	log := logger.NewLoggerClient(logger.Config{
//		Level:         "info",
//		EnableTracing: true,
//	})
//
//	// Log with structured fields (without context)
//	log.Info("User logged in", nil, map[string]interface{}{
//		"user_id": "12345",
//	})
//
//	// Log with trace context (automatically includes trace_id and span_id)
//	log.InfoWithContext(ctx, "Processing request", nil, map[string]interface{}{
//		"request_id": "abc-123",
//	})
//
// # Context-Aware Logging and Level Hooks
//
// The *WithContext methods and loggers returned by ForContext notify every
// hook registered with AddLevelHook, passing the context and the level of the
// entry. The correlator package uses this to remember that a warning or an
// error was logged while a request or a message was being processed:
//
//	correlator.Register(log)
//	log.WarnWithContext(ctx, "slow upstream", nil)
//	correlator.Get(ctx) // true
//
// The context-free methods never fire hooks. Use them for diagnostics that
// should not be attributed to the unit of work in flight.
//
// # Configuration
//
// The logger can be configured via environment variables:
//
//	ZAP_LOGGER_LEVEL=debug              # Log level (debug, info, warning, error)
//	ZAP_LOGGER_ENABLE_TRACING=true      # Enable distributed tracing integration
//	ZAP_LOGGER_SERVICE_NAME=checkout    # Value of the "service" field
//
// # Thread Safety
//
// All methods on the Logger interface are safe for concurrent use by multiple
// goroutines.
package logger
