// Package logging provides a minimal logging interface and adapters for Sentinel.
//
// The Logger interface defines the standard leveled methods (Debug, Info, Warn,
// Error) that the engine and its components use for observability. This package
// includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - SentinelLogger with component/session scoping and turn helpers
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelInfo, "json", false)
//	s := sentinel.New(func(o *sentinel.Options) { o.Logger = logger })
package logging
