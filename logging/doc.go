// Package logging provides a minimal logging interface and adapters for AgentChat.
//
// The Logger interface defines the standard logging methods (Debug, Info,
// Warn, Error) used by the chat orchestrator and broadcast queue for
// observability. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger := logging.NewSlogLogger(logging.LogLevelDebug, "text")
//	c := chat.New(func(o *chat.Options) { o.Logger = logger })
//
// The design intentionally keeps the interface minimal to avoid vendor lock-in
// while supporting structured logging where available.
package logging
