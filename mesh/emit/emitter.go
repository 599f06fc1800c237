// Package emit provides event emission and observability for site
// engines: a small Emitter interface with line-log, in-memory, tracing,
// and database-journal implementations.
package emit

import "context"

// Emitter receives and processes observability events from a site.
//
// Emitters enable pluggable observability backends:
//   - Logging: per-site log files, stdout
//   - Distributed tracing: OpenTelemetry
//   - Journaling: SQLite, MySQL
//   - Testing: in-memory capture
//
// Implementations should be:
//   - Best-effort: a failing emitter must not disturb the site; errors
//     are swallowed or logged internally
//   - Thread-safe when shared, though the engine gives each site its own
//     emitter and calls it from one goroutine
type Emitter interface {
	// Emit sends one event to the configured backend. It must not panic;
	// failures are silent.
	Emit(event Event)

	// EmitBatch sends multiple events in one operation, preserving order.
	// Returns an error only on catastrophic backend failure; individual
	// event failures are swallowed.
	EmitBatch(ctx context.Context, events []Event) error

	// Flush ensures buffered events have reached the backend. Safe to
	// call repeatedly; respects ctx cancellation.
	Flush(ctx context.Context) error
}
