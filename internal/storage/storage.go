// internal/storage/storage.go
package storage

import "github.com/rcsfx/extension/pkg/core"

// Backend is the interface all storage implementations must satisfy.
// It also satisfies sim.Recorder, so a backend can be handed straight to a
// simulation.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Session management (StartSession assigns the session ID)
	StartSession(s *core.Session) error
	EndSession() error

	// Recording
	RecordTick(r *core.TickRecord) error
	RecordEffectEvent(e *core.EffectEvent) error
}

// Exportable is an optional interface for backends that write a file when a
// session ends.
type Exportable interface {
	ExportedFilePath() string
}
