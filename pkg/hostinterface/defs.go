// Package hostinterface speaks the line protocol between the host simulation
// and this process. Every request is one line, "COMMAND|arg|arg", and every
// reply is one JSON array line: ["ok"], ["ok", result] or ["error", message].
package hostinterface

import (
	"log/slog"
	"time"
)

// Separator splits a command from its arguments.
const Separator = "|"

// MaxLineSize bounds a single request line.
const MaxLineSize = 1 << 20

// Option configures a Server.
type Option func(*Server)

// WithVersion sets the reply to the built-in :VERSION: query. Ignored when a
// handler for :VERSION: is registered.
func WithVersion(version string) Option {
	return func(s *Server) { s.version = version }
}

// WithLogger sets the server logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// WithClock replaces time.Now for event timestamps and :TIMESTAMP:.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}
