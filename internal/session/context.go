package session

import (
	"sync"

	"github.com/rcsfx/extension/pkg/core"
)

// Context holds the current recording session
type Context struct {
	mu      sync.RWMutex
	Session *core.Session
	active  bool
}

// NewContext creates a new Context with a placeholder session
func NewContext() *Context {
	return &Context{
		Session: &core.Session{Name: "No session started"},
	}
}

// GetSession returns the current session
func (sc *Context) GetSession() *core.Session {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.Session
}

// Active reports whether a session is being recorded
func (sc *Context) Active() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.active
}

// Start sets the current session and marks it active
func (sc *Context) Start(s *core.Session) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.Session = s
	sc.active = true
}

// End marks the session inactive and returns it
func (sc *Context) End() *core.Session {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.active = false
	return sc.Session
}
