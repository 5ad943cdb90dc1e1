package monitor

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rcsfx/extension/internal/cache"
	"github.com/rcsfx/extension/internal/dispatcher"
	"github.com/rcsfx/extension/internal/logging"
	"github.com/rcsfx/extension/internal/session"
	"github.com/rcsfx/extension/internal/sim"
)

// CmdStatus returns the current Status to the host.
const CmdStatus = ":STATUS:"

// StatusFile is the file rewritten by the monitor loop.
const StatusFile = "status.json"

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	LogManager     *logging.SlogManager
	SessionContext *session.Context
	Parts          *cache.PartCache
	Vessel         *sim.Vessel
	Ticks          func() int
	Commands       func() []string
	StatusDir      string
	Interval       time.Duration
}

// PartStatus is the per-part view in a Status.
type PartStatus struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Enabled   bool   `json:"enabled"`
	Thrusters int    `json:"thrusters"`
}

// Status is a point-in-time snapshot of the extension.
type Status struct {
	Time       time.Time          `json:"time"`
	Active     bool               `json:"active"`
	SessionID  uint               `json:"sessionId,omitempty"`
	Session    string             `json:"session,omitempty"`
	Tick       int                `json:"tick"`
	Parts      []PartStatus       `json:"parts"`
	Propellant map[string]float64 `json:"propellant"`
	Unlimited  bool               `json:"unlimited"`
	Commands   []string           `json:"commands,omitempty"`
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.Interval <= 0 {
		deps.Interval = time.Second
	}
	if deps.Parts == nil {
		deps.Parts = cache.NewPartCache()
	}
	if deps.SessionContext == nil {
		deps.SessionContext = session.NewContext()
	}
	return &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetStatus returns the current status.
func (s *Service) GetStatus() Status {
	st := Status{
		Time:       time.Now(),
		Active:     s.deps.SessionContext.Active(),
		Propellant: map[string]float64{},
	}
	if st.Active {
		sess := s.deps.SessionContext.GetSession()
		st.SessionID = sess.ID
		st.Session = sess.Name
	}
	if s.deps.Ticks != nil {
		st.Tick = s.deps.Ticks()
	}
	for _, p := range s.deps.Parts.All() {
		spec := p.Spec()
		st.Parts = append(st.Parts, PartStatus{
			ID:        p.ID,
			Name:      spec.Name,
			Enabled:   p.Enabled(),
			Thrusters: len(spec.Thrusters),
		})
	}
	if s.deps.Vessel != nil {
		st.Propellant = s.deps.Vessel.Pool.Totals()
		st.Unlimited = s.deps.Vessel.Pool.Unlimited()
	}
	if s.deps.Commands != nil {
		st.Commands = s.deps.Commands()
	}
	return st
}

// Register adds the status command to d.
func (s *Service) Register(d *dispatcher.Dispatcher) {
	d.Register(CmdStatus, func(dispatcher.Event) (any, error) {
		return s.GetStatus(), nil
	})
}

func (s *Service) writeStatus(path string) error {
	data, err := json.MarshalIndent(s.GetStatus(), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal status: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Start starts the status monitor goroutine. The status file is only
// rewritten while a session is active.
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	if s.deps.StatusDir != "" {
		if err := os.MkdirAll(s.deps.StatusDir, 0755); err != nil {
			s.mu.Unlock()
			return fmt.Errorf("create status dir: %w", err)
		}
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		logger := slog.Default()
		if s.deps.LogManager != nil {
			logger = s.deps.LogManager.Logger()
		}
		logger = logger.With("subsystem", "monitor")
		logger.Debug("Starting status monitor", "interval", s.deps.Interval)

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				if !s.deps.SessionContext.Active() || s.deps.StatusDir == "" {
					continue
				}
				if err := s.writeStatus(filepath.Join(s.deps.StatusDir, StatusFile)); err != nil {
					logger.Error("Error writing status file", "error", err)
				}
			}
		}
	}()

	return nil
}

// Stop stops the status monitor and waits for the loop to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()
	<-done
}
