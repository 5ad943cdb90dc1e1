// internal/storage/memory/memory.go
package memory

import (
	"sort"
	"sync"

	"github.com/rcsfx/extension/internal/config"
	"github.com/rcsfx/extension/pkg/core"
)

// PartRecord groups a part's time series.
type PartRecord struct {
	PartID string
	Ticks  []core.TickRecord
	Events []core.EffectEvent
}

// Backend stores session data in memory and exports to JSON
type Backend struct {
	cfg     config.MemoryConfig
	session *core.Session

	parts map[string]*PartRecord // keyed by part ID

	idCounter      uint
	lastExportPath string
	mu             sync.RWMutex
}

// New creates a new memory backend
func New(cfg config.MemoryConfig) *Backend {
	return &Backend{
		cfg:   cfg,
		parts: make(map[string]*PartRecord),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// StartSession begins recording a new session and assigns its ID.
func (b *Backend) StartSession(s *core.Session) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.idCounter++
	s.ID = b.idCounter
	session := *s
	b.session = &session

	b.parts = make(map[string]*PartRecord)
	return nil
}

// EndSession finalizes and exports the session data. Without a session
// there is nothing to export.
func (b *Backend) EndSession() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.session == nil {
		return nil
	}
	return b.exportJSON()
}

func (b *Backend) part(id string) *PartRecord {
	rec, ok := b.parts[id]
	if !ok {
		rec = &PartRecord{PartID: id}
		b.parts[id] = rec
	}
	return rec
}

// RecordTick records one part tick.
func (b *Backend) RecordTick(r *core.TickRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec := b.part(r.PartID)
	rec.Ticks = append(rec.Ticks, *r)
	return nil
}

// RecordEffectEvent records an engage or flameout trigger.
func (b *Backend) RecordEffectEvent(e *core.EffectEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	rec := b.part(e.PartID)
	rec.Events = append(rec.Events, *e)
	return nil
}

// Session returns the current session.
func (b *Backend) Session() (core.Session, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.session == nil {
		return core.Session{}, false
	}
	return *b.session, true
}

// GetPart returns a copy of a part's recorded series.
func (b *Backend) GetPart(id string) (PartRecord, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	rec, ok := b.parts[id]
	if !ok {
		return PartRecord{}, false
	}
	out := PartRecord{PartID: rec.PartID}
	out.Ticks = append(out.Ticks, rec.Ticks...)
	out.Events = append(out.Events, rec.Events...)
	return out, true
}

// PartIDs returns the recorded part IDs in sorted order.
func (b *Backend) PartIDs() []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	ids := make([]string, 0, len(b.parts))
	for id := range b.parts {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// ExportedFilePath returns the path of the last export, empty before the first.
func (b *Backend) ExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}
