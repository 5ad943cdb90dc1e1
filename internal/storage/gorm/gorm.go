// Package gormstorage implements storage.Backend on GORM with internal queues
// and a background writer goroutine. The postgres and sqlite backends wrap it.
package gormstorage

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rcsfx/extension/internal/database"
	"github.com/rcsfx/extension/internal/model"
	"github.com/rcsfx/extension/internal/model/convert"
	"github.com/rcsfx/extension/internal/queue"
	"github.com/rcsfx/extension/pkg/core"
	"gorm.io/gorm"
)

// DefaultFlushInterval is how often queued records are written.
const DefaultFlushInterval = time.Second

// DefaultMaxQueued bounds each write queue while the database is failing.
const DefaultMaxQueued = 250_000

// ErrNoSession is returned when reading back without a session.
var ErrNoSession = errors.New("no session started")

// Dependencies holds all dependencies for the GORM storage backend.
// A nil DB runs the backend in queue-only mode.
type Dependencies struct {
	DB               *gorm.DB
	Logger           *slog.Logger
	ExtensionVersion string
	FlushInterval    time.Duration
	MaxQueued        int
}

// queues holds the write queues for batch DB insertion.
type queues struct {
	Ticks  *queue.Queue[model.TickRecord]
	Events *queue.Queue[model.EffectEvent]
}

func newQueues(limit int) *queues {
	return &queues{
		Ticks:  queue.NewBounded[model.TickRecord](limit),
		Events: queue.NewBounded[model.EffectEvent](limit),
	}
}

// Backend implements storage.Backend using GORM with queue-based batch writes.
type Backend struct {
	deps      Dependencies
	queues    *queues
	sessionID atomic.Uint64
	stopChan  chan struct{}
	wg        sync.WaitGroup
	flushMu   sync.Mutex
	dropped   uint64 // guarded by flushMu
}

// New creates a new GORM storage backend.
func New(deps Dependencies) *Backend {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.FlushInterval <= 0 {
		deps.FlushInterval = DefaultFlushInterval
	}
	if deps.MaxQueued <= 0 {
		deps.MaxQueued = DefaultMaxQueued
	}
	return &Backend{deps: deps}
}

// DB returns the underlying database, nil in queue-only mode.
func (b *Backend) DB() *gorm.DB {
	return b.deps.DB
}

// Init creates internal queues, runs schema migration, and starts the DB writer goroutine.
func (b *Backend) Init() error {
	b.queues = newQueues(b.deps.MaxQueued)
	b.stopChan = make(chan struct{})

	if b.deps.DB == nil {
		return nil
	}

	if err := database.Setup(b.deps.DB, b.deps.ExtensionVersion); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}

	b.wg.Add(1)
	go b.writeLoop()
	return nil
}

// Close stops the writer goroutine and writes what is still queued.
func (b *Backend) Close() error {
	if b.stopChan == nil {
		return nil
	}
	select {
	case <-b.stopChan:
		return nil
	default:
	}
	close(b.stopChan)
	b.wg.Wait()
	return b.Flush()
}

// StartSession inserts the session row and assigns its ID back to s.
func (b *Backend) StartSession(s *core.Session) error {
	if b.deps.DB == nil {
		b.sessionID.Add(1)
		s.ID = uint(b.sessionID.Load())
		return nil
	}

	row := convert.CoreToSession(*s)
	row.ID = 0
	if err := b.deps.DB.Create(&row).Error; err != nil {
		return fmt.Errorf("failed to insert session: %w", err)
	}
	s.ID = row.ID
	b.sessionID.Store(uint64(row.ID))
	b.deps.Logger.Info("session started", "session", row.ID, "name", row.Name)
	return nil
}

// SessionID returns the current session ID, 0 before the first session.
func (b *Backend) SessionID() uint {
	return uint(b.sessionID.Load())
}

// EndSession writes queued records and stamps the session end time.
func (b *Backend) EndSession() error {
	if err := b.Flush(); err != nil {
		return err
	}
	id := b.SessionID()
	if b.deps.DB == nil || id == 0 {
		return nil
	}
	err := b.deps.DB.Model(&model.Session{}).Where("id = ?", id).Update("end_time", time.Now()).Error
	if err != nil {
		return fmt.Errorf("failed to close session %d: %w", id, err)
	}
	return nil
}

// RecordTick converts and queues a tick record. Records without a session ID
// are tagged with the current session.
func (b *Backend) RecordTick(r *core.TickRecord) error {
	row := convert.CoreToTickRecord(*r)
	if row.SessionID == 0 {
		row.SessionID = b.SessionID()
	}
	b.queues.Ticks.Push(row)
	return nil
}

// RecordEffectEvent converts and queues an effect event.
func (b *Backend) RecordEffectEvent(e *core.EffectEvent) error {
	row := convert.CoreToEffectEvent(*e)
	if row.SessionID == 0 {
		row.SessionID = b.SessionID()
	}
	b.queues.Events.Push(row)
	return nil
}

// Flush writes every queued record now.
func (b *Backend) Flush() error {
	if b.deps.DB == nil || b.queues == nil {
		return nil
	}

	b.flushMu.Lock()
	defer b.flushMu.Unlock()

	var errs []error
	if ticks := b.queues.Ticks.Drain(0); len(ticks) > 0 {
		if err := b.deps.DB.CreateInBatches(&ticks, 500).Error; err != nil {
			b.queues.Ticks.Requeue(ticks)
			errs = append(errs, fmt.Errorf("writing %d ticks: %w", len(ticks), err))
		}
	}
	if events := b.queues.Events.Drain(0); len(events) > 0 {
		if err := b.deps.DB.CreateInBatches(&events, 500).Error; err != nil {
			b.queues.Events.Requeue(events)
			errs = append(errs, fmt.Errorf("writing %d effect events: %w", len(events), err))
		}
	}
	if dropped := b.queues.Ticks.Dropped() + b.queues.Events.Dropped(); dropped > b.dropped {
		b.deps.Logger.Warn("write queues overflowed", "dropped", dropped-b.dropped, "total", dropped)
		b.dropped = dropped
	}
	return errors.Join(errs...)
}

func (b *Backend) writeLoop() {
	defer b.wg.Done()
	ticker := time.NewTicker(b.deps.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			start := time.Now()
			if err := b.Flush(); err != nil {
				b.deps.Logger.Error("failed to write queued records", "error", err)
				continue
			}
			b.deps.Logger.Debug("flushed queues", "duration", time.Since(start))
		}
	}
}

// Sessions returns every recorded session in ID order.
func (b *Backend) Sessions() ([]core.Session, error) {
	if b.deps.DB == nil {
		return nil, nil
	}
	var rows []model.Session
	if err := b.deps.DB.Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to read sessions: %w", err)
	}
	out := make([]core.Session, 0, len(rows))
	for _, r := range rows {
		out = append(out, convert.SessionToCore(r))
	}
	return out, nil
}

// Ticks reads back the written ticks of a session in tick order.
func (b *Backend) Ticks(sessionID uint) ([]core.TickRecord, error) {
	if sessionID == 0 {
		return nil, ErrNoSession
	}
	if b.deps.DB == nil {
		return nil, nil
	}
	var rows []model.TickRecord
	if err := b.deps.DB.Where("session_id = ?", sessionID).Order("tick, part_id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to read ticks: %w", err)
	}
	out := make([]core.TickRecord, 0, len(rows))
	for _, r := range rows {
		rec, err := convert.TickRecordToCore(r)
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// EffectEvents reads back the written effect events of a session.
func (b *Backend) EffectEvents(sessionID uint) ([]core.EffectEvent, error) {
	if sessionID == 0 {
		return nil, ErrNoSession
	}
	if b.deps.DB == nil {
		return nil, nil
	}
	var rows []model.EffectEvent
	if err := b.deps.DB.Where("session_id = ?", sessionID).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to read effect events: %w", err)
	}
	out := make([]core.EffectEvent, 0, len(rows))
	for _, r := range rows {
		out = append(out, convert.EffectEventToCore(r))
	}
	return out, nil
}
