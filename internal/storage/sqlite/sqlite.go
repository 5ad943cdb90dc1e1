// Package sqlitestorage implements the storage.Backend interface using an in-memory
// SQLite database with periodic disk dumps via VACUUM INTO.
// It wraps the GORM backend; the SQLite-specific concerns are creating the
// in-memory DB and dumping it to disk periodically and when a session ends.
package sqlitestorage

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/rcsfx/extension/internal/config"
	"github.com/rcsfx/extension/internal/database"
	gormstorage "github.com/rcsfx/extension/internal/storage/gorm"

	"gorm.io/gorm"
)

// Config holds configuration for the SQLite storage backend.
type Config struct {
	DumpInterval time.Duration
	DumpPath     string // Path for VACUUM INTO dumps
}

// ConfigFrom derives the backend config from the storage section. Dumps go
// to a timestamped file under the output directory.
func ConfigFrom(c config.SQLiteConfig, now time.Time) Config {
	return Config{
		DumpInterval: c.DumpInterval,
		DumpPath:     filepath.Join(c.OutputDir, fmt.Sprintf("rcsfx_%s.db", now.Format("20060102_150405"))),
	}
}

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	db       *gorm.DB
	cfg      Config
	log      *slog.Logger
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// New creates a new SQLite storage backend.
func New(cfg Config, logger *slog.Logger, extensionVersion string) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := database.GetSqliteDBStandalone("")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite DB: %w", err)
	}

	gormBackend := gormstorage.New(gormstorage.Dependencies{
		DB:               db,
		Logger:           logger,
		ExtensionVersion: extensionVersion,
	})

	return &Backend{
		Backend:  gormBackend,
		db:       db,
		cfg:      cfg,
		log:      logger,
		stopChan: make(chan struct{}),
	}, nil
}

// Init initializes the embedded GORM backend and starts the dump goroutine.
func (b *Backend) Init() error {
	if err := b.Backend.Init(); err != nil {
		return err
	}

	if b.cfg.DumpPath != "" && b.cfg.DumpInterval > 0 {
		b.wg.Add(1)
		go b.dumpLoop()
	}

	return nil
}

// EndSession writes the session and dumps the database to disk.
func (b *Backend) EndSession() error {
	if err := b.Backend.EndSession(); err != nil {
		return err
	}
	return b.Dump()
}

// Close stops the dump goroutine, closes the embedded GORM backend and
// writes a final dump.
func (b *Backend) Close() error {
	select {
	case <-b.stopChan:
		return nil
	default:
	}
	close(b.stopChan)
	b.wg.Wait()
	return errors.Join(b.Backend.Close(), b.Dump())
}

// Dump flushes queued records and vacuums the database to DumpPath.
func (b *Backend) Dump() error {
	if b.cfg.DumpPath == "" {
		return nil
	}
	if err := b.Backend.Flush(); err != nil {
		return err
	}
	return database.DumpMemoryDBToDisk(b.db, b.cfg.DumpPath)
}

// ExportedFilePath returns the dump file.
func (b *Backend) ExportedFilePath() string {
	return b.cfg.DumpPath
}

// dumpLoop periodically dumps the in-memory SQLite database to disk via VACUUM INTO.
// VACUUM INTO creates a point-in-time snapshot, so no pause mechanism is needed.
func (b *Backend) dumpLoop() {
	defer b.wg.Done()
	ticker := time.NewTicker(b.cfg.DumpInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			start := time.Now()
			if err := b.Dump(); err != nil {
				b.log.Error("error dumping to disk", "error", err)
			} else {
				b.log.Debug("dumped to disk", "path", b.cfg.DumpPath, "duration", time.Since(start))
			}
		}
	}
}
