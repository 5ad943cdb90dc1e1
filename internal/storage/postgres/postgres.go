// Package postgres implements the storage.Backend interface on PostgreSQL. It
// connects through the database manager, which falls back to an in-memory
// SQLite database dumped to disk when Postgres cannot be reached.
package postgres

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/rcsfx/extension/internal/config"
	"github.com/rcsfx/extension/internal/database"
	gormstorage "github.com/rcsfx/extension/internal/storage/gorm"
	"github.com/rs/zerolog"
)

// Config holds the Postgres backend settings.
type Config struct {
	DB               config.DBConfig
	FallbackDir      string // where the SQLite fallback is dumped
	ExtensionVersion string
}

// Backend embeds the GORM backend once connected.
type Backend struct {
	*gormstorage.Backend
	cfg     Config
	manager *database.Manager
	logger  *slog.Logger
	now     func() time.Time
}

// New creates a Postgres backend. Nothing connects until Init.
func New(cfg Config, zlog zerolog.Logger, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		cfg:     cfg,
		manager: database.NewManager(zlog),
		logger:  logger,
		now:     time.Now,
	}
}

// Init connects, migrates and starts the embedded GORM writer.
func (b *Backend) Init() error {
	if err := b.manager.Connect(b.cfg.DB); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if b.manager.ShouldSaveLocal {
		b.manager.SqliteFilePath = filepath.Join(b.cfg.FallbackDir,
			fmt.Sprintf("rcsfx_fallback_%s.db", b.now().Format("20060102_150405")))
		b.logger.Warn("postgres unavailable, recording to local sqlite", "path", b.manager.SqliteFilePath)
	}

	b.Backend = gormstorage.New(gormstorage.Dependencies{
		DB:               b.manager.DB,
		Logger:           b.logger,
		ExtensionVersion: b.cfg.ExtensionVersion,
	})
	return b.Backend.Init()
}

// Local reports whether the backend fell back to SQLite.
func (b *Backend) Local() bool {
	return b.manager.ShouldSaveLocal
}

// EndSession writes the session; on the SQLite fallback it also dumps to disk.
func (b *Backend) EndSession() error {
	if b.Backend == nil {
		return nil
	}
	if err := b.Backend.EndSession(); err != nil {
		return err
	}
	if b.manager.ShouldSaveLocal {
		return b.manager.DumpMemoryToDisk()
	}
	return nil
}

// Close stops the writer and releases the connection.
func (b *Backend) Close() error {
	if b.Backend == nil {
		return nil
	}
	if err := b.Backend.Close(); err != nil {
		return err
	}
	if b.manager.SqlDB != nil {
		return b.manager.SqlDB.Close()
	}
	return nil
}

// ExportedFilePath returns the fallback dump path, empty when on Postgres.
func (b *Backend) ExportedFilePath() string {
	if !b.manager.ShouldSaveLocal {
		return ""
	}
	return b.manager.SqliteFilePath
}
