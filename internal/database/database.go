package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rcsfx/extension/internal/config"
	"github.com/rcsfx/extension/internal/model"
	"github.com/rs/zerolog"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// SchemaVersion is written to the info table on first setup.
const SchemaVersion = 1

// Manager handles database connections and operations.
type Manager struct {
	DB              *gorm.DB
	SqlDB           *sql.DB
	IsValid         bool
	ShouldSaveLocal bool
	SqliteFilePath  string
	Logger          zerolog.Logger
}

// NewManager creates a new database manager.
func NewManager(log zerolog.Logger) *Manager {
	return &Manager{
		Logger: log,
	}
}

// Connect opens Postgres, falling back to an in-memory SQLite database when
// Postgres is unreachable. ShouldSaveLocal reports the fallback.
func (m *Manager) Connect(cfg config.DBConfig) error {
	var err error

	m.DB, err = GetPostgresDBStandalone(cfg)
	if err == nil {
		m.SqlDB, err = m.DB.DB()
		if err == nil {
			err = m.SqlDB.Ping()
		}
	}

	if err != nil {
		m.Logger.Error().Err(err).Msg("Failed to connect to Postgres DB, trying SQLite")
		m.ShouldSaveLocal = true
		m.DB, err = GetSqliteDBStandalone("")
		if err != nil {
			m.IsValid = false
			return fmt.Errorf("failed to get local SQLite DB: %w", err)
		}
		m.SqlDB, err = m.DB.DB()
		if err != nil {
			m.IsValid = false
			return fmt.Errorf("failed to access sql interface: %w", err)
		}
		m.Logger.Info().Msg("Using local SQLite DB in memory with periodic disk dump")
	} else {
		m.Logger.Info().Str("host", cfg.Host).Str("database", cfg.Database).Msg("Connected to database")
		m.SqlDB.SetMaxOpenConns(10)
	}

	m.IsValid = true
	return nil
}

// Setup migrates tables and writes the info row if missing.
func (m *Manager) Setup(extensionVersion string) error {
	if err := Setup(m.DB, extensionVersion); err != nil {
		m.IsValid = false
		return err
	}
	m.Logger.Info().Msg("Database setup complete")
	return nil
}

// DumpMemoryToDisk vacuums the in-memory database to SqliteFilePath.
func (m *Manager) DumpMemoryToDisk() error {
	start := time.Now()
	if err := DumpMemoryDBToDisk(m.DB, m.SqliteFilePath); err != nil {
		return err
	}
	m.Logger.Debug().Dur("duration", time.Since(start)).Msg("Dumped memory DB to disk")
	return nil
}

// Setup migrates the schema on db and records the schema version.
func Setup(db *gorm.DB, extensionVersion string) error {
	if err := db.AutoMigrate(model.DatabaseModels...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}

	var count int64
	if err := db.Model(&model.Info{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to read info table: %w", err)
	}
	if count == 0 {
		if err := db.Create(&model.Info{
			ExtensionVersion: extensionVersion,
			SchemaVersion:    SchemaVersion,
		}).Error; err != nil {
			return fmt.Errorf("failed to create info entry: %w", err)
		}
	}
	return nil
}

// GetBackupDBPaths returns paths to all .db files in the given directory.
func GetBackupDBPaths(dir string) ([]string, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var dbPaths []string
	for _, file := range files {
		if !file.IsDir() && strings.HasSuffix(file.Name(), ".db") {
			dbPaths = append(dbPaths, filepath.Join(dir, file.Name()))
		}
	}
	return dbPaths, nil
}

// DSN builds the Postgres connection string.
func DSN(cfg config.DBConfig) string {
	return fmt.Sprintf(`host=%s port=%s user=%s password=%s dbname=%s sslmode=disable`,
		cfg.Host, cfg.Port, cfg.Username, cfg.Password, cfg.Database,
	)
}

// GetPostgresDBStandalone returns a connection to the Postgres database.
func GetPostgresDBStandalone(cfg config.DBConfig) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.New(postgres.Config{
		DSN:                  DSN(cfg),
		PreferSimpleProtocol: true,
	}), &gorm.Config{
		SkipDefaultTransaction: true,
		CreateBatchSize:        10000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}
	return db, nil
}

// GetSqliteDBStandalone returns a connection to a SQLite database.
// If path is empty, uses a private in-memory database.
func GetSqliteDBStandalone(path string) (*gorm.DB, error) {
	dsn := path
	if dsn == "" {
		dsn = "file::memory:"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		PrepareStmt:            true,
		SkipDefaultTransaction: true,
		CreateBatchSize:        2000,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	// a memory database lives on one connection
	if path == "" {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to access sql interface: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	pragmas := []string{
		"PRAGMA user_version = 1;",
		"PRAGMA journal_mode = MEMORY;",
		"PRAGMA synchronous = OFF;",
		"PRAGMA cache_size = -32000;",
		"PRAGMA temp_store = MEMORY;",
	}

	for _, pragma := range pragmas {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("error setting PRAGMA: %w", err)
		}
	}

	return db, nil
}

// DumpMemoryDBToDisk vacuums the in-memory database to a disk file,
// replacing any previous dump.
func DumpMemoryDBToDisk(db *gorm.DB, sqliteFilePath string) error {
	if sqliteFilePath == "" {
		return fmt.Errorf("sqlite file path not set")
	}

	if err := os.MkdirAll(filepath.Dir(sqliteFilePath), 0o755); err != nil {
		return fmt.Errorf("error creating dump directory: %w", err)
	}

	if _, err := os.Stat(sqliteFilePath); err == nil {
		if err := os.Remove(sqliteFilePath); err != nil {
			return fmt.Errorf("error removing existing DB file: %w", err)
		}
	}

	err := db.Exec("VACUUM INTO ?", sqliteFilePath).Error
	if err != nil {
		return fmt.Errorf("error dumping memory DB to disk: %w", err)
	}

	return nil
}
