package database

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rcsfx/extension/internal/config"
	"github.com/rcsfx/extension/internal/model"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDSN(t *testing.T) {
	got := DSN(config.DBConfig{Host: "db", Port: "5432", Username: "u", Password: "p", Database: "rcsfx"})
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=rcsfx sslmode=disable", got)
}

func TestSetup_MigratesAndWritesInfoOnce(t *testing.T) {
	db, err := GetSqliteDBStandalone("")
	require.NoError(t, err)

	require.NoError(t, Setup(db, "0.1.0"))
	require.NoError(t, Setup(db, "0.2.0"))

	var infos []model.Info
	require.NoError(t, db.Find(&infos).Error)
	require.Len(t, infos, 1)
	assert.Equal(t, "0.1.0", infos[0].ExtensionVersion)
	assert.Equal(t, uint(SchemaVersion), infos[0].SchemaVersion)

	assert.True(t, db.Migrator().HasTable(&model.TickRecord{}))
	assert.True(t, db.Migrator().HasTable(&model.EffectEvent{}))
}

func TestDumpMemoryDBToDisk(t *testing.T) {
	db, err := GetSqliteDBStandalone("")
	require.NoError(t, err)
	require.NoError(t, Setup(db, "0.1.0"))
	require.NoError(t, db.Create(&model.Session{Name: "dump", StartTime: time.Now()}).Error)

	path := filepath.Join(t.TempDir(), "sessions", "rcsfx.db")
	require.NoError(t, DumpMemoryDBToDisk(db, path))
	// a second dump replaces the first
	require.NoError(t, DumpMemoryDBToDisk(db, path))

	disk, err := GetSqliteDBStandalone(path)
	require.NoError(t, err)
	var sessions []model.Session
	require.NoError(t, disk.Find(&sessions).Error)
	require.Len(t, sessions, 1)
	assert.Equal(t, "dump", sessions[0].Name)

	paths, err := GetBackupDBPaths(filepath.Dir(path))
	require.NoError(t, err)
	assert.Equal(t, []string{path}, paths)
}

func TestDumpMemoryDBToDisk_NoPath(t *testing.T) {
	db, err := GetSqliteDBStandalone("")
	require.NoError(t, err)
	assert.Error(t, DumpMemoryDBToDisk(db, ""))
}

func TestManager_DumpMemoryToDisk(t *testing.T) {
	db, err := GetSqliteDBStandalone("")
	require.NoError(t, err)

	m := NewManager(zerolog.Nop())
	m.DB = db
	require.NoError(t, m.Setup("0.1.0"))

	m.SqliteFilePath = filepath.Join(t.TempDir(), "manager.db")
	require.NoError(t, m.DumpMemoryToDisk())
	_, err = os.Stat(m.SqliteFilePath)
	assert.NoError(t, err)
}

func TestGetBackupDBPaths_MissingDir(t *testing.T) {
	_, err := GetBackupDBPaths(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
