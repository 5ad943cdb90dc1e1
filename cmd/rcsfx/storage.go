package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/rcsfx/extension/internal/api"
	"github.com/rcsfx/extension/internal/config"
	"github.com/rcsfx/extension/internal/handlers"
	"github.com/rcsfx/extension/internal/influx"
	"github.com/rcsfx/extension/internal/logging"
	"github.com/rcsfx/extension/internal/storage"
	"github.com/rcsfx/extension/internal/storage/memory"
	pgstorage "github.com/rcsfx/extension/internal/storage/postgres"
	sqlitestorage "github.com/rcsfx/extension/internal/storage/sqlite"
	wsstorage "github.com/rcsfx/extension/internal/storage/websocket"
	"github.com/rcsfx/extension/internal/util"
)

var storageTypes = []string{"memory", "sqlite", "postgres", "websocket"}

func createStorageBackend(storageCfg config.StorageConfig) (storage.Backend, error) {
	if !util.Contains(storageTypes, storageCfg.Type) {
		return nil, fmt.Errorf("unknown storage type %q (want one of %v)", storageCfg.Type, storageTypes)
	}

	switch storageCfg.Type {
	case "postgres":
		Logger.Info("Postgres storage backend selected")
		return pgstorage.New(pgstorage.Config{
			DB:               config.GetDBConfig(),
			FallbackDir:      storageCfg.SQLite.OutputDir,
			ExtensionVersion: CurrentExtensionVersion,
		}, ZLogger.With().Str("subsystem", "database").Logger(), Logger), nil

	case "sqlite":
		backend, err := sqlitestorage.New(
			sqlitestorage.ConfigFrom(storageCfg.SQLite, SessionStartTime),
			Logger, CurrentExtensionVersion,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		Logger.Info("SQLite storage backend selected")
		return backend, nil

	case "websocket":
		cfg := wsstorage.ConfigFrom(storageCfg.WebSocket)
		Logger.Info("WebSocket storage backend selected", "url", cfg.URL)
		return wsstorage.New(cfg, Logger), nil

	default:
		Logger.Info("Memory storage backend selected", "outputDir", storageCfg.Memory.OutputDir)
		return memory.New(storageCfg.Memory), nil
	}
}

// initStorage creates and initializes the configured backend.
func initStorage() (storage.Backend, error) {
	backend, err := createStorageBackend(config.GetStorageConfig())
	if err != nil {
		return nil, err
	}
	if err := backend.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize storage backend: %w", err)
	}
	return backend, nil
}

// initMetrics connects to InfluxDB when enabled. It returns nil when disabled.
func initMetrics(ctx context.Context) (*influx.Manager, error) {
	backup := logging.SidecarPath(config.GetString("logsDir"), ExtensionName, "influx", ".lp.gz", SessionStartTime)

	m := influx.NewManager(config.GetInfluxConfig(),
		ZLogger.With().Str("subsystem", "influx").Logger(), backup)
	if err := m.Connect(ctx); err != nil {
		if errors.Is(err, influx.ErrDisabled) {
			return nil, nil
		}
		return nil, err
	}
	return m, nil
}

// initUploader returns an upload client when api uploads are enabled and the
// storage backend exports files. An unreachable server is only logged.
func initUploader(backend storage.Backend) handlers.Uploader {
	ac := config.GetAPIConfig()
	if !ac.Enabled {
		return nil
	}
	if _, ok := backend.(storage.Exportable); !ok {
		Logger.Warn("API upload enabled but storage backend writes no export files", "type", config.GetString("storage.type"))
		return nil
	}
	client := api.New(ac.ServerURL, ac.APIKey)
	if err := client.Healthcheck(); err != nil {
		Logger.Warn("API server healthcheck failed", "url", ac.ServerURL, "error", err)
	}
	return client
}
