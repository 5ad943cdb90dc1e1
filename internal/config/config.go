package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// FileName is the config file looked up in the config directory.
const FileName = "rcsfx.cfg.json"

// MemoryConfig holds in-memory/JSON storage backend settings
type MemoryConfig struct {
	OutputDir      string `json:"outputDir" mapstructure:"outputDir"`
	CompressOutput bool   `json:"compressOutput" mapstructure:"compressOutput"`
}

// SQLiteConfig holds the in-memory SQLite backend settings.
type SQLiteConfig struct {
	OutputDir    string        `json:"outputDir" mapstructure:"outputDir"`
	DumpInterval time.Duration `json:"dumpInterval" mapstructure:"dumpInterval"`
}

// WebSocketConfig holds the streaming backend settings.
type WebSocketConfig struct {
	URL    string `json:"url" mapstructure:"url"`
	Secret string `json:"secret" mapstructure:"secret"`
}

// StorageConfig selects and configures the session storage backend.
type StorageConfig struct {
	Type      string          `json:"type" mapstructure:"type"`
	Memory    MemoryConfig    `json:"memory" mapstructure:"memory"`
	SQLite    SQLiteConfig    `json:"sqlite" mapstructure:"sqlite"`
	WebSocket WebSocketConfig `json:"websocket" mapstructure:"websocket"`
}

// DBConfig holds Postgres connection settings.
type DBConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
}

// OTelConfig holds OpenTelemetry settings.
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// InfluxConfig holds InfluxDB metrics settings.
type InfluxConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Protocol string `json:"protocol" mapstructure:"protocol"`
	Token    string `json:"token" mapstructure:"token"`
	Org      string `json:"org" mapstructure:"org"`
	Bucket   string `json:"bucket" mapstructure:"bucket"`
}

// GraylogConfig holds the GELF log shipping settings.
type GraylogConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Address string `json:"address" mapstructure:"address"`
}

// APIConfig holds the session upload server settings.
type APIConfig struct {
	Enabled   bool   `json:"enabled" mapstructure:"enabled"`
	ServerURL string `json:"serverUrl" mapstructure:"serverUrl"`
	APIKey    string `json:"apiKey" mapstructure:"apiKey"`
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// SetDefaults registers every default value. Load calls it; commands that run
// without a config file call it directly.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./rcsfxlogs")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "rcsfx")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "rcsfx-metrics")
	viper.SetDefault("influx.bucket", "rcs_ticks")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("storage.type", "memory")
	viper.SetDefault("storage.memory.outputDir", "./sessions")
	viper.SetDefault("storage.memory.compressOutput", true)
	viper.SetDefault("storage.sqlite.outputDir", "./sessions")
	viper.SetDefault("storage.sqlite.dumpInterval", "3m")
	viper.SetDefault("storage.websocket.url", "ws://localhost:5000/api/v1/rcs/ws")
	viper.SetDefault("storage.websocket.secret", "")

	viper.SetDefault("monitor.enabled", true)
	viper.SetDefault("monitor.interval", "1s")

	viper.SetDefault("api.enabled", false)
	viper.SetDefault("api.serverUrl", "http://localhost:5000")
	viper.SetDefault("api.apiKey", "")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "rcsfx")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)

	setPartDefaults()
	setSimDefaults()
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetDuration returns a duration config value.
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}

// GetFloat returns a float config value.
func GetFloat(key string) float64 {
	return viper.GetFloat64(key)
}

// GetStorageConfig returns the storage section.
func GetStorageConfig() StorageConfig {
	return StorageConfig{
		Type: viper.GetString("storage.type"),
		Memory: MemoryConfig{
			OutputDir:      viper.GetString("storage.memory.outputDir"),
			CompressOutput: viper.GetBool("storage.memory.compressOutput"),
		},
		SQLite: SQLiteConfig{
			OutputDir:    viper.GetString("storage.sqlite.outputDir"),
			DumpInterval: viper.GetDuration("storage.sqlite.dumpInterval"),
		},
		WebSocket: WebSocketConfig{
			URL:    viper.GetString("storage.websocket.url"),
			Secret: viper.GetString("storage.websocket.secret"),
		},
	}
}

// GetDBConfig returns the Postgres connection section.
func GetDBConfig() DBConfig {
	return DBConfig{
		Host:     viper.GetString("db.host"),
		Port:     viper.GetString("db.port"),
		Username: viper.GetString("db.username"),
		Password: viper.GetString("db.password"),
		Database: viper.GetString("db.database"),
	}
}

// GetOTelConfig returns the OpenTelemetry section.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}

// GetInfluxConfig returns the InfluxDB section.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Protocol: viper.GetString("influx.protocol"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
		Bucket:   viper.GetString("influx.bucket"),
	}
}

// GetGraylogConfig returns the GELF section.
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}

// GetAPIConfig returns the upload server section.
func GetAPIConfig() APIConfig {
	return APIConfig{
		Enabled:   viper.GetBool("api.enabled"),
		ServerURL: viper.GetString("api.serverUrl"),
		APIKey:    viper.GetString("api.apiKey"),
	}
}
