package logging

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	sdklog "go.opentelemetry.io/otel/sdk/log"
)

// swapped by tests
var (
	osStdout = os.Stdout
	osPipe   = os.Pipe
)

// SlogManager manages slog-based logging with optional OTel integration.
type SlogManager struct {
	logger *slog.Logger

	// OTel provider for flushing
	logProvider *sdklog.LoggerProvider
}

// NewSlogManager creates a new slog-based logging manager.
func NewSlogManager() *SlogManager {
	return &SlogManager{}
}

// SetupOption adds optional sinks to Setup.
type SetupOption func(*setupConfig)

type setupConfig struct {
	gelf        io.Writer
	context     ContextProvider
	serviceName string
}

// WithGELF also ships records to a Graylog writer.
func WithGELF(w io.Writer) SetupOption {
	return func(c *setupConfig) { c.gelf = w }
}

// WithContext injects dynamic attributes (session, tick) into every record.
func WithContext(p ContextProvider) SetupOption {
	return func(c *setupConfig) { c.context = p }
}

// WithServiceName sets the OTel instrumentation scope name.
func WithServiceName(name string) SetupOption {
	return func(c *setupConfig) { c.serviceName = name }
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Setup initializes the logging system. Records go to file when given and to
// stdout otherwise; the stdout stream of the serve command carries the host
// protocol, so it must stay clean whenever a file is available.
// If provider is nil, OTel logging is disabled.
func (m *SlogManager) Setup(file io.Writer, level string, provider *sdklog.LoggerProvider, opts ...SetupOption) {
	cfg := setupConfig{serviceName: "rcsfx"}
	for _, opt := range opts {
		opt(&cfg)
	}

	lvl := parseLevel(level)
	m.logProvider = provider

	// Common handler options with RFC3339 time formatting
	handlerOpts := &slog.HandlerOptions{
		Level: lvl,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				if t, ok := a.Value.Any().(time.Time); ok {
					a.Value = slog.StringValue(t.UTC().Format(time.RFC3339))
				}
			}
			return a
		},
	}

	var handlers []slog.Handler

	if file != nil {
		handlers = append(handlers, slog.NewTextHandler(file, handlerOpts))
	} else {
		handlers = append(handlers, slog.NewTextHandler(osStdout, handlerOpts))
	}

	if cfg.gelf != nil {
		handlers = append(handlers, slog.NewJSONHandler(cfg.gelf, handlerOpts))
	}

	if provider != nil {
		otelHandler := otelslog.NewHandler(cfg.serviceName, otelslog.WithLoggerProvider(provider))
		handlers = append(handlers, otelHandler)
	}

	var handler slog.Handler = NewMultiHandler(handlers...)
	if cfg.context != nil {
		handler = NewContextHandler(handler, cfg.context)
	}

	m.logger = slog.New(handler)
	m.logger.Info("Logging initialized", "level", level)
}

// Logger returns the configured slog.Logger.
func (m *SlogManager) Logger() *slog.Logger {
	if m.logger == nil {
		// Return a default logger if Setup hasn't been called
		return slog.Default()
	}
	return m.logger
}

// Flush forces a flush of OTel logs if available.
func (m *SlogManager) Flush(ctx context.Context) error {
	if m.logProvider != nil {
		return m.logProvider.ForceFlush(ctx)
	}
	return nil
}

// WriteLog writes a log entry on behalf of the host, which reports its own
// function name and level as strings.
func (m *SlogManager) WriteLog(functionName, data, level string) {
	if m.logger == nil {
		return
	}

	lvl := parseLevel(level)

	switch lvl {
	case slog.LevelDebug:
		m.logger.Debug(data, "function", functionName)
	case slog.LevelInfo:
		m.logger.Info(data, "function", functionName)
	case slog.LevelWarn:
		m.logger.Warn(data, "function", functionName)
	case slog.LevelError:
		m.logger.Error(data, "function", functionName)
	default:
		m.logger.Info(data, "function", functionName)
	}
}
