// Command rcsfx runs the reaction-control thruster block: as a line-protocol
// service for a host simulation, as a standalone scripted simulation, or to
// print the configured part summary.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/rcsfx/extension/internal/config"
	"github.com/rcsfx/extension/internal/logging"
	intOtel "github.com/rcsfx/extension/internal/otel"
	"github.com/rs/zerolog"
)

// module defs - BuildDate can be set at build time via ldflags
var (
	CurrentExtensionVersion = "0.1.0"
	BuildDate               = "unknown"

	ExtensionName = "rcsfx"
)

// global variables
var (
	// SlogManager handles all slog-based logging
	SlogManager *logging.SlogManager

	// Logger is the slog logger (convenience reference)
	Logger *slog.Logger = slog.Default()

	// ZLogger feeds the components that log through zerolog
	ZLogger zerolog.Logger = zerolog.Nop()

	// OTelProvider handles OpenTelemetry
	OTelProvider *intOtel.Provider

	SessionStartTime = time.Now()

	// logContext is replaced once the handler service exists
	logContext logging.ContextProvider = func() []slog.Attr { return nil }

	logFile io.WriteCloser
)

const usage = `usage: rcsfx <command> [flags]

commands:
  serve      speak the host line protocol on stdin/stdout
  simulate   run the configured scenario and print a summary
  info       print the configured part summary
  version    print the version
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(os.Args[2:])
	case "simulate":
		err = runSimulate(os.Args[2:], os.Stdout)
	case "info":
		err = runInfo(os.Args[2:], os.Stdout)
	case "version":
		fmt.Printf("%s %s (built %s)\n", ExtensionName, CurrentExtensionVersion, BuildDate)
	default:
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", ExtensionName, err)
		os.Exit(1)
	}
}

// commonFlags registers the flags every command shares.
func commonFlags(name string) (*flag.FlagSet, *string) {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	configDir := fs.String("config", ".", "directory containing "+config.FileName)
	return fs, configDir
}

// setup loads configuration and brings up logging and telemetry. A missing
// config file is not fatal: every key has a default.
func setup(configDir string) error {
	if err := config.Load(configDir); err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v, using defaults\n", ExtensionName, err)
	}

	logsDir := config.GetString("logsDir")
	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return fmt.Errorf("creating logs dir: %w", err)
	}
	f, err := os.OpenFile(logging.LogFilePath(logsDir, ExtensionName, SessionStartTime),
		os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	logFile = f

	level := config.GetString("logLevel")

	OTelProvider, err = intOtel.New(intOtel.FromSettings(config.GetOTelConfig(), f))
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}

	opts := []logging.SetupOption{
		logging.WithServiceName(ExtensionName),
		logging.WithContext(func() []slog.Attr { return logContext() }),
	}
	if gl := config.GetGraylogConfig(); gl.Enabled {
		w, err := logging.NewGELFWriter(gl.Address, ExtensionName)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v, graylog disabled\n", ExtensionName, err)
		} else {
			opts = append(opts, logging.WithGELF(w))
		}
	}

	SlogManager = logging.NewSlogManager()
	SlogManager.Setup(f, level, OTelProvider.LoggerProvider(), opts...)
	Logger = SlogManager.Logger()
	slog.SetDefault(Logger)

	ZLogger = logging.NewZerolog(f, level, ExtensionName)

	Logger.Info("Starting up", "version", CurrentExtensionVersion, "build", BuildDate, "configDir", configDir)
	return nil
}

// shutdown flushes telemetry and closes the log file.
func shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if SlogManager != nil {
		if err := SlogManager.Flush(ctx); err != nil {
			Logger.Warn("Flushing logs failed", "error", err)
		}
	}
	if OTelProvider != nil {
		if err := OTelProvider.Shutdown(ctx); err != nil {
			Logger.Warn("OTel shutdown failed", "error", err)
		}
	}
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
}
