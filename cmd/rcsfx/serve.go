package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/rcsfx/extension/internal/cache"
	"github.com/rcsfx/extension/internal/config"
	"github.com/rcsfx/extension/internal/dispatcher"
	"github.com/rcsfx/extension/internal/handlers"
	"github.com/rcsfx/extension/internal/logging"
	"github.com/rcsfx/extension/internal/monitor"
	"github.com/rcsfx/extension/internal/session"
	"github.com/rcsfx/extension/internal/sim"
	"github.com/rcsfx/extension/pkg/hostinterface"
)

// runServe answers host commands on stdin/stdout until EOF or a signal.
// The host owns physics, so forces are returned rather than integrated.
func runServe(args []string) error {
	fs, configDir := commonFlags("serve")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := setup(*configDir); err != nil {
		return err
	}
	defer shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	template, lib, err := loadPart()
	if err != nil {
		return err
	}
	// assembled parts start from the block, not its configured nozzles
	template.Thrusters = nil

	sc, err := config.GetSimConfig()
	if err != nil {
		return err
	}

	backend, err := initStorage()
	if err != nil {
		return err
	}
	defer func() {
		if err := backend.Close(); err != nil {
			Logger.Error("Closing storage failed", "error", err)
		}
	}()

	metrics, err := initMetrics(ctx)
	if err != nil {
		Logger.Warn("InfluxDB unavailable", "error", err)
	}

	deps := handlers.Dependencies{
		Vessel:           sim.NewVesselFromConfig(config.SimConfig{Mass: sc.Mass, StaticPressure: sc.StaticPressure}, lib),
		Parts:            cache.NewPartCache(),
		Library:          lib,
		Template:         template,
		Backend:          backend,
		Metrics:          metrics,
		Uploader:         initUploader(backend),
		LogManager:       SlogManager,
		TickDuration:     sc.TickDuration,
		ExtensionVersion: CurrentExtensionVersion,
		OnSessionEnd: func(ctx context.Context) error {
			return OTelProvider.Flush(ctx)
		},
	}
	if metrics != nil {
		defer metrics.Close()
	}

	svc := handlers.NewService(deps, session.NewContext())
	logContext = svc.LogContext()

	d, err := dispatcher.New(logging.NewDispatcherLogger(ZLogger.With().Str("subsystem", "dispatcher").Logger()))
	if err != nil {
		return err
	}
	defer d.Close()
	svc.RegisterHandlers(d)

	mon := monitor.NewService(monitor.Dependencies{
		LogManager:     SlogManager,
		SessionContext: svc.SessionContext(),
		Parts:          deps.Parts,
		Vessel:         deps.Vessel,
		Ticks:          svc.Ticks,
		Commands:       d.Commands,
		StatusDir:      config.GetString("logsDir"),
		Interval:       config.GetDuration("monitor.interval"),
	})
	mon.Register(d)
	if config.GetBool("monitor.enabled") {
		if err := mon.Start(); err != nil {
			Logger.Warn("Status monitor not started", "error", err)
		}
		defer mon.Stop()
	}
	Logger.Info("Handlers registered", "commands", d.Commands())

	srv := hostinterface.New(d,
		hostinterface.WithVersion(CurrentExtensionVersion),
		hostinterface.WithLogger(Logger),
	)
	err = srv.Serve(ctx, os.Stdin, os.Stdout)

	if _, endErr := svc.EndSession(context.Background()); endErr != nil {
		Logger.Error("Ending session on shutdown failed", "error", endErr)
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
