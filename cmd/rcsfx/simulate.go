package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rcsfx/extension/internal/api"
	"github.com/rcsfx/extension/internal/cache"
	"github.com/rcsfx/extension/internal/config"
	"github.com/rcsfx/extension/internal/part"
	"github.com/rcsfx/extension/internal/sim"
	"github.com/rcsfx/extension/internal/storage"
	"github.com/rcsfx/extension/pkg/core"
)

// runSimulate plays the configured scenario against the configured part and
// records it through the storage backend and InfluxDB.
func runSimulate(args []string, out io.Writer) error {
	fs, configDir := commonFlags("simulate")
	name := fs.String("name", "scenario", "session name")
	noStore := fs.Bool("no-store", false, "skip the storage backend")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if err := setup(*configDir); err != nil {
		return err
	}
	defer shutdown()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	spec, lib, err := loadPart()
	if err != nil {
		return err
	}
	sc, err := config.GetSimConfig()
	if err != nil {
		return err
	}

	vessel := sim.NewVesselFromConfig(sc, lib)
	parts := cache.NewPartCache()
	parts.Add(part.New(spec.Name, spec,
		part.WithPropellant(vessel.Pool.Requester(spec.Name)),
		part.WithLogger(Logger),
	))

	opts := []sim.Option{sim.WithIntegration(true), sim.WithLogger(Logger)}

	var backend storage.Backend
	if !*noStore {
		backend, err = initStorage()
		if err != nil {
			return err
		}
		defer backend.Close()
		opts = append(opts, sim.WithRecorder(backend))
	}

	metrics, err := initMetrics(ctx)
	if err != nil {
		Logger.Warn("InfluxDB unavailable", "error", err)
	}
	if metrics != nil {
		defer metrics.Close()
		opts = append(opts, sim.WithRecorder(metrics))
	}

	s, err := sim.New(vessel, parts, sc.TickDuration, opts...)
	if err != nil {
		return err
	}

	sess := &core.Session{
		Name:             *name,
		PartName:         spec.Name,
		StartTime:        SessionStartTime,
		TickDuration:     sc.TickDuration,
		ThrusterCount:    len(spec.Thrusters),
		ExtensionVersion: CurrentExtensionVersion,
	}
	if backend != nil {
		if err := backend.StartSession(sess); err != nil {
			return err
		}
	}
	s.StartSession(sess.ID)

	sum, runErr := sim.RunScenario(ctx, s, sim.PhasesFromConfig(sc.Phases))

	if backend != nil {
		if err := backend.EndSession(); err != nil {
			Logger.Error("Ending session failed", "error", err)
		}
		if exp, ok := backend.(storage.Exportable); ok && exp.ExportedFilePath() != "" {
			fmt.Fprintf(out, "exported: %s\n", exp.ExportedFilePath())
			if up := initUploader(backend); up != nil {
				if err := up.Upload(exp.ExportedFilePath(), api.MetadataFor(sess, sum.Ticks)); err != nil {
					Logger.Error("Uploading session failed", "error", err)
				} else {
					fmt.Fprintln(out, "uploaded")
				}
			}
		}
	}

	printSummary(out, sum, vessel)
	return runErr
}

func printSummary(out io.Writer, sum sim.Summary, vessel *sim.Vessel) {
	pos, vel, _ := vessel.Body.Kinematics()
	fmt.Fprintf(out, "ticks: %d (firing %d)\n", sum.Ticks, sum.FiringTicks)
	fmt.Fprintf(out, "engagements: %d, flameouts: %d\n", sum.Engagements, sum.Flameouts)
	fmt.Fprintf(out, "propellant: %.6f t\n", sum.PropellantMass)
	fmt.Fprintf(out, "impulse: %.4f %.4f %.4f\n", sum.Impulse.X(), sum.Impulse.Y(), sum.Impulse.Z())
	fmt.Fprintf(out, "angular impulse: %.4f %.4f %.4f\n", sum.AngularImpulse.X(), sum.AngularImpulse.Y(), sum.AngularImpulse.Z())
	fmt.Fprintf(out, "final velocity: %.4f %.4f %.4f\n", vel.X(), vel.Y(), vel.Z())
	fmt.Fprintf(out, "final position: %.4f %.4f %.4f\n", pos.X(), pos.Y(), pos.Z())
}
