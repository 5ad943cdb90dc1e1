// Package sim is the owning simulation loop: each step samples control for
// every registered part, runs thrust allocation, applies forces to the body
// and hands tick records to recorders.
package sim

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/rcsfx/extension/internal/cache"
	"github.com/rcsfx/extension/internal/effects"
	"github.com/rcsfx/extension/internal/part"
	"github.com/rcsfx/extension/pkg/core"
)

const instrumentationName = "github.com/rcsfx/extension/internal/sim"

// Recorder receives the outcome of every step. storage.Backend satisfies it.
type Recorder interface {
	RecordTick(rec *core.TickRecord) error
	RecordEffectEvent(ev *core.EffectEvent) error
}

// StepResult is the outcome of one step across all parts.
type StepResult struct {
	Tick    uint
	Records []*core.TickRecord
	Events  []*core.EffectEvent
	Force   mgl64.Vec3
	Torque  mgl64.Vec3
}

// Simulation drives the parts of one vessel.
type Simulation struct {
	vessel    *Vessel
	parts     *cache.PartCache
	dt        float64
	fx        effects.Sink
	recorders []Recorder
	integrate bool
	now       func() time.Time
	logger    *slog.Logger

	tick      uint
	sessionID uint

	ticks     metric.Int64Counter
	flameouts metric.Int64Counter
}

// Option configures a Simulation.
type Option func(*Simulation)

// WithRecorder adds a recorder.
func WithRecorder(r Recorder) Option {
	return func(s *Simulation) { s.recorders = append(s.recorders, r) }
}

// WithEffects sets the effect sink shared by all parts.
func WithEffects(fx effects.Sink) Option {
	return func(s *Simulation) { s.fx = fx }
}

// WithIntegration makes Step integrate the body. Leave it off when the host
// owns physics.
func WithIntegration(on bool) Option {
	return func(s *Simulation) { s.integrate = on }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Simulation) { s.logger = l }
}

// WithClock overrides time.Now for record timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Simulation) { s.now = now }
}

// New creates a simulation stepping dt seconds per tick.
func New(vessel *Vessel, parts *cache.PartCache, dt float64, opts ...Option) (*Simulation, error) {
	s := &Simulation{
		vessel: vessel,
		parts:  parts,
		dt:     dt,
		fx:     effects.Nop{},
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	m := otel.Meter(instrumentationName)
	var err error
	s.ticks, err = m.Int64Counter("sim.ticks", metric.WithDescription("Physics steps executed"))
	if err != nil {
		return nil, fmt.Errorf("creating tick counter: %w", err)
	}
	s.flameouts, err = m.Int64Counter("sim.flameouts", metric.WithDescription("Thrusters that ran out of propellant"))
	if err != nil {
		return nil, fmt.Errorf("creating flameout counter: %w", err)
	}
	return s, nil
}

// Vessel returns the simulated vessel.
func (s *Simulation) Vessel() *Vessel {
	return s.vessel
}

// Parts returns the part registry.
func (s *Simulation) Parts() *cache.PartCache {
	return s.parts
}

// DeltaTime returns the step length in seconds.
func (s *Simulation) DeltaTime() float64 {
	return s.dt
}

// Tick returns the number of steps taken in the current session.
func (s *Simulation) Tick() uint {
	return s.tick
}

// StartSession tags subsequent records with id and restarts the tick count.
func (s *Simulation) StartSession(id uint) {
	s.sessionID = id
	s.tick = 0
}

// Step advances one tick. Recorder failures are returned joined after every
// recorder has been given the tick; they never abort the step.
func (s *Simulation) Step(ctx context.Context) (StepResult, error) {
	if err := ctx.Err(); err != nil {
		return StepResult{}, err
	}

	state := s.vessel.Snapshot()
	env := s.vessel.Environment(s.dt)
	now := s.now()

	res := StepResult{Tick: s.tick}
	for _, p := range s.parts.All() {
		demand := p.Update(state.Control, state.Frame)
		out := p.FixedUpdate(env, s.vessel.Body, s.fx)
		if out.Skipped {
			continue
		}
		res.Records = append(res.Records, s.record(p, now, env, demand, out))
		res.Events = append(res.Events, s.events(p, now, out)...)
		if n := len(out.Flameouts); n > 0 {
			s.flameouts.Add(ctx, int64(n), metric.WithAttributes(attribute.String("part", p.ID)))
		}
	}

	if s.integrate {
		res.Force, res.Torque = s.vessel.Body.Integrate(s.dt)
	} else {
		res.Force, res.Torque = s.vessel.Body.Flush()
	}

	s.tick++
	s.ticks.Add(ctx, 1)

	return res, s.publish(res)
}

func (s *Simulation) record(p *part.Part, now time.Time, env core.Environment, demand core.ControlDemand, out part.Tick) *core.TickRecord {
	rec := &core.TickRecord{
		SessionID:      s.sessionID,
		Tick:           s.tick,
		Time:           now,
		PartID:         p.ID,
		CenterOfMass:   env.CenterOfMass,
		Demand:         demand,
		Suppressed:     out.Suppressed,
		Success:        out.Allocation.Success,
		EffectPower:    out.Allocation.EffectPower,
		TotalThrust:    out.Allocation.TotalThrust(),
		PropellantMass: out.Allocation.PropellantMass(),
	}
	for i, r := range out.Allocation.Results {
		rec.Thrusters = append(rec.Thrusters, core.ThrusterSample{
			Index:          i,
			Thrust:         r.Thrust,
			Intensity:      r.Intensity,
			Status:         r.Status.String(),
			PropellantMass: r.PropellantMass,
		})
	}
	return rec
}

func (s *Simulation) events(p *part.Part, now time.Time, out part.Tick) []*core.EffectEvent {
	spec := p.Spec()
	var evs []*core.EffectEvent
	if out.Engaged {
		evs = append(evs, &core.EffectEvent{
			SessionID: s.sessionID, Tick: s.tick, Time: now, PartID: p.ID,
			Channel: spec.EngageEffect, Kind: core.EffectEngage,
		})
	}
	for range out.Flameouts {
		evs = append(evs, &core.EffectEvent{
			SessionID: s.sessionID, Tick: s.tick, Time: now, PartID: p.ID,
			Channel: spec.FlameoutEffect, Kind: core.EffectFlameout,
		})
	}
	return evs
}

func (s *Simulation) publish(res StepResult) error {
	var errs []error
	for _, r := range s.recorders {
		for _, rec := range res.Records {
			if err := r.RecordTick(rec); err != nil {
				errs = append(errs, fmt.Errorf("record tick %d of %s: %w", rec.Tick, rec.PartID, err))
			}
		}
		for _, ev := range res.Events {
			if err := r.RecordEffectEvent(ev); err != nil {
				errs = append(errs, fmt.Errorf("record %s event of %s: %w", ev.Kind, ev.PartID, err))
			}
		}
	}
	err := errors.Join(errs...)
	if err != nil {
		s.logger.Warn("recording failed", "tick", res.Tick, "error", err)
	}
	return err
}
