// Package part hosts a thruster block the way the host engine hosts a part
// module: a control-frame Update that samples input and a physics-step
// FixedUpdate that allocates thrust, applies forces and drives effects.
package part

import (
	"log/slog"
	"strconv"
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rcsfx/extension/internal/effects"
	"github.com/rcsfx/extension/internal/rcs"
	"github.com/rcsfx/extension/pkg/core"
)

// ForceSink is the host physics collaborator.
type ForceSink interface {
	AddForceAtPosition(force, position mgl64.Vec3)
}

// Spec is the resolved, immutable description of a part.
type Spec struct {
	Name        string
	Sampler     rcs.Sampler
	Allocator   rcs.Config
	Thrusters   []core.ThrusterSpec
	JustForShow bool

	RunningEffect  string
	EngageEffect   string
	FlameoutEffect string
}

// Tick is the outcome of one FixedUpdate.
type Tick struct {
	Allocation rcs.Allocation
	// Skipped is set in the editor scene, where nothing runs.
	Skipped bool
	// Suppressed is set when time warp, part state or the master switch gated the tick.
	Suppressed bool
	Engaged    bool
	Flameouts  []int
}

// Part is one thruster block instance.
type Part struct {
	ID   string
	spec Spec

	alloc  *rcs.Allocator
	prop   rcs.Propellant
	logger *slog.Logger

	mu       sync.Mutex
	enabled  bool
	demand   core.ControlDemand
	rcsWasOn bool
	starved  []bool
}

// Option configures a Part.
type Option func(*Part)

// WithLogger sets the part logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Part) { p.logger = l }
}

// WithPropellant sets the propellant collaborator.
func WithPropellant(prop rcs.Propellant) Option {
	return func(p *Part) { p.prop = prop }
}

// New creates an enabled part.
func New(id string, spec Spec, opts ...Option) *Part {
	p := &Part{
		ID:      id,
		spec:    spec,
		alloc:   rcs.NewAllocator(spec.Allocator),
		logger:  slog.Default(),
		enabled: true,
		starved: make([]bool, len(spec.Thrusters)),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("part", id)
	return p
}

// Spec returns the part description.
func (p *Part) Spec() Spec {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.spec
}

// AddThruster appends a nozzle and returns the new thruster count. A negative
// effect index is replaced by the nozzle's position in the list. Enabled state
// and engage/flameout edges are kept.
func (p *Part) AddThruster(t core.ThrusterSpec) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	if t.EffectIndex < 0 {
		t.EffectIndex = len(p.spec.Thrusters)
	}
	thrusters := make([]core.ThrusterSpec, len(p.spec.Thrusters), len(p.spec.Thrusters)+1)
	copy(thrusters, p.spec.Thrusters)
	p.spec.Thrusters = append(thrusters, t)
	p.starved = append(p.starved, false)
	return len(p.spec.Thrusters)
}

// Enabled reports whether the part module is enabled.
func (p *Part) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}

// SetEnabled toggles the part module.
func (p *Part) SetEnabled(v bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.enabled = v
}

// Demand returns the last sampled demand.
func (p *Part) Demand() core.ControlDemand {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.demand
}

// Update samples control input for the next physics step. A nil ctrl means
// the vessel has no active control context.
func (p *Part) Update(ctrl *core.ControlState, frame mgl64.Quat) core.ControlDemand {
	d := p.spec.Sampler.Sample(ctrl, frame)
	p.mu.Lock()
	p.demand = d
	p.mu.Unlock()
	return d
}

// FixedUpdate runs one physics step. forces and fx may be nil.
func (p *Part) FixedUpdate(env core.Environment, forces ForceSink, fx effects.Sink) Tick {
	if fx == nil {
		fx = effects.Nop{}
	}
	if env.InEditor {
		return Tick{Skipped: true}
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if env.HighWarp() {
		p.effectsOff(fx)
		p.rcsWasOn = env.RCSEnabled
		return Tick{Suppressed: true}
	}

	var tick Tick
	active := p.enabled && env.Controllable
	if !active {
		env.RCSEnabled = false
	}
	if env.RCSEnabled && !p.rcsWasOn {
		tick.Engaged = true
		if p.spec.EngageEffect != "" {
			fx.Trigger(p.spec.EngageEffect)
		}
		p.logger.Debug("rcs engaged")
	}
	p.rcsWasOn = env.RCSEnabled
	tick.Suppressed = !env.RCSEnabled

	tick.Allocation = p.alloc.Allocate(p.demand, p.spec.Thrusters, env, p.prop)

	for i, r := range tick.Allocation.Results {
		starved := r.Status == core.StatusStarved
		if starved && !p.starved[i] {
			tick.Flameouts = append(tick.Flameouts, i)
			if p.spec.FlameoutEffect != "" {
				fx.Trigger(p.spec.FlameoutEffect)
			}
		}
		p.starved[i] = starved

		if r.Success && forces != nil && !p.spec.JustForShow {
			forces.AddForceAtPosition(r.Force, r.Position)
		}
	}
	if len(tick.Flameouts) > 0 {
		p.logger.Warn("thrusters starved", "thrusters", tick.Flameouts)
	}

	if !tick.Allocation.Success {
		p.effectsOff(fx)
		return tick
	}
	p.setEffects(fx, tick.Allocation)
	return tick
}

func (p *Part) effectsOff(fx effects.Sink) {
	if p.spec.RunningEffect == "" {
		return
	}
	fx.SetIntensity(p.spec.RunningEffect, 0)
	for _, t := range p.spec.Thrusters {
		fx.SetIntensity(ThrusterChannel(p.spec.RunningEffect, t.EffectIndex), 0)
	}
}

func (p *Part) setEffects(fx effects.Sink, a rcs.Allocation) {
	if p.spec.RunningEffect == "" {
		return
	}
	fx.SetIntensity(p.spec.RunningEffect, a.EffectPower)
	for i, t := range p.spec.Thrusters {
		fx.SetIntensity(ThrusterChannel(p.spec.RunningEffect, t.EffectIndex), a.Results[i].Intensity)
	}
}

// ThrusterChannel names the effect channel of a single nozzle.
func ThrusterChannel(running string, index int) string {
	return running + "." + strconv.Itoa(index)
}
