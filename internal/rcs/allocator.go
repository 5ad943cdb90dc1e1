// Package rcs contains the reaction control core: the control sampler and
// the per-tick thrust allocator.
package rcs

import (
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rcsfx/extension/internal/curve"
	"github.com/rcsfx/extension/pkg/core"
)

const (
	// DefaultEpsilon is the dead-zone threshold for demand components.
	DefaultEpsilon = 0.05

	// successThreshold is the minimum granted thrust considered a firing.
	successThreshold = 1e-6

	// demandThreshold is the combined demand a nozzle must exceed to be evaluated further.
	demandThreshold = 1e-4

	precisionFullThrust = 0.1
	minIntensity        = 0.1
)

// CoMPolicy selects the center of mass used for lever arms.
type CoMPolicy uint8

const (
	// CoMInstantaneous uses the center of mass at the start of the tick.
	CoMInstantaneous CoMPolicy = iota
	// CoMPredicted extrapolates the center of mass by velocity * dt.
	CoMPredicted
)

// ParseCoMPolicy accepts "instantaneous" and "predicted"; anything else is instantaneous.
func ParseCoMPolicy(s string) CoMPolicy {
	if strings.EqualFold(strings.TrimSpace(s), "predicted") {
		return CoMPredicted
	}
	return CoMInstantaneous
}

func (p CoMPolicy) String() string {
	if p == CoMPredicted {
		return "predicted"
	}
	return "instantaneous"
}

// Config holds the allocation toggles of a thruster block.
type Config struct {
	Power         float64 // rated thrust per nozzle
	Epsilon       float64 // dead zone; 0 disables it
	UseZAxis      bool
	FullThrust    bool
	CorrectThrust bool
	CoMPolicy     CoMPolicy
	Propellants   []core.Propellant
	Curve         PerformanceCurve
}

// Allocation is the outcome of one tick. Results is index-aligned with the
// thrusters passed to Allocate.
type Allocation struct {
	Results     []core.AllocationResult
	EffectPower float64
	Success     bool
}

// TotalThrust sums the realized thrust of all nozzles.
func (a Allocation) TotalThrust() float64 {
	var total float64
	for _, r := range a.Results {
		total += r.Thrust
	}
	return total
}

// PropellantMass sums the consumed propellant mass of all nozzles.
func (a Allocation) PropellantMass() float64 {
	var total float64
	for _, r := range a.Results {
		total += r.PropellantMass
	}
	return total
}

// Allocator maps a control demand onto thrusters.
type Allocator struct {
	cfg Config
}

// NewAllocator creates an allocator. A nil curve is replaced by a flat one.
func NewAllocator(cfg Config) *Allocator {
	if cfg.Curve == nil {
		cfg.Curve = curve.New(curve.Key{Time: 0, Value: 1})
	}
	return &Allocator{cfg: cfg}
}

// Config returns the allocator configuration.
func (a *Allocator) Config() Config {
	return a.cfg
}

// Allocate runs one tick. It never fails: propellant shortfalls and gates are
// reported through per-thruster status and success flags. A nil prop grants nothing.
func (a *Allocator) Allocate(demand core.ControlDemand, thrusters []core.ThrusterSpec, env core.Environment, prop Propellant) Allocation {
	out := Allocation{Results: make([]core.AllocationResult, len(thrusters))}

	if !env.RCSEnabled {
		for i, t := range thrusters {
			out.Results[i] = core.AllocationResult{Position: t.Position, Status: core.StatusSuppressed}
		}
		return out
	}

	com := env.CenterOfMass
	if a.cfg.CoMPolicy == CoMPredicted {
		com = com.Add(env.Velocity.Mul(env.DeltaTime))
	}

	idealISP := a.cfg.Curve.Evaluate(0)
	realISP := a.cfg.Curve.Evaluate(env.StaticPressure)

	angularActive := !inDeadZone(demand.Angular, a.cfg.Epsilon)
	linearActive := !inDeadZone(demand.Linear, a.cfg.Epsilon)

	for i, t := range thrusters {
		res := &out.Results[i]
		res.Position = t.Position
		if !t.Configured() {
			res.Status = core.StatusIdle
			continue
		}
		res.Status = core.StatusEvaluating

		axis := t.Axis(a.cfg.UseZAxis)
		lever := t.Position.Sub(com)

		var thrust float64
		if angularActive && lever.Len() > 0 {
			torque := demand.Angular.Cross(lever.Normalize())
			thrust += math.Max(axis.Dot(torque), 0)
		}
		if linearActive {
			thrust += math.Max(axis.Dot(demand.Linear), 0)
		}
		if thrust <= demandThreshold {
			res.Status = core.StatusSuppressed
			continue
		}

		if a.cfg.FullThrust {
			thrust = a.cfg.Power
			if demand.Precision {
				thrust *= precisionFullThrust
			}
		}

		if a.cfg.CorrectThrust && idealISP > 0 {
			thrust *= realISP / idealISP
		}

		if demand.Precision && !a.cfg.FullThrust {
			if arm := leverDistance(axis.Mul(-1), lever); arm > 1 {
				thrust /= arm
			}
		}

		thrust = mgl64.Clamp(thrust, 0, a.cfg.Power)
		if thrust <= 0 {
			res.Status = core.StatusSuppressed
			continue
		}

		a.consume(res, thrust, realISP, env.DeltaTime, prop)
		if !res.Success {
			continue
		}

		res.Intensity = mgl64.Clamp(res.Thrust/a.cfg.Power, minIntensity, 1)
		res.Force = axis.Mul(-res.Thrust)
		out.EffectPower = math.Max(out.EffectPower, res.Intensity)
		out.Success = true
	}

	return out
}

// consume requests propellant for thrust and scales it by the granted fraction.
func (a *Allocator) consume(res *core.AllocationResult, thrust, isp, dt float64, prop Propellant) {
	if isp <= 0 || prop == nil {
		res.Status = core.StatusStarved
		return
	}

	mass := RequiredMass(thrust, isp, dt)
	f := mgl64.Clamp(prop.Request(a.cfg.Propellants, mass), 0, 1)
	thrust *= f

	if thrust <= successThreshold {
		res.Status = core.StatusStarved
		res.PropellantMass = mass * f
		return
	}
	res.Thrust = thrust
	res.PropellantMass = mass * f
	res.Success = true
	res.Status = core.StatusFiring
}

// inDeadZone reports whether every component of v is below eps in magnitude.
func inDeadZone(v mgl64.Vec3, eps float64) bool {
	return math.Abs(v[0]) < eps && math.Abs(v[1]) < eps && math.Abs(v[2]) < eps
}

// leverDistance is the perpendicular distance from the center of mass to the
// line of action through the nozzle along dir.
func leverDistance(dir, lever mgl64.Vec3) float64 {
	if dir.Len() == 0 {
		return 0
	}
	return lever.Cross(dir.Normalize()).Len()
}
