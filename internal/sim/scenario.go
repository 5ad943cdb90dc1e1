package sim

import (
	"context"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rcsfx/extension/internal/config"
	"github.com/rcsfx/extension/pkg/core"
)

// Phase holds a fixed control input and vessel state for a number of ticks.
type Phase struct {
	Name     string
	Ticks    int
	Control  core.ControlState
	RCS      bool
	WarpRate float64
	WarpMode core.WarpMode
}

// PhasesFromConfig converts scenario phases. Unknown warp modes mean low warp.
func PhasesFromConfig(pcs []config.PhaseConfig) []Phase {
	out := make([]Phase, 0, len(pcs))
	for _, pc := range pcs {
		mode := core.WarpLow
		if strings.EqualFold(pc.WarpMode, "high") {
			mode = core.WarpHigh
		}
		rate := pc.WarpRate
		if rate <= 0 {
			rate = 1
		}
		out = append(out, Phase{
			Name:  pc.Name,
			Ticks: pc.Ticks,
			Control: core.ControlState{
				X: pc.X, Y: pc.Y, Z: pc.Z,
				Pitch: pc.Pitch, Roll: pc.Roll, Yaw: pc.Yaw,
				MainThrottle: pc.MainThrottle,
				Precision:    pc.Precision,
			},
			RCS:      pc.RCS,
			WarpRate: rate,
			WarpMode: mode,
		})
	}
	return out
}

// Summary aggregates a scenario run.
type Summary struct {
	Ticks          int
	FiringTicks    int
	Flameouts      int
	Engagements    int
	PropellantMass float64
	Impulse        mgl64.Vec3
	AngularImpulse mgl64.Vec3
}

// RunScenario plays phases in order. It stops at the first step error or
// when ctx is cancelled, returning what was accumulated so far.
func RunScenario(ctx context.Context, s *Simulation, phases []Phase) (Summary, error) {
	var sum Summary
	for _, ph := range phases {
		s.vessel.Update(func(st *State) {
			ctrl := ph.Control
			st.Control = &ctrl
			st.RCS = ph.RCS
			st.WarpRate = ph.WarpRate
			st.WarpMode = ph.WarpMode
		})
		s.logger.Debug("scenario phase", "phase", ph.Name, "ticks", ph.Ticks)

		for i := 0; i < ph.Ticks; i++ {
			res, err := s.Step(ctx)
			if err != nil {
				return sum, err
			}
			sum.Ticks++
			sum.Impulse = sum.Impulse.Add(res.Force.Mul(s.dt))
			sum.AngularImpulse = sum.AngularImpulse.Add(res.Torque.Mul(s.dt))

			fired := false
			for _, rec := range res.Records {
				sum.PropellantMass += rec.PropellantMass
				fired = fired || rec.Success
			}
			if fired {
				sum.FiringTicks++
			}
			for _, ev := range res.Events {
				switch ev.Kind {
				case core.EffectFlameout:
					sum.Flameouts++
				case core.EffectEngage:
					sum.Engagements++
				}
			}
		}
	}
	return sum, nil
}
