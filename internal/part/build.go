package part

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rcsfx/extension/internal/config"
	"github.com/rcsfx/extension/internal/curve"
	"github.com/rcsfx/extension/internal/rcs"
	"github.com/rcsfx/extension/pkg/core"
)

// ErrInvalidPart is returned for part blocks that cannot be repaired.
var ErrInvalidPart = errors.New("invalid part config")

var (
	defaultForward = mgl64.Vec3{0, 0, 1}
	defaultUp      = mgl64.Vec3{0, 1, 0}
)

// SpecFromConfig resolves a part block. A missing propellant list is
// synthesized from the legacy resourceName field.
func SpecFromConfig(pc config.PartConfig) (Spec, error) {
	if pc.ThrusterPower <= 0 {
		return Spec{}, fmt.Errorf("%w: %s: thrusterPower must be positive", ErrInvalidPart, pc.Name)
	}
	if pc.Epsilon < 0 {
		return Spec{}, fmt.Errorf("%w: %s: epsilon must not be negative", ErrInvalidPart, pc.Name)
	}

	isp, err := curve.Parse(pc.AtmosphereCurve)
	if err != nil {
		return Spec{}, fmt.Errorf("%w: %s: atmosphereCurve: %w", ErrInvalidPart, pc.Name, err)
	}
	if isp.Len() == 0 {
		return Spec{}, fmt.Errorf("%w: %s: atmosphereCurve is empty", ErrInvalidPart, pc.Name)
	}

	props := make([]core.Propellant, 0, len(pc.Propellants))
	for _, p := range pc.Propellants {
		ratio := p.Ratio
		if ratio == 0 {
			ratio = 1
		}
		props = append(props, core.Propellant{Name: p.Name, Ratio: ratio, FlowMode: core.ParseFlowMode(p.FlowMode)})
	}
	props = rcs.DefaultPropellants(props, pc.ResourceName)
	if len(props) == 0 {
		return Spec{}, fmt.Errorf("%w: %s: no propellants and no resourceName", ErrInvalidPart, pc.Name)
	}

	thrusters := make([]core.ThrusterSpec, 0, len(pc.Thrusters))
	for i, tc := range pc.Thrusters {
		t, err := thrusterFromConfig(tc)
		if err != nil {
			return Spec{}, fmt.Errorf("%w: %s: thruster %d: %w", ErrInvalidPart, pc.Name, i, err)
		}
		thrusters = append(thrusters, t)
	}

	return Spec{
		Name: pc.Name,
		Sampler: rcs.Sampler{
			Mask: rcs.AxisMask{
				X: pc.EnableX, Y: pc.EnableY, Z: pc.EnableZ,
				Pitch: pc.EnablePitch, Roll: pc.EnableRoll, Yaw: pc.EnableYaw,
			},
			UseThrottle: pc.UseThrottle,
		},
		Allocator: rcs.Config{
			Power:         pc.ThrusterPower,
			Epsilon:       pc.Epsilon,
			UseZAxis:      pc.UseZAxis,
			FullThrust:    pc.FullThrust,
			CorrectThrust: pc.CorrectThrust,
			CoMPolicy:     rcs.ParseCoMPolicy(pc.CoMPolicy),
			Propellants:   props,
			Curve:         isp,
		},
		Thrusters:      thrusters,
		JustForShow:    pc.JustForShow,
		RunningEffect:  pc.RunningEffectName,
		EngageEffect:   pc.EngageEffectName,
		FlameoutEffect: pc.FlameoutEffectName,
	}, nil
}

func thrusterFromConfig(tc config.ThrusterConfig) (core.ThrusterSpec, error) {
	pos, err := vec3(tc.Position, mgl64.Vec3{})
	if err != nil {
		return core.ThrusterSpec{}, fmt.Errorf("position: %w", err)
	}
	fwd, err := vec3(tc.Forward, defaultForward)
	if err != nil {
		return core.ThrusterSpec{}, fmt.Errorf("forward: %w", err)
	}
	up, err := vec3(tc.Up, defaultUp)
	if err != nil {
		return core.ThrusterSpec{}, fmt.Errorf("up: %w", err)
	}
	return core.ThrusterSpec{Position: pos, Forward: fwd, Up: up, EffectIndex: tc.EffectIndex}.Normalized()
}

func vec3(v []float64, fallback mgl64.Vec3) (mgl64.Vec3, error) {
	switch len(v) {
	case 0:
		return fallback, nil
	case 3:
		return mgl64.Vec3{v[0], v[1], v[2]}, nil
	default:
		return mgl64.Vec3{}, fmt.Errorf("want 3 components, got %d", len(v))
	}
}
