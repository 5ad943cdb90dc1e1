package part

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rcsfx/extension/internal/config"
	"github.com/rcsfx/extension/internal/curve"
	"github.com/rcsfx/extension/internal/effects"
	"github.com/rcsfx/extension/internal/rcs"
	"github.com/rcsfx/extension/internal/resource"
	"github.com/rcsfx/extension/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type appliedForce struct {
	force, position mgl64.Vec3
}

type forceRecorder struct {
	applied []appliedForce
}

func (f *forceRecorder) AddForceAtPosition(force, position mgl64.Vec3) {
	f.applied = append(f.applied, appliedForce{force, position})
}

func testSpec() Spec {
	up := func(pos, axis mgl64.Vec3, idx int) core.ThrusterSpec {
		return core.ThrusterSpec{Position: pos, Up: axis, Forward: mgl64.Vec3{0, 0, 1}, EffectIndex: idx}
	}
	return Spec{
		Name:    "test",
		Sampler: rcs.Sampler{Mask: rcs.AllAxes},
		Allocator: rcs.Config{
			Power:       1,
			Epsilon:     rcs.DefaultEpsilon,
			Propellants: []core.Propellant{{Name: "MonoPropellant", Ratio: 1}},
			Curve:       curve.New(curve.Key{Time: 0, Value: 240}),
		},
		Thrusters: []core.ThrusterSpec{
			up(mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0, 1, 0}, 0),
			up(mgl64.Vec3{-1, 0, 0}, mgl64.Vec3{0, -1, 0}, 1),
			up(mgl64.Vec3{0, 1, 0}, mgl64.Vec3{-1, 0, 0}, 2),
			up(mgl64.Vec3{0, -1, 0}, mgl64.Vec3{1, 0, 0}, 3),
		},
		RunningEffect:  "running",
		EngageEffect:   "engage",
		FlameoutEffect: "flameout",
	}
}

func flightEnv(rcsOn bool) core.Environment {
	return core.Environment{DeltaTime: 0.02, RCSEnabled: rcsOn, Controllable: true}
}

var yaw = &core.ControlState{Yaw: 1}

func TestFixedUpdate_FiresAndAppliesForces(t *testing.T) {
	p := New("rcs1", testSpec(), WithPropellant(rcs.Unlimited{}))
	forces := &forceRecorder{}
	fx := effects.NewRecorder()

	p.Update(yaw, mgl64.QuatIdent())
	tick := p.FixedUpdate(flightEnv(true), forces, fx)

	require.True(t, tick.Allocation.Success)
	assert.False(t, tick.Suppressed)
	assert.Len(t, forces.applied, 4)
	assert.Equal(t, 1.0, fx.Intensity("running"))
	assert.Equal(t, 1.0, fx.Intensity(ThrusterChannel("running", 2)))
}

func TestAddThruster_KeepsPartState(t *testing.T) {
	p := New("rcs1", testSpec(), WithPropellant(rcs.Unlimited{}))
	p.Update(yaw, mgl64.QuatIdent())
	require.True(t, p.FixedUpdate(flightEnv(true), nil, nil).Engaged)

	n := p.AddThruster(core.ThrusterSpec{Position: mgl64.Vec3{0, 0, 1}, Up: mgl64.Vec3{0, 1, 0}, EffectIndex: -1})
	assert.Equal(t, 5, n)
	assert.Equal(t, 4, p.Spec().Thrusters[4].EffectIndex)

	tick := p.FixedUpdate(flightEnv(true), nil, nil)
	assert.False(t, tick.Engaged, "no second engage after growing the block")
	assert.Len(t, tick.Allocation.Results, 5)

	p.SetEnabled(false)
	p.AddThruster(core.ThrusterSpec{Position: mgl64.Vec3{0, 0, -1}, Up: mgl64.Vec3{0, 1, 0}})
	assert.False(t, p.Enabled())
	assert.Len(t, testSpec().Thrusters, 4)
}

func TestFixedUpdate_MasterSwitchOff(t *testing.T) {
	p := New("rcs1", testSpec(), WithPropellant(rcs.Unlimited{}))
	forces := &forceRecorder{}
	fx := effects.NewRecorder()

	p.Update(&core.ControlState{X: 1, Y: 1, Z: 1, Pitch: 1, Roll: 1, Yaw: 1}, mgl64.QuatIdent())
	p.FixedUpdate(flightEnv(true), forces, fx)
	require.NotEmpty(t, forces.applied)

	forces.applied = nil
	tick := p.FixedUpdate(flightEnv(false), forces, fx)

	assert.True(t, tick.Suppressed)
	assert.False(t, tick.Allocation.Success)
	assert.Empty(t, forces.applied)
	for _, r := range tick.Allocation.Results {
		assert.Equal(t, 0.0, r.Thrust)
		assert.Equal(t, 0.0, r.Intensity)
	}
	for ch, v := range fx.Channels() {
		assert.Equal(t, 0.0, v, ch)
	}
}

func TestFixedUpdate_HighWarp(t *testing.T) {
	p := New("rcs1", testSpec(), WithPropellant(rcs.Unlimited{}))
	forces := &forceRecorder{}
	fx := effects.NewRecorder()

	p.Update(yaw, mgl64.QuatIdent())
	p.FixedUpdate(flightEnv(true), forces, fx)
	require.Equal(t, 1.0, fx.Intensity("running"))

	forces.applied = nil
	env := flightEnv(true)
	env.WarpRate = 50
	env.WarpMode = core.WarpHigh
	tick := p.FixedUpdate(env, forces, fx)

	assert.True(t, tick.Suppressed)
	assert.Nil(t, tick.Allocation.Results)
	assert.Empty(t, forces.applied)
	assert.Equal(t, 0.0, fx.Intensity("running"))
	assert.Equal(t, 0.0, fx.Intensity(ThrusterChannel("running", 0)))

	env.WarpMode = core.WarpLow
	tick = p.FixedUpdate(env, forces, fx)
	assert.True(t, tick.Allocation.Success, "physics warp still fires")
}

func TestFixedUpdate_EditorSkips(t *testing.T) {
	p := New("rcs1", testSpec(), WithPropellant(rcs.Unlimited{}))
	fx := effects.NewRecorder()

	p.Update(yaw, mgl64.QuatIdent())
	env := flightEnv(true)
	env.InEditor = true
	tick := p.FixedUpdate(env, nil, fx)

	assert.True(t, tick.Skipped)
	assert.Empty(t, fx.Channels())
	assert.Equal(t, 0, fx.Triggers("engage"))
}

func TestFixedUpdate_EngageOnRisingEdge(t *testing.T) {
	p := New("rcs1", testSpec(), WithPropellant(rcs.Unlimited{}))
	fx := effects.NewRecorder()

	assert.False(t, p.FixedUpdate(flightEnv(false), nil, fx).Engaged)
	assert.True(t, p.FixedUpdate(flightEnv(true), nil, fx).Engaged)
	assert.False(t, p.FixedUpdate(flightEnv(true), nil, fx).Engaged)
	p.FixedUpdate(flightEnv(false), nil, fx)
	p.FixedUpdate(flightEnv(true), nil, fx)

	assert.Equal(t, 2, fx.Triggers("engage"))
}

func TestFixedUpdate_FlameoutOncePerTransition(t *testing.T) {
	pool := resource.NewPool(nil)
	// less than one tick of the whole block at full power
	pool.AddTank(resource.Tank{PartID: "tank", Resource: "MonoPropellant", Amount: 0.003})

	p := New("rcs1", testSpec(), WithPropellant(pool.Requester("rcs1")))
	fx := effects.NewRecorder()
	forces := &forceRecorder{}
	p.Update(yaw, mgl64.QuatIdent())

	first := p.FixedUpdate(flightEnv(true), forces, fx)
	assert.True(t, first.Allocation.Success, "first nozzles still get propellant")
	flameouts := len(first.Flameouts)

	for i := 0; i < 5; i++ {
		tick := p.FixedUpdate(flightEnv(true), forces, fx)
		flameouts += len(tick.Flameouts)
		assert.False(t, tick.Allocation.Success)
	}

	assert.Equal(t, 4, flameouts, "each nozzle flames out once")
	assert.Equal(t, 4, fx.Triggers("flameout"))
	assert.Equal(t, 0.0, fx.Intensity("running"))
}

func TestFixedUpdate_JustForShow(t *testing.T) {
	spec := testSpec()
	spec.JustForShow = true
	p := New("rcs1", spec, WithPropellant(rcs.Unlimited{}))
	forces := &forceRecorder{}
	fx := effects.NewRecorder()

	p.Update(yaw, mgl64.QuatIdent())
	tick := p.FixedUpdate(flightEnv(true), forces, fx)

	assert.True(t, tick.Allocation.Success)
	assert.Empty(t, forces.applied)
	assert.Equal(t, 1.0, fx.Intensity("running"))
}

func TestFixedUpdate_DisabledOrUncontrollable(t *testing.T) {
	p := New("rcs1", testSpec(), WithPropellant(rcs.Unlimited{}))
	forces := &forceRecorder{}
	p.Update(yaw, mgl64.QuatIdent())

	env := flightEnv(true)
	env.Controllable = false
	assert.True(t, p.FixedUpdate(env, forces, nil).Suppressed)

	p.SetEnabled(false)
	assert.False(t, p.Enabled())
	assert.True(t, p.FixedUpdate(flightEnv(true), forces, nil).Suppressed)
	assert.Empty(t, forces.applied)

	p.SetEnabled(true)
	assert.True(t, p.FixedUpdate(flightEnv(true), forces, nil).Allocation.Success)
}

func TestUpdate_NoControlContext(t *testing.T) {
	p := New("rcs1", testSpec(), WithPropellant(rcs.Unlimited{}))

	p.Update(nil, mgl64.QuatIdent())
	tick := p.FixedUpdate(flightEnv(true), nil, nil)

	assert.Equal(t, core.ControlDemand{}, p.Demand())
	assert.False(t, tick.Allocation.Success)
}

func TestSpecFromConfig(t *testing.T) {
	pc := config.PartConfig{
		Name:            "legacy",
		EnableX:         true,
		EnableYaw:       true,
		Epsilon:         0.05,
		ThrusterPower:   0.5,
		ResourceName:    "MonoPropellant",
		AtmosphereCurve: []string{"0 240", "1 100"},
		CoMPolicy:       "predicted",
		Thrusters: []config.ThrusterConfig{
			{Position: []float64{1, 0, 0}, Up: []float64{0, 2, 0}},
		},
	}

	spec, err := SpecFromConfig(pc)
	require.NoError(t, err)

	assert.Equal(t, []core.Propellant{{Name: "MonoPropellant", Ratio: 1}}, spec.Allocator.Propellants)
	assert.Equal(t, rcs.CoMPredicted, spec.Allocator.CoMPolicy)
	assert.True(t, spec.Sampler.Mask.X)
	assert.False(t, spec.Sampler.Mask.Pitch)
	require.Len(t, spec.Thrusters, 1)
	assert.Equal(t, mgl64.Vec3{0, 0, 1}, spec.Thrusters[0].Forward, "forward defaults")
	assert.Equal(t, mgl64.Vec3{0, 1, 0}, spec.Thrusters[0].Up, "up is normalized")
	assert.InDelta(t, 100, spec.Allocator.Curve.Evaluate(1), 1e-9)
}

func TestSpecFromConfig_ExplicitPropellants(t *testing.T) {
	pc := config.PartConfig{
		Name:            "vernor",
		ThrusterPower:   12,
		ResourceName:    "MonoPropellant",
		AtmosphereCurve: []string{"0 260"},
		Propellants: []config.PropellantConfig{
			{Name: "LiquidFuel", Ratio: 0.9},
			{Name: "Oxidizer", Ratio: 1.1, FlowMode: "NO_FLOW"},
		},
	}

	spec, err := SpecFromConfig(pc)
	require.NoError(t, err)

	require.Len(t, spec.Allocator.Propellants, 2)
	assert.Equal(t, "LiquidFuel", spec.Allocator.Propellants[0].Name)
	assert.Equal(t, core.FlowNoFlow, spec.Allocator.Propellants[1].FlowMode)
}

func TestSpecFromConfig_Errors(t *testing.T) {
	valid := config.PartConfig{
		Name:            "p",
		ThrusterPower:   1,
		ResourceName:    "MonoPropellant",
		AtmosphereCurve: []string{"0 240"},
	}

	tests := []struct {
		name   string
		mutate func(*config.PartConfig)
	}{
		{"zero power", func(pc *config.PartConfig) { pc.ThrusterPower = 0 }},
		{"negative epsilon", func(pc *config.PartConfig) { pc.Epsilon = -1 }},
		{"empty curve", func(pc *config.PartConfig) { pc.AtmosphereCurve = nil }},
		{"bad curve", func(pc *config.PartConfig) { pc.AtmosphereCurve = []string{"x"} }},
		{"no propellant", func(pc *config.PartConfig) { pc.ResourceName = "" }},
		{"short vector", func(pc *config.PartConfig) {
			pc.Thrusters = []config.ThrusterConfig{{Position: []float64{1, 2}}}
		}},
		{"zero up axis", func(pc *config.PartConfig) {
			pc.Thrusters = []config.ThrusterConfig{{Position: []float64{1, 0, 0}, Up: []float64{0, 0, 0}}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pc := valid
			tt.mutate(&pc)
			_, err := SpecFromConfig(pc)
			assert.ErrorIs(t, err, ErrInvalidPart)
		})
	}
}

func TestInfo(t *testing.T) {
	p := New("rcs1", testSpec())

	info := p.Info(nil)

	assert.Equal(t, 4, info.Thrusters)
	assert.Equal(t, 240.0, info.VacuumISP)
	require.Len(t, info.Propellants, 1)
	assert.InDelta(t, 1/0.004*1/(240*rcs.G), info.Propellants[0].MaxFuelFlow, 1e-12)
	assert.Contains(t, info.String(), "MonoPropellant")
}

func TestInfo_SkipsUnresolvedPropellant(t *testing.T) {
	spec := testSpec()
	spec.Allocator.Propellants = []core.Propellant{{Name: "Unobtainium", Ratio: 1}}
	p := New("rcs1", spec)

	assert.Empty(t, p.Info(resource.DefaultLibrary()).Propellants)
}
