package sim

import (
	"sync"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rcsfx/extension/internal/config"
	"github.com/rcsfx/extension/internal/resource"
	"github.com/rcsfx/extension/pkg/core"
)

// State is the host-controlled part of a vessel.
type State struct {
	Frame          mgl64.Quat
	Control        *core.ControlState
	RCS            bool
	Controllable   bool
	InEditor       bool
	StaticPressure float64
	WarpRate       float64
	WarpMode       core.WarpMode
}

// Vessel bundles the body, the propellant pool and the host state.
type Vessel struct {
	Body *Body
	Pool *resource.Pool

	mu    sync.RWMutex
	state State
}

// NewVessel creates a controllable vessel with the RCS master switch off.
func NewVessel(body *Body, pool *resource.Pool) *Vessel {
	if pool == nil {
		pool = resource.NewPool(nil)
	}
	return &Vessel{
		Body: body,
		Pool: pool,
		state: State{
			Frame:        mgl64.QuatIdent(),
			Controllable: true,
			WarpRate:     1,
		},
	}
}

// NewVesselFromConfig builds the vessel described by the sim section: body
// mass, ambient pressure and the tank layout of the pool.
func NewVesselFromConfig(sc config.SimConfig, lib *resource.Library) *Vessel {
	pool := resource.NewPool(lib)
	pool.SetUnlimited(sc.UnlimitedPropellant)
	for _, tc := range sc.Tanks {
		pool.AddTank(resource.Tank{
			PartID:   tc.PartID,
			Stage:    tc.Stage,
			Resource: tc.Resource,
			Amount:   tc.Amount,
			Capacity: tc.Capacity,
		})
	}

	v := NewVessel(NewBody(sc.Mass), pool)
	v.Update(func(s *State) { s.StaticPressure = sc.StaticPressure })
	return v
}

// Snapshot returns a copy of the host state. The control state is copied too.
func (v *Vessel) Snapshot() State {
	v.mu.RLock()
	defer v.mu.RUnlock()
	s := v.state
	if s.Control != nil {
		ctrl := *s.Control
		s.Control = &ctrl
	}
	return s
}

// Update mutates the host state under the vessel lock.
func (v *Vessel) Update(fn func(*State)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	fn(&v.state)
}

// Environment builds the per-tick environment for dt.
func (v *Vessel) Environment(dt float64) core.Environment {
	s := v.Snapshot()
	_, vel, com := v.Body.Kinematics()
	return core.Environment{
		DeltaTime:      dt,
		StaticPressure: s.StaticPressure,
		Velocity:       vel,
		CenterOfMass:   com,
		WarpRate:       s.WarpRate,
		WarpMode:       s.WarpMode,
		RCSEnabled:     s.RCS,
		Controllable:   s.Controllable,
		InEditor:       s.InEditor,
	}
}
