// pkg/core/control.go
package core

import "github.com/go-gl/mathgl/mgl64"

// ControlState is the raw pilot or autopilot input for one control frame.
// Axis values are normalized to [-1, 1], MainThrottle to [0, 1].
type ControlState struct {
	X, Y, Z          float64
	Pitch, Roll, Yaw float64
	MainThrottle     float64
	Precision        bool
}

// ControlDemand is the sampled, masked and frame-rotated demand handed from
// the control sampler to the thrust allocator.
type ControlDemand struct {
	Linear    mgl64.Vec3
	Angular   mgl64.Vec3
	Precision bool
}

// WarpMode mirrors the host clock's time acceleration modes.
type WarpMode uint8

const (
	WarpLow WarpMode = iota // physics warp, forces still applied
	WarpHigh                // on-rails warp, no forces
)

// Environment is the per-tick context supplied by the host simulation.
type Environment struct {
	DeltaTime      float64
	StaticPressure float64 // 0 = vacuum, 1 = sea level reference
	Velocity       mgl64.Vec3
	CenterOfMass   mgl64.Vec3
	WarpRate       float64
	WarpMode       WarpMode
	RCSEnabled     bool // vessel RCS master switch
	Controllable   bool
	InEditor       bool
}

// HighWarp reports whether the host asked the core to go idle.
func (e Environment) HighWarp() bool {
	return e.WarpRate > 1 && e.WarpMode == WarpHigh
}
