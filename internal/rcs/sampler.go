package rcs

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/rcsfx/extension/pkg/core"
)

// AxisMask enables individual control axes.
type AxisMask struct {
	X, Y, Z          bool
	Pitch, Roll, Yaw bool
}

// AllAxes enables every axis.
var AllAxes = AxisMask{X: true, Y: true, Z: true, Pitch: true, Roll: true, Yaw: true}

// Sampler turns raw control input into a ControlDemand once per control frame.
type Sampler struct {
	Mask        AxisMask
	UseThrottle bool
}

// Sample masks and rotates ctrl into the frame given by frame. A nil control
// state yields a zero demand. A zero quaternion is treated as identity.
func (s Sampler) Sample(ctrl *core.ControlState, frame mgl64.Quat) core.ControlDemand {
	if ctrl == nil {
		return core.ControlDemand{}
	}
	if frame == (mgl64.Quat{}) {
		frame = mgl64.QuatIdent()
	}

	// host convention: local Y is the long axis, so Z and Y swap
	linear := mgl64.Vec3{
		mask(s.Mask.X, ctrl.X),
		mask(s.Mask.Z, ctrl.Z),
		mask(s.Mask.Y, ctrl.Y),
	}
	angular := mgl64.Vec3{
		mask(s.Mask.Pitch, ctrl.Pitch),
		mask(s.Mask.Roll, ctrl.Roll),
		mask(s.Mask.Yaw, ctrl.Yaw),
	}

	linear = frame.Rotate(linear)
	angular = frame.Rotate(angular)

	if s.UseThrottle {
		linear[1] = mgl64.Clamp(linear[1]-ctrl.MainThrottle, -1, 1)
	}

	return core.ControlDemand{
		Linear:    linear,
		Angular:   angular,
		Precision: ctrl.Precision,
	}
}

func mask(enabled bool, v float64) float64 {
	if !enabled {
		return 0
	}
	return v
}
