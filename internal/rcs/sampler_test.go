package rcs

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/rcsfx/extension/pkg/core"
	"github.com/stretchr/testify/assert"
)

func assertVec(t *testing.T, want, got mgl64.Vec3) {
	t.Helper()
	for i := range want {
		assert.InDelta(t, want[i], got[i], 1e-9, "component %d of %v", i, got)
	}
}

func TestSample_NilControl(t *testing.T) {
	s := Sampler{Mask: AllAxes}
	assert.Equal(t, core.ControlDemand{}, s.Sample(nil, mgl64.QuatIdent()))
}

func TestSample_AxisOrderAndMask(t *testing.T) {
	ctrl := &core.ControlState{X: 0.1, Y: 0.2, Z: 0.3, Pitch: 0.4, Roll: 0.5, Yaw: 0.6}

	got := Sampler{Mask: AllAxes}.Sample(ctrl, mgl64.QuatIdent())
	assert.Equal(t, mgl64.Vec3{0.1, 0.3, 0.2}, got.Linear)
	assert.Equal(t, mgl64.Vec3{0.4, 0.5, 0.6}, got.Angular)

	got = Sampler{Mask: AxisMask{X: true, Yaw: true}}.Sample(ctrl, mgl64.QuatIdent())
	assert.Equal(t, mgl64.Vec3{0.1, 0, 0}, got.Linear)
	assert.Equal(t, mgl64.Vec3{0, 0, 0.6}, got.Angular)
}

func TestSample_ZeroQuaternionIsIdentity(t *testing.T) {
	ctrl := &core.ControlState{X: 1}
	got := Sampler{Mask: AllAxes}.Sample(ctrl, mgl64.Quat{})
	assert.Equal(t, mgl64.Vec3{1, 0, 0}, got.Linear)
}

func TestSample_RotatesIntoFrame(t *testing.T) {
	ctrl := &core.ControlState{X: 1, Pitch: 1}
	frame := mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 0, 1})

	got := Sampler{Mask: AllAxes}.Sample(ctrl, frame)

	assertVec(t, mgl64.Vec3{0, 1, 0}, got.Linear)
	assertVec(t, mgl64.Vec3{0, 1, 0}, got.Angular)
}

func TestSample_Throttle(t *testing.T) {
	s := Sampler{Mask: AllAxes, UseThrottle: true}

	got := s.Sample(&core.ControlState{MainThrottle: 0.4}, mgl64.QuatIdent())
	assert.InDelta(t, -0.4, got.Linear.Y(), 1e-12)

	got = s.Sample(&core.ControlState{Z: -0.9, MainThrottle: 0.5}, mgl64.QuatIdent())
	assert.Equal(t, -1.0, got.Linear.Y())

	got = Sampler{Mask: AllAxes}.Sample(&core.ControlState{MainThrottle: 0.4}, mgl64.QuatIdent())
	assert.Equal(t, 0.0, got.Linear.Y(), "throttle ignored when disabled")
}

func TestSample_Precision(t *testing.T) {
	got := Sampler{}.Sample(&core.ControlState{Precision: true}, mgl64.QuatIdent())
	assert.True(t, got.Precision)
}
