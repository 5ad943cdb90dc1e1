// pkg/core/thruster.go
package core

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// ErrZeroAxis is returned when a firing axis has no direction.
var ErrZeroAxis = errors.New("thruster axis has zero length")

// ThrusterSpec is the static geometry of one nozzle. Position, Forward and Up
// are expressed in the same frame as the sampled control demand.
type ThrusterSpec struct {
	Position    mgl64.Vec3
	Forward     mgl64.Vec3
	Up          mgl64.Vec3
	EffectIndex int
}

// Axis returns the unit firing axis: Forward when useZ is set, Up otherwise.
// A zero axis stays zero.
func (t ThrusterSpec) Axis(useZ bool) mgl64.Vec3 {
	axis := t.Up
	if useZ {
		axis = t.Forward
	}
	if axis.Len() == 0 {
		return axis
	}
	return axis.Normalize()
}

// Normalized returns a copy with unit Forward and Up vectors.
func (t ThrusterSpec) Normalized() (ThrusterSpec, error) {
	if t.Forward.Len() == 0 {
		return t, fmt.Errorf("forward: %w", ErrZeroAxis)
	}
	if t.Up.Len() == 0 {
		return t, fmt.Errorf("up: %w", ErrZeroAxis)
	}
	t.Forward = t.Forward.Normalize()
	t.Up = t.Up.Normalize()
	return t, nil
}

// Configured reports whether the thruster has a non-degenerate mounting position.
func (t ThrusterSpec) Configured() bool {
	return t.Position != (mgl64.Vec3{})
}

// ThrusterStatus is the per-tick outcome of evaluating one thruster.
type ThrusterStatus uint8

const (
	StatusIdle ThrusterStatus = iota
	StatusEvaluating
	StatusFiring
	StatusStarved
	StatusSuppressed
)

func (s ThrusterStatus) String() string {
	switch s {
	case StatusIdle:
		return "idle"
	case StatusEvaluating:
		return "evaluating"
	case StatusFiring:
		return "firing"
	case StatusStarved:
		return "starved"
	case StatusSuppressed:
		return "suppressed"
	default:
		return "unknown"
	}
}

// AllocationResult is what one thruster produced during a tick.
type AllocationResult struct {
	Thrust         float64
	Force          mgl64.Vec3
	Position       mgl64.Vec3
	Success        bool
	Intensity      float64
	Status         ThrusterStatus
	PropellantMass float64 // mass actually consumed
}
