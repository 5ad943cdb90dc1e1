package parser

import (
	"github.com/go-gl/mathgl/mgl64"
	"github.com/rcsfx/extension/pkg/core"
)

// VesselUpdate is a parsed :VESSEL: line.
type VesselUpdate struct {
	Frame          mgl64.Quat
	Velocity       mgl64.Vec3
	CenterOfMass   mgl64.Vec3
	RCS            bool
	Controllable   bool
	InEditor       bool
	StaticPressure float64
	WarpRate       float64
	WarpMode       core.WarpMode
}

// ThrusterAdd is a parsed :THRUSTER:ADD: line.
type ThrusterAdd struct {
	PartID   string
	Thruster core.ThrusterSpec
}

// SessionStart is a parsed :SESSION:START: line.
type SessionStart struct {
	Name         string
	TickDuration float64 // 0 keeps the configured duration
}
