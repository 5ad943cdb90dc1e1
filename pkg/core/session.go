// pkg/core/session.go
package core

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// Session is one recorded run of a thruster block.
type Session struct {
	ID               uint
	Name             string
	PartName         string
	StartTime        time.Time
	TickDuration     float64
	ThrusterCount    int
	ExtensionVersion string
}

// ThrusterSample is the recorded outcome of a single thruster in a tick.
type ThrusterSample struct {
	Index          int     `json:"index"`
	Thrust         float64 `json:"thrust"`
	Intensity      float64 `json:"intensity"`
	Status         string  `json:"status"`
	PropellantMass float64 `json:"propellantMass"`
}

// TickRecord summarizes one physics tick of a part.
type TickRecord struct {
	SessionID      uint
	Tick           uint
	Time           time.Time
	PartID         string
	CenterOfMass   mgl64.Vec3
	Demand         ControlDemand
	Suppressed     bool // warp or master switch gate
	Success        bool
	EffectPower    float64
	TotalThrust    float64
	PropellantMass float64
	Thrusters      []ThrusterSample
}

// EffectEvent is a one-shot effect trigger (engage, flameout).
type EffectEvent struct {
	SessionID uint
	Tick      uint
	Time      time.Time
	PartID    string
	Channel   string
	Kind      string
}

// Effect event kinds.
const (
	EffectEngage   = "engage"
	EffectFlameout = "flameout"
)
