package convert

import (
	"encoding/json"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/rcsfx/extension/internal/model"
	"github.com/rcsfx/extension/pkg/core"
)

// pointToVec reads an XYZ point back; an empty point is the zero vector.
func pointToVec(p geom.Point) mgl64.Vec3 {
	c, ok := p.Coordinates()
	if !ok {
		return mgl64.Vec3{}
	}
	return mgl64.Vec3{c.XY.X, c.XY.Y, c.Z}
}

// SessionToCore converts a GORM model.Session to a core.Session.
func SessionToCore(s model.Session) core.Session {
	return core.Session{
		ID:               s.ID,
		Name:             s.Name,
		PartName:         s.PartName,
		StartTime:        s.StartTime,
		TickDuration:     s.TickDuration,
		ThrusterCount:    s.ThrusterCount,
		ExtensionVersion: s.ExtensionVersion,
	}
}

// TickRecordToCore converts a GORM model.TickRecord to a core.TickRecord.
func TickRecordToCore(r model.TickRecord) (core.TickRecord, error) {
	rec := core.TickRecord{
		SessionID:    r.SessionID,
		Tick:         r.Tick,
		Time:         r.Time,
		PartID:       r.PartID,
		CenterOfMass: pointToVec(r.CenterOfMass),
		Demand: core.ControlDemand{
			Linear:    pointToVec(r.DemandLinear),
			Angular:   pointToVec(r.DemandAngular),
			Precision: r.Precision,
		},
		Suppressed:     r.Suppressed,
		Success:        r.Success,
		EffectPower:    r.EffectPower,
		TotalThrust:    r.TotalThrust,
		PropellantMass: r.PropellantMass,
	}
	if len(r.Thrusters) > 0 {
		if err := json.Unmarshal(r.Thrusters, &rec.Thrusters); err != nil {
			return rec, fmt.Errorf("decoding thruster samples of tick %d: %w", r.Tick, err)
		}
	}
	return rec, nil
}

// EffectEventToCore converts a GORM model.EffectEvent to a core.EffectEvent.
func EffectEventToCore(e model.EffectEvent) core.EffectEvent {
	return core.EffectEvent{
		SessionID: e.SessionID,
		Tick:      e.Tick,
		Time:      e.Time,
		PartID:    e.PartID,
		Channel:   e.Channel,
		Kind:      e.Kind,
	}
}
