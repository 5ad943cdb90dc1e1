// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"encoding/json"

	"github.com/go-gl/mathgl/mgl64"
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/rcsfx/extension/internal/model"
	"github.com/rcsfx/extension/pkg/core"
	"gorm.io/datatypes"
)

// vecToPoint stores a vector as an XYZ point.
func vecToPoint(v mgl64.Vec3) geom.Point {
	return geom.NewPoint(geom.Coordinates{
		XY:   geom.XY{X: v[0], Y: v[1]},
		Z:    v[2],
		Type: geom.DimXYZ,
	})
}

// samplesToJSON converts per-thruster samples to datatypes.JSON for DB storage.
func samplesToJSON(samples []core.ThrusterSample) datatypes.JSON {
	if len(samples) == 0 {
		return datatypes.JSON("[]")
	}
	data, _ := json.Marshal(samples)
	return datatypes.JSON(data)
}

// CoreToSession converts a core.Session to a GORM model.Session.
func CoreToSession(s core.Session) model.Session {
	return model.Session{
		ID:               s.ID,
		Name:             s.Name,
		PartName:         s.PartName,
		StartTime:        s.StartTime,
		TickDuration:     s.TickDuration,
		ThrusterCount:    s.ThrusterCount,
		ExtensionVersion: s.ExtensionVersion,
	}
}

// CoreToTickRecord converts a core.TickRecord to a GORM model.TickRecord.
func CoreToTickRecord(r core.TickRecord) model.TickRecord {
	return model.TickRecord{
		Time:           r.Time,
		SessionID:      r.SessionID,
		Tick:           r.Tick,
		PartID:         r.PartID,
		CenterOfMass:   vecToPoint(r.CenterOfMass),
		DemandLinear:   vecToPoint(r.Demand.Linear),
		DemandAngular:  vecToPoint(r.Demand.Angular),
		Precision:      r.Demand.Precision,
		Suppressed:     r.Suppressed,
		Success:        r.Success,
		EffectPower:    r.EffectPower,
		TotalThrust:    r.TotalThrust,
		PropellantMass: r.PropellantMass,
		Thrusters:      samplesToJSON(r.Thrusters),
	}
}

// CoreToEffectEvent converts a core.EffectEvent to a GORM model.EffectEvent.
func CoreToEffectEvent(e core.EffectEvent) model.EffectEvent {
	return model.EffectEvent{
		Time:      e.Time,
		SessionID: e.SessionID,
		Tick:      e.Tick,
		PartID:    e.PartID,
		Channel:   e.Channel,
		Kind:      e.Kind,
	}
}
