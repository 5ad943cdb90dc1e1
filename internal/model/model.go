package model

import (
	"database/sql"
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels lists every table in migration order.
var DatabaseModels = []any{
	&Info{},
	&Session{},
	&TickRecord{},
	&EffectEvent{},
}

// Info identifies the recorder instance that wrote a database.
type Info struct {
	ID               uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	CreatedAt        time.Time `json:"createdAt"`
	ExtensionVersion string    `json:"extensionVersion" gorm:"size:64"`
	SchemaVersion    uint      `json:"schemaVersion"`
}

func (*Info) TableName() string {
	return "rcsfx_infos"
}

// Session is one recorded run of a thruster block.
//
// Host Command: :SESSION:START:
// Args: [name, tickDuration]
type Session struct {
	ID               uint         `json:"id" gorm:"primarykey;autoIncrement;"`
	CreatedAt        time.Time    `json:"createdAt"`
	Name             string       `json:"name" gorm:"size:128"`
	PartName         string       `json:"partName" gorm:"size:64"`
	StartTime        time.Time    `json:"startTime" gorm:"NOT NULL;"`
	EndTime          sql.NullTime `json:"endTime"`
	TickDuration     float64      `json:"tickDuration"`     // seconds per physics step
	ThrusterCount    int          `json:"thrusterCount"`    // thrusters on the recorded part
	ExtensionVersion string       `json:"extensionVersion" gorm:"size:64"`
}

func (*Session) TableName() string {
	return "sessions"
}

// TickRecord is one physics step of one part.
//
// Host Command: :TICK:
type TickRecord struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time      time.Time `json:"time"`
	SessionID uint      `json:"sessionId" gorm:"index:idx_tick_session_id"`
	Tick      uint      `json:"tick" gorm:"index:idx_tick_tick"`
	PartID    string    `json:"partId" gorm:"size:64;index:idx_tick_part_id"`

	CenterOfMass   geom.Point     `json:"centerOfMass" gorm:"type:bytes"`   // XYZ point
	DemandLinear   geom.Point     `json:"demandLinear" gorm:"type:bytes"`   // XYZ point
	DemandAngular  geom.Point     `json:"demandAngular" gorm:"type:bytes"`  // XYZ point
	Precision      bool           `json:"precision" gorm:"default:false"`   // fine control mode
	Suppressed     bool           `json:"suppressed" gorm:"default:false"`  // gated by warp or switches
	Success        bool           `json:"success" gorm:"default:false"`     // at least one thruster fired
	EffectPower    float64        `json:"effectPower"`                      // max per-thruster intensity
	TotalThrust    float64        `json:"totalThrust"`                      // sum of thrust magnitudes
	PropellantMass float64        `json:"propellantMass"`                   // mass consumed this tick
	Thrusters      datatypes.JSON `json:"thrusters"`                        // []core.ThrusterSample
}

func (*TickRecord) TableName() string {
	return "tick_records"
}

// EffectEvent is a one-shot effect trigger.
type EffectEvent struct {
	ID        uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	Time      time.Time `json:"time"`
	SessionID uint      `json:"sessionId" gorm:"index:idx_effect_session_id"`
	Tick      uint      `json:"tick"`
	PartID    string    `json:"partId" gorm:"size:64"`
	Channel   string    `json:"channel" gorm:"size:64"`
	Kind      string    `json:"kind" gorm:"size:16"` // engage, flameout
}

func (*EffectEvent) TableName() string {
	return "effect_events"
}
