package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// TankConfig is one propellant tank of the simulated vessel.
type TankConfig struct {
	PartID   string  `json:"partId" mapstructure:"partId"`
	Stage    int     `json:"stage" mapstructure:"stage"`
	Resource string  `json:"resource" mapstructure:"resource"`
	Amount   float64 `json:"amount" mapstructure:"amount"`
	Capacity float64 `json:"capacity" mapstructure:"capacity"`
}

// PhaseConfig is one scripted segment of a simulation scenario.
type PhaseConfig struct {
	Name         string  `json:"name" mapstructure:"name"`
	Ticks        int     `json:"ticks" mapstructure:"ticks"`
	X            float64 `json:"x" mapstructure:"x"`
	Y            float64 `json:"y" mapstructure:"y"`
	Z            float64 `json:"z" mapstructure:"z"`
	Pitch        float64 `json:"pitch" mapstructure:"pitch"`
	Roll         float64 `json:"roll" mapstructure:"roll"`
	Yaw          float64 `json:"yaw" mapstructure:"yaw"`
	MainThrottle float64 `json:"mainThrottle" mapstructure:"mainThrottle"`
	Precision    bool    `json:"precision" mapstructure:"precision"`
	RCS          bool    `json:"rcs" mapstructure:"rcs"`
	WarpRate     float64 `json:"warpRate" mapstructure:"warpRate"`
	WarpMode     string  `json:"warpMode" mapstructure:"warpMode"`
}

// SimConfig configures the standalone simulation loop.
type SimConfig struct {
	TickDuration        float64       `json:"tickDuration" mapstructure:"tickDuration"`
	StaticPressure      float64       `json:"staticPressure" mapstructure:"staticPressure"`
	Mass                float64       `json:"mass" mapstructure:"mass"`
	UnlimitedPropellant bool          `json:"unlimitedPropellant" mapstructure:"unlimitedPropellant"`
	Tanks               []TankConfig  `json:"tanks" mapstructure:"tanks"`
	Phases              []PhaseConfig `json:"phases" mapstructure:"phases"`
}

func setSimDefaults() {
	viper.SetDefault("sim.tickDuration", 0.02)
	viper.SetDefault("sim.staticPressure", 0.0)
	viper.SetDefault("sim.mass", 1.0)
	viper.SetDefault("sim.unlimitedPropellant", false)
	viper.SetDefault("sim.tanks", []map[string]any{
		{"partId": "tank", "resource": "MonoPropellant", "amount": 30.0},
	})
	viper.SetDefault("sim.phases", []map[string]any{
		{"name": "coast", "ticks": 25, "rcs": false},
		{"name": "roll", "ticks": 100, "rcs": true, "roll": -1.0},
		{"name": "translate", "ticks": 100, "rcs": true, "x": 0.5, "precision": true},
		{"name": "warp", "ticks": 25, "rcs": true, "roll": -1.0, "warpRate": 100.0, "warpMode": "high"},
	})
}

// GetSimConfig returns the simulation section.
func GetSimConfig() (SimConfig, error) {
	sc := SimConfig{
		TickDuration:        viper.GetFloat64("sim.tickDuration"),
		StaticPressure:      viper.GetFloat64("sim.staticPressure"),
		Mass:                viper.GetFloat64("sim.mass"),
		UnlimitedPropellant: viper.GetBool("sim.unlimitedPropellant"),
	}
	if err := viper.UnmarshalKey("sim.tanks", &sc.Tanks); err != nil {
		return sc, fmt.Errorf("decode sim.tanks: %w", err)
	}
	if err := viper.UnmarshalKey("sim.phases", &sc.Phases); err != nil {
		return sc, fmt.Errorf("decode sim.phases: %w", err)
	}
	return sc, nil
}
