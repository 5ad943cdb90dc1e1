package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// PropellantConfig is one propellant entry of a part block.
type PropellantConfig struct {
	Name     string  `json:"name" mapstructure:"name"`
	Ratio    float64 `json:"ratio" mapstructure:"ratio"`
	FlowMode string  `json:"flowMode" mapstructure:"flowMode"`
}

// ThrusterConfig is the mounting transform of one nozzle.
type ThrusterConfig struct {
	Position    []float64 `json:"position" mapstructure:"position"`
	Forward     []float64 `json:"forward" mapstructure:"forward"`
	Up          []float64 `json:"up" mapstructure:"up"`
	EffectIndex int       `json:"effectIndex" mapstructure:"effectIndex"`
}

// ResourceConfig is an extra resource definition for the library.
type ResourceConfig struct {
	Name    string  `json:"name" mapstructure:"name"`
	Density float64 `json:"density" mapstructure:"density"`
}

// PartConfig is the configuration block of one thruster part.
type PartConfig struct {
	Name          string  `json:"name" mapstructure:"name"`
	UseZAxis      bool    `json:"useZaxis" mapstructure:"useZaxis"`
	EnableX       bool    `json:"enableX" mapstructure:"enableX"`
	EnableY       bool    `json:"enableY" mapstructure:"enableY"`
	EnableZ       bool    `json:"enableZ" mapstructure:"enableZ"`
	EnablePitch   bool    `json:"enablePitch" mapstructure:"enablePitch"`
	EnableRoll    bool    `json:"enableRoll" mapstructure:"enableRoll"`
	EnableYaw     bool    `json:"enableYaw" mapstructure:"enableYaw"`
	UseThrottle   bool    `json:"useThrottle" mapstructure:"useThrottle"`
	CorrectThrust bool    `json:"correctThrust" mapstructure:"correctThrust"`
	FullThrust    bool    `json:"fullThrust" mapstructure:"fullThrust"`
	JustForShow   bool    `json:"justForShow" mapstructure:"justForShow"`
	Epsilon       float64 `json:"epsilon" mapstructure:"epsilon"`
	CoMPolicy     string  `json:"comPolicy" mapstructure:"comPolicy"`
	ThrusterPower float64 `json:"thrusterPower" mapstructure:"thrusterPower"`

	// ResourceName is the legacy single-propellant field, used when
	// Propellants is empty.
	ResourceName    string             `json:"resourceName" mapstructure:"resourceName"`
	Propellants     []PropellantConfig `json:"propellants" mapstructure:"propellants"`
	AtmosphereCurve []string           `json:"atmosphereCurve" mapstructure:"atmosphereCurve"`

	RunningEffectName  string `json:"runningEffectName" mapstructure:"runningEffectName"`
	EngageEffectName   string `json:"engageEffectName" mapstructure:"engageEffectName"`
	FlameoutEffectName string `json:"flameoutEffectName" mapstructure:"flameoutEffectName"`

	Thrusters []ThrusterConfig `json:"thrusters" mapstructure:"thrusters"`
}

func setPartDefaults() {
	viper.SetDefault("part.name", "RCSBlock")
	viper.SetDefault("part.useZaxis", false)
	viper.SetDefault("part.enableX", true)
	viper.SetDefault("part.enableY", true)
	viper.SetDefault("part.enableZ", true)
	viper.SetDefault("part.enablePitch", true)
	viper.SetDefault("part.enableRoll", true)
	viper.SetDefault("part.enableYaw", true)
	viper.SetDefault("part.useThrottle", false)
	viper.SetDefault("part.correctThrust", false)
	viper.SetDefault("part.fullThrust", false)
	viper.SetDefault("part.justForShow", false)
	viper.SetDefault("part.epsilon", 0.05)
	viper.SetDefault("part.comPolicy", "instantaneous")
	viper.SetDefault("part.thrusterPower", 1.0)
	viper.SetDefault("part.resourceName", "MonoPropellant")
	viper.SetDefault("part.atmosphereCurve", []string{"0 240", "1 100", "4 0.001"})
	viper.SetDefault("part.runningEffectName", "running")
	viper.SetDefault("part.engageEffectName", "engage")
	viper.SetDefault("part.flameoutEffectName", "flameout")

	// four nozzles around the long axis, each able to roll the block
	viper.SetDefault("part.thrusters", []map[string]any{
		{"position": []float64{1, 0, 0}, "up": []float64{0, 0, 1}, "forward": []float64{0, 1, 0}, "effectIndex": 0},
		{"position": []float64{0, 0, 1}, "up": []float64{-1, 0, 0}, "forward": []float64{0, 1, 0}, "effectIndex": 1},
		{"position": []float64{-1, 0, 0}, "up": []float64{0, 0, -1}, "forward": []float64{0, 1, 0}, "effectIndex": 2},
		{"position": []float64{0, 0, -1}, "up": []float64{1, 0, 0}, "forward": []float64{0, 1, 0}, "effectIndex": 3},
	})
}

// GetPartConfig returns the part block. Propellants and thrusters are decoded
// from their lists; an absent list stays empty.
func GetPartConfig() (PartConfig, error) {
	pc := PartConfig{
		Name:               viper.GetString("part.name"),
		UseZAxis:           viper.GetBool("part.useZaxis"),
		EnableX:            viper.GetBool("part.enableX"),
		EnableY:            viper.GetBool("part.enableY"),
		EnableZ:            viper.GetBool("part.enableZ"),
		EnablePitch:        viper.GetBool("part.enablePitch"),
		EnableRoll:         viper.GetBool("part.enableRoll"),
		EnableYaw:          viper.GetBool("part.enableYaw"),
		UseThrottle:        viper.GetBool("part.useThrottle"),
		CorrectThrust:      viper.GetBool("part.correctThrust"),
		FullThrust:         viper.GetBool("part.fullThrust"),
		JustForShow:        viper.GetBool("part.justForShow"),
		Epsilon:            viper.GetFloat64("part.epsilon"),
		CoMPolicy:          viper.GetString("part.comPolicy"),
		ThrusterPower:      viper.GetFloat64("part.thrusterPower"),
		ResourceName:       viper.GetString("part.resourceName"),
		AtmosphereCurve:    viper.GetStringSlice("part.atmosphereCurve"),
		RunningEffectName:  viper.GetString("part.runningEffectName"),
		EngageEffectName:   viper.GetString("part.engageEffectName"),
		FlameoutEffectName: viper.GetString("part.flameoutEffectName"),
	}

	if err := viper.UnmarshalKey("part.propellants", &pc.Propellants); err != nil {
		return pc, fmt.Errorf("decode part.propellants: %w", err)
	}
	if err := viper.UnmarshalKey("part.thrusters", &pc.Thrusters); err != nil {
		return pc, fmt.Errorf("decode part.thrusters: %w", err)
	}
	return pc, nil
}

// GetResources returns extra resource definitions from the "resources" list.
func GetResources() ([]ResourceConfig, error) {
	var out []ResourceConfig
	if err := viper.UnmarshalKey("resources", &out); err != nil {
		return nil, fmt.Errorf("decode resources: %w", err)
	}
	return out, nil
}
