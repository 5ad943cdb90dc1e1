package part

import (
	"fmt"
	"strings"

	"github.com/rcsfx/extension/internal/rcs"
	"github.com/rcsfx/extension/internal/resource"
)

// PropellantInfo describes one propellant at full power in vacuum.
type PropellantInfo struct {
	Name        string  `json:"name"`
	Ratio       float64 `json:"ratio"`
	FlowMode    string  `json:"flowMode"`
	MaxFuelFlow float64 `json:"maxFuelFlow"` // units per second
}

// Info is the part summary shown to players.
type Info struct {
	Name        string           `json:"name"`
	Thrusters   int              `json:"thrusters"`
	Power       float64          `json:"power"`
	VacuumISP   float64          `json:"vacuumIsp"`
	SeaLevelISP float64          `json:"seaLevelIsp"`
	Propellants []PropellantInfo `json:"propellants"`
}

// Info reports thrust, ISP and per-propellant max fuel flow. Propellants the
// library cannot resolve are left out.
func (p *Part) Info(lib *resource.Library) Info {
	cfg := p.spec.Allocator
	info := Info{
		Name:      p.spec.Name,
		Thrusters: len(p.spec.Thrusters),
		Power:     cfg.Power,
	}
	if cfg.Curve != nil {
		info.VacuumISP = cfg.Curve.Evaluate(0)
		info.SeaLevelISP = cfg.Curve.Evaluate(1)
	}
	if lib == nil {
		lib = resource.DefaultLibrary()
	}
	for _, prop := range cfg.Propellants {
		flow, ok := lib.MaxFuelFlow(prop, cfg.Propellants, cfg.Power, info.VacuumISP, rcs.G)
		if !ok {
			continue
		}
		info.Propellants = append(info.Propellants, PropellantInfo{
			Name:        prop.Name,
			Ratio:       prop.Ratio,
			FlowMode:    prop.FlowMode.String(),
			MaxFuelFlow: flow,
		})
	}
	return info
}

func (i Info) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %d thrusters\n", i.Name, i.Thrusters)
	fmt.Fprintf(&b, "Thruster Power: %.2f kN\n", i.Power)
	fmt.Fprintf(&b, "Isp: %.0f s (vac) - %.0f s (ASL)\n", i.VacuumISP, i.SeaLevelISP)
	for _, p := range i.Propellants {
		fmt.Fprintf(&b, "- %s: %.4f/s max (%s)\n", p.Name, p.MaxFuelFlow, p.FlowMode)
	}
	return b.String()
}
