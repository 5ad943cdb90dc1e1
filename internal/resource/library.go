// Package resource implements the propellant accounting collaborator: a
// library of resource definitions and a pool of tanks that thrusters draw on.
package resource

import (
	"sync"

	"github.com/rcsfx/extension/pkg/core"
)

// Definition describes a resource. Density is mass per unit.
type Definition struct {
	Name    string  `json:"name" mapstructure:"name"`
	Density float64 `json:"density" mapstructure:"density"`
}

// Library resolves resource names to definitions.
type Library struct {
	mu   sync.RWMutex
	defs map[string]Definition
}

// NewLibrary creates a library holding defs.
func NewLibrary(defs ...Definition) *Library {
	l := &Library{defs: make(map[string]Definition, len(defs))}
	for _, d := range defs {
		l.defs[d.Name] = d
	}
	return l
}

// DefaultLibrary returns the stock resource set.
func DefaultLibrary() *Library {
	return NewLibrary(
		Definition{Name: "MonoPropellant", Density: 0.004},
		Definition{Name: "LiquidFuel", Density: 0.005},
		Definition{Name: "Oxidizer", Density: 0.005},
		Definition{Name: "XenonGas", Density: 0.0001},
		Definition{Name: "IntakeAir", Density: 0.005},
	)
}

// Add registers or replaces a definition.
func (l *Library) Add(d Definition) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.defs[d.Name] = d
}

// Get looks up a definition by name.
func (l *Library) Get(name string) (Definition, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	d, ok := l.defs[name]
	return d, ok
}

// Len returns the number of definitions.
func (l *Library) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.defs)
}

// MixtureDensity returns the mass of one mixture unit, where a unit holds
// Ratio units of every propellant. It fails when any propellant is unresolved.
func (l *Library) MixtureDensity(props []core.Propellant) (float64, bool) {
	var density float64
	for _, prop := range props {
		if prop.Ratio <= 0 {
			continue
		}
		def, ok := l.Get(prop.Name)
		if !ok {
			return 0, false
		}
		density += prop.Ratio * def.Density
	}
	return density, density > 0
}

// MaxFuelFlow returns the units per second of prop consumed at full power
// for the mixture props. ok is false when prop or the mixture is unresolved.
func (l *Library) MaxFuelFlow(prop core.Propellant, props []core.Propellant, power, isp, g float64) (flow float64, ok bool) {
	if _, found := l.Get(prop.Name); !found {
		return 0, false
	}
	density, ok := l.MixtureDensity(props)
	if !ok || isp <= 0 {
		return 0, false
	}
	return prop.Ratio / density * power / (isp * g), true
}
