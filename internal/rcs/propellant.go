package rcs

import (
	"strings"

	"github.com/rcsfx/extension/pkg/core"
)

// G is the standard gravity used to convert specific impulse to exhaust velocity.
const G = 9.80665

// Propellant is the propellant accounting collaborator. Request consumes up to
// mass of the mixture and returns the granted fraction in [0, 1].
type Propellant interface {
	Request(props []core.Propellant, mass float64) float64
}

// PerformanceCurve maps ambient pressure (0 vacuum, 1 sea level) to specific impulse.
type PerformanceCurve interface {
	Evaluate(pressure float64) float64
}

// Unlimited grants every request in full.
type Unlimited struct{}

func (Unlimited) Request([]core.Propellant, float64) float64 { return 1 }

// RequiredMass is the propellant mass consumed producing thrust for dt seconds at isp.
func RequiredMass(thrust, isp, dt float64) float64 {
	if isp <= 0 {
		return 0
	}
	return thrust / (isp * G) * dt
}

// DefaultPropellants returns props unchanged, or a single ratio 1.0 entry for
// the legacy resourceName when props is empty.
func DefaultPropellants(props []core.Propellant, resourceName string) []core.Propellant {
	if len(props) > 0 {
		return props
	}
	resourceName = strings.TrimSpace(resourceName)
	if resourceName == "" {
		return nil
	}
	return []core.Propellant{{Name: resourceName, Ratio: 1}}
}
