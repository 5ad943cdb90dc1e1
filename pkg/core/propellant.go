// pkg/core/propellant.go
package core

import "strings"

// FlowMode controls which tanks a propellant request may draw from.
type FlowMode uint8

const (
	FlowAllVessel FlowMode = iota
	FlowNoFlow
	FlowStagePriority
)

// ParseFlowMode accepts the config spellings; unknown values fall back to FlowAllVessel.
func ParseFlowMode(s string) FlowMode {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "NO_FLOW":
		return FlowNoFlow
	case "STAGE_PRIORITY_FLOW", "STACK_PRIORITY_SEARCH":
		return FlowStagePriority
	default:
		return FlowAllVessel
	}
}

func (m FlowMode) String() string {
	switch m {
	case FlowNoFlow:
		return "NO_FLOW"
	case FlowStagePriority:
		return "STAGE_PRIORITY_FLOW"
	default:
		return "ALL_VESSEL"
	}
}

// Propellant is one entry of a thruster block's propellant mixture.
type Propellant struct {
	Name     string
	Ratio    float64
	FlowMode FlowMode
}
