package entities

import "strings"

type Capability string

const (
	CapabilityCreateProposal Capability = "proposal:create"
	CapabilityManageProposal Capability = "proposal:manage"
	CapabilityCastVote       Capability = "vote:cast"
)

// Actor is the already-authenticated caller. Capabilities are resolved by the
// external authorization layer for the organization being acted on; the core
// only checks membership of the set.
type Actor struct {
	UserID       string
	Capabilities []Capability
}

func (a Actor) Can(capability Capability) bool {
	for _, item := range a.Capabilities {
		if item == capability {
			return true
		}
	}
	return false
}

func (a Actor) Identified() bool {
	return strings.TrimSpace(a.UserID) != ""
}

func ParseCapabilities(values []string) []Capability {
	items := make([]Capability, 0, len(values))
	for _, value := range values {
		value = strings.ToLower(strings.TrimSpace(value))
		switch Capability(value) {
		case CapabilityCreateProposal, CapabilityManageProposal, CapabilityCastVote:
			items = append(items, Capability(value))
		}
	}
	return items
}
