// Package domain contains the core types of the triage pipeline:
// agent identities, retrieved passages, answer results, and quality scores.
// The package has no dependencies outside the standard library so it can be
// shared freely across the application and infrastructure layers.
package domain

import (
	"fmt"
	"strings"
)

// AgentType identifies one of the domain-specialized agents.
type AgentType string

// The supported agent domains. Each maps to exactly one registered agent
// per process run.
const (
	AgentHR      AgentType = "hr"
	AgentTech    AgentType = "tech"
	AgentFinance AgentType = "finance"
)

// AllAgentTypes returns the supported domains in registration order.
// The order is stable so capability lists and prompts are deterministic.
func AllAgentTypes() []AgentType {
	return []AgentType{AgentHR, AgentTech, AgentFinance}
}

// ParseAgentType converts a configuration string into an AgentType.
// Matching is case-insensitive. Returns ErrUnknownAgentType for anything
// outside the supported set.
func ParseAgentType(s string) (AgentType, error) {
	switch AgentType(strings.ToLower(strings.TrimSpace(s))) {
	case AgentHR:
		return AgentHR, nil
	case AgentTech:
		return AgentTech, nil
	case AgentFinance:
		return AgentFinance, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAgentType, s)
	}
}

// Valid reports whether the AgentType is one of the supported domains.
func (t AgentType) Valid() bool {
	switch t {
	case AgentHR, AgentTech, AgentFinance:
		return true
	default:
		return false
	}
}

// DisplayName returns the human-readable domain name used in prompts
// and log output.
func (t AgentType) DisplayName() string {
	switch t {
	case AgentHR:
		return "HR"
	case AgentTech:
		return "Tech"
	case AgentFinance:
		return "Finance"
	default:
		return string(t)
	}
}

// ToolName returns the capability name under which the agent is exposed
// to the routing model, e.g. "HRAgent".
func (t AgentType) ToolName() string {
	return t.DisplayName() + "Agent"
}

// String implements fmt.Stringer.
func (t AgentType) String() string { return string(t) }
