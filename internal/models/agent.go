package models

import (
	"fmt"
	"time"
)

// AgentStatus is the closed set of states an agent can report
type AgentStatus string

const (
	AgentStatusIdle     AgentStatus = "idle"
	AgentStatusThinking AgentStatus = "thinking"
	AgentStatusWorking  AgentStatus = "working"
	AgentStatusWaiting  AgentStatus = "waiting"
	AgentStatusError    AgentStatus = "error"
	AgentStatusOffline  AgentStatus = "offline"
)

// AllStatuses lists every valid AgentStatus in display order
var AllStatuses = []AgentStatus{
	AgentStatusIdle,
	AgentStatusThinking,
	AgentStatusWorking,
	AgentStatusWaiting,
	AgentStatusError,
	AgentStatusOffline,
}

// Valid reports whether s is one of the known statuses
func (s AgentStatus) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// ParseStatus converts a wire string into an AgentStatus
func ParseStatus(raw string) (AgentStatus, error) {
	s := AgentStatus(raw)
	if !s.Valid() {
		return "", fmt.Errorf("unknown agent status %q", raw)
	}
	return s, nil
}

// Agent is one monitored actor on the map.
// Name, Role and Department are fixed at registration.
type Agent struct {
	ID         string      `json:"id"`
	Name       string      `json:"name"`
	Role       string      `json:"role"`
	Department string      `json:"department"`
	Position   Vec2        `json:"position"`
	Status     AgentStatus `json:"status"`
	Activity   string      `json:"activity,omitempty"`
	LastActive time.Time   `json:"last_active"`
}

// HasActivity reports whether the agent currently has activity text
func (a *Agent) HasActivity() bool {
	return a.Activity != ""
}
