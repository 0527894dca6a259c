package models

import "time"

// ActivityKind mirrors the inbound event type that produced a record
type ActivityKind string

const (
	ActivityKindAgentState   ActivityKind = "agent_state"
	ActivityKindToolStart    ActivityKind = "tool_start"
	ActivityKindToolComplete ActivityKind = "tool_complete"
	ActivityKindTaskAssigned ActivityKind = "task_assigned"
	ActivityKindAgentStop    ActivityKind = "agent_stop"
	ActivityKindCommand      ActivityKind = "command"
)

// ActivityRecord is one entry of the bounded activity log
type ActivityRecord struct {
	ID          string       `json:"id"`
	Timestamp   time.Time    `json:"timestamp"`
	AgentID     string       `json:"agent_id"`
	Kind        ActivityKind `json:"kind"`
	Description string       `json:"description"`
	ToolName    string       `json:"tool_name,omitempty"`
	Success     *bool        `json:"success,omitempty"`
}

// Succeeded returns the success flag, treating an absent flag as false
func (r ActivityRecord) Succeeded() bool {
	return r.Success != nil && *r.Success
}

// BoolPtr is a helper for optional success flags
func BoolPtr(b bool) *bool {
	return &b
}
