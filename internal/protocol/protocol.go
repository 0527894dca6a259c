// Package protocol defines the wire format shared by event sources and
// command transports.
package protocol

import (
	"time"

	"github.com/google/uuid"
)

// Inbound event types.
const (
	TypeAgentState   = "agent_state"
	TypeToolStart    = "tool_start"
	TypeToolComplete = "tool_complete"
	TypeTaskAssigned = "task_assigned"
	TypeAgentStop    = "agent_stop"
)

// TypeCommand is the only outbound message type.
const TypeCommand = "command"

// EventTypes lists every inbound type in a stable order
var EventTypes = []string{
	TypeAgentState,
	TypeToolStart,
	TypeToolComplete,
	TypeTaskAssigned,
	TypeAgentStop,
}

// Task priorities.
const (
	PriorityLow    = "low"
	PriorityNormal = "normal"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Event is one inbound message. Which optional fields are set depends on Type.
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	AgentID   string    `json:"agentId"`

	// agent_state
	Status   string `json:"status,omitempty"`
	Activity string `json:"activity,omitempty"`

	// tool_start, tool_complete
	ToolName    string `json:"toolName,omitempty"`
	Description string `json:"description,omitempty"`
	Success     *bool  `json:"success,omitempty"`
	Duration    int64  `json:"duration,omitempty"` // milliseconds

	// tool_complete, agent_stop
	Summary string `json:"summary,omitempty"`

	// task_assigned
	TaskDescription string `json:"taskDescription,omitempty"`
	Priority        string `json:"priority,omitempty"`
}

// DurationTime returns the reported tool duration
func (e Event) DurationTime() time.Duration {
	return time.Duration(e.Duration) * time.Millisecond
}

// Batch is the result of one poll. Cursor is the position after the last
// event; the next poll asks for events since it.
type Batch struct {
	Cursor uint64  `json:"cursor"`
	Events []Event `json:"events"`

	// Skipped counts entries dropped as malformed during decoding
	Skipped int `json:"-"`
}

// Command is an outbound instruction for one agent
type Command struct {
	Type        string    `json:"type"`
	ID          string    `json:"id,omitempty"`
	Timestamp   time.Time `json:"timestamp"`
	TargetAgent string    `json:"targetAgent"`
	Command     string    `json:"command"`
	Args        []string  `json:"args,omitempty"`
}

// NewCommand builds a command with a fresh correlation id
func NewCommand(target, command string, args []string, now time.Time) Command {
	return Command{
		Type:        TypeCommand,
		ID:          uuid.NewString(),
		Timestamp:   now.UTC(),
		TargetAgent: target,
		Command:     command,
		Args:        args,
	}
}

func AgentState(agentID, status, activity string, at time.Time) Event {
	return Event{Type: TypeAgentState, Timestamp: at.UTC(), AgentID: agentID, Status: status, Activity: activity}
}

func ToolStart(agentID, tool, description string, at time.Time) Event {
	return Event{Type: TypeToolStart, Timestamp: at.UTC(), AgentID: agentID, ToolName: tool, Description: description}
}

func ToolComplete(agentID, tool string, success bool, summary string, took time.Duration, at time.Time) Event {
	return Event{
		Type:      TypeToolComplete,
		Timestamp: at.UTC(),
		AgentID:   agentID,
		ToolName:  tool,
		Success:   &success,
		Summary:   summary,
		Duration:  took.Milliseconds(),
	}
}

func TaskAssigned(agentID, task, priority string, at time.Time) Event {
	return Event{Type: TypeTaskAssigned, Timestamp: at.UTC(), AgentID: agentID, TaskDescription: task, Priority: priority}
}

func AgentStop(agentID, summary string, at time.Time) Event {
	return Event{Type: TypeAgentStop, Timestamp: at.UTC(), AgentID: agentID, Summary: summary}
}
