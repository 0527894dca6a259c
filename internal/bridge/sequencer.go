package bridge

import (
	"fmt"

	"github.com/gabe/mobwatch/internal/protocol"
)

// Violation describes an event that arrived out of order
type Violation struct {
	Event  protocol.Event
	Reason string
}

func (v Violation) String() string {
	return fmt.Sprintf("%s from %s: %s", v.Event.Type, v.Event.AgentID, v.Reason)
}

// Sequencer tracks open tool calls per agent and flags completions that
// were never started. In strict mode flagged events are dropped; otherwise
// they pass through and are only counted.
type Sequencer struct {
	strict     bool
	open       map[string]map[string]int // agent -> tool -> open calls
	violations int
	onViolate  func(Violation)
}

// NewSequencer creates a sequencer. onViolate may be nil.
func NewSequencer(strict bool, onViolate func(Violation)) *Sequencer {
	return &Sequencer{
		strict:    strict,
		open:      make(map[string]map[string]int),
		onViolate: onViolate,
	}
}

// Admit records ev and reports whether it should be folded
func (s *Sequencer) Admit(ev protocol.Event) bool {
	switch ev.Type {
	case protocol.TypeToolStart:
		tools := s.open[ev.AgentID]
		if tools == nil {
			tools = make(map[string]int)
			s.open[ev.AgentID] = tools
		}
		tools[ev.ToolName]++

	case protocol.TypeToolComplete:
		tools := s.open[ev.AgentID]
		if tools[ev.ToolName] == 0 {
			return s.violate(ev, fmt.Sprintf("%s completed without a start", ev.ToolName))
		}
		tools[ev.ToolName]--
		if tools[ev.ToolName] == 0 {
			delete(tools, ev.ToolName)
		}

	case protocol.TypeAgentStop:
		delete(s.open, ev.AgentID)
	}
	return true
}

func (s *Sequencer) violate(ev protocol.Event, reason string) bool {
	s.violations++
	if s.onViolate != nil {
		s.onViolate(Violation{Event: ev, Reason: reason})
	}
	return !s.strict
}

// Open returns the number of unfinished tool calls for an agent
func (s *Sequencer) Open(agentID string) int {
	n := 0
	for _, c := range s.open[agentID] {
		n += c
	}
	return n
}

// Violations returns how many out-of-order events have been seen
func (s *Sequencer) Violations() int {
	return s.violations
}

// Strict reports whether violations are dropped
func (s *Sequencer) Strict() bool {
	return s.strict
}
