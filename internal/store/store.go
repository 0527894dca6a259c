// Package store is the authoritative record of agent state and recent activity.
//
// A Store is owned by one goroutine (the engine loop). It performs no locking
// and hands out copies, so readers on other goroutines must go through a
// published snapshot instead of calling it directly.
package store

import (
	"errors"
	"fmt"
	"time"

	"github.com/gabe/mobwatch/internal/models"
)

// DefaultActivityCapacity bounds the activity log
const DefaultActivityCapacity = 50

var (
	// ErrUnknownAgent is returned for ids that were never registered
	ErrUnknownAgent = errors.New("agent not found in store")
	// ErrAgentExists is returned when registering an id twice
	ErrAgentExists = errors.New("agent already registered")
	// ErrInvalidStatus is returned for statuses outside the known set
	ErrInvalidStatus = errors.New("invalid agent status")
	// ErrEmptyID is returned when registering an agent without an id
	ErrEmptyID = errors.New("agent id is required")
)

// ChangeKind tells subscribers what part of the store moved
type ChangeKind string

const (
	ChangeAgentAdded ChangeKind = "agent_added"
	ChangeStatus     ChangeKind = "status"
	ChangePosition   ChangeKind = "position"
	ChangeSelection  ChangeKind = "selection"
	ChangeActivity   ChangeKind = "activity"
)

// Change describes one mutation
type Change struct {
	Kind    ChangeKind
	AgentID string
}

// Store holds agents, the current selection and the activity log
type Store struct {
	agents   map[string]*models.Agent
	order    []string
	selected string

	activity     []models.ActivityRecord
	capacity     int
	nextActivity uint64

	now       func() time.Time
	listeners []func(Change)
}

// Option configures a Store
type Option func(*Store)

// WithCapacity sets the activity log bound
func WithCapacity(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.capacity = n
		}
	}
}

// WithClock replaces time.Now, mainly for tests
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates an empty store
func New(opts ...Option) *Store {
	s := &Store{
		agents:   make(map[string]*models.Agent),
		capacity: DefaultActivityCapacity,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers fn to be called synchronously after every mutation
func (s *Store) Subscribe(fn func(Change)) {
	s.listeners = append(s.listeners, fn)
}

func (s *Store) emit(kind ChangeKind, agentID string) {
	for _, fn := range s.listeners {
		fn(Change{Kind: kind, AgentID: agentID})
	}
}

// Register adds an agent. The id, name, role and department are fixed from
// here on. An empty status defaults to idle.
func (s *Store) Register(agent models.Agent) error {
	if agent.ID == "" {
		return ErrEmptyID
	}
	if _, ok := s.agents[agent.ID]; ok {
		return ErrAgentExists
	}
	if agent.Status == "" {
		agent.Status = models.AgentStatusIdle
	}
	if !agent.Status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, agent.Status)
	}
	if agent.LastActive.IsZero() {
		agent.LastActive = s.now()
	}
	a := agent
	s.agents[agent.ID] = &a
	s.order = append(s.order, agent.ID)
	s.emit(ChangeAgentAdded, agent.ID)
	return nil
}

// Has reports whether id is registered
func (s *Store) Has(id string) bool {
	_, ok := s.agents[id]
	return ok
}

// SetStatus replaces the status, activity text and timestamp of an agent in
// one step. The timestamp is refreshed even if the status is unchanged. An
// empty activity clears the current activity.
func (s *Store) SetStatus(id string, status models.AgentStatus, activity string) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	a, ok := s.agents[id]
	if !ok {
		return ErrUnknownAgent
	}
	a.Status = status
	a.Activity = activity
	a.LastActive = s.now()
	s.emit(ChangeStatus, id)
	return nil
}

// SetPosition records where an agent currently stands
func (s *Store) SetPosition(id string, pos models.Vec2) error {
	a, ok := s.agents[id]
	if !ok {
		return ErrUnknownAgent
	}
	if a.Position == pos {
		return nil
	}
	a.Position = pos
	s.emit(ChangePosition, id)
	return nil
}

// Select focuses an agent; an empty id clears the selection. Selecting the
// current selection again is a no-op.
func (s *Store) Select(id string) error {
	if id != "" {
		if _, ok := s.agents[id]; !ok {
			return ErrUnknownAgent
		}
	}
	if id == s.selected {
		return nil
	}
	s.selected = id
	s.emit(ChangeSelection, id)
	return nil
}

// SelectedID returns the selected agent id, or "" when nothing is selected
func (s *Store) SelectedID() string {
	return s.selected
}

// Selected returns a copy of the selected agent
func (s *Store) Selected() (models.Agent, bool) {
	if s.selected == "" {
		return models.Agent{}, false
	}
	return s.Agent(s.selected)
}

// SelectNext moves the selection to the next agent in registration order,
// wrapping around, and returns the new selection.
func (s *Store) SelectNext() string {
	if len(s.order) == 0 {
		return ""
	}
	next := s.order[0]
	for i, id := range s.order {
		if id == s.selected {
			next = s.order[(i+1)%len(s.order)]
			break
		}
	}
	_ = s.Select(next)
	return next
}

// Agent returns a copy of one agent
func (s *Store) Agent(id string) (models.Agent, bool) {
	a, ok := s.agents[id]
	if !ok {
		return models.Agent{}, false
	}
	return *a, true
}

// Agents returns copies of all agents in registration order
func (s *Store) Agents() []models.Agent {
	out := make([]models.Agent, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *s.agents[id])
	}
	return out
}

// Len returns the number of registered agents
func (s *Store) Len() int {
	return len(s.order)
}

// AppendActivity assigns an id (and a timestamp when missing), places the
// record at the head of the log and drops the oldest entries beyond capacity.
func (s *Store) AppendActivity(rec models.ActivityRecord) models.ActivityRecord {
	s.nextActivity++
	rec.ID = fmt.Sprintf("act-%d", s.nextActivity)
	if rec.Timestamp.IsZero() {
		rec.Timestamp = s.now()
	}

	s.activity = append(s.activity, models.ActivityRecord{})
	copy(s.activity[1:], s.activity)
	s.activity[0] = rec
	if len(s.activity) > s.capacity {
		s.activity = s.activity[:s.capacity]
	}

	s.emit(ChangeActivity, rec.AgentID)
	return rec
}

// Activity returns the log, newest first
func (s *Store) Activity() []models.ActivityRecord {
	out := make([]models.ActivityRecord, len(s.activity))
	copy(out, s.activity)
	return out
}

// ActivityFor returns the log entries for one agent, newest first
func (s *Store) ActivityFor(agentID string) []models.ActivityRecord {
	var out []models.ActivityRecord
	for _, rec := range s.activity {
		if rec.AgentID == agentID {
			out = append(out, rec)
		}
	}
	return out
}

// Capacity returns the activity log bound
func (s *Store) Capacity() int {
	return s.capacity
}
