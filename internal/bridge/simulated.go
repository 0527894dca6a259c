package bridge

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/gabe/mobwatch/internal/clock"
	"github.com/gabe/mobwatch/internal/models"
	"github.com/gabe/mobwatch/internal/protocol"
	"github.com/gabe/mobwatch/internal/roster"
)

const (
	DefaultCadence = 1500 * time.Millisecond

	// maxCatchUp bounds how many steps one poll generates after a long
	// pause; the rest of the gap is skipped.
	maxCatchUp    = 32
	maxSimBacklog = 1024
)

var (
	simTools = []string{"Read", "Edit", "Write", "Bash", "Grep", "Glob", "WebFetch"}
	simTasks = []string{
		"fix the flaky login test",
		"add pagination to the audit endpoint",
		"review the payment retry PR",
		"migrate config loading to toml",
		"write the release notes",
		"trace the memory leak in the indexer",
		"tidy up the CLI help text",
	}
	simTargets = []string{"main.go", "handler.go", "store_test.go", "README.md", "config.toml", "Makefile"}
)

type simAgent struct {
	member  roster.Member
	task    string
	tool    string // open tool call, if any
	started time.Time
	calls   int // tool calls left before the task completes
}

// SimulatedSource generates plausible agent activity for the configured
// crew. Each step at the given cadence advances one agent through a task:
// assignment, a few tool calls, then a stop. Commands are accepted and
// answered with a state change on the target agent.
type SimulatedSource struct {
	mu      sync.Mutex
	rng     *rand.Rand
	clock   clock.Clock
	cadence time.Duration
	crew    []*simAgent
	byID    map[string]*simAgent

	next time.Time
	base uint64 // cursor of buf[0]
	buf  []protocol.Event
}

// SimOption configures a SimulatedSource
type SimOption func(*SimulatedSource)

// WithCadence sets the time between generated steps
func WithCadence(d time.Duration) SimOption {
	return func(s *SimulatedSource) {
		if d > 0 {
			s.cadence = d
		}
	}
}

// WithSeed makes generation reproducible
func WithSeed(seed int64) SimOption {
	return func(s *SimulatedSource) {
		s.rng = rand.New(rand.NewSource(seed))
	}
}

// WithSimClock sets the time source that paces generation
func WithSimClock(c clock.Clock) SimOption {
	return func(s *SimulatedSource) {
		s.clock = c
	}
}

// NewSimulatedSource creates a source for crew. Every member starts with an
// idle agent_state event so consumers learn the crew on the first poll.
func NewSimulatedSource(crew []roster.Member, opts ...SimOption) *SimulatedSource {
	s := &SimulatedSource{
		rng:     rand.New(rand.NewSource(time.Now().UnixNano())),
		clock:   clock.Real{},
		cadence: DefaultCadence,
		byID:    make(map[string]*simAgent, len(crew)),
	}
	for _, opt := range opts {
		opt(s)
	}

	now := s.clock.Now()
	s.next = now.Add(s.cadence)
	for _, m := range crew {
		a := &simAgent{member: m}
		s.crew = append(s.crew, a)
		s.byID[m.ID] = a
		s.emit(protocol.AgentState(m.ID, string(models.AgentStatusIdle), "waiting for work", now))
	}
	return s
}

// Crew returns the simulated members in roster order
func (s *SimulatedSource) Crew() []roster.Member {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]roster.Member, len(s.crew))
	for i, a := range s.crew {
		out[i] = a.member
	}
	return out
}

func (s *SimulatedSource) Poll(ctx context.Context, cursor uint64) (protocol.Batch, error) {
	if err := ctx.Err(); err != nil {
		return protocol.Batch{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.advance(s.clock.Now())

	end := s.base + uint64(len(s.buf))
	if cursor < s.base {
		cursor = s.base
	}
	if cursor >= end {
		return protocol.Batch{Cursor: max(cursor, end)}, nil
	}
	events := make([]protocol.Event, end-cursor)
	copy(events, s.buf[cursor-s.base:])
	return protocol.Batch{Cursor: end, Events: events}, nil
}

// advance generates every step due by now
func (s *SimulatedSource) advance(now time.Time) {
	if len(s.crew) == 0 {
		return
	}
	steps := 0
	for !s.next.After(now) {
		if steps == maxCatchUp {
			s.next = now.Add(s.cadence)
			break
		}
		s.step(s.next)
		s.next = s.next.Add(s.cadence)
		steps++
	}
}

func (s *SimulatedSource) step(at time.Time) {
	a := s.crew[s.rng.Intn(len(s.crew))]
	id := a.member.ID

	switch {
	case a.task == "":
		a.task = simTasks[s.rng.Intn(len(simTasks))]
		a.calls = 2 + s.rng.Intn(4)
		priorities := []string{protocol.PriorityLow, protocol.PriorityNormal, protocol.PriorityNormal, protocol.PriorityHigh, protocol.PriorityUrgent}
		s.emit(protocol.TaskAssigned(id, a.task, priorities[s.rng.Intn(len(priorities))], at))

	case a.tool != "":
		success := s.rng.Float64() < 0.9
		summary := ""
		if !success {
			summary = a.tool + " failed"
		}
		s.emit(protocol.ToolComplete(id, a.tool, success, summary, at.Sub(a.started), at))
		a.tool = ""
		a.calls--
		if s.rng.Float64() < 0.2 {
			s.emit(protocol.AgentState(id, string(models.AgentStatusWaiting), "waiting on review", at))
		}

	case a.calls <= 0:
		s.emit(protocol.AgentStop(id, "finished: "+a.task, at))
		a.task = ""

	default:
		a.tool = simTools[s.rng.Intn(len(simTools))]
		a.started = at
		target := simTargets[s.rng.Intn(len(simTargets))]
		s.emit(protocol.ToolStart(id, a.tool, target, at))
	}
}

func (s *SimulatedSource) emit(ev protocol.Event) {
	s.buf = append(s.buf, ev)
	if over := len(s.buf) - maxSimBacklog; over > 0 {
		s.buf = append([]protocol.Event(nil), s.buf[over:]...)
		s.base += uint64(over)
	}
}

// Send accepts any command for a crew member and reacts on the next poll
func (s *SimulatedSource) Send(ctx context.Context, cmd protocol.Command) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[cmd.TargetAgent]
	if !ok {
		return fmt.Errorf("%w: no simulated agent %q", ErrCommandRejected, cmd.TargetAgent)
	}
	activity := cmd.Command
	for _, arg := range cmd.Args {
		activity += " " + arg
	}
	now := s.clock.Now()
	if a.tool != "" {
		// Close the open call so the crew's tool bookkeeping stays balanced.
		s.emit(protocol.ToolComplete(a.member.ID, a.tool, false, "interrupted", now.Sub(a.started), now))
		a.tool = ""
	}
	s.emit(protocol.AgentState(a.member.ID, string(models.AgentStatusThinking), "received: "+activity, now))
	return nil
}
