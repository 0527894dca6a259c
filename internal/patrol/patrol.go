// Package patrol watches for agents that have gone quiet mid-task.
// An agent in an active status (thinking, working, waiting) that reports
// nothing for the stale timeout is flagged so the engine can mark it offline.
package patrol

import (
	"context"
	"sort"
	"time"

	"github.com/gabe/mobwatch/internal/clock"
	"github.com/gabe/mobwatch/internal/models"
)

// Health values reported in AgentStatus
const (
	HealthOK    = "healthy"
	HealthStale = "stale"
)

// AgentStatus is the patrol's view of one agent
type AgentStatus struct {
	AgentID    string
	Name       string
	Health     string
	LastActive time.Time
	Silence    time.Duration
	Message    string
}

// AgentLister lists agents; the agent store satisfies it
type AgentLister interface {
	Agents() []models.Agent
}

// Patrol checks agents on an interval. All checks run through the dispatch
// function so they see the store from its owning goroutine.
type Patrol struct {
	lister     AgentLister
	interval   time.Duration
	staleAfter time.Duration
	clock      clock.Clock
	post       func(func())
	onStale    func(AgentStatus)
	onRecover  func(AgentStatus)

	// owner goroutine only
	agentStatus map[string]*AgentStatus
}

// Option functions for configuration
type Option func(*Patrol)

// WithInterval sets the patrol check interval
func WithInterval(d time.Duration) Option {
	return func(p *Patrol) {
		if d > 0 {
			p.interval = d
		}
	}
}

// WithStaleTimeout sets how long an active agent may stay silent
func WithStaleTimeout(d time.Duration) Option {
	return func(p *Patrol) {
		if d > 0 {
			p.staleAfter = d
		}
	}
}

// WithOnStale sets the callback for an agent that has just gone stale
func WithOnStale(fn func(AgentStatus)) Option {
	return func(p *Patrol) {
		p.onStale = fn
	}
}

// WithOnRecover sets the callback for a stale agent that reported again
func WithOnRecover(fn func(AgentStatus)) Option {
	return func(p *Patrol) {
		p.onRecover = fn
	}
}

// WithClock sets the time source (useful for testing)
func WithClock(c clock.Clock) Option {
	return func(p *Patrol) {
		p.clock = c
	}
}

// WithDispatcher sets how checks reach the owner goroutine. Without one
// they run on the patrol goroutine.
func WithDispatcher(post func(func())) Option {
	return func(p *Patrol) {
		p.post = post
	}
}

// New creates a new patrol instance
func New(lister AgentLister, opts ...Option) *Patrol {
	p := &Patrol{
		lister:      lister,
		interval:    30 * time.Second,
		staleAfter:  10 * time.Minute,
		clock:       clock.Real{},
		agentStatus: make(map[string]*AgentStatus),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.post == nil {
		p.post = func(fn func()) { fn() }
	}
	return p
}

// Start runs the patrol until ctx is cancelled
func (p *Patrol) Start(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			p.post(p.CheckAll)
		}
	}
}

func isActive(s models.AgentStatus) bool {
	switch s {
	case models.AgentStatusThinking, models.AgentStatusWorking, models.AgentStatusWaiting:
		return true
	}
	return false
}

// CheckAll evaluates every agent and fires callbacks on transitions
func (p *Patrol) CheckAll() {
	now := p.clock.Now()
	for _, a := range p.lister.Agents() {
		status, exists := p.agentStatus[a.ID]
		if !exists {
			status = &AgentStatus{AgentID: a.ID, Name: a.Name, Health: HealthOK}
			p.agentStatus[a.ID] = status
		}
		previous := status.Health
		status.LastActive = a.LastActive
		status.Silence = now.Sub(a.LastActive)

		if isActive(a.Status) && !a.LastActive.IsZero() && status.Silence > p.staleAfter {
			status.Health = HealthStale
			status.Message = "no activity for " + status.Silence.Round(time.Second).String()
			if previous != HealthStale && p.onStale != nil {
				p.onStale(*status)
			}
			continue
		}

		// Going offline is the expected outcome of staleness, not a recovery.
		if a.Status == models.AgentStatusOffline && previous == HealthStale {
			continue
		}
		status.Health = HealthOK
		status.Message = ""
		if previous == HealthStale && p.onRecover != nil {
			p.onRecover(*status)
		}
	}
}

// Status returns every tracked agent, sorted by id
func (p *Patrol) Status() []AgentStatus {
	out := make([]AgentStatus, 0, len(p.agentStatus))
	for _, s := range p.agentStatus {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AgentID < out[j].AgentID })
	return out
}
