package patrol

import (
	"context"
	"testing"
	"time"

	"github.com/gabe/mobwatch/internal/clock"
	"github.com/gabe/mobwatch/internal/models"
)

// mockLister is a mutable agent list
type mockLister struct {
	agents []models.Agent
}

func (m *mockLister) Agents() []models.Agent {
	return m.agents
}

func (m *mockLister) set(id string, status models.AgentStatus, last time.Time) {
	for i := range m.agents {
		if m.agents[i].ID == id {
			m.agents[i].Status = status
			m.agents[i].LastActive = last
			return
		}
	}
	m.agents = append(m.agents, models.Agent{ID: id, Name: id, Status: status, LastActive: last})
}

var start = time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)

func TestPatrol_New(t *testing.T) {
	p := New(&mockLister{})
	if p.interval != 30*time.Second {
		t.Errorf("expected default interval 30s, got %v", p.interval)
	}
	if p.staleAfter != 10*time.Minute {
		t.Errorf("expected default stale timeout 10m, got %v", p.staleAfter)
	}

	p = New(&mockLister{}, WithInterval(time.Second), WithStaleTimeout(time.Minute))
	if p.interval != time.Second || p.staleAfter != time.Minute {
		t.Errorf("options not applied: %v %v", p.interval, p.staleAfter)
	}
}

func TestPatrol_FlagsSilentActiveAgents(t *testing.T) {
	fake := clock.NewFake(start)
	lister := &mockLister{}
	lister.set("vinnie", models.AgentStatusWorking, start)
	lister.set("sal", models.AgentStatusIdle, start)

	var stale []AgentStatus
	p := New(lister, WithClock(fake), WithStaleTimeout(5*time.Minute), WithOnStale(func(s AgentStatus) {
		stale = append(stale, s)
	}))

	fake.Advance(4 * time.Minute)
	p.CheckAll()
	if len(stale) != 0 {
		t.Fatalf("nobody is stale yet, got %v", stale)
	}

	fake.Advance(2 * time.Minute)
	p.CheckAll()
	p.CheckAll()
	if len(stale) != 1 || stale[0].AgentID != "vinnie" {
		t.Fatalf("expected vinnie flagged exactly once, got %v", stale)
	}
	if stale[0].Message != "no activity for 6m0s" {
		t.Errorf("unexpected message %q", stale[0].Message)
	}

	statuses := p.Status()
	if len(statuses) != 2 || statuses[0].AgentID != "sal" || statuses[0].Health != HealthOK {
		t.Errorf("idle agents are never stale: %+v", statuses)
	}
}

func TestPatrol_Recovery(t *testing.T) {
	fake := clock.NewFake(start)
	lister := &mockLister{}
	lister.set("vinnie", models.AgentStatusThinking, start)

	var recovered []string
	p := New(lister, WithClock(fake), WithStaleTimeout(time.Minute), WithOnRecover(func(s AgentStatus) {
		recovered = append(recovered, s.AgentID)
	}))

	fake.Advance(2 * time.Minute)
	p.CheckAll()

	// marked offline by the engine: still stale, no recovery
	lister.set("vinnie", models.AgentStatusOffline, fake.Now())
	p.CheckAll()
	if len(recovered) != 0 {
		t.Fatalf("going offline is not a recovery")
	}

	// a real event arrives
	lister.set("vinnie", models.AgentStatusWorking, fake.Now())
	p.CheckAll()
	if len(recovered) != 1 {
		t.Errorf("expected one recovery, got %v", recovered)
	}
}

func TestPatrol_StartDispatches(t *testing.T) {
	lister := &mockLister{}
	posted := make(chan func(), 4)
	p := New(lister, WithInterval(5*time.Millisecond), WithDispatcher(func(fn func()) { posted <- fn }))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Start(ctx) }()

	select {
	case fn := <-posted:
		fn()
	case <-time.After(2 * time.Second):
		t.Fatal("expected a dispatched check")
	}
	cancel()
	go func() {
		for range posted {
		}
	}()
	if err := <-done; err != context.Canceled {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
