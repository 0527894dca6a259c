package store

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/gabe/mobwatch/internal/models"
)

// fakeClock advances by one second every time it is read
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func newTestStore(t *testing.T, opts ...Option) (*Store, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)}
	s := New(append([]Option{WithClock(clock.Now)}, opts...)...)
	for _, name := range []string{"vinnie", "sal", "tony"} {
		if err := s.Register(models.Agent{ID: name, Name: name, Role: "soldato", Department: "ops"}); err != nil {
			t.Fatalf("failed to register %s: %v", name, err)
		}
	}
	return s, clock
}

func TestRegister(t *testing.T) {
	s, _ := newTestStore(t)

	if s.Len() != 3 {
		t.Errorf("expected 3 agents, got %d", s.Len())
	}
	a, ok := s.Agent("sal")
	if !ok {
		t.Fatal("expected sal to be registered")
	}
	if a.Status != models.AgentStatusIdle {
		t.Errorf("expected default status idle, got %s", a.Status)
	}

	if err := s.Register(models.Agent{ID: "sal"}); !errors.Is(err, ErrAgentExists) {
		t.Errorf("expected ErrAgentExists, got %v", err)
	}
	if err := s.Register(models.Agent{}); !errors.Is(err, ErrEmptyID) {
		t.Errorf("expected ErrEmptyID, got %v", err)
	}

	order := s.Agents()
	if order[0].ID != "vinnie" || order[2].ID != "tony" {
		t.Errorf("expected registration order, got %v", order)
	}
}

func TestSetStatus_StampsEveryCall(t *testing.T) {
	s, _ := newTestStore(t)

	if err := s.SetStatus("vinnie", models.AgentStatusWorking, "Read: main.go"); err != nil {
		t.Fatal(err)
	}
	first, _ := s.Agent("vinnie")

	if err := s.SetStatus("vinnie", models.AgentStatusWorking, "Read: main.go"); err != nil {
		t.Fatal(err)
	}
	second, _ := s.Agent("vinnie")

	if !second.LastActive.After(first.LastActive) {
		t.Errorf("expected repeated status to refresh timestamp: %v then %v", first.LastActive, second.LastActive)
	}
	if second.Activity != "Read: main.go" {
		t.Errorf("unexpected activity %q", second.Activity)
	}

	if err := s.SetStatus("vinnie", models.AgentStatusIdle, ""); err != nil {
		t.Fatal(err)
	}
	third, _ := s.Agent("vinnie")
	if third.HasActivity() {
		t.Errorf("expected activity cleared, got %q", third.Activity)
	}
}

func TestSetStatus_Errors(t *testing.T) {
	s, _ := newTestStore(t)

	if err := s.SetStatus("nobody", models.AgentStatusIdle, ""); !errors.Is(err, ErrUnknownAgent) {
		t.Errorf("expected ErrUnknownAgent, got %v", err)
	}
	if err := s.SetStatus("sal", models.AgentStatus("napping"), ""); !errors.Is(err, ErrInvalidStatus) {
		t.Errorf("expected ErrInvalidStatus, got %v", err)
	}
	a, _ := s.Agent("sal")
	if a.Status != models.AgentStatusIdle {
		t.Errorf("failed update must not change status, got %s", a.Status)
	}
}

func TestAnyStatusMayFollowAny(t *testing.T) {
	s, _ := newTestStore(t)
	for _, from := range models.AllStatuses {
		for _, to := range models.AllStatuses {
			if err := s.SetStatus("tony", from, ""); err != nil {
				t.Fatal(err)
			}
			if err := s.SetStatus("tony", to, ""); err != nil {
				t.Errorf("%s -> %s rejected: %v", from, to, err)
			}
		}
	}
}

func TestSelect(t *testing.T) {
	s, _ := newTestStore(t)

	var changes []Change
	s.Subscribe(func(c Change) {
		if c.Kind == ChangeSelection {
			changes = append(changes, c)
		}
	})

	if err := s.Select("sal"); err != nil {
		t.Fatal(err)
	}
	if err := s.Select("sal"); err != nil {
		t.Fatal(err)
	}
	if len(changes) != 1 {
		t.Errorf("expected re-selecting to be a no-op, got %d changes", len(changes))
	}

	a, ok := s.Selected()
	if !ok || a.ID != "sal" {
		t.Errorf("expected sal selected, got %v (ok=%v)", a.ID, ok)
	}

	if err := s.Select(""); err != nil {
		t.Fatal(err)
	}
	if err := s.Select(""); err != nil {
		t.Fatal(err)
	}
	if _, ok := s.Selected(); ok {
		t.Error("expected no selection")
	}
	if len(changes) != 2 {
		t.Errorf("expected deselect to emit once, got %d changes", len(changes))
	}

	if err := s.Select("ghost"); !errors.Is(err, ErrUnknownAgent) {
		t.Errorf("expected ErrUnknownAgent, got %v", err)
	}
	if s.SelectedID() != "" {
		t.Error("failed select must not change selection")
	}
}

func TestSelectNextWraps(t *testing.T) {
	s, _ := newTestStore(t)
	got := []string{s.SelectNext(), s.SelectNext(), s.SelectNext(), s.SelectNext()}
	want := []string{"vinnie", "sal", "tony", "vinnie"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("step %d: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestAppendActivity_BoundedNewestFirst(t *testing.T) {
	s, _ := newTestStore(t, WithCapacity(5))

	seen := make(map[string]bool)
	for i := 0; i < 12; i++ {
		rec := s.AppendActivity(models.ActivityRecord{
			AgentID:     "vinnie",
			Kind:        models.ActivityKindToolStart,
			Description: fmt.Sprintf("step %d", i),
		})
		if seen[rec.ID] {
			t.Fatalf("duplicate activity id %s", rec.ID)
		}
		seen[rec.ID] = true
		if rec.Timestamp.IsZero() {
			t.Error("expected timestamp to be stamped")
		}
	}

	log := s.Activity()
	if len(log) != 5 {
		t.Fatalf("expected log capped at 5, got %d", len(log))
	}
	if log[0].Description != "step 11" || log[4].Description != "step 7" {
		t.Errorf("expected newest first, got %q .. %q", log[0].Description, log[4].Description)
	}
}

func TestAppendActivity_DefaultCapacity(t *testing.T) {
	s, _ := newTestStore(t)
	for i := 0; i < 120; i++ {
		s.AppendActivity(models.ActivityRecord{AgentID: "sal", Kind: models.ActivityKindAgentState})
		if n := len(s.Activity()); n > DefaultActivityCapacity {
			t.Fatalf("log exceeded capacity: %d", n)
		}
	}
	if len(s.Activity()) != DefaultActivityCapacity {
		t.Errorf("expected %d entries, got %d", DefaultActivityCapacity, len(s.Activity()))
	}
}

func TestActivityFor(t *testing.T) {
	s, _ := newTestStore(t)
	s.AppendActivity(models.ActivityRecord{AgentID: "sal", Description: "a"})
	s.AppendActivity(models.ActivityRecord{AgentID: "tony", Description: "b"})
	s.AppendActivity(models.ActivityRecord{AgentID: "sal", Description: "c"})

	got := s.ActivityFor("sal")
	if len(got) != 2 || got[0].Description != "c" {
		t.Errorf("unexpected per-agent log %v", got)
	}
}

func TestSetPositionNotifiesOnChangeOnly(t *testing.T) {
	s, _ := newTestStore(t)
	count := 0
	s.Subscribe(func(c Change) {
		if c.Kind == ChangePosition {
			count++
		}
	})

	p := models.Vec2{X: 10, Y: 20}
	if err := s.SetPosition("tony", p); err != nil {
		t.Fatal(err)
	}
	if err := s.SetPosition("tony", p); err != nil {
		t.Fatal(err)
	}
	if count != 1 {
		t.Errorf("expected one position change, got %d", count)
	}
	if err := s.SetPosition("ghost", p); !errors.Is(err, ErrUnknownAgent) {
		t.Errorf("expected ErrUnknownAgent, got %v", err)
	}
}

func TestReturnedAgentsAreCopies(t *testing.T) {
	s, _ := newTestStore(t)
	a, _ := s.Agent("vinnie")
	a.Status = models.AgentStatusError
	b, _ := s.Agent("vinnie")
	if b.Status == models.AgentStatusError {
		t.Error("mutating a returned agent leaked into the store")
	}
}
