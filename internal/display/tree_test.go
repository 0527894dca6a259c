package display

import (
	"strings"
	"testing"
	"time"

	"github.com/gabe/mobwatch/internal/models"
)

func plainOpts() TreeOpts {
	opts := DefaultTreeOpts()
	opts.ColorEnabled = false
	return opts
}

func TestRenderCrewTree(t *testing.T) {
	agents := []models.Agent{
		{ID: "vinnie", Name: "Vinnie", Role: "capo", Department: "research", Status: models.AgentStatusWorking, Activity: "Edit: main.go"},
		{ID: "sal", Name: "Sal", Role: "soldato", Department: "engineering", Status: models.AgentStatusIdle},
		{ID: "x-1", Name: "x-1", Status: models.AgentStatusError},
	}

	got := RenderCrewTree(agents, "sal", plainOpts())
	want := strings.Join([]string{
		"engineering (1)",
		"└─ *Sal (sal) soldato [idle]",
		"research (1)",
		"└─ Vinnie (vinnie) capo [working]",
		"   └─ Edit: main.go",
		"unassigned (1)",
		"└─ x-1 [error]",
		"",
	}, "\n")
	if got != want {
		t.Errorf("unexpected tree:\n%s\nwant:\n%s", got, want)
	}
}

func TestRenderCrewTreeBranches(t *testing.T) {
	agents := []models.Agent{
		{ID: "a", Name: "a", Department: "ops", Status: models.AgentStatusIdle, Activity: "waiting"},
		{ID: "b", Name: "b", Department: "ops", Status: models.AgentStatusIdle},
	}
	got := RenderCrewTree(agents, "", plainOpts())
	if !strings.Contains(got, "├─ a [idle]\n│ └─ waiting\n└─ b [idle]") {
		t.Errorf("expected nested branches, got:\n%s", got)
	}

	if got := RenderCrewTree(nil, "", plainOpts()); got != "No agents\n" {
		t.Errorf("expected empty message, got %q", got)
	}
}

func TestRenderActivity(t *testing.T) {
	at := time.Date(2026, 3, 14, 9, 0, 0, 0, time.Local)
	records := []models.ActivityRecord{
		{Timestamp: at, AgentID: "sal", Description: "tool: Read"},
		{Timestamp: at, AgentID: "sal", Description: strings.Repeat("x", 100), Success: models.BoolPtr(false)},
	}

	lines := strings.Split(strings.TrimSuffix(RenderActivity(records, plainOpts()), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	if lines[0] != "2026-03-14 09:00:00 sal          tool: Read" {
		t.Errorf("unexpected line %q", lines[0])
	}
	if !strings.HasSuffix(lines[1], "...") {
		t.Errorf("expected long description to be truncated, got %q", lines[1])
	}
}
