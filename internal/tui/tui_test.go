package tui

import (
	"regexp"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/gabe/mobwatch/internal/camera"
	"github.com/gabe/mobwatch/internal/engine"
	"github.com/gabe/mobwatch/internal/grid"
	"github.com/gabe/mobwatch/internal/roster"
)

// 10x5 tiles of 10 units; a two-tile wall in column 4
func testMap() *grid.Map {
	return &grid.Map{
		Name:     "test",
		TileSize: 10,
		Rows: []string{
			"..........",
			"..........",
			"....#.....",
			"....#.....",
			"..........",
		},
		Desks: map[string]grid.Tile{"vinnie": {X: 1, Y: 1}},
		Seats: []grid.Tile{{X: 8, Y: 1}, {X: 8, Y: 3}},
		Spawn: grid.Tile{X: 0, Y: 4},
	}
}

func newTestEngine(t *testing.T, animation ...time.Duration) *engine.Engine {
	t.Helper()
	cam := camera.Config{
		ViewportWidth:  100,
		ViewportHeight: 50,
		MinZoom:        0.5,
		MaxZoom:        3,
		PanMargin:      0.25,
		PanStep:        10,
		ZoomStep:       1.25,
	}
	if len(animation) > 0 {
		cam.Animation = animation[0]
	}
	e, err := engine.New(engine.Config{
		Map:    testMap(),
		Speed:  50,
		Camera: cam,
		Crew: []roster.Member{
			{ID: "vinnie", Name: "Vinnie", Role: "capo", Department: "engineering"},
			{ID: "sal", Name: "Sal", Role: "soldato", Department: "research"},
		},
	})
	if err != nil {
		t.Fatalf("failed to create engine: %v", err)
	}
	return e
}

// newSizedModel gives a 41x17 map panel, so with the default camera one
// tile spans 2 columns and 1 row and world (x, y) lands on cell (x/5, y/10)
func newSizedModel(t *testing.T) (Model, *engine.Engine) {
	t.Helper()
	e := newTestEngine(t)
	m := update(t, New(e, Options{}), tea.WindowSizeMsg{Width: 80, Height: 20})
	return m, e
}

func update(t *testing.T, m Model, msg tea.Msg) Model {
	t.Helper()
	next, _ := m.Update(msg)
	out, ok := next.(Model)
	if !ok {
		t.Fatalf("expected Model, got %T", next)
	}
	return out
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

var ansiPattern = regexp.MustCompile(`\x1b\[[0-9;]*m`)

func plain(s string) []string {
	return strings.Split(ansiPattern.ReplaceAllString(s, ""), "\n")
}

func TestViewBeforeResize(t *testing.T) {
	m := New(newTestEngine(t), Options{})
	if got := m.View(); got != "Loading..." {
		t.Errorf("expected loading placeholder, got %q", got)
	}
}

func TestViewDrawsMap(t *testing.T) {
	m, _ := newSizedModel(t)
	lines := plain(m.View())

	if len(lines) != 20 {
		t.Fatalf("expected 20 lines, got %d", len(lines))
	}
	if !strings.Contains(lines[0], "mobwatch") || !strings.Contains(lines[0], "2 agents") {
		t.Errorf("expected title with agent count, got %q", lines[0])
	}

	// map row r is line r+1
	row := func(r int) []rune { return []rune(lines[r+1]) }
	if got := string(row(0)[:20]); got != strings.Repeat(".", 20) {
		t.Errorf("expected open floor on row 0, got %q", got)
	}
	if got := row(1)[3]; got != 'V' {
		t.Errorf("expected Vinnie at his desk, got %q", got)
	}
	if got := row(1)[17]; got != 'S' {
		t.Errorf("expected Sal on the first seat, got %q", got)
	}
	if got := row(2)[8]; got != glyphWall {
		t.Errorf("expected wall at column 8, got %q", got)
	}
	if got := row(4)[1]; got != glyphAvatar {
		t.Errorf("expected avatar at spawn, got %q", got)
	}
	if got := row(6)[0]; got != glyphVoid {
		t.Errorf("expected void below the world, got %q", got)
	}
}

func TestViewSidebar(t *testing.T) {
	m, e := newSizedModel(t)
	if err := e.Store().Select("vinnie"); err != nil {
		t.Fatal(err)
	}
	view := strings.Join(plain(m.View()), "\n")

	for _, want := range []string{"Agents (2)", "▸ ", "Vinnie", "capo · engineering", "Activity"} {
		if !strings.Contains(view, want) {
			t.Errorf("expected sidebar to contain %q", want)
		}
	}

	m = update(t, m, runes("?"))
	view = strings.Join(plain(m.View()), "\n")
	if !strings.Contains(view, "Keys") || !strings.Contains(view, "walk to agent") {
		t.Error("expected help to replace the sidebar")
	}
}

func TestStatusBarWithoutBridge(t *testing.T) {
	m, _ := newSizedModel(t)
	lines := plain(m.View())
	status := lines[len(lines)-1]
	if !strings.Contains(status, "no bridge") || !strings.Contains(status, "zoom 1.00x") {
		t.Errorf("unexpected status bar %q", status)
	}
}

func TestStatusBarShowsZoomTarget(t *testing.T) {
	e := newTestEngine(t, time.Hour)
	m := update(t, New(e, Options{}), tea.WindowSizeMsg{Width: 80, Height: 20})
	e.Camera().ZoomTo(2, nil)
	e.Camera().Reset(true)

	lines := plain(m.View())
	status := lines[len(lines)-1]
	if !strings.Contains(status, "zoom 2.00x → 1.00x") {
		t.Errorf("expected the zoom target while animating, got %q", status)
	}
}

func TestTabSelectsNextAgent(t *testing.T) {
	m, e := newSizedModel(t)

	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if got := e.Store().SelectedID(); got != "vinnie" {
		t.Fatalf("expected vinnie selected, got %q", got)
	}
	m = update(t, m, tea.KeyMsg{Type: tea.KeyTab})
	if got := e.Store().SelectedID(); got != "sal" {
		t.Fatalf("expected sal selected, got %q", got)
	}
	update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if got := e.Store().SelectedID(); got != "" {
		t.Errorf("expected esc to clear selection, got %q", got)
	}
}

func TestCameraKeys(t *testing.T) {
	m, e := newSizedModel(t)

	m = update(t, m, runes("+"))
	if got := e.Camera().State().Zoom; got != 1.25 {
		t.Errorf("expected zoom 1.25, got %v", got)
	}
	before := e.Camera().State().X
	update(t, m, runes("h"))
	if got := e.Camera().State().X; got != before+10 {
		t.Errorf("expected pan left by 10, got %v -> %v", before, got)
	}
}

func TestCommandPromptRequiresSelection(t *testing.T) {
	m, _ := newSizedModel(t)

	m = update(t, m, runes(":"))
	if m.prompt.Focused() {
		t.Fatal("expected prompt to stay closed without a selection")
	}
	if m.toasts.Len() != 1 {
		t.Errorf("expected a hint toast, got %d", m.toasts.Len())
	}
}

func TestCommandPromptSuppressesCameraKeys(t *testing.T) {
	m, e := newSizedModel(t)
	if err := e.Store().Select("sal"); err != nil {
		t.Fatal(err)
	}
	before := e.Camera().State()

	m = update(t, m, runes(":"))
	if !m.prompt.Focused() {
		t.Fatal("expected prompt to be focused")
	}
	m = update(t, m, runes("h"))
	m = update(t, m, runes("+"))
	if got := e.Camera().State(); got != before {
		t.Errorf("expected camera untouched while typing, got %+v", got)
	}
	if got := m.prompt.Value(); got != "h+" {
		t.Errorf("expected typed text in prompt, got %q", got)
	}
	view := strings.Join(plain(m.View()), "\n")
	if !strings.Contains(view, "→ sal") {
		t.Error("expected prompt line to name the target")
	}

	// no bridge attached, so the send fails with a toast
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEnter})
	if m.prompt.Focused() {
		t.Error("expected enter to close the prompt")
	}
	toast, ok := m.toasts.Peek()
	if !ok || !strings.Contains(toast.Message, "Command not sent") {
		t.Errorf("expected send failure toast, got %+v", toast)
	}
}

func TestEscClosesPrompt(t *testing.T) {
	m, e := newSizedModel(t)
	_ = e.Store().Select("sal")

	m = update(t, m, runes(":"))
	m = update(t, m, runes("go"))
	m = update(t, m, tea.KeyMsg{Type: tea.KeyEsc})
	if m.prompt.Focused() || m.prompt.Value() != "" {
		t.Error("expected esc to close and clear the prompt")
	}
	if e.Store().SelectedID() != "sal" {
		t.Error("expected selection to survive closing the prompt")
	}
}

func TestQuit(t *testing.T) {
	m, _ := newSizedModel(t)
	_, cmd := m.Update(runes("q"))
	if cmd == nil {
		t.Fatal("expected a command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("expected quit")
	}
}

func click(t *testing.T, m Model, x, y int) Model {
	t.Helper()
	m = update(t, m, tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	return update(t, m, tea.MouseMsg{X: x, Y: y, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})
}

func TestClickFloorWalksAvatar(t *testing.T) {
	m, e := newSizedModel(t)

	// map row 2 is terminal row 3; column 10 is world x 52.5
	click(t, m, 10, 3)
	if !e.Scene().Avatar.Moving {
		t.Error("expected avatar to start walking")
	}
}

func TestClickAgentSelects(t *testing.T) {
	m, e := newSizedModel(t)

	click(t, m, 3, 2)
	if got := e.Store().SelectedID(); got != "vinnie" {
		t.Errorf("expected vinnie selected, got %q", got)
	}
	if e.Scene().Avatar.Moving {
		t.Error("expected selecting an agent not to move the avatar")
	}
}

func TestDragPans(t *testing.T) {
	m, e := newSizedModel(t)
	before := e.Camera().State()

	m = update(t, m, tea.MouseMsg{X: 5, Y: 3, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	m = update(t, m, tea.MouseMsg{X: 7, Y: 3, Action: tea.MouseActionMotion, Button: tea.MouseButtonLeft})
	update(t, m, tea.MouseMsg{X: 7, Y: 3, Action: tea.MouseActionRelease, Button: tea.MouseButtonLeft})

	if got := e.Camera().State().X; got != before.X+10 {
		t.Errorf("expected drag to pan by 10, got %v -> %v", before.X, got)
	}
	if e.Scene().Avatar.Moving {
		t.Error("expected drag not to count as a click")
	}
}

func TestWheelZoomsAroundPointer(t *testing.T) {
	m, e := newSizedModel(t)

	update(t, m, tea.MouseMsg{X: 0, Y: 1, Action: tea.MouseActionPress, Button: tea.MouseButtonWheelUp})
	s := e.Camera().State()
	if s.Zoom != 1.25 {
		t.Fatalf("expected zoom 1.25, got %v", s.Zoom)
	}
	// the pointer sits on world (2.5, 5); it must stay under the pointer
	w := e.Camera().ScreenToWorld(m.cellToScreen(0, 0))
	if w.X != 2.5 || w.Y != 5 {
		t.Errorf("expected pivot to stay fixed, got %v", w)
	}
}

func TestFrameAndTaskMessages(t *testing.T) {
	m, e := newSizedModel(t)

	_, cmd := m.Update(frameMsg(time.Now()))
	if cmd == nil {
		t.Error("expected frame to schedule the next one")
	}

	ran := false
	e.Post(func() { ran = true })
	fn := <-e.Tasks()
	_, cmd = m.Update(taskMsg(fn))
	if !ran {
		t.Error("expected posted task to run on update")
	}
	if cmd == nil {
		t.Error("expected task wait to be re-armed")
	}
}
