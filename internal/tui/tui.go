// Package tui is the terminal renderer. The bubbletea program goroutine is
// the engine's owner: it runs posted continuations and frames, and every
// user input lands on the engine from Update.
package tui

import (
	"context"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/gabe/mobwatch/internal/engine"
	"github.com/gabe/mobwatch/internal/models"
	"github.com/gabe/mobwatch/internal/notify"
)

const (
	sidebarWidth = 38
	// terminal columns per tile at zoom 1; cells are about twice as tall as wide
	colsPerTile = 2
)

// Options configures the program
type Options struct {
	Title         string
	Toasts        *ToastQueue
	FrameInterval time.Duration
}

type frameMsg time.Time

type taskMsg func()

// Model represents the TUI state
type Model struct {
	engine *engine.Engine
	opts   Options
	toasts *ToastQueue

	width  int
	height int

	prompt   textinput.Model
	help     help.Model
	showHelp bool

	dragging bool
	dragged  bool
	lastX    int
	lastY    int
}

// New creates a model driving e
func New(e *engine.Engine, opts Options) Model {
	if opts.FrameInterval <= 0 {
		opts.FrameInterval = engine.DefaultFrameInterval
	}
	if opts.Toasts == nil {
		opts.Toasts = NewToastQueue()
	}
	if opts.Title == "" {
		opts.Title = "mobwatch"
	}

	ti := textinput.New()
	ti.Prompt = ": "
	ti.Placeholder = "command for the selected agent"
	ti.CharLimit = 200

	return Model{
		engine: e,
		opts:   opts,
		toasts: opts.Toasts,
		prompt: ti,
		help:   help.New(),
	}
}

var startProgram = func(model tea.Model) error {
	_, err := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion()).Run()
	return err
}

// Run blocks until the user quits
func Run(e *engine.Engine, opts Options) error {
	return startProgram(New(e, opts))
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.frame(), waitForTask(m.engine.Tasks()))
}

func (m Model) frame() tea.Cmd {
	return tea.Tick(m.opts.FrameInterval, func(t time.Time) tea.Msg {
		return frameMsg(t)
	})
}

func waitForTask(tasks <-chan func()) tea.Cmd {
	return func() tea.Msg {
		return taskMsg(<-tasks)
	}
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case frameMsg:
		now := time.Time(msg)
		m.engine.Frame(now)
		m.toasts.Prune(now)
		return m, m.frame()

	case taskMsg:
		if msg != nil {
			msg()
		}
		return m, waitForTask(m.engine.Tasks())

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.prompt.Width = max(10, msg.Width-4)
		m.resizeCamera()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		m.handleMouse(msg)
		return m, nil
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	if m.prompt.Focused() {
		switch {
		case key.Matches(msg, keys.Deselect):
			m.prompt.Blur()
			m.prompt.Reset()
			return m, nil
		case key.Matches(msg, keys.Send):
			m.sendPrompt()
			m.prompt.Blur()
			m.prompt.Reset()
			return m, nil
		}
		var cmd tea.Cmd
		m.prompt, cmd = m.prompt.Update(msg)
		return m, cmd
	}

	cam := m.engine.Camera()
	if cam.HandleKey(msg, keys.Camera, m.prompt.Focused()) {
		return m, nil
	}

	st := m.engine.Store()
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Next):
		st.SelectNext()
	case key.Matches(msg, keys.Deselect):
		st.Select("")
	case key.Matches(msg, keys.Center):
		if a, ok := st.Selected(); ok {
			cam.CenterOn(a.Position, true)
		}
	case key.Matches(msg, keys.Walk):
		if id := st.SelectedID(); id != "" && !m.engine.WalkToAgent(id) {
			m.toast("No route to " + id)
		}
	case key.Matches(msg, keys.Command):
		if st.SelectedID() == "" {
			m.toast("Select an agent first (tab)")
			return m, nil
		}
		cmd := m.prompt.Focus()
		return m, cmd
	case key.Matches(msg, keys.Help):
		m.showHelp = !m.showHelp
	}
	return m, nil
}

func (m Model) sendPrompt() {
	fields := strings.Fields(m.prompt.Value())
	target := m.engine.Store().SelectedID()
	if len(fields) == 0 || target == "" {
		return
	}
	if _, err := m.engine.SendCommand(context.Background(), target, fields[0], fields[1:]); err != nil {
		m.toast("Command not sent: " + err.Error())
	}
}

func (m Model) toast(msg string) {
	_ = m.toasts.Notify(notify.Notification{Type: notify.NotificationTypeInfo, Title: msg})
}

// mapSize is the map panel in terminal cells
func (m Model) mapSize() (cols, rows int) {
	cols = max(1, m.width-sidebarWidth-1)
	rows = max(1, m.height-3) // title, toast or prompt, status
	return cols, rows
}

func (m Model) resizeCamera() {
	cols, rows := m.mapSize()
	tile := m.engine.Grid().TileSize()
	m.engine.Camera().Resize(float64(cols)*tile/colsPerTile, float64(rows)*tile)
}

// cellToScreen maps a map-panel cell to camera screen space (its centre)
func (m Model) cellToScreen(col, row int) models.Vec2 {
	tile := m.engine.Grid().TileSize()
	return models.Vec2{
		X: (float64(col) + 0.5) * tile / colsPerTile,
		Y: (float64(row) + 0.5) * tile,
	}
}

// screenToCell is the inverse of cellToScreen
func (m Model) screenToCell(p models.Vec2) (col, row int) {
	tile := m.engine.Grid().TileSize()
	return floorInt(p.X * colsPerTile / tile), floorInt(p.Y / tile)
}

func (m *Model) handleMouse(msg tea.MouseMsg) {
	const top = 1 // title line
	cols, rows := m.mapSize()
	col, row := msg.X, msg.Y-top
	inMap := col >= 0 && col < cols && row >= 0 && row < rows
	cam := m.engine.Camera()
	tile := m.engine.Grid().TileSize()

	switch {
	case msg.Button == tea.MouseButtonWheelUp && inMap:
		pivot := m.cellToScreen(col, row)
		cam.ZoomBy(cam.Config().ZoomStep, &pivot)

	case msg.Button == tea.MouseButtonWheelDown && inMap:
		pivot := m.cellToScreen(col, row)
		cam.ZoomBy(1/cam.Config().ZoomStep, &pivot)

	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft && inMap:
		m.dragging, m.dragged = true, false
		m.lastX, m.lastY = msg.X, msg.Y

	case msg.Action == tea.MouseActionMotion && m.dragging:
		dx, dy := msg.X-m.lastX, msg.Y-m.lastY
		if dx != 0 || dy != 0 {
			cam.Pan(float64(dx)*tile/colsPerTile, float64(dy)*tile)
			m.dragged = true
			m.lastX, m.lastY = msg.X, msg.Y
		}

	case msg.Action == tea.MouseActionRelease && m.dragging:
		m.dragging = false
		if !m.dragged && inMap {
			if !m.engine.ClickScreen(m.cellToScreen(col, row)) {
				m.toast("Can't walk there")
			}
		}
	}
}

func floorInt(f float64) int {
	i := int(f)
	if f < 0 && float64(i) != f {
		i--
	}
	return i
}
