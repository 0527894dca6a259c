package tui

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/charmbracelet/lipgloss"

	"github.com/gabe/mobwatch/internal/engine"
	"github.com/gabe/mobwatch/internal/models"
)

const (
	glyphVoid   = ' '
	glyphFloor  = '.'
	glyphWall   = '█'
	glyphPath   = '·'
	glyphAvatar = '@'
)

type cellKind int

const (
	kindVoid cellKind = iota
	kindFloor
	kindWall
	kindPath
	kindAvatar
	kindAgent
)

type mapCell struct {
	glyph    rune
	kind     cellKind
	status   models.AgentStatus
	selected bool
}

func (c mapCell) style() lipgloss.Style {
	switch c.kind {
	case kindFloor:
		return floorStyle
	case kindWall:
		return wallStyle
	case kindPath:
		return pathStyle
	case kindAvatar:
		return avatarStyle
	case kindAgent:
		s := baseStyle.Foreground(statusColor(c.status)).Bold(true)
		if c.selected {
			s = s.Reverse(true)
		}
		return s
	}
	return baseStyle
}

func (c mapCell) sameStyle(o mapCell) bool {
	if c.kind != o.kind {
		return false
	}
	return c.kind != kindAgent || (c.status == o.status && c.selected == o.selected)
}

func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Loading..."
	}
	scene := m.engine.Scene()
	cols, rows := m.mapSize()

	title := titleStyle.Render(" "+m.opts.Title) +
		mutedStyle.Render(fmt.Sprintf("  %s · %d agents", scene.Map, len(scene.Agents)))

	body := lipgloss.JoinHorizontal(lipgloss.Top,
		m.renderMap(scene, cols, rows),
		baseStyle.Render(" "),
		m.renderSidebar(scene, rows),
	)

	return lipgloss.JoinVertical(lipgloss.Left,
		title,
		body,
		m.renderMessageLine(),
		m.renderStatusBar(scene),
	)
}

// mapCells rasterises the visible part of the world, one cell per terminal
// character, then draws the avatar's route, the agents and the avatar on top
func (m Model) mapCells(scene engine.Scene, cols, rows int) [][]mapCell {
	g := m.engine.Grid()
	cam := m.engine.Camera()

	cells := make([][]mapCell, rows)
	for row := range cells {
		cells[row] = make([]mapCell, cols)
		for col := range cells[row] {
			world := cam.ScreenToWorld(m.cellToScreen(col, row))
			c, ok := g.Locate(world)
			switch {
			case !ok:
				cells[row][col] = mapCell{glyph: glyphVoid, kind: kindVoid}
			case !g.Walkable(c):
				cells[row][col] = mapCell{glyph: glyphWall, kind: kindWall}
			default:
				cells[row][col] = mapCell{glyph: glyphFloor, kind: kindFloor}
			}
		}
	}

	put := func(world models.Vec2, mc mapCell) {
		col, row := m.screenToCell(cam.WorldToScreen(world))
		if row >= 0 && row < rows && col >= 0 && col < cols {
			cells[row][col] = mc
		}
	}

	for _, p := range scene.Avatar.Path {
		put(p, mapCell{glyph: glyphPath, kind: kindPath})
	}
	for _, a := range scene.Agents {
		put(a.Position, mapCell{
			glyph:    agentGlyph(a),
			kind:     kindAgent,
			status:   a.Status,
			selected: a.ID == scene.Selected,
		})
	}
	put(scene.Avatar.Position, mapCell{glyph: glyphAvatar, kind: kindAvatar})
	return cells
}

func agentGlyph(a models.Agent) rune {
	for _, r := range a.Name {
		return unicode.ToUpper(r)
	}
	return '?'
}

func (m Model) renderMap(scene engine.Scene, cols, rows int) string {
	cells := m.mapCells(scene, cols, rows)
	lines := make([]string, len(cells))
	var b strings.Builder
	for i, row := range cells {
		var out strings.Builder
		start := 0
		for j := 1; j <= len(row); j++ {
			if j < len(row) && row[j].sameStyle(row[start]) {
				continue
			}
			b.Reset()
			for _, c := range row[start:j] {
				b.WriteRune(c.glyph)
			}
			out.WriteString(row[start].style().Render(b.String()))
			start = j
		}
		lines[i] = out.String()
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderSidebar(scene engine.Scene, rows int) string {
	inner := sidebarWidth - 2
	var lines []string

	if m.showHelp {
		lines = append(lines, sidebarHeaderStyle.Render("Keys"))
		for _, group := range keys.FullHelp() {
			for _, b := range group {
				h := b.Help()
				lines = append(lines, panelTextStyle.Render(fmt.Sprintf("%-8s", h.Key))+panelMutedStyle.Render(truncate(h.Desc, inner-8)))
			}
		}
		return m.sidebarBox(lines, rows)
	}

	lines = append(lines, sidebarHeaderStyle.Render(fmt.Sprintf("Agents (%d)", len(scene.Agents))))
	for _, a := range scene.Agents {
		marker := "  "
		nameStyle := panelTextStyle
		if a.ID == scene.Selected {
			marker = "▸ "
			nameStyle = selectedStyle
		}
		dot := panelBaseStyle.Foreground(statusColor(a.Status)).Render("●")
		name := truncate(a.Name, inner-14)
		lines = append(lines, panelTextStyle.Render(marker)+dot+" "+
			nameStyle.Render(fmt.Sprintf("%-*s", inner-14, name))+
			panelMutedStyle.Render(fmt.Sprintf(" %9s", a.Status)))
		if a.ID == scene.Selected {
			lines = append(lines, panelMutedStyle.Render("    "+truncate(a.Role+" · "+a.Department, inner-4)))
			if a.HasActivity() {
				lines = append(lines, panelTextStyle.Render("    "+truncate(a.Activity, inner-4)))
			}
		}
	}

	lines = append(lines, "", sidebarHeaderStyle.Render("Activity"))
	budget := rows - len(lines)
	for i := len(scene.Activity) - 1; i >= 0 && budget > 0; i-- {
		rec := scene.Activity[i]
		style := panelTextStyle
		if rec.Success != nil && !*rec.Success {
			style = panelBaseStyle.Foreground(errorColor)
		}
		stamp := rec.Timestamp.Format("15:04:05")
		lines = append(lines, panelMutedStyle.Render(stamp+" ")+style.Render(truncate(rec.AgentID+" "+rec.Description, inner-9)))
		budget--
	}
	return m.sidebarBox(lines, rows)
}

func (m Model) sidebarBox(lines []string, rows int) string {
	if len(lines) > rows {
		lines = lines[:rows]
	}
	return panelBaseStyle.
		Width(sidebarWidth).
		Height(rows).
		Padding(0, 1).
		Render(strings.Join(lines, "\n"))
}

func (m Model) renderMessageLine() string {
	if m.prompt.Focused() {
		target := m.engine.Store().SelectedID()
		return promptStyle.Render(" → "+target) + " " + m.prompt.View()
	}
	if t, ok := m.toasts.Peek(); ok {
		if t.Error() {
			return toastErrorStyle.Render(" ✗ " + t.Message)
		}
		return toastStyle.Render(" • " + t.Message)
	}
	return ""
}

func (m Model) renderStatusBar(scene engine.Scene) string {
	var conn string
	switch {
	case m.engine.Bridge() == nil:
		conn = disconnectedStyle.Render(" ○ no bridge")
	case scene.Simulated:
		conn = connectedStyle.Render(" ● simulated")
	case scene.Connected:
		conn = connectedStyle.Render(" ● " + scene.Source)
	default:
		conn = disconnectedStyle.Render(" ○ " + scene.Source + " disconnected")
	}

	zoomText := fmt.Sprintf("zoom %.2fx", scene.Camera.Zoom)
	if cam := m.engine.Camera(); cam.Animating() {
		if to := cam.Target().Zoom; to != scene.Camera.Zoom {
			zoomText += fmt.Sprintf(" → %.2fx", to)
		}
	}
	zoom := statusBarStyle.Render("  " + zoomText + "  ")
	left := conn + zoom
	help := statusBarStyle.Render(m.help.ShortHelpView(keys.ShortHelp()))

	gap := m.width - lipgloss.Width(left) - lipgloss.Width(help)
	if gap < 0 {
		return left
	}
	return left + statusBarStyle.Render(strings.Repeat(" ", gap)) + help
}

func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n == 1 {
		return "…"
	}
	return string(r[:n-1]) + "…"
}
