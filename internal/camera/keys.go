package camera

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
)

// KeyMap binds keyboard shortcuts to camera primitives
type KeyMap struct {
	PanUp    key.Binding
	PanDown  key.Binding
	PanLeft  key.Binding
	PanRight key.Binding
	ZoomIn   key.Binding
	ZoomOut  key.Binding
	Reset    key.Binding
}

// DefaultKeyMap uses arrows or hjkl to pan, +/- to zoom and 0 to reset
func DefaultKeyMap() KeyMap {
	return KeyMap{
		PanUp:    key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "pan up")),
		PanDown:  key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "pan down")),
		PanLeft:  key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "pan left")),
		PanRight: key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "pan right")),
		ZoomIn:   key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "zoom in")),
		ZoomOut:  key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "zoom out")),
		Reset:    key.NewBinding(key.WithKeys("0"), key.WithHelp("0", "reset view")),
	}
}

// ShortHelp implements help.KeyMap
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.PanLeft, k.ZoomIn, k.ZoomOut, k.Reset}
}

// FullHelp implements help.KeyMap
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.PanUp, k.PanDown, k.PanLeft, k.PanRight},
		{k.ZoomIn, k.ZoomOut, k.Reset},
	}
}

// HandleKey applies a keypress to the camera and reports whether it was a
// camera shortcut. Nothing happens while a text input has focus, so typing
// into a prompt never moves the view.
func (c *Controller) HandleKey(msg fmt.Stringer, keys KeyMap, textInputFocused bool) bool {
	if textInputFocused {
		return false
	}
	step := c.cfg.PanStep
	switch {
	case key.Matches(msg, keys.PanUp):
		c.Pan(0, step)
	case key.Matches(msg, keys.PanDown):
		c.Pan(0, -step)
	case key.Matches(msg, keys.PanLeft):
		c.Pan(step, 0)
	case key.Matches(msg, keys.PanRight):
		c.Pan(-step, 0)
	case key.Matches(msg, keys.ZoomIn):
		c.ZoomBy(c.cfg.ZoomStep, nil)
	case key.Matches(msg, keys.ZoomOut):
		c.ZoomBy(1/c.cfg.ZoomStep, nil)
	case key.Matches(msg, keys.Reset):
		c.Reset(true)
	default:
		return false
	}
	return true
}
