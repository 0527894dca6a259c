package tui

import (
	"github.com/charmbracelet/bubbles/key"

	"github.com/gabe/mobwatch/internal/camera"
)

type keyMap struct {
	Camera camera.KeyMap

	Quit     key.Binding
	Next     key.Binding
	Deselect key.Binding
	Center   key.Binding
	Walk     key.Binding
	Command  key.Binding
	Send     key.Binding
	Help     key.Binding
}

var keys = keyMap{
	Camera:   camera.DefaultKeyMap(),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	Next:     key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "next agent")),
	Deselect: key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "deselect")),
	Center:   key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "centre on agent")),
	Walk:     key.NewBinding(key.WithKeys("g"), key.WithHelp("g", "walk to agent")),
	Command:  key.NewBinding(key.WithKeys(":"), key.WithHelp(":", "command")),
	Send:     key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "send")),
	Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Next, k.Walk, k.Command, k.Camera.ZoomIn, k.Help, k.Quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	cam := k.Camera.FullHelp()
	return append(cam, []key.Binding{k.Next, k.Deselect, k.Center, k.Walk}, []key.Binding{k.Command, k.Send, k.Help, k.Quit})
}
