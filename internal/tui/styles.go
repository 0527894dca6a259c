package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/gabe/mobwatch/internal/models"
)

// Dark palette
var (
	bgColor           = lipgloss.Color("#0a0a0a")
	bgPanelColor      = lipgloss.Color("#141414")
	borderSubtleColor = lipgloss.Color("#3c3c3c")

	primaryColor   = lipgloss.Color("#fab283") // warm peach
	secondaryColor = lipgloss.Color("#5c9cf5") // blue
	accentColor    = lipgloss.Color("#9d7cd8") // purple

	errorColor   = lipgloss.Color("#e06c75")
	warningColor = lipgloss.Color("#f5a742")
	successColor = lipgloss.Color("#7fd88f")
	infoColor    = lipgloss.Color("#56b6c2")
	yellowColor  = lipgloss.Color("#e5c07b")

	textColor      = lipgloss.Color("#eeeeee")
	textMutedColor = lipgloss.Color("#808080")
	wallColor      = lipgloss.Color("#484848")
)

var baseStyle = lipgloss.NewStyle().Background(bgColor)

var panelBaseStyle = lipgloss.NewStyle().Background(bgPanelColor)

var (
	titleStyle = baseStyle.
			Foreground(textColor).
			Bold(true)

	mutedStyle = baseStyle.
			Foreground(textMutedColor)

	errorStyle = baseStyle.
			Foreground(errorColor)

	floorStyle = baseStyle.
			Foreground(borderSubtleColor)

	wallStyle = baseStyle.
			Foreground(wallColor)

	pathStyle = baseStyle.
			Foreground(secondaryColor)

	avatarStyle = baseStyle.
			Foreground(primaryColor).
			Bold(true)

	sidebarHeaderStyle = panelBaseStyle.
				Foreground(primaryColor).
				Bold(true)

	panelTextStyle = panelBaseStyle.
			Foreground(textColor)

	panelMutedStyle = panelBaseStyle.
			Foreground(textMutedColor)

	selectedStyle = panelBaseStyle.
			Foreground(primaryColor).
			Bold(true)

	statusBarStyle = lipgloss.NewStyle().
			Background(bgPanelColor).
			Foreground(textMutedColor)

	connectedStyle = lipgloss.NewStyle().
			Background(bgPanelColor).
			Foreground(successColor)

	disconnectedStyle = lipgloss.NewStyle().
				Background(bgPanelColor).
				Foreground(errorColor)

	toastStyle = baseStyle.
			Foreground(yellowColor)

	toastErrorStyle = baseStyle.
			Foreground(errorColor).
			Bold(true)

	promptStyle = baseStyle.
			Foreground(accentColor)
)

// statusColors gives every agent status its map and panel colour
var statusColors = map[models.AgentStatus]lipgloss.Color{
	models.AgentStatusIdle:     textMutedColor,
	models.AgentStatusThinking: infoColor,
	models.AgentStatusWorking:  successColor,
	models.AgentStatusWaiting:  warningColor,
	models.AgentStatusError:    errorColor,
	models.AgentStatusOffline:  wallColor,
}

func statusColor(s models.AgentStatus) lipgloss.Color {
	if c, ok := statusColors[s]; ok {
		return c
	}
	return textColor
}
