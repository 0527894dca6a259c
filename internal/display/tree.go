package display

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/gabe/mobwatch/internal/models"
)

// TreeOpts configures tree rendering
type TreeOpts struct {
	ShowStatus   bool
	ShowActivity bool
	ColorEnabled bool
	MaxWidth     int
}

// Styles for tree rendering
var (
	treeBranch     = "├─"
	treeLastBranch = "└─"
	treeVertical   = "│ "
	treeEmpty      = "  "

	statusIdleStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
	statusActiveStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#A6E22E"))
	statusWaitingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#E6DB74"))
	statusErrorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F92672"))
	agentIDStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#00D4FF"))
	agentNameStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#EEEEEE"))
	departmentStyle    = lipgloss.NewStyle().Bold(true)
)

// DefaultTreeOpts returns default tree rendering options
func DefaultTreeOpts() TreeOpts {
	return TreeOpts{
		ShowStatus:   true,
		ShowActivity: true,
		ColorEnabled: true,
		MaxWidth:     60,
	}
}

func (o TreeOpts) style(s lipgloss.Style, text string) string {
	if !o.ColorEnabled {
		return text
	}
	return s.Render(text)
}

// RenderCrewTree renders agents grouped by department, departments in name
// order and agents in the order given
func RenderCrewTree(agents []models.Agent, selected string, opts TreeOpts) string {
	if len(agents) == 0 {
		return opts.style(statusIdleStyle, "No agents") + "\n"
	}

	byDept := make(map[string][]models.Agent)
	for _, a := range agents {
		dept := a.Department
		if dept == "" {
			dept = "unassigned"
		}
		byDept[dept] = append(byDept[dept], a)
	}
	depts := make([]string, 0, len(byDept))
	for d := range byDept {
		depts = append(depts, d)
	}
	sort.Strings(depts)

	var sb strings.Builder
	for _, dept := range depts {
		members := byDept[dept]
		sb.WriteString(opts.style(departmentStyle, fmt.Sprintf("%s (%d)", dept, len(members))))
		sb.WriteString("\n")
		for i, a := range members {
			renderAgentNode(&sb, a, a.ID == selected, i == len(members)-1, opts)
		}
	}
	return sb.String()
}

func renderAgentNode(sb *strings.Builder, a models.Agent, selected, isLast bool, opts TreeOpts) {
	branch, childIndent := treeBranch, treeVertical
	if isLast {
		branch, childIndent = treeLastBranch, treeEmpty
	}

	sb.WriteString(branch)
	sb.WriteString(" ")
	sb.WriteString(renderAgent(a, selected, opts))
	sb.WriteString("\n")

	if opts.ShowActivity && a.HasActivity() {
		sb.WriteString(childIndent)
		sb.WriteString(treeLastBranch)
		sb.WriteString(" ")
		sb.WriteString(truncate(a.Activity, opts.MaxWidth))
		sb.WriteString("\n")
	}
}

// renderAgent renders one agent with optional status
func renderAgent(a models.Agent, selected bool, opts TreeOpts) string {
	var parts []string

	name := a.Name
	if selected {
		name = "*" + name
	}
	parts = append(parts, opts.style(agentNameStyle, name))
	if a.Name != a.ID {
		parts = append(parts, opts.style(agentIDStyle, "("+a.ID+")"))
	}
	if a.Role != "" {
		parts = append(parts, a.Role)
	}

	if opts.ShowStatus {
		statusStr := fmt.Sprintf("[%s]", a.Status)
		if opts.ColorEnabled {
			statusStr = styleStatus(a.Status, statusStr)
		}
		parts = append(parts, statusStr)
	}

	return strings.Join(parts, " ")
}

// styleStatus applies color styling to status strings
func styleStatus(status models.AgentStatus, text string) string {
	switch status {
	case models.AgentStatusIdle, models.AgentStatusOffline:
		return statusIdleStyle.Render(text)
	case models.AgentStatusThinking, models.AgentStatusWorking:
		return statusActiveStyle.Render(text)
	case models.AgentStatusWaiting:
		return statusWaitingStyle.Render(text)
	case models.AgentStatusError:
		return statusErrorStyle.Render(text)
	default:
		return text
	}
}

// RenderActivity renders activity records oldest first, one per line
func RenderActivity(records []models.ActivityRecord, opts TreeOpts) string {
	if len(records) == 0 {
		return opts.style(statusIdleStyle, "No activity") + "\n"
	}

	var sb strings.Builder
	for _, r := range records {
		sb.WriteString(opts.style(statusIdleStyle, r.Timestamp.Local().Format(time.DateTime)))
		sb.WriteString(" ")
		sb.WriteString(opts.style(agentIDStyle, fmt.Sprintf("%-12s", r.AgentID)))
		sb.WriteString(" ")

		desc := truncate(r.Description, opts.MaxWidth)
		if r.Success != nil && !*r.Success && opts.ColorEnabled {
			desc = statusErrorStyle.Render(desc)
		}
		sb.WriteString(desc)
		sb.WriteString("\n")
	}
	return sb.String()
}

func truncate(s string, n int) string {
	if n <= 3 || len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-3]) + "..."
}
