package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/gabe/mobwatch/internal/config"
	"github.com/gabe/mobwatch/internal/daemon"
	"github.com/gabe/mobwatch/internal/display"
	"github.com/gabe/mobwatch/internal/engine"
	"github.com/gabe/mobwatch/internal/observer"
)

// Styles for terminal output
var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00D4FF"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
	valueStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#EEEEEE"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#A6E22E"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FD971F"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#F92672"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#666666"))
	sectionStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#EEEEEE"))
)

var (
	flagJSON   bool
	flagAgents bool
	flagWatch  bool
)

const recentActivity = 5

type statusOutput struct {
	Daemon daemonInfo    `json:"daemon"`
	Scene  *engine.Scene `json:"scene,omitempty"`
	Error  string        `json:"error,omitempty"`
}

type daemonInfo struct {
	Running  bool   `json:"running"`
	PID      int    `json:"pid,omitempty"`
	Observer string `json:"observer,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:     "status",
	Short:   "Show the daemon's office at a glance",
	Long:    `Show whether the daemon is running and, if so, its agents, bridge health and recent activity.`,
	Aliases: []string{"s"},
	Run: func(cmd *cobra.Command, args []string) {
		dir, cfg, err := loadConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		if flagWatch {
			for {
				clearScreen()
				showStatus(dir, cfg)
				time.Sleep(2 * time.Second)
			}
		}
		showStatus(dir, cfg)
	},
}

func showStatus(dir string, cfg *config.Config) {
	output := collectStatusData(dir, cfg)

	if flagJSON {
		data, _ := json.MarshalIndent(output, "", "  ")
		fmt.Println(string(data))
		return
	}

	if flagAgents {
		if output.Scene != nil {
			printAgents(output.Scene)
		}
		return
	}

	printDaemonStatus(output.Daemon)
	fmt.Println()

	if output.Error != "" {
		fmt.Println(warningStyle.Render("  " + output.Error))
		return
	}
	if output.Scene == nil {
		return
	}

	printBridge(output.Scene)
	fmt.Println()
	printAgents(output.Scene)
	fmt.Println()
	printRecentActivity(output.Scene)
}

func collectStatusData(dir string, cfg *config.Config) statusOutput {
	output := statusOutput{}

	d := daemon.New(dir, cfg, log.New(io.Discard, "", 0))
	state, pid, err := d.Status()
	if err != nil {
		output.Error = err.Error()
		return output
	}
	output.Daemon.Running = state == daemon.StateRunning
	output.Daemon.PID = pid
	if !output.Daemon.Running {
		return output
	}
	output.Daemon.Observer = cfg.Observer.Listen

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	scene, err := observer.FetchScene(ctx, cfg.Observer.Listen)
	if err != nil {
		output.Error = fmt.Sprintf("observer unavailable: %v", err)
		return output
	}
	output.Scene = &scene
	return output
}

func printDaemonStatus(info daemonInfo) {
	fmt.Println(sectionStyle.Render("Daemon"))
	if info.Running {
		fmt.Printf("  %s %s (PID %d) %s\n",
			successStyle.Render("●"),
			valueStyle.Render("running"),
			info.PID,
			mutedStyle.Render(info.Observer))
	} else {
		fmt.Printf("  %s %s\n",
			errorStyle.Render("○"),
			mutedStyle.Render("not running"))
	}
}

func printBridge(scene *engine.Scene) {
	fmt.Println(sectionStyle.Render("Bridge"))
	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)

	conn := errorStyle.Render("disconnected")
	switch {
	case scene.Simulated:
		conn = successStyle.Render("simulated")
	case scene.Connected:
		conn = successStyle.Render("connected")
	}
	fmt.Fprintf(w, "  %s\t%s %s\n", labelStyle.Render("Source:"), valueStyle.Render(scene.Source), conn)
	fmt.Fprintf(w, "  %s\t%s\n", labelStyle.Render("Map:"), valueStyle.Render(scene.Map))
	fmt.Fprintf(w, "  %s\t%s\n", labelStyle.Render("Updated:"), mutedStyle.Render(formatRelativeTime(scene.Timestamp)))
	if s := scene.Stats; s != nil {
		fmt.Fprintf(w, "  %s\t%d polls, %d events, %d failures\n", labelStyle.Render("Polls:"), s.Polls, s.Events, s.Failures)
		if s.Skipped+s.Violations > 0 {
			fmt.Fprintf(w, "  %s\t%s\n", labelStyle.Render("Dropped:"),
				warningStyle.Render(fmt.Sprintf("%d malformed, %d out of order", s.Skipped, s.Violations)))
		}
	}
	w.Flush()
}

func printAgents(scene *engine.Scene) {
	fmt.Printf("%s (%d)\n", sectionStyle.Render("Agents"), len(scene.Agents))
	fmt.Print(display.RenderCrewTree(scene.Agents, scene.Selected, display.DefaultTreeOpts()))
}

func printRecentActivity(scene *engine.Scene) {
	fmt.Println(sectionStyle.Render("Recent Activity"))
	records := scene.Activity
	if len(records) > recentActivity {
		records = records[:recentActivity]
	}
	fmt.Print(display.RenderActivity(records, display.DefaultTreeOpts()))
}

func formatRelativeTime(t time.Time) string {
	d := time.Since(t)
	if d < time.Minute {
		return fmt.Sprintf("%ds ago", int(d.Seconds()))
	}
	if d < time.Hour {
		return fmt.Sprintf("%dm ago", int(d.Minutes()))
	}
	if d < 24*time.Hour {
		return fmt.Sprintf("%dh ago", int(d.Hours()))
	}
	return t.Format("Jan 2")
}

func clearScreen() {
	fmt.Print("\033[H\033[2J")
}

func init() {
	statusCmd.Flags().BoolVar(&flagJSON, "json", false, "output as JSON")
	statusCmd.Flags().BoolVar(&flagAgents, "agents", false, "show only agents")
	statusCmd.Flags().BoolVarP(&flagWatch, "watch", "w", false, "refresh every 2 seconds")
	rootCmd.AddCommand(statusCmd)
}
