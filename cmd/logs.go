package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/gabe/mobwatch/internal/bridge"
	"github.com/gabe/mobwatch/internal/config"
	"github.com/gabe/mobwatch/internal/display"
	"github.com/gabe/mobwatch/internal/journal"
	"github.com/gabe/mobwatch/internal/models"
	"github.com/gabe/mobwatch/internal/protocol"
	"github.com/gabe/mobwatch/internal/session"
)

var (
	flagLimit    int
	flagFailed   bool
	flagCommands bool
)

var logsCmd = &cobra.Command{
	Use:     "logs [agent-id]",
	Short:   "View the activity journal",
	Long:    `Display journaled activity, oldest first, for one agent or the whole office.`,
	Aliases: []string{"log"},
	Args:    cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		dir, err := getDataDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		var agentID string
		if len(args) > 0 {
			agentID = args[0]
		}

		if flagCommands {
			showSpoolCommands(agentID)
			return
		}

		reader := journal.NewReader(filepath.Join(dir, session.JournalDir))
		records, err := reader.Read(flagLimit, func(r models.ActivityRecord) bool {
			if agentID != "" && r.AgentID != agentID {
				return false
			}
			if flagFailed && (r.Success == nil || *r.Success) {
				return false
			}
			return true
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		slices.Reverse(records)

		if agentID != "" {
			fmt.Printf("%s: %s\n", headerStyle.Render("Agent"), valueStyle.Render(agentID))
		}
		fmt.Println(sectionStyle.Render("Activity Log"))
		fmt.Print(display.RenderActivity(records, display.DefaultTreeOpts()))
	},
}

// showSpoolCommands lists what has been sent through the spool source
func showSpoolCommands(agentID string) {
	dir, cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if cfg.Bridge.Source != bridge.SourceSpool {
		fmt.Fprintf(os.Stderr, "Error: --commands needs the spool source, configured source is %q\n", cfg.Bridge.Source)
		os.Exit(1)
	}
	src, err := bridge.NewSpoolSource(config.Resolve(dir, cfg.Bridge.SpoolDir))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	cmds, err := src.Commands()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(sectionStyle.Render("Commands"))
	printCommands(os.Stdout, cmds, agentID, flagLimit)
}

// printCommands writes the last limit commands for agentID (all agents when
// empty), oldest first
func printCommands(out io.Writer, cmds []protocol.Command, agentID string, limit int) {
	if agentID != "" {
		cmds = slices.DeleteFunc(slices.Clone(cmds), func(c protocol.Command) bool {
			return c.TargetAgent != agentID
		})
	}
	if limit > 0 && len(cmds) > limit {
		cmds = cmds[len(cmds)-limit:]
	}
	if len(cmds) == 0 {
		fmt.Fprintln(out, "No commands")
		return
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	for _, c := range cmds {
		line := strings.Join(append([]string{c.Command}, c.Args...), " ")
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.Timestamp.Local().Format(time.DateTime), c.TargetAgent, line, c.ID)
	}
	w.Flush()
}

func init() {
	logsCmd.Flags().IntVarP(&flagLimit, "lines", "n", 50, "number of most recent records to show (0 for all)")
	logsCmd.Flags().BoolVar(&flagFailed, "failed", false, "show only failed tool calls and commands")
	logsCmd.Flags().BoolVar(&flagCommands, "commands", false, "list commands written to the spool instead of activity")
	rootCmd.AddCommand(logsCmd)
}
