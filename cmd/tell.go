package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gabe/mobwatch/internal/bridge"
	"github.com/gabe/mobwatch/internal/protocol"
	"github.com/gabe/mobwatch/internal/session"
)

var tellCmd = &cobra.Command{
	Use:   "tell <agent-id> <command> [args...]",
	Short: "Send a command to an agent",
	Long: `Send a one-shot command to an agent through the configured source.
Simulated and unreachable sources accept the command locally.`,
	Args: cobra.MinimumNArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		dir, cfg, err := loadConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		transport, err := session.OpenTransport(dir, cfg, session.Crew(cfg))
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		b := bridge.New(transport.Source,
			bridge.WithCommander(transport.Commander),
			bridge.WithSimulated(transport.Simulated),
			bridge.WithCommandTimeout(cfg.Bridge.CommandTimeoutDuration()),
		)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		res := b.Deliver(ctx, protocol.NewCommand(args[0], args[1], args[2:], time.Now()))
		switch {
		case !res.Accepted():
			fmt.Fprintf(os.Stderr, "Error: %v\n", res.Err)
			os.Exit(1)
		case res.Local && res.Cause != nil:
			fmt.Printf("%s %s (%v)\n", warningStyle.Render("Queued locally:"), res.Command.ID, res.Cause)
		case res.Local:
			fmt.Printf("%s %s\n", successStyle.Render("Accepted locally:"), res.Command.ID)
		default:
			fmt.Printf("%s %s via %s\n", successStyle.Render("Sent:"), res.Command.ID, transport.Name)
		}
	},
}

func init() {
	rootCmd.AddCommand(tellCmd)
}
