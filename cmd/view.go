package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gabe/mobwatch/internal/bridge"
	"github.com/gabe/mobwatch/internal/session"
	"github.com/gabe/mobwatch/internal/tui"
)

var (
	flagSimulate  bool
	flagEphemeral bool
)

var viewCmd = &cobra.Command{
	Use:     "view",
	Aliases: []string{"tui", "v"},
	Short:   "Open the live office view",
	Long: `Open the interactive office map. Agents are drawn at their desks and
walk the floor as events arrive; select one with tab and send it a command
with ':'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if flagSimulate {
			cfg.Bridge.Source = bridge.SourceSimulated
		}

		logger, logFile, err := openLogger(dir, cfg, false)
		if err != nil {
			return err
		}
		defer logFile.Close()

		toasts := tui.NewToastQueue()
		var opts []session.Option
		if cfg.Notifications.Toasts {
			opts = append(opts, session.WithNotifier(toasts))
		}
		if flagEphemeral {
			opts = append(opts, session.WithEphemeralStorage())
		}

		sess, err := session.Open(dir, cfg, logger, opts...)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		if err := sess.Start(ctx); err != nil {
			sess.Close(context.Background())
			return err
		}

		runErr := tui.Run(sess.Engine, tui.Options{
			Title:  "mobwatch",
			Toasts: toasts,
		})
		cancel()
		if err := sess.Close(context.Background()); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: %v\n", err)
		}
		return runErr
	},
}

func init() {
	viewCmd.Flags().BoolVar(&flagSimulate, "simulate", false, "use the simulated crew regardless of config")
	viewCmd.Flags().BoolVar(&flagEphemeral, "ephemeral", false, "do not persist camera or avatar state")
	rootCmd.AddCommand(viewCmd)
}
