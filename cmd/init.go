package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/gabe/mobwatch/internal/setup"
)

var initDefaults bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Set up mobwatch with an interactive wizard",
	Long: `Run the first-time setup wizard. It writes config.toml and a sample
office map to the data directory.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := getDataDir()
		if err != nil {
			return err
		}
		wizard := setup.NewWizard(os.Stdin, cmd.OutOrStdout())
		wizard.Defaults = initDefaults
		if _, err := wizard.Run(dir); err != nil {
			return fmt.Errorf("setup failed: %w", err)
		}
		return nil
	},
}

func init() {
	initCmd.Flags().BoolVarP(&initDefaults, "yes", "y", false, "Accept every default without prompting")
	rootCmd.AddCommand(initCmd)
}
