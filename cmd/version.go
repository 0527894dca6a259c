package cmd

import (
	"fmt"
	rtdebug "runtime/debug"

	"github.com/spf13/cobra"
)

// Set with -ldflags "-X github.com/gabe/mobwatch/cmd.Version=..."
var (
	Version   = "dev"
	GitCommit = ""
	BuildDate = ""
)

// buildInfo fills in whatever ldflags left empty from the embedded VCS stamp
func buildInfo() (version, commit, built string) {
	version, commit, built = Version, GitCommit, BuildDate
	info, ok := rtdebug.ReadBuildInfo()
	if !ok {
		return version, commit, built
	}
	if version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		version = info.Main.Version
	}
	for _, s := range info.Settings {
		switch s.Key {
		case "vcs.revision":
			if commit == "" {
				commit = s.Value
			}
		case "vcs.time":
			if built == "" {
				built = s.Value
			}
		}
	}
	if commit == "" {
		commit = "unknown"
	}
	if built == "" {
		built = "unknown"
	}
	return version, commit, built
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		version, commit, built := buildInfo()
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "mobwatch version %s\n", version)
		fmt.Fprintf(out, "  commit: %s\n", commit)
		fmt.Fprintf(out, "  built:  %s\n", built)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
