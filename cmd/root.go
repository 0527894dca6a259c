package cmd

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/gabe/mobwatch/internal/config"
)

// DirEnv overrides the default data directory
const DirEnv = "MOBWATCH_DIR"

var (
	flagDir string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "mobwatch",
	Short: "mobwatch - a live office view of your agents",
	Long: `mobwatch shows a crew of agents on a tile-map office. Agents walk to
their desks, report what they are doing, and can be sent commands.`,
	SilenceUsage: true,
}

func Execute() error {
	return rootCmd.Execute()
}

// getDataDir resolves --dir, then $MOBWATCH_DIR, then ~/.mobwatch
func getDataDir() (string, error) {
	if flagDir != "" {
		return filepath.Abs(flagDir)
	}
	if dir := os.Getenv(DirEnv); dir != "" {
		return filepath.Abs(dir)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".mobwatch"), nil
}

// loadConfig reads config.toml from the data directory, creating it with
// defaults on first use
func loadConfig() (string, *config.Config, error) {
	dir, err := getDataDir()
	if err != nil {
		return "", nil, err
	}
	cfg, err := config.LoadOrCreate(filepath.Join(dir, config.FileName))
	if err != nil {
		return "", nil, fmt.Errorf("failed to load config: %w", err)
	}
	if debug {
		cfg.Logging.Debug = true
	}
	return dir, cfg, nil
}

// openLogger appends to the configured log file. With console set and
// debug on, output is mirrored to stdout.
func openLogger(dir string, cfg *config.Config, console bool) (*log.Logger, io.Closer, error) {
	if cfg.Logging.File == "" {
		return log.New(io.Discard, "", 0), io.NopCloser(nil), nil
	}
	path := config.Resolve(dir, cfg.Logging.File)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	logFile, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	var out io.Writer = logFile
	if console && cfg.Logging.Debug {
		out = io.MultiWriter(os.Stdout, logFile)
	}
	return log.New(out, "", log.LstdFlags), logFile, nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagDir, "dir", "", "data directory (default $MOBWATCH_DIR or ~/.mobwatch)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug output")
}
