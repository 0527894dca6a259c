// Package setup is the first-run wizard behind `mobwatch init`.
package setup

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/gabe/mobwatch/internal/bridge"
	"github.com/gabe/mobwatch/internal/config"
	"github.com/gabe/mobwatch/internal/grid"
)

// MapFileName is the sample floor plan written next to the config
const MapFileName = "office.yaml"

// Wizard handles interactive first-run setup
type Wizard struct {
	reader *bufio.Reader
	out    io.Writer
	// Defaults skips the questions and takes every default
	Defaults bool
}

// NewWizard creates a setup wizard reading answers from in
func NewWizard(in io.Reader, out io.Writer) *Wizard {
	return &Wizard{
		reader: bufio.NewReader(in),
		out:    out,
	}
}

// Run asks where and how to watch, then writes config.toml and a sample
// floor plan. It returns the data directory.
func (w *Wizard) Run(defaultDir string) (string, error) {
	fmt.Fprintln(w.out, "Welcome to mobwatch")
	fmt.Fprintln(w.out, "===================")
	fmt.Fprintln(w.out)

	dir, err := w.prompt("Where should mobwatch store its data?", defaultDir)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	cfg := config.DefaultConfig()

	source, err := w.choose("Event source", []string{bridge.SourceSimulated, bridge.SourceHTTP, bridge.SourceSpool}, cfg.Bridge.Source)
	if err != nil {
		return "", err
	}
	cfg.Bridge.Source = source

	switch source {
	case bridge.SourceSimulated:
		n, err := w.promptInt("How many simulated agents?", cfg.Simulation.Agents)
		if err != nil {
			return "", err
		}
		cfg.Simulation.Agents = n
	case bridge.SourceHTTP:
		if cfg.Bridge.Endpoint, err = w.prompt("Event endpoint", cfg.Bridge.Endpoint); err != nil {
			return "", err
		}
	case bridge.SourceSpool:
		if err := os.MkdirAll(config.Resolve(dir, cfg.Bridge.SpoolDir), 0755); err != nil {
			return "", fmt.Errorf("failed to create spool directory: %w", err)
		}
	}

	mapPath := filepath.Join(dir, MapFileName)
	if _, err := os.Stat(mapPath); os.IsNotExist(err) {
		floor := grid.DefaultMap(cfg.World.Width, cfg.World.Height, cfg.World.TileSize)
		if err := grid.SaveMap(mapPath, floor); err != nil {
			return "", fmt.Errorf("failed to write sample map: %w", err)
		}
	}
	cfg.World.MapFile = MapFileName

	configPath := filepath.Join(dir, config.FileName)
	if err := config.Save(configPath, cfg); err != nil {
		return "", fmt.Errorf("failed to save config: %w", err)
	}

	fmt.Fprintln(w.out)
	fmt.Fprintln(w.out, "Setup complete!")
	fmt.Fprintf(w.out, "  Data:   %s\n", dir)
	fmt.Fprintf(w.out, "  Config: %s\n", configPath)
	fmt.Fprintf(w.out, "  Map:    %s\n", mapPath)
	fmt.Fprintln(w.out)
	fmt.Fprintln(w.out, "Next steps:")
	fmt.Fprintln(w.out, "  1. Open the office:    mobwatch view")
	fmt.Fprintln(w.out, "  2. Or run it headless: mobwatch daemon start")

	return dir, nil
}

func (w *Wizard) prompt(question, defaultVal string) (string, error) {
	if w.Defaults {
		return defaultVal, nil
	}
	fmt.Fprintf(w.out, "%s [%s]: ", question, defaultVal)
	input, err := w.reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}

	input = strings.TrimSpace(input)
	if input == "" {
		return defaultVal, nil
	}
	return input, nil
}

func (w *Wizard) choose(question string, options []string, defaultVal string) (string, error) {
	for {
		answer, err := w.prompt(fmt.Sprintf("%s (%s)", question, strings.Join(options, "/")), defaultVal)
		if err != nil {
			return "", err
		}
		for _, o := range options {
			if strings.EqualFold(answer, o) {
				return o, nil
			}
		}
		fmt.Fprintf(w.out, "Please answer one of: %s\n", strings.Join(options, ", "))
	}
}

func (w *Wizard) promptInt(question string, defaultVal int) (int, error) {
	for {
		answer, err := w.prompt(question, strconv.Itoa(defaultVal))
		if err != nil {
			return 0, err
		}
		n, err := strconv.Atoi(answer)
		if err == nil && n > 0 {
			return n, nil
		}
		fmt.Fprintln(w.out, "Please enter a positive number")
	}
}
