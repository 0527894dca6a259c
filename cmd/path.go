package cmd

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/gabe/mobwatch/internal/grid"
	"github.com/gabe/mobwatch/internal/models"
	"github.com/gabe/mobwatch/internal/session"
)

var flagSmooth bool

var pathCmd = &cobra.Command{
	Use:   "path <x1,y1> <x2,y2>",
	Short: "Find a walking route on the configured map",
	Long: `Run the pathfinder between two world positions and print the waypoints.
With --smooth, waypoints in a straight line are collapsed to corners.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		dir, cfg, err := loadConfig()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		from, err := parseVec(args[0])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		to, err := parseVec(args[1])
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		world, err := session.LoadMap(dir, cfg)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		g, err := world.Grid(
			grid.WithMaxNodes(cfg.Movement.MaxNodes),
			grid.WithHeuristic(grid.Heuristic(cfg.Movement.Heuristic)),
		)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		path := g.FindPath(from, to)
		if len(path) == 0 {
			fmt.Println(mutedStyle.Render("No route"))
			os.Exit(1)
		}
		if flagSmooth {
			path = grid.SmoothPath(path)
		}

		for i, p := range path {
			fmt.Printf("  %s %s\n", labelStyle.Render(fmt.Sprintf("%3d", i)), valueStyle.Render(formatVec(p)))
		}
		fmt.Printf("%s %d waypoints, %.1f units\n", sectionStyle.Render("Route:"), len(path), grid.PathLength(path))
	},
}

func parseVec(s string) (models.Vec2, error) {
	xs, ys, ok := strings.Cut(s, ",")
	if !ok {
		return models.Vec2{}, fmt.Errorf("position %q must be x,y", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
	if err != nil {
		return models.Vec2{}, fmt.Errorf("bad x in %q: %w", s, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
	if err != nil {
		return models.Vec2{}, fmt.Errorf("bad y in %q: %w", s, err)
	}
	return models.Vec2{X: x, Y: y}, nil
}

func formatVec(v models.Vec2) string {
	return strconv.FormatFloat(v.X, 'f', -1, 64) + "," + strconv.FormatFloat(v.Y, 'f', -1, 64)
}

func init() {
	pathCmd.Flags().BoolVar(&flagSmooth, "smooth", false, "collapse collinear waypoints")
	rootCmd.AddCommand(pathCmd)
}
