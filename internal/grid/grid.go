// Package grid holds the walkability map of the world and the A* search over it.
package grid

import (
	"errors"
	"math"

	"github.com/gabe/mobwatch/internal/models"
)

var (
	// ErrInvalidDimensions is returned when a grid would have no cells
	ErrInvalidDimensions = errors.New("grid dimensions must be positive")
)

// DefaultMaxNodes bounds the number of nodes A* may expand before giving up
const DefaultMaxNodes = 1000

// Heuristic selects the distance estimate used by FindPath
type Heuristic string

const (
	HeuristicManhattan Heuristic = "manhattan"
	HeuristicOctile    Heuristic = "octile"
)

// Cell addresses one tile
type Cell struct {
	Col int
	Row int
}

// TileGrid is a fixed walkability map. It is built once and never
// mutated by path queries, so it is safe to share between readers.
type TileGrid struct {
	cols, rows int
	tileSize   float64
	width      float64
	height     float64
	walkable   []bool
	maxNodes   int
	heuristic  Heuristic
}

// Option configures a TileGrid
type Option func(*TileGrid)

// WithMaxNodes sets the A* expansion cap
func WithMaxNodes(n int) Option {
	return func(g *TileGrid) {
		if n > 0 {
			g.maxNodes = n
		}
	}
}

// WithHeuristic sets the A* heuristic
func WithHeuristic(h Heuristic) Option {
	return func(g *TileGrid) {
		if h == HeuristicManhattan || h == HeuristicOctile {
			g.heuristic = h
		}
	}
}

// New builds a grid covering width x height world units. blocked may be nil,
// in which case every cell is walkable.
func New(width, height, tileSize float64, blocked func(Cell) bool, opts ...Option) (*TileGrid, error) {
	if width <= 0 || height <= 0 || tileSize <= 0 {
		return nil, ErrInvalidDimensions
	}
	cols := int(math.Ceil(width / tileSize))
	rows := int(math.Ceil(height / tileSize))

	g := &TileGrid{
		cols:      cols,
		rows:      rows,
		tileSize:  tileSize,
		width:     width,
		height:    height,
		walkable:  make([]bool, cols*rows),
		maxNodes:  DefaultMaxNodes,
		heuristic: HeuristicManhattan,
	}
	for _, opt := range opts {
		opt(g)
	}

	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			c := Cell{Col: col, Row: row}
			if blocked == nil || !blocked(c) {
				g.walkable[g.index(c)] = true
			}
		}
	}
	return g, nil
}

func (g *TileGrid) Cols() int            { return g.cols }
func (g *TileGrid) Rows() int            { return g.rows }
func (g *TileGrid) TileSize() float64    { return g.tileSize }
func (g *TileGrid) MaxNodes() int        { return g.maxNodes }
func (g *TileGrid) Heuristic() Heuristic { return g.heuristic }

// WorldSize returns the extent of the world in world units
func (g *TileGrid) WorldSize() models.Vec2 {
	return models.Vec2{X: g.width, Y: g.height}
}

// InBounds reports whether the cell lies inside the grid
func (g *TileGrid) InBounds(c Cell) bool {
	return c.Col >= 0 && c.Row >= 0 && c.Col < g.cols && c.Row < g.rows
}

// Walkable reports whether the cell is inside the grid and not blocked
func (g *TileGrid) Walkable(c Cell) bool {
	return g.InBounds(c) && g.walkable[g.index(c)]
}

// Locate maps a world point to its cell by floor division.
// ok is false when the point falls outside the grid.
func (g *TileGrid) Locate(p models.Vec2) (Cell, bool) {
	c := Cell{
		Col: int(math.Floor(p.X / g.tileSize)),
		Row: int(math.Floor(p.Y / g.tileSize)),
	}
	if !g.InBounds(c) {
		return Cell{}, false
	}
	return c, true
}

// Center returns the world position of the centre of a cell
func (g *TileGrid) Center(c Cell) models.Vec2 {
	return models.Vec2{
		X: (float64(c.Col) + 0.5) * g.tileSize,
		Y: (float64(c.Row) + 0.5) * g.tileSize,
	}
}

// Snap returns the centre of the cell containing p, or p unchanged when off-grid
func (g *TileGrid) Snap(p models.Vec2) models.Vec2 {
	c, ok := g.Locate(p)
	if !ok {
		return p
	}
	return g.Center(c)
}

func (g *TileGrid) index(c Cell) int {
	return c.Row*g.cols + c.Col
}
