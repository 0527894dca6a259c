package grid

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/gabe/mobwatch/internal/models"
)

// ErrNoLayout is returned when a map has neither a size nor an ASCII layout
var ErrNoLayout = errors.New("map has no size or rows")

// Tile is a cell reference as written in map files
type Tile struct {
	X int `yaml:"x" json:"x"`
	Y int `yaml:"y" json:"y"`
}

// Rect is a blocked rectangle in tile units
type Rect struct {
	X int `yaml:"x"`
	Y int `yaml:"y"`
	W int `yaml:"w"`
	H int `yaml:"h"`
}

// Map is a floor plan: world size, walls, named desks and free seats
type Map struct {
	Name     string          `yaml:"name"`
	TileSize float64         `yaml:"tile_size"`
	Width    float64         `yaml:"width,omitempty"`
	Height   float64         `yaml:"height,omitempty"`
	Rows     []string        `yaml:"rows,omitempty"`
	Blocked  []Rect          `yaml:"blocked,omitempty"`
	Desks    map[string]Tile `yaml:"desks,omitempty"`
	Seats    []Tile          `yaml:"seats,omitempty"`
	Spawn    Tile            `yaml:"spawn"`
}

// LoadMap reads a YAML floor plan
func LoadMap(path string) (*Map, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Map
	if err := yaml.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("failed to parse map %s: %w", path, err)
	}
	if err := m.normalize(); err != nil {
		return nil, fmt.Errorf("invalid map %s: %w", path, err)
	}
	return &m, nil
}

// SaveMap writes a floor plan as YAML
func SaveMap(path string, m *Map) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal map: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

func (m *Map) normalize() error {
	if m.TileSize <= 0 {
		m.TileSize = 32
	}
	if len(m.Rows) > 0 {
		widest := 0
		for _, r := range m.Rows {
			if len(r) > widest {
				widest = len(r)
			}
		}
		if m.Width <= 0 {
			m.Width = float64(widest) * m.TileSize
		}
		if m.Height <= 0 {
			m.Height = float64(len(m.Rows)) * m.TileSize
		}
	}
	if m.Width <= 0 || m.Height <= 0 {
		return ErrNoLayout
	}
	return nil
}

func (m *Map) isBlocked(c Cell) bool {
	if c.Row < len(m.Rows) {
		row := m.Rows[c.Row]
		if c.Col < len(row) && row[c.Col] == '#' {
			return true
		}
	}
	for _, r := range m.Blocked {
		if c.Col >= r.X && c.Col < r.X+r.W && c.Row >= r.Y && c.Row < r.Y+r.H {
			return true
		}
	}
	return false
}

// Grid builds the walkability grid for this map
func (m *Map) Grid(opts ...Option) (*TileGrid, error) {
	if err := m.normalize(); err != nil {
		return nil, err
	}
	return New(m.Width, m.Height, m.TileSize, m.isBlocked, opts...)
}

func (m *Map) center(t Tile) models.Vec2 {
	return models.Vec2{
		X: (float64(t.X) + 0.5) * m.TileSize,
		Y: (float64(t.Y) + 0.5) * m.TileSize,
	}
}

// DeskPosition returns the world position of an agent's named desk
func (m *Map) DeskPosition(agentID string) (models.Vec2, bool) {
	t, ok := m.Desks[agentID]
	if !ok {
		return models.Vec2{}, false
	}
	return m.center(t), true
}

// DeskIDs returns the agent ids with named desks, sorted
func (m *Map) DeskIDs() []string {
	ids := make([]string, 0, len(m.Desks))
	for id := range m.Desks {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// SeatPositions returns the world positions of the unassigned seats
func (m *Map) SeatPositions() []models.Vec2 {
	out := make([]models.Vec2, len(m.Seats))
	for i, t := range m.Seats {
		out[i] = m.center(t)
	}
	return out
}

// SpawnPosition returns where the avatar starts
func (m *Map) SpawnPosition() models.Vec2 {
	return m.center(m.Spawn)
}

// DefaultMap is a small open-plan office used when no map file is configured:
// two rows of desk blocks with a seat above and below each block.
func DefaultMap(width, height, tileSize float64) *Map {
	if tileSize <= 0 {
		tileSize = 32
	}
	if width <= 0 {
		width = 24 * tileSize
	}
	if height <= 0 {
		height = 16 * tileSize
	}
	cols := int(width / tileSize)
	rows := int(height / tileSize)

	m := &Map{
		Name:     "office",
		TileSize: tileSize,
		Width:    width,
		Height:   height,
		Spawn:    Tile{X: 1, Y: 1},
	}

	deskRows := []int{rows / 4, (rows * 5) / 8}
	for _, y := range deskRows {
		for x := 3; x+3 < cols; x += 6 {
			m.Blocked = append(m.Blocked, Rect{X: x, Y: y, W: 3, H: 1})
			m.Seats = append(m.Seats, Tile{X: x + 1, Y: y - 1}, Tile{X: x + 1, Y: y + 1})
		}
	}
	return m
}
