package grid

import (
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/gabe/mobwatch/internal/models"
)

func openGrid(t *testing.T, cols, rows int, opts ...Option) *TileGrid {
	t.Helper()
	g, err := New(float64(cols)*32, float64(rows)*32, 32, nil, opts...)
	if err != nil {
		t.Fatalf("failed to build grid: %v", err)
	}
	return g
}

// assertValidPath checks that consecutive waypoints are single neighbour
// steps over walkable cells without cutting blocked corners.
func assertValidPath(t *testing.T, g *TileGrid, path []models.Vec2) {
	t.Helper()
	for i, p := range path {
		c, ok := g.Locate(p)
		if !ok || !g.Walkable(c) {
			t.Fatalf("waypoint %d (%v) is not on a walkable cell", i, p)
		}
		if i == 0 {
			continue
		}
		prev, _ := g.Locate(path[i-1])
		dc, dr := c.Col-prev.Col, c.Row-prev.Row
		if dc < -1 || dc > 1 || dr < -1 || dr > 1 || (dc == 0 && dr == 0) {
			t.Fatalf("waypoint %d is not a neighbour step from %d: %v -> %v", i, i-1, prev, c)
		}
		if dc != 0 && dr != 0 {
			if !g.Walkable(Cell{Col: prev.Col + dc, Row: prev.Row}) || !g.Walkable(Cell{Col: prev.Col, Row: prev.Row + dr}) {
				t.Fatalf("waypoint %d cuts a blocked corner: %v -> %v", i, prev, c)
			}
		}
	}
}

func TestNewGridDimensions(t *testing.T) {
	g, err := New(100, 70, 32, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if g.Cols() != 4 || g.Rows() != 3 {
		t.Errorf("expected 4x3 cells, got %dx%d", g.Cols(), g.Rows())
	}

	if _, err := New(0, 10, 32, nil); err != ErrInvalidDimensions {
		t.Errorf("expected ErrInvalidDimensions, got %v", err)
	}
}

func TestFindPath_OpenGridDiagonal(t *testing.T) {
	g := openGrid(t, 10, 10)

	start := models.Vec2{X: 16, Y: 16}
	goal := models.Vec2{X: 304, Y: 304}
	path := g.FindPath(start, goal)
	if len(path) == 0 {
		t.Fatal("expected a path on an open grid")
	}

	if path[0].Dist(start) > 1e-9 {
		t.Errorf("expected first point %v, got %v", start, path[0])
	}
	if path[len(path)-1].Dist(goal) > 1e-9 {
		t.Errorf("expected last point %v, got %v", goal, path[len(path)-1])
	}

	length := PathLength(path)
	if limit := start.Dist(goal) * 1.01; length > limit {
		t.Errorf("expected path length <= %.2f, got %.2f", limit, length)
	}
	assertValidPath(t, g, path)

	smoothed := SmoothPath(path)
	if len(smoothed) != 2 {
		t.Errorf("expected straight diagonal to smooth to 2 points, got %d", len(smoothed))
	}
}

func TestFindPath_RejectsOffGridAndBlocked(t *testing.T) {
	blocked := func(c Cell) bool { return c.Col == 3 && c.Row == 3 }
	g, err := New(320, 320, 32, blocked)
	if err != nil {
		t.Fatal(err)
	}

	cases := []struct {
		name        string
		start, goal models.Vec2
	}{
		{"start off grid", models.Vec2{X: -5, Y: 10}, models.Vec2{X: 100, Y: 100}},
		{"goal off grid", models.Vec2{X: 10, Y: 10}, models.Vec2{X: 400, Y: 100}},
		{"start blocked", models.Vec2{X: 3*32 + 4, Y: 3*32 + 4}, models.Vec2{X: 10, Y: 10}},
		{"goal blocked", models.Vec2{X: 10, Y: 10}, models.Vec2{X: 3*32 + 16, Y: 3*32 + 16}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if path := g.FindPath(tc.start, tc.goal); len(path) != 0 {
				t.Errorf("expected empty path, got %v", path)
			}
		})
	}
}

func TestFindPath_RoutesAroundWall(t *testing.T) {
	// Column 5 is a wall with a single gap at the bottom row.
	blocked := func(c Cell) bool { return c.Col == 5 && c.Row < 9 }
	g, err := New(320, 320, 32, blocked)
	if err != nil {
		t.Fatal(err)
	}

	path := g.FindPath(g.Center(Cell{0, 0}), g.Center(Cell{9, 0}))
	if len(path) == 0 {
		t.Fatal("expected a path through the gap")
	}
	assertValidPath(t, g, path)

	throughGap := false
	for _, p := range path {
		if c, _ := g.Locate(p); c == (Cell{5, 9}) {
			throughGap = true
		}
	}
	if !throughGap {
		t.Errorf("expected path to pass through the gap at (5,9), got %v", path)
	}
}

func TestFindPath_Unreachable(t *testing.T) {
	// Goal cell fully enclosed.
	blocked := func(c Cell) bool {
		dc, dr := c.Col-7, c.Row-7
		return !(dc == 0 && dr == 0) && dc >= -1 && dc <= 1 && dr >= -1 && dr <= 1
	}
	g, err := New(320, 320, 32, blocked)
	if err != nil {
		t.Fatal(err)
	}
	if path := g.FindPath(g.Center(Cell{0, 0}), g.Center(Cell{7, 7})); len(path) != 0 {
		t.Errorf("expected empty path to enclosed goal, got %d points", len(path))
	}
}

func TestFindPath_NodeCap(t *testing.T) {
	g := openGrid(t, 64, 64, WithMaxNodes(10))
	if path := g.FindPath(g.Center(Cell{0, 0}), g.Center(Cell{63, 63})); len(path) != 0 {
		t.Errorf("expected empty path when node cap is exceeded, got %d points", len(path))
	}

	g = openGrid(t, 64, 64)
	if g.MaxNodes() != DefaultMaxNodes {
		t.Errorf("expected default cap %d, got %d", DefaultMaxNodes, g.MaxNodes())
	}
	if path := g.FindPath(g.Center(Cell{0, 0}), g.Center(Cell{63, 63})); len(path) == 0 {
		t.Error("expected path under the default cap")
	}
}

func TestFindPath_SameCell(t *testing.T) {
	g := openGrid(t, 4, 4)
	path := g.FindPath(models.Vec2{X: 40, Y: 40}, models.Vec2{X: 50, Y: 60})
	if len(path) != 1 {
		t.Fatalf("expected single waypoint, got %v", path)
	}
	if path[0] != g.Center(Cell{1, 1}) {
		t.Errorf("expected tile centre, got %v", path[0])
	}
}

func TestFindPath_OctileIsOptimal(t *testing.T) {
	g := openGrid(t, 20, 20, WithHeuristic(HeuristicOctile))
	path := g.FindPath(g.Center(Cell{0, 0}), g.Center(Cell{12, 4}))
	if len(path) == 0 {
		t.Fatal("expected path")
	}
	optimal := (4*math.Sqrt2 + 8) * 32
	if got := PathLength(path); math.Abs(got-optimal) > 1e-6 {
		t.Errorf("expected optimal length %.3f, got %.3f", optimal, got)
	}
}

func TestFindPath_RandomObstaclesAreValid(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for trial := 0; trial < 40; trial++ {
		walls := make(map[Cell]bool)
		for i := 0; i < 60; i++ {
			walls[Cell{rng.Intn(16), rng.Intn(16)}] = true
		}
		g, err := New(16*32, 16*32, 32, func(c Cell) bool { return walls[c] })
		if err != nil {
			t.Fatal(err)
		}
		start := Cell{rng.Intn(16), rng.Intn(16)}
		goal := Cell{rng.Intn(16), rng.Intn(16)}
		if !g.Walkable(start) || !g.Walkable(goal) {
			continue
		}
		path := g.FindPath(g.Center(start), g.Center(goal))
		if len(path) == 0 {
			continue
		}
		assertValidPath(t, g, path)
		if first, _ := g.Locate(path[0]); first != start {
			t.Errorf("trial %d: expected path to start at %v, got %v", trial, start, first)
		}
		if last, _ := g.Locate(path[len(path)-1]); last != goal {
			t.Errorf("trial %d: expected path to end at %v, got %v", trial, goal, last)
		}
	}
}

func TestSmoothPath(t *testing.T) {
	p := func(x, y float64) models.Vec2 { return models.Vec2{X: x, Y: y} }

	lShape := []models.Vec2{p(0, 0), p(1, 0), p(2, 0), p(2, 1), p(2, 2)}
	got := SmoothPath(lShape)
	want := []models.Vec2{p(0, 0), p(2, 0), p(2, 2)}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("point %d: expected %v, got %v", i, want[i], got[i])
		}
	}

	// Reversal is a direction change and must be kept.
	back := SmoothPath([]models.Vec2{p(0, 0), p(2, 0), p(1, 0)})
	if len(back) != 3 {
		t.Errorf("expected reversal to keep 3 points, got %v", back)
	}

	for _, short := range [][]models.Vec2{nil, {p(1, 1)}, {p(0, 0), p(5, 5)}} {
		if got := SmoothPath(short); len(got) != len(short) {
			t.Errorf("expected short path to be unchanged, got %v", got)
		}
	}
}

func TestSmoothPath_KeepsEndpoints(t *testing.T) {
	g := openGrid(t, 12, 12)
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 25; i++ {
		start := g.Center(Cell{rng.Intn(12), rng.Intn(12)})
		goal := g.Center(Cell{rng.Intn(12), rng.Intn(12)})
		path := g.FindPath(start, goal)
		smoothed := SmoothPath(path)
		if len(path) < 2 {
			continue
		}
		if smoothed[0] != path[0] || smoothed[len(smoothed)-1] != path[len(path)-1] {
			t.Errorf("smoothing changed endpoints: %v -> %v", path, smoothed)
		}
		if len(smoothed) > len(path) {
			t.Errorf("smoothing grew the path: %d -> %d", len(path), len(smoothed))
		}
	}
}

func TestLoadMap(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "office.yaml")
	content := `
name: test
tile_size: 32
rows:
  - "....."
  - ".##.."
  - "....."
blocked:
  - {x: 4, y: 0, w: 1, h: 2}
desks:
  vinnie: {x: 0, y: 2}
seats:
  - {x: 3, y: 2}
spawn: {x: 0, y: 0}
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	m, err := LoadMap(path)
	if err != nil {
		t.Fatalf("failed to load map: %v", err)
	}
	if m.Width != 160 || m.Height != 96 {
		t.Errorf("expected size derived from rows 160x96, got %vx%v", m.Width, m.Height)
	}

	g, err := m.Grid()
	if err != nil {
		t.Fatal(err)
	}
	for _, c := range []Cell{{1, 1}, {2, 1}, {4, 0}, {4, 1}} {
		if g.Walkable(c) {
			t.Errorf("expected %v to be blocked", c)
		}
	}
	if !g.Walkable(Cell{4, 2}) {
		t.Error("expected (4,2) to be walkable")
	}

	desk, ok := m.DeskPosition("vinnie")
	if !ok || desk != (models.Vec2{X: 16, Y: 80}) {
		t.Errorf("unexpected desk position %v (ok=%v)", desk, ok)
	}
	if _, ok := m.DeskPosition("nobody"); ok {
		t.Error("expected no desk for unknown agent")
	}
	if m.SpawnPosition() != (models.Vec2{X: 16, Y: 16}) {
		t.Errorf("unexpected spawn %v", m.SpawnPosition())
	}
}

func TestLoadMapRejectsEmptyLayout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(path, []byte("name: nothing\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadMap(path); err == nil {
		t.Error("expected error for map without layout")
	}
}

func TestDefaultMapRoundTrip(t *testing.T) {
	m := DefaultMap(0, 0, 32)
	g, err := m.Grid()
	if err != nil {
		t.Fatal(err)
	}
	if len(m.Seats) == 0 {
		t.Fatal("expected default map to have seats")
	}
	spawn := m.SpawnPosition()
	for _, seat := range m.SeatPositions() {
		c, ok := g.Locate(seat)
		if !ok || !g.Walkable(c) {
			t.Fatalf("seat %v is not walkable", seat)
		}
		if path := g.FindPath(spawn, seat); len(path) == 0 {
			t.Errorf("seat %v is unreachable from spawn", seat)
		}
	}

	path := filepath.Join(t.TempDir(), "map.yaml")
	if err := SaveMap(path, m); err != nil {
		t.Fatalf("failed to save map: %v", err)
	}
	loaded, err := LoadMap(path)
	if err != nil {
		t.Fatalf("failed to reload map: %v", err)
	}
	if len(loaded.Seats) != len(m.Seats) || len(loaded.Blocked) != len(m.Blocked) {
		t.Errorf("round trip lost data: %d/%d seats, %d/%d blocks",
			len(loaded.Seats), len(m.Seats), len(loaded.Blocked), len(m.Blocked))
	}
}
