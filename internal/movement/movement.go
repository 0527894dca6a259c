// Package movement advances entities along precomputed routes frame by frame.
package movement

import (
	"sort"

	"github.com/gabe/mobwatch/internal/grid"
	"github.com/gabe/mobwatch/internal/models"
)

// DefaultSpeed is in world units per second
const DefaultSpeed = 96.0

// Pathfinder computes a route between two world points; an empty result
// means no route.
type Pathfinder interface {
	FindPath(start, goal models.Vec2) []models.Vec2
}

// Track is the movement state of one entity
type Track struct {
	Waypoints []models.Vec2
	Segment   int
	Progress  float64
	Moving    bool
	Position  models.Vec2
}

// Remaining returns the waypoints not yet reached, for drawing the route
func (t *Track) Remaining() []models.Vec2 {
	if !t.Moving || t.Segment+1 >= len(t.Waypoints) {
		return nil
	}
	out := make([]models.Vec2, 0, len(t.Waypoints)-t.Segment)
	out = append(out, t.Position)
	return append(out, t.Waypoints[t.Segment+1:]...)
}

// Interpolator owns the movement state of every entity it moves. It is not
// safe for concurrent use; callers drive it from a single goroutine.
type Interpolator struct {
	finder   Pathfinder
	speed    float64
	tracks   map[string]*Track
	onMove   func(entity string, pos models.Vec2)
	onArrive func(entity string, pos models.Vec2)
}

// Option configures an Interpolator
type Option func(*Interpolator)

// WithSpeed sets the constant travel speed
func WithSpeed(speed float64) Option {
	return func(in *Interpolator) {
		if speed > 0 {
			in.speed = speed
		}
	}
}

// WithOnMove registers a callback for every position change made by Tick
func WithOnMove(fn func(entity string, pos models.Vec2)) Option {
	return func(in *Interpolator) {
		in.onMove = fn
	}
}

// WithOnArrive registers a callback fired once when an entity reaches the end of its route
func WithOnArrive(fn func(entity string, pos models.Vec2)) Option {
	return func(in *Interpolator) {
		in.onArrive = fn
	}
}

// New creates an interpolator that routes with finder
func New(finder Pathfinder, opts ...Option) *Interpolator {
	in := &Interpolator{
		finder: finder,
		speed:  DefaultSpeed,
		tracks: make(map[string]*Track),
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Speed returns the travel speed in world units per second
func (in *Interpolator) Speed() float64 {
	return in.speed
}

// Place puts an entity at pos without a route, cancelling any movement
func (in *Interpolator) Place(entity string, pos models.Vec2) {
	in.tracks[entity] = &Track{Position: pos}
}

// StartPath routes entity from one point to another. When no route exists
// it returns false and the entity's state is left untouched.
func (in *Interpolator) StartPath(entity string, from, to models.Vec2) bool {
	path := in.finder.FindPath(from, to)
	if len(path) == 0 {
		return false
	}
	path = grid.SmoothPath(path)

	// Begin from the entity's exact position rather than its tile centre.
	if path[0] != from {
		if len(path) == 1 {
			path = []models.Vec2{from, path[0]}
		} else {
			path[0] = from
		}
	}

	track := &Track{Waypoints: path, Position: from}
	if len(path) >= 2 {
		track.Moving = true
	}
	in.tracks[entity] = track
	return true
}

// Update advances one entity by dt seconds. ok is false when the entity is
// not moving. On the call that finishes the route the exact final waypoint
// is returned and the entity stops.
func (in *Interpolator) Update(entity string, dt float64) (models.Vec2, bool) {
	t, exists := in.tracks[entity]
	if !exists || !t.Moving {
		return models.Vec2{}, false
	}
	if dt <= 0 {
		return t.Position, true
	}

	// Distance left over after reaching a waypoint carries into the next
	// segment, so the step covers speed*dt along the route.
	last := len(t.Waypoints) - 1
	travel := in.speed * dt
	for {
		a := t.Waypoints[t.Segment]
		b := t.Waypoints[t.Segment+1]
		length := a.Dist(b)
		left := (1 - t.Progress) * length

		if travel < left {
			t.Progress += travel / length
			t.Position = a.Lerp(b, t.Progress)
			return t.Position, true
		}

		travel -= left
		t.Segment++
		t.Progress = 0
		if t.Segment >= last {
			t.Segment = last
			t.Moving = false
			t.Position = t.Waypoints[last]
			if in.onArrive != nil {
				in.onArrive(entity, t.Position)
			}
			return t.Position, true
		}
		t.Position = t.Waypoints[t.Segment]
	}
}

// Tick advances every moving entity by dt and reports positions through the
// OnMove callback. Entities are visited in id order so callbacks are stable.
func (in *Interpolator) Tick(dt float64) {
	ids := make([]string, 0, len(in.tracks))
	for id, t := range in.tracks {
		if t.Moving {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)

	for _, id := range ids {
		pos, ok := in.Update(id, dt)
		if ok && in.onMove != nil {
			in.onMove(id, pos)
		}
	}
}

// Position returns the entity's last known position
func (in *Interpolator) Position(entity string) (models.Vec2, bool) {
	t, ok := in.tracks[entity]
	if !ok {
		return models.Vec2{}, false
	}
	return t.Position, true
}

// Moving reports whether the entity is travelling
func (in *Interpolator) Moving(entity string) bool {
	t, ok := in.tracks[entity]
	return ok && t.Moving
}

// Track returns a copy of an entity's movement state
func (in *Interpolator) Track(entity string) (Track, bool) {
	t, ok := in.tracks[entity]
	if !ok {
		return Track{}, false
	}
	cp := *t
	cp.Waypoints = append([]models.Vec2(nil), t.Waypoints...)
	return cp, true
}

// Stop halts an entity where it stands
func (in *Interpolator) Stop(entity string) {
	if t, ok := in.tracks[entity]; ok {
		t.Moving = false
	}
}
