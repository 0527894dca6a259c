// Package camera maintains the pan/zoom viewport over the world.
//
// The camera maps world to screen as screen = world*zoom + position. Every
// change to position or zoom goes through clamp, which bounds the zoom and
// keeps a fraction of the world on screen.
package camera

import (
	"io"
	"log"
	"math"
	"time"

	"github.com/gabe/mobwatch/internal/clock"
	"github.com/gabe/mobwatch/internal/models"
)

// Config holds viewport geometry and behaviour limits
type Config struct {
	ViewportWidth  float64
	ViewportHeight float64
	WorldWidth     float64
	WorldHeight    float64

	MinZoom   float64
	MaxZoom   float64
	PanMargin float64 // fraction of the world (or viewport, if smaller) kept visible

	Animation       time.Duration
	PersistDebounce time.Duration

	PanStep  float64 // screen units per keyboard pan
	ZoomStep float64 // multiplicative factor per keyboard zoom
}

// DefaultConfig returns limits suitable for an 800x600 viewport
func DefaultConfig() Config {
	return Config{
		ViewportWidth:   800,
		ViewportHeight:  600,
		WorldWidth:      768,
		WorldHeight:     512,
		MinZoom:         0.5,
		MaxZoom:         3,
		PanMargin:       0.25,
		Animation:       300 * time.Millisecond,
		PersistDebounce: 500 * time.Millisecond,
		PanStep:         48,
		ZoomStep:        1.25,
	}
}

func (c *Config) normalize() {
	d := DefaultConfig()
	if c.MinZoom <= 0 {
		c.MinZoom = d.MinZoom
	}
	if c.MaxZoom <= 0 {
		c.MaxZoom = d.MaxZoom
	}
	if c.MaxZoom < c.MinZoom {
		c.MaxZoom = c.MinZoom
	}
	if c.PanMargin < 0 {
		c.PanMargin = 0
	}
	if c.PanMargin > 1 {
		c.PanMargin = 1
	}
	if c.Animation < 0 {
		c.Animation = 0
	}
	if c.PersistDebounce < 0 {
		c.PersistDebounce = 0
	}
	if c.PanStep <= 0 {
		c.PanStep = d.PanStep
	}
	if c.ZoomStep <= 1 {
		c.ZoomStep = d.ZoomStep
	}
}

// Controller owns the camera state. Like the rest of the engine it is driven
// from one goroutine and does no locking.
type Controller struct {
	cfg    Config
	state  models.CameraState
	anim   *animation
	clock  clock.Clock
	logger *log.Logger

	persister Persister
	dirty     bool
	dirtyAt   time.Time

	onChange func(models.CameraState)
}

// Option configures a Controller
type Option func(*Controller)

// WithClock sets the monotonic time source used for animation and debouncing
func WithClock(c clock.Clock) Option {
	return func(ctl *Controller) {
		ctl.clock = c
	}
}

// WithPersister enables debounced persistence of settled states
func WithPersister(p Persister) Option {
	return func(ctl *Controller) {
		ctl.persister = p
	}
}

// WithLogger sets the logger used for persistence failures
func WithLogger(l *log.Logger) Option {
	return func(ctl *Controller) {
		if l != nil {
			ctl.logger = l
		}
	}
}

// WithOnChange registers a callback invoked after every state change
func WithOnChange(fn func(models.CameraState)) Option {
	return func(ctl *Controller) {
		ctl.onChange = fn
	}
}

// New creates a controller at the default (centred, zoom 1) state
func New(cfg Config, opts ...Option) *Controller {
	cfg.normalize()
	ctl := &Controller{
		cfg:    cfg,
		clock:  clock.Real{},
		logger: log.New(io.Discard, "", 0),
	}
	for _, opt := range opts {
		opt(ctl)
	}
	ctl.state = ctl.DefaultState()
	return ctl
}

// Config returns the active configuration
func (c *Controller) Config() Config {
	return c.cfg
}

// State returns the current camera state
func (c *Controller) State() models.CameraState {
	return c.state
}

// Animating reports whether a transition is in flight
func (c *Controller) Animating() bool {
	return c.anim != nil
}

// DefaultState centres the world in the viewport at zoom 1
func (c *Controller) DefaultState() models.CameraState {
	return c.clamp(models.CameraState{
		X:    (c.cfg.ViewportWidth - c.cfg.WorldWidth) / 2,
		Y:    (c.cfg.ViewportHeight - c.cfg.WorldHeight) / 2,
		Zoom: 1,
	})
}

// Clamp applies the zoom and pan limits to an arbitrary state
func (c *Controller) Clamp(s models.CameraState) models.CameraState {
	return c.clamp(s)
}

func (c *Controller) clamp(s models.CameraState) models.CameraState {
	if math.IsNaN(s.Zoom) || s.Zoom <= 0 {
		s.Zoom = 1
	}
	s.Zoom = clampFloat(s.Zoom, c.cfg.MinZoom, c.cfg.MaxZoom)
	s.X = clampAxis(s.X, c.cfg.WorldWidth*s.Zoom, c.cfg.ViewportWidth, c.cfg.PanMargin)
	s.Y = clampAxis(s.Y, c.cfg.WorldHeight*s.Zoom, c.cfg.ViewportHeight, c.cfg.PanMargin)
	return s
}

// clampAxis keeps at least margin*min(world, viewport) of the world's screen
// extent [pos, pos+world] overlapping the viewport [0, viewport].
func clampAxis(pos, world, viewport, margin float64) float64 {
	if math.IsNaN(pos) {
		pos = 0
	}
	visible := margin * math.Min(world, viewport)
	lo := visible - world
	hi := viewport - visible
	return clampFloat(pos, lo, hi)
}

func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// set replaces the state with a clamped value; settled states are scheduled
// for persistence.
func (c *Controller) set(s models.CameraState, settled bool) {
	c.state = c.clamp(s)
	if settled {
		c.markDirty()
	}
	if c.onChange != nil {
		c.onChange(c.state)
	}
}

// Pan moves the camera by a screen-space delta. It cancels any animation.
func (c *Controller) Pan(dx, dy float64) {
	c.anim = nil
	c.set(models.CameraState{X: c.state.X + dx, Y: c.state.Y + dy, Zoom: c.state.Zoom}, true)
}

// ZoomTo sets the zoom so that the world point under pivot (in screen space)
// stays under pivot. A nil pivot uses the viewport centre.
func (c *Controller) ZoomTo(zoom float64, pivot *models.Vec2) {
	c.anim = nil
	c.set(c.zoomedState(c.state, zoom, c.pivotOrCentre(pivot)), true)
}

// ZoomBy multiplies the zoom by factor around pivot. Mouse wheel and pinch
// gestures both land here.
func (c *Controller) ZoomBy(factor float64, pivot *models.Vec2) {
	if factor <= 0 {
		return
	}
	c.ZoomTo(c.state.Zoom*factor, pivot)
}

func (c *Controller) zoomedState(from models.CameraState, zoom float64, pivot models.Vec2) models.CameraState {
	newZoom := clampFloat(zoom, c.cfg.MinZoom, c.cfg.MaxZoom)
	r := newZoom / from.Zoom
	return models.CameraState{
		X:    pivot.X - (pivot.X-from.X)*r,
		Y:    pivot.Y - (pivot.Y-from.Y)*r,
		Zoom: newZoom,
	}
}

func (c *Controller) pivotOrCentre(pivot *models.Vec2) models.Vec2 {
	if pivot != nil {
		return *pivot
	}
	return models.Vec2{X: c.cfg.ViewportWidth / 2, Y: c.cfg.ViewportHeight / 2}
}

// PanTo moves the camera to an absolute position, optionally animated
func (c *Controller) PanTo(pos models.Vec2, animate bool) {
	c.transition(models.CameraState{X: pos.X, Y: pos.Y, Zoom: c.state.Zoom}, animate)
}

// CenterOn brings a world point to the centre of the viewport
func (c *Controller) CenterOn(world models.Vec2, animate bool) {
	z := c.state.Zoom
	c.transition(models.CameraState{
		X:    c.cfg.ViewportWidth/2 - world.X*z,
		Y:    c.cfg.ViewportHeight/2 - world.Y*z,
		Zoom: z,
	}, animate)
}

// Reset returns to the default state
func (c *Controller) Reset(animate bool) {
	c.transition(c.DefaultState(), animate)
}

// Resize updates the viewport and re-applies the clamp
func (c *Controller) Resize(width, height float64) {
	if width <= 0 || height <= 0 {
		return
	}
	c.cfg.ViewportWidth = width
	c.cfg.ViewportHeight = height
	if c.anim != nil {
		c.anim.to = c.clamp(c.anim.to)
	}
	c.set(c.state, c.anim == nil)
}

// ScreenToWorld maps a screen point into world space
func (c *Controller) ScreenToWorld(p models.Vec2) models.Vec2 {
	return models.Vec2{
		X: (p.X - c.state.X) / c.state.Zoom,
		Y: (p.Y - c.state.Y) / c.state.Zoom,
	}
}

// WorldToScreen maps a world point into screen space
func (c *Controller) WorldToScreen(w models.Vec2) models.Vec2 {
	return models.Vec2{
		X: w.X*c.state.Zoom + c.state.X,
		Y: w.Y*c.state.Zoom + c.state.Y,
	}
}
