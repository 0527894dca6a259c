// Package engine owns all mutable simulation state: the agent store, the
// movement interpolator, the camera and the avatar.
//
// Every method must be called from one goroutine, the owner. Work that
// finishes elsewhere (polls, commands, patrol checks) comes back through
// Post and runs on the owner when it drains Tasks, either in Run or in the
// caller's own loop.
package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/gabe/mobwatch/internal/bridge"
	"github.com/gabe/mobwatch/internal/camera"
	"github.com/gabe/mobwatch/internal/clock"
	"github.com/gabe/mobwatch/internal/grid"
	"github.com/gabe/mobwatch/internal/journal"
	"github.com/gabe/mobwatch/internal/kv"
	"github.com/gabe/mobwatch/internal/models"
	"github.com/gabe/mobwatch/internal/movement"
	"github.com/gabe/mobwatch/internal/notify"
	"github.com/gabe/mobwatch/internal/patrol"
	"github.com/gabe/mobwatch/internal/roster"
	"github.com/gabe/mobwatch/internal/store"
)

const (
	// AvatarID is the movement entity controlled by the operator
	AvatarID = "avatar"

	DefaultQueueSize     = 256
	DefaultFrameInterval = time.Second / 30
)

var (
	ErrNoBridge = errors.New("no event bridge attached")
	ErrClosed   = errors.New("engine is closed")
)

// Config describes the world the engine simulates
type Config struct {
	Map              *grid.Map
	MaxNodes         int
	Heuristic        grid.Heuristic
	Speed            float64
	Camera           camera.Config
	ActivityCapacity int

	// Crew supplies names, roles and departments for known agent ids.
	// Members are registered at startup along with the map's desks.
	Crew []roster.Member
}

// Engine is the single owner of simulation state
type Engine struct {
	world  *grid.Map
	grid   *grid.TileGrid
	store  *store.Store
	mover  *movement.Interpolator
	camera *camera.Controller

	bridge   *bridge.Bridge
	source   string
	patrol   *patrol.Patrol
	journal  *journal.Writer
	notifier *notify.Manager
	storage  kv.Store
	writes   *kv.Writer

	clock  clock.Clock
	frames *clock.FrameTimer
	logger *log.Logger

	crew    map[string]roster.Member
	claimed map[models.Vec2]string // seat -> agent id

	tasks     chan func()
	closed    chan struct{}
	closeOnce sync.Once

	onScene func(Scene)
	dirty   bool
}

// Option configures an Engine
type Option func(*Engine)

// WithClock sets the time source for the store, camera and frames
func WithClock(c clock.Clock) Option {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithLogger sets the logger
func WithLogger(l *log.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithStorage persists the camera and the avatar position
func WithStorage(s kv.Store) Option {
	return func(e *Engine) {
		e.storage = s
	}
}

// WithJournal mirrors every activity record to an on-disk journal
func WithJournal(w *journal.Writer) Option {
	return func(e *Engine) {
		e.journal = w
	}
}

// WithNotifier sends connectivity, agent and command notifications
func WithNotifier(m *notify.Manager) Option {
	return func(e *Engine) {
		e.notifier = m
	}
}

// WithOnScene is called after any frame that changed the scene
func WithOnScene(fn func(Scene)) Option {
	return func(e *Engine) {
		e.onScene = fn
	}
}

// WithQueueSize sets how many posted continuations may wait
func WithQueueSize(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.tasks = make(chan func(), n)
		}
	}
}

// New builds the grid, store, interpolator and camera for cfg and registers
// the map's desks and the crew. Call Restore before the first frame to load
// persisted camera and avatar state.
func New(cfg Config, opts ...Option) (*Engine, error) {
	world := cfg.Map
	if world == nil {
		world = grid.DefaultMap(0, 0, 0)
	}

	e := &Engine{
		world:   world,
		clock:   clock.Real{},
		frames:  clock.NewFrameTimer(clock.DefaultMaxStep),
		logger:  log.New(io.Discard, "", 0),
		crew:    make(map[string]roster.Member, len(cfg.Crew)),
		claimed: make(map[models.Vec2]string),
		tasks:   make(chan func(), DefaultQueueSize),
		closed:  make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.journal != nil {
		e.journal.SetErrorHandler(func(err error) {
			e.Post(func() { e.logger.Printf("Engine: failed to journal activity: %v\n", err) })
		})
	}

	var gridOpts []grid.Option
	if cfg.MaxNodes > 0 {
		gridOpts = append(gridOpts, grid.WithMaxNodes(cfg.MaxNodes))
	}
	if cfg.Heuristic != "" {
		gridOpts = append(gridOpts, grid.WithHeuristic(cfg.Heuristic))
	}
	g, err := world.Grid(gridOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to build grid: %w", err)
	}
	e.grid = g

	storeOpts := []store.Option{store.WithClock(e.clock.Now)}
	if cfg.ActivityCapacity > 0 {
		storeOpts = append(storeOpts, store.WithCapacity(cfg.ActivityCapacity))
	}
	e.store = store.New(storeOpts...)
	e.store.Subscribe(func(store.Change) { e.dirty = true })

	e.mover = movement.New(g,
		movement.WithSpeed(cfg.Speed),
		movement.WithOnMove(e.entityMoved),
		movement.WithOnArrive(e.entityArrived),
	)

	camCfg := cfg.Camera
	size := g.WorldSize()
	camCfg.WorldWidth, camCfg.WorldHeight = size.X, size.Y
	camOpts := []camera.Option{
		camera.WithClock(e.clock),
		camera.WithLogger(e.logger),
		camera.WithOnChange(func(models.CameraState) { e.dirty = true }),
	}
	if e.storage != nil {
		e.writes = kv.NewWriter(e.storage, kv.WithErrorHandler(func(key string, err error) {
			e.Post(func() { e.logger.Printf("Engine: failed to save %s: %v\n", key, err) })
		}))
		camOpts = append(camOpts, camera.WithPersister(camera.NewKVPersister(e.writes)))
	}
	e.camera = camera.New(camCfg, camOpts...)

	for _, m := range cfg.Crew {
		e.crew[m.ID] = m
	}
	for _, id := range world.DeskIDs() {
		e.registerAgent(id, false)
	}
	for _, m := range cfg.Crew {
		if !e.store.Has(m.ID) {
			e.registerAgent(m.ID, false)
		}
	}

	e.mover.Place(AvatarID, world.SpawnPosition())
	e.dirty = true
	return e, nil
}

// Restore loads the persisted camera and avatar. Missing or malformed state
// leaves the defaults in place.
func (e *Engine) Restore(ctx context.Context) {
	e.camera.Restore(ctx)
	e.restoreAvatar(ctx)
}

// Store returns the agent store
func (e *Engine) Store() *store.Store { return e.store }

// Camera returns the camera controller
func (e *Engine) Camera() *camera.Controller { return e.camera }

// Grid returns the walkability grid
func (e *Engine) Grid() *grid.TileGrid { return e.grid }

// Map returns the floor plan
func (e *Engine) Map() *grid.Map { return e.world }

// Bridge returns the attached bridge, or nil
func (e *Engine) Bridge() *bridge.Bridge { return e.bridge }

// Patrol returns the stale-agent patrol, or nil before StartPatrol
func (e *Engine) Patrol() *patrol.Patrol { return e.patrol }

// Post queues fn to run on the owner goroutine. It blocks while the queue
// is full and drops fn once the engine is closed. Never call it from the
// owner goroutine with a full queue.
func (e *Engine) Post(fn func()) {
	select {
	case e.tasks <- fn:
	case <-e.closed:
	}
}

// Tasks exposes queued continuations to an external loop
func (e *Engine) Tasks() <-chan func() {
	return e.tasks
}

// Run drives frames and continuations until ctx is cancelled
func (e *Engine) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultFrameInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-e.closed:
			return ErrClosed
		case fn := <-e.tasks:
			fn()
		case <-ticker.C:
			e.Frame(e.clock.Now())
		}
	}
}

// Frame advances movement and camera animation to now and publishes the
// scene if anything changed.
func (e *Engine) Frame(now time.Time) {
	dt := e.frames.Step(now)
	if dt > 0 {
		e.mover.Tick(dt)
	}
	e.camera.Tick()

	if e.dirty && e.onScene != nil {
		e.dirty = false
		e.onScene(e.Scene())
	}
}

// Close stops the bridge, writes pending camera state and the avatar
// position, waits for queued storage writes, and releases anything blocked
// in Post. Call it on the owner goroutine after its loop has stopped. The
// patrol stops with its context; the journal, notifier and storage belong
// to the caller.
func (e *Engine) Close(ctx context.Context) error {
	var err error
	e.closeOnce.Do(func() {
		close(e.closed)
		if e.bridge != nil {
			e.bridge.Stop()
		}
		err = e.camera.Flush(ctx)
		if pos, ok := e.mover.Position(AvatarID); ok {
			if perr := e.saveAvatar(ctx, pos); perr != nil && err == nil {
				err = perr
			}
		}
		if e.writes != nil {
			if werr := e.writes.Close(ctx); werr != nil && err == nil {
				err = werr
			}
		}
	})
	return err
}
