// Package session assembles an engine, its bridge and their supporting
// stores from a data directory and its configuration. The view and the
// daemon both start from here.
package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"os"
	"path/filepath"

	"github.com/gabe/mobwatch/internal/bridge"
	"github.com/gabe/mobwatch/internal/camera"
	"github.com/gabe/mobwatch/internal/config"
	"github.com/gabe/mobwatch/internal/engine"
	"github.com/gabe/mobwatch/internal/grid"
	"github.com/gabe/mobwatch/internal/journal"
	"github.com/gabe/mobwatch/internal/kv"
	"github.com/gabe/mobwatch/internal/notify"
	"github.com/gabe/mobwatch/internal/roster"
)

// JournalDir is the activity journal inside the data directory
const JournalDir = "journal"

// Transport is a configured event source and its outbound side
type Transport struct {
	Name      string
	Source    bridge.Source
	Commander bridge.Commander
	Simulated bool
}

// OpenTransport builds the source named by cfg.Bridge.Source. A simulated
// source gets crew; the others discover their agents from events.
func OpenTransport(dir string, cfg *config.Config, crew []roster.Member) (Transport, error) {
	switch cfg.Bridge.Source {
	case bridge.SourceSimulated, "":
		opts := []bridge.SimOption{bridge.WithCadence(cfg.Simulation.CadenceDuration())}
		if cfg.Simulation.Seed != 0 {
			opts = append(opts, bridge.WithSeed(cfg.Simulation.Seed))
		}
		src := bridge.NewSimulatedSource(crew, opts...)
		return Transport{Name: bridge.SourceSimulated, Source: src, Commander: src, Simulated: true}, nil

	case bridge.SourceHTTP:
		src, err := bridge.NewHTTPSource(cfg.Bridge.Endpoint)
		if err != nil {
			return Transport{}, err
		}
		return Transport{Name: src.Endpoint(), Source: src, Commander: src}, nil

	case bridge.SourceSpool:
		src, err := bridge.NewSpoolSource(config.Resolve(dir, cfg.Bridge.SpoolDir))
		if err != nil {
			return Transport{}, err
		}
		return Transport{Name: "spool " + src.Dir(), Source: src, Commander: src}, nil
	}
	return Transport{}, fmt.Errorf("%w: %q", bridge.ErrUnknownSource, cfg.Bridge.Source)
}

// Crew returns the simulated roster for cfg, or nil for live sources
func Crew(cfg *config.Config) []roster.Member {
	if cfg.Bridge.Source != bridge.SourceSimulated && cfg.Bridge.Source != "" {
		return nil
	}
	var rng *rand.Rand
	if cfg.Simulation.Seed != 0 {
		rng = rand.New(rand.NewSource(cfg.Simulation.Seed))
	}
	return roster.Build(cfg.Simulation.Agents, rng)
}

// LoadMap reads the configured floor plan or generates the default one
func LoadMap(dir string, cfg *config.Config) (*grid.Map, error) {
	if cfg.World.MapFile == "" {
		return grid.DefaultMap(cfg.World.Width, cfg.World.Height, cfg.World.TileSize), nil
	}
	return grid.LoadMap(config.Resolve(dir, cfg.World.MapFile))
}

// EngineConfig maps the file configuration onto the engine's
func EngineConfig(cfg *config.Config, world *grid.Map, crew []roster.Member) engine.Config {
	cam := cfg.Camera
	return engine.Config{
		Map:              world,
		MaxNodes:         cfg.Movement.MaxNodes,
		Heuristic:        grid.Heuristic(cfg.Movement.Heuristic),
		Speed:            cfg.Movement.Speed,
		ActivityCapacity: cfg.Activity.Capacity,
		Crew:             crew,
		Camera: camera.Config{
			ViewportWidth:   cam.ViewportWidth,
			ViewportHeight:  cam.ViewportHeight,
			MinZoom:         cam.MinZoom,
			MaxZoom:         cam.MaxZoom,
			PanMargin:       cam.PanMargin,
			Animation:       cam.AnimationDuration(),
			PersistDebounce: cam.PersistDebounceDuration(),
			PanStep:         cam.PanStep,
			ZoomStep:        cam.ZoomStep,
		},
	}
}

// Session is one running engine and everything it owns
type Session struct {
	Dir       string
	Config    *config.Config
	Engine    *engine.Engine
	Bridge    *bridge.Bridge
	Transport Transport
	Notifier  *notify.Manager

	storage kv.Store
	journal *journal.Writer
	logger  *log.Logger

	patrol bool
}

type options struct {
	ephemeral  bool
	notifiers  []notify.Notifier
	engineOpts []engine.Option
	noPatrol   bool
}

// Option configures Open
type Option func(*options)

// WithEphemeralStorage keeps camera and avatar state in memory only
func WithEphemeralStorage() Option {
	return func(o *options) {
		o.ephemeral = true
	}
}

// WithNotifier adds a notification backend
func WithNotifier(n notify.Notifier) Option {
	return func(o *options) {
		o.notifiers = append(o.notifiers, n)
	}
}

// WithEngineOptions passes extra options to the engine
func WithEngineOptions(opts ...engine.Option) Option {
	return func(o *options) {
		o.engineOpts = append(o.engineOpts, opts...)
	}
}

// WithoutPatrol skips the stale-agent patrol
func WithoutPatrol() Option {
	return func(o *options) {
		o.noPatrol = true
	}
}

// Open assembles a session from dir and cfg. Nothing runs until Start.
func Open(dir string, cfg *config.Config, logger *log.Logger, opts ...Option) (*Session, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	world, err := LoadMap(dir, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load map: %w", err)
	}
	crew := Crew(cfg)

	transport, err := OpenTransport(dir, cfg, crew)
	if err != nil {
		return nil, err
	}

	s := &Session{
		Dir:       dir,
		Config:    cfg,
		Transport: transport,
		logger:    logger,
		patrol:    !o.noPatrol,
	}

	backend, path := cfg.Storage.Backend, config.Resolve(dir, cfg.Storage.Path)
	if o.ephemeral {
		backend = kv.BackendMemory
	}
	s.storage, err = kv.Open(backend, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	s.Notifier = notify.NewManager(notify.NewLogNotifier(logger))
	if cfg.Notifications.Terminal {
		s.Notifier.Add(notify.NewTerminalNotifier())
	}
	for _, n := range o.notifiers {
		s.Notifier.Add(n)
	}

	engineOpts := []engine.Option{
		engine.WithLogger(logger),
		engine.WithStorage(s.storage),
		engine.WithNotifier(s.Notifier),
	}
	if cfg.Activity.Journal {
		s.journal = journal.NewWriter(filepath.Join(dir, JournalDir))
		engineOpts = append(engineOpts, engine.WithJournal(s.journal))
	}
	engineOpts = append(engineOpts, o.engineOpts...)

	s.Engine, err = engine.New(EngineConfig(cfg, world, crew), engineOpts...)
	if err != nil {
		s.closeStores()
		return nil, err
	}

	b := cfg.Bridge
	bridgeOpts := []bridge.Option{
		bridge.WithCommander(transport.Commander),
		bridge.WithSimulated(transport.Simulated),
		bridge.WithInterval(b.PollIntervalDuration()),
		bridge.WithMaxInFlight(b.MaxInFlight),
		bridge.WithCommandTimeout(b.CommandTimeoutDuration()),
		bridge.WithSequencer(bridge.NewSequencer(b.StrictSequencing, func(v bridge.Violation) {
			logger.Printf("Bridge: sequence violation: %s\n", v)
		})),
		bridge.WithDispatcher(s.Engine.Post),
		bridge.WithLogger(logger),
	}
	s.Bridge = bridge.New(transport.Source, bridgeOpts...)
	return s, nil
}

// Start restores persisted state, attaches the bridge and starts the
// patrol. Call it on the engine's owner goroutine.
func (s *Session) Start(ctx context.Context) error {
	s.Engine.Restore(ctx)
	if err := s.Engine.StartBridge(ctx, s.Bridge, s.Transport.Name); err != nil {
		return fmt.Errorf("failed to start bridge: %w", err)
	}
	if s.patrol {
		s.Engine.StartPatrol(ctx, s.Config.Bridge.StaleAfterDuration())
	}
	s.logger.Printf("Session: watching %s\n", s.Transport.Name)
	return nil
}

// Close stops the engine and releases the stores. Call it on the owner
// goroutine once its loop has stopped.
func (s *Session) Close(ctx context.Context) error {
	err := s.Engine.Close(ctx)
	if cerr := s.closeStores(); err == nil {
		err = cerr
	}
	return err
}

func (s *Session) closeStores() error {
	var errs []error
	if s.journal != nil {
		errs = append(errs, s.journal.Close())
	}
	if s.Notifier != nil {
		errs = append(errs, s.Notifier.Close())
	}
	if s.storage != nil {
		errs = append(errs, s.storage.Close())
	}
	return errors.Join(errs...)
}
