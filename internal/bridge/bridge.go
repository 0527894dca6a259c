// Package bridge connects the engine to an event source.
//
// Polls run on their own goroutines; every result is handed back to the
// owner goroutine through a dispatch function, and all bridge state that
// the owner reads (cursor, connectivity edges, statistics) is only written
// there. A generation counter discards results that land after Stop.
package bridge

import (
	"context"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gabe/mobwatch/internal/clock"
	"github.com/gabe/mobwatch/internal/protocol"
)

const (
	DefaultPollInterval   = 2 * time.Second
	DefaultMaxInFlight    = 2
	DefaultCommandTimeout = 5 * time.Second
)

// Stats counts poll outcomes
type Stats struct {
	Polls      int `json:"polls"`
	Failures   int `json:"failures"`
	Events     int `json:"events"`
	Skipped    int `json:"skipped"`   // malformed entries dropped by the source decoder
	Stale      int `json:"stale"`     // responses ignored because a newer cursor was already folded
	Resets     int `json:"resets"`    // responses whose cursor went backwards, after a source restart
	Throttled  int `json:"throttled"` // ticks skipped because too many polls were outstanding
	Violations int `json:"violations"`
}

// Bridge polls a Source and folds its events through onEvent
type Bridge struct {
	source    Source
	commander Commander
	simulated bool
	validator *protocol.Validator
	sequencer *Sequencer
	clock     clock.Clock
	logger    *log.Logger

	interval       time.Duration
	maxInFlight    int
	commandTimeout time.Duration

	post     func(func())
	inlineMu sync.Mutex

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}

	gen       atomic.Uint64
	cursor    atomic.Uint64
	inFlight  atomic.Int32
	throttled atomic.Int64
	connected atomic.Bool

	// owner goroutine only
	onEvent   func(protocol.Event)
	listeners []func(bool)
	stats     Stats
}

// Option configures a Bridge
type Option func(*Bridge)

// WithCommander sets the outbound transport
func WithCommander(c Commander) Option {
	return func(b *Bridge) {
		b.commander = c
	}
}

// WithSimulated marks the source as simulated; commands are then always
// accepted locally.
func WithSimulated(simulated bool) Option {
	return func(b *Bridge) {
		b.simulated = simulated
	}
}

// WithInterval sets the poll interval
func WithInterval(d time.Duration) Option {
	return func(b *Bridge) {
		if d > 0 {
			b.interval = d
		}
	}
}

// WithMaxInFlight caps outstanding polls
func WithMaxInFlight(n int) Option {
	return func(b *Bridge) {
		if n > 0 {
			b.maxInFlight = n
		}
	}
}

// WithCommandTimeout bounds each outbound command
func WithCommandTimeout(d time.Duration) Option {
	return func(b *Bridge) {
		if d > 0 {
			b.commandTimeout = d
		}
	}
}

// WithSequencer validates tool call ordering before events are folded
func WithSequencer(s *Sequencer) Option {
	return func(b *Bridge) {
		b.sequencer = s
	}
}

// WithDispatcher sets how continuations reach the owner goroutine. Without
// one they run inline under a bridge-private lock.
func WithDispatcher(post func(func())) Option {
	return func(b *Bridge) {
		b.post = post
	}
}

// WithClock sets the time source used to stamp commands
func WithClock(c clock.Clock) Option {
	return func(b *Bridge) {
		b.clock = c
	}
}

// WithLogger sets the logger
func WithLogger(l *log.Logger) Option {
	return func(b *Bridge) {
		if l != nil {
			b.logger = l
		}
	}
}

// New creates a stopped bridge over source
func New(source Source, opts ...Option) *Bridge {
	b := &Bridge{
		source:         source,
		validator:      protocol.Default(),
		clock:          clock.Real{},
		logger:         log.New(io.Discard, "", 0),
		interval:       DefaultPollInterval,
		maxInFlight:    DefaultMaxInFlight,
		commandTimeout: DefaultCommandTimeout,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.post == nil {
		b.post = func(fn func()) {
			b.inlineMu.Lock()
			defer b.inlineMu.Unlock()
			fn()
		}
	}
	return b
}

// Start begins polling. The first poll is issued immediately.
func (b *Bridge) Start(ctx context.Context, onEvent func(protocol.Event)) error {
	if onEvent == nil {
		return ErrNoHandler
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.cancel != nil {
		return ErrAlreadyRunning
	}

	b.onEvent = onEvent
	ctx, cancel := context.WithCancel(ctx)
	gen := b.gen.Add(1)
	b.cancel = cancel
	b.done = make(chan struct{})

	go b.loop(ctx, gen, b.done)
	return nil
}

// Stop cancels the poll interval. Results of polls still in flight are
// dropped when they arrive.
func (b *Bridge) Stop() {
	b.mu.Lock()
	cancel, done := b.cancel, b.done
	b.cancel, b.done = nil, nil
	b.mu.Unlock()

	if cancel == nil {
		return
	}
	b.gen.Add(1)
	cancel()
	<-done
}

// Running reports whether the poll loop is active
func (b *Bridge) Running() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cancel != nil
}

// Simulated reports whether the source is simulated
func (b *Bridge) Simulated() bool {
	return b.simulated
}

func (b *Bridge) loop(ctx context.Context, gen uint64, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(b.interval)
	defer ticker.Stop()

	var wake <-chan struct{}
	if w, ok := b.source.(Watcher); ok {
		ch, err := w.Watch(ctx)
		if err != nil {
			b.logger.Printf("Bridge: source watch unavailable, polling only: %v\n", err)
		} else {
			wake = ch
		}
	}

	b.schedule(ctx, gen)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.schedule(ctx, gen)
		case _, ok := <-wake:
			if !ok {
				wake = nil
				continue
			}
			b.schedule(ctx, gen)
		}
	}
}

// schedule issues one poll unless the in-flight cap is reached, so a hung
// source delays later polls instead of piling them up.
func (b *Bridge) schedule(ctx context.Context, gen uint64) {
	if int(b.inFlight.Load()) >= b.maxInFlight {
		b.throttled.Add(1)
		return
	}
	b.inFlight.Add(1)
	since := b.cursor.Load()

	go func() {
		batch, err := b.source.Poll(ctx, since)
		b.inFlight.Add(-1)
		if ctx.Err() != nil {
			return
		}
		b.post(func() {
			b.complete(gen, since, batch, err)
		})
	}()
}

// complete runs on the owner goroutine, in completion order
func (b *Bridge) complete(gen, since uint64, batch protocol.Batch, err error) {
	if gen != b.gen.Load() {
		return
	}

	b.stats.Polls++
	if err != nil {
		b.stats.Failures++
		if b.connected.Load() {
			b.logger.Printf("Bridge: poll failed: %v\n", err)
		}
		b.setConnected(false)
		return
	}
	b.setConnected(true)
	b.stats.Skipped += batch.Skipped

	// Only a poll issued at the current cursor may move it. One that answers
	// with an earlier cursor means the source restarted; follow it.
	current := b.cursor.Load()
	if since != current {
		b.stats.Stale++
		return
	}
	if batch.Cursor < current {
		b.stats.Resets++
		b.logger.Printf("Bridge: source cursor went back from %d to %d, following the source\n", current, batch.Cursor)
	}

	for _, ev := range batch.Events {
		if b.sequencer != nil && !b.sequencer.Admit(ev) {
			continue
		}
		b.stats.Events++
		b.onEvent(ev)
		if gen != b.gen.Load() {
			return
		}
	}
	b.cursor.Store(batch.Cursor)
}

// OnConnectivity subscribes to connectivity edges. Call from the owner
// goroutine.
func (b *Bridge) OnConnectivity(fn func(connected bool)) {
	b.listeners = append(b.listeners, fn)
}

// Connected reports the connectivity established by the latest poll
func (b *Bridge) Connected() bool {
	return b.connected.Load()
}

func (b *Bridge) setConnected(v bool) {
	if b.connected.Load() == v {
		return
	}
	b.connected.Store(v)
	for _, fn := range b.listeners {
		fn(v)
	}
}

// Cursor returns the position after the last folded event
func (b *Bridge) Cursor() uint64 {
	return b.cursor.Load()
}

// Stats returns poll counters. Call from the owner goroutine.
func (b *Bridge) Stats() Stats {
	s := b.stats
	s.Throttled = int(b.throttled.Load())
	if b.sequencer != nil {
		s.Violations = b.sequencer.Violations()
	}
	return s
}
