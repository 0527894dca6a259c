// Package daemon runs a headless engine in the background and serves its
// scene to observers on the loopback interface.
package daemon

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"syscall"
	"time"

	"github.com/gabe/mobwatch/internal/config"
	"github.com/gabe/mobwatch/internal/engine"
	"github.com/gabe/mobwatch/internal/notify"
	"github.com/gabe/mobwatch/internal/observer"
	"github.com/gabe/mobwatch/internal/session"
)

// State represents the daemon's operational state
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
)

const (
	PIDFileName     = "mobwatch.pid"
	SummaryFileName = "summary.md"

	// DefaultSummaryInterval spaces the notification digests
	DefaultSummaryInterval = 15 * time.Minute
)

// Daemon hosts one session until it is signalled or stopped
type Daemon struct {
	pidFile string
	dir     string
	cfg     *config.Config
	logger  *log.Logger
	state   State

	summaryInterval time.Duration
	frameInterval   time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
	addr   chan string
}

// New creates a new daemon instance for the data directory dir
func New(dir string, cfg *config.Config, logger *log.Logger) *Daemon {
	return &Daemon{
		pidFile:         filepath.Join(dir, PIDFileName),
		dir:             dir,
		cfg:             cfg,
		logger:          logger,
		state:           StateIdle,
		summaryInterval: DefaultSummaryInterval,
		frameInterval:   engine.DefaultFrameInterval,
		addr:            make(chan string, 1),
	}
}

// Start runs the daemon in the foreground until SIGINT, SIGTERM or Stop
func (d *Daemon) Start() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return d.Run(ctx)
}

// Run is Start with an explicit lifetime
func (d *Daemon) Run(ctx context.Context) error {
	if err := os.MkdirAll(d.dir, 0755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}

	running, pid, err := CheckExistingDaemon(d.pidFile)
	if err != nil {
		return err
	}
	if running {
		return fmt.Errorf("daemon already running (PID %d)", pid)
	}
	if err := WritePID(d.pidFile, os.Getpid()); err != nil {
		return fmt.Errorf("failed to write PID file: %w", err)
	}
	defer RemovePID(d.pidFile)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	d.mu.Lock()
	d.cancel = cancel
	d.state = StateRunning
	d.mu.Unlock()

	obs := observer.NewServer(d.cfg.Observer.BroadcastIntervalDuration(), d.logger)
	summary := notify.NewSummaryReporter(filepath.Join(d.dir, SummaryFileName), d.summaryInterval)

	sess, err := session.Open(d.dir, d.cfg, d.logger,
		session.WithNotifier(summary),
		session.WithEngineOptions(engine.WithOnScene(obs.Publish)),
	)
	if err != nil {
		return fmt.Errorf("failed to open session: %w", err)
	}
	if err := sess.Start(ctx); err != nil {
		sess.Close(context.Background())
		return err
	}
	summary.Start()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- d.serve(ctx, obs)
	}()

	d.logger.Println("Mobwatch daemon started")

	runErr := sess.Engine.Run(ctx, d.frameInterval)
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}
	return d.shutdown(sess, serveErr, runErr)
}

func (d *Daemon) serve(ctx context.Context, obs *observer.Server) error {
	addr := d.cfg.Observer.Listen
	if addr == "" {
		return nil
	}
	ln, err := observer.Listen(addr)
	if err != nil {
		d.logger.Printf("Observer: failed to listen on %s: %v\n", addr, err)
		return err
	}
	select {
	case d.addr <- ln.Addr().String():
	default:
	}
	return obs.Serve(ctx, ln)
}

func (d *Daemon) shutdown(sess *session.Session, serveErr <-chan error, runErr error) error {
	d.mu.Lock()
	d.state = StateIdle
	d.cancel()
	d.mu.Unlock()

	closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := sess.Close(closeCtx); err != nil {
		d.logger.Printf("Daemon: failed to close session: %v\n", err)
	}
	if err := <-serveErr; err != nil && runErr == nil {
		runErr = err
	}

	d.logger.Println("Mobwatch daemon stopped")
	return runErr
}

// Stop gracefully stops a daemon running in this process
func (d *Daemon) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cancel != nil {
		d.cancel()
	}
	return nil
}

// ObserverAddr waits for the observer listener and returns its address
func (d *Daemon) ObserverAddr(ctx context.Context) (string, error) {
	select {
	case addr := <-d.addr:
		d.addr <- addr
		return addr, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Status returns the current daemon status
func (d *Daemon) Status() (State, int, error) {
	running, pid, err := CheckExistingDaemon(d.pidFile)
	if err != nil {
		return "", 0, err
	}
	if !running {
		return StateIdle, 0, nil
	}
	return StateRunning, pid, nil
}

// Signal asks a daemon running in another process to stop. It reports
// false when no daemon is running.
func (d *Daemon) Signal() (bool, error) {
	running, pid, err := CheckExistingDaemon(d.pidFile)
	if err != nil || !running {
		return false, err
	}
	process, err := os.FindProcess(pid)
	if err != nil {
		return false, fmt.Errorf("failed to find process: %w", err)
	}
	if err := process.Signal(syscall.SIGTERM); err != nil {
		return false, fmt.Errorf("failed to stop daemon: %w", err)
	}
	return true, nil
}
