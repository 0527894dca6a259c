package daemon

import (
	"context"
	"errors"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gabe/mobwatch/internal/config"
	"github.com/gabe/mobwatch/internal/engine"
	"github.com/gabe/mobwatch/internal/kv"
	"github.com/gabe/mobwatch/internal/observer"
)

func TestPIDFile(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), PIDFileName)

	if err := WritePID(pidFile, 12345); err != nil {
		t.Fatalf("failed to write PID: %v", err)
	}

	pid, err := ReadPID(pidFile)
	if err != nil {
		t.Fatalf("failed to read PID: %v", err)
	}
	if pid != 12345 {
		t.Errorf("expected PID 12345, got %d", pid)
	}

	if err := RemovePID(pidFile); err != nil {
		t.Fatalf("failed to remove PID: %v", err)
	}
	if _, err := ReadPID(pidFile); err == nil {
		t.Error("expected error reading removed PID file")
	}
	if err := RemovePID(pidFile); err != nil {
		t.Errorf("expected removing a missing PID file to succeed, got %v", err)
	}
}

func TestIsProcessRunning(t *testing.T) {
	if !IsProcessRunning(os.Getpid()) {
		t.Error("current process should be running")
	}
	if IsProcessRunning(999999999) {
		t.Error("non-existent process should not be running")
	}
	if IsProcessRunning(0) {
		t.Error("PID 0 should never count as running")
	}
}

func TestCheckExistingDaemon(t *testing.T) {
	pidFile := filepath.Join(t.TempDir(), PIDFileName)

	running, pid, err := CheckExistingDaemon(pidFile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if running || pid != 0 {
		t.Errorf("expected no daemon without a PID file, got running=%v pid=%d", running, pid)
	}

	if err := WritePID(pidFile, os.Getpid()); err != nil {
		t.Fatalf("failed to write PID: %v", err)
	}
	running, pid, err = CheckExistingDaemon(pidFile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !running || pid != os.Getpid() {
		t.Errorf("expected daemon running as %d, got running=%v pid=%d", os.Getpid(), running, pid)
	}

	if err := WritePID(pidFile, 999999999); err != nil {
		t.Fatalf("failed to write PID: %v", err)
	}
	running, _, err = CheckExistingDaemon(pidFile)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if running {
		t.Error("expected daemon not running with stale PID")
	}
	if _, err := os.Stat(pidFile); !os.IsNotExist(err) {
		t.Error("expected stale PID file to be removed")
	}

	if err := os.WriteFile(pidFile, []byte("garbage"), 0644); err != nil {
		t.Fatal(err)
	}
	if running, _, err := CheckExistingDaemon(pidFile); err != nil || running {
		t.Errorf("expected malformed PID file to be treated as stale, got running=%v err=%v", running, err)
	}
}

func TestDaemonNew(t *testing.T) {
	d := New("/test/mobwatch", config.DefaultConfig(), log.New(io.Discard, "", 0))

	if d.pidFile != "/test/mobwatch/mobwatch.pid" {
		t.Errorf("unexpected pidFile: %s", d.pidFile)
	}
	if d.state != StateIdle {
		t.Errorf("expected state Idle, got %s", d.state)
	}
}

func TestDaemonStatus(t *testing.T) {
	d := New(t.TempDir(), config.DefaultConfig(), log.New(io.Discard, "", 0))

	state, pid, err := d.Status()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if state != StateIdle {
		t.Errorf("expected state Idle, got %s", state)
	}
	if pid != 0 {
		t.Errorf("expected PID 0, got %d", pid)
	}

	signalled, err := d.Signal()
	if err != nil || signalled {
		t.Errorf("expected nothing to signal, got %v, %v", signalled, err)
	}
}

func testConfig() *config.Config {
	cfg := config.DefaultConfig()
	cfg.Storage.Backend = kv.BackendMemory
	cfg.Observer.Listen = "127.0.0.1:0"
	cfg.Observer.BroadcastInterval = "50ms"
	cfg.Simulation.Cadence = "50ms"
	cfg.Bridge.PollInterval = "50ms"
	return cfg
}

func TestRunServesScenesUntilStopped(t *testing.T) {
	dir := t.TempDir()
	d := New(dir, testConfig(), log.New(io.Discard, "", 0))

	done := make(chan error, 1)
	go func() {
		done <- d.Run(context.Background())
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	addr, err := d.ObserverAddr(ctx)
	if err != nil {
		t.Fatalf("observer never came up: %v", err)
	}

	var scene engine.Scene
	for {
		scene, err = observer.FetchScene(ctx, addr)
		if err == nil {
			break
		}
		if !errors.Is(err, observer.ErrNoScene) {
			t.Fatalf("failed to fetch scene: %v", err)
		}
		time.Sleep(20 * time.Millisecond)
	}
	if !scene.Simulated {
		t.Error("expected a simulated scene")
	}
	if len(scene.Agents) != 5 {
		t.Errorf("expected 5 agents, got %d", len(scene.Agents))
	}

	state, pid, err := d.Status()
	if err != nil || state != StateRunning || pid != os.Getpid() {
		t.Errorf("expected running as %d, got %s %d %v", os.Getpid(), state, pid, err)
	}

	d.Stop()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean stop, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("daemon did not stop")
	}
	if _, err := os.Stat(filepath.Join(dir, PIDFileName)); !os.IsNotExist(err) {
		t.Error("expected PID file to be removed on stop")
	}
}

func TestRunRefusesSecondDaemon(t *testing.T) {
	dir := t.TempDir()
	if err := WritePID(filepath.Join(dir, PIDFileName), os.Getpid()); err != nil {
		t.Fatal(err)
	}

	d := New(dir, testConfig(), log.New(io.Discard, "", 0))
	err := d.Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "already running") {
		t.Errorf("expected already running error, got %v", err)
	}
}
