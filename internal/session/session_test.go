package session

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/gabe/mobwatch/internal/bridge"
	"github.com/gabe/mobwatch/internal/config"
	"github.com/gabe/mobwatch/internal/grid"
	"github.com/gabe/mobwatch/internal/kv"
	"github.com/gabe/mobwatch/internal/notify"
)

type mockNotifier struct {
	sent   []notify.Notification
	closed bool
}

func (m *mockNotifier) Notify(n notify.Notification) error {
	m.sent = append(m.sent, n)
	return nil
}

func (m *mockNotifier) Close() error {
	m.closed = true
	return nil
}

func TestOpenSimulatedSession(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Simulation.Seed = 3

	s, err := Open(t.TempDir(), cfg, nil, WithEphemeralStorage())
	if err != nil {
		t.Fatalf("failed to open session: %v", err)
	}
	defer s.Close(context.Background())

	if !s.Transport.Simulated || !s.Bridge.Simulated() {
		t.Error("expected a simulated bridge")
	}
	if got := s.Engine.Store().Len(); got != 5 {
		t.Errorf("expected 5 crew members registered, got %d", got)
	}
	if got := s.Engine.Map().Name; got != "office" {
		t.Errorf("expected default office map, got %q", got)
	}
}

func TestCrew(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Simulation.Agents = 4
	cfg.Simulation.Seed = 11

	a, b := Crew(cfg), Crew(cfg)
	if len(a) != 4 {
		t.Fatalf("expected 4 members, got %d", len(a))
	}
	for i := range a {
		if a[i] != b[i] {
			t.Errorf("expected seeded crew to repeat, got %v and %v", a[i], b[i])
		}
	}

	cfg.Bridge.Source = bridge.SourceHTTP
	if crew := Crew(cfg); crew != nil {
		t.Errorf("expected no crew for a live source, got %v", crew)
	}
}

func TestOpenTransport(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()

	cfg.Bridge.Source = bridge.SourceSpool
	tr, err := OpenTransport(dir, cfg, nil)
	if err != nil {
		t.Fatalf("failed to open spool: %v", err)
	}
	if tr.Simulated || !strings.HasPrefix(tr.Name, "spool ") {
		t.Errorf("unexpected spool transport %+v", tr)
	}
	if _, err := os.Stat(filepath.Join(dir, "spool")); err != nil {
		t.Errorf("expected spool directory to be created: %v", err)
	}

	cfg.Bridge.Source = bridge.SourceHTTP
	tr, err = OpenTransport(dir, cfg, nil)
	if err != nil {
		t.Fatalf("failed to open http source: %v", err)
	}
	if tr.Name != "http://127.0.0.1:7420" {
		t.Errorf("expected endpoint as name, got %q", tr.Name)
	}

	cfg.Bridge.Endpoint = "ftp://example"
	if _, err := OpenTransport(dir, cfg, nil); err == nil {
		t.Error("expected non-http endpoint to fail")
	}

	cfg.Bridge.Source = "carrier-pigeon"
	if _, err := OpenTransport(dir, cfg, nil); !errors.Is(err, bridge.ErrUnknownSource) {
		t.Errorf("expected ErrUnknownSource, got %v", err)
	}
}

func TestLoadMapFromFile(t *testing.T) {
	dir := t.TempDir()
	floor := grid.DefaultMap(320, 320, 32)
	floor.Name = "annex"
	if err := grid.SaveMap(filepath.Join(dir, "annex.yaml"), floor); err != nil {
		t.Fatal(err)
	}

	cfg := config.DefaultConfig()
	cfg.World.MapFile = "annex.yaml"
	m, err := LoadMap(dir, cfg)
	if err != nil {
		t.Fatalf("failed to load map: %v", err)
	}
	if m.Name != "annex" {
		t.Errorf("expected annex, got %q", m.Name)
	}

	cfg.World.MapFile = "missing.yaml"
	if _, err := Open(dir, cfg, nil, WithEphemeralStorage()); err == nil {
		t.Error("expected missing map to fail Open")
	}
}

func TestStartAndClosePersistsState(t *testing.T) {
	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Storage.Backend = kv.BackendFile
	cfg.Storage.Path = "state.json"

	extra := &mockNotifier{}
	s, err := Open(dir, cfg, nil, WithNotifier(extra), WithoutPatrol())
	if err != nil {
		t.Fatalf("failed to open session: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("failed to start: %v", err)
	}
	if !s.Bridge.Running() {
		t.Error("expected bridge to be running")
	}
	if s.Engine.Patrol() != nil {
		t.Error("expected no patrol")
	}

	if err := s.Close(context.Background()); err != nil {
		t.Fatalf("failed to close: %v", err)
	}
	if s.Bridge.Running() {
		t.Error("expected bridge to stop on close")
	}
	if !extra.closed {
		t.Error("expected extra notifier to be closed")
	}

	store := kv.NewFile(filepath.Join(dir, "state.json"))
	if _, err := store.Get(context.Background(), kv.KeyAvatar); err != nil {
		t.Errorf("expected avatar to be persisted: %v", err)
	}
}
