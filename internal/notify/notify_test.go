package notify

import (
	"bytes"
	"errors"
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// mockNotifier records notifications and optionally fails
type mockNotifier struct {
	received []Notification
	err      error
	closed   bool
}

func (m *mockNotifier) Notify(n Notification) error {
	m.received = append(m.received, n)
	return m.err
}

func (m *mockNotifier) Close() error {
	m.closed = true
	return nil
}

func TestManagerFansOut(t *testing.T) {
	failing := &mockNotifier{err: errors.New("boom")}
	ok := &mockNotifier{}
	manager := NewManager(failing)
	manager.Add(ok)

	if err := manager.NotifyAgentStopped("Vinnie", "vinnie", "done with login"); err == nil {
		t.Error("expected the backend error to be returned")
	}
	if len(ok.received) != 1 {
		t.Fatal("a failing backend must not stop the others")
	}
	n := ok.received[0]
	if n.Type != NotificationTypeAgentStopped || n.AgentID != "vinnie" || n.Timestamp.IsZero() {
		t.Errorf("unexpected notification %+v", n)
	}
	if n.Message != "Vinnie stopped: done with login" {
		t.Errorf("unexpected message %q", n.Message)
	}

	manager.Close()
	if !failing.closed || !ok.closed {
		t.Error("expected all backends closed")
	}
}

func TestNotifyConnectivity(t *testing.T) {
	rec := &mockNotifier{}
	manager := NewManager(rec)
	manager.NotifyConnectivity(false, "http://localhost:7070")
	manager.NotifyConnectivity(true, "http://localhost:7070")

	if len(rec.received) != 2 {
		t.Fatalf("expected 2 notifications, got %d", len(rec.received))
	}
	if rec.received[0].Type != NotificationTypeDisconnected || rec.received[1].Type != NotificationTypeReconnected {
		t.Errorf("unexpected types %s, %s", rec.received[0].Type, rec.received[1].Type)
	}
}

func TestNotifyCommandFailed(t *testing.T) {
	rec := &mockNotifier{}
	NewManager(rec).NotifyCommandFailed("sal", "pause", errors.New("409 Conflict"))
	if got := rec.received[0].Message; got != "pause for sal: 409 Conflict" {
		t.Errorf("unexpected message %q", got)
	}
}

func TestTerminalNotifierFilters(t *testing.T) {
	notifier := NewTerminalNotifier(NotificationTypeAgentError)
	if notifier.wants(NotificationTypeInfo) {
		t.Error("info should be filtered out")
	}
	if !notifier.wants(NotificationTypeAgentError) {
		t.Error("agent errors should pass")
	}
	if !NewTerminalNotifier().wants(NotificationTypeInfo) {
		t.Error("no filter means every type")
	}

	// disabled notifiers are silent no-ops
	notifier.enabled = false
	if err := notifier.Notify(Notification{Type: NotificationTypeAgentError}); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestEscapeAppleScript(t *testing.T) {
	got := escapeAppleScript(`say "hi" \ bye`)
	want := `say \"hi\" \\ bye`
	if got != want {
		t.Errorf("expected %s, got %s", want, got)
	}
}

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	n := NewLogNotifier(log.New(&buf, "", 0))
	n.Notify(Notification{Type: NotificationTypeAgentError, Title: "Agent Error", Message: "tests failed", AgentID: "rocco"})
	if !strings.Contains(buf.String(), "(rocco)") || !strings.Contains(buf.String(), "tests failed") {
		t.Errorf("unexpected log line %q", buf.String())
	}
}

func TestSummaryReporter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notifications.log")
	reporter := NewSummaryReporter(path, time.Hour)
	reporter.Start()

	for i := 0; i < 3; i++ {
		reporter.Notify(Notification{Type: NotificationTypeAgentStopped, AgentID: "vinnie", Message: "stopped"})
	}
	reporter.Notify(Notification{Type: NotificationTypeDisconnected, Message: "lost contact"})

	// Close writes the final digest
	reporter.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("summary file not written: %v", err)
	}
	out := string(data)
	for _, want := range []string{"Total notifications: 4", "agent_stopped: 3", "disconnected: 1", "vinnie: 3", "lost contact"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}
