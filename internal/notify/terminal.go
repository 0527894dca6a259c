package notify

import (
	"fmt"
	"os/exec"
	"runtime"
	"slices"
	"strings"
)

// TerminalNotifier raises macOS desktop notifications through osascript.
// Elsewhere it is a no-op.
type TerminalNotifier struct {
	enabled bool
	types   []NotificationType
}

// NewTerminalNotifier creates a terminal notifier for the given types, or
// for every type when none are given.
func NewTerminalNotifier(types ...NotificationType) *TerminalNotifier {
	return &TerminalNotifier{
		enabled: runtime.GOOS == "darwin",
		types:   types,
	}
}

// Enabled reports whether notifications will actually be shown
func (t *TerminalNotifier) Enabled() bool {
	return t.enabled
}

func (t *TerminalNotifier) wants(typ NotificationType) bool {
	return len(t.types) == 0 || slices.Contains(t.types, typ)
}

// Notify starts osascript and returns without waiting for it
func (t *TerminalNotifier) Notify(notification Notification) error {
	if !t.enabled || !t.wants(notification.Type) {
		return nil
	}

	title := escapeAppleScript(notification.Title)
	message := escapeAppleScript(notification.Message)
	script := fmt.Sprintf(`display notification "%s" with title "%s"`, message, title)

	cmd := exec.Command("osascript", "-e", script)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to send terminal notification: %w", err)
	}
	go cmd.Wait()
	return nil
}

// Close cleans up resources (no-op for terminal notifier)
func (t *TerminalNotifier) Close() error {
	return nil
}

// escapeAppleScript escapes quotes and backslashes for AppleScript
func escapeAppleScript(s string) string {
	s = strings.ReplaceAll(s, "\\", "\\\\")
	s = strings.ReplaceAll(s, "\"", "\\\"")
	return s
}
