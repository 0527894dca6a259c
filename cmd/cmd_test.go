package cmd

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/gabe/mobwatch/internal/models"
	"github.com/gabe/mobwatch/internal/protocol"
)

func TestParseVec(t *testing.T) {
	tests := []struct {
		in      string
		want    models.Vec2
		wantErr bool
	}{
		{"16,48", models.Vec2{X: 16, Y: 48}, false},
		{" 1.5 , -2 ", models.Vec2{X: 1.5, Y: -2}, false},
		{"16", models.Vec2{}, true},
		{"x,2", models.Vec2{}, true},
		{"2,y", models.Vec2{}, true},
	}
	for _, tt := range tests {
		got, err := parseVec(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseVec(%q): expected error %v, got %v", tt.in, tt.wantErr, err)
			continue
		}
		if got != tt.want {
			t.Errorf("parseVec(%q): expected %v, got %v", tt.in, tt.want, got)
		}
	}
}

func TestFormatVec(t *testing.T) {
	if got := formatVec(models.Vec2{X: 16, Y: 48.5}); got != "16,48.5" {
		t.Errorf("expected 16,48.5, got %s", got)
	}
}

func TestFormatRelativeTime(t *testing.T) {
	if got := formatRelativeTime(time.Now().Add(-5 * time.Minute)); got != "5m ago" {
		t.Errorf("expected 5m ago, got %s", got)
	}
	if got := formatRelativeTime(time.Now().Add(-3 * time.Hour)); got != "3h ago" {
		t.Errorf("expected 3h ago, got %s", got)
	}
}

func TestCommandsRegistered(t *testing.T) {
	want := []string{"daemon", "init", "logs", "path", "status", "tell", "version", "view"}
	for _, name := range want {
		found := false
		for _, c := range rootCmd.Commands() {
			if c.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected %s command to be registered", name)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	versionCmd.SetOut(&out)
	versionCmd.Run(versionCmd, nil)

	if !strings.HasPrefix(out.String(), "mobwatch version ") {
		t.Errorf("unexpected version output: %q", out.String())
	}
	if !strings.Contains(out.String(), "commit:") {
		t.Errorf("expected commit line, got %q", out.String())
	}
}

func TestPrintCommands(t *testing.T) {
	at := time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)
	cmds := []protocol.Command{
		protocol.NewCommand("vinnie", "nudge", nil, at),
		protocol.NewCommand("sal", "focus", []string{"tests"}, at),
		protocol.NewCommand("vinnie", "stop", []string{"now"}, at),
	}

	var out bytes.Buffer
	printCommands(&out, cmds, "vinnie", 0)
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 commands for vinnie, got %q", out.String())
	}
	if !strings.Contains(lines[1], "stop now") || !strings.Contains(lines[1], cmds[2].ID) {
		t.Errorf("expected the newest command last, got %q", lines[1])
	}

	out.Reset()
	printCommands(&out, cmds, "", 1)
	if !strings.Contains(out.String(), "stop now") || strings.Contains(out.String(), "focus") {
		t.Errorf("expected only the last command, got %q", out.String())
	}

	out.Reset()
	printCommands(&out, cmds, "nobody", 0)
	if strings.TrimSpace(out.String()) != "No commands" {
		t.Errorf("expected no commands, got %q", out.String())
	}
}
