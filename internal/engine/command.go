package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/gabe/mobwatch/internal/bridge"
	"github.com/gabe/mobwatch/internal/models"
	"github.com/gabe/mobwatch/internal/patrol"
	"github.com/gabe/mobwatch/internal/protocol"
	"github.com/gabe/mobwatch/internal/store"
)

// StartBridge attaches b and starts polling. b must dispatch through Post.
// source names the transport in notifications.
func (e *Engine) StartBridge(ctx context.Context, b *bridge.Bridge, source string) error {
	if e.bridge != nil {
		return bridge.ErrAlreadyRunning
	}
	e.bridge = b
	e.source = source
	b.OnConnectivity(e.connectivityChanged)
	if err := b.Start(ctx, e.Fold); err != nil {
		e.bridge = nil
		return err
	}
	return nil
}

func (e *Engine) connectivityChanged(connected bool) {
	e.dirty = true
	if connected {
		e.logger.Printf("Engine: connected to %s\n", e.source)
	} else {
		e.logger.Printf("Engine: lost connection to %s\n", e.source)
	}
	if e.notifier != nil {
		e.notifier.NotifyConnectivity(connected, e.source)
	}
}

// SendCommand forwards a command to an agent. The outcome is added to the
// activity log once the transport answers; a failure also notifies.
func (e *Engine) SendCommand(ctx context.Context, target, command string, args []string) (protocol.Command, error) {
	if e.bridge == nil {
		return protocol.Command{}, ErrNoBridge
	}
	if !e.store.Has(target) {
		return protocol.Command{}, fmt.Errorf("%w: %s", store.ErrUnknownAgent, target)
	}
	return e.bridge.SendCommand(ctx, target, command, args, e.commandDone), nil
}

func (e *Engine) commandDone(res bridge.Result) {
	cmd := res.Command
	rec := models.ActivityRecord{
		AgentID: cmd.TargetAgent,
		Kind:    models.ActivityKindCommand,
		Success: models.BoolPtr(res.Accepted()),
	}
	text := joinArgs(cmd.Command, cmd.Args)
	switch {
	case !res.Accepted():
		rec.Description = fmt.Sprintf("command failed: %s: %v", text, res.Err)
	case res.Local:
		rec.Description = "command queued locally: " + text
	default:
		rec.Description = "command sent: " + text
	}
	e.record(rec)

	if !res.Accepted() && e.notifier != nil {
		e.notifier.NotifyCommandFailed(cmd.TargetAgent, cmd.Command, res.Err)
	}
}

// StartPatrol watches for active agents that have gone quiet for longer
// than staleAfter and marks them offline. It runs until ctx is cancelled.
func (e *Engine) StartPatrol(ctx context.Context, staleAfter time.Duration) *patrol.Patrol {
	interval := min(30*time.Second, max(staleAfter/4, time.Second))
	e.patrol = patrol.New(e.store,
		patrol.WithInterval(interval),
		patrol.WithStaleTimeout(staleAfter),
		patrol.WithClock(e.clock),
		patrol.WithDispatcher(e.Post),
		patrol.WithOnStale(e.agentStale),
	)
	go e.patrol.Start(ctx)
	return e.patrol
}

func (e *Engine) agentStale(s patrol.AgentStatus) {
	if err := e.store.SetStatus(s.AgentID, models.AgentStatusOffline, s.Message); err != nil {
		return
	}
	e.record(models.ActivityRecord{
		AgentID:     s.AgentID,
		Kind:        models.ActivityKindAgentState,
		Description: "offline: " + s.Message,
	})
	if e.notifier != nil {
		e.notifier.NotifyAgentError(s.Name, s.AgentID, s.Message)
	}
}
