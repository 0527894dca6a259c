package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gabe/mobwatch/internal/models"
	"github.com/gabe/mobwatch/internal/protocol"
	"github.com/gabe/mobwatch/internal/store"
)

const unassignedDepartment = "unassigned"

// outcome is what one event does to the store
type outcome struct {
	status   models.AgentStatus
	activity string
	record   models.ActivityRecord
}

// reduce maps an event to its status, activity text and log record
func reduce(ev protocol.Event) (outcome, error) {
	rec := models.ActivityRecord{
		Timestamp: ev.Timestamp,
		AgentID:   ev.AgentID,
		Kind:      models.ActivityKind(ev.Type),
	}

	switch ev.Type {
	case protocol.TypeAgentState:
		status, err := models.ParseStatus(ev.Status)
		if err != nil {
			return outcome{}, err
		}
		rec.Description = string(status)
		if ev.Activity != "" {
			rec.Description += ": " + ev.Activity
		}
		return outcome{status: status, activity: ev.Activity, record: rec}, nil

	case protocol.TypeToolStart:
		activity := ev.ToolName
		if ev.Description != "" {
			activity = ev.ToolName + ": " + ev.Description
		}
		rec.ToolName = ev.ToolName
		rec.Description = activity
		return outcome{status: models.AgentStatusWorking, activity: activity, record: rec}, nil

	case protocol.TypeToolComplete:
		activity := ev.Summary
		if activity == "" {
			activity = ev.ToolName + " done"
		}
		rec.ToolName = ev.ToolName
		rec.Success = models.BoolPtr(ev.Success != nil && *ev.Success)
		rec.Description = activity
		if d := ev.DurationTime(); d > 0 {
			rec.Description = fmt.Sprintf("%s (%s)", activity, d.Round(time.Millisecond))
		}
		return outcome{status: models.AgentStatusThinking, activity: activity, record: rec}, nil

	case protocol.TypeTaskAssigned:
		rec.Description = ev.TaskDescription
		if ev.Priority != "" && ev.Priority != protocol.PriorityNormal {
			rec.Description = fmt.Sprintf("[%s] %s", ev.Priority, ev.TaskDescription)
		}
		return outcome{status: models.AgentStatusWorking, activity: ev.TaskDescription, record: rec}, nil

	case protocol.TypeAgentStop:
		rec.Description = "stopped"
		if ev.Summary != "" {
			rec.Description = "stopped: " + ev.Summary
		}
		return outcome{status: models.AgentStatusIdle, activity: ev.Summary, record: rec}, nil
	}
	return outcome{}, fmt.Errorf("%w: %q", protocol.ErrUnknownType, ev.Type)
}

// Fold reduces one inbound event into the store, the journal and the
// notifier. Agents seen for the first time are registered on the spot.
func (e *Engine) Fold(ev protocol.Event) {
	out, err := reduce(ev)
	if err != nil {
		e.logger.Printf("Engine: dropping %s event for %s: %v\n", ev.Type, ev.AgentID, err)
		return
	}
	if !e.store.Has(ev.AgentID) {
		if err := e.registerAgent(ev.AgentID, true); err != nil {
			e.logger.Printf("Engine: failed to register agent %s: %v\n", ev.AgentID, err)
			return
		}
	}
	if err := e.store.SetStatus(ev.AgentID, out.status, out.activity); err != nil {
		e.logger.Printf("Engine: failed to set status of %s: %v\n", ev.AgentID, err)
		return
	}
	e.record(out.record)

	if e.notifier == nil {
		return
	}
	agent, _ := e.store.Agent(ev.AgentID)
	switch {
	case ev.Type == protocol.TypeAgentStop:
		e.notifier.NotifyAgentStopped(agent.Name, agent.ID, ev.Summary)
	case out.status == models.AgentStatusError:
		e.notifier.NotifyAgentError(agent.Name, agent.ID, ev.Activity)
	}
}

// record appends to the in-memory log and mirrors to the journal
func (e *Engine) record(rec models.ActivityRecord) models.ActivityRecord {
	rec = e.store.AppendActivity(rec)
	if e.journal != nil {
		if err := e.journal.Append(rec); err != nil {
			e.logger.Printf("Engine: failed to journal activity: %v\n", err)
		}
	}
	return rec
}

// registerAgent adds id to the store at its desk, or at a free seat. With
// walk set, an agent without a desk appears at the spawn point and walks
// to its seat.
func (e *Engine) registerAgent(id string, walk bool) error {
	if id == "" {
		return store.ErrEmptyID
	}
	agent := models.Agent{ID: id, Name: id, Department: unassignedDepartment}
	if m, ok := e.crew[id]; ok {
		agent.Name = m.Name
		agent.Role = m.Role
		agent.Department = m.Department
	}

	seat, atDesk := e.world.DeskPosition(id)
	if !atDesk {
		seat = e.claimSeat(id)
	}
	start := seat
	if walk && !atDesk {
		start = e.world.SpawnPosition()
	}
	agent.Position = start
	if err := e.store.Register(agent); err != nil {
		return err
	}

	e.mover.Place(id, start)
	if start != seat && !e.mover.StartPath(id, start, seat) {
		e.mover.Place(id, seat)
		e.store.SetPosition(id, seat)
	}
	return nil
}

// claimSeat hands out the first free seat, or the spawn point when the map
// is full
func (e *Engine) claimSeat(id string) models.Vec2 {
	for _, pos := range e.world.SeatPositions() {
		if _, taken := e.claimed[pos]; !taken {
			e.claimed[pos] = id
			return pos
		}
	}
	return e.world.SpawnPosition()
}

func (e *Engine) entityMoved(entity string, pos models.Vec2) {
	e.dirty = true
	if entity == AvatarID {
		return
	}
	e.store.SetPosition(entity, pos)
}

func (e *Engine) entityArrived(entity string, pos models.Vec2) {
	e.dirty = true
	if entity == AvatarID {
		if err := e.saveAvatar(context.Background(), pos); err != nil {
			e.logger.Printf("Engine: failed to persist avatar: %v\n", err)
		}
		return
	}
	e.store.SetPosition(entity, pos)
}

func joinArgs(command string, args []string) string {
	if len(args) == 0 {
		return command
	}
	return command + " " + strings.Join(args, " ")
}
