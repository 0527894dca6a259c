package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gabe/mobwatch/internal/kv"
	"github.com/gabe/mobwatch/internal/models"
)

func (e *Engine) restoreAvatar(ctx context.Context) {
	if e.writes == nil {
		return
	}
	data, err := e.writes.Get(ctx, kv.KeyAvatar)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			e.logger.Printf("Engine: failed to restore avatar, using spawn point: %v\n", err)
		}
		return
	}
	var pos models.Vec2
	if err := json.Unmarshal(data, &pos); err != nil {
		e.logger.Printf("Engine: ignoring malformed avatar state: %v\n", err)
		return
	}
	// The map may have changed since the position was saved.
	cell, ok := e.grid.Locate(pos)
	if !ok || !e.grid.Walkable(cell) {
		return
	}
	e.mover.Place(AvatarID, pos)
	e.dirty = true
}

func (e *Engine) saveAvatar(ctx context.Context, pos models.Vec2) error {
	if e.writes == nil {
		return nil
	}
	data, err := json.Marshal(pos)
	if err != nil {
		return fmt.Errorf("failed to marshal avatar: %w", err)
	}
	return e.writes.Put(ctx, kv.KeyAvatar, data)
}

// AvatarPosition returns where the avatar currently stands
func (e *Engine) AvatarPosition() models.Vec2 {
	pos, _ := e.mover.Position(AvatarID)
	return pos
}

// MoveAvatarTo routes the avatar to a world point. It returns false and
// leaves the avatar where it is when no route exists.
func (e *Engine) MoveAvatarTo(world models.Vec2) bool {
	if !e.mover.StartPath(AvatarID, e.AvatarPosition(), world) {
		return false
	}
	e.dirty = true
	return true
}

// WalkToAgent selects an agent and sends the avatar to it
func (e *Engine) WalkToAgent(id string) bool {
	agent, ok := e.store.Agent(id)
	if !ok {
		return false
	}
	e.store.Select(id)
	return e.MoveAvatarTo(agent.Position)
}

// AgentAt returns the agent standing on the tile under a world point
func (e *Engine) AgentAt(world models.Vec2) (string, bool) {
	cell, ok := e.grid.Locate(world)
	if !ok {
		return "", false
	}
	for _, a := range e.store.Agents() {
		if c, ok := e.grid.Locate(a.Position); ok && c == cell {
			return a.ID, true
		}
	}
	return "", false
}

// ClickScreen handles a click at a screen point: clicking an agent selects
// it, clicking anywhere else walks the avatar there. It reports whether
// anything happened.
func (e *Engine) ClickScreen(screen models.Vec2) bool {
	world := e.camera.ScreenToWorld(screen)
	if id, ok := e.AgentAt(world); ok {
		e.store.Select(id)
		return true
	}
	return e.MoveAvatarTo(world)
}
