package engine

import (
	"time"

	"github.com/gabe/mobwatch/internal/bridge"
	"github.com/gabe/mobwatch/internal/models"
)

// Scene is a self-contained snapshot for renderers and observers
type Scene struct {
	Timestamp time.Time               `json:"timestamp"`
	Map       string                  `json:"map"`
	World     models.Vec2             `json:"world"`
	TileSize  float64                 `json:"tile_size"`
	Agents    []models.Agent          `json:"agents"`
	Selected  string                  `json:"selected,omitempty"`
	Activity  []models.ActivityRecord `json:"activity"`
	Camera    models.CameraState      `json:"camera"`
	Connected bool                    `json:"connected"`
	Simulated bool                    `json:"simulated"`
	Source    string                  `json:"source,omitempty"`
	Stats     *bridge.Stats           `json:"stats,omitempty"`
	Avatar    Avatar                  `json:"avatar"`
}

// Avatar is the operator-controlled entity in a scene
type Avatar struct {
	Position models.Vec2   `json:"position"`
	Moving   bool          `json:"moving"`
	Path     []models.Vec2 `json:"path,omitempty"`
}

// Scene captures the current state
func (e *Engine) Scene() Scene {
	s := Scene{
		Timestamp: e.clock.Now(),
		Map:       e.world.Name,
		World:     e.grid.WorldSize(),
		TileSize:  e.grid.TileSize(),
		Agents:    e.store.Agents(),
		Selected:  e.store.SelectedID(),
		Activity:  e.store.Activity(),
		Camera:    e.camera.State(),
		Source:    e.source,
		Avatar:    Avatar{Position: e.AvatarPosition()},
	}
	if e.bridge != nil {
		s.Connected = e.bridge.Connected()
		s.Simulated = e.bridge.Simulated()
		stats := e.bridge.Stats()
		s.Stats = &stats
	}
	if t, ok := e.mover.Track(AvatarID); ok && t.Moving {
		s.Avatar.Moving = true
		s.Avatar.Path = t.Remaining()
	}
	return s
}
