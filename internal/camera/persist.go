package camera

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/gabe/mobwatch/internal/kv"
	"github.com/gabe/mobwatch/internal/models"
)

// ErrMalformedState is returned when persisted data does not describe a camera
var ErrMalformedState = errors.New("malformed camera state")

// Persister loads and saves camera state
type Persister interface {
	Load(ctx context.Context) (models.CameraState, error)
	Save(ctx context.Context, state models.CameraState) error
}

// KVPersister stores camera state as {x, y, zoom} JSON under one key
type KVPersister struct {
	store kv.ReadWriter
	key   string
}

// NewKVPersister persists under kv.KeyCamera
func NewKVPersister(store kv.ReadWriter) *KVPersister {
	return &KVPersister{store: store, key: kv.KeyCamera}
}

type persistedState struct {
	X    *float64 `json:"x"`
	Y    *float64 `json:"y"`
	Zoom *float64 `json:"zoom"`
}

func (p *KVPersister) Load(ctx context.Context) (models.CameraState, error) {
	raw, err := p.store.Get(ctx, p.key)
	if err != nil {
		return models.CameraState{}, err
	}
	var ps persistedState
	if err := json.Unmarshal(raw, &ps); err != nil {
		return models.CameraState{}, fmt.Errorf("%w: %v", ErrMalformedState, err)
	}
	if ps.X == nil || ps.Y == nil || ps.Zoom == nil {
		return models.CameraState{}, fmt.Errorf("%w: missing field", ErrMalformedState)
	}
	s := models.CameraState{X: *ps.X, Y: *ps.Y, Zoom: *ps.Zoom}
	if !finite(s.X) || !finite(s.Y) || !finite(s.Zoom) || s.Zoom <= 0 {
		return models.CameraState{}, fmt.Errorf("%w: out of range", ErrMalformedState)
	}
	return s, nil
}

func (p *KVPersister) Save(ctx context.Context, state models.CameraState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal camera state: %w", err)
	}
	return p.store.Put(ctx, p.key, data)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Restore loads the persisted state, clamped to the current limits. Any
// failure is logged and leaves the default state in place; it reports
// whether persisted state was applied.
func (c *Controller) Restore(ctx context.Context) bool {
	if c.persister == nil {
		return false
	}
	s, err := c.persister.Load(ctx)
	if err != nil {
		if !errors.Is(err, kv.ErrNotFound) {
			c.logger.Printf("Camera: failed to restore state, using default: %v\n", err)
		}
		c.state = c.DefaultState()
		return false
	}
	c.anim = nil
	c.state = c.clamp(s)
	c.dirty = false
	if c.onChange != nil {
		c.onChange(c.state)
	}
	return true
}

func (c *Controller) markDirty() {
	if c.persister == nil {
		return
	}
	c.dirty = true
	c.dirtyAt = c.clock.Now()
}

func (c *Controller) maybePersist(now time.Time) {
	if !c.dirty || c.anim != nil {
		return
	}
	if now.Sub(c.dirtyAt) < c.cfg.PersistDebounce {
		return
	}
	c.persist(context.Background())
}

func (c *Controller) persist(ctx context.Context) error {
	c.dirty = false
	if err := c.persister.Save(ctx, c.state); err != nil {
		c.logger.Printf("Camera: failed to persist state: %v\n", err)
		return err
	}
	return nil
}

// Flush writes a pending state immediately, ignoring the debounce. It is
// called on shutdown.
func (c *Controller) Flush(ctx context.Context) error {
	if c.persister == nil || !c.dirty {
		return nil
	}
	return c.persist(ctx)
}
