package camera

import (
	"time"

	"github.com/gabe/mobwatch/internal/models"
)

type animation struct {
	from     models.CameraState
	to       models.CameraState
	start    time.Time
	duration time.Duration
}

// EaseOutCubic maps linear progress t in [0,1] to 1-(1-t)^3
func EaseOutCubic(t float64) float64 {
	if t <= 0 {
		return 0
	}
	if t >= 1 {
		return 1
	}
	u := 1 - t
	return 1 - u*u*u
}

// transition moves to target either at once or as an animation. A new
// animation replaces the one in flight, starting from wherever the camera is.
func (c *Controller) transition(target models.CameraState, animate bool) {
	target = c.clamp(target)
	if !animate || c.cfg.Animation <= 0 {
		c.anim = nil
		c.set(target, true)
		return
	}
	c.anim = &animation{
		from:     c.state,
		to:       target,
		start:    c.clock.Now(),
		duration: c.cfg.Animation,
	}
}

// Tick samples the running animation at the current time and flushes a
// pending persistence write once the debounce window has passed.
func (c *Controller) Tick() {
	now := c.clock.Now()
	if a := c.anim; a != nil {
		t := float64(now.Sub(a.start)) / float64(a.duration)
		if t >= 1 {
			c.anim = nil
			c.set(a.to, true)
		} else {
			e := EaseOutCubic(t)
			c.set(models.CameraState{
				X:    a.from.X + (a.to.X-a.from.X)*e,
				Y:    a.from.Y + (a.to.Y-a.from.Y)*e,
				Zoom: a.from.Zoom + (a.to.Zoom-a.from.Zoom)*e,
			}, false)
		}
	}
	c.maybePersist(now)
}

// Target returns where the camera is heading: the animation end state, or
// the current state when idle.
func (c *Controller) Target() models.CameraState {
	if c.anim != nil {
		return c.anim.to
	}
	return c.state
}
