// Package clock provides the time sources shared by the frame loop, camera
// animation and persistence debouncing.
package clock

import (
	"sync"
	"time"
)

// DefaultMaxStep caps a single frame's elapsed time
const DefaultMaxStep = 250 * time.Millisecond

// Clock reports the current time. Values from Real carry Go's monotonic
// reading, so differences between them are immune to wall-clock jumps.
type Clock interface {
	Now() time.Time
}

// Real is the system clock
type Real struct{}

func (Real) Now() time.Time { return time.Now() }

// Fake is a manually advanced clock for tests
type Fake struct {
	mu sync.Mutex
	t  time.Time
}

// NewFake creates a fake clock starting at t
func NewFake(t time.Time) *Fake {
	return &Fake{t: t}
}

func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

// Advance moves the clock forward by d
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.t = f.t.Add(d)
}

// FrameTimer turns successive frame timestamps into elapsed seconds
type FrameTimer struct {
	last    time.Time
	maxStep time.Duration
}

// NewFrameTimer creates a timer that clamps each step to maxStep
// (DefaultMaxStep when maxStep <= 0).
func NewFrameTimer(maxStep time.Duration) *FrameTimer {
	if maxStep <= 0 {
		maxStep = DefaultMaxStep
	}
	return &FrameTimer{maxStep: maxStep}
}

// Step returns the seconds elapsed since the previous call. The first call
// returns 0. Stalls longer than the cap are reported as the cap so moving
// entities do not jump across the map after a pause.
func (ft *FrameTimer) Step(now time.Time) float64 {
	if ft.last.IsZero() {
		ft.last = now
		return 0
	}
	d := now.Sub(ft.last)
	ft.last = now
	if d < 0 {
		return 0
	}
	if d > ft.maxStep {
		d = ft.maxStep
	}
	return d.Seconds()
}

// Reset forgets the previous frame so the next Step returns 0
func (ft *FrameTimer) Reset() {
	ft.last = time.Time{}
}
