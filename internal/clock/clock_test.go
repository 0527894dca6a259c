package clock

import (
	"math"
	"testing"
	"time"
)

func TestFrameTimer(t *testing.T) {
	fake := NewFake(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))
	ft := NewFrameTimer(100 * time.Millisecond)

	if dt := ft.Step(fake.Now()); dt != 0 {
		t.Errorf("expected first step 0, got %f", dt)
	}

	fake.Advance(16 * time.Millisecond)
	if dt := ft.Step(fake.Now()); math.Abs(dt-0.016) > 1e-9 {
		t.Errorf("expected 0.016, got %f", dt)
	}

	fake.Advance(5 * time.Second)
	if dt := ft.Step(fake.Now()); math.Abs(dt-0.1) > 1e-9 {
		t.Errorf("expected stall clamped to 0.1, got %f", dt)
	}

	ft.Reset()
	fake.Advance(time.Second)
	if dt := ft.Step(fake.Now()); dt != 0 {
		t.Errorf("expected 0 after reset, got %f", dt)
	}
}

func TestFrameTimerIgnoresBackwardsTime(t *testing.T) {
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	ft := NewFrameTimer(0)
	ft.Step(start)
	if dt := ft.Step(start.Add(-time.Second)); dt != 0 {
		t.Errorf("expected 0 for backwards time, got %f", dt)
	}
}
