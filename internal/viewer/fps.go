package viewer

import "time"

// FPSCounter averages frames over a fixed window.
type FPSCounter struct {
	window time.Duration
	start  time.Time
	frames int
	fps    float32
}

// NewFPSCounter creates a counter that reports once per window.
func NewFPSCounter(window time.Duration, now time.Time) *FPSCounter {
	return &FPSCounter{window: window, start: now}
}

// Frame records a frame. It returns true when a new average is available.
func (c *FPSCounter) Frame(now time.Time) bool {
	c.frames++
	elapsed := now.Sub(c.start)
	if elapsed < c.window {
		return false
	}
	c.fps = float32(float64(c.frames) / elapsed.Seconds())
	c.frames = 0
	c.start = now
	return true
}

// FPS returns the last average.
func (c *FPSCounter) FPS() float32 {
	return c.fps
}

// frameBudget returns how long a frame may take for the given limit.
// Zero means unlimited.
func frameBudget(limit int) time.Duration {
	if limit <= 0 {
		return 0
	}
	return time.Second / time.Duration(limit)
}
