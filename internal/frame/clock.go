package frame

import (
	"sync"
	"time"
)

// smoothing is the weight of the newest sample in the FPS average.
const smoothing = 0.1

// Clock measures frame deltas and a smoothed frame rate. It is safe to read
// FPS from other goroutines while one goroutine ticks it.
type Clock struct {
	mu   sync.Mutex
	last time.Time
	fps  float64
}

// NewClock returns a clock that reports target until real samples arrive.
func NewClock(target float64) *Clock {
	return &Clock{fps: target}
}

// Tick records a frame at now and returns the time since the previous one.
// The first tick returns zero.
func (c *Clock) Tick(now time.Time) time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.last.IsZero() {
		c.last = now
		return 0
	}
	delta := now.Sub(c.last)
	c.last = now
	if delta > 0 {
		sample := float64(time.Second) / float64(delta)
		if c.fps <= 0 {
			c.fps = sample
		} else {
			c.fps += smoothing * (sample - c.fps)
		}
	}
	return delta
}

// FPS returns the smoothed frame rate.
func (c *Clock) FPS() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.fps
}

// Ticks converts a duration to a whole number of frames at rate, at least 1.
func Ticks(d time.Duration, rate int) int {
	t := int(d.Seconds() * float64(rate))
	if t < 1 {
		t = 1
	}
	return t
}
