package video

import (
	"math"
	"sync"
	"time"
)

// Clock is a wall-clock playback position bounded by a duration. Reaching
// the end pauses playback.
type Clock struct {
	mu       sync.Mutex
	duration float64
	pos      float64
	playing  bool
	since    time.Time
	now      func() time.Time
}

// NewClock returns a paused clock at zero.
func NewClock(duration float64, now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{duration: duration, now: now}
}

func (c *Clock) current() float64 {
	if !c.playing {
		return c.pos
	}
	p := c.pos + c.now().Sub(c.since).Seconds()
	if p >= c.duration {
		c.pos = c.duration
		c.playing = false
		return c.duration
	}
	return p
}

// CurrentTime returns the position in seconds.
func (c *Clock) CurrentTime() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current()
}

// Duration returns the clock's length.
func (c *Clock) Duration() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.duration
}

// SetDuration changes the length, pulling the position back if needed.
func (c *Clock) SetDuration(d float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pos = math.Min(c.current(), d)
	c.since = c.now()
	c.duration = d
}

// Play starts the clock, rewinding first if it sits at the end.
func (c *Clock) Play() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.playing {
		return
	}
	if c.pos >= c.duration {
		c.pos = 0
	}
	c.playing = true
	c.since = c.now()
}

// Pause freezes the clock at its current position.
func (c *Clock) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pos = c.current()
	c.playing = false
}

// Playing reports whether the clock is running.
func (c *Clock) Playing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current()
	return c.playing
}

// Seek moves to t, clamped to [0, duration].
func (c *Clock) Seek(t float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pos = math.Max(0, math.Min(t, c.duration))
	c.since = c.now()
}
