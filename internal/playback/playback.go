// Package playback keeps the editor store's playback position in step with
// a video source and exposes the transport actions the UI offers.
package playback

import (
	"log/slog"
	"math"
	"sync"
	"time"

	"mosaicedit/internal/editor"
	"mosaicedit/internal/frame"
	"mosaicedit/internal/video"
)

// SkipSeconds is the jump applied by SkipForward and SkipBack.
const SkipSeconds = 10

// Controller drives a video source and mirrors its clock into the store
// once per frame while playing. At most one sync callback is pending.
type Controller struct {
	store *editor.Store
	sched frame.Scheduler
	log   *slog.Logger

	mu      sync.Mutex
	src     video.Source
	pending frame.Handle
	gen     uint64
}

// New returns a controller with no source.
func New(store *editor.Store, sched frame.Scheduler, log *slog.Logger) *Controller {
	if log == nil {
		log = slog.Default()
	}
	return &Controller{store: store, sched: sched, log: log.With("component", "playback")}
}

// SetSource cancels any pending sync and adopts src. The store's duration,
// native size and position are taken from it.
func (c *Controller) SetSource(src video.Source) {
	c.mu.Lock()
	c.cancelLocked()
	c.src = src
	c.mu.Unlock()

	if src == nil {
		c.store.SetPlaying(false)
		return
	}
	w, h := src.NativeSize()
	c.store.SetDuration(src.Duration())
	c.store.SetNativeSize(w, h)
	c.store.SetCurrentTime(src.CurrentTime())
	c.store.SetPlaying(src.Playing())
	if src.Playing() {
		c.mu.Lock()
		c.scheduleLocked()
		c.mu.Unlock()
	}
}

// Play starts playback and the sync loop.
func (c *Controller) Play() {
	c.mu.Lock()
	src := c.src
	if src == nil {
		c.mu.Unlock()
		return
	}
	src.Play()
	if c.pending == 0 {
		c.scheduleLocked()
	}
	c.mu.Unlock()

	c.store.SetCurrentTime(src.CurrentTime())
	c.store.SetPlaying(true)
	c.log.Debug("play", "time", src.CurrentTime())
}

// Pause stops playback. The pending sync is cancelled and the final
// position written to the store.
func (c *Controller) Pause() {
	c.mu.Lock()
	src := c.src
	c.cancelLocked()
	c.mu.Unlock()
	if src == nil {
		return
	}
	src.Pause()
	c.store.SetCurrentTime(src.CurrentTime())
	c.store.SetPlaying(false)
	c.log.Debug("pause", "time", src.CurrentTime())
}

// Toggle plays when paused and pauses when playing.
func (c *Controller) Toggle() {
	if c.store.Snapshot().Playing {
		c.Pause()
		return
	}
	c.Play()
}

// Seek moves to t clamped to [0, duration].
func (c *Controller) Seek(t float64) {
	c.mu.Lock()
	src := c.src
	c.mu.Unlock()
	if src == nil {
		return
	}
	src.Seek(clamp(t, src.Duration()))
	c.store.SetCurrentTime(src.CurrentTime())
}

// SkipForward jumps ahead SkipSeconds, stopping at the end.
func (c *Controller) SkipForward() { c.skip(SkipSeconds) }

// SkipBack jumps back SkipSeconds, stopping at zero.
func (c *Controller) SkipBack() { c.skip(-SkipSeconds) }

func (c *Controller) skip(d float64) {
	c.mu.Lock()
	src := c.src
	c.mu.Unlock()
	if src == nil {
		return
	}
	c.Seek(src.CurrentTime() + d)
}

// Close cancels the pending sync.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked()
}

func (c *Controller) cancelLocked() {
	if c.pending != 0 {
		c.sched.CancelFrame(c.pending)
		c.pending = 0
	}
	c.gen++
}

func (c *Controller) scheduleLocked() {
	c.gen++
	gen := c.gen
	c.pending = c.sched.RequestFrame(func(time.Time) { c.sync(gen) })
}

func (c *Controller) sync(gen uint64) {
	c.mu.Lock()
	if gen != c.gen || c.pending == 0 {
		c.mu.Unlock()
		return
	}
	c.pending = 0
	src := c.src
	playing := src.Playing()
	if playing {
		c.scheduleLocked()
	}
	c.mu.Unlock()

	c.store.SetCurrentTime(src.CurrentTime())
	if !playing {
		c.store.SetPlaying(false)
		c.log.Debug("playback ended", "time", src.CurrentTime())
	}
}

func clamp(t, duration float64) float64 {
	if math.IsNaN(t) || t < 0 {
		return 0
	}
	if duration > 0 && t > duration {
		return duration
	}
	return t
}
