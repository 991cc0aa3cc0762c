package ui

import (
	"sync"
	"time"

	"mosaicedit/internal/frame"
)

// FrameScheduler is the window's display refresh as a frame.Scheduler.
// Requesting a frame invalidates the window; callbacks run on the UI
// goroutine when the next FrameEvent calls Run.
type FrameScheduler struct {
	m          *frame.Manual
	invalidate func()

	mu   sync.Mutex
	last time.Time
}

// NewFrameScheduler returns a scheduler that calls invalidate whenever a
// callback is queued.
func NewFrameScheduler(invalidate func()) *FrameScheduler {
	if invalidate == nil {
		invalidate = func() {}
	}
	return &FrameScheduler{
		m:          frame.NewManual(time.Now()),
		invalidate: invalidate,
	}
}

// RequestFrame queues cb for the next window frame.
func (s *FrameScheduler) RequestFrame(cb frame.Callback) frame.Handle {
	h := s.m.RequestFrame(cb)
	s.invalidate()
	return h
}

// CancelFrame drops a queued callback.
func (s *FrameScheduler) CancelFrame(h frame.Handle) {
	s.m.CancelFrame(h)
}

// Run executes the callbacks queued before this frame and returns how many
// ran. Callbacks they request wait for the following frame.
func (s *FrameScheduler) Run(now time.Time) int {
	s.mu.Lock()
	var d time.Duration
	if !s.last.IsZero() && now.After(s.last) {
		d = now.Sub(s.last)
	}
	s.last = now
	s.mu.Unlock()
	return s.m.Step(d)
}

// Pending reports whether any callback waits for a frame.
func (s *FrameScheduler) Pending() bool {
	return s.m.Pending() > 0
}
