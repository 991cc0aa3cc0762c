// Package frame provides display-refresh scheduling: a callback is requested
// for the next frame and may be cancelled before it runs.
package frame

import (
	"sync"
	"time"
)

// Handle identifies a pending frame callback. The zero Handle is never
// returned by a scheduler.
type Handle uint64

// Callback runs once on the frame it was requested for.
type Callback func(now time.Time)

// Scheduler hands out frame callbacks.
type Scheduler interface {
	RequestFrame(cb Callback) Handle
	CancelFrame(h Handle)
}

// Manual is a Scheduler driven by explicit Step calls. Callbacks requested
// while a step is running wait for the next step, as with a real display
// refresh. It is safe for concurrent use.
type Manual struct {
	mu      sync.Mutex
	next    Handle
	pending []pendingFrame
	now     time.Time
}

type pendingFrame struct {
	h  Handle
	cb Callback
}

// NewManual returns a manual scheduler whose clock starts at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// RequestFrame queues cb for the next Step.
func (m *Manual) RequestFrame(cb Callback) Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	m.pending = append(m.pending, pendingFrame{h: m.next, cb: cb})
	return m.next
}

// CancelFrame drops a pending callback. Unknown handles are ignored.
func (m *Manual) CancelFrame(h Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, p := range m.pending {
		if p.h == h {
			m.pending = append(m.pending[:i], m.pending[i+1:]...)
			return
		}
	}
}

// Pending returns the number of queued callbacks.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.pending)
}

// Step advances the clock by d and runs the callbacks queued before the
// call. It returns how many ran.
func (m *Manual) Step(d time.Duration) int {
	m.mu.Lock()
	m.now = m.now.Add(d)
	now := m.now
	batch := m.pending
	m.pending = nil
	m.mu.Unlock()

	for _, p := range batch {
		p.cb(now)
	}
	return len(batch)
}
