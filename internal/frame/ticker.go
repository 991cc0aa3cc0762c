package frame

import (
	"context"
	"sync"
	"time"
)

// Ticker is a Scheduler driven by a fixed-rate clock. Callbacks run on the
// ticker goroutine, one frame's batch at a time, so callers see the same
// single-threaded model as a display refresh.
type Ticker struct {
	interval time.Duration
	m        *Manual

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
}

// NewTicker returns a scheduler running at fps frames per second.
func NewTicker(fps int) *Ticker {
	if fps <= 0 {
		fps = 60
	}
	return &Ticker{
		interval: time.Second / time.Duration(fps),
		m:        NewManual(time.Now()),
	}
}

// Start runs the frame loop until ctx is done or Stop is called.
func (t *Ticker) Start(ctx context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		return
	}
	t.started = true
	ctx, t.cancel = context.WithCancel(ctx)
	t.done = make(chan struct{})
	go t.loop(ctx)
}

// Stop halts the loop and waits for it to exit. Pending callbacks are dropped.
func (t *Ticker) Stop() {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.started = false
	t.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (t *Ticker) loop(ctx context.Context) {
	defer close(t.done)
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			t.m.Step(now.Sub(last))
			last = now
		}
	}
}

// RequestFrame queues cb for the next tick.
func (t *Ticker) RequestFrame(cb Callback) Handle {
	return t.m.RequestFrame(cb)
}

// CancelFrame drops a pending callback.
func (t *Ticker) CancelFrame(h Handle) {
	t.m.CancelFrame(h)
}
