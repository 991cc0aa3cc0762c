package ui

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"mosaicedit/internal/frame"
)

func TestFrameSchedulerInvalidatesAndRuns(t *testing.T) {
	invalidated := 0
	s := NewFrameScheduler(func() { invalidated++ })

	var ran []time.Time
	s.RequestFrame(func(now time.Time) { ran = append(ran, now) })
	assert.Equal(t, 1, invalidated)
	assert.True(t, s.Pending())

	start := time.Now()
	assert.Equal(t, 1, s.Run(start))
	assert.Len(t, ran, 1)
	assert.False(t, s.Pending())
	assert.Equal(t, 0, s.Run(start.Add(time.Second)))
}

func TestFrameSchedulerDefersNestedRequests(t *testing.T) {
	s := NewFrameScheduler(nil)

	count := 0
	var loop frame.Callback
	loop = func(time.Time) {
		count++
		s.RequestFrame(loop)
	}
	s.RequestFrame(loop)

	now := time.Now()
	s.Run(now)
	s.Run(now.Add(16 * time.Millisecond))
	assert.Equal(t, 2, count)
	assert.True(t, s.Pending())
}

func TestFrameSchedulerCancel(t *testing.T) {
	s := NewFrameScheduler(nil)
	h := s.RequestFrame(func(time.Time) { t.Fatal("cancelled callback ran") })
	s.CancelFrame(h)
	assert.Equal(t, 0, s.Run(time.Now()))
}
