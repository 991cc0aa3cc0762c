package editor

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceCentersOnClick(t *testing.T) {
	s := NewStore(seqIDs())
	s.SetDuration(20)
	s.SetCurrentTime(3)
	s.SetPlacementMode(true)

	id := s.Place(DefaultPlacement(), 140, 90)

	r, ok := s.Region(id)
	require.True(t, ok)
	assert.Equal(t, Rect{X: 90, Y: 40, Width: 100, Height: 100}, r.Rect)
	assert.Equal(t, Window{Start: 3, End: 8}, r.Window)
	assert.False(t, s.Snapshot().Placing)
}

func TestPlaceClampsToDuration(t *testing.T) {
	s := NewStore(seqIDs())
	s.SetDuration(20)
	s.SetCurrentTime(18)

	id := s.Place(DefaultPlacement(), 10, 10)
	r, _ := s.Region(id)
	assert.Equal(t, 20.0, r.End)
	assert.Equal(t, Rect{X: 0, Y: 0, Width: 100, Height: 100}, r.Rect)
}

func TestPlacementUnknownDuration(t *testing.T) {
	_, w := DefaultPlacement().At(0, 0, 2, 0)
	assert.Equal(t, Window{Start: 2, End: 7}, w)
}

func TestSetStartTimeClamps(t *testing.T) {
	s := NewStore(seqIDs())
	s.SetDuration(20)
	id := s.AddRegion(Rect{Width: 1, Height: 1}, Window{Start: 2, End: 5})

	s.SetStartTime(id, 9)
	r, _ := s.Region(id)
	assert.InDelta(t, 4.9, r.Start, 1e-9)

	s.SetStartTime(id, -3)
	r, _ = s.Region(id)
	assert.Equal(t, 0.0, r.Start)

	s.SetStartTime(id, math.NaN())
	r, _ = s.Region(id)
	assert.Equal(t, 0.0, r.Start)
}

func TestSetEndTimeClamps(t *testing.T) {
	s := NewStore(seqIDs())
	s.SetDuration(20)
	id := s.AddRegion(Rect{Width: 1, Height: 1}, Window{Start: 2, End: 5})

	s.SetEndTime(id, 1)
	r, _ := s.Region(id)
	assert.InDelta(t, 2.1, r.End, 1e-9)

	s.SetEndTime(id, 99)
	r, _ = s.Region(id)
	assert.Equal(t, 20.0, r.End)
}

func TestWithMinWindow(t *testing.T) {
	s := NewStore(seqIDs(), WithMinWindow(1))
	s.SetDuration(20)
	id := s.AddRegion(Rect{Width: 1, Height: 1}, Window{Start: 2, End: 5})

	s.SetStartTime(id, 9)
	r, _ := s.Region(id)
	assert.Equal(t, 4.0, r.Start)

	s = NewStore(seqIDs(), WithMinWindow(0))
	s.SetDuration(20)
	id = s.AddRegion(Rect{Width: 1, Height: 1}, Window{Start: 2, End: 5})
	s.SetEndTime(id, 0)
	r, _ = s.Region(id)
	assert.InDelta(t, 2.1, r.End, 1e-9)
}
