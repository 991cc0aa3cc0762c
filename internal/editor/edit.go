package editor

import "math"

// Editing defaults and the minimum window lengths the UI enforces.
const (
	DefaultRegionSize       = 100.0
	DefaultRegionDuration   = 5.0
	NumericMinDuration      = 0.1
	TimelineDragMinDuration = 0.5
)

// Placement describes how a click in placement mode becomes a region.
type Placement struct {
	Size     float64
	Duration float64
}

// DefaultPlacement returns the stock 100px, 5 second placement.
func DefaultPlacement() Placement {
	return Placement{Size: DefaultRegionSize, Duration: DefaultRegionDuration}
}

// At returns the rect and window for a click at (x, y) in display space at
// playback time now. The rect is centered on the click with its top-left
// clamped to zero; the window starts at now and is clamped to duration when
// the duration is known.
func (p Placement) At(x, y, now, duration float64) (Rect, Window) {
	r := Rect{
		X:      math.Max(0, x-p.Size/2),
		Y:      math.Max(0, y-p.Size/2),
		Width:  p.Size,
		Height: p.Size,
	}
	end := now + p.Duration
	if duration > 0 {
		end = math.Min(end, duration)
	}
	return r, Window{Start: now, End: end}
}

// Place creates a region at the click point and leaves placement mode.
func (s *Store) Place(p Placement, x, y float64) string {
	st := s.Snapshot()
	r, w := p.At(x, y, st.CurrentTime, st.Duration)
	id := s.AddRegion(r, w)
	s.SetPlacementMode(false)
	return id
}

// ClampStart bounds a typed start time to [0, end-minLen].
func ClampStart(v, end, minLen float64) float64 {
	return math.Max(0, math.Min(v, end-minLen))
}

// ClampEnd bounds a typed end time to [start+minLen, duration]. An unknown
// (non-positive) duration leaves the upper bound open.
func ClampEnd(v, start, duration, minLen float64) float64 {
	end := math.Max(v, start+minLen)
	if duration > 0 {
		end = math.Min(duration, end)
	}
	return end
}

// SetStartTime applies a numeric start-time edit, keeping the store's
// minimum window (0.1s by default).
func (s *Store) SetStartTime(id string, v float64) {
	r, ok := s.Region(id)
	if !ok {
		return
	}
	start := ClampStart(sanitize(v), r.End, s.minWindow)
	s.UpdateRegion(id, Patch{StartTime: &start})
}

// SetEndTime applies a numeric end-time edit, keeping the store's minimum
// window.
func (s *Store) SetEndTime(id string, v float64) {
	r, ok := s.Region(id)
	if !ok {
		return
	}
	duration := s.Snapshot().Duration
	end := ClampEnd(sanitize(v), r.Start, duration, s.minWindow)
	s.UpdateRegion(id, Patch{EndTime: &end})
}

// sanitize maps unparsable input to zero.
func sanitize(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
