package timeline

import (
	"math"

	"mosaicedit/internal/editor"
)

// Handle identifies which part of a bar is being dragged.
type Handle int

const (
	// Move shifts the whole window, keeping its length.
	Move Handle = iota
	// StartHandle moves the start edge.
	StartHandle
	// EndHandle moves the end edge.
	EndHandle
)

func (h Handle) String() string {
	switch h {
	case Move:
		return "move"
	case StartHandle:
		return "start"
	case EndHandle:
		return "end"
	default:
		return "unknown"
	}
}

// Drag is a timeline gesture on one region. It captures the window at
// gesture start so each move is computed from the anchor, not accumulated.
type Drag struct {
	RegionID string
	Handle   Handle
	Initial  editor.Window
	// MinLength is the smallest window an edge drag can produce.
	MinLength float64
}

// Begin starts a drag on region id and selects it. It reports false if the
// region does not exist.
func Begin(s *editor.Store, id string, h Handle) (*Drag, bool) {
	r, ok := s.Region(id)
	if !ok {
		return nil, false
	}
	s.SelectRegion(id)
	return &Drag{
		RegionID:  id,
		Handle:    h,
		Initial:   r.Window,
		MinLength: editor.TimelineDragMinDuration,
	}, true
}

// Window computes the dragged window for a time delta dt, given the
// region's current window and the video duration.
func (d *Drag) Window(current editor.Window, dt, duration float64) editor.Window {
	w := current
	switch d.Handle {
	case Move:
		length := d.Initial.Length()
		w.Start = math.Max(0, d.Initial.Start+dt)
		w.End = math.Min(duration, w.Start+length)
		if w.End == duration {
			w.Start = duration - length
		}
	case StartHandle:
		w.Start = math.Max(0, math.Min(d.Initial.Start+dt, current.End-d.MinLength))
	case EndHandle:
		w.End = math.Min(duration, math.Max(d.Initial.End+dt, current.Start+d.MinLength))
	}
	return w
}

// Update applies the drag for a horizontal pixel delta on a timeline of the
// given pixel width, committing live to the store.
func (d *Drag) Update(s *editor.Store, deltaPx, widthPx float64) {
	st := s.Snapshot()
	if widthPx <= 0 || st.Duration <= 0 {
		return
	}
	r, ok := s.Region(d.RegionID)
	if !ok {
		return
	}
	dt := deltaPx / widthPx * st.Duration
	s.UpdateRegion(d.RegionID, editor.Timing(d.Window(r.Window, dt, st.Duration)))
}

// TimeAt maps a pixel offset on the timeline to seconds.
func TimeAt(px, widthPx, duration float64) float64 {
	if widthPx <= 0 {
		return 0
	}
	return math.Max(0, math.Min(duration, px/widthPx*duration))
}
