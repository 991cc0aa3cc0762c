// Package editor holds the authoritative editing state for a mosaic session:
// the ordered region list, selection, placement mode and playback position.
//
// All commands are synchronous. A mutation is visible to every reader as soon
// as the command returns, and subscribers are notified before it returns.
package editor

import (
	"errors"
	"fmt"
)

// Rect is a display-space rectangle.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Window is a closed time interval in seconds on the video timeline.
type Window struct {
	Start float64 `json:"startTime"`
	End   float64 `json:"endTime"`
}

// Contains reports whether t lies in [Start, End].
func (w Window) Contains(t float64) bool {
	return t >= w.Start && t <= w.End
}

// Length returns End - Start.
func (w Window) Length() float64 {
	return w.End - w.Start
}

// Region is a rectangular, time-bounded area to be blurred.
type Region struct {
	ID string `json:"id"`
	Rect
	Window
}

// Patch is a field-level overwrite for a region. Nil fields are left alone.
type Patch struct {
	X         *float64
	Y         *float64
	Width     *float64
	Height    *float64
	StartTime *float64
	EndTime   *float64
}

// Geometry returns a patch overwriting the spatial fields with r.
func Geometry(r Rect) Patch {
	return Patch{X: &r.X, Y: &r.Y, Width: &r.Width, Height: &r.Height}
}

// Timing returns a patch overwriting the temporal fields with w.
func Timing(w Window) Patch {
	return Patch{StartTime: &w.Start, EndTime: &w.End}
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return p.X == nil && p.Y == nil && p.Width == nil && p.Height == nil &&
		p.StartTime == nil && p.EndTime == nil
}

// apply returns r with the patch applied.
func (p Patch) apply(r Region) Region {
	if p.X != nil {
		r.X = *p.X
	}
	if p.Y != nil {
		r.Y = *p.Y
	}
	if p.Width != nil {
		r.Width = *p.Width
	}
	if p.Height != nil {
		r.Height = *p.Height
	}
	if p.StartTime != nil {
		r.Start = *p.StartTime
	}
	if p.EndTime != nil {
		r.End = *p.EndTime
	}
	return r
}

// ErrInvalidRegion is wrapped by Validate failures.
var ErrInvalidRegion = errors.New("invalid region")

// Validate checks the hard invariants of a region against a video duration.
// A non-positive duration skips the upper time bound.
//
// The Store never calls this; it is used where regions enter the system from
// outside (project files, the database).
func (r Region) Validate(duration float64) error {
	switch {
	case r.ID == "":
		return fmt.Errorf("%w: empty id", ErrInvalidRegion)
	case r.Width <= 0 || r.Height <= 0:
		return fmt.Errorf("%w %s: size %gx%g must be positive", ErrInvalidRegion, r.ID, r.Width, r.Height)
	case r.Start < 0:
		return fmt.Errorf("%w %s: start %g is negative", ErrInvalidRegion, r.ID, r.Start)
	case r.Start >= r.End:
		return fmt.Errorf("%w %s: start %g is not before end %g", ErrInvalidRegion, r.ID, r.Start, r.End)
	case duration > 0 && r.End > duration:
		return fmt.Errorf("%w %s: end %g exceeds duration %g", ErrInvalidRegion, r.ID, r.End, duration)
	}
	return nil
}
