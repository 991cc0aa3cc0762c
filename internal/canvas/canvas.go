// Package canvas is a small retained-mode toolkit of manipulable rectangles.
//
// A Canvas holds objects in paint order, tracks one active object, and turns
// pointer input into select, move and corner-resize gestures. Resizing
// changes an object's ScaleX/ScaleY rather than its base size, the way most
// vector toolkits do; consumers read the absolute size from Bounds.
//
// Programmatic calls (Add, Clear, SetActiveObject) never emit events. Only
// pointer gestures do.
package canvas

import (
	"image/color"
	"math"
	"slices"
)

// MinSize is the smallest absolute width or height a resize can produce.
const MinSize = 4.0

// Style controls how an object is drawn.
type Style struct {
	Fill        color.NRGBA
	Stroke      color.NRGBA
	StrokeWidth float64
	// Dash is an on/off pattern for the stroke; empty means solid.
	Dash        []float64
	CornerColor color.NRGBA
	CornerSize  float64
}

// Object is a manipulable rectangle.
type Object struct {
	Left, Top      float64
	Width, Height  float64
	ScaleX, ScaleY float64
	Style          Style
	// Data tags the object for event correlation.
	Data string
}

// Bounds returns the absolute position and size with scale applied. A zero
// scale is read as 1.
func (o *Object) Bounds() (x, y, w, h float64) {
	return o.Left, o.Top, o.Width * unit(o.ScaleX), o.Height * unit(o.ScaleY)
}

// Contains reports whether (x, y) is inside the object.
func (o *Object) Contains(x, y float64) bool {
	ox, oy, w, h := o.Bounds()
	return x >= ox && x <= ox+w && y >= oy && y <= oy+h
}

func unit(s float64) float64 {
	if s == 0 {
		return 1
	}
	return s
}

// EventKind enumerates toolkit events.
type EventKind int

const (
	// SelectionCreated fires when a gesture selects an object while
	// nothing, or something else, was selected.
	SelectionCreated EventKind = iota
	// SelectionCleared fires when a gesture deselects everything.
	SelectionCleared
	// Moving fires on every pointer move of a drag.
	Moving
	// Scaling fires on every pointer move of a corner resize.
	Scaling
	// Modified fires once when a move or resize gesture ends.
	Modified
)

func (k EventKind) String() string {
	switch k {
	case SelectionCreated:
		return "selection:created"
	case SelectionCleared:
		return "selection:cleared"
	case Moving:
		return "object:moving"
	case Scaling:
		return "object:scaling"
	case Modified:
		return "object:modified"
	default:
		return "unknown"
	}
}

// Event is delivered to handlers registered with On.
type Event struct {
	Kind   EventKind
	Target *Object
}

// Corner identifies a resize handle.
type Corner int

const (
	NoCorner Corner = iota
	TopLeft
	TopRight
	BottomLeft
	BottomRight
)

type gestureKind int

const (
	gestureNone gestureKind = iota
	gestureMove
	gestureScale
)

type gesture struct {
	kind    gestureKind
	target  *Object
	corner  Corner
	startX  float64
	startY  float64
	origin  Object
	changed bool
}

// Canvas holds objects and dispatches pointer gestures.
type Canvas struct {
	width, height float64
	objects       []*Object
	active        *Object
	handlers      map[EventKind][]func(Event)
	g             gesture
}

// New returns an empty canvas of the given size.
func New(width, height float64) *Canvas {
	return &Canvas{
		width:    width,
		height:   height,
		handlers: make(map[EventKind][]func(Event)),
	}
}

// Size returns the canvas size.
func (c *Canvas) Size() (w, h float64) {
	return c.width, c.height
}

// SetSize resizes the canvas. Objects are not moved.
func (c *Canvas) SetSize(w, h float64) {
	c.width, c.height = w, h
}

// On registers fn for events of kind k.
func (c *Canvas) On(k EventKind, fn func(Event)) {
	c.handlers[k] = append(c.handlers[k], fn)
}

func (c *Canvas) fire(k EventKind, target *Object) {
	for _, fn := range c.handlers[k] {
		fn(Event{Kind: k, Target: target})
	}
}

// Add appends o on top of the paint order.
func (c *Canvas) Add(o *Object) {
	c.objects = append(c.objects, o)
}

// Remove deletes o from the canvas.
func (c *Canvas) Remove(o *Object) {
	c.objects = slices.DeleteFunc(c.objects, func(x *Object) bool { return x == o })
	if c.active == o {
		c.active = nil
	}
	if c.g.target == o {
		c.g = gesture{}
	}
}

// Clear removes every object and the active selection. A gesture in
// progress keeps its target so it can still complete.
func (c *Canvas) Clear() {
	c.objects = nil
	c.active = nil
}

// Objects returns the objects in paint order.
func (c *Canvas) Objects() []*Object {
	return slices.Clone(c.objects)
}

// ActiveObject returns the selected object, or nil.
func (c *Canvas) ActiveObject() *Object {
	return c.active
}

// SetActiveObject selects o without emitting events.
func (c *Canvas) SetActiveObject(o *Object) {
	c.active = o
}

// ResetScale folds o's scale into its width and height and sets the scale
// back to 1, so the next resize starts from the absolute size.
func (c *Canvas) ResetScale(o *Object) {
	if o == nil {
		return
	}
	_, _, o.Width, o.Height = o.Bounds()
	o.ScaleX, o.ScaleY = 1, 1
}

// Dragging reports whether a move or resize gesture is in progress.
func (c *Canvas) Dragging() bool {
	return c.g.kind != gestureNone
}

// GestureTarget returns the object being moved or resized, or nil.
func (c *Canvas) GestureTarget() *Object {
	if c.g.kind == gestureNone {
		return nil
	}
	return c.g.target
}

// CornerAt returns the resize handle of the active object under (x, y).
func (c *Canvas) CornerAt(x, y float64) Corner {
	if c.active == nil {
		return NoCorner
	}
	ox, oy, w, h := c.active.Bounds()
	half := math.Max(c.active.Style.CornerSize, 6) / 2
	corners := []struct {
		corner Corner
		cx, cy float64
	}{
		{TopLeft, ox, oy},
		{TopRight, ox + w, oy},
		{BottomLeft, ox, oy + h},
		{BottomRight, ox + w, oy + h},
	}
	for _, k := range corners {
		if math.Abs(x-k.cx) <= half && math.Abs(y-k.cy) <= half {
			return k.corner
		}
	}
	return NoCorner
}

// ObjectAt returns the topmost object under (x, y).
func (c *Canvas) ObjectAt(x, y float64) *Object {
	for i := len(c.objects) - 1; i >= 0; i-- {
		if c.objects[i].Contains(x, y) {
			return c.objects[i]
		}
	}
	return nil
}
