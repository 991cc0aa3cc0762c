package shape

import (
	"mosaicedit/internal/canvas"
	"mosaicedit/internal/editor"
)

// Command is one of the domain commands the layer accepts: Select,
// UpdateGeometry or CommitGeometry.
type Command interface {
	command()
}

// Select changes the selected region. An empty RegionID clears selection.
type Select struct {
	RegionID string
}

// UpdateGeometry publishes live geometry for a region mid-gesture.
type UpdateGeometry struct {
	RegionID string
	Rect     editor.Rect
}

// CommitGeometry writes the final geometry of a finished gesture.
type CommitGeometry struct {
	RegionID string
	Rect     editor.Rect
}

func (Select) command()         {}
func (UpdateGeometry) command() {}
func (CommitGeometry) command() {}

// Apply executes a command.
func (l *Layer) Apply(cmd Command) {
	switch c := cmd.(type) {
	case Select:
		l.store.SelectRegion(c.RegionID)
	case UpdateGeometry:
		l.setDrag(&editor.DragState{RegionID: c.RegionID, Rect: c.Rect})
	case CommitGeometry:
		// Clear the drag first so the store notification sees the
		// committed geometry with no overlay left on top of it.
		l.setDrag(nil)
		l.store.UpdateRegion(c.RegionID, editor.Geometry(c.Rect))
		l.log.Debug("geometry committed", "region_id", c.RegionID,
			"x", c.Rect.X, "y", c.Rect.Y, "width", c.Rect.Width, "height", c.Rect.Height)
	}
}

// Translate maps a toolkit event to a command. Events for untagged objects
// map to nothing.
func Translate(e canvas.Event) (Command, bool) {
	switch e.Kind {
	case canvas.SelectionCleared:
		return Select{}, true
	}

	if e.Target == nil || e.Target.Data == "" {
		return nil, false
	}
	id := e.Target.Data

	switch e.Kind {
	case canvas.SelectionCreated:
		return Select{RegionID: id}, true
	case canvas.Moving, canvas.Scaling:
		return UpdateGeometry{RegionID: id, Rect: absolute(e.Target)}, true
	case canvas.Modified:
		return CommitGeometry{RegionID: id, Rect: absolute(e.Target)}, true
	}
	return nil, false
}

// absolute folds any toolkit scale into width and height.
func absolute(o *canvas.Object) editor.Rect {
	x, y, w, h := o.Bounds()
	return editor.Rect{X: x, Y: y, Width: w, Height: h}
}

// Bind routes the canvas's events through Translate and Apply.
func (l *Layer) Bind(c *canvas.Canvas) {
	handle := func(e canvas.Event) {
		cmd, ok := Translate(e)
		if !ok {
			return
		}
		if _, commit := cmd.(CommitGeometry); commit {
			c.ResetScale(e.Target)
		}
		l.Apply(cmd)
	}
	for _, k := range []canvas.EventKind{
		canvas.SelectionCreated,
		canvas.SelectionCleared,
		canvas.Moving,
		canvas.Scaling,
		canvas.Modified,
	} {
		c.On(k, handle)
	}
}
