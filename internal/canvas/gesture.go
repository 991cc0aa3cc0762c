package canvas

import "math"

// PointerDown starts a gesture at (x, y). Corner handles of the active
// object start a resize, an object body starts a move (selecting it first),
// and empty space clears the selection.
func (c *Canvas) PointerDown(x, y float64) {
	if corner := c.CornerAt(x, y); corner != NoCorner {
		c.begin(gestureScale, c.active, corner, x, y)
		return
	}

	o := c.ObjectAt(x, y)
	if o == nil {
		if c.active != nil {
			c.active = nil
			c.fire(SelectionCleared, nil)
		}
		return
	}
	// The gesture starts before the selection event so handlers that
	// rebuild the canvas can see which object is being dragged.
	c.begin(gestureMove, o, NoCorner, x, y)
	if c.active != o {
		c.active = o
		c.fire(SelectionCreated, o)
	}
}

func (c *Canvas) begin(k gestureKind, o *Object, corner Corner, x, y float64) {
	c.g = gesture{
		kind:   k,
		target: o,
		corner: corner,
		startX: x,
		startY: y,
		origin: *o,
	}
}

// PointerMove advances the current gesture.
func (c *Canvas) PointerMove(x, y float64) {
	g := &c.g
	if g.kind == gestureNone || g.target == nil {
		return
	}
	dx, dy := x-g.startX, y-g.startY
	if dx == 0 && dy == 0 && !g.changed {
		return
	}
	g.changed = true

	switch g.kind {
	case gestureMove:
		g.target.Left = g.origin.Left + dx
		g.target.Top = g.origin.Top + dy
		c.fire(Moving, g.target)
	case gestureScale:
		c.scale(dx, dy)
		c.fire(Scaling, g.target)
	}
}

// scale resizes the target keeping the corner opposite the handle fixed.
func (c *Canvas) scale(dx, dy float64) {
	g := &c.g
	o := g.target
	ox, oy, w, h := g.origin.Bounds()

	left, top, right, bottom := ox, oy, ox+w, oy+h
	switch g.corner {
	case TopLeft:
		left = math.Min(left+dx, right-MinSize)
		top = math.Min(top+dy, bottom-MinSize)
	case TopRight:
		right = math.Max(right+dx, left+MinSize)
		top = math.Min(top+dy, bottom-MinSize)
	case BottomLeft:
		left = math.Min(left+dx, right-MinSize)
		bottom = math.Max(bottom+dy, top+MinSize)
	case BottomRight:
		right = math.Max(right+dx, left+MinSize)
		bottom = math.Max(bottom+dy, top+MinSize)
	}

	o.Left, o.Top = left, top
	if o.Width > 0 {
		o.ScaleX = (right - left) / o.Width
	}
	if o.Height > 0 {
		o.ScaleY = (bottom - top) / o.Height
	}
}

// PointerUp ends the current gesture, firing Modified if anything moved.
func (c *Canvas) PointerUp(x, y float64) {
	c.PointerMove(x, y)
	g := c.g
	c.g = gesture{}
	if g.changed && g.target != nil {
		c.fire(Modified, g.target)
	}
}

// Cancel abandons the current gesture and restores the target's geometry.
func (c *Canvas) Cancel() {
	g := c.g
	c.g = gesture{}
	if g.target != nil && g.changed {
		style, data := g.target.Style, g.target.Data
		*g.target = g.origin
		g.target.Style, g.target.Data = style, data
		c.fire(Modified, g.target)
	}
}
