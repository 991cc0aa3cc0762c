package ui

import (
	"image"
	"image/color"
	"math"

	"gioui.org/f32"
	"gioui.org/op"
	"gioui.org/op/clip"
	"gioui.org/op/paint"

	"mosaicedit/internal/canvas"
)

// fit scales a w×h picture to the largest size inside avail that keeps its
// aspect ratio.
func fit(avail image.Point, w, h float64) (fw, fh float64) {
	if w <= 0 || h <= 0 || avail.X <= 0 || avail.Y <= 0 {
		return 0, 0
	}
	k := math.Min(float64(avail.X)/w, float64(avail.Y)/h)
	return w * k, h * k
}

type segment struct {
	from, to f32.Point
}

// dashes splits the line from a to b into on-segments of the on/off
// pattern. An empty pattern yields the whole line.
func dashes(a, b f32.Point, pattern []float64) []segment {
	length := math.Hypot(float64(b.X-a.X), float64(b.Y-a.Y))
	if len(pattern) == 0 || length == 0 {
		return []segment{{a, b}}
	}
	var total float64
	for _, p := range pattern {
		total += p
	}
	if total <= 0 {
		return []segment{{a, b}}
	}

	at := func(d float64) f32.Point {
		k := float32(d / length)
		return f32.Pt(a.X+(b.X-a.X)*k, a.Y+(b.Y-a.Y)*k)
	}
	var out []segment
	for d, i := 0.0, 0; d < length; i++ {
		step := pattern[i%len(pattern)]
		if i%2 == 0 {
			out = append(out, segment{at(d), at(math.Min(d+step, length))})
		}
		d += step
	}
	return out
}

// cornerBoxes returns the handle squares of an object at the scale used to
// draw it.
func cornerBoxes(o *canvas.Object, zoom float64) [4]image.Rectangle {
	x, y, w, h := o.Bounds()
	half := o.Style.CornerSize / 2
	box := func(cx, cy float64) image.Rectangle {
		return image.Rect(
			int((cx-half)*zoom), int((cy-half)*zoom),
			int(math.Ceil((cx+half)*zoom)), int(math.Ceil((cy+half)*zoom)),
		)
	}
	return [4]image.Rectangle{
		box(x, y), box(x+w, y), box(x, y+h), box(x+w, y+h),
	}
}

// drawObject paints a canvas object's fill, border and, when active, its
// corner handles. Display coordinates are multiplied by zoom.
func drawObject(ops *op.Ops, o *canvas.Object, active bool, zoom float64) {
	x, y, w, h := o.Bounds()
	r := image.Rect(int(x*zoom), int(y*zoom), int((x+w)*zoom), int((y+h)*zoom))
	paint.FillShape(ops, o.Style.Fill, clip.Rect(r).Op())

	corners := []f32.Point{
		f32.Pt(float32(x*zoom), float32(y*zoom)),
		f32.Pt(float32((x+w)*zoom), float32(y*zoom)),
		f32.Pt(float32((x+w)*zoom), float32((y+h)*zoom)),
		f32.Pt(float32(x*zoom), float32((y+h)*zoom)),
	}
	var p clip.Path
	p.Begin(ops)
	for i := range corners {
		for _, s := range dashes(corners[i], corners[(i+1)%4], o.Style.Dash) {
			p.MoveTo(s.from)
			p.LineTo(s.to)
		}
	}
	stroke := clip.Stroke{Path: p.End(), Width: float32(o.Style.StrokeWidth)}.Op()
	paint.FillShape(ops, o.Style.Stroke, stroke)

	if !active {
		return
	}
	for _, b := range cornerBoxes(o, zoom) {
		paint.FillShape(ops, o.Style.CornerColor, clip.Rect(b).Op())
	}
}

// drawImage paints img scaled to w×h pixels at the current offset.
func drawImage(ops *op.Ops, img image.Image, w, h float64) {
	b := img.Bounds()
	if b.Empty() || w <= 0 || h <= 0 {
		return
	}
	sx := float32(w / float64(b.Dx()))
	sy := float32(h / float64(b.Dy()))
	defer op.Affine(f32.Affine2D{}.Scale(f32.Point{}, f32.Pt(sx, sy))).Push(ops).Pop()

	imgOp := paint.NewImageOp(img)
	imgOp.Filter = paint.FilterLinear
	imgOp.Add(ops)
	paint.PaintOp{}.Add(ops)
}

func fillRect(ops *op.Ops, c color.NRGBA, r image.Rectangle) {
	paint.FillShape(ops, c, clip.Rect(r).Op())
}
