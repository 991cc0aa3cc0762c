package ui

import (
	"image"
	"math"

	"gioui.org/io/event"
	"gioui.org/io/pointer"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/clip"
	"gioui.org/widget/material"
)

// layoutVideo draws the current frame, the compositor's overlay and the
// region shapes, scaled from display space to fit the available area.
func (e *Editor) layoutVideo(gtx layout.Context) layout.Dimensions {
	size := gtx.Constraints.Max
	fillRect(gtx.Ops, e.th.Palette.Surface, image.Rectangle{Max: size})

	if e.src == nil {
		return layout.Center.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
			l := material.Body1(e.th.Theme, "Open a frame directory or image: mosaicedit <path>")
			l.Color = e.th.Palette.TextMuted
			return l.Layout(gtx)
		})
	}

	st := e.store.Snapshot()
	if st.DisplayWidth <= 0 || st.DisplayHeight <= 0 {
		nw, nh := e.src.NativeSize()
		dw, dh := fit(size, float64(nw), float64(nh))
		if dw <= 0 || dh <= 0 {
			return layout.Dimensions{Size: size}
		}
		e.store.SetDisplaySize(math.Round(dw), math.Round(dh))
		st = e.store.Snapshot()
	}
	e.canvas.SetSize(st.DisplayWidth, st.DisplayHeight)

	vw, vh := fit(size, st.DisplayWidth, st.DisplayHeight)
	if vw <= 0 {
		return layout.Dimensions{Size: size}
	}
	zoom := vw / st.DisplayWidth

	off := image.Pt(int((float64(size.X)-vw)/2), int((float64(size.Y)-vh)/2))
	defer op.Offset(off).Push(gtx.Ops).Pop()
	defer clip.Rect{Max: image.Pt(int(vw), int(vh))}.Push(gtx.Ops).Pop()

	e.videoEvents(gtx, zoom)
	event.Op(gtx.Ops, &e.videoTag)
	if st.Placing {
		pointer.CursorCrosshair.Add(gtx.Ops)
	}

	if img, err := e.src.Frame(); err == nil {
		drawImage(gtx.Ops, img, vw, vh)
	}
	if ov := e.overlay.Load(); ov != nil {
		b := ov.Bounds()
		drawImage(gtx.Ops, ov, float64(b.Dx())*zoom, float64(b.Dy())*zoom)
	}

	active := e.canvas.ActiveObject()
	for _, o := range e.canvas.Objects() {
		drawObject(gtx.Ops, o, o == active, zoom)
	}
	return layout.Dimensions{Size: size}
}

// videoEvents feeds pointer input to the placement click and the canvas
// gestures, in display coordinates.
func (e *Editor) videoEvents(gtx layout.Context, zoom float64) {
	for {
		ev, ok := gtx.Event(pointer.Filter{
			Target: &e.videoTag,
			Kinds:  pointer.Press | pointer.Drag | pointer.Release | pointer.Cancel,
		})
		if !ok {
			return
		}
		pe, ok := ev.(pointer.Event)
		if !ok {
			continue
		}
		x, y := float64(pe.Position.X)/zoom, float64(pe.Position.Y)/zoom

		switch pe.Kind {
		case pointer.Press:
			if _, placed := e.layer.Click(x, y); placed {
				continue
			}
			e.canvas.PointerDown(x, y)
		case pointer.Drag:
			e.canvas.PointerMove(x, y)
		case pointer.Release:
			e.canvas.PointerUp(x, y)
		case pointer.Cancel:
			e.canvas.Cancel()
		}
	}
}
