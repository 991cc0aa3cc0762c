package ui

import (
	"image"
	"image/color"

	"gioui.org/io/event"
	"gioui.org/io/pointer"
	"gioui.org/layout"
	"gioui.org/op"
	"gioui.org/op/clip"
	"gioui.org/op/paint"
	"gioui.org/unit"
	"gioui.org/widget/material"

	"mosaicedit/internal/editor"
	"mosaicedit/internal/timeline"
)

// timelineState is the timeline gesture in progress, if any.
type timelineState struct {
	drag   *timeline.Drag
	pressX float64
}

// timelineGeom maps bars to pixels.
type timelineGeom struct {
	width  float64
	header float64
	rowH   float64
	handle float64
}

func (g timelineGeom) barRect(b timeline.Bar) (x0, y0, x1, y1 float64) {
	x0 = b.Left / 100 * g.width
	x1 = x0 + b.Width/100*g.width
	y0 = g.header + float64(b.Row)*g.rowH + 2
	y1 = y0 + g.rowH - 4
	return
}

// hit returns the bar under (x, y) and the part of it grabbed. Later bars
// are drawn on top, so they win.
func (g timelineGeom) hit(bars []timeline.Bar, x, y float64) (string, timeline.Handle, bool) {
	for i := len(bars) - 1; i >= 0; i-- {
		x0, y0, x1, y1 := g.barRect(bars[i])
		if y < y0 || y > y1 || x < x0-g.handle/2 || x > x1+g.handle/2 {
			continue
		}
		switch {
		case x <= x0+g.handle:
			return bars[i].RegionID, timeline.StartHandle, true
		case x >= x1-g.handle:
			return bars[i].RegionID, timeline.EndHandle, true
		default:
			return bars[i].RegionID, timeline.Move, true
		}
	}
	return "", timeline.Move, false
}

func (e *Editor) layoutTimeline(gtx layout.Context) layout.Dimensions {
	cfg := e.config()
	rows := cfg.Editor.TimelineRows
	if rows <= 0 {
		rows = timeline.DefaultRows
	}
	g := timelineGeom{
		width:  float64(gtx.Constraints.Max.X),
		header: float64(gtx.Dp(unit.Dp(18))),
		rowH:   float64(gtx.Dp(e.th.Config.TimelineRow)),
		handle: float64(gtx.Dp(e.th.Config.HandleWidth)),
	}
	size := image.Pt(gtx.Constraints.Max.X, int(g.header+float64(rows)*g.rowH))
	fillRect(gtx.Ops, e.th.Palette.Panel, image.Rectangle{Max: size})

	st := e.store.Snapshot()
	bars := timeline.Layout(st.Regions, st.SelectedID, st.Duration, rows)

	defer clip.Rect{Max: size}.Push(gtx.Ops).Pop()
	e.timelineEvents(gtx, st, bars, g, cfg.Editor.DragMinDurationSec)
	event.Op(gtx.Ops, &e.timelineTag)

	label := gtx
	label.Constraints.Min = image.Point{}
	for _, tk := range timeline.Ticks(st.Duration, cfg.Editor.TimelineTickSec) {
		x := int(tk.Percent / 100 * g.width)
		fillRect(gtx.Ops, e.th.Palette.Border, image.Rect(x, 0, x+1, size.Y))

		stack := op.Offset(image.Pt(x+3, 0)).Push(gtx.Ops)
		l := material.Caption(e.th.Theme, tk.Label)
		l.Color = e.th.Palette.TextMuted
		l.TextSize = e.th.Config.FontCaption
		l.Layout(label)
		stack.Pop()
	}

	for _, b := range bars {
		x0, y0, x1, y1 := g.barRect(b)
		r := image.Rect(int(x0), int(y0), int(x1), int(y1))
		c := e.th.Palette.Bar
		if b.Selected {
			c = e.th.Palette.BarSelected
		}
		rr := clip.UniformRRect(r, gtx.Dp(e.th.Config.CornerRadius)).Op(gtx.Ops)
		paint.FillShape(gtx.Ops, c, rr)

		hw := int(g.handle)
		edge := color.NRGBA{A: 0x50}
		fillRect(gtx.Ops, edge, image.Rect(r.Min.X, r.Min.Y, r.Min.X+hw, r.Max.Y))
		fillRect(gtx.Ops, edge, image.Rect(r.Max.X-hw, r.Min.Y, r.Max.X, r.Max.Y))
	}

	px := int(timeline.Playhead(st.CurrentTime, st.Duration) / 100 * g.width)
	fillRect(gtx.Ops, e.th.Palette.Playhead, image.Rect(px-1, 0, px+1, size.Y))

	return layout.Dimensions{Size: size}
}

// timelineEvents turns presses on bars into window drags and presses on
// empty track into seeks.
func (e *Editor) timelineEvents(gtx layout.Context, st editor.EditorState, bars []timeline.Bar, g timelineGeom, minLen float64) {
	for {
		ev, ok := gtx.Event(pointer.Filter{
			Target: &e.timelineTag,
			Kinds:  pointer.Press | pointer.Drag | pointer.Release | pointer.Cancel,
		})
		if !ok {
			return
		}
		pe, ok := ev.(pointer.Event)
		if !ok {
			continue
		}
		x, y := float64(pe.Position.X), float64(pe.Position.Y)

		switch pe.Kind {
		case pointer.Press:
			id, h, hit := g.hit(bars, x, y)
			if !hit {
				e.player.Seek(timeline.TimeAt(x, g.width, st.Duration))
				continue
			}
			if d, ok := timeline.Begin(e.store, id, h); ok {
				if minLen > 0 {
					d.MinLength = minLen
				}
				e.tl = timelineState{drag: d, pressX: x}
			}
		case pointer.Drag:
			if e.tl.drag != nil {
				e.tl.drag.Update(e.store, x-e.tl.pressX, g.width)
			}
		case pointer.Release, pointer.Cancel:
			e.tl = timelineState{}
		}
	}
}
