package ui

import (
	"fmt"
	"strconv"
	"strings"

	"gioui.org/layout"
	"gioui.org/unit"
	"gioui.org/widget"
	"gioui.org/widget/material"

	"mosaicedit/internal/editor"
	"mosaicedit/internal/timeline"
)

// controls holds the transport buttons and the numeric window editors.
type controls struct {
	play, back, fwd widget.Clickable
	add, del, save  widget.Clickable

	start, end widget.Editor
	// shownID and shown are what the editors were last filled with.
	shownID string
	shown   editor.Window
}

func (c *controls) init() {
	c.start = widget.Editor{SingleLine: true, Submit: true}
	c.end = widget.Editor{SingleLine: true, Submit: true}
}

// parseSeconds reads a typed time. Unparsable input counts as zero.
func parseSeconds(s string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return v
}

func formatSeconds(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

func (e *Editor) controlEvents(gtx layout.Context) {
	st := e.store.Snapshot()

	if e.ctl.play.Clicked(gtx) {
		e.player.Toggle()
	}
	if e.ctl.back.Clicked(gtx) {
		e.player.SkipBack()
	}
	if e.ctl.fwd.Clicked(gtx) {
		e.player.SkipForward()
	}
	if e.ctl.add.Clicked(gtx) {
		e.store.SetPlacementMode(!st.Placing)
	}
	if e.ctl.del.Clicked(gtx) && st.SelectedID != "" {
		e.store.DeleteRegion(st.SelectedID)
	}
	if e.ctl.save.Clicked(gtx) {
		if err := e.Save(); err != nil {
			e.log.Error("save failed", "err", err)
			e.setStatus("Save failed: " + err.Error())
		} else {
			e.setStatus("Saved")
		}
	}

	sel := e.store.Selected()
	for {
		ev, ok := e.ctl.start.Update(gtx)
		if !ok {
			break
		}
		if s, ok := ev.(widget.SubmitEvent); ok && sel != "" {
			e.store.SetStartTime(sel, parseSeconds(s.Text))
			e.ctl.shownID = ""
		}
	}
	for {
		ev, ok := e.ctl.end.Update(gtx)
		if !ok {
			break
		}
		if s, ok := ev.(widget.SubmitEvent); ok && sel != "" {
			e.store.SetEndTime(sel, parseSeconds(s.Text))
			e.ctl.shownID = ""
		}
	}

	// Refill the editors when the selection or its window changed, unless
	// the user is typing in one.
	r, ok := e.store.Region(sel)
	if !ok {
		e.ctl.shownID = ""
		return
	}
	if r.ID == e.ctl.shownID && r.Window == e.ctl.shown {
		return
	}
	if !gtx.Focused(&e.ctl.start) {
		e.ctl.start.SetText(formatSeconds(r.Start))
	}
	if !gtx.Focused(&e.ctl.end) {
		e.ctl.end.SetText(formatSeconds(r.End))
	}
	e.ctl.shownID, e.ctl.shown = r.ID, r.Window
}

func (e *Editor) layoutControls(gtx layout.Context) layout.Dimensions {
	e.controlEvents(gtx)
	st := e.store.Snapshot()
	th := e.th.Theme
	gap := layout.Spacer{Width: e.th.Config.Spacing}.Layout

	button := func(b *widget.Clickable, label string, enabled bool) layout.FlexChild {
		return layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			if !enabled {
				gtx = gtx.Disabled()
			}
			btn := material.Button(th, b, label)
			btn.TextSize = e.th.Config.FontBody
			btn.CornerRadius = e.th.Config.CornerRadius
			return btn.Layout(gtx)
		})
	}
	text := func(s string, muted bool) layout.FlexChild {
		return layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			l := material.Body2(th, s)
			l.Color = e.th.Palette.Text
			if muted {
				l.Color = e.th.Palette.TextMuted
			}
			return l.Layout(gtx)
		})
	}
	field := func(ed *widget.Editor, hint string) layout.FlexChild {
		return layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			w := gtx.Dp(unit.Dp(72))
			gtx.Constraints.Min.X, gtx.Constraints.Max.X = w, w
			return widget.Border{
				Color:        e.th.Palette.Border,
				CornerRadius: e.th.Config.CornerRadius,
				Width:        unit.Dp(1),
			}.Layout(gtx, func(gtx layout.Context) layout.Dimensions {
				return layout.UniformInset(unit.Dp(4)).Layout(gtx, material.Editor(th, ed, hint).Layout)
			})
		})
	}

	hasVideo := e.src != nil
	playLabel := "Play"
	if st.Playing {
		playLabel = "Pause"
	}
	addLabel := "Add region"
	if st.Placing {
		addLabel = "Click video…"
	}
	clock := fmt.Sprintf("%s / %s", timeline.FormatTime(st.CurrentTime), timeline.FormatTime(st.Duration))

	transport := []layout.FlexChild{
		button(&e.ctl.back, "-10s", hasVideo), layout.Rigid(gap),
		button(&e.ctl.play, playLabel, hasVideo), layout.Rigid(gap),
		button(&e.ctl.fwd, "+10s", hasVideo), layout.Rigid(gap),
		text(clock, false), layout.Rigid(gap), layout.Rigid(gap),
		button(&e.ctl.add, addLabel, hasVideo), layout.Rigid(gap),
		button(&e.ctl.del, "Delete", st.SelectedID != ""), layout.Rigid(gap),
		button(&e.ctl.save, "Save", hasVideo && e.db != nil),
	}
	if st.SelectedID != "" {
		transport = append(transport,
			layout.Rigid(gap), layout.Rigid(gap),
			text("Start", true), layout.Rigid(gap), field(&e.ctl.start, "0.00"), layout.Rigid(gap),
			text("End", true), layout.Rigid(gap), field(&e.ctl.end, "0.00"),
		)
	}
	if e.status != "" {
		transport = append(transport, layout.Rigid(gap), layout.Rigid(gap), text(e.status, true))
	}

	return layout.Flex{Axis: layout.Horizontal, Alignment: layout.Middle}.Layout(gtx, transport...)
}
