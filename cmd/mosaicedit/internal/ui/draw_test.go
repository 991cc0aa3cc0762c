package ui

import (
	"image"
	"testing"

	"gioui.org/f32"
	"github.com/stretchr/testify/assert"

	"mosaicedit/internal/canvas"
)

func TestFit(t *testing.T) {
	w, h := fit(image.Pt(800, 600), 1920, 1080)
	assert.InDelta(t, 800, w, 1e-9)
	assert.InDelta(t, 450, h, 1e-9)

	w, h = fit(image.Pt(800, 300), 1920, 1080)
	assert.InDelta(t, 300.0*1920/1080, w, 1e-9)
	assert.InDelta(t, 300, h, 1e-9)

	w, h = fit(image.Pt(800, 600), 0, 1080)
	assert.Zero(t, w)
	assert.Zero(t, h)
}

func TestDashes(t *testing.T) {
	segs := dashes(f32.Pt(0, 0), f32.Pt(22, 0), []float64{5, 5})
	want := [][2]float32{{0, 5}, {10, 15}, {20, 22}}
	if assert.Len(t, segs, len(want)) {
		for i, s := range segs {
			assert.InDelta(t, want[i][0], s.from.X, 1e-4)
			assert.InDelta(t, want[i][1], s.to.X, 1e-4)
			assert.Zero(t, s.from.Y)
		}
	}

	solid := dashes(f32.Pt(0, 0), f32.Pt(0, 9), nil)
	assert.Equal(t, []segment{{f32.Pt(0, 0), f32.Pt(0, 9)}}, solid)
}

func TestCornerBoxes(t *testing.T) {
	o := &canvas.Object{Left: 10, Top: 20, Width: 30, Height: 40, ScaleX: 1, ScaleY: 1,
		Style: canvas.Style{CornerSize: 10}}

	boxes := cornerBoxes(o, 2)
	assert.Equal(t, image.Rect(10, 30, 30, 50), boxes[0])
	assert.Equal(t, image.Rect(70, 110, 90, 130), boxes[3])
}
