package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"mosaicedit/internal/timeline"
)

func TestTimelineHit(t *testing.T) {
	g := timelineGeom{width: 1000, header: 18, rowH: 22, handle: 6}
	bars := []timeline.Bar{
		{RegionID: "a", Left: 10, Width: 20, Row: 0},
		{RegionID: "b", Left: 15, Width: 10, Row: 1},
	}

	tests := []struct {
		name   string
		x, y   float64
		id     string
		handle timeline.Handle
		ok     bool
	}{
		{"start edge", 101, 25, "a", timeline.StartHandle, true},
		{"end edge", 298, 25, "a", timeline.EndHandle, true},
		{"middle", 200, 25, "a", timeline.Move, true},
		{"second row", 200, 48, "b", timeline.Move, true},
		{"header", 200, 5, "", timeline.Move, false},
		{"empty track", 600, 25, "", timeline.Move, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, h, ok := g.hit(bars, tt.x, tt.y)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.id, id)
			assert.Equal(t, tt.handle, h)
		})
	}
}
