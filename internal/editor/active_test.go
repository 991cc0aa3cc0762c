package editor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func region(id string, start, end float64) Region {
	return Region{ID: id, Rect: Rect{X: 10, Y: 20, Width: 30, Height: 40}, Window: Window{Start: start, End: end}}
}

func TestActiveRegionsInclusiveBounds(t *testing.T) {
	all := []Region{region("a", 2, 4)}

	tests := []struct {
		t      float64
		active bool
	}{
		{1.999, false},
		{2, true},
		{3, true},
		{4, true},
		{4.001, false},
	}
	for _, tt := range tests {
		got := ActiveRegions(all, tt.t)
		assert.Equal(t, tt.active, len(got) == 1, "t=%v", tt.t)
	}
}

func TestActiveRegionsPreservesOrder(t *testing.T) {
	all := []Region{region("c", 0, 10), region("a", 5, 6), region("b", 0, 1), region("d", 4, 8)}

	got := ActiveRegions(all, 5)
	ids := make([]string, len(got))
	for i, r := range got {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"c", "a", "d"}, ids)
	for _, r := range got {
		assert.True(t, r.Start <= 5 && 5 <= r.End)
	}
}

func TestActiveRegionsZeroLengthWindow(t *testing.T) {
	all := []Region{region("z", 2, 2)}
	assert.Empty(t, ActiveRegions(all, 1.9))
	assert.Len(t, ActiveRegions(all, 2), 1)
	assert.Empty(t, ActiveRegions(all, 2.1))
}

func TestApplyTransientNil(t *testing.T) {
	in := []Region{region("a", 0, 1)}
	assert.Equal(t, in, ApplyTransient(in, nil))
}

func TestApplyTransientUnknownRegionIsIdentity(t *testing.T) {
	in := []Region{region("a", 0, 1), region("b", 0, 1)}
	drag := &DragState{RegionID: "inactive", Rect: Rect{X: 1, Y: 1, Width: 1, Height: 1}}
	assert.Equal(t, in, ApplyTransient(in, drag))
}

func TestApplyTransientReplacesGeometryOnly(t *testing.T) {
	in := []Region{region("a", 0, 1), region("b", 2, 3), region("c", 4, 5)}
	drag := &DragState{RegionID: "b", Rect: Rect{X: 1, Y: 2, Width: 3, Height: 4}}

	out := ApplyTransient(in, drag)
	require.Len(t, out, 3)
	assert.Equal(t, in[0], out[0])
	assert.Equal(t, in[2], out[2])
	assert.Equal(t, Region{ID: "b", Rect: drag.Rect, Window: Window{Start: 2, End: 3}}, out[1])

	// The input slice is untouched.
	assert.Equal(t, Rect{X: 10, Y: 20, Width: 30, Height: 40}, in[1].Rect)
}
