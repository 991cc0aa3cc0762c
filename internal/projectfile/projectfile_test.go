package projectfile

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mosaicedit/internal/editor"
	"mosaicedit/internal/store"
)

func TestReadFixture(t *testing.T) {
	f, err := Read(filepath.Join("testdata", "project.json"))
	require.NoError(t, err)

	assert.Equal(t, "street interview", f.Name)
	assert.Equal(t, 20.0, f.Video.Duration)
	assert.Equal(t, 960.0, f.Display.Width)
	require.Len(t, f.Regions, 2)
	assert.Equal(t, editor.Region{
		ID:     "face",
		Rect:   editor.Rect{X: 90, Y: 40, Width: 100, Height: 100},
		Window: editor.Window{Start: 3, End: 8},
	}, f.Regions[0])
}

func TestWriteThenRead(t *testing.T) {
	p := &store.Project{
		ID:            "p1",
		Name:          "demo",
		VideoPath:     "/v/demo",
		Duration:      12,
		NativeWidth:   640,
		NativeHeight:  360,
		DisplayWidth:  320,
		DisplayHeight: 180,
		Regions: []editor.Region{
			{ID: "a", Rect: editor.Rect{X: 1, Y: 2, Width: 3, Height: 4}, Window: editor.Window{Start: 0, End: 5}},
		},
	}
	path := filepath.Join(t.TempDir(), "demo.json")
	require.NoError(t, Write(path, FromProject(p)))

	f, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, p, f.Project())
}

func TestEncodeEmptyRegions(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, FromProject(&store.Project{VideoPath: "/v", Duration: 1})))
	assert.Contains(t, buf.String(), `"regions": []`)

	_, err := Decode(&buf)
	assert.NoError(t, err)
}

func TestDecodeRejects(t *testing.T) {
	tests := []struct {
		name string
		json string
	}{
		{"malformed", `{"version": 1,`},
		{"wrong version", `{"version": 2, "video": {"path": "/v", "duration": 5}, "display": {"width": 1, "height": 1}, "regions": []}`},
		{"missing video", `{"version": 1, "display": {"width": 1, "height": 1}, "regions": []}`},
		{"unknown field", `{"version": 1, "video": {"path": "/v", "duration": 5}, "display": {"width": 1, "height": 1}, "regions": [], "extra": true}`},
		{"zero width", `{"version": 1, "video": {"path": "/v", "duration": 5}, "display": {"width": 1, "height": 1},
			"regions": [{"id": "a", "x": 0, "y": 0, "width": 0, "height": 5, "startTime": 0, "endTime": 1}]}`},
		{"start after end", `{"version": 1, "video": {"path": "/v", "duration": 5}, "display": {"width": 1, "height": 1},
			"regions": [{"id": "a", "x": 0, "y": 0, "width": 5, "height": 5, "startTime": 3, "endTime": 2}]}`},
		{"end past duration", `{"version": 1, "video": {"path": "/v", "duration": 5}, "display": {"width": 1, "height": 1},
			"regions": [{"id": "a", "x": 0, "y": 0, "width": 5, "height": 5, "startTime": 3, "endTime": 6}]}`},
		{"duplicate id", `{"version": 1, "video": {"path": "/v", "duration": 5}, "display": {"width": 1, "height": 1},
			"regions": [{"id": "a", "x": 0, "y": 0, "width": 5, "height": 5, "startTime": 0, "endTime": 1},
			            {"id": "a", "x": 0, "y": 0, "width": 5, "height": 5, "startTime": 1, "endTime": 2}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.json))
			assert.ErrorIs(t, err, ErrInvalid)
		})
	}
}

func TestReadMissingFile(t *testing.T) {
	_, err := Read(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalid)
}
