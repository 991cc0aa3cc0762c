package main

import (
	"bytes"
	"image"
	"image/color"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mosaicedit/internal/store"
)

type harness struct {
	t   *testing.T
	dir string
	cfg string
}

func newHarness(t *testing.T) *harness {
	dir := t.TempDir()
	t.Setenv("MOSAICEDIT_DATA_DIR", dir)
	t.Setenv("MOSAICEDIT_STORAGE_PATH", filepath.Join(dir, "projects.db"))
	return &harness{t: t, dir: dir, cfg: filepath.Join(dir, "config.toml")}
}

func (h *harness) run(args ...string) (string, error) {
	var out bytes.Buffer
	err := run(h.cfg, args, &out)
	return out.String(), err
}

func (h *harness) mustRun(args ...string) string {
	out, err := h.run(args...)
	require.NoError(h.t, err, out)
	return out
}

// checkerboard alternates black and white pixels so blurring turns it grey.
func (h *harness) checkerboard(w, hgt int) string {
	img := image.NewRGBA(image.Rect(0, 0, w, hgt))
	for y := 0; y < hgt; y++ {
		for x := 0; x < w; x++ {
			c := color.RGBA{A: 255}
			if (x+y)%2 == 0 {
				c = color.RGBA{255, 255, 255, 255}
			}
			img.SetRGBA(x, y, c)
		}
	}
	path := filepath.Join(h.dir, "frame.png")
	require.NoError(h.t, imaging.Save(img, path))
	return path
}

var createdID = regexp.MustCompile(`Created project (\S+)`)

func (h *harness) newProject() string {
	out := h.mustRun("new", "clip", h.checkerboard(200, 160))
	m := createdID.FindStringSubmatch(out)
	require.Len(h.t, m, 2, out)
	return m[1]
}

func TestUsageErrors(t *testing.T) {
	h := newHarness(t)

	_, err := h.run()
	assert.ErrorIs(t, err, errUsage)

	_, err = h.run("frobnicate")
	assert.ErrorIs(t, err, errUsage)

	_, err = h.run("add", "p", "1", "2")
	assert.ErrorIs(t, err, errUsage)

	out, err := h.run("help")
	require.NoError(t, err)
	assert.Contains(t, out, "mosaicctl - Project utility")
}

func TestProjectLifecycle(t *testing.T) {
	h := newHarness(t)

	assert.Contains(t, h.mustRun("projects"), "No projects saved.")

	id := h.newProject()
	assert.Contains(t, h.mustRun("projects"), id)

	out := h.mustRun("add", id, "8", "8", "16", "16", "0", "5")
	assert.Contains(t, out, "Added region")

	out = h.mustRun("show", id)
	assert.Contains(t, out, "Native:   200x160")
	assert.Contains(t, out, "16.0")

	_, err := h.run("add", id, "8", "8", "0", "16", "0", "5")
	assert.Error(t, err, "zero width must be rejected")

	_, err = h.run("delete", id, "missing")
	assert.ErrorIs(t, err, store.ErrRegionNotFound)

	h.mustRun("remove", id)
	_, err = h.run("show", id)
	assert.ErrorIs(t, err, store.ErrProjectNotFound)
}

func TestRenderBlursRegion(t *testing.T) {
	h := newHarness(t)
	id := h.newProject()
	h.mustRun("add", id, "80", "60", "40", "40", "0", "5")

	output := filepath.Join(h.dir, "out.png")
	out := h.mustRun("render", id, "1", output)
	assert.Contains(t, out, "Rendered 1 active region(s)")
	assert.Contains(t, out, "mosaicedit_compositor_frames_total")

	img, err := imaging.Open(output)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 200, 160), img.Bounds())

	grey := func(x, y int) uint32 {
		r, _, _, _ := img.At(x, y).RGBA()
		return r >> 8
	}
	inside := grey(100, 80)
	assert.Greater(t, inside, uint32(60), "blurred checkerboard is grey")
	assert.Less(t, inside, uint32(195), "blurred checkerboard is grey")

	outside := grey(5, 5)
	assert.True(t, outside == 0 || outside == 255, "outside the region stays sharp")
}

func TestRenderRejectsBadTime(t *testing.T) {
	h := newHarness(t)
	id := h.newProject()
	_, err := h.run("render", id, "soon", filepath.Join(h.dir, "x.png"))
	assert.ErrorIs(t, err, errUsage)
}

func TestFramesExportsPlayedRange(t *testing.T) {
	h := newHarness(t)
	id := h.newProject()
	h.mustRun("add", id, "80", "60", "40", "40", "0", "5")

	dir := filepath.Join(h.dir, "frames")
	out := h.mustRun("frames", id, "0", "0.2", dir)
	assert.Contains(t, out, "mosaicedit_compositor_frames_total")

	files, err := filepath.Glob(filepath.Join(dir, "frame-*.png"))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(files), 2)

	_, err = h.run("frames", id, "2", "1", dir)
	assert.ErrorIs(t, err, errUsage)
}

func TestExportImport(t *testing.T) {
	h := newHarness(t)
	id := h.newProject()
	h.mustRun("add", id, "1", "2", "3", "4", "0", "1")

	file := filepath.Join(h.dir, "clip.json")
	assert.Contains(t, h.mustRun("export", id, file), "Regions: 1")

	h.mustRun("remove", id)
	out := h.mustRun("import", file)
	assert.Contains(t, out, "Imported project "+id+" (1 regions)")
	assert.Contains(t, h.mustRun("show", id), "Project:  clip")
}

func TestStatus(t *testing.T) {
	h := newHarness(t)
	h.newProject()

	out := h.mustRun("status")
	assert.Contains(t, out, "Schema: OK")
	assert.Contains(t, out, "Migrations: 2 of 2 applied")
	assert.Contains(t, out, "Projects: 1")
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "512 B", formatBytes(512))
	assert.Equal(t, "1.5 KB", formatBytes(1536))
	assert.Equal(t, "2.0 MB", formatBytes(2*1024*1024))
}
