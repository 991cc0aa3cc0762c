package compositor

import (
	"bytes"
	"image"
	"image/color"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/draw"

	"mosaicedit/internal/editor"
	"mosaicedit/internal/frame"
	"mosaicedit/internal/metrics"
	"mosaicedit/internal/video"
)

var (
	red  = color.RGBA{R: 255, A: 255}
	blue = color.RGBA{B: 255, A: 255}
)

type fakeSource struct {
	mu      sync.Mutex
	img     image.Image
	err     error
	now     float64
	playing bool
}

func (f *fakeSource) CurrentTime() float64 { f.mu.Lock(); defer f.mu.Unlock(); return f.now }
func (f *fakeSource) Duration() float64    { return 20 }
func (f *fakeSource) NativeSize() (int, int) {
	if f.img == nil {
		return 0, 0
	}
	b := f.img.Bounds()
	return b.Dx(), b.Dy()
}
func (f *fakeSource) Play()          { f.mu.Lock(); f.playing = true; f.mu.Unlock() }
func (f *fakeSource) Pause()         { f.mu.Lock(); f.playing = false; f.mu.Unlock() }
func (f *fakeSource) Playing() bool  { f.mu.Lock(); defer f.mu.Unlock(); return f.playing }
func (f *fakeSource) Seek(t float64) { f.mu.Lock(); f.now = t; f.mu.Unlock() }
func (f *fakeSource) Close() error   { return nil }
func (f *fakeSource) Frame() (image.Image, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.img, nil
}

type fakeDrag struct{ d *editor.DragState }

func (f *fakeDrag) Drag() *editor.DragState { return f.d }

func solid(w, h int, c color.RGBA) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	draw.Draw(img, img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
	return img
}

type fixture struct {
	store *editor.Store
	sched *frame.Manual
	src   *fakeSource
	drag  *fakeDrag
	reg   *prometheus.Registry
	m     *metrics.Compositor
	logs  *bytes.Buffer
	c     *Compositor
}

func newFixture(t *testing.T, img image.Image) *fixture {
	t.Helper()
	f := &fixture{
		store: editor.NewStore(),
		sched: frame.NewManual(time.Unix(0, 0)),
		src:   &fakeSource{img: img},
		drag:  &fakeDrag{},
		reg:   prometheus.NewRegistry(),
		logs:  &bytes.Buffer{},
	}
	f.m = metrics.NewCompositor(f.reg)
	b := img.Bounds()
	f.store.SetNativeSize(b.Dx(), b.Dy())
	f.store.SetDisplaySize(float64(b.Dx()), float64(b.Dy()))
	f.c = New(f.store, f.sched, f.drag, Config{
		Logger:  slog.New(slog.NewTextHandler(f.logs, nil)),
		Metrics: f.m,
	})
	f.c.SetSource(f.src)
	return f
}

func alphaAt(img *image.RGBA, x, y int) uint8 {
	return img.RGBAAt(x, y).A
}

func TestShouldContinue(t *testing.T) {
	assert.False(t, ShouldContinue(false, false))
	assert.True(t, ShouldContinue(true, false))
	assert.True(t, ShouldContinue(false, true))
	assert.True(t, ShouldContinue(true, true))
}

func TestSourceRectScalesDisplayToSource(t *testing.T) {
	r := editor.Rect{X: 100, Y: 100, Width: 50, Height: 50}
	sx, sy := 1920.0/960.0, 1080.0/540.0

	x, y, w, h := SourceRect(r, 0, sx, sy)
	assert.Equal(t, 200.0, x)
	assert.Equal(t, 200.0, y)
	assert.Equal(t, 100.0, w)
	assert.Equal(t, 100.0, h)

	x, y, w, h = SourceRect(r, 30, sx, sy)
	assert.Equal(t, 140.0, x)
	assert.Equal(t, 140.0, y)
	assert.Equal(t, 220.0, w)
	assert.Equal(t, 220.0, h)
}

func TestSourceRectClampsOrigin(t *testing.T) {
	x, y, w, _ := SourceRect(editor.Rect{X: 10, Y: 5, Width: 20, Height: 20}, 30, 2, 2)
	assert.Equal(t, 0.0, x)
	assert.Equal(t, 0.0, y)
	assert.Equal(t, 160.0, w)
}

func TestClipRect(t *testing.T) {
	b := image.Rect(0, 0, 100, 100)
	assert.Equal(t, image.Rect(10, 20, 41, 30), ClipRect(editor.Rect{X: 10.5, Y: 20, Width: 30, Height: 10}, b))
	assert.Equal(t, image.Rect(90, 90, 100, 100), ClipRect(editor.Rect{X: 90, Y: 90, Width: 50, Height: 50}, b))
	assert.True(t, ClipRect(editor.Rect{X: 200, Y: 200, Width: 5, Height: 5}, b).Empty())
}

func TestRenderPaintsOnlyInsideRegion(t *testing.T) {
	f := newFixture(t, solid(200, 200, red))
	f.store.AddRegion(editor.Rect{X: 100, Y: 100, Width: 50, Height: 50}, editor.Window{Start: 0, End: 5})
	f.c.Request()

	out := f.c.Output()
	require.NotNil(t, out)
	assert.Equal(t, image.Rect(0, 0, 200, 200), out.Bounds())

	inside := out.RGBAAt(125, 125)
	assert.Greater(t, inside.R, uint8(250))
	assert.Greater(t, inside.A, uint8(250))
	assert.Greater(t, alphaAt(out, 100, 100), uint8(250))
	assert.Greater(t, alphaAt(out, 149, 149), uint8(250))

	assert.Zero(t, alphaAt(out, 99, 125))
	assert.Zero(t, alphaAt(out, 150, 125))
	assert.Zero(t, alphaAt(out, 125, 150))
	assert.Zero(t, alphaAt(out, 10, 10))
}

func TestRenderWeightsFractionalEdges(t *testing.T) {
	f := newFixture(t, solid(200, 200, red))
	f.store.AddRegion(editor.Rect{X: 40.5, Y: 20, Width: 30, Height: 20}, editor.Window{Start: 0, End: 5})
	f.c.Request()

	out := f.c.Output()
	require.NotNil(t, out)

	assert.Zero(t, alphaAt(out, 39, 30))
	assert.InDelta(t, 128, float64(alphaAt(out, 40, 30)), 3, "left edge pixel is half covered")
	assert.Greater(t, alphaAt(out, 41, 30), uint8(250))
	assert.Greater(t, alphaAt(out, 69, 30), uint8(250))
	assert.InDelta(t, 128, float64(alphaAt(out, 70, 30)), 3, "right edge pixel is half covered")
	assert.Zero(t, alphaAt(out, 71, 30))
}

func TestCoverageMask(t *testing.T) {
	assert.Nil(t, coverageMask(editor.Rect{X: 10, Y: 10, Width: 5, Height: 5}, image.Rect(10, 10, 15, 15)))

	r := editor.Rect{X: 10.25, Y: 10, Width: 2, Height: 1}
	m := coverageMask(r, ClipRect(r, image.Rect(0, 0, 100, 100)))
	require.NotNil(t, m)
	assert.Equal(t, image.Rect(10, 10, 13, 11), m.Bounds())
	assert.Equal(t, uint8(191), m.AlphaAt(10, 10).A)
	assert.Equal(t, uint8(255), m.AlphaAt(11, 10).A)
	assert.Equal(t, uint8(64), m.AlphaAt(12, 10).A)
}

func TestRenderSamplesScaledSource(t *testing.T) {
	img := solid(400, 200, red)
	draw.Draw(img, image.Rect(200, 0, 400, 200), image.NewUniform(blue), image.Point{}, draw.Src)

	f := newFixture(t, img)
	f.store.SetDisplaySize(200, 100)
	f.c = New(f.store, f.sched, nil, Config{BlurIntensity: 1, Interpolator: draw.NearestNeighbor})
	f.c.SetSource(f.src)

	f.store.AddRegion(editor.Rect{X: 10, Y: 10, Width: 20, Height: 20}, editor.Window{Start: 0, End: 5})
	f.store.AddRegion(editor.Rect{X: 160, Y: 10, Width: 20, Height: 20}, editor.Window{Start: 0, End: 5})
	f.c.Request()

	out := f.c.Output()
	assert.Equal(t, image.Rect(0, 0, 200, 100), out.Bounds())

	left := out.RGBAAt(20, 20)
	assert.Greater(t, left.R, uint8(250))
	assert.Less(t, left.B, uint8(5))

	right := out.RGBAAt(170, 20)
	assert.Greater(t, right.B, uint8(250))
	assert.Less(t, right.R, uint8(5))
}

func TestRenderSkipsInactiveRegions(t *testing.T) {
	f := newFixture(t, solid(200, 200, red))
	f.store.AddRegion(editor.Rect{X: 100, Y: 100, Width: 50, Height: 50}, editor.Window{Start: 5, End: 8})
	f.c.Request()

	assert.Zero(t, alphaAt(f.c.Output(), 125, 125))
	assert.Equal(t, 0.0, testutil.ToFloat64(f.m.ActiveRegions))

	f.src.Seek(5)
	f.c.Request()
	assert.Greater(t, alphaAt(f.c.Output(), 125, 125), uint8(250))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.m.ActiveRegions))
}

func TestRenderUsesDragGeometry(t *testing.T) {
	f := newFixture(t, solid(200, 200, red))
	id := f.store.AddRegion(editor.Rect{X: 0, Y: 0, Width: 40, Height: 40}, editor.Window{Start: 0, End: 5})

	f.drag.d = &editor.DragState{RegionID: id, Rect: editor.Rect{X: 100, Y: 100, Width: 40, Height: 40}}
	f.c.Request()

	out := f.c.Output()
	assert.Greater(t, alphaAt(out, 120, 120), uint8(250))
	assert.Zero(t, alphaAt(out, 20, 20))

	r, _ := f.store.Region(id)
	assert.Equal(t, 0.0, r.X, "drag state never reaches the store")
}

func TestRenderIsolatesRegionFailures(t *testing.T) {
	f := newFixture(t, solid(200, 200, red))
	f.store.AddRegion(editor.Rect{X: 10, Y: 10, Width: 0, Height: 20}, editor.Window{Start: 0, End: 5})
	f.store.AddRegion(editor.Rect{X: 100, Y: 100, Width: 50, Height: 50}, editor.Window{Start: 0, End: 5})
	f.c.Request()

	assert.Greater(t, alphaAt(f.c.Output(), 125, 125), uint8(250))
	assert.Equal(t, 1.0, testutil.ToFloat64(f.m.RegionErrorsTotal.WithLabelValues(StageSample)))
	assert.Contains(t, f.logs.String(), "region skipped")
	assert.Contains(t, f.logs.String(), "region_id=")
}

func TestRenderWithoutFrameLogsAndContinues(t *testing.T) {
	f := newFixture(t, solid(200, 200, red))
	f.src.err = video.ErrNoFrame
	f.src.Play()
	f.store.AddRegion(editor.Rect{X: 10, Y: 10, Width: 20, Height: 20}, editor.Window{Start: 0, End: 5})
	f.store.AddRegion(editor.Rect{X: 100, Y: 100, Width: 20, Height: 20}, editor.Window{Start: 0, End: 5})

	f.c.Request()

	assert.Zero(t, alphaAt(f.c.Output(), 110, 110))
	assert.Equal(t, 2.0, testutil.ToFloat64(f.m.RegionErrorsTotal.WithLabelValues(StageSample)))
	assert.True(t, f.c.Pending(), "the loop keeps running")
}

func TestLoopRunsWhilePlaying(t *testing.T) {
	f := newFixture(t, solid(50, 50, red))
	frames := 0
	f.c.OnFrame(func(*image.RGBA) { frames++ })

	f.c.Request()
	assert.Equal(t, 1, frames, "paused: one synchronous pass")
	assert.False(t, f.c.Pending())
	assert.Zero(t, f.sched.Pending())

	f.src.Play()
	f.c.Request()
	assert.Equal(t, 2, frames)
	assert.True(t, f.c.Pending())

	f.c.Request()
	assert.Equal(t, 2, frames, "a pending frame absorbs requests")
	assert.Equal(t, 1, f.sched.Pending())

	f.sched.Step(16 * time.Millisecond)
	assert.Equal(t, 3, frames)
	assert.Equal(t, 1, f.sched.Pending())

	f.src.Pause()
	f.sched.Step(16 * time.Millisecond)
	assert.Equal(t, 4, frames, "one final pass after playback stops")
	assert.False(t, f.c.Pending())
	assert.Zero(t, f.sched.Pending())
}

func TestLoopRunsWhileDragging(t *testing.T) {
	f := newFixture(t, solid(50, 50, red))
	id := f.store.AddRegion(editor.Rect{X: 0, Y: 0, Width: 10, Height: 10}, editor.Window{Start: 0, End: 5})

	f.drag.d = &editor.DragState{RegionID: id, Rect: editor.Rect{X: 5, Y: 5, Width: 10, Height: 10}}
	f.c.Request()
	assert.True(t, f.c.Pending())

	f.drag.d = nil
	f.sched.Step(time.Millisecond)
	assert.False(t, f.c.Pending())
}

func TestStoreChangesTriggerRender(t *testing.T) {
	f := newFixture(t, solid(200, 200, red))
	detach := f.c.Attach()
	defer detach()

	f.store.AddRegion(editor.Rect{X: 100, Y: 100, Width: 50, Height: 50}, editor.Window{Start: 0, End: 5})
	assert.Greater(t, alphaAt(f.c.Output(), 125, 125), uint8(250))
}

func TestStopCancelsPendingFrame(t *testing.T) {
	f := newFixture(t, solid(50, 50, red))
	f.src.Play()
	f.c.Request()
	require.Equal(t, 1, f.sched.Pending())

	f.c.Stop()
	assert.Zero(t, f.sched.Pending())
	assert.False(t, f.c.Pending())

	f.c.Request()
	assert.Zero(t, f.sched.Pending(), "stopped compositor ignores requests")
}

func TestSetSourceReplacesPendingFrame(t *testing.T) {
	f := newFixture(t, solid(50, 50, red))
	f.src.Play()
	f.c.Request()
	require.Equal(t, 1, f.sched.Pending())

	next := &fakeSource{img: solid(50, 50, blue), playing: true}
	f.c.SetSource(next)
	assert.Equal(t, 1, f.sched.Pending(), "old frame cancelled, new one queued")

	next.Pause()
	assert.Equal(t, 1, f.sched.Step(time.Millisecond))
	assert.Zero(t, f.sched.Pending())
}

func TestFlatten(t *testing.T) {
	overlay := image.NewRGBA(image.Rect(0, 0, 10, 10))
	overlay.SetRGBA(5, 5, blue)

	out := Flatten(solid(20, 20, red), overlay, draw.NearestNeighbor)
	assert.Equal(t, image.Rect(0, 0, 10, 10), out.Bounds())
	assert.Equal(t, red, out.RGBAAt(0, 0))
	assert.Equal(t, blue, out.RGBAAt(5, 5))
}
