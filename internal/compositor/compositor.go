// Package compositor renders the blurred overlay for every region active at
// the current playback time.
//
// Each region is resampled from source space into a padded scratch image,
// blurred, and painted back clipped to the region's display-space bounds.
// The output is transparent everywhere else and is meant to be drawn over
// the displayed video frame.
package compositor

import (
	"image"
	"log/slog"
	"math"
	"sync"
	"time"

	"golang.org/x/image/draw"

	"mosaicedit/internal/editor"
	"mosaicedit/internal/frame"
	"mosaicedit/internal/metrics"
	"mosaicedit/internal/video"
)

// DefaultBlurIntensity is the blur standard deviation in display pixels.
const DefaultBlurIntensity = 15

// DragSource reports the in-flight geometry edit, if any. *shape.Layer
// implements it.
type DragSource interface {
	Drag() *editor.DragState
}

// Config configures a Compositor.
type Config struct {
	// BlurIntensity is the blur sigma. Patches are sampled with twice this
	// much padding on every side.
	BlurIntensity float64
	// Interpolator resamples source pixels. Defaults to bilinear.
	Interpolator draw.Interpolator
	Logger       *slog.Logger
	Metrics      *metrics.Compositor
}

// ShouldContinue reports whether the render loop keeps requesting frames.
func ShouldContinue(playing, dragging bool) bool {
	return playing || dragging
}

// Compositor owns the render loop. At most one frame callback is pending
// at a time.
type Compositor struct {
	store *editor.Store
	sched frame.Scheduler
	drag  DragSource
	cfg   Config
	log   *slog.Logger

	mu      sync.Mutex
	src     video.Source
	pending frame.Handle
	gen     uint64
	out     *image.RGBA
	stopped bool

	onFrame []func(*image.RGBA)
}

// New returns a compositor reading regions from store and frames from the
// source set with SetSource. drag may be nil.
func New(store *editor.Store, sched frame.Scheduler, drag DragSource, cfg Config) *Compositor {
	if cfg.BlurIntensity <= 0 {
		cfg.BlurIntensity = DefaultBlurIntensity
	}
	if cfg.Interpolator == nil {
		cfg.Interpolator = draw.BiLinear
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Compositor{
		store: store,
		sched: sched,
		drag:  drag,
		cfg:   cfg,
		log:   cfg.Logger.With("component", "compositor"),
	}
}

// Padding is the margin sampled around each region.
func (c *Compositor) Padding() float64 {
	return 2 * c.cfg.BlurIntensity
}

// OnFrame registers fn to receive every rendered overlay. Each call gets a
// freshly allocated image that the compositor no longer touches.
func (c *Compositor) OnFrame(fn func(*image.RGBA)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onFrame = append(c.onFrame, fn)
}

// Attach requests a frame on every store change. The returned func detaches.
func (c *Compositor) Attach() (detach func()) {
	return c.store.Subscribe(c.Request)
}

// SetSource swaps the video source, cancelling any pending frame, and
// renders once against the new source.
func (c *Compositor) SetSource(src video.Source) {
	c.mu.Lock()
	c.cancelLocked()
	c.src = src
	c.stopped = false
	c.mu.Unlock()
	c.Request()
}

// Request renders now unless a frame is already pending, in which case the
// pending frame picks up the change. After rendering, the loop continues
// while playback or a drag is in progress.
func (c *Compositor) Request() {
	c.mu.Lock()
	if c.pending != 0 || c.stopped {
		c.mu.Unlock()
		return
	}
	c.frameLocked()
}

// Stop cancels any pending frame and ignores further requests until
// SetSource is called again.
func (c *Compositor) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelLocked()
	c.stopped = true
}

// Pending reports whether a frame callback is queued.
func (c *Compositor) Pending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pending != 0
}

// Output returns the most recent overlay, or nil before the first frame.
func (c *Compositor) Output() *image.RGBA {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.out
}

func (c *Compositor) cancelLocked() {
	if c.pending != 0 {
		c.sched.CancelFrame(c.pending)
		c.pending = 0
	}
	c.gen++
}

func (c *Compositor) scheduleLocked() {
	c.gen++
	gen := c.gen
	c.pending = c.sched.RequestFrame(func(time.Time) {
		c.mu.Lock()
		// A callback already dequeued by the scheduler when it was
		// cancelled must not run.
		if gen != c.gen || c.pending == 0 {
			c.mu.Unlock()
			return
		}
		c.pending = 0
		c.frameLocked()
	})
}

// frameLocked renders one frame, schedules the next if the loop should
// continue, and unlocks c.mu before notifying listeners.
func (c *Compositor) frameLocked() {
	st := c.store.Snapshot()
	var drag *editor.DragState
	if c.drag != nil {
		drag = c.drag.Drag()
	}
	out := c.renderLocked(st, drag)
	c.out = out

	if ShouldContinue(c.playing(st), drag != nil) {
		c.scheduleLocked()
	}
	listeners := c.onFrame
	c.mu.Unlock()

	for _, fn := range listeners {
		fn(out)
	}
}

func (c *Compositor) playing(st editor.EditorState) bool {
	if c.src != nil {
		return c.src.Playing()
	}
	return st.Playing
}

// Render composites one frame for the given state and drag without
// touching the loop. It is what each loop iteration runs.
func (c *Compositor) Render(st editor.EditorState, drag *editor.DragState) *image.RGBA {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.renderLocked(st, drag)
}

func (c *Compositor) renderLocked(st editor.EditorState, drag *editor.DragState) *image.RGBA {
	started := time.Now()

	dw, dh, scaleX, scaleY := c.geometry(st)
	out := image.NewRGBA(image.Rect(0, 0, dw, dh))

	now := st.CurrentTime
	if c.src != nil {
		now = c.src.CurrentTime()
	}
	active := editor.ApplyTransient(editor.ActiveRegions(st.Regions, now), drag)
	if len(active) == 0 || dw == 0 || dh == 0 {
		c.cfg.Metrics.ObserveFrame(0, time.Since(started))
		return out
	}

	var (
		img    image.Image
		imgErr error
	)
	if c.src == nil {
		imgErr = video.ErrNoFrame
	} else {
		img, imgErr = c.src.Frame()
	}

	for _, r := range active {
		rs := time.Now()
		stage, err := c.region(out, img, imgErr, r, scaleX, scaleY)
		if err != nil {
			c.cfg.Metrics.RegionError(stage)
			c.log.Warn("region skipped", "region_id", r.ID, "stage", stage, "err", err)
			continue
		}
		c.cfg.Metrics.ObserveRegion(time.Since(rs))
	}

	c.cfg.Metrics.ObserveFrame(len(active), time.Since(started))
	return out
}

// geometry returns the output size and the display-to-source scale. With
// no display size recorded the video is shown at native size.
func (c *Compositor) geometry(st editor.EditorState) (w, h int, scaleX, scaleY float64) {
	nw, nh := float64(st.NativeWidth), float64(st.NativeHeight)
	if c.src != nil {
		sw, sh := c.src.NativeSize()
		nw, nh = float64(sw), float64(sh)
	}
	dw, dh := st.DisplayWidth, st.DisplayHeight
	if dw <= 0 || dh <= 0 {
		dw, dh = nw, nh
	}
	if dw <= 0 || dh <= 0 {
		return 0, 0, 1, 1
	}
	scaleX, scaleY = 1, 1
	if nw > 0 && nh > 0 {
		scaleX, scaleY = nw/dw, nh/dh
	}
	return int(math.Ceil(dw)), int(math.Ceil(dh)), scaleX, scaleY
}
