// Package ui is the mosaicedit window: the video viewport with its blurred
// overlay and editable region shapes, playback controls and the timeline.
package ui

import (
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"gioui.org/layout"
	"gioui.org/op/paint"

	"mosaicedit/cmd/mosaicedit/internal/theme"
	"mosaicedit/internal/canvas"
	"mosaicedit/internal/compositor"
	"mosaicedit/internal/config"
	"mosaicedit/internal/editor"
	"mosaicedit/internal/metrics"
	"mosaicedit/internal/playback"
	"mosaicedit/internal/shape"
	"mosaicedit/internal/store"
	"mosaicedit/internal/video"
)

// Options configures an Editor.
type Options struct {
	Theme  *theme.Theme
	Config *config.Config
	// DB persists projects. Saving is disabled when nil.
	DB      *store.Store
	Logger  *slog.Logger
	Metrics *metrics.Compositor
	// Invalidate asks the window for a new frame. It may be called from
	// any goroutine.
	Invalidate func()
}

// Editor wires the editing components to one window. Apart from
// ApplyConfig, its methods must be called from the window's event loop.
type Editor struct {
	th  *theme.Theme
	log *slog.Logger
	db  *store.Store

	sched  *FrameScheduler
	store  *editor.Store
	canvas *canvas.Canvas
	layer  *shape.Layer
	comp   *compositor.Compositor
	player *playback.Controller

	overlay atomic.Pointer[image.RGBA]

	mu  sync.Mutex
	cfg *config.Config

	src       video.Source
	videoPath string
	projectID string
	name      string
	status    string

	videoTag    bool
	timelineTag bool
	tl          timelineState
	ctl         controls
}

// New builds an editor with no video open.
func New(opts Options) *Editor {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Config == nil {
		opts.Config = config.DefaultConfig()
	}
	cfg := opts.Config

	e := &Editor{
		th:  opts.Theme,
		log: opts.Logger.With("component", "ui"),
		db:  opts.DB,
		cfg: cfg,
	}
	e.sched = NewFrameScheduler(opts.Invalidate)
	e.store = editor.NewStore(editor.WithMinWindow(cfg.Editor.NumericMinDurationSec))
	e.canvas = canvas.New(0, 0)
	e.layer = shape.New(e.store, e.canvas, shape.Config{
		Placement: placement(cfg),
		Logger:    opts.Logger,
	})
	e.layer.Bind(e.canvas)
	e.layer.Attach()

	e.comp = compositor.New(e.store, e.sched, e.layer, compositor.Config{
		BlurIntensity: cfg.Render.BlurIntensity,
		Interpolator:  video.Interpolators[cfg.Render.Resample],
		Logger:        opts.Logger,
		Metrics:       opts.Metrics,
	})
	e.comp.OnFrame(func(img *image.RGBA) {
		e.overlay.Store(img)
		e.sched.invalidate()
	})
	e.comp.Attach()
	e.layer.OnDrag(e.comp.Request)

	e.player = playback.New(e.store, e.sched, opts.Logger)
	e.ctl.init()
	return e
}

func placement(cfg *config.Config) editor.Placement {
	return editor.Placement{
		Size:     cfg.Editor.DefaultRegionSize,
		Duration: cfg.Editor.DefaultDurationSec,
	}
}

func (e *Editor) config() *config.Config {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cfg
}

// ApplyConfig adopts a reloaded configuration. Editing and timeline
// settings take effect immediately; render settings on the next start.
func (e *Editor) ApplyConfig(cfg *config.Config) {
	e.mu.Lock()
	prev := e.cfg
	e.cfg = cfg
	e.mu.Unlock()

	e.layer.SetPlacement(placement(cfg))
	if prev.Render != cfg.Render {
		e.log.Info("render settings change on restart",
			"blur_intensity", cfg.Render.BlurIntensity, "resample", cfg.Render.Resample)
	}
	e.sched.invalidate()
}

// Open replaces the current video and clears all regions.
func (e *Editor) Open(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	cfg := e.config()
	src, err := video.Open(abs, video.Options{
		FPS:           cfg.Video.FPS,
		CacheFrames:   cfg.Video.CacheFrames,
		StillDuration: cfg.Video.StillDurationSec,
		Watch:         cfg.Video.WatchSequences,
	})
	if err != nil {
		return err
	}

	e.player.SetSource(nil)
	e.comp.SetSource(nil)
	e.overlay.Store(nil)
	if err := e.store.Reset(); err != nil {
		e.log.Warn("close previous video", "err", err)
	}
	if err := e.store.SetVideo(src, filepath.Base(abs)); err != nil {
		e.log.Warn("set video", "err", err)
	}

	e.src = src
	e.videoPath = abs
	e.projectID = ""
	e.name = filepath.Base(abs)
	e.player.SetSource(src)
	e.comp.SetSource(src)
	e.log.Info("video opened", "path", abs, "duration", src.Duration())
	return nil
}

// LoadProject opens a saved project's video and restores its regions and
// display size.
func (e *Editor) LoadProject(id string) error {
	if e.db == nil {
		return fmt.Errorf("load project: no database")
	}
	p, err := e.db.LoadProject(id)
	if err != nil {
		return err
	}
	if err := e.Open(p.VideoPath); err != nil {
		return err
	}
	e.store.SetDisplaySize(p.DisplayWidth, p.DisplayHeight)
	e.store.Load(p.Regions)
	e.projectID = p.ID
	e.name = p.Name
	msg := fmt.Sprintf("Loaded %s (%d regions)", p.Name, len(p.Regions))
	if n := len(p.Skipped); n > 0 {
		msg += fmt.Sprintf(", skipped %d invalid", n)
	}
	e.setStatus(msg)
	return nil
}

// Save writes the current regions to the database, creating the project on
// first save.
func (e *Editor) Save() error {
	if e.db == nil {
		return fmt.Errorf("save project: no database")
	}
	if e.src == nil {
		return fmt.Errorf("save project: no video open")
	}
	p := store.FromState(e.projectID, e.name, e.videoPath, e.store.Snapshot())
	if err := e.db.SaveProject(p); err != nil {
		return err
	}
	e.projectID = p.ID
	e.log.Info("project saved", "project_id", p.ID, "regions", len(p.Regions))
	return nil
}

// Frame runs the frame callbacks due on this window frame.
func (e *Editor) Frame(now time.Time) {
	e.sched.Run(now)
}

// Close stops the frame loops and releases the video.
func (e *Editor) Close() {
	e.comp.Stop()
	e.player.Close()
	if err := e.store.Reset(); err != nil {
		e.log.Warn("close video", "err", err)
	}
}

func (e *Editor) setStatus(s string) {
	e.status = s
}

// Layout renders the editor.
func (e *Editor) Layout(gtx layout.Context) layout.Dimensions {
	paint.Fill(gtx.Ops, e.th.Palette.Background)

	return layout.Flex{Axis: layout.Vertical}.Layout(gtx,
		layout.Flexed(1, e.layoutVideo),
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return layout.UniformInset(e.th.Config.Padding).Layout(gtx, e.layoutControls)
		}),
		layout.Rigid(func(gtx layout.Context) layout.Dimensions {
			return layout.Inset{
				Left:   e.th.Config.Padding,
				Right:  e.th.Config.Padding,
				Bottom: e.th.Config.Padding,
			}.Layout(gtx, e.layoutTimeline)
		}),
	)
}
