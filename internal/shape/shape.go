// Package shape keeps the editable rectangle overlay in step with the
// editor store and turns toolkit gestures into store commands.
package shape

import (
	"image/color"
	"log/slog"
	"sync"

	"mosaicedit/internal/canvas"
	"mosaicedit/internal/editor"
)

// Surface is the part of the manipulation toolkit the layer draws on.
// *canvas.Canvas implements it.
type Surface interface {
	Clear()
	Add(o *canvas.Object)
	SetActiveObject(o *canvas.Object)
	// GestureTarget is the object under an in-progress gesture, or nil.
	GestureTarget() *canvas.Object
}

var (
	fill      = color.NRGBA{R: 99, G: 102, B: 241, A: 77}
	accent    = color.NRGBA{R: 0x63, G: 0x66, B: 0xf1, A: 0xff}
	highlight = color.NRGBA{R: 0x22, G: 0xc5, B: 0x5e, A: 0xff}
)

// SelectedStyle is a solid highlighted border.
func SelectedStyle() canvas.Style {
	return canvas.Style{
		Fill:        fill,
		Stroke:      highlight,
		StrokeWidth: 2,
		CornerColor: accent,
		CornerSize:  10,
	}
}

// NormalStyle is a dashed neutral border.
func NormalStyle() canvas.Style {
	return canvas.Style{
		Fill:        fill,
		Stroke:      accent,
		StrokeWidth: 2,
		Dash:        []float64{5, 5},
		CornerColor: accent,
		CornerSize:  10,
	}
}

// Layer binds active regions to manipulable rectangles.
type Layer struct {
	store     *editor.Store
	surface   Surface
	placement editor.Placement
	log       *slog.Logger

	mu   sync.RWMutex
	drag *editor.DragState

	onDrag []func()
}

// Config configures a Layer.
type Config struct {
	Placement editor.Placement
	Logger    *slog.Logger
}

// New returns a layer drawing on surface. Call Sync (or Attach) to populate it.
func New(store *editor.Store, surface Surface, cfg Config) *Layer {
	if cfg.Placement.Size <= 0 {
		cfg.Placement = editor.DefaultPlacement()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Layer{
		store:     store,
		surface:   surface,
		placement: cfg.Placement,
		log:       cfg.Logger,
	}
}

// Attach rebuilds the overlay on every store change. The returned func
// detaches the layer.
func (l *Layer) Attach() (detach func()) {
	l.Sync()
	return l.store.Subscribe(l.Sync)
}

// Sync discards every shape and recreates one per region active at the
// current playback time, using canonical geometry. The selected region's
// shape becomes the toolkit's active object.
//
// An object under an in-progress gesture is reused rather than replaced so
// the gesture keeps driving what is on screen.
func (l *Layer) Sync() {
	st := l.store.Snapshot()
	live := l.surface.GestureTarget()

	l.surface.Clear()
	for _, r := range editor.ActiveRegions(st.Regions, st.CurrentTime) {
		selected := r.ID == st.SelectedID

		var o *canvas.Object
		if live != nil && live.Data == r.ID {
			o = live
		} else {
			o = &canvas.Object{
				Left:   r.X,
				Top:    r.Y,
				Width:  r.Width,
				Height: r.Height,
				ScaleX: 1,
				ScaleY: 1,
				Data:   r.ID,
			}
		}
		if selected {
			o.Style = SelectedStyle()
		} else {
			o.Style = NormalStyle()
		}

		l.surface.Add(o)
		if selected {
			l.surface.SetActiveObject(o)
		}
	}
}

// Drag returns the in-flight geometry edit, or nil when no gesture is live.
func (l *Layer) Drag() *editor.DragState {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.drag == nil {
		return nil
	}
	d := *l.drag
	return &d
}

// Dragging reports whether a geometry gesture is in progress.
func (l *Layer) Dragging() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.drag != nil
}

// OnDrag registers fn to run whenever the drag state changes, including
// when it is cleared.
func (l *Layer) OnDrag(fn func()) {
	l.onDrag = append(l.onDrag, fn)
}

func (l *Layer) setDrag(d *editor.DragState) {
	l.mu.Lock()
	l.drag = d
	l.mu.Unlock()
	for _, fn := range l.onDrag {
		fn()
	}
}

// SetPlacement changes the size and duration of regions created by Click.
func (l *Layer) SetPlacement(p editor.Placement) {
	if p.Size <= 0 {
		return
	}
	l.mu.Lock()
	l.placement = p
	l.mu.Unlock()
}

// Click handles a click on the overlay at container-local (x, y). In
// placement mode it creates a region there and reports true.
func (l *Layer) Click(x, y float64) (string, bool) {
	if !l.store.Snapshot().Placing {
		return "", false
	}
	l.mu.RLock()
	p := l.placement
	l.mu.RUnlock()
	id := l.store.Place(p, x, y)
	l.log.Debug("region placed", "region_id", id, "x", x, "y", y)
	return id, true
}
