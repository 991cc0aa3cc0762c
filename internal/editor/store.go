package editor

import (
	"io"
	"slices"
	"sync"

	"github.com/google/uuid"
)

// EditorState is a point-in-time copy of the store contents.
type EditorState struct {
	// Video is the handle of the loaded source. The store owns it and
	// closes it when it is replaced or the store is reset.
	Video     io.Closer
	VideoName string

	Duration     float64
	NativeWidth  int
	NativeHeight int

	// DisplayWidth and DisplayHeight define display space: the size the
	// video is rendered at on screen.
	DisplayWidth  float64
	DisplayHeight float64

	CurrentTime float64
	Playing     bool

	// Regions in insertion order, which is also z-order.
	Regions    []Region
	SelectedID string
	Placing    bool
}

// Store is the single writer of editor state.
type Store struct {
	mu        sync.RWMutex
	state     EditorState
	listeners map[int]func()
	nextSub   int
	newID     func() string
	minWindow float64
}

// Option configures a Store.
type Option func(*Store)

// WithIDFunc overrides region id generation.
func WithIDFunc(fn func() string) Option {
	return func(s *Store) { s.newID = fn }
}

// WithMinWindow sets the minimum window kept by SetStartTime and
// SetEndTime. Non-positive values keep NumericMinDuration.
func WithMinWindow(d float64) Option {
	return func(s *Store) {
		if d > 0 {
			s.minWindow = d
		}
	}
}

// NewStore returns an empty store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		listeners: make(map[int]func()),
		newID:     uuid.NewString,
		minWindow: NumericMinDuration,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe registers fn to run after every mutation. The returned func
// removes the subscription.
func (s *Store) Subscribe(fn func()) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextSub
	s.nextSub++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// mutate runs fn under the write lock and then notifies subscribers outside it.
func (s *Store) mutate(fn func(st *EditorState) bool) {
	s.mu.Lock()
	changed := fn(&s.state)
	var fns []func()
	if changed {
		fns = make([]func(), 0, len(s.listeners))
		for _, l := range s.listeners {
			fns = append(fns, l)
		}
	}
	s.mu.Unlock()

	for _, l := range fns {
		l()
	}
}

// AddRegion appends a region with a fresh id and returns the id.
func (s *Store) AddRegion(r Rect, w Window) string {
	id := s.newID()
	s.mutate(func(st *EditorState) bool {
		st.Regions = append(st.Regions, Region{ID: id, Rect: r, Window: w})
		return true
	})
	return id
}

// UpdateRegion overwrites the patched fields of region id. Unknown ids and
// empty patches are ignored. Values are not validated.
func (s *Store) UpdateRegion(id string, p Patch) {
	if p.Empty() {
		return
	}
	s.mutate(func(st *EditorState) bool {
		i := indexOf(st.Regions, id)
		if i < 0 {
			return false
		}
		st.Regions[i] = p.apply(st.Regions[i])
		return true
	})
}

// DeleteRegion removes region id, clearing the selection if it was selected.
func (s *Store) DeleteRegion(id string) {
	s.mutate(func(st *EditorState) bool {
		i := indexOf(st.Regions, id)
		if i < 0 {
			return false
		}
		st.Regions = slices.Delete(slices.Clone(st.Regions), i, i+1)
		if st.SelectedID == id {
			st.SelectedID = ""
		}
		return true
	})
}

// SelectRegion sets the selected region. An empty id clears the selection.
func (s *Store) SelectRegion(id string) {
	s.mutate(func(st *EditorState) bool {
		if st.SelectedID == id {
			return false
		}
		st.SelectedID = id
		return true
	})
}

// SetPlacementMode toggles whether the next surface click creates a region.
func (s *Store) SetPlacementMode(on bool) {
	s.mutate(func(st *EditorState) bool {
		if st.Placing == on {
			return false
		}
		st.Placing = on
		return true
	})
}

// SetVideo replaces the loaded video. The previous handle is closed before
// listeners see the new one.
func (s *Store) SetVideo(h io.Closer, name string) error {
	var err error
	if prev := s.video(); prev != nil && prev != h {
		err = prev.Close()
	}
	s.mutate(func(st *EditorState) bool {
		st.Video = h
		st.VideoName = name
		return true
	})
	return err
}

func (s *Store) video() io.Closer {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Video
}

// SetDuration records the video duration in seconds.
func (s *Store) SetDuration(d float64) {
	s.mutate(func(st *EditorState) bool {
		st.Duration = d
		return true
	})
}

// SetNativeSize records the decoded frame size.
func (s *Store) SetNativeSize(w, h int) {
	s.mutate(func(st *EditorState) bool {
		st.NativeWidth, st.NativeHeight = w, h
		return true
	})
}

// SetDisplaySize records the on-screen size of the video.
func (s *Store) SetDisplaySize(w, h float64) {
	s.mutate(func(st *EditorState) bool {
		if st.DisplayWidth == w && st.DisplayHeight == h {
			return false
		}
		st.DisplayWidth, st.DisplayHeight = w, h
		return true
	})
}

// SetCurrentTime records the playback position.
func (s *Store) SetCurrentTime(t float64) {
	s.mutate(func(st *EditorState) bool {
		if st.CurrentTime == t {
			return false
		}
		st.CurrentTime = t
		return true
	})
}

// SetPlaying records the play/pause flag.
func (s *Store) SetPlaying(playing bool) {
	s.mutate(func(st *EditorState) bool {
		if st.Playing == playing {
			return false
		}
		st.Playing = playing
		return true
	})
}

// Load replaces the region list wholesale, e.g. when opening a saved
// project. Selection and placement mode are cleared.
func (s *Store) Load(regions []Region) {
	s.mutate(func(st *EditorState) bool {
		st.Regions = slices.Clone(regions)
		st.SelectedID = ""
		st.Placing = false
		return true
	})
}

// Reset releases the video handle, then restores the initial empty state.
// The state is reset even when closing the handle fails.
func (s *Store) Reset() error {
	var err error
	if prev := s.video(); prev != nil {
		err = prev.Close()
	}
	s.mutate(func(st *EditorState) bool {
		*st = EditorState{}
		return true
	})
	return err
}

// Snapshot returns a copy of the whole state.
func (s *Store) Snapshot() EditorState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.state
	st.Regions = slices.Clone(s.state.Regions)
	return st
}

// Regions returns a copy of the region list in z-order.
func (s *Store) Regions() []Region {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.state.Regions)
}

// Region looks up a region by id.
func (s *Store) Region(id string) (Region, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := indexOf(s.state.Regions, id); i >= 0 {
		return s.state.Regions[i], true
	}
	return Region{}, false
}

// Selected returns the selected region id, or "" when nothing is selected.
func (s *Store) Selected() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.SelectedID
}

// ActiveRegions returns the regions active at t.
func (s *Store) ActiveRegions(t float64) []Region {
	return ActiveRegions(s.Regions(), t)
}

func indexOf(regions []Region, id string) int {
	return slices.IndexFunc(regions, func(r Region) bool { return r.ID == id })
}
