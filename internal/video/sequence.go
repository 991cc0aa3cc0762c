package video

import (
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/fsnotify/fsnotify"
	lru "github.com/hashicorp/golang-lru/v2"
)

// rescanDebounce coalesces a burst of frame files landing in the directory
// into one rescan.
const rescanDebounce = 150 * time.Millisecond

// Sequence plays a directory of numbered image frames at a fixed rate.
type Sequence struct {
	*Clock

	dir    string
	fps    float64
	width  int
	height int
	log    *slog.Logger

	mu     sync.Mutex
	files  []string
	cache  *lru.Cache[string, image.Image]
	closed bool
	scans  int

	debounce time.Duration
	watcher  *fsnotify.Watcher
	done     chan struct{}
	wg       sync.WaitGroup
}

// OpenSequence scans dir for frames. The first frame fixes the native size.
func OpenSequence(dir string, opts Options) (*Sequence, error) {
	if opts.FPS <= 0 {
		opts.FPS = DefaultOptions().FPS
	}
	files, err := scanFrames(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("open sequence %s: no frames", dir)
	}
	cfg, err := decodeConfig(files[0])
	if err != nil {
		return nil, err
	}
	cache, err := lru.New[string, image.Image](max(opts.CacheFrames, 1))
	if err != nil {
		return nil, fmt.Errorf("frame cache: %w", err)
	}

	s := &Sequence{
		Clock:  NewClock(float64(len(files))/opts.FPS, nil),
		dir:    dir,
		fps:    opts.FPS,
		width:  cfg.Width,
		height: cfg.Height,
		log:    slog.Default().With("component", "video", "dir", dir),
		files:  files,
		cache:  cache,
		done:   make(chan struct{}),

		debounce: rescanDebounce,
	}

	if opts.Watch {
		if err := s.watch(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Name returns the directory name.
func (s *Sequence) Name() string { return filepath.Base(s.dir) }

// FPS returns the frame rate.
func (s *Sequence) FPS() float64 { return s.fps }

// NativeSize returns the frame size.
func (s *Sequence) NativeSize() (int, int) { return s.width, s.height }

// FrameCount returns the number of frames found.
func (s *Sequence) FrameCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.files)
}

// FrameIndex maps a time to a frame index.
func (s *Sequence) FrameIndex(t float64) int {
	s.mu.Lock()
	n := len(s.files)
	s.mu.Unlock()

	i := int(t * s.fps)
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

// Frame decodes the frame at the current position, reusing cached decodes.
func (s *Sequence) Frame() (image.Image, error) {
	i := s.FrameIndex(s.CurrentTime())

	s.mu.Lock()
	if s.closed || i >= len(s.files) {
		s.mu.Unlock()
		return nil, ErrNoFrame
	}
	path := s.files[i]
	if img, ok := s.cache.Get(path); ok {
		s.mu.Unlock()
		return img, nil
	}
	s.mu.Unlock()

	img, err := decodeFile(path)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cache.Add(path, img)
	s.mu.Unlock()
	return img, nil
}

// Close stops watching and drops cached frames.
func (s *Sequence) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.cache.Purge()
	s.mu.Unlock()

	if s.watcher != nil {
		close(s.done)
		s.wg.Wait()
		return s.watcher.Close()
	}
	return nil
}

// Rescan reloads the frame list and extends the duration.
func (s *Sequence) Rescan() error {
	files, err := scanFrames(s.dir)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.files = files
	s.scans++
	s.mu.Unlock()
	s.SetDuration(float64(len(files)) / s.fps)
	return nil
}

func (s *Sequence) watch() error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := w.Add(s.dir); err != nil {
		w.Close()
		return fmt.Errorf("watch %s: %w", s.dir, err)
	}
	s.watcher = w

	s.wg.Add(1)
	go s.watchLoop(w)
	return nil
}

// watchLoop rescans once the directory has been quiet for s.debounce.
func (s *Sequence) watchLoop(w *fsnotify.Watcher) {
	defer s.wg.Done()

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-s.done:
			return
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if ev.Has(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) && IsFrameFile(ev.Name) {
				timer.Reset(s.debounce)
			}
		case <-timer.C:
			if err := s.Rescan(); err != nil {
				s.log.Warn("rescan failed", "err", err)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			s.log.Warn("watch error", "err", err)
		}
	}
}

func scanFrames(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan frames: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !IsFrameFile(e.Name()) {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	sort.SliceStable(files, func(i, j int) bool {
		return frameLess(filepath.Base(files[i]), filepath.Base(files[j]))
	})
	return files, nil
}

// frameLess orders names by their trailing number when both have one, so
// frame2 sorts before frame10.
func frameLess(a, b string) bool {
	na, oka := trailingNumber(a)
	nb, okb := trailingNumber(b)
	if oka && okb && na != nb {
		return na < nb
	}
	return a < b
}

func trailingNumber(name string) (int, bool) {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	end := len(stem)
	start := end
	for start > 0 && unicode.IsDigit(rune(stem[start-1])) {
		start--
	}
	if start == end {
		return 0, false
	}
	n, err := strconv.Atoi(stem[start:end])
	return n, err == nil
}
