package video

import (
	"image"
	"path/filepath"
)

// Still is a single image presented for a fixed duration.
type Still struct {
	*Clock
	name string
	img  image.Image
}

// OpenStill decodes the image at path.
func OpenStill(path string, duration float64) (*Still, error) {
	img, err := decodeFile(path)
	if err != nil {
		return nil, err
	}
	return NewStill(filepath.Base(path), img, duration), nil
}

// NewStill wraps an already decoded image.
func NewStill(name string, img image.Image, duration float64) *Still {
	if duration <= 0 {
		duration = DefaultOptions().StillDuration
	}
	return &Still{Clock: NewClock(duration, nil), name: name, img: img}
}

// Name returns the source file name.
func (s *Still) Name() string { return s.name }

// NativeSize returns the image size.
func (s *Still) NativeSize() (int, int) {
	if s.img == nil {
		return 0, 0
	}
	b := s.img.Bounds()
	return b.Dx(), b.Dy()
}

// Frame returns the image.
func (s *Still) Frame() (image.Image, error) {
	if s.img == nil {
		return nil, ErrNoFrame
	}
	return s.img, nil
}

// Close drops the image.
func (s *Still) Close() error {
	s.img = nil
	return nil
}
