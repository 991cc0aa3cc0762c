// Package video supplies decoded frames and a playback clock to the editor.
package video

import (
	"errors"
	"fmt"
	"image"
	"os"

	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"
)

// ErrNoFrame is returned when no decoded frame is available yet.
var ErrNoFrame = errors.New("video: no frame available")

// Source is a playable video.
type Source interface {
	// CurrentTime is the playback position in seconds.
	CurrentTime() float64
	Duration() float64
	// NativeSize is the decoded frame size in pixels.
	NativeSize() (w, h int)

	Play()
	Pause()
	Playing() bool
	Seek(t float64)

	// Frame returns the frame at the current playback position.
	Frame() (image.Image, error)

	Close() error
}

// Options configures sources opened with Open.
type Options struct {
	// FPS is the frame rate of image sequences.
	FPS float64
	// CacheFrames bounds the number of decoded frames kept in memory.
	CacheFrames int
	// StillDuration is the timeline length given to a single image.
	StillDuration float64
	// Watch rescans sequence directories when frames are added.
	Watch bool
}

// DefaultOptions returns 30 fps sequences with a 16 frame cache and
// 10 second stills.
func DefaultOptions() Options {
	return Options{FPS: 30, CacheFrames: 16, StillDuration: 10}
}

// Open opens path as a frame sequence if it is a directory, otherwise as a
// still image.
func Open(path string, opts Options) (Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("open video: %w", err)
	}
	if info.IsDir() {
		return OpenSequence(path, opts)
	}
	return OpenStill(path, opts.StillDuration)
}

// Interpolators by configuration name.
var Interpolators = map[string]draw.Interpolator{
	"nearest":    draw.NearestNeighbor,
	"approx":     draw.ApproxBiLinear,
	"bilinear":   draw.BiLinear,
	"catmullrom": draw.CatmullRom,
}

// Sample draws the source-space rectangle (sx, sy, sw, sh) of frame into
// the whole of dst, resampling to dst's size. Source coordinates may be
// fractional. Pixels of dst that map outside the frame are left untouched.
func Sample(dst draw.Image, frame image.Image, sx, sy, sw, sh float64, interp draw.Interpolator) error {
	if frame == nil {
		return ErrNoFrame
	}
	if sw <= 0 || sh <= 0 {
		return fmt.Errorf("sample: empty source rect %gx%g", sw, sh)
	}
	dr := dst.Bounds()
	if dr.Empty() {
		return fmt.Errorf("sample: empty destination")
	}
	if interp == nil {
		interp = draw.BiLinear
	}

	kx := float64(dr.Dx()) / sw
	ky := float64(dr.Dy()) / sh
	s2d := f64.Aff3{
		kx, 0, float64(dr.Min.X) - sx*kx,
		0, ky, float64(dr.Min.Y) - sy*ky,
	}
	interp.Transform(dst, s2d, frame, frame.Bounds(), draw.Src, nil)
	return nil
}
