package compositor

import (
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
	"golang.org/x/image/draw"
	"golang.org/x/image/math/f64"

	"mosaicedit/internal/editor"
	"mosaicedit/internal/video"
)

// Stages reported with region errors.
const (
	StageSample = "sample"
	StagePaint  = "paint"
)

// SourceRect maps a display-space region to the source-space rectangle
// sampled for it, padding included. The origin is clamped at zero; the
// size is not adjusted for the clamp.
func SourceRect(r editor.Rect, pad, scaleX, scaleY float64) (x, y, w, h float64) {
	x = math.Max(0, (r.X-pad)*scaleX)
	y = math.Max(0, (r.Y-pad)*scaleY)
	w = (r.Width + 2*pad) * scaleX
	h = (r.Height + 2*pad) * scaleY
	return x, y, w, h
}

// ClipRect is the smallest pixel rectangle covering a display-space region,
// intersected with bounds. Pixels only partly inside a fractional edge are
// included; coverageMask weights them.
func ClipRect(r editor.Rect, bounds image.Rectangle) image.Rectangle {
	clip := image.Rect(
		int(math.Floor(r.X)),
		int(math.Floor(r.Y)),
		int(math.Ceil(r.X+r.Width)),
		int(math.Ceil(r.Y+r.Height)),
	)
	return clip.Intersect(bounds)
}

// coverageMask holds, for each pixel of clip, the fraction of its area
// inside r. It is nil when every edge of r falls on a pixel boundary.
func coverageMask(r editor.Rect, clip image.Rectangle) *image.Alpha {
	x1, y1 := r.X+r.Width, r.Y+r.Height
	if r.X == math.Trunc(r.X) && r.Y == math.Trunc(r.Y) && x1 == math.Trunc(x1) && y1 == math.Trunc(y1) {
		return nil
	}
	span := func(p int, lo, hi float64) float64 {
		return math.Max(0, math.Min(float64(p+1), hi)-math.Max(float64(p), lo))
	}

	mask := image.NewAlpha(clip)
	for py := clip.Min.Y; py < clip.Max.Y; py++ {
		cy := span(py, r.Y, y1)
		for px := clip.Min.X; px < clip.Max.X; px++ {
			a := span(px, r.X, x1) * cy
			mask.Pix[mask.PixOffset(px, py)] = uint8(math.Round(a * 255))
		}
	}
	return mask
}

// region composites one region into out. A panic in sampling or painting
// is reported as an error so the remaining regions still render.
func (c *Compositor) region(out *image.RGBA, img image.Image, imgErr error, r editor.Region, scaleX, scaleY float64) (stage string, err error) {
	stage = StageSample
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("panic: %v", p)
		}
	}()

	if imgErr != nil {
		return stage, imgErr
	}
	if r.Width <= 0 || r.Height <= 0 {
		return stage, fmt.Errorf("degenerate region %gx%g", r.Width, r.Height)
	}

	pad := c.Padding()
	sx, sy, sw, sh := SourceRect(r.Rect, pad, scaleX, scaleY)

	scratch := image.NewRGBA(image.Rect(0, 0,
		int(math.Ceil(r.Width+2*pad)),
		int(math.Ceil(r.Height+2*pad)),
	))
	if err := video.Sample(scratch, img, sx, sy, sw, sh, c.cfg.Interpolator); err != nil {
		return stage, err
	}
	blurred := imaging.Blur(scratch, c.cfg.BlurIntensity)

	stage = StagePaint
	clip := ClipRect(r.Rect, out.Bounds())
	if clip.Empty() {
		return stage, nil
	}
	dst, ok := out.SubImage(clip).(*image.RGBA)
	if !ok {
		return stage, fmt.Errorf("unexpected subimage type %T", out.SubImage(clip))
	}

	s2d := f64.Aff3{
		1, 0, r.X - pad,
		0, 1, r.Y - pad,
	}
	var opts *draw.Options
	if mask := coverageMask(r.Rect, clip); mask != nil {
		opts = &draw.Options{DstMask: mask}
	}
	c.cfg.Interpolator.Transform(dst, s2d, blurred, blurred.Bounds(), draw.Over, opts)
	return stage, nil
}

// Flatten draws frame scaled to the overlay's size and the overlay on top,
// giving the picture a viewer sees.
func Flatten(frame image.Image, overlay *image.RGBA, interp draw.Interpolator) *image.RGBA {
	if interp == nil {
		interp = draw.BiLinear
	}
	b := overlay.Bounds()
	dst := image.NewRGBA(b)
	if frame != nil {
		interp.Scale(dst, b, frame, frame.Bounds(), draw.Src, nil)
	}
	draw.Draw(dst, b, overlay, b.Min, draw.Over)
	return dst
}
