// Package timeline lays out region windows along the video timeline and
// turns timeline-handle drags into clamped window edits.
package timeline

import (
	"fmt"
	"math"

	"mosaicedit/internal/editor"
)

// Defaults for the timeline view.
const (
	DefaultRows        = 3
	DefaultTickSeconds = 10.0
	minBarPercent      = 1.0
)

// Bar is the timeline representation of one region.
type Bar struct {
	RegionID string
	// Left and Width are percentages of the timeline width.
	Left     float64
	Width    float64
	Row      int
	Selected bool
}

// Tick is a labelled time mark.
type Tick struct {
	Seconds float64
	Percent float64
	Label   string
}

// Layout computes bars for regions in store order. Regions are spread over
// rows round-robin; bars never shrink below 1% so short windows stay
// clickable. A non-positive duration yields no bars.
func Layout(regions []editor.Region, selected string, duration float64, rows int) []Bar {
	if duration <= 0 {
		return nil
	}
	if rows <= 0 {
		rows = DefaultRows
	}
	bars := make([]Bar, 0, len(regions))
	for i, r := range regions {
		bars = append(bars, Bar{
			RegionID: r.ID,
			Left:     r.Start / duration * 100,
			Width:    math.Max(r.Length()/duration*100, minBarPercent),
			Row:      i % rows,
			Selected: r.ID == selected,
		})
	}
	return bars
}

// Ticks returns marks every step seconds from zero through
// ceil(duration/step) steps.
func Ticks(duration, step float64) []Tick {
	if duration <= 0 {
		return nil
	}
	if step <= 0 {
		step = DefaultTickSeconds
	}
	n := int(math.Ceil(duration/step)) + 1
	ticks := make([]Tick, n)
	for i := range ticks {
		sec := float64(i) * step
		ticks[i] = Tick{Seconds: sec, Percent: sec / duration * 100, Label: FormatTime(sec)}
	}
	return ticks
}

// Playhead returns the playhead position as a percentage.
func Playhead(now, duration float64) float64 {
	if duration <= 0 {
		return 0
	}
	return now / duration * 100
}

// FormatTime renders seconds as m:ss.
func FormatTime(seconds float64) string {
	if seconds < 0 || math.IsNaN(seconds) {
		seconds = 0
	}
	mins := int(math.Floor(seconds / 60))
	secs := int(math.Floor(math.Mod(seconds, 60)))
	return fmt.Sprintf("%d:%02d", mins, secs)
}
